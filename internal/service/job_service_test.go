package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"shopfloor/backend/internal/dto"
	"shopfloor/backend/internal/model"
	"shopfloor/backend/internal/repository"
	pkgerrors "shopfloor/backend/pkg/errors"
)

// ── 测试辅助 ──

func setupTestJobService() (JobService, *mockJobRepo, *mockUserRepo) {
	jobRepo := newMockJobRepo()
	userRepo := newMockUserRepo()
	userRepo.add("stu-001", "张三", model.RoleStudent)
	userRepo.add("stu-002", "李四", model.RoleStudent)
	userRepo.add("lead-001", "王主管", model.RoleLead)

	repo := &repository.Repository{
		User: userRepo,
		Job:  jobRepo,
		Part: newMockPartRepo(),
	}
	svc := NewJobService(repo, newMockFileStore(), zap.NewNop())
	return svc, jobRepo, userRepo
}

func seedJob(t *testing.T, jobRepo *mockJobRepo, id, shop string, pos int, submitterID string) {
	t.Helper()
	sub := submitterID
	job := &model.ShopJob{
		JobID:         id,
		Shop:          shop,
		PartName:      "part-" + id,
		OwnerName:     "owner",
		SubmitterID:   &sub,
		Status:        model.JobStatusSubmitted,
		QueuePosition: pos,
	}
	job.CreatedAt = time.Date(2026, 8, 1, 0, 0, pos, 0, time.UTC)
	if err := jobRepo.Create(context.Background(), job); err != nil {
		t.Fatalf("seed job failed: %v", err)
	}
}

func student(id string) *Actor { return &Actor{ID: id, Name: id, Role: model.RoleStudent} }
func lead() *Actor             { return &Actor{ID: "lead-001", Name: "王主管", Role: model.RoleLead} }

func unclaimedOrder(jobs []dto.JobResponse) []string {
	var ids []string
	for i := range jobs {
		if jobs[i].ClaimedByID == nil {
			ids = append(ids, jobs[i].ID)
		}
	}
	return ids
}

// assertDense 校验未认领工件的 queue_position 为稠密的 0..n-1
func assertDense(t *testing.T, jobs []dto.JobResponse) {
	t.Helper()
	next := 0
	for i := range jobs {
		if jobs[i].ClaimedByID != nil {
			continue
		}
		if jobs[i].QueuePosition != next {
			t.Errorf("位置 %d 处期望 queue_position=%d，实际=%d (id=%s)",
				i, next, jobs[i].QueuePosition, jobs[i].ID)
		}
		next++
	}
}

// ── Submit 测试 ──

func TestJobService_Submit_AppendsAtTail(t *testing.T) {
	svc, jobRepo, _ := setupTestJobService()
	seedJob(t, jobRepo, "job-a", model.ShopCNC, 0, "stu-001")
	seedJob(t, jobRepo, "job-b", model.ShopCNC, 1, "stu-001")

	input := &SubmitJobInput{
		Shop:      model.ShopCNC,
		PartName:  "bracket",
		OwnerName: "张三",
		FileName:  "bracket.step",
		File:      strings.NewReader("solid"),
	}
	resp, err := svc.Submit(context.Background(), input, student("stu-001"))
	if err != nil {
		t.Fatalf("Submit 应成功: %v", err)
	}
	if resp.QueuePosition != 2 {
		t.Errorf("期望新工件位于队尾 position=2，实际=%d", resp.QueuePosition)
	}
}

func TestJobService_Submit_InvalidShop(t *testing.T) {
	svc, _, _ := setupTestJobService()

	input := &SubmitJobInput{Shop: "laser", PartName: "x", OwnerName: "y", File: strings.NewReader("")}
	_, err := svc.Submit(context.Background(), input, student("stu-001"))
	if !errors.Is(err, ErrInvalidShop) {
		t.Errorf("期望 ErrInvalidShop，实际: %v", err)
	}
}

// ── Reorder 测试 ──

func TestJobService_Reorder_AuthoritativeOrder(t *testing.T) {
	svc, jobRepo, _ := setupTestJobService()
	seedJob(t, jobRepo, "job-a", model.ShopCNC, 0, "stu-001")
	seedJob(t, jobRepo, "job-b", model.ShopCNC, 1, "stu-001")
	seedJob(t, jobRepo, "job-c", model.ShopCNC, 2, "stu-002")

	req := &dto.JobReorderRequest{
		Shop:       model.ShopCNC,
		OrderedIDs: []string{"job-c", "job-a", "job-b"},
	}
	jobs, err := svc.Reorder(context.Background(), req, lead())
	if err != nil {
		t.Fatalf("Reorder 应成功: %v", err)
	}

	got := unclaimedOrder(jobs)
	want := []string{"job-c", "job-a", "job-b"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("期望顺序 %v，实际 %v", want, got)
		}
	}
	assertDense(t, jobs)
}

func TestJobService_Reorder_Idempotent(t *testing.T) {
	svc, jobRepo, _ := setupTestJobService()
	seedJob(t, jobRepo, "job-a", model.ShopCNC, 0, "stu-001")
	seedJob(t, jobRepo, "job-b", model.ShopCNC, 1, "stu-001")

	req := &dto.JobReorderRequest{Shop: model.ShopCNC, OrderedIDs: []string{"job-b", "job-a"}}
	first, err := svc.Reorder(context.Background(), req, lead())
	if err != nil {
		t.Fatalf("首次 Reorder 应成功: %v", err)
	}
	second, err := svc.Reorder(context.Background(), req, lead())
	if err != nil {
		t.Fatalf("重复 Reorder 应成功: %v", err)
	}

	f, s := unclaimedOrder(first), unclaimedOrder(second)
	for i := range f {
		if f[i] != s[i] {
			t.Fatalf("重复提交应得到相同顺序：%v vs %v", f, s)
		}
	}
}

func TestJobService_Reorder_StudentForbidden(t *testing.T) {
	svc, jobRepo, _ := setupTestJobService()
	seedJob(t, jobRepo, "job-a", model.ShopCNC, 0, "stu-001")

	req := &dto.JobReorderRequest{Shop: model.ShopCNC, OrderedIDs: []string{"job-a"}}
	_, err := svc.Reorder(context.Background(), req, student("stu-001"))
	if !errors.Is(err, ErrJobForbidden) {
		t.Errorf("期望 ErrJobForbidden，实际: %v", err)
	}
}

func TestJobService_Reorder_ClaimedRejected(t *testing.T) {
	svc, jobRepo, _ := setupTestJobService()
	seedJob(t, jobRepo, "job-a", model.ShopCNC, 0, "stu-001")
	seedJob(t, jobRepo, "job-b", model.ShopCNC, 1, "stu-001")

	if _, err := svc.Claim(context.Background(), "job-a", student("stu-002")); err != nil {
		t.Fatalf("前置认领失败: %v", err)
	}

	req := &dto.JobReorderRequest{Shop: model.ShopCNC, OrderedIDs: []string{"job-a", "job-b"}}
	_, err := svc.Reorder(context.Background(), req, lead())
	if !errors.Is(err, ErrReorderClaimed) {
		t.Errorf("期望 ErrReorderClaimed，实际: %v", err)
	}
}

func TestJobService_Reorder_MissingJobConflict(t *testing.T) {
	svc, jobRepo, _ := setupTestJobService()
	seedJob(t, jobRepo, "job-a", model.ShopCNC, 0, "stu-001")

	req := &dto.JobReorderRequest{Shop: model.ShopCNC, OrderedIDs: []string{"job-a", "job-gone"}}
	_, err := svc.Reorder(context.Background(), req, lead())
	if !errors.Is(err, ErrReorderConflict) {
		t.Errorf("期望 ErrReorderConflict，实际: %v", err)
	}
	// 冲突错误携带乐观锁哨兵，供处理器统一映射为 409
	if !errors.Is(err, pkgerrors.ErrOptimisticLock) {
		t.Errorf("期望包装 ErrOptimisticLock，实际: %v", err)
	}
}

func TestJobService_Reorder_ConcurrentSubmitAppended(t *testing.T) {
	svc, jobRepo, _ := setupTestJobService()
	seedJob(t, jobRepo, "job-a", model.ShopCNC, 0, "stu-001")
	seedJob(t, jobRepo, "job-b", model.ShopCNC, 1, "stu-001")
	// job-c 在重排者拉取视图之后才提交，不在 ordered_ids 中
	seedJob(t, jobRepo, "job-c", model.ShopCNC, 2, "stu-002")

	req := &dto.JobReorderRequest{Shop: model.ShopCNC, OrderedIDs: []string{"job-b", "job-a"}}
	jobs, err := svc.Reorder(context.Background(), req, lead())
	if err != nil {
		t.Fatalf("Reorder 应成功: %v", err)
	}

	got := unclaimedOrder(jobs)
	want := []string{"job-b", "job-a", "job-c"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("并发提交的工件应追加尾部：期望 %v，实际 %v", want, got)
		}
	}
	assertDense(t, jobs)
}

// ── Claim / Unclaim 测试 ──

func TestJobService_Claim_CompactsRemaining(t *testing.T) {
	svc, jobRepo, _ := setupTestJobService()
	seedJob(t, jobRepo, "job-a", model.ShopCNC, 0, "stu-001")
	seedJob(t, jobRepo, "job-b", model.ShopCNC, 1, "stu-001")
	seedJob(t, jobRepo, "job-c", model.ShopCNC, 2, "stu-002")

	jobs, err := svc.Claim(context.Background(), "job-b", student("stu-002"))
	if err != nil {
		t.Fatalf("Claim 应成功: %v", err)
	}

	got := unclaimedOrder(jobs)
	want := []string{"job-a", "job-c"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("认领后未认领序列期望 %v，实际 %v", want, got)
		}
	}
	assertDense(t, jobs)

	for i := range jobs {
		if jobs[i].ID == "job-b" {
			if jobs[i].ClaimedByID == nil || *jobs[i].ClaimedByID != "stu-002" {
				t.Error("job-b 应被 stu-002 认领")
			}
			if jobs[i].ClaimedByName != "李四" {
				t.Errorf("期望认领人姓名=李四，实际=%s", jobs[i].ClaimedByName)
			}
		}
	}
}

func TestJobService_Claim_AlreadyClaimed(t *testing.T) {
	svc, jobRepo, _ := setupTestJobService()
	seedJob(t, jobRepo, "job-a", model.ShopCNC, 0, "stu-001")

	if _, err := svc.Claim(context.Background(), "job-a", student("stu-001")); err != nil {
		t.Fatalf("首次认领应成功: %v", err)
	}
	_, err := svc.Claim(context.Background(), "job-a", student("stu-002"))
	if !errors.Is(err, ErrJobAlreadyClaimed) {
		t.Errorf("期望 ErrJobAlreadyClaimed，实际: %v", err)
	}
}

func TestJobService_Unclaim_ReentersAtTail(t *testing.T) {
	svc, jobRepo, _ := setupTestJobService()
	seedJob(t, jobRepo, "job-a", model.ShopCNC, 0, "stu-001")
	seedJob(t, jobRepo, "job-b", model.ShopCNC, 1, "stu-001")
	seedJob(t, jobRepo, "job-c", model.ShopCNC, 2, "stu-002")

	if _, err := svc.Claim(context.Background(), "job-a", student("stu-001")); err != nil {
		t.Fatalf("前置认领失败: %v", err)
	}
	jobs, err := svc.Unclaim(context.Background(), "job-a", student("stu-001"))
	if err != nil {
		t.Fatalf("Unclaim 应成功: %v", err)
	}

	got := unclaimedOrder(jobs)
	want := []string{"job-b", "job-c", "job-a"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("取消认领后应回到队尾：期望 %v，实际 %v", want, got)
		}
	}
	assertDense(t, jobs)
}

func TestJobService_Unclaim_OtherStudentForbidden(t *testing.T) {
	svc, jobRepo, _ := setupTestJobService()
	seedJob(t, jobRepo, "job-a", model.ShopCNC, 0, "stu-001")

	if _, err := svc.Claim(context.Background(), "job-a", student("stu-001")); err != nil {
		t.Fatalf("前置认领失败: %v", err)
	}
	_, err := svc.Unclaim(context.Background(), "job-a", student("stu-002"))
	if !errors.Is(err, ErrJobForbidden) {
		t.Errorf("期望 ErrJobForbidden，实际: %v", err)
	}

	// 负责人可以代为释放
	if _, err := svc.Unclaim(context.Background(), "job-a", lead()); err != nil {
		t.Errorf("负责人释放应成功: %v", err)
	}
}

// ── UpdateStatus / Delete 测试 ──

func TestJobService_UpdateStatus_LeadOnly(t *testing.T) {
	svc, jobRepo, _ := setupTestJobService()
	seedJob(t, jobRepo, "job-a", model.ShopCNC, 0, "stu-001")

	req := &dto.JobStatusUpdateRequest{Status: model.JobStatusInReview, Note: "开始审查"}
	_, err := svc.UpdateStatus(context.Background(), "job-a", req, student("stu-001"))
	if !errors.Is(err, ErrJobForbidden) {
		t.Errorf("期望 ErrJobForbidden，实际: %v", err)
	}

	resp, err := svc.UpdateStatus(context.Background(), "job-a", req, lead())
	if err != nil {
		t.Fatalf("负责人更新状态应成功: %v", err)
	}
	if resp.Status != model.JobStatusInReview {
		t.Errorf("期望状态=%s，实际=%s", model.JobStatusInReview, resp.Status)
	}
	if !strings.Contains(resp.Notes, "开始审查") {
		t.Errorf("备注应追加进度说明，实际=%q", resp.Notes)
	}
}

func TestJobService_Delete_SubmitterOrLead(t *testing.T) {
	svc, jobRepo, _ := setupTestJobService()
	seedJob(t, jobRepo, "job-a", model.ShopCNC, 0, "stu-001")
	seedJob(t, jobRepo, "job-b", model.ShopCNC, 1, "stu-001")
	seedJob(t, jobRepo, "job-c", model.ShopCNC, 2, "stu-002")

	// 非提交者也非负责人
	if _, err := svc.Delete(context.Background(), "job-a", student("stu-002")); !errors.Is(err, ErrJobForbidden) {
		t.Errorf("期望 ErrJobForbidden，实际: %v", err)
	}

	jobs, err := svc.Delete(context.Background(), "job-a", student("stu-001"))
	if err != nil {
		t.Fatalf("提交者删除应成功: %v", err)
	}
	if len(jobs) != 2 {
		t.Fatalf("期望剩余 2 个工件，实际 %d", len(jobs))
	}
	assertDense(t, jobs)
}
