package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"go.uber.org/zap"

	"shopfloor/backend/internal/dto"
)

// ── 测试辅助 ──

// envelopeJSON 按服务端统一响应包格式编码 data
func envelopeJSON(data interface{}) []byte {
	raw, _ := json.Marshal(data)
	b, _ := json.Marshal(map[string]interface{}{
		"code":    0,
		"message": "成功",
		"data":    json.RawMessage(raw),
	})
	return b
}

func listEnvelope(list interface{}) []byte {
	return envelopeJSON(map[string]interface{}{"list": list})
}

func errorEnvelope(code int, message string) []byte {
	b, _ := json.Marshal(map[string]interface{}{
		"code":    code,
		"message": message,
	})
	return b
}

func strPtr(s string) *string { return &s }

func seedQueue(q *QueueStore, jobs []dto.JobResponse) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.jobs = jobs
}

func queueIDs(jobs []dto.JobResponse) []string {
	ids := make([]string, 0, len(jobs))
	for i := range jobs {
		ids = append(ids, jobs[i].ID)
	}
	return ids
}

// countingServer 记录命中次数的测试服务端
func countingServer(t *testing.T, handler http.HandlerFunc) (*httptest.Server, *atomic.Int64) {
	t.Helper()
	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		handler(w, r)
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

func leadGate() Gate {
	return Gate{ActorID: "lead-001", Role: "lead"}
}

func studentGate(id string) Gate {
	return Gate{ActorID: id, Role: "student"}
}

// sampleLane 两个未认领 + 一个已认领的车道
func sampleLane() []dto.JobResponse {
	return []dto.JobResponse{
		{ID: "job-a", Shop: "cnc", PartName: "底盘支架", QueuePosition: 0},
		{ID: "job-b", Shop: "cnc", PartName: "传动轴", QueuePosition: 1},
		{ID: "job-c", Shop: "cnc", PartName: "夹爪", ClaimedByID: strPtr("stu-002")},
	}
}

// ── 拖拽重排 ──

func TestQueueStore_DragOver_StableSplice(t *testing.T) {
	q := NewQueueStore(nil, leadGate(), "cnc", zap.NewNop())
	seedQueue(q, []dto.JobResponse{
		{ID: "job-a", QueuePosition: 0},
		{ID: "job-c", ClaimedByID: strPtr("stu-002")},
		{ID: "job-b", QueuePosition: 1},
		{ID: "job-d", QueuePosition: 2},
	})

	if err := q.BeginDrag("job-a"); err != nil {
		t.Fatalf("BeginDrag 失败: %v", err)
	}
	if err := q.DragOver(2); err != nil {
		t.Fatalf("DragOver 失败: %v", err)
	}

	got := queueIDs(q.Jobs())
	// 未认领区内 a 移到末位，b、d 相对顺序不变，已认领的 c 原地不动
	want := []string{"job-b", "job-c", "job-d", "job-a"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("期望顺序 %v，实际: %v", want, got)
		}
	}
}

func TestQueueStore_DragOver_ClampsOutOfRange(t *testing.T) {
	q := NewQueueStore(nil, leadGate(), "cnc", zap.NewNop())
	seedQueue(q, sampleLane())

	if err := q.BeginDrag("job-a"); err != nil {
		t.Fatalf("BeginDrag 失败: %v", err)
	}
	// 越界下标收敛到区间边界，不报错
	if err := q.DragOver(99); err != nil {
		t.Fatalf("越界 DragOver 期望收敛，实际报错: %v", err)
	}
	got := queueIDs(q.Jobs())
	if got[0] != "job-b" || got[1] != "job-a" {
		t.Errorf("期望 job-a 收敛到未认领区末位，实际: %v", got)
	}
}

func TestQueueStore_BeginDrag_StudentDeniedNoNetwork(t *testing.T) {
	srv, hits := countingServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write(listEnvelope([]dto.JobResponse{}))
	})
	api := NewAPI(srv.URL, "token", zap.NewNop())
	q := NewQueueStore(api, studentGate("stu-001"), "cnc", zap.NewNop())
	seedQueue(q, sampleLane())

	if err := q.BeginDrag("job-a"); !errors.Is(err, ErrDenied) {
		t.Errorf("期望 ErrDenied，实际: %v", err)
	}
	if hits.Load() != 0 {
		t.Errorf("预判拒绝不应发出网络请求，实际命中 %d 次", hits.Load())
	}
}

func TestQueueStore_BeginDrag_ClaimedJobDenied(t *testing.T) {
	q := NewQueueStore(nil, leadGate(), "cnc", zap.NewNop())
	seedQueue(q, sampleLane())

	if err := q.BeginDrag("job-c"); !errors.Is(err, ErrDenied) {
		t.Errorf("已认领工件不参与排序，期望 ErrDenied，实际: %v", err)
	}
}

func TestQueueStore_CancelDrag_RestoresSnapshot(t *testing.T) {
	q := NewQueueStore(nil, leadGate(), "cnc", zap.NewNop())
	seedQueue(q, sampleLane())

	q.BeginDrag("job-a")
	q.DragOver(1)
	q.CancelDrag()

	got := queueIDs(q.Jobs())
	if got[0] != "job-a" || got[1] != "job-b" {
		t.Errorf("取消拖拽应恢复原顺序，实际: %v", got)
	}
}

func TestQueueStore_Commit_SendsUnclaimedIDsOnly(t *testing.T) {
	var received dto.JobReorderRequest
	srv, _ := countingServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPut {
			json.NewDecoder(r.Body).Decode(&received)
		}
		w.Write(listEnvelope([]dto.JobResponse{
			{ID: "job-b", QueuePosition: 0},
			{ID: "job-a", QueuePosition: 1},
			{ID: "job-c", ClaimedByID: strPtr("stu-002")},
		}))
	})
	api := NewAPI(srv.URL, "token", zap.NewNop())
	q := NewQueueStore(api, leadGate(), "cnc", zap.NewNop())
	seedQueue(q, sampleLane())

	q.BeginDrag("job-a")
	q.DragOver(1)
	if err := q.Commit(context.Background()); err != nil {
		t.Fatalf("Commit 失败: %v", err)
	}

	if len(received.OrderedIDs) != 2 {
		t.Fatalf("期望只提交 2 个未认领 ID，实际: %v", received.OrderedIDs)
	}
	if received.OrderedIDs[0] != "job-b" || received.OrderedIDs[1] != "job-a" {
		t.Errorf("期望提交顺序 [job-b job-a]，实际: %v", received.OrderedIDs)
	}
	// 提交成功后采纳服务端权威顺序
	got := queueIDs(q.Jobs())
	if got[0] != "job-b" || got[1] != "job-a" {
		t.Errorf("期望采纳服务端顺序，实际: %v", got)
	}
}

func TestQueueStore_Commit_ConflictRollsBackAndRefetches(t *testing.T) {
	srv, _ := countingServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPut {
			w.WriteHeader(http.StatusConflict)
			w.Write(errorEnvelope(12006, "队列视图已过期"))
			return
		}
		// 冲突后重新拉取，返回服务端权威顺序
		w.Write(listEnvelope([]dto.JobResponse{
			{ID: "job-b", QueuePosition: 0},
			{ID: "job-a", QueuePosition: 1},
		}))
	})
	api := NewAPI(srv.URL, "token", zap.NewNop())
	q := NewQueueStore(api, leadGate(), "cnc", zap.NewNop())
	seedQueue(q, sampleLane())

	q.BeginDrag("job-a")
	q.DragOver(1)
	err := q.Commit(context.Background())
	if !IsConflict(err) {
		t.Fatalf("期望冲突错误，实际: %v", err)
	}

	// 冲突后本地视图被权威状态替换
	got := queueIDs(q.Jobs())
	if len(got) != 2 || got[0] != "job-b" || got[1] != "job-a" {
		t.Errorf("冲突后期望采纳服务端权威顺序，实际: %v", got)
	}
}

// ── 认领 / 释放 ──

func TestQueueStore_Claim_DeniedNoNetwork(t *testing.T) {
	srv, hits := countingServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write(listEnvelope([]dto.JobResponse{}))
	})
	api := NewAPI(srv.URL, "token", zap.NewNop())
	q := NewQueueStore(api, studentGate("stu-001"), "cnc", zap.NewNop())
	seedQueue(q, sampleLane())

	// job-c 已被他人认领，预判直接拒绝
	if err := q.Claim(context.Background(), "job-c"); !errors.Is(err, ErrDenied) {
		t.Errorf("期望 ErrDenied，实际: %v", err)
	}
	if hits.Load() != 0 {
		t.Errorf("预判拒绝不应发出网络请求，实际命中 %d 次", hits.Load())
	}
}

func TestQueueStore_Claim_ConflictTriggersRefresh(t *testing.T) {
	var listHits atomic.Int64
	srv, _ := countingServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			w.WriteHeader(http.StatusConflict)
			w.Write(errorEnvelope(12004, "工件已被认领"))
			return
		}
		listHits.Add(1)
		w.Write(listEnvelope([]dto.JobResponse{
			{ID: "job-a", ClaimedByID: strPtr("stu-002"), ClaimedByName: "李四"},
		}))
	})
	api := NewAPI(srv.URL, "token", zap.NewNop())
	q := NewQueueStore(api, studentGate("stu-001"), "cnc", zap.NewNop())
	seedQueue(q, []dto.JobResponse{{ID: "job-a", QueuePosition: 0}})

	err := q.Claim(context.Background(), "job-a")
	if !IsConflict(err) {
		t.Fatalf("期望冲突错误，实际: %v", err)
	}
	if listHits.Load() != 1 {
		t.Errorf("认领冲突后应刷新一次，实际 %d 次", listHits.Load())
	}
	jobs := q.Jobs()
	if len(jobs) != 1 || jobs[0].ClaimedByID == nil {
		t.Errorf("冲突后应采纳他人认领的权威状态，实际: %+v", jobs)
	}
}

func TestQueueStore_Unclaim_OtherStudentDenied(t *testing.T) {
	q := NewQueueStore(nil, studentGate("stu-001"), "cnc", zap.NewNop())
	seedQueue(q, sampleLane())

	if err := q.Unclaim(context.Background(), "job-c"); !errors.Is(err, ErrDenied) {
		t.Errorf("非认领者释放期望 ErrDenied，实际: %v", err)
	}
}

// ── 令牌对账 ──

func TestQueueStore_StaleAdoptDropped(t *testing.T) {
	q := NewQueueStore(nil, leadGate(), "cnc", zap.NewNop())
	seedQueue(q, sampleLane())

	stale := q.tokens.Issue(q.shop)
	fresh := q.tokens.Issue(q.shop)

	// 过期响应到达：丢弃，不覆盖本地状态
	q.adopt(stale, []dto.JobResponse{{ID: "job-x"}})
	if got := q.Jobs(); len(got) != 3 || got[0].ID != "job-a" {
		t.Fatalf("过期响应不应覆盖本地状态，实际: %v", queueIDs(got))
	}

	// 最新响应正常采纳
	q.adopt(fresh, []dto.JobResponse{{ID: "job-x"}})
	if got := q.Jobs(); len(got) != 1 || got[0].ID != "job-x" {
		t.Errorf("最新响应应被采纳，实际: %v", queueIDs(got))
	}
}
