package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"

	"go.uber.org/zap"

	"shopfloor/backend/internal/dto"
)

func seedBoard(b *Board, parts []dto.PartResponse) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.parts = parts
}

// sampleParts 一个可动零件 + 一个已认领的锁定零件
func sampleParts() []dto.PartResponse {
	return []dto.PartResponse{
		{
			ID: "part-a", PartName: "主臂连接件", Status: "ready_for_manufacturing",
			CreatedBy: dto.Assignment{ID: "stu-001", Name: "张三", Role: "student"},
			CanEdit:   true, CanMove: true,
		},
		{
			ID: "part-b", PartName: "电机座", Status: "in_progress",
			StatusLocked: true, LockReason: "等待材料到货",
			CreatedBy: dto.Assignment{ID: "stu-002", Name: "李四", Role: "student"},
			AssignedStudents: []dto.Assignment{
				{ID: "stu-002", Name: "李四", Role: "student"},
			},
			CanEdit: true, CanMove: false,
		},
	}
}

// ── 阶段变更 ──

func TestBoard_BeginStageDrag_LockedDenied(t *testing.T) {
	b := NewBoard(nil, studentGate("stu-002"), zap.NewNop())
	seedBoard(b, sampleParts())

	if err := b.BeginStageDrag("part-b"); !errors.Is(err, ErrDenied) {
		t.Errorf("锁定零件期望连拖拽起手都拒绝，实际: %v", err)
	}
}

func TestBoard_DropOnLane_SameStatusNoop(t *testing.T) {
	srv, hits := countingServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write(envelopeJSON(dto.PartResponse{}))
	})
	api := NewAPI(srv.URL, "token", zap.NewNop())
	b := NewBoard(api, studentGate("stu-001"), zap.NewNop())
	seedBoard(b, sampleParts())

	if err := b.BeginStageDrag("part-a"); err != nil {
		t.Fatalf("BeginStageDrag 失败: %v", err)
	}
	// 放回原列：无操作，不发请求
	if err := b.DropOnLane(context.Background(), "ready_for_manufacturing"); err != nil {
		t.Fatalf("同列放下期望无操作，实际报错: %v", err)
	}
	if hits.Load() != 0 {
		t.Errorf("同列放下不应发出网络请求，实际命中 %d 次", hits.Load())
	}
}

func TestBoard_RequestStageChange_AppliesAuthoritative(t *testing.T) {
	srv, _ := countingServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write(envelopeJSON(dto.PartResponse{
			ID: "part-a", Status: "in_progress", CanEdit: true, CanMove: true,
		}))
	})
	api := NewAPI(srv.URL, "token", zap.NewNop())
	b := NewBoard(api, studentGate("stu-001"), zap.NewNop())
	seedBoard(b, sampleParts())

	if err := b.RequestStageChange(context.Background(), "part-a", "in_progress"); err != nil {
		t.Fatalf("RequestStageChange 失败: %v", err)
	}

	lanes := b.Lanes()
	if len(lanes["in_progress"]) != 2 {
		t.Errorf("期望 part-a 移入 in_progress 列，实际该列 %d 个", len(lanes["in_progress"]))
	}
	if len(lanes["ready_for_manufacturing"]) != 0 {
		t.Errorf("期望原列清空，实际剩余 %d 个", len(lanes["ready_for_manufacturing"]))
	}
}

func TestBoard_RequestStageChange_ServerRejectKeepsLocal(t *testing.T) {
	srv, _ := countingServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write(errorEnvelope(13005, "只能移动到相邻阶段"))
	})
	api := NewAPI(srv.URL, "token", zap.NewNop())
	b := NewBoard(api, studentGate("stu-001"), zap.NewNop())
	seedBoard(b, sampleParts())

	err := b.RequestStageChange(context.Background(), "part-a", "completed")
	if !IsForbidden(err) {
		t.Fatalf("期望权限拒绝错误，实际: %v", err)
	}
	// 服务端拒绝时本地状态不变
	if got := b.Parts()[0].Status; got != "ready_for_manufacturing" {
		t.Errorf("拒绝后零件不应移动，实际状态: %s", got)
	}
}

func TestBoard_RequestStageChange_DeniedNoNetwork(t *testing.T) {
	srv, hits := countingServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write(envelopeJSON(dto.PartResponse{}))
	})
	api := NewAPI(srv.URL, "token", zap.NewNop())
	b := NewBoard(api, studentGate("stu-003"), zap.NewNop())
	seedBoard(b, sampleParts())

	if err := b.RequestStageChange(context.Background(), "part-b", "quality_check"); !errors.Is(err, ErrDenied) {
		t.Errorf("期望 ErrDenied，实际: %v", err)
	}
	if hits.Load() != 0 {
		t.Errorf("预判拒绝不应发出网络请求，实际命中 %d 次", hits.Load())
	}
}

// 锁定零件对负责人同样拦截，即使服务端下发的 can_move 标记为真
func TestBoard_RequestStageChange_LockedDeniedForLead(t *testing.T) {
	srv, hits := countingServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write(envelopeJSON(dto.PartResponse{}))
	})
	api := NewAPI(srv.URL, "token", zap.NewNop())
	b := NewBoard(api, leadGate(), zap.NewNop())
	seedBoard(b, []dto.PartResponse{
		{
			ID: "part-x", PartName: "底盘横梁", Status: "in_progress",
			StatusLocked: true, LockReason: "质检争议",
			CreatedBy: dto.Assignment{ID: "stu-001", Name: "张三", Role: "student"},
			CanEdit:   true, CanMove: true, CanAssign: true,
		},
	})

	if err := b.RequestStageChange(context.Background(), "part-x", "quality_check"); !errors.Is(err, ErrDenied) {
		t.Errorf("负责人移动锁定零件期望 ErrDenied，实际: %v", err)
	}
	if err := b.BeginStageDrag("part-x"); !errors.Is(err, ErrDenied) {
		t.Errorf("负责人拖拽锁定零件期望 ErrDenied，实际: %v", err)
	}
	if hits.Load() != 0 {
		t.Errorf("锁定拦截不应发出网络请求，实际命中 %d 次", hits.Load())
	}
	if got := b.Parts()[0].Status; got != "in_progress" {
		t.Errorf("锁定拦截后零件不应移动，实际状态: %s", got)
	}
}

// ── 认领 ──

func TestBoard_Claim_RequiresETABeforeNetwork(t *testing.T) {
	srv, hits := countingServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write(envelopeJSON(dto.PartResponse{}))
	})
	api := NewAPI(srv.URL, "token", zap.NewNop())
	b := NewBoard(api, studentGate("stu-001"), zap.NewNop())
	seedBoard(b, sampleParts())

	err := b.Claim(context.Background(), "part-a", time.Time{}, "")
	if !errors.Is(err, ErrETARequired) {
		t.Errorf("期望 ErrETARequired，实际: %v", err)
	}
	if hits.Load() != 0 {
		t.Errorf("缺少 ETA 的认领不应发出网络请求，实际命中 %d 次", hits.Load())
	}
}

func TestBoard_Claim_AppliesServerPart(t *testing.T) {
	eta := time.Now().Add(3 * time.Hour).UTC()
	var sent dto.PartClaimRequest
	srv, _ := countingServer(t, func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&sent); err != nil {
			t.Errorf("解析认领请求体失败: %v", err)
		}
		w.Write(envelopeJSON(dto.PartResponse{
			ID: "part-a", Status: "ready_for_manufacturing", ETATarget: &eta,
			ETABy: &dto.Assignment{ID: "stu-001", Name: "张三", Role: "student"},
		}))
	})
	api := NewAPI(srv.URL, "token", zap.NewNop())
	b := NewBoard(api, studentGate("stu-001"), zap.NewNop())
	seedBoard(b, sampleParts())

	if err := b.Claim(context.Background(), "part-a", eta, "本周完成"); err != nil {
		t.Fatalf("Claim 失败: %v", err)
	}
	// 认领请求必须携带 ETA 承诺
	if sent.ETATarget.IsZero() || !sent.ETATarget.Equal(eta) {
		t.Errorf("期望请求体携带 eta_target=%v，实际: %v", eta, sent.ETATarget)
	}
	if sent.ETANote != "本周完成" {
		t.Errorf("期望请求体携带 eta_note，实际: %q", sent.ETANote)
	}
	part := b.Parts()[0]
	if part.ETATarget == nil || !part.ETATarget.Equal(eta) {
		t.Errorf("期望采纳服务端 ETA，实际: %+v", part.ETATarget)
	}
}

func TestBoard_Claim_AlreadyAssignedDeniedNoNetwork(t *testing.T) {
	srv, hits := countingServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write(envelopeJSON(dto.PartResponse{}))
	})
	api := NewAPI(srv.URL, "token", zap.NewNop())
	b := NewBoard(api, studentGate("stu-002"), zap.NewNop())
	seedBoard(b, sampleParts())

	// stu-002 已在 part-b 的指派名单中，重复认领本地拦截
	eta := time.Now().Add(2 * time.Hour)
	if err := b.Claim(context.Background(), "part-b", eta, ""); !errors.Is(err, ErrDenied) {
		t.Errorf("重复认领期望 ErrDenied，实际: %v", err)
	}
	if hits.Load() != 0 {
		t.Errorf("预判拒绝不应发出网络请求，实际命中 %d 次", hits.Load())
	}
}

func TestBoard_Release_StrangerDeniedNoNetwork(t *testing.T) {
	srv, hits := countingServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write(envelopeJSON(dto.PartResponse{}))
	})
	api := NewAPI(srv.URL, "token", zap.NewNop())
	b := NewBoard(api, studentGate("stu-999"), zap.NewNop())
	seedBoard(b, sampleParts())

	if err := b.Release(context.Background(), "part-b"); !errors.Is(err, ErrDenied) {
		t.Errorf("名单外学生释放期望 ErrDenied，实际: %v", err)
	}
	if hits.Load() != 0 {
		t.Errorf("预判拒绝不应发出网络请求，实际命中 %d 次", hits.Load())
	}
}

func TestBoard_Release_AssigneeApplied(t *testing.T) {
	srv, hits := countingServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write(envelopeJSON(dto.PartResponse{
			ID: "part-b", Status: "in_progress",
			StatusLocked: true, LockReason: "等待材料到货",
			CreatedBy: dto.Assignment{ID: "stu-002", Name: "李四", Role: "student"},
		}))
	})
	api := NewAPI(srv.URL, "token", zap.NewNop())
	b := NewBoard(api, studentGate("stu-002"), zap.NewNop())
	seedBoard(b, sampleParts())

	if err := b.Release(context.Background(), "part-b"); err != nil {
		t.Fatalf("名单成员本人释放应成功: %v", err)
	}
	if hits.Load() != 1 {
		t.Errorf("期望发出 1 次请求，实际 %d 次", hits.Load())
	}
	for _, p := range b.Parts() {
		if p.ID == "part-b" && len(p.AssignedStudents) != 0 {
			t.Errorf("期望采纳服务端释放结果，实际指派名单: %+v", p.AssignedStudents)
		}
	}
}

// ── 删除二步确认 ──

func TestBoard_ConfirmDelete_RequiresArm(t *testing.T) {
	srv, hits := countingServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	api := NewAPI(srv.URL, "token", zap.NewNop())
	b := NewBoard(api, leadGate(), zap.NewNop())
	seedBoard(b, sampleParts())

	if err := b.ConfirmDelete(context.Background(), "part-a"); !errors.Is(err, ErrNotArmed) {
		t.Errorf("未预确认的删除期望 ErrNotArmed，实际: %v", err)
	}
	if hits.Load() != 0 {
		t.Errorf("未预确认不应发出网络请求，实际命中 %d 次", hits.Load())
	}
}

func TestBoard_ConfirmDelete_MismatchedPartRejected(t *testing.T) {
	b := NewBoard(nil, leadGate(), zap.NewNop())
	seedBoard(b, sampleParts())

	if err := b.ArmDelete("part-a"); err != nil {
		t.Fatalf("ArmDelete 失败: %v", err)
	}
	// 预确认的是 part-a，确认的是 part-b：视为误触
	if err := b.ConfirmDelete(context.Background(), "part-b"); !errors.Is(err, ErrNotArmed) {
		t.Errorf("期望 ErrNotArmed，实际: %v", err)
	}
}

func TestBoard_ConfirmDelete_RemovesLocally(t *testing.T) {
	srv, _ := countingServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	api := NewAPI(srv.URL, "token", zap.NewNop())
	b := NewBoard(api, leadGate(), zap.NewNop())
	seedBoard(b, sampleParts())

	if err := b.ArmDelete("part-a"); err != nil {
		t.Fatalf("ArmDelete 失败: %v", err)
	}
	if err := b.ConfirmDelete(context.Background(), "part-a"); err != nil {
		t.Fatalf("ConfirmDelete 失败: %v", err)
	}
	parts := b.Parts()
	if len(parts) != 1 || parts[0].ID != "part-b" {
		t.Errorf("期望删除后只剩 part-b，实际: %+v", parts)
	}
}

func TestBoard_ArmDelete_StrangerDenied(t *testing.T) {
	b := NewBoard(nil, studentGate("stu-003"), zap.NewNop())
	seedBoard(b, sampleParts())

	if err := b.ArmDelete("part-a"); !errors.Is(err, ErrDenied) {
		t.Errorf("非创建者删除期望 ErrDenied，实际: %v", err)
	}
}

func TestBoard_DisarmDelete_ClearsArm(t *testing.T) {
	b := NewBoard(nil, leadGate(), zap.NewNop())
	seedBoard(b, sampleParts())

	b.ArmDelete("part-a")
	b.DisarmDelete()
	if err := b.ConfirmDelete(context.Background(), "part-a"); !errors.Is(err, ErrNotArmed) {
		t.Errorf("取消预确认后期望 ErrNotArmed，实际: %v", err)
	}
}

// ── 分桶 ──

func TestBoard_Lanes_AllStagesPresent(t *testing.T) {
	b := NewBoard(nil, leadGate(), zap.NewNop())
	seedBoard(b, sampleParts())

	lanes := b.Lanes()
	for _, status := range []string{
		"design_submitted", "ready_for_manufacturing", "in_progress",
		"quality_check", "completed",
	} {
		if _, ok := lanes[status]; !ok {
			t.Errorf("期望所有阶段列都存在，缺少 %s", status)
		}
	}
	if len(lanes["ready_for_manufacturing"]) != 1 || len(lanes["in_progress"]) != 1 {
		t.Errorf("分桶结果不符: %v", lanes)
	}
}
