package client

import (
	"shopfloor/backend/internal/dto"
	"shopfloor/backend/internal/model"
)

// Gate 权限预判：纯谓词，不触发任何网络请求。
// 预判只用于在本地提前拦截注定失败的操作；服务端仍然是权威裁决，
// 预判放行但服务端拒绝时按普通 API 错误处理。
type Gate struct {
	ActorID string
	Role    string
}

// IsLead 请求者是否具有负责人权限
func (g Gate) IsLead() bool {
	return model.IsLead(g.Role)
}

// ── 车间队列 ──

// CanReorderLane 是否允许重排队列（仅负责人）
func (g Gate) CanReorderLane() bool {
	return g.IsLead()
}

// CanClaimJob 是否允许认领工件（未认领即可，先到先得）
func (g Gate) CanClaimJob(job *dto.JobResponse) bool {
	return job.ClaimedByID == nil
}

// CanReleaseJob 是否允许取消认领（认领人本人或负责人）
func (g Gate) CanReleaseJob(job *dto.JobResponse) bool {
	if job.ClaimedByID == nil {
		return false
	}
	return *job.ClaimedByID == g.ActorID || g.IsLead()
}

// CanDeleteJob 是否允许删除工件（提交者本人或负责人）
func (g Gate) CanDeleteJob(job *dto.JobResponse) bool {
	if g.IsLead() {
		return true
	}
	return job.SubmitterID != nil && *job.SubmitterID == g.ActorID
}

// ── 制造看板 ──
// 零件的能力标记由服务端按请求者计算并随资源下发，
// 本地谓词直接信任标记，不重复推导权限规则。

// CanEditPart 是否允许编辑零件字段
func (g Gate) CanEditPart(part *dto.PartResponse) bool {
	return part.CanEdit
}

// CanMovePart 是否允许发起阶段变更
// 锁定的零件无论角色一律拦截（即使 can_move 标记为真），
// 负责人也必须先通过编辑接口解除锁定再移动
func (g Gate) CanMovePart(part *dto.PartResponse) bool {
	if part.StatusLocked {
		return false
	}
	return part.CanMove
}

// CanClaimPart 是否允许认领零件（尚未在指派名单中即可）
func (g Gate) CanClaimPart(part *dto.PartResponse) bool {
	return !partAssignedTo(part, g.ActorID)
}

// CanReleasePart 是否允许释放零件（指派名单成员本人或负责人）
func (g Gate) CanReleasePart(part *dto.PartResponse) bool {
	return g.IsLead() || partAssignedTo(part, g.ActorID)
}

// CanAssignPart 是否允许指派他人
func (g Gate) CanAssignPart(part *dto.PartResponse) bool {
	return part.CanAssign
}

// CanDeletePart 是否允许删除零件（创建者本人或负责人）
func (g Gate) CanDeletePart(part *dto.PartResponse) bool {
	return g.IsLead() || part.CreatedBy.ID == g.ActorID
}

// partAssignedTo 判断用户是否出现在零件的任一指派名单中
func partAssignedTo(part *dto.PartResponse, userID string) bool {
	for _, a := range part.AssignedStudents {
		if a.ID == userID {
			return true
		}
	}
	for _, a := range part.AssignedLeads {
		if a.ID == userID {
			return true
		}
	}
	return false
}
