package client

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"shopfloor/backend/internal/dto"
	"shopfloor/backend/internal/model"
)

// boardKey 看板整体刷新的令牌键
const boardKey = "board"

// dragSession 看板拖拽会话：同一时刻最多一个
type dragSession struct {
	partID     string
	fromStatus string
}

// Board 制造看板的本地状态容器。
//
// 列即状态：零件出现在哪一列完全由其 status 决定，换列就是请求
// 阶段变更。变更成功后服务端返回权威零件，本地以其为准整体替换
// 该零件，列归属随之自动更新。
type Board struct {
	mu sync.Mutex

	api    *API
	gate   Gate
	tokens *tokenCounter
	logger *zap.Logger

	parts []dto.PartResponse

	drag *dragSession

	// 删除二步确认：armed 记录已预确认的零件 ID
	armed string
}

// NewBoard 创建看板容器
func NewBoard(api *API, gate Gate, logger *zap.Logger) *Board {
	return &Board{
		api:    api,
		gate:   gate,
		tokens: newTokenCounter(),
		logger: logger,
	}
}

// Parts 返回当前本地零件列表的副本
func (b *Board) Parts() []dto.PartResponse {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]dto.PartResponse, len(b.parts))
	copy(out, b.parts)
	return out
}

// Lanes 按阶段分桶。服务端已按阶段、优先级、列位排序，
// 分桶保持下发顺序，本地不再二次排序。
func (b *Board) Lanes() map[string][]dto.PartResponse {
	b.mu.Lock()
	defer b.mu.Unlock()
	lanes := make(map[string][]dto.PartResponse, len(model.StageOrder))
	for status := range model.StageOrder {
		lanes[status] = []dto.PartResponse{}
	}
	for i := range b.parts {
		lanes[b.parts[i].Status] = append(lanes[b.parts[i].Status], b.parts[i])
	}
	return lanes
}

// Refresh 拉取权威零件列表并替换本地状态
func (b *Board) Refresh(ctx context.Context) error {
	token := b.tokens.Issue(boardKey)
	parts, err := b.api.ListParts(ctx)
	if err != nil {
		return err
	}
	if !b.tokens.ShouldApply(boardKey, token) {
		return nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.drag = nil
	b.parts = parts
	return nil
}

// ── 阶段变更（拖拽换列）──

// BeginStageDrag 开始换列拖拽。权限预判拒绝时不建立会话。
// 锁定零件无论角色直接拦截，连拖拽起手都不允许。
func (b *Board) BeginStageDrag(partID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	part := b.findLocked(partID)
	if part == nil || !b.gate.CanMovePart(part) {
		return ErrDenied
	}
	b.drag = &dragSession{partID: partID, fromStatus: part.Status}
	return nil
}

// CancelStageDrag 放弃换列拖拽
func (b *Board) CancelStageDrag() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.drag = nil
}

// DropOnLane 将拖拽中的零件放到目标列：结束会话并请求阶段变更
func (b *Board) DropOnLane(ctx context.Context, targetStatus string) error {
	b.mu.Lock()
	if b.drag == nil {
		b.mu.Unlock()
		return ErrNoDrag
	}
	partID := b.drag.partID
	fromStatus := b.drag.fromStatus
	b.drag = nil
	b.mu.Unlock()

	if targetStatus == fromStatus {
		return nil
	}
	return b.RequestStageChange(ctx, partID, targetStatus)
}

// RequestStageChange 请求阶段变更。
// 预判拒绝不发请求；服务端拒绝（锁定、相邻规则）时本地状态不变。
func (b *Board) RequestStageChange(ctx context.Context, partID, targetStatus string) error {
	part := b.find(partID)
	if part == nil || !b.gate.CanMovePart(part) {
		return ErrDenied
	}

	token := b.tokens.Issue(partID)
	updated, err := b.api.ChangePartStatus(ctx, partID, targetStatus)
	if err != nil {
		b.logger.Warn("阶段变更被拒绝",
			zap.String("part_id", partID),
			zap.String("target", targetStatus),
			zap.Error(err))
		return err
	}
	b.applyPart(token, updated)
	return nil
}

// ── 认领 / 释放 / ETA ──

// Claim 认领零件。没有 ETA 目标时间的认领在本地直接拦截，
// 已在指派名单中的用户重复认领同样不发请求。
func (b *Board) Claim(ctx context.Context, partID string, etaTarget time.Time, etaNote string) error {
	if etaTarget.IsZero() {
		return ErrETARequired
	}
	part := b.find(partID)
	if part == nil || !b.gate.CanClaimPart(part) {
		return ErrDenied
	}

	token := b.tokens.Issue(partID)
	updated, err := b.api.ClaimPart(ctx, partID, etaTarget, etaNote)
	if err != nil {
		return err
	}
	b.applyPart(token, updated)
	return nil
}

// Release 释放零件。只有指派名单成员本人或负责人允许发起。
func (b *Board) Release(ctx context.Context, partID string) error {
	part := b.find(partID)
	if part == nil || !b.gate.CanReleasePart(part) {
		return ErrDenied
	}
	token := b.tokens.Issue(partID)
	updated, err := b.api.UnclaimPart(ctx, partID)
	if err != nil {
		return err
	}
	b.applyPart(token, updated)
	return nil
}

// UpdateETA 更新交付承诺
func (b *Board) UpdateETA(ctx context.Context, partID string, req *dto.PartETARequest) error {
	if b.find(partID) == nil {
		return ErrDenied
	}
	token := b.tokens.Issue(partID)
	updated, err := b.api.UpdatePartETA(ctx, partID, req)
	if err != nil {
		return err
	}
	b.applyPart(token, updated)
	return nil
}

// ── 删除二步确认 ──

// ArmDelete 预确认删除。权限预判拒绝时不进入预确认态。
func (b *Board) ArmDelete(partID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	part := b.findLocked(partID)
	if part == nil || !b.gate.CanDeletePart(part) {
		return ErrDenied
	}
	b.armed = partID
	return nil
}

// DisarmDelete 取消预确认
func (b *Board) DisarmDelete() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.armed = ""
}

// ConfirmDelete 执行删除。必须与最近一次 ArmDelete 的零件一致，
// 否则视为误触拒绝执行。
func (b *Board) ConfirmDelete(ctx context.Context, partID string) error {
	b.mu.Lock()
	if b.armed != partID {
		b.mu.Unlock()
		return ErrNotArmed
	}
	b.armed = ""
	b.mu.Unlock()

	if err := b.api.DeletePart(ctx, partID); err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	kept := b.parts[:0]
	for i := range b.parts {
		if b.parts[i].ID != partID {
			kept = append(kept, b.parts[i])
		}
	}
	b.parts = kept
	return nil
}

// ── 内部方法 ──

// applyPart 令牌仍为最新时用权威零件替换本地副本
func (b *Board) applyPart(token uint64, part *dto.PartResponse) {
	if !b.tokens.ShouldApply(part.ID, token) {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := range b.parts {
		if b.parts[i].ID == part.ID {
			b.parts[i] = *part
			return
		}
	}
	b.parts = append(b.parts, *part)
}

func (b *Board) find(partID string) *dto.PartResponse {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.findLocked(partID)
}

// findLocked 调用方必须持有 b.mu
func (b *Board) findLocked(partID string) *dto.PartResponse {
	for i := range b.parts {
		if b.parts[i].ID == partID {
			part := b.parts[i]
			return &part
		}
	}
	return nil
}
