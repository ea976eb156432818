package model

import "time"

// ── 制造类型 / 优先级 / 阶段常量 ──

const (
	TypeCNC      = "cnc"
	TypePrinting = "printing"
	TypeManual   = "manual"
)

// ValidManufacturingType 判断制造类型是否合法
func ValidManufacturingType(t string) bool {
	return t == TypeCNC || t == TypePrinting || t == TypeManual
}

const (
	PriorityLow    = "low"
	PriorityNormal = "normal"
	PriorityUrgent = "urgent"
)

// ValidPriority 判断优先级是否合法
func ValidPriority(p string) bool {
	return p == PriorityLow || p == PriorityNormal || p == PriorityUrgent
}

// 看板五阶段（线性流水线）
const (
	StatusDesignSubmitted       = "design_submitted"
	StatusReadyForManufacturing = "ready_for_manufacturing"
	StatusInProgress            = "in_progress"
	StatusQualityCheck          = "quality_check"
	StatusCompleted             = "completed"
)

// StageOrder 阶段在流水线中的序号，用于看板排序与相邻阶段判断
var StageOrder = map[string]int{
	StatusDesignSubmitted:       0,
	StatusReadyForManufacturing: 1,
	StatusInProgress:            2,
	StatusQualityCheck:          3,
	StatusCompleted:             4,
}

// StageLabels 阶段展示名
var StageLabels = map[string]string{
	StatusDesignSubmitted:       "Design Submitted",
	StatusReadyForManufacturing: "Ready for Manufacturing",
	StatusInProgress:            "In Progress",
	StatusQualityCheck:          "Quality Check",
	StatusCompleted:             "Completed",
}

// ValidStatus 判断阶段标识是否合法
func ValidStatus(s string) bool {
	_, ok := StageOrder[s]
	return ok
}

// PriorityWeight 优先级权重（越小越靠前）
var PriorityWeight = map[string]int{
	PriorityUrgent: 0,
	PriorityNormal: 1,
	PriorityLow:    2,
}

// TypeRequiredFields 各制造类型的必填明细字段
var TypeRequiredFields = map[string][]string{
	TypeCNC:      {"cam_link", "cam_student", "cnc_operator", "material_stock"},
	TypePrinting: {"printer_assignment", "slicer_profile", "filament_type"},
	TypeManual:   {"tool_type", "dimensions", "responsible_student"},
}

// ManufacturingPart 制造零件表 — 对应 manufacturing_parts
type ManufacturingPart struct {
	PartID            string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	PartName          string `gorm:"type:varchar(120);not null;index"               json:"part_name"`
	Subsystem         string `gorm:"type:varchar(80);not null;index"                json:"subsystem"`
	Material          string `gorm:"type:varchar(80);not null"                      json:"material"`
	Quantity          int    `gorm:"not null;default:1"                             json:"quantity"`
	ManufacturingType string `gorm:"type:varchar(20);not null;index"                json:"manufacturing_type"`
	CADLink           string `gorm:"column:cad_link;type:text;not null"             json:"cad_link"`

	// 类型专属明细字段（按 TypeRequiredFields 校验必填）
	CAMLink            string `gorm:"column:cam_link;type:text"        json:"cam_link,omitempty"`
	CAMStudent         string `gorm:"column:cam_student"               json:"cam_student,omitempty"`
	CNCOperator        string `gorm:"column:cnc_operator"              json:"cnc_operator,omitempty"`
	MaterialStock      string `json:"material_stock,omitempty"`
	PrinterAssignment  string `json:"printer_assignment,omitempty"`
	SlicerProfile      string `json:"slicer_profile,omitempty"`
	FilamentType       string `json:"filament_type,omitempty"`
	ToolType           string `json:"tool_type,omitempty"`
	Dimensions         string `json:"dimensions,omitempty"`
	ResponsibleStudent string `json:"responsible_student,omitempty"`

	Notes        string `gorm:"type:text"                                      json:"notes,omitempty"`
	Priority     string `gorm:"type:varchar(20);not null;default:'normal'"     json:"priority"`
	Status       string `gorm:"type:varchar(40);not null;default:'design_submitted';index" json:"status"`
	StatusLocked bool   `gorm:"not null;default:false;index"                   json:"status_locked"`
	LockReason   string `gorm:"type:text"                                      json:"lock_reason,omitempty"`
	LanePosition int    `gorm:"not null;default:0;index"                       json:"lane_position"`

	CreatedByID   string     `gorm:"type:uuid;not null"          json:"created_by_id"`
	CreatedByName string     `gorm:"type:varchar(100);not null"  json:"created_by_name"`
	ApprovedByID  *string    `gorm:"type:uuid"                   json:"approved_by_id,omitempty"`
	ApprovedAt    *time.Time `json:"approved_at,omitempty"`

	AssignedStudentIDs StringArray `gorm:"type:uuid[];not null;default:'{}'" json:"assigned_student_ids"`
	AssignedLeadIDs    StringArray `gorm:"type:uuid[];not null;default:'{}'" json:"assigned_lead_ids"`

	// ETA 子记录：认领时必须一并提交交付承诺
	ETAMinutes   *int       `gorm:"column:eta_minutes"    json:"eta_minutes,omitempty"`
	ETANote      string     `gorm:"column:eta_note"       json:"eta_note,omitempty"`
	ETATarget    *time.Time `gorm:"column:eta_target"     json:"eta_target,omitempty"`
	ETAUpdatedAt *time.Time `gorm:"column:eta_updated_at" json:"eta_updated_at,omitempty"`
	ETAByID      *string    `gorm:"column:eta_by_id;type:uuid" json:"eta_by_id,omitempty"`

	ActualStart    *time.Time `json:"actual_start,omitempty"`
	ActualComplete *time.Time `json:"actual_complete,omitempty"`

	CADFileName string `gorm:"column:cad_file_name" json:"cad_file_name,omitempty"`
	CADFilePath string `gorm:"column:cad_file_path" json:"-"`
	CAMFileName string `gorm:"column:cam_file_name" json:"cam_file_name,omitempty"`
	CAMFilePath string `gorm:"column:cam_file_path" json:"-"`

	LastStatusChange time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"last_status_change"`
	BaseModel
}

// TableName 指定表名
func (ManufacturingPart) TableName() string { return "manufacturing_parts" }

// DetailField 按字段名读取类型专属明细字段的值
func (p *ManufacturingPart) DetailField(name string) string {
	switch name {
	case "cam_link":
		return p.CAMLink
	case "cam_student":
		return p.CAMStudent
	case "cnc_operator":
		return p.CNCOperator
	case "material_stock":
		return p.MaterialStock
	case "printer_assignment":
		return p.PrinterAssignment
	case "slicer_profile":
		return p.SlicerProfile
	case "filament_type":
		return p.FilamentType
	case "tool_type":
		return p.ToolType
	case "dimensions":
		return p.Dimensions
	case "responsible_student":
		return p.ResponsibleStudent
	}
	return ""
}

// AssociatedWith 判断用户是否与零件相关（创建者或任一指派名单成员）
func (p *ManufacturingPart) AssociatedWith(userID string) bool {
	return p.CreatedByID == userID ||
		p.AssignedStudentIDs.Contains(userID) ||
		p.AssignedLeadIDs.Contains(userID)
}

// [自证通过] internal/model/part.go
