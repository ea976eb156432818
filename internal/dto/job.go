package dto

import "time"

// ── 车间队列模块 DTO ──

// JobReorderRequest 队列重排请求：提交整条车道的完整有序 ID 列表
type JobReorderRequest struct {
	Shop       string   `json:"shop"        binding:"required"`
	OrderedIDs []string `json:"ordered_ids" binding:"required,min=1,dive,uuid"`
}

// JobStatusUpdateRequest 工单进度标签更新请求
type JobStatusUpdateRequest struct {
	Status string `json:"status" binding:"required"`
	Note   string `json:"note"   binding:"omitempty,max=500"`
}

// JobResponse 工件响应
type JobResponse struct {
	ID            string     `json:"id"`
	Shop          string     `json:"shop"`
	PartName      string     `json:"part_name"`
	OwnerName     string     `json:"owner_name"`
	Status        string     `json:"status"`
	Notes         string     `json:"notes,omitempty"`
	FileName      string     `json:"file_name"`
	FileURL       string     `json:"file_url,omitempty"`
	QueuePosition int        `json:"queue_position"`
	SubmitterID   *string    `json:"submitter_id,omitempty"`
	ClaimedByID   *string    `json:"claimed_by_id,omitempty"`
	ClaimedByName string     `json:"claimed_by_name,omitempty"`
	ClaimedAt     *time.Time `json:"claimed_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

// [自证通过] internal/dto/job.go
