package client

import (
	"time"

	"shopfloor/backend/internal/dto"
)

// etaStaleAfter ETA 更新超过该时长未动视为陈旧
// 陈旧只影响展示提示，不触发任何自动行为
const etaStaleAfter = 24 * time.Hour

// ETAStale 判断零件的交付承诺是否已陈旧
func ETAStale(part *dto.PartResponse, now time.Time) bool {
	if part.ETAUpdatedAt == nil {
		return false
	}
	return now.Sub(*part.ETAUpdatedAt) > etaStaleAfter
}

// ETAOverdue 判断交付承诺是否已过期（目标时间已过且未完成）
func ETAOverdue(part *dto.PartResponse, now time.Time) bool {
	if part.ETATarget == nil || part.ActualComplete != nil {
		return false
	}
	return now.After(*part.ETATarget)
}
