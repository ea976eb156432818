package client

import (
	"testing"
	"time"

	"shopfloor/backend/internal/dto"
)

func TestETAStale(t *testing.T) {
	now := time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)

	fresh := now.Add(-2 * time.Hour)
	old := now.Add(-25 * time.Hour)

	if ETAStale(&dto.PartResponse{ETAUpdatedAt: &fresh}, now) {
		t.Error("2 小时前更新的 ETA 不应视为陈旧")
	}
	if !ETAStale(&dto.PartResponse{ETAUpdatedAt: &old}, now) {
		t.Error("超过 24 小时未更新的 ETA 应视为陈旧")
	}
	if ETAStale(&dto.PartResponse{}, now) {
		t.Error("没有 ETA 的零件不应视为陈旧")
	}
}

func TestETAOverdue(t *testing.T) {
	now := time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)

	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)
	done := now.Add(-30 * time.Minute)

	if !ETAOverdue(&dto.PartResponse{ETATarget: &past}, now) {
		t.Error("目标时间已过且未完成应视为超期")
	}
	if ETAOverdue(&dto.PartResponse{ETATarget: &future}, now) {
		t.Error("目标时间未到不应视为超期")
	}
	if ETAOverdue(&dto.PartResponse{ETATarget: &past, ActualComplete: &done}, now) {
		t.Error("已完成的零件不应视为超期")
	}
}
