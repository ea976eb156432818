package service

import (
	"context"

	"go.uber.org/zap"

	"shopfloor/backend/config"
	"shopfloor/backend/internal/dto"
	"shopfloor/backend/internal/repository"
	"shopfloor/backend/pkg/redis"
)

// LookupService 指派用人员目录
// 路由层限制仅 lead/admin 可访问，目录内容经 Redis 缓存
type LookupService interface {
	Users(ctx context.Context) (*dto.LookupResponse, error)
}

type lookupService struct {
	cfg    *config.Config
	repo   *repository.Repository
	rdb    *redis.Client
	logger *zap.Logger
}

func NewLookupService(cfg *config.Config, repo *repository.Repository, rdb *redis.Client, logger *zap.Logger) LookupService {
	return &lookupService{cfg: cfg, repo: repo, rdb: rdb, logger: logger}
}

func (s *lookupService) Users(ctx context.Context) (*dto.LookupResponse, error) {
	if s.rdb != nil {
		var cached dto.LookupResponse
		hit, err := s.rdb.GetLookupCache(ctx, &cached)
		if err != nil {
			// 缓存故障降级为直查数据库
			s.logger.Warn("读取人员目录缓存失败", zap.Error(err))
		} else if hit {
			return &cached, nil
		}
	}

	users, err := s.repo.User.ListActive(ctx)
	if err != nil {
		s.logger.Error("查询人员目录失败", zap.Error(err))
		return nil, err
	}

	resp := &dto.LookupResponse{Users: make([]dto.LookupUser, 0, len(users))}
	for i := range users {
		resp.Users = append(resp.Users, dto.LookupUser{
			ID:   users[i].UserID,
			Name: users[i].Name,
			Role: users[i].Role,
		})
	}

	if s.rdb != nil {
		if err := s.rdb.SetLookupCache(ctx, resp, s.cfg.Poll.LookupCacheTTL); err != nil {
			s.logger.Warn("写入人员目录缓存失败", zap.Error(err))
		}
	}
	return resp, nil
}
