package main

import (
	"errors"
	"fmt"
	"os"

	jwtv5 "github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"shopfloor/backend/internal/client"
	"shopfloor/backend/pkg/jwt"
)

// commandContext 保存所有子命令共享的客户端状态
type commandContext struct {
	apiFlag   *string
	tokenFlag *string

	logger *zap.Logger
	api    *client.API
	gate   client.Gate

	stores map[string]*client.QueueStore
	board  *client.Board
}

func newCommandContext(apiFlag, tokenFlag *string) *commandContext {
	return &commandContext{
		apiFlag:   apiFlag,
		tokenFlag: tokenFlag,
		stores:    make(map[string]*client.QueueStore),
	}
}

// init 解析 Token、构建 API 客户端与权限预判器
// Token 合法性由服务端裁决，这里只解码身份字段用于本地预判
func (c *commandContext) init() error {
	apiURL := *c.apiFlag
	if apiURL == "" {
		apiURL = os.Getenv("SHOP_API")
	}
	if apiURL == "" {
		apiURL = "http://localhost:8080"
	}

	token := *c.tokenFlag
	if token == "" {
		token = os.Getenv("SHOP_TOKEN")
	}
	if token == "" {
		return errors.New("缺少访问令牌：请设置 SHOP_TOKEN 环境变量或 --token 参数")
	}

	var claims jwt.Claims
	if _, _, err := jwtv5.NewParser().ParseUnverified(token, &claims); err != nil {
		return fmt.Errorf("解析访问令牌失败: %w", err)
	}

	logger, err := zap.NewDevelopment()
	if err != nil {
		return err
	}
	logger = logger.WithOptions(zap.IncreaseLevel(zap.WarnLevel))

	c.logger = logger
	c.api = client.NewAPI(apiURL, token, logger)
	c.gate = client.Gate{ActorID: claims.UserID, Role: claims.Role}
	return nil
}

// queueStore 返回指定车道的队列容器（按车道缓存复用）
func (c *commandContext) queueStore(shop string) *client.QueueStore {
	if store, ok := c.stores[shop]; ok {
		return store
	}
	store := client.NewQueueStore(c.api, c.gate, shop, c.logger)
	c.stores[shop] = store
	return store
}

// kanbanBoard 返回看板容器
func (c *commandContext) kanbanBoard() *client.Board {
	if c.board == nil {
		c.board = client.NewBoard(c.api, c.gate, c.logger)
	}
	return c.board
}
