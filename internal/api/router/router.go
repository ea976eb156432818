package router

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"shopfloor/backend/config"
	"shopfloor/backend/internal/api/handler"
	"shopfloor/backend/internal/api/middleware"
	"shopfloor/backend/internal/model"
	"shopfloor/backend/pkg/jwt"
	"shopfloor/backend/pkg/redis"
)

// Setup 初始化并返回 Gin 路由引擎
func Setup(cfg *config.Config, h *handler.Handler, jwtMgr *jwt.Manager, rdb *redis.Client, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	// ── 全局中间件 ──
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS(cfg.Server.CORS.AllowOrigins))
	r.Use(middleware.BodyLimit(cfg.Upload.MaxBodyBytes))

	// ── 健康检查 ──
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// ── 上传文件静态服务 ──
	r.Static("/uploads", cfg.Upload.Root)

	// ── API v1（全部路由需要认证，Token 由外部身份服务签发）──
	v1 := r.Group("/api/v1")
	v1.Use(middleware.JWTAuth(jwtMgr))
	{
		// 车间队列模块
		jobs := v1.Group("/jobs")
		{
			jobs.GET("", h.Job.List)
			jobs.POST("", middleware.RateLimit(rdb, 30, time.Minute), h.Job.Submit)
			jobs.PUT("/reorder", middleware.RoleAuth(model.RoleLead, model.RoleAdmin), h.Job.Reorder)
			jobs.POST("/:id/claim", h.Job.Claim)
			jobs.POST("/:id/unclaim", h.Job.Unclaim)
			jobs.PATCH("/:id/status", middleware.RoleAuth(model.RoleLead, model.RoleAdmin), h.Job.UpdateStatus)
			jobs.DELETE("/:id", h.Job.Delete) // 提交者或负责人（Service 层鉴权）
		}

		// 制造看板模块
		parts := v1.Group("/parts")
		{
			parts.GET("", h.Part.List)
			parts.GET("/summary", h.Part.Summary)
			parts.POST("", middleware.RateLimit(rdb, 30, time.Minute), h.Part.Create)
			parts.PATCH("/:id", h.Part.Update)
			parts.PATCH("/:id/status", h.Part.ChangeStatus)
			parts.POST("/:id/claim", h.Part.Claim)
			parts.POST("/:id/unclaim", h.Part.Unclaim)
			parts.PATCH("/:id/eta", h.Part.UpdateETA)
			parts.POST("/:id/files", h.Part.UploadFiles)
			parts.DELETE("/:id", h.Part.Delete) // 创建者或负责人（Service 层鉴权）
		}

		// 人员目录（指派用，仅负责人可见）
		lookups := v1.Group("/lookups")
		lookups.Use(middleware.RoleAuth(model.RoleLead, model.RoleAdmin))
		{
			lookups.GET("/users", h.Lookup.Users)
		}
	}

	return r
}
