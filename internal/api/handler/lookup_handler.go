package handler

import (
	"github.com/gin-gonic/gin"

	"shopfloor/backend/internal/service"
	"shopfloor/backend/pkg/response"
)

// LookupHandler 人员目录处理器（路由层限制仅 lead/admin）
type LookupHandler struct {
	lookupSvc service.LookupService
}

func NewLookupHandler(lookupSvc service.LookupService) *LookupHandler {
	return &LookupHandler{lookupSvc: lookupSvc}
}

// Users 获取可指派人员目录
// GET /api/v1/lookups/users
func (h *LookupHandler) Users(c *gin.Context) {
	result, err := h.lookupSvc.Users(c.Request.Context())
	if err != nil {
		response.InternalError(c)
		return
	}
	response.OK(c, result)
}
