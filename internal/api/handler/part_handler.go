package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"shopfloor/backend/internal/dto"
	"shopfloor/backend/internal/service"
	"shopfloor/backend/pkg/response"
)

// PartHandler 制造看板模块 HTTP 处理器
type PartHandler struct {
	partSvc service.PartService
}

// NewPartHandler 创建 PartHandler
func NewPartHandler(partSvc service.PartService) *PartHandler {
	return &PartHandler{partSvc: partSvc}
}

// List 获取看板零件列表（服务端已按阶段、优先级、列位排序）
// GET /api/v1/parts
func (h *PartHandler) List(c *gin.Context) {
	caller, ok := MustGetActor(c)
	if !ok {
		return
	}

	var req dto.PartListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 13001, "参数校验失败")
		return
	}

	parts, err := h.partSvc.List(c.Request.Context(), &req, caller)
	if err != nil {
		h.handlePartError(c, err)
		return
	}
	response.OK(c, gin.H{"list": parts})
}

// Create 创建零件
// POST /api/v1/parts
func (h *PartHandler) Create(c *gin.Context) {
	caller, ok := MustGetActor(c)
	if !ok {
		return
	}

	var req dto.PartCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 13001, "参数校验失败")
		return
	}

	part, err := h.partSvc.Create(c.Request.Context(), &req, caller)
	if err != nil {
		h.handlePartError(c, err)
		return
	}
	response.Created(c, part)
}

// Update 更新零件字段
// PATCH /api/v1/parts/:id
func (h *PartHandler) Update(c *gin.Context) {
	caller, ok := MustGetActor(c)
	if !ok {
		return
	}

	var req dto.PartUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 13001, "参数校验失败")
		return
	}

	part, err := h.partSvc.Update(c.Request.Context(), c.Param("id"), &req, caller)
	if err != nil {
		h.handlePartError(c, err)
		return
	}
	response.OK(c, part)
}

// ChangeStatus 阶段变更（看板换列）
// PATCH /api/v1/parts/:id/status
func (h *PartHandler) ChangeStatus(c *gin.Context) {
	caller, ok := MustGetActor(c)
	if !ok {
		return
	}

	var req dto.PartStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 13001, "参数校验失败")
		return
	}

	part, err := h.partSvc.ChangeStatus(c.Request.Context(), c.Param("id"), &req, caller)
	if err != nil {
		h.handlePartError(c, err)
		return
	}
	response.OK(c, part)
}

// Claim 认领零件（必须携带 eta_target 交付承诺）
// POST /api/v1/parts/:id/claim
func (h *PartHandler) Claim(c *gin.Context) {
	caller, ok := MustGetActor(c)
	if !ok {
		return
	}

	var req dto.PartClaimRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 13001, "认领必须提供 eta_target")
		return
	}

	part, err := h.partSvc.Claim(c.Request.Context(), c.Param("id"), &req, caller)
	if err != nil {
		h.handlePartError(c, err)
		return
	}
	response.OK(c, part)
}

// Unclaim 释放零件
// POST /api/v1/parts/:id/unclaim
func (h *PartHandler) Unclaim(c *gin.Context) {
	caller, ok := MustGetActor(c)
	if !ok {
		return
	}

	part, err := h.partSvc.Unclaim(c.Request.Context(), c.Param("id"), caller)
	if err != nil {
		h.handlePartError(c, err)
		return
	}
	response.OK(c, part)
}

// UpdateETA 更新交付承诺
// PATCH /api/v1/parts/:id/eta
func (h *PartHandler) UpdateETA(c *gin.Context) {
	caller, ok := MustGetActor(c)
	if !ok {
		return
	}

	var req dto.PartETARequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 13001, "参数校验失败")
		return
	}

	part, err := h.partSvc.UpdateETA(c.Request.Context(), c.Param("id"), &req, caller)
	if err != nil {
		h.handlePartError(c, err)
		return
	}
	response.OK(c, part)
}

// UploadFiles 上传 CAD / CAM 附件（multipart，字段名 cad_file / cam_file）
// POST /api/v1/parts/:id/files
func (h *PartHandler) UploadFiles(c *gin.Context) {
	caller, ok := MustGetActor(c)
	if !ok {
		return
	}

	var cad, cam *service.PartFileUpload
	if fh, err := c.FormFile("cad_file"); err == nil {
		f, err := fh.Open()
		if err != nil {
			response.InternalError(c)
			return
		}
		defer f.Close()
		cad = &service.PartFileUpload{Name: fh.Filename, Content: f}
	}
	if fh, err := c.FormFile("cam_file"); err == nil {
		f, err := fh.Open()
		if err != nil {
			response.InternalError(c)
			return
		}
		defer f.Close()
		cam = &service.PartFileUpload{Name: fh.Filename, Content: f}
	}

	part, err := h.partSvc.UploadFiles(c.Request.Context(), c.Param("id"), cad, cam, caller)
	if err != nil {
		h.handlePartError(c, err)
		return
	}
	response.OK(c, part)
}

// Delete 删除零件（创建者或负责人，客户端需二次确认）
// DELETE /api/v1/parts/:id
func (h *PartHandler) Delete(c *gin.Context) {
	caller, ok := MustGetActor(c)
	if !ok {
		return
	}

	if err := h.partSvc.Delete(c.Request.Context(), c.Param("id"), caller); err != nil {
		h.handlePartError(c, err)
		return
	}
	response.NoContent(c)
}

// Summary 看板汇总统计
// GET /api/v1/parts/summary
func (h *PartHandler) Summary(c *gin.Context) {
	summary, err := h.partSvc.Summary(c.Request.Context())
	if err != nil {
		h.handlePartError(c, err)
		return
	}
	response.OK(c, summary)
}

// handlePartError 将业务错误映射为 HTTP 响应
func (h *PartHandler) handlePartError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrPartNotFound):
		response.NotFound(c, 13002, err.Error())
	case errors.Is(err, service.ErrPartForbidden),
		errors.Is(err, service.ErrLeadOnlyField),
		errors.Is(err, service.ErrETAForbidden):
		response.Forbidden(c, 13003, err.Error())
	case errors.Is(err, service.ErrPartLocked):
		response.Conflict(c, 13004, err.Error())
	case errors.Is(err, service.ErrAdjacentOnly):
		response.Forbidden(c, 13005, err.Error())
	case errors.Is(err, service.ErrInvalidStatus),
		errors.Is(err, service.ErrInvalidType),
		errors.Is(err, service.ErrInvalidPriority),
		errors.Is(err, service.ErrMissingFields),
		errors.Is(err, service.ErrETAPast),
		errors.Is(err, service.ErrETAEmpty),
		errors.Is(err, service.ErrUploadEmpty):
		response.BadRequest(c, 13001, err.Error())
	case errors.Is(err, service.ErrAssigneeNotFound),
		errors.Is(err, service.ErrAssigneeWrongRole):
		response.BadRequest(c, 13006, err.Error())
	default:
		response.InternalError(c)
	}
}
