package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"shopfloor/backend/internal/dto"
	"shopfloor/backend/internal/service"
	pkgerrors "shopfloor/backend/pkg/errors"
	"shopfloor/backend/pkg/response"
)

// JobHandler 车间队列模块 HTTP 处理器
type JobHandler struct {
	jobSvc service.JobService
}

// NewJobHandler 创建 JobHandler
func NewJobHandler(jobSvc service.JobService) *JobHandler {
	return &JobHandler{jobSvc: jobSvc}
}

// Submit 提交工件（multipart 表单，附带加工文件）
// POST /api/v1/jobs
func (h *JobHandler) Submit(c *gin.Context) {
	caller, ok := MustGetActor(c)
	if !ok {
		return
	}

	shop := c.PostForm("shop")
	partName := c.PostForm("part_name")
	ownerName := c.PostForm("owner_name")
	if shop == "" || partName == "" || ownerName == "" {
		response.BadRequest(c, 12001, "shop、part_name、owner_name 不能为空")
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		response.BadRequest(c, 12001, "缺少加工文件")
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		response.InternalError(c)
		return
	}
	defer file.Close()

	input := &service.SubmitJobInput{
		Shop:      shop,
		PartName:  partName,
		OwnerName: ownerName,
		Notes:     c.PostForm("notes"),
		FileName:  fileHeader.Filename,
		File:      file,
	}

	job, err := h.jobSvc.Submit(c.Request.Context(), input, caller)
	if err != nil {
		h.handleJobError(c, err)
		return
	}
	response.Created(c, job)
}

// List 获取车道队列（按 queue_position 升序的权威列表）
// GET /api/v1/jobs?shop=cnc
func (h *JobHandler) List(c *gin.Context) {
	shop := c.Query("shop")
	if shop == "" {
		response.BadRequest(c, 12001, "shop 不能为空")
		return
	}

	jobs, err := h.jobSvc.List(c.Request.Context(), shop)
	if err != nil {
		h.handleJobError(c, err)
		return
	}
	response.OK(c, gin.H{"list": jobs})
}

// Reorder 重排未认领队列
// PUT /api/v1/jobs/reorder
func (h *JobHandler) Reorder(c *gin.Context) {
	caller, ok := MustGetActor(c)
	if !ok {
		return
	}

	var req dto.JobReorderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 12001, "参数校验失败")
		return
	}

	jobs, err := h.jobSvc.Reorder(c.Request.Context(), &req, caller)
	if err != nil {
		h.handleJobError(c, err)
		return
	}
	response.OK(c, gin.H{"list": jobs})
}

// Claim 认领工件
// POST /api/v1/jobs/:id/claim
func (h *JobHandler) Claim(c *gin.Context) {
	caller, ok := MustGetActor(c)
	if !ok {
		return
	}

	jobs, err := h.jobSvc.Claim(c.Request.Context(), c.Param("id"), caller)
	if err != nil {
		h.handleJobError(c, err)
		return
	}
	response.OK(c, gin.H{"list": jobs})
}

// Unclaim 取消认领，工件回到队列尾部
// POST /api/v1/jobs/:id/unclaim
func (h *JobHandler) Unclaim(c *gin.Context) {
	caller, ok := MustGetActor(c)
	if !ok {
		return
	}

	jobs, err := h.jobSvc.Unclaim(c.Request.Context(), c.Param("id"), caller)
	if err != nil {
		h.handleJobError(c, err)
		return
	}
	response.OK(c, gin.H{"list": jobs})
}

// UpdateStatus 更新工单进度标签（仅负责人）
// PATCH /api/v1/jobs/:id/status
func (h *JobHandler) UpdateStatus(c *gin.Context) {
	caller, ok := MustGetActor(c)
	if !ok {
		return
	}

	var req dto.JobStatusUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 12001, "参数校验失败")
		return
	}

	job, err := h.jobSvc.UpdateStatus(c.Request.Context(), c.Param("id"), &req, caller)
	if err != nil {
		h.handleJobError(c, err)
		return
	}
	response.OK(c, job)
}

// Delete 删除工件
// DELETE /api/v1/jobs/:id
func (h *JobHandler) Delete(c *gin.Context) {
	caller, ok := MustGetActor(c)
	if !ok {
		return
	}

	jobs, err := h.jobSvc.Delete(c.Request.Context(), c.Param("id"), caller)
	if err != nil {
		h.handleJobError(c, err)
		return
	}
	response.OK(c, gin.H{"list": jobs})
}

// handleJobError 将业务错误映射为 HTTP 响应
func (h *JobHandler) handleJobError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrJobNotFound):
		response.NotFound(c, 12002, err.Error())
	case errors.Is(err, service.ErrInvalidShop),
		errors.Is(err, service.ErrInvalidJobStatus):
		response.BadRequest(c, 12001, err.Error())
	case errors.Is(err, service.ErrJobForbidden):
		response.Forbidden(c, 12003, err.Error())
	case errors.Is(err, service.ErrJobAlreadyClaimed):
		response.Conflict(c, 12004, err.Error())
	case errors.Is(err, service.ErrJobNotClaimed),
		errors.Is(err, service.ErrReorderClaimed),
		errors.Is(err, service.ErrReorderWrongShop):
		response.BadRequest(c, 12005, err.Error())
	case errors.Is(err, pkgerrors.ErrOptimisticLock):
		response.Conflict(c, 12006, err.Error())
	default:
		response.InternalError(c)
	}
}
