// Package client 实现车间门户的本地协调引擎：
// 队列视图、看板视图的本地状态管理、权限预判、拖拽重排、
// 与服务端权威状态的对账替换，以及后台轮询刷新。
//
// 约定：服务端是唯一事实来源。本地所有乐观变更都以服务端
// 返回的完整资源/车道列表为准进行替换，本地不做增量合并。
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"shopfloor/backend/internal/dto"
)

// envelope 服务端统一响应结构
type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
	Details string          `json:"details,omitempty"`
}

// listPayload 列表响应包装
type listPayload struct {
	List json.RawMessage `json:"list"`
}

// API 车间门户服务端的 HTTP 客户端
type API struct {
	baseURL string
	token   string
	http    *http.Client
	logger  *zap.Logger
}

// NewAPI 创建 API 客户端
// token 为外部身份服务签发的 Bearer Token
func NewAPI(baseURL, token string, logger *zap.Logger) *API {
	return &API{
		baseURL: baseURL,
		token:   token,
		http:    &http.Client{Timeout: 30 * time.Second},
		logger:  logger,
	}
}

// do 执行请求并解析统一响应包；业务失败返回 *APIError
func (a *API) do(ctx context.Context, method, path string, body interface{}, out interface{}) error {
	var reqBody *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("编码请求体失败: %w", err)
		}
		reqBody = bytes.NewReader(raw)
	} else {
		reqBody = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, a.baseURL+path, reqBody)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+a.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := a.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNoContent {
		return nil
	}

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("解析响应失败 (HTTP %d): %w", resp.StatusCode, err)
	}
	if resp.StatusCode >= 400 || env.Code != 0 {
		return &APIError{
			HTTPStatus: resp.StatusCode,
			Code:       env.Code,
			Message:    env.Message,
		}
	}
	if out != nil && env.Data != nil {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("解析响应数据失败: %w", err)
		}
	}
	return nil
}

// doList 解析 data.list 形式的列表响应
func (a *API) doList(ctx context.Context, method, path string, body, out interface{}) error {
	var payload listPayload
	if err := a.do(ctx, method, path, body, &payload); err != nil {
		return err
	}
	if payload.List == nil {
		return nil
	}
	return json.Unmarshal(payload.List, out)
}

// ── 车间队列 ──

// ListJobs 获取车道完整队列（权威顺序）
func (a *API) ListJobs(ctx context.Context, shop string) ([]dto.JobResponse, error) {
	var jobs []dto.JobResponse
	err := a.doList(ctx, http.MethodGet, "/api/v1/jobs?shop="+shop, nil, &jobs)
	return jobs, err
}

// ReorderJobs 提交车道完整有序 ID 列表，返回权威队列
func (a *API) ReorderJobs(ctx context.Context, shop string, orderedIDs []string) ([]dto.JobResponse, error) {
	var jobs []dto.JobResponse
	req := dto.JobReorderRequest{Shop: shop, OrderedIDs: orderedIDs}
	err := a.doList(ctx, http.MethodPut, "/api/v1/jobs/reorder", req, &jobs)
	return jobs, err
}

// ClaimJob 认领工件，返回变更后的权威车道
func (a *API) ClaimJob(ctx context.Context, jobID string) ([]dto.JobResponse, error) {
	var jobs []dto.JobResponse
	err := a.doList(ctx, http.MethodPost, "/api/v1/jobs/"+jobID+"/claim", nil, &jobs)
	return jobs, err
}

// UnclaimJob 取消认领，工件回到队列尾部
func (a *API) UnclaimJob(ctx context.Context, jobID string) ([]dto.JobResponse, error) {
	var jobs []dto.JobResponse
	err := a.doList(ctx, http.MethodPost, "/api/v1/jobs/"+jobID+"/unclaim", nil, &jobs)
	return jobs, err
}

// DeleteJob 删除工件，返回变更后的权威车道
func (a *API) DeleteJob(ctx context.Context, jobID string) ([]dto.JobResponse, error) {
	var jobs []dto.JobResponse
	err := a.doList(ctx, http.MethodDelete, "/api/v1/jobs/"+jobID, nil, &jobs)
	return jobs, err
}

// ── 制造看板 ──

// ListParts 获取看板零件列表（服务端已排序并计算能力标记）
func (a *API) ListParts(ctx context.Context) ([]dto.PartResponse, error) {
	var parts []dto.PartResponse
	err := a.doList(ctx, http.MethodGet, "/api/v1/parts", nil, &parts)
	return parts, err
}

// ChangePartStatus 请求阶段变更，返回权威零件
func (a *API) ChangePartStatus(ctx context.Context, partID, status string) (*dto.PartResponse, error) {
	var part dto.PartResponse
	req := dto.PartStatusRequest{Status: status}
	if err := a.do(ctx, http.MethodPatch, "/api/v1/parts/"+partID+"/status", req, &part); err != nil {
		return nil, err
	}
	return &part, nil
}

// ClaimPart 认领零件，eta_target 为必填的交付承诺
func (a *API) ClaimPart(ctx context.Context, partID string, etaTarget time.Time, etaNote string) (*dto.PartResponse, error) {
	var part dto.PartResponse
	req := dto.PartClaimRequest{ETATarget: etaTarget, ETANote: etaNote}
	if err := a.do(ctx, http.MethodPost, "/api/v1/parts/"+partID+"/claim", req, &part); err != nil {
		return nil, err
	}
	return &part, nil
}

// UnclaimPart 释放零件
func (a *API) UnclaimPart(ctx context.Context, partID string) (*dto.PartResponse, error) {
	var part dto.PartResponse
	if err := a.do(ctx, http.MethodPost, "/api/v1/parts/"+partID+"/unclaim", nil, &part); err != nil {
		return nil, err
	}
	return &part, nil
}

// UpdatePartETA 更新交付承诺
func (a *API) UpdatePartETA(ctx context.Context, partID string, req *dto.PartETARequest) (*dto.PartResponse, error) {
	var part dto.PartResponse
	if err := a.do(ctx, http.MethodPatch, "/api/v1/parts/"+partID+"/eta", req, &part); err != nil {
		return nil, err
	}
	return &part, nil
}

// DeletePart 删除零件（调用方需已通过二次确认）
func (a *API) DeletePart(ctx context.Context, partID string) error {
	return a.do(ctx, http.MethodDelete, "/api/v1/parts/"+partID, nil, nil)
}

// PartSummary 获取看板汇总
func (a *API) PartSummary(ctx context.Context) (*dto.PartSummaryResponse, error) {
	var summary dto.PartSummaryResponse
	if err := a.do(ctx, http.MethodGet, "/api/v1/parts/summary", nil, &summary); err != nil {
		return nil, err
	}
	return &summary, nil
}

// LookupUsers 获取可指派人员目录（仅负责人可用）
func (a *API) LookupUsers(ctx context.Context) (*dto.LookupResponse, error) {
	var resp dto.LookupResponse
	if err := a.do(ctx, http.MethodGet, "/api/v1/lookups/users", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
