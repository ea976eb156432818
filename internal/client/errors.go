package client

import (
	"errors"
	"fmt"
	"net/http"
)

// APIError 服务端返回的业务错误
type APIError struct {
	HTTPStatus int
	Code       int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("服务端错误 (HTTP %d, code %d): %s", e.HTTPStatus, e.Code, e.Message)
}

// IsConflict 判断错误是否为资源状态冲突（如工件已被他人认领）
// 冲突后的标准恢复动作是用服务端返回的权威状态替换本地视图
func IsConflict(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.HTTPStatus == http.StatusConflict
}

// IsForbidden 判断错误是否为权限拒绝
func IsForbidden(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.HTTPStatus == http.StatusForbidden
}

// ErrDenied 本地权限预判拒绝：操作未发起任何网络请求
var ErrDenied = errors.New("当前身份不允许该操作")

// ErrNoDrag 没有进行中的拖拽会话
var ErrNoDrag = errors.New("没有进行中的拖拽会话")

// ErrETARequired 认领必须先提供交付承诺
var ErrETARequired = errors.New("认领前必须设置 ETA 目标时间")

// ErrNotArmed 删除未经过预确认
var ErrNotArmed = errors.New("删除操作需要先预确认")
