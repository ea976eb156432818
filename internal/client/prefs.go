package client

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
)

// Preferences 本地界面偏好，保存在用户配置目录下的 JSON 文件中
type Preferences struct {
	// DefaultShop 队列视图默认打开的车道
	DefaultShop string `json:"default_shop,omitempty"`
	// CollapsedLanes 看板中折叠起来的列
	CollapsedLanes []string `json:"collapsed_lanes,omitempty"`
	// ShowCompleted 看板是否显示已完成列
	ShowCompleted *bool `json:"show_completed,omitempty"`
}

// DefaultPrefsPath 返回偏好文件的默认位置
func DefaultPrefsPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "shopfloor", "prefs.json"), nil
}

// LoadPreferences 读取偏好文件。文件不存在返回零值偏好，不报错。
func LoadPreferences(path string) (*Preferences, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return &Preferences{}, nil
		}
		return nil, err
	}
	var prefs Preferences
	if err := json.Unmarshal(raw, &prefs); err != nil {
		// 损坏的偏好文件按空偏好处理，不阻塞启动
		return &Preferences{}, nil
	}
	return &prefs, nil
}

// SavePreferences 合并写回：只覆盖本次设置的字段，
// 文件中已有但本次未携带的字段保持原值。
func SavePreferences(path string, update *Preferences) error {
	existing, err := LoadPreferences(path)
	if err != nil {
		return err
	}

	if update.DefaultShop != "" {
		existing.DefaultShop = update.DefaultShop
	}
	if update.CollapsedLanes != nil {
		existing.CollapsedLanes = update.CollapsedLanes
	}
	if update.ShowCompleted != nil {
		existing.ShowCompleted = update.ShowCompleted
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	raw, err := json.MarshalIndent(existing, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, raw, 0o644)
}
