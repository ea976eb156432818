package client

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadPreferences_MissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prefs.json")
	prefs, err := LoadPreferences(path)
	if err != nil {
		t.Fatalf("文件不存在应返回零值偏好，实际报错: %v", err)
	}
	if prefs.DefaultShop != "" || prefs.ShowCompleted != nil {
		t.Errorf("期望零值偏好，实际: %+v", prefs)
	}
}

func TestLoadPreferences_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prefs.json")
	os.WriteFile(path, []byte("{broken"), 0o644)

	prefs, err := LoadPreferences(path)
	if err != nil {
		t.Fatalf("损坏文件不应阻塞启动，实际报错: %v", err)
	}
	if prefs.DefaultShop != "" {
		t.Errorf("期望零值偏好，实际: %+v", prefs)
	}
}

func TestSavePreferences_MergedWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prefs.json")

	show := true
	if err := SavePreferences(path, &Preferences{DefaultShop: "cnc", ShowCompleted: &show}); err != nil {
		t.Fatalf("首次保存失败: %v", err)
	}
	// 只更新折叠列，其余字段保持原值
	if err := SavePreferences(path, &Preferences{CollapsedLanes: []string{"completed"}}); err != nil {
		t.Fatalf("二次保存失败: %v", err)
	}

	prefs, err := LoadPreferences(path)
	if err != nil {
		t.Fatalf("读取失败: %v", err)
	}
	if prefs.DefaultShop != "cnc" {
		t.Errorf("未携带字段应保持原值，期望 cnc，实际: %s", prefs.DefaultShop)
	}
	if prefs.ShowCompleted == nil || !*prefs.ShowCompleted {
		t.Errorf("期望 ShowCompleted 保持 true，实际: %v", prefs.ShowCompleted)
	}
	if len(prefs.CollapsedLanes) != 1 || prefs.CollapsedLanes[0] != "completed" {
		t.Errorf("期望折叠列 [completed]，实际: %v", prefs.CollapsedLanes)
	}
}
