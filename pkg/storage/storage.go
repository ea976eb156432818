package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// FileStore 文件附件存储接口
// 上传存储对核心流程是不透明协作方：只关心成功/失败与落盘后的元数据
type FileStore interface {
	// Save 将 r 的内容保存到 subdir 下，返回落盘绝对路径
	Save(subdir, filename string, r io.Reader) (string, error)
	// Remove 删除 subdir 下的全部文件
	Remove(subdir string) error
	// URL 将落盘路径转换为对外可访问的 /uploads/ 相对 URL，失败返回空串
	URL(path string) string
}

// LocalStore 本地磁盘存储实现
type LocalStore struct {
	root string
}

// NewLocalStore 创建本地存储，root 不存在时自动创建
func NewLocalStore(root string) (*LocalStore, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("解析上传根目录失败: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("创建上传根目录失败: %w", err)
	}
	return &LocalStore{root: abs}, nil
}

func (s *LocalStore) Save(subdir, filename string, r io.Reader) (string, error) {
	// 文件名消毒，防止路径穿越
	clean := filepath.Base(strings.ReplaceAll(filename, " ", "_"))
	dir := filepath.Join(s.root, filepath.Clean("/"+subdir))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("创建上传目录失败: %w", err)
	}

	dest := filepath.Join(dir, clean)
	f, err := os.Create(dest)
	if err != nil {
		return "", fmt.Errorf("创建文件失败: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, r); err != nil {
		os.Remove(dest)
		return "", fmt.Errorf("写入文件失败: %w", err)
	}
	return dest, nil
}

func (s *LocalStore) Remove(subdir string) error {
	dir := filepath.Join(s.root, filepath.Clean("/"+subdir))
	return os.RemoveAll(dir)
}

func (s *LocalStore) URL(path string) string {
	if path == "" {
		return ""
	}
	rel, err := filepath.Rel(s.root, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return ""
	}
	return "/uploads/" + filepath.ToSlash(rel)
}
