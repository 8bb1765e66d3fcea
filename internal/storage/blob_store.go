package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// BlobStore 原始文件存储抽象，按文档 ID 读写字节流
type BlobStore interface {
	Save(id string, r io.Reader) (string, error)
	Open(id string) (io.ReadCloser, error)
	Delete(id string) error
}

// FileBlobStore 基于本地文件系统的实现，每个文档一个文件
type FileBlobStore struct {
	baseDir string
}

// NewFileBlobStore 创建文件存储，目录不存在时自动建立
func NewFileBlobStore(baseDir string) (*FileBlobStore, error) {
	if baseDir == "" {
		baseDir = "data/blobs"
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("创建存储目录失败: %w", err)
	}
	return &FileBlobStore{baseDir: baseDir}, nil
}

func (s *FileBlobStore) path(id string) string {
	return filepath.Join(s.baseDir, filepath.Base(id))
}

// Save 写入文件并返回存储路径，同 ID 覆盖写
func (s *FileBlobStore) Save(id string, r io.Reader) (string, error) {
	dst := s.path(id)
	f, err := os.Create(dst)
	if err != nil {
		return "", fmt.Errorf("创建文件失败: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, r); err != nil {
		os.Remove(dst)
		return "", fmt.Errorf("写入文件失败: %w", err)
	}
	return dst, nil
}

// Open 打开指定文档的原始文件
func (s *FileBlobStore) Open(id string) (io.ReadCloser, error) {
	f, err := os.Open(s.path(id))
	if err != nil {
		return nil, fmt.Errorf("打开文件失败: %w", err)
	}
	return f, nil
}

// Delete 删除原始文件，文件不存在视为成功
func (s *FileBlobStore) Delete(id string) error {
	err := os.Remove(s.path(id))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("删除文件失败: %w", err)
	}
	return nil
}
