package rag

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/BaSui01/agentcore/types"
)

// FileType 知识文件类型
type FileType string

const (
	FileTypeText     FileType = "txt"
	FileTypeMarkdown FileType = "md"
	FileTypePDF      FileType = "pdf"
	FileTypeHTML     FileType = "html"
)

// Valid 是否为支持的类型
func (t FileType) Valid() bool {
	switch t {
	case FileTypeText, FileTypeMarkdown, FileTypePDF, FileTypeHTML:
		return true
	}
	return false
}

// File 待入库的知识文件。Path 为相对知识根目录的路径，PDF 的 Content 需为已提取的文本。
type File struct {
	Path     string
	Content  string
	Type     FileType
	IsShared bool
}

// FileTypeFromPath 按扩展名推断文件类型。PDF 需要外部提取文本，不能直接从磁盘读取。
func FileTypeFromPath(path string) (FileType, bool) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".txt", ".text":
		return FileTypeText, true
	case ".md", ".markdown":
		return FileTypeMarkdown, true
	case ".html", ".htm":
		return FileTypeHTML, true
	}
	return "", false
}

// ReadFile 从知识根目录读取文件
func ReadFile(root, rel string, shared bool) (File, error) {
	typ, ok := FileTypeFromPath(rel)
	if !ok {
		return File{}, types.Errorf(types.ErrInvalidInput, "unsupported knowledge file %q", rel)
	}
	data, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(rel)))
	if err != nil {
		return File{}, err
	}
	return File{
		Path:     filepath.ToSlash(rel),
		Content:  string(data),
		Type:     typ,
		IsShared: shared,
	}, nil
}

// WalkDirectory 递归遍历 root 下的 dir，对每个支持的文件调用 fn。
// 传给 fn 的 File.Path 相对于 root。
func WalkDirectory(ctx context.Context, root, dir string, shared bool, fn func(File) error) error {
	base := filepath.Join(root, filepath.FromSlash(dir))
	return filepath.WalkDir(base, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if d.IsDir() {
			return nil
		}
		if _, ok := FileTypeFromPath(path); !ok {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		file, err := ReadFile(root, rel, shared)
		if err != nil {
			return err
		}
		return fn(file)
	})
}
