package fileops

import (
	"context"
	"os"

	"github.com/ZanzyTHEbar/frame-sieve/sieve/filesystem/common"
)

// Lister enumerates dataset files
type Lister interface {
	ListFiles(dir, pattern string) ([]string, error)
	Exists(path string) bool
}

// Mover relocates single files between directories
type Mover interface {
	MoveToDir(ctx context.Context, srcPath, destDir string) (string, error)
	CreateDirectory(ctx context.Context, path string, perms os.FileMode) error
}

// BackupStore makes the safety copy of a dataset before it is mutated
type BackupStore interface {
	CopyDirectory(ctx context.Context, srcPath, dstPath string) error
	BackupPath(dir, suffix string) string
}

// Metered reports the work a file system has done
type Metered interface {
	Stats() common.OperationStats
}

// FileSystem combines all file operation interfaces
type FileSystem interface {
	Lister
	Mover
	BackupStore
	Metered
}
