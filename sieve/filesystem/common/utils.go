package common

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const maxPathLen = 4096

// ValidatePath rejects paths the OS would refuse or misread
func ValidatePath(path string) error {
	switch {
	case path == "":
		return ErrPathEmpty
	case strings.ContainsRune(path, 0):
		return ErrPathInvalid
	case len(path) > maxPathLen:
		return ErrPathTooLong
	}
	return nil
}

// IsHidden reports whether a base name is a dotfile
func IsHidden(name string) bool {
	return strings.HasPrefix(name, ".")
}

func absClean(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return filepath.Clean(path)
}

// CheckDistinct fails when dst is src itself or lies inside it. A backup
// nested in its own dataset would copy itself forever.
func CheckDistinct(src, dst string) error {
	src, dst = absClean(src), absClean(dst)
	if src == dst {
		return fmt.Errorf("%w: source and destination are the same", ErrOperationUnsafe)
	}
	if rel, err := filepath.Rel(src, dst); err == nil && !strings.HasPrefix(rel, "..") {
		return fmt.Errorf("%w: %s is inside %s", ErrOperationUnsafe, dst, src)
	}
	return nil
}

// CheckMove validates both paths, that src exists and that dst's parent is a
// directory.
func CheckMove(src, dst string) error {
	if err := ValidatePath(src); err != nil {
		return fmt.Errorf("invalid source path: %w", err)
	}
	if err := ValidatePath(dst); err != nil {
		return fmt.Errorf("invalid destination path: %w", err)
	}
	if err := CheckDistinct(src, dst); err != nil {
		return err
	}
	if _, err := os.Stat(src); err != nil {
		return ClassifyOSError(err)
	}

	parent := filepath.Dir(dst)
	info, err := os.Stat(parent)
	switch {
	case os.IsNotExist(err):
		return fmt.Errorf("%w: %s", ErrDestNotExist, parent)
	case err != nil:
		return fmt.Errorf("failed to access destination directory: %w", err)
	case !info.IsDir():
		return fmt.Errorf("%w: %s", ErrNotDirectory, parent)
	}
	return nil
}

// CopyAttributes carries mode and modification time from src over to dst
func CopyAttributes(src, dst string, perms, times bool) error {
	info, err := os.Stat(src)
	if err != nil {
		return fmt.Errorf("failed to stat source %s: %w", src, err)
	}
	if perms {
		if err := os.Chmod(dst, info.Mode()); err != nil {
			return fmt.Errorf("failed to set permissions on %s: %w", dst, err)
		}
	}
	if times {
		if err := os.Chtimes(dst, time.Now(), info.ModTime()); err != nil {
			return fmt.Errorf("failed to set times on %s: %w", dst, err)
		}
	}
	return nil
}
