package fileops

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ZanzyTHEbar/frame-sieve/sieve/filesystem/common"
	"github.com/ZanzyTHEbar/frame-sieve/sieve/filesystem/options"

	"github.com/rs/zerolog"
	ignore "github.com/sabhiram/go-gitignore"
)

// FileOps provides the file system primitives a classification run needs
type FileOps struct {
	opts       options.FileOpsOptions
	logger     zerolog.Logger
	metrics    *common.FileOperationMetrics
	errorUtils *common.ErrorUtils
}

var _ FileSystem = (*FileOps)(nil)

// NewFileOps creates a new file operations instance
func NewFileOps(logger zerolog.Logger, opts options.FileOpsOptions) *FileOps {
	return &FileOps{
		opts:       opts,
		logger:     logger,
		metrics:    &common.FileOperationMetrics{},
		errorUtils: common.NewErrorUtils(),
	}
}

// Exists reports whether path currently resolves to a file
func (fo *FileOps) Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// ListFiles returns the regular files directly under dir whose base name
// matches pattern, in lexicographic order. Dotfiles and paths matched by the
// configured ignore file are left out. An empty pattern falls back to the configured one.
func (fo *FileOps) ListFiles(dir, pattern string) ([]string, error) {
	if err := common.ValidatePath(dir); err != nil {
		return nil, fmt.Errorf("invalid directory: %w", err)
	}
	if pattern == "" {
		pattern = fo.opts.List.Pattern
	}
	if _, err := filepath.Match(pattern, ""); err != nil {
		return nil, fmt.Errorf("invalid pattern %q: %w", pattern, err)
	}

	matcher, err := fo.loadIgnore(dir)
	if err != nil {
		return nil, err
	}

	// os.ReadDir sorts by file name
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory %s: %w", dir, common.ClassifyOSError(err))
	}

	files := make([]string, 0, len(entries))
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		name := entry.Name()
		if common.IsHidden(name) {
			continue
		}
		if ok, _ := filepath.Match(pattern, name); !ok {
			continue
		}
		if matcher != nil && matcher.MatchesPath(name) {
			fo.logger.Debug().Str("file", name).Msg("ignored by ignore file")
			continue
		}
		files = append(files, filepath.Join(dir, name))
	}

	return files, nil
}

func (fo *FileOps) loadIgnore(dir string) (*ignore.GitIgnore, error) {
	if fo.opts.List.IgnoreFile == "" {
		return nil, nil
	}

	ignorePath := filepath.Join(dir, fo.opts.List.IgnoreFile)
	if _, err := os.Stat(ignorePath); err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("error checking for %s: %w", ignorePath, err)
	}

	matcher, err := ignore.CompileIgnoreFile(ignorePath)
	if err != nil {
		return nil, fmt.Errorf("error reading %s: %w", ignorePath, err)
	}
	return matcher, nil
}

// CreateDirectory creates a directory with the specified permissions.
// Existing directories are left alone.
func (fo *FileOps) CreateDirectory(ctx context.Context, path string, perms os.FileMode) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	if err := common.ValidatePath(path); err != nil {
		return fmt.Errorf("invalid path: %w", err)
	}

	if fo.opts.Move.DryRun {
		fo.logger.Info().Str("path", path).Msg("Dry run: would create directory")
		return nil
	}

	if err := os.MkdirAll(path, perms); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", path, err)
	}
	return nil
}

// MoveToDir moves srcPath into destDir keeping its base name and returns the
// final destination path
func (fo *FileOps) MoveToDir(ctx context.Context, srcPath, destDir string) (string, error) {
	dstPath := filepath.Join(destDir, filepath.Base(srcPath))
	resolved, err := fo.MoveFile(ctx, srcPath, dstPath)
	if err != nil {
		return "", fo.errorUtils.HandleOperationError(fo.logger, err, "move", srcPath)
	}
	return resolved, nil
}

// MoveFile moves a single file, falling back to copy + delete across devices.
// It returns the destination actually written, which differs from dstPath
// only under the rename conflict strategy.
func (fo *FileOps) MoveFile(ctx context.Context, srcPath, dstPath string) (resolved string, err error) {
	start := time.Now()
	defer func() { fo.metrics.RecordMove(start, err) }()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	default:
	}

	if fo.opts.Move.DryRun {
		fo.logger.Info().Str("src", srcPath).Str("dst", dstPath).Msg("Dry run: would move file")
		return dstPath, nil
	}

	if err := common.CheckMove(srcPath, dstPath); err != nil {
		return "", fmt.Errorf("operation not safe: %w", err)
	}

	resolved, err = fo.handleFileConflict(dstPath, fo.opts.Move.Conflict)
	if err != nil {
		return "", err
	}

	renameErr := os.Rename(srcPath, resolved)
	if renameErr == nil {
		return resolved, nil
	}
	if !common.IsCrossDeviceError(renameErr) {
		return "", fmt.Errorf("failed to move file: %w", common.ClassifyOSError(renameErr))
	}

	copyOpts := options.CopyOptions{PreservePerms: fo.opts.Move.PreservePerms}
	if _, err := fo.performFileCopy(ctx, srcPath, resolved, copyOpts); err != nil {
		return "", fmt.Errorf("failed to copy file during move: %w", err)
	}
	if err := os.Remove(srcPath); err != nil {
		return "", fmt.Errorf("failed to remove source file after copy: %w", err)
	}

	return resolved, nil
}

// BackupPath returns the sibling backup location of dir
func (fo *FileOps) BackupPath(dir, suffix string) string {
	return filepath.Clean(dir) + suffix
}

// CopyDirectory copies a directory tree. The destination must not exist.
func (fo *FileOps) CopyDirectory(ctx context.Context, srcPath, dstPath string) error {
	if fo.opts.Copy.DryRun {
		fo.logger.Info().Str("src", srcPath).Str("dst", dstPath).Msg("Dry run: would copy directory")
		return nil
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	if err := common.ValidatePath(srcPath); err != nil {
		return fmt.Errorf("invalid source path: %w", err)
	}
	if err := common.ValidatePath(dstPath); err != nil {
		return fmt.Errorf("invalid destination path: %w", err)
	}
	if err := common.CheckDistinct(srcPath, dstPath); err != nil {
		return err
	}

	srcInfo, err := os.Stat(srcPath)
	if err != nil {
		return fmt.Errorf("failed to access source directory: %w", common.ClassifyOSError(err))
	}
	if !srcInfo.IsDir() {
		return fmt.Errorf("%w: %s", common.ErrNotDirectory, srcPath)
	}

	if _, err := os.Lstat(dstPath); err == nil {
		return fmt.Errorf("%w: %s", common.ErrBackupExists, dstPath)
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("failed to check destination: %w", err)
	}

	if err := os.Mkdir(dstPath, srcInfo.Mode().Perm()); err != nil {
		return fmt.Errorf("failed to create destination directory: %w", err)
	}

	return filepath.WalkDir(srcPath, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}

		relPath, err := filepath.Rel(srcPath, path)
		if err != nil {
			return fmt.Errorf("failed to get relative path: %w", err)
		}
		if relPath == "." {
			return nil
		}

		target := filepath.Join(dstPath, relPath)

		if d.IsDir() {
			info, err := d.Info()
			if err != nil {
				return fmt.Errorf("failed to get directory info: %w", err)
			}
			return os.MkdirAll(target, info.Mode().Perm())
		}
		if !d.Type().IsRegular() {
			fo.logger.Debug().Str("path", path).Msg("skipping non-regular file in backup")
			return nil
		}

		_, err = fo.performFileCopy(ctx, path, target, fo.opts.Copy)
		return err
	})
}

// Stats returns the moves, copies and bytes handled so far
func (fo *FileOps) Stats() common.OperationStats {
	return fo.metrics.Snapshot()
}

// Private helper methods

func (fo *FileOps) performFileCopy(ctx context.Context, srcPath, dstPath string, opts options.CopyOptions) (n int64, err error) {
	start := time.Now()
	defer func() { fo.metrics.RecordCopy(start, n, err) }()

	srcFile, err := os.Open(srcPath)
	if err != nil {
		return 0, fmt.Errorf("failed to open source file: %w", common.ClassifyOSError(err))
	}
	defer srcFile.Close()

	if err := os.MkdirAll(filepath.Dir(dstPath), 0o755); err != nil {
		return 0, fmt.Errorf("failed to create destination directory: %w", err)
	}

	dstFile, err := os.OpenFile(dstPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return 0, fmt.Errorf("failed to create destination file: %w", err)
	}

	n, err = fo.copyWithContext(ctx, dstFile, srcFile)
	if closeErr := dstFile.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return n, fmt.Errorf("failed to copy file content: %w", err)
	}

	if opts.PreservePerms || opts.PreserveTimes {
		if err := common.CopyAttributes(srcPath, dstPath, opts.PreservePerms, opts.PreserveTimes); err != nil {
			fo.logger.Warn().Err(err).Str("path", dstPath).Msg("Failed to copy file attributes")
		}
	}

	return n, nil
}

func (fo *FileOps) copyWithContext(ctx context.Context, dst io.Writer, src io.Reader) (int64, error) {
	buffer := make([]byte, 32*1024)
	var total int64

	for {
		select {
		case <-ctx.Done():
			return total, ctx.Err()
		default:
		}

		n, readErr := src.Read(buffer)
		if n > 0 {
			if _, writeErr := dst.Write(buffer[:n]); writeErr != nil {
				return total, writeErr
			}
			total += int64(n)
		}

		if readErr != nil {
			if readErr == io.EOF {
				return total, nil
			}
			return total, readErr
		}
	}
}

func (fo *FileOps) handleFileConflict(dstPath string, strategy options.ConflictStrategy) (string, error) {
	if _, err := os.Lstat(dstPath); err != nil {
		if os.IsNotExist(err) {
			return dstPath, nil
		}
		return "", fmt.Errorf("failed to check destination: %w", err)
	}

	switch strategy {
	case options.ConflictSkip, "":
		return "", fmt.Errorf("%w: %s", common.ErrDestExists, dstPath)
	case options.ConflictOverwrite:
		return dstPath, nil
	case options.ConflictRename:
		return fo.generateUniqueName(dstPath), nil
	default:
		return "", fmt.Errorf("unknown conflict strategy: %v", strategy)
	}
}

func (fo *FileOps) generateUniqueName(path string) string {
	dir := filepath.Dir(path)
	name := filepath.Base(path)
	ext := filepath.Ext(name)
	baseName := strings.TrimSuffix(name, ext)

	for counter := 1; ; counter++ {
		newPath := filepath.Join(dir, fmt.Sprintf("%s (%d)%s", baseName, counter, ext))
		if _, err := os.Lstat(newPath); os.IsNotExist(err) {
			return newPath
		}
	}
}
