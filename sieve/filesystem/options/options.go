package options

// ConflictStrategy defines how to handle file conflicts
type ConflictStrategy string

const (
	ConflictOverwrite ConflictStrategy = "overwrite"
	ConflictSkip      ConflictStrategy = "skip"
	ConflictRename    ConflictStrategy = "rename"
)

// CopyOptions configures file and directory copy operations
type CopyOptions struct {
	DryRun        bool             // Preview operations without executing
	Conflict      ConflictStrategy // How to handle file conflicts
	PreservePerms bool             // Preserve file permissions
	PreserveTimes bool             // Preserve modification times
}

// MoveOptions configures file move operations
type MoveOptions struct {
	DryRun        bool             // Preview operations without executing
	Conflict      ConflictStrategy // How to handle file conflicts
	PreservePerms bool             // Preserve file permissions on cross-device moves
}

// ListOptions configures dataset listing
type ListOptions struct {
	Pattern    string // Glob matched against base names, e.g. "*.png"
	IgnoreFile string // Gitignore-style file inside the listed directory
}

// FileOpsOptions configures a FileOps instance
type FileOpsOptions struct {
	Move MoveOptions
	Copy CopyOptions
	List ListOptions
}

// DefaultFileOpsOptions returns the options used by a classification run:
// collisions are failures and backups keep permissions and times.
func DefaultFileOpsOptions() FileOpsOptions {
	return FileOpsOptions{
		Move: MoveOptions{
			Conflict:      ConflictSkip,
			PreservePerms: true,
		},
		Copy: CopyOptions{
			Conflict:      ConflictSkip,
			PreservePerms: true,
			PreserveTimes: true,
		},
		List: ListOptions{
			Pattern: "*.png",
		},
	}
}

// WithDryRun returns a copy with dry-run enabled for moves and copies
func (o FileOpsOptions) WithDryRun(dryRun bool) FileOpsOptions {
	o.Move.DryRun = dryRun
	o.Copy.DryRun = dryRun
	return o
}
