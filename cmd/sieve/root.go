package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	internal "github.com/ZanzyTHEbar/frame-sieve/sieve"
	"github.com/ZanzyTHEbar/frame-sieve/sieve/config"
	"github.com/ZanzyTHEbar/frame-sieve/sieve/dedup"
	"github.com/ZanzyTHEbar/frame-sieve/sieve/filesystem/fileops"
	"github.com/ZanzyTHEbar/frame-sieve/sieve/filesystem/options"
	"github.com/ZanzyTHEbar/frame-sieve/sieve/logging"
	"github.com/ZanzyTHEbar/frame-sieve/sieve/vision"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "sieve",
	Short: "Separate distinct camera frames from near-duplicates",
	Long: `Sieve walks a directory of camera frames and moves every frame into one of
two directories: essentials for visually distinct frames and nonessential for
frames that barely differ from one already kept.

The dataset is copied to a sibling backup directory before anything is moved,
and every decision is written to a timestamped run log.

Examples:
  sieve                                  # Use ./dataset, ./essentials, ./nonessential
  sieve --dataset frames --threshold 150000
  sieve --dry-run                        # Report what would move without touching disk`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		report, logPath, err := runSieve(ctx, cfg, cmd.ErrOrStderr())
		if report != nil {
			printSummary(cmd.OutOrStdout(), report, logPath)
		}
		return err
	},
}

func init() {
	flags := rootCmd.Flags()
	flags.String("config", "", "Path to a config file (default: ./config.yaml or ~/.config/sieve/config.yaml)")
	flags.String("dataset", "", "Directory holding the frames to classify")
	flags.String("essentials", "", "Destination for distinct frames")
	flags.String("nonessential", "", "Destination for near-duplicate frames")
	flags.Float64("threshold", 0, "Scores below this mark a pair as near-duplicate")
	flags.String("log-dir", "", "Directory the run log is written to")
	flags.Bool("dry-run", false, "Decide without moving, copying or creating anything")
}

// loadConfig reads the config file and applies explicitly set flags on top
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	flags := cmd.Flags()

	path, _ := flags.GetString("config")
	cfg, err := config.LoadConfig(path)
	if err != nil {
		return nil, err
	}

	if flags.Changed("dataset") {
		cfg.Sieve.DatasetDir, _ = flags.GetString("dataset")
	}
	if flags.Changed("essentials") {
		cfg.Sieve.EssentialsDir, _ = flags.GetString("essentials")
	}
	if flags.Changed("nonessential") {
		cfg.Sieve.NonessentialDir, _ = flags.GetString("nonessential")
	}
	if flags.Changed("threshold") {
		cfg.Sieve.Threshold, _ = flags.GetFloat64("threshold")
	}
	if flags.Changed("log-dir") {
		cfg.Log.Dir, _ = flags.GetString("log-dir")
	}
	if flags.Changed("dry-run") {
		cfg.Sieve.DryRun, _ = flags.GetBool("dry-run")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// newEngine wires the file system and change detection collaborators from cfg
func newEngine(cfg *config.Config, rl *logging.RunLog, progress dedup.Progress) *dedup.Engine {
	fsOpts := options.DefaultFileOpsOptions().WithDryRun(cfg.Sieve.DryRun)
	fsOpts.List.Pattern = cfg.Sieve.Pattern
	fsOpts.List.IgnoreFile = cfg.Sieve.IgnoreFile
	fs := fileops.NewFileOps(rl.Logger, fsOpts)

	pre := vision.ChangeDetection{
		BlurRadii: cfg.Imaging.BlurRadii,
		BlackMask: cfg.Imaging.BlackMask,
	}
	cmp := vision.ChangeDetector{
		PixelThreshold:   cfg.Imaging.PixelThreshold,
		DilateIterations: cfg.Imaging.DilateIterations,
	}

	return dedup.New(fs, vision.FileLoader{AutoOrient: true}, pre, cmp,
		dedup.WithLogger(rl.Logger),
		dedup.WithThreshold(cfg.Sieve.Threshold),
		dedup.WithMinRegionArea(cfg.Sieve.MinRegionArea),
		dedup.WithPattern(cfg.Sieve.Pattern),
		dedup.WithBackupSuffix(cfg.Sieve.BackupSuffix),
		dedup.WithDryRun(cfg.Sieve.DryRun),
		dedup.WithProgress(progress),
	)
}

// runSieve opens the run log and classifies the configured dataset
func runSieve(ctx context.Context, cfg *config.Config, progressOut io.Writer) (*dedup.Report, string, error) {
	rl, err := logging.NewRunLog(cfg.Log.Dir, cfg.Log.Level, time.Now())
	if err != nil {
		logger := internal.GetLogger()
		logger.Error().Err(err).Str("dir", cfg.Log.Dir).Msg("Unable to open run log")
		return nil, "", err
	}
	defer rl.Close()

	var progress dedup.Progress
	if progressOut != nil {
		progress = newBarProgress(progressOut)
	}

	engine := newEngine(cfg, rl, progress)
	report, err := engine.Classify(ctx, cfg.Sieve.DatasetDir, cfg.Sieve.EssentialsDir, cfg.Sieve.NonessentialDir)
	if err != nil {
		rl.Logger.Error().Err(err).Msg("Run ended with an error")
	}
	return report, rl.Path, err
}

func printSummary(out io.Writer, report *dedup.Report, logPath string) {
	green := color.New(color.FgGreen).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()
	cyan := color.New(color.FgCyan, color.Bold).SprintFunc()

	if report.DryRun {
		fmt.Fprintf(out, "%s\n", color.YellowString("DRY RUN MODE - No files were moved"))
	}

	fmt.Fprintf(out, "%s\n", cyan("Classification summary"))
	fmt.Fprintf(out, "  Run:           %s\n", report.RunID)
	fmt.Fprintf(out, "  Listed:        %d\n", report.Listed)
	fmt.Fprintf(out, "  Essential:     %s\n", green(report.EssentialCount()))
	fmt.Fprintf(out, "  Nonessential:  %s\n", yellow(report.NonessentialCount()))
	if n := len(report.Remaining); n > 0 {
		fmt.Fprintf(out, "  Left in place: %s\n", yellow(n))
	}
	if n := len(report.Vanished); n > 0 {
		fmt.Fprintf(out, "  Vanished:      %s\n", yellow(n))
	}
	if n := len(report.Errors); n > 0 {
		fmt.Fprintf(out, "  Errors:        %s\n", red(n))
	} else {
		fmt.Fprintf(out, "  Errors:        %s\n", green(0))
	}
	if report.Scores.Count > 0 {
		fmt.Fprintf(out, "  Scores:        min %.0f / mean %.0f / max %.0f over %d pairs\n",
			report.Scores.Min, report.Scores.Mean, report.Scores.Max, report.Scores.Count)
	}
	if ops := report.FileOps; ops.Operations > 0 {
		fmt.Fprintf(out, "  File ops:      %d moved / %d copied (%d bytes) / %s failed\n",
			ops.Moves, ops.Copies, ops.BytesCopied, failedColor(ops.Failed))
	}
	if report.BackupDir != "" && !report.DryRun {
		fmt.Fprintf(out, "  Backup:        %s\n", report.BackupDir)
	}
	if logPath != "" {
		fmt.Fprintf(out, "  Log:           %s\n", logPath)
	}
	fmt.Fprintf(out, "  Took:          %s\n", report.Duration.Round(time.Millisecond))

	if len(report.Outcomes) == 0 {
		return
	}
	fmt.Fprintf(out, "%s\n", cyan("Files"))
	for _, o := range report.Outcomes {
		line := fmt.Sprintf("  %-13s %s", o.State, filepath.Base(o.Path))
		if o.Destination != "" {
			line += " -> " + o.Destination
		}
		if !o.CapturedAt.IsZero() {
			line += " (captured " + o.CapturedAt.Format(time.DateTime) + ")"
		}
		fmt.Fprintln(out, line)
	}
}

func failedColor(n int64) string {
	if n > 0 {
		return color.RedString("%d", n)
	}
	return color.GreenString("%d", n)
}
