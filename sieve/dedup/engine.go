// Package dedup partitions a flat directory of camera frames into essential
// (visually distinct) and nonessential (near-duplicate) frames.
//
// Every frame still in the dataset is compared, as the first operand, against
// every other frame still in the dataset. When a pair scores below the
// threshold the second frame is moved to the nonessential directory. A frame
// that was never found to duplicate anything is moved to the essentials
// directory, and a final sweep moves whatever is left in the dataset there too.
//
// Frames are visited in lexicographic path order, so for chains of mutual
// near-duplicates the lexicographically first frame survives.
package dedup

import (
	"context"
	"fmt"
	"image"
	"sort"
	"time"

	internal "github.com/ZanzyTHEbar/frame-sieve/sieve"
	"github.com/ZanzyTHEbar/frame-sieve/sieve/filesystem/fileops"
	"github.com/ZanzyTHEbar/frame-sieve/sieve/filesystem/utils"
	"github.com/ZanzyTHEbar/frame-sieve/sieve/ledger"
	"github.com/ZanzyTHEbar/frame-sieve/sieve/vision"

	"github.com/rs/zerolog"
	"github.com/sourcegraph/conc/panics"
)

// PairSeparator is logged after every scored pairing.
const PairSeparator = "================"

// Engine runs classification. It is single-threaded and not safe for
// concurrent Classify calls.
type Engine struct {
	fs       fileops.FileSystem
	loader   vision.Loader
	pre      vision.Preprocessor
	cmp      vision.Comparator
	logger   zerolog.Logger
	progress Progress

	threshold     float64
	minRegionArea int
	pattern       string
	backupSuffix  string
	dryRun        bool

	now         func() time.Time
	captureTime func(path string) (time.Time, bool)
}

// Option configures an Engine
type Option func(*Engine)

// WithLogger sets the audit logger
func WithLogger(logger zerolog.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// WithThreshold overrides the duplicate threshold
func WithThreshold(threshold float64) Option {
	return func(e *Engine) { e.threshold = threshold }
}

// WithMinRegionArea overrides the region area passed to the comparator
func WithMinRegionArea(area int) Option {
	return func(e *Engine) { e.minRegionArea = area }
}

// WithPattern overrides the glob used to list frames
func WithPattern(pattern string) Option {
	return func(e *Engine) { e.pattern = pattern }
}

// WithBackupSuffix overrides the suffix of the sibling backup directory
func WithBackupSuffix(suffix string) Option {
	return func(e *Engine) { e.backupSuffix = suffix }
}

// WithProgress sets the progress sink
func WithProgress(p Progress) Option {
	return func(e *Engine) {
		if p != nil {
			e.progress = p
		}
	}
}

// WithDryRun marks reports as dry runs. The file system passed to New must
// itself be configured for dry-run so nothing is touched on disk.
func WithDryRun(dryRun bool) Option {
	return func(e *Engine) { e.dryRun = dryRun }
}

// WithClock replaces time.Now
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithCaptureTime replaces the EXIF capture time lookup
func WithCaptureTime(fn func(path string) (time.Time, bool)) Option {
	return func(e *Engine) { e.captureTime = fn }
}

// New creates an engine over the given file system and pixel collaborators
func New(fs fileops.FileSystem, loader vision.Loader, pre vision.Preprocessor, cmp vision.Comparator, opts ...Option) *Engine {
	e := &Engine{
		fs:            fs,
		loader:        loader,
		pre:           pre,
		cmp:           cmp,
		logger:        zerolog.Nop(),
		progress:      noopProgress{},
		threshold:     DefaultThreshold,
		minRegionArea: DefaultMinRegionArea,
		pattern:       internal.DefaultImagePattern,
		backupSuffix:  internal.DefaultBackupSuffix,
		now:           time.Now,
		captureTime:   utils.CaptureTime,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// run carries the state of one Classify call
type run struct {
	ctx             context.Context
	ledger          *ledger.Ledger
	report          *Report
	snapshot        []string
	datasetDir      string
	essentialsDir   string
	nonessentialDir string
}

// Classify moves every frame of datasetDir into essentialsDir or
// nonessentialDir. Per-file failures are contained and reported; only a
// failure to list the dataset, create the destinations or back the dataset
// up ends the run with an error. A cancelled context stops the run before
// the next pairing or move and returns the partial report with ctx.Err().
func (e *Engine) Classify(ctx context.Context, datasetDir, essentialsDir, nonessentialDir string) (*Report, error) {
	started := e.now()
	report := newReport(datasetDir, essentialsDir, nonessentialDir, started)
	report.DryRun = e.dryRun

	log := e.logger.With().Str("run_id", report.RunID.String()).Logger()
	log.Info().
		Str("dataset", datasetDir).
		Str("essentials", essentialsDir).
		Str("nonessential", nonessentialDir).
		Float64("threshold", e.threshold).
		Bool("dry_run", e.dryRun).
		Msg("Starting classification run")

	snapshot, err := e.fs.ListFiles(datasetDir, e.pattern)
	if err != nil {
		return nil, fmt.Errorf("failed to list dataset %s: %w", datasetDir, err)
	}
	sort.Strings(snapshot)
	report.Listed = len(snapshot)

	if len(snapshot) == 0 {
		log.Info().Msg("No files found in the dataset folder. Exiting...")
		report.Duration = e.now().Sub(started)
		return report, nil
	}

	for _, dir := range []string{essentialsDir, nonessentialDir} {
		if err := e.fs.CreateDirectory(ctx, dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create destination %s: %w", dir, err)
		}
	}

	report.BackupDir = e.fs.BackupPath(datasetDir, e.backupSuffix)
	if err := e.fs.CopyDirectory(ctx, datasetDir, report.BackupDir); err != nil {
		log.Error().Err(err).Str("backup", report.BackupDir).Msg("Backup of dataset failed, aborting")
		return nil, fmt.Errorf("%w: %w", ErrBackupFailed, err)
	}
	log.Info().Str("backup", report.BackupDir).Msg("Dataset backed up")

	r := &run{
		ctx:             ctx,
		ledger:          ledger.New(),
		report:          report,
		snapshot:        snapshot,
		datasetDir:      datasetDir,
		essentialsDir:   essentialsDir,
		nonessentialDir: nonessentialDir,
	}
	for _, path := range snapshot {
		rec := r.ledger.Add(path)
		if ts, ok := e.captureTime(path); ok {
			rec.CapturedAt = ts
		}
	}

	e.progress.Start("Processing Images", len(snapshot))
	for _, candidate := range snapshot {
		if ctx.Err() != nil {
			break
		}
		e.evaluate(r, log, candidate)
		e.progress.Step()
	}
	e.progress.Finish()

	if err := ctx.Err(); err != nil {
		log.Warn().Err(err).Msg("Run cancelled, remaining frames were left in the dataset")
		e.finish(r, log)
		return report, err
	}

	e.sweep(r, log)
	e.finish(r, log)
	return report, nil
}

// evaluate compares one candidate against every other frame still in the dataset
func (e *Engine) evaluate(r *run, log zerolog.Logger, candidate string) {
	if !r.ledger.InDataset(candidate) {
		log.Debug().Str("file", candidate).Msg("Already classified, skipping as candidate")
		return
	}

	var (
		candidateFrame *image.Gray
		attempted      int
		isDuplicate    bool
	)

	for _, other := range r.snapshot {
		if r.ctx.Err() != nil {
			return
		}
		if other == candidate {
			continue
		}
		if !r.ledger.InDataset(other) {
			log.Debug().Str("file1", candidate).Str("file2", other).Msg("Already classified, skipping pairing")
			continue
		}
		attempted++

		if !e.fs.Exists(candidate) {
			e.contain(r, log, candidate, other, StageMissing, fmt.Errorf("%w: %s", ErrVanished, candidate))
			continue
		}
		if candidateFrame == nil {
			frame, stage, err := e.prepare(candidate)
			if err != nil {
				e.contain(r, log, candidate, other, stage, err)
				continue
			}
			candidateFrame = frame
		}

		if !e.fs.Exists(other) {
			e.contain(r, log, other, candidate, StageMissing, fmt.Errorf("%w: %s", ErrVanished, other))
			continue
		}
		otherFrame, stage, err := e.prepare(other)
		if err != nil {
			e.contain(r, log, other, candidate, stage, err)
			continue
		}

		cmp, err := e.score(candidateFrame, otherFrame)
		if err != nil {
			e.contain(r, log, candidate, other, StageCompare, err)
			continue
		}

		decision := Decide(cmp.Score, e.threshold)
		r.report.Comparisons = append(r.report.Comparisons, Comparison{
			File1:    candidate,
			File2:    other,
			Score:    cmp.Score,
			Regions:  len(cmp.Regions),
			Decision: decision,
		})
		log.Info().
			Str("file1", candidate).
			Str("file2", other).
			Float64("score", cmp.Score).
			Str("decision", decision.String()).
			Msg("Compared frames")

		if decision == Duplicate && e.moveTo(r, log, other, candidate, ledger.Nonessential, r.nonessentialDir) {
			isDuplicate = true
		}

		log.Info().Msg(PairSeparator)
	}

	if isDuplicate || r.ctx.Err() != nil {
		return
	}
	if attempted > 0 && candidateFrame == nil {
		// Never evaluated successfully as a candidate; the sweep decides.
		log.Info().Str("file", candidate).Msg("Candidate could not be evaluated, leaving it for the final sweep")
		return
	}
	if !e.fs.Exists(candidate) {
		log.Info().Str("file", candidate).Msg("Candidate does not exist or could not be found")
		return
	}
	e.moveTo(r, log, candidate, "", ledger.Essential, r.essentialsDir)
}

// sweep moves every frame still physically in the dataset to essentials
func (e *Engine) sweep(r *run, log zerolog.Logger) {
	remaining, err := e.fs.ListFiles(r.datasetDir, e.pattern)
	if err != nil {
		e.contain(r, log, r.datasetDir, "", StageSweep, err)
		return
	}
	sort.Strings(remaining)

	var todo []string
	for _, path := range remaining {
		rec, known := r.ledger.Get(path)
		if !known {
			rec = r.ledger.Add(path)
			log.Info().Str("file", path).Msg("File appeared in the dataset during the run")
		}
		if !rec.State.InDataset() {
			continue
		}
		todo = append(todo, path)
	}

	if len(todo) == 0 {
		log.Info().Msg("No remaining files found in the dataset folder.")
		return
	}

	e.progress.Start("Moving Remaining Files", len(todo))
	for _, path := range todo {
		if !e.fs.Exists(path) {
			log.Info().Str("file", path).Msg("File does not exist or could not be found")
		} else {
			e.moveTo(r, log, path, "", ledger.Essential, r.essentialsDir)
		}
		e.progress.Step()
	}
	e.progress.Finish()
}

// moveTo relocates path and records the transition. It reports whether the
// move happened.
func (e *Engine) moveTo(r *run, log zerolog.Logger, path, peer string, to ledger.State, dir string) bool {
	if !r.ledger.InDataset(path) || r.ctx.Err() != nil {
		return false
	}

	dest, err := e.fs.MoveToDir(r.ctx, path, dir)
	if err != nil {
		e.contain(r, log, path, peer, StageMove, err)
		return false
	}
	if err := r.ledger.Transition(path, to, dest); err != nil {
		// Unreachable while the InDataset guard above holds.
		log.Error().Err(err).Str("file", path).Msg("Ledger rejected transition")
		return false
	}

	ev := log.Info().Str("file", path).Str("dest", dest)
	if rec, _ := r.ledger.Get(path); !rec.CapturedAt.IsZero() {
		ev = ev.Time("captured", rec.CapturedAt)
	}
	ev.Msgf("%s was moved to %s folder", path, to)
	return true
}

// contain records and logs a failure without interrupting the run
func (e *Engine) contain(r *run, log zerolog.Logger, path, peer string, stage Stage, err error) {
	pe := PairError{Path: path, Peer: peer, Stage: stage, Err: err}
	r.report.Errors = append(r.report.Errors, pe)

	if r.ledger.InDataset(path) {
		_ = r.ledger.MarkErrored(path, err)
	}

	log.Error().
		Err(err).
		Str("file", path).
		Str("peer", peer).
		Str("stage", string(stage)).
		Msgf("Error processing %s", path)
}

// prepare loads and preprocesses one frame, containing collaborator panics
func (e *Engine) prepare(path string) (*image.Gray, Stage, error) {
	var (
		img image.Image
		err error
	)
	if rec := panics.Try(func() { img, err = e.loader.Load(path) }); rec != nil {
		return nil, StageLoad, rec.AsError()
	}
	if err != nil {
		return nil, StageLoad, err
	}
	if img == nil {
		return nil, StageLoad, fmt.Errorf("failed to read image %s: %w", path, vision.ErrEmptyFrame)
	}

	var frame *image.Gray
	if rec := panics.Try(func() { frame, err = e.pre.Preprocess(img) }); rec != nil {
		return nil, StagePreprocess, fmt.Errorf("%w %s: %w", ErrPreprocess, path, rec.AsError())
	}
	if err != nil {
		return nil, StagePreprocess, fmt.Errorf("%w %s: %w", ErrPreprocess, path, err)
	}
	if frame == nil || frame.Bounds().Empty() {
		return nil, StagePreprocess, fmt.Errorf("%w %s: %w", ErrPreprocess, path, vision.ErrEmptyFrame)
	}
	return frame, "", nil
}

// score resizes the second frame to the first frame's size and compares them.
// The first operand's size is authoritative, so scores are not guaranteed to
// be symmetric.
func (e *Engine) score(first, second *image.Gray) (vision.Comparison, error) {
	var (
		cmp vision.Comparison
		err error
	)
	rec := panics.Try(func() {
		b := first.Bounds()
		resized, rerr := vision.ResizeTo(second, b.Dx(), b.Dy())
		if rerr != nil {
			err = rerr
			return
		}
		cmp, err = e.cmp.Compare(first, resized, e.minRegionArea)
	})
	if rec != nil {
		err = rec.AsError()
	}
	if err != nil {
		return vision.Comparison{}, fmt.Errorf("%w: %w", ErrCompare, err)
	}
	return cmp, nil
}

// finish fills the partition lists of the report from the ledger
func (e *Engine) finish(r *run, log zerolog.Logger) {
	for _, path := range r.ledger.Paths() {
		rec, _ := r.ledger.Get(path)
		r.report.Outcomes = append(r.report.Outcomes, Outcome{
			Path:        path,
			State:       rec.State,
			Destination: rec.Destination,
			CapturedAt:  rec.CapturedAt,
			Errors:      rec.Errors,
		})
		switch rec.State {
		case ledger.Essential:
			r.report.Essential = append(r.report.Essential, path)
		case ledger.Nonessential:
			r.report.Nonessential = append(r.report.Nonessential, path)
		}
	}
	for _, path := range r.ledger.Remaining() {
		if e.dryRun || e.fs.Exists(path) {
			r.report.Remaining = append(r.report.Remaining, path)
		} else {
			r.report.Vanished = append(r.report.Vanished, path)
		}
	}

	r.report.Scores = summarize(r.report.Comparisons)
	r.report.FileOps = e.fs.Stats()
	r.report.Duration = e.now().Sub(r.report.Started)
	counts := r.ledger.Counts()

	log.Info().
		Int("listed", r.report.Listed).
		Int("essential", r.report.EssentialCount()).
		Int("nonessential", r.report.NonessentialCount()).
		Int("remaining", len(r.report.Remaining)).
		Int("vanished", len(r.report.Vanished)).
		Int("in_dataset", r.ledger.InDatasetCount()).
		Int("errored", counts[ledger.Errored]).
		Int("errors", len(r.report.Errors)).
		Int64("moves", r.report.FileOps.Moves).
		Int64("bytes_copied", r.report.FileOps.BytesCopied).
		Int("comparisons", len(r.report.Comparisons)).
		Dur("duration", r.report.Duration).
		Msg("Classification run finished")
}
