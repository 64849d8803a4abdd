package dedup

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/ZanzyTHEbar/frame-sieve/sieve/filesystem/common"
	"github.com/ZanzyTHEbar/frame-sieve/sieve/ledger"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Stage names the step of a pairing that failed
type Stage string

const (
	StageMissing    Stage = "missing"
	StageLoad       Stage = "load"
	StagePreprocess Stage = "preprocess"
	StageCompare    Stage = "compare"
	StageMove       Stage = "move"
	StageSweep      Stage = "sweep"
)

var (
	ErrBackupFailed = errors.New("backup of dataset failed")
	ErrVanished     = errors.New("file no longer exists")
	ErrPreprocess   = errors.New("failed to preprocess image")
	ErrCompare      = errors.New("failed to compare frames")
)

// PairError is a failure contained to one pairing or one file
type PairError struct {
	Path  string
	Peer  string
	Stage Stage
	Err   error
}

func (e PairError) Error() string {
	if e.Peer == "" {
		return fmt.Sprintf("%s %s: %v", e.Stage, e.Path, e.Err)
	}
	return fmt.Sprintf("%s %s (paired with %s): %v", e.Stage, e.Path, e.Peer, e.Err)
}

func (e PairError) Unwrap() error { return e.Err }

// Comparison is one scored ordered pair
type Comparison struct {
	File1    string
	File2    string
	Score    float64
	Regions  int
	Decision Decision
}

// Outcome is where one frame ended up
type Outcome struct {
	Path  string
	State ledger.State
	// Destination is the path the frame was moved to. Under a rename
	// conflict strategy it can differ from the destination directory plus
	// the base name.
	Destination string
	// CapturedAt is the EXIF capture time, zero when the frame has none.
	CapturedAt time.Time
	Errors     int
}

// ScoreSummary describes the distribution of scores over a run
type ScoreSummary struct {
	Count  int
	Min    float64
	Max    float64
	Mean   float64
	StdDev float64
}

// Report is the outcome of a classification run
type Report struct {
	RunID           uuid.UUID
	DatasetDir      string
	EssentialsDir   string
	NonessentialDir string
	BackupDir       string
	DryRun          bool

	Started  time.Time
	Duration time.Duration

	// Listed is the size of the snapshot taken at start.
	Listed int
	// Essential and Nonessential hold original dataset paths per destination.
	Essential    []string
	Nonessential []string
	// Remaining frames are still in the dataset, typically after move failures.
	Remaining []string
	// Vanished frames disappeared from the dataset without being moved by the run.
	Vanished []string

	// Outcomes has one entry per frame the run saw, in path order.
	Outcomes []Outcome

	Errors      []PairError
	Comparisons []Comparison
	Scores      ScoreSummary
	FileOps     common.OperationStats
}

func newReport(dataset, essentials, nonessential string, started time.Time) *Report {
	return &Report{
		RunID:           uuid.New(),
		DatasetDir:      dataset,
		EssentialsDir:   essentials,
		NonessentialDir: nonessential,
		Started:         started,
	}
}

// EssentialCount returns how many frames were kept
func (r *Report) EssentialCount() int { return len(r.Essential) }

// NonessentialCount returns how many frames were discarded as near-duplicates
func (r *Report) NonessentialCount() int { return len(r.Nonessential) }

// OutcomeFor returns the outcome recorded for path
func (r *Report) OutcomeFor(path string) (Outcome, bool) {
	for _, o := range r.Outcomes {
		if o.Path == path {
			return o, true
		}
	}
	return Outcome{}, false
}

// ErrorsFor returns the contained errors recorded against path
func (r *Report) ErrorsFor(path string) []PairError {
	var out []PairError
	for _, e := range r.Errors {
		if e.Path == path {
			out = append(out, e)
		}
	}
	return out
}

func summarize(comparisons []Comparison) ScoreSummary {
	if len(comparisons) == 0 {
		return ScoreSummary{}
	}

	scores := make([]float64, 0, len(comparisons))
	for _, c := range comparisons {
		if math.IsNaN(c.Score) {
			continue
		}
		scores = append(scores, c.Score)
	}
	if len(scores) == 0 {
		return ScoreSummary{}
	}

	s := ScoreSummary{
		Count: len(scores),
		Min:   floats.Min(scores),
		Max:   floats.Max(scores),
		Mean:  stat.Mean(scores, nil),
	}
	if len(scores) > 1 {
		s.StdDev = stat.StdDev(scores, nil)
	}
	return s
}
