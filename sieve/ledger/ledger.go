// Package ledger tracks the classification state of every frame in a run.
//
// The ledger replaces an unrefreshed directory snapshot: every move goes
// through Transition, which only succeeds while the frame is still in the
// dataset, so a frame can never be moved twice.
package ledger

import (
	"errors"
	"fmt"
	"sort"
	"time"

	roaring "github.com/RoaringBitmap/roaring"
	"github.com/armon/go-radix"
)

var (
	ErrUnknownRecord = errors.New("unknown record")
	ErrNotPending    = errors.New("record already left the dataset")
	ErrInvalidTarget = errors.New("transition target must be essential or nonessential")
)

// Record is one frame listed from the dataset
type Record struct {
	ID          uint32
	Path        string
	State       State
	Destination string
	Errors      int
	LastError   error
	CapturedAt  time.Time
}

// Ledger is a path-keyed table of records. It is not safe for concurrent use.
type Ledger struct {
	tree      *radix.Tree
	byID      []*Record
	inDataset *roaring.Bitmap
}

// New creates an empty ledger
func New() *Ledger {
	return &Ledger{
		tree:      radix.New(),
		inDataset: roaring.New(),
	}
}

// Add registers path as a pending record. Adding a known path returns the
// existing record unchanged.
func (l *Ledger) Add(path string) *Record {
	if v, ok := l.tree.Get(path); ok {
		return v.(*Record)
	}

	rec := &Record{
		ID:    uint32(len(l.byID)),
		Path:  path,
		State: Pending,
	}
	l.byID = append(l.byID, rec)
	l.tree.Insert(path, rec)
	l.inDataset.Add(rec.ID)
	return rec
}

// Get looks a record up by path
func (l *Ledger) Get(path string) (*Record, bool) {
	v, ok := l.tree.Get(path)
	if !ok {
		return nil, false
	}
	return v.(*Record), true
}

// Len returns the number of records
func (l *Ledger) Len() int {
	return l.tree.Len()
}

// InDataset reports whether path is known and still in the dataset
func (l *Ledger) InDataset(path string) bool {
	rec, ok := l.Get(path)
	return ok && l.inDataset.Contains(rec.ID)
}

// Paths returns every known path in lexicographic order
func (l *Ledger) Paths() []string {
	paths := make([]string, 0, l.tree.Len())
	l.tree.Walk(func(s string, _ interface{}) bool {
		paths = append(paths, s)
		return false
	})
	return paths
}

// Remaining returns the paths still in the dataset in lexicographic order
func (l *Ledger) Remaining() []string {
	ids := l.inDataset.ToArray()
	paths := make([]string, 0, len(ids))
	for _, id := range ids {
		paths = append(paths, l.byID[id].Path)
	}
	sort.Strings(paths)
	return paths
}

// MarkErrored records a failure against a frame that is still in the dataset
func (l *Ledger) MarkErrored(path string, err error) error {
	rec, ok := l.Get(path)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownRecord, path)
	}
	if !rec.State.InDataset() {
		return fmt.Errorf("%w: %s is %s", ErrNotPending, path, rec.State)
	}

	rec.State = Errored
	rec.Errors++
	rec.LastError = err
	return nil
}

// Transition moves a frame to a terminal state. It fails if the frame already
// reached one, which enforces the at-most-one destination rule.
func (l *Ledger) Transition(path string, to State, destination string) error {
	if !to.Terminal() {
		return fmt.Errorf("%w: %s", ErrInvalidTarget, to)
	}

	rec, ok := l.Get(path)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownRecord, path)
	}
	if !rec.State.InDataset() {
		return fmt.Errorf("%w: %s is %s", ErrNotPending, path, rec.State)
	}

	rec.State = to
	rec.Destination = destination
	l.inDataset.Remove(rec.ID)
	return nil
}

// Counts returns the number of records per state
func (l *Ledger) Counts() map[State]int {
	counts := make(map[State]int, 4)
	for _, rec := range l.byID {
		counts[rec.State]++
	}
	return counts
}

// InDatasetCount returns how many frames are still in the dataset
func (l *Ledger) InDatasetCount() int {
	return int(l.inDataset.GetCardinality())
}
