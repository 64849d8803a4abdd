package common

import (
	"sync"
	"time"
)

// OperationStats is a point-in-time view of the work done by a file mover
type OperationStats struct {
	Operations  int64
	Failed      int64
	Moves       int64
	Copies      int64
	BytesCopied int64
	Duration    time.Duration
	Last        time.Time
}

// FileOperationMetrics accumulates OperationStats. It is safe for concurrent use.
type FileOperationMetrics struct {
	mu    sync.Mutex
	stats OperationStats
}

func (fom *FileOperationMetrics) record(start time.Time, err error) {
	fom.stats.Operations++
	if err != nil {
		fom.stats.Failed++
	}
	fom.stats.Duration += time.Since(start)
	fom.stats.Last = time.Now()
}

// RecordMove records the outcome of a single move
func (fom *FileOperationMetrics) RecordMove(start time.Time, err error) {
	fom.mu.Lock()
	defer fom.mu.Unlock()

	fom.record(start, err)
	if err == nil {
		fom.stats.Moves++
	}
}

// RecordCopy records the outcome of a single file copy
func (fom *FileOperationMetrics) RecordCopy(start time.Time, bytes int64, err error) {
	fom.mu.Lock()
	defer fom.mu.Unlock()

	fom.record(start, err)
	if err == nil {
		fom.stats.Copies++
		fom.stats.BytesCopied += bytes
	}
}

// Snapshot returns the accumulated stats
func (fom *FileOperationMetrics) Snapshot() OperationStats {
	fom.mu.Lock()
	defer fom.mu.Unlock()
	return fom.stats
}
