// Package draft supports form auto-save on the editing UI: it diffs two
// snapshots of a draft into change-log entries and keeps a bounded
// rolling log that a scoped timer flushes periodically. It is fully
// decoupled from the server-side approval ledger.
package draft

import (
	"context"
	"reflect"
	"sync"
	"time"
)

// MaxEntries bounds the rolling change log.
const MaxEntries = 50

// Entry records one observed field edit on the draft.
type Entry struct {
	Field     string      `json:"field"`
	OldValue  interface{} `json:"old_value"`
	NewValue  interface{} `json:"new_value"`
	Timestamp time.Time   `json:"timestamp"`
}

// ComputeDiff compares two draft snapshots and returns one entry per
// changed field, stamped at now. Unchanged fields produce nothing;
// fields present only on one side diff against nil.
func ComputeDiff(prev, next map[string]interface{}, now time.Time) []Entry {
	var entries []Entry

	for field, newValue := range next {
		oldValue, existed := prev[field]
		if existed && reflect.DeepEqual(oldValue, newValue) {
			continue
		}
		entries = append(entries, Entry{
			Field:     field,
			OldValue:  oldValue,
			NewValue:  newValue,
			Timestamp: now,
		})
	}
	for field, oldValue := range prev {
		if _, still := next[field]; !still {
			entries = append(entries, Entry{
				Field:     field,
				OldValue:  oldValue,
				NewValue:  nil,
				Timestamp: now,
			})
		}
	}
	return entries
}

// Flusher persists a batch of entries, e.g. to local storage or a draft
// endpoint. Errors are the flusher's problem; the recorder keeps going.
type Flusher func(entries []Entry)

// Recorder accumulates entries, keeps only the newest MaxEntries, and
// hands the current log to a Flusher on a fixed interval until its
// context is cancelled.
type Recorder struct {
	mu      sync.Mutex
	entries []Entry
}

// NewRecorder returns an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Record prepends entries, newest first, trimming to MaxEntries.
func (r *Recorder) Record(entries ...Entry) {
	if len(entries) == 0 {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	r.entries = append(entries, r.entries...)
	if len(r.entries) > MaxEntries {
		r.entries = r.entries[:MaxEntries]
	}
}

// Entries returns a copy of the current log, newest first.
func (r *Recorder) Entries() []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Entry, len(r.entries))
	copy(out, r.entries)
	return out
}

// Flush runs the flusher every interval with the current log until ctx
// is cancelled. It flushes once more on the way out so nothing recorded
// after the last tick is lost.
func (r *Recorder) Flush(ctx context.Context, interval time.Duration, flush Flusher) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			if entries := r.Entries(); len(entries) > 0 {
				flush(entries)
			}
			return
		case <-ticker.C:
			if entries := r.Entries(); len(entries) > 0 {
				flush(entries)
			}
		}
	}
}
