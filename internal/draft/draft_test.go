package draft

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"
)

func TestComputeDiff(t *testing.T) {
	now := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)

	prev := map[string]interface{}{
		"title":      "Old Title",
		"city":       "Lisbon",
		"totalUnits": 80,
	}
	next := map[string]interface{}{
		"title":      "New Title",
		"city":       "Lisbon",
		"status":     "construction",
	}

	entries := ComputeDiff(prev, next, now)

	byField := map[string]Entry{}
	for _, e := range entries {
		byField[e.Field] = e
	}

	if len(entries) != 3 {
		t.Fatalf("got %d entries, want 3: %+v", len(entries), entries)
	}
	if _, ok := byField["city"]; ok {
		t.Error("unchanged field produced an entry")
	}

	title := byField["title"]
	if title.OldValue != "Old Title" || title.NewValue != "New Title" {
		t.Errorf("title diff = %+v", title)
	}

	status := byField["status"]
	if status.OldValue != nil || status.NewValue != "construction" {
		t.Errorf("added field diff = %+v", status)
	}

	units := byField["totalUnits"]
	if units.OldValue != 80 || units.NewValue != nil {
		t.Errorf("removed field diff = %+v", units)
	}

	for _, e := range entries {
		if !e.Timestamp.Equal(now) {
			t.Errorf("entry %s timestamp = %v, want %v", e.Field, e.Timestamp, now)
		}
	}
}

func TestComputeDiffNoChanges(t *testing.T) {
	snap := map[string]interface{}{"title": "Same"}
	if entries := ComputeDiff(snap, snap, time.Now()); len(entries) != 0 {
		t.Errorf("identical snapshots produced entries: %+v", entries)
	}
}

func TestRecorderKeepsNewestFirstAndTrims(t *testing.T) {
	r := NewRecorder()
	now := time.Now()

	for i := 0; i < MaxEntries+10; i++ {
		r.Record(Entry{Field: fmt.Sprintf("field-%d", i), Timestamp: now})
	}

	entries := r.Entries()
	if len(entries) != MaxEntries {
		t.Fatalf("len = %d, want %d", len(entries), MaxEntries)
	}
	if entries[0].Field != fmt.Sprintf("field-%d", MaxEntries+9) {
		t.Errorf("head = %s, want newest", entries[0].Field)
	}
	if entries[MaxEntries-1].Field != "field-10" {
		t.Errorf("tail = %s, want oldest surviving entry field-10", entries[MaxEntries-1].Field)
	}
}

func TestRecorderEntriesReturnsCopy(t *testing.T) {
	r := NewRecorder()
	r.Record(Entry{Field: "title"})

	got := r.Entries()
	got[0].Field = "mutated"

	if r.Entries()[0].Field != "title" {
		t.Error("Entries exposed internal state")
	}
}

func TestRecorderConcurrentRecord(t *testing.T) {
	r := NewRecorder()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				r.Record(Entry{Field: fmt.Sprintf("g%d-%d", n, j)})
			}
		}(i)
	}
	wg.Wait()

	if len(r.Entries()) != MaxEntries {
		t.Errorf("len = %d, want %d", len(r.Entries()), MaxEntries)
	}
}

func TestFlushPeriodicallyAndOnCancel(t *testing.T) {
	r := NewRecorder()
	r.Record(Entry{Field: "title", NewValue: "A"})

	flushes := make(chan []Entry, 16)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		r.Flush(ctx, 10*time.Millisecond, func(entries []Entry) {
			flushes <- entries
		})
		close(done)
	}()

	// First tick flush.
	select {
	case got := <-flushes:
		if len(got) != 1 || got[0].Field != "title" {
			t.Errorf("tick flush = %+v", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no flush before timeout")
	}

	// Anything recorded after the last tick goes out on cancel.
	r.Record(Entry{Field: "city", NewValue: "B"})
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Flush did not return after cancel")
	}

	var last []Entry
	for {
		select {
		case got := <-flushes:
			last = got
			continue
		default:
		}
		break
	}
	if len(last) == 0 || last[0].Field != "city" {
		t.Errorf("final flush = %+v, want city entry first", last)
	}
}
