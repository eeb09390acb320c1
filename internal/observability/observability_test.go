package observability

import (
	"sync"
	"testing"
	"time"
)

// TestRecordFilterConcurrent tests concurrent RecordFilter calls for race conditions.
func TestRecordFilterConcurrent(t *testing.T) {
	fs := NewFilterStats(1 * time.Hour)
	var wg sync.WaitGroup
	numGoroutines := 10
	recordsPerGoroutine := 100

	for i := 0; i < numGoroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < recordsPerGoroutine; j++ {
				fs.RecordFilter("t1", "id", "select")
				fs.RecordFilter("t1", "name", "update")
				fs.RecordFilter("t2", "id", "delete")
			}
		}()
	}
	wg.Wait()

	top := fs.Top(10)
	if len(top) != 3 {
		t.Fatalf("expected 3 filter columns, got %d", len(top))
	}
	expectedFreq := int64(numGoroutines * recordsPerGoroutine)
	for _, stat := range top {
		if stat.Frequency != expectedFreq {
			t.Errorf("expected frequency %d for %s.%s, got %d", expectedFreq, stat.Table, stat.Column, stat.Frequency)
		}
	}
}

func TestTopOrdering(t *testing.T) {
	fs := NewFilterStats(1 * time.Hour)
	for i := 0; i < 10; i++ {
		fs.RecordFilter("t1", "id", "select")
	}
	for i := 0; i < 20; i++ {
		fs.RecordFilter("t1", "email", "update")
	}
	fs.RecordFilter("t1", "email", "select")

	top := fs.Top(1)
	if len(top) != 1 || top[0].Column != "email" {
		t.Fatalf("unexpected top: %+v", top)
	}
	if top[0].Operations["update"] != 20 || top[0].Operations["select"] != 1 {
		t.Errorf("unexpected operations: %v", top[0].Operations)
	}

	top[0].Operations["update"] = 0
	if fs.Top(1)[0].Operations["update"] != 20 {
		t.Error("Top must return copies")
	}
	if got := fs.Top(0); len(got) != 0 {
		t.Errorf("Top(0) = %v", got)
	}
}

func TestPrune(t *testing.T) {
	fs := NewFilterStats(50 * time.Millisecond)
	fs.RecordFilter("t1", "old", "select")
	time.Sleep(100 * time.Millisecond)
	fs.RecordFilter("t1", "new", "select")

	fs.Prune()
	top := fs.Top(10)
	if len(top) != 1 || top[0].Column != "new" {
		t.Errorf("expected only the fresh entry after prune, got %+v", top)
	}
}

func TestCounters_Snapshot(t *testing.T) {
	var c Counters
	c.RecordWritten(1)
	c.RecordWritten(0)
	c.RowsAffected(3)
	c.TableCreated()
	c.Migration(2)
	c.ConflictUpdate()
	c.IgnoredError()
	c.Failure()

	s := c.Snapshot()
	if s.RecordsWritten != 2 || s.RowsAffected != 4 {
		t.Errorf("records/rows = %d/%d", s.RecordsWritten, s.RowsAffected)
	}
	if s.TablesCreated != 1 || s.Migrations != 1 || s.ColumnsAdded != 2 {
		t.Errorf("schema counters = %+v", s)
	}
	if s.ConflictUpdates != 1 || s.IgnoredErrors != 1 || s.Failures != 1 {
		t.Errorf("outcome counters = %+v", s)
	}
}
