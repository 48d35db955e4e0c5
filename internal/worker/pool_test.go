package worker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ppiankov/histograde/internal/model"
)

// gradingStub grades records by id and tracks how many run at once
type gradingStub struct {
	delay   time.Duration
	grades  map[string]model.Grade
	fail    map[string]bool
	started chan struct{} // closed on the first call, if set

	once     sync.Once
	calls    atomic.Int32
	running  atomic.Int32
	mu       sync.Mutex
	peakRuns int32
}

func (s *gradingStub) ClassifyRecord(ctx context.Context, rec model.Record) (model.RecordResult, error) {
	s.calls.Add(1)
	if s.started != nil {
		s.once.Do(func() { close(s.started) })
	}

	n := s.running.Add(1)
	defer s.running.Add(-1)
	s.mu.Lock()
	if n > s.peakRuns {
		s.peakRuns = n
	}
	s.mu.Unlock()

	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return model.RecordResult{}, ctx.Err()
		}
	}
	if s.fail[rec.ID] {
		return model.RecordResult{}, errors.New("unreadable record")
	}
	g := s.grades[rec.ID]
	return model.RecordResult{RecordID: rec.ID, RuleGrades: []model.Grade{g}, Best: g}, nil
}

func (s *gradingStub) peak() int32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.peakRuns
}

func submitRecords(pool *Pool, stub RecordClassifier, ids ...string) {
	for i, id := range ids {
		pool.Submit(&RecordJob{Index: i, Record: model.Record{ID: id}, Classifier: stub})
	}
}

func TestNewPool(t *testing.T) {
	tests := []struct {
		in   int
		want int
	}{
		{5, 5},
		{0, 1},
		{-1, 1},
	}
	for _, tt := range tests {
		if got := NewPool(tt.in).workers; got != tt.want {
			t.Errorf("NewPool(%d): expected %d workers, got %d", tt.in, tt.want, got)
		}
	}
}

func TestPool_GradesEveryRecord(t *testing.T) {
	stub := &gradingStub{grades: map[string]model.Grade{"PAT1": 1, "PAT2": 2, "PAT3": 3}}
	pool := NewPool(2)
	pool.Start()
	submitRecords(pool, stub, "PAT1", "PAT2", "PAT3")

	results := pool.Wait()
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}

	got := make(map[string]model.Grade)
	for _, r := range results {
		o := r.(*RecordOutcome)
		if o.Error != nil {
			t.Errorf("unexpected error for %s: %v", o.RecordID, o.Error)
		}
		got[o.RecordID] = o.Result.Best
	}
	for id, want := range stub.grades {
		if got[id] != want {
			t.Errorf("%s: expected grade %d, got %d", id, want, got[id])
		}
	}
}

func TestPool_RespectsWorkerLimit(t *testing.T) {
	const workers = 4
	stub := &gradingStub{delay: 10 * time.Millisecond}
	pool := NewPool(workers)
	pool.Start()

	ids := make([]string, 40)
	for i := range ids {
		ids[i] = "PAT" + string(rune('A'+i%26))
	}
	submitRecords(pool, stub, ids...)
	pool.Wait()

	if got := stub.calls.Load(); got != int32(len(ids)) {
		t.Errorf("expected %d classifications, got %d", len(ids), got)
	}
	if peak := stub.peak(); peak > workers {
		t.Errorf("peak concurrency %d exceeded %d workers", peak, workers)
	} else if peak <= 1 {
		t.Logf("Warning: peak concurrency was %d, expected > 1", peak)
	}
}

func TestPool_FailedRecordIsReported(t *testing.T) {
	stub := &gradingStub{fail: map[string]bool{"PAT2": true}}
	pool := NewPool(2)
	pool.Start()
	submitRecords(pool, stub, "PAT1", "PAT2")

	var failed []string
	for _, r := range pool.Wait() {
		if r.GetError() != nil {
			failed = append(failed, r.(*RecordOutcome).RecordID)
		}
	}
	if len(failed) != 1 || failed[0] != "PAT2" {
		t.Errorf("expected only PAT2 to fail, got %v", failed)
	}
}

func TestResultCollector(t *testing.T) {
	c := NewResultCollector()
	c.Add(&RecordOutcome{RecordID: "PAT1"})
	c.Add(&RecordOutcome{RecordID: "PAT2", Error: errors.New("err")})

	res := c.Results()
	if len(res) != 2 {
		t.Fatalf("expected 2 results, got %d", len(res))
	}
	// Results returns a copy
	res[0] = nil
	if c.Results()[0] == nil {
		t.Error("expected collector contents to be unaffected by caller writes")
	}
}

func TestPool_SubmitAfterShutdown(t *testing.T) {
	pool := NewPool(2)
	pool.Start()
	pool.Shutdown()

	// May land in a free queue slot, but must never block
	done := make(chan struct{})
	go func() {
		pool.Submit(&RecordJob{Record: model.Record{ID: "PAT1"}, Classifier: &gradingStub{}})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Submit after shutdown blocked")
	}
}

func TestPool_ShutdownInterruptsRunningRecord(t *testing.T) {
	stub := &gradingStub{delay: 5 * time.Second, started: make(chan struct{})}
	pool := NewPool(1)
	pool.Start()
	submitRecords(pool, stub, "PAT1")

	<-stub.started

	done := make(chan struct{})
	go func() {
		pool.Shutdown()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Shutdown timed out")
	}
}

func TestPool_ManyRecordsDoNotDeadlock(t *testing.T) {
	pool := NewPool(1)
	pool.Start()

	// Far more records than the queue and result buffers hold
	const count = 100
	done := make(chan []Result)
	go func() {
		stub := &gradingStub{}
		for i := 0; i < count; i++ {
			pool.Submit(&RecordJob{Index: i, Record: model.Record{ID: "PAT"}, Classifier: stub})
		}
		done <- pool.Wait()
	}()

	select {
	case results := <-done:
		if len(results) != count {
			t.Errorf("expected %d results, got %d", count, len(results))
		}
	case <-time.After(2 * time.Second):
		t.Fatal("pool deadlocked")
	}
}

func TestPool_ContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	pool := NewPoolWithContext(ctx, 1)
	pool.Start()

	cancel()

	// May or may not be queued, but must not block
	submitRecords(pool, &gradingStub{}, "PAT1")

	done := make(chan struct{})
	go func() {
		pool.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Wait blocked after cancellation")
	}
}
