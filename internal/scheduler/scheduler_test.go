package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"
)

type testJob struct {
	id      string
	execute func(ctx context.Context) error
}

func (j *testJob) Execute(ctx context.Context) error {
	if j.execute != nil {
		return j.execute(ctx)
	}
	return nil
}

func (j *testJob) ItemID() string      { return j.id }
func (j *testJob) Description() string { return "test job " + j.id }

func TestParseScheduleTime(t *testing.T) {
	tests := []struct {
		input   string
		want    ScheduleTime
		wantErr bool
	}{
		{input: "05:00", want: ScheduleTime{Hour: 5, Minute: 0}},
		{input: "23:59", want: ScheduleTime{Hour: 23, Minute: 59}},
		{input: "0:5", want: ScheduleTime{Hour: 0, Minute: 5}},
		{input: "24:00", wantErr: true},
		{input: "12:60", wantErr: true},
		{input: "noon", wantErr: true},
		{input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseScheduleTime(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Errorf("ParseScheduleTime(%q) expected error", tt.input)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseScheduleTime(%q) unexpected error: %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("ParseScheduleTime(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestWorkerPoolProcessesJobs(t *testing.T) {
	pool := NewWorkerPool(2, 0, 10)
	pool.Start()

	var mu sync.Mutex
	executed := make(map[string]bool)
	done := make(chan struct{}, 3)

	for _, id := range []string{"1", "2", "3"} {
		id := id
		job := &testJob{
			id: id,
			execute: func(ctx context.Context) error {
				mu.Lock()
				executed[id] = true
				mu.Unlock()
				done <- struct{}{}
				return nil
			},
		}
		if err := pool.Submit(job); err != nil {
			t.Fatalf("Submit failed: %v", err)
		}
	}

	for i := 0; i < 3; i++ {
		select {
		case <-done:
		case <-time.After(5 * time.Second):
			t.Fatal("timed out waiting for jobs")
		}
	}

	pool.ShutdownWithTimeout(5 * time.Second)

	mu.Lock()
	defer mu.Unlock()
	if len(executed) != 3 {
		t.Errorf("expected 3 jobs executed, got %d", len(executed))
	}
}

func TestWorkerPoolDropsWhenFull(t *testing.T) {
	// No workers started, so the queue never drains.
	pool := NewWorkerPool(1, 0, 1)

	if err := pool.Submit(&testJob{id: "1"}); err != nil {
		t.Fatalf("first submit should succeed: %v", err)
	}
	if err := pool.Submit(&testJob{id: "2"}); err == nil {
		t.Error("expected error when queue is full")
	}
}

func TestSchedulerRequiresScheduleTime(t *testing.T) {
	_, err := New(Config{
		ScheduleTimes: nil,
		WorkerPool:    NewWorkerPool(1, 0, 1),
	})
	if err == nil {
		t.Error("expected error with no schedule times")
	}
}

func TestSchedulerRejectsInvalidTime(t *testing.T) {
	_, err := New(Config{
		ScheduleTimes: []string{"25:00"},
		WorkerPool:    NewWorkerPool(1, 0, 1),
	})
	if err == nil {
		t.Error("expected error for invalid schedule time")
	}
}

func TestSchedulerTriggerNow(t *testing.T) {
	pool := NewWorkerPool(1, 0, 10)

	done := make(chan struct{}, 1)
	provider := func(ctx context.Context) ([]Job, error) {
		return []Job{&testJob{
			id: "1",
			execute: func(ctx context.Context) error {
				done <- struct{}{}
				return nil
			},
		}}, nil
	}

	sched, err := New(Config{
		ScheduleTimes: []string{"03:00"},
		WorkerPool:    pool,
		JobProvider:   provider,
	})
	if err != nil {
		t.Fatalf("failed to create scheduler: %v", err)
	}

	sched.Start()
	defer sched.Shutdown(5 * time.Second)

	sched.TriggerNow()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for triggered job")
	}
}
