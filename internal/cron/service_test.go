package cron

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

type fakeLock struct {
	acquired bool
	held     bool
	calls    int
}

func (f *fakeLock) Acquire(context.Context) (bool, error) {
	f.calls++
	if f.held || f.acquired {
		return false, nil
	}
	f.acquired = true
	return true, nil
}

func (f *fakeLock) Release(context.Context) error { f.acquired = false; return nil }

type testJob struct {
	name  string
	err   error
	every time.Duration
	runs  int
}

func (t *testJob) Name() string { return t.name }

func (t *testJob) Run(context.Context) error {
	t.runs++
	return t.err
}

type scheduledJob struct {
	testJob
}

func (s *scheduledJob) Interval() time.Duration { return s.every }

func newTestService(t *testing.T, lock Lock, clock *time.Time, jobs ...Job) *Service {
	t.Helper()
	service, err := NewService(ServiceParams{
		Logger:   logger.New(logger.Options{ServiceName: "cron-test", Output: io.Discard}),
		Registry: NewRegistry(jobs...),
		Lock:     lock,
		Now:      func() time.Time { return *clock },
	})
	if err != nil {
		t.Fatalf("construct service: %v", err)
	}
	return service
}

func TestServiceRunCycleRunsAllJobsEvenOnFailure(t *testing.T) {
	clock := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	success := &testJob{name: "success"}
	failure := &testJob{name: "fail", err: errors.New("boom")}
	service := newTestService(t, &fakeLock{}, &clock, success, failure)

	if err := service.runCycle(context.Background()); err != nil {
		t.Fatalf("run cycle: %v", err)
	}
	if success.runs != 1 {
		t.Fatalf("expected success job to run once, ran %d", success.runs)
	}
	if failure.runs != 1 {
		t.Fatalf("expected failure job to run once, ran %d", failure.runs)
	}
}

func TestServiceHonoursPerJobCadence(t *testing.T) {
	clock := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	sweep := &scheduledJob{testJob{name: "order-payment-expiry", every: time.Minute}}
	retention := &scheduledJob{testJob{name: "outbox-retention", every: 24 * time.Hour}}
	service := newTestService(t, &fakeLock{}, &clock, sweep, retention)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := service.runCycle(ctx); err != nil {
			t.Fatalf("cycle %d: %v", i, err)
		}
		clock = clock.Add(time.Minute)
	}
	if sweep.runs != 3 {
		t.Fatalf("expected sweep every minute, ran %d", sweep.runs)
	}
	if retention.runs != 1 {
		t.Fatalf("expected retention once, ran %d", retention.runs)
	}

	clock = clock.Add(24 * time.Hour)
	if err := service.runCycle(ctx); err != nil {
		t.Fatalf("run cycle: %v", err)
	}
	if retention.runs != 2 {
		t.Fatalf("expected retention to run after a day, ran %d", retention.runs)
	}
}

func TestServiceSkipsCycleWhenLockHeldElsewhere(t *testing.T) {
	clock := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	job := &testJob{name: "sweep"}
	lock := &fakeLock{held: true}
	service := newTestService(t, lock, &clock, job)

	if err := service.runCycle(context.Background()); err != nil {
		t.Fatalf("run cycle: %v", err)
	}
	if job.runs != 0 {
		t.Fatalf("expected no runs without the lock, got %d", job.runs)
	}
	if lock.calls != 1 {
		t.Fatalf("expected one acquire attempt, got %d", lock.calls)
	}
}

func TestServiceDoesNotLockWhenNothingIsDue(t *testing.T) {
	clock := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	job := &scheduledJob{testJob{name: "retention", every: time.Hour}}
	lock := &fakeLock{}
	service := newTestService(t, lock, &clock, job)
	ctx := context.Background()

	if err := service.runCycle(ctx); err != nil {
		t.Fatalf("first cycle: %v", err)
	}
	clock = clock.Add(time.Minute)
	if err := service.runCycle(ctx); err != nil {
		t.Fatalf("second cycle: %v", err)
	}
	if lock.calls != 1 {
		t.Fatalf("expected a single acquire, got %d", lock.calls)
	}
}

func TestServiceRunStopsOnCancel(t *testing.T) {
	clock := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	job := &testJob{name: "sweep"}
	service := newTestService(t, &fakeLock{}, &clock, job)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := service.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if job.runs != 1 {
		t.Fatalf("expected the initial cycle to run, ran %d", job.runs)
	}
}
