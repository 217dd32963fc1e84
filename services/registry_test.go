package services

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubTimer struct {
	stopped atomic.Bool
}

func (t *stubTimer) Stop() bool {
	return t.stopped.CompareAndSwap(false, true)
}

func newTestJob(id uuid.UUID) *ScheduledJob {
	start := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	return NewScheduledJob(id, "+15550100", start, start.Add(-30*time.Minute))
}

func registerWithStub(r *JobRegistry, job *ScheduledJob) *stubTimer {
	timer := &stubTimer{}
	r.Register(job, func() Timer { return timer })
	return timer
}

func TestJobRegistry_RegisterReplacesPendingJob(t *testing.T) {
	r := NewJobRegistry()
	id := uuid.New()

	var jobs []*ScheduledJob
	var timers []*stubTimer
	for i := 0; i < 5; i++ {
		job := newTestJob(id)
		jobs = append(jobs, job)
		timers = append(timers, registerWithStub(r, job))
	}

	assert.Equal(t, 1, r.Len())
	current, ok := r.Lookup(id)
	require.True(t, ok)
	assert.Same(t, jobs[4], current)
	assert.Equal(t, JobPending, current.State())
	assert.False(t, timers[4].stopped.Load())

	for i := 0; i < 4; i++ {
		assert.Equal(t, JobCancelled, jobs[i].State(), "job %d", i)
		assert.True(t, timers[i].stopped.Load(), "timer %d", i)
	}
}

func TestJobRegistry_RegisterSkipsArmingNonPendingJob(t *testing.T) {
	r := NewJobRegistry()
	job := newTestJob(uuid.New())
	job.state.Store(int32(JobCancelled))

	armed := false
	r.Register(job, func() Timer { armed = true; return &stubTimer{} })
	assert.False(t, armed)
}

func TestJobRegistry_Cancel(t *testing.T) {
	r := NewJobRegistry()
	job := newTestJob(uuid.New())
	timer := registerWithStub(r, job)

	assert.True(t, r.Cancel(job.BookingID))
	assert.Equal(t, JobCancelled, job.State())
	assert.True(t, timer.stopped.Load())
	_, ok := r.Lookup(job.BookingID)
	assert.False(t, ok)

	// second cancel is a no-op
	assert.False(t, r.Cancel(job.BookingID))
}

func TestJobRegistry_RemoveAndCancelAreIdempotent(t *testing.T) {
	r := NewJobRegistry()
	id := uuid.New()

	assert.NotPanics(t, func() {
		r.Remove(id)
		r.Remove(id)
	})
	assert.False(t, r.Cancel(id))
	assert.Equal(t, 0, r.Len())
}

func TestJobRegistry_RemoveStopsPendingJob(t *testing.T) {
	r := NewJobRegistry()
	id := uuid.New()
	job := newTestJob(id)
	timer := registerWithStub(r, job)

	r.Remove(id)

	assert.True(t, timer.stopped.Load())
	assert.Equal(t, JobCancelled, job.State())
	assert.False(t, r.claim(job), "a removed job never fires")
	assert.Equal(t, 0, r.Len())

	next := newTestJob(id)
	registerWithStub(r, next)
	assert.Equal(t, JobPending, next.State())
	assert.Equal(t, 1, r.Len())
}

func TestJobRegistry_RegisterBounded(t *testing.T) {
	r := NewJobRegistry()
	first := newTestJob(uuid.New())
	second := newTestJob(uuid.New())

	armed := 0
	arm := func() Timer { armed++; return &stubTimer{} }

	require.True(t, r.RegisterBounded(first, 2, arm))
	require.True(t, r.RegisterBounded(second, 2, arm))

	extra := newTestJob(uuid.New())
	assert.False(t, r.RegisterBounded(extra, 2, arm))
	assert.Equal(t, JobPending, extra.State())
	assert.Equal(t, 2, armed, "a rejected job is never armed")

	replacement := newTestJob(first.BookingID)
	assert.True(t, r.RegisterBounded(replacement, 2, arm), "replacing a booking's job does not count against the cap")
	assert.Equal(t, JobCancelled, first.State())
	assert.Equal(t, 2, r.Len())

	assert.True(t, r.RegisterBounded(extra, 0, arm), "no cap when limit is zero")
}

func TestJobRegistry_RegisterBoundedConcurrent(t *testing.T) {
	r := NewJobRegistry()
	const limit = 5

	var stored atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if r.RegisterBounded(newTestJob(uuid.New()), limit, func() Timer { return &stubTimer{} }) {
				stored.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(limit), stored.Load())
	assert.Equal(t, limit, r.Len())
}

func TestJobRegistry_CancelLosesToClaimedJob(t *testing.T) {
	r := NewJobRegistry()
	job := newTestJob(uuid.New())
	timer := registerWithStub(r, job)

	require.True(t, r.claim(job))
	assert.False(t, r.Cancel(job.BookingID))
	assert.Equal(t, JobFired, job.State())
	assert.False(t, timer.stopped.Load())
	assert.False(t, r.claim(job), "a fired job is never claimed twice")

	_, ok := r.Lookup(job.BookingID)
	assert.True(t, ok, "a firing job stays registered until it is removed")
	r.RemoveJob(job)
	assert.Equal(t, 0, r.Len())
}

func TestJobRegistry_RemoveJobKeepsNewerJob(t *testing.T) {
	r := NewJobRegistry()
	id := uuid.New()
	old := newTestJob(id)
	registerWithStub(r, old)
	require.True(t, r.claim(old))

	newer := newTestJob(id)
	newerTimer := registerWithStub(r, newer)
	r.RemoveJob(old)

	current, ok := r.Lookup(id)
	require.True(t, ok)
	assert.Same(t, newer, current)
	assert.Equal(t, JobPending, newer.State())
	assert.Equal(t, JobFired, old.State(), "fired jobs are not cancelled by replacement")
	assert.False(t, newerTimer.stopped.Load())
}

func TestJobRegistry_CancelAll(t *testing.T) {
	r := NewJobRegistry()
	for i := 0; i < 3; i++ {
		registerWithStub(r, newTestJob(uuid.New()))
	}
	fired := newTestJob(uuid.New())
	registerWithStub(r, fired)
	require.True(t, r.claim(fired))

	assert.Equal(t, 3, r.CancelAll())
	assert.Equal(t, 0, r.Len())
}

func TestJobRegistry_ConcurrentRegisterSameBooking(t *testing.T) {
	r := NewJobRegistry()
	id := uuid.New()

	const n = 50
	jobs := make([]*ScheduledJob, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		jobs[i] = newTestJob(id)
		wg.Add(1)
		go func(job *ScheduledJob) {
			defer wg.Done()
			registerWithStub(r, job)
		}(jobs[i])
	}
	wg.Wait()

	pending := 0
	for _, job := range jobs {
		if job.State() == JobPending {
			pending++
		}
	}
	assert.Equal(t, 1, pending)
	assert.Equal(t, 1, r.Len())
}
