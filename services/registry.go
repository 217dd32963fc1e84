package services

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// ScheduledJob is a one-shot reminder for a single booking.
type ScheduledJob struct {
	BookingID  uuid.UUID
	Phone      string
	ShiftStart time.Time
	FireAt     time.Time

	state atomic.Int32
	timer Timer
}

func NewScheduledJob(bookingID uuid.UUID, phone string, shiftStart, fireAt time.Time) *ScheduledJob {
	return &ScheduledJob{
		BookingID:  bookingID,
		Phone:      phone,
		ShiftStart: shiftStart,
		FireAt:     fireAt,
	}
}

func (j *ScheduledJob) State() JobState {
	return JobState(j.state.Load())
}

func (j *ScheduledJob) transition(to JobState) bool {
	from := j.State()
	if !IsValidTransition(from, to) {
		return false
	}
	return j.state.CompareAndSwap(int32(from), int32(to))
}

// cancelLocked must be called with the registry lock held.
func (j *ScheduledJob) cancelLocked() bool {
	if !j.transition(JobCancelled) {
		return false
	}
	if j.timer != nil {
		j.timer.Stop()
	}
	return true
}

// JobRegistry holds the active reminder job of each booking.
// Every mutation, including a firing job claiming itself, goes through mu.
type JobRegistry struct {
	mu   sync.Mutex
	jobs map[uuid.UUID]*ScheduledJob
}

func NewJobRegistry() *JobRegistry {
	return &JobRegistry{
		jobs: make(map[uuid.UUID]*ScheduledJob),
	}
}

// Register stores job for its booking and cancels the pending job it replaces.
// arm, when non-nil, is called under the lock to start the job's timer, so the
// timer cannot fire before the job is visible in the registry.
func (r *JobRegistry) Register(job *ScheduledJob, arm func() Timer) {
	r.RegisterBounded(job, 0, arm)
}

// RegisterBounded is Register with a cap on the number of jobs held. Replacing
// the booking's current job never counts against limit; limit <= 0 means no cap.
// It reports whether job was stored.
func (r *JobRegistry) RegisterBounded(job *ScheduledJob, limit int, arm func() Timer) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	prev, exists := r.jobs[job.BookingID]
	if !exists && limit > 0 && len(r.jobs) >= limit {
		return false
	}
	if exists && prev != job {
		prev.cancelLocked()
	}
	r.jobs[job.BookingID] = job

	if arm != nil && job.State() == JobPending {
		job.timer = arm()
	}
	return true
}

func (r *JobRegistry) Lookup(bookingID uuid.UUID) (*ScheduledJob, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	job, exists := r.jobs[bookingID]
	return job, exists
}

// Remove deletes the booking's job, stopping its timer if it has not fired yet.
// Removing an absent booking is a no-op.
func (r *JobRegistry) Remove(bookingID uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if job, exists := r.jobs[bookingID]; exists {
		r.removeLocked(job)
	}
}

// RemoveJob is Remove for one specific job: it does nothing once the booking
// has been bound to a newer job.
func (r *JobRegistry) RemoveJob(job *ScheduledJob) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if current, exists := r.jobs[job.BookingID]; exists && current == job {
		r.removeLocked(job)
	}
}

func (r *JobRegistry) removeLocked(job *ScheduledJob) {
	job.cancelLocked()
	delete(r.jobs, job.BookingID)
}

// Cancel stops a pending job and removes it. It reports whether a pending job was cancelled.
func (r *JobRegistry) Cancel(bookingID uuid.UUID) bool {
	return r.cancel(bookingID) != nil
}

func (r *JobRegistry) cancel(bookingID uuid.UUID) *ScheduledJob {
	r.mu.Lock()
	defer r.mu.Unlock()

	job, exists := r.jobs[bookingID]
	if !exists || !job.cancelLocked() {
		// a firing job removes itself
		return nil
	}
	delete(r.jobs, bookingID)
	return job
}

// CancelAll cancels every pending job and empties the registry.
func (r *JobRegistry) CancelAll() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	cancelled := 0
	for id, job := range r.jobs {
		if job.cancelLocked() {
			cancelled++
		}
		delete(r.jobs, id)
	}
	return cancelled
}

func (r *JobRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.jobs)
}

// claim moves job from pending to fired. A false result means it was cancelled or replaced.
func (r *JobRegistry) claim(job *ScheduledJob) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	return job.transition(JobFired)
}
