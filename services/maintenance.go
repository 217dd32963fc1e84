// services/maintenance.go
package services

import (
	"context"
	"log"
	"time"

	"github.com/robfig/cron/v3"
)

const pruneTimeout = time.Minute

type logPruner interface {
	PruneBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// MaintenanceService runs periodic housekeeping next to the reminder scheduler.
type MaintenanceService struct {
	logs      logPruner
	registry  *JobRegistry
	retention time.Duration
	clock     Clock
}

func NewMaintenanceService(logs logPruner, registry *JobRegistry, retention time.Duration, clock Clock) *MaintenanceService {
	if clock == nil {
		clock = RealClock()
	}
	return &MaintenanceService{
		logs:      logs,
		registry:  registry,
		retention: retention,
		clock:     clock,
	}
}

// StartScheduler registers the housekeeping run on the given cron spec and starts it.
// The caller stops the returned cron on shutdown.
func (s *MaintenanceService) StartScheduler(spec string) (*cron.Cron, error) {
	c := cron.New()
	if _, err := c.AddFunc(spec, s.RunOnce); err != nil {
		return nil, err
	}
	c.Start()
	log.Printf("[MAINT] maintenance scheduler started (%s)", spec)
	return c, nil
}

func (s *MaintenanceService) RunOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), pruneTimeout)
	defer cancel()

	if _, err := s.PruneReminderLogs(ctx); err != nil {
		log.Printf("[MAINT] failed to prune reminder logs: %v", err)
	}
	if s.registry != nil {
		log.Printf("[MAINT] %d reminders pending", s.registry.Len())
	}
}

// PruneReminderLogs deletes reminder log entries older than the retention window.
func (s *MaintenanceService) PruneReminderLogs(ctx context.Context) (int64, error) {
	if s.retention <= 0 {
		return 0, nil
	}
	cutoff := s.clock.Now().Add(-s.retention)
	n, err := s.logs.PruneBefore(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		log.Printf("[MAINT] pruned %d reminder logs older than %s", n, cutoff.Format(time.RFC3339))
	}
	return n, nil
}
