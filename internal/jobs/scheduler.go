// Package jobs runs the periodic background tasks.
package jobs

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"

	"floor_service/internal/ledger"
)

// Auditor is the ledger check run on schedule.
type Auditor interface {
	Audit(ctx context.Context) ([]ledger.BalanceViolation, error)
}

type Scheduler struct {
	cron     *cron.Cron
	auditor  Auditor
	schedule string
}

func NewScheduler(auditor Auditor, schedule string) *Scheduler {
	if schedule == "" {
		schedule = "@hourly"
	}
	return &Scheduler{
		cron:     cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger))),
		auditor:  auditor,
		schedule: schedule,
	}
}

// Start registers the jobs and starts the cron loop. It fails on a bad
// schedule expression.
func (s *Scheduler) Start(ctx context.Context) error {
	if _, err := s.cron.AddFunc(s.schedule, func() { s.RunAudit(ctx) }); err != nil {
		return fmt.Errorf("invalid audit schedule %q: %w", s.schedule, err)
	}
	s.cron.Start()
	log.WithField("audit", s.schedule).Info("scheduler started")
	return nil
}

// RunAudit runs one ledger audit and returns the number of violations found.
func (s *Scheduler) RunAudit(ctx context.Context) int {
	log.Debug("[CRON] ledger audit")
	violations, err := s.auditor.Audit(ctx)
	if err != nil {
		log.WithError(err).Error("[CRON] ledger audit failed")
		return 0
	}
	if len(violations) > 0 {
		log.WithField("violations", len(violations)).Error("[CRON] ledger audit found negative balances")
	}
	return len(violations)
}

func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	log.Info("scheduler stopped")
}
