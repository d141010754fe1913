package scheduler

import (
	"context"
	"fmt"
	"time"

	"studyspot/pkg/logger"
	"studyspot/services/subscription/internal/config"
	"studyspot/services/subscription/internal/usecase"

	"github.com/robfig/cron/v3"
)

// Scheduler runs the billing jobs on their cron schedules.
type Scheduler struct {
	cron    *cron.Cron
	jobs    usecase.BillingJobs
	billing *config.Billing
	timeout time.Duration
	logger  *logger.Logger
}

func New(jobs usecase.BillingJobs, billing *config.Billing, logger *logger.Logger) (*Scheduler, error) {
	loc, err := billing.Location()
	if err != nil {
		return nil, err
	}
	c := cron.New(
		cron.WithLocation(loc),
		cron.WithChain(cron.Recover(cron.PrintfLogger(logger))),
	)
	return &Scheduler{
		cron:    c,
		jobs:    jobs,
		billing: billing,
		timeout: billing.Timeout(),
		logger:  logger,
	}, nil
}

// Start registers the jobs and starts the cron loop.
func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc(s.billing.RenewalSchedule, s.renew); err != nil {
		return fmt.Errorf("failed to schedule renewal job: %w", err)
	}
	s.logger.Info("Scheduled renewal job: %s", s.billing.RenewalSchedule)

	if _, err := s.cron.AddFunc(s.billing.OverdueSchedule, s.markOverdue); err != nil {
		return fmt.Errorf("failed to schedule overdue job: %w", err)
	}
	s.logger.Info("Scheduled overdue job: %s", s.billing.OverdueSchedule)

	s.cron.Start()
	return nil
}

// Stop waits for running jobs until ctx is done.
func (s *Scheduler) Stop(ctx context.Context) {
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
		s.logger.Warn("Billing jobs still running at shutdown")
	}
}

func (s *Scheduler) renew() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	start := time.Now()
	result, err := s.jobs.RenewDue(ctx)
	if err != nil {
		s.logger.Error("Renewal job failed: %v", err)
		return
	}
	if result.Renewed+result.Canceled+result.Failed > 0 {
		s.logger.Info("Renewal job: renewed=%d canceled=%d failed=%d (%s)",
			result.Renewed, result.Canceled, result.Failed, time.Since(start).Round(time.Millisecond))
	}
}

func (s *Scheduler) markOverdue() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	marked, err := s.jobs.MarkOverdue(ctx)
	if err != nil {
		s.logger.Error("Overdue job failed: %v", err)
		return
	}
	if marked > 0 {
		s.logger.Info("Overdue job: %d invoices marked overdue", marked)
	}
}
