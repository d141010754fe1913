package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"studyspot/pkg/logger"
	"studyspot/services/subscription/internal/config"
	"studyspot/services/subscription/internal/usecase"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingJobs struct {
	renewals chan struct{}
	overdue  chan struct{}
	panicky  bool
}

func (j *countingJobs) RenewDue(ctx context.Context) (usecase.RenewalResult, error) {
	if j.panicky {
		panic("boom")
	}
	select {
	case j.renewals <- struct{}{}:
	default:
	}
	return usecase.RenewalResult{Renewed: 1}, nil
}

func (j *countingJobs) MarkOverdue(ctx context.Context) (int, error) {
	select {
	case j.overdue <- struct{}{}:
	default:
	}
	return 0, errors.New("db down")
}

func newJobs() *countingJobs {
	return &countingJobs{renewals: make(chan struct{}, 1), overdue: make(chan struct{}, 1)}
}

func TestStart_RejectsBadSchedule(t *testing.T) {
	s, err := New(newJobs(), &config.Billing{RenewalSchedule: "not a cron", OverdueSchedule: "0 * * * *", Timezone: "UTC"}, logger.New())
	require.NoError(t, err)

	assert.Error(t, s.Start())
}

func TestNew_RejectsBadTimezone(t *testing.T) {
	_, err := New(newJobs(), &config.Billing{Timezone: "Nowhere/City"}, logger.New())
	assert.Error(t, err)
}

func TestJobsRunOnSchedule(t *testing.T) {
	jobs := newJobs()
	s, err := New(jobs, &config.Billing{RenewalSchedule: "@every 1s", OverdueSchedule: "@every 1s", Timezone: "UTC"}, logger.New())
	require.NoError(t, err)
	require.NoError(t, s.Start())
	defer s.Stop(context.Background())

	for _, ch := range []chan struct{}{jobs.renewals, jobs.overdue} {
		select {
		case <-ch:
		case <-time.After(3 * time.Second):
			t.Fatal("job did not run")
		}
	}
}

func TestPanickingJobIsRecovered(t *testing.T) {
	jobs := newJobs()
	jobs.panicky = true
	s, err := New(jobs, &config.Billing{RenewalSchedule: "@every 1s", OverdueSchedule: "@every 1s", Timezone: "UTC"}, logger.New())
	require.NoError(t, err)
	require.NoError(t, s.Start())

	select {
	case <-jobs.overdue:
	case <-time.After(3 * time.Second):
		t.Fatal("overdue job did not run")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	s.Stop(ctx)
}
