package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadBilling_Defaults(t *testing.T) {
	billing, err := LoadBilling()
	require.NoError(t, err)

	assert.Equal(t, "*/15 * * * *", billing.RenewalSchedule)
	assert.Equal(t, "0 * * * *", billing.OverdueSchedule)
	assert.Equal(t, 7, billing.GraceDays)
	assert.Equal(t, 5*time.Minute, billing.Timeout())

	loc, err := billing.Location()
	require.NoError(t, err)
	assert.Equal(t, "Asia/Kolkata", loc.String())
}

func TestLoadBilling_FromEnv(t *testing.T) {
	t.Setenv("BILLING_RENEWAL_SCHEDULE", "0 2 * * *")
	t.Setenv("BILLING_GRACE_DAYS", "3")
	t.Setenv("BILLING_TIMEZONE", "UTC")
	t.Setenv("BILLING_JOB_TIMEOUT_SECONDS", "30")

	billing, err := LoadBilling()
	require.NoError(t, err)

	assert.Equal(t, "0 2 * * *", billing.RenewalSchedule)
	assert.Equal(t, 3, billing.GraceDays)
	assert.Equal(t, 30*time.Second, billing.Timeout())
}

func TestLoadBilling_Invalid(t *testing.T) {
	t.Setenv("BILLING_TIMEZONE", "Mars/Olympus")
	_, err := LoadBilling()
	assert.Error(t, err)

	t.Setenv("BILLING_TIMEZONE", "UTC")
	t.Setenv("BILLING_GRACE_DAYS", "-1")
	_, err = LoadBilling()
	assert.Error(t, err)
}
