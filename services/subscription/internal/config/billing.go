package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Billing holds the settings of the renewal and dunning jobs.
type Billing struct {
	RenewalSchedule string `mapstructure:"BILLING_RENEWAL_SCHEDULE"`
	OverdueSchedule string `mapstructure:"BILLING_OVERDUE_SCHEDULE"`
	GraceDays       int    `mapstructure:"BILLING_GRACE_DAYS"`
	Timezone        string `mapstructure:"BILLING_TIMEZONE"`
	JobTimeout      int    `mapstructure:"BILLING_JOB_TIMEOUT_SECONDS"`
}

// LoadBilling reads the billing settings from the environment.
func LoadBilling() (*Billing, error) {
	v := viper.New()
	v.SetDefault("BILLING_RENEWAL_SCHEDULE", "*/15 * * * *")
	v.SetDefault("BILLING_OVERDUE_SCHEDULE", "0 * * * *")
	v.SetDefault("BILLING_GRACE_DAYS", 7)
	v.SetDefault("BILLING_TIMEZONE", "Asia/Kolkata")
	v.SetDefault("BILLING_JOB_TIMEOUT_SECONDS", 300)
	v.AutomaticEnv()

	_ = v.BindEnv("BILLING_RENEWAL_SCHEDULE")
	_ = v.BindEnv("BILLING_OVERDUE_SCHEDULE")
	_ = v.BindEnv("BILLING_GRACE_DAYS")
	_ = v.BindEnv("BILLING_TIMEZONE")
	_ = v.BindEnv("BILLING_JOB_TIMEOUT_SECONDS")

	var billing Billing
	if err := v.Unmarshal(&billing); err != nil {
		return nil, err
	}
	if billing.GraceDays < 0 {
		return nil, fmt.Errorf("BILLING_GRACE_DAYS must not be negative")
	}
	if _, err := billing.Location(); err != nil {
		return nil, err
	}
	return &billing, nil
}

func (b *Billing) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(b.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid BILLING_TIMEZONE %q: %w", b.Timezone, err)
	}
	return loc, nil
}

func (b *Billing) Timeout() time.Duration {
	if b.JobTimeout <= 0 {
		return 5 * time.Minute
	}
	return time.Duration(b.JobTimeout) * time.Second
}
