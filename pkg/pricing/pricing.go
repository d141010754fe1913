// Package pricing holds the money and quota arithmetic shared by the
// booking, payment, credit and subscription services. Amounts are paise.
package pricing

import (
	"errors"
	"fmt"
	"math"
	"time"
	"unicode/utf8"
)

const (
	PlanHourly  = "hourly"
	PlanDaily   = "daily"
	PlanMonthly = "monthly"

	day   = 24 * time.Hour
	month = 30 * day
)

var (
	ErrInvalidPeriod   = errors.New("end time must be after start time")
	ErrInvalidDiscount = errors.New("discount percent must be between 0 and 100")
	ErrUnknownPlanType = errors.New("unknown plan type")
	ErrInvalidUnits    = errors.New("units must be positive")
)

type FeePlanTerms struct {
	PlanType        string
	Price           int64
	DiscountPercent float64
}

type Quote struct {
	Units    int64 `json:"units"`
	Gross    int64 `json:"gross"`
	Discount int64 `json:"discount"`
	Amount   int64 `json:"amount"`
}

func ValidPlanType(planType string) bool {
	switch planType {
	case PlanHourly, PlanDaily, PlanMonthly:
		return true
	}
	return false
}

func unitLength(planType string) (time.Duration, error) {
	switch planType {
	case PlanHourly:
		return time.Hour, nil
	case PlanDaily:
		return day, nil
	case PlanMonthly:
		return month, nil
	}
	return 0, ErrUnknownPlanType
}

// QuotePeriod prices the span [start, end) rounding partial units up.
func QuotePeriod(plan FeePlanTerms, start, end time.Time) (Quote, error) {
	if !end.After(start) {
		return Quote{}, ErrInvalidPeriod
	}
	unit, err := unitLength(plan.PlanType)
	if err != nil {
		return Quote{}, err
	}
	d := end.Sub(start)
	units := int64((d + unit - 1) / unit)
	return QuoteUnits(plan, units)
}

func QuoteUnits(plan FeePlanTerms, units int64) (Quote, error) {
	if !ValidPlanType(plan.PlanType) {
		return Quote{}, ErrUnknownPlanType
	}
	if units <= 0 {
		return Quote{}, ErrInvalidUnits
	}
	if plan.DiscountPercent < 0 || plan.DiscountPercent > 100 {
		return Quote{}, ErrInvalidDiscount
	}

	gross := units * plan.Price
	discount := int64(math.Floor(float64(gross)*plan.DiscountPercent/100 + 0.5))
	return Quote{
		Units:    units,
		Gross:    gross,
		Discount: discount,
		Amount:   gross - discount,
	}, nil
}

// PlanEnd returns the end of units periods starting at start. Monthly plans
// advance by calendar months.
func PlanEnd(planType string, start time.Time, units int64) (time.Time, error) {
	if units <= 0 {
		return time.Time{}, ErrInvalidUnits
	}
	switch planType {
	case PlanHourly:
		return start.Add(time.Duration(units) * time.Hour), nil
	case PlanDaily:
		return start.Add(time.Duration(units) * day), nil
	case PlanMonthly:
		return start.AddDate(0, int(units), 0), nil
	}
	return time.Time{}, ErrUnknownPlanType
}

type FeeBreakdown struct {
	Subtotal    int64 `json:"subtotal"`
	PlatformFee int64 `json:"platform_fee"`
	Tax         int64 `json:"tax"`
	Total       int64 `json:"total"`
}

// Breakdown applies the platform fee to subtotal and tax to subtotal plus fee.
// Rates are basis points.
func Breakdown(subtotal, platformFeeBps, taxBps int64) FeeBreakdown {
	if subtotal <= 0 || platformFeeBps < 0 || taxBps < 0 {
		return FeeBreakdown{}
	}
	fee := applyBps(subtotal, platformFeeBps)
	tax := applyBps(subtotal+fee, taxBps)
	return FeeBreakdown{
		Subtotal:    subtotal,
		PlatformFee: fee,
		Tax:         tax,
		Total:       subtotal + fee + tax,
	}
}

// applyBps rounds half up.
func applyBps(amount, bps int64) int64 {
	return (amount*bps + 5000) / 10000
}

type Level string

const (
	LevelNormal   Level = "normal"
	LevelWarning  Level = "warning"
	LevelCritical Level = "critical"
	LevelExceeded Level = "exceeded"
)

// Percent is used/limit as a percentage with two decimals.
func Percent(used, limit int64) float64 {
	if limit <= 0 {
		return 0
	}
	return math.Round(float64(used)*10000/float64(limit)) / 100
}

func UsageLevel(used, limit int64) Level {
	if limit <= 0 {
		return LevelNormal
	}
	switch {
	case used*100 >= limit*100:
		return LevelExceeded
	case used*100 >= limit*90:
		return LevelCritical
	case used*100 >= limit*75:
		return LevelWarning
	}
	return LevelNormal
}

const (
	smsSingleSegment = 160
	smsMultiSegment  = 153
)

// SMSSegments counts the GSM segments needed to send body.
func SMSSegments(body string) int64 {
	n := int64(utf8.RuneCountInString(body))
	if n == 0 {
		return 0
	}
	if n <= smsSingleSegment {
		return 1
	}
	return (n + smsMultiSegment - 1) / smsMultiSegment
}

// FormatRupees renders paise as rupees with two decimals, e.g. 123450 -> "1234.50".
func FormatRupees(paise int64) string {
	sign := ""
	if paise < 0 {
		sign = "-"
		paise = -paise
	}
	return fmt.Sprintf("%s%d.%02d", sign, paise/100, paise%100)
}
