package service

import (
	"time"

	"github.com/shopspring/decimal"

	"equiploan-backend/internal/domain"
)

// Penalty computes the credit charge for settling a loan after its expected
// return date. The overdue duration is measured in the configured granularity
// (hours or days), partial units count as full units, and the final amount
// rounds up to a whole credit. An on-time settlement always costs zero.
func Penalty(expectedReturn, settledAt time.Time, settings domain.SettingsSnapshot) int64 {
	if !settledAt.After(expectedReturn) {
		return 0
	}

	unit := time.Hour
	if settings.PenaltyType == domain.PenaltyPerDay {
		unit = 24 * time.Hour
	}

	overdue := settledAt.Sub(expectedReturn)
	units := int64(overdue / unit)
	if overdue%unit != 0 {
		units++
	}

	amount := settings.PenaltyCreditPerHour.Mul(decimal.NewFromInt(units)).Ceil().IntPart()
	if amount < 0 {
		return 0
	}
	return amount
}
