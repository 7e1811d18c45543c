package service

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"equiploan-backend/internal/domain"
)

func TestPenalty(t *testing.T) {
	due := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		settled  time.Time
		rate     string
		perDay   bool
		expected int64
	}{
		{name: "on time", settled: due, rate: "1", expected: 0},
		{name: "early", settled: due.Add(-time.Hour), rate: "1", expected: 0},
		{name: "exactly one hour late", settled: due.Add(time.Hour), rate: "1", expected: 1},
		{name: "partial hour rounds up", settled: due.Add(61 * time.Minute), rate: "1", expected: 2},
		{name: "six hours late", settled: due.Add(6 * time.Hour), rate: "1", expected: 6},
		{name: "fractional rate rounds up", settled: due.Add(3 * time.Hour), rate: "0.5", expected: 2},
		{name: "one minute late", settled: due.Add(time.Minute), rate: "2.5", expected: 3},
		{name: "daily granularity", settled: due.Add(25 * time.Hour), rate: "10", perDay: true, expected: 20},
		{name: "daily exact", settled: due.Add(24 * time.Hour), rate: "10", perDay: true, expected: 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rate, err := decimal.NewFromString(tt.rate)
			assert.NoError(t, err)

			snap := defaultSnapshot()
			snap.PenaltyCreditPerHour = rate
			if tt.perDay {
				snap.PenaltyType = domain.PenaltyPerDay
			}

			assert.Equal(t, tt.expected, Penalty(due, tt.settled, snap))
		})
	}
}
