package billing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestCycleEndingBefore(t *testing.T) {
	tests := []struct {
		name          string
		generationDay int
		now           time.Time
		wantStart     time.Time
		wantEnd       time.Time
	}{
		{
			name:          "generation day already passed this month",
			generationDay: 15,
			now:           date(2026, 8, 20),
			wantStart:     date(2026, 7, 15),
			wantEnd:       date(2026, 8, 15),
		},
		{
			name:          "generation day not reached yet",
			generationDay: 15,
			now:           date(2026, 8, 10),
			wantStart:     date(2026, 6, 15),
			wantEnd:       date(2026, 7, 15),
		},
		{
			name:          "now exactly on generation day",
			generationDay: 15,
			now:           date(2026, 8, 15),
			wantStart:     date(2026, 7, 15),
			wantEnd:       date(2026, 8, 15),
		},
		{
			name:          "day 31 clamps to end of february",
			generationDay: 31,
			now:           date(2026, 3, 10),
			wantStart:     date(2026, 1, 31),
			wantEnd:       date(2026, 2, 28),
		},
		{
			name:          "day 31 clamps to leap february",
			generationDay: 31,
			now:           date(2024, 3, 10),
			wantStart:     date(2024, 1, 31),
			wantEnd:       date(2024, 2, 29),
		},
		{
			name:          "year boundary",
			generationDay: 20,
			now:           date(2026, 1, 5),
			wantStart:     date(2025, 11, 20),
			wantEnd:       date(2025, 12, 20),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cycle := CycleEndingBefore(tt.generationDay, tt.now)
			assert.Equal(t, tt.wantStart, cycle.Start)
			assert.Equal(t, tt.wantEnd, cycle.End)
		})
	}
}

func TestDueDateAfter(t *testing.T) {
	tests := []struct {
		name          string
		paymentDueDay int
		cycleEnd      time.Time
		want          time.Time
	}{
		{
			name:          "due day later in the same month",
			paymentDueDay: 25,
			cycleEnd:      date(2026, 8, 15),
			want:          date(2026, 8, 25),
		},
		{
			name:          "due day already passed rolls to next month",
			paymentDueDay: 5,
			cycleEnd:      date(2026, 8, 15),
			want:          date(2026, 9, 5),
		},
		{
			name:          "due day equal to cycle end rolls forward",
			paymentDueDay: 15,
			cycleEnd:      date(2026, 8, 15),
			want:          date(2026, 9, 15),
		},
		{
			name:          "due day 31 clamps in short month",
			paymentDueDay: 31,
			cycleEnd:      date(2026, 9, 20),
			want:          date(2026, 9, 30),
		},
		{
			name:          "rollover across year boundary",
			paymentDueDay: 5,
			cycleEnd:      date(2026, 12, 20),
			want:          date(2027, 1, 5),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DueDateAfter(tt.paymentDueDay, tt.cycleEnd))
		})
	}
}
