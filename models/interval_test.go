package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTimeRangeOverlaps(t *testing.T) {
	base := time.Date(2030, time.June, 3, 10, 0, 0, 0, time.Local)
	slot := NewTimeRange(base, 60) // 10:00-11:00

	tests := []struct {
		name  string
		other TimeRange
		want  bool
	}{
		{"identical", NewTimeRange(base, 60), true},
		{"contained", NewTimeRange(base.Add(15*time.Minute), 15), true},
		{"overlaps start", NewTimeRange(base.Add(-30*time.Minute), 45), true},
		{"overlaps end", NewTimeRange(base.Add(45*time.Minute), 60), true},
		{"touches end", NewTimeRange(base.Add(60*time.Minute), 30), false},
		{"touches start", NewTimeRange(base.Add(-30*time.Minute), 30), false},
		{"disjoint", NewTimeRange(base.Add(2*time.Hour), 30), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, slot.Overlaps(tt.other))
			assert.Equal(t, tt.want, tt.other.Overlaps(slot), "overlap must be symmetric")
		})
	}
}

func TestNewTimeRangeDuration(t *testing.T) {
	start := time.Date(2030, time.June, 3, 15, 30, 0, 0, time.Local)
	slot := NewTimeRange(start, 40)

	assert.Equal(t, start.Add(40*time.Minute), slot.End)
	assert.Equal(t, 40*time.Minute, slot.Duration())
}
