package pipeline_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/fsoi-stats/internal/domain"
	"github.com/couchcryptid/fsoi-stats/internal/pipeline"
)

func TestParseCycle(t *testing.T) {
	got, err := pipeline.ParseCycle("2020010112")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2020, 1, 1, 12, 0, 0, 0, time.UTC), got)

	for _, bad := range []string{"", "20200101", "2020-01-01", "2020010125"} {
		t.Run(bad, func(t *testing.T) {
			_, err := pipeline.ParseCycle(bad)
			require.ErrorIs(t, err, domain.ErrUsage)
		})
	}
}

func TestCycleDates(t *testing.T) {
	at := func(day, hour int) time.Time { return time.Date(2020, 1, day, hour, 0, 0, 0, time.UTC) }

	tests := []struct {
		name       string
		start, end time.Time
		cycles     []int
		want       []time.Time
	}{
		{
			name:   "single cycle over two days",
			start:  at(1, 0),
			end:    at(2, 0),
			cycles: []int{0},
			want:   []time.Time{at(1, 0), at(2, 0)},
		},
		{
			name:  "synoptic default",
			start: at(1, 0),
			end:   at(1, 18),
			want:  []time.Time{at(1, 0), at(1, 6), at(1, 12), at(1, 18)},
		},
		{
			name:   "start mid-day",
			start:  at(1, 7),
			end:    at(2, 6),
			cycles: []int{18, 6, 6},
			want:   []time.Time{at(1, 18), at(2, 6)},
		},
		{
			name:   "same instant",
			start:  at(3, 12),
			end:    at(3, 12),
			cycles: []int{12},
			want:   []time.Time{at(3, 12)},
		},
		{
			name:   "no cycle in range",
			start:  at(1, 1),
			end:    at(1, 5),
			cycles: []int{0},
			want:   nil,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := pipeline.CycleDates(tt.start, tt.end, tt.cycles)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCycleDates_EndBeforeStart(t *testing.T) {
	_, err := pipeline.CycleDates(time.Date(2020, 1, 2, 0, 0, 0, 0, time.UTC), time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC), nil)
	require.ErrorIs(t, err, domain.ErrUsage)
}
