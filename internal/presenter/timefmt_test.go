package presenter

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRelativeBuckets(t *testing.T) {
	now := time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		ago  time.Duration
		want string
	}{
		{"just now", 0, "0s ago"},
		{"seconds", 59 * time.Second, "59s ago"},
		{"minute boundary", time.Minute, "1m ago"},
		{"minutes", 59 * time.Minute, "59m ago"},
		{"hours", 5 * time.Hour, "5h ago"},
		{"hours upper", 23*time.Hour + 59*time.Minute, "23h ago"},
		{"days", 3 * day, "3d ago"},
		{"days upper", 6*day + 23*time.Hour, "6d ago"},
		{"weeks", 7 * day, "1w ago"},
		{"weeks upper", 29 * day, "4w ago"},
		{"absolute", 30 * day, "2026-09-17"},
		{"future", -time.Hour, "0s ago"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Relative(now.Add(-tt.ago), now, time.UTC))
		})
	}
}

func TestAbsolute(t *testing.T) {
	ts := time.Date(2026, 1, 2, 3, 4, 59, 0, time.UTC)
	assert.Equal(t, "2026-01-02 03:04", Absolute(ts, time.UTC))

	plus2 := time.FixedZone("plus2", 2*60*60)
	assert.Equal(t, "2026-01-02 05:04", Absolute(ts, plus2))

	assert.Equal(t, placeholder, Absolute(time.Time{}, time.UTC))
	assert.Equal(t, placeholder, Relative(time.Time{}, ts, time.UTC))
}
