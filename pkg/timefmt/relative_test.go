package timefmt

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var now = time.Date(2026, 3, 20, 12, 0, 0, 0, time.UTC)

func TestSince(t *testing.T) {
	tests := []struct {
		name string
		ago  time.Duration
		want string
	}{
		{"just committed", 0, "less than an hour ago"},
		{"59 minutes", 59 * time.Minute, "less than an hour ago"},
		{"exactly one hour", time.Hour, "1 hour ago"},
		{"one and a half hours", 90 * time.Minute, "1 hour ago"},
		{"five hours", 5 * time.Hour, "5 hours ago"},
		{"23 hours", 23*time.Hour + 59*time.Minute, "23 hours ago"},
		{"one day", 24 * time.Hour, "1 days ago"},
		{"three weeks stays relative", 21 * 24 * time.Hour, "21 days ago"},
		{"future timestamp", -2 * time.Hour, "less than an hour ago"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Since(now.Add(-tt.ago), now))
		})
	}
}

func TestLastActivity(t *testing.T) {
	tests := []struct {
		name string
		ago  time.Duration
		want string
	}{
		{"recent", 3 * time.Hour, "3 hours ago"},
		{"six days", 6*24*time.Hour + 23*time.Hour, "6 days ago"},
		{"seven days falls back to date", 7 * 24 * time.Hour, "2026.03.13"},
		{"months ago", 60 * 24 * time.Hour, "2026.01.19"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, LastActivity(now.Add(-tt.ago), now))
		})
	}
}
