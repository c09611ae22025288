package client

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBackoffDelay(t *testing.T) {
	tests := []struct {
		name     string
		base     time.Duration
		expected []time.Duration
	}{
		{
			name: "before first connection",
			base: 3 * time.Second,
			expected: []time.Duration{
				3 * time.Second, 6 * time.Second, 12 * time.Second, 24 * time.Second, 30 * time.Second,
			},
		},
		{
			name: "after first connection",
			base: time.Second,
			expected: []time.Duration{
				time.Second, 2 * time.Second, 4 * time.Second, 8 * time.Second, 16 * time.Second,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var delays []time.Duration
			for attempt := 1; attempt <= len(tt.expected); attempt++ {
				delays = append(delays, BackoffDelay(tt.base, attempt, 30*time.Second))
			}

			assert.Equal(t, tt.expected, delays)
		})
	}
}

func TestBackoffDelay_Bounds(t *testing.T) {
	previous := time.Duration(0)
	for attempt := 0; attempt <= 100; attempt++ {
		delay := BackoffDelay(3*time.Second, attempt, 30*time.Second)

		assert.GreaterOrEqual(t, delay, previous)
		assert.LessOrEqual(t, delay, 30*time.Second)

		previous = delay
	}

	assert.Equal(t, 30*time.Second, BackoffDelay(time.Minute, 1, 30*time.Second))
}
