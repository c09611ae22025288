package client

import "time"

// BackoffDelay is base * 2^(attempt-1), capped at limit. Attempts below 1 are
// treated as the first.
func BackoffDelay(base time.Duration, attempt int, limit time.Duration) time.Duration {
	delay := base
	for i := 1; i < attempt; i++ {
		if delay >= limit {
			break
		}
		delay *= 2
	}

	if delay > limit {
		return limit
	}

	return delay
}
