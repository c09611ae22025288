package washflow

import (
	"sync"

	"github.com/goevery/carwash-notify/internal/envelope"
)

const DefaultLogSize = 50

// NotificationLog keeps the most recent envelopes, oldest first.
type NotificationLog struct {
	mu      sync.Mutex
	size    int
	entries []envelope.Envelope
}

func NewNotificationLog(size int) *NotificationLog {
	if size <= 0 {
		size = DefaultLogSize
	}

	return &NotificationLog{
		size:    size,
		entries: make([]envelope.Envelope, 0, size),
	}
}

func (l *NotificationLog) Append(env envelope.Envelope) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.entries) == l.size {
		copy(l.entries, l.entries[1:])
		l.entries = l.entries[:l.size-1]
	}

	l.entries = append(l.entries, env)
}

func (l *NotificationLog) Entries() []envelope.Envelope {
	l.mu.Lock()
	defer l.mu.Unlock()

	return append([]envelope.Envelope(nil), l.entries...)
}

func (l *NotificationLog) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	return len(l.entries)
}
