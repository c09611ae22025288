// Package envelope defines the JSON frames exchanged over the notification
// socket. Every frame is an Envelope whose Type selects the shape of Data.
package envelope

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

type Type string

const (
	TypeConnected           Type = "connected"
	TypePing                Type = "ping"
	TypePong                Type = "pong"
	TypeLicensePlateScanned Type = "license_plate_scanned"
	TypeTestNotification    Type = "test_notification"

	// TypeNotification never travels over the wire. Clients re-emit every
	// received envelope on it for catch-all subscribers.
	TypeNotification Type = "notification"
)

// TimestampLayout is ISO-8601 in UTC with millisecond precision.
const TimestampLayout = "2006-01-02T15:04:05.000Z07:00"

func (t Type) IsWire() bool {
	switch t {
	case TypeConnected, TypePing, TypePong, TypeLicensePlateScanned, TypeTestNotification:
		return true
	default:
		return false
	}
}

type Envelope struct {
	Type      Type            `json:"type"`
	Data      json.RawMessage `json:"data,omitempty"`
	Message   string          `json:"message,omitempty"`
	Timestamp string          `json:"timestamp,omitempty"`
}

// Payload is implemented by every typed data shape. The bound type is what
// ties a Go struct to its envelope discriminator.
type Payload interface {
	EnvelopeType() Type
}

var ErrMissingType = errors.New("envelope has no type")

func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// New builds an envelope for payload, stamped with now.
func New(payload Payload, message string, now time.Time) (Envelope, error) {
	env := Envelope{
		Type:      payload.EnvelopeType(),
		Message:   message,
		Timestamp: FormatTimestamp(now),
	}

	if _, empty := payload.(Empty); empty {
		return env, nil
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, fmt.Errorf("encode %s payload: %w", env.Type, err)
	}

	env.Data = data

	return env, nil
}

// MustNew is New for payloads that cannot fail to encode.
func MustNew(payload Payload, message string, now time.Time) Envelope {
	env, err := New(payload, message, now)
	if err != nil {
		panic(err)
	}

	return env
}

// Parse decodes a single frame.
func Parse(frame []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(frame, &env); err != nil {
		return Envelope{}, fmt.Errorf("decode envelope: %w", err)
	}

	if env.Type == "" {
		return Envelope{}, ErrMissingType
	}

	return env, nil
}

func (e Envelope) Marshal() ([]byte, error) {
	return json.Marshal(e)
}

// Time parses the envelope timestamp. The zero time is returned when the
// timestamp is missing or malformed.
func (e Envelope) Time() time.Time {
	t, err := time.Parse(time.RFC3339Nano, e.Timestamp)
	if err != nil {
		return time.Time{}
	}

	return t
}

// Decode unmarshals the envelope data into the payload type bound to the
// envelope's type. A mismatched type is an error.
func Decode[T Payload](env Envelope) (T, error) {
	var payload T

	if want := payload.EnvelopeType(); env.Type != want {
		return payload, fmt.Errorf("envelope type %q does not carry %q", env.Type, want)
	}

	if len(env.Data) == 0 || string(env.Data) == "null" {
		return payload, nil
	}

	if err := json.Unmarshal(env.Data, &payload); err != nil {
		return payload, fmt.Errorf("decode %s payload: %w", env.Type, err)
	}

	return payload, nil
}
