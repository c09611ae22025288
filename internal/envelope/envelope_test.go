package envelope

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

func TestNew(t *testing.T) {
	now := time.Date(2024, 5, 1, 10, 30, 0, 123_000_000, time.FixedZone("CEST", 2*60*60))

	t.Run("payload is encoded as data", func(t *testing.T) {
		env, err := New(Connected{UserID: "u1"}, "hello", now)
		require.NoError(t, err)

		raw, err := env.Marshal()
		require.NoError(t, err)

		assert.Equal(t, "connected", gjson.GetBytes(raw, "type").String())
		assert.Equal(t, "u1", gjson.GetBytes(raw, "data.userId").String())
		assert.Equal(t, "hello", gjson.GetBytes(raw, "message").String())
		assert.Equal(t, "2024-05-01T08:30:00.123Z", gjson.GetBytes(raw, "timestamp").String())
	})

	t.Run("empty payload has no data", func(t *testing.T) {
		env, err := New(Pong{}, "", now)
		require.NoError(t, err)

		raw, err := env.Marshal()
		require.NoError(t, err)

		assert.Equal(t, "pong", gjson.GetBytes(raw, "type").String())
		assert.False(t, gjson.GetBytes(raw, "data").Exists())
		assert.False(t, gjson.GetBytes(raw, "message").Exists())
	})

	t.Run("timestamp round trips", func(t *testing.T) {
		env := MustNew(Ping{}, "", now)

		assert.True(t, now.Equal(env.Time()))
	})
}

func TestParse(t *testing.T) {
	t.Run("valid frame", func(t *testing.T) {
		env, err := Parse([]byte(`{"type":"test_notification","data":{"message":"hi"},"timestamp":"2024-05-01T08:30:00.000Z"}`))
		require.NoError(t, err)

		assert.Equal(t, TypeTestNotification, env.Type)
		assert.False(t, env.Time().IsZero())
	})

	t.Run("malformed json", func(t *testing.T) {
		_, err := Parse([]byte(`{"type":`))

		assert.Error(t, err)
	})

	t.Run("missing type", func(t *testing.T) {
		_, err := Parse([]byte(`{"data":{}}`))

		assert.ErrorIs(t, err, ErrMissingType)
	})

	t.Run("unknown types are kept", func(t *testing.T) {
		env, err := Parse([]byte(`{"type":"something_new"}`))
		require.NoError(t, err)

		assert.False(t, env.Type.IsWire())
		assert.True(t, env.Time().IsZero())
	})
}

func TestDecode(t *testing.T) {
	scannedAt := time.Date(2024, 5, 1, 8, 30, 0, 0, time.UTC)

	env := MustNew(LicensePlateScanned{
		LicensePlate:   "AB12345",
		WashingStation: StationRef{ID: "st1", Name: "Downtown", Address: "1 Main St"},
		Membership:     MembershipRef{ID: "m1", Name: "Premium"},
		ScannedAt:      scannedAt,
	}, "", scannedAt)

	t.Run("matching type", func(t *testing.T) {
		scanned, err := Decode[LicensePlateScanned](env)
		require.NoError(t, err)

		assert.Equal(t, "AB12345", scanned.LicensePlate)
		assert.Equal(t, "Downtown", scanned.WashingStation.Name)
		assert.Equal(t, "m1", scanned.Membership.ID)
		assert.True(t, scannedAt.Equal(scanned.ScannedAt))
	})

	t.Run("mismatched type", func(t *testing.T) {
		_, err := Decode[TestNotification](env)

		assert.Error(t, err)
	})

	t.Run("empty payload", func(t *testing.T) {
		_, err := Decode[Ping](MustNew(Ping{}, "", scannedAt))

		assert.NoError(t, err)
	})

	t.Run("wrong data shape", func(t *testing.T) {
		_, err := Decode[Connected](Envelope{Type: TypeConnected, Data: []byte(`"u1"`)})

		assert.Error(t, err)
	})
}

func TestType_IsWire(t *testing.T) {
	assert.True(t, TypeLicensePlateScanned.IsWire())
	assert.True(t, TypePing.IsWire())
	assert.False(t, TypeNotification.IsWire())
}
