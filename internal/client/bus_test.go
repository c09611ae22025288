package client

import (
	"testing"
	"time"

	"github.com/goevery/carwash-notify/internal/envelope"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestBus(t *testing.T) {
	scan := envelope.MustNew(envelope.LicensePlateScanned{LicensePlate: "AB12345"}, "", time.Now())

	t.Run("listeners run in registration order", func(t *testing.T) {
		bus := NewBus(zap.NewNop())

		var calls []int
		bus.On(envelope.TypeLicensePlateScanned, func(env envelope.Envelope) { calls = append(calls, 1) })
		bus.On(envelope.TypeLicensePlateScanned, func(env envelope.Envelope) { calls = append(calls, 2) })
		bus.On(envelope.TypeTestNotification, func(env envelope.Envelope) { calls = append(calls, 99) })

		bus.Emit(envelope.TypeLicensePlateScanned, scan)

		assert.Equal(t, []int{1, 2}, calls)
	})

	t.Run("panicking listener does not block others", func(t *testing.T) {
		bus := NewBus(zap.NewNop())

		called := false
		bus.On(envelope.TypeLicensePlateScanned, func(env envelope.Envelope) { panic("boom") })
		bus.On(envelope.TypeLicensePlateScanned, func(env envelope.Envelope) { called = true })

		assert.NotPanics(t, func() {
			bus.Emit(envelope.TypeLicensePlateScanned, scan)
		})
		assert.True(t, called)
	})

	t.Run("off removes only the given listener", func(t *testing.T) {
		bus := NewBus(zap.NewNop())

		var calls []string
		first := bus.On(envelope.TypeLicensePlateScanned, func(env envelope.Envelope) { calls = append(calls, "first") })
		bus.On(envelope.TypeLicensePlateScanned, func(env envelope.Envelope) { calls = append(calls, "second") })

		bus.Off(envelope.TypeLicensePlateScanned, first)
		bus.Off(envelope.TypeLicensePlateScanned, ListenerID(12345))
		bus.Emit(envelope.TypeLicensePlateScanned, scan)

		assert.Equal(t, []string{"second"}, calls)
	})

	t.Run("listener may unsubscribe itself", func(t *testing.T) {
		bus := NewBus(zap.NewNop())

		count := 0
		var id ListenerID
		id = bus.On(envelope.TypeLicensePlateScanned, func(env envelope.Envelope) {
			count++
			bus.Off(envelope.TypeLicensePlateScanned, id)
		})

		bus.Emit(envelope.TypeLicensePlateScanned, scan)
		bus.Emit(envelope.TypeLicensePlateScanned, scan)

		assert.Equal(t, 1, count)
	})
}

func TestSubscribe(t *testing.T) {
	bus := NewBus(zap.NewNop())

	var plates []string
	Subscribe(bus, func(payload envelope.LicensePlateScanned, env envelope.Envelope) {
		plates = append(plates, payload.LicensePlate)
	})

	bus.Emit(envelope.TypeLicensePlateScanned,
		envelope.MustNew(envelope.LicensePlateScanned{LicensePlate: "AB12345"}, "", time.Now()))
	bus.Emit(envelope.TypeLicensePlateScanned,
		envelope.Envelope{Type: envelope.TypeLicensePlateScanned, Data: []byte(`"not an object"`)})

	assert.Equal(t, []string{"AB12345"}, plates)
}
