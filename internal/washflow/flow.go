// Package washflow turns license plate notifications into the
// start-a-wash prompt and keeps a log of everything received.
package washflow

import (
	"context"
	"fmt"
	"sync"

	"github.com/goevery/carwash-notify/internal/client"
	"github.com/goevery/carwash-notify/internal/envelope"
	"go.uber.org/zap"
)

const pendingPrompts = 8

type Prompter interface {
	// Confirm asks a yes/no question and reports whether it was accepted.
	Confirm(ctx context.Context, title string, message string) (bool, error)
}

type Navigator interface {
	SelectWashType(ctx context.Context, station envelope.StationRef) error
}

type scanPrompt struct {
	plate   string
	station envelope.StationRef
	message string
}

type subscription struct {
	envelopeType envelope.Type
	id           client.ListenerID
}

// Flow reacts to scans on the bus. Prompts are asked one at a time by Run so
// a slow answer never blocks the socket reader.
type Flow struct {
	logger *zap.Logger
	bus    *client.Bus

	session         *WashSession
	notificationLog *NotificationLog
	prompter        Prompter
	navigator       Navigator

	prompts chan scanPrompt

	mu            sync.Mutex
	subscriptions []subscription
}

func NewFlow(
	logger *zap.Logger,
	bus *client.Bus,
	session *WashSession,
	notificationLog *NotificationLog,
	prompter Prompter,
	navigator Navigator,
) *Flow {
	return &Flow{
		logger:          logger,
		bus:             bus,
		session:         session,
		notificationLog: notificationLog,
		prompter:        prompter,
		navigator:       navigator,
		prompts:         make(chan scanPrompt, pendingPrompts),
	}
}

func (f *Flow) Attach() {
	f.mu.Lock()
	defer f.mu.Unlock()

	if len(f.subscriptions) > 0 {
		return
	}

	scanned := client.Subscribe(f.bus, f.handleScan)
	logged := f.bus.On(envelope.TypeNotification, f.notificationLog.Append)

	f.subscriptions = []subscription{
		{envelope.TypeLicensePlateScanned, scanned},
		{envelope.TypeNotification, logged},
	}
}

func (f *Flow) Detach() {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, sub := range f.subscriptions {
		f.bus.Off(sub.envelopeType, sub.id)
	}

	f.subscriptions = nil
}

func (f *Flow) handleScan(payload envelope.LicensePlateScanned, env envelope.Envelope) {
	f.session.SetDetectedPlate(payload.LicensePlate)
	f.session.SelectStation(payload.WashingStation)

	message := env.Message
	if message == "" {
		message = fmt.Sprintf("Your car %s was detected at %s. Start a wash now?",
			payload.LicensePlate, payload.WashingStation.Name)
	}

	select {
	case f.prompts <- scanPrompt{payload.LicensePlate, payload.WashingStation, message}:
	default:
		f.logger.Warn("prompt queue full, dropping scan",
			zap.String("licensePlate", payload.LicensePlate))
	}
}

// Run asks queued prompts until ctx is done.
func (f *Flow) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case prompt := <-f.prompts:
			f.ask(ctx, prompt)
		}
	}
}

func (f *Flow) ask(ctx context.Context, prompt scanPrompt) {
	accepted, err := f.prompter.Confirm(ctx, "Car detected", prompt.message)
	if err != nil {
		f.logger.Warn("prompt failed", zap.Error(err))
		return
	}

	if !accepted {
		f.logger.Debug("wash prompt dismissed",
			zap.String("licensePlate", prompt.plate))

		return
	}

	err = f.navigator.SelectWashType(ctx, prompt.station)
	if err != nil {
		f.logger.Error("failed to open wash type selection",
			zap.String("washingStationId", prompt.station.ID),
			zap.Error(err))
	}
}
