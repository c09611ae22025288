package washflow

import (
	"sync"

	"github.com/goevery/carwash-notify/internal/envelope"
)

type SessionState struct {
	DetectedPlate   string
	SelectedStation *envelope.StationRef
}

// WashSession is the state shared by the wash screens.
type WashSession struct {
	mu    sync.RWMutex
	state SessionState
}

func NewWashSession() *WashSession {
	return &WashSession{}
}

func (s *WashSession) SetDetectedPlate(plate string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state.DetectedPlate = plate
}

func (s *WashSession) SelectStation(station envelope.StationRef) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state.SelectedStation = &station
}

func (s *WashSession) Snapshot() SessionState {
	s.mu.RLock()
	defer s.mu.RUnlock()

	state := s.state
	if state.SelectedStation != nil {
		station := *state.SelectedStation
		state.SelectedStation = &station
	}

	return state
}
