// Package memory is a Store kept in process memory, for tests and local
// development.
package memory

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/goevery/carwash-notify/internal/carwash"
	"github.com/goevery/carwash-notify/internal/persistence"
	"gopkg.in/yaml.v3"
)

type Store struct {
	mu sync.RWMutex

	stations    map[string]carwash.WashingStation
	memberships []carwash.Membership
}

var _ persistence.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		stations: make(map[string]carwash.WashingStation),
	}
}

// Seed is the layout of a seed file.
type Seed struct {
	WashingStations []carwash.WashingStation `yaml:"washingStations"`
	Memberships     []carwash.Membership     `yaml:"memberships"`
}

// LoadSeedFile reads a YAML seed file into the store.
func (s *Store) LoadSeedFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read seed file: %w", err)
	}

	return s.LoadSeed(raw)
}

func (s *Store) LoadSeed(raw []byte) error {
	var seed Seed
	if err := yaml.Unmarshal(raw, &seed); err != nil {
		return fmt.Errorf("decode seed: %w", err)
	}

	for _, station := range seed.WashingStations {
		s.PutWashingStation(station)
	}

	for _, membership := range seed.Memberships {
		s.PutMembership(membership)
	}

	return nil
}

func (s *Store) PutWashingStation(station carwash.WashingStation) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stations[station.ID] = station
}

func (s *Store) PutMembership(membership carwash.Membership) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, existing := range s.memberships {
		if existing.ID == membership.ID {
			s.memberships[i] = membership
			return
		}
	}

	s.memberships = append(s.memberships, membership)
}

func (s *Store) Setup(ctx context.Context) error {
	return nil
}

func (s *Store) GetWashingStation(ctx context.Context, id string) (carwash.WashingStation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	station, ok := s.stations[id]
	if !ok {
		return carwash.WashingStation{}, persistence.ErrNotFound
	}

	return station, nil
}

func (s *Store) FindActiveMembershipByPlate(ctx context.Context, licensePlate string) (carwash.Membership, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var (
		latest carwash.Membership
		found  bool
	)

	for _, m := range s.memberships {
		if m.LicensePlate != licensePlate || !m.IsActive {
			continue
		}

		if !found || m.CreatedAt.After(latest.CreatedAt) {
			latest = m
			found = true
		}
	}

	if !found {
		return carwash.Membership{}, persistence.ErrNotFound
	}

	return latest, nil
}
