// Package postgres implements the catalog Store on PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/goevery/carwash-notify/internal/carwash"
	"github.com/goevery/carwash-notify/internal/persistence"
	"github.com/golang-migrate/migrate/v4"
	migratepostgres "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

//go:embed migrations/*.sql
var migrations embed.FS

type Store struct {
	db *sqlx.DB
}

var _ persistence.Store = (*Store)(nil)

func New(db *sqlx.DB) *Store {
	return &Store{db: db}
}

// Open connects with the lib/pq driver and verifies the connection.
func Open(ctx context.Context, dsn string) (*Store, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	return New(db), nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Setup applies pending schema migrations.
func (s *Store) Setup(ctx context.Context) error {
	source, err := iofs.New(migrations, "migrations")
	if err != nil {
		return fmt.Errorf("load migrations: %w", err)
	}

	driver, err := migratepostgres.WithInstance(s.db.DB, &migratepostgres.Config{})
	if err != nil {
		return fmt.Errorf("migration driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		return fmt.Errorf("migrator: %w", err)
	}

	err = m.Up()
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", err)
	}

	return nil
}

func (s *Store) GetWashingStation(ctx context.Context, id string) (carwash.WashingStation, error) {
	var station carwash.WashingStation

	err := s.db.GetContext(ctx, &station, `
		SELECT id, name, address
		FROM washing_stations
		WHERE id = $1
	`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return carwash.WashingStation{}, persistence.ErrNotFound
	}
	if err != nil {
		return carwash.WashingStation{}, fmt.Errorf("get washing station: %w", err)
	}

	return station, nil
}

func (s *Store) FindActiveMembershipByPlate(ctx context.Context, licensePlate string) (carwash.Membership, error) {
	var membership carwash.Membership

	err := s.db.GetContext(ctx, &membership, `
		SELECT id, user_id, name, license_plate, is_active, expires_at, created_at
		FROM memberships
		WHERE license_plate = $1 AND is_active = TRUE
		ORDER BY created_at DESC
		LIMIT 1
	`, licensePlate)
	if errors.Is(err, sql.ErrNoRows) {
		return carwash.Membership{}, persistence.ErrNotFound
	}
	if err != nil {
		return carwash.Membership{}, fmt.Errorf("find membership: %w", err)
	}

	return membership, nil
}
