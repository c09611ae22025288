// Package carwash holds the catalog records the scan workflow reads.
package carwash

import "time"

type WashingStation struct {
	ID      string `json:"id" db:"id" bson:"_id" yaml:"id"`
	Name    string `json:"name" db:"name" bson:"name" yaml:"name"`
	Address string `json:"address" db:"address" bson:"address" yaml:"address"`
}

// Membership is a user's subscription, scoped to one license plate.
type Membership struct {
	ID           string    `json:"id" db:"id" bson:"_id" yaml:"id"`
	UserID       string    `json:"userId" db:"user_id" bson:"userId" yaml:"userId"`
	Name         string    `json:"name" db:"name" bson:"name" yaml:"name"`
	LicensePlate string    `json:"licensePlate" db:"license_plate" bson:"licensePlate" yaml:"licensePlate"`
	IsActive     bool      `json:"isActive" db:"is_active" bson:"isActive" yaml:"isActive"`
	ExpiresAt    time.Time `json:"expiresAt" db:"expires_at" bson:"expiresAt" yaml:"expiresAt"`
	CreatedAt    time.Time `json:"createdAt" db:"created_at" bson:"createdAt" yaml:"createdAt"`
}

// IsExpired reports whether the membership lapsed before now. A membership
// expiring exactly at now is still valid.
func (m Membership) IsExpired(now time.Time) bool {
	return m.ExpiresAt.Before(now)
}
