package mongodb

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/goevery/carwash-notify/internal/carwash"
	"github.com/goevery/carwash-notify/internal/persistence"
	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

func TestPersistenceEngineIntegration(t *testing.T) {
	uri := os.Getenv("TEST_MONGODB_URI")
	if uri == "" {
		t.Skip("TEST_MONGODB_URI not set; skipping mongodb integration test")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	require.NoError(t, err)
	defer client.Disconnect(ctx)

	databaseName := "carwash_test_" + gonanoid.MustGenerate("abcdefghijklmnopqrstuvwxyz", 8)
	defer client.Database(databaseName).Drop(ctx)

	engine := NewPersistenceEngine(client, databaseName)
	require.NoError(t, engine.Setup(ctx))

	now := time.Now().UTC().Truncate(time.Millisecond)

	_, err = engine.stations.InsertOne(ctx, carwash.WashingStation{ID: "st1", Name: "Downtown", Address: "1 Main St"})
	require.NoError(t, err)

	_, err = engine.memberships.InsertMany(ctx, []any{
		carwash.Membership{ID: "m-old", UserID: "u1", Name: "Basic", LicensePlate: "AB12345", IsActive: true, ExpiresAt: now.Add(time.Hour), CreatedAt: now.Add(-time.Hour)},
		carwash.Membership{ID: "m-new", UserID: "u1", Name: "Premium", LicensePlate: "AB12345", IsActive: true, ExpiresAt: now.Add(time.Hour), CreatedAt: now},
		carwash.Membership{ID: "m-off", UserID: "u2", Name: "Basic", LicensePlate: "CD67890", IsActive: false, ExpiresAt: now.Add(time.Hour), CreatedAt: now},
	})
	require.NoError(t, err)

	station, err := engine.GetWashingStation(ctx, "st1")
	require.NoError(t, err)
	assert.Equal(t, "Downtown", station.Name)

	_, err = engine.GetWashingStation(ctx, "missing")
	assert.ErrorIs(t, err, persistence.ErrNotFound)

	membership, err := engine.FindActiveMembershipByPlate(ctx, "AB12345")
	require.NoError(t, err)
	assert.Equal(t, "m-new", membership.ID)

	_, err = engine.FindActiveMembershipByPlate(ctx, "CD67890")
	assert.ErrorIs(t, err, persistence.ErrNotFound)
}
