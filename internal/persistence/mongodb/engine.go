package mongodb

import (
	"context"
	"errors"
	"fmt"

	"github.com/goevery/carwash-notify/internal/carwash"
	"github.com/goevery/carwash-notify/internal/persistence"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

type PersistenceEngine struct {
	stations    *mongo.Collection
	memberships *mongo.Collection
}

var _ persistence.Store = (*PersistenceEngine)(nil)

func NewPersistenceEngine(client *mongo.Client, databaseName string) *PersistenceEngine {
	database := client.Database(databaseName)

	return &PersistenceEngine{
		database.Collection("washingStations"),
		database.Collection("memberships"),
	}
}

func (e *PersistenceEngine) Setup(ctx context.Context) error {
	activePlateIndexModel := mongo.IndexModel{
		Keys: bson.D{
			{Key: "licensePlate", Value: 1},
			{Key: "isActive", Value: 1},
			{Key: "createdAt", Value: -1},
		},
	}

	userIndexModel := mongo.IndexModel{
		Keys: bson.D{{Key: "userId", Value: 1}},
	}

	_, err := e.memberships.Indexes().CreateMany(ctx, []mongo.IndexModel{activePlateIndexModel, userIndexModel})

	return err
}

func (e *PersistenceEngine) GetWashingStation(ctx context.Context, id string) (carwash.WashingStation, error) {
	var station carwash.WashingStation

	err := e.stations.FindOne(ctx, bson.M{"_id": id}).Decode(&station)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return carwash.WashingStation{}, persistence.ErrNotFound
	}
	if err != nil {
		return carwash.WashingStation{}, fmt.Errorf("find washing station: %w", err)
	}

	return station, nil
}

func (e *PersistenceEngine) FindActiveMembershipByPlate(ctx context.Context, licensePlate string) (carwash.Membership, error) {
	filter := bson.M{
		"licensePlate": licensePlate,
		"isActive":     true,
	}
	opts := options.FindOne().
		SetSort(bson.D{{Key: "createdAt", Value: -1}})

	var membership carwash.Membership

	err := e.memberships.FindOne(ctx, filter, opts).Decode(&membership)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return carwash.Membership{}, persistence.ErrNotFound
	}
	if err != nil {
		return carwash.Membership{}, fmt.Errorf("find membership: %w", err)
	}

	return membership, nil
}
