package store

import (
	"context"
	"time"

	"github.com/rastreobus/rastreobus/pkg/database"
	"github.com/rastreobus/rastreobus/pkg/fleet"
	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoStore is the LocationStore backed by the shared database connection.
type MongoStore struct {
	locks *vehicleLocks
}

func NewMongoStore() *MongoStore {
	return &MongoStore{
		locks: newVehicleLocks(),
	}
}

func (s *MongoStore) RecordFix(ctx context.Context, fix fleet.VehicleFix) error {
	if err := fix.Validate(); err != nil {
		return err
	}

	unlock := s.locks.Lock(fix.VehicleID)
	defer unlock()

	current, err := s.Latest(ctx, fix.VehicleID)
	if err != nil {
		return err
	}

	if !acceptGate(current, fix) {
		return ErrStaleFix
	}

	state := fleet.VehicleState{
		VehicleID: fix.VehicleID,
		LastFix:   fix,
		UpdatedAt: fix.Time(),
	}
	historyEntry := fleet.NewFixHistoryEntry(fix, time.Now())

	// The state upsert and the history append stand or fall together.
	// Transactions need a replica set; run mongod with --replSet locally.
	session, err := database.Instance.Client.StartSession()
	if err != nil {
		return err
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sessionContext mongo.SessionContext) (interface{}, error) {
		statesCollection := database.GetCollection("vehicle_states")
		_, err := statesCollection.UpdateOne(
			sessionContext,
			bson.M{"vehicleid": fix.VehicleID},
			bson.M{"$set": state},
			options.Update().SetUpsert(true),
		)
		if err != nil {
			return nil, err
		}

		fixesCollection := database.GetCollection("vehicle_fixes")
		if _, err := fixesCollection.InsertOne(sessionContext, historyEntry); err != nil {
			return nil, err
		}

		return nil, nil
	})

	return err
}

func (s *MongoStore) Latest(ctx context.Context, vehicleID string) (*fleet.VehicleState, error) {
	statesCollection := database.GetCollection("vehicle_states")

	var state fleet.VehicleState
	err := statesCollection.FindOne(ctx, bson.M{"vehicleid": vehicleID}).Decode(&state)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return &state, nil
}

func (s *MongoStore) LatestAll(ctx context.Context) ([]fleet.VehicleState, error) {
	statesCollection := database.GetCollection("vehicle_states")

	cursor, err := statesCollection.Find(ctx, bson.M{})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	states := []fleet.VehicleState{}
	for cursor.Next(ctx) {
		var state fleet.VehicleState
		if err := cursor.Decode(&state); err != nil {
			log.Error().Err(err).Msg("Failed to decode VehicleState")
			continue
		}

		states = append(states, state)
	}

	return states, cursor.Err()
}

func (s *MongoStore) History(ctx context.Context, vehicleID string, limit int64, since time.Time) ([]fleet.FixHistoryEntry, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}

	query := bson.M{"vehicleid": vehicleID}
	if !since.IsZero() {
		query["timestamp"] = bson.M{"$gt": since.UnixMilli()}
	}

	fixesCollection := database.GetCollection("vehicle_fixes")
	cursor, err := fixesCollection.Find(ctx, query,
		options.Find().SetSort(bson.D{{Key: "timestamp", Value: -1}}).SetLimit(limit))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	entries := []fleet.FixHistoryEntry{}
	for cursor.Next(ctx) {
		var entry fleet.FixHistoryEntry
		if err := cursor.Decode(&entry); err != nil {
			log.Error().Err(err).Msg("Failed to decode FixHistoryEntry")
			continue
		}

		entries = append(entries, entry)
	}

	return entries, cursor.Err()
}

func (s *MongoStore) Nearby(ctx context.Context, longitude float64, latitude float64, maxDistanceMetres float64) ([]fleet.VehicleState, error) {
	statesCollection := database.GetCollection("vehicle_states")

	cursor, err := statesCollection.Find(ctx, bson.M{
		"lastfix.location": bson.M{
			"$nearSphere": bson.M{
				"$geometry": bson.M{
					"type":        "Point",
					"coordinates": []float64{longitude, latitude},
				},
				"$maxDistance": maxDistanceMetres,
			},
		},
	})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	states := []fleet.VehicleState{}
	for cursor.Next(ctx) {
		var state fleet.VehicleState
		if err := cursor.Decode(&state); err != nil {
			log.Error().Err(err).Msg("Failed to decode VehicleState")
			continue
		}

		states = append(states, state)
	}

	return states, cursor.Err()
}
