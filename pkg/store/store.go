// Package store persists annotated charts so the server can hand out stable
// chart URLs. Charts are immutable snapshots: saving always creates a new
// document, and a reporting-interval change produces a new chart rather than
// mutating an existing one.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/ledgerflow/flowchart/pkg/export"
	flowerrors "github.com/ledgerflow/flowchart/pkg/errors"
)

// DefaultDatabase is the Mongo database used when the config leaves it empty.
const DefaultDatabase = "flowchart"

const chartCollection = "charts"

// StoredChart is the persisted document for one annotated chart.
type StoredChart struct {
	ID        string       `bson:"_id" json:"id"`
	CreatedAt time.Time    `bson:"created_at" json:"created_at"`
	GraphHash string       `bson:"graph_hash,omitempty" json:"graph_hash,omitempty"`
	Chart     export.Chart `bson:"chart" json:"chart"`
}

// ChartStore is a Mongo-backed chart repository.
type ChartStore struct {
	client *mongo.Client
	coll   *mongo.Collection
}

// Config configures the Mongo connection.
type Config struct {
	URI      string // e.g. "mongodb://localhost:27017"
	Database string // defaults to DefaultDatabase
}

// New connects to Mongo and verifies the connection with a ping.
func New(ctx context.Context, cfg Config) (*ChartStore, error) {
	if cfg.Database == "" {
		cfg.Database = DefaultDatabase
	}
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, flowerrors.Wrap(flowerrors.ErrCodeNetwork, err, "connect to mongo")
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, flowerrors.Wrap(flowerrors.ErrCodeNetwork, err, "ping mongo")
	}
	return &ChartStore{
		client: client,
		coll:   client.Database(cfg.Database).Collection(chartCollection),
	}, nil
}

// Save persists a chart and returns its generated ID.
func (s *ChartStore) Save(ctx context.Context, chart export.Chart, graphHash string) (string, error) {
	doc := StoredChart{
		ID:        uuid.NewString(),
		CreatedAt: time.Now().UTC(),
		GraphHash: graphHash,
		Chart:     chart,
	}
	if _, err := s.coll.InsertOne(ctx, doc); err != nil {
		return "", flowerrors.Wrap(flowerrors.ErrCodeInternal, err, "insert chart")
	}
	return doc.ID, nil
}

// Get loads a stored chart by ID.
func (s *ChartStore) Get(ctx context.Context, id string) (*StoredChart, error) {
	var doc StoredChart
	err := s.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, flowerrors.New(flowerrors.ErrCodeChartNotFound, "chart %s not found", id)
	}
	if err != nil {
		return nil, flowerrors.Wrap(flowerrors.ErrCodeInternal, err, "load chart %s", id)
	}
	return &doc, nil
}

// Delete removes a stored chart. Deleting a missing chart is not an error.
func (s *ChartStore) Delete(ctx context.Context, id string) error {
	if _, err := s.coll.DeleteOne(ctx, bson.M{"_id": id}); err != nil {
		return flowerrors.Wrap(flowerrors.ErrCodeInternal, err, "delete chart %s", id)
	}
	return nil
}

// Close disconnects from Mongo.
func (s *ChartStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}
