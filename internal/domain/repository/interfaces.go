package repository

import (
	"context"

	"EnsembleView/internal/domain/models"
)

// SimulationStream is the inbound push channel from the simulation backend.
// Read delivers raw frames until the connection drops (error) or the source
// closes (both channels closed).
type SimulationStream interface {
	Connect(ctx context.Context) error
	Start(ctx context.Context, cmd models.StartCommand) error
	Read(ctx context.Context) (<-chan []byte, <-chan error)
	Reconnect(ctx context.Context) error
	Close() error
	IsConnected() bool
}

// SnapshotPublisher fans per-entity snapshots out to downstream consumers.
type SnapshotPublisher interface {
	Publish(ctx context.Context, s models.Snapshot) error
	PublishBatch(ctx context.Context, snaps []models.Snapshot) error
	Close() error
}

// ObservationRecord is an observation tagged with its run and entity.
type ObservationRecord struct {
	RunID       string
	Ticker      string
	Seq         int
	Observation models.Observation
}

// ObservationSink is a write-only export of observations.
type ObservationSink interface {
	StoreBatch(ctx context.Context, recs []ObservationRecord) error
	Health(ctx context.Context) error
	Close() error
}

type Metrics interface {
	RecordMessage(kind string)
	RecordDropped(reason string)
	RecordError(kind string)
	RecordOutOfOrder(ticker string)
	RecordLastPrice(ticker string, price float64)
	RecordLatency(op string, seconds float64)
	RecordSummary(entities, totalPoints int, avgErrorPct float64)
}
