package repository

import (
	"context"
	"strings"
	"testing"
	"time"

	"EnsembleView/internal/domain/models"
	drepo "EnsembleView/internal/domain/repository"
	pkgkafka "EnsembleView/pkg/kafka"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObservationRow(t *testing.T) {
	step := 3
	rec := drepo.ObservationRecord{RunID: "r1", Ticker: "AAPL", Seq: 7, Observation: models.Observation{
		Timestamp: "2024-01-02", Step: &step, Actual: models.Float(100), Weights: []float64{0.5, 0.5},
		AgentAction: models.ActionBuy,
	}}

	row := observationRow(rec)
	require.Len(t, row, len(strings.Split(observationColumns, ",")))
	assert.Equal(t, "r1", row[0])
	assert.Equal(t, uint32(7), row[2])
	ts, ok := row[4].(*time.Time)
	require.True(t, ok)
	require.NotNil(t, ts)
	assert.Equal(t, 2024, ts.Year())
	assert.Equal(t, int32(3), *row[5].(*int32))
	assert.Equal(t, 100.0, *row[6].(*float64))
	assert.Equal(t, "BUY", row[12])
}

func TestObservationRowNullsAndEmptyArrays(t *testing.T) {
	row := observationRow(drepo.ObservationRecord{RunID: "r1", Ticker: "AAPL", Observation: models.Observation{Timestamp: "not a date"}})

	assert.Nil(t, row[4].(*time.Time), "unparseable labels keep a null ts")
	assert.Nil(t, row[5].(*int32))
	assert.Equal(t, []float64{}, row[10], "missing arrays are empty, not null")
	assert.Equal(t, "", row[12])
}

func TestObservationSchemaNamesTable(t *testing.T) {
	stmts := ObservationSchema("ev.observations")
	require.Len(t, stmts, 1)
	assert.Contains(t, stmts[0], "CREATE TABLE IF NOT EXISTS ev.observations")
}

type stubProducer struct {
	topic string
	keys  []string
}

func (p *stubProducer) Publish(_ context.Context, topic string, key []byte, _ interface{}) error {
	p.topic = topic
	p.keys = append(p.keys, string(key))
	return nil
}

func (p *stubProducer) PublishBatch(_ context.Context, topic string, msgs []pkgkafka.Message) error {
	p.topic = topic
	for _, m := range msgs {
		p.keys = append(p.keys, string(m.Key))
	}
	return nil
}

func (p *stubProducer) Close() error { return nil }

func TestKafkaSnapshotPublisherKeysByTicker(t *testing.T) {
	prod := &stubProducer{}
	pub := NewKafkaSnapshotPublisher(prod, "snapshots")
	ctx := context.Background()

	require.NoError(t, pub.Publish(ctx, models.Snapshot{Metrics: models.EntityMetrics{Ticker: "AAPL"}}))
	require.NoError(t, pub.PublishBatch(ctx, []models.Snapshot{
		{Metrics: models.EntityMetrics{Ticker: "MSFT"}},
		{Metrics: models.EntityMetrics{Ticker: "GOOG"}},
	}))
	require.NoError(t, pub.PublishBatch(ctx, nil))

	assert.Equal(t, "snapshots", prod.topic)
	assert.Equal(t, []string{"AAPL", "MSFT", "GOOG"}, prod.keys)
}
