package repository

import (
	"context"
	"fmt"
	"time"

	drepo "EnsembleView/internal/domain/repository"
	pkgch "EnsembleView/pkg/clickhouse"
	"EnsembleView/pkg/util"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
)

// ObservationSchema creates the export table.
func ObservationSchema(table string) []string {
	return []string{fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			run_id          String,
			ticker          LowCardinality(String),
			seq             UInt32,
			label           String,
			ts              Nullable(DateTime),
			step            Nullable(Int32),
			actual          Nullable(Float64),
			adaptive        Nullable(Float64),
			ensemble_mean   Nullable(Float64),
			best_expert     Nullable(Float64),
			weights         Array(Float64),
			model_preds     Array(Float64),
			agent_action    LowCardinality(String),
			agent_amount    Nullable(Float64),
			portfolio_value Nullable(Float64),
			inserted_at     DateTime DEFAULT now()
		) ENGINE = MergeTree
		ORDER BY (run_id, ticker, seq)`, table)}
}

const observationColumns = "run_id, ticker, seq, label, ts, step, actual, adaptive, ensemble_mean, best_expert, weights, model_preds, agent_action, agent_amount, portfolio_value"

// ClickHouseObservationSink writes observations to ClickHouse through native
// batches. Nothing is ever read back.
type ClickHouseObservationSink struct {
	conn  driver.Conn
	table string
}

func NewClickHouseObservationSink(ch *pkgch.Client, table string) *ClickHouseObservationSink {
	return &ClickHouseObservationSink{conn: ch.Conn(), table: ch.Table(table)}
}

func (s *ClickHouseObservationSink) StoreBatch(ctx context.Context, recs []drepo.ObservationRecord) error {
	if len(recs) == 0 {
		return nil
	}
	batch, err := s.conn.PrepareBatch(ctx, "INSERT INTO "+s.table+" ("+observationColumns+")")
	if err != nil {
		return fmt.Errorf("prepare observation batch: %w", err)
	}
	for _, r := range recs {
		if err := batch.Append(observationRow(r)...); err != nil {
			_ = batch.Abort()
			return fmt.Errorf("append observation %s#%d: %w", r.Ticker, r.Seq, err)
		}
	}
	if err := batch.Send(); err != nil {
		return fmt.Errorf("send observation batch: %w", err)
	}
	return nil
}

func (s *ClickHouseObservationSink) Health(ctx context.Context) error {
	return s.conn.Ping(ctx)
}

// Close is a no-op; the connection belongs to the clickhouse client.
func (s *ClickHouseObservationSink) Close() error { return nil }

// observationRow lays r out in observationColumns order. Absent optionals are
// nil pointers (NULL); absent vectors are empty arrays.
func observationRow(r drepo.ObservationRecord) []interface{} {
	o := r.Observation
	var ts *time.Time
	if t, ok := util.ParseTime(o.Timestamp); ok {
		ts = &t
	}
	var step *int32
	if o.Step != nil {
		v := int32(*o.Step)
		step = &v
	}
	return []interface{}{
		r.RunID,
		r.Ticker,
		uint32(r.Seq),
		o.Timestamp,
		ts,
		step,
		o.Actual,
		o.Adaptive,
		o.EnsembleMean,
		o.BestExpert,
		nonNil(o.Weights),
		nonNil(o.ModelPreds),
		string(o.AgentAction),
		o.AgentAmount,
		o.PortfolioValue,
	}
}

func nonNil(xs []float64) []float64 {
	if xs == nil {
		return []float64{}
	}
	return xs
}

var _ drepo.ObservationSink = (*ClickHouseObservationSink)(nil)
