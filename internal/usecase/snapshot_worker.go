package usecase

import (
	"context"
	"time"

	"EnsembleView/internal/domain/models"
	drepo "EnsembleView/internal/domain/repository"
	"EnsembleView/internal/services/analytics"
	"EnsembleView/internal/state"
	"EnsembleView/pkg/logger"
)

// SnapshotWorker reacts to dirty notifications: it recomputes metrics for the
// touched entities, refreshes summary gauges, publishes snapshots and exports
// newly appended observations. Publisher and sink are optional.
type SnapshotWorker struct {
	session *Session
	calc    *analytics.Calculator
	pub     drepo.SnapshotPublisher
	sink    drepo.ObservationSink
	metrics drepo.Metrics
	log     *logger.Logger

	runID   string
	cursors map[string]int
}

func NewSnapshotWorker(
	session *Session,
	calc *analytics.Calculator,
	pub drepo.SnapshotPublisher,
	sink drepo.ObservationSink,
	metrics drepo.Metrics,
	log *logger.Logger,
) *SnapshotWorker {
	if log == nil {
		log = logger.Nop()
	}
	return &SnapshotWorker{
		session: session,
		calc:    calc,
		pub:     pub,
		sink:    sink,
		metrics: metrics,
		log:     log,
		cursors: make(map[string]int),
	}
}

// Run processes notifications until ctx is done.
func (w *SnapshotWorker) Run(ctx context.Context) {
	sub := w.session.Subscribe()
	defer sub.Close()
	for {
		select {
		case <-ctx.Done():
			return
		case <-sub.C():
			keys, reset := sub.Drain()
			w.Process(ctx, keys, reset)
		}
	}
}

// Process handles one drained batch of dirty entities.
func (w *SnapshotWorker) Process(ctx context.Context, keys []string, reset bool) {
	if reset {
		w.cursors = make(map[string]int)
	}
	if len(keys) == 0 && !reset {
		return
	}
	start := time.Now()

	var (
		snaps   []models.Snapshot
		recs    []drepo.ObservationRecord
		summary models.Summary
	)
	w.session.View(func(st *state.State) {
		if st.RunID() != w.runID {
			w.runID = st.RunID()
			w.cursors = make(map[string]int)
		}
		for _, k := range keys {
			status, _ := st.Status().Get(k)
			snaps = append(snaps, models.Snapshot{
				RunID:   w.runID,
				Status:  status,
				Metrics: w.calc.Entity(st, k),
			})
			if w.sink == nil {
				continue
			}
			obs, first := st.TimeSeries().Since(k, w.cursors[k])
			for i, o := range obs {
				recs = append(recs, drepo.ObservationRecord{RunID: w.runID, Ticker: k, Seq: first + i, Observation: o})
			}
			w.cursors[k] = first + len(obs)
		}
		summary = w.calc.Summary(st, w.runID)
	})

	w.metrics.RecordSummary(summary.Entities, summary.TotalPoints, summary.AvgErrorPct)

	if w.pub != nil && len(snaps) > 0 {
		if err := w.pub.PublishBatch(ctx, snaps); err != nil {
			w.metrics.RecordError("publish")
			w.log.Error("publish snapshots failed", logger.Int("count", len(snaps)), logger.Error(err))
		}
	}
	if w.sink != nil && len(recs) > 0 {
		if err := w.sink.StoreBatch(ctx, recs); err != nil {
			w.metrics.RecordError("export")
			w.log.Error("export observations failed", logger.Int("count", len(recs)), logger.Error(err))
		}
	}
	w.metrics.RecordLatency("snapshot", time.Since(start).Seconds())
}
