package usecase

import (
	"context"
	"testing"
	"time"

	"EnsembleView/internal/services/analytics"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshotWorkerPublishesAndExports(t *testing.T) {
	s, _, m := newTestSession(t)
	pub := &fakePublisher{}
	sink := &fakeSink{}
	w := NewSnapshotWorker(s, analytics.NewCalculator(analytics.DefaultInitialCapital), pub, sink, m, nil)

	runID := s.RunID()
	for _, f := range []string{
		dataFrame("AAPL", "2024-01-01", 100, 101),
		dataFrame("AAPL", "2024-01-02", 100, 102),
		`{"type":"status","ticker":"AAPL","message":"Streaming Predictions..."}`,
	} {
		s.mu.Lock()
		s.router.Route(runID, []byte(f))
		s.mu.Unlock()
	}

	ctx := context.Background()
	w.Process(ctx, []string{"AAPL"}, false)
	require.Equal(t, 1, pub.count())
	assert.Equal(t, "Streaming Predictions...", pub.snaps[0].Status)
	assert.InDelta(t, 2.0, pub.snaps[0].Metrics.ErrorPct, 1e-9)
	assert.Equal(t, runID, pub.snaps[0].RunID)

	recs := sink.records()
	require.Len(t, recs, 2)
	assert.Equal(t, 0, recs[0].Seq)
	assert.Equal(t, 1, recs[1].Seq)

	s.mu.Lock()
	s.router.Route(runID, []byte(dataFrame("AAPL", "2024-01-03", 100, 100)))
	s.mu.Unlock()
	w.Process(ctx, []string{"AAPL"}, false)
	recs = sink.records()
	require.Len(t, recs, 3, "only new observations are exported")
	assert.Equal(t, 2, recs[2].Seq)
	assert.Equal(t, 2, m.summaries)
}

func TestSnapshotWorkerResetsCursorsWithRun(t *testing.T) {
	s, _, m := newTestSession(t)
	sink := &fakeSink{}
	w := NewSnapshotWorker(s, analytics.NewCalculator(analytics.DefaultInitialCapital), nil, sink, m, nil)

	route := func(frame string) {
		s.mu.Lock()
		s.router.Route(s.st.RunID(), []byte(frame))
		s.mu.Unlock()
	}
	route(dataFrame("AAPL", "2024-01-01", 1, 1))
	w.Process(context.Background(), []string{"AAPL"}, false)

	newRun := s.Reset(context.Background())
	route(dataFrame("AAPL", "2024-01-01", 1, 1))
	w.Process(context.Background(), []string{"AAPL"}, true)

	recs := sink.records()
	require.Len(t, recs, 2)
	assert.Equal(t, newRun, recs[1].RunID)
	assert.Equal(t, 0, recs[1].Seq)
}

func TestSnapshotWorkerRunsOnNotifications(t *testing.T) {
	s, stream, m := newTestSession(t)
	pub := &fakePublisher{}
	w := NewSnapshotWorker(s, analytics.NewCalculator(analytics.DefaultInitialCapital), pub, nil, m, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	require.Eventually(t, func() bool {
		s.subsMu.Lock()
		defer s.subsMu.Unlock()
		return len(s.subs) == 1
	}, time.Second, 5*time.Millisecond)

	_, err := s.StartRun(ctx, nil)
	require.NoError(t, err)
	stream.push(dataFrame("AAPL", "2024-01-01", 100, 101))

	require.Eventually(t, func() bool { return pub.count() >= 1 }, time.Second, 5*time.Millisecond)
}
