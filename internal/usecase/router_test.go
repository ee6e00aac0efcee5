package usecase

import (
	"fmt"
	"testing"

	"EnsembleView/internal/domain/models"
	"EnsembleView/internal/state"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type dirtyRecorder struct{ keys []string }

func (d *dirtyRecorder) MarkDirty(ticker string) { d.keys = append(d.keys, ticker) }

func newTestRouter(t *testing.T) (*MessageRouter, *state.State, *fakeMetrics, *dirtyRecorder) {
	t.Helper()
	n := 0
	st := state.New(state.WithRunIDGenerator(func() string {
		n++
		return fmt.Sprintf("run-%d", n)
	}))
	m := newFakeMetrics()
	d := &dirtyRecorder{}
	return NewMessageRouter(st, m, d, nil), st, m, d
}

func dataFrame(ticker, date string, actual, adaptive float64) string {
	return fmt.Sprintf(`{"type":"data","ticker":%q,"date":%q,"actual":%v,"adaptive":%v,"weights":[0.5,0.5]}`,
		ticker, date, actual, adaptive)
}

func TestRouterAppendsDataInArrivalOrder(t *testing.T) {
	r, st, m, d := newTestRouter(t)
	run := st.RunID()

	for i := 0; i < 25; i++ {
		ok := r.Route(run, []byte(dataFrame("AAPL", fmt.Sprintf("2024-01-%02d", i+1), 100+float64(i), 101)))
		require.True(t, ok)
	}

	series := st.Series("AAPL")
	require.Len(t, series, 25)
	for i, obs := range series {
		assert.Equal(t, fmt.Sprintf("2024-01-%02d", i+1), obs.Timestamp)
		assert.Equal(t, 100+float64(i), *obs.Actual)
	}
	assert.Equal(t, 25, m.messages["data"])
	assert.Equal(t, 124.0, m.lastPrice["AAPL"])
	assert.Len(t, d.keys, 25)
}

func TestRouterRegistersOnFirstData(t *testing.T) {
	r, st, _, _ := newTestRouter(t)
	run := st.RunID()

	r.Route(run, []byte(dataFrame("MSFT", "2024-01-01", 1, 1)))
	r.Route(run, []byte(dataFrame("AAPL", "2024-01-01", 1, 1)))
	r.Route(run, []byte(dataFrame("MSFT", "2024-01-02", 1, 1)))
	r.Route(run, []byte(`{"type":"status","ticker":"GOOG","message":"Training"}`))

	assert.Equal(t, []string{"MSFT", "AAPL"}, st.Entities())
}

func TestRouterStatusLogError(t *testing.T) {
	r, st, _, d := newTestRouter(t)
	run := st.RunID()

	require.True(t, r.Route(run, []byte(`{"type":"status","ticker":"AAPL","message":"Training"}`)))
	require.True(t, r.Route(run, []byte(`{"type":"status","ticker":"AAPL","message":"Predicting"}`)))
	require.True(t, r.Route(run, []byte(`{"type":"log","ticker":"AAPL","message":"epoch 1"}`)))
	require.True(t, r.Route(run, []byte(`{"type":"log","ticker":"AAPL","message":"epoch 2"}`)))

	status, ok := st.Status().Get("AAPL")
	require.True(t, ok)
	assert.Equal(t, "Predicting", status)
	assert.Equal(t, []string{"epoch 1", "epoch 2"}, st.Logs().All("AAPL"))

	require.True(t, r.Route(run, []byte(`{"type":"error","ticker":"AAPL","message":"download failed"}`)))
	status, _ = st.Status().Get("AAPL")
	assert.Equal(t, "ERROR: download failed", status)
	assert.True(t, state.IsError(status))
	assert.Empty(t, st.Entities(), "non-data messages do not register entities")
	assert.Len(t, d.keys, 5)
}

func TestRouterDropsBadInput(t *testing.T) {
	r, st, m, d := newTestRouter(t)
	run := st.RunID()

	cases := []struct {
		name   string
		frame  string
		reason string
	}{
		{"malformed json", `{"type":"data",`, DropMalformed},
		{"unknown type", `{"type":"heartbeat","ticker":"AAPL"}`, DropUnknownType},
		{"missing type", `{"ticker":"AAPL","message":"x"}`, DropUnknownType},
		{"missing ticker", `{"type":"log","message":"x"}`, DropMissingTicker},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			before := m.droppedFor(tc.reason)
			assert.False(t, r.Route(run, []byte(tc.frame)))
			assert.Equal(t, before+1, m.droppedFor(tc.reason))
		})
	}

	require.True(t, r.Route(run, []byte(dataFrame("AAPL", "2024-01-01", 1, 1))))
	assert.Len(t, st.Series("AAPL"), 1)
	assert.Equal(t, []string{"AAPL"}, d.keys)
}

func TestRouterIgnoresStaleRunAfterReset(t *testing.T) {
	r, st, m, _ := newTestRouter(t)
	oldRun := st.RunID()

	require.True(t, r.Route(oldRun, []byte(dataFrame("X", "2024-01-01", 10, 11))))
	newRun := st.Reset()
	r.ResetRun()
	require.NotEqual(t, oldRun, newRun)

	assert.False(t, r.Route(oldRun, []byte(`{"type":"log","ticker":"X","message":"late line"}`)))
	assert.False(t, r.Route(oldRun, []byte(dataFrame("X", "2024-01-02", 10, 11))))

	assert.False(t, st.Known("X"))
	assert.Empty(t, st.Entities())
	assert.Equal(t, 2, m.droppedFor(DropStaleRun))
}

func TestRouterHonorsWireRunID(t *testing.T) {
	r, st, m, _ := newTestRouter(t)
	run := st.RunID()

	assert.False(t, r.Route(run, []byte(`{"type":"log","ticker":"X","message":"m","run_id":"other"}`)))
	assert.True(t, r.Route(run, []byte(fmt.Sprintf(`{"type":"log","ticker":"X","message":"m","run_id":%q}`, run))))
	assert.Equal(t, 1, m.droppedFor(DropStaleRun))
}

func TestRouterKeepsBackwardsTimestamps(t *testing.T) {
	r, st, m, _ := newTestRouter(t)
	run := st.RunID()

	r.Route(run, []byte(dataFrame("AAPL", "2024-01-05", 1, 1)))
	r.Route(run, []byte(dataFrame("AAPL", "2024-01-03", 1, 1)))

	series := st.Series("AAPL")
	require.Len(t, series, 2)
	assert.Equal(t, "2024-01-03", series[1].Timestamp)
	assert.Equal(t, 1, m.outOfOrder["AAPL"])
}

func TestRouterDataPayload(t *testing.T) {
	r, st, _, _ := newTestRouter(t)
	frame := `{"type":"data","ticker":"NVDA","date":"2024-02-01","step":7,"actual":100,"adaptive":102,
		"ensemble_mean":101,"best_expert":99,"weights":[1,1,2],"model_preds":[100,101,103],
		"agent_action":"buy","agent_amount":3,"portfolio_value":10500}`

	require.True(t, r.Route(st.RunID(), []byte(frame)))
	obs, ok := st.Latest("NVDA")
	require.True(t, ok)
	assert.Equal(t, 7, *obs.Step)
	assert.Equal(t, models.ActionBuy, obs.AgentAction)
	assert.Equal(t, []float64{1, 1, 2}, obs.Weights)
	assert.Equal(t, []float64{100, 101, 103}, obs.ModelPreds)
	assert.Equal(t, 101.0, *obs.EnsembleMean)
	assert.Equal(t, 10500.0, *obs.PortfolioValue)
}

func TestRouterRequireWireRunID(t *testing.T) {
	st := state.New(state.WithRunIDGenerator(func() string { return "run-1" }))
	m := newFakeMetrics()
	r := NewMessageRouter(st, m, nil, nil, RequireWireRunID())

	assert.False(t, r.Route("run-1", []byte(`{"type":"log","ticker":"AAPL","message":"untagged"}`)))
	assert.False(t, r.Route("run-1", []byte(`{"type":"log","ticker":"AAPL","message":"old","run_id":"run-0"}`)))
	assert.True(t, r.Route("run-1", []byte(`{"type":"log","ticker":"AAPL","message":"tagged","run_id":"run-1"}`)))

	assert.Equal(t, []string{"tagged"}, st.Logs().All("AAPL"))
	assert.Equal(t, 1, m.droppedFor(DropMissingRunID))
	assert.Equal(t, 1, m.droppedFor(DropStaleRun))
}
