package usecase

import (
	"testing"

	"EnsembleView/internal/services/analytics"
	"EnsembleView/internal/state"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEntityViews(t *testing.T) {
	r, st, _, _ := newTestRouter(t)
	run := st.RunID()
	r.Route(run, []byte(dataFrame("AAPL", "2024-01-01", 100, 100.5)))
	r.Route(run, []byte(`{"type":"log","ticker":"AAPL","message":"epoch 1"}`))
	r.Route(run, []byte(`{"type":"status","ticker":"AAPL","message":"`+state.CompleteStatus+`"}`))
	r.Route(run, []byte(dataFrame("MSFT", "2024-01-01", 200, 210)))
	r.Route(run, []byte(`{"type":"error","ticker":"MSFT","message":"diverged"}`))

	rows := EntityViews(st, analytics.NewCalculator(analytics.DefaultInitialCapital))
	require.Len(t, rows, 2)

	assert.Equal(t, "AAPL", rows[0].Ticker)
	assert.True(t, rows[0].Complete)
	assert.False(t, rows[0].Error)
	assert.Equal(t, "epoch 1", rows[0].LastLog)
	assert.Equal(t, 1, rows[0].Metrics.Points)

	assert.Equal(t, "MSFT", rows[1].Ticker)
	assert.True(t, rows[1].Error)
	assert.InDelta(t, 5.0, rows[1].Metrics.ErrorPct, 1e-9)
}
