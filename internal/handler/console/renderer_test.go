package console

import (
	"bytes"
	"strings"
	"testing"

	"EnsembleView/internal/domain/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fp(v float64) *float64 { return &v }

func TestRenderTable(t *testing.T) {
	rows := []models.EntityView{
		{
			Ticker:  "AAPL",
			Status:  "Training",
			LastLog: "epoch 3/20",
			Metrics: models.EntityMetrics{
				Actual: fp(100), Adaptive: fp(102), ErrorPct: 2, Severity: models.SeverityOutOfBand,
				ReturnPct: 10, Points: 3,
			},
		},
		{Ticker: "MSFT", Status: "Error: diverged", Error: true, Metrics: models.EntityMetrics{Severity: models.SeverityWithinBand}},
	}
	var buf bytes.Buffer
	require.NoError(t, NewRenderer(false).Render(&buf, rows, models.Summary{RunID: "r1", Entities: 2, TotalPoints: 3, AvgErrorPct: 1}))

	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "run r1  entities=2  points=3  avg error=1.00%"))
	for _, want := range []string{"Ticker", "AAPL", "102.00", "+2.00", "out-of-band", "+10.00", "epoch 3/20", "MSFT", "Error: diverged", "within-band"} {
		assert.Contains(t, out, want)
	}
	assert.NotContains(t, out, "\x1b[", "color disabled")
}

func TestRenderEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewRenderer(false).Render(&buf, nil, models.Summary{RunID: "r1"}))
	assert.Contains(t, buf.String(), "waiting for data")
}

func TestRenderColors(t *testing.T) {
	var buf bytes.Buffer
	rows := []models.EntityView{{Ticker: "X", Status: "Simulation Complete", Complete: true}}
	require.NoError(t, NewRenderer(true).Render(&buf, rows, models.Summary{}))
	assert.Contains(t, buf.String(), "\x1b[")
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcd…", truncate("abcdefgh", 5))
}
