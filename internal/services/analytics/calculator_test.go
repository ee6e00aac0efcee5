package analytics

import (
	"testing"

	"EnsembleView/internal/domain/models"
	"EnsembleView/internal/state"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func obs(actual, adaptive *float64) models.Observation {
	return models.Observation{Timestamp: "2024-01-01", Actual: actual, Adaptive: adaptive}
}

func TestErrorPct(t *testing.T) {
	tests := []struct {
		name     string
		actual   *float64
		adaptive *float64
		want     float64
	}{
		{"one percent over", models.Float(100), models.Float(101), 1.0},
		{"under", models.Float(200), models.Float(190), -5.0},
		{"zero actual", models.Float(0), models.Float(101), 0},
		{"missing actual", nil, models.Float(101), 0},
		{"missing adaptive", models.Float(100), nil, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, ErrorPct(obs(tt.actual, tt.adaptive)), 1e-9)
		})
	}
}

func TestClassify(t *testing.T) {
	assert.Equal(t, models.SeverityWithinBand, Classify(0.99))
	assert.Equal(t, models.SeverityWithinBand, Classify(-0.5))
	assert.Equal(t, models.SeverityOutOfBand, Classify(1.0))
	assert.Equal(t, models.SeverityOutOfBand, Classify(-3))
}

func TestPortfolioReturn(t *testing.T) {
	c := NewCalculator(DefaultInitialCapital)
	o := models.Observation{PortfolioValue: models.Float(10500)}
	ret, pct := c.PortfolioReturn(o)
	assert.Equal(t, 500.0, ret)
	assert.Equal(t, 5.0, pct)

	ret, pct = c.PortfolioReturn(models.Observation{})
	assert.Zero(t, ret)
	assert.Zero(t, pct)

	zero := NewCalculator(0)
	ret, pct = zero.PortfolioReturn(o)
	assert.Equal(t, 10500.0, ret)
	assert.Zero(t, pct)
}

func seed(st *state.State, key string, actual, adaptive *float64) {
	st.Registry().Register(key)
	st.TimeSeries().Append(key, obs(actual, adaptive))
}

func TestAvgErrorPct(t *testing.T) {
	c := NewCalculator(DefaultInitialCapital)

	t.Run("no entities", func(t *testing.T) {
		assert.Zero(t, c.AvgErrorPct(state.New()))
	})

	t.Run("two entities", func(t *testing.T) {
		st := state.New()
		seed(st, "A", models.Float(100), models.Float(102))
		seed(st, "B", models.Float(100), models.Float(96))
		assert.InDelta(t, 3.0, c.AvgErrorPct(st), 1e-9)
	})

	t.Run("entity without actual still counts", func(t *testing.T) {
		st := state.New()
		seed(st, "A", models.Float(100), models.Float(104))
		seed(st, "B", nil, models.Float(50))
		assert.InDelta(t, 2.0, c.AvgErrorPct(st), 1e-9)
	})
}

func TestEntityAndSummary(t *testing.T) {
	c := NewCalculator(DefaultInitialCapital)
	st := state.New()
	seed(st, "AAPL", models.Float(100), models.Float(100.5))
	seed(st, "AAPL", models.Float(100), models.Float(103))
	seed(st, "MSFT", models.Float(50), models.Float(50))

	m := c.Entity(st, "AAPL")
	assert.Equal(t, 2, m.Points)
	assert.InDelta(t, 3.0, m.PriceError, 1e-9)
	assert.Equal(t, models.SeverityOutOfBand, m.Severity)

	all := c.All(st)
	require.Len(t, all, 2)
	assert.Equal(t, "AAPL", all[0].Ticker)
	assert.Equal(t, "MSFT", all[1].Ticker)

	sum := c.Summary(st, st.RunID())
	assert.Equal(t, 2, sum.Entities)
	assert.Equal(t, 3, sum.TotalPoints)
	assert.InDelta(t, 1.5, sum.AvgErrorPct, 1e-9)

	empty := c.Entity(st, "NONE")
	assert.Zero(t, empty.Points)
	assert.Equal(t, models.SeverityWithinBand, empty.Severity)
}
