package analytics

import (
	"math"

	"EnsembleView/internal/domain/models"
)

// DefaultInitialCapital is the starting portfolio value of a simulated agent.
const DefaultInitialCapital = 10000.0

// ErrorBand is the absolute error percentage below which a prediction is
// considered within band.
const ErrorBand = 1.0

// Source is the read side of the run state the calculator derives from.
type Source interface {
	Entities() []string
	Latest(key string) (models.Observation, bool)
	Points(key string) int
}

// Calculator derives per-entity and aggregate analytics on demand.
// It holds no state of its own and never mutates the source.
type Calculator struct {
	initialCapital float64
}

func NewCalculator(initialCapital float64) *Calculator {
	return &Calculator{initialCapital: initialCapital}
}

func (c *Calculator) InitialCapital() float64 { return c.initialCapital }

// PriceError is adaptive minus actual. Absent or zero inputs yield 0.
func PriceError(obs models.Observation) float64 {
	actual := models.ValueOr(obs.Actual, 0)
	adaptive := models.ValueOr(obs.Adaptive, 0)
	if actual == 0 || adaptive == 0 {
		return 0
	}
	return finite(adaptive - actual)
}

// ErrorPct is PriceError relative to actual, in percent.
func ErrorPct(obs models.Observation) float64 {
	actual := models.ValueOr(obs.Actual, 0)
	if actual == 0 {
		return 0
	}
	return finite(PriceError(obs) / actual * 100)
}

func Classify(errorPct float64) models.Severity {
	if math.Abs(errorPct) < ErrorBand {
		return models.SeverityWithinBand
	}
	return models.SeverityOutOfBand
}

// PortfolioReturn returns the absolute and percentage return of obs against
// the initial capital. A missing portfolio value yields zero return.
func (c *Calculator) PortfolioReturn(obs models.Observation) (float64, float64) {
	if obs.PortfolioValue == nil {
		return 0, 0
	}
	ret := finite(*obs.PortfolioValue - c.initialCapital)
	if c.initialCapital <= 0 {
		return ret, 0
	}
	return ret, finite(ret / c.initialCapital * 100)
}

// Entity computes the analytics of key at its latest observation.
func (c *Calculator) Entity(src Source, key string) models.EntityMetrics {
	m := models.EntityMetrics{
		Ticker:   key,
		Severity: models.SeverityWithinBand,
		Points:   src.Points(key),
	}
	obs, ok := src.Latest(key)
	if !ok {
		return m
	}
	m.Timestamp = obs.Timestamp
	m.Actual = obs.Actual
	m.Adaptive = obs.Adaptive
	m.PriceError = PriceError(obs)
	m.ErrorPct = ErrorPct(obs)
	m.Severity = Classify(m.ErrorPct)
	m.PortfolioValue = obs.PortfolioValue
	m.PortfolioReturn, m.ReturnPct = c.PortfolioReturn(obs)
	return m
}

// All computes analytics for every registered entity in discovery order.
func (c *Calculator) All(src Source) []models.EntityMetrics {
	keys := src.Entities()
	out := make([]models.EntityMetrics, 0, len(keys))
	for _, k := range keys {
		out = append(out, c.Entity(src, k))
	}
	return out
}

// AvgErrorPct is the mean absolute error percentage over registered entities.
// Entities without a usable actual count toward the denominator with 0.
func (c *Calculator) AvgErrorPct(src Source) float64 {
	keys := src.Entities()
	var sum float64
	for _, k := range keys {
		if obs, ok := src.Latest(k); ok {
			sum += math.Abs(ErrorPct(obs))
		}
	}
	return sum / float64(max(1, len(keys)))
}

func (c *Calculator) TotalPoints(src Source) int {
	total := 0
	for _, k := range src.Entities() {
		total += src.Points(k)
	}
	return total
}

func (c *Calculator) Summary(src Source, runID string) models.Summary {
	return models.Summary{
		RunID:       runID,
		Entities:    len(src.Entities()),
		AvgErrorPct: c.AvgErrorPct(src),
		TotalPoints: c.TotalPoints(src),
	}
}

func finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
