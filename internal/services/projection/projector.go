package projection

import (
	"fmt"
	"math"

	"EnsembleView/internal/domain/models"
)

const (
	// DefaultPaletteSize matches a ten-color categorical palette.
	DefaultPaletteSize = 10

	markerBase  = 4.0
	markerScale = 2.0
	markerCap   = 20.0
)

// Projector turns a series into display-ready views. Input series are never
// modified.
type Projector struct {
	paletteSize int
}

func NewProjector(paletteSize int) *Projector {
	if paletteSize <= 0 {
		paletteSize = DefaultPaletteSize
	}
	return &Projector{paletteSize: paletteSize}
}

func (p *Projector) PaletteSize() int { return p.paletteSize }

// WithPalette returns a projector using a different palette size.
func (p *Projector) WithPalette(size int) *Projector { return NewProjector(size) }

// MarkerSize scales a trade amount into a marker size in [4, 24].
func MarkerSize(amount float64) float64 {
	return math.Min(amount*markerScale, markerCap) + markerBase
}

// ComponentName is the display name of sub-model i.
func ComponentName(i int) string { return fmt.Sprintf("model_%d", i+1) }

func (p *Projector) Prediction(ticker string, series []models.Observation) models.PredictionProjection {
	out := models.PredictionProjection{
		Ticker:  ticker,
		Points:  make([]models.PredictionPoint, 0, len(series)),
		Markers: []models.TradeMarker{},
	}
	current := -1
	for i, o := range series {
		out.Points = append(out.Points, models.PredictionPoint{
			Timestamp:    o.Timestamp,
			Actual:       o.Actual,
			Adaptive:     o.Adaptive,
			EnsembleMean: o.EnsembleMean,
			BestExpert:   o.BestExpert,
		})
		if o.Adaptive != nil {
			current = i
		}
		amount := models.ValueOr(o.AgentAmount, 0)
		if !o.AgentAction.IsTrade() || amount <= 0 {
			continue
		}
		out.Markers = append(out.Markers, models.TradeMarker{
			Timestamp:  o.Timestamp,
			Price:      o.Actual,
			Direction:  o.AgentAction,
			MarkerSize: MarkerSize(amount),
		})
	}
	if current >= 0 {
		o := series[current]
		out.Current = &models.Highlight{
			Index:      current,
			Timestamp:  o.Timestamp,
			Adaptive:   *o.Adaptive,
			ModelPreds: append([]float64(nil), o.ModelPreds...),
		}
	}
	return out
}

// Weights expands each point's weight vector into components renormalized to
// sum to 1 at that point. A point without weights has no components.
func (p *Projector) Weights(ticker string, series []models.Observation) models.WeightProjection {
	out := models.WeightProjection{
		Ticker: ticker,
		Points: make([]models.WeightPoint, 0, len(series)),
	}
	for _, o := range series {
		out.MaxComponents = max(out.MaxComponents, len(o.Weights))
		out.Points = append(out.Points, p.weightPoint(o))
	}
	return out
}

func (p *Projector) weightPoint(o models.Observation) models.WeightPoint {
	wp := models.WeightPoint{
		Timestamp:  o.Timestamp,
		BestExpert: -1,
		Components: make([]models.WeightComponent, 0, len(o.Weights)),
	}
	for _, w := range o.Weights {
		wp.RawSum += w
	}
	best := math.Inf(-1)
	for i, w := range o.Weights {
		share := 0.0
		if wp.RawSum != 0 {
			share = w / wp.RawSum
		}
		if math.IsNaN(share) || math.IsInf(share, 0) {
			share = 0
		}
		if w > best {
			best = w
			wp.BestExpert = i
		}
		wp.Components = append(wp.Components, models.WeightComponent{
			Index:        i,
			Name:         ComponentName(i),
			Raw:          w,
			Share:        share,
			PaletteIndex: i % p.paletteSize,
		})
	}
	return wp
}
