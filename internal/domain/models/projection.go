package models

// PredictionPoint is one point of the prediction overlay.
type PredictionPoint struct {
	Timestamp    string   `json:"timestamp"`
	Actual       *float64 `json:"actual"`
	Adaptive     *float64 `json:"adaptive"`
	EnsembleMean *float64 `json:"ensemble_mean,omitempty"`
	BestExpert   *float64 `json:"best_expert,omitempty"`
}

// TradeMarker marks a BUY or SELL decision on the overlay.
type TradeMarker struct {
	Timestamp  string      `json:"timestamp"`
	Price      *float64    `json:"price"`
	Direction  AgentAction `json:"direction"`
	MarkerSize float64     `json:"marker_size"`
}

// Highlight is the current prediction point together with the individual
// model predictions that produced it.
type Highlight struct {
	Index      int       `json:"index"`
	Timestamp  string    `json:"timestamp"`
	Adaptive   float64   `json:"adaptive"`
	ModelPreds []float64 `json:"model_preds,omitempty"`
}

// PredictionProjection is the display-ready prediction overlay of a series.
type PredictionProjection struct {
	Ticker  string            `json:"ticker"`
	Points  []PredictionPoint `json:"points"`
	Markers []TradeMarker     `json:"markers"`
	Current *Highlight        `json:"current,omitempty"`
}

// WeightComponent is one sub-model's share at a point.
type WeightComponent struct {
	Index        int     `json:"index"`
	Name         string  `json:"name"`
	Raw          float64 `json:"raw"`
	Share        float64 `json:"share"`
	PaletteIndex int     `json:"palette_index"`
}

// WeightPoint is the normalized composition at one observation.
type WeightPoint struct {
	Timestamp  string            `json:"timestamp"`
	RawSum     float64           `json:"raw_sum"`
	BestExpert int               `json:"best_expert"`
	Components []WeightComponent `json:"components"`
}

// WeightProjection is the stacked weight composition of a series.
type WeightProjection struct {
	Ticker        string        `json:"ticker"`
	MaxComponents int           `json:"max_components"`
	Points        []WeightPoint `json:"points"`
}
