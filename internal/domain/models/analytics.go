package models

// Severity classifies a prediction error for display emphasis.
type Severity string

const (
	SeverityWithinBand Severity = "within-band"
	SeverityOutOfBand  Severity = "out-of-band"
)

// EntityMetrics is the derived analytics for one entity at its latest observation.
type EntityMetrics struct {
	Ticker          string   `json:"ticker"`
	Timestamp       string   `json:"timestamp,omitempty"`
	Actual          *float64 `json:"actual,omitempty"`
	Adaptive        *float64 `json:"adaptive,omitempty"`
	PriceError      float64  `json:"price_error"`
	ErrorPct        float64  `json:"error_pct"`
	Severity        Severity `json:"severity"`
	PortfolioValue  *float64 `json:"portfolio_value,omitempty"`
	PortfolioReturn float64  `json:"portfolio_return"`
	ReturnPct       float64  `json:"return_pct"`
	Points          int      `json:"points"`
}

// Summary aggregates analytics across every registered entity.
type Summary struct {
	RunID       string  `json:"run_id"`
	Entities    int     `json:"entities"`
	AvgErrorPct float64 `json:"avg_error_pct"`
	TotalPoints int     `json:"total_points"`
}

// EntityView is the list-row representation of an entity.
type EntityView struct {
	Ticker   string        `json:"ticker"`
	Status   string        `json:"status"`
	Error    bool          `json:"error"`
	Complete bool          `json:"complete"`
	LastLog  string        `json:"last_log,omitempty"`
	Metrics  EntityMetrics `json:"metrics"`
}

// Snapshot is what gets fanned out to downstream consumers after an update.
type Snapshot struct {
	RunID   string        `json:"run_id"`
	Status  string        `json:"status"`
	Metrics EntityMetrics `json:"metrics"`
}
