package models

// Settings mirrors the configuration collaborator's document.
type Settings struct {
	Data struct {
		Domain    string `json:"domain" yaml:"domain"`
		Count     int    `json:"count" yaml:"count"`
		Lookback  int    `json:"lookback" yaml:"lookback"`
		StartDate string `json:"start_date" yaml:"start_date"`
		EndDate   string `json:"end_date" yaml:"end_date"`
	} `json:"data" yaml:"data"`
	Training struct {
		Epochs       int     `json:"epochs" yaml:"epochs"`
		LearningRate float64 `json:"learning_rate" yaml:"learning_rate"`
		Sleep        float64 `json:"sleep" yaml:"sleep"`
	} `json:"training" yaml:"training"`
	Volatility struct {
		Threshold float64 `json:"threshold" yaml:"threshold"`
	} `json:"volatility" yaml:"volatility"`
}

// SettingsUpdate is the flat replacement form accepted by the collaborator.
// Integers and floats are coerced by the JSON binder into their declared types.
type SettingsUpdate struct {
	Domain              string  `json:"domain" validate:"required"`
	Count               int     `json:"count" default:"5" validate:"gte=1,lte=100"`
	Lookback            int     `json:"lookback" default:"60" validate:"gte=1"`
	StartDate           string  `json:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate             string  `json:"end_date" validate:"required,datetime=2006-01-02"`
	Epochs              int     `json:"epochs" default:"50" validate:"gte=1"`
	LearningRate        float64 `json:"learning_rate" default:"0.001" validate:"gt=0"`
	Sleep               float64 `json:"sleep" default:"0.1" validate:"gte=0"`
	VolatilityThreshold float64 `json:"volatility_threshold" default:"0.02" validate:"gte=0"`
}

// Requests for the simulation HTTP endpoints.

type EntityRequest struct {
	Ticker string `param:"ticker" validate:"required"`
}

type WeightsRequest struct {
	Ticker  string `param:"ticker" validate:"required"`
	Palette int    `query:"palette" default:"10" validate:"gte=1,lte=64"`
}

type LogsRequest struct {
	Ticker string `param:"ticker" validate:"required"`
	Limit  int    `query:"limit" default:"50" validate:"gte=1,lte=5000"`
}

type StartRunRequest struct {
	Tickers []string `json:"tickers" validate:"omitempty,dive,required"`
}
