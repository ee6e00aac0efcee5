package models

import "encoding/json"

// MessageType tags an inbound simulation frame.
type MessageType string

const (
	MessageStatus MessageType = "status"
	MessageLog    MessageType = "log"
	MessageError  MessageType = "error"
	MessageData   MessageType = "data"
)

// Message is one inbound frame from the simulation channel.
// Only Type and Ticker are routing fields; the rest is type-specific payload.
type Message struct {
	Type    MessageType `json:"type"`
	Ticker  string      `json:"ticker"`
	Message string      `json:"message,omitempty"`
	RunID   string      `json:"run_id,omitempty"`

	// data payload
	Step           *int      `json:"step,omitempty"`
	Date           string    `json:"date,omitempty"`
	Actual         *float64  `json:"actual,omitempty"`
	Adaptive       *float64  `json:"adaptive,omitempty"`
	EnsembleMean   *float64  `json:"ensemble_mean,omitempty"`
	BestExpert     *float64  `json:"best_expert,omitempty"`
	Weights        []float64 `json:"weights,omitempty"`
	ModelPreds     []float64 `json:"model_preds,omitempty"`
	AgentAction    string    `json:"agent_action,omitempty"`
	AgentAmount    *float64  `json:"agent_amount,omitempty"`
	PortfolioValue *float64  `json:"portfolio_value,omitempty"`
}

// Observation extracts the non-routing fields of a data frame.
func (m *Message) Observation() Observation {
	return Observation{
		Timestamp:      m.Date,
		Step:           m.Step,
		Actual:         m.Actual,
		Adaptive:       m.Adaptive,
		EnsembleMean:   m.EnsembleMean,
		BestExpert:     m.BestExpert,
		Weights:        cloneFloats(m.Weights),
		ModelPreds:     cloneFloats(m.ModelPreds),
		AgentAction:    ParseAgentAction(m.AgentAction),
		AgentAmount:    m.AgentAmount,
		PortfolioValue: m.PortfolioValue,
	}
}

// DecodeMessage parses a raw frame. Unknown types decode fine and are left
// for the router to drop.
func DecodeMessage(b []byte) (Message, error) {
	var m Message
	if err := json.Unmarshal(b, &m); err != nil {
		return Message{}, err
	}
	return m, nil
}

// Envelope is a decoded frame tagged with the run that opened the channel
// session it arrived on.
type Envelope struct {
	RunID   string
	Message Message
}

// StartCommand is the outbound control message that begins a run.
type StartCommand struct {
	Action  string   `json:"action"`
	Tickers []string `json:"tickers,omitempty"`
	RunID   string   `json:"run_id,omitempty"`
}

// NewStartCommand builds a start command for the given run.
func NewStartCommand(runID string, tickers []string) StartCommand {
	return StartCommand{Action: "start", Tickers: tickers, RunID: runID}
}

func cloneFloats(xs []float64) []float64 {
	if xs == nil {
		return nil
	}
	out := make([]float64, len(xs))
	copy(out, xs)
	return out
}
