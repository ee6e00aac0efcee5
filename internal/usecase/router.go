package usecase

import (
	"EnsembleView/internal/domain/models"
	drepo "EnsembleView/internal/domain/repository"
	"EnsembleView/internal/state"
	"EnsembleView/pkg/logger"
	"EnsembleView/pkg/util"
)

// Drop reasons reported to metrics.
const (
	DropMalformed     = "malformed"
	DropStaleRun      = "stale_run"
	DropMissingRunID  = "missing_run_id"
	DropMissingTicker = "missing_ticker"
	DropUnknownType   = "unknown_type"
)

// DirtySink is told which entity a dispatch touched.
type DirtySink interface {
	MarkDirty(ticker string)
}

type DirtyFunc func(ticker string)

func (f DirtyFunc) MarkDirty(ticker string) { f(ticker) }

// MessageRouter applies inbound frames to the run state one at a time.
// It never recomputes derived views; it only reports the dirty entity.
// Callers serialize Dispatch against readers of the state.
type MessageRouter struct {
	st      *state.State
	metrics drepo.Metrics
	sink    DirtySink
	log     *logger.Logger
	order   *util.OrderTracker

	requireWireRunID bool
}

type RouterOption func(*MessageRouter)

// RequireWireRunID makes the run_id carried by each frame mandatory. Needed
// when the channel outlives a run, as a Kafka topic does: the channel tag
// alone cannot tell a late frame of the previous run from a new one.
func RequireWireRunID() RouterOption {
	return func(r *MessageRouter) { r.requireWireRunID = true }
}

func NewMessageRouter(st *state.State, metrics drepo.Metrics, sink DirtySink, log *logger.Logger, opts ...RouterOption) *MessageRouter {
	if log == nil {
		log = logger.Nop()
	}
	r := &MessageRouter{
		st:      st,
		metrics: metrics,
		sink:    sink,
		log:     log,
		order:   util.NewOrderTracker(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ResetRun forgets per-run bookkeeping kept by the router itself.
func (r *MessageRouter) ResetRun() { r.order.Reset() }

// Route decodes a raw frame received on a channel session opened for runID
// and dispatches it. Undecodable frames are dropped.
func (r *MessageRouter) Route(runID string, frame []byte) bool {
	msg, err := models.DecodeMessage(frame)
	if err != nil {
		r.drop(DropMalformed)
		r.log.Debug("dropping undecodable frame", logger.Error(err), logger.Int("bytes", len(frame)))
		return false
	}
	return r.Dispatch(models.Envelope{RunID: runID, Message: msg})
}

// Dispatch applies one message. It returns false when the message was dropped.
func (r *MessageRouter) Dispatch(env models.Envelope) bool {
	cur := r.st.RunID()
	msg := env.Message
	if r.requireWireRunID && msg.RunID == "" {
		r.drop(DropMissingRunID)
		return false
	}
	if env.RunID != cur || (msg.RunID != "" && msg.RunID != cur) {
		r.drop(DropStaleRun)
		return false
	}
	if msg.Ticker == "" {
		r.drop(DropMissingTicker)
		return false
	}

	switch msg.Type {
	case models.MessageStatus:
		r.st.Status().Set(msg.Ticker, msg.Message)
	case models.MessageLog:
		r.st.Logs().Append(msg.Ticker, msg.Message)
	case models.MessageError:
		r.st.Status().SetError(msg.Ticker, msg.Message)
		r.log.Warn("entity reported error", logger.String("ticker", msg.Ticker), logger.String("message", msg.Message))
	case models.MessageData:
		r.applyData(&msg)
	default:
		r.drop(DropUnknownType)
		return false
	}

	r.st.Touch(msg.Ticker)
	if r.metrics != nil {
		r.metrics.RecordMessage(string(msg.Type))
	}
	if r.sink != nil {
		r.sink.MarkDirty(msg.Ticker)
	}
	return true
}

func (r *MessageRouter) applyData(msg *models.Message) {
	obs := msg.Observation()
	if !r.order.Observe(msg.Ticker, obs.Timestamp) {
		// Arrival order wins; the observation is kept where it arrived.
		r.log.Warn("timestamp went backwards",
			logger.String("ticker", msg.Ticker),
			logger.String("timestamp", obs.Timestamp),
		)
		if r.metrics != nil {
			r.metrics.RecordOutOfOrder(msg.Ticker)
		}
	}
	if r.st.Registry().Register(msg.Ticker) {
		r.log.Info("entity discovered",
			logger.String("ticker", msg.Ticker),
			logger.Int("position", r.st.Registry().Len()),
		)
	}
	r.st.TimeSeries().Append(msg.Ticker, obs)
	if obs.Actual != nil && r.metrics != nil {
		r.metrics.RecordLastPrice(msg.Ticker, *obs.Actual)
	}
}

func (r *MessageRouter) drop(reason string) {
	if r.metrics != nil {
		r.metrics.RecordDropped(reason)
	}
}
