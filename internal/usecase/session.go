package usecase

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"EnsembleView/internal/domain/models"
	drepo "EnsembleView/internal/domain/repository"
	"EnsembleView/internal/state"
	"EnsembleView/pkg/logger"
)

const maxReconnectDelay = 30 * time.Second

// Session owns the run state and the simulation stream. Frames are applied
// under the write lock one at a time; readers go through View.
type Session struct {
	mu     sync.RWMutex
	st     *state.State
	router *MessageRouter

	stream         drepo.SimulationStream
	metrics        drepo.Metrics
	log            *logger.Logger
	reconnectDelay time.Duration

	subsMu sync.Mutex
	subs   map[*Subscription]struct{}

	runMu  sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

type SessionOption func(*sessionOptions)

type sessionOptions struct {
	router []RouterOption
}

// WithWireRunID drops every frame that does not carry the current run id.
func WithWireRunID() SessionOption {
	return func(o *sessionOptions) { o.router = append(o.router, RequireWireRunID()) }
}

func NewSession(st *state.State, stream drepo.SimulationStream, metrics drepo.Metrics, log *logger.Logger, reconnectDelay time.Duration, opts ...SessionOption) *Session {
	if log == nil {
		log = logger.Nop()
	}
	if metrics == nil {
		metrics = nopMetrics{}
	}
	var o sessionOptions
	for _, opt := range opts {
		opt(&o)
	}
	if reconnectDelay <= 0 {
		reconnectDelay = time.Second
	}
	s := &Session{
		st:             st,
		stream:         stream,
		metrics:        metrics,
		log:            log,
		reconnectDelay: reconnectDelay,
		subs:           make(map[*Subscription]struct{}),
	}
	s.router = NewMessageRouter(st, metrics, s, log, o.router...)
	return s
}

// RunID returns the id of the current run.
func (s *Session) RunID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.st.RunID()
}

// IsConnected reports whether the stream is currently connected.
func (s *Session) IsConnected() bool { return s.stream.IsConnected() }

// View runs fn with shared access to the state. fn must not retain st.
func (s *Session) View(fn func(st *state.State)) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fn(s.st)
}

// StartRun resets the state into a new run, opens a fresh channel session
// tagged with the run id and sends the start command.
func (s *Session) StartRun(ctx context.Context, tickers []string) (string, error) {
	s.runMu.Lock()
	defer s.runMu.Unlock()

	s.stopLoop()
	runID := s.resetState()

	if err := s.stream.Connect(ctx); err != nil {
		s.metrics.RecordError("connect")
		return "", fmt.Errorf("connect stream: %w", err)
	}

	loopCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	frames, errs := s.stream.Read(loopCtx)
	s.cancel = cancel
	s.done = make(chan struct{})
	go s.consume(loopCtx, runID, frames, errs, s.done)

	if err := s.stream.Start(ctx, models.NewStartCommand(runID, tickers)); err != nil {
		s.metrics.RecordError("start")
		s.stopLoop()
		return "", fmt.Errorf("send start command: %w", err)
	}
	s.log.Info("run started", logger.String("run_id", runID), logger.Strings("tickers", tickers))
	return runID, nil
}

// Reset stops the current channel session and clears all run state. Safe to
// call at any time, any number of times.
func (s *Session) Reset(ctx context.Context) string {
	s.runMu.Lock()
	defer s.runMu.Unlock()

	s.stopLoop()
	runID := s.resetState()
	s.log.Info("run reset", logger.String("run_id", runID))
	return runID
}

// Shutdown stops the consume loop and closes the stream.
func (s *Session) Shutdown(ctx context.Context) error {
	s.runMu.Lock()
	defer s.runMu.Unlock()
	s.stopLoop()
	return nil
}

func (s *Session) resetState() string {
	s.mu.Lock()
	runID := s.st.Reset()
	s.router.ResetRun()
	s.mu.Unlock()
	if r, ok := s.metrics.(interface{ ResetRun() }); ok {
		r.ResetRun()
	}

	s.subsMu.Lock()
	for sub := range s.subs {
		sub.markReset()
	}
	s.subsMu.Unlock()
	return runID
}

// stopLoop must be called with runMu held.
func (s *Session) stopLoop() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	_ = s.stream.Close()
	<-s.done
	// the loop may have reconnected between cancel and its exit
	_ = s.stream.Close()
	s.cancel = nil
	s.done = nil
}

func (s *Session) consume(ctx context.Context, runID string, frames <-chan []byte, errs <-chan error, done chan struct{}) {
	defer close(done)
	for {
		select {
		case <-ctx.Done():
			return
		case b, ok := <-frames:
			if ok {
				s.apply(runID, b)
				continue
			}
			if ctx.Err() != nil {
				return
			}
			err := <-errs
			if err == nil {
				s.log.Info("stream closed by source", logger.String("run_id", runID))
				return
			}
			s.metrics.RecordError("stream")
			s.log.Warn("stream read failed, reconnecting", logger.String("run_id", runID), logger.Error(err))
			if !s.reconnect(ctx) {
				return
			}
			frames, errs = s.stream.Read(ctx)
		}
	}
}

// reconnect retries until the stream is back or ctx ends.
func (s *Session) reconnect(ctx context.Context) bool {
	delay := s.reconnectDelay
	for attempt := 1; ; attempt++ {
		select {
		case <-ctx.Done():
			return false
		case <-time.After(delay):
		}
		err := s.stream.Reconnect(ctx)
		if err == nil {
			s.log.Info("stream reconnected", logger.Int("attempt", attempt))
			return true
		}
		s.metrics.RecordError("reconnect")
		s.log.Warn("reconnect failed", logger.Int("attempt", attempt), logger.Error(err))
		delay = min(delay*2, maxReconnectDelay)
	}
}

func (s *Session) apply(runID string, frame []byte) {
	start := time.Now()
	s.mu.Lock()
	s.router.Route(runID, frame)
	s.mu.Unlock()
	s.metrics.RecordLatency("dispatch", time.Since(start).Seconds())
}

// Dispatch applies a single decoded message as if it arrived on the current
// channel session. Used by alternate inputs and tools.
func (s *Session) Dispatch(msg models.Message) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.router.Dispatch(models.Envelope{RunID: s.st.RunID(), Message: msg})
}

// MarkDirty fans a dirty entity out to every subscriber. It is called by the
// router while the write lock is held.
func (s *Session) MarkDirty(ticker string) {
	s.subsMu.Lock()
	defer s.subsMu.Unlock()
	for sub := range s.subs {
		sub.mark(ticker)
	}
}

// Subscribe registers a consumer of dirty notifications.
func (s *Session) Subscribe() *Subscription {
	sub := &Subscription{
		session: s,
		dirty:   make(map[string]int),
		notify:  make(chan struct{}, 1),
	}
	s.subsMu.Lock()
	s.subs[sub] = struct{}{}
	s.subsMu.Unlock()
	return sub
}

func (s *Session) unsubscribe(sub *Subscription) {
	s.subsMu.Lock()
	delete(s.subs, sub)
	s.subsMu.Unlock()
}

// Subscription accumulates dirty entities between drains. Notifications
// coalesce: C delivers at most one pending signal.
type Subscription struct {
	session *Session
	mu      sync.Mutex
	dirty   map[string]int
	seq     int
	reset   bool
	notify  chan struct{}
}

// C signals that Drain has something to return.
func (s *Subscription) C() <-chan struct{} { return s.notify }

func (s *Subscription) mark(ticker string) {
	s.mu.Lock()
	if _, ok := s.dirty[ticker]; !ok {
		s.dirty[ticker] = s.seq
		s.seq++
	}
	s.mu.Unlock()
	s.signal()
}

func (s *Subscription) markReset() {
	s.mu.Lock()
	s.dirty = make(map[string]int)
	s.seq = 0
	s.reset = true
	s.mu.Unlock()
	s.signal()
}

func (s *Subscription) signal() {
	select {
	case s.notify <- struct{}{}:
	default:
	}
}

// Drain returns the dirty entities in discovery order (entities not yet
// registered follow in the order they were marked) and whether the run was
// reset since the last drain.
func (s *Subscription) Drain() ([]string, bool) {
	s.mu.Lock()
	marked := s.dirty
	reset := s.reset
	s.dirty = make(map[string]int)
	s.seq = 0
	s.reset = false
	s.mu.Unlock()

	keys := make([]string, 0, len(marked))
	for k := range marked {
		keys = append(keys, k)
	}
	rank := make(map[string]int, len(keys))
	s.session.View(func(st *state.State) {
		for i, k := range st.Entities() {
			rank[k] = i
		}
	})
	sort.Slice(keys, func(i, j int) bool {
		ri, iok := rank[keys[i]]
		rj, jok := rank[keys[j]]
		switch {
		case iok && jok:
			return ri < rj
		case iok != jok:
			return iok
		default:
			return marked[keys[i]] < marked[keys[j]]
		}
	})
	return keys, reset
}

// Close stops delivery to this subscription.
func (s *Subscription) Close() { s.session.unsubscribe(s) }

type nopMetrics struct{}

func (nopMetrics) RecordMessage(string)            {}
func (nopMetrics) RecordDropped(string)            {}
func (nopMetrics) RecordError(string)              {}
func (nopMetrics) RecordOutOfOrder(string)         {}
func (nopMetrics) RecordLastPrice(string, float64) {}
func (nopMetrics) RecordLatency(string, float64)   {}
func (nopMetrics) RecordSummary(int, int, float64) {}
