package usecase

import (
	"context"
	"sync"

	"EnsembleView/internal/domain/models"
	drepo "EnsembleView/internal/domain/repository"
)

type fakeMetrics struct {
	mu         sync.Mutex
	messages   map[string]int
	dropped    map[string]int
	errors     map[string]int
	outOfOrder map[string]int
	lastPrice  map[string]float64
	summaries  int
}

func newFakeMetrics() *fakeMetrics {
	return &fakeMetrics{
		messages:   map[string]int{},
		dropped:    map[string]int{},
		errors:     map[string]int{},
		outOfOrder: map[string]int{},
		lastPrice:  map[string]float64{},
	}
}

func (m *fakeMetrics) RecordMessage(kind string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages[kind]++
}

func (m *fakeMetrics) RecordDropped(reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dropped[reason]++
}

func (m *fakeMetrics) RecordError(kind string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors[kind]++
}

func (m *fakeMetrics) RecordOutOfOrder(ticker string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.outOfOrder[ticker]++
}

func (m *fakeMetrics) RecordLastPrice(ticker string, price float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastPrice[ticker] = price
}

func (m *fakeMetrics) RecordLatency(string, float64) {}

func (m *fakeMetrics) RecordSummary(int, int, float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.summaries++
}

func (m *fakeMetrics) droppedFor(reason string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.dropped[reason]
}

func (m *fakeMetrics) errorsFor(kind string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.errors[kind]
}

// fakeStream replays frames pushed by the test through Read.
type fakeStream struct {
	mu         sync.Mutex
	connected  bool
	started    []models.StartCommand
	frames     chan []byte
	errs       chan error
	reconnects int
	dialing    int
	closed     int
	gate       chan struct{}
}

func newFakeStream() *fakeStream {
	return &fakeStream{}
}

func (s *fakeStream) Connect(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.open()
	return nil
}

// open must be called with mu held.
func (s *fakeStream) open() {
	s.connected = true
	s.frames = make(chan []byte, 64)
	s.errs = make(chan error, 1)
}

// shut must be called with mu held.
func (s *fakeStream) shut(err error) {
	if !s.connected {
		return
	}
	s.connected = false
	if err != nil {
		s.errs <- err
	}
	close(s.errs)
	close(s.frames)
}

func (s *fakeStream) Start(_ context.Context, cmd models.StartCommand) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.started = append(s.started, cmd)
	return nil
}

func (s *fakeStream) Read(context.Context) (<-chan []byte, <-chan error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frames, s.errs
}

func (s *fakeStream) Reconnect(context.Context) error {
	s.mu.Lock()
	gate := s.gate
	s.dialing++
	s.mu.Unlock()
	if gate != nil {
		<-gate
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.reconnects++
	s.shut(nil)
	s.open()
	return nil
}

func (s *fakeStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.shut(nil)
	s.closed++
	return nil
}

func (s *fakeStream) IsConnected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connected
}

// fail drops the connection with err, as a transport failure would.
func (s *fakeStream) fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.shut(err)
}

func (s *fakeStream) reconnectCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reconnects
}

// holdReconnects makes Reconnect wait until the returned func is called.
func (s *fakeStream) holdReconnects() (release func()) {
	gate := make(chan struct{})
	s.mu.Lock()
	s.gate = gate
	s.mu.Unlock()
	return func() { close(gate) }
}

func (s *fakeStream) dialCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dialing
}

func (s *fakeStream) closeCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *fakeStream) push(frame string) {
	s.mu.Lock()
	ch := s.frames
	s.mu.Unlock()
	ch <- []byte(frame)
}

func (s *fakeStream) lastStart() models.StartCommand {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.started[len(s.started)-1]
}

// topicStream models a Kafka topic: every reader sees the same channel, and
// frames nobody consumed survive Close and show up for the next reader.
type topicStream struct {
	mu        sync.Mutex
	topic     chan []byte
	connected bool
	started   []models.StartCommand
}

func newTopicStream() *topicStream {
	return &topicStream{topic: make(chan []byte, 64)}
}

func (s *topicStream) Connect(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connected = true
	return nil
}

func (s *topicStream) Start(_ context.Context, cmd models.StartCommand) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.started = append(s.started, cmd)
	return nil
}

func (s *topicStream) Read(context.Context) (<-chan []byte, <-chan error) {
	return s.topic, make(chan error)
}

func (s *topicStream) Reconnect(ctx context.Context) error { return s.Connect(ctx) }

func (s *topicStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connected = false
	return nil
}

func (s *topicStream) IsConnected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connected
}

func (s *topicStream) produce(frame string) { s.topic <- []byte(frame) }

type fakePublisher struct {
	mu    sync.Mutex
	snaps []models.Snapshot
}

func (p *fakePublisher) Publish(_ context.Context, s models.Snapshot) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.snaps = append(p.snaps, s)
	return nil
}

func (p *fakePublisher) PublishBatch(_ context.Context, snaps []models.Snapshot) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.snaps = append(p.snaps, snaps...)
	return nil
}

func (p *fakePublisher) Close() error { return nil }

func (p *fakePublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.snaps)
}

type fakeSink struct {
	mu   sync.Mutex
	recs []drepo.ObservationRecord
}

func (s *fakeSink) StoreBatch(_ context.Context, recs []drepo.ObservationRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recs = append(s.recs, recs...)
	return nil
}

func (s *fakeSink) Health(context.Context) error { return nil }

func (s *fakeSink) Close() error { return nil }

func (s *fakeSink) records() []drepo.ObservationRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]drepo.ObservationRecord, len(s.recs))
	copy(out, s.recs)
	return out
}
