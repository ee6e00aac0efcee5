package state

import (
	"EnsembleView/internal/domain/models"

	"github.com/google/uuid"
)

// State is the run-scoped aggregate of every per-entity store.
// It is not synchronized; the owning session serializes access.
type State struct {
	runID    string
	registry *EntityRegistry
	series   *TimeSeriesStore
	logs     *LogBuffer
	status   *StatusTable
	revision map[string]uint64
	newRunID func() string
}

type Option func(*State)

// WithMaxPoints bounds each entity's retained series (0 = unbounded).
func WithMaxPoints(n int) Option {
	return func(s *State) { s.series = NewTimeSeriesStore(n) }
}

// WithMaxLogs bounds each entity's retained log lines (0 = unbounded).
func WithMaxLogs(n int) Option {
	return func(s *State) { s.logs = NewLogBuffer(n) }
}

// WithRunIDGenerator replaces the UUID generator used on reset.
func WithRunIDGenerator(fn func() string) Option {
	return func(s *State) {
		if fn != nil {
			s.newRunID = fn
		}
	}
}

func New(opts ...Option) *State {
	s := &State{
		registry: NewEntityRegistry(),
		series:   NewTimeSeriesStore(0),
		logs:     NewLogBuffer(0),
		status:   NewStatusTable(),
		revision: make(map[string]uint64),
		newRunID: func() string { return uuid.NewString() },
	}
	for _, opt := range opts {
		opt(s)
	}
	s.runID = s.newRunID()
	return s
}

// Reset clears every store and opens a new run. It returns the new run id.
func (s *State) Reset() string {
	s.registry.Reset()
	s.series.Reset()
	s.logs.Reset()
	s.status.Reset()
	s.revision = make(map[string]uint64)
	s.runID = s.newRunID()
	return s.runID
}

func (s *State) RunID() string                { return s.runID }
func (s *State) Registry() *EntityRegistry    { return s.registry }
func (s *State) TimeSeries() *TimeSeriesStore { return s.series }
func (s *State) Logs() *LogBuffer             { return s.logs }
func (s *State) Status() *StatusTable         { return s.status }

// Touch bumps the revision of key after a mutation.
func (s *State) Touch(key string) { s.revision[key]++ }

// Revision changes every time key's stores are mutated within a run.
func (s *State) Revision(key string) uint64 { return s.revision[key] }

// Known reports whether any store holds state for key.
func (s *State) Known(key string) bool {
	if s.registry.Contains(key) || s.series.Has(key) || s.logs.Has(key) {
		return true
	}
	_, ok := s.status.Get(key)
	return ok
}

// Entities returns registered entities in discovery order.
func (s *State) Entities() []string { return s.registry.List() }

// Latest returns key's most recent observation.
func (s *State) Latest(key string) (models.Observation, bool) { return s.series.Latest(key) }

// Points is the number of retained observations for key.
func (s *State) Points(key string) int { return s.series.Len(key) }

// Series returns a copy of key's observations.
func (s *State) Series(key string) []models.Observation { return s.series.All(key) }
