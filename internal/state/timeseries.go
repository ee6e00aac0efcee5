package state

import "EnsembleView/internal/domain/models"

// TimeSeriesStore keeps an append-only observation log per entity.
// With maxPoints > 0 the oldest observations are evicted beyond that size;
// Count still reports every append so export cursors stay valid.
type TimeSeriesStore struct {
	series    map[string][]models.Observation
	appended  map[string]int
	maxPoints int
}

func NewTimeSeriesStore(maxPoints int) *TimeSeriesStore {
	return &TimeSeriesStore{
		series:    make(map[string][]models.Observation),
		appended:  make(map[string]int),
		maxPoints: maxPoints,
	}
}

func (s *TimeSeriesStore) Append(key string, obs models.Observation) {
	ser := s.series[key]
	if s.maxPoints > 0 && len(ser) >= s.maxPoints {
		ser = ser[len(ser)-s.maxPoints+1:]
	}
	s.series[key] = append(ser, obs)
	s.appended[key]++
}

// Latest returns the most recently appended observation; ok is false when the
// entity has none.
func (s *TimeSeriesStore) Latest(key string) (models.Observation, bool) {
	ser := s.series[key]
	if len(ser) == 0 {
		return models.Observation{}, false
	}
	return ser[len(ser)-1], true
}

// All returns a copy of the retained series in arrival order.
func (s *TimeSeriesStore) All(key string) []models.Observation {
	ser, ok := s.series[key]
	if !ok {
		return nil
	}
	out := make([]models.Observation, len(ser))
	copy(out, ser)
	return out
}

// Since returns retained observations whose sequence number (0-based append
// index) is >= seq, along with the sequence number of the first one returned.
func (s *TimeSeriesStore) Since(key string, seq int) ([]models.Observation, int) {
	ser := s.series[key]
	first := s.appended[key] - len(ser)
	if seq < first {
		seq = first
	}
	off := seq - first
	if off >= len(ser) {
		return nil, seq
	}
	out := make([]models.Observation, len(ser)-off)
	copy(out, ser[off:])
	return out, seq
}

// Len is the number of retained observations for key.
func (s *TimeSeriesStore) Len(key string) int { return len(s.series[key]) }

// Count is the number of observations ever appended for key since reset.
func (s *TimeSeriesStore) Count(key string) int { return s.appended[key] }

// Has reports whether any observation exists for key.
func (s *TimeSeriesStore) Has(key string) bool {
	_, ok := s.series[key]
	return ok
}

func (s *TimeSeriesStore) Reset() {
	s.series = make(map[string][]models.Observation)
	s.appended = make(map[string]int)
}
