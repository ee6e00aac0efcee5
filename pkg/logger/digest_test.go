package logger

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturePublisher struct {
	mu      sync.Mutex
	topic   string
	batches [][]DigestEntry
}

func (p *capturePublisher) PublishMessage(_ context.Context, topic string, payload interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.topic = topic
	p.batches = append(p.batches, payload.([]DigestEntry))
	return nil
}

func TestErrorDigestCollapsesRepeats(t *testing.T) {
	pub := &capturePublisher{}
	d := NewErrorDigest(DigestConfig{Interval: time.Hour, Threshold: 10, Topic: "logs", Publisher: pub})

	var buf bytes.Buffer
	l := NewWithWriter(&buf, "info")
	l.AttachDigest(d)

	for i := 0; i < 3; i++ {
		l.Error("stream read failed", String("ticker", "AAPL"))
	}
	l.Error("stream read failed", String("ticker", "MSFT"))
	l.Info("not collected")
	assert.Equal(t, 2, d.Pending())

	l.DetachDigest()

	pub.mu.Lock()
	defer pub.mu.Unlock()
	require.Len(t, pub.batches, 1)
	assert.Equal(t, "logs", pub.topic)
	total := 0
	for _, e := range pub.batches[0] {
		total += e.Count
	}
	assert.Equal(t, 4, total)
	assert.Contains(t, buf.String(), "stream read failed")
}

func TestLoggerFields(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&buf, "debug").With(String("run_id", "r1"))
	l.Debug("dispatch", Float64("price", 101.5), Int("points", 3), Bool("new", true), Error(errors.New("boom")))

	out := buf.String()
	assert.Contains(t, out, `"run_id":"r1"`)
	assert.Contains(t, out, `"price":101.5`)
	assert.Contains(t, out, `"points":3`)
	assert.Contains(t, out, `"error":"boom"`)
}

func TestNopLogger(t *testing.T) {
	l := Nop()
	l.Error("ignored")
	l.With(String("k", "v")).Info("ignored")
}

func TestDigestReachesChildLoggers(t *testing.T) {
	pub := &capturePublisher{}
	root := NewWithWriter(&bytes.Buffer{}, "info")
	child := root.With(String("component", "session"))

	d := NewErrorDigest(DigestConfig{Interval: time.Hour, Threshold: 10, Topic: "logs", Publisher: pub})
	root.AttachDigest(d)
	child.Error("reconnect failed")
	assert.Equal(t, 1, d.Pending())

	root.DetachDigest()
	child.Error("after detach")
	assert.Zero(t, d.Pending())
}
