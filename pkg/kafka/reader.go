package kafka

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/segmentio/kafka-go"
)

// ReaderOption configures Reader.
type ReaderOption func(*ReaderConfig)

type ReaderConfig struct {
	Brokers     []string
	Topic       string
	GroupID     string
	StartOffset int64
	MinBytes    int
	MaxBytes    int
	MaxWait     time.Duration
	BufferSize  int
}

func WithReaderBrokers(brokers []string) ReaderOption {
	return func(c *ReaderConfig) { c.Brokers = brokers }
}

func WithReaderTopic(topic string) ReaderOption {
	return func(c *ReaderConfig) { c.Topic = topic }
}

// WithReaderGroupID enables consumer-group offset tracking.
func WithReaderGroupID(groupID string) ReaderOption {
	return func(c *ReaderConfig) { c.GroupID = groupID }
}

// WithReaderOffset selects where a group-less reader starts: "earliest" or "latest".
func WithReaderOffset(reset string) ReaderOption {
	return func(c *ReaderConfig) {
		if reset == "earliest" {
			c.StartOffset = kafka.FirstOffset
		} else {
			c.StartOffset = kafka.LastOffset
		}
	}
}

func WithReaderBufferSize(n int) ReaderOption {
	return func(c *ReaderConfig) {
		if n > 0 {
			c.BufferSize = n
		}
	}
}

// Reader delivers one topic's messages strictly in partition order on a
// channel. There is no worker pool: frames must be applied sequentially.
type Reader struct {
	cfg *ReaderConfig
	r   *kafka.Reader
}

func NewReader(opts ...ReaderOption) (*Reader, error) {
	cfg := &ReaderConfig{
		StartOffset: kafka.LastOffset,
		MinBytes:    1,
		MaxBytes:    10e6,
		MaxWait:     250 * time.Millisecond,
		BufferSize:  256,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("brokers are required")
	}
	if cfg.Topic == "" {
		return nil, fmt.Errorf("topic is required")
	}

	initReaderMetricsOnce()
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     cfg.Brokers,
		Topic:       cfg.Topic,
		GroupID:     cfg.GroupID,
		StartOffset: cfg.StartOffset,
		MinBytes:    cfg.MinBytes,
		MaxBytes:    cfg.MaxBytes,
		MaxWait:     cfg.MaxWait,
	})
	return &Reader{cfg: cfg, r: r}, nil
}

// Frames streams message values until ctx ends (both channels close) or
// the reader fails (error sent, then both close).
func (r *Reader) Frames(ctx context.Context) (<-chan []byte, <-chan error) {
	out := make(chan []byte, r.cfg.BufferSize)
	errs := make(chan error, 1)
	go func() {
		defer close(out)
		defer close(errs)
		for {
			msg, err := r.r.ReadMessage(ctx)
			if err != nil {
				if ctx.Err() != nil || errors.Is(err, io.EOF) {
					return
				}
				errs <- fmt.Errorf("kafka read %s: %w", r.cfg.Topic, err)
				return
			}
			if readerFrames != nil {
				readerFrames.WithLabelValues(r.cfg.Topic).Inc()
			}
			select {
			case out <- msg.Value:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, errs
}

func (r *Reader) Topic() string { return r.cfg.Topic }

func (r *Reader) Close() error { return r.r.Close() }

var (
	readerFrames *prometheus.CounterVec
	readerOnce   = make(chan struct{}, 1)
)

func initReaderMetricsOnce() {
	select {
	case readerOnce <- struct{}{}:
		readerFrames = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ensembleview_kafka_reader_frames_total",
				Help: "Frames read from Kafka",
			},
			[]string{"topic"},
		)
	default:
	}
}
