package simstream

import (
	"context"
	"fmt"
	"sync"

	"EnsembleView/internal/domain/models"
	drepo "EnsembleView/internal/domain/repository"
	"EnsembleView/pkg/kafka"
	"EnsembleView/pkg/logger"
)

// FrameReader is an ordered source of raw frames.
type FrameReader interface {
	Frames(ctx context.Context) (<-chan []byte, <-chan error)
	Close() error
}

// CommandPublisher delivers control commands to the backend.
type CommandPublisher interface {
	Publish(ctx context.Context, topic string, key []byte, value interface{}) error
}

// KafkaStream is a SimulationStream fed from a Kafka topic. Start commands
// go out on a control topic.
type KafkaStream struct {
	newReader    func() (FrameReader, error)
	commands     CommandPublisher
	controlTopic string
	log          *logger.Logger

	mu     sync.Mutex
	reader FrameReader
}

func NewKafkaStream(newReader func() (FrameReader, error), commands CommandPublisher, controlTopic string, log *logger.Logger) *KafkaStream {
	if log == nil {
		log = logger.Nop()
	}
	return &KafkaStream{newReader: newReader, commands: commands, controlTopic: controlTopic, log: log}
}

// NewKafkaReaderFactory builds readers for the frames topic.
func NewKafkaReaderFactory(opts ...kafka.ReaderOption) func() (FrameReader, error) {
	return func() (FrameReader, error) {
		r, err := kafka.NewReader(opts...)
		if err != nil {
			return nil, err
		}
		return r, nil
	}
}

func (s *KafkaStream) Connect(ctx context.Context) error {
	r, err := s.newReader()
	if err != nil {
		return fmt.Errorf("kafka stream connect: %w", err)
	}
	s.mu.Lock()
	old := s.reader
	s.reader = r
	s.mu.Unlock()
	if old != nil {
		_ = old.Close()
	}
	s.log.Info("simulation stream attached to kafka", logger.String("control_topic", s.controlTopic))
	return nil
}

func (s *KafkaStream) Start(ctx context.Context, cmd models.StartCommand) error {
	if s.commands == nil {
		return fmt.Errorf("kafka stream has no command publisher")
	}
	if err := s.commands.Publish(ctx, s.controlTopic, []byte(cmd.RunID), cmd); err != nil {
		return fmt.Errorf("publish start: %w", err)
	}
	return nil
}

func (s *KafkaStream) Read(ctx context.Context) (<-chan []byte, <-chan error) {
	s.mu.Lock()
	r := s.reader
	s.mu.Unlock()
	if r == nil {
		frames := make(chan []byte)
		errs := make(chan error, 1)
		errs <- fmt.Errorf("kafka stream not connected")
		close(errs)
		close(frames)
		return frames, errs
	}
	return r.Frames(ctx)
}

func (s *KafkaStream) Reconnect(ctx context.Context) error {
	_ = s.Close()
	return s.Connect(ctx)
}

func (s *KafkaStream) Close() error {
	s.mu.Lock()
	r := s.reader
	s.reader = nil
	s.mu.Unlock()
	if r == nil {
		return nil
	}
	return r.Close()
}

func (s *KafkaStream) IsConnected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reader != nil
}

var _ drepo.SimulationStream = (*KafkaStream)(nil)
