package simstream

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"EnsembleView/internal/domain/models"
	drepo "EnsembleView/internal/domain/repository"
	"EnsembleView/pkg/logger"

	"github.com/gorilla/websocket"
)

// WSClient is a SimulationStream over the backend's websocket endpoint.
type WSClient struct {
	url          string
	pingInterval time.Duration
	bufferSize   int
	dialer       *websocket.Dialer
	log          *logger.Logger

	mu        sync.Mutex // guards conn and writes
	conn      *websocket.Conn
	connected bool
}

type WSOption func(*WSClient)

func WithPingInterval(d time.Duration) WSOption {
	return func(c *WSClient) { c.pingInterval = d }
}

func WithHandshakeTimeout(d time.Duration) WSOption {
	return func(c *WSClient) {
		if d > 0 {
			c.dialer.HandshakeTimeout = d
		}
	}
}

func WithBufferSize(n int) WSOption {
	return func(c *WSClient) {
		if n > 0 {
			c.bufferSize = n
		}
	}
}

func NewWSClient(url string, log *logger.Logger, opts ...WSOption) *WSClient {
	if log == nil {
		log = logger.Nop()
	}
	d := *websocket.DefaultDialer
	c := &WSClient{
		url:          url,
		pingInterval: 20 * time.Second,
		bufferSize:   1024,
		dialer:       &d,
		log:          log,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *WSClient) Connect(ctx context.Context) error {
	conn, _, err := c.dialer.DialContext(ctx, c.url, nil)
	if err != nil {
		return fmt.Errorf("simulation connect: %w", err)
	}
	c.mu.Lock()
	if c.conn != nil {
		_ = c.conn.Close()
	}
	c.conn = conn
	c.connected = true
	c.mu.Unlock()
	c.log.Info("simulation stream connected", logger.String("url", c.url))
	return nil
}

// Start sends the run start command.
func (c *WSClient) Start(ctx context.Context, cmd models.StartCommand) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil || !c.connected {
		return fmt.Errorf("simulation stream not connected")
	}
	if dl, ok := ctx.Deadline(); ok {
		_ = c.conn.SetWriteDeadline(dl)
		defer func() { _ = c.conn.SetWriteDeadline(time.Time{}) }()
	}
	if err := c.conn.WriteJSON(cmd); err != nil {
		return fmt.Errorf("send start: %w", err)
	}
	return nil
}

// Read delivers text frames of the current connection. On a read failure the
// error is sent and both channels close; a normal close from the backend
// closes both channels without an error.
func (c *WSClient) Read(ctx context.Context) (<-chan []byte, <-chan error) {
	frames := make(chan []byte, c.bufferSize)
	errs := make(chan error, 1)

	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()

	if conn == nil {
		errs <- fmt.Errorf("simulation stream not connected")
		close(errs)
		close(frames)
		return frames, errs
	}

	readCtx, stop := context.WithCancel(ctx)
	go c.pingLoop(readCtx, conn)

	go func() {
		defer stop()
		defer close(frames)
		defer close(errs)
		for {
			kind, b, err := conn.ReadMessage()
			if err != nil {
				c.markDown(conn)
				if ctx.Err() != nil {
					return
				}
				if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					return
				}
				errs <- fmt.Errorf("simulation read: %w", err)
				return
			}
			if kind != websocket.TextMessage && kind != websocket.BinaryMessage {
				continue
			}
			select {
			case frames <- b:
			case <-ctx.Done():
				return
			}
		}
	}()
	return frames, errs
}

func (c *WSClient) pingLoop(ctx context.Context, conn *websocket.Conn) {
	if c.pingInterval <= 0 {
		return
	}
	t := time.NewTicker(c.pingInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			c.mu.Lock()
			err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second))
			c.mu.Unlock()
			if err != nil && !errors.Is(err, websocket.ErrCloseSent) {
				c.log.Debug("ping failed", logger.Error(err))
			}
		}
	}
}

func (c *WSClient) markDown(conn *websocket.Conn) {
	c.mu.Lock()
	if c.conn == conn {
		c.connected = false
	}
	c.mu.Unlock()
}

// Reconnect drops the current connection and dials again.
func (c *WSClient) Reconnect(ctx context.Context) error {
	_ = c.Close()
	return c.Connect(ctx)
}

func (c *WSClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connected = false
	if c.conn == nil {
		return nil
	}
	_ = c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
	err := c.conn.Close()
	c.conn = nil
	return err
}

func (c *WSClient) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

var _ drepo.SimulationStream = (*WSClient)(nil)
