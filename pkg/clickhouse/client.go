package clickhouse

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
)

type Options struct {
	Host            string
	Port            int
	Database        string
	User            string
	Password        string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	DialTimeout     time.Duration
	ReadTimeout     time.Duration
	AsyncInsert     bool
}

type Option func(*Options)

func WithAddress(host string, port int) Option {
	return func(o *Options) { o.Host, o.Port = host, port }
}

// WithDatabase names the database tables are created in and addressed by.
func WithDatabase(database string) Option {
	return func(o *Options) { o.Database = database }
}

func WithCredentials(user, password string) Option {
	return func(o *Options) { o.User, o.Password = user, password }
}

func WithPool(maxOpen, maxIdle int) Option {
	return func(o *Options) { o.MaxOpenConns, o.MaxIdleConns = maxOpen, maxIdle }
}

func WithTimeouts(dial, read time.Duration) Option {
	return func(o *Options) { o.DialTimeout, o.ReadTimeout = dial, read }
}

// WithAsyncInsert lets the server buffer small inserts instead of creating a
// part per batch.
func WithAsyncInsert(enabled bool) Option {
	return func(o *Options) { o.AsyncInsert = enabled }
}

func defaultOptions() Options {
	return Options{
		Port:            9000,
		Database:        "default",
		User:            "default",
		MaxOpenConns:    4,
		MaxIdleConns:    2,
		ConnMaxLifetime: 5 * time.Minute,
		DialTimeout:     5 * time.Second,
		ReadTimeout:     10 * time.Second,
	}
}

// Client is a native-protocol connection. The session stays on the server's
// default database so the target database can be created on first start;
// tables are always addressed as database.table.
type Client struct {
	conn     driver.Conn
	database string
}

func NewClient(ctx context.Context, opts ...Option) (*Client, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.Host == "" {
		return nil, errors.New("clickhouse: host is required")
	}

	conn, err := clickhouse.Open(nativeOptions(o))
	if err != nil {
		return nil, fmt.Errorf("clickhouse open: %w", err)
	}
	pctx, cancel := context.WithTimeout(ctx, o.DialTimeout)
	defer cancel()
	if err := conn.Ping(pctx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("clickhouse ping: %w", err)
	}
	return &Client{conn: conn, database: o.Database}, nil
}

func nativeOptions(o Options) *clickhouse.Options {
	opts := &clickhouse.Options{
		Addr: []string{fmt.Sprintf("%s:%d", o.Host, o.Port)},
		Auth: clickhouse.Auth{
			Database: "default",
			Username: o.User,
			Password: o.Password,
		},
		DialTimeout:     o.DialTimeout,
		ReadTimeout:     o.ReadTimeout,
		MaxOpenConns:    o.MaxOpenConns,
		MaxIdleConns:    o.MaxIdleConns,
		ConnMaxLifetime: o.ConnMaxLifetime,
	}
	if o.AsyncInsert {
		opts.Settings = clickhouse.Settings{
			"async_insert":          1,
			"wait_for_async_insert": 0,
		}
	}
	return opts
}

func (c *Client) Conn() driver.Conn { return c.conn }

func (c *Client) Database() string { return c.database }

// Table qualifies name with the client's database.
func (c *Client) Table(name string) string { return c.database + "." + name }

func (c *Client) Health(ctx context.Context) error { return c.conn.Ping(ctx) }

func (c *Client) Close() error {
	if c.conn == nil {
		return nil
	}
	return c.conn.Close()
}

// EnsureSchema creates the database, then runs the idempotent DDL in order.
func (c *Client) EnsureSchema(ctx context.Context, stmts ...string) error {
	all := append([]string{"CREATE DATABASE IF NOT EXISTS " + c.database}, stmts...)
	for _, stmt := range all {
		if err := c.conn.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}
