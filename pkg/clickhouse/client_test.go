package clickhouse

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNativeOptions(t *testing.T) {
	o := defaultOptions()
	for _, opt := range []Option{
		WithAddress("ch.local", 9440),
		WithDatabase("ensemble"),
		WithCredentials("writer", "secret"),
		WithTimeouts(2*time.Second, 0),
		WithAsyncInsert(true),
	} {
		opt(&o)
	}

	native := nativeOptions(o)
	assert.Equal(t, []string{"ch.local:9440"}, native.Addr)
	assert.Equal(t, "default", native.Auth.Database, "sessions start outside the target database")
	assert.Equal(t, "writer", native.Auth.Username)
	assert.Equal(t, 2*time.Second, native.DialTimeout)
	assert.Equal(t, 4, native.MaxOpenConns)
	assert.Equal(t, 1, native.Settings["async_insert"])
}

func TestSyncInsertLeavesSettingsEmpty(t *testing.T) {
	o := defaultOptions()
	o.Host = "ch.local"
	assert.Empty(t, nativeOptions(o).Settings)
}

func TestNewClientRequiresHost(t *testing.T) {
	_, err := NewClient(context.Background())
	assert.Error(t, err)
}

func TestTableIsQualified(t *testing.T) {
	c := &Client{database: "ensemble"}
	assert.Equal(t, "ensemble.observations", c.Table("observations"))
}
