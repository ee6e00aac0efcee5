package cache

import (
	"context"
	"fmt"
	"time"
)

// BytesCache stores raw bytes with a TTL.
type BytesCache interface {
	GetBytes(ctx context.Context, key string) (b []byte, ok bool, err error)
	SetBytes(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// RunPurger is implemented by caches that can drop every entry of a run at
// once. Entries of a finished run are unreachable but would otherwise live
// until their TTL.
type RunPurger interface {
	PurgeRun(ctx context.Context, runID string) (int, error)
}

// RunPrefix is the key prefix shared by all projections of a run.
func RunPrefix(runID string) string { return "ev:" + runID + ":" }

// ProjectionKey identifies a rendered projection. The revision changes on
// every mutation of the entity, so stale entries are never served.
func ProjectionKey(runID, ticker, kind string, revision uint64, variant string) string {
	return fmt.Sprintf("%s%s:%s:%d:%s", RunPrefix(runID), ticker, kind, revision, variant)
}
