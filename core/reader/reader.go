// Package reader keeps a cached snapshot of a single contract read fresh,
// either on demand or on a polling interval. A failed refresh never wipes
// previously fetched data; staleness is visible through the timestamps.
package reader

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/trezcool/shule/core"
)

var NowFunc = time.Now // mockable

// DefaultInterval is the polling cadence unless configured otherwise.
const DefaultInterval = 15 * time.Second

type (
	FetchFunc func(ctx context.Context) (interface{}, error)

	Snapshot struct {
		Data       interface{} `json:"data"`
		Err        string      `json:"error,omitempty"`
		UpdatedAt  time.Time   `json:"updated_at,omitempty"` // last successful fetch, UTC
		CheckedAt  time.Time   `json:"checked_at,omitempty"` // last attempt, UTC
		Refreshing bool        `json:"refreshing"`
	}

	Deps struct {
		Name     string
		Fetch    FetchFunc
		Interval time.Duration // defaults to DefaultInterval
		Logger   core.Logger
	}

	Reader struct {
		name     string
		fetch    FetchFunc
		interval time.Duration
		logger   core.Logger

		mu   sync.Mutex
		snap Snapshot
	}
)

func NewReader(deps Deps) *Reader {
	if deps.Interval <= 0 {
		deps.Interval = DefaultInterval
	}
	return &Reader{
		name:     deps.Name,
		fetch:    deps.Fetch,
		interval: deps.Interval,
		logger:   deps.Logger,
	}
}

// Refresh performs one fetch and folds the result into the snapshot.
// Overlapping calls coalesce: while a fetch is in flight, further calls
// return immediately without fetching again.
func (r *Reader) Refresh(ctx context.Context) error {
	r.mu.Lock()
	if r.snap.Refreshing {
		r.mu.Unlock()
		return nil
	}
	r.snap.Refreshing = true
	r.mu.Unlock()

	data, err := r.fetch(ctx)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.snap.Refreshing = false
	r.snap.CheckedAt = NowFunc().UTC()
	if err != nil {
		r.snap.Err = err.Error()
		if r.logger != nil {
			r.logger.Warn(fmt.Sprintf("reader %s: refresh failed: %v", r.name, err))
		}
		return err
	}
	r.snap.Data = data
	r.snap.Err = ""
	r.snap.UpdatedAt = r.snap.CheckedAt
	return nil
}

// Poll refreshes immediately, then on every interval tick until ctx is done.
// It is meant to run on its own goroutine.
func (r *Reader) Poll(ctx context.Context) {
	_ = r.Refresh(ctx)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_ = r.Refresh(ctx)
		}
	}
}

func (r *Reader) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snap
}
