// Package server exposes a competition id mapping over HTTP. The mapping is
// held in a Holder and can be replaced while requests are being served.
package server

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/garyellow/admission-lists/internal/competition"
	"github.com/garyellow/admission-lists/internal/logger"
)

// Snapshot is a mapping together with where it came from.
type Snapshot struct {
	Mapping     *competition.Mapping
	Source      string
	RunID       string
	GeneratedAt time.Time
	LoadedAt    time.Time
}

// Holder stores the current Snapshot. Readers never block; Swap replaces the
// snapshot for subsequent requests while in-flight requests keep the old one.
type Holder struct {
	current atomic.Pointer[Snapshot]
}

// NewHolder creates an empty Holder.
func NewHolder() *Holder {
	return &Holder{}
}

// Current returns the active snapshot or nil before the first Swap.
func (h *Holder) Current() *Snapshot {
	return h.current.Load()
}

// Swap installs s and returns the previous snapshot.
func (h *Holder) Swap(s *Snapshot) *Snapshot {
	if s.LoadedAt.IsZero() {
		s.LoadedAt = time.Now()
	}
	return h.current.Swap(s)
}

// LoadFunc produces a fresh snapshot.
type LoadFunc func(ctx context.Context) (*Snapshot, error)

// Reload calls load and swaps in the result. On error the current snapshot is kept.
func (h *Holder) Reload(ctx context.Context, load LoadFunc) error {
	s, err := load(ctx)
	if err != nil {
		return fmt.Errorf("reload mapping: %w", err)
	}
	if s == nil || s.Mapping == nil {
		return fmt.Errorf("reload mapping: loader returned no mapping")
	}
	h.Swap(s)
	return nil
}

// RunReloader reloads every interval until ctx is done. Failures are logged
// and the previous snapshot stays active.
func (h *Holder) RunReloader(ctx context.Context, interval time.Duration, load LoadFunc, log *logger.Logger) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := h.Reload(ctx, load); err != nil {
				log.WithError(err).Warn("Mapping reload failed, keeping previous snapshot")
				continue
			}
			s := h.Current()
			log.WithFields(map[string]any{
				"programs": s.Mapping.Len(),
				"source":   s.Source,
				"run_id":   s.RunID,
			}).Debug("Mapping reloaded")
		}
	}
}
