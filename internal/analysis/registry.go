package analysis

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/brandpulse/sponsorship-analysis-go/pkg/logger"
)

// DefaultRetention is how long settled or abandoned handles stay queryable
// before the janitor evicts them.
const DefaultRetention = 24 * time.Hour

// Registry tracks analysis jobs by id for the HTTP layer. Each Start runs on
// a fresh Orchestrator, so jobs for different callers proceed concurrently
// while each handle keeps its own single-owner semantics.
type Registry struct {
	api       ProviderAPI
	pollerCfg PollerConfig
	recorder  JobRecorder
	publisher EventPublisher
	retention time.Duration

	mu      sync.RWMutex
	handles map[string]*JobHandle
}

// NewRegistry creates a Registry over the given provider API. A retention of
// zero falls back to DefaultRetention.
func NewRegistry(api ProviderAPI, pollerCfg PollerConfig, retention time.Duration) *Registry {
	if retention <= 0 {
		retention = DefaultRetention
	}
	return &Registry{
		api:       api,
		pollerCfg: pollerCfg,
		retention: retention,
		handles:   make(map[string]*JobHandle),
	}
}

// SetRecorder configures outcome persistence for jobs started afterwards.
func (r *Registry) SetRecorder(rec JobRecorder) {
	r.recorder = rec
}

// SetPublisher configures event publishing for jobs started afterwards.
func (r *Registry) SetPublisher(pub EventPublisher) {
	r.publisher = pub
}

// Start launches a new analysis job and registers its handle under the
// provider-assigned job id.
func (r *Registry) Start(ctx context.Context, videoIDs, brands []string) (*JobHandle, error) {
	orch := NewOrchestrator(r.api, r.pollerCfg)
	if r.recorder != nil {
		orch.SetRecorder(r.recorder)
	}
	if r.publisher != nil {
		orch.SetPublisher(r.publisher)
	}

	handle, err := orch.Start(ctx, videoIDs, brands)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.handles[handle.Job().JobID] = handle
	r.mu.Unlock()
	return handle, nil
}

// Get returns the handle for a job id, if known.
func (r *Registry) Get(jobID string) (*JobHandle, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handles[jobID]
	return h, ok
}

// Cancel abandons the job with the given id. Returns false when the id is
// unknown.
func (r *Registry) Cancel(jobID string) bool {
	h, ok := r.Get(jobID)
	if !ok {
		return false
	}
	h.Cancel()
	return true
}

// Count returns the number of tracked handles.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.handles)
}

// Sweep evicts handles older than the retention window and returns how many
// were removed. Live handles are never evicted regardless of age.
func (r *Registry) Sweep(now time.Time) int {
	cutoff := now.Add(-r.retention)

	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for id, h := range r.handles {
		if h.live() {
			continue
		}
		if h.Job().CreatedAt.Before(cutoff) {
			delete(r.handles, id)
			removed++
		}
	}
	return removed
}

// StartJanitor sweeps expired handles on the given interval until ctx is
// cancelled.
func (r *Registry) StartJanitor(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Hour
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				if removed := r.Sweep(now); removed > 0 {
					logger.Log.Info("evicted expired job handles",
						zap.Int("removed", removed),
					)
				}
			}
		}
	}()
}
