package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dgallion1/docbind/internal/assemble"
	"github.com/dgallion1/docbind/internal/config"
	"github.com/dgallion1/docbind/internal/listing"
	"github.com/dgallion1/docbind/internal/metrics"
)

// Store is the part of the workspace store the workers need.
type Store interface {
	LoadListings(ctx context.Context, wsID string) ([]listing.Listing, error)
	SetPageCount(ctx context.Context, wsID string, id int64, n int) error
}

// Orchestrator manages the bundle generation queue.
type Orchestrator struct {
	jobs     *JobStore
	prepared *PreparedCache
	queue    chan *Job
	pipe     *assemble.Pipeline
	store    Store
	stats    *metrics.Registry
	log      *slog.Logger
	cfg      config.Config

	mu      sync.Mutex
	stopped bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewOrchestrator creates the pipeline. Call Start to launch workers.
func NewOrchestrator(cfg config.Config, pipe *assemble.Pipeline, store Store, stats *metrics.Registry, log *slog.Logger) *Orchestrator {
	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = 1
	}
	if cfg.JobTTL <= 0 {
		cfg.JobTTL = time.Hour
	}
	return &Orchestrator{
		jobs:     NewJobStore(cfg.JobTTL),
		prepared: NewPreparedCache(cfg.JobTTL),
		queue:    make(chan *Job, cfg.MaxQueueSize),
		pipe:     pipe,
		store:    store,
		stats:    stats,
		log:      log,
		cfg:      cfg,
	}
}

// Start launches worker goroutines.
func (o *Orchestrator) Start(ctx context.Context) {
	workerCtx, cancel := context.WithCancel(ctx)
	o.cancel = cancel

	for range o.cfg.WorkerCount {
		o.wg.Add(1)
		go func() {
			defer o.wg.Done()
			w := NewWorker(o.pipe, o.store, o.prepared, o.stats, o.log)
			for {
				select {
				case <-workerCtx.Done():
					return
				case job, ok := <-o.queue:
					if !ok {
						return
					}
					w.Process(workerCtx, job)
				}
			}
		}()
	}

	// Start job store cleanup.
	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-workerCtx.Done():
				return
			case <-ticker.C:
				o.jobs.Cleanup()
				o.prepared.Cleanup()
			}
		}
	}()
}

// Stop gracefully shuts down the pipeline.
func (o *Orchestrator) Stop() {
	o.mu.Lock()
	if o.stopped {
		o.mu.Unlock()
		return
	}
	o.stopped = true
	close(o.queue)
	o.mu.Unlock()

	if o.cancel != nil {
		o.cancel()
	}
	o.wg.Wait()
}

// Submit queues a new job for processing.
func (o *Orchestrator) Submit(job *Job) error {
	o.jobs.Put(job)

	o.mu.Lock()
	defer o.mu.Unlock()
	if o.stopped {
		job.SetStatus(StatusFailed, "shutdown")
		return fmt.Errorf("job runner is stopped")
	}
	select {
	case o.queue <- job:
		return nil
	default:
		job.SetStatus(StatusFailed, "queue_full")
		return fmt.Errorf("job queue is full (%d)", o.cfg.MaxQueueSize)
	}
}

// GetJob returns a job by ID.
func (o *Orchestrator) GetJob(id string) *Job {
	return o.jobs.Get(id)
}

// QueueDepth returns current queue depth.
func (o *Orchestrator) QueueDepth() int {
	return len(o.queue)
}

// PreparedCache keeps the listings a failed job did normalize, per
// workspace, so the next job for that workspace can skip them. Listing bytes
// never change after upload, so a cached document stays valid until the
// listing is removed.
type PreparedCache struct {
	mu      sync.Mutex
	entries map[string]preparedEntry
	ttl     time.Duration
}

type preparedEntry struct {
	docs    map[int64]listing.ListingDocument
	created time.Time
}

func NewPreparedCache(ttl time.Duration) *PreparedCache {
	return &PreparedCache{entries: make(map[string]preparedEntry), ttl: ttl}
}

// Put replaces the cached documents of a workspace.
func (c *PreparedCache) Put(wsID string, docs map[int64]listing.ListingDocument) {
	if len(docs) == 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[wsID] = preparedEntry{docs: docs, created: time.Now()}
}

// Take removes and returns the cached documents of a workspace.
func (c *PreparedCache) Take(wsID string) map[int64]listing.ListingDocument {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[wsID]
	if !ok {
		return nil
	}
	delete(c.entries, wsID)
	if time.Since(e.created) > c.ttl {
		return nil
	}
	return e.docs
}

// Cleanup removes expired entries.
func (c *PreparedCache) Cleanup() {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := time.Now()
	for id, e := range c.entries {
		if now.Sub(e.created) > c.ttl {
			delete(c.entries, id)
		}
	}
}
