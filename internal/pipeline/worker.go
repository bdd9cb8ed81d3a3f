package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgallion1/docbind/internal/assemble"
	"github.com/dgallion1/docbind/internal/listing"
	"github.com/dgallion1/docbind/internal/metrics"
)

// Worker processes a single generate job.
type Worker struct {
	pipe     *assemble.Pipeline
	store    Store
	prepared *PreparedCache
	stats    *metrics.Registry
	log      *slog.Logger
}

func NewWorker(pipe *assemble.Pipeline, store Store, prepared *PreparedCache, stats *metrics.Registry, log *slog.Logger) *Worker {
	return &Worker{
		pipe:     pipe,
		store:    store,
		prepared: prepared,
		stats:    stats,
		log:      log,
	}
}

// Process loads the workspace's listings and runs the bundle pipeline.
func (w *Worker) Process(ctx context.Context, job *Job) {
	log := w.log.With("job_id", job.ID, "workspace_id", job.WorkspaceID)
	start := time.Now()

	job.SetStatus(StatusNormalizing, "loading listings")
	listings, err := w.store.LoadListings(ctx, job.WorkspaceID)
	if err != nil {
		log.Error("load listings failed", "error", err)
		job.AddError(fmt.Sprintf("load listings: %s", err))
		job.SetStatus(StatusFailed, "loading listings")
		return
	}

	var prepared map[int64]listing.ListingDocument
	if w.prepared != nil {
		prepared = w.prepared.Take(job.WorkspaceID)
	}

	obs := &assemble.Observer{
		Phase:        func(p string) { job.SetStatus(JobStatus(p), p) },
		ListingTotal: job.SetTotalListings,
		ListingDone:  func(l listing.Listing, err error) { job.ListingDone(l.ID, err) },
	}
	res, err := w.pipe.Run(ctx, assemble.Request{
		Title:    job.Title,
		Format:   job.Format,
		Listings: listings,
		Prepared: prepared,
	}, obs)

	var failed *assemble.FailedError
	switch {
	case errors.As(err, &failed):
		if w.prepared != nil {
			w.prepared.Put(job.WorkspaceID, failed.Prepared)
		}
		for _, f := range failed.Failures {
			job.AddError(f.Error())
		}
		log.Warn("listings failed to normalize", "failed", failed.ListingIDs())
		job.SetStatus(StatusFailed, assemble.PhaseNormalizing)
		return
	case err != nil:
		log.Error("generate failed", "error", err)
		job.AddError(err.Error())
		job.SetStatus(StatusFailed, job.Snapshot().Phase)
		return
	}

	for _, l := range res.Listings {
		if err := w.store.SetPageCount(ctx, job.WorkspaceID, l.ID, l.NumberOfPages); err != nil {
			log.Warn("page count not saved", "listing_id", l.ID, "error", err)
		}
	}

	job.Complete(res)
	if w.stats != nil {
		w.stats.Job.Observe(start)
	}
	log.Info("bundle ready",
		"file", res.FileName,
		"listings", len(res.Listings),
		"pages", len(res.PageNumbers),
		"duration", time.Since(start),
	)
}
