// Package refresh periodically reloads external event sources (ICS feeds and
// the HR dataset) into the calendar store.
package refresh

import (
	"context"
	"errors"
	"sync"
	"time"

	pkgerrors "github.com/pkg/errors"
	"github.com/robfig/cron/v3"

	"peoplepulse/internal/calendar"
	"peoplepulse/internal/hr"
	"peoplepulse/internal/ics"
	appLog "peoplepulse/internal/log"
	"peoplepulse/internal/model"
)

// Fetcher is the subset of *ics.Fetcher used here.
type Fetcher interface {
	FetchAll(ctx context.Context, sources []ics.Source) ([]ics.FetchResult, []error)
}

// Options configures a Refresher.
type Options struct {
	Sources  []ics.Source
	Dataset  string // HR dataset path; empty skips it
	ViewerID string
	Location *time.Location
}

// Refresher replaces each source's events in the store on every run. A
// source that fails keeps its previous events.
type Refresher struct {
	store   *calendar.Store
	fetcher Fetcher
	opts    Options

	mu      sync.Mutex // one run at a time
	lastRun time.Time
	lastErr error
}

func New(store *calendar.Store, fetcher Fetcher, opts Options) *Refresher {
	if opts.Location == nil {
		opts.Location = time.Local
	}
	return &Refresher{store: store, fetcher: fetcher, opts: opts}
}

// RefreshOnce runs a single reload. The returned error joins every source
// failure; successful sources are applied regardless.
func (r *Refresher) RefreshOnce(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var errs []error

	if len(r.opts.Sources) > 0 && r.fetcher != nil {
		results, fetchErrs := r.fetcher.FetchAll(ctx, r.opts.Sources)
		errs = append(errs, fetchErrs...)

		for _, res := range results {
			events, err := ics.ParseICS(res.Source, res.Body, r.opts.Location)
			if err != nil {
				errs = append(errs, pkgerrors.Wrapf(err, "parse %s", res.Source.ID))
				continue
			}
			r.store.ReplaceSource(ics.SourceTag(res.Source), events)
			appLog.Info("ics source refreshed", "id", res.Source.ID, "events", len(events), "from_cache", res.FromCache)
		}
	}

	if r.opts.Dataset != "" {
		ds, err := hr.LoadDataset(r.opts.Dataset)
		if err != nil {
			appLog.Error("hr dataset load failed", err, "path", r.opts.Dataset)
			errs = append(errs, err)
		} else {
			events := ds.Events(r.opts.ViewerID, r.opts.Location)
			r.store.ReplaceSource(model.SourceHR, events)
			appLog.Info("hr dataset refreshed", "events", len(events))
		}
	}

	r.lastRun = time.Now()
	r.lastErr = errors.Join(errs...)
	return r.lastErr
}

// LastRun reports when the last reload finished and its error.
func (r *Refresher) LastRun() (time.Time, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastRun, r.lastErr
}

// Start schedules RefreshOnce on schedule (standard 5-field cron syntax) until
// ctx is cancelled. It does not run an initial refresh.
func (r *Refresher) Start(ctx context.Context, schedule string) error {
	c := cron.New(cron.WithLocation(r.opts.Location))
	if _, err := c.AddFunc(schedule, func() {
		if err := r.RefreshOnce(ctx); err != nil {
			appLog.Warn("scheduled refresh finished with errors", "error", err.Error())
		}
	}); err != nil {
		return pkgerrors.Wrapf(err, "invalid refresh schedule %q", schedule)
	}

	c.Start()
	appLog.Info("refresh scheduler started", "schedule", schedule)

	go func() {
		<-ctx.Done()
		<-c.Stop().Done()
		appLog.Info("refresh scheduler stopped")
	}()
	return nil
}
