// Package gazeta mines official municipal gazettes for publicly funded
// show contracts and keeps the resulting events in a store.
package gazeta

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/cognicore/gazeta/pkg/gazeta/ingest"
	"github.com/cognicore/gazeta/pkg/gazeta/internalerr"
	"github.com/cognicore/gazeta/pkg/gazeta/metrics"
	"github.com/cognicore/gazeta/pkg/gazeta/pagesource"
	"github.com/cognicore/gazeta/pkg/gazeta/store"
)

// DefaultParallelism bounds MineAll when Options.Parallelism is unset.
const DefaultParallelism = 4

// Miner is the main mining facade
type Miner struct {
	store    store.Store
	pipeline *ingest.Pipeline
	metrics  *metrics.Metrics
	log      *slog.Logger
	now      func() time.Time
	parallel int

	idMu    sync.Mutex
	entropy *ulid.MonotonicEntropy
}

// Options configures a Miner instance
type Options struct {
	Store       store.Store
	Pipeline    *ingest.Pipeline
	Metrics     *metrics.Metrics // optional
	Logger      *slog.Logger     // optional
	Parallelism int
	Now         func() time.Time
}

// New creates a Miner with the given dependencies
func New(opts Options) *Miner {
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Parallelism <= 0 {
		opts.Parallelism = DefaultParallelism
	}
	return &Miner{
		store:    opts.Store,
		pipeline: opts.Pipeline,
		metrics:  opts.Metrics,
		log:      opts.Logger,
		now:      opts.Now,
		parallel: opts.Parallelism,
		entropy:  ulid.Monotonic(rand.Reader, 0),
	}
}

// Close cleanly shuts down the Miner
func (m *Miner) Close() error {
	return m.store.Close()
}

// MineRequest is one document to mine
type MineRequest struct {
	SourceURL string
	Source    pagesource.PageSource
}

// Report describes the outcome of mining one document
type Report struct {
	RunID     string
	SourceURL string
	Summary   ingest.Summary
	Events    []ingest.Event
	Inserted  int
}

// Mine runs the pipeline over one document and stores the events found.
// When the run is cancelled the events found so far are still stored and
// the context error is returned with the partial report.
func (m *Miner) Mine(ctx context.Context, req MineRequest) (Report, error) {
	started := m.now()
	report := Report{RunID: m.newRunID(started), SourceURL: req.SourceURL}

	// Bookkeeping must land even when ctx is cancelled mid-run.
	bg := context.WithoutCancel(ctx)

	run := store.RunRecord{
		ID:        report.RunID,
		SourceURL: req.SourceURL,
		StartedAt: started,
		State:     ingest.StateFetching.String(),
	}
	if err := m.store.RecordRun(bg, run); err != nil {
		return report, fmt.Errorf("record run: %w", err)
	}

	res, mineErr := m.pipeline.Mine(ctx, req.Source, req.SourceURL)
	if res != nil {
		report.Summary = res.Summary
		report.Events = res.Events
	}

	var storeErr error
	for _, ev := range report.Events {
		inserted, err := m.store.UpsertEvent(bg, toStoreEvent(ev))
		if err != nil {
			storeErr = fmt.Errorf("store event %s: %w", ev.ID, err)
			break
		}
		if inserted {
			report.Inserted++
		}
	}

	run.FinishedAt = m.now()
	run.State = report.Summary.State.String()
	run.PagesTotal = report.Summary.PagesTotal
	run.PagesProcessed = report.Summary.PagesProcessed
	run.PagesWithErrors = report.Summary.PagesWithErrors
	run.EventsFound = len(report.Events)
	run.EventsInserted = report.Inserted
	err := mineErr
	if err == nil {
		err = storeErr
	}
	if err != nil {
		run.State = ingest.StateFailed.String()
		run.Error = err.Error()
	}
	if recErr := m.store.RecordRun(bg, run); recErr != nil && err == nil {
		err = fmt.Errorf("record run: %w", recErr)
	}

	m.metrics.ObserveRun(res, report.Inserted, run.FinishedAt.Sub(started))
	m.log.Info("run finished",
		"run", report.RunID,
		"source", req.SourceURL,
		"state", run.State,
		"events", run.EventsFound,
		"inserted", report.Inserted,
	)
	return report, err
}

// MineAll mines documents concurrently, at most Parallelism at a time.
// Reports are returned in request order; the error joins every failed run.
func (m *Miner) MineAll(ctx context.Context, reqs []MineRequest) ([]Report, error) {
	reports := make([]Report, len(reqs))
	errs := make([]error, len(reqs))

	sem := make(chan struct{}, m.parallel)
	var wg sync.WaitGroup
	for i, req := range reqs {
		wg.Add(1)
		go func(i int, req MineRequest) {
			defer wg.Done()
			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				errs[i] = fmt.Errorf("%s: %w", req.SourceURL, ctx.Err())
				return
			}
			defer func() { <-sem }()

			rep, err := m.Mine(ctx, req)
			reports[i] = rep
			if err != nil {
				errs[i] = fmt.Errorf("%s: %w", req.SourceURL, err)
			}
		}(i, req)
	}
	wg.Wait()

	return reports, errors.Join(errs...)
}

// Upcoming lists stored events dated from now on, earliest first. An empty
// municipality lists every municipality.
func (m *Miner) Upcoming(ctx context.Context, municipality string, limit int) ([]store.Event, error) {
	now := m.now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	return m.store.ListEvents(ctx, store.Filter{
		Municipality: municipality,
		From:         today,
		Limit:        limit,
	})
}

// Event returns a stored event by ID.
func (m *Miner) Event(ctx context.Context, id string) (store.Event, error) {
	e, found, err := m.store.GetEvent(ctx, id)
	if err != nil {
		return store.Event{}, err
	}
	if !found {
		return store.Event{}, fmt.Errorf("event %s: %w", id, internalerr.ErrNotFound)
	}
	return e, nil
}

// Run returns a recorded run by ID.
func (m *Miner) Run(ctx context.Context, id string) (store.RunRecord, error) {
	r, found, err := m.store.GetRun(ctx, id)
	if err != nil {
		return store.RunRecord{}, err
	}
	if !found {
		return store.RunRecord{}, fmt.Errorf("run %s: %w", id, internalerr.ErrNotFound)
	}
	return r, nil
}

func (m *Miner) newRunID(t time.Time) string {
	m.idMu.Lock()
	defer m.idMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(t), m.entropy).String()
}

func toStoreEvent(ev ingest.Event) store.Event {
	return store.Event{
		ID:            ev.ID,
		Fingerprint:   ev.Fingerprint,
		Title:         ev.Title,
		Artist:        ev.Artist,
		EventName:     ev.EventName,
		EventDate:     ev.EventDate,
		DateEstimated: ev.DateEstimated,
		Municipality:  ev.Municipality,
		Venue:         ev.Venue,
		BasePrice:     ev.BasePrice,
		SourceTag:     ev.SourceTag,
		SourceURL:     ev.SourceURL,
		Category:      ev.Category,
		PageIndex:     ev.PageIndex,
		DetectedAt:    ev.DetectedAt,
	}
}
