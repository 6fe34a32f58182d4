package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"runtime/debug"
	"time"

	"github.com/cognicore/gazeta/pkg/gazeta/internalerr"
	"github.com/cognicore/gazeta/pkg/gazeta/pagesource"
)

// Pipeline defaults.
const (
	DefaultWindowSize = 3
	DefaultGCInterval = 30
	DefaultSourceTag  = "amm_mg_pdf"
	DefaultVenue      = "Verificar no Edital (Praça Pública)"
)

// Options wires the components of a Pipeline.
type Options struct {
	WindowSize          int
	GCInterval          int // pages between memory reclamation hints; 0 disables
	MunicipalityPattern *regexp.Regexp
	SentinelRegion      string
	Filter              *RelevanceFilter
	FragmentMinScore    int // score a fragment's lead must reach; 0 disables
	Slicer              *BlockSlicer
	Extractor           *EntityExtractor
	Classifier          *Classifier
	DedupPolicy         DedupPolicy
	DedupIncludeValue   bool
	SourceTag           string
	Venue               string
	Logger              *slog.Logger
	Now                 func() time.Time
	Reclaim             func()
}

// Summary describes one mining run.
type Summary struct {
	State              State
	PagesTotal         int
	PagesProcessed     int
	PagesWithErrors    int
	WindowsEmitted     int
	BlocksRejected     int
	FragmentsEvaluated int
	FragmentsVetoed    int
	FragmentsLowScore  int
	FragmentsNoMatch   int
	EventsEmitted      int
	PeakBufferedPages  int
	Reclaims           int
}

// Result is the output of a mining run. Events are in page-traversal order.
type Result struct {
	Events  []Event
	Summary Summary
}

// Pipeline orchestrates the mining flow:
// pages → window → municipality blocks → relevance → fragments →
// extraction → classification → deduplication.
//
// A Pipeline holds only configuration; every Mine call owns its own window,
// resolver and deduplicator, so one Pipeline may mine several documents
// concurrently.
type Pipeline struct {
	windowSize   int
	gcInterval   int
	municipality *regexp.Regexp
	sentinel     string
	filter       *RelevanceFilter
	fragmentMin  int
	slicer       *BlockSlicer
	extractor    *EntityExtractor
	classifier   *Classifier
	policy       DedupPolicy
	includeValue bool
	sourceTag    string
	venue        string
	log          *slog.Logger
	now          func() time.Time
	reclaim      func()
}

// NewPipeline validates opts and creates a pipeline. Configuration errors
// wrap internalerr.ErrInvalidConfig and are reported before any page is
// read.
func NewPipeline(opts Options) (*Pipeline, error) {
	if opts.WindowSize == 0 {
		opts.WindowSize = DefaultWindowSize
	}
	if opts.WindowSize < 1 {
		return nil, fmt.Errorf("%w: window size must be at least 1, got %d", internalerr.ErrInvalidConfig, opts.WindowSize)
	}
	if opts.FragmentMinScore < 0 {
		return nil, fmt.Errorf("%w: fragment min score must not be negative, got %d", internalerr.ErrInvalidConfig, opts.FragmentMinScore)
	}
	if opts.GCInterval < 0 {
		return nil, fmt.Errorf("%w: gc interval must not be negative, got %d", internalerr.ErrInvalidConfig, opts.GCInterval)
	}
	if opts.Filter == nil {
		return nil, fmt.Errorf("%w: relevance filter is required", internalerr.ErrInvalidConfig)
	}
	policy, err := ParseDedupPolicy(string(opts.DedupPolicy))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", internalerr.ErrInvalidConfig, err)
	}
	if opts.MunicipalityPattern == nil {
		opts.MunicipalityPattern = regexp.MustCompile(DefaultMunicipalityPattern)
	}
	if opts.MunicipalityPattern.NumSubexp() < 1 {
		return nil, fmt.Errorf("%w: municipality pattern needs a capture group", internalerr.ErrInvalidConfig)
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Slicer == nil {
		opts.Slicer = NewBlockSlicer(300)
	}
	if opts.Extractor == nil {
		opts.Extractor = NewEntityExtractor(ExtractorOptions{Now: opts.Now, DateOffsetDays: DefaultDateOffsetDays})
	}
	if opts.Classifier == nil {
		opts.Classifier = NewClassifier(DefaultCategories, CategoryShow)
	}
	if opts.SourceTag == "" {
		opts.SourceTag = DefaultSourceTag
	}
	if opts.Venue == "" {
		opts.Venue = DefaultVenue
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	if opts.Reclaim == nil {
		opts.Reclaim = debug.FreeOSMemory
	}

	return &Pipeline{
		windowSize:   opts.WindowSize,
		gcInterval:   opts.GCInterval,
		municipality: opts.MunicipalityPattern,
		sentinel:     opts.SentinelRegion,
		filter:       opts.Filter,
		fragmentMin:  opts.FragmentMinScore,
		slicer:       opts.Slicer,
		extractor:    opts.Extractor,
		classifier:   opts.Classifier,
		policy:       policy,
		includeValue: opts.DedupIncludeValue,
		sourceTag:    opts.SourceTag,
		venue:        opts.Venue,
		log:          opts.Logger,
		now:          opts.Now,
		reclaim:      opts.Reclaim,
	}, nil
}

// run is the per-document state of a Mine call.
type run struct {
	p         *Pipeline
	sourceURL string
	window    *WindowBuffer
	geo       *GeographyResolver
	dedup     *Deduplicator
	summary   Summary
}

func (r *run) to(s State) {
	r.summary.State = s
	switch s {
	case StateFetching, StatePaginating, StateDraining, StateDone, StateFailed:
		r.p.log.Debug("mining state", "state", s.String(), "source", r.sourceURL)
	}
}

// Mine walks src page by page in increasing order and returns the
// deduplicated events. Unreadable pages are counted and treated as empty.
// Cancellation is checked at every page boundary; a cancelled run returns
// the events found so far together with the context error.
func (p *Pipeline) Mine(ctx context.Context, src pagesource.PageSource, sourceURL string) (*Result, error) {
	r := &run{
		p:         p,
		sourceURL: sourceURL,
		window:    NewWindowBuffer(p.windowSize),
		geo:       NewGeographyResolver(p.municipality, p.sentinel),
		dedup:     NewDeduplicator(p.policy, p.includeValue),
	}

	r.to(StateFetching)
	if src == nil {
		r.to(StateFailed)
		return r.result(), fmt.Errorf("%w: nil page source", internalerr.ErrInvalidInput)
	}
	total := src.PageCount()
	r.summary.PagesTotal = total

	r.to(StatePaginating)
	for i := 0; i < total; i++ {
		if err := ctx.Err(); err != nil {
			r.to(StateFailed)
			return r.result(), fmt.Errorf("mining cancelled at page %d: %w", i, err)
		}

		text, err := src.PageText(i)
		if err != nil {
			r.summary.PagesWithErrors++
			p.log.Warn("unreadable page", "page", i, "source", sourceURL, "error", err)
			text = ""
		}
		r.summary.PagesProcessed++

		r.to(StateWindowing)
		r.geo.Record(i, text)
		if w, ok := r.window.Push(RawPage{Index: i, Text: text}); ok {
			r.processWindow(w)
		}

		if p.gcInterval > 0 && (i+1)%p.gcInterval == 0 {
			p.reclaim()
			r.summary.Reclaims++
		}
	}

	r.to(StateDraining)
	if w, ok := r.window.Flush(); ok {
		r.processWindow(w)
	}

	r.to(StateDone)
	res := r.result()
	p.log.Info("mining finished",
		"source", sourceURL,
		"pages", res.Summary.PagesProcessed,
		"page_errors", res.Summary.PagesWithErrors,
		"events", res.Summary.EventsEmitted,
	)
	return res, nil
}

func (r *run) result() *Result {
	events := r.dedup.Events()
	r.summary.EventsEmitted = len(events)
	r.summary.PeakBufferedPages = r.window.Peak()
	return &Result{Events: events, Summary: r.summary}
}

func (r *run) processWindow(w Window) {
	p := r.p
	r.summary.WindowsEmitted++

	r.to(StateResolving)
	fallback := r.geo.Resolve(w.StartIndex - 1)
	blocks := r.geo.SplitBlocks(w.Text, fallback)

	for _, b := range blocks {
		r.to(StateFiltering)
		if score := p.filter.Score(b.Text); score < p.filter.Threshold() {
			r.summary.BlocksRejected++
			if p.log.Enabled(context.Background(), slog.LevelDebug) {
				p.log.Debug("block rejected",
					"municipality", b.Municipality,
					"score", score,
					"terms", p.filter.Explain(b.Text),
					"page", w.EndIndex,
				)
			}
			continue
		}

		r.to(StateSlicing)
		for _, f := range p.slicer.Slice(b) {
			r.summary.FragmentsEvaluated++
			// Vetoes come from the fragment's own lead or from anything
			// between the previous contract and this anchor.
			v := p.filter.Evaluate(f.Lead())
			if !v.Vetoed {
				v.VetoTerm, v.Vetoed = p.filter.Veto(f.Preamble)
			}
			if v.Vetoed {
				r.summary.FragmentsVetoed++
				p.log.Debug("fragment vetoed", "municipality", f.Municipality, "term", v.VetoTerm, "page", w.EndIndex)
				continue
			}
			if v.Score < p.fragmentMin {
				r.summary.FragmentsLowScore++
				p.log.Debug("fragment below score", "municipality", f.Municipality, "score", v.Score, "page", w.EndIndex)
				continue
			}

			r.to(StateExtracting)
			ex := p.extractor.Extract(f)
			if !ex.Artist.Matched {
				r.summary.FragmentsNoMatch++
				continue
			}

			r.to(StateClassifying)
			category := p.classifier.Classify(f.Full())

			r.to(StateDeduplicating)
			ev := r.buildEvent(f, ex, category, w.EndIndex)
			if r.dedup.Offer(ev) {
				p.log.Debug("event found",
					"artist", ev.Artist,
					"municipality", ev.Municipality,
					"value", ev.BasePrice,
					"rule", ex.Artist.Rule,
					"page", w.EndIndex,
				)
			}
		}
	}
}

func (r *run) buildEvent(f Fragment, ex Extraction, category string, page int) Event {
	p := r.p
	title := fmt.Sprintf("SHOW: %s (%s)", ex.Artist.Name, ex.EventName)
	return Event{
		ID:            EventID(title, ex.Date, ex.DateEstimated, f.Municipality, r.sourceURL),
		Title:         title,
		Artist:        ex.Artist.Name,
		EventName:     ex.EventName,
		EventDate:     ex.Date,
		DateEstimated: ex.DateEstimated,
		Municipality:  f.Municipality,
		Venue:         p.venue,
		BasePrice:     ex.Value,
		SourceTag:     p.sourceTag,
		SourceURL:     r.sourceURL,
		Category:      category,
		PageIndex:     page,
		DetectedAt:    p.now(),
	}
}
