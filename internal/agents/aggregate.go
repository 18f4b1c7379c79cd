package agents

import (
	"context"
	"errors"
	"fmt"
	"time"

	"maharera-api/internal/telemetry"
	"maharera-api/lib/assert"

	orderedmap "github.com/wk8/go-ordered-map/v2"
	"golang.org/x/sync/errgroup"
)

const (
	report_aggregator_acquire       = "aggregator.acquire"
	report_aggregator_fetch_page    = "aggregator.fetch-page"
	report_aggregator_pages_fetched = "aggregator.pages-fetched"
	report_aggregator_all_failed    = "aggregator.all-pages-failed"
)

const (
	// DefaultMaxPages is the most pages a single batch will fetch.
	DefaultMaxPages = 10
	// DefaultPacing is the wait between two page fetches of the same session.
	DefaultPacing = time.Second
)

// Aggregator fetches a range of result pages and merges them.
type Aggregator struct {
	source   Source
	pacer    Pacer
	tel      telemetry.API
	maxPages int
	lanes    int
}

type aggregatorConfig struct {
	pacer    Pacer
	tel      telemetry.API
	maxPages int
	lanes    int
}

type AggregatorOption func(cfg *aggregatorConfig)

// WithPacer replaces the default one second IntervalPacer.
func WithPacer(pacer Pacer) AggregatorOption {
	return func(cfg *aggregatorConfig) {
		cfg.pacer = pacer
	}
}

func WithTelemetry(tel telemetry.API) AggregatorOption {
	return func(cfg *aggregatorConfig) {
		cfg.tel = tel
	}
}

// WithMaxPages sets the ceiling page counts are clamped to, values below 1 are ignored.
func WithMaxPages(n int) AggregatorOption {
	return func(cfg *aggregatorConfig) {
		if n > 0 {
			cfg.maxPages = n
		}
	}
}

// WithLanes lets a batch fetch pages over n independent sessions at once.
// Every lane primes its own session and walks its pages sequentially with
// pacing. The default of 1 fetches the whole batch over a single session.
func WithLanes(n int) AggregatorOption {
	return func(cfg *aggregatorConfig) {
		if n > 0 {
			cfg.lanes = n
		}
	}
}

func NewAggregator(source Source, options ...AggregatorOption) Aggregator {
	assert.NotNil(source, "source")

	cfg := aggregatorConfig{
		pacer:    IntervalPacer{Interval: DefaultPacing},
		tel:      telemetry.SlogAPI{},
		maxPages: DefaultMaxPages,
		lanes:    1,
	}
	for _, opt := range options {
		opt(&cfg)
	}
	assert.NotNil(cfg.pacer, "pacer")
	assert.Positive(cfg.maxPages, "max pages")
	assert.Positive(cfg.lanes, "lanes")

	return Aggregator{
		source:   source,
		pacer:    cfg.pacer,
		tel:      telemetry.NewScopedAPI("agents", cfg.tel),
		maxPages: cfg.maxPages,
		lanes:    cfg.lanes,
	}
}

type pageOutcome struct {
	page Page
	err  error
	ok   bool
}

// Aggregate fetches `pageCount` pages starting at `startPage` (clamped to the
// configured maximum) and merges them.
//
// Pages that fail are skipped, the result is returned as long as at least one
// page succeeded, Pagination.PagesFetched tells how many did. Records are
// deduplicated by certificate number, the first occurrence wins.
func (a Aggregator) Aggregate(ctx context.Context, filters Filters, startPage, pageCount int) (BatchResult, error) {
	if startPage < 1 || pageCount < 1 {
		return BatchResult{}, fmt.Errorf("%w: page=%d pages=%d", ErrInvalidRange, startPage, pageCount)
	}
	if pageCount > a.maxPages {
		pageCount = a.maxPages
	}

	lanes := min(a.lanes, pageCount)
	sessions := make([]Session, lanes)
	for i := range sessions {
		session, err := a.source.Acquire(ctx)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return BatchResult{}, ctxErr
			}
			a.tel.ReportBroken(report_aggregator_acquire, err)
			if !errors.Is(err, ErrTokenUnavailable) {
				err = fmt.Errorf("%w: %w", ErrTokenUnavailable, err)
			}
			return BatchResult{}, err
		}
		sessions[i] = session
	}

	outcomes := make([]pageOutcome, pageCount)

	var err error
	if lanes == 1 {
		err = a.walk(ctx, sessions[0], filters, startPage, laneIndices(0, 1, pageCount), outcomes)
	} else {
		group, groupCtx := errgroup.WithContext(ctx)
		for lane, session := range sessions {
			indices := laneIndices(lane, lanes, pageCount)
			group.Go(func() error {
				return a.walk(groupCtx, session, filters, startPage, indices, outcomes)
			})
		}
		err = group.Wait()
	}
	if err != nil {
		return BatchResult{}, err
	}

	return a.merge(startPage, pageCount, outcomes)
}

// laneIndices returns the page offsets handled by a lane, pages are dealt
// to lanes round robin.
func laneIndices(lane, lanes, pageCount int) []int {
	var indices []int
	for i := lane; i < pageCount; i += lanes {
		indices = append(indices, i)
	}
	return indices
}

// walk fetches the pages at the given offsets one after another, writing
// into outcomes[offset]. The only error it returns is ctx's.
func (a Aggregator) walk(
	ctx context.Context,
	session Session,
	filters Filters,
	startPage int,
	indices []int,
	outcomes []pageOutcome,
) error {
	for n, i := range indices {
		if n > 0 {
			err := a.pacer.Wait(ctx)
			if err != nil {
				return err
			}
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		page := startPage + i
		result, err := session.FetchPage(ctx, filters, page)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			var pageErr *PageError
			if !errors.As(err, &pageErr) {
				err = &PageError{Page: page, Err: err}
			}
			a.tel.ReportWarning(report_aggregator_fetch_page, err, page)
			outcomes[i] = pageOutcome{err: err}
			continue
		}
		outcomes[i] = pageOutcome{page: result, ok: true}
	}
	return nil
}

func (a Aggregator) merge(startPage, pageCount int, outcomes []pageOutcome) (BatchResult, error) {
	records := orderedmap.New[string, Record]()
	var hint PaginationHint
	var pageErrs []error
	fetched := 0

	for i, outcome := range outcomes {
		if !outcome.ok {
			pageErrs = append(pageErrs, outcome.err)
			continue
		}
		if fetched == 0 {
			hint = outcome.page.Hint
		}
		fetched++

		for j, record := range outcome.page.Records {
			key := record.CertificateNo
			// rows without a certificate number cannot be matched across
			// pages, they are kept as they are
			if key == "" {
				key = fmt.Sprintf("\x00%d:%d", i, j)
			}
			_, exists := records.Get(key)
			if exists {
				continue
			}
			records.Set(key, record)
		}
	}

	a.tel.ReportCount(report_aggregator_pages_fetched, int64(fetched))
	if fetched == 0 {
		err := fmt.Errorf("%w: %w", ErrAllPagesFailed, errors.Join(pageErrs...))
		a.tel.ReportBroken(report_aggregator_all_failed, err, startPage, pageCount)
		return BatchResult{}, err
	}

	agents := make([]Record, 0, records.Len())
	for pair := records.Oldest(); pair != nil; pair = pair.Next() {
		agents = append(agents, pair.Value)
	}

	return BatchResult{
		Agents: agents,
		Pagination: Pagination{
			StartPage:      startPage,
			PagesRequested: pageCount,
			PagesFetched:   fetched,
			TotalPages:     hint.TotalPages,
			TotalRecords:   hint.TotalRecords,
		},
	}, nil
}
