package poller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/amishk599/upfeed/internal/model"
)

// ErrCycleBusy is returned by Poll when another cycle is still running.
var ErrCycleBusy = errors.New("poll cycle already running")

const persistTimeout = 10 * time.Second

// Normalizer extracts the structured posting from a feed item.
type Normalizer interface {
	Normalize(item model.FeedItem) model.Posting
}

// Composer renders a posting into the final message text.
type Composer interface {
	Compose(ctx context.Context, p model.Posting) string
}

// CycleStats summarizes one poll cycle.
type CycleStats struct {
	ID        string        `json:"id"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`
	Fetched   int           `json:"fetched"`
	New       int           `json:"new"`
	Sent      int           `json:"sent"`
	Failed    int           `json:"failed"`
	Filtered  int           `json:"filtered"`
	Seeded    int           `json:"seeded"`
	Error     string        `json:"error,omitempty"`
}

// Options tunes a FeedPoller.
type Options struct {
	Workers        int  // concurrent per-item pipelines, at least 1
	SeedOnFirstRun bool // mark the first window seen without dispatching
}

// FeedPoller owns the full pipeline for the watched feed:
// fetch → dedup → normalize → filter → compose → dispatch → mark seen.
type FeedPoller struct {
	fetcher    model.FeedFetcher
	store      model.SeenStore
	normalizer Normalizer
	filter     model.PostingFilter
	composer   Composer
	dispatcher model.Dispatcher
	opts       Options
	logger     *slog.Logger

	running sync.Mutex

	// firstRun is decided once from the store loaded at startup. A later
	// Reset empties the store but is not a first run.
	firstRun atomic.Bool

	statsMu sync.Mutex
	last    *CycleStats
}

// New creates a poller wired with all its dependencies. filter may be nil.
func New(
	fetcher model.FeedFetcher,
	store model.SeenStore,
	normalizer Normalizer,
	filter model.PostingFilter,
	composer Composer,
	dispatcher model.Dispatcher,
	opts Options,
	logger *slog.Logger,
) *FeedPoller {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	p := &FeedPoller{
		fetcher:    fetcher,
		store:      store,
		normalizer: normalizer,
		filter:     filter,
		composer:   composer,
		dispatcher: dispatcher,
		opts:       opts,
		logger:     logger,
	}
	p.firstRun.Store(opts.SeedOnFirstRun && store.Len() == 0)
	return p
}

type outcome int

const (
	outcomeSent outcome = iota
	outcomeFailed
	outcomeFiltered
)

// Poll runs one cycle. Items are processed concurrently and the store is
// persisted once, after every item has finished. A fetch failure leaves the
// store untouched.
func (p *FeedPoller) Poll(ctx context.Context) (stats CycleStats, err error) {
	if !p.running.TryLock() {
		return CycleStats{}, ErrCycleBusy
	}
	defer p.running.Unlock()

	stats = CycleStats{ID: uuid.NewString(), StartedAt: time.Now()}
	logger := p.logger.With("cycle", stats.ID)
	defer func() {
		stats.Duration = time.Since(stats.StartedAt)
		p.record(stats)
	}()

	items, err := p.fetcher.FetchItems(ctx)
	if err != nil {
		logger.Error("fetch failed", "error", err)
		stats.Error = err.Error()
		return stats, fmt.Errorf("fetching feed: %w", err)
	}
	stats.Fetched = len(items)

	fresh := p.unseen(items)
	stats.New = len(fresh)

	if p.firstRun.Load() && len(fresh) > 0 {
		for _, item := range fresh {
			p.store.MarkSeen(item.ID)
		}
		stats.Seeded = len(fresh)
		logger.Info("seeded empty store", "count", stats.Seeded)
		if err := p.persist(ctx); err != nil {
			logger.Error("persist failed", "error", err)
			stats.Error = err.Error()
			return stats, err
		}
		p.firstRun.Store(false)
		return stats, nil
	}
	p.firstRun.Store(false)

	var sent, failed, filtered atomic.Int64
	var g errgroup.Group
	g.SetLimit(p.opts.Workers)
	for _, item := range fresh {
		g.Go(func() error {
			switch p.process(ctx, logger, item) {
			case outcomeSent:
				sent.Add(1)
			case outcomeFailed:
				failed.Add(1)
			case outcomeFiltered:
				filtered.Add(1)
			}
			return nil
		})
	}
	_ = g.Wait()

	stats.Sent = int(sent.Load())
	stats.Failed = int(failed.Load())
	stats.Filtered = int(filtered.Load())

	if err := p.persist(ctx); err != nil {
		logger.Error("persist failed", "error", err)
		stats.Error = err.Error()
		return stats, err
	}

	logger.Info("poll cycle complete",
		"fetched", stats.Fetched,
		"new", stats.New,
		"sent", stats.Sent,
		"failed", stats.Failed,
		"filtered", stats.Filtered,
	)
	return stats, nil
}

// unseen drops items already in the store and repeated ids within the window.
func (p *FeedPoller) unseen(items []model.FeedItem) []model.FeedItem {
	inWindow := make(map[string]struct{}, len(items))
	var fresh []model.FeedItem
	for _, item := range items {
		if _, dup := inWindow[item.ID]; dup {
			continue
		}
		inWindow[item.ID] = struct{}{}
		if !p.store.HasSeen(item.ID) {
			fresh = append(fresh, item)
		}
	}
	return fresh
}

func (p *FeedPoller) process(ctx context.Context, logger *slog.Logger, item model.FeedItem) outcome {
	posting := p.normalizer.Normalize(item)

	if p.filter != nil && !p.filter.Match(item, posting) {
		logger.Debug("posting filtered out", "item", item.ID)
		p.store.MarkSeen(item.ID)
		return outcomeFiltered
	}

	text := p.composer.Compose(ctx, posting)
	if err := p.dispatcher.Dispatch(ctx, text); err != nil {
		logger.Error("dispatch failed", "item", item.ID, "error", err)
		return outcomeFailed
	}

	p.store.MarkSeen(item.ID)
	logger.Debug("posting dispatched", "item", item.ID)
	return outcomeSent
}

// persist survives cancellation of the cycle context so ids already
// dispatched are not forgotten on shutdown.
func (p *FeedPoller) persist(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
	defer cancel()
	if err := p.store.Persist(ctx); err != nil {
		return fmt.Errorf("persisting seen set: %w", err)
	}
	return nil
}

// Reset clears the seen set and persists the empty set.
func (p *FeedPoller) Reset(ctx context.Context) error {
	p.firstRun.Store(false)
	p.store.Reset()
	if err := p.store.Persist(ctx); err != nil {
		return fmt.Errorf("persisting reset: %w", err)
	}
	p.logger.Info("seen set reset")
	return nil
}

// LastStats returns the stats of the most recent cycle, if any.
func (p *FeedPoller) LastStats() (CycleStats, bool) {
	p.statsMu.Lock()
	defer p.statsMu.Unlock()
	if p.last == nil {
		return CycleStats{}, false
	}
	return *p.last, true
}

// SeenCount returns the number of ids in the seen set.
func (p *FeedPoller) SeenCount() int {
	return p.store.Len()
}

func (p *FeedPoller) record(stats CycleStats) {
	p.statsMu.Lock()
	defer p.statsMu.Unlock()
	p.last = &stats
}
