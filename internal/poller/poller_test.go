package poller

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/amishk599/upfeed/internal/compose"
	"github.com/amishk599/upfeed/internal/model"
	"github.com/amishk599/upfeed/internal/normalize"
)

// --- Fakes ---

// MockFetcher returns a canned slice of items or an error.
type MockFetcher struct {
	Items []model.FeedItem
	Err   error
	calls atomic.Int32
}

func (m *MockFetcher) FetchItems(_ context.Context) ([]model.FeedItem, error) {
	m.calls.Add(1)
	return m.Items, m.Err
}

// InMemoryStore is a map-based SeenStore that counts persists.
type InMemoryStore struct {
	mu       sync.Mutex
	seen     map[string]bool
	persists int
	saved    []string
}

func NewInMemoryStore(ids ...string) *InMemoryStore {
	s := &InMemoryStore{seen: make(map[string]bool)}
	for _, id := range ids {
		s.seen[id] = true
	}
	return s
}

func (s *InMemoryStore) HasSeen(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seen[id]
}

func (s *InMemoryStore) MarkSeen(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seen[id] = true
}

func (s *InMemoryStore) Persist(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.persists++
	s.saved = s.saved[:0]
	for id := range s.seen {
		s.saved = append(s.saved, id)
	}
	slices.Sort(s.saved)
	return nil
}

func (s *InMemoryStore) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seen = make(map[string]bool)
}

func (s *InMemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.seen)
}

func (s *InMemoryStore) ids() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var ids []string
	for id := range s.seen {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// RecordingDispatcher records every message; ids listed in failFor fail.
type RecordingDispatcher struct {
	mu      sync.Mutex
	Sent    []string
	failFor map[string]bool
	started chan struct{}
	block   chan struct{}
}

func (d *RecordingDispatcher) Dispatch(_ context.Context, text string) error {
	if d.started != nil {
		d.started <- struct{}{}
	}
	if d.block != nil {
		<-d.block
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.failFor[text] {
		return errors.New("destination unavailable")
	}
	d.Sent = append(d.Sent, text)
	return nil
}

func (d *RecordingDispatcher) sent() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := slices.Clone(d.Sent)
	slices.Sort(out)
	return out
}

// titleNormalizer copies the title and link through.
type titleNormalizer struct{}

func (titleNormalizer) Normalize(item model.FeedItem) model.Posting {
	return model.Posting{Title: item.Title, ApplyLink: item.Link}
}

// titleComposer renders the title as the whole message.
type titleComposer struct{}

func (titleComposer) Compose(_ context.Context, p model.Posting) string {
	return p.Title
}

// rejectTitles excludes postings whose title is listed.
type rejectTitles map[string]bool

func (r rejectTitles) Match(item model.FeedItem, _ model.Posting) bool {
	return !r[item.Title]
}

// --- Helpers ---

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func makeItems(ids ...string) []model.FeedItem {
	items := make([]model.FeedItem, len(ids))
	for i, id := range ids {
		items[i] = model.FeedItem{
			ID:    id,
			Title: id,
			Link:  id,
		}
	}
	return items
}

func newPoller(f model.FeedFetcher, s model.SeenStore, d model.Dispatcher, filter model.PostingFilter, opts Options) *FeedPoller {
	return New(f, s, titleNormalizer{}, filter, titleComposer{}, d, opts, discardLogger())
}

// --- Tests ---

func TestPoll_DispatchesNewAndMarksSeen(t *testing.T) {
	store := NewInMemoryStore("2")
	d := &RecordingDispatcher{}
	p := newPoller(&MockFetcher{Items: makeItems("1", "2", "3")}, store, d, nil, Options{Workers: 2})

	stats, err := p.Poll(context.Background())
	if err != nil {
		t.Fatalf("Poll: %v", err)
	}

	if got := d.sent(); !slices.Equal(got, []string{"1", "3"}) {
		t.Errorf("dispatched = %v, want [1 3]", got)
	}
	if got := store.ids(); !slices.Equal(got, []string{"1", "2", "3"}) {
		t.Errorf("store = %v", got)
	}
	if store.persists != 1 {
		t.Errorf("persists = %d, want exactly 1 per cycle", store.persists)
	}
	if stats.Fetched != 3 || stats.New != 2 || stats.Sent != 2 || stats.Failed != 0 {
		t.Errorf("stats = %+v", stats)
	}
	if stats.ID == "" {
		t.Error("stats.ID is empty")
	}
}

func TestPoll_IdempotentAcrossCycles(t *testing.T) {
	store := NewInMemoryStore()
	d := &RecordingDispatcher{}
	p := newPoller(&MockFetcher{Items: makeItems("a", "b")}, store, d, nil, Options{Workers: 4})

	for range 3 {
		if _, err := p.Poll(context.Background()); err != nil {
			t.Fatalf("Poll: %v", err)
		}
	}
	if got := d.sent(); !slices.Equal(got, []string{"a", "b"}) {
		t.Errorf("dispatched = %v, want each id exactly once", got)
	}
}

func TestPoll_AllSeenDispatchesNothing(t *testing.T) {
	store := NewInMemoryStore("only")
	d := &RecordingDispatcher{}
	p := newPoller(&MockFetcher{Items: makeItems("only")}, store, d, nil, Options{Workers: 1})

	stats, err := p.Poll(context.Background())
	if err != nil {
		t.Fatalf("Poll: %v", err)
	}
	if len(d.sent()) != 0 || stats.New != 0 {
		t.Errorf("dispatched = %v, stats = %+v", d.sent(), stats)
	}
	if got := store.ids(); !slices.Equal(got, []string{"only"}) {
		t.Errorf("store changed: %v", got)
	}
}

func TestPoll_DuplicateWithinWindowDispatchedOnce(t *testing.T) {
	d := &RecordingDispatcher{}
	p := newPoller(&MockFetcher{Items: makeItems("x", "x", "y")}, NewInMemoryStore(), d, nil, Options{Workers: 3})

	stats, err := p.Poll(context.Background())
	if err != nil {
		t.Fatalf("Poll: %v", err)
	}
	if got := d.sent(); !slices.Equal(got, []string{"x", "y"}) {
		t.Errorf("dispatched = %v, want [x y]", got)
	}
	if stats.Fetched != 3 || stats.New != 2 {
		t.Errorf("stats = %+v", stats)
	}
}

func TestPoll_FetchErrorLeavesStoreUntouched(t *testing.T) {
	store := NewInMemoryStore("old")
	d := &RecordingDispatcher{}
	p := newPoller(&MockFetcher{Err: &model.FetchError{Err: errors.New("connection refused")}}, store, d, nil, Options{Workers: 1})

	stats, err := p.Poll(context.Background())
	var fetchErr *model.FetchError
	if !errors.As(err, &fetchErr) {
		t.Fatalf("expected FetchError, got %v", err)
	}
	if store.persists != 0 {
		t.Errorf("persists = %d, want 0", store.persists)
	}
	if len(d.sent()) != 0 {
		t.Errorf("dispatched = %v", d.sent())
	}
	if stats.Error == "" {
		t.Error("stats.Error should record the fetch failure")
	}
	if last, ok := p.LastStats(); !ok || last.ID != stats.ID {
		t.Errorf("LastStats = %+v, %v", last, ok)
	}
}

func TestPoll_FailedDispatchNotMarked(t *testing.T) {
	store := NewInMemoryStore()
	d := &RecordingDispatcher{failFor: map[string]bool{"bad": true}}
	p := newPoller(&MockFetcher{Items: makeItems("good", "bad")}, store, d, nil, Options{Workers: 2})

	stats, err := p.Poll(context.Background())
	if err != nil {
		t.Fatalf("Poll: %v", err)
	}
	if stats.Sent != 1 || stats.Failed != 1 {
		t.Errorf("stats = %+v", stats)
	}
	if store.HasSeen("bad") {
		t.Error("failed item should not be marked seen")
	}
	if !store.HasSeen("good") {
		t.Error("dispatched item should be marked seen")
	}

	// The failed item is retried on the next cycle.
	d.failFor = nil
	if _, err := p.Poll(context.Background()); err != nil {
		t.Fatalf("second Poll: %v", err)
	}
	if got := d.sent(); !slices.Equal(got, []string{"bad", "good"}) {
		t.Errorf("dispatched = %v", got)
	}
}

func TestPoll_FilteredItemsMarkedWithoutDispatch(t *testing.T) {
	store := NewInMemoryStore()
	d := &RecordingDispatcher{}
	p := newPoller(&MockFetcher{Items: makeItems("keep", "drop")}, store, d, rejectTitles{"drop": true}, Options{Workers: 2})

	stats, err := p.Poll(context.Background())
	if err != nil {
		t.Fatalf("Poll: %v", err)
	}
	if got := d.sent(); !slices.Equal(got, []string{"keep"}) {
		t.Errorf("dispatched = %v", got)
	}
	if !store.HasSeen("drop") || stats.Filtered != 1 {
		t.Errorf("filtered item not recorded: stats=%+v", stats)
	}
}

func TestPoll_SeedOnFirstRun(t *testing.T) {
	store := NewInMemoryStore()
	d := &RecordingDispatcher{}
	f := &MockFetcher{Items: makeItems("1", "2")}
	p := newPoller(f, store, d, nil, Options{Workers: 1, SeedOnFirstRun: true})

	stats, err := p.Poll(context.Background())
	if err != nil {
		t.Fatalf("Poll: %v", err)
	}
	if stats.Seeded != 2 || len(d.sent()) != 0 {
		t.Errorf("first run: stats = %+v, dispatched = %v", stats, d.sent())
	}
	if store.persists != 1 {
		t.Errorf("persists = %d, want 1", store.persists)
	}

	f.Items = makeItems("1", "2", "3")
	if _, err := p.Poll(context.Background()); err != nil {
		t.Fatalf("second Poll: %v", err)
	}
	if got := d.sent(); !slices.Equal(got, []string{"3"}) {
		t.Errorf("dispatched = %v, want [3]", got)
	}
}

func TestPoll_ResetAfterSeedingDispatchesEverything(t *testing.T) {
	store := NewInMemoryStore()
	d := &RecordingDispatcher{}
	f := &MockFetcher{Items: makeItems("a", "b")}
	p := newPoller(f, store, d, nil, Options{Workers: 1, SeedOnFirstRun: true})
	ctx := context.Background()

	if _, err := p.Poll(ctx); err != nil {
		t.Fatalf("Poll: %v", err)
	}
	if len(d.sent()) != 0 {
		t.Fatalf("seeding cycle dispatched %v", d.sent())
	}

	if err := p.Reset(ctx); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	stats, err := p.Poll(ctx)
	if err != nil {
		t.Fatalf("Poll after reset: %v", err)
	}
	if stats.Seeded != 0 || stats.Sent != 2 {
		t.Errorf("after reset: stats = %+v, want 2 sent and nothing seeded", stats)
	}
	if got := d.sent(); !slices.Equal(got, []string{"a", "b"}) {
		t.Errorf("dispatched = %v, want [a b]", got)
	}
}

func TestPoll_NonEmptyStoreIsNotFirstRun(t *testing.T) {
	store := NewInMemoryStore("old")
	d := &RecordingDispatcher{}
	p := newPoller(&MockFetcher{Items: makeItems("old", "new")}, store, d, nil, Options{Workers: 1, SeedOnFirstRun: true})

	stats, err := p.Poll(context.Background())
	if err != nil {
		t.Fatalf("Poll: %v", err)
	}
	if stats.Seeded != 0 || !slices.Equal(d.sent(), []string{"new"}) {
		t.Errorf("stats = %+v, dispatched = %v", stats, d.sent())
	}
}

func TestPoll_ResetMakesIDsNewAgain(t *testing.T) {
	store := NewInMemoryStore()
	d := &RecordingDispatcher{}
	p := newPoller(&MockFetcher{Items: makeItems("a")}, store, d, nil, Options{Workers: 1})
	ctx := context.Background()

	if _, err := p.Poll(ctx); err != nil {
		t.Fatalf("Poll: %v", err)
	}
	if err := p.Reset(ctx); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	if p.SeenCount() != 0 {
		t.Errorf("SeenCount after reset = %d", p.SeenCount())
	}
	if _, err := p.Poll(ctx); err != nil {
		t.Fatalf("Poll: %v", err)
	}
	if got := d.sent(); !slices.Equal(got, []string{"a", "a"}) {
		t.Errorf("dispatched = %v, want a twice", got)
	}
}

func TestPoll_BusyGuard(t *testing.T) {
	d := &RecordingDispatcher{started: make(chan struct{}, 1), block: make(chan struct{})}
	p := newPoller(&MockFetcher{Items: makeItems("slow")}, NewInMemoryStore(), d, nil, Options{Workers: 1})

	done := make(chan error, 1)
	go func() {
		_, err := p.Poll(context.Background())
		done <- err
	}()
	<-d.started

	_, err := p.Poll(context.Background())
	close(d.block)

	if !errors.Is(err, ErrCycleBusy) {
		t.Fatalf("overlapping Poll = %v, want ErrCycleBusy", err)
	}
	if err := <-done; err != nil {
		t.Fatalf("first Poll: %v", err)
	}
}

type failingTranslator struct{}

func (failingTranslator) Translate(context.Context, string) (string, error) {
	return "", errors.New("translator down")
}

func TestPoll_TranslationFailureStillDispatchesOriginal(t *testing.T) {
	items := []model.FeedItem{{
		ID:      "https://www.upwork.com/jobs/~01",
		Title:   "Go developer - Upwork",
		RawBody: "Write a CLI.\nBudget: $300",
		Link:    "https://www.upwork.com/jobs/~01",
	}}
	c := compose.New(failingTranslator{}, compose.Options{
		Markup:      compose.TelegramHTML{},
		Labels:      compose.LabelsFor("ru"),
		TitleSuffix: " - Upwork",
	}, discardLogger())
	d := &RecordingDispatcher{}
	store := NewInMemoryStore()
	p := New(&MockFetcher{Items: items}, store, normalize.New(time.UTC, ""), nil, c, d, Options{Workers: 1}, discardLogger())

	if _, err := p.Poll(context.Background()); err != nil {
		t.Fatalf("Poll: %v", err)
	}
	sent := d.sent()
	if len(sent) != 1 || !strings.HasPrefix(sent[0], "<b>Go developer</b>\n\nWrite a CLI.") {
		t.Fatalf("dispatched = %q", sent)
	}
	if !strings.Contains(sent[0], "$300") {
		t.Errorf("budget missing: %q", sent[0])
	}
	if !store.HasSeen(items[0].ID) {
		t.Error("item not marked seen")
	}
}
