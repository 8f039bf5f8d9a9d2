// Package feed serves "recent posts in a scope" from a short-lived local
// cache over the content API, with debounced loads, single-flight fetching,
// bounded retry, stale-cache fallback, and optional periodic refresh.
package feed

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/jaladseva/eseva-portal/content"
)

// FetchFunc retrieves every candidate post for a scope from the remote API.
// The feed applies the recency window, ordering, and truncation itself.
type FetchFunc func(ctx context.Context, scope Scope) ([]content.Post, error)

// Snapshot is the feed's current result as seen by consumers.
type Snapshot struct {
	Posts []content.Post
	// Err is the last fetch error, set even when stale posts are served.
	Err error
	// FromCache marks a result served without network I/O.
	FromCache bool
	// Stale marks a cache entry past its TTL served as a degraded fallback.
	Stale bool
	// Message is the terminal fallback text once retries are exhausted.
	Message   string
	UpdatedAt time.Time
}

const (
	defaultTTL          = 5 * time.Minute
	defaultMaxAttempts  = 3
	defaultRetryDelay   = 3 * time.Second
	defaultFallbackText = "Content is temporarily unavailable."
)

// Feed owns one scope's cache lifecycle. Every timer the feed starts —
// debounce, retry, auto-refresh — is owned here and cancelled on scope
// change or Close; none survives its owner.
type Feed struct {
	fetch FetchFunc
	repo  Repo
	log   zerolog.Logger
	now   func() time.Time

	ttl          time.Duration
	autoInterval time.Duration
	retryEnabled bool
	maxAttempts  int
	retryDelay   time.Duration
	fallbackText string

	mu         sync.Mutex
	scope      Scope
	current    Snapshot
	debounce   *time.Timer
	retryTimer *time.Timer
	autoTicker *time.Ticker
	autoDone   chan struct{}
	inFlight   bool
	attempts   int
	// generation invalidates in-flight work after a scope change or Close:
	// a fetch started under an older generation may finish, but its result
	// is discarded instead of overwriting the current scope's state.
	generation uint64
	closed     bool
}

// Option modifies a Feed.
type Option func(*Feed)

// WithTTL sets how long a cache entry stays fresh.
func WithTTL(d time.Duration) Option {
	return func(f *Feed) { f.ttl = d }
}

// WithAutoRefresh enables periodic background refresh at the given cadence.
func WithAutoRefresh(d time.Duration) Option {
	return func(f *Feed) { f.autoInterval = d }
}

// WithRetry enables bounded retry on fetch errors when no cache entry can
// serve as a fallback. maxAttempts counts all fetches, the first included.
func WithRetry(maxAttempts int, delay time.Duration) Option {
	return func(f *Feed) {
		f.retryEnabled = true
		if maxAttempts > 0 {
			f.maxAttempts = maxAttempts
		}
		if delay > 0 {
			f.retryDelay = delay
		}
	}
}

// WithFallbackMessage overrides the terminal unavailable message.
func WithFallbackMessage(msg string) Option {
	return func(f *Feed) { f.fallbackText = msg }
}

// WithNowTime sets the clock (primarily for testing).
func WithNowTime(nowFunc func() time.Time) Option {
	return func(f *Feed) { f.now = nowFunc }
}

// WithLogger sets the feed logger.
func WithLogger(log zerolog.Logger) Option {
	return func(f *Feed) { f.log = log }
}

// New validates dependencies and returns a Feed for the scope. When auto
// refresh is configured the background timer starts immediately.
func New(scope Scope, fetch FetchFunc, repo Repo, options ...Option) (*Feed, error) {
	if fetch == nil {
		return nil, errors.New("[feed.New] fetch is required")
	}
	if repo == nil {
		return nil, errors.New("[feed.New] repo is required")
	}

	f := &Feed{
		fetch:        fetch,
		repo:         repo,
		log:          zerolog.Nop(),
		now:          time.Now,
		ttl:          defaultTTL,
		maxAttempts:  defaultMaxAttempts,
		retryDelay:   defaultRetryDelay,
		fallbackText: defaultFallbackText,
		scope:        scope,
	}
	for _, opt := range options {
		opt(f)
	}

	f.mu.Lock()
	f.startAutoLocked()
	f.mu.Unlock()

	return f, nil
}

// Load requests the feed's data. A positive debounce coalesces bursts into
// one fetch: each call supersedes (cancels) the previous pending timer, and
// a call arriving while a fetch is in flight is skipped entirely. A zero
// debounce runs synchronously.
func (f *Feed) Load(ctx context.Context, useCache bool, debounce time.Duration) {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return
	}
	if f.debounce != nil {
		f.debounce.Stop()
		f.debounce = nil
	}
	if f.inFlight && debounce > 0 {
		f.log.Debug().Str("scope", f.scope.Key()).Msg("fetch already in flight, skipping")
		f.mu.Unlock()
		return
	}
	gen := f.generation
	if debounce > 0 {
		f.debounce = time.AfterFunc(debounce, func() {
			f.run(context.Background(), gen, useCache)
		})
		f.mu.Unlock()
		return
	}
	f.mu.Unlock()

	f.run(ctx, gen, useCache)
}

// Refresh bypasses cache and debounce and resets the retry budget. Used for
// explicit user-triggered reloads; blocks until the fetch completes.
func (f *Feed) Refresh(ctx context.Context) {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return
	}
	if f.debounce != nil {
		f.debounce.Stop()
		f.debounce = nil
	}
	f.attempts = 0
	gen := f.generation
	f.mu.Unlock()

	f.run(ctx, gen, false)
}

// Current returns the latest snapshot.
func (f *Feed) Current() Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.current
}

// Scope returns the feed's current scope.
func (f *Feed) Scope() Scope {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.scope
}

// SetScope switches the feed to a new scope. Pending debounce and retry
// timers are cancelled, the retry budget resets, and any in-flight fetch
// for the old scope can no longer touch state. The auto-refresh timer is
// torn down and re-established so exactly one exists.
func (f *Feed) SetScope(scope Scope) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed || scope == f.scope {
		return
	}

	f.generation++
	f.scope = scope
	f.attempts = 0
	f.current = Snapshot{}
	f.cancelTimersLocked()
	f.stopAutoLocked()
	f.startAutoLocked()
}

// Close cancels every timer and discards the effect of any in-flight fetch.
func (f *Feed) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return
	}
	f.closed = true
	f.generation++
	f.cancelTimersLocked()
	f.stopAutoLocked()
}

// run performs one load attempt for the given generation.
func (f *Feed) run(ctx context.Context, gen uint64, useCache bool) {
	f.mu.Lock()
	if f.closed || gen != f.generation || f.inFlight {
		f.mu.Unlock()
		return
	}
	f.inFlight = true
	f.debounce = nil
	scope := f.scope
	f.mu.Unlock()

	defer func() {
		f.mu.Lock()
		f.inFlight = false
		f.mu.Unlock()
	}()

	if useCache {
		if entry := f.freshEntry(scope); entry != nil {
			f.commit(gen, Snapshot{
				Posts:     entry.Blogs,
				FromCache: true,
				UpdatedAt: f.now(),
			})
			return
		}
	}

	posts, err := f.fetch(ctx, scope)
	if err != nil {
		f.failure(gen, scope, err)
		return
	}

	recent := selectRecent(posts, scope, f.now())
	if f.stale(gen) {
		return
	}
	if storeErr := f.repo.Store(scope.Key(), &Entry{
		Blogs:         recent,
		Timestamp:     f.now().UnixMilli(),
		Category:      scope.Category,
		DaysThreshold: scope.DaysThreshold,
		MaxItems:      scope.MaxItems,
	}); storeErr != nil {
		f.log.Warn().Err(storeErr).Str("scope", scope.Key()).Msg("failed to store cache entry")
	}

	f.mu.Lock()
	f.attempts = 0
	f.mu.Unlock()

	f.commit(gen, Snapshot{Posts: recent, UpdatedAt: f.now()})
}

// failure resolves a fetch error: stale cache if any entry exists for the
// scope, else a bounded retry, else the terminal fallback message.
func (f *Feed) failure(gen uint64, scope Scope, fetchErr error) {
	f.log.Warn().Err(fetchErr).Str("scope", scope.Key()).Msg("feed fetch failed")

	// A superseded fetch must not touch the repo at all: global scopes
	// share a cache key, so a late mismatch eviction would delete the
	// current scope's entry.
	if f.stale(gen) {
		return
	}

	if entry := f.anyEntry(scope); entry != nil {
		f.commit(gen, Snapshot{
			Posts:     entry.Blogs,
			Err:       fetchErr,
			FromCache: true,
			Stale:     true,
			UpdatedAt: f.now(),
		})
		return
	}

	f.mu.Lock()
	if f.closed || gen != f.generation {
		f.mu.Unlock()
		return
	}
	f.attempts++
	retry := f.retryEnabled && f.attempts < f.maxAttempts
	if retry {
		f.retryTimer = time.AfterFunc(f.retryDelay, func() {
			f.mu.Lock()
			f.retryTimer = nil
			f.mu.Unlock()
			f.run(context.Background(), gen, false)
		})
	}
	f.mu.Unlock()

	if retry {
		f.commit(gen, Snapshot{Err: fetchErr, UpdatedAt: f.now()})
		return
	}
	f.commit(gen, Snapshot{Err: fetchErr, Message: f.fallbackText, UpdatedAt: f.now()})
}

// stale reports whether the generation was superseded or the feed closed.
func (f *Feed) stale(gen uint64) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed || gen != f.generation
}

// commit replaces the snapshot unless the feed moved on (scope change or
// Close) while the work ran.
func (f *Feed) commit(gen uint64, snap Snapshot) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed || gen != f.generation {
		f.log.Debug().Msg("discarding result for superseded scope")
		return
	}
	f.current = snap
}

// freshEntry returns the cache entry for the scope only when it is inside
// its TTL and its stored parameters match exactly. A parameter mismatch
// evicts the entry; a merely expired one is left for fallback use.
func (f *Feed) freshEntry(scope Scope) *Entry {
	entry := f.anyEntry(scope)
	if entry == nil {
		return nil
	}
	if f.now().UnixMilli()-entry.Timestamp >= f.ttl.Milliseconds() {
		return nil
	}
	return entry
}

// anyEntry returns the scope's cache entry regardless of age. Entries whose
// parameters no longer match the scope, and entries that fail to decode,
// are evicted.
func (f *Feed) anyEntry(scope Scope) *Entry {
	entry, err := f.repo.Load(scope.Key())
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			f.log.Warn().Err(err).Str("scope", scope.Key()).Msg("evicting unreadable cache entry")
			_ = f.repo.Delete(scope.Key())
		}
		return nil
	}
	if !entry.matches(scope) {
		_ = f.repo.Delete(scope.Key())
		return nil
	}
	return entry
}

func (f *Feed) cancelTimersLocked() {
	if f.debounce != nil {
		f.debounce.Stop()
		f.debounce = nil
	}
	if f.retryTimer != nil {
		f.retryTimer.Stop()
		f.retryTimer = nil
	}
}

func (f *Feed) startAutoLocked() {
	if f.autoInterval <= 0 || f.autoTicker != nil {
		return
	}
	f.autoTicker = time.NewTicker(f.autoInterval)
	f.autoDone = make(chan struct{})
	go f.autoLoop(f.autoTicker, f.autoDone)
}

func (f *Feed) stopAutoLocked() {
	if f.autoTicker == nil {
		return
	}
	f.autoTicker.Stop()
	close(f.autoDone)
	f.autoTicker = nil
	f.autoDone = nil
}

func (f *Feed) autoLoop(ticker *time.Ticker, done chan struct{}) {
	for {
		select {
		case <-ticker.C:
			f.Refresh(context.Background())
		case <-done:
			return
		}
	}
}

// selectRecent filters posts to the scope's recency window, orders them
// newest first, and truncates to the scope's maximum.
func selectRecent(posts []content.Post, scope Scope, now time.Time) []content.Post {
	cutoff := now.AddDate(0, 0, -scope.DaysThreshold)

	recent := make([]content.Post, 0, len(posts))
	for _, p := range posts {
		date, ok := p.EffectiveDate()
		if !ok || date.Before(cutoff) {
			continue
		}
		recent = append(recent, p)
	}

	sort.SliceStable(recent, func(i, j int) bool {
		di, _ := recent[i].EffectiveDate()
		dj, _ := recent[j].EffectiveDate()
		return di.After(dj)
	})

	if scope.MaxItems > 0 && len(recent) > scope.MaxItems {
		recent = recent[:scope.MaxItems]
	}
	return recent
}
