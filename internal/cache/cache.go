// Package cache implements a key-addressed request cache with staleness
// windows, per-key fetch de-duplication, bounded retries with backoff,
// explicit invalidation and periodic background refresh.
package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"github.com/ekurganova/agrosense/internal/errs"
)

// Fetcher loads the value for a resource key. Implementations take the acting
// identity explicitly; the cache never reads ambient auth state.
type Fetcher func(ctx context.Context) (any, error)

// Options control a single Read.
type Options struct {
	// StaleTime is the maximum age served without refetching.
	StaleTime time.Duration
}

type entry struct {
	value       any
	fetchedAt   time.Time
	lastAccess  time.Time
	invalidated bool
}

// Store is the request cache. The zero value is not usable; construct with New.
type Store struct {
	mu      sync.Mutex
	entries map[string]*entry
	gens    map[string]uint64 // per-key invalidation generation
	group   singleflight.Group
	log     *zap.Logger

	now          func() time.Time
	fetchTimeout time.Duration
	maxAttempts  int
	baseBackoff  time.Duration
}

// StoreOption configures the Store.
type StoreOption func(*Store)

// WithFetchTimeout bounds each fetch attempt.
func WithFetchTimeout(d time.Duration) StoreOption {
	return func(s *Store) {
		if d > 0 {
			s.fetchTimeout = d
		}
	}
}

// WithRetry sets the attempt bound and initial backoff.
func WithRetry(attempts int, backoff time.Duration) StoreOption {
	return func(s *Store) {
		if attempts > 0 {
			s.maxAttempts = attempts
		}
		if backoff > 0 {
			s.baseBackoff = backoff
		}
	}
}

// WithClock overrides the time source (tests).
func WithClock(now func() time.Time) StoreOption {
	return func(s *Store) { s.now = now }
}

// New constructs an empty cache.
func New(log *zap.Logger, opts ...StoreOption) *Store {
	s := &Store{
		entries:      make(map[string]*entry),
		gens:         make(map[string]uint64),
		log:          log,
		now:          time.Now,
		fetchTimeout: 10 * time.Second,
		maxAttempts:  3,
		baseBackoff:  time.Second,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Read returns the cached value for key when fresh, otherwise fetches it.
// Concurrent reads of the same key share a single underlying fetch. When the
// fetch fails after retries and a previously cached value exists, that value
// is served instead (invalidated entries excluded).
func (s *Store) Read(ctx context.Context, key string, fetch Fetcher, opts Options) (any, error) {
	now := s.now()

	s.mu.Lock()
	gen := s.gens[key]
	e, ok := s.entries[key]
	if ok {
		e.lastAccess = now
		fresh := !e.invalidated && now.Sub(e.fetchedAt) < opts.StaleTime
		if fresh {
			v := e.value
			s.mu.Unlock()
			return v, nil
		}
	}
	s.mu.Unlock()

	v, err, _ := s.group.Do(key, func() (any, error) {
		return s.fetchWithRetry(ctx, key, fetch)
	})
	if err != nil {
		s.mu.Lock()
		e, ok := s.entries[key]
		if ok && !e.invalidated {
			stale := e.value
			s.mu.Unlock()
			s.log.Warn("serving stale value after failed refresh",
				zap.String("key", key), zap.Error(err))
			return stale, nil
		}
		s.mu.Unlock()
		return nil, err
	}

	s.store(key, v, gen)
	return v, nil
}

// store installs a fetched value. gen is the entry's invalidation generation
// observed when the fetch began; if another invalidation landed meanwhile the
// value is installed already-stale so it cannot mask that invalidation.
func (s *Store) store(key string, v any, gen uint64) {
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()
	e := &entry{value: v, fetchedAt: now, lastAccess: now}
	if s.gens[key] != gen {
		e.invalidated = true
	}
	s.entries[key] = e
}

// fetchWithRetry applies the retry policy: up to maxAttempts attempts with
// doubling backoff, never retrying client-class errors. Each attempt is
// bounded by the fetch timeout, surfaced as errs.ErrTimeout.
func (s *Store) fetchWithRetry(ctx context.Context, key string, fetch Fetcher) (any, error) {
	backoff := s.baseBackoff
	var lastErr error
	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		v, err := s.fetchOnce(ctx, fetch)
		if err == nil {
			return v, nil
		}
		lastErr = err
		if !errs.Retryable(err) || attempt == s.maxAttempts {
			break
		}
		s.log.Debug("fetch retry",
			zap.String("key", key), zap.Int("attempt", attempt), zap.Error(err))
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
	}
	return nil, fmt.Errorf("fetch %s: %w", key, lastErr)
}

func (s *Store) fetchOnce(ctx context.Context, fetch Fetcher) (any, error) {
	fctx, cancel := context.WithTimeout(ctx, s.fetchTimeout)
	defer cancel()
	v, err := fetch(fctx)
	if err != nil && fctx.Err() == context.DeadlineExceeded && ctx.Err() == nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrTimeout, err)
	}
	return v, err
}

// Invalidate marks the entries for the given keys stale immediately, forcing
// the next Read to refetch regardless of StaleTime.
func (s *Store) Invalidate(keys ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, k := range keys {
		// The generation is bumped even for keys with no entry yet so an
		// in-flight fetch cannot install its result as fresh.
		s.gens[k]++
		if e, ok := s.entries[k]; ok {
			e.invalidated = true
		}
	}
}

// InvalidateFunc marks every entry whose key matches the predicate.
func (s *Store) InvalidateFunc(match func(key string) bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, e := range s.entries {
		if match(k) {
			e.invalidated = true
			s.gens[k]++
		}
	}
}

// Mutate wraps a write operation. The affected keys are invalidated only
// after the mutation's success is observed, never speculatively.
func (s *Store) Mutate(ctx context.Context, fn func(ctx context.Context) error, affected ...string) error {
	if err := fn(ctx); err != nil {
		return err
	}
	s.Invalidate(affected...)
	return nil
}

// Sweep drops entries not accessed within maxIdle and returns the count.
func (s *Store) Sweep(maxIdle time.Duration) int {
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int
	for k, e := range s.entries {
		if now.Sub(e.lastAccess) > maxIdle {
			delete(s.entries, k)
			delete(s.gens, k)
			n++
		}
	}
	return n
}

// Len reports the number of cached entries.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Refresher periodically refetches registered keys independent of read
// activity, keeping dashboard data current without user interaction.
type Refresher struct {
	store *Store
	log   *zap.Logger
	lim   *rate.Limiter

	mu   sync.Mutex
	jobs []refreshJob
}

type refreshJob struct {
	key      string
	fetch    Fetcher
	interval time.Duration
}

// NewRefresher constructs a refresher. maxPerSecond paces refetches so many
// due keys do not stampede the backing store at once.
func NewRefresher(store *Store, log *zap.Logger, maxPerSecond float64) *Refresher {
	if maxPerSecond <= 0 {
		maxPerSecond = 2
	}
	return &Refresher{
		store: store,
		log:   log,
		lim:   rate.NewLimiter(rate.Limit(maxPerSecond), 1),
	}
}

// Register adds a key to the periodic refresh schedule.
func (r *Refresher) Register(key string, fetch Fetcher, interval time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.jobs = append(r.jobs, refreshJob{key: key, fetch: fetch, interval: interval})
}

// Run refetches each registered key on its interval until ctx is done. Idle
// cache entries are swept once per minute.
func (r *Refresher) Run(ctx context.Context, maxIdle time.Duration) {
	r.mu.Lock()
	jobs := make([]refreshJob, len(r.jobs))
	copy(jobs, r.jobs)
	r.mu.Unlock()

	var wg sync.WaitGroup
	for _, j := range jobs {
		wg.Add(1)
		go func(j refreshJob) {
			defer wg.Done()
			t := time.NewTicker(j.interval)
			defer t.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-t.C:
					if err := r.lim.Wait(ctx); err != nil {
						return
					}
					r.refresh(ctx, j)
				}
			}
		}(j)
	}

	sweep := time.NewTicker(time.Minute)
	defer sweep.Stop()
	for {
		select {
		case <-ctx.Done():
			wg.Wait()
			return
		case <-sweep.C:
			if maxIdle > 0 {
				if n := r.store.Sweep(maxIdle); n > 0 {
					r.log.Debug("swept idle cache entries", zap.Int("count", n))
				}
			}
		}
	}
}

func (r *Refresher) refresh(ctx context.Context, j refreshJob) {
	r.store.mu.Lock()
	gen := r.store.gens[j.key]
	r.store.mu.Unlock()

	v, err, _ := r.store.group.Do(j.key, func() (any, error) {
		return r.store.fetchWithRetry(ctx, j.key, j.fetch)
	})
	if err != nil {
		r.log.Warn("background refresh failed", zap.String("key", j.key), zap.Error(err))
		return
	}
	r.store.store(j.key, v, gen)
}
