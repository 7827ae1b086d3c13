// Package browse owns the contracts browsing state machine: one Session per
// open browse view. The session reconciles the filter store, the
// server-computed price bounds, the query cache and the shareable URL, and
// exposes immutable snapshots to whatever shell renders them.
//
// All state transitions run under one mutex; network completions re-enter
// through the same lock and are applied only if they still correspond to
// the active query key ("last relevant response wins").
package browse

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/voltdesk/voltdesk/pkg/bounds"
	"github.com/voltdesk/voltdesk/pkg/cache"
	"github.com/voltdesk/voltdesk/pkg/client"
	"github.com/voltdesk/voltdesk/pkg/filter"
	"github.com/voltdesk/voltdesk/pkg/messaging"
	"github.com/voltdesk/voltdesk/pkg/query"
	"github.com/voltdesk/voltdesk/pkg/tracking"
	"github.com/voltdesk/voltdesk/pkg/types"
)

var (
	noSearches = promauto.NewCounter(prometheus.CounterOpts{
		Name: "voltdesk_searches_total",
		Help: "The total number of contract list fetches issued",
	})
	noBoundsFetches = promauto.NewCounter(prometheus.CounterOpts{
		Name: "voltdesk_bounds_fetches_total",
		Help: "The total number of price bounds fetches issued",
	})
	noStaleDiscards = promauto.NewCounter(prometheus.CounterOpts{
		Name: "voltdesk_stale_responses_discarded_total",
		Help: "The total number of responses discarded for outdated query keys",
	})
)

// Snapshot is an immutable view of the session for rendering. Result keeps
// the last successful page while a newer key is still loading, so the view
// never flickers to empty between fetches.
type Snapshot struct {
	Filters     filter.State
	QtyMinInput string
	QtyMaxInput string

	Bounds        types.PriceBounds
	HaveBounds    bool
	PriceInputMin float64
	PriceInputMax float64
	Effective     types.PriceBounds

	Result       *types.ContractList
	Loading      bool
	Err          error
	InvalidRange bool
	Unauthorized bool
	PageCount    int

	URL string
}

type Config struct {
	API     *client.Client
	Cache   *cache.Cache
	Bus     *messaging.Bus
	History filter.History
	Tracker tracking.Tracking

	PageSize int
	Debounce time.Duration
	// RequireAuth gates the contract listing itself behind a login, for
	// deployments where the marketplace is not public.
	RequireAuth bool
}

type Session struct {
	mu  sync.Mutex
	id  string
	cfg Config

	store *filter.Store
	rec   *bounds.Reconciler
	deb   *bounds.Debouncer

	activeKey       string
	activeBoundsKey string

	result  *types.ContractList
	loading bool
	err     error
	unauth  bool

	ctx    context.Context
	cancel context.CancelFunc

	updates chan Snapshot
	closed  bool
}

// NewSession seeds filter state from the current URL, normalizes the URL to
// its canonical form and issues the initial fetches.
func NewSession(cfg Config) *Session {
	if cfg.History == nil {
		cfg.History = filter.NewMemoryHistory("")
	}
	if cfg.Tracker == nil {
		cfg.Tracker = tracking.Noop{}
	}
	if cfg.Cache == nil {
		cfg.Cache = cache.New(0)
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = filter.DefaultPageSize
	}

	initial := filter.ParseQuery(cfg.History.Current())
	var rec *bounds.Reconciler
	if initial.PriceTouched {
		rec = bounds.Resume(initial.PriceMin, initial.PriceMax)
	} else {
		rec = bounds.New()
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		id:      uuid.NewString(),
		cfg:     cfg,
		store:   filter.NewStore(initial),
		rec:     rec,
		deb:     bounds.NewDebouncer(cfg.Debounce),
		ctx:     ctx,
		cancel:  cancel,
		updates: make(chan Snapshot, 32),
	}

	if cfg.Bus != nil {
		cfg.Bus.Subscribe(messaging.ContractsChanged, func(messaging.ChangeEvent) {
			// the event may come from another instance or the watcher, so
			// the cached listings and bounds here are suspect too
			s.cfg.Cache.InvalidateFamily(s.ctx, query.KeyFamilyContracts)
			s.cfg.Cache.InvalidateFamily(s.ctx, query.KeyFamilyBounds)
			s.Refetch()
		})
	}

	s.mu.Lock()
	s.syncURLLocked()
	s.refreshLocked()
	s.emitLocked()
	s.mu.Unlock()
	return s
}

func (s *Session) Id() string { return s.id }

// Updates delivers a snapshot after every observable change. The channel is
// lossy under backpressure: older snapshots are dropped in favor of newer
// ones, which is always safe because snapshots are whole-state.
func (s *Session) Updates() <-chan Snapshot { return s.updates }

func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Session) snapshotLocked() Snapshot {
	state := s.store.State()
	inMin, inMax := s.rec.Input()
	return Snapshot{
		Filters:       state,
		QtyMinInput:   s.store.QtyMinInput(),
		QtyMaxInput:   s.store.QtyMaxInput(),
		Bounds:        s.rec.Bounds(),
		HaveBounds:    s.rec.HaveBounds(),
		PriceInputMin: inMin,
		PriceInputMax: inMax,
		Effective:     s.rec.Effective(),
		Result:        s.result,
		Loading:       s.loading,
		Err:           s.err,
		InvalidRange:  !state.Valid(),
		Unauthorized:  s.unauth,
		PageCount:     s.result.PageCount(),
		URL:           s.cfg.History.Current(),
	}
}

func (s *Session) emitLocked() {
	if s.closed {
		return
	}
	snap := s.snapshotLocked()
	for {
		select {
		case s.updates <- snap:
			return
		default:
			select {
			case <-s.updates:
			default:
			}
		}
	}
}

// update runs a store mutation and, when it changed anything, re-syncs the
// URL and re-derives the queries. The URL write happens strictly after the
// state commit.
func (s *Session) update(fn func(*filter.Store) bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if fn(s.store) {
		s.syncURLLocked()
		s.refreshLocked()
	}
	s.emitLocked()
}

func (s *Session) SetEnergyTypes(v []string) {
	s.update(func(st *filter.Store) bool { return st.SetEnergyTypes(v) })
}

func (s *Session) SetLocations(v []string) {
	s.update(func(st *filter.Store) bool { return st.SetLocations(v) })
}

func (s *Session) ToggleEnergyType(v string) {
	s.update(func(st *filter.Store) bool { return st.ToggleEnergyType(v) })
}

func (s *Session) SetQtyMinInput(raw string) {
	s.update(func(st *filter.Store) bool { return st.SetQtyMinInput(raw) })
}

func (s *Session) SetQtyMaxInput(raw string) {
	s.update(func(st *filter.Store) bool { return st.SetQtyMaxInput(raw) })
}

func (s *Session) SetDeliveryStart(d *types.Date) {
	s.update(func(st *filter.Store) bool { return st.SetDeliveryStart(d) })
}

func (s *Session) SetDeliveryEnd(d *types.Date) {
	s.update(func(st *filter.Store) bool { return st.SetDeliveryEnd(d) })
}

func (s *Session) SetSort(by, dir string) {
	s.update(func(st *filter.Store) bool { return st.SetSort(by, dir) })
}

func (s *Session) SetPage(page int) {
	s.update(func(st *filter.Store) bool { return st.SetPage(page) })
}

// SlidePrice records raw slider movement: the displayed value updates
// immediately, the commit (and the resulting fetch) waits for the input to
// stay quiet for the debounce window.
func (s *Session) SlidePrice(min, max float64) {
	s.mu.Lock()
	s.rec.SetInput(min, max)
	s.emitLocked()
	s.mu.Unlock()
	s.deb.Trigger(s.commitPrice)
}

func (s *Session) commitPrice() {
	s.mu.Lock()
	defer s.mu.Unlock()
	min, max := s.rec.Input()
	s.rec.Touch(min, max)
	eff := s.rec.Effective()
	if s.store.SetPriceRange(eff.Min, eff.Max) {
		s.syncURLLocked()
		s.refreshLocked()
	}
	s.emitLocked()
}

// ClearFilters resets every dimension, returns the price control to
// auto-follow and drops any pending debounced commit.
func (s *Session) ClearFilters() {
	s.deb.Cancel()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.store.Clear()
	s.rec.Reset()
	s.syncURLLocked()
	s.refreshLocked()
	s.emitLocked()
}

// HandleNavigation applies an inbound URL change (back/forward). Only the
// page parameter is honored; the URL is not a source of truth for the other
// dimensions after initial load.
func (s *Session) HandleNavigation(rawQuery string) {
	parsed := filter.ParseQuery(rawQuery)
	s.update(func(st *filter.Store) bool { return st.SetPage(parsed.Page) })
}

// Refetch forces fresh queries for the current state, bypassing the key
// comparison. Used after cache invalidation.
func (s *Session) Refetch() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.activeKey = ""
	s.activeBoundsKey = ""
	s.refreshLocked()
	s.emitLocked()
}

// ViewContract fetches a single contract for the detail view and records
// the view.
func (s *Session) ViewContract(ctx context.Context, contractId int) (*types.Contract, error) {
	c, err := s.cfg.API.Contract(ctx, contractId)
	if err != nil {
		return nil, err
	}
	s.cfg.Tracker.TrackContractView(s.id, contractId)
	return c, nil
}

// MarkSold flips a contract to sold and announces the change so every
// cached listing and bounds result is re-derived. Nothing is changed
// locally on failure, so there is nothing to roll back.
func (s *Session) MarkSold(ctx context.Context, contractId int) error {
	if _, err := s.cfg.API.MarkSold(ctx, contractId); err != nil {
		return err
	}
	s.invalidateContracts(messaging.ChangeEvent{
		ContractId: contractId,
		Action:     messaging.ActionSold,
		Origin:     s.id,
	})
	return nil
}

func (s *Session) invalidateContracts(ev messaging.ChangeEvent) {
	s.cfg.Cache.InvalidateFamily(s.ctx, query.KeyFamilyContracts)
	s.cfg.Cache.InvalidateFamily(s.ctx, query.KeyFamilyBounds)
	if s.cfg.Bus != nil {
		s.cfg.Bus.Publish(messaging.ContractsChanged, ev)
	} else {
		s.Refetch()
	}
}

func (s *Session) Close() {
	s.deb.Close()
	s.cancel()
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.updates)
	}
}

func (s *Session) syncURLLocked() {
	state := s.store.State()
	raw := filter.EncodeQuery(state)
	if raw != s.cfg.History.Current() {
		s.cfg.History.Replace(raw)
	}
}

// refreshLocked re-derives both queries from current state and starts
// whatever fetches are missing. Invalid or unauthorized states issue no
// network traffic at all.
func (s *Session) refreshLocked() {
	state := s.store.State()

	if !state.Valid() {
		s.activeKey = ""
		s.activeBoundsKey = ""
		s.loading = false
		return
	}
	if s.cfg.RequireAuth && !s.cfg.API.Session().Valid() {
		s.unauth = true
		s.activeKey = ""
		s.activeBoundsKey = ""
		s.loading = false
		return
	}
	s.unauth = false

	bq := query.Bounds(state)
	if bq.Key != s.activeBoundsKey {
		s.activeBoundsKey = bq.Key
		s.startBoundsFetchLocked(bq)
	}

	eff := s.rec.Effective()
	pq := query.Primary(state, &eff, s.cfg.PageSize)
	if pq.Key != s.activeKey {
		s.activeKey = pq.Key
		s.startFetchLocked(state, pq)
	}
}

func (s *Session) startFetchLocked(state filter.State, q query.Query) {
	var cached types.ContractList
	if s.cfg.Cache.Get(s.ctx, q.Key, &cached) {
		s.result = &cached
		s.loading = false
		s.err = nil
		return
	}
	s.loading = true
	s.err = nil
	noSearches.Inc()
	go func() {
		list, err := s.cfg.API.Contracts(s.ctx, q.Params)
		s.mu.Lock()
		defer s.mu.Unlock()
		if q.Key != s.activeKey {
			noStaleDiscards.Inc()
			return
		}
		s.loading = false
		if err != nil {
			// prior data stays in place as stale; the error is inline
			s.err = err
			s.unauth = errors.Is(err, client.ErrUnauthorized)
		} else {
			s.err = nil
			s.result = list
			s.cfg.Cache.Set(s.ctx, q.Key, list)
			s.cfg.Tracker.TrackSearch(s.id, state.Signature(), state.Page, list.Total)
		}
		s.emitLocked()
	}()
}

func (s *Session) startBoundsFetchLocked(q query.Query) {
	var cached types.PriceBounds
	if s.cfg.Cache.Get(s.ctx, q.Key, &cached) {
		s.applyBoundsLocked(cached)
		return
	}
	noBoundsFetches.Inc()
	go func() {
		b, ok, err := s.cfg.API.PriceBounds(s.ctx, q.Params)
		s.mu.Lock()
		defer s.mu.Unlock()
		if q.Key != s.activeBoundsKey {
			noStaleDiscards.Inc()
			return
		}
		if err != nil {
			// bounds failures are silent: the slider keeps its last range
			return
		}
		if !ok {
			b = types.DefaultPriceBounds
		}
		s.cfg.Cache.Set(s.ctx, q.Key, b)
		s.applyBoundsLocked(b)
		s.emitLocked()
	}()
}

// applyBoundsLocked installs new bounds and propagates their effect on the
// primary query. In touched mode the clamped selection is written back to
// the filter store (and the URL); in auto-follow the effective range moved
// with the bounds but the primary query omits price, so nothing refetches.
func (s *Session) applyBoundsLocked(b types.PriceBounds) {
	s.rec.ApplyBounds(b)
	if s.rec.Mode() == bounds.Touched {
		eff := s.rec.Effective()
		if s.store.SetPriceRange(eff.Min, eff.Max) {
			s.syncURLLocked()
		}
		s.refreshLocked()
	}
}
