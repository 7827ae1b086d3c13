// Package portfolio is the buyer-side view of acquired contracts: the item
// list, the aggregate metrics and the add/remove mutations. Mutations are
// never applied optimistically; the cached reads are invalidated and
// re-fetched instead.
package portfolio

import (
	"context"
	"sync"

	"github.com/voltdesk/voltdesk/pkg/cache"
	"github.com/voltdesk/voltdesk/pkg/client"
	"github.com/voltdesk/voltdesk/pkg/messaging"
	"github.com/voltdesk/voltdesk/pkg/query"
	"github.com/voltdesk/voltdesk/pkg/tracking"
	"github.com/voltdesk/voltdesk/pkg/types"
)

const (
	// KeyFamily prefixes every portfolio cache entry.
	KeyFamily  = "portfolio"
	itemsKey   = "portfolio/items"
	metricsKey = "portfolio/metrics"
)

type View struct {
	mu        sync.Mutex
	sessionId string
	api       *client.Client
	cache     *cache.Cache
	bus       *messaging.Bus
	tracker   tracking.Tracking

	items   []types.PortfolioItem
	metrics *types.PortfolioMetrics
}

func NewView(sessionId string, api *client.Client, c *cache.Cache, bus *messaging.Bus, tracker tracking.Tracking) *View {
	if c == nil {
		c = cache.New(0)
	}
	if tracker == nil {
		tracker = tracking.Noop{}
	}
	v := &View{sessionId: sessionId, api: api, cache: c, bus: bus, tracker: tracker}
	if bus != nil {
		bus.Subscribe(messaging.PortfolioChanged, func(messaging.ChangeEvent) {
			// remote mutation: the cached reads are stale, not just the
			// in-memory copies
			v.cache.InvalidateFamily(context.Background(), KeyFamily)
			v.mu.Lock()
			v.items = nil
			v.metrics = nil
			v.mu.Unlock()
		})
	}
	return v
}

// Items returns the portfolio, cache first. client.ErrUnauthorized comes
// back before any network traffic when the session has no live token.
func (v *View) Items(ctx context.Context) ([]types.PortfolioItem, error) {
	v.mu.Lock()
	if v.items != nil {
		items := v.items
		v.mu.Unlock()
		return items, nil
	}
	v.mu.Unlock()

	var cached []types.PortfolioItem
	if v.cache.Get(ctx, itemsKey, &cached) {
		v.mu.Lock()
		v.items = cached
		v.mu.Unlock()
		return cached, nil
	}

	items, err := v.api.PortfolioItems(ctx)
	if err != nil {
		return nil, err
	}
	v.cache.Set(ctx, itemsKey, items)
	v.mu.Lock()
	v.items = items
	v.mu.Unlock()
	return items, nil
}

func (v *View) Metrics(ctx context.Context) (*types.PortfolioMetrics, error) {
	v.mu.Lock()
	if v.metrics != nil {
		m := v.metrics
		v.mu.Unlock()
		return m, nil
	}
	v.mu.Unlock()

	var cached types.PortfolioMetrics
	if v.cache.Get(ctx, metricsKey, &cached) {
		v.mu.Lock()
		v.metrics = &cached
		v.mu.Unlock()
		return &cached, nil
	}

	metrics, err := v.api.PortfolioMetrics(ctx)
	if err != nil {
		return nil, err
	}
	v.cache.Set(ctx, metricsKey, metrics)
	v.mu.Lock()
	v.metrics = metrics
	v.mu.Unlock()
	return metrics, nil
}

// Add puts a contract into the portfolio and invalidates everything the
// mutation can have changed: the portfolio reads and, because availability
// may change, the contract listings and bounds.
func (v *View) Add(ctx context.Context, contractId int) error {
	if err := v.api.AddPortfolioItem(ctx, contractId); err != nil {
		return err
	}
	v.tracker.TrackPortfolioAdd(v.sessionId, contractId)
	v.invalidate(ctx, messaging.ChangeEvent{
		ContractId: contractId,
		Action:     messaging.ActionAdded,
		Origin:     v.sessionId,
	})
	return nil
}

func (v *View) Remove(ctx context.Context, contractId int) error {
	if err := v.api.RemovePortfolioItem(ctx, contractId); err != nil {
		return err
	}
	v.tracker.TrackPortfolioRemove(v.sessionId, contractId)
	v.invalidate(ctx, messaging.ChangeEvent{
		ContractId: contractId,
		Action:     messaging.ActionRemoved,
		Origin:     v.sessionId,
	})
	return nil
}

func (v *View) invalidate(ctx context.Context, ev messaging.ChangeEvent) {
	v.cache.InvalidateFamily(ctx, KeyFamily)
	v.cache.InvalidateFamily(ctx, query.KeyFamilyContracts)
	v.cache.InvalidateFamily(ctx, query.KeyFamilyBounds)
	v.mu.Lock()
	v.items = nil
	v.metrics = nil
	v.mu.Unlock()
	if v.bus != nil {
		v.bus.Publish(messaging.PortfolioChanged, ev)
		v.bus.Publish(messaging.ContractsChanged, ev)
	}
}
