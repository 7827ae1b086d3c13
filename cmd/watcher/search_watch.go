package main

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/voltdesk/voltdesk/pkg/client"
	"github.com/voltdesk/voltdesk/pkg/filter"
	"github.com/voltdesk/voltdesk/pkg/messaging"
	"github.com/voltdesk/voltdesk/pkg/query"
	"github.com/voltdesk/voltdesk/pkg/storage"
	"github.com/voltdesk/voltdesk/pkg/types"
)

var (
	watcherRuns = promauto.NewCounter(prometheus.CounterOpts{
		Name: "voltdesk_watcher_runs_total",
		Help: "The total number of saved-search sweep runs",
	})
	watcherNewMatches = promauto.NewCounter(prometheus.CounterOpts{
		Name: "voltdesk_watcher_new_matches_total",
		Help: "The total number of newly matching contracts detected",
	})
	watcherErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "voltdesk_watcher_errors_total",
		Help: "The total number of failed saved-search fetches",
	})
)

// SearchWatcher re-runs saved searches and compares the server-reported
// totals against the previous sweep. A growing total means new contracts
// match the search; that is announced on the bus and the new total is
// persisted.
type SearchWatcher struct {
	mu       sync.RWMutex
	storage  *storage.DiskStorage
	api      *client.Client
	bus      *messaging.Bus
	searches []storage.SavedSearch
}

func NewSearchWatcher(ds *storage.DiskStorage, api *client.Client, bus *messaging.Bus) *SearchWatcher {
	return &SearchWatcher{storage: ds, api: api, bus: bus}
}

func (w *SearchWatcher) Load() error {
	searches, err := w.storage.LoadSavedSearches()
	if err != nil {
		return err
	}
	w.mu.Lock()
	w.searches = searches
	w.mu.Unlock()
	return nil
}

func (w *SearchWatcher) Count() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return len(w.searches)
}

func (w *SearchWatcher) Searches() []storage.SavedSearch {
	w.mu.RLock()
	defer w.mu.RUnlock()
	out := make([]storage.SavedSearch, len(w.searches))
	copy(out, w.searches)
	return out
}

// RunOnce sweeps every saved search. Individual fetch failures are counted
// and skipped; the sweep always finishes.
func (w *SearchWatcher) RunOnce() {
	watcherRuns.Inc()
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	changed := false
	w.mu.Lock()
	defer w.mu.Unlock()
	for i := range w.searches {
		s := &w.searches[i]
		state := filter.ParseQuery(s.Query)
		state.Page = 1

		var eff *types.PriceBounds
		if state.PriceTouched && state.PriceMin != nil && state.PriceMax != nil {
			eff = &types.PriceBounds{Min: *state.PriceMin, Max: *state.PriceMax}
		}
		q := query.Primary(state, eff, 1)

		list, err := w.api.Contracts(ctx, q.Params)
		if err != nil {
			watcherErrors.Inc()
			log.Printf("saved search %q failed: %v", s.Name, err)
			continue
		}
		if list.Total > s.LastTotal {
			diff := list.Total - s.LastTotal
			watcherNewMatches.Add(float64(diff))
			log.Printf("saved search %q has %d new matching contracts", s.Name, diff)
			if w.bus != nil {
				w.bus.Publish(messaging.ContractsChanged, messaging.ChangeEvent{
					Action: messaging.ActionNewMatch,
				})
			}
		}
		if list.Total != s.LastTotal {
			s.LastTotal = list.Total
			changed = true
		}
	}
	if changed {
		if err := w.storage.SaveSavedSearches(w.searches); err != nil {
			log.Printf("could not save searches: %v", err)
		}
	}
}

// SaveHook persists the current totals on shutdown.
func (w *SearchWatcher) SaveHook(ctx context.Context) error {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.storage.SaveSavedSearches(w.searches)
}
