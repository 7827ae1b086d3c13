package portfolio

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/voltdesk/voltdesk/pkg/cache"
	"github.com/voltdesk/voltdesk/pkg/client"
	"github.com/voltdesk/voltdesk/pkg/messaging"
	"github.com/voltdesk/voltdesk/pkg/types"
)

type counters struct {
	items   atomic.Int32
	metrics atomic.Int32
	adds    atomic.Int32
	removes atomic.Int32
}

func newPortfolioServer(t *testing.T, n *counters) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("GET /portfolio/items", func(w http.ResponseWriter, r *http.Request) {
		n.items.Add(1)
		json.NewEncoder(w).Encode([]types.PortfolioItem{
			{Id: 1, Contract: types.Contract{Id: 11, EnergyType: "Solar"}},
		})
	})
	mux.HandleFunc("GET /portfolio/metrics", func(w http.ResponseWriter, r *http.Request) {
		n.metrics.Add(1)
		json.NewEncoder(w).Encode(types.PortfolioMetrics{TotalContracts: 1, TotalCapacityMwh: 500})
	})
	mux.HandleFunc("POST /portfolio/items/{id}", func(w http.ResponseWriter, r *http.Request) {
		n.adds.Add(1)
	})
	mux.HandleFunc("DELETE /portfolio/items/{id}", func(w http.ResponseWriter, r *http.Request) {
		n.removes.Add(1)
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func newAuthedClient(t *testing.T, url string) *client.Client {
	t.Helper()
	c := client.New(url)
	c.Session().SetToken("opaque-token")
	return c
}

func TestView_ItemsAreCached(t *testing.T) {
	var n counters
	server := newPortfolioServer(t, &n)
	v := NewView("s1", newAuthedClient(t, server.URL), nil, nil, nil)

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		items, err := v.Items(ctx)
		if err != nil {
			t.Fatalf("items failed: %v", err)
		}
		if len(items) != 1 || items[0].Contract.EnergyType != "Solar" {
			t.Errorf("Expected the served portfolio but got %v", items)
		}
	}
	if got := n.items.Load(); got != 1 {
		t.Errorf("Expected a single backend fetch but got %d", got)
	}
}

func TestView_UnauthorizedBeforeNetwork(t *testing.T) {
	var n counters
	server := newPortfolioServer(t, &n)
	v := NewView("s1", client.New(server.URL), nil, nil, nil)

	if _, err := v.Items(context.Background()); !errors.Is(err, client.ErrUnauthorized) {
		t.Errorf("Expected ErrUnauthorized but got %v", err)
	}
	if _, err := v.Metrics(context.Background()); !errors.Is(err, client.ErrUnauthorized) {
		t.Errorf("Expected ErrUnauthorized but got %v", err)
	}
	if got := n.items.Load() + n.metrics.Load(); got != 0 {
		t.Errorf("Expected no network traffic without a token but got %d requests", got)
	}
}

func TestView_AddInvalidatesReads(t *testing.T) {
	var n counters
	server := newPortfolioServer(t, &n)
	c := cache.New(0)
	bus := messaging.NewBus()
	v := NewView("s1", newAuthedClient(t, server.URL), c, bus, nil)

	contractEvents := 0
	portfolioEvents := 0
	bus.Subscribe(messaging.ContractsChanged, func(messaging.ChangeEvent) { contractEvents++ })
	bus.Subscribe(messaging.PortfolioChanged, func(messaging.ChangeEvent) { portfolioEvents++ })

	ctx := context.Background()
	if _, err := v.Items(ctx); err != nil {
		t.Fatalf("items failed: %v", err)
	}
	if err := v.Add(ctx, 11); err != nil {
		t.Fatalf("add failed: %v", err)
	}
	if n.adds.Load() != 1 {
		t.Errorf("Expected one add request but got %d", n.adds.Load())
	}
	if contractEvents != 1 || portfolioEvents != 1 {
		t.Errorf("Expected both topics announced but got %d/%d", contractEvents, portfolioEvents)
	}

	// the next read goes back to the backend
	if _, err := v.Items(ctx); err != nil {
		t.Fatalf("items after add failed: %v", err)
	}
	if got := n.items.Load(); got != 2 {
		t.Errorf("Expected a fresh fetch after the mutation but got %d total", got)
	}
}

func TestView_RemoteChangeInvalidatesReads(t *testing.T) {
	var n counters
	server := newPortfolioServer(t, &n)
	bus := messaging.NewBus()
	v := NewView("s1", newAuthedClient(t, server.URL), cache.New(0), bus, nil)

	ctx := context.Background()
	if _, err := v.Items(ctx); err != nil {
		t.Fatalf("items failed: %v", err)
	}

	// another session bought something; the in-memory copy and the cached
	// entry both drop, so the next read goes back to the backend
	bus.Publish(messaging.PortfolioChanged, messaging.ChangeEvent{Action: messaging.ActionAdded, Origin: "other"})

	v.mu.Lock()
	cleared := v.items == nil
	v.mu.Unlock()
	if !cleared {
		t.Error("Expected the local portfolio copy dropped on a remote change")
	}
	if _, err := v.Items(ctx); err != nil {
		t.Fatalf("items after remote change failed: %v", err)
	}
	if got := n.items.Load(); got != 2 {
		t.Errorf("Expected a fresh fetch after the remote change but got %d total", got)
	}
}
