package client

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"

	"github.com/voltdesk/voltdesk/pkg/types"
)

func TestContracts_PassesQueryAndDecodes(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/contracts" {
			t.Errorf("Expected /contracts but got %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("energy_type"); got != "Solar" {
			t.Errorf("Expected energy_type Solar but got %q", got)
		}
		json.NewEncoder(w).Encode(types.ContractList{
			Items:    []types.Contract{{Id: 1, EnergyType: "Solar"}},
			Page:     1,
			PageSize: 20,
			Total:    1,
		})
	}))
	defer server.Close()

	c := New(server.URL)
	params := url.Values{}
	params.Set("energy_type", "Solar")
	list, err := c.Contracts(context.Background(), params)
	if err != nil {
		t.Fatalf("contracts failed: %v", err)
	}
	if list.Total != 1 || len(list.Items) != 1 || list.Items[0].EnergyType != "Solar" {
		t.Errorf("Expected the served page but got %+v", list)
	}
}

func TestPriceBounds_NullMeansNoBounds(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/contracts/price-bounds" {
			t.Errorf("Expected /contracts/price-bounds but got %s", r.URL.Path)
		}
		w.Write([]byte(`{"min_price":null,"max_price":null}`))
	}))
	defer server.Close()

	c := New(server.URL)
	_, ok, err := c.PriceBounds(context.Background(), url.Values{})
	if err != nil {
		t.Fatalf("bounds failed: %v", err)
	}
	if ok {
		t.Error("Expected ok=false for null bounds")
	}
}

func TestPriceBounds_Values(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"min_price":12.5,"max_price":87}`))
	}))
	defer server.Close()

	c := New(server.URL)
	b, ok, err := c.PriceBounds(context.Background(), url.Values{})
	if err != nil || !ok {
		t.Fatalf("Expected bounds but got ok=%v err=%v", ok, err)
	}
	if b.Min != 12.5 || b.Max != 87 {
		t.Errorf("Expected 12.5-87 but got %v", b)
	}
}

func TestBearerHeader(t *testing.T) {
	var seen atomic.Value
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen.Store(r.Header.Get("Authorization"))
		w.Write([]byte(`[]`))
	}))
	defer server.Close()

	c := New(server.URL)
	c.Session().SetToken("opaque-token")
	if _, err := c.Locations(context.Background()); err != nil {
		t.Fatalf("locations failed: %v", err)
	}
	if got := seen.Load(); got != "Bearer opaque-token" {
		t.Errorf("Expected bearer header but got %q", got)
	}
}

func TestUnauthorizedResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	c := New(server.URL)
	_, err := c.Contracts(context.Background(), url.Values{})
	if !errors.Is(err, ErrUnauthorized) {
		t.Errorf("Expected ErrUnauthorized but got %v", err)
	}
}

func TestPortfolioGatedLocally(t *testing.T) {
	var requests atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
	}))
	defer server.Close()

	c := New(server.URL)
	if _, err := c.PortfolioItems(context.Background()); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("Expected local ErrUnauthorized but got %v", err)
	}
	if err := c.AddPortfolioItem(context.Background(), 1); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("Expected local ErrUnauthorized but got %v", err)
	}
	if got := requests.Load(); got != 0 {
		t.Errorf("Expected no network traffic without a token but got %d requests", got)
	}
}

func TestMarkSold_PatchesStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPatch {
			t.Errorf("Expected PATCH but got %s", r.Method)
		}
		if r.URL.Path != "/contracts/42" {
			t.Errorf("Expected /contracts/42 but got %s", r.URL.Path)
		}
		body, _ := io.ReadAll(r.Body)
		var patch map[string]string
		json.Unmarshal(body, &patch)
		if patch["status"] != types.StatusSold {
			t.Errorf("Expected status patch but got %v", patch)
		}
		json.NewEncoder(w).Encode(types.Contract{Id: 42, Status: types.StatusSold})
	}))
	defer server.Close()

	c := New(server.URL)
	contract, err := c.MarkSold(context.Background(), 42)
	if err != nil {
		t.Fatalf("mark sold failed: %v", err)
	}
	if contract.Status != types.StatusSold {
		t.Errorf("Expected sold contract back but got %+v", contract)
	}
}

func TestContractAndLocations(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /contracts/locations", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]string{"DE", "FR", "NO"})
	})
	mux.HandleFunc("GET /contracts/{id}", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(types.Contract{Id: 7, Location: "DE"})
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	c := New(server.URL)
	locations, err := c.Locations(context.Background())
	if err != nil {
		t.Fatalf("locations failed: %v", err)
	}
	if len(locations) != 3 || locations[0] != "DE" {
		t.Errorf("Expected the served locations but got %v", locations)
	}
	contract, err := c.Contract(context.Background(), 7)
	if err != nil {
		t.Fatalf("contract failed: %v", err)
	}
	if contract.Id != 7 || contract.Location != "DE" {
		t.Errorf("Expected contract 7 but got %+v", contract)
	}
}

func TestStatusError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer server.Close()

	c := New(server.URL)
	_, err := c.Contracts(context.Background(), url.Values{})
	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("Expected a StatusError but got %v", err)
	}
	if statusErr.Code != http.StatusInternalServerError {
		t.Errorf("Expected code 500 but got %d", statusErr.Code)
	}
}

func TestLogin_StoresToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/auth/login" || r.Method != http.MethodPost {
			t.Errorf("Expected POST /auth/login but got %s %s", r.Method, r.URL.Path)
		}
		var req loginRequest
		json.NewDecoder(r.Body).Decode(&req)
		if req.Username != "trader" || req.Password != "hunter2" {
			t.Errorf("Expected credentials forwarded but got %+v", req)
		}
		json.NewEncoder(w).Encode(loginResponse{AccessToken: "tok", TokenType: "bearer"})
	}))
	defer server.Close()

	c := New(server.URL)
	if err := c.Login(context.Background(), "trader", "hunter2"); err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if !c.Session().Valid() {
		t.Error("Expected a valid session after login")
	}
	c.Logout()
	if c.Session().Valid() {
		t.Error("Expected the session cleared after logout")
	}
}

func TestSession_ExpiredTokenIsInvalid(t *testing.T) {
	// exp claim in the past; unsigned tokens parse fine for expiry inspection
	expired := "eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9." +
		"eyJzdWIiOiJ0cmFkZXIiLCJleHAiOjE2MDAwMDAwMDB9." +
		"x"
	s := &Session{}
	s.SetToken(expired)
	if s.Valid() {
		t.Error("Expected an expired token to be invalid")
	}
}

func TestSession_FutureExpiryIsValid(t *testing.T) {
	// exp claim in 2100
	live := "eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9." +
		"eyJzdWIiOiJ0cmFkZXIiLCJleHAiOjQxMDI0NDQ4MDB9." +
		"x"
	s := &Session{}
	s.SetToken(live)
	if !s.Valid() {
		t.Error("Expected a token expiring in the future to be valid")
	}
}
