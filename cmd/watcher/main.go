// The watcher daemon re-runs saved contract searches on an interval and
// announces newly matching contracts on the change bus, so open desk
// sessions re-derive their cached listings. It also serves Prometheus
// metrics and the saved search list over HTTP.
package main

import (
	"encoding/json"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/voltdesk/voltdesk/pkg/client"
	"github.com/voltdesk/voltdesk/pkg/common"
	"github.com/voltdesk/voltdesk/pkg/messaging"
	"github.com/voltdesk/voltdesk/pkg/storage"
)

var (
	backendURL = "http://localhost:8000/api"
	dataDir    = "data"
	interval   = 5 * time.Minute
)

func init() {
	if v, ok := os.LookupEnv("VOLTDESK_BACKEND"); ok {
		backendURL = v
	}
	if v, ok := os.LookupEnv("VOLTDESK_DATA_DIR"); ok {
		dataDir = v
	}
	if v, ok := os.LookupEnv("WATCH_INTERVAL"); ok {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			interval = d
		}
	}
}

func main() {
	diskStorage := storage.NewDiskStorage(dataDir)
	bus := messaging.NewBus()
	if amqpUrl, ok := os.LookupEnv("RABBIT_HOST"); ok {
		if err := bus.ConnectRabbit(amqpUrl, "voltdesk"); err != nil {
			log.Fatalf("failed to connect to RabbitMQ: %v", err)
		}
		log.Printf("connected change bus to rabbitmq")
	}

	api := client.New(backendURL)
	if token, err := diskStorage.LoadToken(); err == nil && token != "" {
		api.Session().SetToken(token)
	}

	watcher := NewSearchWatcher(diskStorage, api, bus)
	if err := watcher.Load(); err != nil {
		log.Printf("could not load saved searches: %v", err)
	}
	log.Printf("watching %d saved searches every %v", watcher.Count(), interval)

	ticker := time.NewTicker(interval)
	go func() {
		watcher.RunOnce()
		for range ticker.C {
			watcher.RunOnce()
		}
	}()

	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("GET /searches", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(watcher.Searches()); err != nil {
			log.Printf("error encoding searches: %v", err)
		}
	})

	cfg := common.LoadTimeoutConfig(common.TimeoutConfig{
		ReadHeader: 5 * time.Second,
		Read:       15 * time.Second,
		Write:      30 * time.Second,
		Idle:       60 * time.Second,
		Shutdown:   20 * time.Second,
		Hook:       5 * time.Second,
	})
	server := common.NewServerWithTimeouts(&http.Server{Addr: ":8081", Handler: mux}, cfg)
	common.RunServerWithShutdown(server, "search watcher", cfg.Shutdown, cfg.Hook, watcher.SaveHook)
}
