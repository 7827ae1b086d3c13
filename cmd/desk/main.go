// voltdesk is a terminal client for an energy contract marketplace: browse
// and filter available contracts, inspect details, and manage a portfolio.
// The backend address and optional infrastructure (RabbitMQ change bus,
// shared Redis cache) are configured through the environment.
package main

import (
	"log"
	"os"
	"strconv"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/voltdesk/voltdesk/pkg/browse"
	"github.com/voltdesk/voltdesk/pkg/cache"
	"github.com/voltdesk/voltdesk/pkg/client"
	"github.com/voltdesk/voltdesk/pkg/filter"
	"github.com/voltdesk/voltdesk/pkg/messaging"
	"github.com/voltdesk/voltdesk/pkg/portfolio"
	"github.com/voltdesk/voltdesk/pkg/storage"
	"github.com/voltdesk/voltdesk/pkg/tracking"
)

var (
	backendURL = "http://localhost:8000/api"
	dataDir    = "data"
)

func init() {
	if v, ok := os.LookupEnv("VOLTDESK_BACKEND"); ok {
		backendURL = v
	}
	if v, ok := os.LookupEnv("VOLTDESK_DATA_DIR"); ok {
		dataDir = v
	}
}

func main() {
	// an optional shareable query string resumes a previous search
	initialQuery := ""
	if len(os.Args) > 1 {
		initialQuery = os.Args[1]
	}

	diskStorage := storage.NewDiskStorage(dataDir)

	api := client.New(backendURL)
	if token, err := diskStorage.LoadToken(); err == nil && token != "" {
		api.Session().SetToken(token)
	}

	resultCache := cache.New(0)
	if addr, ok := os.LookupEnv("REDIS_ADDR"); ok {
		db := 0
		if v, ok := os.LookupEnv("REDIS_DB"); ok {
			if n, err := strconv.Atoi(v); err == nil {
				db = n
			}
		}
		resultCache = resultCache.WithRedis(addr, os.Getenv("REDIS_PASSWORD"), db)
	}
	defer resultCache.Close()

	bus := messaging.NewBus()
	var tracker tracking.Tracking = tracking.Noop{}
	if amqpUrl, ok := os.LookupEnv("RABBIT_HOST"); ok {
		if err := bus.ConnectRabbit(amqpUrl, "voltdesk"); err != nil {
			log.Printf("change bus unavailable: %v", err)
		}
		if rt, err := tracking.NewRabbitTracking(amqpUrl); err != nil {
			log.Printf("tracking unavailable: %v", err)
		} else {
			tracker = rt
			defer rt.Close()
		}
	}
	defer bus.Close()

	pageSize := filter.DefaultPageSize
	if v, ok := os.LookupEnv("VOLTDESK_PAGE_SIZE"); ok {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			pageSize = n
		}
	}

	session := browse.NewSession(browse.Config{
		API:      api,
		Cache:    resultCache,
		Bus:      bus,
		History:  filter.NewMemoryHistory(initialQuery),
		Tracker:  tracker,
		PageSize: pageSize,
	})
	defer session.Close()

	pf := portfolio.NewView(session.Id(), api, resultCache, bus, tracker)

	m := newModel(session, pf, api, diskStorage)
	if _, err := tea.NewProgram(m, tea.WithAltScreen()).Run(); err != nil {
		log.Fatalf("desk exited with error: %v", err)
	}
}
