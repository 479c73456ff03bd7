package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/fasthttp/router"
	"github.com/joho/godotenv"
	"github.com/valyala/fasthttp"
	"golang.org/x/time/rate"
	"gorm.io/gorm"

	"trafficpulse/internal/analysis"
	"trafficpulse/internal/collect"
	"trafficpulse/internal/config"
	"trafficpulse/internal/db"
	"trafficpulse/internal/geocode"
	"trafficpulse/internal/http/handlers"
	appmw "trafficpulse/internal/http/middleware"
	"trafficpulse/internal/tomtom"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	cmd := "serve"
	if len(os.Args) > 1 {
		cmd = os.Args[1]
	}

	switch cmd {
	case "serve":
		runServe(cfg)
	case "collect-baseline":
		runCollectBaseline(cfg)
	case "collect-events":
		runCollectEvents(cfg)
	case "analyze":
		runAnalyze(cfg)
	case "seed-sample":
		runSeedSample(cfg)
	case "backfill":
		runBackfill(cfg)
	case "geocode-venues":
		runGeocodeVenues(cfg)
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", cmd)
		fmt.Fprintln(os.Stderr, "usage: trafficpulse [serve|collect-baseline|collect-events|analyze|seed-sample|backfill|geocode-venues]")
		os.Exit(2)
	}
}

func mustConnect(cfg *config.Config) *gorm.DB {
	sqlDB, err := db.Connect(cfg)
	if err != nil {
		log.Fatalf("failed to connect database: %v", err)
	}
	return sqlDB
}

// limiter paces outbound vendor calls at one per configured pause, with no
// burst beyond the first call.
func limiter(cfg *config.Config) *rate.Limiter {
	if cfg.CallPause <= 0 {
		return nil
	}
	return rate.NewLimiter(rate.Every(cfg.CallPause), 1)
}

func runServe(cfg *config.Config) {
	sqlDB := mustConnect(cfg)

	collect.RegisterMetrics()
	handlers.InitPrometheusMetrics()

	r := router.New()

	r.GET("/healthz", handlers.HealthHandler(sqlDB))
	r.GET("/metrics", handlers.PrometheusMetricsHandler())

	r.POST("/v1/events", appmw.BearerAuth(cfg.IngestKey)(handlers.IngestHandler(sqlDB)))

	r.GET("/v1/impact/summary", handlers.ImpactSummaryHandler(sqlDB))
	r.GET("/v1/impact/events/{id}", handlers.EventImpactHandler(sqlDB))

	r.GET("/v1/venues", handlers.VenuesHandler(sqlDB))
	r.GET("/v1/venues/{id}/baseline", handlers.BaselinePatternsHandler(sqlDB))
	r.GET("/v1/venues/{id}/measurements", handlers.VenueMeasurementsHandler(sqlDB))

	r.GET("/v1/events/recent", handlers.RecentEventsHandler(sqlDB))
	r.GET("/v1/events/upcoming", handlers.EventsByDateHandler(sqlDB))
	r.GET("/v1/categories", handlers.CategoriesHandler(sqlDB))

	handler := handlers.RequestLogger(r.Handler)

	log.Printf("trafficpulse listening on %s", cfg.ListenAddr)
	if err := fasthttp.ListenAndServe(cfg.ListenAddr, handler); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

func runCollectBaseline(cfg *config.Config) {
	sqlDB := mustConnect(cfg)

	c := &collect.BaselineCollector{
		DB:       sqlDB,
		Client:   tomtom.NewClient(cfg.TomTomAPIKey),
		MaxCalls: cfg.BaselineMaxCalls,
		Limiter:  limiter(cfg),
	}
	result, err := c.Run(context.Background())
	if err != nil {
		log.Fatalf("baseline collection failed: %v", err)
	}
	printJSON(result)
}

func runCollectEvents(cfg *config.Config) {
	sqlDB := mustConnect(cfg)

	c := &collect.EventCollector{
		DB:       sqlDB,
		Client:   tomtom.NewClient(cfg.TomTomAPIKey),
		MaxCalls: cfg.EventMaxCalls,
		Limiter:  limiter(cfg),
	}
	result, err := c.Run(context.Background())
	if err != nil {
		log.Fatalf("event collection failed: %v", err)
	}
	printJSON(result)
}

func runAnalyze(cfg *config.Config) {
	sqlDB := mustConnect(cfg)

	analyzer := &analysis.Analyzer{DB: sqlDB}
	results, err := analyzer.AnalyzeAll()
	if err != nil {
		log.Fatalf("analysis failed: %v", err)
	}
	printJSON(analysis.Summarize(results))
}

func runSeedSample(cfg *config.Config) {
	sqlDB := mustConnect(cfg)

	result, err := collect.SeedSampleData(sqlDB, nil)
	if err != nil {
		log.Fatalf("seeding sample data failed: %v", err)
	}
	printJSON(result)
}

func runBackfill(cfg *config.Config) {
	sqlDB := mustConnect(cfg)

	linked, err := db.BackfillEventIDs(sqlDB)
	if err != nil {
		log.Fatalf("backfilling event links failed: %v", err)
	}
	log.Printf("backfill: linked %d measurements to events", linked)

	filled, err := db.BackfillTimeMetadata(sqlDB)
	if err != nil {
		log.Fatalf("backfilling time metadata failed: %v", err)
	}
	log.Printf("backfill: filled time metadata on %d measurements", filled)
}

// runGeocodeVenues bootstraps venue_locations from the events table: every
// distinct venue name on an event is geocoded and upserted, then events are
// linked to their venue rows by name. Without this the scraped events (which
// carry no coordinates) would never join to a venue.
func runGeocodeVenues(cfg *config.Config) {
	sqlDB := mustConnect(cfg)

	names, err := db.EventVenueNames(sqlDB)
	if err != nil {
		log.Fatalf("listing event venues failed: %v", err)
	}
	venues, err := db.ListVenues(sqlDB)
	if err != nil {
		log.Fatalf("listing venues failed: %v", err)
	}

	pending := venuesToGeocode(names, venues)
	log.Printf("geocode: %d venues on events, %d need geocoding", len(names), len(pending))

	client := geocode.NewClient(cfg.GoogleMapsAPIKey)
	ctx := context.Background()
	resolved := 0

	for _, name := range pending {
		loc, err := client.Lookup(ctx, name)
		if err != nil {
			log.Printf("geocode: %s: %v", name, err)
			continue
		}
		if _, err := db.UpsertVenue(sqlDB, &db.Venue{
			Name:      name,
			Address:   loc.FormattedAddress,
			Latitude:  loc.Latitude,
			Longitude: loc.Longitude,
			PlaceID:   loc.PlaceID,
		}); err != nil {
			log.Printf("geocode: saving %s: %v", name, err)
			continue
		}
		resolved++
		time.Sleep(100 * time.Millisecond)
	}

	linked, err := db.LinkEventsToVenues(sqlDB)
	if err != nil {
		log.Fatalf("linking events to venues failed: %v", err)
	}
	log.Printf("geocode: resolved %d venues, linked %d events", resolved, linked)
}

// venuesToGeocode filters the event venue names down to the ones without a
// located venue row: missing entirely, or present with zero coordinates.
func venuesToGeocode(names []string, venues []db.Venue) []string {
	located := make(map[string]bool, len(venues))
	for _, v := range venues {
		located[v.Name] = v.Latitude != 0 || v.Longitude != 0
	}
	var pending []string
	for _, name := range names {
		if !located[name] {
			pending = append(pending, name)
		}
	}
	return pending
}

func printJSON(v any) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		log.Fatalf("encoding result: %v", err)
	}
	fmt.Println(string(out))
}
