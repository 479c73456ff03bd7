package handlers

import (
	"log"
	"strconv"
	"time"

	"github.com/valyala/fasthttp"
	"gorm.io/gorm"

	"trafficpulse/internal/analysis"
	dbpkg "trafficpulse/internal/db"
)

// HealthHandler reports liveness plus basic store counts.
func HealthHandler(db *gorm.DB) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		venues, _ := dbpkg.VenueCount(db)
		events, _ := dbpkg.EventCount(db)
		measurements, _ := dbpkg.MeasurementCount(db)
		jsonResponse(ctx, map[string]any{
			"status":       "ok",
			"venues":       venues,
			"events":       events,
			"measurements": measurements,
		})
	}
}

// ImpactSummaryHandler recomputes the full correlation and returns the
// fleet-level rollup. Results are not cached; every request reflects the
// store as of now.
func ImpactSummaryHandler(db *gorm.DB) fasthttp.RequestHandler {
	analyzer := &analysis.Analyzer{DB: db}
	return func(ctx *fasthttp.RequestCtx) {
		results, err := analyzer.AnalyzeAll()
		if err != nil {
			log.Printf("impact summary: %v", err)
			errResponse(ctx, fasthttp.StatusInternalServerError, "analysis failed")
			return
		}
		jsonResponse(ctx, analysis.Summarize(results))
	}
}

// EventImpactHandler returns the impact result for a single event. Events
// without usable data still come back 200 with has_data=false so callers can
// tell "no data" apart from "no impact".
func EventImpactHandler(db *gorm.DB) fasthttp.RequestHandler {
	analyzer := &analysis.Analyzer{DB: db}
	return func(ctx *fasthttp.RequestCtx) {
		id, ok := pathID(ctx, "id")
		if !ok {
			errResponse(ctx, fasthttp.StatusBadRequest, "invalid event id")
			return
		}
		result, err := analyzer.AnalyzeEvent(id)
		if err != nil {
			log.Printf("event impact %d: %v", id, err)
			errResponse(ctx, fasthttp.StatusInternalServerError, "analysis failed")
			return
		}
		jsonResponse(ctx, result)
	}
}

// VenuesHandler lists all monitored venues.
func VenuesHandler(db *gorm.DB) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		venues, err := dbpkg.ListVenues(db)
		if err != nil {
			log.Printf("list venues: %v", err)
			errResponse(ctx, fasthttp.StatusInternalServerError, "failed to list venues")
			return
		}
		jsonResponse(ctx, map[string]any{"venues": venues, "count": len(venues)})
	}
}

// RecentEventsHandler returns the most recently ingested or updated events.
func RecentEventsHandler(db *gorm.DB) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		limit := queryInt(ctx, "limit", 50)
		events, err := dbpkg.RecentEvents(db, limit)
		if err != nil {
			log.Printf("recent events: %v", err)
			errResponse(ctx, fasthttp.StatusInternalServerError, "failed to list events")
			return
		}
		jsonResponse(ctx, map[string]any{"events": events, "count": len(events)})
	}
}

// CategoriesHandler returns event counts grouped by category.
func CategoriesHandler(db *gorm.DB) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		counts, err := dbpkg.CategoryCounts(db)
		if err != nil {
			log.Printf("category counts: %v", err)
			errResponse(ctx, fasthttp.StatusInternalServerError, "failed to count categories")
			return
		}
		jsonResponse(ctx, map[string]any{"categories": counts})
	}
}

// BaselinePatternsHandler returns a venue's baseline traffic profile grouped
// by day-of-week and hour-of-day.
func BaselinePatternsHandler(db *gorm.DB) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		id, ok := pathID(ctx, "id")
		if !ok {
			errResponse(ctx, fasthttp.StatusBadRequest, "invalid venue id")
			return
		}
		patterns, err := dbpkg.BaselinePatterns(db, id)
		if err != nil {
			log.Printf("baseline patterns for venue %d: %v", id, err)
			errResponse(ctx, fasthttp.StatusInternalServerError, "failed to load baseline patterns")
			return
		}
		jsonResponse(ctx, map[string]any{"venue_id": id, "patterns": patterns})
	}
}

// VenueMeasurementsHandler returns a venue's latest traffic samples.
func VenueMeasurementsHandler(db *gorm.DB) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		id, ok := pathID(ctx, "id")
		if !ok {
			errResponse(ctx, fasthttp.StatusBadRequest, "invalid venue id")
			return
		}
		limit := queryInt(ctx, "limit", 100)
		ms, err := dbpkg.RecentMeasurements(db, id, limit)
		if err != nil {
			log.Printf("measurements for venue %d: %v", id, err)
			errResponse(ctx, fasthttp.StatusInternalServerError, "failed to load measurements")
			return
		}
		jsonResponse(ctx, map[string]any{"venue_id": id, "measurements": ms, "count": len(ms)})
	}
}

// EventsByDateHandler returns events in a [from, to] date range, defaulting
// to the coming week.
func EventsByDateHandler(db *gorm.DB) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		now := time.Now()
		from := queryDate(ctx, "from", now)
		to := queryDate(ctx, "to", now.AddDate(0, 0, 7))
		events, err := dbpkg.EventsByDateRange(db, from, to)
		if err != nil {
			log.Printf("events by date: %v", err)
			errResponse(ctx, fasthttp.StatusInternalServerError, "failed to list events")
			return
		}
		jsonResponse(ctx, map[string]any{"events": events, "count": len(events)})
	}
}

func pathID(ctx *fasthttp.RequestCtx, name string) (uint, bool) {
	raw, _ := ctx.UserValue(name).(string)
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

func queryInt(ctx *fasthttp.RequestCtx, name string, def int) int {
	raw := string(ctx.QueryArgs().Peek(name))
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return def
	}
	return n
}

func queryDate(ctx *fasthttp.RequestCtx, name string, def time.Time) time.Time {
	raw := string(ctx.QueryArgs().Peek(name))
	if raw == "" {
		return def
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return def
	}
	return t
}
