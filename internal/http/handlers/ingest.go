package handlers

import (
	"encoding/json"
	"log"
	"strconv"
	"time"

	"github.com/valyala/fasthttp"
	"gorm.io/gorm"

	dbpkg "trafficpulse/internal/db"
)

// IngestEvent is one scraped event as posted by the external scraper.
type IngestEvent struct {
	EventName  string   `json:"event_name"`
	VenueName  string   `json:"venue_name"`
	EventDate  string   `json:"event_date"` // 2006-01-02
	EventTime  *string  `json:"event_time,omitempty"`
	EndDate    *string  `json:"end_date,omitempty"`
	EndTime    *string  `json:"end_time,omitempty"`
	IsMultiDay bool     `json:"is_multi_day,omitempty"`
	Category   string   `json:"category,omitempty"`
	Cost       string   `json:"cost,omitempty"`
	Sponsor    string   `json:"sponsor,omitempty"`
	Contact    string   `json:"contact,omitempty"`
	SourceURL  string   `json:"source_url,omitempty"`
	Latitude   *float64 `json:"latitude,omitempty"`
	Longitude  *float64 `json:"longitude,omitempty"`
	Address    string   `json:"address,omitempty"`
}

type ingestRequest struct {
	Events []IngestEvent `json:"events"`
}

// IngestHandler accepts scraped event batches and upserts them. Events with
// coordinates also upsert their venue and are linked to it. Invalid items
// are skipped and counted, not fatal for the batch.
func IngestHandler(db *gorm.DB) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		var payload ingestRequest
		if err := json.Unmarshal(ctx.PostBody(), &payload); err != nil {
			errResponse(ctx, fasthttp.StatusBadRequest, "invalid JSON body")
			return
		}
		if len(payload.Events) == 0 {
			errResponse(ctx, fasthttp.StatusBadRequest, "no events provided")
			return
		}

		records := make([]dbpkg.Event, 0, len(payload.Events))
		skipped := 0

		for _, ev := range payload.Events {
			if ev.EventName == "" || ev.EventDate == "" {
				skipped++
				continue
			}
			startDate, err := time.Parse("2006-01-02", ev.EventDate)
			if err != nil {
				skipped++
				continue
			}

			rec := dbpkg.Event{
				Name:       ev.EventName,
				StartDate:  startDate,
				VenueName:  ev.VenueName,
				StartTime:  ev.EventTime,
				EndTime:    ev.EndTime,
				IsMultiDay: ev.IsMultiDay,
				Category:   ev.Category,
				Cost:       ev.Cost,
				Sponsor:    ev.Sponsor,
				Contact:    ev.Contact,
				SourceURL:  ev.SourceURL,
			}
			if ev.EndDate != nil {
				if end, err := time.Parse("2006-01-02", *ev.EndDate); err == nil {
					rec.EndDate = &end
				}
			}

			if ev.VenueName != "" && ev.Latitude != nil && ev.Longitude != nil {
				venueID, err := dbpkg.UpsertVenue(db, &dbpkg.Venue{
					Name:      ev.VenueName,
					Address:   ev.Address,
					Latitude:  *ev.Latitude,
					Longitude: *ev.Longitude,
				})
				if err != nil {
					log.Printf("ingest: upserting venue %q: %v", ev.VenueName, err)
				} else {
					rec.VenueID = &venueID
					if venuesUpsertedTotal != nil {
						venuesUpsertedTotal.Inc()
					}
				}
			}

			records = append(records, rec)
		}

		if len(records) == 0 {
			errResponse(ctx, fasthttp.StatusBadRequest, "no valid events after validation")
			return
		}

		count, err := dbpkg.UpsertEvents(db, records)
		if err != nil {
			log.Printf("ingest: upserting events: %v", err)
			errResponse(ctx, fasthttp.StatusInternalServerError, "failed to persist events")
			return
		}
		if eventsIngestedTotal != nil {
			eventsIngestedTotal.Add(float64(count))
		}

		ctx.SetStatusCode(fasthttp.StatusAccepted)
		ctx.SetContentType("application/json")
		ctx.SetBodyString(`{"status":"accepted","count":` + strconv.Itoa(count) +
			`,"skipped":` + strconv.Itoa(skipped) + `}`)
	}
}
