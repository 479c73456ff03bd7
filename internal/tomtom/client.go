// Package tomtom wraps the TomTom traffic endpoints used by the collectors:
// flow-segment data at a point, and routing between two points with live
// traffic. Delay is always derived from the raw travel-time fields rather
// than the vendor's incident-based delay figure, which does not compare
// cleanly against baselines.
package tomtom

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"
)

const (
	defaultFlowURL    = "https://api.tomtom.com/traffic/services/4/flowSegmentData/absolute/10/json"
	defaultRoutingURL = "https://api.tomtom.com/routing/1"
)

var (
	// ErrNoFlowData means the flow response had no flowSegmentData key.
	// Callers skip the sample point; this is never fatal for a batch.
	ErrNoFlowData = errors.New("tomtom: no flow data for point")

	// ErrNoRoute means the routing response contained no routes.
	ErrNoRoute = errors.New("tomtom: no route found")
)

// Point is a latitude/longitude pair.
type Point struct {
	Lat float64
	Lon float64
}

// Measurement is a normalized traffic sample. Speeds are mph, the travel
// times are seconds, delay is minutes.
type Measurement struct {
	Time            time.Time
	TrafficLevel    string
	AvgSpeedMph     float64
	TypicalSpeedMph float64

	TravelTimeSeconds  int
	TypicalTimeSeconds int
	DelayMinutes       float64

	Origin      Point
	Destination Point

	DistanceMiles float64
	Confidence    float64

	DataSource string

	// Raw is the vendor response body verbatim, stored for forensic replay.
	Raw []byte
}

// Client calls the TomTom traffic APIs. It performs no retries; retry policy
// belongs to the scheduling layer around whole runs, not to individual
// HTTP calls.
type Client struct {
	apiKey     string
	httpc      *http.Client
	flowURL    string
	routingURL string
	now        func() time.Time
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURLs overrides the flow and routing endpoints (used in tests).
func WithBaseURLs(flowURL, routingURL string) Option {
	return func(c *Client) {
		c.flowURL = flowURL
		c.routingURL = routingURL
	}
}

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpc = hc }
}

// NewClient builds a Client with a 10 second request timeout.
func NewClient(apiKey string, opts ...Option) *Client {
	tr := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		DialContext:         (&net.Dialer{Timeout: 5 * time.Second, KeepAlive: 60 * time.Second}).DialContext,
		MaxIdleConns:        100,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 5 * time.Second,
	}
	c := &Client{
		apiKey:     apiKey,
		httpc:      &http.Client{Timeout: 10 * time.Second, Transport: tr},
		flowURL:    defaultFlowURL,
		routingURL: defaultRoutingURL,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ClassifyDelay maps a delay in minutes to a traffic level.
func ClassifyDelay(delayMinutes float64) string {
	switch {
	case delayMinutes < 0.5:
		return "light"
	case delayMinutes < 2:
		return "moderate"
	case delayMinutes < 5:
		return "heavy"
	default:
		return "severe"
	}
}

type flowResponse struct {
	FlowSegmentData *struct {
		CurrentSpeed       float64 `json:"currentSpeed"`
		FreeFlowSpeed      float64 `json:"freeFlowSpeed"`
		CurrentTravelTime  int     `json:"currentTravelTime"`
		FreeFlowTravelTime int     `json:"freeFlowTravelTime"`
		Confidence         float64 `json:"confidence"`
		Coordinates        struct {
			Coordinate []struct {
				Latitude  float64 `json:"latitude"`
				Longitude float64 `json:"longitude"`
			} `json:"coordinate"`
		} `json:"coordinates"`
	} `json:"flowSegmentData"`
}

// FlowAtPoint measures traffic on the road segment nearest the given point.
// Delay is the difference between current and free-flow travel time over the
// segment; distance comes from the segment endpoints when present, otherwise
// it is estimated from speed and travel time.
func (c *Client) FlowAtPoint(ctx context.Context, p Point, label string) (*Measurement, error) {
	if c.apiKey == "" {
		return nil, errors.New("tomtom: API key not configured")
	}

	q := url.Values{}
	q.Set("key", c.apiKey)
	q.Set("point", fmt.Sprintf("%f,%f", p.Lat, p.Lon))
	q.Set("unit", "MPH")

	body, err := c.get(ctx, c.flowURL+"?"+q.Encode())
	if err != nil {
		return nil, err
	}

	var resp flowResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("tomtom: decode flow response: %w", err)
	}
	if resp.FlowSegmentData == nil {
		return nil, ErrNoFlowData
	}
	flow := resp.FlowSegmentData

	delayMinutes := float64(flow.CurrentTravelTime-flow.FreeFlowTravelTime) / 60.0

	var distance float64
	if coords := flow.Coordinates.Coordinate; len(coords) >= 2 {
		start, end := coords[0], coords[len(coords)-1]
		distance = HaversineMiles(
			Point{Lat: start.Latitude, Lon: start.Longitude},
			Point{Lat: end.Latitude, Lon: end.Longitude},
		)
	} else if flow.CurrentSpeed > 0 {
		distance = float64(flow.CurrentTravelTime) / 3600.0 * flow.CurrentSpeed
	}

	return &Measurement{
		Time:               c.now(),
		TrafficLevel:       ClassifyDelay(delayMinutes),
		AvgSpeedMph:        round2(flow.CurrentSpeed),
		TypicalSpeedMph:    round2(flow.FreeFlowSpeed),
		TravelTimeSeconds:  flow.CurrentTravelTime,
		TypicalTimeSeconds: flow.FreeFlowTravelTime,
		DelayMinutes:       round2(delayMinutes),
		Origin:             p,
		Destination:        p,
		DistanceMiles:      round2(distance),
		Confidence:         flow.Confidence,
		DataSource:         "tomtom",
		Raw:                body,
	}, nil
}

type routeResponse struct {
	Routes []struct {
		Summary struct {
			LengthInMeters                 float64 `json:"lengthInMeters"`
			TravelTimeInSeconds            int     `json:"travelTimeInSeconds"`
			NoTrafficTravelTimeInSeconds   int     `json:"noTrafficTravelTimeInSeconds"`
			TrafficDelayInSeconds          int     `json:"trafficDelayInSeconds"`
			LiveTrafficIncidentsTravelTime int     `json:"liveTrafficIncidentsTravelTimeInSeconds"`
		} `json:"summary"`
	} `json:"routes"`
}

// Route measures traffic on the fastest live-traffic route between two
// points. The vendor's trafficDelayInSeconds only counts incidents, so delay
// is recomputed from travelTime minus noTrafficTravelTime, and speeds are
// derived from distance over those times.
func (c *Client) Route(ctx context.Context, origin, dest Point, label string) (*Measurement, error) {
	if c.apiKey == "" {
		return nil, errors.New("tomtom: API key not configured")
	}

	q := url.Values{}
	q.Set("key", c.apiKey)
	q.Set("traffic", "true")
	q.Set("travelMode", "car")
	q.Set("routeType", "fastest")
	q.Set("departAt", "now")

	endpoint := fmt.Sprintf("%s/calculateRoute/%f,%f:%f,%f/json?%s",
		c.routingURL, origin.Lat, origin.Lon, dest.Lat, dest.Lon, q.Encode())

	body, err := c.get(ctx, endpoint)
	if err != nil {
		return nil, err
	}

	var resp routeResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("tomtom: decode route response: %w", err)
	}
	if len(resp.Routes) == 0 {
		return nil, ErrNoRoute
	}
	summary := resp.Routes[0].Summary

	distanceMiles := summary.LengthInMeters * 0.000621371
	travelTime := summary.TravelTimeInSeconds
	noTrafficTime := summary.NoTrafficTravelTimeInSeconds
	if noTrafficTime == 0 {
		noTrafficTime = travelTime
	}

	var avgSpeed, typicalSpeed float64
	if travelTime > 0 {
		avgSpeed = distanceMiles / float64(travelTime) * 3600
	}
	if noTrafficTime > 0 {
		typicalSpeed = distanceMiles / float64(noTrafficTime) * 3600
	} else {
		typicalSpeed = avgSpeed
	}

	delayMinutes := float64(travelTime-noTrafficTime) / 60.0

	return &Measurement{
		Time:               c.now(),
		TrafficLevel:       ClassifyDelay(delayMinutes),
		AvgSpeedMph:        round2(avgSpeed),
		TypicalSpeedMph:    round2(typicalSpeed),
		TravelTimeSeconds:  travelTime,
		TypicalTimeSeconds: noTrafficTime,
		DelayMinutes:       round2(delayMinutes),
		Origin:             origin,
		Destination:        dest,
		DistanceMiles:      round2(distanceMiles),
		DataSource:         "tomtom",
		Raw:                body,
	}, nil
}

// Measure takes a flow measurement at the origin point and attaches the
// origin/destination route context. Origin and destination may be the same
// point for a point-measurement. When the flow segment yields no distance,
// the origin-to-destination great-circle distance is used instead.
func (c *Client) Measure(ctx context.Context, origin, dest Point, label string) (*Measurement, error) {
	m, err := c.FlowAtPoint(ctx, origin, label)
	if err != nil {
		return nil, err
	}
	m.Origin = origin
	m.Destination = dest
	if m.DistanceMiles == 0 && (origin != dest) {
		m.DistanceMiles = round2(HaversineMiles(origin, dest))
	}
	return m, nil
}

func (c *Client) get(ctx context.Context, endpoint string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("tomtom: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("tomtom: unexpected status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}
