// Package geocode wraps the Google Geocoding API for resolving venue
// addresses to coordinates. Consumed as an opaque collaborator: only the
// fields the venue store needs are read from the response.
package geocode

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

const defaultBaseURL = "https://maps.googleapis.com/maps/api/geocode/json"

// ErrNotFound means the geocoder returned no results for the query.
var ErrNotFound = errors.New("geocode: no results")

// Location is a resolved venue position.
type Location struct {
	Latitude         float64
	Longitude        float64
	FormattedAddress string
	PlaceID          string
}

// Client calls the geocoding endpoint.
type Client struct {
	apiKey  string
	httpc   *http.Client
	baseURL string
}

// NewClient builds a geocoding client with a 10 second timeout.
func NewClient(apiKey string) *Client {
	tr := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		DialContext:         (&net.Dialer{Timeout: 5 * time.Second, KeepAlive: 60 * time.Second}).DialContext,
		MaxIdleConns:        100,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 5 * time.Second,
	}
	return &Client{
		apiKey:  apiKey,
		httpc:   &http.Client{Timeout: 10 * time.Second, Transport: tr},
		baseURL: defaultBaseURL,
	}
}

// WithBaseURL overrides the endpoint (used in tests).
func (c *Client) WithBaseURL(u string) *Client {
	c.baseURL = u
	return c
}

type geocodeResponse struct {
	Status  string `json:"status"`
	Results []struct {
		FormattedAddress string `json:"formatted_address"`
		PlaceID          string `json:"place_id"`
		Geometry         struct {
			Location struct {
				Lat float64 `json:"lat"`
				Lng float64 `json:"lng"`
			} `json:"location"`
		} `json:"geometry"`
	} `json:"results"`
}

// Lookup resolves a free-text query (venue name plus city) to a location.
func (c *Client) Lookup(ctx context.Context, query string) (*Location, error) {
	if c.apiKey == "" {
		return nil, errors.New("geocode: API key not configured")
	}

	q := url.Values{}
	q.Set("address", query)
	q.Set("key", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("geocode: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("geocode: unexpected status %d", resp.StatusCode)
	}

	var body geocodeResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("geocode: decode response: %w", err)
	}
	if body.Status != "OK" || len(body.Results) == 0 {
		return nil, ErrNotFound
	}

	r := body.Results[0]
	return &Location{
		Latitude:         r.Geometry.Location.Lat,
		Longitude:        r.Geometry.Location.Lng,
		FormattedAddress: r.FormattedAddress,
		PlaceID:          r.PlaceID,
	}, nil
}
