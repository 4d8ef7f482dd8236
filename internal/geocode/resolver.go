// Package geocode resolves free-text place queries to ranked candidates and
// coordinates to administrative-region context.
package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/sony/gobreaker"

	"github.com/vashkevichs/citypulse/internal/place"
	"github.com/vashkevichs/citypulse/internal/upstream"
)

// candidateLimit caps how many candidates we request from the provider.
const candidateLimit = 5

// Resolver turns a free-text query into ranked place candidates using the
// OpenWeatherMap geocoding API.
type Resolver struct {
	client  *http.Client
	apiKey  string
	baseURL string
	circuit *gobreaker.CircuitBreaker
}

// NewResolver creates a Resolver talking to the OpenWeatherMap geocoding API.
func NewResolver(client *http.Client, apiKey string) *Resolver {
	return &Resolver{
		client:  client,
		apiKey:  apiKey,
		baseURL: "https://api.openweathermap.org/geo/1.0/direct",
		circuit: upstream.NewBreaker("geocode"),
	}
}

// Resolve returns up to candidateLimit candidates for the query, preserving
// provider rank order. Candidates missing a name, country, or coordinate
// pair are filtered out.
func (r *Resolver) Resolve(ctx context.Context, query string) ([]place.Candidate, error) {
	if r.apiKey == "" {
		return nil, fmt.Errorf("geocoding api key is not configured")
	}

	buildRequest := func() (*http.Request, error) {
		values := url.Values{}
		values.Set("q", query)
		values.Set("limit", fmt.Sprintf("%d", candidateLimit))
		values.Set("appid", r.apiKey)

		u := fmt.Sprintf("%s?%s", r.baseURL, values.Encode())
		return http.NewRequest(http.MethodGet, u, nil)
	}

	resp, err := upstream.Do(ctx, r.client, r.circuit, "geocoding", buildRequest)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var payload []struct {
		Name    string   `json:"name"`
		Country string   `json:"country"`
		State   string   `json:"state"`
		Lat     *float64 `json:"lat"`
		Lon     *float64 `json:"lon"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decoding geocoding response: %w", err)
	}

	candidates := make([]place.Candidate, 0, len(payload))
	for _, p := range payload {
		if p.Name == "" || p.Country == "" || p.Lat == nil || p.Lon == nil {
			continue
		}
		candidates = append(candidates, place.Candidate{
			Name:      p.Name,
			Country:   p.Country,
			State:     p.State,
			Latitude:  *p.Lat,
			Longitude: *p.Lon,
		})
	}

	return candidates, nil
}
