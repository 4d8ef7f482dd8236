package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/kelvins/geocoder"
	"github.com/sony/gobreaker"

	"github.com/vashkevichs/citypulse/internal/place"
	"github.com/vashkevichs/citypulse/internal/upstream"
)

// RegionProvider converts coordinates into administrative-region context.
// Region lookups are best-effort enrichment; callers treat failures as soft.
type RegionProvider interface {
	Lookup(ctx context.Context, lat, lon float64) (place.RegionInfo, error)
}

// OpenWeatherReverse resolves regions via the OpenWeatherMap reverse
// geocoding API.
type OpenWeatherReverse struct {
	client  *http.Client
	apiKey  string
	baseURL string
	circuit *gobreaker.CircuitBreaker
}

// NewOpenWeatherReverse creates the default region provider.
func NewOpenWeatherReverse(client *http.Client, apiKey string) *OpenWeatherReverse {
	return &OpenWeatherReverse{
		client:  client,
		apiKey:  apiKey,
		baseURL: "https://api.openweathermap.org/geo/1.0/reverse",
		circuit: upstream.NewBreaker("reverse-geocode"),
	}
}

func (p *OpenWeatherReverse) Lookup(ctx context.Context, lat, lon float64) (place.RegionInfo, error) {
	if p.apiKey == "" {
		return place.RegionInfo{}, fmt.Errorf("geocoding api key is not configured")
	}

	buildRequest := func() (*http.Request, error) {
		values := url.Values{}
		values.Set("lat", fmt.Sprintf("%f", lat))
		values.Set("lon", fmt.Sprintf("%f", lon))
		values.Set("limit", "1")
		values.Set("appid", p.apiKey)

		u := fmt.Sprintf("%s?%s", p.baseURL, values.Encode())
		return http.NewRequest(http.MethodGet, u, nil)
	}

	resp, err := upstream.Do(ctx, p.client, p.circuit, "reverse-geocoding", buildRequest)
	if err != nil {
		return place.RegionInfo{}, err
	}
	defer resp.Body.Close()

	var payload []struct {
		Name    string `json:"name"`
		Country string `json:"country"`
		State   string `json:"state"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return place.RegionInfo{}, fmt.Errorf("decoding reverse geocoding response: %w", err)
	}
	if len(payload) == 0 {
		return place.RegionInfo{}, fmt.Errorf("no region found for %.3f,%.3f", lat, lon)
	}

	first := payload[0]
	info := place.RegionInfo{}
	if first.Name != "" {
		info.City = &first.Name
	}
	if first.Country != "" {
		info.Country = &first.Country
	}
	if first.State != "" {
		info.Region = &first.State
		if abbr, ok := place.StateAbbreviation(first.State); ok && strings.EqualFold(first.Country, "US") {
			info.RegionCode = &abbr
		}
	}

	parts := make([]string, 0, 3)
	for _, s := range []string{first.Name, first.State, first.Country} {
		if s != "" {
			parts = append(parts, s)
		}
	}
	if len(parts) > 0 {
		display := strings.Join(parts, ", ")
		info.DisplayName = &display
	}

	return info, nil
}

// GoogleReverse resolves regions through the Google Maps geocoding API.
// Used instead of OpenWeatherReverse when a Google API key is configured;
// it additionally yields county-level detail and a formatted address.
type GoogleReverse struct{}

// NewGoogleReverse configures the package-global kelvins/geocoder key and
// returns the provider.
func NewGoogleReverse(apiKey string) *GoogleReverse {
	geocoder.ApiKey = apiKey
	return &GoogleReverse{}
}

func (p *GoogleReverse) Lookup(ctx context.Context, lat, lon float64) (place.RegionInfo, error) {
	addresses, err := geocoder.GeocodingReverse(geocoder.Location{Latitude: lat, Longitude: lon})
	if err != nil {
		return place.RegionInfo{}, fmt.Errorf("google reverse geocoding: %w", err)
	}
	if len(addresses) == 0 {
		return place.RegionInfo{}, fmt.Errorf("no address found for %.3f,%.3f", lat, lon)
	}

	addr := addresses[0]
	info := place.RegionInfo{}
	if addr.City != "" {
		info.City = &addr.City
	}
	if addr.State != "" {
		info.Region = &addr.State
		if abbr, ok := place.StateAbbreviation(addr.State); ok {
			info.RegionCode = &abbr
		}
	}
	if addr.County != "" {
		info.County = &addr.County
	}
	if addr.Country != "" {
		info.Country = &addr.Country
	}
	if addr.FormattedAddress != "" {
		info.DisplayName = &addr.FormattedAddress
	}

	return info, nil
}
