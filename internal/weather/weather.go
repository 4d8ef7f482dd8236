// Package weather fetches current conditions and the air-quality index
// from OpenWeatherMap for resolved coordinates.
package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/sony/gobreaker"

	"github.com/vashkevichs/citypulse/internal/upstream"
)

// Conditions is the normalized current-weather view. Fields are nil when
// the provider response omits them.
type Conditions struct {
	TemperatureC *float64 `json:"temperatureC"`
	Description  *string  `json:"description"`
}

// Client talks to the OpenWeatherMap current-weather and air-pollution
// endpoints. The two calls are independent: current conditions are
// mandatory for an aggregated response, air quality is best-effort.
type Client struct {
	client     *http.Client
	apiKey     string
	currentURL string
	airURL     string
	cbCurrent  *gobreaker.CircuitBreaker
	cbAir      *gobreaker.CircuitBreaker
}

// NewClient creates a Client.
func NewClient(client *http.Client, apiKey string) *Client {
	return &Client{
		client:     client,
		apiKey:     apiKey,
		currentURL: "https://api.openweathermap.org/data/2.5/weather",
		airURL:     "https://api.openweathermap.org/data/2.5/air_pollution",
		cbCurrent:  upstream.NewBreaker("openweather-current"),
		cbAir:      upstream.NewBreaker("openweather-air"),
	}
}

// Current fetches current conditions for the coordinates.
func (c *Client) Current(ctx context.Context, lat, lon float64) (Conditions, error) {
	if c.apiKey == "" {
		return Conditions{}, fmt.Errorf("openweather api key is not configured")
	}

	buildRequest := func() (*http.Request, error) {
		values := url.Values{}
		values.Set("lat", fmt.Sprintf("%f", lat))
		values.Set("lon", fmt.Sprintf("%f", lon))
		values.Set("units", "metric")
		values.Set("appid", c.apiKey)

		u := fmt.Sprintf("%s?%s", c.currentURL, values.Encode())
		return http.NewRequest(http.MethodGet, u, nil)
	}

	resp, err := upstream.Do(ctx, c.client, c.cbCurrent, "weather", buildRequest)
	if err != nil {
		return Conditions{}, err
	}
	defer resp.Body.Close()

	var payload struct {
		Main struct {
			Temp *float64 `json:"temp"`
		} `json:"main"`
		Weather []struct {
			Description string `json:"description"`
		} `json:"weather"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return Conditions{}, fmt.Errorf("decoding weather response: %w", err)
	}

	cond := Conditions{TemperatureC: payload.Main.Temp}
	if len(payload.Weather) > 0 && payload.Weather[0].Description != "" {
		cond.Description = &payload.Weather[0].Description
	}
	return cond, nil
}

// AirQuality fetches the 1..5 air-quality index for the coordinates.
func (c *Client) AirQuality(ctx context.Context, lat, lon float64) (int, error) {
	if c.apiKey == "" {
		return 0, fmt.Errorf("openweather api key is not configured")
	}

	buildRequest := func() (*http.Request, error) {
		values := url.Values{}
		values.Set("lat", fmt.Sprintf("%f", lat))
		values.Set("lon", fmt.Sprintf("%f", lon))
		values.Set("appid", c.apiKey)

		u := fmt.Sprintf("%s?%s", c.airURL, values.Encode())
		return http.NewRequest(http.MethodGet, u, nil)
	}

	resp, err := upstream.Do(ctx, c.client, c.cbAir, "air-quality", buildRequest)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	var payload struct {
		List []struct {
			Main struct {
				AQI int `json:"aqi"`
			} `json:"main"`
		} `json:"list"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return 0, fmt.Errorf("decoding air quality response: %w", err)
	}
	if len(payload.List) == 0 {
		return 0, fmt.Errorf("empty air quality response")
	}

	return payload.List[0].Main.AQI, nil
}
