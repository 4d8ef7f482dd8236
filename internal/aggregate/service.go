// Package aggregate orchestrates place resolution and the multi-source
// fetch into one normalized response per query.
package aggregate

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/vashkevichs/citypulse/internal/news"
	"github.com/vashkevichs/citypulse/internal/place"
	"github.com/vashkevichs/citypulse/internal/weather"
)

var (
	// ErrEmptyQuery rejects blank queries before any external call.
	ErrEmptyQuery = errors.New("query must not be empty")
	// ErrNoMatch is returned when geocoding yields no valid candidate.
	ErrNoMatch = errors.New("no matching location")
)

// Geocoder resolves free text into ranked place candidates.
type Geocoder interface {
	Resolve(ctx context.Context, query string) ([]place.Candidate, error)
}

// RegionLookup enriches coordinates with administrative-region context.
type RegionLookup interface {
	Lookup(ctx context.Context, lat, lon float64) (place.RegionInfo, error)
}

// WeatherSource provides current conditions and the air-quality index.
type WeatherSource interface {
	Current(ctx context.Context, lat, lon float64) (weather.Conditions, error)
	AirQuality(ctx context.Context, lat, lon float64) (int, error)
}

// HeadlineSource provides recent headlines for a place.
type HeadlineSource interface {
	Fetch(ctx context.Context, name, country string) ([]news.Headline, error)
}

// SearchStore records history and answers favorite membership.
type SearchStore interface {
	RecordSearch(ctx context.Context, name, country string) error
	IsFavorite(ctx context.Context, key string) (bool, error)
}

// Result is the fully aggregated view for one resolved place.
type Result struct {
	Name        string             `json:"name"`
	Country     string             `json:"country"`
	State       string             `json:"state,omitempty"`
	Latitude    float64            `json:"latitude"`
	Longitude   float64            `json:"longitude"`
	Label       string             `json:"label,omitempty"`
	IdentityKey string             `json:"identityKey,omitempty"`
	Weather     weather.Conditions `json:"weather"`
	AQI         *int               `json:"aqi"`
	AQILabel    *string            `json:"aqiLabel"`
	Region      place.RegionInfo   `json:"region"`
	Headlines   []news.Headline    `json:"headlines"`
	IsFavorite  bool               `json:"isFavorite"`
}

// LabeledCandidate is one disambiguation choice.
type LabeledCandidate struct {
	place.Candidate
	Label string `json:"label"`
}

// Resolution is the outcome of a free-text query: either a list of
// candidates awaiting disambiguation, or a fully aggregated result.
type Resolution struct {
	Candidates []LabeledCandidate `json:"candidates,omitempty"`
	Result     *Result            `json:"result,omitempty"`
}

// Ambiguous reports whether the caller must pick a candidate.
func (r *Resolution) Ambiguous() bool { return r.Result == nil }

// Service composes the resolver, fetchers, and stores. Each request runs
// the state machine once: resolve, fetch, record, done — no retries.
type Service struct {
	geocoder  Geocoder
	regions   RegionLookup
	weather   WeatherSource
	headlines HeadlineSource
	store     SearchStore

	// callTimeout bounds each external call so one slow collaborator
	// cannot stall the whole response.
	callTimeout time.Duration
}

// NewService creates a Service.
func NewService(geocoder Geocoder, regions RegionLookup, weatherSrc WeatherSource, headlines HeadlineSource, store SearchStore, callTimeout time.Duration) *Service {
	if callTimeout <= 0 {
		callTimeout = 10 * time.Second
	}
	return &Service{
		geocoder:    geocoder,
		regions:     regions,
		weather:     weatherSrc,
		headlines:   headlines,
		store:       store,
		callTimeout: callTimeout,
	}
}

// Resolve handles a free-text query. Zero valid candidates fail with
// ErrNoMatch; exactly one candidate proceeds straight into aggregation;
// two or more halt with a disambiguation payload and no downstream fetch.
func (s *Service) Resolve(ctx context.Context, query string) (*Resolution, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}

	callCtx, cancel := context.WithTimeout(ctx, s.callTimeout)
	defer cancel()

	candidates, err := s.geocoder.Resolve(callCtx, query)
	if err != nil {
		return nil, fmt.Errorf("resolving %q: %w", query, err)
	}

	switch len(candidates) {
	case 0:
		return nil, ErrNoMatch
	case 1:
		result, err := s.aggregate(ctx, candidates[0])
		if err != nil {
			return nil, err
		}
		return &Resolution{Result: result}, nil
	default:
		labeled := make([]LabeledCandidate, len(candidates))
		for i, c := range candidates {
			labeled[i] = LabeledCandidate{Candidate: c, Label: c.Label()}
		}
		return &Resolution{Candidates: labeled}, nil
	}
}

// ResolveAt aggregates for explicit coordinates, used once a caller has
// picked a disambiguated candidate. Name and country are carried over from
// the chosen candidate when the caller has them; otherwise they are filled
// from the region lookup.
func (s *Service) ResolveAt(ctx context.Context, lat, lon float64, name, country string) (*Result, error) {
	return s.aggregate(ctx, place.Candidate{
		Name:      strings.TrimSpace(name),
		Country:   strings.TrimSpace(country),
		Latitude:  lat,
		Longitude: lon,
	})
}

// aggregate fans out to every source for one resolved place. Weather is
// mandatory; air quality, region, and headlines are independent
// enrichments fetched concurrently, each degrading on its own.
func (s *Service) aggregate(ctx context.Context, cand place.Candidate) (*Result, error) {
	var (
		wg           sync.WaitGroup
		condOut      outcome[weather.Conditions]
		aqiOut       outcome[int]
		regionOut    outcome[place.RegionInfo]
		headlinesOut outcome[[]news.Headline]
	)

	wg.Add(4)
	go func() {
		defer wg.Done()
		callCtx, cancel := context.WithTimeout(ctx, s.callTimeout)
		defer cancel()
		cond, err := s.weather.Current(callCtx, cand.Latitude, cand.Longitude)
		condOut = fatalCall(cond, err)
	}()
	go func() {
		defer wg.Done()
		callCtx, cancel := context.WithTimeout(ctx, s.callTimeout)
		defer cancel()
		aqi, err := s.weather.AirQuality(callCtx, cand.Latitude, cand.Longitude)
		aqiOut = softCall(aqi, err)
	}()
	go func() {
		defer wg.Done()
		callCtx, cancel := context.WithTimeout(ctx, s.callTimeout)
		defer cancel()
		info, err := s.regions.Lookup(callCtx, cand.Latitude, cand.Longitude)
		regionOut = softCall(info, err)
	}()
	go func() {
		defer wg.Done()
		callCtx, cancel := context.WithTimeout(ctx, s.callTimeout)
		defer cancel()
		items, err := s.headlines.Fetch(callCtx, cand.Name, cand.Country)
		headlinesOut = softCall(items, err)
	}()
	wg.Wait()

	// Weather failure is fatal: no partial result, no history entry.
	if !condOut.ok() {
		return nil, fmt.Errorf("fetching weather: %w", condOut.err)
	}

	if !regionOut.ok() {
		log.Printf("region lookup degraded for %.3f,%.3f: %v", cand.Latitude, cand.Longitude, regionOut.err)
	}
	if !aqiOut.ok() {
		log.Printf("air quality degraded for %.3f,%.3f: %v", cand.Latitude, cand.Longitude, aqiOut.err)
	}
	if !headlinesOut.ok() {
		log.Printf("headlines degraded for %q: %v", cand.Name, headlinesOut.err)
	}

	cand = fillIdentity(cand, regionOut.value)

	result := &Result{
		Name:      cand.Name,
		Country:   cand.Country,
		State:     cand.State,
		Latitude:  cand.Latitude,
		Longitude: cand.Longitude,
		Weather:   condOut.value,
		Region:    regionOut.value,
		Headlines: headlinesOut.value,
	}
	if result.Headlines == nil {
		result.Headlines = []news.Headline{}
	}
	// The index is restricted to the 1..5 scale; anything else from the
	// provider degrades to null exactly like a failed call.
	if aqiOut.ok() {
		if label := weather.AQILabel(aqiOut.value); label != nil {
			aqi := aqiOut.value
			result.AQI = &aqi
			result.AQILabel = label
		}
	}

	// Without a name there is no identity: no label, no key, no history.
	// Persistence is an explicit step: a failure here is logged and
	// absorbed, the aggregated response is already complete.
	if cand.Name != "" {
		result.Label = cand.Label()
		result.IdentityKey = cand.Key()
		if err := s.store.RecordSearch(ctx, cand.Name, cand.Country); err != nil {
			log.Printf("recording search for %q failed: %v", cand.Name, err)
		}
		favorite, err := s.store.IsFavorite(ctx, cand.Key())
		if err != nil {
			log.Printf("favorite lookup for %q failed: %v", cand.Key(), err)
		}
		result.IsFavorite = favorite
	}

	return result, nil
}

// fillIdentity backfills a candidate's display identity from region
// context when the caller supplied only coordinates.
func fillIdentity(cand place.Candidate, info place.RegionInfo) place.Candidate {
	if cand.Name == "" && info.City != nil {
		cand.Name = *info.City
	}
	if cand.Country == "" && info.Country != nil {
		cand.Country = *info.Country
	}
	if cand.State == "" && info.Region != nil {
		cand.State = *info.Region
	}
	return cand
}
