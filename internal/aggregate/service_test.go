package aggregate

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vashkevichs/citypulse/internal/news"
	"github.com/vashkevichs/citypulse/internal/place"
	"github.com/vashkevichs/citypulse/internal/weather"
)

type fakeGeocoder struct {
	calls      int
	candidates []place.Candidate
	err        error
}

func (f *fakeGeocoder) Resolve(ctx context.Context, query string) ([]place.Candidate, error) {
	f.calls++
	return f.candidates, f.err
}

type fakeRegions struct {
	calls int
	info  place.RegionInfo
	err   error
}

func (f *fakeRegions) Lookup(ctx context.Context, lat, lon float64) (place.RegionInfo, error) {
	f.calls++
	return f.info, f.err
}

type fakeWeather struct {
	currentCalls int
	airCalls     int
	cond         weather.Conditions
	condErr      error
	aqi          int
	aqiErr       error
}

func (f *fakeWeather) Current(ctx context.Context, lat, lon float64) (weather.Conditions, error) {
	f.currentCalls++
	return f.cond, f.condErr
}

func (f *fakeWeather) AirQuality(ctx context.Context, lat, lon float64) (int, error) {
	f.airCalls++
	return f.aqi, f.aqiErr
}

type fakeHeadlines struct {
	calls int
	items []news.Headline
	err   error
}

func (f *fakeHeadlines) Fetch(ctx context.Context, name, country string) ([]news.Headline, error) {
	f.calls++
	return f.items, f.err
}

type fakeStore struct {
	recorded  []string
	recordErr error
	favorites map[string]bool
}

func (f *fakeStore) RecordSearch(ctx context.Context, name, country string) error {
	if f.recordErr != nil {
		return f.recordErr
	}
	f.recorded = append(f.recorded, place.Key(name, country))
	return nil
}

func (f *fakeStore) IsFavorite(ctx context.Context, key string) (bool, error) {
	return f.favorites[key], nil
}

type deps struct {
	geocoder  *fakeGeocoder
	regions   *fakeRegions
	weather   *fakeWeather
	headlines *fakeHeadlines
	store     *fakeStore
}

func newTestService(d deps) (*Service, deps) {
	if d.geocoder == nil {
		d.geocoder = &fakeGeocoder{}
	}
	if d.regions == nil {
		d.regions = &fakeRegions{}
	}
	if d.weather == nil {
		temp := 21.5
		d.weather = &fakeWeather{cond: weather.Conditions{TemperatureC: &temp}, aqi: 2}
	}
	if d.headlines == nil {
		d.headlines = &fakeHeadlines{}
	}
	if d.store == nil {
		d.store = &fakeStore{}
	}
	svc := NewService(d.geocoder, d.regions, d.weather, d.headlines, d.store, time.Second)
	return svc, d
}

func seoul() place.Candidate {
	return place.Candidate{Name: "Seoul", Country: "KR", Latitude: 37.57, Longitude: 126.98}
}

func TestResolveEmptyQuery(t *testing.T) {
	svc, d := newTestService(deps{})

	_, err := svc.Resolve(context.Background(), "   ")
	assert.ErrorIs(t, err, ErrEmptyQuery)
	assert.Zero(t, d.geocoder.calls, "validation happens before any network call")
}

func TestResolveNoMatch(t *testing.T) {
	svc, d := newTestService(deps{geocoder: &fakeGeocoder{}})

	_, err := svc.Resolve(context.Background(), "Xyzzy")
	assert.ErrorIs(t, err, ErrNoMatch)
	assert.Zero(t, d.weather.currentCalls, "no downstream fetch after a failed resolution")
}

func TestResolveSingleCandidateAggregates(t *testing.T) {
	svc, d := newTestService(deps{
		geocoder: &fakeGeocoder{candidates: []place.Candidate{seoul()}},
	})

	res, err := svc.Resolve(context.Background(), "Seoul")
	require.NoError(t, err)
	require.False(t, res.Ambiguous())

	result := res.Result
	assert.Equal(t, "Seoul", result.Name)
	assert.Equal(t, "seoul|kr", result.IdentityKey)
	require.NotNil(t, result.Weather.TemperatureC)
	assert.InDelta(t, 21.5, *result.Weather.TemperatureC, 0.001)
	require.NotNil(t, result.AQI)
	assert.Equal(t, 2, *result.AQI)
	require.NotNil(t, result.AQILabel)
	assert.Equal(t, "Fair", *result.AQILabel)

	assert.Equal(t, []string{"seoul|kr"}, d.store.recorded)
}

func TestResolveMultipleCandidatesHalts(t *testing.T) {
	madison := func(state string) place.Candidate {
		return place.Candidate{Name: "Madison", Country: "US", State: state, Latitude: 1, Longitude: 2}
	}
	svc, d := newTestService(deps{
		geocoder: &fakeGeocoder{candidates: []place.Candidate{madison("Wisconsin"), madison("Alabama")}},
	})

	res, err := svc.Resolve(context.Background(), "Madison")
	require.NoError(t, err)
	require.True(t, res.Ambiguous())
	require.Len(t, res.Candidates, 2)
	assert.Equal(t, "Madison, WI", res.Candidates[0].Label)
	assert.Equal(t, "Madison, AL", res.Candidates[1].Label)

	assert.Zero(t, d.weather.currentCalls, "no weather call before disambiguation")
	assert.Zero(t, d.headlines.calls, "no headline call before disambiguation")
	assert.Empty(t, d.store.recorded, "ambiguous queries are not recorded")
}

func TestWeatherFailureIsFatal(t *testing.T) {
	svc, d := newTestService(deps{
		geocoder: &fakeGeocoder{candidates: []place.Candidate{seoul()}},
		weather:  &fakeWeather{condErr: errors.New("provider down")},
	})

	_, err := svc.Resolve(context.Background(), "Seoul")
	require.Error(t, err)
	assert.Empty(t, d.store.recorded, "fatal failures record no history")
}

func TestSoftFailuresDegrade(t *testing.T) {
	temp := 10.0
	svc, _ := newTestService(deps{
		geocoder:  &fakeGeocoder{candidates: []place.Candidate{seoul()}},
		weather:   &fakeWeather{cond: weather.Conditions{TemperatureC: &temp}, aqiErr: errors.New("aqi down")},
		regions:   &fakeRegions{err: errors.New("region down")},
		headlines: &fakeHeadlines{err: errors.New("feed down")},
	})

	res, err := svc.Resolve(context.Background(), "Seoul")
	require.NoError(t, err, "soft failures never fail the request")

	result := res.Result
	assert.Nil(t, result.AQI)
	assert.Nil(t, result.AQILabel)
	assert.Nil(t, result.Region.Region)
	assert.NotNil(t, result.Headlines)
	assert.Empty(t, result.Headlines)
}

func TestAQIOutOfRangeDegradesToNull(t *testing.T) {
	for _, index := range []int{0, 6, 9} {
		svc, _ := newTestService(deps{
			geocoder: &fakeGeocoder{candidates: []place.Candidate{seoul()}},
			weather:  &fakeWeather{cond: weather.Conditions{}, aqi: index},
		})

		res, err := svc.Resolve(context.Background(), "Seoul")
		require.NoError(t, err)
		assert.Nil(t, res.Result.AQI, "index %d", index)
		assert.Nil(t, res.Result.AQILabel, "index %d", index)
	}
}

func TestResolveAtCarriesIdentity(t *testing.T) {
	svc, d := newTestService(deps{})

	result, err := svc.ResolveAt(context.Background(), 37.57, 126.98, "Seoul", "KR")
	require.NoError(t, err)
	assert.Equal(t, "seoul|kr", result.IdentityKey)
	assert.Equal(t, []string{"seoul|kr"}, d.store.recorded)
}

func TestResolveAtBackfillsFromRegion(t *testing.T) {
	city, country := "Seoul", "KR"
	svc, d := newTestService(deps{
		regions: &fakeRegions{info: place.RegionInfo{City: &city, Country: &country}},
	})

	result, err := svc.ResolveAt(context.Background(), 37.57, 126.98, "", "")
	require.NoError(t, err)
	assert.Equal(t, "Seoul", result.Name)
	assert.Equal(t, "seoul|kr", result.IdentityKey)
	assert.Equal(t, []string{"seoul|kr"}, d.store.recorded)
}

func TestResolveAtUnknownIdentitySkipsHistory(t *testing.T) {
	svc, d := newTestService(deps{
		regions: &fakeRegions{err: errors.New("region down")},
	})

	result, err := svc.ResolveAt(context.Background(), 1.0, 2.0, "", "")
	require.NoError(t, err)
	assert.False(t, result.IsFavorite)
	assert.Empty(t, d.store.recorded)
	assert.Empty(t, result.Label, "no label without an identity")
	assert.Empty(t, result.IdentityKey, "no identity key without an identity")
}

func TestPersistenceFailureIsAbsorbed(t *testing.T) {
	svc, _ := newTestService(deps{
		geocoder: &fakeGeocoder{candidates: []place.Candidate{seoul()}},
		store:    &fakeStore{recordErr: errors.New("disk full")},
	})

	res, err := svc.Resolve(context.Background(), "Seoul")
	require.NoError(t, err, "a persistence failure does not fail the response")
	assert.NotNil(t, res.Result)
}

func TestFavoriteFlagComputed(t *testing.T) {
	svc, _ := newTestService(deps{
		geocoder: &fakeGeocoder{candidates: []place.Candidate{seoul()}},
		store:    &fakeStore{favorites: map[string]bool{"seoul|kr": true}},
	})

	res, err := svc.Resolve(context.Background(), "Seoul")
	require.NoError(t, err)
	assert.True(t, res.Result.IsFavorite)
}
