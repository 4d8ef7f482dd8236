package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	s, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	require.NoError(t, s.EnsureSchema(context.Background()))
	return s
}

func TestRecordSearchUpsert(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	base := time.Date(2025, 8, 1, 10, 0, 0, 0, time.UTC)
	timeNow = func() time.Time { return base }
	t.Cleanup(func() { timeNow = time.Now })

	require.NoError(t, s.RecordSearch(ctx, "Seoul", "KR"))

	// Same canonical place, different casing and whitespace.
	timeNow = func() time.Time { return base.Add(time.Minute) }
	require.NoError(t, s.RecordSearch(ctx, " seoul  ", "kr"))

	records, err := s.ListRecent(ctx)
	require.NoError(t, err)
	require.Len(t, records, 1, "same place must never produce two rows")

	r := records[0]
	assert.Equal(t, "seoul|kr", r.IdentityKey)
	assert.Equal(t, " seoul  ", r.Name, "display fields follow the latest search")
	assert.True(t, r.CreatedAt.Equal(base), "createdAt is stable across upserts")
	assert.True(t, r.UpdatedAt.After(r.CreatedAt), "updatedAt strictly increases")
}

func TestListRecentOrderAndCap(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	base := time.Date(2025, 8, 1, 10, 0, 0, 0, time.UTC)
	names := []string{"Paris", "Rome", "Oslo", "Lima", "Cairo", "Tokyo", "Seoul", "Quito", "Hanoi", "Accra", "Dakar", "Sofia"}
	for i, name := range names {
		i, name := i, name
		timeNow = func() time.Time { return base.Add(time.Duration(i) * time.Minute) }
		require.NoError(t, s.RecordSearch(ctx, name, "XX"))
	}
	t.Cleanup(func() { timeNow = time.Now })

	records, err := s.ListRecent(ctx)
	require.NoError(t, err)
	require.Len(t, records, 10)
	assert.Equal(t, "Sofia", records[0].Name, "newest first")
	assert.Equal(t, "Oslo", records[9].Name)
}

func TestListRecentBatchedFavoriteFlags(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.RecordSearch(ctx, "Seoul", "KR"))
	require.NoError(t, s.RecordSearch(ctx, "Paris", "FR"))

	_, fav, err := s.ToggleFavorite(ctx, "Seoul", "KR")
	require.NoError(t, err)
	require.True(t, fav)

	records, err := s.ListRecent(ctx)
	require.NoError(t, err)
	require.Len(t, records, 2)

	byName := map[string]bool{}
	for _, r := range records {
		byName[r.Name] = r.IsFavorite
	}
	assert.True(t, byName["Seoul"])
	assert.False(t, byName["Paris"])
}

func TestToggleFavoriteAlternates(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	key, fav, err := s.ToggleFavorite(ctx, "Seoul", "KR")
	require.NoError(t, err)
	assert.Equal(t, "seoul|kr", key)
	assert.True(t, fav)

	_, fav, err = s.ToggleFavorite(ctx, "Seoul", "KR")
	require.NoError(t, err)
	assert.False(t, fav)

	_, fav, err = s.ToggleFavorite(ctx, "Seoul", "KR")
	require.NoError(t, err)
	assert.True(t, fav)
}

func TestFavoritesIndependentOfHistory(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	// Favorited without ever appearing in history.
	_, fav, err := s.ToggleFavorite(ctx, "Reykjavik", "IS")
	require.NoError(t, err)
	require.True(t, fav)

	require.NoError(t, s.RecordSearch(ctx, "Seoul", "KR"))
	require.NoError(t, s.ClearRecent(ctx))

	records, err := s.ListRecent(ctx)
	require.NoError(t, err)
	assert.Empty(t, records)

	favorites, err := s.ListFavorites(ctx)
	require.NoError(t, err)
	require.Len(t, favorites, 1)
	assert.Equal(t, "Reykjavik", favorites[0].Name)
}

func TestListFavoritesNewestFirst(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	base := time.Date(2025, 8, 1, 10, 0, 0, 0, time.UTC)
	for i, name := range []string{"Paris", "Rome", "Oslo"} {
		i, name := i, name
		timeNow = func() time.Time { return base.Add(time.Duration(i) * time.Minute) }
		_, _, err := s.ToggleFavorite(ctx, name, "XX")
		require.NoError(t, err)
	}
	t.Cleanup(func() { timeNow = time.Now })

	favorites, err := s.ListFavorites(ctx)
	require.NoError(t, err)
	require.Len(t, favorites, 3)
	assert.Equal(t, "Oslo", favorites[0].Name)
	assert.Equal(t, "Paris", favorites[2].Name)
}

func TestIsFavorite(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	fav, err := s.IsFavorite(ctx, "seoul|kr")
	require.NoError(t, err)
	assert.False(t, fav)

	_, _, err = s.ToggleFavorite(ctx, "Seoul", "KR")
	require.NoError(t, err)

	fav, err = s.IsFavorite(ctx, "seoul|kr")
	require.NoError(t, err)
	assert.True(t, fav)
}
