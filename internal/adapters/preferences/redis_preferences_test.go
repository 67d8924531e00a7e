package preferences

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drnexus/medicaldashboard/backend/internal/domain/entities"
)

func setupRedisRepository(t *testing.T) (*miniredis.Miniredis, *RedisRepository) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return mr, NewRedisRepository(client).(*RedisRepository)
}

func TestRedisRepository_Theme(t *testing.T) {
	ctx := context.Background()
	mr, repo := setupRedisRepository(t)

	theme, err := repo.GetTheme(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, entities.ThemeLight, theme)

	require.NoError(t, repo.SetTheme(ctx, "a", entities.ThemeDark))
	stored, err := mr.Get("prefs:a:theme")
	require.NoError(t, err)
	assert.Equal(t, "dark", stored)

	theme, err = repo.GetTheme(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, entities.ThemeDark, theme)

	theme, err = repo.GetTheme(ctx, "b")
	require.NoError(t, err)
	assert.Equal(t, entities.ThemeLight, theme)
}

func TestRedisRepository_UnknownStoredThemeFallsBack(t *testing.T) {
	mr, repo := setupRedisRepository(t)
	require.NoError(t, mr.Set("prefs:a:theme", "sepia"))

	theme, err := repo.GetTheme(context.Background(), "a")
	require.NoError(t, err)
	assert.Equal(t, entities.ThemeLight, theme)
}

func TestRedisRepository_RecentSearches(t *testing.T) {
	ctx := context.Background()
	mr, repo := setupRedisRepository(t)

	recent, err := repo.RecentSearches(ctx, "a")
	require.NoError(t, err)
	assert.Empty(t, recent)

	t.Run("most recent first", func(t *testing.T) {
		_, err := repo.PushRecentSearch(ctx, "a", "mri")
		require.NoError(t, err)
		recent, err := repo.PushRecentSearch(ctx, "a", "stroke")
		require.NoError(t, err)
		assert.Equal(t, []string{"stroke", "mri"}, recent)
	})

	t.Run("duplicates move to the front", func(t *testing.T) {
		recent, err := repo.PushRecentSearch(ctx, "a", "mri")
		require.NoError(t, err)
		assert.Equal(t, []string{"mri", "stroke"}, recent)
	})

	t.Run("capped at five", func(t *testing.T) {
		for _, q := range []string{"aspirin", "cervical", "lumbar", "mri", "warfarin"} {
			_, err := repo.PushRecentSearch(ctx, "a", q)
			require.NoError(t, err)
		}
		recent, err := repo.RecentSearches(ctx, "a")
		require.NoError(t, err)
		assert.Equal(t, []string{"warfarin", "mri", "lumbar", "cervical", "aspirin"}, recent)

		stored, err := mr.List("prefs:a:recent_searches")
		require.NoError(t, err)
		assert.Len(t, stored, 5)
	})

	t.Run("blank queries are ignored", func(t *testing.T) {
		recent, err := repo.PushRecentSearch(ctx, "a", "   ")
		require.NoError(t, err)
		assert.Equal(t, "warfarin", recent[0])
		assert.Len(t, recent, 5)
	})

	t.Run("clients are isolated", func(t *testing.T) {
		recent, err := repo.RecentSearches(ctx, "b")
		require.NoError(t, err)
		assert.Empty(t, recent)
	})

	t.Run("clear", func(t *testing.T) {
		require.NoError(t, repo.ClearRecentSearches(ctx, "a"))
		recent, err := repo.RecentSearches(ctx, "a")
		require.NoError(t, err)
		assert.Empty(t, recent)
		assert.False(t, mr.Exists("prefs:a:recent_searches"))
	})
}

func TestRedisRepository_ErrorsWhenRedisDown(t *testing.T) {
	ctx := context.Background()
	mr, repo := setupRedisRepository(t)
	mr.Close()

	_, err := repo.PushRecentSearch(ctx, "a", "mri")
	assert.Error(t, err)
	_, err = repo.RecentSearches(ctx, "a")
	assert.Error(t, err)
	theme, err := repo.GetTheme(ctx, "a")
	assert.Error(t, err)
	assert.Equal(t, entities.ThemeLight, theme)
}
