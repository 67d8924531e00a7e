package preferences

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/drnexus/medicaldashboard/backend/internal/domain/entities"
	"github.com/drnexus/medicaldashboard/backend/internal/domain/repositories"
	"github.com/drnexus/medicaldashboard/backend/internal/search"
)

const keyPrefix = "prefs:"

// RedisRepository stores client preferences in Redis: the theme as a
// string key and recent searches as a capped list, newest first
type RedisRepository struct {
	client redis.Cmdable
}

// NewRedisRepository creates a Redis-backed preferences repository
func NewRedisRepository(client redis.Cmdable) repositories.PreferencesRepository {
	return &RedisRepository{client: client}
}

func themeKey(clientID string) string {
	return keyPrefix + clientID + ":theme"
}

func recentKey(clientID string) string {
	return keyPrefix + clientID + ":recent_searches"
}

// GetTheme returns the stored theme
func (r *RedisRepository) GetTheme(ctx context.Context, clientID string) (entities.Theme, error) {
	value, err := r.client.Get(ctx, themeKey(clientID)).Result()
	if errors.Is(err, redis.Nil) {
		return entities.ThemeLight, nil
	}
	if err != nil {
		return entities.ThemeLight, fmt.Errorf("failed to get theme: %w", err)
	}
	theme, err := entities.ParseTheme(value)
	if err != nil {
		return entities.ThemeLight, nil
	}
	return theme, nil
}

// SetTheme stores the theme
func (r *RedisRepository) SetTheme(ctx context.Context, clientID string, theme entities.Theme) error {
	if err := r.client.Set(ctx, themeKey(clientID), string(theme), 0).Err(); err != nil {
		return fmt.Errorf("failed to set theme: %w", err)
	}
	return nil
}

// RecentSearches returns the search history
func (r *RedisRepository) RecentSearches(ctx context.Context, clientID string) ([]string, error) {
	recent, err := r.client.LRange(ctx, recentKey(clientID), 0, search.RecentCap-1).Result()
	if err != nil {
		return []string{}, fmt.Errorf("failed to read recent searches: %w", err)
	}
	return recent, nil
}

// PushRecentSearch moves query to the head of the list and trims it
func (r *RedisRepository) PushRecentSearch(ctx context.Context, clientID, query string) ([]string, error) {
	if strings.TrimSpace(query) == "" {
		return r.RecentSearches(ctx, clientID)
	}

	key := recentKey(clientID)
	var rng *redis.StringSliceCmd
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.LRem(ctx, key, 0, query)
		pipe.LPush(ctx, key, query)
		pipe.LTrim(ctx, key, 0, search.RecentCap-1)
		rng = pipe.LRange(ctx, key, 0, search.RecentCap-1)
		return nil
	})
	if err != nil {
		return []string{}, fmt.Errorf("failed to push recent search: %w", err)
	}
	return rng.Val(), nil
}

// ClearRecentSearches removes the search history
func (r *RedisRepository) ClearRecentSearches(ctx context.Context, clientID string) error {
	if err := r.client.Del(ctx, recentKey(clientID)).Err(); err != nil {
		return fmt.Errorf("failed to clear recent searches: %w", err)
	}
	return nil
}
