package localstore

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCacheRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	type payload struct {
		Calories int    `json:"calories"`
		Source   string `json:"source"`
	}
	require.NoError(t, store.SaveToCache(ctx, "food:apple", payload{Calories: 52, Source: "usda"}, "food-lookup", 30))

	raw, typ, err := store.GetFromCache(ctx, "food:apple")
	require.NoError(t, err)
	require.Equal(t, "food-lookup", typ)

	var got payload
	require.NoError(t, json.Unmarshal(raw, &got))
	require.Equal(t, 52, got.Calories)
}

func TestCacheMissing(t *testing.T) {
	store := newTestStore(t)

	raw, typ, err := store.GetFromCache(context.Background(), "absent")
	require.NoError(t, err)
	require.Nil(t, raw)
	require.Empty(t, typ)
}

func TestCacheLazyExpiry(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	// expiryMinutes = 0 means already expired at the next read
	require.NoError(t, store.SaveToCache(ctx, "stale", "v", "test", 0))

	raw, _, err := store.GetFromCache(ctx, "stale")
	require.NoError(t, err)
	require.Nil(t, raw)

	// the expired read must have deleted the row (self-cleaning)
	var count int
	require.NoError(t, store.db.QueryRow(`SELECT COUNT(*) FROM cache WHERE key = 'stale'`).Scan(&count))
	require.Zero(t, count)
}

func TestClearExpiredCache(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveToCache(ctx, "expired-1", 1, "test", 0))
	require.NoError(t, store.SaveToCache(ctx, "expired-2", 2, "test", -5))
	require.NoError(t, store.SaveToCache(ctx, "fresh", 3, "test", 60))

	removed, err := store.ClearExpiredCache(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, removed)

	raw, _, err := store.GetFromCache(ctx, "fresh")
	require.NoError(t, err)
	require.NotNil(t, raw)

	// Sweep again: nothing left to remove
	removed, err = store.ClearExpiredCache(ctx)
	require.NoError(t, err)
	require.Zero(t, removed)
}
