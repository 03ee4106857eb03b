package diarysync

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/harrissondutra/fitOS-sub010/localstore"
)

func TestEventNotifierDeliversTransitionsOnly(t *testing.T) {
	notifier := NewEventNotifier()

	var calls []bool
	cancel := notifier.Subscribe(func(online bool) {
		calls = append(calls, online)
	})

	notifier.SetOnline(true)
	notifier.SetOnline(true) // repeat, dropped
	notifier.SetOnline(false)
	notifier.SetOnline(true)
	require.Equal(t, []bool{true, false, true}, calls)

	cancel()
	notifier.SetOnline(false)
	require.Len(t, calls, 3, "unsubscribed handler must not fire")
}

// TestOfflineEntrySyncsOnReconnect walks the full offline-first flow: an
// entry added while offline stays pending, and the online transition
// flushes it automatically and attaches the server id.
func TestOfflineEntrySyncsOnReconnect(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	now := time.Now()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"success":true,"data":{"id":"srv-1"}}`)
	}))
	defer server.Close()

	engine := newTestEngine(t, store, server.URL)
	notifier := NewEventNotifier()

	var gotResult *SyncResult
	stop := engine.AutoSync(ctx, notifier, func(result *SyncResult, err error) {
		require.NoError(t, err)
		gotResult = result
	})
	defer stop()

	// Offline: the entry saves instantly and queues locally.
	notifier.SetOnline(false)
	id := addEntry(t, engine, "Apple", now)

	pending, err := engine.PendingEntries(ctx, now)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	require.False(t, pending[0].Synced)

	// Back online: the transition triggers the sync automatically.
	notifier.SetOnline(true)
	require.NotNil(t, gotResult)
	require.Equal(t, 1, gotResult.Pending)
	require.Equal(t, 1, gotResult.Synced)

	pending, err = engine.PendingEntries(ctx, now)
	require.NoError(t, err)
	require.Empty(t, pending)

	entry, err := store.GetNutritionEntry(ctx, id)
	require.NoError(t, err)
	require.True(t, entry.Synced)
	require.Equal(t, "srv-1", entry.ServerID)
}

func TestAutoSyncOfflineTransitionDoesNotSync(t *testing.T) {
	store := newTestStore(t)
	var requests atomic.Int64
	server := entryServer(t, &requests)
	defer server.Close()

	engine := newTestEngine(t, store, server.URL)
	notifier := NewEventNotifier()

	stop := engine.AutoSync(context.Background(), notifier, nil)
	defer stop()

	addEntry(t, engine, "Apple", time.Now())
	notifier.SetOnline(false)
	require.Zero(t, requests.Load())
}

func TestAutoSyncReportsAuthError(t *testing.T) {
	store := newTestStore(t)
	engine, err := NewEngine(store, StaticSession{}, nil, DefaultConfig("http://unreachable.invalid"), nil)
	require.NoError(t, err)

	_, err = engine.AddPendingEntry(context.Background(), PendingEntryInput{
		Name: "Apple", Quantity: 1, Unit: "unit", MealType: localstore.MealSnack, ConsumedAt: time.Now(),
	})
	require.NoError(t, err)

	notifier := NewEventNotifier()
	var gotErr error
	stop := engine.AutoSync(context.Background(), notifier, func(result *SyncResult, err error) {
		gotErr = err
	})
	defer stop()

	notifier.SetOnline(true)
	require.ErrorIs(t, gotErr, ErrNotAuthenticated)
}
