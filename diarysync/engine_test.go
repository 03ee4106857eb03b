package diarysync

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/require"

	"github.com/harrissondutra/fitOS-sub010/localstore"
)

func newTestStore(t *testing.T) *localstore.Store {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	store := localstore.New(db, nil)
	require.NoError(t, store.Init(context.Background()))
	return store
}

func newTestEngine(t *testing.T, store *localstore.Store, baseURL string) *Engine {
	t.Helper()

	engine, err := NewEngine(store, StaticSession{BearerToken: "test-token", Tenant: "tenant-1"}, nil, DefaultConfig(baseURL), nil)
	require.NoError(t, err)
	return engine
}

// entryServer is a remote API stub. failNames lists food names whose create
// call gets a 500; everything else is acknowledged with a fresh server id.
func entryServer(t *testing.T, requests *atomic.Int64, failNames ...string) *httptest.Server {
	t.Helper()

	failing := make(map[string]bool, len(failNames))
	for _, name := range failNames {
		failing[name] = true
	}

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if requests != nil {
			requests.Add(1)
		}
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/api/nutrition/tracking/entries", r.URL.Path)
		require.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		require.Equal(t, "tenant-1", r.Header.Get("X-Tenant-Id"))

		var body struct {
			Name string `json:"name"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))

		if failing[body.Name] {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		fmt.Fprintf(w, `{"success":true,"data":{"id":%q}}`, "srv-"+uuid.New().String())
	}))
}

func addEntry(t *testing.T, engine *Engine, name string, consumedAt time.Time) string {
	t.Helper()

	id, err := engine.AddPendingEntry(context.Background(), PendingEntryInput{
		Name:       name,
		Quantity:   1,
		Unit:       "unit",
		MealType:   localstore.MealSnack,
		ConsumedAt: consumedAt,
	})
	require.NoError(t, err)
	return id
}

// countingTransport counts round-trips so tests can prove an injected
// client carried the traffic.
type countingTransport struct {
	calls atomic.Int64
}

func (c *countingTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	c.calls.Add(1)
	return http.DefaultTransport.RoundTrip(r)
}

func TestNewEngineUsesInjectedClient(t *testing.T) {
	store := newTestStore(t)
	server := entryServer(t, nil)
	defer server.Close()

	transport := &countingTransport{}
	engine, err := NewEngine(store,
		StaticSession{BearerToken: "test-token", Tenant: "tenant-1"},
		&http.Client{Transport: transport},
		DefaultConfig(server.URL), nil)
	require.NoError(t, err)

	addEntry(t, engine, "Apple", time.Now())
	result, err := engine.SyncPending(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, result.Synced)
	require.Equal(t, int64(1), transport.calls.Load())
}

func TestAddPendingEntryRoundTrip(t *testing.T) {
	store := newTestStore(t)
	engine := newTestEngine(t, store, "http://unreachable.invalid")
	ctx := context.Background()
	now := time.Now()

	id, err := engine.AddPendingEntry(ctx, PendingEntryInput{
		FoodID:     "food-42",
		Name:       "Apple",
		Quantity:   1,
		Unit:       "unit",
		MealType:   localstore.MealSnack,
		ConsumedAt: now,
		Notes:      "green",
	})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	pending, err := engine.PendingEntries(ctx, now)
	require.NoError(t, err)
	require.Len(t, pending, 1)

	p := pending[0]
	require.Equal(t, id, p.LocalID)
	require.Equal(t, "food-42", p.FoodID)
	require.Equal(t, "Apple", p.Name)
	require.Equal(t, 1.0, p.Quantity)
	require.Equal(t, "unit", p.Unit)
	require.Equal(t, localstore.MealSnack, p.MealType)
	require.Equal(t, "green", p.Notes)
	require.False(t, p.Synced)
	require.Empty(t, p.ServerID)
}

func TestAddPendingEntryValidation(t *testing.T) {
	store := newTestStore(t)
	engine := newTestEngine(t, store, "http://unreachable.invalid")
	ctx := context.Background()

	valid := PendingEntryInput{Name: "Apple", Quantity: 1, Unit: "unit", MealType: localstore.MealSnack, ConsumedAt: time.Now()}

	for name, mutate := range map[string]func(*PendingEntryInput){
		"missing name":       func(in *PendingEntryInput) { in.Name = "" },
		"zero quantity":      func(in *PendingEntryInput) { in.Quantity = 0 },
		"missing unit":       func(in *PendingEntryInput) { in.Unit = "" },
		"missing meal type":  func(in *PendingEntryInput) { in.MealType = "" },
		"zero consumed time": func(in *PendingEntryInput) { in.ConsumedAt = time.Time{} },
	} {
		in := valid
		mutate(&in)
		_, err := engine.AddPendingEntry(ctx, in)
		require.Error(t, err, name)
	}

	// Unknown meal types are accepted and stored as-is.
	in := valid
	in.MealType = "elevenses"
	id, err := engine.AddPendingEntry(ctx, in)
	require.NoError(t, err)
	entry, err := store.GetNutritionEntry(ctx, id)
	require.NoError(t, err)
	require.Equal(t, localstore.MealType("elevenses"), entry.MealType)
}

func TestSyncPendingAllSucceed(t *testing.T) {
	store := newTestStore(t)
	var requests atomic.Int64
	server := entryServer(t, &requests)
	defer server.Close()
	engine := newTestEngine(t, store, server.URL)
	ctx := context.Background()
	now := time.Now()

	for i := 0; i < 3; i++ {
		addEntry(t, engine, fmt.Sprintf("Food %d", i), now)
	}

	result, err := engine.SyncPending(ctx)
	require.NoError(t, err)
	require.Equal(t, 3, result.Pending)
	require.Equal(t, 3, result.Synced)
	require.Zero(t, result.Failed)
	require.Empty(t, result.ErrorSummary)
	require.False(t, result.CompletedAt.IsZero())
	require.EqualValues(t, 3, requests.Load())

	pending, err := engine.PendingEntries(ctx, now)
	require.NoError(t, err)
	require.Empty(t, pending)

	status, err := engine.Status(ctx)
	require.NoError(t, err)
	require.Zero(t, status.PendingCount)
	require.False(t, status.LastSync.IsZero())
}

func TestSyncPendingPartialFailureIsolated(t *testing.T) {
	store := newTestStore(t)
	server := entryServer(t, nil, "Bad Food")
	defer server.Close()
	engine := newTestEngine(t, store, server.URL)
	ctx := context.Background()
	now := time.Now()

	addEntry(t, engine, "Good Food 1", now)
	badID := addEntry(t, engine, "Bad Food", now)
	addEntry(t, engine, "Good Food 2", now)

	result, err := engine.SyncPending(ctx)
	require.NoError(t, err)
	require.Equal(t, 3, result.Pending)
	require.Equal(t, 2, result.Synced)
	require.Equal(t, 1, result.Failed)
	require.Equal(t, "1 of 3 entries failed to sync", result.ErrorSummary)

	pending, err := engine.PendingEntries(ctx, now)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	require.Equal(t, badID, pending[0].LocalID)
}

func TestSyncPendingNoAuthShortCircuit(t *testing.T) {
	store := newTestStore(t)
	var requests atomic.Int64
	server := entryServer(t, &requests)
	defer server.Close()

	addTo := func(engine *Engine) {
		addEntry(t, engine, "Apple", time.Now())
	}

	for name, session := range map[string]Session{
		"missing token":  StaticSession{Tenant: "tenant-1"},
		"missing tenant": StaticSession{BearerToken: "test-token"},
	} {
		engine, err := NewEngine(store, session, nil, DefaultConfig(server.URL), nil)
		require.NoError(t, err)
		addTo(engine)

		result, err := engine.SyncPending(context.Background())
		require.ErrorIs(t, err, ErrNotAuthenticated, name)
		require.Nil(t, result)
	}
	require.Zero(t, requests.Load(), "no network calls may be made without credentials")
}

func TestSyncPendingEmptyBatch(t *testing.T) {
	store := newTestStore(t)
	var requests atomic.Int64
	server := entryServer(t, &requests)
	defer server.Close()
	engine := newTestEngine(t, store, server.URL)

	result, err := engine.SyncPending(context.Background())
	require.NoError(t, err)
	require.Zero(t, result.Pending)
	require.Zero(t, requests.Load())
}

func TestSyncPendingInFlightGuard(t *testing.T) {
	store := newTestStore(t)

	release := make(chan struct{})
	entered := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		close(entered)
		<-release
		fmt.Fprint(w, `{"success":true,"data":{"id":"srv-1"}}`)
	}))
	defer server.Close()

	engine := newTestEngine(t, store, server.URL)
	addEntry(t, engine, "Apple", time.Now())

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, err := engine.SyncPending(context.Background())
		require.NoError(t, err)
	}()

	<-entered
	_, err := engine.SyncPending(context.Background())
	require.ErrorIs(t, err, ErrSyncInProgress)

	close(release)
	<-done

	// Once the first invocation finishes the guard is released again.
	result, err := engine.SyncPending(context.Background())
	require.NoError(t, err)
	require.Zero(t, result.Pending)
}

func TestSyncPendingRequestTimeoutIsEntryFailure(t *testing.T) {
	store := newTestStore(t)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
		fmt.Fprint(w, `{"success":true,"data":{"id":"srv-1"}}`)
	}))
	defer server.Close()

	config := DefaultConfig(server.URL)
	config.RequestTimeout = 30 * time.Millisecond
	engine, err := NewEngine(store, StaticSession{BearerToken: "test-token", Tenant: "tenant-1"}, nil, config, nil)
	require.NoError(t, err)

	addEntry(t, engine, "Apple", time.Now())

	result, err := engine.SyncPending(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, result.Pending)
	require.Equal(t, 1, result.Failed)
	require.Zero(t, result.Synced)

	pending, err := engine.PendingEntries(context.Background(), time.Now())
	require.NoError(t, err)
	require.Len(t, pending, 1)
}

// TestSyncPendingDayScope documents inherited behavior: the outbox query
// is scoped to the current calendar day, so a pending entry logged
// yesterday is never retried by SyncPending. The scope is an explicit
// parameter of PendingEntries so callers can widen it themselves.
func TestSyncPendingDayScope(t *testing.T) {
	store := newTestStore(t)
	var requests atomic.Int64
	server := entryServer(t, &requests)
	defer server.Close()
	engine := newTestEngine(t, store, server.URL)
	ctx := context.Background()

	yesterday := time.Now().AddDate(0, 0, -1)
	staleID := addEntry(t, engine, "Yesterday's Apple", yesterday)

	result, err := engine.SyncPending(ctx)
	require.NoError(t, err)
	require.Zero(t, result.Pending)
	require.Zero(t, requests.Load())

	// The stale entry is still reachable with an explicit day.
	stale, err := engine.PendingEntries(ctx, yesterday)
	require.NoError(t, err)
	require.Len(t, stale, 1)
	require.Equal(t, staleID, stale[0].LocalID)
}

func TestDeletePendingEntry(t *testing.T) {
	store := newTestStore(t)
	engine := newTestEngine(t, store, "http://unreachable.invalid")
	ctx := context.Background()
	now := time.Now()

	id := addEntry(t, engine, "Apple", now)
	require.NoError(t, engine.DeletePendingEntry(ctx, id))

	pending, err := engine.PendingEntries(ctx, now)
	require.NoError(t, err)
	require.Empty(t, pending)

	require.NoError(t, engine.DeletePendingEntry(ctx, id)) // idempotent
}

func TestCleanupSyncedEntriesBoundary(t *testing.T) {
	store := newTestStore(t)
	engine := newTestEngine(t, store, "http://unreachable.invalid")
	ctx := context.Background()
	now := time.Now().UTC()

	save := func(age time.Duration, synced bool) string {
		entry := &localstore.NutritionEntry{
			ID:        uuid.New().String(),
			MealType:  localstore.MealLunch,
			Foods:     []localstore.FoodItem{{Name: "Meal", Quantity: 1, Unit: "plate"}},
			LoggedAt:  now.Add(-age),
			CreatedAt: now,
			UpdatedAt: now,
			Synced:    synced,
		}
		require.NoError(t, store.SaveNutritionEntry(ctx, entry))
		return entry.ID
	}

	eightDays := save(8*24*time.Hour, true)
	sixDays := save(6*24*time.Hour, true)

	removed, err := engine.CleanupSyncedEntries(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, removed)

	gone, err := store.GetNutritionEntry(ctx, eightDays)
	require.NoError(t, err)
	require.Nil(t, gone)

	kept, err := store.GetNutritionEntry(ctx, sixDays)
	require.NoError(t, err)
	require.NotNil(t, kept)
}
