package kv_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Champ-Deep/ChampMail-sub000/internal/kv"
	"github.com/Champ-Deep/ChampMail-sub000/internal/kv/kvtest"
)

func TestRedisStore_GetSet(t *testing.T) {
	store, mr := kvtest.NewStore(t)
	ctx := context.Background()

	_, ok, err := store.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Set(ctx, "k", "v", time.Minute))
	value, ok, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "v", value)

	mr.FastForward(61 * time.Second)
	exists, err := store.Exists(ctx, "k")
	require.NoError(t, err)
	assert.False(t, exists, "key should expire after its TTL")
}

func TestRedisStore_SetNX(t *testing.T) {
	store, _ := kvtest.NewStore(t)
	ctx := context.Background()

	first, err := store.SetNX(ctx, "marker", "1", time.Hour)
	require.NoError(t, err)
	assert.True(t, first)

	second, err := store.SetNX(ctx, "marker", "1", time.Hour)
	require.NoError(t, err)
	assert.False(t, second)
}

func TestRedisStore_IncrAndGetInt(t *testing.T) {
	store, _ := kvtest.NewStore(t)
	ctx := context.Background()

	n, err := kv.GetInt(ctx, store, "counter")
	require.NoError(t, err)
	assert.Zero(t, n)

	for i := 1; i <= 3; i++ {
		got, err := store.Incr(ctx, "counter")
		require.NoError(t, err)
		assert.EqualValues(t, i, got)
	}

	n, err = kv.GetInt(ctx, store, "counter")
	require.NoError(t, err)
	assert.EqualValues(t, 3, n)
}

func TestRedisStore_IncrBy(t *testing.T) {
	store, _ := kvtest.NewStore(t)
	ctx := context.Background()

	got, err := store.IncrBy(ctx, "counter", 4)
	require.NoError(t, err)
	assert.EqualValues(t, 4, got)

	got, err = store.IncrBy(ctx, "counter", 3)
	require.NoError(t, err)
	assert.EqualValues(t, 7, got)
}

func TestRedisStore_DelIfEqual(t *testing.T) {
	store, _ := kvtest.NewStore(t)
	ctx := context.Background()
	require.NoError(t, store.Set(ctx, "lock", "run-1", 0))

	deleted, err := store.DelIfEqual(ctx, "lock", "run-2")
	require.NoError(t, err)
	assert.False(t, deleted)
	value, ok, err := store.Get(ctx, "lock")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "run-1", value)

	deleted, err = store.DelIfEqual(ctx, "lock", "run-1")
	require.NoError(t, err)
	assert.True(t, deleted)
	exists, err := store.Exists(ctx, "lock")
	require.NoError(t, err)
	assert.False(t, exists)

	deleted, err = store.DelIfEqual(ctx, "missing", "run-1")
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestRedisStore_Unavailable(t *testing.T) {
	store, mr := kvtest.NewStore(t)
	mr.Close()

	_, _, err := store.Get(context.Background(), "k")
	assert.Error(t, err)
	_, err = store.Incr(context.Background(), "k")
	assert.Error(t, err)
}

func TestJSONHelpers(t *testing.T) {
	store, _ := kvtest.NewStore(t)
	ctx := context.Background()

	type payload struct {
		Name  string `json:"name"`
		Count int    `json:"count"`
	}

	require.NoError(t, kv.SetJSON(ctx, store, "json", payload{Name: "a", Count: 2}, 0))

	var got payload
	ok, err := kv.GetJSON(ctx, store, "json", &got)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, payload{Name: "a", Count: 2}, got)

	ok, err = kv.GetJSON(ctx, store, "nope", &got)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Set(ctx, "broken", "{not json", 0))
	_, err = kv.GetJSON(ctx, store, "broken", &got)
	assert.Error(t, err)
}

func TestKeys(t *testing.T) {
	keys := kv.Keys{}
	bucket := time.Date(2026, 3, 10, 14, 22, 0, 0, time.UTC)

	assert.Equal(t, "pipeline:c1:status", keys.PipelineStatus("c1"))
	assert.Equal(t, "pipeline:c1:essence", keys.PipelineStage("c1", "essence"))
	assert.Equal(t, "tracking:abc", keys.Tracking("abc"))
	assert.Equal(t, "tracking:stats:c1:unique_opens", keys.TrackingStat("c1", "unique_opens"))
	assert.Equal(t, "campaign:c1:schedule", keys.CampaignSchedule("c1"))
	assert.Equal(t, "campaign:c1:hour:2026031014", keys.ScheduleHour("c1", bucket))

	prefixed := kv.Keys{Prefix: "test:"}
	assert.Equal(t, "test:tracking:abc", prefixed.Tracking("abc"))
}
