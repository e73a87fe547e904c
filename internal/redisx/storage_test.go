package redisx

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ariefcatur/go-marketplace-core/internal/prefs"
	"github.com/ariefcatur/go-marketplace-core/internal/theme"
)

func newTestClient(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

var _ prefs.Storage = (*Storage)(nil)

func TestStorage_GetSetRemove(t *testing.T) {
	ctx := context.Background()
	mr, rdb := newTestClient(t)
	st := NewStorage(rdb, "device-1")

	_, ok, err := st.Get(ctx, "theme_u1")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, st.Set(ctx, "theme_u1", "ocean"))
	require.NoError(t, st.Set(ctx, "theme_u1", "ocean"))
	v, ok, err := st.Get(ctx, "theme_u1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "ocean", v)

	raw, err := mr.Get("prefs:device-1:theme_u1")
	require.NoError(t, err)
	assert.Equal(t, "ocean", raw)
	assert.Equal(t, time.Duration(0), mr.TTL("prefs:device-1:theme_u1"))

	require.NoError(t, st.Remove(ctx, "theme_u1"))
	require.NoError(t, st.Remove(ctx, "theme_u1"))
	_, ok, err = st.Get(ctx, "theme_u1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStorage_DefaultNamespace(t *testing.T) {
	_, rdb := newTestClient(t)
	assert.Equal(t, "prefs:default:userThemes", NewStorage(rdb, "").key("userThemes"))
}

func TestStorage_ErrorsWrapped(t *testing.T) {
	ctx := context.Background()
	mr, rdb := newTestClient(t)
	st := NewStorage(rdb, "x")
	mr.SetError("server down")

	_, _, err := st.Get(ctx, "k")
	assert.Error(t, err)
	assert.Error(t, st.Set(ctx, "k", "v"))
	assert.Error(t, st.Remove(ctx, "k"))
}

func TestStorage_BacksPreferenceStore(t *testing.T) {
	ctx := context.Background()
	_, rdb := newTestClient(t)
	st := NewStorage(rdb, "device-1")

	s := prefs.NewStore(st, nil)
	s.ResolveForUser(ctx, "u1")
	s.SetPreset(theme.PresetSunset)
	s.Close()

	restarted := prefs.NewStore(st, nil)
	defer restarted.Close()
	restarted.Load(ctx, "u1")
	assert.Equal(t, theme.PresetSunset, restarted.Active())
	assert.Equal(t, map[string]theme.Preset{"u1": theme.PresetSunset}, restarted.UserThemes())
}

func TestMarkOnce(t *testing.T) {
	ctx := context.Background()
	_, rdb := newTestClient(t)

	first, err := MarkOnce(ctx, rdb, "dedup:x:1", TTLDedup)
	require.NoError(t, err)
	assert.True(t, first)

	again, err := MarkOnce(ctx, rdb, "dedup:x:1", TTLDedup)
	require.NoError(t, err)
	assert.False(t, again)

	ok, err := Exists(ctx, rdb, "dedup:x:1")
	require.NoError(t, err)
	assert.True(t, ok)
}
