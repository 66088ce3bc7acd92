package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"enzyflow/internal/model"
)

func TestKeyDependsOnSequenceAndEnvironment(t *testing.T) {
	env := model.Environment{Temperature: 50, PH: 5}
	base := Key("MKV", env)
	assert.Equal(t, base, Key("MKV", env))
	assert.NotEqual(t, base, Key("MKA", env))
	assert.NotEqual(t, base, Key("MKV", model.Environment{Temperature: 51, PH: 5}))
	assert.NotEqual(t, base, Key("MKV", env.WithParticleSize(1)))
	assert.Len(t, base, 64)
}

func TestMemoryCache(t *testing.T) {
	ctx := context.Background()
	c := NewMemory()
	_, ok, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)

	want := model.Measurement{Yield: 0.4, Kcat: 20}
	require.NoError(t, c.Set(ctx, "k", want))
	got, ok, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, want, got)
	assert.Equal(t, 1, c.Len())
}

func TestRedisCache(t *testing.T) {
	addr := os.Getenv("ENZYFLOW_REDIS_ADDR")
	if addr == "" {
		t.Skip("ENZYFLOW_REDIS_ADDR not set")
	}
	ctx := context.Background()
	c, err := NewRedis(ctx, RedisOptions{Addr: addr, TTL: time.Minute, Prefix: "enzyflow:test:"}, nil)
	require.NoError(t, err)
	t.Cleanup(func() {
		_, _ = c.Purge(ctx)
		_ = c.Close()
	})

	want := model.Measurement{Yield: 0.3, Kcat: 12, Failed: true, Reason: "integration failed"}
	require.NoError(t, c.Set(ctx, "k1", want))
	got, ok, err := c.Get(ctx, "k1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, want, got)

	_, ok, err = c.Get(ctx, "absent")
	require.NoError(t, err)
	assert.False(t, ok)
}
