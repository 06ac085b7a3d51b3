package tokenstore_test

import (
	"context"
	"testing"
	"time"

	"github.com/aussiebroadwan/bizops/pkg/tokenstore"
	"github.com/stretchr/testify/require"
)

func TestMemoryKVExpiry(t *testing.T) {
	ctx := context.Background()
	now := epoch
	kv := tokenstore.NewMemoryKVWithClock(func() time.Time { return now })

	require.NoError(t, kv.Set(ctx, "forever", "1", 0))
	require.NoError(t, kv.Set(ctx, "short", "2", time.Minute))

	v, err := kv.Get(ctx, "short")
	require.NoError(t, err)
	require.Equal(t, "2", v)

	now = now.Add(time.Minute)
	_, err = kv.Get(ctx, "short")
	require.ErrorIs(t, err, tokenstore.ErrMissing)

	// rewinding does not resurrect it, the read deleted it
	now = epoch
	_, err = kv.Get(ctx, "short")
	require.ErrorIs(t, err, tokenstore.ErrMissing)

	v, err = kv.Get(ctx, "forever")
	require.NoError(t, err)
	require.Equal(t, "1", v)

	require.NoError(t, kv.Delete(ctx, "forever", "never-set"))
	_, err = kv.Get(ctx, "forever")
	require.ErrorIs(t, err, tokenstore.ErrMissing)
}
