package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/formwatch/formwatch/internal/watch"
)

func TestLoadBeforeSaveReturnsZeroState(t *testing.T) {
	t.Parallel()

	store := New()
	state, err := store.Load(context.Background())
	require.NoError(t, err)
	require.Nil(t, state.Accepting)
	require.True(t, state.CheckedAt.IsZero())
}

func TestSaveLoadRoundTrip(t *testing.T) {
	t.Parallel()

	store := New()
	ctx := context.Background()
	accepting := true
	in := watch.State{Accepting: &accepting, CheckedAt: time.Unix(1700000000, 0).UTC()}

	require.NoError(t, store.Save(ctx, in))
	out, err := store.Load(ctx)
	require.NoError(t, err)
	require.Equal(t, in, out)

	// Save fully overwrites the record.
	require.NoError(t, store.Save(ctx, watch.State{CheckedAt: time.Unix(1700000060, 0).UTC()}))
	out, err = store.Load(ctx)
	require.NoError(t, err)
	require.Nil(t, out.Accepting)
}
