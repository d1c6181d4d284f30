package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "history.db")
	store, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSaveAndGetRoundTrip(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	mask := 2
	expectedReturn := 0.5135972
	run := Run{
		ID:             "run-1",
		RequestedAt:    time.Now().UTC().Truncate(time.Second),
		InputDigest:    "deadbeef",
		SelectedMask:   &mask,
		Fractions:      map[string]float64{"A": 0.36, "B": 1.63},
		ExpectedReturn: &expectedReturn,
	}

	require.NoError(t, store.Save(ctx, run))

	fetched, err := store.Get(ctx, "run-1")
	require.NoError(t, err)
	require.NotNil(t, fetched)
	assert.Equal(t, run.InputDigest, fetched.InputDigest)
	assert.Equal(t, *run.SelectedMask, *fetched.SelectedMask)
	assert.InDelta(t, run.Fractions["A"], fetched.Fractions["A"], 1e-9)
	assert.InDelta(t, *run.ExpectedReturn, *fetched.ExpectedReturn, 1e-9)
}

func TestGetMissingRunReturnsNil(t *testing.T) {
	store := openTestStore(t)
	fetched, err := store.Get(context.Background(), "does-not-exist")
	require.NoError(t, err)
	assert.Nil(t, fetched)
}

func TestSaveUpsertsOnConflict(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	run := Run{ID: "run-2", RequestedAt: time.Now().UTC(), InputDigest: "first"}
	require.NoError(t, store.Save(ctx, run))

	run.InputDigest = "second"
	require.NoError(t, store.Save(ctx, run))

	fetched, err := store.Get(ctx, "run-2")
	require.NoError(t, err)
	assert.Equal(t, "second", fetched.InputDigest)
}

func TestRecentFailureRate(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	errCode := "jacobian-inversion-failed"
	ok := ""
	_ = ok

	runs := []Run{
		{ID: "a", RequestedAt: time.Now().Add(-3 * time.Minute), InputDigest: "x"},
		{ID: "b", RequestedAt: time.Now().Add(-2 * time.Minute), InputDigest: "x", ErrorCode: &errCode},
		{ID: "c", RequestedAt: time.Now().Add(-1 * time.Minute), InputDigest: "x"},
	}
	for _, r := range runs {
		require.NoError(t, store.Save(ctx, r))
	}

	rate, err := store.RecentFailureRate(ctx, 10)
	require.NoError(t, err)
	assert.InDelta(t, 1.0/3.0, rate, 1e-9)
}
