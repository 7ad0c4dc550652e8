package sweeper

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/3leaps/testharbor/internal/store"
)

func openTestDB(t *testing.T) *store.Pools {
	t.Helper()
	pools, err := store.Open(context.Background(), store.Config{URL: ":memory:"})
	require.NoError(t, err)
	require.NoError(t, store.Migrate(context.Background(), pools.Writer))
	t.Cleanup(func() { _ = pools.Close() })
	return pools
}

func TestSweeper_RunOncePurgesAgedRowsOnly(t *testing.T) {
	pools := openTestDB(t)
	ctx := context.Background()

	now := time.Now()
	old := now.AddDate(0, 0, -100).Unix()
	recent := now.Unix()

	execOld, err := store.CreateExecution(ctx, pools.Writer, "old_exec", "", "", old)
	require.NoError(t, err)
	execRecent, err := store.CreateExecution(ctx, pools.Writer, "recent_exec", "", "", recent)
	require.NoError(t, err)

	require.NoError(t, store.BatchUpsertTestResults(ctx, pools.Writer, []store.UpsertItem{
		{ExecutionID: execOld.ID, Name: "t1", Platform: "linux", Status: "P", TimeCreated: old},
		{ExecutionID: execRecent.ID, Name: "t2", Platform: "linux", Status: "P", TimeCreated: recent},
	}))

	sw := New(pools.Writer, 90, nil, nil)
	trPurged, execPurged, err := sw.RunOnce(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(1), trPurged)
	require.Equal(t, int64(1), execPurged)

	remaining, _, err := store.ListTestResults(ctx, pools.Reader, store.ResultListParams{ExecutionID: execRecent.ID})
	require.NoError(t, err)
	require.Len(t, remaining, 1)

	gone, err := store.GetExecution(ctx, pools.Reader, execOld.ID)
	require.NoError(t, err)
	require.Nil(t, gone)
}

func TestSweeper_ZeroPeriodPurgesEverything(t *testing.T) {
	pools := openTestDB(t)
	ctx := context.Background()

	past := time.Now().Add(-time.Minute).Unix()
	exec, err := store.CreateExecution(ctx, pools.Writer, "e", "", "", past)
	require.NoError(t, err)
	require.NoError(t, store.BatchUpsertTestResults(ctx, pools.Writer, []store.UpsertItem{
		{ExecutionID: exec.ID, Name: "t1", Platform: "linux", Status: "P", TimeCreated: past},
	}))

	sw := New(pools.Writer, 0, nil, nil)
	trPurged, _, err := sw.RunOnce(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(1), trPurged)
}
