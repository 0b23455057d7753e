package journal

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTemp(t *testing.T) *Journal {
	t.Helper()
	j, err := Open(context.Background(), filepath.Join(t.TempDir(), "nested", FileName))
	require.NoError(t, err)
	t.Cleanup(func() { _ = j.Close() })
	return j
}

func TestRecordAndRecent(t *testing.T) {
	j := openTemp(t)
	ctx := context.Background()
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	entries := []Entry{
		{CheckID: "c1", RecordedAt: at, Strategy: "notify-only", State: "checking"},
		{CheckID: "c1", RecordedAt: at.Add(time.Second), Strategy: "notify-only", State: "check-failed", Code: "protocol_failure", Message: "unexpected status 404"},
		{CheckID: "c1", RecordedAt: at.Add(2 * time.Second), Strategy: "notify-only", State: "idle"},
	}
	for _, e := range entries {
		require.NoError(t, j.Record(ctx, e))
	}

	got, err := j.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, got, 3)

	want := []Entry{entries[2], entries[1], entries[0]}
	if diff := cmp.Diff(want, got, cmpopts.IgnoreFields(Entry{}, "ID")); diff != "" {
		t.Errorf("Recent() mismatch (-want +got):\n%s", diff)
	}
	assert.Greater(t, got[0].ID, got[1].ID, "newest first")
}

func TestRecentLimit(t *testing.T) {
	j := openTemp(t)
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		require.NoError(t, j.Record(ctx, Entry{CheckID: "c", Strategy: "managed", State: "idle"}))
	}

	got, err := j.Recent(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, got, 2)

	got, err = j.Recent(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, got, 5)
}

func TestRecordStampsTime(t *testing.T) {
	j := openTemp(t)
	before := time.Now().Add(-time.Second)
	require.NoError(t, j.Record(context.Background(), Entry{CheckID: "c", Strategy: "managed", State: "checking"}))

	got, err := j.Recent(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.True(t, got[0].RecordedAt.After(before))
}

func TestReopenKeepsRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	ctx := context.Background()

	j, err := Open(ctx, path)
	require.NoError(t, err)
	require.NoError(t, j.Record(ctx, Entry{CheckID: "c", Strategy: "managed", State: "deferred"}))
	require.NoError(t, j.Close())

	j, err = Open(ctx, path)
	require.NoError(t, err)
	defer func() { _ = j.Close() }()
	got, err := j.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "deferred", got[0].State)
	assert.Equal(t, path, j.Path())
}

func TestClosedJournal(t *testing.T) {
	j := openTemp(t)
	require.NoError(t, j.Close())
	require.NoError(t, j.Close())

	assert.Error(t, j.Record(context.Background(), Entry{}))
	_, err := j.Recent(context.Background(), 1)
	assert.Error(t, err)
}

func TestOpenEmptyPath(t *testing.T) {
	_, err := Open(context.Background(), "  ")
	assert.Error(t, err)
}

func TestDiscard(t *testing.T) {
	assert.NoError(t, Discard.Record(context.Background(), Entry{CheckID: "x"}))
}
