package versionstore

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/syncany/syncany-go/internal/daemonmsg"
)

var t0 = time.Date(2014, 3, 1, 12, 0, 0, 0, time.UTC)

func openStore(t *testing.T) *Store {
	t.Helper()
	s := New(filepath.Join(t.TempDir(), "versions.db"))
	require.NoError(t, s.Open())
	t.Cleanup(func() { s.Close() })
	return s
}

// appendVersions records n versions one minute apart, oldest first.
func appendVersions(t *testing.T, s *Store, root string, n int) {
	t.Helper()
	for i := range n {
		require.NoError(t, s.Append(context.Background(), root, daemonmsg.DatabaseVersion{
			Date:   t0.Add(time.Duration(i) * time.Minute),
			Client: "laptop",
			ChangeSet: daemonmsg.ChangeSet{
				Changed: []string{fmt.Sprintf("doc-%d.txt", i)},
			},
		}))
	}
}

func TestStore_OpenClose(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "nested", "versions.db"))
	require.NoError(t, s.Open())
	assert.ErrorIs(t, s.Open(), ErrAlreadyOpen)
	require.NoError(t, s.Close())
	assert.ErrorIs(t, s.Close(), ErrNotOpen)

	_, err := s.Log(context.Background(), "/a", daemonmsg.LogOptions{MaxDatabaseVersionCount: 1})
	assert.ErrorIs(t, err, ErrNotOpen)
}

func TestStore_AppendValidation(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	assert.ErrorIs(t, s.Append(ctx, "", daemonmsg.DatabaseVersion{Date: t0}), ErrEmptyRoot)
	assert.ErrorIs(t, s.Append(ctx, "/a", daemonmsg.DatabaseVersion{}), ErrZeroDate)
}

func TestStore_LogPagesNewestFirst(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	appendVersions(t, s, "/a", 18)
	appendVersions(t, s, "/b", 2)

	page, err := s.Log(ctx, "/a", daemonmsg.LogOptions{MaxDatabaseVersionCount: 15, MaxFileHistoryCount: 10})
	require.NoError(t, err)
	require.Len(t, page, 15)
	assert.True(t, page[0].Date.Equal(t0.Add(17*time.Minute)))
	assert.Equal(t, []string{"doc-17.txt"}, page[0].ChangeSet.Changed)
	assert.Equal(t, "laptop", page[0].Client)

	page, err = s.Log(ctx, "/a", daemonmsg.LogOptions{StartDatabaseVersionIndex: 15, MaxDatabaseVersionCount: 15, MaxFileHistoryCount: 10})
	require.NoError(t, err)
	require.Len(t, page, 3)
	assert.True(t, page[2].Date.Equal(t0))

	page, err = s.Log(ctx, "/a", daemonmsg.LogOptions{StartDatabaseVersionIndex: 18, MaxDatabaseVersionCount: 15, MaxFileHistoryCount: 10})
	require.NoError(t, err)
	assert.Empty(t, page)
}

func TestStore_LogLimitsFiles(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	require.NoError(t, s.Append(ctx, "/a", daemonmsg.DatabaseVersion{
		Date: t0,
		ChangeSet: daemonmsg.ChangeSet{
			New:     []string{"n1", "n2"},
			Changed: []string{"c1"},
			Deleted: []string{"d1", "d2"},
		},
	}))
	require.NoError(t, s.Append(ctx, "/a", daemonmsg.DatabaseVersion{Date: t0.Add(time.Minute)}))

	page, err := s.Log(ctx, "/a", daemonmsg.LogOptions{MaxDatabaseVersionCount: 15, MaxFileHistoryCount: 4})
	require.NoError(t, err)
	require.Len(t, page, 2)

	assert.False(t, page[0].ChangeSet.HasChanges())
	assert.Equal(t, []string{"n1", "n2"}, page[1].ChangeSet.New)
	assert.Equal(t, []string{"c1"}, page[1].ChangeSet.Changed)
	assert.Equal(t, []string{"d1"}, page[1].ChangeSet.Deleted)

	page, err = s.Log(ctx, "/a", daemonmsg.LogOptions{MaxDatabaseVersionCount: 15})
	require.NoError(t, err)
	assert.Equal(t, 0, page[1].ChangeSet.Len())
}

func TestStore_HeadersCountRoots(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	appendVersions(t, s, "/b", 3)
	appendVersions(t, s, "/a", 1)

	headers, err := s.Headers(ctx, "/b")
	require.NoError(t, err)
	require.Len(t, headers, 3)
	assert.True(t, headers[0].Date.Equal(t0))
	assert.True(t, headers[2].Date.Equal(t0.Add(2*time.Minute)))

	n, err := s.Count(ctx, "/b")
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	n, err = s.Count(ctx, "/none")
	require.NoError(t, err)
	assert.Zero(t, n)

	roots, err := s.Roots(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"/a", "/b"}, roots)
}
