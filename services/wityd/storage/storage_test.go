package storage

import (
	"context"
	"math/big"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"wity/core/events"
)

func openTestStorage(t *testing.T) *Storage {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	store, err := Open("sqlite", MemoryDSN(name))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestOpenRequiresDSN(t *testing.T) {
	_, err := Open("sqlite", " ")
	require.ErrorIs(t, err, ErrPathRequired)
	_, err = Open("mysql", "dsn")
	require.ErrorIs(t, err, ErrUnsupportedDriver)
}

func TestJournalChainsEntries(t *testing.T) {
	store := openTestStorage(t)
	journal := NewJournal(store, nil)
	ctx := context.Background()

	journal.Emit(events.MigrationCompleted{
		Account:   [20]byte{1},
		Principal: big.NewInt(100),
		Reward:    big.NewInt(50),
		Credited:  big.NewInt(160),
	})
	second, err := journal.Append(ctx, "custom.event", map[string]string{"k": "v"})
	require.NoError(t, err)

	entries, err := journal.Entries(ctx, 0, 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.Equal(t, events.TypeMigrationCompleted, entries[0].Type)
	require.Empty(t, entries[0].PrevHash)
	require.Equal(t, entries[0].Hash, entries[1].PrevHash)
	require.Equal(t, second.Hash, entries[1].Hash)

	attrs, err := entries[0].DecodeAttributes()
	require.NoError(t, err)
	require.Equal(t, "160", attrs["credited"])

	checked, err := journal.Verify(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, checked)
}

func TestJournalVerifyDetectsTampering(t *testing.T) {
	store := openTestStorage(t)
	journal := NewJournal(store, nil)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		_, err := journal.Append(ctx, "staking.walletCredited", map[string]string{"amount": "1"})
		require.NoError(t, err)
	}
	require.NoError(t, store.db.Model(&JournalEntry{}).Where("seq = ?", 2).Update("attributes", `{"amount":"1000"}`).Error)

	checked, err := journal.Verify(ctx)
	require.ErrorIs(t, err, ErrChainBroken)
	require.Equal(t, 1, checked)
}

func TestJournalSubscribeReplaysBacklog(t *testing.T) {
	store := openTestStorage(t)
	journal := NewJournal(store, nil)
	ctx := context.Background()
	first, err := journal.Append(ctx, "a", nil)
	require.NoError(t, err)
	_, err = journal.Append(ctx, "b", nil)
	require.NoError(t, err)

	backlog, updates, cancel, err := journal.Subscribe(ctx, first.Seq)
	require.NoError(t, err)
	defer cancel()
	require.Len(t, backlog, 1)
	require.Equal(t, "b", backlog[0].Type)

	_, err = journal.Append(ctx, "c", nil)
	require.NoError(t, err)
	select {
	case entry := <-updates:
		require.Equal(t, "c", entry.Type)
	case <-time.After(time.Second):
		t.Fatalf("expected live entry")
	}

	cancel()
	_, open := <-updates
	require.False(t, open)
}

func TestJournalSubscribeReplaysBacklogBeyondPage(t *testing.T) {
	store := openTestStorage(t)
	journal := NewJournal(store, nil)
	ctx := context.Background()
	total := maxBacklog + 5
	for i := 0; i < total; i++ {
		_, err := journal.Append(ctx, "staking.walletCredited", nil)
		require.NoError(t, err)
	}

	backlog, updates, cancel, err := journal.Subscribe(ctx, 0)
	require.NoError(t, err)
	defer cancel()
	require.Len(t, backlog, total)
	for i, entry := range backlog {
		require.Equal(t, uint64(i+1), entry.Seq)
	}

	next, err := journal.Append(ctx, "staking.positionOpened", nil)
	require.NoError(t, err)
	select {
	case entry := <-updates:
		require.Equal(t, backlog[len(backlog)-1].Seq+1, entry.Seq)
		require.Equal(t, next.Seq, entry.Seq)
	case <-time.After(time.Second):
		t.Fatalf("expected live entry")
	}
}

func TestEnsureNonceDetectsReplay(t *testing.T) {
	store := openTestStorage(t)
	base := time.Date(2025, time.March, 1, 12, 0, 0, 0, time.UTC)
	store.SetNowFunc(func() time.Time { return base })
	ctx := context.Background()

	replay, err := store.EnsureNonce(ctx, "0xAbC", "n-1", base.Unix())
	require.NoError(t, err)
	require.False(t, replay)

	replay, err = store.EnsureNonce(ctx, "0xabc", "n-1", base.Unix())
	require.NoError(t, err)
	require.True(t, replay)

	replay, err = store.EnsureNonce(ctx, "0xabc", "n-2", base.Unix())
	require.NoError(t, err)
	require.False(t, replay)

	_, err = store.EnsureNonce(ctx, "", "n-3", base.Unix())
	require.Error(t, err)

	pruned, err := store.PruneNonces(ctx, base.Add(time.Second))
	require.NoError(t, err)
	require.EqualValues(t, 2, pruned)
}

func TestExportParquet(t *testing.T) {
	store := openTestStorage(t)
	journal := NewJournal(store, nil)
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		_, err := journal.Append(ctx, "token.transfer", map[string]string{"asset": "WTY"})
		require.NoError(t, err)
	}
	path := filepath.Join(t.TempDir(), "out", "journal.parquet")
	written, err := journal.ExportParquet(ctx, path, 2)
	require.NoError(t, err)
	require.Equal(t, 3, written)
	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Greater(t, info.Size(), int64(0))
}

func TestFileDSN(t *testing.T) {
	_, err := FileDSN("")
	require.ErrorIs(t, err, ErrPathRequired)
	dsn, err := FileDSN(filepath.Join(t.TempDir(), "sub", "journal.sqlite"))
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(dsn, "file:"))
	require.Contains(t, dsn, "journal_mode(WAL)")
}

func TestOpenConfiguredSQLiteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "journal.sqlite")
	store, err := OpenConfigured("sqlite", path, "")
	require.NoError(t, err)
	defer store.Close()
	journal := NewJournal(store, nil)
	_, err = journal.Append(context.Background(), "wity.test", map[string]string{"k": "v"})
	require.NoError(t, err)
	_, err = os.Stat(path)
	require.NoError(t, err)

	_, err = OpenConfigured("postgres", path, "")
	require.ErrorIs(t, err, ErrPathRequired)
}
