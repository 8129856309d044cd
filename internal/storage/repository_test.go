package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"budgetadvisor/internal/core"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "nested", "advisor.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestCreateUserAndLookup(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	id, err := repo.CreateUser(ctx, "alice", "hash-1")
	require.NoError(t, err)
	require.NotZero(t, id.UserID)
	require.Equal(t, "alice", id.Username)

	rec, err := repo.UserByUsername(ctx, "alice")
	require.NoError(t, err)
	require.Equal(t, id, rec.Identity)
	require.Equal(t, "hash-1", rec.PasswordHash)

	_, err = repo.CreateUser(ctx, "alice", "hash-2")
	require.ErrorIs(t, err, core.ErrUserExists)

	_, err = repo.CreateUser(ctx, "ALICE", "hash-3")
	require.ErrorIs(t, err, core.ErrUserExists)

	_, err = repo.UserByUsername(ctx, "bob")
	require.ErrorIs(t, err, core.ErrUserNotFound)
}

func TestAppendAndRecentHistory(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	alice, err := repo.CreateUser(ctx, "alice", "h")
	require.NoError(t, err)
	bob, err := repo.CreateUser(ctx, "bob", "h")
	require.NoError(t, err)

	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	tick := 0
	repo.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Minute)
	}

	profile := core.FinancialProfile{
		SavingsPercent:   core.Num(5),
		DebtPercent:      core.Num(25.5),
		ExpensesTracking: core.Bool(false),
		GoalExists:       core.Bool(true),
		Savings:          core.Num(500),
		GoalAmount:       core.Num(2000),
	}
	for i := 0; i < 12; i++ {
		_, err := repo.AppendHistory(ctx, alice, profile, "advice")
		require.NoError(t, err)
	}
	_, err = repo.AppendHistory(ctx, bob, core.FinancialProfile{}, "bob advice")
	require.NoError(t, err)

	entries, err := repo.RecentHistory(ctx, alice, 10)
	require.NoError(t, err)
	require.Len(t, entries, 10)
	for i := 1; i < len(entries); i++ {
		require.True(t, entries[i-1].CreatedAt.After(entries[i].CreatedAt), "entries must be newest first")
	}

	got := entries[0]
	require.Equal(t, alice.UserID, got.UserID)
	require.Equal(t, "alice", got.Username)
	require.Equal(t, "advice", got.AdviceText)
	require.Equal(t, "5", got.Profile.SavingsPercent.String())
	require.Equal(t, "25.5", got.Profile.DebtPercent.String())
	require.Nil(t, got.Profile.SubscriptionPercent)
	require.Nil(t, got.Profile.EmergencyFund)
	require.NotNil(t, got.Profile.ExpensesTracking)
	require.False(t, *got.Profile.ExpensesTracking)
	require.True(t, *got.Profile.GoalExists)
	require.Equal(t, "2000", got.Profile.GoalAmount.String())
	require.Nil(t, got.ExportedAt)

	bobEntries, err := repo.RecentHistory(ctx, bob, 10)
	require.NoError(t, err)
	require.Len(t, bobEntries, 1)
	require.True(t, bobEntries[0].Profile.IsEmpty())

	none, err := repo.RecentHistory(ctx, alice, 0)
	require.NoError(t, err)
	require.Empty(t, none)
}

func TestPendingExportAndClaim(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	alice, err := repo.CreateUser(ctx, "alice", "h")
	require.NoError(t, err)

	first, err := repo.AppendHistory(ctx, alice, core.FinancialProfile{}, "one")
	require.NoError(t, err)
	second, err := repo.AppendHistory(ctx, alice, core.FinancialProfile{}, "two")
	require.NoError(t, err)

	pending, err := repo.PendingExport(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	require.Equal(t, first, pending[0].ID)

	claimed, err := repo.ClaimExport(ctx, first)
	require.NoError(t, err)
	require.True(t, claimed)

	claimed, err = repo.ClaimExport(ctx, first)
	require.NoError(t, err)
	require.False(t, claimed, "second claim must lose")

	pending, err = repo.PendingExport(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	require.Equal(t, second, pending[0].ID)

	entry, err := repo.HistoryEntry(ctx, first)
	require.NoError(t, err)
	require.NotNil(t, entry.ExportedAt)

	_, err = repo.HistoryEntry(ctx, 9999)
	require.ErrorIs(t, err, core.ErrEntryNotFound)
	_, err = repo.ClaimExport(ctx, 9999)
	require.ErrorIs(t, err, core.ErrEntryNotFound)
	require.ErrorIs(t, repo.ReleaseExport(ctx, 9999), core.ErrEntryNotFound)

	require.NoError(t, repo.ReleaseExport(ctx, first))
	pending, err = repo.PendingExport(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 2, "released entry is pending again")
}

func TestMigrationsAreIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "advisor.db")
	repo, err := NewSQLiteRepository(path)
	require.NoError(t, err)
	require.NoError(t, repo.Close())

	repo, err = NewSQLiteRepository(path)
	require.NoError(t, err)
	require.NoError(t, repo.Ping(context.Background()))
	require.NoError(t, repo.Close())
}
