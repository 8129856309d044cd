package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"budgetadvisor/internal/cli"
	"budgetadvisor/internal/core"
	"budgetadvisor/internal/services"
	"budgetadvisor/internal/storage"
)

func TestOverlay(t *testing.T) {
	base := core.FinancialProfile{
		SavingsPercent: core.Num(20),
		DebtPercent:    core.Num(10),
		GoalExists:     core.Bool(true),
	}
	top := core.FinancialProfile{
		SavingsPercent: core.Num(5),
		GoalExists:     core.Bool(false),
		GoalAmount:     core.Num(900),
	}
	got := overlay(base, top)

	assert.Equal(t, "5", got.SavingsPercent.String())
	assert.Equal(t, "10", got.DebtPercent.String())
	assert.Equal(t, "900", got.GoalAmount.String())
	assert.False(t, *got.GoalExists)
	assert.Nil(t, got.WantsPercent)
}

func TestBuildProfileFileAndFlags(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profile.toml")
	require.NoError(t, os.WriteFile(path, []byte("savings_percent = 25\nwants_percent = 40\n"), 0o600))

	p, err := buildProfile(path, false, cli.Answers{WantsPercent: "20"})
	require.NoError(t, err)
	assert.Equal(t, "25", p.SavingsPercent.String())
	assert.Equal(t, "20", p.WantsPercent.String())

	_, err = buildProfile("", false, cli.Answers{DebtPercent: "abc"})
	assert.ErrorIs(t, err, core.ErrInvalidNumber)
}

func resetFlags() {
	evalAnswers = cli.Answers{}
	evalFile = ""
	evalInteractive = false
	evalUser = ""
	flagPassword = ""
	historyLimit = 10
}

func run(t *testing.T, args ...string) error {
	t.Helper()
	resetFlags()
	rootCmd.SetArgs(args)
	return rootCmd.Execute()
}

func TestCommandsEndToEnd(t *testing.T) {
	db := filepath.Join(t.TempDir(), "advisor.db")
	t.Cleanup(resetFlags)

	require.NoError(t, run(t, "rules"))
	require.NoError(t, run(t, "--db", db, "user", "add", "alice", "--password", "correct horse"))
	assert.Error(t, run(t, "--db", db, "user", "add", "alice", "--password", "again"))

	require.NoError(t, run(t, "--db", db, "evaluate", "--savings-percent", "5", "--user", "alice", "--password", "correct horse"))
	assert.Error(t, run(t, "--db", db, "evaluate", "--savings-percent", "5", "--user", "alice", "--password", "wrong"))
	assert.Error(t, run(t, "evaluate", "--wants-percent", "150"))

	require.NoError(t, run(t, "--db", db, "history", "alice", "--password", "correct horse", "--limit", "5"))

	repo, err := storage.NewSQLiteRepository(db)
	require.NoError(t, err)
	defer repo.Close()

	id, err := services.NewCredentialService(repo).Verify(t.Context(), "alice", "correct horse")
	require.NoError(t, err)
	entries, err := repo.RecentHistory(t.Context(), id, 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "5", entries[0].Profile.SavingsPercent.String())
}
