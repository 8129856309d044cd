package services

import (
	"context"

	"budgetadvisor/internal/core"
)

// Ports implemented by storage backends and the message broker.
type (
	CredentialStore interface {
		// CreateUser returns core.ErrUserExists when the username is taken.
		CreateUser(ctx context.Context, username, passwordHash string) (core.Identity, error)
		// UserByUsername returns core.ErrUserNotFound for unknown users.
		UserByUsername(ctx context.Context, username string) (core.UserRecord, error)
	}

	HistoryStore interface {
		AppendHistory(ctx context.Context, id core.Identity, p core.FinancialProfile, adviceText string) (int64, error)
		// RecentHistory returns at most limit entries, newest first.
		RecentHistory(ctx context.Context, id core.Identity, limit int) ([]core.HistoryEntry, error)
	}

	// Publisher announces new history entries to the export worker.
	Publisher interface {
		PublishAdviceRecorded(ctx context.Context, entryID, userID int64) error
	}
)
