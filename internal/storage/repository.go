package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/shopspring/decimal"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"budgetadvisor/internal/core"
)

// SQLiteRepository is the relational credential and history store.
type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
	now     func() time.Time
}

// DSN builds the connection string used for both the pool and migrations.
func DSN(dbPath string) string {
	return "file:" + dbPath + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	dsn := DSN(dbPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dsn); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{
		db:      db,
		queries: New(db),
		now:     func() time.Time { return time.Now().UTC() },
	}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping reports whether the database is reachable. Used by /readyz.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// CreateUser stores a new user. Usernames are unique case-insensitively.
func (r *SQLiteRepository) CreateUser(ctx context.Context, username, passwordHash string) (core.Identity, error) {
	u, err := r.queries.CreateUser(ctx, CreateUserParams{
		Username:     username,
		PasswordHash: passwordHash,
		CreatedAt:    r.now(),
	})
	if err != nil {
		if isUniqueViolation(err) {
			return core.Identity{}, core.ErrUserExists
		}
		return core.Identity{}, fmt.Errorf("create user: %w", err)
	}

	slog.InfoContext(ctx, "User created", "user_id", u.ID, "username", u.Username)
	return core.Identity{UserID: u.ID, Username: u.Username}, nil
}

func (r *SQLiteRepository) UserByUsername(ctx context.Context, username string) (core.UserRecord, error) {
	u, err := r.queries.GetUserByUsername(ctx, username)
	if errors.Is(err, sql.ErrNoRows) {
		return core.UserRecord{}, core.ErrUserNotFound
	}
	if err != nil {
		return core.UserRecord{}, fmt.Errorf("get user by username: %w", err)
	}
	return core.UserRecord{
		Identity:     core.Identity{UserID: u.ID, Username: u.Username},
		PasswordHash: u.PasswordHash,
		CreatedAt:    u.CreatedAt,
	}, nil
}

// AppendHistory stores one advice run with every profile field.
func (r *SQLiteRepository) AppendHistory(ctx context.Context, id core.Identity, p core.FinancialProfile, adviceText string) (int64, error) {
	entryID, err := r.queries.InsertAdvice(ctx, InsertAdviceParams{
		UserID:              id.UserID,
		SavingsPercent:      nullDecimal(p.SavingsPercent),
		DebtPercent:         nullDecimal(p.DebtPercent),
		SubscriptionPercent: nullDecimal(p.SubscriptionPercent),
		ExpensesTracking:    nullBool(p.ExpensesTracking),
		EmergencyFund:       nullDecimal(p.EmergencyFund),
		WantsPercent:        nullDecimal(p.WantsPercent),
		GoalExists:          nullBool(p.GoalExists),
		Savings:             nullDecimal(p.Savings),
		GoalAmount:          nullDecimal(p.GoalAmount),
		AdviceText:          adviceText,
		CreatedAt:           r.now(),
	})
	if err != nil {
		return 0, fmt.Errorf("insert advice: %w", err)
	}

	slog.InfoContext(ctx, "Advice saved to SQLite", "id", entryID, "user_id", id.UserID)
	return entryID, nil
}

// RecentHistory returns up to limit entries for the user, newest first.
func (r *SQLiteRepository) RecentHistory(ctx context.Context, id core.Identity, limit int) ([]core.HistoryEntry, error) {
	if limit <= 0 {
		return []core.HistoryEntry{}, nil
	}
	rows, err := r.queries.ListRecentAdvice(ctx, ListRecentAdviceParams{UserID: id.UserID, Limit: int64(limit)})
	if err != nil {
		return nil, fmt.Errorf("list recent advice: %w", err)
	}
	return toEntries(rows), nil
}

// HistoryEntry returns a single entry by ID.
func (r *SQLiteRepository) HistoryEntry(ctx context.Context, entryID int64) (core.HistoryEntry, error) {
	row, err := r.queries.GetAdvice(ctx, entryID)
	if errors.Is(err, sql.ErrNoRows) {
		return core.HistoryEntry{}, core.ErrEntryNotFound
	}
	if err != nil {
		return core.HistoryEntry{}, fmt.Errorf("get advice by id: %w", err)
	}
	return toEntry(row), nil
}

// PendingExport returns entries not yet exported, oldest first.
func (r *SQLiteRepository) PendingExport(ctx context.Context, limit int) ([]core.HistoryEntry, error) {
	rows, err := r.queries.ListPendingExport(ctx, int64(limit))
	if err != nil {
		return nil, fmt.Errorf("list pending export: %w", err)
	}
	return toEntries(rows), nil
}

// ClaimExport stamps exported_at on an entry that has none yet. It
// reports false when another exporter got there first, so only one of
// them writes the sheet row.
func (r *SQLiteRepository) ClaimExport(ctx context.Context, entryID int64) (bool, error) {
	n, err := r.queries.ClaimAdviceExport(ctx, ClaimAdviceExportParams{ExportedAt: r.now(), ID: entryID})
	if err != nil {
		return false, fmt.Errorf("claim advice export: %w", err)
	}
	if n == 1 {
		return true, nil
	}
	if _, err := r.HistoryEntry(ctx, entryID); err != nil {
		return false, err
	}
	return false, nil
}

// ReleaseExport clears a claim whose sheet write failed, returning the
// entry to the pending set.
func (r *SQLiteRepository) ReleaseExport(ctx context.Context, entryID int64) error {
	n, err := r.queries.ReleaseAdviceExport(ctx, entryID)
	if err != nil {
		return fmt.Errorf("release advice export: %w", err)
	}
	if n == 0 {
		return core.ErrEntryNotFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var se *sqlite.Error
	if errors.As(err, &se) {
		return se.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE || se.Code() == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
	}
	return false
}

func toEntries(rows []AdviceLog) []core.HistoryEntry {
	out := make([]core.HistoryEntry, len(rows))
	for i, row := range rows {
		out[i] = toEntry(row)
	}
	return out
}

func toEntry(row AdviceLog) core.HistoryEntry {
	e := core.HistoryEntry{
		ID:       row.ID,
		UserID:   row.UserID,
		Username: row.Username,
		Profile: core.FinancialProfile{
			SavingsPercent:      decimalPtr(row.SavingsPercent),
			DebtPercent:         decimalPtr(row.DebtPercent),
			SubscriptionPercent: decimalPtr(row.SubscriptionPercent),
			ExpensesTracking:    boolPtr(row.ExpensesTracking),
			EmergencyFund:       decimalPtr(row.EmergencyFund),
			WantsPercent:        decimalPtr(row.WantsPercent),
			GoalExists:          boolPtr(row.GoalExists),
			Savings:             decimalPtr(row.Savings),
			GoalAmount:          decimalPtr(row.GoalAmount),
		},
		AdviceText: row.AdviceText,
		CreatedAt:  row.CreatedAt,
	}
	if row.ExportedAt.Valid {
		t := row.ExportedAt.Time
		e.ExportedAt = &t
	}
	return e
}

func nullDecimal(d *decimal.Decimal) decimal.NullDecimal {
	if d == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: *d, Valid: true}
}

func decimalPtr(n decimal.NullDecimal) *decimal.Decimal {
	if !n.Valid {
		return nil
	}
	d := n.Decimal
	return &d
}

func nullBool(b *bool) sql.NullBool {
	if b == nil {
		return sql.NullBool{}
	}
	return sql.NullBool{Bool: *b, Valid: true}
}

func boolPtr(n sql.NullBool) *bool {
	if !n.Valid {
		return nil
	}
	b := n.Bool
	return &b
}
