package storage

import (
	"context"
	"database/sql"
	"time"

	"github.com/shopspring/decimal"
)

const createUser = `-- name: CreateUser :one
INSERT INTO users (username, password_hash, created_at)
VALUES (?, ?, ?)
RETURNING id
`

type CreateUserParams struct {
	Username     string
	PasswordHash string
	CreatedAt    time.Time
}

func (q *Queries) CreateUser(ctx context.Context, arg CreateUserParams) (User, error) {
	row := q.db.QueryRowContext(ctx, createUser, arg.Username, arg.PasswordHash, arg.CreatedAt)
	i := User{Username: arg.Username, PasswordHash: arg.PasswordHash, CreatedAt: arg.CreatedAt}
	err := row.Scan(&i.ID)
	return i, err
}

const getUserByUsername = `-- name: GetUserByUsername :one
SELECT id, username, password_hash, created_at
FROM users
WHERE username = ?
`

func (q *Queries) GetUserByUsername(ctx context.Context, username string) (User, error) {
	row := q.db.QueryRowContext(ctx, getUserByUsername, username)
	var i User
	err := row.Scan(&i.ID, &i.Username, &i.PasswordHash, &i.CreatedAt)
	return i, err
}

const insertAdvice = `-- name: InsertAdvice :one
INSERT INTO advice_log (
    user_id, savings_percent, debt_percent, subscription_percent, expenses_tracking,
    emergency_fund, wants_percent, goal_exists, savings, goal_amount, advice_text, created_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
RETURNING id
`

type InsertAdviceParams struct {
	UserID              int64
	SavingsPercent      decimal.NullDecimal
	DebtPercent         decimal.NullDecimal
	SubscriptionPercent decimal.NullDecimal
	ExpensesTracking    sql.NullBool
	EmergencyFund       decimal.NullDecimal
	WantsPercent        decimal.NullDecimal
	GoalExists          sql.NullBool
	Savings             decimal.NullDecimal
	GoalAmount          decimal.NullDecimal
	AdviceText          string
	CreatedAt           time.Time
}

func (q *Queries) InsertAdvice(ctx context.Context, arg InsertAdviceParams) (int64, error) {
	row := q.db.QueryRowContext(ctx, insertAdvice,
		arg.UserID,
		arg.SavingsPercent,
		arg.DebtPercent,
		arg.SubscriptionPercent,
		arg.ExpensesTracking,
		arg.EmergencyFund,
		arg.WantsPercent,
		arg.GoalExists,
		arg.Savings,
		arg.GoalAmount,
		arg.AdviceText,
		arg.CreatedAt,
	)
	var id int64
	err := row.Scan(&id)
	return id, err
}

const adviceColumns = `a.id, a.user_id, u.username, a.savings_percent, a.debt_percent, a.subscription_percent,
    a.expenses_tracking, a.emergency_fund, a.wants_percent, a.goal_exists, a.savings, a.goal_amount,
    a.advice_text, a.created_at, a.exported_at`

const listRecentAdvice = `-- name: ListRecentAdvice :many
SELECT ` + adviceColumns + `
FROM advice_log a
JOIN users u ON u.id = a.user_id
WHERE a.user_id = ?
ORDER BY a.created_at DESC, a.id DESC
LIMIT ?
`

type ListRecentAdviceParams struct {
	UserID int64
	Limit  int64
}

func (q *Queries) ListRecentAdvice(ctx context.Context, arg ListRecentAdviceParams) ([]AdviceLog, error) {
	rows, err := q.db.QueryContext(ctx, listRecentAdvice, arg.UserID, arg.Limit)
	if err != nil {
		return nil, err
	}
	return scanAdviceRows(rows)
}

const getAdvice = `-- name: GetAdvice :one
SELECT ` + adviceColumns + `
FROM advice_log a
JOIN users u ON u.id = a.user_id
WHERE a.id = ?
`

func (q *Queries) GetAdvice(ctx context.Context, id int64) (AdviceLog, error) {
	row := q.db.QueryRowContext(ctx, getAdvice, id)
	return scanAdvice(row)
}

const listPendingExport = `-- name: ListPendingExport :many
SELECT ` + adviceColumns + `
FROM advice_log a
JOIN users u ON u.id = a.user_id
WHERE a.exported_at IS NULL
ORDER BY a.id ASC
LIMIT ?
`

func (q *Queries) ListPendingExport(ctx context.Context, limit int64) ([]AdviceLog, error) {
	rows, err := q.db.QueryContext(ctx, listPendingExport, limit)
	if err != nil {
		return nil, err
	}
	return scanAdviceRows(rows)
}

const claimAdviceExport = `-- name: ClaimAdviceExport :execrows
UPDATE advice_log
SET exported_at = ?
WHERE id = ? AND exported_at IS NULL
`

type ClaimAdviceExportParams struct {
	ExportedAt time.Time
	ID         int64
}

func (q *Queries) ClaimAdviceExport(ctx context.Context, arg ClaimAdviceExportParams) (int64, error) {
	result, err := q.db.ExecContext(ctx, claimAdviceExport, arg.ExportedAt, arg.ID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const releaseAdviceExport = `-- name: ReleaseAdviceExport :execrows
UPDATE advice_log
SET exported_at = NULL
WHERE id = ?
`

func (q *Queries) ReleaseAdviceExport(ctx context.Context, id int64) (int64, error) {
	result, err := q.db.ExecContext(ctx, releaseAdviceExport, id)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanAdvice(s scanner) (AdviceLog, error) {
	var i AdviceLog
	err := s.Scan(
		&i.ID,
		&i.UserID,
		&i.Username,
		&i.SavingsPercent,
		&i.DebtPercent,
		&i.SubscriptionPercent,
		&i.ExpensesTracking,
		&i.EmergencyFund,
		&i.WantsPercent,
		&i.GoalExists,
		&i.Savings,
		&i.GoalAmount,
		&i.AdviceText,
		&i.CreatedAt,
		&i.ExportedAt,
	)
	return i, err
}

func scanAdviceRows(rows *sql.Rows) ([]AdviceLog, error) {
	defer rows.Close()
	var items []AdviceLog
	for rows.Next() {
		i, err := scanAdvice(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
