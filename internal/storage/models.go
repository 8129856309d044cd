package storage

import (
	"database/sql"
	"time"

	"github.com/shopspring/decimal"
)

type User struct {
	ID           int64
	Username     string
	PasswordHash string
	CreatedAt    time.Time
}

type AdviceLog struct {
	ID                  int64
	UserID              int64
	Username            string
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
	ExportedAt          sql.NullTime
}
