package core

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type (
	// FinancialProfile is the fact record evaluated by the advisor.
	// A nil field means the user gave no answer for it.
	FinancialProfile struct {
		SavingsPercent      *decimal.Decimal
		DebtPercent         *decimal.Decimal
		SubscriptionPercent *decimal.Decimal
		ExpensesTracking    *bool
		EmergencyFund       *decimal.Decimal
		WantsPercent        *decimal.Decimal
		GoalExists          *bool
		Savings             *decimal.Decimal // only meaningful when GoalExists
		GoalAmount          *decimal.Decimal // only meaningful when GoalExists
	}

	// Identity is an authenticated user, passed explicitly to services.
	Identity struct {
		UserID   int64
		Username string
	}

	// UserRecord is what a credential store keeps for a user.
	UserRecord struct {
		Identity
		PasswordHash string
		CreatedAt    time.Time
	}

	// HistoryEntry is one persisted advice run.
	HistoryEntry struct {
		ID         int64
		UserID     int64
		Username   string
		Profile    FinancialProfile
		AdviceText string
		CreatedAt  time.Time
		ExportedAt *time.Time
	}
)

var (
	ErrPercentOutOfRange = errors.New("percentage must be between 0 and 100")
	ErrNegativeAmount    = errors.New("amount cannot be negative")
	ErrInvalidNumber     = errors.New("invalid number")
	ErrAmbiguousNumber   = errors.New("ambiguous number: thousands separators are not allowed")
	ErrInvalidFlag       = errors.New("invalid yes/no value")
	ErrEmptyUsername     = errors.New("empty username")
	ErrUsernameTooLong   = errors.New("username too long (max 64 characters)")
	ErrEmptyPassword     = errors.New("empty password")
	ErrUserExists        = errors.New("user already exists")
	ErrUserNotFound      = errors.New("user not found")
	ErrEntryNotFound     = errors.New("history entry not found")
)

var (
	hundred = decimal.NewFromInt(100)
)

// IsZero reports whether the identity is unset (anonymous).
func (i Identity) IsZero() bool {
	return i.UserID == 0
}

// Validate checks ranges the way the input form does. The advisor itself
// never calls it: it accepts whatever the caller hands over.
func (p FinancialProfile) Validate() error {
	percents := []struct {
		name string
		v    *decimal.Decimal
	}{
		{"savings_percent", p.SavingsPercent},
		{"debt_percent", p.DebtPercent},
		{"subscription_percent", p.SubscriptionPercent},
		{"wants_percent", p.WantsPercent},
	}
	for _, f := range percents {
		if err := validatePercent(f.v); err != nil {
			return &FieldError{Field: f.name, Err: err}
		}
	}

	amounts := []struct {
		name string
		v    *decimal.Decimal
	}{
		{"emergency_fund", p.EmergencyFund},
		{"savings", p.Savings},
		{"goal_amount", p.GoalAmount},
	}
	for _, f := range amounts {
		if err := validateAmount(f.v); err != nil {
			return &FieldError{Field: f.name, Err: err}
		}
	}
	return nil
}

// IsEmpty reports whether no field was supplied at all.
func (p FinancialProfile) IsEmpty() bool {
	return p.SavingsPercent == nil && p.DebtPercent == nil && p.SubscriptionPercent == nil &&
		p.ExpensesTracking == nil && p.EmergencyFund == nil && p.WantsPercent == nil &&
		p.GoalExists == nil && p.Savings == nil && p.GoalAmount == nil
}

func validatePercent(v *decimal.Decimal) error {
	if v == nil {
		return nil
	}
	if v.IsNegative() || v.GreaterThan(hundred) {
		return ErrPercentOutOfRange
	}
	return nil
}

func validateAmount(v *decimal.Decimal) error {
	if v == nil {
		return nil
	}
	if v.IsNegative() {
		return ErrNegativeAmount
	}
	return nil
}

// FieldError ties a validation failure to the form field that caused it.
type FieldError struct {
	Field string
	Err   error
}

func (e *FieldError) Error() string {
	return e.Field + ": " + e.Err.Error()
}

func (e *FieldError) Unwrap() error {
	return e.Err
}

// NormalizeUsername trims the username and checks its length.
func NormalizeUsername(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", ErrEmptyUsername
	}
	if len(s) > 64 {
		return "", ErrUsernameTooLong
	}
	return s, nil
}

// Num returns a pointer to n as a decimal, for building profiles in code.
func Num(n float64) *decimal.Decimal {
	d := decimal.NewFromFloat(n)
	return &d
}

// Bool returns a pointer to b.
func Bool(b bool) *bool {
	return &b
}
