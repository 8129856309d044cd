package core

import (
	"errors"
	"strings"
	"testing"
)

func TestProfileValidate(t *testing.T) {
	good := FinancialProfile{
		SavingsPercent:      Num(20),
		DebtPercent:         Num(0),
		SubscriptionPercent: Num(100),
		EmergencyFund:       Num(0),
		GoalExists:          Bool(true),
		Savings:             Num(100),
		GoalAmount:          Num(1000),
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if err := (FinancialProfile{}).Validate(); err != nil {
		t.Fatalf("empty profile should validate, got %v", err)
	}

	bads := []struct {
		p     FinancialProfile
		field string
		err   error
	}{
		{FinancialProfile{SavingsPercent: Num(-1)}, "savings_percent", ErrPercentOutOfRange},
		{FinancialProfile{DebtPercent: Num(101)}, "debt_percent", ErrPercentOutOfRange},
		{FinancialProfile{WantsPercent: Num(150)}, "wants_percent", ErrPercentOutOfRange},
		{FinancialProfile{EmergencyFund: Num(-5)}, "emergency_fund", ErrNegativeAmount},
		{FinancialProfile{GoalAmount: Num(-0.01)}, "goal_amount", ErrNegativeAmount},
	}
	for i, tc := range bads {
		err := tc.p.Validate()
		if !errors.Is(err, tc.err) {
			t.Fatalf("case %d expected %v, got %v", i, tc.err, err)
		}
		var fe *FieldError
		if !errors.As(err, &fe) || fe.Field != tc.field {
			t.Fatalf("case %d expected field %s, got %v", i, tc.field, err)
		}
	}
}

func TestProfileIsEmpty(t *testing.T) {
	if !(FinancialProfile{}).IsEmpty() {
		t.Fatal("zero profile should be empty")
	}
	if (FinancialProfile{ExpensesTracking: Bool(false)}).IsEmpty() {
		t.Fatal("explicit false is an answer")
	}
}

func TestNormalizeUsername(t *testing.T) {
	if got, err := NormalizeUsername("  alice "); err != nil || got != "alice" {
		t.Fatalf("expected alice, got %q (err=%v)", got, err)
	}
	if _, err := NormalizeUsername("   "); !errors.Is(err, ErrEmptyUsername) {
		t.Fatalf("expected ErrEmptyUsername, got %v", err)
	}
	if _, err := NormalizeUsername(strings.Repeat("x", 65)); !errors.Is(err, ErrUsernameTooLong) {
		t.Fatalf("expected ErrUsernameTooLong, got %v", err)
	}
}

func TestIdentityIsZero(t *testing.T) {
	if !(Identity{}).IsZero() {
		t.Fatal("expected zero identity")
	}
	if (Identity{UserID: 1, Username: "a"}).IsZero() {
		t.Fatal("expected non-zero identity")
	}
}
