package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/charmbracelet/huh"
	"github.com/shopspring/decimal"

	"budgetadvisor/internal/core"
)

// Answers holds profile answers as typed by the user. Empty means not
// answered.
type Answers struct {
	SavingsPercent      string
	DebtPercent         string
	SubscriptionPercent string
	WantsPercent        string
	EmergencyFund       string
	Savings             string
	GoalAmount          string
	ExpensesTracking    string
	GoalExists          string
}

// Profile parses the answers. The first malformed answer is returned as a
// *core.FieldError.
func (a Answers) Profile() (core.FinancialProfile, error) {
	var p core.FinancialProfile
	var err error

	percents := []struct {
		name string
		in   string
		dst  **decimal.Decimal
	}{
		{"savings_percent", a.SavingsPercent, &p.SavingsPercent},
		{"debt_percent", a.DebtPercent, &p.DebtPercent},
		{"subscription_percent", a.SubscriptionPercent, &p.SubscriptionPercent},
		{"wants_percent", a.WantsPercent, &p.WantsPercent},
	}
	for _, f := range percents {
		if *f.dst, err = core.ParsePercent(f.in); err != nil {
			return core.FinancialProfile{}, &core.FieldError{Field: f.name, Err: err}
		}
	}

	amounts := []struct {
		name string
		in   string
		dst  **decimal.Decimal
	}{
		{"emergency_fund", a.EmergencyFund, &p.EmergencyFund},
		{"savings", a.Savings, &p.Savings},
		{"goal_amount", a.GoalAmount, &p.GoalAmount},
	}
	for _, f := range amounts {
		if *f.dst, err = core.ParseAmount(f.in); err != nil {
			return core.FinancialProfile{}, &core.FieldError{Field: f.name, Err: err}
		}
	}

	if p.ExpensesTracking, err = core.ParseFlag(a.ExpensesTracking); err != nil {
		return core.FinancialProfile{}, &core.FieldError{Field: "expenses_tracking", Err: err}
	}
	if p.GoalExists, err = core.ParseFlag(a.GoalExists); err != nil {
		return core.FinancialProfile{}, &core.FieldError{Field: "goal_exists", Err: err}
	}
	return p, nil
}

// profileFile is the TOML layout of a saved profile. Every key is optional.
type profileFile struct {
	SavingsPercent      *float64 `toml:"savings_percent"`
	DebtPercent         *float64 `toml:"debt_percent"`
	SubscriptionPercent *float64 `toml:"subscription_percent"`
	WantsPercent        *float64 `toml:"wants_percent"`
	EmergencyFund       *float64 `toml:"emergency_fund"`
	Savings             *float64 `toml:"savings"`
	GoalAmount          *float64 `toml:"goal_amount"`
	ExpensesTracking    *bool    `toml:"expenses_tracking"`
	GoalExists          *bool    `toml:"goal_exists"`
}

// LoadProfileFile reads a profile from a TOML file. Unknown keys are
// rejected so a typo does not silently leave a field unanswered.
func LoadProfileFile(path string) (core.FinancialProfile, error) {
	var f profileFile
	md, err := toml.DecodeFile(path, &f)
	if err != nil {
		return core.FinancialProfile{}, fmt.Errorf("decode profile %s: %w", path, err)
	}
	return f.profile(md)
}

// ParseProfileTOML is LoadProfileFile for in-memory data.
func ParseProfileTOML(data string) (core.FinancialProfile, error) {
	var f profileFile
	md, err := toml.Decode(data, &f)
	if err != nil {
		return core.FinancialProfile{}, fmt.Errorf("decode profile: %w", err)
	}
	return f.profile(md)
}

func (f profileFile) profile(md toml.MetaData) (core.FinancialProfile, error) {
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return core.FinancialProfile{}, fmt.Errorf("unknown profile keys: %s", strings.Join(keys, ", "))
	}

	p := core.FinancialProfile{
		SavingsPercent:      fromFloat(f.SavingsPercent),
		DebtPercent:         fromFloat(f.DebtPercent),
		SubscriptionPercent: fromFloat(f.SubscriptionPercent),
		WantsPercent:        fromFloat(f.WantsPercent),
		EmergencyFund:       fromFloat(f.EmergencyFund),
		Savings:             fromFloat(f.Savings),
		GoalAmount:          fromFloat(f.GoalAmount),
		ExpensesTracking:    f.ExpensesTracking,
		GoalExists:          f.GoalExists,
	}
	if err := p.Validate(); err != nil {
		return core.FinancialProfile{}, err
	}
	return p, nil
}

func fromFloat(v *float64) *decimal.Decimal {
	if v == nil {
		return nil
	}
	return core.Num(*v)
}

// ErrAborted is returned when the user quits the interactive form.
var ErrAborted = errors.New("profile entry aborted")

// PromptProfile asks for each answer in a terminal form. Answers already
// present in seed are used as defaults.
func PromptProfile(seed Answers) (core.FinancialProfile, error) {
	a := seed
	percent := func(s string) error { _, err := core.ParsePercent(s); return err }
	amount := func(s string) error { _, err := core.ParseAmount(s); return err }

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().Title("Savings (% of income)").Value(&a.SavingsPercent).Validate(percent),
			huh.NewInput().Title("Debt payments (% of income)").Value(&a.DebtPercent).Validate(percent),
			huh.NewInput().Title("Subscriptions (% of income)").Value(&a.SubscriptionPercent).Validate(percent),
			huh.NewInput().Title("Wants (% of income)").Value(&a.WantsPercent).Validate(percent),
			huh.NewInput().Title("Emergency fund").Value(&a.EmergencyFund).Validate(amount),
			yesNo("Do you track your expenses?", &a.ExpensesTracking),
		),
		huh.NewGroup(
			yesNo("Are you saving toward a goal?", &a.GoalExists),
			huh.NewInput().Title("Saved so far").Value(&a.Savings).Validate(amount),
			huh.NewInput().Title("Goal amount").Value(&a.GoalAmount).Validate(amount),
		),
	)
	if err := form.Run(); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return core.FinancialProfile{}, ErrAborted
		}
		return core.FinancialProfile{}, err
	}
	return a.Profile()
}

func yesNo(title string, dst *string) *huh.Select[string] {
	return huh.NewSelect[string]().
		Title(title).
		Options(
			huh.NewOption("Skip", ""),
			huh.NewOption("Yes", "yes"),
			huh.NewOption("No", "no"),
		).
		Value(dst)
}

// PromptPassword asks for a password without echoing it.
func PromptPassword(title string) (string, error) {
	var pw string
	err := huh.NewInput().
		Title(title).
		EchoMode(huh.EchoModePassword).
		Value(&pw).
		Run()
	if errors.Is(err, huh.ErrUserAborted) {
		return "", ErrAborted
	}
	return pw, err
}
