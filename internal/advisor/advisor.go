// Package advisor evaluates a financial profile against a fixed, ordered set
// of threshold rules and returns the advice that applies.
//
// Every rule reads only the input profile. Rules never see each other's
// output, so evaluation is a single pass in catalog order.
package advisor

import (
	"strings"

	"github.com/shopspring/decimal"

	"budgetadvisor/internal/core"
)

// RuleID identifies a rule in the catalog.
type RuleID string

const (
	RuleLowSavings          RuleID = "low_savings"
	RuleHighDebt            RuleID = "high_debt"
	RuleEncourageInvestment RuleID = "encourage_investment"
	RuleTrackExpenses       RuleID = "track_expenses"
	RuleReduceSubscriptions RuleID = "reduce_subscriptions"
	RuleLowEmergencyFund    RuleID = "low_emergency_fund"
	RuleGoalSavingsPlan     RuleID = "goal_savings_plan"
	RuleHighWants           RuleID = "high_wants"
)

// HealthyMessage is shown when no rule fires. It is not a rule.
const HealthyMessage = "✅ Your budgeting looks healthy. Keep it up!"

// Advice is one fired rule.
type Advice struct {
	Rule    RuleID
	Message string
}

// Rule is a catalog entry. Description states the trigger in words.
type Rule struct {
	ID          RuleID
	Description string
	Message     string
	applies     func(core.FinancialProfile) bool
}

var (
	ten     = decimal.NewFromInt(10)
	twenty  = decimal.NewFromInt(20)
	thirty  = decimal.NewFromInt(30)
	minFund = decimal.NewFromInt(500)
)

var catalog = []Rule{
	{
		ID:          RuleLowSavings,
		Description: "savings percent below 10",
		Message:     "⚠️ Your savings are below 10% of your income.",
		applies:     func(p core.FinancialProfile) bool { return lessThan(p.SavingsPercent, ten) },
	},
	{
		ID:          RuleHighDebt,
		Description: "debt percent above 20",
		Message:     "⚠️ More than 20% of your income goes to debt repayment.",
		applies:     func(p core.FinancialProfile) bool { return greaterThan(p.DebtPercent, twenty) },
	},
	{
		ID:          RuleEncourageInvestment,
		Description: "savings percent above 20",
		Message:     "✅ Consider investment as part of your savings.",
		applies:     func(p core.FinancialProfile) bool { return greaterThan(p.SavingsPercent, twenty) },
	},
	{
		ID:          RuleTrackExpenses,
		Description: "expenses are not tracked",
		Message:     "📌 Track daily expenses to manage your budget better.",
		applies:     func(p core.FinancialProfile) bool { return isFalse(p.ExpensesTracking) },
	},
	{
		ID:          RuleReduceSubscriptions,
		Description: "subscription percent above 10",
		Message:     "📌 Reduce unnecessary subscriptions.",
		applies:     func(p core.FinancialProfile) bool { return greaterThan(p.SubscriptionPercent, ten) },
	},
	{
		ID:          RuleLowEmergencyFund,
		Description: "emergency fund below 500",
		Message:     "📌 Build an emergency fund for unexpected expenses.",
		applies:     func(p core.FinancialProfile) bool { return lessThan(p.EmergencyFund, minFund) },
	},
	{
		ID:          RuleGoalSavingsPlan,
		Description: "a goal exists and current savings are below the goal amount",
		Message:     "📌 Create a monthly savings plan to reach your goal.",
		applies: func(p core.FinancialProfile) bool {
			if !isTrue(p.GoalExists) || p.Savings == nil || p.GoalAmount == nil {
				return false
			}
			return p.Savings.LessThan(*p.GoalAmount)
		},
	},
	{
		ID:          RuleHighWants,
		Description: "wants percent above 30",
		Message:     "⚠️ Too much spending on non-essentials.",
		applies:     func(p core.FinancialProfile) bool { return greaterThan(p.WantsPercent, thirty) },
	},
}

// Engine evaluates profiles against a rule set. The zero value is not
// usable; call NewEngine.
type Engine struct {
	rules []Rule
}

// NewEngine returns an engine over the built-in catalog.
func NewEngine() *Engine {
	return &Engine{rules: catalog}
}

// Evaluate returns the advice for p in catalog order. Absent fields never
// trigger a rule. The result is a fresh slice and is empty, not nil, when
// nothing fires.
func (e *Engine) Evaluate(p core.FinancialProfile) []Advice {
	out := make([]Advice, 0, len(e.rules))
	for _, r := range e.rules {
		if r.applies(p) {
			out = append(out, Advice{Rule: r.ID, Message: r.Message})
		}
	}
	return out
}

// Rules returns a copy of the engine's catalog.
func (e *Engine) Rules() []Rule {
	out := make([]Rule, len(e.rules))
	copy(out, e.rules)
	return out
}

var defaultEngine = NewEngine()

// Evaluate runs the built-in catalog against p.
func Evaluate(p core.FinancialProfile) []Advice {
	return defaultEngine.Evaluate(p)
}

// Rules returns a copy of the built-in catalog.
func Rules() []Rule {
	return defaultEngine.Rules()
}

// Messages extracts the message text of each advice, preserving order.
func Messages(advice []Advice) []string {
	out := make([]string, len(advice))
	for i, a := range advice {
		out[i] = a.Message
	}
	return out
}

// JoinMessages renders advice as newline-separated text, the form stored in
// history. It returns HealthyMessage when advice is empty.
func JoinMessages(advice []Advice) string {
	if len(advice) == 0 {
		return HealthyMessage
	}
	return strings.Join(Messages(advice), "\n")
}

func lessThan(v *decimal.Decimal, limit decimal.Decimal) bool {
	return v != nil && v.LessThan(limit)
}

func greaterThan(v *decimal.Decimal, limit decimal.Decimal) bool {
	return v != nil && v.GreaterThan(limit)
}

func isTrue(b *bool) bool  { return b != nil && *b }
func isFalse(b *bool) bool { return b != nil && !*b }
