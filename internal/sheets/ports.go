package sheets

import (
	"context"

	"budgetadvisor/internal/core"
)

// Ports for outbound adapters.
type (
	// AdviceExporter appends a history entry to an external spreadsheet and
	// returns a reference to the written row.
	AdviceExporter interface {
		ExportAdvice(ctx context.Context, e core.HistoryEntry) (rowRef string, err error)
	}
)

// Header is the column layout shared by every exporter.
var Header = []string{
	"Created At", "User", "Savings %", "Debt %", "Subscriptions %", "Tracks Expenses",
	"Emergency Fund", "Wants %", "Has Goal", "Savings", "Goal Amount", "Advice",
}

// Row renders an entry in Header order. Absent fields are empty cells.
func Row(e core.HistoryEntry) []string {
	p := e.Profile
	return []string{
		e.CreatedAt.UTC().Format("2006-01-02 15:04:05"),
		e.Username,
		cell(core.FormatDecimal(p.SavingsPercent)),
		cell(core.FormatDecimal(p.DebtPercent)),
		cell(core.FormatDecimal(p.SubscriptionPercent)),
		cell(core.FormatFlag(p.ExpensesTracking)),
		cell(core.FormatDecimal(p.EmergencyFund)),
		cell(core.FormatDecimal(p.WantsPercent)),
		cell(core.FormatFlag(p.GoalExists)),
		cell(core.FormatDecimal(p.Savings)),
		cell(core.FormatDecimal(p.GoalAmount)),
		e.AdviceText,
	}
}

func cell(s string) string {
	if s == "-" {
		return ""
	}
	return s
}
