package http

import (
	"errors"
	"html/template"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"budgetadvisor/internal/core"
)

// sanitizeInput removes control characters except tab, newline and
// carriage return, and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}

// isHTMX reports whether the request came from htmx.
func isHTMX(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}

// fieldLabels maps a form field name to the label shown next to it.
var fieldLabels = map[string]string{
	FieldSavingsPercent:      "Savings (% of income)",
	FieldDebtPercent:         "Debt repayment (% of income)",
	FieldSubscriptionPercent: "Subscriptions (% of income)",
	FieldExpensesTracking:    "I track my daily expenses",
	FieldEmergencyFund:       "Emergency fund",
	FieldWantsPercent:        "Wants (% of income)",
	FieldGoalExists:          "I have a savings goal",
	FieldSavings:             "Current savings",
	FieldGoalAmount:          "Goal amount",
}

// describeProfileError turns a validation error into a message for the form.
func describeProfileError(err error) string {
	var fe *core.FieldError
	if errors.As(err, &fe) {
		label, ok := fieldLabels[fe.Field]
		if !ok {
			label = fe.Field
		}
		return label + ": " + fe.Err.Error()
	}
	return "Invalid input"
}

var templateFuncs = template.FuncMap{
	"decimal": func(d *decimal.Decimal) string { return core.FormatDecimal(d) },
	"flag":    func(b *bool) string { return core.FormatFlag(b) },
	"datetime": func(t time.Time) string {
		if t.IsZero() {
			return "-"
		}
		return t.Local().Format("2006-01-02 15:04")
	},
	"lines": func(s string) []string { return strings.Split(s, "\n") },
}
