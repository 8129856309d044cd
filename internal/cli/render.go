package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"budgetadvisor/internal/advisor"
	"budgetadvisor/internal/core"
	"budgetadvisor/internal/services"
)

// Palette
var (
	ColorBorder = lipgloss.Color("#3A3A3A")
	ColorText   = lipgloss.Color("#EDEDED")
	ColorMuted  = lipgloss.Color("#8A8A8A")
	ColorAccent = lipgloss.Color("#3AA99F")
	ColorGood   = lipgloss.Color("#879A39")
	ColorWarn   = lipgloss.Color("#DA702C")
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorText).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorBorder).
			Padding(0, 2)

	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(ColorAccent).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Foreground(ColorText).Padding(0, 1)
	mutedStyle  = lipgloss.NewStyle().Foreground(ColorMuted)
	goodStyle   = lipgloss.NewStyle().Foreground(ColorGood)
	warnStyle   = lipgloss.NewStyle().Foreground(ColorWarn)
)

// Table is a bordered table for terminal output.
type Table struct {
	Title   string
	Headers []string
	Rows    [][]string
}

// RenderTitle renders title in a rounded box.
func RenderTitle(title string) string {
	return titleStyle.Render(title)
}

// RenderTable renders t, or the empty string if it has no content.
func RenderTable(t Table) string {
	if len(t.Headers) == 0 && len(t.Rows) == 0 {
		return ""
	}

	tbl := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(ColorBorder)).
		Headers(t.Headers...).
		Rows(t.Rows...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})

	var b strings.Builder
	if t.Title != "" {
		b.WriteString(headerStyle.Render(t.Title))
		b.WriteString("\n")
	}
	b.WriteString(tbl.Render())
	b.WriteString("\n")
	return b.String()
}

// RenderAdvice renders an evaluation result, one message per line.
func RenderAdvice(res services.AdviceResult) string {
	var b strings.Builder
	if res.Healthy {
		b.WriteString(goodStyle.Render(advisor.HealthyMessage))
		b.WriteString("\n")
	} else {
		for _, msg := range res.Messages() {
			b.WriteString(warnStyle.Render(msg))
			b.WriteString("\n")
		}
	}
	if res.Saved {
		b.WriteString(mutedStyle.Render(fmt.Sprintf("Saved to history as entry #%d", res.EntryID)))
		b.WriteString("\n")
	}
	return b.String()
}

// RulesTable lists the rule catalog in evaluation order.
func RulesTable(rules []advisor.Rule) Table {
	t := Table{Title: "Rules", Headers: []string{"#", "Rule", "Fires when"}}
	for i, r := range rules {
		t.Rows = append(t.Rows, []string{fmt.Sprint(i + 1), string(r.ID), r.Description})
	}
	return t
}

// HistoryTable lists history entries. Multi-line advice is flattened.
func HistoryTable(entries []core.HistoryEntry) Table {
	t := Table{
		Title:   "History",
		Headers: []string{"#", "When", "Savings %", "Debt %", "Wants %", "Fund", "Advice"},
	}
	for _, e := range entries {
		t.Rows = append(t.Rows, []string{
			fmt.Sprint(e.ID),
			e.CreatedAt.Local().Format("2006-01-02 15:04"),
			core.FormatDecimal(e.Profile.SavingsPercent),
			core.FormatDecimal(e.Profile.DebtPercent),
			core.FormatDecimal(e.Profile.WantsPercent),
			core.FormatDecimal(e.Profile.EmergencyFund),
			strings.ReplaceAll(e.AdviceText, "\n", " "),
		})
	}
	return t
}
