// Package http provides HTTP server and handler implementations.
//
// This file turns submitted form or JSON bodies into domain values.

package http

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"budgetadvisor/internal/core"
)

// Profile form field names.
const (
	FieldSavingsPercent      = "savings_percent"
	FieldDebtPercent         = "debt_percent"
	FieldSubscriptionPercent = "subscription_percent"
	FieldExpensesTracking    = "expenses_tracking"
	FieldEmergencyFund       = "emergency_fund"
	FieldWantsPercent        = "wants_percent"
	FieldGoalExists          = "goal_exists"
	FieldSavings             = "savings"
	FieldGoalAmount          = "goal_amount"

	// presentSuffix marks a checkbox that was rendered, so a missing value
	// means "unchecked" rather than "not supplied".
	presentSuffix = "_present"
)

const maxBodyBytes = 64 << 10

// ParseProfile builds a FinancialProfile from submitted values. Empty
// numeric fields stay absent. The first malformed field is returned as a
// *core.FieldError.
func ParseProfile(values url.Values) (core.FinancialProfile, error) {
	var p core.FinancialProfile
	var err error

	percents := []struct {
		name string
		dst  **decimal.Decimal
	}{
		{FieldSavingsPercent, &p.SavingsPercent},
		{FieldDebtPercent, &p.DebtPercent},
		{FieldSubscriptionPercent, &p.SubscriptionPercent},
		{FieldWantsPercent, &p.WantsPercent},
	}
	for _, f := range percents {
		if *f.dst, err = core.ParsePercent(values.Get(f.name)); err != nil {
			return core.FinancialProfile{}, &core.FieldError{Field: f.name, Err: err}
		}
	}

	amounts := []struct {
		name string
		dst  **decimal.Decimal
	}{
		{FieldEmergencyFund, &p.EmergencyFund},
		{FieldSavings, &p.Savings},
		{FieldGoalAmount, &p.GoalAmount},
	}
	for _, f := range amounts {
		if *f.dst, err = core.ParseAmount(values.Get(f.name)); err != nil {
			return core.FinancialProfile{}, &core.FieldError{Field: f.name, Err: err}
		}
	}

	flags := []struct {
		name string
		dst  **bool
	}{
		{FieldExpensesTracking, &p.ExpensesTracking},
		{FieldGoalExists, &p.GoalExists},
	}
	for _, f := range flags {
		if *f.dst, err = parseCheckbox(values, f.name); err != nil {
			return core.FinancialProfile{}, &core.FieldError{Field: f.name, Err: err}
		}
	}

	return p, nil
}

func parseCheckbox(values url.Values, name string) (*bool, error) {
	if v := values.Get(name); strings.TrimSpace(v) != "" {
		return core.ParseFlag(v)
	}
	if values.Get(name+presentSuffix) != "" {
		return core.Bool(false), nil
	}
	return nil, nil
}

// Credentials is a submitted username/password pair.
type Credentials struct {
	Username string
	Password string
	Confirm  string
}

// ParseCredentials reads the login/register form. The password is not
// trimmed.
func ParseCredentials(values url.Values) Credentials {
	return Credentials{
		Username: sanitizeInput(values.Get("username")),
		Password: values.Get("password"),
		Confirm:  values.Get("confirm"),
	}
}

// parseLimit reads a positive ?limit=, capped at max.
func parseLimit(query url.Values, def, max int) int {
	n, err := strconv.Atoi(strings.TrimSpace(query.Get("limit")))
	if err != nil || n <= 0 {
		return def
	}
	if n > max {
		return max
	}
	return n
}

// RequestBodyParser reads a body once and exposes it as url.Values,
// accepting both form-encoded data (HTMX) and a flat JSON object.
type RequestBodyParser struct {
	body        []byte
	contentType string
	values      url.Values
	isJSON      bool
	parsed      bool
	err         error
}

// NewRequestBodyParser reads at most 64 KiB of the request body.
func NewRequestBodyParser(w http.ResponseWriter, r *http.Request) *RequestBodyParser {
	p := &RequestBodyParser{contentType: r.Header.Get("Content-Type")}
	p.body, p.err = io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	return p
}

// Parse decodes the body. A JSON object is detected by its first byte.
func (p *RequestBodyParser) Parse() error {
	if p.parsed {
		return p.err
	}
	p.parsed = true

	if p.err != nil {
		return p.err
	}

	body := strings.TrimSpace(string(p.body))
	if body == "" {
		p.values = url.Values{}
		return nil
	}

	if body[0] == '{' {
		var data map[string]any
		if err := json.Unmarshal([]byte(body), &data); err != nil {
			p.err = fmt.Errorf("decode json body: %w", err)
			return p.err
		}
		p.isJSON = true
		p.values = url.Values{}
		for k, v := range data {
			if s := stringValue(v); s != "" {
				p.values.Set(k, s)
			}
		}
		return nil
	}

	p.values, p.err = url.ParseQuery(body)
	return p.err
}

// Values returns the decoded fields; call Parse first.
func (p *RequestBodyParser) Values() url.Values {
	if p.values == nil {
		return url.Values{}
	}
	return p.values
}

// IsJSON returns true if the parsed content was JSON.
func (p *RequestBodyParser) IsJSON() bool {
	return p.isJSON
}

// ContentType returns the Content-Type header value.
func (p *RequestBodyParser) ContentType() string {
	return p.contentType
}

func stringValue(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return ""
	}
}

// ParseFormOrFail parses the request form and returns an error response on failure.
// Returns nil on success.
func ParseFormOrFail(w http.ResponseWriter, r *http.Request) *HTMXResponseBuilder {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := r.ParseForm(); err != nil {
		return BadRequestError("Invalid request format")
	}
	return nil
}
