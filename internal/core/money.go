// Package core provides the domain types and input parsing shared by the
// web form, the CLI and the stores.
//
// This file contains functions for parsing percentages, money amounts and
// yes/no answers from user input.
package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

// ParseAmount converts user input to a non-negative decimal amount.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators. A comma
// that could be a thousands separator is rejected rather than guessed, so
// "1,000" and "1.000,50" fail with ErrAmbiguousNumber. An empty string means
// "not answered" and yields (nil, nil) so the field stays absent.
//
// Examples:
//
//	ParseAmount("500")    -> 500, nil
//	ParseAmount("12,50")  -> 12.5, nil
//	ParseAmount("1,000")  -> nil, ErrAmbiguousNumber
//	ParseAmount("")       -> nil, nil
//	ParseAmount("-1")     -> nil, ErrNegativeAmount
func ParseAmount(s string) (*decimal.Decimal, error) {
	d, err := parseDecimal(s)
	if err != nil || d == nil {
		return nil, err
	}
	if err := validateAmount(d); err != nil {
		return nil, err
	}
	return d, nil
}

// ParsePercent converts user input to a percentage in [0,100].
// A trailing "%" is tolerated. Empty input yields (nil, nil).
func ParsePercent(s string) (*decimal.Decimal, error) {
	s = strings.TrimSuffix(strings.TrimSpace(s), "%")
	d, err := parseDecimal(s)
	if err != nil || d == nil {
		return nil, err
	}
	if err := validatePercent(d); err != nil {
		return nil, err
	}
	return d, nil
}

// ParseFlag converts a checkbox or yes/no answer to a bool.
// Empty input yields (nil, nil).
func ParseFlag(s string) (*bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return nil, nil
	case "on", "true", "1", "yes", "y":
		return Bool(true), nil
	case "off", "false", "0", "no", "n":
		return Bool(false), nil
	default:
		return nil, ErrInvalidFlag
	}
}

func parseDecimal(s string) (*decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	if strings.Contains(s, ",") {
		if err := checkDecimalComma(s); err != nil {
			return nil, err
		}
		s = strings.Replace(s, ",", ".", 1)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil, ErrInvalidNumber
	}
	return &d, nil
}

// checkDecimalComma accepts a single comma as the decimal separator only
// when it cannot be read as thousands grouping.
func checkDecimalComma(s string) error {
	if strings.Count(s, ",") > 1 {
		return ErrInvalidNumber
	}
	if strings.Contains(s, ".") {
		return ErrAmbiguousNumber
	}
	whole, frac, _ := strings.Cut(s, ",")
	whole = strings.TrimLeft(whole, "+-")
	if len(frac) == 3 && whole != "" && whole != "0" {
		return ErrAmbiguousNumber
	}
	return nil
}

// FormatDecimal renders an optional value for display, "-" when absent.
func FormatDecimal(d *decimal.Decimal) string {
	if d == nil {
		return "-"
	}
	return d.String()
}

// FormatFlag renders an optional bool for display, "-" when absent.
func FormatFlag(b *bool) string {
	if b == nil {
		return "-"
	}
	if *b {
		return "yes"
	}
	return "no"
}
