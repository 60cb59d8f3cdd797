package tracker

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/formflow/mcp-form-wizard/internal/field"
)

// DefaultRules returns the validation rules wired into a standard session
func DefaultRules() []Rule {
	return []Rule{
		EmailRule{},
		MaxLenRule{},
		DateRule{},
	}
}

var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// EmailRule validates text fields whose name suggests an email address
type EmailRule struct{}

// Name implements Rule
func (EmailRule) Name() string { return "email" }

// Validate implements Rule
func (EmailRule) Validate(f field.Field) []string {
	if f.Kind != field.KindText || !strings.Contains(strings.ToLower(f.Name), "email") {
		return nil
	}
	value := strings.TrimSpace(f.Value.Text)
	if value == "" || emailPattern.MatchString(value) {
		return nil
	}
	return []string{fmt.Sprintf("%s is not a valid email address", value)}
}

// MaxLenRule enforces the source document's own maximum-length entry
type MaxLenRule struct{}

// Name implements Rule
func (MaxLenRule) Name() string { return "maxlen" }

// Validate implements Rule
func (MaxLenRule) Validate(f field.Field) []string {
	if f.MaxLen <= 0 {
		return nil
	}
	if n := len([]rune(f.Value.Text)); n > f.MaxLen {
		return []string{fmt.Sprintf("value is %d characters, maximum is %d", n, f.MaxLen)}
	}
	return nil
}

// dateLayouts covers the formats date fields commonly arrive in
var dateLayouts = []string{
	"2006-01-02",
	"01/02/2006",
	"1/2/2006",
	"02.01.2006",
	"January 2, 2006",
	"Jan 2, 2006",
}

// DateRule validates that date fields hold a parseable date
type DateRule struct{}

// Name implements Rule
func (DateRule) Name() string { return "date" }

// Validate implements Rule
func (DateRule) Validate(f field.Field) []string {
	if f.Kind != field.KindDate {
		return nil
	}
	value := strings.TrimSpace(f.Value.Text)
	if value == "" {
		return nil
	}
	for _, layout := range dateLayouts {
		if _, err := time.Parse(layout, value); err == nil {
			return nil
		}
	}
	return []string{fmt.Sprintf("%s is not a recognized date", value)}
}
