// Package tracker maintains per-field value, validity and completion state
// and recomputes aggregate progress. Completion and validation are kept
// separate: a field can hold a non-empty value and still carry validation
// errors, which block the advance action without touching the stored value.
package tracker

import (
	"fmt"
	"math"
	"strings"

	"github.com/formflow/mcp-form-wizard/internal/field"
)

// Progress summarizes completion over the required-fields subset
type Progress struct {
	Completed  int `json:"completed"`
	Total      int `json:"total"`
	Percentage int `json:"percentage"`
}

// Rule is a pluggable validation rule applied after each value change
type Rule interface {
	// Name identifies the rule in surfaced messages
	Name() string
	// Validate returns human-readable problems with the field's current
	// value, or nil when the rule does not apply or the value passes.
	Validate(f field.Field) []string
}

// Tracker owns the field set of one document session: values, the
// completed-ID set and validation errors are all derived here so no second
// store can drift out of sync.
type Tracker struct {
	fields    []field.Field
	index     map[string]int
	completed map[string]bool
	errors    map[string][]string
	rules     []Rule
}

// New creates an empty tracker with the given validation rules
func New(rules ...Rule) *Tracker {
	return &Tracker{
		index:     make(map[string]int),
		completed: make(map[string]bool),
		errors:    make(map[string][]string),
		rules:     rules,
	}
}

// AddFields appends one extraction pass worth of fields, preserving
// extraction order. Fields whose ID is already present are ignored, so
// re-running a page extraction is harmless.
func (t *Tracker) AddFields(fields []field.Field) {
	for _, f := range fields {
		if _, exists := t.index[f.ID]; exists {
			continue
		}
		t.index[f.ID] = len(t.fields)
		t.fields = append(t.fields, f)
		t.refresh(f.ID)
	}
}

// Fields returns the tracked fields in extraction order
func (t *Tracker) Fields() []field.Field {
	out := make([]field.Field, len(t.fields))
	copy(out, t.fields)
	return out
}

// Get returns a tracked field by ID
func (t *Tracker) Get(id string) (field.Field, bool) {
	i, ok := t.index[id]
	if !ok {
		return field.Field{}, false
	}
	return t.fields[i], true
}

// SetValue stores a new value for a field and re-derives its completeness
// and validation state. Setting the same value twice is idempotent. The
// value is stored even when validation fails; validation only gates the
// wizard's advance action.
func (t *Tracker) SetValue(id string, value field.Value) error {
	i, ok := t.index[id]
	if !ok {
		return fmt.Errorf("unknown field: %s", id)
	}
	if t.fields[i].ReadOnly {
		return fmt.Errorf("field %s is read-only", id)
	}

	t.fields[i].Value = value
	t.refresh(id)
	return nil
}

// IsComplete reports whether a field currently satisfies its kind-specific
// emptiness rule. Unknown fields are never incomplete.
func (t *Tracker) IsComplete(id string) bool {
	return t.completed[id]
}

// CompletedIDs returns the completed-field set keyed by field ID
func (t *Tracker) CompletedIDs() map[string]bool {
	out := make(map[string]bool, len(t.completed))
	for id, done := range t.completed {
		if done {
			out[id] = true
		}
	}
	return out
}

// ValidationErrors returns the current validation problems of a field
func (t *Tracker) ValidationErrors(id string) []string {
	return t.errors[id]
}

// HasValidationErrors reports whether any problem is recorded for the field
func (t *Tracker) HasValidationErrors(id string) bool {
	return len(t.errors[id]) > 0
}

// Progress computes completion over the required subset only. Read-only
// fields count on neither side, and a document with no required fields is
// vacuously 100% complete.
func (t *Tracker) Progress() Progress {
	var total, completed int
	for _, f := range t.fields {
		if !f.Required || !f.Interactive() {
			continue
		}
		total++
		if t.completed[f.ID] {
			completed++
		}
	}

	percentage := 100
	if total > 0 {
		percentage = int(math.Round(float64(completed) / float64(total) * 100))
	}
	return Progress{Completed: completed, Total: total, Percentage: percentage}
}

// refresh recomputes the derived completion and validation state of one
// field. Derived state is never mutated anywhere else.
func (t *Tracker) refresh(id string) {
	i := t.index[id]
	f := t.fields[i]

	t.completed[id] = kindComplete(f)

	var problems []string
	if !f.Value.IsZero() {
		for _, rule := range t.rules {
			problems = append(problems, rule.Validate(f)...)
		}
	}
	if len(problems) > 0 {
		t.errors[id] = problems
	} else {
		delete(t.errors, id)
	}
}

// kindComplete applies the kind-specific emptiness rule
func kindComplete(f field.Field) bool {
	if f.ReadOnly || f.Kind == field.KindUnknown {
		return true
	}
	switch f.Kind {
	case field.KindCheckbox:
		// Absence of interaction is a valid false value
		return true
	case field.KindRadio, field.KindDropdown:
		return f.Value.Text != "" || len(f.Value.Selected) > 0
	case field.KindSignature:
		return f.Value.Text != ""
	default: // text, date
		return strings.TrimSpace(f.Value.Text) != ""
	}
}
