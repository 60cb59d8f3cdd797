// Package field defines the canonical form-field entity and the extractor
// that normalizes raw widget annotations into it.
package field

import (
	"fmt"
	"strings"

	"github.com/formflow/mcp-form-wizard/internal/geometry"
)

// Kind classifies a form field. Behavior differs only in validation and
// value shape, not in identity.
type Kind string

const (
	KindText      Kind = "text"
	KindCheckbox  Kind = "checkbox"
	KindRadio     Kind = "radio"
	KindDropdown  Kind = "dropdown"
	KindSignature Kind = "signature"
	KindDate      Kind = "date"
	KindUnknown   Kind = "unknown"
)

// Value holds a field's current value. Which member is meaningful is
// selected by the field kind: Text for text, date, radio, dropdown and
// signature payloads, Checked for checkboxes, Selected for multi-select
// dropdowns.
type Value struct {
	Text     string   `json:"text,omitempty"`
	Checked  bool     `json:"checked,omitempty"`
	Selected []string `json:"selected,omitempty"`
}

// IsZero reports whether the value carries no user input
func (v Value) IsZero() bool {
	return v.Text == "" && !v.Checked && len(v.Selected) == 0
}

// Field is one form control on one page. The rectangle is normalized on
// ingestion, so X1<=X2 and Y1<=Y2 always hold here.
type Field struct {
	ID       string           `json:"id"`
	Name     string           `json:"name"`
	Page     int              `json:"page"` // 1-based
	Kind     Kind             `json:"kind"`
	Rect     geometry.DocRect `json:"rect"`
	Required bool             `json:"required"`
	ReadOnly bool             `json:"read_only"`
	Options  []string         `json:"options,omitempty"`
	MaxLen   int              `json:"max_len,omitempty"`
	Value    Value            `json:"value"`
}

// InSignatureSet reports whether the field belongs to the signature subset.
// Signature membership goes beyond the explicit kind: a field whose name
// suggests a signature is tracked for completion even when the source
// document types it as something else. The name match is a heuristic and
// can misfire on names like "Assignee".
func (f *Field) InSignatureSet() bool {
	return f.Kind == KindSignature || nameSuggestsSignature(f.Name)
}

// Interactive reports whether the wizard should route the user through
// this field. Unknown kinds render inert and read-only fields take no
// input.
func (f *Field) Interactive() bool {
	return f.Kind != KindUnknown && !f.ReadOnly
}

// nameSuggestsSignature checks the field name for signature hints
func nameSuggestsSignature(name string) bool {
	lower := strings.ToLower(name)
	return strings.Contains(lower, "signature") || strings.Contains(lower, "sign")
}

// nameSuggestsDate checks the field name for date hints
func nameSuggestsDate(name string) bool {
	return strings.Contains(strings.ToLower(name), "date")
}

// makeID derives a stable field identity from page, annotation index and
// name. Two extraction passes over the same document yield the same IDs.
func makeID(pageNumber, index int, name string) string {
	slug := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			return r
		case r >= 'A' && r <= 'Z':
			return r + ('a' - 'A')
		default:
			return '_'
		}
	}, name)
	if slug == "" {
		slug = "field"
	}
	return fmt.Sprintf("p%d_a%d_%s", pageNumber, index, slug)
}
