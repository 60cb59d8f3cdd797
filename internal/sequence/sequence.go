// Package sequence establishes the deterministic traversal order the
// wizard uses to pick the next field: page by page, top of page first,
// left to right within a visual row.
package sequence

import (
	"sort"

	"github.com/formflow/mcp-form-wizard/internal/field"
)

// RowTolerance is the vertical distance in document units within which two
// fields count as sitting on the same visual row.
const RowTolerance = 10.0

// OrderFields returns a new slice sorted into traversal order. The sort is
// stable, so repeated calls over the same input yield the same sequence
// and ordering an already-ordered slice is a no-op.
func OrderFields(fields []field.Field) []field.Field {
	ordered := make([]field.Field, len(fields))
	copy(ordered, fields)

	sort.SliceStable(ordered, func(i, j int) bool {
		a, b := ordered[i], ordered[j]
		if a.Page != b.Page {
			return a.Page < b.Page
		}
		// Document Y increases upward, so the visually higher field has
		// the larger top coordinate.
		dy := a.Rect.Top() - b.Rect.Top()
		if dy > RowTolerance {
			return true
		}
		if dy < -RowTolerance {
			return false
		}
		return a.Rect.Left() < b.Rect.Left()
	})

	return ordered
}

// RequiredFields returns the ordered subset the wizard must route the user
// through before signing. Read-only and inert fields never appear here.
func RequiredFields(fields []field.Field) []field.Field {
	var required []field.Field
	for _, f := range OrderFields(fields) {
		if f.Required && f.Interactive() {
			required = append(required, f)
		}
	}
	return required
}

// SignatureFields returns the ordered signature subset. Membership follows
// the field's signature classification, not its required flag.
func SignatureFields(fields []field.Field) []field.Field {
	var signatures []field.Field
	for _, f := range OrderFields(fields) {
		if f.InSignatureSet() && f.Interactive() {
			signatures = append(signatures, f)
		}
	}
	return signatures
}

// NextField returns the next incomplete field in traversal order: the
// required subset first, then the signature subset once every required
// field is complete. It returns nil only when both subsets are fully
// complete.
func NextField(fields []field.Field, completed map[string]bool) *field.Field {
	for _, f := range RequiredFields(fields) {
		if !completed[f.ID] {
			next := f
			return &next
		}
	}
	for _, f := range SignatureFields(fields) {
		if !completed[f.ID] {
			next := f
			return &next
		}
	}
	return nil
}
