package sequence

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/formflow/mcp-form-wizard/internal/field"
	"github.com/formflow/mcp-form-wizard/internal/geometry"
)

// rect places a field by its top-left corner in document space
func rect(left, top float64) geometry.DocRect {
	return geometry.DocRect{X1: left, Y1: top - 20, X2: left + 100, Y2: top}
}

func TestOrderFields(t *testing.T) {
	tests := []struct {
		name   string
		fields []field.Field
		want   []string
	}{
		{
			name: "pages before position",
			fields: []field.Field{
				{ID: "p2", Page: 2, Rect: rect(10, 700)},
				{ID: "p1", Page: 1, Rect: rect(10, 100)},
			},
			want: []string{"p1", "p2"},
		},
		{
			name: "higher field first within a page",
			fields: []field.Field{
				{ID: "low", Page: 1, Rect: rect(10, 100)},
				{ID: "high", Page: 1, Rect: rect(10, 700)},
			},
			want: []string{"high", "low"},
		},
		{
			name: "left to right within a row",
			fields: []field.Field{
				{ID: "right", Page: 1, Rect: rect(300, 700)},
				{ID: "left", Page: 1, Rect: rect(10, 700)},
			},
			want: []string{"left", "right"},
		},
		{
			name: "tops within tolerance count as one row",
			fields: []field.Field{
				// b sits 5 units higher than a but far to the right;
				// within the row tolerance the left field goes first
				{ID: "b", Page: 1, Rect: rect(300, 705)},
				{ID: "a", Page: 1, Rect: rect(10, 700)},
			},
			want: []string{"a", "b"},
		},
		{
			name: "tops beyond tolerance form separate rows",
			fields: []field.Field{
				{ID: "a", Page: 1, Rect: rect(10, 700)},
				{ID: "b", Page: 1, Rect: rect(300, 715)},
			},
			want: []string{"b", "a"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ordered := OrderFields(tt.fields)
			got := make([]string, len(ordered))
			for i, f := range ordered {
				got[i] = f.ID
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestOrderFieldsIdempotent(t *testing.T) {
	fields := []field.Field{
		{ID: "c", Page: 2, Rect: rect(10, 700)},
		{ID: "a", Page: 1, Rect: rect(10, 700)},
		{ID: "b", Page: 1, Rect: rect(200, 700)},
	}

	once := OrderFields(fields)
	twice := OrderFields(once)
	assert.Equal(t, once, twice)

	// The input slice is never mutated
	assert.Equal(t, "c", fields[0].ID)
}

func TestRequiredFields(t *testing.T) {
	fields := []field.Field{
		{ID: "req", Page: 1, Kind: field.KindText, Required: true, Rect: rect(10, 700)},
		{ID: "optional", Page: 1, Kind: field.KindText, Rect: rect(10, 600)},
		{ID: "readonly", Page: 1, Kind: field.KindText, Required: true, ReadOnly: true, Rect: rect(10, 500)},
		{ID: "inert", Page: 1, Kind: field.KindUnknown, Required: true, Rect: rect(10, 400)},
	}

	required := RequiredFields(fields)
	require.Len(t, required, 1)
	assert.Equal(t, "req", required[0].ID)
}

func TestSignatureFields(t *testing.T) {
	fields := []field.Field{
		{ID: "sig", Page: 2, Kind: field.KindSignature, Rect: rect(10, 100)},
		{ID: "named", Page: 1, Name: "Signature of Applicant", Kind: field.KindText, Rect: rect(10, 100)},
		{ID: "plain", Page: 1, Kind: field.KindText, Rect: rect(10, 200)},
	}

	signatures := SignatureFields(fields)
	require.Len(t, signatures, 2)
	assert.Equal(t, "named", signatures[0].ID)
	assert.Equal(t, "sig", signatures[1].ID)
}

func TestNextField(t *testing.T) {
	fields := []field.Field{
		{ID: "name", Page: 1, Kind: field.KindText, Required: true, Rect: rect(10, 700)},
		{ID: "email", Page: 1, Kind: field.KindText, Required: true, Rect: rect(10, 600)},
		{ID: "sig", Page: 2, Kind: field.KindSignature, Rect: rect(10, 100)},
	}

	tests := []struct {
		name      string
		completed map[string]bool
		want      string
		wantNil   bool
	}{
		{
			name:      "first required field when nothing complete",
			completed: map[string]bool{},
			want:      "name",
		},
		{
			name:      "skips completed required fields",
			completed: map[string]bool{"name": true},
			want:      "email",
		},
		{
			name:      "signature subset after required subset",
			completed: map[string]bool{"name": true, "email": true},
			want:      "sig",
		},
		{
			name:      "nil only when everything is complete",
			completed: map[string]bool{"name": true, "email": true, "sig": true},
			wantNil:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next := NextField(fields, tt.completed)
			if tt.wantNil {
				assert.Nil(t, next)
				return
			}
			require.NotNil(t, next)
			assert.Equal(t, tt.want, next.ID)
		})
	}
}
