package field

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/formflow/mcp-form-wizard/internal/document"
	"github.com/formflow/mcp-form-wizard/internal/geometry"
)

func TestClassifyKind(t *testing.T) {
	tests := []struct {
		name  string
		annot document.RawAnnotation
		want  Kind
	}{
		{
			name:  "explicit text",
			annot: document.RawAnnotation{FieldType: "Tx", Name: "first_name"},
			want:  KindText,
		},
		{
			name:  "text with date name",
			annot: document.RawAnnotation{FieldType: "Tx", Name: "date_of_birth"},
			want:  KindDate,
		},
		{
			name:  "button defaults to checkbox",
			annot: document.RawAnnotation{FieldType: "Btn"},
			want:  KindCheckbox,
		},
		{
			name:  "button with radio flag",
			annot: document.RawAnnotation{FieldType: "Btn", IsRadio: true},
			want:  KindRadio,
		},
		{
			name:  "pushbutton carries no data",
			annot: document.RawAnnotation{FieldType: "Btn", IsPush: true},
			want:  KindUnknown,
		},
		{
			name:  "explicit choice",
			annot: document.RawAnnotation{FieldType: "Ch", Options: []string{"a", "b"}},
			want:  KindDropdown,
		},
		{
			name:  "explicit signature",
			annot: document.RawAnnotation{FieldType: "Sig"},
			want:  KindSignature,
		},
		{
			name:  "explicit type beats name heuristic",
			annot: document.RawAnnotation{FieldType: "Ch", Name: "signature_style"},
			want:  KindDropdown,
		},
		{
			name:  "no type with radio flag",
			annot: document.RawAnnotation{IsRadio: true},
			want:  KindRadio,
		},
		{
			name:  "no type with checkbox flag",
			annot: document.RawAnnotation{IsCheckbox: true},
			want:  KindCheckbox,
		},
		{
			name:  "no type with options",
			annot: document.RawAnnotation{Options: []string{"x"}},
			want:  KindDropdown,
		},
		{
			name:  "signature name heuristic",
			annot: document.RawAnnotation{Name: "Applicant Signature"},
			want:  KindSignature,
		},
		{
			name:  "date name heuristic",
			annot: document.RawAnnotation{Name: "hire_date"},
			want:  KindDate,
		},
		{
			name:  "fallback is text",
			annot: document.RawAnnotation{Name: "notes"},
			want:  KindText,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, classifyKind(tt.annot))
		})
	}
}

func TestExtractFields(t *testing.T) {
	raw := []document.RawAnnotation{
		{
			Index:     0,
			Name:      "Full Name",
			FieldType: "Tx",
			Rect:      &geometry.DocRect{X1: 50, Y1: 10, X2: 10, Y2: 50},
			Required:  true,
			MaxLen:    64,
		},
		{
			Index:     1,
			Name:      "orphan",
			FieldType: "Tx",
			// No rect: the wizard cannot place this on screen
		},
		{
			Index:     2,
			Name:      "subscribe",
			FieldType: "Btn",
			Rect:      &geometry.DocRect{X1: 10, Y1: 60, X2: 30, Y2: 80},
			Value:     "Yes",
		},
	}

	extractor := NewExtractor(false)
	fields := extractor.ExtractFields(raw, 3)
	require.Len(t, fields, 2)

	name := fields[0]
	assert.Equal(t, "p3_a0_full_name", name.ID)
	assert.Equal(t, KindText, name.Kind)
	assert.Equal(t, 3, name.Page)
	assert.True(t, name.Required)
	assert.Equal(t, 64, name.MaxLen)
	// Rect is normalized on ingestion
	assert.Equal(t, geometry.DocRect{X1: 10, Y1: 10, X2: 50, Y2: 50}, name.Rect)

	box := fields[1]
	assert.Equal(t, KindCheckbox, box.Kind)
	assert.True(t, box.Value.Checked)
}

func TestExtractFieldsStableIDs(t *testing.T) {
	raw := []document.RawAnnotation{
		{Index: 0, Name: "Email", FieldType: "Tx", Rect: &geometry.DocRect{X1: 0, Y1: 0, X2: 10, Y2: 10}},
	}
	extractor := NewExtractor(false)

	first := extractor.ExtractFields(raw, 1)
	second := extractor.ExtractFields(raw, 1)
	require.Len(t, first, 1)
	assert.Equal(t, first[0].ID, second[0].ID)
}

func TestInitialValue(t *testing.T) {
	tests := []struct {
		name  string
		kind  Kind
		annot document.RawAnnotation
		want  Value
	}{
		{
			name:  "text value carries over",
			kind:  KindText,
			annot: document.RawAnnotation{Value: "hello"},
			want:  Value{Text: "hello"},
		},
		{
			name:  "checkbox on state",
			kind:  KindCheckbox,
			annot: document.RawAnnotation{Value: "On"},
			want:  Value{Checked: true},
		},
		{
			name:  "checkbox off state",
			kind:  KindCheckbox,
			annot: document.RawAnnotation{Value: "Off"},
			want:  Value{Checked: false},
		},
		{
			name:  "existing signature appearance is not reused",
			kind:  KindSignature,
			annot: document.RawAnnotation{Value: "old-appearance"},
			want:  Value{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, initialValue(tt.kind, tt.annot))
		})
	}
}

func TestInSignatureSet(t *testing.T) {
	tests := []struct {
		name string
		f    Field
		want bool
	}{
		{"signature kind", Field{Kind: KindSignature}, true},
		{"signature name on text field", Field{Kind: KindText, Name: "Signature"}, true},
		{"sign substring", Field{Kind: KindText, Name: "please sign here"}, true},
		{"heuristic misfire on assignee", Field{Kind: KindText, Name: "Assignee"}, true},
		{"plain text", Field{Kind: KindText, Name: "notes"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.f.InSignatureSet())
		})
	}
}

func TestInteractive(t *testing.T) {
	assert.True(t, (&Field{Kind: KindText}).Interactive())
	assert.False(t, (&Field{Kind: KindText, ReadOnly: true}).Interactive())
	assert.False(t, (&Field{Kind: KindUnknown}).Interactive())
}

func TestMakeID(t *testing.T) {
	assert.Equal(t, "p1_a0_full_name", makeID(1, 0, "Full Name"))
	assert.Equal(t, "p2_a7_field", makeID(2, 7, ""))
	assert.Equal(t, "p1_a3_a_b_c", makeID(1, 3, "a.b-c"))
}
