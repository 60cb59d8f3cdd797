package field

import (
	"fmt"
	"strings"

	"github.com/formflow/mcp-form-wizard/internal/document"
)

// Extractor normalizes raw widget annotations into Fields, one page at a
// time. Malformed annotations are skipped, never fatal to document load.
type Extractor struct {
	debugMode bool
}

// NewExtractor creates a field extractor
func NewExtractor(debugMode bool) *Extractor {
	return &Extractor{debugMode: debugMode}
}

// ExtractFields converts the raw annotations of one page into canonical
// Fields. Annotations without geometry are dropped: the wizard cannot
// navigate to a field it cannot place on screen.
func (e *Extractor) ExtractFields(raw []document.RawAnnotation, pageNumber int) []Field {
	fields := make([]Field, 0, len(raw))

	for _, annot := range raw {
		if annot.Rect == nil {
			if e.debugMode {
				fmt.Printf("Dropping annotation %d (%q) on page %d: no rect\n",
					annot.Index, annot.Name, pageNumber)
			}
			continue
		}

		kind := classifyKind(annot)

		f := Field{
			ID:       makeID(pageNumber, annot.Index, annot.Name),
			Name:     annot.Name,
			Page:     pageNumber,
			Kind:     kind,
			Rect:     annot.Rect.Normalized(),
			Required: annot.Required,
			ReadOnly: annot.ReadOnly,
			Options:  annot.Options,
			MaxLen:   annot.MaxLen,
			Value:    initialValue(kind, annot),
		}
		fields = append(fields, f)
	}

	if e.debugMode {
		fmt.Printf("Extracted %d fields from page %d\n", len(fields), pageNumber)
	}
	return fields
}

// classifyKind determines the field kind using, in priority order: the
// explicit field-type tag, the checkbox/radio flags, the presence of an
// options list, the signature name heuristic, then a text fallback.
// Pushbuttons carry no data and come through as unknown.
func classifyKind(annot document.RawAnnotation) Kind {
	switch annot.FieldType {
	case "Tx":
		if nameSuggestsDate(annot.Name) {
			return KindDate
		}
		return KindText
	case "Btn":
		switch {
		case annot.IsRadio:
			return KindRadio
		case annot.IsPush:
			return KindUnknown
		default:
			return KindCheckbox
		}
	case "Ch":
		return KindDropdown
	case "Sig":
		return KindSignature
	}

	switch {
	case annot.IsRadio:
		return KindRadio
	case annot.IsPush:
		return KindUnknown
	case annot.IsCheckbox:
		return KindCheckbox
	case len(annot.Options) > 0:
		return KindDropdown
	case nameSuggestsSignature(annot.Name):
		return KindSignature
	case nameSuggestsDate(annot.Name):
		return KindDate
	default:
		return KindText
	}
}

// initialValue seeds a field with any value already present in the source
func initialValue(kind Kind, annot document.RawAnnotation) Value {
	switch kind {
	case KindCheckbox:
		on := strings.EqualFold(annot.Value, "Yes") || strings.EqualFold(annot.Value, "On")
		return Value{Checked: on}
	case KindSignature:
		// Pre-existing signature appearances are not reusable payloads;
		// the user signs in the wizard.
		return Value{}
	default:
		return Value{Text: annot.Value}
	}
}
