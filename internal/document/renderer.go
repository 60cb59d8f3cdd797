// Package document is the engine's boundary to the PDF rendering side.
// It decodes a document into pages and raw widget annotations and renders
// page content into a surface at a requested viewport. Everything above
// this package consumes the Renderer interface and never touches PDF bytes.
package document

import (
	"context"

	"github.com/formflow/mcp-form-wizard/internal/geometry"
)

// PageInfo describes one page of a loaded document
type PageInfo struct {
	Number   int     `json:"number"` // 1-based
	Width    float64 `json:"width"`  // document units
	Height   float64 `json:"height"`
	Rotation int     `json:"rotation"` // degrees, /Rotate entry
}

// DocumentInfo is the result of loading a document
type DocumentInfo struct {
	Source    string     `json:"source"`
	PageCount int        `json:"page_count"`
	Pages     []PageInfo `json:"pages"`
}

// PageInfoFor returns the page info for a 1-based page number
func (d *DocumentInfo) PageInfoFor(pageNumber int) (PageInfo, bool) {
	if pageNumber < 1 || pageNumber > len(d.Pages) {
		return PageInfo{}, false
	}
	return d.Pages[pageNumber-1], true
}

// PageSurface is the rendered output for one page at one viewport.
// Content carries the page's extractable text; Width and Height are the
// pixel dimensions the surface was rendered at.
type PageSurface struct {
	Page    int     `json:"page"`
	Width   float64 `json:"width"`
	Height  float64 `json:"height"`
	Content string  `json:"content,omitempty"`
}

// RawAnnotation is a widget annotation as it appears in the source document,
// before any normalization. Rect is nil when the annotation carries no
// geometry; the extractor drops such records.
type RawAnnotation struct {
	Index      int               `json:"index"` // position within the page's annotation array
	Name       string            `json:"name"`
	FieldType  string            `json:"field_type,omitempty"` // raw /FT tag: Tx, Btn, Ch, Sig
	IsCheckbox bool              `json:"is_checkbox,omitempty"`
	IsRadio    bool              `json:"is_radio,omitempty"`
	IsPush     bool              `json:"is_push,omitempty"` // pushbutton, never a data field
	Options    []string          `json:"options,omitempty"`
	Rect       *geometry.DocRect `json:"rect,omitempty"`
	Required   bool              `json:"required"`
	ReadOnly   bool              `json:"read_only"`
	Value      string            `json:"value,omitempty"`
	MaxLen     int               `json:"max_len,omitempty"`
}

// Renderer is the external rendering collaborator. LoadDocument must report
// page dimensions before any geometry mapping is attempted. RenderPage is
// the only potentially slow call and honors context cancellation; a
// cancelled render is a non-error outcome for the engine.
type Renderer interface {
	LoadDocument(source string) (*DocumentInfo, error)
	RenderPage(ctx context.Context, pageNumber int, vp geometry.Viewport) (*PageSurface, error)
	Annotations(pageNumber int) ([]RawAnnotation, error)
	Close() error
}
