package document

import (
	"fmt"
	"io"
	"os"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"

	"github.com/formflow/mcp-form-wizard/internal/geometry"
)

// Widget annotation field flag bits (Ff entry)
const (
	flagReadOnly   = 1       // bit 1
	flagRequired   = 2       // bit 2
	flagRadio      = 1 << 15 // bit 16
	flagPushbutton = 1 << 16 // bit 17
)

// Walking the Parent chain of a widget must terminate even on a
// malformed document with a reference cycle.
const maxParentDepth = 32

// annotationSource walks a pdfcpu document context once and materializes
// the page list and the per-page widget annotations. It resolves the page
// each widget sits on by reading the page tree directly, so fields land on
// their real page instead of a guessed one.
type annotationSource struct {
	pages       []PageInfo
	annotations map[int][]RawAnnotation // page number -> widgets in array order
	debugMode   bool
}

// inheritedAttrs carries the page attributes that flow down the page tree
type inheritedAttrs struct {
	mediaBox *geometry.DocRect
	rotation int
}

// newAnnotationSourceFromFile reads a PDF file and harvests its page
// geometry and widget annotations.
func newAnnotationSourceFromFile(path string, debugMode bool) (*annotationSource, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF file: %w", err)
	}
	defer file.Close()

	return newAnnotationSourceFromReader(file, debugMode)
}

// newAnnotationSourceFromReader reads a PDF from an io.ReadSeeker
func newAnnotationSourceFromReader(reader io.ReadSeeker, debugMode bool) (*annotationSource, error) {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	ctx, err := api.ReadContext(reader, conf)
	if err != nil {
		return nil, fmt.Errorf("failed to read PDF context: %w", err)
	}

	if err := ctx.EnsurePageCount(); err != nil {
		return nil, fmt.Errorf("failed to ensure page count: %w", err)
	}

	src := &annotationSource{
		annotations: make(map[int][]RawAnnotation),
		debugMode:   debugMode,
	}
	if err := src.loadPageTree(ctx); err != nil {
		return nil, err
	}
	return src, nil
}

// PageCount returns the number of pages found in the page tree
func (s *annotationSource) PageCount() int {
	return len(s.pages)
}

// Pages returns the ordered page list
func (s *annotationSource) Pages() []PageInfo {
	return s.pages
}

// AnnotationsForPage returns the widget annotations of a 1-based page
func (s *annotationSource) AnnotationsForPage(pageNumber int) ([]RawAnnotation, error) {
	if pageNumber < 1 || pageNumber > len(s.pages) {
		return nil, fmt.Errorf("page %d out of range 1..%d", pageNumber, len(s.pages))
	}
	return s.annotations[pageNumber], nil
}

// loadPageTree walks the document catalog's page tree in order
func (s *annotationSource) loadPageTree(ctx *model.Context) error {
	rootDict, err := ctx.Catalog()
	if err != nil {
		return fmt.Errorf("failed to get catalog: %w", err)
	}

	pagesObj, found := rootDict.Find("Pages")
	if !found {
		return fmt.Errorf("document has no page tree")
	}

	return s.walkPageNode(ctx, pagesObj, inheritedAttrs{})
}

// walkPageNode recursively visits a Pages node or a Page leaf, carrying
// inherited MediaBox and Rotate attributes down the tree.
func (s *annotationSource) walkPageNode(ctx *model.Context, nodeObj types.Object, inherited inheritedAttrs) error {
	nodeDict, err := ctx.DereferenceDict(nodeObj)
	if err != nil {
		return fmt.Errorf("failed to dereference page tree node: %w", err)
	}
	if nodeDict == nil {
		return nil
	}

	if box := s.parseMediaBox(ctx, nodeDict); box != nil {
		inherited.mediaBox = box
	}
	if rotObj, found := nodeDict.Find("Rotate"); found {
		if rot, err := ctx.DereferenceInteger(rotObj); err == nil && rot != nil {
			inherited.rotation = int(*rot)
		}
	}

	nodeType := ""
	if typeObj, found := nodeDict.Find("Type"); found {
		if name, err := ctx.DereferenceName(typeObj, model.V10, nil); err == nil {
			nodeType = string(name)
		}
	}

	if nodeType == "Pages" {
		kidsObj, found := nodeDict.Find("Kids")
		if !found {
			return nil
		}
		kidsArray, err := ctx.DereferenceArray(kidsObj)
		if err != nil {
			return fmt.Errorf("failed to dereference Kids array: %w", err)
		}
		for _, kid := range kidsArray {
			if err := s.walkPageNode(ctx, kid, inherited); err != nil {
				return err
			}
		}
		return nil
	}

	// Treat anything that is not an intermediate node as a page leaf;
	// relaxed parsing mirrors pdfcpu's own validation mode.
	s.appendPage(ctx, nodeDict, inherited)
	return nil
}

// appendPage records one page leaf and parses its widget annotations
func (s *annotationSource) appendPage(ctx *model.Context, pageDict types.Dict, inherited inheritedAttrs) {
	pageNumber := len(s.pages) + 1

	info := PageInfo{Number: pageNumber, Rotation: inherited.rotation}
	if inherited.mediaBox != nil {
		box := inherited.mediaBox.Normalized()
		info.Width = box.Width()
		info.Height = box.Height()
	}
	s.pages = append(s.pages, info)

	annotsObj, found := pageDict.Find("Annots")
	if !found {
		return
	}
	annotsArray, err := ctx.DereferenceArray(annotsObj)
	if err != nil {
		if s.debugMode {
			fmt.Printf("Error dereferencing Annots on page %d: %v\n", pageNumber, err)
		}
		return
	}

	for i, annotObj := range annotsArray {
		raw, err := s.parseWidget(ctx, annotObj, i)
		if err != nil {
			if s.debugMode {
				fmt.Printf("Error parsing annotation %d on page %d: %v\n", i, pageNumber, err)
			}
			continue
		}
		if raw != nil {
			s.annotations[pageNumber] = append(s.annotations[pageNumber], *raw)
		}
	}
}

// parseWidget converts one widget annotation dictionary into a RawAnnotation.
// Non-widget annotations (links, highlights) return nil without error.
func (s *annotationSource) parseWidget(ctx *model.Context, annotObj types.Object, index int) (*RawAnnotation, error) {
	annotDict, err := ctx.DereferenceDict(annotObj)
	if err != nil {
		return nil, fmt.Errorf("failed to dereference annotation: %w", err)
	}
	if annotDict == nil {
		return nil, nil
	}

	subtype := ""
	if subObj, found := annotDict.Find("Subtype"); found {
		if name, err := ctx.DereferenceName(subObj, model.V10, nil); err == nil {
			subtype = string(name)
		}
	}
	if subtype != "Widget" {
		return nil, nil
	}

	raw := &RawAnnotation{Index: index}

	// Name, field type and flags may live on the widget itself or on an
	// ancestor field dictionary (radio groups, split widgets).
	if nameObj, found := s.findInherited(ctx, annotDict, "T", 0); found {
		if name, err := ctx.DereferenceStringOrHexLiteral(nameObj, model.V10, nil); err == nil {
			raw.Name = name
		}
	}

	if ftObj, found := s.findInherited(ctx, annotDict, "FT", 0); found {
		if name, err := ctx.DereferenceName(ftObj, model.V10, nil); err == nil {
			raw.FieldType = string(name)
		}
	}

	if flagsObj, found := s.findInherited(ctx, annotDict, "Ff", 0); found {
		if flags, err := ctx.DereferenceInteger(flagsObj); err == nil && flags != nil {
			flagValue := *flags
			raw.ReadOnly = (flagValue & flagReadOnly) != 0
			raw.Required = (flagValue & flagRequired) != 0
			raw.IsRadio = (flagValue & flagRadio) != 0
			raw.IsPush = (flagValue & flagPushbutton) != 0
			raw.IsCheckbox = raw.FieldType == "Btn" && !raw.IsRadio && !raw.IsPush
		}
	}
	if raw.FieldType == "Btn" && !raw.IsRadio && !raw.IsPush {
		raw.IsCheckbox = true
	}

	if optObj, found := s.findInherited(ctx, annotDict, "Opt", 0); found {
		raw.Options = s.parseOptions(ctx, optObj)
	}

	if valueObj, found := s.findInherited(ctx, annotDict, "V", 0); found {
		if val, err := ctx.DereferenceStringOrHexLiteral(valueObj, model.V10, nil); err == nil {
			raw.Value = val
		} else if name, err := ctx.DereferenceName(valueObj, model.V10, nil); err == nil {
			raw.Value = string(name)
		}
	}

	if maxLenObj, found := s.findInherited(ctx, annotDict, "MaxLen", 0); found {
		if maxLen, err := ctx.DereferenceInteger(maxLenObj); err == nil && maxLen != nil {
			raw.MaxLen = int(*maxLen)
		}
	}

	raw.Rect = s.parseRect(ctx, annotDict)

	if s.debugMode {
		fmt.Printf("Parsed widget %q (type %q, rect %v)\n", raw.Name, raw.FieldType, raw.Rect != nil)
	}

	return raw, nil
}

// findInherited looks up a key on the widget dictionary, then up the
// Parent chain, bounded by maxParentDepth.
func (s *annotationSource) findInherited(ctx *model.Context, dict types.Dict, key string, depth int) (types.Object, bool) {
	if depth >= maxParentDepth {
		return nil, false
	}
	if obj, found := dict.Find(key); found {
		return obj, true
	}
	parentObj, found := dict.Find("Parent")
	if !found {
		return nil, false
	}
	parentDict, err := ctx.DereferenceDict(parentObj)
	if err != nil || parentDict == nil {
		return nil, false
	}
	return s.findInherited(ctx, parentDict, key, depth+1)
}

// parseOptions extracts choice options, handling both plain strings and
// [export_value, display_value] pairs.
func (s *annotationSource) parseOptions(ctx *model.Context, optObj types.Object) []string {
	optArray, err := ctx.DereferenceArray(optObj)
	if err != nil {
		return nil
	}

	var options []string
	for _, opt := range optArray {
		if str, err := ctx.DereferenceStringOrHexLiteral(opt, model.V10, nil); err == nil {
			options = append(options, str)
		} else if arr, err := ctx.DereferenceArray(opt); err == nil && len(arr) >= 2 {
			if displayVal, err := ctx.DereferenceStringOrHexLiteral(arr[1], model.V10, nil); err == nil {
				options = append(options, displayVal)
			}
		}
	}
	return options
}

// parseRect reads the widget's Rect entry, returning nil when absent or
// malformed. Corner ordering is left as-is; normalization happens at
// field ingestion.
func (s *annotationSource) parseRect(ctx *model.Context, annotDict types.Dict) *geometry.DocRect {
	rectObj, found := annotDict.Find("Rect")
	if !found {
		return nil
	}
	rectArray, err := ctx.DereferenceArray(rectObj)
	if err != nil || len(rectArray) != 4 {
		return nil
	}

	coords := make([]float64, 4)
	for i, coord := range rectArray {
		f, err := ctx.DereferenceNumber(coord)
		if err != nil {
			return nil
		}
		coords[i] = f
	}

	return &geometry.DocRect{X1: coords[0], Y1: coords[1], X2: coords[2], Y2: coords[3]}
}

// parseMediaBox reads a MediaBox entry from a page tree node
func (s *annotationSource) parseMediaBox(ctx *model.Context, dict types.Dict) *geometry.DocRect {
	boxObj, found := dict.Find("MediaBox")
	if !found {
		return nil
	}
	boxArray, err := ctx.DereferenceArray(boxObj)
	if err != nil || len(boxArray) != 4 {
		return nil
	}

	coords := make([]float64, 4)
	for i, coord := range boxArray {
		f, err := ctx.DereferenceNumber(coord)
		if err != nil {
			return nil
		}
		coords[i] = f
	}

	return &geometry.DocRect{X1: coords[0], Y1: coords[1], X2: coords[2], Y2: coords[3]}
}
