package document

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"

	ledongthuc "github.com/ledongthuc/pdf"

	"github.com/formflow/mcp-form-wizard/internal/geometry"
)

// FileRenderer is the production Renderer backed by local PDF files.
// Page geometry and widget annotations come from the pdfcpu-based
// annotation source; page content comes from the ledongthuc text reader.
type FileRenderer struct {
	maxFileSize int64
	debugMode   bool

	mu     sync.Mutex
	source string
	info   *DocumentInfo
	annots *annotationSource
	file   *os.File
	reader *ledongthuc.Reader
}

// NewFileRenderer creates a renderer for PDF files up to maxFileSize bytes
func NewFileRenderer(maxFileSize int64, debugMode bool) *FileRenderer {
	return &FileRenderer{
		maxFileSize: maxFileSize,
		debugMode:   debugMode,
	}
}

// LoadDocument opens a PDF file and reports its page layout. Loading a new
// document releases the previous one.
func (r *FileRenderer) LoadDocument(source string) (*DocumentInfo, error) {
	if source == "" {
		return nil, fmt.Errorf("source path cannot be empty")
	}

	fileInfo, err := os.Stat(source)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("file does not exist: %s", source)
	}
	if err != nil {
		return nil, fmt.Errorf("cannot access file: %w", err)
	}
	if err := r.validatePDFFile(source, fileInfo.Size()); err != nil {
		return nil, err
	}

	annots, err := newAnnotationSourceFromFile(source, r.debugMode)
	if err != nil {
		return nil, fmt.Errorf("failed to load document structure: %w", err)
	}

	file, reader, err := ledongthuc.Open(source)
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.closeLocked()

	r.source = source
	r.annots = annots
	r.file = file
	r.reader = reader
	r.info = &DocumentInfo{
		Source:    source,
		PageCount: annots.PageCount(),
		Pages:     annots.Pages(),
	}
	return r.info, nil
}

// RenderPage renders one page at the requested viewport. The context
// cancels an in-flight render; callers treat cancellation as a non-error.
func (r *FileRenderer) RenderPage(ctx context.Context, pageNumber int, vp geometry.Viewport) (*PageSurface, error) {
	if err := vp.Validate(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	reader := r.reader
	info := r.info
	r.mu.Unlock()

	if reader == nil || info == nil {
		return nil, fmt.Errorf("no document loaded")
	}
	if _, ok := info.PageInfoFor(pageNumber); !ok {
		return nil, fmt.Errorf("page %d out of range 1..%d", pageNumber, info.PageCount)
	}

	content := r.pageText(reader, pageNumber)

	// Text extraction on a large page can take a while; honor a
	// cancellation that arrived during it.
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	width, height := vp.ScreenSize()
	return &PageSurface{
		Page:    pageNumber,
		Width:   width,
		Height:  height,
		Content: content,
	}, nil
}

// Annotations returns the raw widget annotations of a 1-based page
func (r *FileRenderer) Annotations(pageNumber int) ([]RawAnnotation, error) {
	r.mu.Lock()
	annots := r.annots
	r.mu.Unlock()

	if annots == nil {
		return nil, fmt.Errorf("no document loaded")
	}
	return annots.AnnotationsForPage(pageNumber)
}

// Close releases the loaded document
func (r *FileRenderer) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closeLocked()
	return nil
}

func (r *FileRenderer) closeLocked() {
	if r.file != nil {
		r.file.Close()
		r.file = nil
	}
	r.reader = nil
	r.annots = nil
	r.info = nil
	r.source = ""
}

// pageText extracts the text content of a page, tolerating pages the text
// reader cannot decode.
func (r *FileRenderer) pageText(reader *ledongthuc.Reader, pageNumber int) (text string) {
	defer func() {
		// The text reader panics on some malformed content streams;
		// an unreadable page renders as an empty surface.
		if recover() != nil {
			text = ""
		}
	}()

	if pageNumber > reader.NumPage() {
		return ""
	}
	page := reader.Page(pageNumber)
	if page.V.IsNull() {
		return ""
	}

	var sb strings.Builder
	for _, t := range page.Content().Text {
		sb.WriteString(t.S)
	}
	return sb.String()
}

// validatePDFFile checks extension, size cap and header magic
func (r *FileRenderer) validatePDFFile(path string, size int64) error {
	if !strings.HasSuffix(strings.ToLower(path), ".pdf") {
		return fmt.Errorf("file is not a PDF: %s", path)
	}
	if r.maxFileSize > 0 && size > r.maxFileSize {
		return fmt.Errorf("file size %d exceeds maximum %d bytes", size, r.maxFileSize)
	}

	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("cannot open file: %w", err)
	}
	defer file.Close()

	header := make([]byte, 5)
	if _, err := file.Read(header); err != nil {
		return fmt.Errorf("cannot read file header: %w", err)
	}
	if string(header) != "%PDF-" {
		return fmt.Errorf("file does not have a valid PDF header: %s", path)
	}
	return nil
}
