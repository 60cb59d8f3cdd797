// Command wizard-fields dumps a PDF's form fields in the wizard's
// traversal order. It is a debugging aid for checking what the engine
// will see before pointing a host at a document.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/formflow/mcp-form-wizard/internal/document"
	"github.com/formflow/mcp-form-wizard/internal/field"
	"github.com/formflow/mcp-form-wizard/internal/sequence"
)

const maxFileSize = 100 * 1024 * 1024

var (
	outputFormat = flag.String("format", "text", "Output format: text, json")
	verbose      = flag.Bool("verbose", false, "Enable extraction debug output")
	help         = flag.Bool("help", false, "Show help message")
)

// FieldListing is the JSON shape of a dump
type FieldListing struct {
	FilePath   string        `json:"file_path"`
	PageCount  int           `json:"page_count"`
	FieldCount int           `json:"field_count"`
	Fields     []field.Field `json:"fields"`
}

func main() {
	flag.Parse()

	if *help {
		printHelp()
		return
	}

	if flag.NArg() == 0 {
		fmt.Fprintf(os.Stderr, "Error: PDF file path required\n\n")
		printUsage()
		os.Exit(1)
	}

	pdfPath := flag.Arg(0)
	if _, err := os.Stat(pdfPath); os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "Error: File not found: %s\n", pdfPath)
		os.Exit(1)
	}

	listing, err := listFields(pdfPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error extracting fields: %v\n", err)
		os.Exit(1)
	}

	if err := outputListing(listing); err != nil {
		fmt.Fprintf(os.Stderr, "Error outputting results: %v\n", err)
		os.Exit(1)
	}
}

func listFields(pdfPath string) (*FieldListing, error) {
	absPath, err := filepath.Abs(pdfPath)
	if err != nil {
		return nil, fmt.Errorf("failed to get absolute path: %w", err)
	}

	renderer := document.NewFileRenderer(maxFileSize, *verbose)
	info, err := renderer.LoadDocument(absPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load document: %w", err)
	}
	defer func() { _ = renderer.Close() }()

	extractor := field.NewExtractor(*verbose)
	var fields []field.Field
	for page := 1; page <= info.PageCount; page++ {
		raw, err := renderer.Annotations(page)
		if err != nil {
			if *verbose {
				fmt.Fprintf(os.Stderr, "page %d: %v\n", page, err)
			}
			continue
		}
		fields = append(fields, extractor.ExtractFields(raw, page)...)
	}

	return &FieldListing{
		FilePath:   absPath,
		PageCount:  info.PageCount,
		FieldCount: len(fields),
		Fields:     sequence.OrderFields(fields),
	}, nil
}

func outputListing(listing *FieldListing) error {
	if *outputFormat == "json" {
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(listing)
	}

	fmt.Printf("File: %s\n", listing.FilePath)
	fmt.Printf("Pages: %d\n", listing.PageCount)
	fmt.Printf("Fields: %d\n\n", listing.FieldCount)

	for i, f := range listing.Fields {
		fmt.Printf("%d. %s\n", i+1, f.ID)
		fmt.Printf("   Name: %s\n", f.Name)
		fmt.Printf("   Kind: %s, Page: %d\n", f.Kind, f.Page)
		fmt.Printf("   Rect: (%.1f, %.1f) - (%.1f, %.1f)\n", f.Rect.X1, f.Rect.Y1, f.Rect.X2, f.Rect.Y2)
		if f.Required {
			fmt.Printf("   Required: true\n")
		}
		if f.ReadOnly {
			fmt.Printf("   ReadOnly: true\n")
		}
		if len(f.Options) > 0 {
			fmt.Printf("   Options: %v\n", f.Options)
		}
		if f.MaxLen > 0 {
			fmt.Printf("   MaxLen: %d\n", f.MaxLen)
		}
		if !f.Value.IsZero() {
			fmt.Printf("   Value: %q\n", f.Value.Text)
		}
		fmt.Println()
	}
	return nil
}

func printHelp() {
	fmt.Println("Wizard Fields - list a PDF form's fields in traversal order")
	fmt.Println()
	fmt.Println("The listing mirrors exactly what the form wizard engine sees:")
	fmt.Println("fields are normalized, classified and ordered the way the guided")
	fmt.Println("flow will visit them.")
	fmt.Println()
	printUsage()
	fmt.Println()
	fmt.Println("OPTIONS:")
	fmt.Println("  -format        Output format: text (default), json")
	fmt.Println("  -verbose       Enable extraction debug output")
	fmt.Println("  -help          Show this help message")
	fmt.Println()
	fmt.Println("EXAMPLES:")
	fmt.Println("  wizard-fields application.pdf")
	fmt.Println("  wizard-fields -format json forms/w9.pdf")
}

func printUsage() {
	fmt.Println("USAGE:")
	fmt.Println("  wizard-fields [OPTIONS] <pdf_file>")
}
