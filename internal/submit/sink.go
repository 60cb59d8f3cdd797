// Package submit defines the submission boundary: where completed form
// values and signatures go once the wizard reaches the submit phase.
package submit

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/formflow/mcp-form-wizard/internal/field"
)

// Outcome is the sink's verdict on one submission attempt. A failed
// attempt lists the failures and leaves the wizard in the submit phase so
// the user can retry.
type Outcome struct {
	Success  bool     `json:"success"`
	Receipt  string   `json:"receipt,omitempty"`
	Failures []string `json:"failures,omitempty"`
}

// Sink receives the final form payload. Implementations must be safe to
// call again after reporting failure.
type Sink interface {
	Submit(ctx context.Context, source string, values map[string]field.Value, signatures map[string]string) (*Outcome, error)
}

// payload is the serialized submission document
type payload struct {
	Source      string                 `json:"source"`
	SubmittedAt time.Time              `json:"submitted_at"`
	Values      map[string]field.Value `json:"values"`
	Signatures  map[string]string      `json:"signatures,omitempty"`
}

// JSONFileSink writes each submission as a timestamped JSON file into an
// output directory.
type JSONFileSink struct {
	outputDirectory string
}

// NewJSONFileSink creates a sink writing into outputDirectory
func NewJSONFileSink(outputDirectory string) (*JSONFileSink, error) {
	if outputDirectory == "" {
		return nil, fmt.Errorf("output directory cannot be empty")
	}
	if err := os.MkdirAll(outputDirectory, 0o750); err != nil {
		return nil, fmt.Errorf("cannot create output directory %s: %w", outputDirectory, err)
	}
	return &JSONFileSink{outputDirectory: outputDirectory}, nil
}

// Submit implements Sink
func (s *JSONFileSink) Submit(ctx context.Context, source string, values map[string]field.Value, signatures map[string]string) (*Outcome, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := json.MarshalIndent(payload{
		Source:      source,
		SubmittedAt: time.Now().UTC(),
		Values:      values,
		Signatures:  signatures,
	}, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode submission: %w", err)
	}

	name := fmt.Sprintf("submission_%s.json", time.Now().UTC().Format("20060102T150405.000000000Z"))
	path := filepath.Join(s.outputDirectory, name)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return &Outcome{
			Success:  false,
			Failures: []string{fmt.Sprintf("failed to write submission: %v", err)},
		}, nil
	}

	return &Outcome{Success: true, Receipt: path}, nil
}
