// Package testutil provides test utilities for CLI testing.
package testutil

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/leapstack-labs/silverline/internal/cli/output"
)

// ProjectYAML declares two sources: customers, and orders referencing them.
const ProjectYAML = `
input_dir: data
output_format: json
output:
  path: outputs
sources:
  - name: customers
    input: { path: customers.csv }
    primary_key: customer_id
    fields:
      - { name: customer_id, required: true }
      - { name: age, type: integer, min: 0, max: 120 }
  - name: orders
    input: { path: orders.csv }
    primary_key: order_id
    fields:
      - { name: order_id, required: true }
      - { name: customer_id, required: true, references: customers }
`

// SetupTestProject creates a temporary project from ProjectYAML followed by
// extra, with raw files for both sources. customers holds one out-of-range
// age; orders holds one orphan and one order of the rejected customer.
// Returns the path of silverline.yaml.
func SetupTestProject(t *testing.T, extra string) string {
	t.Helper()

	tmpDir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(tmpDir, "data"), 0o750); err != nil {
		t.Fatalf("failed to create data directory: %v", err)
	}

	files := map[string]string{
		"silverline.yaml":    ProjectYAML + extra,
		"data/customers.csv": "customer_id,age\nC1,30\nC2,200\n",
		"data/orders.csv":    "order_id,customer_id\nO1,C1\nO2,C9\nO3,C2\n",
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(tmpDir, name), []byte(content), 0o600); err != nil {
			t.Fatalf("failed to create %s: %v", name, err)
		}
	}

	return filepath.Join(tmpDir, "silverline.yaml")
}

// TestRenderer wraps a Renderer for testing with captured output buffers.
type TestRenderer struct {
	*output.Renderer
	Out    *bytes.Buffer
	ErrOut *bytes.Buffer
}

// NewTestRenderer creates a new test renderer with the specified mode.
// Auto resolves to markdown since buffers are not terminals.
func NewTestRenderer(mode output.Mode) *TestRenderer {
	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}
	return &TestRenderer{
		Renderer: output.NewRenderer(out, errOut, mode),
		Out:      out,
		ErrOut:   errOut,
	}
}

// Output returns the stdout output as a string.
func (tr *TestRenderer) Output() string {
	return tr.Out.String()
}

// ErrorOutput returns the stderr output as a string.
func (tr *TestRenderer) ErrorOutput() string {
	return tr.ErrOut.String()
}

// Reset clears both output buffers.
func (tr *TestRenderer) Reset() {
	tr.Out.Reset()
	tr.ErrOut.Reset()
}
