// Package output renders command results for terminals and pipes.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// Mode is a result format.
type Mode string

// Output modes.
const (
	ModeAuto     Mode = "auto"
	ModeTable    Mode = "table"
	ModeMarkdown Mode = "markdown"
	ModeJSON     Mode = "json"
)

// isTerminal reports whether w is an interactive terminal.
var isTerminal = func(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// Resolve turns auto (or an empty mode) into table on a terminal and
// markdown everywhere else.
func Resolve(mode Mode, w io.Writer) Mode {
	switch Mode(strings.ToLower(string(mode))) {
	case ModeTable:
		return ModeTable
	case ModeMarkdown:
		return ModeMarkdown
	case ModeJSON:
		return ModeJSON
	}
	if isTerminal(w) {
		return ModeTable
	}
	return ModeMarkdown
}

// Renderer writes results to stdout and status messages to stderr.
type Renderer struct {
	out  io.Writer
	err  io.Writer
	mode Mode
}

// NewRenderer creates a renderer with a resolved mode.
func NewRenderer(out, errOut io.Writer, mode Mode) *Renderer {
	return &Renderer{out: out, err: errOut, mode: Resolve(mode, out)}
}

// Mode returns the resolved output mode.
func (r *Renderer) Mode() Mode { return r.mode }

// Writer returns the result writer.
func (r *Renderer) Writer() io.Writer { return r.out }

// Println writes a line of results.
func (r *Renderer) Println(a ...any) {
	_, _ = fmt.Fprintln(r.out, a...)
}

// Printf writes formatted results.
func (r *Renderer) Printf(format string, a ...any) {
	_, _ = fmt.Fprintf(r.out, format, a...)
}

// Success writes a success status line.
func (r *Renderer) Success(msg string) {
	_, _ = fmt.Fprintf(r.err, "✓ %s\n", msg)
}

// Warning writes a warning status line.
func (r *Renderer) Warning(msg string) {
	_, _ = fmt.Fprintf(r.err, "! %s\n", msg)
}

// StatusLine writes "name status" with an optional detail.
func (r *Renderer) StatusLine(name, status, detail string) {
	mark := "✓"
	switch status {
	case "failed", "error":
		mark = "✗"
	case "skipped", "warning":
		mark = "-"
	}
	if detail != "" {
		_, _ = fmt.Fprintf(r.err, "  %s %s (%s)\n", mark, name, detail)
		return
	}
	_, _ = fmt.Fprintf(r.err, "  %s %s\n", mark, name)
}

// JSON writes v as indented JSON.
func (r *Renderer) JSON(v any) error {
	enc := json.NewEncoder(r.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
