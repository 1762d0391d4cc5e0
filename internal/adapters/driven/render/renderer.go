// Package render implements driven.DocumentRenderer by running an external
// converter command.
//
// The command is an argv template. "{in}" is replaced with the path of a file
// holding the raw invoice XML and "{out}" with the path the converter must
// write the PDF to. "{ksef}" expands to the invoice's KSeF number. Without
// "{in}" the XML is piped to stdin; without "{out}" the PDF is read from stdout.
package render

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/custodia-labs/ksef-desk/internal/core/domain"
	"github.com/custodia-labs/ksef-desk/internal/core/ports/driven"
	"github.com/custodia-labs/ksef-desk/internal/logger"
)

// Template placeholders.
const (
	PlaceholderIn   = "{in}"
	PlaceholderOut  = "{out}"
	PlaceholderKSeF = "{ksef}"
)

// DefaultTimeout bounds one converter run.
const DefaultTimeout = 60 * time.Second

// Ensure Renderer implements the interface.
var _ driven.DocumentRenderer = (*Renderer)(nil)

// Renderer runs a converter command per document.
type Renderer struct {
	command []string
	timeout time.Duration
}

// NewRenderer creates a renderer for the given argv template.
func NewRenderer(command []string) (*Renderer, error) {
	if len(command) == 0 || strings.TrimSpace(command[0]) == "" {
		return nil, domain.NewValidationError("render.command", "must name a converter executable")
	}
	if _, err := exec.LookPath(command[0]); err != nil {
		return nil, fmt.Errorf("converter %q: %w", command[0], err)
	}
	return &Renderer{command: command, timeout: DefaultTimeout}, nil
}

// Render converts raw invoice XML into a PDF.
func (r *Renderer) Render(ctx context.Context, raw []byte, summary domain.InvoiceSummary) ([]byte, error) {
	work, err := os.MkdirTemp("", "ksef-render-")
	if err != nil {
		return nil, fmt.Errorf("create render dir: %w", err)
	}
	defer os.RemoveAll(work)

	in := filepath.Join(work, "invoice.xml")
	out := filepath.Join(work, "invoice.pdf")
	useIn, useOut := r.uses(PlaceholderIn), r.uses(PlaceholderOut)

	if useIn {
		if err := os.WriteFile(in, raw, 0o600); err != nil {
			return nil, fmt.Errorf("write render input: %w", err)
		}
	}

	args := make([]string, len(r.command)-1)
	for i, a := range r.command[1:] {
		a = strings.ReplaceAll(a, PlaceholderIn, in)
		a = strings.ReplaceAll(a, PlaceholderOut, out)
		args[i] = strings.ReplaceAll(a, PlaceholderKSeF, summary.KSeFNumber)
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, r.command[0], args...)
	cmd.Dir = work
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if !useIn {
		cmd.Stdin = bytes.NewReader(raw)
	}

	start := time.Now()
	if err := cmd.Run(); err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			err = fmt.Errorf("timed out after %s", r.timeout)
		}
		return nil, fmt.Errorf("render %s: %s: %w (stderr: %s)",
			summary.KSeFNumber, r.command[0], err, strings.TrimSpace(stderr.String()))
	}
	logger.Debug("Rendered %s in %s", summary.KSeFNumber, time.Since(start).Round(time.Millisecond))

	if !useOut {
		if stdout.Len() == 0 {
			return nil, fmt.Errorf("render %s: converter produced no output", summary.KSeFNumber)
		}
		return stdout.Bytes(), nil
	}

	pdf, err := os.ReadFile(out)
	if err != nil {
		return nil, fmt.Errorf("render %s: read output: %w", summary.KSeFNumber, err)
	}
	return pdf, nil
}

func (r *Renderer) uses(placeholder string) bool {
	for _, a := range r.command[1:] {
		if strings.Contains(a, placeholder) {
			return true
		}
	}
	return false
}
