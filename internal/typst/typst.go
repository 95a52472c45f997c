// Package typst drives the external Typst compiler as a black-box process.
//
// A compile attempt works entirely inside a caller-provided working area:
// the annotated markdown and a Typst entry file are written there, the
// binary is invoked with the area as its root, and on success the anchor
// labels are read back with `typst query`. The package never retries; the
// caller decides what a failure means.
package typst

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/firstbrett/tideflow-md-to-pdf/internal/process"
	"github.com/firstbrett/tideflow-md-to-pdf/internal/sourcemap"
)

// Well-known file names inside the working area.
const (
	MainFile     = "main.typ"
	ContentFile  = "content.md"
	ArtifactFile = "render.pdf"
)

// DefaultBin is the binary resolved from PATH when none is configured.
const DefaultBin = "typst"

// ErrBinaryNotFound means the Typst toolchain is not installed or not on
// PATH. Callers surface this distinctly from source diagnostics.
var ErrBinaryNotFound = errors.New("typst binary not found")

// Diagnostic is a compiler-reported failure: a syntax or semantic error in
// the document, or an external-tool fault such as a missing asset. It is
// user-fixable and carries the raw compiler output.
type Diagnostic struct {
	Message string // first line of compiler output, human readable
	Detail  string // full stdout+stderr
}

func (d *Diagnostic) Error() string { return d.Message }

// mainTemplate is the Typst entry point: it renders the annotated markdown
// via the cmarker package, letting raw-typst comments (the anchor markers)
// pass through as inline Typst.
const mainTemplate = `#import "@preview/cmarker:0.1.6"

#cmarker.render(
  read("content.md"),
  raw-typst: true,
)
`

// Runner invokes the Typst binary.
type Runner struct {
	bin string
}

// NewRunner returns a Runner using bin, or the PATH-resolved default when
// bin is empty.
func NewRunner(bin string) *Runner {
	if bin == "" {
		bin = DefaultBin
	}
	return &Runner{bin: bin}
}

// Result is a successful compile: the artifact inside the working area and
// the anchor-location report. Anchors absent from Locations were elided
// during compilation.
type Result struct {
	ArtifactPath string
	Locations    map[string]sourcemap.Location
}

// Compile typesets the annotated markdown inside dir and reports anchor
// locations. The context bounds the whole attempt; cancellation kills the
// compiler's process group without waiting for it to exit.
func (r *Runner) Compile(ctx context.Context, dir, annotated string) (*Result, error) {
	if err := r.writeInputs(dir, annotated); err != nil {
		return nil, err
	}

	if err := r.run(ctx, dir, "compile", "--root", dir, MainFile, ArtifactFile); err != nil {
		return nil, err
	}

	artifact := filepath.Join(dir, ArtifactFile)
	if _, err := os.Stat(artifact); err != nil {
		return nil, &Diagnostic{
			Message: "typst compile produced no artifact",
			Detail:  fmt.Sprintf("expected %s: %v", artifact, err),
		}
	}

	// Query output shape varies across Typst versions; parsing is tolerant
	// and a failed query degrades to an empty report rather than failing a
	// compile that already produced an artifact.
	locations := map[string]sourcemap.Location{}
	if report, err := r.query(ctx, dir); err == nil {
		locations = report
	}

	return &Result{ArtifactPath: artifact, Locations: locations}, nil
}

// Export typesets the annotated markdown to an image format. The dest name
// may contain Typst's {p} page template for multi-page documents and is
// resolved relative to dir unless absolute.
func (r *Runner) Export(ctx context.Context, dir, annotated, format string, ppi int, dest string) error {
	if err := r.writeInputs(dir, annotated); err != nil {
		return err
	}

	args := []string{"compile", "--root", dir, "--format", format}
	if format == "png" && ppi > 0 {
		args = append(args, "--ppi", fmt.Sprint(ppi))
	}
	args = append(args, MainFile, dest)

	return r.run(ctx, dir, args...)
}

func (r *Runner) writeInputs(dir, annotated string) error {
	if err := os.WriteFile(filepath.Join(dir, ContentFile), []byte(annotated), 0o600); err != nil {
		return fmt.Errorf("writing document into working area: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, MainFile), []byte(mainTemplate), 0o600); err != nil {
		return fmt.Errorf("writing entry template into working area: %w", err)
	}
	return nil
}

func (r *Runner) query(ctx context.Context, dir string) (map[string]sourcemap.Location, error) {
	cmd := r.command(ctx, dir, "query", "--root", dir, "--format", "json", MainFile, "label")
	var stdout bytes.Buffer
	cmd.Stdout = &stdout
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("typst query: %w", err)
	}
	return ParseQueryReport(stdout.Bytes()), nil
}

func (r *Runner) run(ctx context.Context, dir string, args ...string) error {
	cmd := r.command(ctx, dir, args...)
	var output bytes.Buffer
	cmd.Stdout = &output
	cmd.Stderr = &output

	err := cmd.Run()
	if err == nil {
		return nil
	}
	return r.classify(ctx, err, output.String())
}

func (r *Runner) command(ctx context.Context, dir string, args ...string) *exec.Cmd {
	cmd := exec.CommandContext(ctx, r.bin, args...)
	cmd.Dir = dir
	setProcessGroup(cmd)
	cmd.Cancel = func() error {
		if cmd.Process == nil {
			return nil
		}
		process.KillProcessGroup(cmd.Process.Pid)
		return cmd.Process.Kill()
	}
	return cmd
}

// classify maps a failed invocation to the error taxonomy: context errors
// stay context errors (timeout and preemption are the caller's concern), a
// missing binary is a toolchain fault, everything else is a Diagnostic
// carrying the compiler's own words.
func (r *Runner) classify(ctx context.Context, err error, output string) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	if errors.Is(err, exec.ErrNotFound) || errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%w: %s", ErrBinaryNotFound, r.bin)
	}

	detail := strings.TrimSpace(output)
	message := detail
	if i := strings.IndexByte(message, '\n'); i >= 0 {
		message = message[:i]
	}
	if message == "" {
		message = fmt.Sprintf("typst compile failed: %v", err)
	}
	return &Diagnostic{Message: message, Detail: detail}
}
