package tideflow

import (
	"fmt"
	"time"
)

// Defaults for session tuning knobs.
const (
	DefaultDebounce  = 400 * time.Millisecond
	DefaultTimeout   = 30 * time.Second
	DefaultExportPPI = 144
)

// AnchorKind classifies where an anchor came from in the source text.
type AnchorKind int

const (
	// AnchorBlockStart marks the first byte of a top-level block.
	AnchorBlockStart AnchorKind = iota
	// AnchorHeading marks a heading block.
	AnchorHeading
	// AnchorExplicit marks a user-placed anchor comment.
	AnchorExplicit
)

func (k AnchorKind) String() string {
	switch k {
	case AnchorBlockStart:
		return "block-start"
	case AnchorHeading:
		return "heading"
	case AnchorExplicit:
		return "explicit"
	default:
		return fmt.Sprintf("AnchorKind(%d)", int(k))
	}
}

// Anchor is a stable position marker tied to a byte offset in the source
// document. IDs are deterministic for identical input text.
type Anchor struct {
	ID           string
	SourceOffset int
	Line         int
	Column       int
	Kind         AnchorKind
}

// RenderedLocation is a physical position in the rendered artifact.
// Pages are 1-based; X and Y are typographic points from the page's
// top-left corner.
type RenderedLocation struct {
	Page int
	X    float64
	Y    float64
}

// CompileState is the session's render lifecycle state.
type CompileState int

const (
	// StateIdle means no render has been requested yet.
	StateIdle CompileState = iota
	// StatePending means an edit arrived and the debounce window is open.
	StatePending
	// StateRunning means a compile attempt is in flight.
	StateRunning
	// StateOK means the latest attempt published an artifact.
	StateOK
	// StateError means the latest attempt failed; the previous artifact,
	// if any, is still available.
	StateError
)

func (s CompileState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePending:
		return "pending"
	case StateRunning:
		return "running"
	case StateOK:
		return "ok"
	case StateError:
		return "error"
	default:
		return fmt.Sprintf("CompileState(%d)", int(s))
	}
}

// Diagnostic describes a failed compile attempt in user-facing terms.
type Diagnostic struct {
	Message string
	Detail  string
}

// StatusUpdate is an atomic snapshot of the session's render state.
// ArtifactPath always names the most recent successful artifact, even
// while State is StateError.
type StatusUpdate struct {
	Generation   uint64
	State        CompileState
	ArtifactPath string
	Diagnostic   *Diagnostic
}

// Option configures a Session.
type Option func(*Session)

// WithDebounce sets the quiet window after the last edit before a
// compile attempt starts. Zero disables debouncing. Panics if d is
// negative.
func WithDebounce(d time.Duration) Option {
	if d < 0 {
		panic("tideflow: debounce must not be negative")
	}
	return func(s *Session) {
		s.cfg.debounce = d
	}
}

// WithTimeout sets the per-attempt compile deadline. Panics if d is not
// positive.
func WithTimeout(d time.Duration) Option {
	if d <= 0 {
		panic("tideflow: timeout must be positive")
	}
	return func(s *Session) {
		s.cfg.timeout = d
	}
}

// WithCompilerPath overrides the Typst binary used for compiles.
func WithCompilerPath(path string) Option {
	return func(s *Session) {
		s.cfg.compilerPath = path
	}
}

// WithAssetDir mirrors the given directory into the assets/ subdirectory
// of every working area, so references like assets/figure.png resolve
// during compiles.
func WithAssetDir(dir string) Option {
	return func(s *Session) {
		s.cfg.assetDir = dir
	}
}

// WithWorkRoot places working areas under the given directory instead
// of the system temp directory.
func WithWorkRoot(dir string) Option {
	return func(s *Session) {
		s.cfg.workRoot = dir
	}
}

// WithExportPPI sets the default raster density for PNG export.
// Panics if ppi is not positive.
func WithExportPPI(ppi int) Option {
	if ppi <= 0 {
		panic("tideflow: export ppi must be positive")
	}
	return func(s *Session) {
		s.cfg.exportPPI = ppi
	}
}

// withCompiler injects a compiler implementation. Test-only.
func withCompiler(c compiler) Option {
	return func(s *Session) {
		s.compiler = c
	}
}
