package tideflow

import "errors"

// Sentinel errors for library operations.
var (
	// ErrSessionClosed is returned by operations on a closed Session.
	ErrSessionClosed = errors.New("session is closed")

	// ErrNoSnapshot means no document text has been fed to the session yet.
	ErrNoSnapshot = errors.New("no document snapshot to render")

	// ErrExportFormat rejects export formats other than png and svg.
	ErrExportFormat = errors.New("unsupported export format")

	// ErrToolchainUnavailable means the Typst binary could not be launched
	// (missing or not executable). Kept distinct from source diagnostics so
	// callers can tell "fix your document" from "install the toolchain".
	ErrToolchainUnavailable = errors.New("typst toolchain unavailable")
)

const timeoutMessage = "render timed out"
