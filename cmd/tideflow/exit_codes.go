package main

import (
	"context"
	"errors"
	"os"

	tideflow "github.com/firstbrett/tideflow-md-to-pdf"
)

// Exit codes for the tideflow CLI.
// Follows Unix conventions: 0=success, 1=general, 2=usage, and custom codes < 126.
const (
	ExitSuccess   = 0 // Successful render
	ExitGeneral   = 1 // General/unexpected error, including compile diagnostics
	ExitUsage     = 2 // Invalid flags, config, or validation
	ExitIO        = 3 // File not found, permission denied
	ExitToolchain = 4 // Typst binary missing or unusable
)

// exitCodeFor returns the appropriate exit code for an error.
// It uses errors.Is to check wrapped errors, so callers must use fmt.Errorf("%w", err).
func exitCodeFor(err error) int {
	if err == nil {
		return ExitSuccess
	}

	if errors.Is(err, tideflow.ErrToolchainUnavailable) {
		return ExitToolchain
	}

	if errors.Is(err, os.ErrNotExist) ||
		errors.Is(err, os.ErrPermission) ||
		errors.Is(err, ErrReadMarkdown) ||
		errors.Is(err, ErrWriteArtifact) ||
		errors.Is(err, ErrNoInput) {
		return ExitIO
	}

	if errors.Is(err, ErrConfigNotFound) ||
		errors.Is(err, ErrConfigParse) ||
		errors.Is(err, ErrInvalidDuration) ||
		errors.Is(err, ErrInvalidFormat) ||
		errors.Is(err, ErrInvalidPPIConfig) ||
		errors.Is(err, ErrInvalidExtension) ||
		errors.Is(err, tideflow.ErrExportFormat) {
		return ExitUsage
	}

	if errors.Is(err, context.Canceled) {
		return ExitSuccess
	}

	return ExitGeneral
}
