package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	tideflow "github.com/firstbrett/tideflow-md-to-pdf"
	"github.com/firstbrett/tideflow-md-to-pdf/internal/fileutil"
)

// Sentinel errors for CLI operations.
var (
	ErrNoInput          = errors.New("no input specified")
	ErrReadMarkdown     = errors.New("failed to read markdown file")
	ErrWriteArtifact    = errors.New("failed to write output file")
	ErrInvalidExtension = errors.New("file must have .md or .markdown extension")
	ErrRenderFailed     = errors.New("render failed")
)

const watchInterval = 250 * time.Millisecond

// Environment holds injectable dependencies for testability.
type Environment struct {
	Stdout io.Writer
	Stderr io.Writer
}

// DefaultEnv returns the production environment.
func DefaultEnv() *Environment {
	return &Environment{Stdout: os.Stdout, Stderr: os.Stderr}
}

// run executes one render (or a watch loop) for the single input file.
func run(ctx context.Context, args []string, flags *cliFlags, env *Environment) error {
	cfg, err := LoadConfig(flags.common.config)
	if err != nil {
		return err
	}
	mergeFlags(flags, cfg)
	if err := cfg.validate(); err != nil {
		return err
	}

	input, err := resolveInput(args)
	if err != nil {
		return err
	}
	output := resolveOutput(input, cfg)

	opts, err := cfg.sessionOptions()
	if err != nil {
		return err
	}
	session, err := tideflow.NewSession(opts...)
	if err != nil {
		return err
	}
	defer session.Close()

	text, err := os.ReadFile(input)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrReadMarkdown, err)
	}
	session.Edit(string(text))

	if flags.render.watch {
		return watch(ctx, session, input, output, cfg, flags, env)
	}
	return renderOnce(ctx, session, output, cfg, flags, env)
}

// resolveInput validates the positional arguments.
func resolveInput(args []string) (string, error) {
	if len(args) == 0 {
		return "", ErrNoInput
	}
	if len(args) > 1 {
		return "", fmt.Errorf("expected one input file, got %d", len(args))
	}
	input := args[0]
	ext := strings.ToLower(filepath.Ext(input))
	if ext != ".md" && ext != ".markdown" {
		return "", fmt.Errorf("%w: %s", ErrInvalidExtension, input)
	}
	if _, err := os.Stat(input); err != nil {
		return "", fmt.Errorf("input file: %w", err)
	}
	return input, nil
}

// resolveOutput derives the artifact destination from config and input.
func resolveOutput(input string, cfg *Config) string {
	if cfg.Output != "" {
		return cfg.Output
	}
	ext := filepath.Ext(input)
	return strings.TrimSuffix(input, ext) + "." + cfg.Format
}

// renderOnce performs a single render and writes the artifact.
func renderOnce(ctx context.Context, session *tideflow.Session, output string, cfg *Config, flags *cliFlags, env *Environment) error {
	if cfg.Format != "pdf" {
		if err := session.Export(ctx, output, cfg.Format, cfg.PPI); err != nil {
			return err
		}
		if !flags.common.quiet {
			fmt.Fprintf(env.Stdout, "Exported %s pages to %s\n", strings.ToUpper(cfg.Format), output)
		}
		return nil
	}

	session.RequestRender()
	started := time.Now()
	for {
		select {
		case u := <-session.Updates():
			switch u.State {
			case tideflow.StateOK:
				if err := deliverArtifact(u.ArtifactPath, output); err != nil {
					return err
				}
				if !flags.common.quiet {
					fmt.Fprintf(env.Stdout, "Rendered %s (%s)\n", output, time.Since(started).Round(time.Millisecond))
				}
				return nil
			case tideflow.StateError:
				return renderError(u.Diagnostic)
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// watch re-renders whenever the input file's mtime changes, until the
// context is canceled. Render errors are reported and watching continues.
func watch(ctx context.Context, session *tideflow.Session, input, output string, cfg *Config, flags *cliFlags, env *Environment) error {
	if cfg.Format != "pdf" {
		return fmt.Errorf("%w: watch mode renders pdf only", ErrInvalidFormat)
	}
	if !flags.common.quiet {
		fmt.Fprintf(env.Stderr, "Watching %s (Ctrl-C to stop)\n", input)
	}
	session.RequestRender()

	ticker := time.NewTicker(watchInterval)
	defer ticker.Stop()

	var lastMod time.Time
	if fi, err := os.Stat(input); err == nil {
		lastMod = fi.ModTime()
	}

	for {
		select {
		case <-ctx.Done():
			return nil

		case <-ticker.C:
			fi, err := os.Stat(input)
			if err != nil || fi.ModTime().Equal(lastMod) {
				continue
			}
			lastMod = fi.ModTime()
			text, err := os.ReadFile(input)
			if err != nil {
				fmt.Fprintf(env.Stderr, "tideflow: %v\n", err)
				continue
			}
			session.Edit(string(text))

		case u := <-session.Updates():
			switch u.State {
			case tideflow.StateOK:
				if err := deliverArtifact(u.ArtifactPath, output); err != nil {
					fmt.Fprintf(env.Stderr, "tideflow: %v\n", err)
					continue
				}
				if flags.common.verbose {
					fmt.Fprintf(env.Stderr, "rendered generation %d -> %s\n", u.Generation, output)
				}
			case tideflow.StateError:
				fmt.Fprintf(env.Stderr, "tideflow: %v\n", renderError(u.Diagnostic))
			}
		}
	}
}

// deliverArtifact copies the session-owned artifact to the destination.
// Copying, not moving, keeps the session's copy valid for later errors.
func deliverArtifact(artifact, output string) error {
	if err := fileutil.CopyFile(artifact, output); err != nil {
		return fmt.Errorf("%w: %v", ErrWriteArtifact, err)
	}
	return nil
}

func renderError(d *tideflow.Diagnostic) error {
	if d == nil {
		return ErrRenderFailed
	}
	if d.Message == tideflow.ErrToolchainUnavailable.Error() {
		return fmt.Errorf("%w (is typst installed and on PATH?)", tideflow.ErrToolchainUnavailable)
	}
	if d.Detail != "" && d.Detail != d.Message {
		return fmt.Errorf("%w: %s\n%s", ErrRenderFailed, d.Message, d.Detail)
	}
	return fmt.Errorf("%w: %s", ErrRenderFailed, d.Message)
}
