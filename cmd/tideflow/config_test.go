package main

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

// chdir is t.Chdir for Go versions before 1.24.
func chdir(t *testing.T, dir string) {
	t.Helper()
	old, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(old); err != nil {
			t.Fatal(err)
		}
	})
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tideflow.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadConfig(t *testing.T) {
	t.Run("explicit file", func(t *testing.T) {
		path := writeConfig(t, "typst: /opt/typst/bin/typst\ndebounce: 150ms\nppi: 300\n")
		cfg, err := LoadConfig(path)
		if err != nil {
			t.Fatalf("LoadConfig: %v", err)
		}
		if cfg.Typst != "/opt/typst/bin/typst" {
			t.Errorf("Typst = %q", cfg.Typst)
		}
		if cfg.Debounce != "150ms" {
			t.Errorf("Debounce = %q", cfg.Debounce)
		}
		if cfg.PPI != 300 {
			t.Errorf("PPI = %d", cfg.PPI)
		}
		// Unset fields keep their defaults.
		if cfg.Timeout != "30s" {
			t.Errorf("Timeout = %q, want default", cfg.Timeout)
		}
	})

	t.Run("bare name searched in working directory", func(t *testing.T) {
		dir := t.TempDir()
		if err := os.WriteFile(filepath.Join(dir, "custom.yaml"), []byte("ppi: 200\n"), 0o644); err != nil {
			t.Fatal(err)
		}
		chdir(t, dir)
		cfg, err := LoadConfig("custom.yaml")
		if err != nil {
			t.Fatalf("LoadConfig: %v", err)
		}
		if cfg.PPI != 200 {
			t.Errorf("PPI = %d, want 200", cfg.PPI)
		}
	})

	t.Run("empty file keeps defaults", func(t *testing.T) {
		path := writeConfig(t, "")
		cfg, err := LoadConfig(path)
		if err != nil {
			t.Fatalf("LoadConfig: %v", err)
		}
		if cfg.Format != "pdf" || cfg.Debounce != "400ms" {
			t.Errorf("defaults not kept: %+v", cfg)
		}
	})

	t.Run("explicit file missing", func(t *testing.T) {
		_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
		if !errors.Is(err, ErrConfigNotFound) {
			t.Errorf("err = %v, want ErrConfigNotFound", err)
		}
	})

	t.Run("unknown field rejected", func(t *testing.T) {
		path := writeConfig(t, "typst: typst\nworkers: 4\n")
		_, err := LoadConfig(path)
		if !errors.Is(err, ErrConfigParse) {
			t.Errorf("err = %v, want ErrConfigParse", err)
		}
	})

	t.Run("malformed yaml", func(t *testing.T) {
		path := writeConfig(t, ":\n\t::not yaml")
		_, err := LoadConfig(path)
		if !errors.Is(err, ErrConfigParse) {
			t.Errorf("err = %v, want ErrConfigParse", err)
		}
	})
}

func TestMergeFlags(t *testing.T) {
	cfg := DefaultConfig()
	cfg.AssetDir = "/from/config"
	flags := &cliFlags{}
	flags.tool.typstPath = "/from/flag"
	flags.render.debounce = "50ms"
	flags.output.format = "png"
	flags.output.ppi = 300

	mergeFlags(flags, cfg)

	if cfg.Typst != "/from/flag" {
		t.Errorf("Typst = %q, flag should win", cfg.Typst)
	}
	if cfg.AssetDir != "/from/config" {
		t.Errorf("AssetDir = %q, unset flag must not clobber", cfg.AssetDir)
	}
	if cfg.Debounce != "50ms" || cfg.Format != "png" || cfg.PPI != 300 {
		t.Errorf("merged config = %+v", cfg)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{"defaults ok", func(*Config) {}, nil},
		{"bad format", func(c *Config) { c.Format = "gif" }, ErrInvalidFormat},
		{"bad ppi", func(c *Config) { c.PPI = -1 }, ErrInvalidPPIConfig},
		{"bad debounce", func(c *Config) { c.Debounce = "fast" }, ErrInvalidDuration},
		{"negative timeout", func(c *Config) { c.Timeout = "-5s" }, ErrInvalidDuration},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.validate()
			if tt.wantErr == nil && err != nil {
				t.Errorf("validate: %v", err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("validate = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestSessionOptions(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Debounce = "150ms"
	opts, err := cfg.sessionOptions()
	if err != nil {
		t.Fatalf("sessionOptions: %v", err)
	}
	if len(opts) == 0 {
		t.Fatal("no options produced")
	}

	cfg.Timeout = "soon"
	if _, err := cfg.sessionOptions(); !errors.Is(err, ErrInvalidDuration) {
		t.Errorf("err = %v, want ErrInvalidDuration", err)
	}
}
