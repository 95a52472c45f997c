package fileutil_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/firstbrett/tideflow-md-to-pdf/internal/fileutil"
)

func TestFileExists(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	file := filepath.Join(dir, "present.txt")
	if err := os.WriteFile(file, []byte("x"), 0o600); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		path string
		want bool
	}{
		{name: "existing file", path: file, want: true},
		{name: "missing file", path: filepath.Join(dir, "absent.txt"), want: false},
		{name: "directory is not a file", path: dir, want: false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := fileutil.FileExists(tt.path); got != tt.want {
				t.Errorf("FileExists(%q) = %v, want %v", tt.path, got, tt.want)
			}
		})
	}
}

func TestIsFilePath(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want bool
	}{
		{"default", false},
		{"./custom.yaml", true},
		{"../shared/conf.yaml", true},
		{"/absolute/path.yaml", true},
		{`C:\windows\conf.yaml`, true},
		{"my-config", false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			if got := fileutil.IsFilePath(tt.in); got != tt.want {
				t.Errorf("IsFilePath(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestCopyFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	src := filepath.Join(dir, "src.bin")
	if err := os.WriteFile(src, []byte("payload"), 0o600); err != nil {
		t.Fatal(err)
	}

	// Destination in a directory that does not exist yet.
	dst := filepath.Join(dir, "nested", "deep", "dst.bin")
	if err := fileutil.CopyFile(src, dst); err != nil {
		t.Fatalf("CopyFile() unexpected error: %v", err)
	}

	got, err := os.ReadFile(dst)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "payload" {
		t.Errorf("copied content = %q, want %q", got, "payload")
	}
}

func TestCopyFile_MissingSource(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	err := fileutil.CopyFile(filepath.Join(dir, "nope"), filepath.Join(dir, "dst"))
	if err == nil {
		t.Fatal("CopyFile() expected error for missing source, got nil")
	}
}

func TestMoveFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	src := filepath.Join(dir, "artifact.pdf")
	if err := os.WriteFile(src, []byte("%PDF-1.7"), 0o600); err != nil {
		t.Fatal(err)
	}

	dst := filepath.Join(dir, "published", "artifact.pdf")
	if err := fileutil.MoveFile(src, dst); err != nil {
		t.Fatalf("MoveFile() unexpected error: %v", err)
	}

	if fileutil.FileExists(src) {
		t.Error("source still exists after move")
	}
	got, err := os.ReadFile(dst)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "%PDF-1.7" {
		t.Errorf("moved content = %q, want %q", got, "%PDF-1.7")
	}
}
