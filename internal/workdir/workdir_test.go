package workdir_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/firstbrett/tideflow-md-to-pdf/internal/workdir"
)

// Minimal valid headers for format sniffing.
var (
	pngHeader  = []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A, 0, 0, 0, 0}
	jpegHeader = []byte{0xFF, 0xD8, 0xFF, 0xE0, 0, 0, 0, 0}
	gifHeader  = []byte("GIF89a\x00\x00")
	webpHeader = []byte("RIFF\x00\x00\x00\x00WEBP")
	bmpHeader  = []byte("BM\x00\x00\x00\x00")
)

func TestNewAndRelease(t *testing.T) {
	t.Parallel()

	area, err := workdir.New(t.TempDir())
	if err != nil {
		t.Fatalf("New() unexpected error: %v", err)
	}

	if _, err := os.Stat(area.Dir()); err != nil {
		t.Fatalf("working area missing: %v", err)
	}

	area.Release()
	if _, err := os.Stat(area.Dir()); !os.IsNotExist(err) {
		t.Error("Release() did not remove the working area")
	}

	// Second release is a no-op.
	area.Release()
}

func TestMirrorAssets(t *testing.T) {
	t.Parallel()

	src := t.TempDir()
	if err := os.MkdirAll(filepath.Join(src, "images"), 0o750); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(src, "images", "logo.png"), pngHeader, 0o600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(src, "notes.txt"), []byte("plain"), 0o600); err != nil {
		t.Fatal(err)
	}

	area, err := workdir.New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	defer area.Release()

	if err := area.MirrorAssets(src); err != nil {
		t.Fatalf("MirrorAssets() unexpected error: %v", err)
	}

	for _, rel := range []string{
		filepath.Join(workdir.AssetSubdir, "images", "logo.png"),
		filepath.Join(workdir.AssetSubdir, "notes.txt"),
	} {
		if _, err := os.Stat(filepath.Join(area.Dir(), rel)); err != nil {
			t.Errorf("mirrored file %s missing: %v", rel, err)
		}
	}
}

func TestMirrorAssets_CorrectsExtension(t *testing.T) {
	t.Parallel()

	// A PNG saved with a .jpg extension gets mirrored under the right name.
	src := t.TempDir()
	if err := os.WriteFile(filepath.Join(src, "photo.jpg"), pngHeader, 0o600); err != nil {
		t.Fatal(err)
	}

	area, err := workdir.New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	defer area.Release()

	if err := area.MirrorAssets(src); err != nil {
		t.Fatalf("MirrorAssets() unexpected error: %v", err)
	}

	if _, err := os.Stat(filepath.Join(area.Dir(), workdir.AssetSubdir, "photo.png")); err != nil {
		t.Error("mislabeled PNG was not mirrored as photo.png")
	}
}

func TestMirrorAssets_MissingSource(t *testing.T) {
	t.Parallel()

	area, err := workdir.New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	defer area.Release()

	if err := area.MirrorAssets(filepath.Join(t.TempDir(), "nope")); err != nil {
		t.Errorf("MirrorAssets() with missing source = %v, want nil", err)
	}
	if err := area.MirrorAssets(""); err != nil {
		t.Errorf("MirrorAssets() with empty source = %v, want nil", err)
	}
}

func TestDetectImageFormat(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		header []byte
		want   string
	}{
		{name: "png", header: pngHeader, want: "png"},
		{name: "jpeg", header: jpegHeader, want: "jpg"},
		{name: "gif", header: gifHeader, want: "gif"},
		{name: "webp", header: webpHeader, want: "webp"},
		{name: "bmp", header: bmpHeader, want: "bmp"},
		{name: "unknown", header: []byte("plain text file"), want: ""},
		{name: "too short", header: []byte{0x89}, want: ""},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			path := filepath.Join(t.TempDir(), "sample")
			if err := os.WriteFile(path, tt.header, 0o600); err != nil {
				t.Fatal(err)
			}

			got, err := workdir.DetectImageFormat(path)
			if err != nil {
				t.Fatalf("DetectImageFormat() unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("DetectImageFormat() = %q, want %q", got, tt.want)
			}
		})
	}
}
