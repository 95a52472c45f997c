// Package workdir manages the disposable working area of one compile attempt.
//
// Every attempt gets its own directory holding the annotated document and a
// mirror of any referenced assets. The area is released when the attempt
// ends, whether it succeeded, failed, or was preempted.
package workdir

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/firstbrett/tideflow-md-to-pdf/internal/fileutil"
)

// AssetSubdir is where mirrored assets land inside the area.
const AssetSubdir = "assets"

// Area is a scoped build directory. Create with New, dispose with Release.
type Area struct {
	dir      string
	released bool
}

// New creates a fresh working area under root. An empty root uses the
// system temp directory.
func New(root string) (*Area, error) {
	dir, err := os.MkdirTemp(root, "tideflow-build-*")
	if err != nil {
		return nil, fmt.Errorf("creating working area: %w", err)
	}
	return &Area{dir: dir}, nil
}

// Dir returns the area's directory path.
func (a *Area) Dir() string {
	return a.dir
}

// MirrorAssets copies the asset directory tree into the area so the compiler
// can resolve relative references. Image files whose extension disagrees with
// their actual format are mirrored under a corrected name; compilers reject
// mislabeled images. A missing source directory is not an error.
func (a *Area) MirrorAssets(src string) error {
	if src == "" {
		return nil
	}
	info, err := os.Stat(src)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("reading asset directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("asset path %s is not a directory", src)
	}
	return mirrorTree(src, filepath.Join(a.dir, AssetSubdir))
}

// Release removes the area. Safe to call more than once; errors are ignored
// because release is a best-effort cleanup on every attempt exit path.
func (a *Area) Release() {
	if a.released {
		return
	}
	a.released = true
	_ = os.RemoveAll(a.dir)
}

func mirrorTree(src, dst string) error {
	if err := os.MkdirAll(dst, 0o750); err != nil {
		return fmt.Errorf("creating asset mirror: %w", err)
	}
	entries, err := os.ReadDir(src)
	if err != nil {
		return fmt.Errorf("reading asset directory: %w", err)
	}
	for _, entry := range entries {
		srcPath := filepath.Join(src, entry.Name())
		if entry.IsDir() {
			if err := mirrorTree(srcPath, filepath.Join(dst, entry.Name())); err != nil {
				return err
			}
			continue
		}
		name := correctedName(srcPath, entry.Name())
		if err := fileutil.CopyFile(srcPath, filepath.Join(dst, name)); err != nil {
			return err
		}
	}
	return nil
}

// correctedName returns name with its extension fixed to match the sniffed
// image format, or name unchanged for non-images and unreadable files.
func correctedName(path, name string) string {
	format, err := DetectImageFormat(path)
	if err != nil || format == "" {
		return name
	}
	ext := filepath.Ext(name)
	if normalizeExt(ext) == format {
		return name
	}
	return name[:len(name)-len(ext)] + "." + format
}

func normalizeExt(ext string) string {
	switch ext {
	case ".png":
		return "png"
	case ".jpg", ".jpeg":
		return "jpg"
	case ".gif":
		return "gif"
	case ".webp":
		return "webp"
	case ".bmp":
		return "bmp"
	}
	return ""
}

// DetectImageFormat sniffs an image file's real format from its magic bytes.
// Returns "" for formats it does not recognize.
func DetectImageFormat(path string) (string, error) {
	f, err := os.Open(path) // #nosec G304 -- asset paths come from the configured asset dir
	if err != nil {
		return "", err
	}
	defer func() { _ = f.Close() }()

	header := make([]byte, 12)
	n, err := f.Read(header)
	if err != nil && n == 0 {
		return "", err
	}
	header = header[:n]
	if n < 4 {
		return "", nil
	}

	switch {
	case header[0] == 0x89 && header[1] == 'P' && header[2] == 'N' && header[3] == 'G':
		return "png", nil
	case header[0] == 0xFF && header[1] == 0xD8 && header[2] == 0xFF:
		return "jpg", nil
	case header[0] == 'G' && header[1] == 'I' && header[2] == 'F':
		return "gif", nil
	case n >= 12 && string(header[0:4]) == "RIFF" && string(header[8:12]) == "WEBP":
		return "webp", nil
	case header[0] == 'B' && header[1] == 'M':
		return "bmp", nil
	}
	return "", nil
}
