package main

import (
	"fmt"
	"io"
)

// printUsage prints the usage message.
func printUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: tideflow [flags] <input.md>")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Render a markdown file to PDF through Typst. With --watch, re-render")
	fmt.Fprintln(w, "whenever the file changes.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Output:")
	fmt.Fprintln(w, "  -o, --output <path>     Output file (default: input stem + format extension)")
	fmt.Fprintln(w, "  -f, --format <s>        Output format: pdf, png, svg (default: pdf)")
	fmt.Fprintln(w, "      --ppi <n>           Raster density for png export (default: 144)")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Render loop:")
	fmt.Fprintln(w, "  -w, --watch             Re-render on file changes until interrupted")
	fmt.Fprintln(w, "      --debounce <d>      Quiet window after an edit (default: 400ms)")
	fmt.Fprintln(w, "  -t, --timeout <d>       Per-render timeout (default: 30s)")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Toolchain:")
	fmt.Fprintln(w, "      --typst <path>      Path to the typst binary (default: typst on PATH)")
	fmt.Fprintln(w, "      --asset-dir <path>  Directory mirrored into the build area's assets/")
	fmt.Fprintln(w, "                          subdirectory (reference as assets/<name>)")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Common:")
	fmt.Fprintln(w, "  -c, --config <path>     Config file (default: ./tideflow.yaml, then the")
	fmt.Fprintln(w, "                          user config directory)")
	fmt.Fprintln(w, "  -q, --quiet             Only show errors")
	fmt.Fprintln(w, "  -v, --verbose           Show render timing and state changes")
	fmt.Fprintln(w, "      --version           Print version and exit")
}
