package main

import (
	"os"

	flag "github.com/spf13/pflag"
)

// commonFlags holds flags shared across modes.
type commonFlags struct {
	config  string
	quiet   bool
	verbose bool
	version bool
}

// outputFlags holds artifact destination flags.
type outputFlags struct {
	output string
	format string
	ppi    int
}

// renderFlags holds render loop tuning flags.
type renderFlags struct {
	watch    bool
	debounce string
	timeout  string
}

// toolFlags holds external tool and asset flags.
type toolFlags struct {
	typstPath string
	assetDir  string
}

// cliFlags holds all flags for the tideflow command.
type cliFlags struct {
	common commonFlags
	output outputFlags
	render renderFlags
	tool   toolFlags
}

// addCommonFlags adds common flags to a FlagSet.
func addCommonFlags(fs *flag.FlagSet, f *commonFlags) {
	fs.StringVarP(&f.config, "config", "c", "", "config file name or path")
	fs.BoolVarP(&f.quiet, "quiet", "q", false, "only show errors")
	fs.BoolVarP(&f.verbose, "verbose", "v", false, "show render timing and state changes")
	fs.BoolVar(&f.version, "version", false, "print version and exit")
}

// addOutputFlags adds artifact destination flags to a FlagSet.
func addOutputFlags(fs *flag.FlagSet, f *outputFlags) {
	fs.StringVarP(&f.output, "output", "o", "", "output file (default: input stem + format extension)")
	fs.StringVarP(&f.format, "format", "f", "", "output format: pdf, png, svg")
	fs.IntVar(&f.ppi, "ppi", 0, "raster density for png export")
}

// addRenderFlags adds render loop flags to a FlagSet.
func addRenderFlags(fs *flag.FlagSet, f *renderFlags) {
	fs.BoolVarP(&f.watch, "watch", "w", false, "re-render when the input file changes")
	fs.StringVar(&f.debounce, "debounce", "", "quiet window after an edit (e.g., 200ms)")
	fs.StringVarP(&f.timeout, "timeout", "t", "", "per-render timeout (e.g., 30s, 2m)")
}

// addToolFlags adds external tool flags to a FlagSet.
func addToolFlags(fs *flag.FlagSet, f *toolFlags) {
	fs.StringVar(&f.typstPath, "typst", "", "path to the typst binary")
	fs.StringVar(&f.assetDir, "asset-dir", "", "directory mirrored into the build area's assets/ subdirectory")
}

// parseFlags parses command line flags and returns positional args.
func parseFlags(args []string) (*cliFlags, []string, error) {
	fs := flag.NewFlagSet("tideflow", flag.ContinueOnError)
	f := &cliFlags{}

	addCommonFlags(fs, &f.common)
	addOutputFlags(fs, &f.output)
	addRenderFlags(fs, &f.render)
	addToolFlags(fs, &f.tool)

	fs.Usage = func() { printUsage(os.Stderr) }

	if err := fs.Parse(args); err != nil {
		return nil, nil, err
	}
	return f, fs.Args(), nil
}
