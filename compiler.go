package tideflow

import (
	"context"

	"github.com/firstbrett/tideflow-md-to-pdf/internal/sourcemap"
	"github.com/firstbrett/tideflow-md-to-pdf/internal/typst"
	"github.com/firstbrett/tideflow-md-to-pdf/internal/workdir"
)

// compileReport is the outcome of one successful compile attempt.
type compileReport struct {
	artifactPath string
	locations    map[string]sourcemap.Location
}

// compiler runs one compile or export inside a prepared working area.
type compiler interface {
	Compile(ctx context.Context, annotated string, area *workdir.Area) (*compileReport, error)
	Export(ctx context.Context, annotated string, area *workdir.Area, format string, ppi int, dest string) error
}

var _ compiler = (*typstCompiler)(nil)

// typstCompiler adapts the Typst CLI runner to the compiler interface.
type typstCompiler struct {
	runner *typst.Runner
}

func newTypstCompiler(bin string) *typstCompiler {
	return &typstCompiler{runner: typst.NewRunner(bin)}
}

func (c *typstCompiler) Compile(ctx context.Context, annotated string, area *workdir.Area) (*compileReport, error) {
	res, err := c.runner.Compile(ctx, area.Dir(), annotated)
	if err != nil {
		return nil, err
	}
	return &compileReport{artifactPath: res.ArtifactPath, locations: res.Locations}, nil
}

func (c *typstCompiler) Export(ctx context.Context, annotated string, area *workdir.Area, format string, ppi int, dest string) error {
	return c.runner.Export(ctx, area.Dir(), annotated, format, ppi, dest)
}
