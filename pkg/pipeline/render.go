package pipeline

import (
	"bytes"
	"context"

	"github.com/matzehuels/poa/pkg/bundle"
	"github.com/matzehuels/poa/pkg/errors"
	poaio "github.com/matzehuels/poa/pkg/io"
	"github.com/matzehuels/poa/pkg/po"
	"github.com/matzehuels/poa/pkg/render/dot"
)

// Render writes g in every requested format. res may be nil. Only the
// output settings of opts are used.
func Render(ctx context.Context, g *po.Graph, res *bundle.Result, opts Options) (map[string][]byte, error) {
	if err := opts.ValidateOutput(); err != nil {
		return nil, err
	}
	out := make(map[string][]byte, len(opts.Formats))
	for _, format := range opts.sortedFormats() {
		data, err := renderFormat(ctx, g, res, opts, format)
		if err != nil {
			return nil, errors.Wrap(errors.GetCode(err), err, "render %s", format)
		}
		out[format] = data
	}
	return out, nil
}

// RenderFormat writes g in a single format.
func RenderFormat(ctx context.Context, g *po.Graph, res *bundle.Result, opts Options, format string) ([]byte, error) {
	if err := ValidateFormat(format); err != nil {
		return nil, err
	}
	return renderFormat(ctx, g, res, opts, format)
}

func renderFormat(ctx context.Context, g *po.Graph, res *bundle.Result, opts Options, format string) ([]byte, error) {
	var buf bytes.Buffer
	var err error
	switch format {
	case FormatPO:
		err = poaio.WritePO(g, &buf)
	case FormatClustal:
		err = poaio.WriteClustal(g, &buf, opts.OutputBundle())
	case FormatPIR:
		err = poaio.WritePIR(g, &buf, opts.OutputBundle())
	case FormatFASTA:
		err = poaio.WriteFASTA(g, &buf)
	case FormatJSON:
		err = poaio.WriteJSON(g, res, &buf)
	case FormatDOT, FormatSVG:
		src, derr := dot.ToDOT(g, dotOptions(res))
		if derr != nil {
			return nil, derr
		}
		if format == FormatDOT {
			return []byte(src), nil
		}
		return dot.RenderSVG(ctx, src)
	}
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func dotOptions(res *bundle.Result) dot.Options {
	return dot.Options{
		Columns: true,
		Rings:   true,
		Bundles: res != nil && len(res.Bundles) > 0,
	}
}
