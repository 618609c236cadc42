// Command skyline renders time-series graphs from a stack-language query.
//
// Render a graph from a JSON dataset:
//
//	skyline graph --q "name,sps,:eq,(,nf.cluster,),:by,:sum" \
//	    --input data.json --s e-1w --e 2012-01-01T00:00:00Z --out graph.png
//
// Serve graphs over HTTP:
//
//	skyline serve --input data.json --addr :7101
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/skyline-viz/skyline"
)

func main() {
	cmd := &cli.Command{
		Name:  "skyline",
		Usage: "time-series graph renderer",
		Commands: []*cli.Command{
			graphCommand(),
			serveCommand(),
		},
	}
	if err := cmd.Run(context.Background(), os.Args); err != nil {
		var ec cli.ExitCoder
		if errors.As(err, &ec) {
			os.Exit(ec.ExitCode())
		}
		// Anything else out of Run is a flag or usage problem.
		fmt.Fprintf(os.Stderr, "ERROR UsageError: %v\n", err)
		os.Exit(2)
	}
}

func dataFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "input", Usage: "JSON dataset file (.json or .json.gz)"},
		&cli.StringFlag{Name: "sqlite", Usage: "SQLite sample database"},
		&cli.StringFlag{Name: "config", Usage: "YAML configuration file"},
	}
}

func presentationFlags() []cli.Flag {
	return []cli.Flag{
		&cli.IntFlag{Name: "w", Usage: "canvas width in pixels", Value: 700},
		&cli.IntFlag{Name: "h", Usage: "canvas height in pixels", Value: 300},
		&cli.StringFlag{Name: "theme", Usage: "color theme: light or dark", Value: "light"},
		&cli.StringFlag{Name: "layout", Usage: "plot layout: single or axes", Value: "single"},
		&cli.StringFlag{Name: "palette", Usage: "auto-color palette name", Value: "default"},
		&cli.StringFlag{Name: "title", Usage: "graph title"},
		&cli.BoolFlag{Name: "no-legend", Usage: "suppress the legend band"},
		&cli.BoolFlag{Name: "only-graph", Usage: "render only the plot area, no title or legend"},
	}
}

func graphCommand() *cli.Command {
	flags := []cli.Flag{
		&cli.StringFlag{Name: "q", Usage: "postfix query program", Required: true},
		&cli.StringFlag{Name: "s", Usage: "start time (relative like e-1w, or ISO-8601)"},
		&cli.StringFlag{Name: "e", Usage: "end time (now, relative, or ISO-8601)"},
		&cli.StringFlag{Name: "tz", Usage: "tick label timezone", Value: "UTC"},
		&cli.IntFlag{Name: "step", Usage: "step in milliseconds", Value: 60_000},
		&cli.StringFlag{Name: "out", Usage: "PNG destination path", Required: true},
		&cli.StringFlag{Name: "emit-v2", Usage: "GraphDef JSON destination (.json or .json.gz)"},
		&cli.StringFlag{Name: "s3-bucket", Usage: "write outputs to this S3 bucket instead of local files"},
		&cli.StringFlag{Name: "s3-prefix", Usage: "key prefix for S3 outputs"},
		&cli.StringFlag{Name: "s3-region", Usage: "region of the S3 bucket"},
		&cli.StringFlag{Name: "s3-endpoint", Usage: "custom S3 endpoint (S3-compatible stores)"},
	}
	flags = append(flags, presentationFlags()...)
	flags = append(flags, dataFlags()...)

	return &cli.Command{
		Name:  "graph",
		Usage: "render one graph to a PNG file",
		Flags: flags,
		Action: func(ctx context.Context, cmd *cli.Command) error {
			index, err := openIndex(cmd)
			if err != nil {
				return runtimeErr(err)
			}
			opts, err := buildOptions(cmd)
			if err != nil {
				return usageErr(err)
			}
			ectx, err := skyline.ResolveWindow(
				cmd.String("s"), cmd.String("e"), int64(cmd.Int("step")),
				cmd.String("tz"), time.Now().UTC())
			if err != nil {
				return usageErr(err)
			}
			sink, err := openSink(ctx, cmd)
			if err != nil {
				return runtimeErr(err)
			}

			res, err := skyline.Render(cmd.String("q"), ectx, opts, index)
			if err != nil {
				return runtimeErr(err)
			}

			if err := sink.WritePNG(cmd.String("out"), res.PNG); err != nil {
				return runtimeErr(err)
			}
			if v2 := cmd.String("emit-v2"); v2 != "" {
				if err := sink.WriteGraphDef(v2, res.GraphDef); err != nil {
					return runtimeErr(err)
				}
			}
			return nil
		},
	}
}

func serveCommand() *cli.Command {
	flags := []cli.Flag{
		&cli.StringFlag{Name: "addr", Usage: "listen address", Value: ":7101"},
		&cli.IntFlag{Name: "step", Usage: "default step in milliseconds", Value: 60_000},
		&cli.IntFlag{Name: "cache", Usage: "render cache entries, 0 disables", Value: 256},
		&cli.DurationFlag{Name: "refresh", Usage: "live push interval", Value: 10 * time.Second},
	}
	flags = append(flags, presentationFlags()...)
	flags = append(flags, dataFlags()...)

	return &cli.Command{
		Name:  "serve",
		Usage: "serve graphs over HTTP",
		Flags: flags,
		Action: func(_ context.Context, cmd *cli.Command) error {
			index, err := openIndex(cmd)
			if err != nil {
				return runtimeErr(err)
			}
			opts, err := buildOptions(cmd)
			if err != nil {
				return usageErr(err)
			}

			var cache *skyline.RenderCache
			if n := int(cmd.Int("cache")); n > 0 {
				cache = skyline.NewRenderCache(skyline.RenderCacheConfig{MaxEntries: n})
			}
			viewer := skyline.NewViewer(skyline.ViewerConfig{
				Addr:            cmd.String("addr"),
				Index:           index,
				Options:         opts,
				StepMS:          int64(cmd.Int("step")),
				Cache:           cache,
				RefreshInterval: cmd.Duration("refresh"),
				Logger:          slog.Default(),
			})
			return runtimeErr(viewer.ListenAndServe())
		},
	}
}

// openSink selects the artifact destination: an S3 bucket when --s3-bucket is
// set, local files otherwise.
func openSink(ctx context.Context, cmd *cli.Command) (skyline.ChartSink, error) {
	bucket := cmd.String("s3-bucket")
	if bucket == "" {
		return &skyline.FileSink{}, nil
	}
	return skyline.NewS3Sink(ctx, skyline.S3SinkConfig{
		Bucket:   bucket,
		Prefix:   cmd.String("s3-prefix"),
		Region:   cmd.String("s3-region"),
		Endpoint: cmd.String("s3-endpoint"),
	})
}

// openIndex builds the tag index from --input or --sqlite.
func openIndex(cmd *cli.Command) (skyline.TagIndex, error) {
	input := cmd.String("input")
	sqlitePath := cmd.String("sqlite")
	switch {
	case input != "" && sqlitePath != "":
		return nil, errors.New("--input and --sqlite are mutually exclusive")
	case input != "":
		return skyline.LoadDatasetFile(input)
	case sqlitePath != "":
		return skyline.OpenSQLiteIndex(skyline.SQLiteIndexConfig{Path: sqlitePath})
	}
	return nil, errors.New("one of --input or --sqlite is required")
}

// buildOptions merges the config file (when given) with the presentation
// flags; flags win.
func buildOptions(cmd *cli.Command) (skyline.Options, error) {
	opts := skyline.DefaultOptions()
	if path := cmd.String("config"); path != "" {
		cfg, err := skyline.LoadFileConfig(path)
		if err != nil {
			return opts, err
		}
		opts = cfg.Apply(opts)
	}
	opts.Width = int(cmd.Int("w"))
	opts.Height = int(cmd.Int("h"))
	opts.Theme = skyline.Theme(cmd.String("theme"))
	opts.Layout = skyline.Layout(cmd.String("layout"))
	opts.Palette = cmd.String("palette")
	opts.Title = cmd.String("title")
	if cmd.Bool("no-legend") {
		opts.NoLegend = true
	}
	if cmd.Bool("only-graph") {
		opts.OnlyGraph = true
	}
	switch opts.Theme {
	case skyline.ThemeLight, skyline.ThemeDark:
	default:
		return opts, fmt.Errorf("unknown theme %q", opts.Theme)
	}
	switch opts.Layout {
	case skyline.LayoutSingle, skyline.LayoutAxes:
	default:
		return opts, fmt.Errorf("unknown layout %q", opts.Layout)
	}
	return opts, nil
}

// usageErr reports a usage problem on stderr and exits 2.
func usageErr(err error) error {
	fmt.Fprintf(os.Stderr, "ERROR UsageError: %v\n", err)
	return cli.Exit("", 2)
}

// runtimeErr reports a runtime failure on stderr with its error kind and
// exits 1.
func runtimeErr(err error) error {
	if err == nil {
		return nil
	}
	fmt.Fprintf(os.Stderr, "ERROR %s: %v\n", errorKind(err), err)
	return cli.Exit("", 1)
}

func errorKind(err error) string {
	var parseErr *skyline.ParseError
	var evalErr *skyline.EvalError
	var renderErr *skyline.RenderError
	var codecErr *skyline.CodecError
	switch {
	case errors.As(err, &parseErr):
		return "ParseError"
	case errors.As(err, &evalErr):
		return "EvalError"
	case errors.As(err, &renderErr), errors.Is(err, skyline.ErrInvalidCanvas):
		return "RenderError"
	case errors.As(err, &codecErr):
		return "CodecError"
	case errors.Is(err, skyline.ErrInvalidContext), errors.Is(err, skyline.ErrInvalidSeqSpec),
		errors.Is(err, skyline.ErrUnalignedSeries):
		return "DataError"
	}
	return "IOError"
}
