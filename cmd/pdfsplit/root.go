package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	cfgpkg "github.com/local/pdfsplit/internal/config"
	logpkg "github.com/local/pdfsplit/internal/logger"
	"github.com/local/pdfsplit/internal/metrics"
	"github.com/local/pdfsplit/internal/pipeline"
	"github.com/local/pdfsplit/internal/selection"
	"github.com/local/pdfsplit/internal/source"
	"github.com/local/pdfsplit/internal/splitter"
	"github.com/local/pdfsplit/internal/storage"
	"github.com/local/pdfsplit/internal/verify"
)

// staleTempAge is how old leftovers of interrupted runs must be before removal.
const staleTempAge = 24 * time.Hour

type options struct {
	output      string
	pages       string
	start       int
	end         int
	direction   string
	password    string
	verify      bool
	previewDir  string
	previewDPI  int
	previewQual int
	previewGray bool
	metricsFile string
}

func (o options) previewOptions() verify.PreviewOptions {
	color := verify.ColorRGB
	if o.previewGray {
		color = verify.ColorGray
	}
	return verify.PreviewOptions{DPI: o.previewDPI, Quality: o.previewQual, Color: color}
}

func newRootCmd(cfg cfgpkg.Config, stdout io.Writer) *cobra.Command {
	opts := options{
		start:       cfg.Split.Start,
		direction:   cfg.Split.Direction,
		password:    cfg.Split.Password,
		verify:      cfg.Split.Verify,
		previewDPI:  72,
		previewQual: 85,
		metricsFile: cfg.Metrics.File,
	}

	cmd := &cobra.Command{
		Use:   "pdfsplit <input>",
		Short: "Split PDF pages into left/right or top/bottom halves",
		Long: `pdfsplit replaces each selected page of a PDF with two pages showing its
halves, by adjusting the page's visible area (CropBox). Other pages are kept
as they are.

The input may be a local path, a file:// or http(s):// URL, or an
s3://bucket/key reference. The output defaults to the input name with
" - Split" inserted before the extension.`,
		Example: `  pdfsplit scan.pdf
  pdfsplit scan.pdf -s 2 -e 10 -d horizontal
  pdfsplit scan.pdf -p "1,3-5,7" -o halves.pdf
  pdfsplit s3://bucket/in/scan.pdf --verify`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), cfg, opts, args[0], stdout)
		},
	}

	bindFlags(cmd.Flags(), &opts)
	return cmd
}

func bindFlags(f *pflag.FlagSet, opts *options) {
	f.StringVarP(&opts.output, "output", "o", "", `output path or s3:// reference (default "<input> - Split.pdf")`)
	f.StringVarP(&opts.pages, "pages", "p", "", `pages to split, e.g. "1,3-5,7"; overrides --start/--end`)
	f.IntVarP(&opts.start, "start", "s", opts.start, "first page to split (1-based)")
	f.IntVarP(&opts.end, "end", "e", 0, "last page to split (default: last page)")
	f.StringVarP(&opts.direction, "direction", "d", opts.direction, "split direction: vertical or horizontal")
	f.StringVar(&opts.password, "password", opts.password, "password of an encrypted input")
	f.BoolVar(&opts.verify, "verify", opts.verify, "re-open the output with MuPDF and check page sizes")
	f.StringVar(&opts.previewDir, "preview-dir", "", "render every output page as JPEG into this directory")
	f.IntVar(&opts.previewDPI, "preview-dpi", opts.previewDPI, "resolution of preview images")
	f.IntVar(&opts.previewQual, "preview-quality", opts.previewQual, "JPEG quality of preview images (1-100)")
	f.BoolVar(&opts.previewGray, "preview-gray", false, "render preview images in grayscale")
	f.StringVar(&opts.metricsFile, "metrics-file", opts.metricsFile, "write Prometheus textfile metrics to this path")
}

func run(ctx context.Context, cfg cfgpkg.Config, opts options, input string, stdout io.Writer) (err error) {
	if ctx == nil {
		ctx = context.Background()
	}

	_ = logpkg.Init(logpkg.Options{
		Level:        cfg.Logging.Level,
		Pretty:       cfg.Logging.Pretty,
		File:         cfg.Logging.File,
		MaxSizeMB:    cfg.Logging.MaxSizeMB,
		MaxBackups:   cfg.Logging.MaxBackups,
		MaxAgeDays:   cfg.Logging.MaxAgeDays,
		Compress:     cfg.Logging.Compress,
		SendToAxiom:  cfg.Axiom.Send && cfg.Axiom.APIKey != "",
		AxiomAPIKey:  cfg.Axiom.APIKey,
		AxiomOrgID:   cfg.Axiom.OrgID,
		AxiomDataset: cfg.Axiom.Dataset,
		AxiomFlush:   cfg.Axiom.FlushInterval,
	})
	defer logpkg.Close()

	dir, err := splitter.ParseDirection(opts.direction)
	if err != nil {
		return err
	}

	pipeline.CleanupTemps("", staleTempAge)

	rec := metrics.New()
	if opts.metricsFile != "" {
		defer func() {
			if werr := rec.WriteTextfile(opts.metricsFile); werr != nil {
				log.Warn().Err(werr).Str("file", opts.metricsFile).Msg("failed to write metrics")
			}
		}()
	}

	var store source.ObjectStore
	if storage.IsURL(input) || storage.IsURL(opts.output) {
		s3c, err := storage.NewS3Client(ctx, storage.Options{
			Region:          cfg.Storage.Region,
			Endpoint:        cfg.Storage.Endpoint,
			AccessKeyID:     cfg.Storage.AccessKeyID,
			SecretAccessKey: cfg.Storage.SecretAccessKey,
			ForcePathStyle:  cfg.Storage.ForcePathStyle,
		})
		if err != nil {
			log.Warn().Err(err).Msg("s3 storage unavailable")
		} else {
			store = s3c
		}
	}

	p := pipeline.New(pipeline.Dependencies{
		Sources:  source.NewResolver(cfg.Storage.HTTPTimeout, store),
		Verifier: verify.MuPDF{},
		Metrics:  rec,
	})

	rep, err := p.Run(ctx, pipeline.Job{
		Input:      input,
		Output:     opts.output,
		Selection:  selection.Spec{Start: opts.start, End: opts.end, List: opts.pages},
		Direction:  dir,
		Password:   opts.password,
		Verify:     opts.verify,
		PreviewDir: opts.previewDir,
		Preview:    opts.previewOptions(),
	})
	if err != nil {
		return err
	}

	printReport(stdout, rep, dir)
	return nil
}

func printReport(w io.Writer, rep *pipeline.Report, dir splitter.Direction) {
	fmt.Fprintf(w, "Input:        %s (%d pages)\n", source.Describe(rep.Input), rep.InputPages)
	pages := rep.Selected.String()
	if pages == "" {
		pages = "none"
	}
	fmt.Fprintf(w, "Split pages:  %s (%s)\n", pages, dir)
	fmt.Fprintf(w, "Output:       %s\n", source.Describe(rep.Output))
	fmt.Fprintf(w, "Page count:   %d -> %d\n", rep.InputPages, rep.OutputPages)
	fmt.Fprintf(w, "Output size:  %s bytes (%s)\n", humanize.Comma(rep.Size), humanize.Bytes(uint64(rep.Size)))
	if len(rep.Previews) > 0 {
		fmt.Fprintf(w, "Previews:     %d images\n", len(rep.Previews))
	}
}
