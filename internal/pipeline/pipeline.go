package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/local/pdfsplit/internal/apperr"
	"github.com/local/pdfsplit/internal/pdfio"
	"github.com/local/pdfsplit/internal/selection"
	"github.com/local/pdfsplit/internal/source"
	"github.com/local/pdfsplit/internal/splitter"
	"github.com/local/pdfsplit/internal/storage"
	"github.com/local/pdfsplit/internal/verify"
)

// Sources fetches inputs and publishes outputs.
type Sources interface {
	Fetch(ctx context.Context, ref string) (*source.Local, error)
	Publish(ctx context.Context, localPath, dest string) error
}

// Verifier re-opens written output independently of the writer.
type Verifier interface {
	Check(path string, want []verify.Size) (*verify.Diagnostics, error)
	RenderPreviews(path, dir string, opts verify.PreviewOptions) ([]string, error)
}

// Recorder receives run metrics.
type Recorder interface {
	ObserveSplit(direction string, in, split, out int, size int64)
	ObserveRun(result string, dur time.Duration)
}

type Dependencies struct {
	Sources  Sources
	Verifier Verifier // nil disables Job.Verify and previews
	Metrics  Recorder // optional
}

type Pipeline struct {
	deps Dependencies
}

func New(deps Dependencies) *Pipeline {
	return &Pipeline{deps: deps}
}

// Job is one split request.
type Job struct {
	Input     string
	Output    string // derived from Input when empty
	Selection selection.Spec
	Direction splitter.Direction
	Password  string

	Verify     bool
	PreviewDir string
	Preview    verify.PreviewOptions
}

// Report summarizes a finished run.
type Report struct {
	Input       string
	Output      string
	InputPages  int
	Selected    selection.Selection
	OutputPages int
	Size        int64
	Previews    []string
	Elapsed     time.Duration
}

// Run executes job: fetch, read, select, split, write, verify, publish.
// Nothing is written when the selection is invalid.
func (p *Pipeline) Run(ctx context.Context, job Job) (rep *Report, err error) {
	start := time.Now()
	dir := job.Direction
	if dir == "" {
		dir = splitter.Vertical
	}
	defer func() {
		p.observe(dir, rep, err, time.Since(start))
	}()

	if p.deps.Sources == nil {
		return nil, errors.New("pipeline: no sources configured")
	}
	out := job.Output
	if out == "" {
		out = source.DefaultOutput(job.Input)
	}
	log.Info().
		Str("input", source.Describe(job.Input)).
		Str("output", source.Describe(out)).
		Str("direction", dir.String()).
		Msg("starting split")

	// Step 1: make the input local
	in, err := p.deps.Sources.Fetch(ctx, job.Input)
	if err != nil {
		return nil, err
	}
	defer in.Close()

	// Step 2: sniff, parse and validate
	doc, err := pdfio.Read(in.Path, job.Password)
	if err != nil {
		return nil, err
	}
	total := doc.PageCount

	// Step 3: resolve the selection before anything is produced
	sel, err := selection.Resolve(total, job.Selection)
	if err != nil {
		return nil, err
	}
	log.Info().
		Int("total_pages", total).
		Str("pages", sel.String()).
		Int("selected", sel.Len()).
		Msg("selection resolved")

	// Step 4: build the output document in memory
	res, err := splitter.Split(doc, sel, dir)
	if err != nil {
		return nil, err
	}

	// Step 5: serialize; remote destinations go through a local temp dir
	local, cleanup, err := localTarget(out)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	staged, err := pdfio.Stage(res.Doc, local)
	if err != nil {
		return nil, err
	}
	defer staged.Discard()

	rep = &Report{
		Input:       job.Input,
		Output:      out,
		InputPages:  total,
		Selected:    sel,
		OutputPages: res.PageCount(),
		Size:        staged.Size,
	}

	// Step 6: optional independent check and previews, before the output
	// replaces its destination
	if job.Verify || job.PreviewDir != "" {
		if p.deps.Verifier == nil {
			return nil, apperr.New(apperr.VerifyFailure, local, "no verifier configured")
		}
	}
	if job.Verify {
		diag, err := p.deps.Verifier.Check(staged.Path, sizes(res))
		if err != nil {
			return nil, err
		}
		log.Info().Int("pages", diag.GotPages).Int64("duration_ms", diag.DurationMs).Msg("output verified")
	}
	if job.PreviewDir != "" {
		files, err := p.deps.Verifier.RenderPreviews(staged.Path, job.PreviewDir, job.Preview)
		if err != nil {
			return nil, err
		}
		rep.Previews = files
		log.Info().Int("previews", len(files)).Str("dir", job.PreviewDir).Msg("rendered previews")
	}

	if err := staged.Commit(); err != nil {
		return nil, err
	}

	// Step 7: publish remote destinations
	if err := p.deps.Sources.Publish(ctx, local, out); err != nil {
		return nil, err
	}

	rep.Elapsed = time.Since(start)
	log.Info().
		Int("input_pages", rep.InputPages).
		Int("output_pages", rep.OutputPages).
		Int64("size", rep.Size).
		Dur("duration", rep.Elapsed).
		Msg("split completed")
	return rep, nil
}

func (p *Pipeline) observe(dir splitter.Direction, rep *Report, err error, dur time.Duration) {
	if err != nil {
		kind := apperr.KindOf(err)
		log.Error().Err(err).Str("kind", string(kind)).Msg("split failed")
		if p.deps.Metrics != nil {
			p.deps.Metrics.ObserveRun(string(kind), dur)
		}
		return
	}
	if p.deps.Metrics == nil {
		return
	}
	p.deps.Metrics.ObserveSplit(dir.String(), rep.InputPages, rep.Selected.Len(), rep.OutputPages, rep.Size)
	p.deps.Metrics.ObserveRun("success", dur)
}

// localTarget returns where the output is serialized. For s3:// outputs this
// is a file in a fresh temp dir, removed by cleanup.
func localTarget(out string) (string, func(), error) {
	if !storage.IsURL(out) {
		return source.LocalPath(out), func() {}, nil
	}
	obj, err := storage.ParseURL(out)
	if err != nil {
		return "", nil, apperr.Wrap(apperr.WriteFailure, out, err, "bad output reference")
	}
	dir, err := os.MkdirTemp("", "pdfsplit-out-")
	if err != nil {
		return "", nil, apperr.Wrap(apperr.WriteFailure, out, err, "cannot create temp dir")
	}
	return filepath.Join(dir, filepath.Base(obj.Key)), func() { _ = os.RemoveAll(dir) }, nil
}

func sizes(res *splitter.Result) []verify.Size {
	want := make([]verify.Size, len(res.Boxes))
	for i, b := range res.Boxes {
		want[i] = verify.Size{W: b.Width(), H: b.Height()}
	}
	return want
}
