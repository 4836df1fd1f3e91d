package buildpipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"runtime"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/text/encoding"
	"golang.org/x/text/transform"

	"asmbridge/internal/asm"
	"asmbridge/internal/asmcache"
	"asmbridge/internal/diag"
	"asmbridge/internal/diagfmt"
	"asmbridge/internal/observ"
	"asmbridge/internal/source"
)

// Request configures one batch run.
type Request struct {
	Files []string
	// Options must be the options Assembler was built with; they are part of
	// the cache key.
	Options   asm.Options
	Assembler *asm.Assembler
	Cache     *asmcache.Cache // nil disables caching
	Jobs      int             // 0 means GOMAXPROCS
	Progress  ProgressSink
	Timer     *observ.Timer
	Logger    zerolog.Logger
	// After runs inside the worker for successful files, e.g. to write output.
	After func(res *FileResult) error
}

// FileResult is the outcome for one input file.
type FileResult struct {
	Path    string
	FileID  source.FileID
	Output  []byte // nil on failure
	Bag     *diag.Bag
	Cached  bool
	LoadErr error
}

// Failed reports whether the file produced no usable output.
func (r *FileResult) Failed() bool {
	return r.LoadErr != nil || r.Bag == nil || r.Bag.HasErrors() || r.Output == nil
}

// Result holds per-file outcomes in the order of Request.Files.
type Result struct {
	FileSet *source.FileSet
	Files   []FileResult
}

// Failed returns the number of failed files.
func (r Result) Failed() int {
	n := 0
	for i := range r.Files {
		if r.Files[i].Failed() {
			n++
		}
	}
	return n
}

// Assemble loads every file, then assembles them in parallel.
// The returned error is reserved for cancellation and After failures;
// assembly errors live in the per-file bags.
func Assemble(ctx context.Context, req *Request) (Result, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if req == nil || req.Assembler == nil {
		return Result{}, errors.New("missing assemble request")
	}
	res := Result{
		FileSet: source.NewFileSet(),
		Files:   make([]FileResult, len(req.Files)),
	}
	for _, path := range req.Files {
		emit(req.Progress, Event{File: path, Stage: StageLoad, Status: StatusQueued})
	}

	stop := req.Timer.Begin("load")
	for i, path := range req.Files {
		fr := &res.Files[i]
		fr.Path = path
		emit(req.Progress, Event{File: path, Stage: StageLoad, Status: StatusWorking})
		id, err := res.FileSet.Load(path)
		if err != nil {
			fr.LoadErr = err
			emit(req.Progress, Event{File: path, Stage: StageLoad, Status: StatusError, Err: err})
			continue
		}
		fr.FileID = id
	}
	stop()

	jobs := req.Jobs
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, min(jobs, len(req.Files))))
	for i := range res.Files {
		i := i
		if res.Files[i].LoadErr != nil {
			continue
		}
		g.Go(func() error {
			// Проверка отмены
			if err := gctx.Err(); err != nil {
				return err
			}
			fr := &res.Files[i]
			start := time.Now()
			emit(req.Progress, Event{File: fr.Path, Stage: StageAssemble, Status: StatusWorking})
			assembleOne(req, fr, res.FileSet.Get(fr.FileID))
			if fr.Failed() {
				emit(req.Progress, Event{File: fr.Path, Stage: StageAssemble, Status: StatusError, Elapsed: time.Since(start)})
				return nil
			}
			if req.After != nil {
				emit(req.Progress, Event{File: fr.Path, Stage: StageWrite, Status: StatusWorking})
				if err := req.After(fr); err != nil {
					emit(req.Progress, Event{File: fr.Path, Stage: StageWrite, Status: StatusError, Err: err})
					return err
				}
			}
			emit(req.Progress, Event{File: fr.Path, Stage: StageAssemble, Status: StatusDone, Elapsed: time.Since(start)})
			return nil
		})
	}
	err := g.Wait()
	return res, err
}

func assembleOne(req *Request, fr *FileResult, f *source.File) {
	log := req.Logger
	if bad, ok := firstInvalidUTF8(f.Content); !ok {
		fr.Bag = diag.NewBag(req.Options.MaxDiagnostics)
		end := min(bad+1, uint32(len(f.Content))) // #nosec G115 -- file size checked by FileSet
		fr.Bag.Add(diag.NewError(diag.IOInvalidEncoding, source.Span{File: f.ID, Start: bad, End: end},
			"file is not valid UTF-8"))
		return
	}

	isa := req.Assembler.ISA()
	key := asmcache.KeyFor(asmcache.KeyInput{
		ISA:              isa.Fingerprint(),
		MaxSize:          req.Options.MaxSize,
		WarnUnusedLabels: req.Options.WarnUnusedLabels,
		Source:           f.Content,
	})
	if entry, ok, err := req.Cache.Get(key); err != nil {
		log.Warn().Err(err).Str("file", fr.Path).Msg("ignoring cache entry")
	} else if ok {
		fr.Output, fr.Bag, fr.Cached = entry.Output, entry.Bag(f.ID, req.Options.MaxDiagnostics), true
		if fr.Output == nil {
			fr.Output = []byte{}
		}
		log.Debug().Str("file", fr.Path).Str("key", key.String()).Msg("cache hit")
		return
	}

	stop := req.Timer.Begin("assemble")
	out, report := req.Assembler.AssembleFile(f)
	stop()
	fr.Output, fr.Bag = out, report.Bag()
	log.Debug().Str("file", fr.Path).Int("bytes", len(out)).Int("diagnostics", fr.Bag.Len()).Msg("assembled")
	if out != nil && req.Cache != nil {
		if err := req.Cache.Put(key, asmcache.NewEntry(isa.Name, out, fr.Bag)); err != nil {
			log.Warn().Err(err).Str("file", fr.Path).Msg("failed to write cache entry")
		}
	}
}

func firstInvalidUTF8(b []byte) (uint32, bool) {
	_, n, err := transform.Bytes(encoding.UTF8Validator, b)
	if err != nil {
		return uint32(n), false // #nosec G115 -- n <= len(b)
	}
	return 0, true
}

// Report prints diagnostics in input order. Files with warnings only are
// skipped when quiet is set.
func Report(w io.Writer, res Result, render diagfmt.Options, quiet bool) error {
	for i := range res.Files {
		fr := &res.Files[i]
		if fr.LoadErr != nil {
			if _, err := fmt.Fprintf(w, "%s: failed to load file: %v\n", fr.Path, fr.LoadErr); err != nil {
				return err
			}
			continue
		}
		if fr.Bag == nil || (fr.Bag.Len() == 0 && render.Format != diagfmt.FormatJSON) {
			continue
		}
		if quiet && !fr.Bag.HasErrors() {
			continue
		}
		fr.Bag.Sort()
		if err := diagfmt.Render(w, fr.Bag, res.FileSet, render); err != nil {
			return err
		}
	}
	return nil
}
