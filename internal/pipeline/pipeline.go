// Package pipeline runs the two-phase restoration over in-memory modules
// and chunks: extraction fans out across modules, the host bundles, and
// synthesis fans out across chunks. All module work finishes before any
// chunk is rendered.
package pipeline

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"prologue/internal/chunk"
	"prologue/internal/diag"
	"prologue/internal/directive"
	"prologue/internal/extract"
	"prologue/internal/jsparse"
	"prologue/internal/sourcemap"
	"prologue/internal/synth"
)

// ModuleOutput is a module after extraction. Text equals the input text
// when Changed is false.
type ModuleOutput struct {
	ID      directive.ModuleID
	Text    string
	Changed bool
	Result  extract.Result
}

// ChunkInput is a chunk produced by the host bundler.
type ChunkInput struct {
	FileName   string
	Text       string
	Membership chunk.Membership
	Map        *sourcemap.Map
}

// ChunkOutput is a chunk after synthesis.
type ChunkOutput struct {
	FileName string
	Text     string
	Changed  bool
	Map      *sourcemap.Map
}

// Bundler turns processed modules into chunks. It stands for the host's
// opaque chunking step.
type Bundler func(ctx context.Context, modules []ModuleOutput) ([]ChunkInput, error)

// Request configures one build.
type Request struct {
	Modules   []extract.Module
	Bundle    Bundler
	Jobs      int
	Sourcemap bool
	Extract   extract.Options
	Parser    jsparse.Parser
	Cache     extract.RecordCache
	Reporter  diag.Reporter
	Progress  ProgressSink
	Logger    *zap.Logger
}

// Result captures build outputs and stage timings.
type Result struct {
	Modules []ModuleOutput
	Chunks  []ChunkOutput
	Store   *directive.Store
	Timings Timings
}

// Run executes one build with a fresh store.
func Run(ctx context.Context, req *Request) (Result, error) {
	var result Result
	if ctx == nil {
		ctx = context.Background()
	}
	if req == nil {
		return result, fmt.Errorf("missing pipeline request")
	}
	if req.Bundle == nil {
		return result, fmt.Errorf("missing bundler")
	}
	log := req.Logger
	if log == nil {
		log = zap.NewNop()
	}
	parser := req.Parser
	if parser == nil {
		parser = jsparse.NewTreeSitter()
	}

	store := directive.NewStore()
	result.Store = store
	opts := []extract.Option{extract.WithLogger(log)}
	if req.Cache != nil {
		opts = append(opts, extract.WithCache(req.Cache))
	}
	proc := extract.New(store, parser, req.Reporter, req.Extract, opts...)

	start := time.Now()
	modules, err := ExtractModules(ctx, proc, req.Modules, req.Jobs, req.Progress)
	result.Timings.Set(StageExtract, time.Since(start))
	result.Modules = modules
	if err != nil {
		return result, err
	}

	start = time.Now()
	emitStage(req.Progress, StageBundle, StatusWorking, nil, 0)
	chunks, err := req.Bundle(ctx, modules)
	result.Timings.Set(StageBundle, time.Since(start))
	if err != nil {
		emitStage(req.Progress, StageBundle, StatusError, err, time.Since(start))
		return result, fmt.Errorf("bundle: %w", err)
	}
	emitStage(req.Progress, StageBundle, StatusDone, nil, time.Since(start))

	start = time.Now()
	syn := synth.New(store, log)
	result.Chunks, err = RenderChunks(ctx, syn, chunks, synth.Options{Sourcemap: req.Sourcemap}, req.Jobs, req.Progress)
	result.Timings.Set(StageSynthesize, time.Since(start))
	if err != nil {
		return result, err
	}
	log.Debug("pipeline finished",
		zap.Int("modules", len(result.Modules)),
		zap.Int("chunks", len(result.Chunks)),
		zap.Int("recorded", store.Len()),
	)
	return result, nil
}

func jobLimit(jobs, n int) int {
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}
	return max(1, min(jobs, n))
}

// ExtractModules processes modules in parallel. Results keep input order.
// Only cancellation fails the stage: parse failures are diagnostics.
func ExtractModules(ctx context.Context, proc *extract.Processor, modules []extract.Module, jobs int, sink ProgressSink) ([]ModuleOutput, error) {
	results := make([]ModuleOutput, len(modules))
	if len(modules) == 0 {
		return results, nil
	}
	files := make([]string, len(modules))
	for i, m := range modules {
		files[i] = string(m.ID)
	}
	emitQueued(sink, StageExtract, files)
	emitStage(sink, StageExtract, StatusWorking, nil, 0)
	stageStart := time.Now()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(jobLimit(jobs, len(modules)))
	for i, m := range modules {
		i, m := i, m
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}
			began := time.Now()
			emitFile(sink, string(m.ID), StageExtract, StatusWorking, nil, 0)
			res, changed := proc.Process(gctx, m)
			// each goroutine writes its own index, no lock needed
			results[i] = ModuleOutput{ID: m.ID, Text: m.Text, Changed: changed, Result: res}
			status := StatusSkipped
			if changed {
				results[i].Text = res.Text
				status = StatusDone
			}
			emitFile(sink, string(m.ID), StageExtract, status, nil, time.Since(began))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		emitStage(sink, StageExtract, StatusError, err, time.Since(stageStart))
		return results, err
	}
	emitStage(sink, StageExtract, StatusDone, nil, time.Since(stageStart))
	return results, nil
}

// RenderChunks synthesizes chunks in parallel. Results keep input order.
func RenderChunks(ctx context.Context, syn *synth.Synthesizer, chunks []ChunkInput, opts synth.Options, jobs int, sink ProgressSink) ([]ChunkOutput, error) {
	results := make([]ChunkOutput, len(chunks))
	if len(chunks) == 0 {
		return results, nil
	}
	files := make([]string, len(chunks))
	for i, c := range chunks {
		files[i] = c.FileName
	}
	emitQueued(sink, StageSynthesize, files)
	emitStage(sink, StageSynthesize, StatusWorking, nil, 0)
	stageStart := time.Now()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(jobLimit(jobs, len(chunks)))
	for i, c := range chunks {
		i, c := i, c
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			if c.Membership == nil {
				err := fmt.Errorf("chunk %s has no membership", c.FileName)
				emitFile(sink, c.FileName, StageSynthesize, StatusError, err, 0)
				return err
			}
			began := time.Now()
			out, changed := syn.Render(synth.Chunk{
				FileName:   c.FileName,
				Text:       c.Text,
				Membership: c.Membership,
				Map:        c.Map,
			}, opts)
			results[i] = ChunkOutput{FileName: c.FileName, Text: c.Text, Changed: changed, Map: c.Map}
			status := StatusSkipped
			if changed {
				results[i].Text = out.Text
				if out.Map != nil {
					results[i].Map = out.Map
				}
				status = StatusDone
			}
			emitFile(sink, c.FileName, StageSynthesize, status, nil, time.Since(began))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		emitStage(sink, StageSynthesize, StatusError, err, time.Since(stageStart))
		return results, err
	}
	emitStage(sink, StageSynthesize, StatusDone, nil, time.Since(stageStart))
	return results, nil
}
