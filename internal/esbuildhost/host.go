// Package esbuildhost wires extraction and synthesis into esbuild: an
// OnLoad callback strips prologues from every loaded module and an OnEnd
// callback restores them at the top of each output chunk.
package esbuildhost

import (
	"context"
	"sync"

	"github.com/evanw/esbuild/pkg/api"
	"go.uber.org/zap"

	"prologue/internal/diag"
	"prologue/internal/directive"
	"prologue/internal/extract"
	"prologue/internal/jsparse"
	"prologue/internal/pipeline"
	"prologue/internal/synth"
)

// DefaultAliases maps bundler message ids onto diagnostic codes.
var DefaultAliases = map[string]diag.Code{
	"module-level-directive": diag.ModuleLevelDirective,
	"MODULE_LEVEL_DIRECTIVE": diag.ModuleLevelDirective,
}

// Options configure a Host.
type Options struct {
	Entry     []string
	Outdir    string
	Format    string
	Platform  string
	Splitting bool
	Sourcemap bool
	// AbsWorkingDir anchors module ids; metafile paths are relative to it.
	AbsWorkingDir string
	Extract       extract.Options
	// Suppress lists extra message ids handled like a misplaced module-level
	// directive.
	Suppress []string
	Progress pipeline.ProgressSink
}

// Host owns the per-build store and the two processing phases.
type Host struct {
	opts     Options
	store    *directive.Store
	proc     *extract.Processor
	syn      *synth.Synthesizer
	reporter diag.Reporter
	aliases  map[string]diag.Code
	log      *zap.Logger

	mu   sync.Mutex
	meta map[directive.ModuleID]extract.Metadata
}

// New creates a Host. reporter receives every diagnostic that survives the
// module-level-directive filter.
func New(opts Options, reporter diag.Reporter, log *zap.Logger, cache extract.RecordCache) *Host {
	if log == nil {
		log = zap.NewNop()
	}
	if reporter == nil {
		reporter = diag.NopReporter{}
	}
	aliases := make(map[string]diag.Code, len(DefaultAliases)+len(opts.Suppress))
	for k, v := range DefaultAliases {
		aliases[k] = v
	}
	for _, id := range opts.Suppress {
		aliases[id] = diag.ModuleLevelDirective
	}

	filtered := diag.NewFilterReporter(reporter)
	store := directive.NewStore()
	extra := []extract.Option{extract.WithLogger(log)}
	if cache != nil {
		extra = append(extra, extract.WithCache(cache))
	}
	return &Host{
		opts:     opts,
		store:    store,
		proc:     extract.New(store, jsparse.NewTreeSitter(), filtered, opts.Extract, extra...),
		syn:      synth.New(store, log),
		reporter: filtered,
		aliases:  aliases,
		log:      log,
		meta:     make(map[directive.ModuleID]extract.Metadata),
	}
}

// Store exposes the directive records of the last build.
func (h *Host) Store() *directive.Store { return h.store }

// Metadata returns what extraction found in a module during the last build.
func (h *Host) Metadata(id directive.ModuleID) (extract.Metadata, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	m, ok := h.meta[id]
	return m, ok
}

func (h *Host) remember(id directive.ModuleID, m extract.Metadata) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.meta[id] = m
}

func (h *Host) emit(file string, stage pipeline.Stage, status pipeline.Status, err error) {
	if h.opts.Progress == nil {
		return
	}
	h.opts.Progress.OnEvent(pipeline.Event{File: file, Stage: stage, Status: status, Err: err})
}

func (h *Host) reset() {
	h.store.Reset()
	h.mu.Lock()
	defer h.mu.Unlock()
	clear(h.meta)
}

// Plugin returns the esbuild plugin. ctx bounds the extraction work done in
// OnLoad callbacks.
func (h *Host) Plugin(ctx context.Context) api.Plugin {
	return api.Plugin{
		Name: "prologue",
		Setup: func(build api.PluginBuild) {
			build.OnStart(func() (api.OnStartResult, error) {
				h.reset()
				return api.OnStartResult{}, nil
			})
			build.OnLoad(api.OnLoadOptions{Filter: loadFilter, Namespace: "file"},
				func(args api.OnLoadArgs) (api.OnLoadResult, error) {
					return h.onLoad(ctx, args)
				})
			build.OnEnd(func(result *api.BuildResult) (api.OnEndResult, error) {
				return h.onEnd(result)
			})
		},
	}
}
