package esbuildhost

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/evanw/esbuild/pkg/api"
	"go.uber.org/zap"

	"prologue/internal/pipeline"
)

// ErrBuildFailed is returned when esbuild reported errors.
var ErrBuildFailed = errors.New("build failed")

// Output is one file produced by a build.
type Output struct {
	Path     string
	Contents []byte
}

// BuildResult collects the outputs of a finished build.
type BuildResult struct {
	Outputs  []Output
	Errors   int
	Warnings int
	Timings  pipeline.Timings
}

func formatOf(name string) (api.Format, error) {
	switch strings.ToLower(name) {
	case "", "esm":
		return api.FormatESModule, nil
	case "cjs":
		return api.FormatCommonJS, nil
	case "iife":
		return api.FormatIIFE, nil
	}
	var zero api.Format
	return zero, fmt.Errorf("unknown output format %q", name)
}

func platformOf(name string) (api.Platform, error) {
	switch strings.ToLower(name) {
	case "", "node":
		return api.PlatformNode, nil
	case "browser":
		return api.PlatformBrowser, nil
	case "neutral":
		return api.PlatformNeutral, nil
	}
	var zero api.Platform
	return zero, fmt.Errorf("unknown platform %q", name)
}

// BuildOptions returns the esbuild options the host runs with.
func (h *Host) BuildOptions(ctx context.Context) (api.BuildOptions, error) {
	format, err := formatOf(h.opts.Format)
	if err != nil {
		return api.BuildOptions{}, err
	}
	platform, err := platformOf(h.opts.Platform)
	if err != nil {
		return api.BuildOptions{}, err
	}
	if len(h.opts.Entry) == 0 {
		return api.BuildOptions{}, errors.New("no entry points")
	}
	if h.opts.Splitting && format != api.FormatESModule {
		return api.BuildOptions{}, errors.New("code splitting requires the esm format")
	}
	sm := api.SourceMapNone
	if h.opts.Sourcemap {
		sm = api.SourceMapLinked
	}
	outdir := h.opts.Outdir
	if outdir == "" {
		outdir = "dist"
	}
	return api.BuildOptions{
		EntryPoints:   h.opts.Entry,
		Bundle:        true,
		Outdir:        outdir,
		Format:        format,
		Platform:      platform,
		Splitting:     h.opts.Splitting,
		Sourcemap:     sm,
		Metafile:      true,
		Write:         false,
		AbsWorkingDir: h.opts.AbsWorkingDir,
		LogLevel:      api.LogLevelSilent,
		Plugins:       []api.Plugin{h.Plugin(ctx)},
	}, nil
}

// Build bundles the configured entry points and returns the outputs with
// their prologues restored. Outputs are not written; see WriteOutputs.
func (h *Host) Build(ctx context.Context) (*BuildResult, error) {
	opts, err := h.BuildOptions(ctx)
	if err != nil {
		return nil, err
	}
	started := time.Now()
	h.emit("", pipeline.StageBundle, pipeline.StatusWorking, nil)

	bctx, cerr := api.Context(opts)
	if cerr != nil {
		h.reportMessages(cerr.Errors, nil)
		h.emit("", pipeline.StageBundle, pipeline.StatusError, ErrBuildFailed)
		return nil, fmt.Errorf("%w: %d error(s)", ErrBuildFailed, len(cerr.Errors))
	}
	defer bctx.Dispose()

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			bctx.Cancel()
		case <-done:
		}
	}()

	res := bctx.Rebuild()
	h.reportMessages(res.Errors, res.Warnings)

	out := &BuildResult{Errors: len(res.Errors), Warnings: len(res.Warnings)}
	out.Timings.Set(pipeline.StageBundle, time.Since(started))
	if err := ctx.Err(); err != nil {
		h.emit("", pipeline.StageBundle, pipeline.StatusError, err)
		return nil, err
	}
	if len(res.Errors) > 0 {
		h.emit("", pipeline.StageBundle, pipeline.StatusError, ErrBuildFailed)
		return out, fmt.Errorf("%w: %d error(s)", ErrBuildFailed, len(res.Errors))
	}
	h.emit("", pipeline.StageBundle, pipeline.StatusDone, nil)

	for _, of := range res.OutputFiles {
		out.Outputs = append(out.Outputs, Output{Path: of.Path, Contents: of.Contents})
	}
	h.log.Info("build finished",
		zap.Int("outputs", len(out.Outputs)),
		zap.Int("warnings", out.Warnings),
		zap.Int("modules with prologue", h.store.Len()),
		zap.Duration("elapsed", time.Since(started)))
	return out, nil
}

// WriteOutputs writes every output file, creating directories as needed.
func (h *Host) WriteOutputs(ctx context.Context, res *BuildResult) error {
	started := time.Now()
	for _, o := range res.Outputs {
		if err := ctx.Err(); err != nil {
			return err
		}
		name := h.display(o.Path)
		h.emit(name, pipeline.StageWrite, pipeline.StatusWorking, nil)
		if err := os.MkdirAll(filepath.Dir(o.Path), 0o755); err != nil {
			h.emit(name, pipeline.StageWrite, pipeline.StatusError, err)
			return fmt.Errorf("create %s: %w", filepath.Dir(o.Path), err)
		}
		if err := os.WriteFile(o.Path, o.Contents, 0o644); err != nil { // #nosec G306 -- build output
			h.emit(name, pipeline.StageWrite, pipeline.StatusError, err)
			return fmt.Errorf("write %s: %w", o.Path, err)
		}
		h.emit(name, pipeline.StageWrite, pipeline.StatusDone, nil)
	}
	res.Timings.Set(pipeline.StageWrite, time.Since(started))
	return nil
}

func (h *Host) display(path string) string {
	if h.opts.AbsWorkingDir != "" {
		if rel, err := filepath.Rel(h.opts.AbsWorkingDir, path); err == nil {
			return filepath.ToSlash(rel)
		}
	}
	return path
}
