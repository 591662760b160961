package esbuildhost

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/evanw/esbuild/pkg/api"
	"go.uber.org/zap"

	"prologue/internal/directive"
	"prologue/internal/extract"
	"prologue/internal/pipeline"
	"prologue/internal/sourcemap"
)

// loadFilter is the Go regexp esbuild matches module paths against.
const loadFilter = `\.(m|c)?(j|t)sx?$`

func loaderFor(ext string) api.Loader {
	switch strings.ToLower(ext) {
	case ".jsx":
		return api.LoaderJSX
	case ".ts", ".mts", ".cts":
		return api.LoaderTS
	case ".tsx":
		return api.LoaderTSX
	default:
		return api.LoaderJS
	}
}

// moduleID converts an absolute path into the metafile's notation: relative
// to the working directory with forward slashes.
func (h *Host) moduleID(path string) directive.ModuleID {
	if h.opts.AbsWorkingDir != "" {
		if rel, err := filepath.Rel(h.opts.AbsWorkingDir, path); err == nil {
			return directive.ModuleID(filepath.ToSlash(rel))
		}
	}
	return directive.ModuleID(filepath.ToSlash(path))
}

func (h *Host) onLoad(ctx context.Context, args api.OnLoadArgs) (api.OnLoadResult, error) {
	// #nosec G304 -- esbuild resolved this path
	data, err := os.ReadFile(args.Path)
	if err != nil {
		return api.OnLoadResult{}, fmt.Errorf("read %s: %w", args.Path, err)
	}
	id := h.moduleID(args.Path)
	ext := filepath.Ext(args.Path)
	original := string(data)

	h.emit(string(id), pipeline.StageExtract, pipeline.StatusWorking, nil)
	res, changed := h.proc.Process(ctx, extract.Module{ID: id, Text: original, Ext: ext})
	if !changed {
		h.emit(string(id), pipeline.StageExtract, pipeline.StatusSkipped, nil)
		// nil Contents hands the module back to esbuild's own loader
		return api.OnLoadResult{}, nil
	}
	h.emit(string(id), pipeline.StageExtract, pipeline.StatusDone, nil)
	h.remember(id, res.Meta)

	contents := res.Text
	if h.opts.Sourcemap {
		m := res.SourceMap(original, sourcemap.Options{
			Source:         filepath.Base(args.Path),
			IncludeContent: true,
		})
		if url, err := m.DataURL(); err == nil {
			contents += "\n//# sourceMappingURL=" + url + "\n"
		} else {
			h.log.Debug("module map dropped", zap.String("module", string(id)), zap.Error(err))
		}
	}
	return api.OnLoadResult{
		Contents:   &contents,
		ResolveDir: filepath.Dir(args.Path),
		Loader:     loaderFor(ext),
		PluginData: res.Meta,
	}, nil
}
