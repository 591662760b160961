package esbuildhost

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/evanw/esbuild/pkg/api"
	"go.uber.org/zap"

	"prologue/internal/chunk"
	"prologue/internal/diag"
	"prologue/internal/pipeline"
	"prologue/internal/sourcemap"
	"prologue/internal/synth"
)

type metafile struct {
	Outputs map[string]json.RawMessage `json:"outputs"`
}

// isChunk reports whether an output path is a JavaScript chunk.
func isChunk(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".js", ".mjs", ".cjs":
		return true
	}
	return false
}

// onEnd restores prologues and drops suppressed warnings. Builds that
// already failed are left alone.
func (h *Host) onEnd(result *api.BuildResult) (api.OnEndResult, error) {
	result.Warnings = h.filterMessages(result.Warnings)
	if len(result.Errors) > 0 {
		return api.OnEndResult{}, nil
	}
	if result.Metafile == "" {
		return api.OnEndResult{}, fmt.Errorf("prologue plugin needs Metafile enabled")
	}
	var meta metafile
	if err := json.Unmarshal([]byte(result.Metafile), &meta); err != nil {
		return api.OnEndResult{}, fmt.Errorf("decode metafile: %w", err)
	}

	byPath := make(map[string]int, len(result.OutputFiles))
	for i, of := range result.OutputFiles {
		byPath[filepath.Clean(of.Path)] = i
	}

	var warnings []api.Message
	for rel, raw := range meta.Outputs {
		if !isChunk(rel) {
			continue
		}
		abs := filepath.Clean(h.absolute(rel))
		idx, ok := byPath[abs]
		if !ok {
			continue
		}
		membership, err := chunk.Detect(raw)
		if err != nil {
			return api.OnEndResult{}, fmt.Errorf("output %s: %w", rel, err)
		}

		c := synth.Chunk{
			FileName:   rel,
			Text:       string(result.OutputFiles[idx].Contents),
			Membership: membership,
		}
		mapIdx, hasMap := byPath[abs+".map"]
		if h.opts.Sourcemap && hasMap {
			m, err := sourcemap.Parse(result.OutputFiles[mapIdx].Contents)
			if err != nil {
				warnings = append(warnings, api.Message{
					ID:   diag.ChunkSourcemapBroken.Name(),
					Text: fmt.Sprintf("%s: could not read source map: %v", rel, err),
				})
				hasMap = false
			} else {
				c.Map = m
			}
		}

		h.emit(rel, pipeline.StageSynthesize, pipeline.StatusWorking, nil)
		out, changed := h.syn.Render(c, synth.Options{Sourcemap: h.opts.Sourcemap && hasMap})
		if !changed {
			h.emit(rel, pipeline.StageSynthesize, pipeline.StatusSkipped, nil)
			continue
		}
		result.OutputFiles[idx].Contents = []byte(out.Text)
		if out.Map != nil && hasMap {
			data, err := out.Map.Marshal()
			if err != nil {
				return api.OnEndResult{}, fmt.Errorf("encode map of %s: %w", rel, err)
			}
			result.OutputFiles[mapIdx].Contents = data
		}
		h.emit(rel, pipeline.StageSynthesize, pipeline.StatusDone, nil)
		h.log.Debug("restored chunk prologue", zap.String("chunk", rel), zap.Int("bytes", len(out.Prologue)))
	}
	return api.OnEndResult{Warnings: warnings}, nil
}

func (h *Host) absolute(rel string) string {
	p := filepath.FromSlash(rel)
	if filepath.IsAbs(p) || h.opts.AbsWorkingDir == "" {
		return p
	}
	return filepath.Join(h.opts.AbsWorkingDir, p)
}
