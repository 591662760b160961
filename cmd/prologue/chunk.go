package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"prologue/internal/chunk"
	"prologue/internal/directive"
	"prologue/internal/extract"
	"prologue/internal/jsparse"
	"prologue/internal/pipeline"
	"prologue/internal/source"
	"prologue/internal/sourcemap"
)

var chunkCmd = &cobra.Command{
	Use:   "chunk --manifest file [flags]",
	Short: "Restore prologues into chunks produced by another bundler",
	Long: `Read a JSON manifest describing already bundled chunks, extract the
prologues of their member modules from the sources and prepend them to each
chunk. Membership may be given as a moduleIds list or as a keyed modules or
inputs object.`,
	Args: cobra.NoArgs,
	RunE: chunkExecution,
}

func init() {
	chunkCmd.Flags().String("manifest", "", "chunk manifest (JSON)")
	chunkCmd.Flags().String("src", "", "directory module ids are relative to (default: manifest directory)")
	chunkCmd.Flags().String("dir", "", "directory chunk file names are relative to (default: manifest directory)")
	chunkCmd.Flags().String("out", "", "write results here instead of rewriting chunks in place")
	chunkCmd.Flags().Bool("sourcemap", false, "rewrite <chunk>.map next to each chunk")
	chunkCmd.Flags().Int("jobs", 0, "parallel workers (0 = GOMAXPROCS)")
	chunkCmd.Flags().String("ui", "auto", "progress UI (auto|on|off)")
	_ = chunkCmd.MarkFlagRequired("manifest")
}

type chunkFlags struct {
	manifest  string
	src       string
	dir       string
	out       string
	sourcemap bool
	jobs      int
	ui        uiMode
}

func readChunkFlags(cmd *cobra.Command) (chunkFlags, error) {
	var f chunkFlags
	var err error
	flags := cmd.Flags()
	if f.manifest, err = flags.GetString("manifest"); err != nil {
		return f, err
	}
	if f.src, err = flags.GetString("src"); err != nil {
		return f, err
	}
	if f.dir, err = flags.GetString("dir"); err != nil {
		return f, err
	}
	if f.out, err = flags.GetString("out"); err != nil {
		return f, err
	}
	if f.sourcemap, err = flags.GetBool("sourcemap"); err != nil {
		return f, err
	}
	if f.jobs, err = flags.GetInt("jobs"); err != nil {
		return f, err
	}
	uiValue, err := flags.GetString("ui")
	if err != nil {
		return f, err
	}
	if f.ui, err = readUIMode(uiValue); err != nil {
		return f, err
	}
	base := filepath.Dir(f.manifest)
	if f.src == "" {
		f.src = base
	}
	if f.dir == "" {
		f.dir = base
	}
	if f.out == "" {
		f.out = f.dir
	}
	return f, nil
}

// moduleSources loads every module referenced by the manifest, once each,
// in first-seen order.
func moduleSources(fs *source.FileSet, m *chunk.Manifest, srcDir string) ([]extract.Module, error) {
	seen := make(map[directive.ModuleID]struct{})
	var modules []extract.Module
	for _, e := range m.Chunks {
		for _, id := range e.Membership.ModuleIDs() {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			path := filepath.Join(srcDir, filepath.FromSlash(string(id)))
			fileID, err := fs.Load(path)
			if err != nil {
				return nil, fmt.Errorf("module %s: %w", id, err)
			}
			modules = append(modules, extract.Module{
				ID:   id,
				Text: string(fs.Get(fileID).Content),
				File: fileID,
			})
		}
	}
	return modules, nil
}

// manifestBundler hands the pre-built chunks to the pipeline in place of a
// bundling step.
func manifestBundler(m *chunk.Manifest, dir string, withMaps bool) pipeline.Bundler {
	return func(ctx context.Context, _ []pipeline.ModuleOutput) ([]pipeline.ChunkInput, error) {
		chunks := make([]pipeline.ChunkInput, 0, len(m.Chunks))
		for _, e := range m.Chunks {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			path := filepath.Join(dir, filepath.FromSlash(e.FileName))
			// #nosec G304 -- path comes from the manifest the user passed
			data, err := os.ReadFile(path)
			if err != nil {
				return nil, fmt.Errorf("chunk %s: %w", e.FileName, err)
			}
			in := pipeline.ChunkInput{FileName: e.FileName, Text: string(data), Membership: e.Membership}
			if withMaps {
				// #nosec G304 -- sibling of a manifest chunk
				if raw, err := os.ReadFile(path + ".map"); err == nil {
					if in.Map, err = sourcemap.Parse(raw); err != nil {
						return nil, fmt.Errorf("chunk %s: %w", e.FileName, err)
					}
				}
			}
			chunks = append(chunks, in)
		}
		return chunks, nil
	}
}

func writeChunks(outDir string, chunks []pipeline.ChunkOutput) (int, error) {
	written := 0
	for _, c := range chunks {
		if !c.Changed {
			continue
		}
		path := filepath.Join(outDir, filepath.FromSlash(c.FileName))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return written, err
		}
		if err := os.WriteFile(path, []byte(c.Text), 0o644); err != nil { // #nosec G306 -- build output
			return written, err
		}
		if c.Map != nil {
			data, err := c.Map.Marshal()
			if err != nil {
				return written, fmt.Errorf("encode map of %s: %w", c.FileName, err)
			}
			if err := os.WriteFile(path+".map", data, 0o644); err != nil { // #nosec G306 -- build output
				return written, err
			}
		}
		written++
	}
	return written, nil
}

func chunkExecution(cmd *cobra.Command, _ []string) error {
	env, err := newRunEnv(cmd)
	if err != nil {
		return err
	}
	defer env.finish(cmd.ErrOrStderr())

	f, err := readChunkFlags(cmd)
	if err != nil {
		return err
	}
	manifest, err := chunk.LoadManifest(f.manifest)
	if err != nil {
		return err
	}
	fs := source.NewFileSet()
	modules, err := moduleSources(fs, manifest, f.src)
	if err != nil {
		return err
	}

	req := &pipeline.Request{
		Modules:   modules,
		Bundle:    manifestBundler(manifest, f.dir, f.sourcemap),
		Jobs:      f.jobs,
		Sourcemap: f.sourcemap,
		Extract:   env.extractOptions(),
		Parser:    jsparse.NewTreeSitter(),
		Cache:     env.openCache(false),
		Reporter:  env.reporter,
		Logger:    env.log.Named("pipeline"),
	}
	work := func(ctx context.Context, sink pipeline.ProgressSink) (pipeline.Result, error) {
		r := *req
		r.Progress = sink
		return pipeline.Run(ctx, &r)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	done := env.timer.Track("chunk")
	var res pipeline.Result
	if shouldUseTUI(f.ui, env.quiet) {
		files := make([]string, len(modules))
		for i, m := range modules {
			files[i] = string(m.ID)
		}
		res, err = runWithUI(ctx, "prologue chunk", files, work)
	} else {
		res, err = work(ctx, nil)
	}
	done(fmt.Sprintf("%d chunks", len(manifest.Chunks)))

	env.printDiagnostics(cmd.ErrOrStderr(), fs)
	if err != nil {
		return err
	}
	written, err := writeChunks(f.out, res.Chunks)
	if err != nil {
		return err
	}
	if !env.quiet {
		fmt.Fprintf(cmd.OutOrStdout(), "restored prologues in %d of %d chunks\n", written, len(res.Chunks))
		if env.timings {
			printStageTimings(cmd.OutOrStdout(), res.Timings)
		}
	}
	env.log.Debug("chunk command finished", zap.Int("written", written))
	return env.checkDiagnostics()
}
