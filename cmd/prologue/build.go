package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"prologue/internal/config"
	"prologue/internal/esbuildhost"
	"prologue/internal/pipeline"
)

var buildCmd = &cobra.Command{
	Use:   "build [flags] [entry...]",
	Short: "Bundle entry points with esbuild and restore their prologues",
	Long: `Bundle the configured entry points with esbuild. Shebangs and directives
are removed from every module before bundling and re-emitted at the top of each
output chunk. Positional arguments replace [build].entry from prologue.toml.`,
	RunE: buildExecution,
}

func init() {
	buildCmd.Flags().String("outdir", "", "output directory (overrides [build].outdir)")
	buildCmd.Flags().String("format", "", "output format esm|cjs|iife (overrides [build].format)")
	buildCmd.Flags().String("platform", "", "target platform node|browser|neutral (overrides [build].platform)")
	buildCmd.Flags().Bool("splitting", false, "enable code splitting (esm only)")
	buildCmd.Flags().Bool("sourcemap", false, "emit linked source maps")
	buildCmd.Flags().Bool("no-cache", false, "disable the extraction cache")
	buildCmd.Flags().Bool("dry-run", false, "bundle without writing outputs")
	buildCmd.Flags().String("ui", "auto", "progress UI (auto|on|off)")
}

// applyBuildFlags overrides config values with flags the user set explicitly.
func applyBuildFlags(cmd *cobra.Command, cfg *config.Config, args []string) error {
	flags := cmd.Flags()
	if len(args) > 0 {
		cfg.Build.Entry = args
	}
	if flags.Changed("outdir") {
		v, err := flags.GetString("outdir")
		if err != nil {
			return err
		}
		cfg.Build.Outdir = v
	}
	if flags.Changed("format") {
		v, err := flags.GetString("format")
		if err != nil {
			return err
		}
		cfg.Build.Format = v
	}
	if flags.Changed("platform") {
		v, err := flags.GetString("platform")
		if err != nil {
			return err
		}
		cfg.Build.Platform = v
	}
	if flags.Changed("splitting") {
		v, err := flags.GetBool("splitting")
		if err != nil {
			return err
		}
		cfg.Build.Splitting = v
	}
	if flags.Changed("sourcemap") {
		v, err := flags.GetBool("sourcemap")
		if err != nil {
			return err
		}
		cfg.Build.Sourcemap = v
	}
	if len(cfg.Build.Entry) == 0 {
		return errors.New("nothing to build: pass entry points or set [build].entry in " + config.FileName)
	}
	return cfg.Validate()
}

func buildExecution(cmd *cobra.Command, args []string) error {
	env, err := newRunEnv(cmd)
	if err != nil {
		return err
	}
	defer env.finish(cmd.ErrOrStderr())

	noCache, err := cmd.Flags().GetBool("no-cache")
	if err != nil {
		return err
	}
	dryRun, err := cmd.Flags().GetBool("dry-run")
	if err != nil {
		return err
	}
	uiValue, err := cmd.Flags().GetString("ui")
	if err != nil {
		return err
	}
	uiModeValue, err := readUIMode(uiValue)
	if err != nil {
		return err
	}
	if err := applyBuildFlags(cmd, env.cfg, args); err != nil {
		return err
	}

	root := env.cfg.Root()
	if root == "" {
		if root, err = os.Getwd(); err != nil {
			return err
		}
	}
	root, err = filepath.Abs(root)
	if err != nil {
		return err
	}
	opts := esbuildhost.Options{
		Entry:         env.cfg.Build.Entry,
		Outdir:        env.cfg.Resolve(env.cfg.Build.Outdir),
		Format:        env.cfg.Build.Format,
		Platform:      env.cfg.Build.Platform,
		Splitting:     env.cfg.Build.Splitting,
		Sourcemap:     env.cfg.Build.Sourcemap,
		AbsWorkingDir: root,
		Extract:       env.extractOptions(),
		Suppress:      env.cfg.Log.Suppress,
	}
	recordCache := env.openCache(noCache)

	work := func(ctx context.Context, sink pipeline.ProgressSink) (*esbuildhost.BuildResult, error) {
		o := opts
		o.Progress = sink
		host := esbuildhost.New(o, env.reporter, env.log.Named("host"), recordCache)
		res, err := host.Build(ctx)
		if err != nil || dryRun {
			return res, err
		}
		return res, host.WriteOutputs(ctx, res)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	done := env.timer.Track("build")
	var res *esbuildhost.BuildResult
	if shouldUseTUI(uiModeValue, env.quiet) {
		res, err = runWithUI(ctx, "prologue build", env.cfg.Build.Entry, work)
	} else {
		res, err = work(ctx, nil)
	}
	done(fmt.Sprintf("%d entries", len(opts.Entry)))

	env.printDiagnostics(cmd.ErrOrStderr(), nil)
	if err != nil {
		return err
	}
	if !env.quiet {
		out := cmd.OutOrStdout()
		for _, o := range res.Outputs {
			rel, relErr := filepath.Rel(root, o.Path)
			if relErr != nil {
				rel = o.Path
			}
			fmt.Fprintf(out, "  %s (%d bytes)\n", filepath.ToSlash(rel), len(o.Contents))
		}
		if env.timings {
			printStageTimings(out, res.Timings)
		}
	}
	env.log.Debug("build command finished", zap.Bool("dry_run", dryRun), zap.Int("diagnostics", env.bag.Len()))
	return env.checkDiagnostics()
}
