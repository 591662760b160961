package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"prologue/internal/cache"
)

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Drop the extraction cache",
	Long: `Drop every cached extraction record. With --outputs the configured
[build].outdir is removed as well.`,
	Args: cobra.NoArgs,
	RunE: runClean,
}

func init() {
	cleanCmd.Flags().Bool("outputs", false, "also remove the build output directory")
}

func runClean(cmd *cobra.Command, _ []string) error {
	env, err := newRunEnv(cmd)
	if err != nil {
		return err
	}
	defer env.finish(cmd.ErrOrStderr())

	outputs, err := cmd.Flags().GetBool("outputs")
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	dir, err := env.cacheDir()
	if err != nil {
		return err
	}
	removed, err := dropCache(dir, env.log)
	if err != nil {
		return err
	}
	if !env.quiet {
		if removed {
			fmt.Fprintf(out, "cleared %s\n", dir)
		} else {
			fmt.Fprintln(out, "cache directory not found")
		}
	}

	if outputs {
		outdir := env.cfg.Resolve(env.cfg.Build.Outdir)
		if outdir == "" {
			return errors.New("no [build].outdir configured")
		}
		if err := os.RemoveAll(outdir); err != nil {
			return fmt.Errorf("failed to remove %q: %w", outdir, err)
		}
		if !env.quiet {
			fmt.Fprintf(out, "removed %s\n", outdir)
		}
	}
	return nil
}

// dropCache clears the cache at dir. It reports false when there was no
// cache to clear and leaves the filesystem untouched in that case.
func dropCache(dir string, log *zap.Logger) (bool, error) {
	info, err := os.Stat(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("failed to stat %q: %w", dir, err)
	}
	if !info.IsDir() {
		return false, fmt.Errorf("%q is not a directory", dir)
	}
	disk, err := cache.OpenDisk(dir, log)
	if err != nil {
		return false, err
	}
	if err := disk.DropAll(); err != nil {
		return false, fmt.Errorf("failed to clear %q: %w", dir, err)
	}
	return true, nil
}
