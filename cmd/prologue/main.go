// Package main implements the prologue CLI.
package main

import (
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"prologue/internal/version"
)

var rootCmd = &cobra.Command{
	Use:   "prologue",
	Short: "Keep shebangs and directive prologues intact across bundling",
	Long: `prologue strips shebang lines and directive prologues ('use client',
'use strict', ...) from modules before bundling and restores them at the top
of every output chunk.`,
	SilenceUsage: true,
}

// main registers subcommands and global flags, then runs the root command.
// Any command error exits with status 1.
func main() {
	// Устанавливаем версию для автоматического флага --version
	rootCmd.Version = version.Version

	rootCmd.AddCommand(buildCmd)
	rootCmd.AddCommand(inspectCmd)
	rootCmd.AddCommand(chunkCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(cleanCmd)
	rootCmd.AddCommand(versionCmd)

	// Глобальные флаги
	rootCmd.PersistentFlags().String("color", "auto", "colorize output (auto|on|off)")
	rootCmd.PersistentFlags().Bool("quiet", false, "suppress non-essential output")
	rootCmd.PersistentFlags().Bool("timings", false, "show timing information")
	rootCmd.PersistentFlags().Int("max-diagnostics", 100, "maximum number of diagnostics to show")
	rootCmd.PersistentFlags().String("config", "", "path to prologue.toml (default: search upward from the working directory)")
	rootCmd.PersistentFlags().String("log-level", "", "override [log].level (debug|info|warn|error)")
	rootCmd.PersistentFlags().String("log-format", "console", "log encoding (console|json)")
	rootCmd.PersistentFlags().String("diagnostics-format", "pretty", "diagnostics output (pretty|json)")
	rootCmd.PersistentFlags().String("fail-on", "never", "exit with an error when diagnostics reach this severity (never|info|warning|error)")
	rootCmd.PersistentFlags().String("cpu-profile", "", "write a CPU profile to this file")
	rootCmd.PersistentFlags().String("mem-profile", "", "write a heap profile to this file on exit")
	rootCmd.PersistentFlags().String("runtime-trace", "", "write a runtime trace to this file")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// isTerminal проверяет, является ли файл терминалом
func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}
