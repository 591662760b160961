package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"prologue/internal/directive"
	"prologue/internal/extract"
	"prologue/internal/jsparse"
	"prologue/internal/source"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect [flags] file...",
	Short: "Show the shebang and directives prologue would move",
	Args:  cobra.MinimumNArgs(1),
	RunE:  inspectExecution,
}

func init() {
	inspectCmd.Flags().String("format", "text", "output format (text|json)")
}

type inspectEntry struct {
	Module  string `json:"module"`
	Changed bool   `json:"changed"`
	extract.Metadata
}

func inspectExecution(cmd *cobra.Command, args []string) error {
	env, err := newRunEnv(cmd)
	if err != nil {
		return err
	}
	defer env.finish(cmd.ErrOrStderr())

	format, err := cmd.Flags().GetString("format")
	if err != nil {
		return err
	}
	format = strings.ToLower(format)
	if format != "text" && format != "json" {
		return fmt.Errorf("unsupported format %q (must be text or json)", format)
	}

	fs := source.NewFileSet()
	store := directive.NewStore()
	proc := extract.New(store, jsparse.NewTreeSitter(), env.reporter, env.extractOptions(),
		extract.WithLogger(env.log.Named("extract")))

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	done := env.timer.Track("inspect")
	entries := make([]inspectEntry, 0, len(args))
	for _, path := range args {
		id, err := fs.Load(path)
		if err != nil {
			return err
		}
		f := fs.Get(id)
		res, changed := proc.Process(ctx, extract.Module{
			ID:   directive.ModuleID(filepath.ToSlash(path)),
			Text: string(f.Content),
			File: id,
		})
		entry := inspectEntry{Module: filepath.ToSlash(path), Changed: changed, Metadata: res.Meta}
		if entry.Directives == nil {
			entry.Directives = []string{}
		}
		entries = append(entries, entry)
	}
	done(fmt.Sprintf("%d files", len(args)))

	env.printDiagnostics(cmd.ErrOrStderr(), fs)
	if format == "json" {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		if err := enc.Encode(entries); err != nil {
			return err
		}
	} else {
		renderInspectText(cmd.OutOrStdout(), entries)
	}
	return env.checkDiagnostics()
}

func renderInspectText(out io.Writer, entries []inspectEntry) {
	for _, e := range entries {
		fmt.Fprintln(out, e.Module)
		if !e.Changed {
			fmt.Fprintln(out, "  (no prologue)")
			continue
		}
		if e.HasShebang {
			fmt.Fprintf(out, "  shebang:   %s\n", e.Shebang)
		}
		for _, d := range e.Directives {
			fmt.Fprintf(out, "  directive: %q\n", d)
		}
	}
}
