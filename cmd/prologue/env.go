package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"prologue/internal/cache"
	"prologue/internal/config"
	"prologue/internal/diag"
	"prologue/internal/diagfmt"
	"prologue/internal/extract"
	"prologue/internal/logging"
	"prologue/internal/observ"
	"prologue/internal/prof"
	"prologue/internal/source"
)

// runEnv bundles what every command needs: configuration, logging and the
// diagnostic sink.
type runEnv struct {
	cfg      *config.Config
	log      *zap.Logger
	bag      *diag.Bag
	reporter diag.Reporter
	timer    *observ.Timer
	profile  *prof.Session

	color      bool
	quiet      bool
	timings    bool
	diagFormat string

	// failOn is nil when diagnostics never fail a command.
	failOn *diag.Severity
}

// errDiagnostics marks a run that finished but reported diagnostics at or
// above --fail-on.
var errDiagnostics = errors.New("diagnostics reached the --fail-on severity")

func readFailOn(value string) (*diag.Severity, error) {
	if v := strings.ToLower(strings.TrimSpace(value)); v == "" || v == "never" {
		return nil, nil
	}
	sev, err := diag.ParseSeverity(value)
	if err != nil {
		return nil, fmt.Errorf("invalid --fail-on value: %w", err)
	}
	return &sev, nil
}

func readColorMode(value string, out *os.File) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "auto":
		return isTerminal(out), nil
	case "on":
		return true, nil
	case "off":
		return false, nil
	default:
		return false, fmt.Errorf("invalid --color value %q (expected auto|on|off)", value)
	}
}

func newRunEnv(cmd *cobra.Command) (*runEnv, error) {
	flags := cmd.Root().PersistentFlags()
	colorValue, err := flags.GetString("color")
	if err != nil {
		return nil, err
	}
	quiet, err := flags.GetBool("quiet")
	if err != nil {
		return nil, err
	}
	timings, err := flags.GetBool("timings")
	if err != nil {
		return nil, err
	}
	maxDiagnostics, err := flags.GetInt("max-diagnostics")
	if err != nil {
		return nil, fmt.Errorf("failed to get max-diagnostics flag: %w", err)
	}
	configPath, err := flags.GetString("config")
	if err != nil {
		return nil, err
	}
	logLevel, err := flags.GetString("log-level")
	if err != nil {
		return nil, err
	}
	logFormat, err := flags.GetString("log-format")
	if err != nil {
		return nil, err
	}
	diagFormat, err := flags.GetString("diagnostics-format")
	if err != nil {
		return nil, err
	}
	diagFormat = strings.ToLower(diagFormat)
	if diagFormat != "pretty" && diagFormat != "json" {
		return nil, fmt.Errorf("invalid --diagnostics-format value %q (expected pretty|json)", diagFormat)
	}

	failOnValue, err := flags.GetString("fail-on")
	if err != nil {
		return nil, err
	}
	failOn, err := readFailOn(failOnValue)
	if err != nil {
		return nil, err
	}

	var profOpts prof.Options
	if profOpts.CPU, err = flags.GetString("cpu-profile"); err != nil {
		return nil, fmt.Errorf("failed to get cpu-profile flag: %w", err)
	}
	if profOpts.Mem, err = flags.GetString("mem-profile"); err != nil {
		return nil, fmt.Errorf("failed to get mem-profile flag: %w", err)
	}
	if profOpts.Trace, err = flags.GetString("runtime-trace"); err != nil {
		return nil, fmt.Errorf("failed to get runtime-trace flag: %w", err)
	}

	useColor, err := readColorMode(colorValue, os.Stderr)
	if err != nil {
		return nil, err
	}
	color.NoColor = !useColor

	timer := observ.NewTimer()
	done := timer.Track("config")
	cfg, err := loadConfig(configPath)
	if err != nil {
		done("failed")
		return nil, err
	}
	done(cfg.Path)

	level := cfg.Log.Level
	if logLevel != "" {
		level = logLevel
	}
	if quiet && logLevel == "" {
		level = "warn"
	}
	var console bool
	switch logFormat {
	case "console":
		console = true
	case "json":
	default:
		return nil, fmt.Errorf("invalid --log-format value %q (expected console|json)", logFormat)
	}
	log, err := logging.New(logging.Options{Level: level, Console: console})
	if err != nil {
		return nil, err
	}

	if maxDiagnostics <= 0 {
		maxDiagnostics = 100
	}
	session, err := prof.Start(profOpts)
	if err != nil {
		return nil, err
	}
	bag := diag.NewBag(maxDiagnostics)
	var reporter diag.Reporter = diag.BagReporter{Bag: bag}
	if !console {
		// json logs carry every diagnostic as a record as well
		reporter = diag.MultiReporter{reporter, logging.NewReporter(log.Named("diag"))}
	}
	// esbuild may repeat a message for every output that includes the module
	reporter = diag.NewDedupReporter(reporter)
	return &runEnv{
		cfg:      cfg,
		log:      log,
		bag:      bag,
		reporter: reporter,
		timer:    timer,
		profile:  session,
		color:    useColor,
		quiet:    quiet,
		timings:  timings,
		failOn:   failOn,

		diagFormat: diagFormat,
	}, nil
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.Load(path)
	}
	wd, err := os.Getwd()
	if err != nil {
		return config.Default(), err
	}
	cfg, err := config.Discover(wd)
	if err != nil {
		return config.Default(), err
	}
	return cfg, nil
}

// extractOptions converts the [transform] table.
func (e *runEnv) extractOptions() extract.Options {
	return extract.Options{
		Extensions: e.cfg.Transform.Extensions,
		Include:    e.cfg.Transform.Include,
		Exclude:    e.cfg.Transform.Exclude,
	}
}

// cacheDir resolves [cache].dir, defaulting to the user cache directory.
func (e *runEnv) cacheDir() (string, error) {
	if dir := e.cfg.Resolve(e.cfg.Cache.Dir); dir != "" {
		return dir, nil
	}
	return cache.DefaultDir("prologue")
}

// openCache returns the layered extraction cache, or nil when disabled.
// An unusable cache directory is logged and ignored.
func (e *runEnv) openCache(disabled bool) extract.RecordCache {
	if disabled || !e.cfg.Cache.Enabled {
		return nil
	}
	dir, err := e.cacheDir()
	if err != nil {
		e.log.Warn("extraction cache disabled", zap.Error(err))
		return nil
	}
	disk, err := cache.OpenDisk(dir, e.log.Named("cache"))
	if err != nil {
		e.log.Warn("extraction cache disabled", zap.Error(err))
		return nil
	}
	return cache.NewLayered(cache.NewMemory(256), disk)
}

// printDiagnostics renders the collected diagnostics to w.
func (e *runEnv) printDiagnostics(w io.Writer, fs *source.FileSet) {
	if e.bag.Len() == 0 {
		return
	}
	e.bag.Sort()
	if fs == nil {
		fs = source.NewFileSet()
	}
	if e.diagFormat == "json" {
		err := diagfmt.JSON(w, e.bag, fs, diagfmt.JSONOpts{
			IncludePositions: true,
			PathMode:         diagfmt.PathModeRelative,
			Max:              int(e.bag.Cap()),
			IncludeNotes:     true,
		})
		if err != nil {
			e.log.Warn("could not encode diagnostics", zap.Error(err))
		}
		return
	}
	diagfmt.Pretty(w, e.bag, fs, diagfmt.PrettyOpts{
		Color:      e.color,
		PathMode:   diagfmt.PathModeRelative,
		ShowNotes:  true,
		ShowSource: true,
		Max:        int(e.bag.Cap()),
	})
}

// checkDiagnostics applies --fail-on to the collected diagnostics.
func (e *runEnv) checkDiagnostics() error {
	if e.failOn == nil || !e.bag.HasAtLeast(*e.failOn) {
		return nil
	}
	return errDiagnostics
}

func (e *runEnv) finish(w io.Writer) {
	if err := e.profile.Stop(); err != nil {
		e.log.Warn("profiling", zap.Error(err))
	}
	_ = e.log.Sync()
	if e.timings && !e.quiet {
		e.timer.WriteSummary(w)
	}
}
