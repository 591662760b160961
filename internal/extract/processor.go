// Package extract removes the leading shebang and directive prologue from
// module text and records both in a directive store.
package extract

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"fortio.org/safecast"
	"go.uber.org/zap"

	"prologue/internal/diag"
	"prologue/internal/directive"
	"prologue/internal/edit"
	"prologue/internal/jsparse"
	"prologue/internal/source"
	"prologue/internal/sourcemap"
)

// directivePattern is the textual fallback for backends without a native
// directive flag.
var directivePattern = regexp.MustCompile(`^use \w+$`)

// Module is one unit handed over by the host.
type Module struct {
	ID   directive.ModuleID
	Text string
	// Ext overrides the extension derived from ID.
	Ext string
	// File is used for the spans of diagnostics; zero when the host has no file set.
	File source.FileID
}

// Metadata is the per-module result exposed to hosts.
type Metadata struct {
	Directives []string `json:"directives"`
	Shebang    string   `json:"shebang,omitempty"`
	HasShebang bool     `json:"hasShebang"`
}

// Result is an edited module.
type Result struct {
	Text  string
	Remap *edit.Remap
	Meta  Metadata
}

// SourceMap materializes a map from the edited text back to original.
func (r Result) SourceMap(original string, opts sourcemap.Options) *sourcemap.Map {
	return sourcemap.FromRemap(r.Remap, r.Text, original, opts)
}

// Options configures a Processor.
type Options struct {
	Extensions []string
	Include    []string
	Exclude    []string
}

// Processor runs extraction. It is safe for concurrent use on distinct modules.
type Processor struct {
	store    *directive.Store
	parser   jsparse.Parser
	reporter diag.Reporter
	filter   *Filter
	cache    RecordCache
	log      *zap.Logger
}

// Option customizes a Processor.
type Option func(*Processor)

// WithCache enables the record cache.
func WithCache(c RecordCache) Option {
	return func(p *Processor) { p.cache = c }
}

// WithLogger sets the logger; the default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(p *Processor) {
		if l != nil {
			p.log = l
		}
	}
}

// New creates a Processor writing into store and reporting parse failures to
// reporter.
func New(store *directive.Store, parser jsparse.Parser, reporter diag.Reporter, opts Options, extra ...Option) *Processor {
	if reporter == nil {
		reporter = diag.NopReporter{}
	}
	p := &Processor{
		store:    store,
		parser:   parser,
		reporter: reporter,
		filter:   NewFilter(opts.Extensions, opts.Include, opts.Exclude),
		log:      zap.NewNop(),
	}
	for _, o := range extra {
		o(p)
	}
	return p
}

// Process transforms one module. ok is false when the module is left
// unchanged, which includes unsupported extensions and parse failures.
func (p *Processor) Process(ctx context.Context, m Module) (Result, bool) {
	ext := m.Ext
	if ext == "" {
		ext = Extension(string(m.ID))
	}
	if !p.filter.Accepts(string(m.ID), ext) {
		return Result{}, false
	}

	var key [32]byte
	rec, hit := (*Record)(nil), false
	if p.cache != nil {
		key = RecordKey(ext, m.Text)
		rec, hit = p.cache.Get(key)
	}
	if !hit {
		var err error
		rec, err = p.scan(ctx, m, ext)
		if err != nil {
			if ctx.Err() == nil {
				p.reportParseFailure(m, err)
			}
			return Result{}, false
		}
		if p.cache != nil {
			if err := p.cache.Put(key, rec); err != nil {
				p.log.Debug("cache write failed", zap.String("module", string(m.ID)), zap.Error(err))
			}
		}
	}

	p.record(m.ID, rec)
	if rec.Empty() {
		return Result{}, false
	}

	var edits edit.List
	for _, sp := range rec.Removals {
		edits.Remove(sp)
	}
	applied, err := edits.Apply(m.Text)
	if err != nil {
		// Only reachable with a stale or foreign cache record.
		p.log.Warn("discarding unusable extraction record", zap.String("module", string(m.ID)), zap.Error(err))
		return Result{}, false
	}
	p.log.Debug("extracted prologue",
		zap.String("module", string(m.ID)),
		zap.Bool("shebang", rec.HasShebang),
		zap.Strings("directives", rec.Directives),
		zap.Bool("cached", hit),
	)
	return Result{
		Text:  applied.Text,
		Remap: applied.Remap,
		Meta: Metadata{
			Directives: append([]string(nil), rec.Directives...),
			Shebang:    rec.Shebang,
			HasShebang: rec.HasShebang,
		},
	}, true
}

func (p *Processor) record(id directive.ModuleID, rec *Record) {
	if rec.HasShebang {
		p.store.SetShebang(id, rec.Shebang)
	}
	for _, d := range rec.Directives {
		p.store.AddDirective(id, d)
	}
}

// scan computes the record of m without touching the store, so a failing
// module leaves nothing behind.
func (p *Processor) scan(ctx context.Context, m Module, ext string) (*Record, error) {
	rec := &Record{}
	text := m.Text

	offset := uint32(0)
	if shebang, cut, ok := detectShebang(text); ok {
		rec.Shebang = shebang
		rec.HasShebang = true
		rec.Removals = append(rec.Removals, source.Span{File: m.File, Start: 0, End: cut})
		text = text[cut:]
		offset = cut
	}

	prog, err := p.parser.Parse(ctx, m.File, []byte(text), jsparse.DialectFor(ext))
	if err != nil {
		return nil, err
	}
	if !prog.IsProgram() {
		return &Record{}, nil
	}

	seen := directive.NewOrderedSet()
	for _, st := range prog.Statements() {
		lit, flag, ok := st.Literal()
		if !ok || !qualifies(lit, flag) {
			break
		}
		seen.Add(lit)
		rec.Removals = append(rec.Removals, st.Span().ShiftRight(offset))
	}
	rec.Directives = seen.Values()
	return rec, nil
}

// detectShebang finds a shebang at offset 0. cut runs through the first
// code unit of the line break, so a CRLF leaves its LF behind.
func detectShebang(text string) (shebang string, cut uint32, ok bool) {
	if len(text) < 2 || text[0] != '#' || text[1] != '!' {
		return "", 0, false
	}
	at, width, found := source.NextLineBreak(text, 2, false)
	if !found {
		return "", 0, false
	}
	end, err := safecast.Conv[uint32](at + width)
	if err != nil {
		return "", 0, false
	}
	return text[:at], end, true
}

// qualifies applies the directive rule: a native flag wins, otherwise the
// literal must read "use <word>".
func qualifies(text string, flag jsparse.Flag) bool {
	switch flag {
	case jsparse.FlagSet:
		return true
	case jsparse.FlagUnset:
		return false
	default:
		return directivePattern.MatchString(text)
	}
}

func (p *Processor) reportParseFailure(m Module, err error) {
	msg := fmt.Sprintf("could not parse %s, leaving its shebang and directives in place; "+
		"run the prologue transform after all other source transforms", m.ID)
	b := diag.ReportWarning(p.reporter, diag.ModuleParseFailure, string(m.ID), source.Span{File: m.File}, msg)
	if errors.Is(err, jsparse.ErrSyntax) {
		b.WithNote(source.Span{File: m.File}, err.Error())
	}
	b.Emit()
	p.log.Debug("parse failed", zap.String("module", string(m.ID)), zap.Error(err))
}
