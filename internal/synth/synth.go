// Package synth prepends the merged shebang and directive prologue to
// finished output chunks.
package synth

import (
	"strings"

	"go.uber.org/zap"

	"prologue/internal/chunk"
	"prologue/internal/directive"
	"prologue/internal/edit"
	"prologue/internal/sourcemap"
)

// Chunk is one finished output chunk.
type Chunk struct {
	FileName   string
	Text       string
	Membership chunk.Membership
	// Map is the host's map for Text, if it produced one.
	Map *sourcemap.Map
}

// Options are the host's output options.
type Options struct {
	Sourcemap bool
}

// Output is a rendered chunk. Map is nil unless a map was requested.
type Output struct {
	Text     string
	Prologue string
	Map      *sourcemap.Map
}

// Synthesizer only reads the store, so one instance may render many chunks
// concurrently.
type Synthesizer struct {
	store *directive.Store
	log   *zap.Logger
}

// New creates a Synthesizer over store. A nil logger discards output.
func New(store *directive.Store, log *zap.Logger) *Synthesizer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Synthesizer{store: store, log: log}
}

// Merge computes the directives of a chunk in first-seen order across its
// modules and the shebang of its facade.
func (s *Synthesizer) Merge(m chunk.Membership) (directives []string, shebang string, hasShebang bool) {
	set := directive.NewOrderedSet()
	for _, id := range m.ModuleIDs() {
		set.Union(s.store.Directives(id))
	}
	if facade, ok := m.Facade(); ok {
		shebang, hasShebang = s.store.Shebang(facade)
	}
	return set.Values(), shebang, hasShebang
}

// Prologue renders the text to prepend, or "" when there is nothing to emit.
func Prologue(directives []string, shebang string, hasShebang bool) string {
	var b strings.Builder
	if hasShebang {
		b.WriteString(shebang)
		b.WriteByte('\n')
	}
	for _, d := range directives {
		b.WriteByte('\'')
		b.WriteString(d)
		b.WriteString("';\n")
	}
	return b.String()
}

// Render produces the final chunk text. ok is false when the chunk has
// neither directives nor a facade shebang.
func (s *Synthesizer) Render(c Chunk, opts Options) (Output, bool) {
	directives, shebang, hasShebang := s.Merge(c.Membership)
	if len(directives) == 0 && !hasShebang {
		return Output{}, false
	}
	prologue := Prologue(directives, shebang, hasShebang)
	out := Output{Text: prologue + c.Text, Prologue: prologue}
	if opts.Sourcemap {
		out.Map = s.regenerateMap(c, prologue)
	}
	s.log.Debug("rendered chunk prologue",
		zap.String("chunk", c.FileName),
		zap.Strings("directives", directives),
		zap.Bool("shebang", hasShebang),
	)
	return out, true
}

// regenerateMap moves the incoming map below the prologue. Without one it
// maps the body onto the chunk text itself.
func (s *Synthesizer) regenerateMap(c Chunk, prologue string) *sourcemap.Map {
	if c.Map != nil {
		m := *c.Map
		m.ShiftLines(sourcemap.CountLines(prologue))
		return &m
	}
	var edits edit.List
	edits.Prepend(prologue)
	res, err := edits.Apply(c.Text)
	if err != nil {
		s.log.Warn("could not build chunk map", zap.String("chunk", c.FileName), zap.Error(err))
		return nil
	}
	return sourcemap.FromRemap(res.Remap, res.Text, c.Text, sourcemap.Options{
		File:   c.FileName,
		Source: c.FileName,
	})
}
