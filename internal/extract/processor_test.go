package extract

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"

	"prologue/internal/diag"
	"prologue/internal/directive"
	"prologue/internal/jsparse"
	"prologue/internal/source"
)

func newProcessor(t *testing.T, opts Options) (*Processor, *directive.Store, *diag.Bag) {
	t.Helper()
	store := directive.NewStore()
	bag := diag.NewBag(16)
	return New(store, jsparse.NewTreeSitter(), diag.BagReporter{Bag: bag}, opts), store, bag
}

func TestProcessShebang(t *testing.T) {
	p, store, _ := newProcessor(t, Options{})
	res, ok := p.Process(context.Background(), Module{ID: "cli.js", Text: "#!/usr/bin/env node\nconsole.log(1);\n"})
	if !ok {
		t.Fatalf("expected a change")
	}
	if res.Text != "console.log(1);\n" {
		t.Errorf("text = %q", res.Text)
	}
	if sb, ok := store.Shebang("cli.js"); !ok || sb != "#!/usr/bin/env node" {
		t.Errorf("shebang = %q, %v", sb, ok)
	}
	if !res.Meta.HasShebang || res.Meta.Shebang != "#!/usr/bin/env node" {
		t.Errorf("meta = %+v", res.Meta)
	}
}

func TestProcessShebangWithoutLineBreak(t *testing.T) {
	p, store, bag := newProcessor(t, Options{})
	text := "#!/usr/bin/env node"
	if _, ok := p.Process(context.Background(), Module{ID: "a.js", Text: text}); ok {
		t.Errorf("expected unchanged")
	}
	if _, ok := store.Shebang("a.js"); ok {
		t.Errorf("no shebang should be recorded")
	}
	if bag.Len() != 0 {
		t.Errorf("unexpected diagnostics: %+v", bag.Items())
	}
}

func TestProcessShebangUnicodeBreak(t *testing.T) {
	p, store, _ := newProcessor(t, Options{})
	res, ok := p.Process(context.Background(), Module{ID: "a.mjs", Text: "#!node\u2028run();"})
	if !ok || res.Text != "run();" {
		t.Fatalf("got %q, %v", res.Text, ok)
	}
	if sb, _ := store.Shebang("a.mjs"); sb != "#!node" {
		t.Errorf("shebang = %q", sb)
	}
}

func TestProcessDirectivePrologue(t *testing.T) {
	p, store, _ := newProcessor(t, Options{})
	src := "'use client';\n\"use strict\";\n'use client';\nfoo();\n'use server';\n"
	res, ok := p.Process(context.Background(), Module{ID: "page.tsx", Text: src})
	if !ok {
		t.Fatalf("expected a change")
	}
	if diff := cmp.Diff([]string{"use client", "use strict"}, store.Directives("page.tsx")); diff != "" {
		t.Errorf("directives mismatch (-want +got):\n%s", diff)
	}
	if res.Text != "\n\n\nfoo();\n'use server';\n" {
		t.Errorf("text = %q", res.Text)
	}
	if _, ok := store.Shebang("page.tsx"); ok {
		t.Errorf("unexpected shebang")
	}
}

func TestProcessPrologueMembers(t *testing.T) {
	tests := []struct {
		name       string
		src        string
		directives []string
		text       string
	}{
		{
			name:       "arbitrary directive text",
			src:        "'use no memo';\nexport function C() {}\n",
			directives: []string{"use no memo"},
			text:       "\nexport function C() {}\n",
		},
		{
			name:       "annotation before use client",
			src:        "'ngInject';\n'use client';\nexport const a = 1;\n",
			directives: []string{"ngInject", "use client"},
			text:       "\n\nexport const a = 1;\n",
		},
		{
			name:       "parenthesized use literal",
			src:        "('use client');\nrender();\n",
			directives: []string{"use client"},
			text:       "\nrender();\n",
		},
		{
			name:       "parenthesized arbitrary literal stops the scan",
			src:        "('ngInject');\n'use client';\nrender();\n",
			directives: nil,
			text:       "",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, store, _ := newProcessor(t, Options{})
			res, ok := p.Process(context.Background(), Module{ID: "m.js", Text: tt.src})
			if tt.directives == nil {
				if ok || store.Has("m.js") {
					t.Fatalf("expected unchanged, got %q", res.Text)
				}
				return
			}
			if !ok {
				t.Fatalf("expected a change")
			}
			if diff := cmp.Diff(tt.directives, store.Directives("m.js")); diff != "" {
				t.Errorf("directives mismatch (-want +got):\n%s", diff)
			}
			if res.Text != tt.text {
				t.Errorf("text = %q, want %q", res.Text, tt.text)
			}
		})
	}
}

func TestProcessShebangCRLF(t *testing.T) {
	p, store, _ := newProcessor(t, Options{})
	res, ok := p.Process(context.Background(), Module{ID: "bin.js", Text: "#!/usr/bin/env node\r\n'use client';\nx();\n"})
	if !ok {
		t.Fatalf("expected a change")
	}
	// Only the CR is cut; the LF stays in the body.
	if res.Text != "\n\nx();\n" {
		t.Errorf("text = %q", res.Text)
	}
	if sb, _ := store.Shebang("bin.js"); sb != "#!/usr/bin/env node" {
		t.Errorf("shebang = %q", sb)
	}
	if diff := cmp.Diff([]string{"use client"}, store.Directives("bin.js")); diff != "" {
		t.Errorf("directives mismatch (-want +got):\n%s", diff)
	}
}

func TestProcessShebangAndDirectivesSpans(t *testing.T) {
	p, store, _ := newProcessor(t, Options{})
	src := "#!/usr/bin/env node\n// banner\n'use strict';\nmain();\n"
	res, ok := p.Process(context.Background(), Module{ID: "bin.js", Text: src})
	if !ok {
		t.Fatalf("expected a change")
	}
	if res.Text != "// banner\n\nmain();\n" {
		t.Errorf("text = %q", res.Text)
	}
	if diff := cmp.Diff([]string{"use strict"}, store.Directives("bin.js")); diff != "" {
		t.Errorf("directives mismatch (-want +got):\n%s", diff)
	}
	orig, ok := res.Remap.Original(0)
	if !ok || orig != 20 {
		t.Errorf("remap(0) = %d, %v; want 20", orig, ok)
	}
}

func TestProcessUnsupportedExtension(t *testing.T) {
	p, store, _ := newProcessor(t, Options{})
	if _, ok := p.Process(context.Background(), Module{ID: "style.css", Text: "#!x\n'use client';"}); ok {
		t.Errorf("css must pass through")
	}
	if store.Len() != 0 {
		t.Errorf("store should be empty")
	}
}

func TestProcessNoop(t *testing.T) {
	p, store, bag := newProcessor(t, Options{})
	if _, ok := p.Process(context.Background(), Module{ID: "a.js", Text: "export const a = 'use client';\n"}); ok {
		t.Errorf("expected unchanged")
	}
	if store.Has("a.js") || bag.Len() != 0 {
		t.Errorf("unexpected side effects")
	}
}

func TestProcessParseFailure(t *testing.T) {
	p, store, bag := newProcessor(t, Options{})
	src := "#!/usr/bin/env node\n'use client';\nconst = ;\n"
	if _, ok := p.Process(context.Background(), Module{ID: "broken.js", Text: src}); ok {
		t.Fatalf("expected unchanged")
	}
	items := bag.Items()
	if len(items) != 1 {
		t.Fatalf("want exactly one diagnostic, got %d", len(items))
	}
	d := items[0]
	if d.Severity != diag.SevWarning || d.Code != diag.ModuleParseFailure || d.Module != "broken.js" {
		t.Errorf("diagnostic = %+v", d)
	}
	if store.Has("broken.js") {
		t.Errorf("failed module must leave no records")
	}
}

func TestProcessIncludeExclude(t *testing.T) {
	p, store, _ := newProcessor(t, Options{Include: []string{"src/**"}, Exclude: []string{"*.test.js"}})
	ctx := context.Background()
	p.Process(ctx, Module{ID: "src/a.js", Text: "'use client';\n"})
	p.Process(ctx, Module{ID: "lib/b.js", Text: "'use client';\n"})
	p.Process(ctx, Module{ID: "src/c.test.js", Text: "'use client';\n"})
	if diff := cmp.Diff([]directive.ModuleID{"src/a.js"}, store.Modules()); diff != "" {
		t.Errorf("processed modules mismatch (-want +got):\n%s", diff)
	}
}

// flagParser returns canned statements carrying a native directive flag.
type flagParser struct {
	stmts []fakeStmt
	err   error
}

type fakeStmt struct {
	text string
	flag jsparse.Flag
	lit  bool
	span source.Span
}

func (s fakeStmt) Span() source.Span { return s.span }
func (s fakeStmt) Literal() (string, jsparse.Flag, bool) {
	return s.text, s.flag, s.lit
}

type fakeProgram []jsparse.Statement

func (fakeProgram) IsProgram() bool                   { return true }
func (p fakeProgram) Statements() []jsparse.Statement { return p }

func (f flagParser) Parse(context.Context, source.FileID, []byte, jsparse.Dialect) (jsparse.Program, error) {
	if f.err != nil {
		return nil, f.err
	}
	prog := make(fakeProgram, 0, len(f.stmts))
	for _, s := range f.stmts {
		prog = append(prog, s)
	}
	return prog, nil
}

func TestNativeFlagIsAuthoritative(t *testing.T) {
	src := "'ngInject';'use strict';x"
	parser := flagParser{stmts: []fakeStmt{
		{text: "ngInject", flag: jsparse.FlagSet, lit: true, span: source.Span{Start: 0, End: 11}},
		{text: "use strict", flag: jsparse.FlagUnset, lit: true, span: source.Span{Start: 11, End: 24}},
		{lit: false, span: source.Span{Start: 24, End: 25}},
	}}
	store := directive.NewStore()
	p := New(store, parser, nil, Options{})
	res, ok := p.Process(context.Background(), Module{ID: "a.js", Text: src})
	if !ok {
		t.Fatalf("expected a change")
	}
	if diff := cmp.Diff([]string{"ngInject"}, store.Directives("a.js")); diff != "" {
		t.Errorf("directives mismatch (-want +got):\n%s", diff)
	}
	if res.Text != "'use strict';x" {
		t.Errorf("text = %q", res.Text)
	}
}

func TestBackendErrorIsParseFailure(t *testing.T) {
	bag := diag.NewBag(4)
	p := New(directive.NewStore(), flagParser{err: errors.New("boom")}, diag.BagReporter{Bag: bag}, Options{})
	if _, ok := p.Process(context.Background(), Module{ID: "a.ts", Text: "x"}); ok {
		t.Errorf("expected unchanged")
	}
	if bag.Len() != 1 {
		t.Errorf("want one warning, got %d", bag.Len())
	}
}

type memCache struct {
	mu   sync.Mutex
	recs map[[32]byte]*Record
	gets int
}

func (c *memCache) Get(key [32]byte) (*Record, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gets++
	r, ok := c.recs[key]
	return r, ok
}

func (c *memCache) Put(key [32]byte, rec *Record) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.recs[key] = rec
	return nil
}

func TestProcessCacheReplaysRecord(t *testing.T) {
	cache := &memCache{recs: map[[32]byte]*Record{}}
	src := "#!/bin/sh\n'use client';\nrender();\n"

	first := directive.NewStore()
	p := New(first, jsparse.NewTreeSitter(), nil, Options{}, WithCache(cache))
	want, ok := p.Process(context.Background(), Module{ID: "a.js", Text: src})
	if !ok || len(cache.recs) != 1 {
		t.Fatalf("first pass: ok=%v cached=%d", ok, len(cache.recs))
	}

	second := directive.NewStore()
	failing := flagParser{err: errors.New("parser must not run on a cache hit")}
	p = New(second, failing, nil, Options{}, WithCache(cache))
	got, ok := p.Process(context.Background(), Module{ID: "a.js", Text: src})
	if !ok || got.Text != want.Text {
		t.Fatalf("cached pass: %q, %v", got.Text, ok)
	}
	if sb, _ := second.Shebang("a.js"); sb != "#!/bin/sh" {
		t.Errorf("shebang not replayed: %q", sb)
	}
	if diff := cmp.Diff([]string{"use client"}, second.Directives("a.js")); diff != "" {
		t.Errorf("directives mismatch (-want +got):\n%s", diff)
	}
}

func TestProcessConcurrent(t *testing.T) {
	p, store, _ := newProcessor(t, Options{})
	ids := []directive.ModuleID{"a.js", "b.js", "c.js", "d.js", "e.js", "f.js"}
	var wg sync.WaitGroup
	for _, id := range ids {
		wg.Add(1)
		go func(id directive.ModuleID) {
			defer wg.Done()
			p.Process(context.Background(), Module{ID: id, Text: "'use client';\nexport default 1;\n"})
		}(id)
	}
	wg.Wait()
	if store.Len() != len(ids) {
		t.Errorf("store has %d modules, want %d", store.Len(), len(ids))
	}
}
