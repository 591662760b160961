package synth

import (
	"strings"
	"sync"
	"testing"

	"prologue/internal/chunk"
	"prologue/internal/directive"
	"prologue/internal/sourcemap"
)

func twoModuleStore() *directive.Store {
	store := directive.NewStore()
	store.AddDirective("a.js", "use client")
	store.SetShebang("a.js", "#!/usr/bin/env node")
	store.AddDirective("b.js", "use server")
	store.SetShebang("b.js", "#!/bin/sh")
	return store
}

func TestRenderTwoModulesWithFacade(t *testing.T) {
	s := New(twoModuleStore(), nil)
	body := "console.log(1);\n"
	out, ok := s.Render(Chunk{
		Text:       body,
		Membership: chunk.Descriptor{Modules: []directive.ModuleID{"a.js", "b.js"}, Entry: "a.js"},
	}, Options{})
	if !ok {
		t.Fatalf("expected a change")
	}
	want := "#!/usr/bin/env node\n'use client';\n'use server';\n" + body
	if out.Text != want {
		t.Errorf("text = %q, want %q", out.Text, want)
	}
	if out.Map != nil {
		t.Errorf("no map was requested")
	}
}

func TestRenderWithoutFacadeNeverEmitsShebang(t *testing.T) {
	s := New(twoModuleStore(), nil)
	out, ok := s.Render(Chunk{
		Text:       "x();\n",
		Membership: chunk.Descriptor{Modules: []directive.ModuleID{"b.js", "a.js"}},
	}, Options{})
	if !ok {
		t.Fatalf("expected a change")
	}
	if strings.HasPrefix(out.Text, "#!") {
		t.Errorf("shared chunk got a shebang: %q", out.Text)
	}
	if out.Text != "'use server';\n'use client';\nx();\n" {
		t.Errorf("text = %q", out.Text)
	}
}

func TestRenderUnionIsFirstSeen(t *testing.T) {
	store := directive.NewStore()
	store.AddDirective("a.js", "use strict")
	store.AddDirective("a.js", "use client")
	store.AddDirective("b.js", "use client")
	store.AddDirective("b.js", "use asm")
	s := New(store, nil)
	dirs, _, has := s.Merge(chunk.Descriptor{Modules: []directive.ModuleID{"b.js", "a.js"}})
	if has {
		t.Errorf("no facade, no shebang")
	}
	want := []string{"use client", "use asm", "use strict"}
	if strings.Join(dirs, ",") != strings.Join(want, ",") {
		t.Errorf("Merge = %v, want %v", dirs, want)
	}
}

func TestRenderNothingToEmit(t *testing.T) {
	store := directive.NewStore()
	store.SetShebang("b.js", "#!/bin/sh")
	s := New(store, nil)
	if _, ok := s.Render(Chunk{Text: "x", Membership: chunk.Descriptor{Modules: []directive.ModuleID{"a.js", "b.js"}}}, Options{}); ok {
		t.Errorf("expected unchanged")
	}
}

func TestRenderIsIdempotent(t *testing.T) {
	s := New(twoModuleStore(), nil)
	c := Chunk{Text: "body();\n", Membership: chunk.Descriptor{Modules: []directive.ModuleID{"a.js", "b.js"}, Entry: "a.js"}}
	first, _ := s.Render(c, Options{})
	second, _ := s.Render(c, Options{})
	if first.Text != second.Text {
		t.Errorf("renders differ:\n%q\n%q", first.Text, second.Text)
	}
}

func TestRenderShiftsIncomingMap(t *testing.T) {
	s := New(twoModuleStore(), nil)
	in := &sourcemap.Map{Version: 3, Sources: []string{"src/a.ts"}, Mappings: "AAAA"}
	out, ok := s.Render(Chunk{
		FileName:   "out.js",
		Text:       "a();\n",
		Membership: chunk.Descriptor{Modules: []directive.ModuleID{"a.js"}, Entry: "a.js"},
		Map:        in,
	}, Options{Sourcemap: true})
	if !ok || out.Map == nil {
		t.Fatalf("expected a map")
	}
	if out.Map.Mappings != ";;AAAA" {
		t.Errorf("mappings = %q", out.Map.Mappings)
	}
	if in.Mappings != "AAAA" {
		t.Errorf("incoming map was mutated")
	}
}

func TestRenderBuildsIdentityMap(t *testing.T) {
	s := New(twoModuleStore(), nil)
	out, ok := s.Render(Chunk{
		FileName:   "out.js",
		Text:       "a();\nb();\n",
		Membership: chunk.Descriptor{Modules: []directive.ModuleID{"b.js"}},
	}, Options{Sourcemap: true})
	if !ok || out.Map == nil {
		t.Fatalf("expected a map")
	}
	lines, err := out.Map.Lines()
	if err != nil {
		t.Fatalf("Lines: %v", err)
	}
	// line 0 is the prologue, lines 1 and 2 the body
	if len(lines[0]) != 0 {
		t.Errorf("prologue line should be unmapped: %+v", lines[0])
	}
	if lines[1][0].OrigLine != 0 || lines[2][0].OrigLine != 1 {
		t.Errorf("body mapping wrong: %+v", lines)
	}
}

func TestRenderConcurrent(t *testing.T) {
	s := New(twoModuleStore(), nil)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Render(Chunk{Text: "x", Membership: chunk.Descriptor{Modules: []directive.ModuleID{"a.js", "b.js"}, Entry: "b.js"}}, Options{})
		}()
	}
	wg.Wait()
}
