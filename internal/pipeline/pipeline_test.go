package pipeline

import (
	"context"
	"errors"
	"strings"
	"testing"

	"go.uber.org/goleak"

	"prologue/internal/chunk"
	"prologue/internal/diag"
	"prologue/internal/directive"
	"prologue/internal/extract"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// concatBundler joins every module into one chunk, optionally with a facade.
func concatBundler(name string, facade directive.ModuleID) Bundler {
	return func(_ context.Context, modules []ModuleOutput) ([]ChunkInput, error) {
		var b strings.Builder
		ids := make([]directive.ModuleID, 0, len(modules))
		for _, m := range modules {
			b.WriteString(m.Text)
			ids = append(ids, m.ID)
		}
		return []ChunkInput{{
			FileName:   name,
			Text:       b.String(),
			Membership: chunk.Descriptor{Modules: ids, Entry: facade},
		}}, nil
	}
}

func TestRunRestoresPrologue(t *testing.T) {
	req := &Request{
		Modules: []extract.Module{
			{ID: "a.js", Text: "#!/usr/bin/env node\n'use client';\nmain();\n"},
			{ID: "b.js", Text: "'use server';\nfunction s() {}\n"},
		},
		Bundle: concatBundler("out.js", "a.js"),
		Jobs:   2,
	}
	res, err := Run(context.Background(), req)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(res.Chunks) != 1 {
		t.Fatalf("got %d chunks", len(res.Chunks))
	}
	want := "#!/usr/bin/env node\n'use client';\n'use server';\n" + "\nmain();\n" + "\nfunction s() {}\n"
	if got := res.Chunks[0].Text; got != want {
		t.Errorf("chunk text = %q, want %q", got, want)
	}
	if !res.Timings.Has(StageExtract) || !res.Timings.Has(StageSynthesize) {
		t.Errorf("missing stage timings")
	}
}

func TestRunWithoutPrologueIsByteIdentical(t *testing.T) {
	modules := []extract.Module{
		{ID: "a.js", Text: "import { b } from './b.js';\nb();\n"},
		{ID: "b.ts", Text: "export const b = (): void => {};\n"},
		{ID: "c.css", Text: "body { color: red }\n"},
	}
	res, err := Run(context.Background(), &Request{Modules: modules, Bundle: concatBundler("out.js", "a.js")})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	for i, m := range res.Modules {
		if m.Changed || m.Text != modules[i].Text {
			t.Errorf("module %s changed", m.ID)
		}
	}
	want := modules[0].Text + modules[1].Text + modules[2].Text
	if res.Chunks[0].Changed || res.Chunks[0].Text != want {
		t.Errorf("chunk changed: %q", res.Chunks[0].Text)
	}
}

func TestRunParseFailureIsLocal(t *testing.T) {
	bag := diag.NewBag(8)
	res, err := Run(context.Background(), &Request{
		Modules: []extract.Module{
			{ID: "bad.js", Text: "'use client';\nlet = ;\n"},
			{ID: "good.js", Text: "'use strict';\nok();\n"},
		},
		Bundle:   concatBundler("out.js", ""),
		Reporter: diag.BagReporter{Bag: bag},
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	items := bag.Items()
	if len(items) != 1 || items[0].Module != "bad.js" || items[0].Code != diag.ModuleParseFailure {
		t.Fatalf("diagnostics = %+v", items)
	}
	if res.Store.Has("bad.js") {
		t.Errorf("bad.js must not be recorded")
	}
	if res.Modules[0].Changed || res.Modules[0].Text != "'use client';\nlet = ;\n" {
		t.Errorf("bad.js text changed")
	}
	if !strings.HasPrefix(res.Chunks[0].Text, "'use strict';\n'use client';\n") {
		t.Errorf("chunk = %q", res.Chunks[0].Text)
	}
}

func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Run(ctx, &Request{
		Modules: []extract.Module{{ID: "a.js", Text: "'use client';\n"}},
		Bundle:  concatBundler("out.js", ""),
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestRunBundlerError(t *testing.T) {
	boom := errors.New("boom")
	_, err := Run(context.Background(), &Request{
		Modules: []extract.Module{{ID: "a.js", Text: "x;\n"}},
		Bundle: func(context.Context, []ModuleOutput) ([]ChunkInput, error) {
			return nil, boom
		},
	})
	if !errors.Is(err, boom) {
		t.Errorf("expected wrapped bundler error, got %v", err)
	}
}

func TestRunProgressEvents(t *testing.T) {
	sink := &RecordingSink{}
	_, err := Run(context.Background(), &Request{
		Modules: []extract.Module{
			{ID: "a.js", Text: "'use client';\n"},
			{ID: "b.js", Text: "b();\n"},
		},
		Bundle:   concatBundler("out.js", ""),
		Progress: sink,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	final := map[string]Status{}
	for _, evt := range sink.Events() {
		if evt.File != "" {
			final[string(evt.Stage)+":"+evt.File] = evt.Status
		}
	}
	want := map[string]Status{
		"extract:a.js":      StatusDone,
		"extract:b.js":      StatusSkipped,
		"synthesize:out.js": StatusDone,
	}
	for k, v := range want {
		if final[k] != v {
			t.Errorf("%s = %q, want %q", k, final[k], v)
		}
	}
}

func TestRunRequiresBundler(t *testing.T) {
	if _, err := Run(context.Background(), &Request{}); err == nil {
		t.Errorf("expected an error without a bundler")
	}
}
