package jsparse

import (
	"context"
	"errors"
	"testing"
)

type literalView struct {
	text    string
	literal bool
	flag    Flag
	start   uint32
	end     uint32
}

func parseView(t *testing.T, src string, d Dialect) []literalView {
	t.Helper()
	prog, err := NewTreeSitter().Parse(context.Background(), 0, []byte(src), d)
	if err != nil {
		t.Fatalf("Parse(%q): %v", src, err)
	}
	if !prog.IsProgram() {
		t.Fatalf("root of %q is not a program", src)
	}
	var out []literalView
	for _, st := range prog.Statements() {
		text, flag, ok := st.Literal()
		out = append(out, literalView{text: text, literal: ok, flag: flag, start: st.Span().Start, end: st.Span().End})
	}
	return out
}

func TestTreeSitterTopLevelLiterals(t *testing.T) {
	src := "'use client';\n// note\n\"use strict\"\nfoo();\n'use server';\n"
	got := parseView(t, src, DialectJS)
	want := []literalView{
		{text: "use client", literal: true, flag: FlagSet, start: 0, end: 13},
		{text: "use strict", literal: true, flag: FlagSet, start: 22, end: 34},
		{literal: false, start: 35, end: 41},
		{text: "use server", literal: true, start: 42, end: 55},
	}
	if len(got) != len(want) {
		t.Fatalf("got %d statements, want %d: %+v", len(got), len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("statement %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestTreeSitterNonLiteralExpressions(t *testing.T) {
	tests := []string{
		"'use' + 'strict';",
		"`use strict`;",
		"'a', 'b';",
		"('a', 'b');",
	}
	for _, src := range tests {
		got := parseView(t, src, DialectJS)
		if len(got) != 1 || got[0].literal {
			t.Errorf("%q: expected one non-literal statement, got %+v", src, got)
		}
	}
}

func TestTreeSitterDirectiveFlag(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want []Flag
	}{
		{"arbitrary text", "'use no memo';\nexport function C() {}\n", []Flag{FlagSet, FlagUnknown}},
		{"leading annotation", "'ngInject';\n'use client';\nexport const a = 1;\n", []Flag{FlagSet, FlagSet, FlagUnknown}},
		{"after code", "run();\n'use client';\n", []Flag{FlagUnknown, FlagUnknown}},
		{"parenthesized ends prologue", "('use client');\n'use strict';\n", []Flag{FlagUnknown, FlagUnknown}},
		{"comment between", "'use strict' /* x */;\n// y\n'use client';\n", []Flag{FlagSet, FlagSet}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := parseView(t, tt.src, DialectJS)
			if len(got) != len(tt.want) {
				t.Fatalf("got %d statements, want %d: %+v", len(got), len(tt.want), got)
			}
			for i, want := range tt.want {
				if got[i].flag != want {
					t.Errorf("statement %d flag = %s, want %s", i, got[i].flag, want)
				}
			}
		})
	}
}

func TestTreeSitterParenthesizedLiteral(t *testing.T) {
	got := parseView(t, "('use client');\nrun();\n", DialectJS)
	if len(got) != 2 {
		t.Fatalf("unexpected statements: %+v", got)
	}
	want := literalView{text: "use client", literal: true, flag: FlagUnknown, start: 0, end: 15}
	if got[0] != want {
		t.Errorf("statement 0 = %+v, want %+v", got[0], want)
	}
}

func TestTreeSitterTolerance(t *testing.T) {
	got := parseView(t, "#!/usr/bin/env node\n'use strict';\nreturn 1;\n", DialectJS)
	if len(got) != 2 || !got[0].literal || got[0].text != "use strict" {
		t.Errorf("unexpected statements: %+v", got)
	}
}

func TestTreeSitterDialects(t *testing.T) {
	got := parseView(t, "'use client';\nconst x: number = 1;\n", DialectTS)
	if len(got) != 2 || got[0].text != "use client" {
		t.Errorf("ts: %+v", got)
	}
	got = parseView(t, "'use client';\nexport const A = () => <div>{1 as number}</div>;\n", DialectTSX)
	if len(got) != 2 || got[0].text != "use client" {
		t.Errorf("tsx: %+v", got)
	}
	got = parseView(t, "\"use client\";\nexport default () => <b />;\n", DialectJS)
	if len(got) != 2 || got[0].text != "use client" {
		t.Errorf("jsx: %+v", got)
	}
}

func TestTreeSitterSyntaxError(t *testing.T) {
	_, err := NewTreeSitter().Parse(context.Background(), 0, []byte("'use client';\nconst = ;\n"), DialectJS)
	if !errors.Is(err, ErrSyntax) {
		t.Fatalf("expected ErrSyntax, got %v", err)
	}
}

func TestDialectFor(t *testing.T) {
	tests := map[string]Dialect{
		".js":  DialectJS,
		".jsx": DialectJS,
		".mjs": DialectJS,
		".cjs": DialectJS,
		".ts":  DialectTS,
		".MTS": DialectTS,
		".cts": DialectTS,
		".tsx": DialectTSX,
	}
	for ext, want := range tests {
		if got := DialectFor(ext); got != want {
			t.Errorf("DialectFor(%q) = %s, want %s", ext, got, want)
		}
	}
}
