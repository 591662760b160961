package diagfmt

import (
	"bytes"
	"strings"
	"testing"

	"prologue/internal/diag"
	"prologue/internal/source"
)

func parseFailureBag(fileID source.FileID) *diag.Bag {
	bag := diag.NewBag(10)
	bag.Add(diag.New(
		diag.SevWarning,
		diag.ModuleParseFailure,
		"src/cli.js",
		source.Span{File: fileID, Start: 14, End: 19},
		"could not parse src/cli.js",
	).WithNote(source.Span{File: fileID}, "syntax error at 2:7"))
	return bag
}

// TestPathModes проверяет различные режимы форматирования путей
func TestPathModes(t *testing.T) {
	fs := source.NewFileSetWithBase("/home/user/project")
	fileID := fs.AddVirtual("/home/user/project/src/cli.js", []byte("'use client';\nconst = ;\n"))
	bag := parseFailureBag(fileID)

	tests := []struct {
		name     string
		mode     PathMode
		contains string
	}{
		{"Absolute path", PathModeAbsolute, "/home/user/project/src/cli.js:2:1"},
		{"Relative path", PathModeRelative, "src/cli.js:2:1"},
		{"Basename only", PathModeBasename, "cli.js:2:1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			Pretty(&buf, bag, fs, PrettyOpts{PathMode: tt.mode})
			if !strings.Contains(buf.String(), tt.contains) {
				t.Errorf("output %q does not contain %q", buf.String(), tt.contains)
			}
		})
	}
}

func TestPrettySnippetAndNotes(t *testing.T) {
	fs := source.NewFileSet()
	fileID := fs.AddVirtual("cli.js", []byte("'use client';\nconst = ;\n"))
	var buf bytes.Buffer
	Pretty(&buf, parseFailureBag(fileID), fs, PrettyOpts{ShowSource: true, ShowNotes: true})
	out := buf.String()
	for _, want := range []string{
		"cli.js:2:1: WARNING MOD1001: could not parse src/cli.js\n",
		"   2 | const = ;\n",
		"       ^~~~~\n",
		"note: syntax error at 2:7",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "\x1b[") {
		t.Errorf("colors must be off: %q", out)
	}
}

func TestPrettyWithoutFile(t *testing.T) {
	bag := diag.NewBag(4)
	bag.Add(diag.New(diag.SevWarning, diag.HostMessage, "", source.Span{}, "bundler said hi"))
	bag.Add(diag.New(diag.SevError, diag.HostMessage, "src/a.ts", source.Span{}, "bad"))
	var buf bytes.Buffer
	Pretty(&buf, bag, nil, PrettyOpts{Max: 1})
	out := buf.String()
	if !strings.HasPrefix(out, "<build>: WARNING HST3001: bundler said hi") {
		t.Errorf("unexpected output %q", out)
	}
	if strings.Contains(out, "src/a.ts") {
		t.Errorf("Max was ignored: %q", out)
	}
}

func TestPrettyColor(t *testing.T) {
	bag := diag.NewBag(1)
	bag.Add(diag.New(diag.SevError, diag.HostMessage, "a.js", source.Span{}, "boom"))
	var buf bytes.Buffer
	Pretty(&buf, bag, nil, PrettyOpts{Color: true})
	if !strings.Contains(buf.String(), "\x1b[") {
		t.Errorf("expected ANSI sequences in %q", buf.String())
	}
}

func TestParsePathMode(t *testing.T) {
	for _, m := range []PathMode{PathModeAuto, PathModeAbsolute, PathModeRelative, PathModeBasename} {
		got, ok := ParsePathMode(m.String())
		if !ok || got != m {
			t.Errorf("ParsePathMode(%q) = %v, %v", m.String(), got, ok)
		}
	}
	if _, ok := ParsePathMode("nope"); ok {
		t.Errorf("unknown mode accepted")
	}
}
