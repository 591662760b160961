package diagfmt

import (
	"bytes"
	"encoding/json"
	"testing"

	"prologue/internal/diag"
	"prologue/internal/source"
)

// TestJSONBasic проверяет базовое JSON форматирование
func TestJSONBasic(t *testing.T) {
	fs := source.NewFileSet()
	fileID := fs.AddVirtual("src/cli.js", []byte("'use client';\nconst = ;\n"))
	bag := parseFailureBag(fileID)

	var buf bytes.Buffer
	err := JSON(&buf, bag, fs, JSONOpts{IncludePositions: true, PathMode: PathModeBasename, IncludeNotes: true})
	if err != nil {
		t.Fatalf("JSON() error: %v", err)
	}

	var output DiagnosticsOutput
	if err := json.Unmarshal(buf.Bytes(), &output); err != nil {
		t.Fatalf("Invalid JSON output: %v\nOutput: %s", err, buf.String())
	}
	if output.Count != 1 {
		t.Fatalf("Count = %d", output.Count)
	}
	d := output.Diagnostics[0]
	if d.Severity != "WARNING" {
		t.Errorf("Severity = %q", d.Severity)
	}
	if d.Code != "MOD1001" || d.Name != "PARSE_FAILURE" || d.Module != "src/cli.js" {
		t.Errorf("unexpected identity fields: %+v", d)
	}
	if d.Location.File != "cli.js" || d.Location.StartLine != 2 || d.Location.StartCol != 1 {
		t.Errorf("Location = %+v", d.Location)
	}
	if len(d.Notes) != 1 {
		t.Errorf("Notes = %+v", d.Notes)
	}
}

func TestJSONMaxAndNoFile(t *testing.T) {
	bag := diag.NewBag(4)
	bag.Add(diag.New(diag.SevWarning, diag.HostMessage, "a.js", source.Span{}, "one"))
	bag.Add(diag.New(diag.SevWarning, diag.HostMessage, "b.js", source.Span{}, "two"))
	out := BuildDiagnosticsOutput(bag, nil, JSONOpts{Max: 1})
	if out.Count != 1 || out.Diagnostics[0].Location.File != "" {
		t.Errorf("unexpected output %+v", out)
	}
}
