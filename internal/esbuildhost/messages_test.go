package esbuildhost

import (
	"strings"
	"testing"

	"github.com/evanw/esbuild/pkg/api"

	"prologue/internal/diag"
)

func TestTranslate(t *testing.T) {
	h := New(Options{Suppress: []string{"ignored-directive"}}, nil, nil, nil)
	tests := []struct {
		msg      api.Message
		code     diag.Code
		module   string
		contains string
	}{
		{api.Message{ID: "module-level-directive", Text: "moved"}, diag.ModuleLevelDirective, "", "moved"},
		{api.Message{ID: "ignored-directive", Text: "x"}, diag.ModuleLevelDirective, "", "x"},
		{api.Message{ID: "PARSE_FAILURE", Text: "p"}, diag.ModuleParseFailure, "", "p"},
		{api.Message{ID: "direct-eval", Text: "eval"}, diag.HostMessage, "", "eval"},
		{
			api.Message{Text: "oops", Location: &api.Location{File: "src/a.js", Line: 3, Column: 4}},
			diag.HostMessage, "src/a.js", "src/a.js:3:5: oops",
		},
	}
	for _, tt := range tests {
		d := h.translate(diag.SevWarning, tt.msg)
		if d.Code != tt.code || d.Module != tt.module || !strings.Contains(d.Message, tt.contains) {
			t.Errorf("translate(%+v) = %+v", tt.msg, d)
		}
		if d.Category != tt.msg.ID {
			t.Errorf("category = %q, want %q", d.Category, tt.msg.ID)
		}
	}
}

func TestFilterMessages(t *testing.T) {
	h := New(Options{}, nil, nil, nil)
	in := []api.Message{
		{ID: "MODULE_LEVEL_DIRECTIVE", Text: "a"},
		{ID: "direct-eval", Text: "b"},
		{ID: "module-level-directive", Text: "c"},
	}
	out := h.filterMessages(in)
	if len(out) != 1 || out[0].Text != "b" {
		t.Errorf("filterMessages = %+v", out)
	}
}

func TestReportMessagesKeepsErrors(t *testing.T) {
	bag := diag.NewBag(10)
	h := New(Options{}, diag.BagReporter{Bag: bag}, nil, nil)
	h.reportMessages(
		[]api.Message{{ID: "module-level-directive", Text: "fatal"}},
		[]api.Message{{ID: "module-level-directive", Text: "noise"}, {Text: "kept"}},
	)
	items := bag.Items()
	if len(items) != 2 {
		t.Fatalf("got %d diagnostics, want 2", len(items))
	}
	if items[0].Severity != diag.SevError || items[1].Message != "kept" {
		t.Errorf("items = %+v", items)
	}
}
