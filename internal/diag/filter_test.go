package diag

import (
	"testing"

	"prologue/internal/source"
)

func TestFilterReporter_SuppressesModuleLevelDirectiveWarnings(t *testing.T) {
	bag := NewBag(10)
	r := NewFilterReporter(BagReporter{Bag: bag})

	ReportWarning(r, ModuleLevelDirective, "src/a.js", source.Span{}, `"use client" was ignored`).Emit()
	ReportWarning(r, ModuleParseFailure, "src/b.js", source.Span{}, "parse failed").Emit()
	ReportError(r, ModuleLevelDirective, "src/c.js", source.Span{}, "same code, error severity").Emit()
	ReportInfo(r, HostMessage, "", source.Span{}, "bundled 3 modules").Emit()

	items := bag.Items()
	if len(items) != 3 {
		t.Fatalf("expected 3 forwarded diagnostics, got %d: %+v", len(items), items)
	}
	for _, d := range items {
		if d.Severity == SevWarning && d.Code == ModuleLevelDirective {
			t.Errorf("module level directive warning was forwarded: %+v", d)
		}
	}
	if items[0].Module != "src/b.js" {
		t.Errorf("forwarding order changed: %+v", items)
	}
}

func TestFilterReporter_ExtraCodes(t *testing.T) {
	bag := NewBag(10)
	r := NewFilterReporter(BagReporter{Bag: bag}, ChunkSourcemapBroken)

	ReportWarning(r, ChunkSourcemapBroken, "", source.Span{}, "map").Emit()
	ReportWarning(r, HostMessage, "", source.Span{}, "other").Emit()

	if bag.Len() != 1 || bag.Items()[0].Code != HostMessage {
		t.Errorf("unexpected forwarded set: %+v", bag.Items())
	}
}

func TestReportBuilder_EmitOnce(t *testing.T) {
	bag := NewBag(10)
	b := ReportWarning(BagReporter{Bag: bag}, ModuleParseFailure, "m", source.Span{Start: 1, End: 2}, "x").
		WithCategory("PARSE_FAILURE").
		WithNote(source.Span{Start: 1, End: 2}, "here")
	b.Emit()
	b.Emit()

	if bag.Len() != 1 {
		t.Fatalf("expected a single emission, got %d", bag.Len())
	}
	d := bag.Items()[0]
	if d.Category != "PARSE_FAILURE" || len(d.Notes) != 1 {
		t.Errorf("builder lost details: %+v", d)
	}
}
