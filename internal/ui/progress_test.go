package ui

import (
	"strings"
	"testing"

	"prologue/internal/pipeline"
)

func TestProgressModelTracksModulesAndChunks(t *testing.T) {
	m := NewProgressModel("prologue build", []string{"src/a.ts", "src/b.ts"}, nil).(*progressModel)

	for _, ev := range []pipeline.Event{
		{Stage: pipeline.StageExtract, Status: pipeline.StatusWorking},
		{File: "src/a.ts", Stage: pipeline.StageExtract, Status: pipeline.StatusDone},
		{File: "src/b.ts", Stage: pipeline.StageExtract, Status: pipeline.StatusSkipped},
		{File: "dist/index.js", Stage: pipeline.StageSynthesize, Status: pipeline.StatusWorking},
	} {
		m.applyEvent(ev)
	}

	if len(m.items) != 3 {
		t.Fatalf("got %d items, want 3", len(m.items))
	}
	if m.items[2].path != "dist/index.js" || m.items[2].status != "rendering" {
		t.Errorf("chunk item = %+v", m.items[2])
	}
	if got := m.percent(); got != 2.5/3 {
		t.Errorf("percent = %v", got)
	}
	view := m.View()
	for _, want := range []string{"prologue build (extracting)", "src/a.ts", "unchanged", "dist/index.js"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q:\n%s", want, view)
		}
	}
}

func TestProgressModelStageError(t *testing.T) {
	m := NewProgressModel("build", nil, nil).(*progressModel)
	m.applyEvent(pipeline.Event{Stage: pipeline.StageBundle, Status: pipeline.StatusError})
	m.done = true
	if !strings.Contains(m.View(), "failed: build") {
		t.Errorf("view should report failure: %q", m.View())
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in    string
		width int
		want  string
	}{
		{"short", 10, "short"},
		{"a-very-long-module-name.js", 10, "a-very-..."},
		{"abcdef", 3, "abc"},
	}
	for _, tt := range tests {
		if got := truncate(tt.in, tt.width); got != tt.want {
			t.Errorf("truncate(%q, %d) = %q, want %q", tt.in, tt.width, got, tt.want)
		}
	}
}
