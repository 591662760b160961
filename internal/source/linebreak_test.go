package source

import "testing"

func TestNextLineBreak(t *testing.T) {
	tests := []struct {
		name      string
		text      string
		from      int
		crlf      bool
		wantAt    int
		wantWidth int
		wantOK    bool
	}{
		{name: "line feed", text: "#!node\nx", from: 2, wantAt: 6, wantWidth: 1, wantOK: true},
		{name: "lone carriage return", text: "#!node\rx", from: 2, wantAt: 6, wantWidth: 1, wantOK: true},
		{name: "crlf split", text: "#!node\r\nx", from: 2, wantAt: 6, wantWidth: 1, wantOK: true},
		{name: "crlf joined", text: "#!node\r\nx", from: 2, crlf: true, wantAt: 6, wantWidth: 2, wantOK: true},
		{name: "line separator", text: "#!node\u2028x", from: 2, wantAt: 6, wantWidth: 3, wantOK: true},
		{name: "paragraph separator", text: "#!nöde\u2029x", from: 2, wantAt: 7, wantWidth: 3, wantOK: true},
		{name: "no terminator", text: "#!/usr/bin/env node", from: 2, wantOK: false},
		{name: "empty", text: "", from: 0, wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			at, width, ok := NextLineBreak(tt.text, tt.from, tt.crlf)
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if !ok {
				return
			}
			if at != tt.wantAt || width != tt.wantWidth {
				t.Errorf("NextLineBreak() = (%d, %d), want (%d, %d)", at, width, tt.wantAt, tt.wantWidth)
			}
		})
	}
}

func TestIsLineBreak(t *testing.T) {
	for _, r := range []rune{'\n', '\r', '\u2028', '\u2029'} {
		if !IsLineBreak(r) {
			t.Errorf("expected %U to be a line break", r)
		}
	}
	for _, r := range []rune{' ', '\t', '\v', '\f', 0x85} {
		if IsLineBreak(r) {
			t.Errorf("expected %U not to be a line break", r)
		}
	}
}
