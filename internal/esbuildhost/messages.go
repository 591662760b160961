package esbuildhost

import (
	"fmt"

	"github.com/evanw/esbuild/pkg/api"

	"prologue/internal/diag"
	"prologue/internal/source"
)

// translate turns an esbuild message into a diagnostic.
func (h *Host) translate(sev diag.Severity, msg api.Message) diag.Diagnostic {
	code, ok := diag.LookupCode(msg.ID, h.aliases)
	if !ok {
		code = diag.HostMessage
	}
	text := msg.Text
	module := ""
	if loc := msg.Location; loc != nil {
		module = loc.File
		text = fmt.Sprintf("%s:%d:%d: %s", loc.File, loc.Line, loc.Column+1, msg.Text)
	}
	if msg.PluginName != "" {
		text = fmt.Sprintf("[plugin %s] %s", msg.PluginName, text)
	}
	d := diag.New(sev, code, module, source.Span{}, text)
	d.Category = msg.ID
	for _, n := range msg.Notes {
		d = d.WithNote(source.Span{}, n.Text)
	}
	return d
}

// filterMessages drops warnings the diagnostics filter suppresses.
func (h *Host) filterMessages(msgs []api.Message) []api.Message {
	filter := diag.NewFilterReporter(nil)
	kept := msgs[:0]
	for _, m := range msgs {
		if filter.Suppressed(h.translate(diag.SevWarning, m)) {
			continue
		}
		kept = append(kept, m)
	}
	return kept
}

// reportMessages forwards bundler messages through the filtered reporter.
func (h *Host) reportMessages(errs, warnings []api.Message) {
	for _, m := range errs {
		h.reporter.Report(h.translate(diag.SevError, m))
	}
	for _, m := range warnings {
		h.reporter.Report(h.translate(diag.SevWarning, m))
	}
}
