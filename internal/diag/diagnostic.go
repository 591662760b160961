package diag

import (
	"prologue/internal/source"
)

type Note struct {
	Span source.Span
	Msg  string
}

type Diagnostic struct {
	Severity Severity
	Code     Code
	// Module is the host module id the diagnostic belongs to, if any.
	Module  string
	Message string
	Primary source.Span
	Notes   []Note
	// Category keeps the host's original category label when the diagnostic
	// was translated from a bundler message.
	Category string
}

func New(sev Severity, code Code, module string, primary source.Span, msg string) Diagnostic {
	return Diagnostic{
		Severity: sev,
		Code:     code,
		Module:   module,
		Primary:  primary,
		Message:  msg,
	}
}

func (d Diagnostic) WithNote(sp source.Span, msg string) Diagnostic {
	d.Notes = append(d.Notes, Note{Span: sp, Msg: msg})
	return d
}
