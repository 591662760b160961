package logging

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"prologue/internal/diag"
)

// Reporter is the default diagnostic sink: each diagnostic becomes one log
// entry at the matching level.
type Reporter struct {
	log *zap.Logger
}

// NewReporter wraps log; nil discards.
func NewReporter(log *zap.Logger) *Reporter {
	if log == nil {
		log = zap.NewNop()
	}
	return &Reporter{log: log}
}

func (r *Reporter) Report(d diag.Diagnostic) {
	fields := []zap.Field{
		zap.String("code", d.Code.ID()),
		zap.String("name", d.Code.Name()),
	}
	if d.Module != "" {
		fields = append(fields, zap.String("module", d.Module))
	}
	if d.Category != "" {
		fields = append(fields, zap.String("category", d.Category))
	}
	if !d.Primary.Empty() {
		fields = append(fields, zap.Stringer("span", d.Primary))
	}
	for _, n := range d.Notes {
		fields = append(fields, zap.String("note", n.Msg))
	}
	if ce := r.log.Check(levelOf(d.Severity), d.Message); ce != nil {
		ce.Write(fields...)
	}
}

func levelOf(sev diag.Severity) zapcore.Level {
	switch sev {
	case diag.SevError:
		return zapcore.ErrorLevel
	case diag.SevWarning:
		return zapcore.WarnLevel
	default:
		return zapcore.InfoLevel
	}
}
