package diag

// FilterReporter forwards every diagnostic to next except warnings whose code
// is in the suppressed set. By default only ModuleLevelDirective is dropped:
// moving directives out of module bodies makes bundlers report them as
// misplaced, and that report is expected noise.
type FilterReporter struct {
	next     Reporter
	suppress map[Code]struct{}
}

// NewFilterReporter wraps next. Extra codes may be suppressed alongside
// ModuleLevelDirective.
func NewFilterReporter(next Reporter, extra ...Code) *FilterReporter {
	suppress := map[Code]struct{}{ModuleLevelDirective: {}}
	for _, c := range extra {
		suppress[c] = struct{}{}
	}
	return &FilterReporter{next: next, suppress: suppress}
}

// Suppressed reports whether d would be dropped.
func (r *FilterReporter) Suppressed(d Diagnostic) bool {
	if d.Severity != SevWarning {
		return false
	}
	_, ok := r.suppress[d.Code]
	return ok
}

func (r *FilterReporter) Report(d Diagnostic) {
	if r == nil || r.Suppressed(d) {
		return
	}
	if r.next != nil {
		r.next.Report(d)
	}
}
