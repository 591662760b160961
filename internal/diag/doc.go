// Package diag defines the diagnostic model shared by the module and chunk
// phases and by bundler hosts.
//
// # Purpose
//
//   - Provide deterministic data structures for findings produced while
//     extracting module prologues and synthesising chunk prologues.
//   - Offer light-weight utilities (Reporter, Bag) that let producers emit
//     diagnostics without coupling to storage or formatting.
//   - Translate host log categories (bundler message IDs) into Codes so one
//     filter can decide what reaches the user.
//
// # Scope
//
// Package diag does no formatting and no IO. Rendering lives in
// internal/diagfmt; the zap-backed default sink lives in internal/logging.
//
// # Data model
//
// Diagnostic is the central record:
//
//   - Severity: Info, Warning or Error (severity.go).
//   - Code: compact numeric identifier with a stable ID ("MOD1001") and a
//     category name ("PARSE_FAILURE"), see codes.go.
//   - Module: the host module id, empty for build-level messages.
//   - Message and Primary span, plus optional Notes.
//   - Category: the raw host label when translated from a bundler message.
//
// # Filtering
//
// FilterReporter sits in front of the host's default sink and drops warnings
// coded ModuleLevelDirective. Relocating directives to the chunk boundary is
// exactly what makes a bundler complain about directives "not at the top of
// a file", so those warnings are expected. Everything else is forwarded.
package diag
