// Package tracer implements lightweight, verbosity-gated diagnostic
// tracing for query plans and reasoner fixpoint iterations: an
// embeddable library has no business taking a logging framework
// dependency, so this follows the one precedent in the example pack
// (badwolf's bql/planner/tracer) of a small first-party trace sink
// rather than a global logger.
package tracer

import (
	"fmt"
	"io"
)

// Tracer writes verbosity-gated trace lines to an io.Writer. A nil
// Writer (the zero value) silently discards everything, so call sites
// never need to check whether tracing is enabled.
type Tracer struct {
	Writer    io.Writer
	Verbosity int // 0 disables tracing; 1 = coarse, 2 = detailed, 3 = everything
}

// New returns a Tracer writing to w at the given verbosity.
func New(w io.Writer, verbosity int) *Tracer {
	return &Tracer{Writer: w, Verbosity: verbosity}
}

// V reports whether a message at the given level would currently be
// emitted, letting call sites skip building an expensive message.
func (t *Tracer) V(level int) bool {
	return t != nil && t.Writer != nil && t.Verbosity >= level
}

// Trace writes a formatted message at the given verbosity level.
func (t *Tracer) Trace(level int, format string, args ...any) {
	if !t.V(level) {
		return
	}
	fmt.Fprintf(t.Writer, format+"\n", args...)
}
