// Package invariant provides the THIS_SHOULD_NEVER_HAPPEN diagnostic used
// throughout this module (spec.md §7, error class 3): a caller-side
// invariant was violated, the offending row/action/condition is skipped,
// and the violation is logged in a uniform, greppable shape rather than
// treated as a fatal error.
package invariant

import "github.com/eventaction/core/logger"

// Report logs a THIS_SHOULD_NEVER_HAPPEN diagnostic. Call sites skip the
// offending item after calling this; Report itself never aborts anything.
func Report(log logger.Logger, format string, args ...interface{}) {
	if log == nil {
		return
	}
	log.Log(logger.LevelError, "THIS_SHOULD_NEVER_HAPPEN: "+format, args...)
}
