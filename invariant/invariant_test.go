package invariant_test

import (
	"testing"

	"github.com/eventaction/core/invariant"
)

func TestReportWithNilLoggerDoesNotPanic(t *testing.T) {
	invariant.Report(nil, "escalation %d references eventid %d which is not in closed_events", 1, 2)
}
