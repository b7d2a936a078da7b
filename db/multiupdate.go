package db

import (
	"context"
	"fmt"
	"strings"
)

// MultiUpdateBuilder batches a sequence of independent UPDATE statements
// into as few round trips as possible, flushing automatically once the
// buffered SQL grows past a size threshold. This mirrors the teacher's
// begin_multiple_update/end_multiple_update/execute_overflowed_sql
// discipline (spec.md §6): the escalation bookkeeper issues one
// UPDATE...WHERE escalationid IN (...) per recovery-eventid bucket, and
// those statements are cheap enough, and numerous enough in a busy batch,
// that batching avoids one round trip per bucket.
//
// Statements passed to Add must already have any variable values safely
// embedded (this module only ever batches updates keyed by internally
// generated int64 ids, never raw user input, so literal embedding is
// safe and avoids tracking per-dialect placeholder offsets across a
// concatenated multi-statement block).
type MultiUpdateBuilder struct {
	accessor  DatabaseAccessor
	threshold int
	buf       strings.Builder
	pending   int
}

// DefaultMultiUpdateThreshold is the buffered-SQL size, in bytes, at which
// Add flushes the buffer automatically.
const DefaultMultiUpdateThreshold = 32 * 1024

// BeginMultipleUpdate starts a new batched-update buffer against accessor.
func BeginMultipleUpdate(accessor DatabaseAccessor) *MultiUpdateBuilder {
	return &MultiUpdateBuilder{accessor: accessor, threshold: DefaultMultiUpdateThreshold}
}

// Add appends one complete statement (including its trailing semicolon) to
// the buffer, flushing first if appending it would exceed the threshold.
func (m *MultiUpdateBuilder) Add(ctx context.Context, statement string) error {
	if m.buf.Len() > 0 && m.buf.Len()+len(statement) > m.threshold {
		if err := m.flush(ctx); err != nil {
			return err
		}
	}

	m.buf.WriteString(statement)
	if !strings.HasSuffix(strings.TrimSpace(statement), ";") {
		m.buf.WriteString(";")
	}
	m.buf.WriteString("\n")
	m.pending++
	return nil
}

func (m *MultiUpdateBuilder) flush(ctx context.Context) error {
	if m.buf.Len() == 0 {
		return nil
	}

	sqlText := m.buf.String()
	m.buf.Reset()
	m.pending = 0

	if _, err := m.accessor.Exec(ctx, sqlText); err != nil {
		return fmt.Errorf("db: flushing batched update block: %w", err)
	}
	return nil
}

// EndMultipleUpdate flushes whatever is left in the buffer. It is a no-op
// if the buffer is empty (spec.md §4.4: "flush only when the batched
// buffer contains substantive content").
func (m *MultiUpdateBuilder) EndMultipleUpdate(ctx context.Context) error {
	return m.flush(ctx)
}
