package model

// TaskType enumerates task kinds the task manager dispatches on (spec.md
// §4.6). Only TaskCloseProblem is implemented; any other value is logged
// via invariant.Report and skipped.
type TaskType int

const (
	TaskCloseProblem TaskType = iota
)

// Task is one row of the task table.
type Task struct {
	TaskID uint64
	Type   TaskType
}

// CloseProblemTask binds a CLOSE_PROBLEM task to the acknowledge that
// requested it (the task_close_problem table, spec.md §3/§4.6).
type CloseProblemTask struct {
	TaskID        uint64
	AcknowledgeID uint64
}
