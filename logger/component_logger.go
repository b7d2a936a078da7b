package logger

import "fmt"

// ComponentLogger tags every message with a component label, so that the
// task manager's background loop and a synchronous batch-processing call
// can share stdout without their lines being ambiguous. This is the same
// shape as the teacher's per-worker logger, but tagged by component name
// rather than numeric worker id since this module has no worker pool.
type ComponentLogger struct {
	PlaneLogger
	component string
}

// NewComponentLogger creates a logger that prefixes every line with component.
func NewComponentLogger(level LogLevel, storeLastMessage bool, component string) Logger {
	base, ok := NewPlaneLogger(level, storeLastMessage).(*PlaneLogger)
	if !ok {
		return nil
	}

	l := &ComponentLogger{component: component}
	l.PlaneLogger = *base
	return l
}

func (l *ComponentLogger) Log(level LogLevel, format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	l.PlaneLogger.Log(level, "%s: %s", l.component, msg)
}

func (l *ComponentLogger) Error(format string, args ...interface{}) { l.Log(LevelError, format, args...) }
func (l *ComponentLogger) Warn(format string, args ...interface{})  { l.Log(LevelWarn, format, args...) }
func (l *ComponentLogger) Info(format string, args ...interface{})  { l.Log(LevelInfo, format, args...) }
func (l *ComponentLogger) Debug(format string, args ...interface{}) { l.Log(LevelDebug, format, args...) }
func (l *ComponentLogger) Trace(format string, args ...interface{}) { l.Log(LevelTrace, format, args...) }

func (l *ComponentLogger) GetLastMessage() *LogMessage { return l.PlaneLogger.GetLastMessage() }

func (l *ComponentLogger) Clone() Logger {
	return NewComponentLogger(l.GetLevel(), l.storeLastMsg, l.component)
}
