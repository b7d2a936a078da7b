package logger

import (
	"fmt"
	"os"
	"time"

	"go.uber.org/atomic"
)

// LogLevel represents the severity of a log message.
type LogLevel int32

const (
	LevelError LogLevel = iota
	LevelWarn
	LevelInfo
	LevelDebug
	LevelTrace
)

// ParseLevel maps a config string ("error"|"warn"|"info"|"debug"|"trace")
// to a LogLevel, defaulting to LevelInfo for anything else (SPEC_FULL.md
// AMBIENT STACK "Configuration": the daemons' --log-level flag).
func ParseLevel(s string) LogLevel {
	switch s {
	case "error":
		return LevelError
	case "warn":
		return LevelWarn
	case "debug":
		return LevelDebug
	case "trace":
		return LevelTrace
	default:
		return LevelInfo
	}
}

// String converts a LogLevel to its three-letter tag.
func (l LogLevel) String() string {
	switch l {
	case LevelError:
		return "ERR"
	case LevelWarn:
		return "WRN"
	case LevelInfo:
		return "INF"
	case LevelDebug:
		return "DBG"
	case LevelTrace:
		return "TRA"
	default:
		return "???"
	}
}

const (
	colorReset = "\033[0m"
	colorError = "\033[31m"
	colorWarn  = "\033[33m"
	colorInfo  = "\033[37m"
	colorDebug = "\033[34m"
	colorTrace = "\033[35m"
)

// LogMessage records one logged event, kept around so callers can surface
// "last error seen" style status without re-wiring a separate channel.
type LogMessage struct {
	Level   LogLevel
	Message string
	Time    time.Time
}

// PlaneLogger is a minimal Logger (its only third-party dependency is
// go.uber.org/atomic, for the level and last message): it writes to stdout,
// colorizing by level when stdout is a terminal.
type PlaneLogger struct {
	level        atomic.Int32
	useColors    bool
	storeLastMsg bool
	lastMsg      atomic.Pointer[LogMessage]
}

// NewPlaneLogger creates a logger at the given level.
func NewPlaneLogger(level LogLevel, storeLastMessage bool) Logger {
	fileInfo, _ := os.Stdout.Stat()
	useColors := (fileInfo.Mode() & os.ModeCharDevice) != 0

	l := &PlaneLogger{
		useColors:    useColors,
		storeLastMsg: storeLastMessage,
	}
	l.level.Store(int32(level))
	return l
}

func (l *PlaneLogger) GetLevel() LogLevel { return LogLevel(l.level.Load()) }

func (l *PlaneLogger) SetLevel(level LogLevel) { l.level.Store(int32(level)) }

func (l *PlaneLogger) levelToColor(level LogLevel) string {
	if !l.useColors {
		return ""
	}
	switch level {
	case LevelError:
		return colorError
	case LevelWarn:
		return colorWarn
	case LevelInfo:
		return colorInfo
	case LevelDebug:
		return colorDebug
	case LevelTrace:
		return colorTrace
	default:
		return ""
	}
}

func (l *PlaneLogger) print(level LogLevel, message string) {
	if l.GetLevel() < level {
		return
	}

	timestamp := time.Now().Format("2006-01-02 15:04:05.000000")
	prefix := fmt.Sprintf("%s  %s:", timestamp, level.String())

	color := l.levelToColor(level)
	reset := ""
	if color != "" {
		reset = colorReset
	}

	fmt.Println(fmt.Sprintf("%s%s %s%s", color, prefix, message, reset))

	if l.storeLastMsg {
		l.lastMsg.Store(&LogMessage{Level: level, Message: message, Time: time.Now()})
	}
}

func (l *PlaneLogger) Log(level LogLevel, format string, args ...interface{}) {
	l.print(level, fmt.Sprintf(format, args...))
}

func (l *PlaneLogger) Error(format string, args ...interface{}) { l.Log(LevelError, format, args...) }
func (l *PlaneLogger) Warn(format string, args ...interface{})  { l.Log(LevelWarn, format, args...) }
func (l *PlaneLogger) Info(format string, args ...interface{})  { l.Log(LevelInfo, format, args...) }
func (l *PlaneLogger) Debug(format string, args ...interface{}) { l.Log(LevelDebug, format, args...) }
func (l *PlaneLogger) Trace(format string, args ...interface{}) { l.Log(LevelTrace, format, args...) }

func (l *PlaneLogger) GetLastMessage() *LogMessage {
	if !l.storeLastMsg {
		return nil
	}
	return l.lastMsg.Load()
}

func (l *PlaneLogger) Clone() Logger {
	return NewPlaneLogger(l.GetLevel(), l.storeLastMsg)
}
