package logger

import "testing"

func TestPlaneLoggerLevelFilter(t *testing.T) {
	l := NewPlaneLogger(LevelWarn, true)
	l.Info("this should not be stored")
	if msg := l.GetLastMessage(); msg != nil {
		t.Fatalf("expected no message stored below configured level, got %v", msg)
	}

	l.Error("boom %d", 42)
	msg := l.GetLastMessage()
	if msg == nil {
		t.Fatal("expected a stored message")
	}
	if msg.Level != LevelError {
		t.Fatalf("expected LevelError, got %v", msg.Level)
	}
}

func TestComponentLoggerPrefixesComponent(t *testing.T) {
	l := NewComponentLogger(LevelTrace, true, "taskmanager")
	l.Debug("tick")
	msg := l.GetLastMessage()
	if msg == nil {
		t.Fatal("expected a stored message")
	}
	if msg.Message != "taskmanager: tick" {
		t.Fatalf("expected prefixed message, got %q", msg.Message)
	}
}

func TestLoggerClonePreservesLevel(t *testing.T) {
	l := NewComponentLogger(LevelDebug, false, "x")
	clone := l.Clone()
	if clone.GetLevel() != LevelDebug {
		t.Fatalf("expected cloned logger to preserve level")
	}
}
