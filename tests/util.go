package testutil

import (
	"fmt"
	"testing"

	"github.com/pmezard/go-difflib/difflib"

	"github.com/vince-duran/TPLearn-sub006/core"
)

// Logger is a core.Logger that writes to the test log. Fatal fails the test
// instead of exiting the process.
type Logger struct {
	T *testing.T
}

var _ core.Logger = (*Logger)(nil)

func NewLogger(t *testing.T) *Logger { return &Logger{T: t} }

func (l *Logger) Enable(bool) {}

func (l *Logger) log(level, msg string, args []interface{}) {
	l.T.Helper()
	l.T.Logf("%s: %s", level, msg)
	for _, arg := range args {
		l.T.Logf("%s: %+v", level, arg)
	}
}

func (l *Logger) Debug(msg string, args ...interface{}) { l.log("DEBUG", msg, args) }
func (l *Logger) Info(msg string, args ...interface{})  { l.log("INFO", msg, args) }
func (l *Logger) Warn(msg string, args ...interface{})  { l.log("WARN", msg, args) }
func (l *Logger) Error(msg string, args ...interface{}) { l.log("ERROR", msg, args) }

func (l *Logger) Fatal(msg string, args ...interface{}) {
	l.T.Helper()
	l.log("FATAL", msg, args)
	l.T.FailNow()
}

// Diff fails the test with a unified diff when got differs from want.
func Diff(t *testing.T, want, got string) {
	t.Helper()
	if want == got {
		return
	}
	diff, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(want),
		B:        difflib.SplitLines(got),
		FromFile: "want",
		ToFile:   "got",
		Context:  2,
	})
	if err != nil {
		t.Fatalf("diffing failed: %v", err)
	}
	t.Errorf("mismatch:\n%s", diff)
}

// AssertError checks that got matches want (by identity or message).
func AssertError(t *testing.T, want, got error) {
	t.Helper()
	if got == nil {
		t.Fatalf("expected error %q, got nil", want)
	}
	if got != want && got.Error() != want.Error() {
		t.Errorf("error = %v, want %v", got, want)
	}
}

// Stringify renders v with %+v for Diff comparisons.
func Stringify(v interface{}) string { return fmt.Sprintf("%+v", v) }
