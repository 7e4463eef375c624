package twplog

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSeverityString(t *testing.T) {
	tests := []struct {
		severity Severity
		want     string
	}{
		{SeverityDebug, "DEBUG"},
		{SeverityInfo, "INFO"},
		{SeverityWarning, "WARNING"},
		{SeverityError, "ERROR"},
		{Severity(99), "UNKNOWN"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.severity.String())
	}
}

func TestStdLoggerRespectsMinLevel(t *testing.T) {
	var stdout, stderr bytes.Buffer
	l := NewStdLoggerWithWriter(&stdout, &stderr, SeverityWarning)

	l.Debug("should not appear")
	l.Info("should not appear either")
	assert.Empty(t, stdout.String())

	l.Warning("warn message")
	assert.Contains(t, stdout.String(), "warn message")

	stderr.Reset()
	l.Error(errors.New("boom"))
	assert.Contains(t, stderr.String(), "boom")
}

func TestNoOpLoggerDiscardsEverything(t *testing.T) {
	l := NewNoOpLogger()
	// None of these should panic; there is nothing to assert on output.
	l.Debug("x")
	l.Info("x")
	l.Warning("x")
	l.Error(errors.New("x"))
	l.Log(SeverityError, "x")
	l.Logf(SeverityError, "%s", "x")
}

func TestCharmLoggerWritesToSink(t *testing.T) {
	var buf bytes.Buffer
	l := NewCharmLogger(&buf, SeverityInfo)

	l.Info("hello from the pipeline")
	assert.Contains(t, buf.String(), "hello from the pipeline")

	buf.Reset()
	l.Debug("hidden by min level")
	assert.Empty(t, buf.String())
}
