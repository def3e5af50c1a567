package logger

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedLogger(buf *bytes.Buffer, level Level) *Logger {
	l := New(buf, level, false)
	l.now = func() time.Time { return time.Date(2024, 1, 2, 13, 4, 5, 0, time.UTC) }
	return l
}

func TestLoggerFormat(t *testing.T) {
	var buf bytes.Buffer
	l := fixedLogger(&buf, LevelInfo)

	l.Infof("Compiling %d templates", 3)
	l.Errorf("boom")

	assert.Equal(t, "[13:04:05] [INFO] Compiling 3 templates\n[13:04:05] [ERROR] boom\n", buf.String())
}

func TestLoggerLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := fixedLogger(&buf, LevelWarn)

	l.Debugf("debug")
	l.Infof("info")
	l.Warnf("warn")

	assert.Equal(t, "[13:04:05] [WARN] warn\n", buf.String())
	assert.False(t, l.Enabled(LevelInfo))
	assert.True(t, l.Enabled(LevelError))
}

func TestNilWriterDiscards(t *testing.T) {
	l := Discard()
	require.NotPanics(t, func() { l.Errorf("dropped") })
	assert.False(t, l.Enabled(LevelError))
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		name string
		want Level
	}{
		{"debug", LevelDebug},
		{"TRACE", LevelDebug},
		{" Warn ", LevelWarn},
		{"error", LevelError},
		{"", LevelInfo},
		{"bogus", LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseLevel(tt.name))
		})
	}
}

func TestShouldUseColors(t *testing.T) {
	var buf bytes.Buffer

	t.Setenv("NO_COLOR", "")
	t.Setenv("FORCE_COLOR", "")
	t.Setenv("GITHUB_ACTIONS", "")
	assert.False(t, ShouldUseColors(&buf, false))
	assert.True(t, ShouldUseColors(&buf, true))

	t.Setenv("FORCE_COLOR", "1")
	assert.True(t, ShouldUseColors(&buf, false))

	t.Setenv("NO_COLOR", "1")
	assert.False(t, ShouldUseColors(&buf, false))
}
