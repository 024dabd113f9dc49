package cron

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestShellQuoteEscapesSingleQuotes(t *testing.T) {
	require.Equal(t, `'it'\''s a test'`, ShellQuote("it's a test"))
}

func TestMinuteCronExprWholeMinutes(t *testing.T) {
	expr, err := minuteCronExpr(10 * time.Minute)
	require.NoError(t, err)
	require.Equal(t, "*/10 * * * *", expr)
}

func TestMinuteCronExprRejectsSubMinute(t *testing.T) {
	_, err := minuteCronExpr(90 * time.Second)
	require.Error(t, err)
}

func TestMinuteCronExprRejectsOverAnHour(t *testing.T) {
	_, err := minuteCronExpr(90 * time.Minute)
	require.Error(t, err)
}

func TestCronLineContainsMarkerAndEscapedURL(t *testing.T) {
	m := NewManager("http://127.0.0.1:8089")
	line := m.cronLine("*/5 * * * *", "daily-digest")
	require.Contains(t, line, managedMarker)
	require.Contains(t, line, "/internal/timer/daily-digest")
}
