// Package cron syncs a system crontab so an external `curl` can
// resume a waiting workflow's timer, for daemon deployments that
// prefer not to keep a goroutine blocked on a timer per flow (the
// "timer" cron mode, used by adapter.TimerPerformer, covers that
// case instead).
package cron

import (
	"bufio"
	"bytes"
	"fmt"
	"net/url"
	"os/exec"
	"strings"
	"time"

	cronparser "github.com/robfig/cron/v3"
)

const managedMarker = "# remind managed - do not edit"

// ShellQuote escapes s for safe inclusion in a shell command by
// wrapping it in single quotes and escaping any embedded ones.
func ShellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

// Entry is one workflow's schedule, expressed as the interval its
// recipe's run_every requests.
type Entry struct {
	Name     string
	Interval time.Duration
}

// Manager synchronizes managed crontab lines with the daemon's set
// of configured workflows. Each managed line curls the daemon's
// local resume endpoint for that workflow when it fires.
type Manager struct {
	baseURL string
}

// NewManager builds a Manager that targets the daemon's HTTP API at
// baseURL (e.g. "http://127.0.0.1:8089").
func NewManager(baseURL string) *Manager {
	return &Manager{baseURL: baseURL}
}

// Sync replaces every previously managed crontab line with one per
// entry. System cron only resolves to minute granularity, so an
// interval that isn't a whole number of minutes is rejected rather
// than silently rounded — a workflow asking for "90s" belongs in
// "timer" mode, not "system" mode.
func (m *Manager) Sync(entries []Entry) error {
	var lines []string
	for _, e := range entries {
		expr, err := minuteCronExpr(e.Interval)
		if err != nil {
			return fmt.Errorf("workflow %s: %w", e.Name, err)
		}
		lines = append(lines, m.cronLine(expr, e.Name))
	}
	return m.replaceManagedLines(lines)
}

// RemoveAll strips every managed line from the system crontab,
// leaving anything else the user put there untouched.
func (m *Manager) RemoveAll() error {
	return m.replaceManagedLines(nil)
}

func (m *Manager) cronLine(cronExpr, workflowName string) string {
	url := fmt.Sprintf("%s/internal/timer/%s", m.baseURL, url.PathEscape(workflowName))
	cmd := fmt.Sprintf("curl -sS -X POST %s >/dev/null 2>&1", ShellQuote(url))
	return fmt.Sprintf("%s %s %s", cronExpr, cmd, managedMarker)
}

func (m *Manager) replaceManagedLines(newLines []string) error {
	existing, _ := exec.Command("crontab", "-l").Output()

	var preserved []string
	scanner := bufio.NewScanner(bytes.NewReader(existing))
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.Contains(line, managedMarker) {
			preserved = append(preserved, line)
		}
	}

	all := append(preserved, newLines...)
	cmd := exec.Command("crontab", "-")
	cmd.Stdin = strings.NewReader(strings.Join(all, "\n") + "\n")
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("failed to update crontab: %w", err)
	}
	return nil
}

// minuteCronExpr renders interval as a "*/N * * * *" expression when
// it's a whole number of minutes from 1 to 59, and errors otherwise.
// The result is parsed with robfig/cron's standard parser before
// being returned, so a mistake in the expression built above is
// caught here rather than surfacing as a silently-broken crontab line.
func minuteCronExpr(interval time.Duration) (string, error) {
	minutes := interval / time.Minute
	if minutes < 1 || interval%time.Minute != 0 {
		return "", fmt.Errorf("interval %s is not a whole number of minutes, required for system cron mode", interval)
	}
	if minutes >= 60 {
		return "", fmt.Errorf("interval %s is too long for a minute-granularity system cron entry", interval)
	}
	expr := fmt.Sprintf("*/%d * * * *", minutes)
	if _, err := cronparser.ParseStandard(expr); err != nil {
		return "", fmt.Errorf("generated invalid cron expression %q: %w", expr, err)
	}
	return expr, nil
}
