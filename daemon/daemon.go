// Package daemon wires together one engine.Flow per configured
// workflow and everything around it: the effect performers, the
// audit trail, the archive, metrics, and (depending on cron mode)
// either an in-process timer or a synced system crontab entry. Apart
// from the one-shot 'remind run' command in cmd/remind, it is the
// only code that drives a Flow's Start/OnEvent loop — everything
// upstream of it is pure.
package daemon

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/remindctl/remind/adapter"
	"github.com/remindctl/remind/archive"
	"github.com/remindctl/remind/config"
	"github.com/remindctl/remind/cron"
	"github.com/remindctl/remind/engine"
	"github.com/remindctl/remind/history"
	"github.com/remindctl/remind/logger"
	"github.com/remindctl/remind/model"
	"github.com/remindctl/remind/recipe"
	"github.com/remindctl/remind/secrets"
	"github.com/remindctl/remind/telemetry"
)

// worker runs one named workflow's Flow to completion of each cycle,
// driving Start/OnEvent until the engine returns Wait or Done.
type worker struct {
	name     string
	path     string
	flow     *engine.Flow
	registry *adapter.Registry
	history  history.Store
	archive  archive.Archive

	mu         sync.Mutex
	cycleID    int64
	cycleStart time.Time
	cycleVars  map[string]string
	timerTag   model.EffId
	cronMode   string
}

// Daemon owns one worker per configured workflow plus the shared
// ambient services they all use.
type Daemon struct {
	cfg      *config.Config
	workers  map[string]*worker
	history  history.Store
	archive  archive.Archive
	cronMgr  *cron.Manager
	imapHost string
}

// New builds a Daemon from daemon config. baseURL is used only in
// system cron mode, to build the callback URL cron entries hit.
func New(ctx context.Context, cfg *config.Config, baseURL, imapHost string) (*Daemon, error) {
	hist, err := history.New(cfg.History)
	if err != nil {
		return nil, fmt.Errorf("failed to open history store: %w", err)
	}
	arch, err := archive.New(cfg.Archive)
	if err != nil {
		return nil, fmt.Errorf("failed to open archive: %w", err)
	}

	provider, err := secrets.New(ctx, cfg.Secrets)
	if err != nil {
		return nil, fmt.Errorf("failed to build secrets provider: %w", err)
	}
	if err := hydrateAllWorkflows(ctx, provider, cfg.Workflows); err != nil {
		return nil, err
	}

	d := &Daemon{
		cfg:      cfg,
		workers:  map[string]*worker{},
		history:  hist,
		archive:  arch,
		imapHost: imapHost,
	}
	if cfg.Cron != nil && cfg.Cron.Mode == "system" {
		d.cronMgr = cron.NewManager(baseURL)
	}

	for _, path := range cfg.Workflows {
		name := workflowName(path)
		registry := d.buildRegistry(path)
		d.workers[name] = &worker{
			name:     name,
			path:     path,
			flow:     engine.New(),
			registry: registry,
			history:  hist,
			archive:  arch,
			cronMode: cronModeOf(cfg),
		}
	}
	return d, nil
}

func cronModeOf(cfg *config.Config) string {
	if cfg.Cron == nil || cfg.Cron.Mode == "" {
		return "timer"
	}
	return cfg.Cron.Mode
}

// hydrateAllWorkflows parses every configured recipe far enough to
// collect the environment variable names it needs, then hydrates all
// of them from the secrets provider in one pass, before any Flow
// starts. A recipe that fails to parse here is skipped silently: the
// Flow itself will surface the same parse error through its own
// LoadConfig -> ConfigLoaded path once it runs.
func hydrateAllWorkflows(ctx context.Context, provider secrets.Provider, paths []string) error {
	seen := map[string]struct{}{}
	var names []string
	for _, path := range paths {
		data, err := os.ReadFile(expandHome(path))
		if err != nil {
			continue
		}
		cfg, err := recipe.Parse(string(data))
		if err != nil {
			continue
		}
		for _, n := range cfg.EnvRequests() {
			if _, ok := seen[n]; !ok {
				seen[n] = struct{}{}
				names = append(names, n)
			}
		}
	}
	return secrets.Hydrate(ctx, provider, names)
}

func expandHome(path string) string {
	if !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~/"))
}

func workflowName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func (d *Daemon) buildRegistry(path string) *adapter.Registry {
	return adapter.NewRegistry(
		adapter.FixedConfigPerformer{Path: expandHome(path)},
		adapter.EnvPerformer{},
		adapter.SheetsPerformer{},
		adapter.EmailPerformer{Host: d.imapHost},
		adapter.NewTelegramPerformer(),
		adapter.TimerPerformer{},
	)
}

// WorkflowNames returns the configured workflow names, in config order.
func (d *Daemon) WorkflowNames() []string {
	names := make([]string, 0, len(d.cfg.Workflows))
	for _, path := range d.cfg.Workflows {
		names = append(names, workflowName(path))
	}
	return names
}

// History exposes the shared audit-trail store, e.g. for httpapi.
func (d *Daemon) History() history.Store { return d.history }

// Run starts every configured workflow and blocks until ctx is
// cancelled. In "system" cron mode it also syncs the crontab once at
// startup and removes the managed entries on shutdown.
func (d *Daemon) Run(ctx context.Context) error {
	if d.cronMgr != nil {
		if err := d.syncCron(); err != nil {
			logger.Warn("failed to sync system crontab: %v", err)
		}
		defer func() {
			if err := d.cronMgr.RemoveAll(); err != nil {
				logger.Warn("failed to remove system crontab entries: %v", err)
			}
		}()
	}

	var wg sync.WaitGroup
	for _, w := range d.workers {
		wg.Add(1)
		go func(w *worker) {
			defer wg.Done()
			w.run(ctx)
		}(w)
	}
	<-ctx.Done()
	wg.Wait()
	return nil
}

func (d *Daemon) syncCron() error {
	var entries []cron.Entry
	for _, path := range d.cfg.Workflows {
		data, err := os.ReadFile(expandHome(path))
		if err != nil {
			continue
		}
		cfg, err := recipe.Parse(string(data))
		if err != nil {
			continue
		}
		entries = append(entries, cron.Entry{Name: workflowName(path), Interval: cfg.RunEvery})
	}
	return d.cronMgr.Sync(entries)
}

// ResumeTimer fires the named workflow's pending timer, as if the
// time.Duration it requested had just elapsed. It is how the
// "system" cron mode's HTTP callback (see package httpapi) resumes a
// waiting Flow; in "timer" cron mode the worker resumes itself when
// adapter.TimerPerformer returns.
func (d *Daemon) ResumeTimer(name string) error {
	w, ok := d.workers[name]
	if !ok {
		return fmt.Errorf("unknown workflow: %s", name)
	}
	w.fireTimer()
	return nil
}

// run drives one workflow's Flow until the process shuts down,
// recording history and archive entries around each cycle and
// re-arming its own timer in "timer" cron mode.
func (w *worker) run(ctx context.Context) {
	cmd := w.flow.Start()
	w.drive(ctx, cmd)
}

func (w *worker) drive(ctx context.Context, cmd model.Command) {
	for {
		switch c := cmd.(type) {
		case model.Do:
			w.beforeEffect(c.Effect)
			if _, ok := c.Effect.(model.StartTimer); ok && w.cronMode == "system" {
				// System cron mode resumes this Flow via an external HTTP
				// callback (see fireTimer), so the worker goroutine parks
				// here instead of blocking on a real-time sleep.
				w.endCycle(nil)
				return
			}
			event, err := w.registry.Perform(ctx, c.Effect)
			if err != nil {
				logger.Error("workflow %s: %v", w.name, err)
				return
			}
			effectType := fmt.Sprintf("%T", c.Effect)
			telemetry.RecordEffect(effectType, nil)
			logger.Effect(w.name, effectType)
			cmd = w.flow.OnEvent(event)
			w.afterEvent()
			if next, ok := cmd.(model.Do); ok {
				if _, ok := next.Effect.(model.StartTimer); ok {
					w.endCycle(nil)
				}
			}
		case model.Wait:
			return
		case model.Done:
			w.endCycle(c.Err)
			return
		default:
			return
		}
	}
}

// beforeEffect records a cycle start the first time a step effect
// (anything past config load / env hydration) is about to run.
func (w *worker) beforeEffect(eff model.Effect) {
	if t, ok := eff.(model.StartTimer); ok {
		w.mu.Lock()
		w.timerTag = t.TagID
		w.mu.Unlock()
		return
	}
	switch eff.(type) {
	case model.LoadConfig, model.ReadEnvVar:
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.cycleID != 0 {
		return
	}
	w.cycleStart = time.Now()
	id, err := w.history.RecordCycleStart(context.Background(), w.name, w.cycleStart)
	if err != nil {
		logger.Warn("workflow %s: failed to record cycle start: %v", w.name, err)
		return
	}
	w.cycleID = id
	logger.CycleStarted(w.name, id)
}

// afterEvent snapshots the run's captured variables after each
// event, since advanceRun clears them the instant a cycle finishes.
func (w *worker) afterEvent() {
	vars := w.flow.Variables()
	if vars == nil {
		return
	}
	w.mu.Lock()
	w.cycleVars = vars
	w.mu.Unlock()
}

// endCycle closes out the in-flight cycle, if any, recording its
// outcome to history and archiving its captured variables.
func (w *worker) endCycle(err error) {
	w.mu.Lock()
	cycleID := w.cycleID
	vars := w.cycleVars
	start := w.cycleStart
	w.cycleID = 0
	w.cycleVars = nil
	w.mu.Unlock()

	if cycleID == 0 {
		return
	}
	telemetry.RecordCycle(w.name, time.Since(start), err)
	logger.CycleEnded(w.name, cycleID, err)
	ctx := context.Background()
	if recErr := w.history.RecordCycleEnd(ctx, cycleID, time.Now(), err, vars); recErr != nil {
		logger.Warn("workflow %s: failed to record cycle end: %v", w.name, recErr)
	}
	if w.archive != nil && err == nil {
		if _, putErr := w.archive.Put(ctx, w.name, cycleID, vars); putErr != nil {
			logger.Warn("workflow %s: failed to archive cycle: %v", w.name, putErr)
		}
	}
}

// fireTimer delivers a TimerFired event tagged for whatever timer
// this worker's Flow is currently waiting on.
func (w *worker) fireTimer() {
	w.mu.Lock()
	tag := w.timerTag
	w.mu.Unlock()
	cmd := w.flow.OnEvent(model.TimerFired{TagID: tag})
	w.drive(context.Background(), cmd)
}
