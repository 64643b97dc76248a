// Package main is the entry point for the presage live-preview
// editor.
package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea/v2"
	prom "github.com/prometheus/client_golang/prometheus"

	"github.com/billie-coop/presage/internal/blockcache"
	"github.com/billie-coop/presage/internal/config"
	"github.com/billie-coop/presage/internal/debounce"
	"github.com/billie-coop/presage/internal/events"
	"github.com/billie-coop/presage/internal/pool"
	"github.com/billie-coop/presage/internal/predict"
	"github.com/billie-coop/presage/internal/preview"
	"github.com/billie-coop/presage/internal/renderer"
	"github.com/billie-coop/presage/internal/sysmon"
	"github.com/billie-coop/presage/internal/tui"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	workingDir, err := os.Getwd()
	if err != nil {
		return err
	}

	cfgManager := config.NewManager(workingDir)
	if err := cfgManager.Load(); err != nil {
		return err
	}
	cfg := cfgManager.Get()

	logger := newLogger(workingDir, cfg.Debug)

	markdown, err := renderer.NewMarkdown(cfg.Theme, cfg.WordWrap)
	if err != nil {
		return err
	}

	poolOpts := []pool.Option{
		pool.WithWorkers(cfg.Workers),
		pool.WithLogger(logger),
	}
	if cfg.Debug {
		if exporter, err := pool.NewMetricsExporter("presage", prom.DefaultRegisterer); err == nil {
			poolOpts = append(poolOpts, pool.WithObserver(exporter))
		}
	}
	taskPool := pool.New(poolOpts...)

	monitor := sysmon.New(sysmon.WithLogger(logger))
	debouncer := debounce.NewController(cfg.Debounce(), monitor)

	cache := blockcache.NewCache(cfg.CacheCapacity)
	incremental := blockcache.NewRenderer(markdown.Render, cache, cfg.IncrementalThreshold)

	predictor := predict.New()
	predictor.Enable(cfg.PredictionEnabled)

	broker := events.NewBroker()

	coordinator := preview.New(preview.Options{
		Pool:            taskPool,
		Debouncer:       debouncer,
		Renderer:        incremental,
		Predictor:       predictor,
		Broker:          broker,
		Logger:          logger,
		PrerenderBudget: cfg.PrerenderBudget,
	})
	defer coordinator.Close(5 * time.Second)

	eventCh := broker.Subscribe(
		events.RenderStartedEvent,
		events.RenderCompleteEvent,
		events.RenderErrorEvent,
		events.TaskCanceledEvent,
	)

	editor := tui.New(coordinator, markdown, eventCh)
	p := tea.NewProgram(editor, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return err
	}
	return nil
}

// newLogger writes to .presage/debug.log when debug is on; the TUI
// owns the terminal, so nothing may log to stdout.
func newLogger(workingDir string, debug bool) *slog.Logger {
	if !debug {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	f, err := os.OpenFile(workingDir+"/.presage/debug.log", os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return slog.New(slog.NewTextHandler(f, &slog.HandlerOptions{Level: slog.LevelDebug}))
}
