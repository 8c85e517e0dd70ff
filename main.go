package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/olivier-w/bandmon/internal/analyser"
	"github.com/olivier-w/bandmon/internal/config"
	"github.com/olivier-w/bandmon/internal/media"
	"github.com/olivier-w/bandmon/internal/player"
	"github.com/olivier-w/bandmon/internal/ui"
)

func main() {
	var (
		configPath string
		headless   bool
		logPath    string
		level      string
	)
	flag.StringVar(&configPath, "c", "", "Path to the configuration file")
	flag.BoolVar(&headless, "headless", false, "Analyse without audio output and log events")
	flag.StringVar(&logPath, "log", "", "Write logs to this file (interactive mode discards logs without it)")
	flag.StringVar(&level, "level", "", "Log level, overrides the configuration [debug, info, warn, error]")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if level != "" {
		cfg.LogLevel = level
	}

	logger, closeLog, err := newLogger(cfg.LogLevel, logPath, headless)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer closeLog()

	paths, skipped, err := media.Expand(flag.Args())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if skipped > 0 {
		logger.Warn("skipped playlist entries", slog.Int("count", skipped))
	}

	if headless {
		if len(paths) == 0 {
			fmt.Fprintln(os.Stderr, "Error: -headless needs at least one file")
			os.Exit(1)
		}

		ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer cancel()

		h := &headlessRun{cfg: cfg, logger: logger, paced: true}
		if err := h.run(ctx, paths); err != nil {
			logger.Error(err.Error())

			cancel()
			os.Exit(1)
		}
		return
	}

	var path string
	switch {
	case len(paths) == 0:
		path, err = browse()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		if path == "" {
			return
		}
	default:
		if len(paths) > 1 {
			logger.Warn("interactive mode plays the first file only", slog.Int("files", len(paths)))
		}
		path = paths[0]
	}

	if err := runInteractive(cfg, path, logger); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// newLogger builds the process logger. Interactive mode owns the terminal,
// so it logs to a file or nowhere.
func newLogger(level, logPath string, headless bool) (*slog.Logger, func(), error) {
	lvl, err := config.ParseLevel(level)
	if err != nil {
		return nil, nil, err
	}
	var logLevel slog.LevelVar
	logLevel.Set(lvl)

	var w io.Writer = io.Discard
	closeLog := func() {}
	switch {
	case logPath != "":
		f, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("opening log file: %w", err)
		}
		w = f
		closeLog = func() { f.Close() }
	case headless:
		w = os.Stderr
	}

	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: &logLevel})), closeLog, nil
}

func browse() (string, error) {
	browser := ui.NewBrowser(".")
	if err := browser.Error(); err != nil {
		return "", err
	}
	final, err := tea.NewProgram(browser, tea.WithAltScreen()).Run()
	if err != nil {
		return "", err
	}
	bm, ok := final.(ui.BrowserModel)
	if !ok {
		return "", fmt.Errorf("unexpected model type from browser")
	}
	result := bm.Result()
	if result.Cancelled {
		return "", nil
	}
	return result.Path, nil
}

func runInteractive(cfg *config.Config, path string, logger *slog.Logger) error {
	tap := analyser.NewTap(analyser.DefaultTapSize)

	p, err := player.New(path, tap)
	if err != nil {
		return fmt.Errorf("creating player: %w", err)
	}
	defer p.Close()

	an, err := analyser.New(tap, cfg.AnalyserOptions()...)
	if err != nil {
		return err
	}
	mon, err := config.NewMonitor(cfg, an, an.FrequencyBinCount(), logger)
	if err != nil {
		return err
	}

	logger.Info("monitoring",
		slog.String("path", path),
		slog.Int("sampleRate", p.SampleRate()),
		slog.Int("channels", p.Channels()),
		slog.Int("fftSize", an.FFTSize()),
		slog.Int("ranges", len(mon.Ranges())),
	)

	model := ui.New(p, mon, player.ReadMetadata(path), cfg.Tick.Duration(), logger)
	if _, err := tea.NewProgram(model, tea.WithAltScreen()).Run(); err != nil {
		return err
	}
	return nil
}
