package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/olivier-w/bandmon/internal/analyser"
	"github.com/olivier-w/bandmon/internal/config"
	"github.com/olivier-w/bandmon/internal/monitor"
	"github.com/olivier-w/bandmon/internal/player"
	"github.com/olivier-w/bandmon/internal/util"
)

// headlessRun decodes files without an audio device and logs monitor events.
type headlessRun struct {
	cfg    *config.Config
	logger *slog.Logger
	paced  bool // sleep one tick between refreshes, as if playing
}

// rangeStats is what the summary reports for one range.
type rangeStats struct {
	name      string
	start     float64
	end       float64
	spikes    int
	ticksOver int
	peak      float64
}

func (h *headlessRun) run(ctx context.Context, paths []string) error {
	for _, path := range paths {
		if _, err := h.analyse(ctx, path); err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return fmt.Errorf("%s: %w", path, err)
		}
	}
	return nil
}

// analyse runs one file to the end and returns per-range statistics, global first.
func (h *headlessRun) analyse(ctx context.Context, path string) ([]*rangeStats, error) {
	logger := h.logger.With(slog.String("file", path))
	tick := h.cfg.Tick.Duration()

	tap := analyser.NewTap(analyser.DefaultTapSize)
	stream, err := player.OpenStream(path, tap)
	if err != nil {
		return nil, err
	}
	defer stream.Close()

	an, err := analyser.New(tap, h.cfg.AnalyserOptions()...)
	if err != nil {
		return nil, err
	}
	mon, err := config.NewMonitor(h.cfg, an, an.FrequencyBinCount(), logger)
	if err != nil {
		return nil, err
	}

	stats := make(map[*monitor.Range]*rangeStats)
	ordered := make([]*rangeStats, 0, len(mon.Ranges())+1)
	for _, r := range append([]*monitor.Range{mon.Global()}, mon.Ranges()...) {
		s := &rangeStats{name: r.Name(), start: r.Start(), end: r.End()}
		stats[r] = s
		ordered = append(ordered, s)
	}

	mon.OnSpike(func(r *monitor.Range, delta float64) {
		stats[r].spikes++
		logger.Info("spike",
			slog.String("range", r.Name()),
			slog.String("at", util.FormatDuration(stream.Position())),
			slog.Float64("volume", r.Volume()),
			slog.Float64("delta", delta),
		)
	})
	mon.OnThreshold(func(r *monitor.Range, _ float64) {
		stats[r].ticksOver++
	})
	mon.OnCrossing(func(r *monitor.Range, overage float64) {
		logger.Info("threshold",
			slog.String("range", r.Name()),
			slog.String("at", util.FormatDuration(stream.Position())),
			slog.Float64("volume", r.Volume()),
			slog.Float64("overage", overage),
		)
	})

	logger.Info("analysing",
		slog.Int("sampleRate", stream.SampleRate()),
		slog.Int("channels", stream.Channels()),
		slog.String("duration", util.FormatDuration(stream.Duration())),
		slog.Int("fftSize", an.FFTSize()),
		slog.Int("ranges", len(mon.Ranges())),
	)

	var ticker *time.Ticker
	if h.paced {
		ticker = time.NewTicker(tick)
		defer ticker.Stop()
	}

	for {
		if ticker != nil {
			select {
			case <-ctx.Done():
				return ordered, ctx.Err()
			case <-ticker.C:
			}
		} else if err := ctx.Err(); err != nil {
			return ordered, err
		}

		n, pumpErr := stream.Pump(tick)
		if pumpErr != nil && pumpErr != io.EOF {
			return ordered, pumpErr
		}

		if n > 0 {
			switch err := mon.Refresh(); {
			case err == nil:
				for r, s := range stats {
					s.peak = max(s.peak, r.Volume())
				}
			case errors.Is(err, monitor.ErrSourceNotReady):
				logger.Debug("waiting for a full frame", slog.Int("buffered", tap.Buffered()))
			default:
				return ordered, err
			}
		}

		if pumpErr == io.EOF {
			break
		}
	}

	for _, s := range ordered {
		logger.Info("summary",
			slog.String("range", s.name),
			slog.String("band", util.FormatBand(s.start, s.end)),
			slog.Int("spikes", s.spikes),
			slog.Int("ticksOver", s.ticksOver),
			slog.Float64("peak", s.peak),
		)
	}
	return ordered, nil
}
