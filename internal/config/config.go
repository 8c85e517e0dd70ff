package config

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/olivier-w/bandmon/internal/analyser"
	"github.com/olivier-w/bandmon/internal/monitor"
)

const DefaultTick = 50 * time.Millisecond

var ErrInvalidConfig = errors.New("invalid config")

type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	duration, err := time.ParseDuration(value.Value)
	if err != nil {
		return fmt.Errorf("config.Duration: failed to parse: %s", err)
	}

	*d = Duration(duration)
	return nil
}

func (d Duration) Duration() time.Duration { return time.Duration(d) }

// Config is the full application configuration
type Config struct {
	LogLevel   string            `yaml:"logLevel"`
	Tick       Duration          `yaml:"tick"`
	Analyser   AnalyserConfig    `yaml:"analyser"`
	Monitor    MonitorConfig     `yaml:"monitor"`
	Ranges     []RangeConfig     `yaml:"ranges"`
	Partitions []PartitionConfig `yaml:"partitions"`
}

// AnalyserConfig mirrors the AnalyserNode parameters
type AnalyserConfig struct {
	FFTSize     int     `yaml:"fftSize"`
	Smoothing   float64 `yaml:"smoothing"`
	MinDecibels float64 `yaml:"minDecibels"`
	MaxDecibels float64 `yaml:"maxDecibels"`
}

// MonitorConfig describes the global range. End 0 means the nyquist frequency.
type MonitorConfig struct {
	Start          float64 `yaml:"start"`
	End            float64 `yaml:"end"`
	Threshold      float64 `yaml:"threshold"`
	SpikeTolerance float64 `yaml:"spikeTolerance"`
	VolScale       float64 `yaml:"volScale"`
}

// RangeConfig is a single named band. Unset fields inherit the monitor's.
type RangeConfig struct {
	Name           string   `yaml:"name"`
	Start          float64  `yaml:"start"`
	End            float64  `yaml:"end"`
	Threshold      *float64 `yaml:"threshold"`
	SpikeTolerance *float64 `yaml:"spikeTolerance"`
	VolScale       *float64 `yaml:"volScale"`
}

// PartitionConfig splits start..end into count equal bands.
type PartitionConfig struct {
	Prefix   string  `yaml:"prefix"`
	Start    float64 `yaml:"start"`
	End      float64 `yaml:"end"`
	Count    int     `yaml:"count"`
	VolStart float64 `yaml:"volStart"`
	VolEnd   float64 `yaml:"volEnd"`
	Bleed    float64 `yaml:"bleed"`
}

func Default() *Config {
	return &Config{
		LogLevel: "info",
		Tick:     Duration(DefaultTick),
		Analyser: AnalyserConfig{
			FFTSize:     analyser.DefaultFFTSize,
			Smoothing:   analyser.DefaultSmoothing,
			MinDecibels: analyser.DefaultMinDecibels,
			MaxDecibels: analyser.DefaultMaxDecibels,
		},
		Monitor: MonitorConfig{
			Threshold:      monitor.DefaultThreshold,
			SpikeTolerance: monitor.DefaultSpikeTolerance,
			VolScale:       monitor.DefaultVolScale,
		},
	}
}

// Load reads a YAML file on top of the defaults. An empty path returns the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks everything that does not depend on the sample rate.
func (c *Config) Validate() error {
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}
	if c.Tick <= 0 {
		return fmt.Errorf("%w: tick must be positive, got %s", ErrInvalidConfig, time.Duration(c.Tick))
	}
	if err := checkBand("monitor", c.Monitor.Start, c.Monitor.End, true); err != nil {
		return err
	}
	for i, r := range c.Ranges {
		if err := checkBand(fmt.Sprintf("ranges[%d]", i), r.Start, r.End, false); err != nil {
			return err
		}
	}
	for i, p := range c.Partitions {
		if p.Count < 1 {
			return fmt.Errorf("%w: partitions[%d]: count must be at least 1, got %d", ErrInvalidConfig, i, p.Count)
		}
		if err := checkBand(fmt.Sprintf("partitions[%d]", i), p.Start, p.End, false); err != nil {
			return err
		}
		if p.Bleed < 0 || math.IsNaN(p.Bleed) {
			return fmt.Errorf("%w: partitions[%d]: bleed must not be negative", ErrInvalidConfig, i)
		}
	}
	return nil
}

func checkBand(where string, start, end float64, openEnd bool) error {
	if math.IsNaN(start) || math.IsNaN(end) || start < 0 {
		return fmt.Errorf("%w: %s: invalid band %g..%g", ErrInvalidConfig, where, start, end)
	}
	if openEnd && end == 0 {
		return nil
	}
	if end < start {
		return fmt.Errorf("%w: %s: end %g is below start %g", ErrInvalidConfig, where, end, start)
	}
	return nil
}

// ParseLevel maps a config log level to a slog level.
func ParseLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, fmt.Errorf("%w: unknown log level %q", ErrInvalidConfig, level)
}

// AnalyserOptions converts the analyser section into constructor options.
func (c *Config) AnalyserOptions() []analyser.Option {
	return []analyser.Option{
		analyser.WithFFTSize(c.Analyser.FFTSize),
		analyser.WithSmoothing(c.Analyser.Smoothing),
		analyser.WithDecibels(c.Analyser.MinDecibels, c.Analyser.MaxDecibels),
	}
}

// NewMonitor builds a Monitor over src with the configured ranges, ranges
// first and partitions after, in file order. The source must already know its
// sample rate.
func NewMonitor(cfg *Config, src monitor.Source, bins int, logger *slog.Logger) (*monitor.Monitor, error) {
	if src == nil {
		return nil, monitor.ErrUnsupportedEnvironment
	}

	end := cfg.Monitor.End
	if end == 0 {
		rate := src.SampleRate()
		if rate <= 0 {
			return nil, monitor.ErrSourceNotReady
		}
		end = rate / 2
	}

	m, err := monitor.New(src, cfg.Monitor.Start, end, bins,
		monitor.WithThreshold(cfg.Monitor.Threshold),
		monitor.WithSpikeTolerance(cfg.Monitor.SpikeTolerance),
		monitor.WithVolScale(cfg.Monitor.VolScale),
		monitor.WithLogger(logger),
	)
	if err != nil {
		return nil, err
	}

	for _, r := range cfg.Ranges {
		threshold := valueOr(r.Threshold, cfg.Monitor.Threshold)
		tolerance := valueOr(r.SpikeTolerance, cfg.Monitor.SpikeTolerance)
		volScale := valueOr(r.VolScale, monitor.DefaultVolScale)
		var opts []monitor.RangeOption
		if r.Name != "" {
			opts = append(opts, monitor.WithName(r.Name))
		}
		if _, err := m.CreateRange(r.Start, r.End, threshold, tolerance, volScale, opts...); err != nil {
			return nil, fmt.Errorf("range %q: %w", r.Name, err)
		}
	}

	for i, p := range cfg.Partitions {
		prefix := p.Prefix
		if prefix == "" {
			prefix = monitor.DefaultNamePrefix
		}
		m.SetNamePrefix(prefix)
		if _, err := m.CreateRanges(p.Start, p.End, p.Count, p.VolStart, p.VolEnd, p.Bleed); err != nil {
			return nil, fmt.Errorf("partitions[%d]: %w", i, err)
		}
	}

	return m, nil
}

func valueOr(v *float64, fallback float64) float64 {
	if v == nil {
		return fallback
	}
	return *v
}
