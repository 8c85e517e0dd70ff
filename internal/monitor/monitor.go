package monitor

import (
	"fmt"
	"io"
	"log/slog"
	"math"
	"strconv"
)

const (
	DefaultThreshold      = 127
	DefaultSpikeTolerance = 30
	DefaultVolScale       = 1
	DefaultNamePrefix     = "band "

	globalName = "global"
)

// Source is the external spectrum provider read once per Refresh.
type Source interface {
	// SampleRate returns the current sample rate in Hz, or <= 0 when unknown.
	SampleRate() float64
	// ByteFrequencyData copies the latest magnitude spectrum into dst and
	// returns the number of bins written.
	ByteFrequencyData(dst []uint8) int
}

// WaveformSource is implemented by sources that also expose time-domain data.
type WaveformSource interface {
	ByteTimeDomainData(dst []uint8) int
}

// Option configures a Monitor.
type Option func(m *Monitor)

// WithThreshold sets the global threshold, also used by CreateRanges.
func WithThreshold(v float64) Option {
	return func(m *Monitor) {
		m.global.threshold = v
	}
}

// WithSpikeTolerance sets the global spike tolerance, also used by CreateRanges.
func WithSpikeTolerance(v float64) Option {
	return func(m *Monitor) {
		m.global.spikeTolerance = v
	}
}

// WithVolScale sets the volume scale of the global range.
func WithVolScale(v float64) Option {
	return func(m *Monitor) {
		m.global.volScale = v
	}
}

// WithNamePrefix sets the prefix CreateRanges uses to name partitions.
func WithNamePrefix(prefix string) Option {
	return func(m *Monitor) {
		m.namePrefix = prefix
	}
}

// SetNamePrefix changes the prefix used by later CreateRanges calls.
func (m *Monitor) SetNamePrefix(prefix string) { m.namePrefix = prefix }

// WithLogger sets the logger for the monitor
func WithLogger(logger *slog.Logger) Option {
	return func(m *Monitor) {
		if logger == nil {
			return
		}
		m.logger = logger.With(slog.String("component", "monitor"))
	}
}

// Monitor owns a global range and an append-only list of sub-ranges, and
// recomputes all of them from one spectrum snapshot per Refresh.
//
// A Monitor is not safe for concurrent use; callers serialise Refresh and
// range creation.
type Monitor struct {
	src    Source
	global Range
	ranges []*Range

	spectrum []uint8
	scratch  []uint8
	waveform []uint8

	sampleRate float64
	ticks      uint64
	namePrefix string

	onSpike     []Hook
	onThreshold []Hook
	onCrossing  []Hook

	logger *slog.Logger
}

// New creates a Monitor over src for the global range start..end, reading
// snapshots of bins values. The range is checked against nyquist on every Refresh.
func New(src Source, start, end float64, bins int, options ...Option) (*Monitor, error) {
	if bins < 2 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidBinCount, bins)
	}
	if math.IsNaN(start) || math.IsNaN(end) || start < 0 || end < start {
		return nil, &InvalidRangeError{Start: start, End: end}
	}

	m := &Monitor{
		src: src,
		global: Range{
			name:           globalName,
			start:          start,
			end:            end,
			threshold:      DefaultThreshold,
			spikeTolerance: DefaultSpikeTolerance,
			volScale:       DefaultVolScale,
		},
		spectrum:   make([]uint8, bins),
		scratch:    make([]uint8, bins),
		namePrefix: DefaultNamePrefix,
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	for _, option := range options {
		option(m)
	}

	return m, nil
}

// OnSpike registers a hook fired for every range, global included, on each
// tick it is spiking.
func (m *Monitor) OnSpike(h Hook) {
	if h != nil {
		m.onSpike = append(m.onSpike, h)
	}
}

// OnThreshold registers a hook fired for every range, global included, on
// each tick it is over its threshold.
func (m *Monitor) OnThreshold(h Hook) {
	if h != nil {
		m.onThreshold = append(m.onThreshold, h)
	}
}

// OnCrossing registers a hook fired for every range, global included, only on
// the tick it goes over its threshold after being at or below it.
func (m *Monitor) OnCrossing(h Hook) {
	if h != nil {
		m.onCrossing = append(m.onCrossing, h)
	}
}

// nyquist reads the current sample rate from the source.
func (m *Monitor) nyquist() (float64, error) {
	if m.src == nil {
		return 0, ErrUnsupportedEnvironment
	}
	rate := m.src.SampleRate()
	if math.IsNaN(rate) || rate <= 0 {
		return 0, ErrSourceNotReady
	}
	return rate / 2, nil
}

// CreateRange validates start..end against the current nyquist and appends
// a new range. Nothing is appended on error.
func (m *Monitor) CreateRange(start, end, threshold, spikeTolerance, volScale float64, options ...RangeOption) (*Range, error) {
	nyquist, err := m.nyquist()
	if err != nil {
		return nil, err
	}
	if err := checkRange(start, end, nyquist); err != nil {
		return nil, err
	}

	r := m.newRange(start, end, threshold, spikeTolerance, volScale, options...)
	m.ranges = append(m.ranges, r)
	m.logger.Debug("range created",
		slog.String("range", r.name),
		slog.Float64("start", start),
		slog.Float64("end", end),
	)
	return r, nil
}

func (m *Monitor) newRange(start, end, threshold, spikeTolerance, volScale float64, options ...RangeOption) *Range {
	r := &Range{
		name:           "range " + strconv.Itoa(len(m.ranges)+1),
		start:          start,
		end:            end,
		threshold:      threshold,
		spikeTolerance: spikeTolerance,
		volScale:       volScale,
	}
	for _, option := range options {
		option(r)
	}
	return r
}

// CreateRanges partitions start..end into count equal ranges, each widened on
// both sides by bleed partition widths, with volume scales interpolated from
// volStart towards volEnd. Bled boundaries are not clamped: if any partition
// falls outside 0..nyquist nothing is appended and the first offending
// partition is reported.
func (m *Monitor) CreateRanges(start, end float64, count int, volStart, volEnd, bleed float64) ([]*Range, error) {
	if count < 1 {
		return nil, fmt.Errorf("partition count must be positive: %d", count)
	}
	nyquist, err := m.nyquist()
	if err != nil {
		return nil, err
	}

	spread := bleed * (end - start) / float64(count)
	edge := func(i int) float64 {
		if i == count {
			return end
		}
		return start + (end-start)*float64(i)/float64(count)
	}

	type bounds struct{ start, end float64 }
	parts := make([]bounds, count)
	for i := range count {
		b := bounds{
			start: edge(i) - spread,
			end:   edge(i+1) + spread,
		}
		if err := checkRange(b.start, b.end, nyquist); err != nil {
			return nil, fmt.Errorf("partition %d of %d: %w", i+1, count, err)
		}
		parts[i] = b
	}

	created := make([]*Range, count)
	for i, b := range parts {
		scale := volStart + (volEnd-volStart)*float64(i)/float64(count)
		created[i] = m.newRange(b.start, b.end, m.global.threshold, m.global.spikeTolerance, scale,
			WithName(m.namePrefix+strconv.Itoa(i+1)))
	}
	m.ranges = append(m.ranges, created...)

	m.logger.Debug("ranges created",
		slog.Int("count", count),
		slog.Float64("start", start),
		slog.Float64("end", end),
		slog.Float64("bleed", bleed),
	)
	return created, nil
}

// Refresh reads one snapshot from the source and recomputes the global range
// and every sub-range from it, in creation order. On error no state changes.
// Hooks run after every range has been updated.
func (m *Monitor) Refresh() error {
	nyquist, err := m.nyquist()
	if err != nil {
		return err
	}

	if err := checkRange(m.global.start, m.global.end, nyquist); err != nil {
		return err
	}
	for _, r := range m.ranges {
		if err := checkRange(r.start, r.end, nyquist); err != nil {
			return fmt.Errorf("range %q: %w", r.name, err)
		}
	}

	if n := m.src.ByteFrequencyData(m.scratch); n < len(m.scratch) {
		return fmt.Errorf("%w: %d of %d bins", ErrSourceNotReady, n, len(m.scratch))
	}
	m.spectrum, m.scratch = m.scratch, m.spectrum

	if ws, ok := m.src.(WaveformSource); ok {
		if m.waveform == nil {
			m.waveform = make([]uint8, 2*len(m.spectrum))
		}
		ws.ByteTimeDomainData(m.waveform)
	}

	if rate := 2 * nyquist; rate != m.sampleRate {
		if m.sampleRate != 0 {
			m.logger.Info("sample rate changed",
				slog.Float64("from", m.sampleRate),
				slog.Float64("to", rate),
			)
		}
		m.sampleRate = rate
	}

	m.global.update(m.spectrum, nyquist)
	for _, r := range m.ranges {
		r.update(m.spectrum, nyquist)
	}
	m.ticks++

	m.global.fire(m.onSpike, m.onThreshold, m.onCrossing)
	for _, r := range m.ranges {
		r.fire(m.onSpike, m.onThreshold, m.onCrossing)
	}

	return nil
}

// Global returns the monitor's own range.
func (m *Monitor) Global() *Range { return &m.global }

// Ranges returns the sub-ranges in creation order.
func (m *Monitor) Ranges() []*Range {
	out := make([]*Range, len(m.ranges))
	copy(out, m.ranges)
	return out
}

func (m *Monitor) Volume() float64         { return m.global.volume }
func (m *Monitor) IsSpiking() bool         { return m.global.spiking }
func (m *Monitor) IsOverThreshold() bool   { return m.global.overThreshold }
func (m *Monitor) SampleRate() float64     { return m.sampleRate }
func (m *Monitor) Nyquist() float64        { return m.sampleRate / 2 }
func (m *Monitor) Ticks() uint64           { return m.ticks }
func (m *Monitor) Threshold() float64      { return m.global.threshold }
func (m *Monitor) SpikeTolerance() float64 { return m.global.spikeTolerance }

// Spectrum returns the snapshot used by the last Refresh. It is overwritten
// by later calls; copy it to keep it.
func (m *Monitor) Spectrum() []uint8 {
	if m.ticks == 0 {
		return nil
	}
	return m.spectrum
}

// Waveform returns the time-domain data captured with the last snapshot, or
// nil when the source does not provide any. Same lifetime as Spectrum.
func (m *Monitor) Waveform() []uint8 {
	if m.ticks == 0 {
		return nil
	}
	return m.waveform
}
