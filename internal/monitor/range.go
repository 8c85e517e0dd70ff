package monitor

import "math"

// Hook is invoked synchronously from Refresh. Spike hooks receive the
// tick-over-tick volume increase, threshold hooks the amount by which the
// volume exceeds the threshold.
type Hook func(r *Range, amount float64)

// RangeOption configures a Range at creation.
type RangeOption func(r *Range)

// WithName labels a range for consumers.
func WithName(name string) RangeOption {
	return func(r *Range) {
		r.name = name
	}
}

// WithSpikeHook registers a hook fired on every tick the range is spiking.
func WithSpikeHook(h Hook) RangeOption {
	return func(r *Range) {
		if h != nil {
			r.onSpike = append(r.onSpike, h)
		}
	}
}

// WithThresholdHook registers a hook fired on every tick the range is over its threshold.
func WithThresholdHook(h Hook) RangeOption {
	return func(r *Range) {
		if h != nil {
			r.onThreshold = append(r.onThreshold, h)
		}
	}
}

// WithCrossingHook registers a hook fired only on the tick the range goes
// over its threshold.
func WithCrossingHook(h Hook) RangeOption {
	return func(r *Range) {
		if h != nil {
			r.onCrossing = append(r.onCrossing, h)
		}
	}
}

// Range is a monitored frequency interval. Its derived state (volume and
// flags) is written only by the owning Monitor's Refresh.
type Range struct {
	name           string
	start          float64
	end            float64
	threshold      float64
	spikeTolerance float64
	volScale       float64

	volume        float64
	delta         float64
	spiking       bool
	overThreshold bool
	crossed       bool
	lo, hi        int

	onSpike     []Hook
	onThreshold []Hook
	onCrossing  []Hook
}

func (r *Range) Name() string            { return r.name }
func (r *Range) Start() float64          { return r.start }
func (r *Range) End() float64            { return r.end }
func (r *Range) Threshold() float64      { return r.threshold }
func (r *Range) SpikeTolerance() float64 { return r.spikeTolerance }
func (r *Range) VolScale() float64       { return r.volScale }

// Volume returns the scaled average computed by the last Refresh.
func (r *Range) Volume() float64 { return r.volume }

// Delta returns the volume change between the last two ticks.
func (r *Range) Delta() float64 { return r.delta }

func (r *Range) IsSpiking() bool       { return r.spiking }
func (r *Range) IsOverThreshold() bool { return r.overThreshold }

// Crossed reports whether the last Refresh took the range over its threshold
// from at or below it. The first Refresh counts as a crossing when over.
func (r *Range) Crossed() bool { return r.crossed }

// Bins returns the inclusive spectrum index range used by the last Refresh.
func (r *Range) Bins() (lo, hi int) { return r.lo, r.hi }

// SetThreshold changes the over-threshold level; it takes effect on the next Refresh.
func (r *Range) SetThreshold(v float64) { r.threshold = v }

// SetSpikeTolerance changes the spike tolerance; it takes effect on the next Refresh.
func (r *Range) SetSpikeTolerance(v float64) { r.spikeTolerance = v }

// update recomputes volume and flags from one snapshot. The caller has
// already validated the range against nyquist.
func (r *Range) update(spectrum []uint8, nyquist float64) {
	n := len(spectrum)
	r.lo = IndexFor(r.start, n, nyquist)
	r.hi = IndexFor(r.end, n, nyquist)

	next := Aggregate(spectrum, r.lo, r.hi, r.volScale)
	r.delta = next - r.volume
	r.spiking = r.delta > r.spikeTolerance
	over := next > r.threshold
	r.crossed = over && !r.overThreshold
	r.overThreshold = over
	r.volume = next
}

func (r *Range) fire(spike, threshold, crossing []Hook) {
	if r.spiking {
		for _, h := range spike {
			h(r, r.delta)
		}
		for _, h := range r.onSpike {
			h(r, r.delta)
		}
	}
	if r.overThreshold {
		over := r.volume - r.threshold
		for _, h := range threshold {
			h(r, over)
		}
		for _, h := range r.onThreshold {
			h(r, over)
		}
		if r.crossed {
			for _, h := range crossing {
				h(r, over)
			}
			for _, h := range r.onCrossing {
				h(r, over)
			}
		}
	}
}

// IndexFor maps a frequency to a bin of an n-bin snapshot spanning 0..nyquist.
// Rounding is half away from zero, so 0 maps to 0 and nyquist to n-1.
func IndexFor(freq float64, n int, nyquist float64) int {
	if n < 1 || nyquist <= 0 {
		return 0
	}
	return int(math.Round(freq / nyquist * float64(n-1)))
}

// Aggregate sums spectrum[lo..hi] inclusive, divides by the span hi-lo and
// applies volScale. A single-bin span yields that bin's value.
func Aggregate(spectrum []uint8, lo, hi int, volScale float64) float64 {
	var sum float64
	for _, v := range spectrum[lo : hi+1] {
		sum += float64(v)
	}
	if hi == lo {
		return sum * volScale
	}
	return sum / float64(hi-lo) * volScale
}
