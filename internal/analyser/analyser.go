package analyser

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
	"github.com/mjibson/go-dsp/window"
)

const (
	MinFFTSize     = 32
	MaxFFTSize     = 32768
	DefaultFFTSize = 2048

	DefaultSmoothing   = 0.8
	DefaultMinDecibels = -100.0
	DefaultMaxDecibels = -30.0
)

var (
	ErrInvalidFFTSize   = errors.New("fft size must be a power of two between 32 and 32768")
	ErrInvalidDecibels  = errors.New("min decibels must be below max decibels")
	ErrInvalidSmoothing = errors.New("smoothing must be within [0, 1]")
)

// Option configures an Analyser.
type Option func(a *Analyser) error

// WithFFTSize sets the frame length; the spectrum has half as many bins.
func WithFFTSize(n int) Option {
	return func(a *Analyser) error {
		if n < MinFFTSize || n > MaxFFTSize || n&(n-1) != 0 {
			return fmt.Errorf("%w: %d", ErrInvalidFFTSize, n)
		}
		a.fftSize = n
		return nil
	}
}

// WithSmoothing sets the time constant blending each spectrum with the previous one.
func WithSmoothing(tc float64) Option {
	return func(a *Analyser) error {
		if math.IsNaN(tc) || tc < 0 || tc > 1 {
			return fmt.Errorf("%w: %g", ErrInvalidSmoothing, tc)
		}
		a.smoothing = tc
		return nil
	}
}

// WithDecibels sets the dB range mapped onto byte values 0..255.
func WithDecibels(minDB, maxDB float64) Option {
	return func(a *Analyser) error {
		if !(minDB < maxDB) {
			return fmt.Errorf("%w: %g >= %g", ErrInvalidDecibels, minDB, maxDB)
		}
		a.minDB = minDB
		a.maxDB = maxDB
		return nil
	}
}

// Analyser turns the most recent PCM in a Tap into byte spectra and
// waveforms. ByteFrequencyData loads a new frame; the next
// ByteTimeDomainData call reuses that frame so both describe the same PCM.
// It is not safe for concurrent use.
type Analyser struct {
	tap       *Tap
	fftSize   int
	smoothing float64
	minDB     float64
	maxDB     float64

	window   []float64
	frame    []float64
	smoothed []float64
	pending  bool // frame loaded by ByteFrequencyData, not yet read as a waveform
}

// New creates an Analyser reading from tap.
func New(tap *Tap, options ...Option) (*Analyser, error) {
	a := &Analyser{
		tap:       tap,
		fftSize:   DefaultFFTSize,
		smoothing: DefaultSmoothing,
		minDB:     DefaultMinDecibels,
		maxDB:     DefaultMaxDecibels,
	}
	for _, option := range options {
		if err := option(a); err != nil {
			return nil, err
		}
	}

	a.window = window.Blackman(a.fftSize)
	a.frame = make([]float64, a.fftSize)
	a.smoothed = make([]float64, a.fftSize/2)
	return a, nil
}

// FFTSize is the number of PCM frames analysed per call.
func (a *Analyser) FFTSize() int { return a.fftSize }

// FrequencyBinCount is the length of a full spectrum.
func (a *Analyser) FrequencyBinCount() int { return a.fftSize / 2 }

// SampleRate returns the tap's sample rate, or 0 before any format is known.
func (a *Analyser) SampleRate() float64 {
	rate, _ := a.tap.Format()
	return float64(rate)
}

// Reset drops the smoothing history.
func (a *Analyser) Reset() {
	clear(a.smoothed)
}

// loadFrame mixes the latest fftSize frames to mono in [-1, 1).
func (a *Analyser) loadFrame() bool {
	_, channels := a.tap.Format()
	if channels < 1 {
		return false
	}
	raw := a.tap.ReadFrames(a.fftSize)
	if len(raw) < a.fftSize*channels*bytesPerSample {
		return false
	}

	scale := 1.0 / (32768.0 * float64(channels))
	for i := range a.fftSize {
		var sum float64
		off := i * channels * bytesPerSample
		for ch := range channels {
			sum += float64(int16(binary.LittleEndian.Uint16(raw[off+ch*bytesPerSample:])))
		}
		a.frame[i] = sum * scale
	}
	return true
}

// ByteFrequencyData writes the smoothed magnitude spectrum of the latest
// frame into dst as bytes and returns the number of bins written. It writes
// nothing until a full frame is buffered.
func (a *Analyser) ByteFrequencyData(dst []uint8) int {
	if !a.loadFrame() {
		return 0
	}
	a.pending = true

	windowed := make([]float64, a.fftSize)
	for i, v := range a.frame {
		windowed[i] = v * a.window[i]
	}
	spectrum := fft.FFTReal(windowed)

	n := min(len(dst), len(a.smoothed))
	norm := 1.0 / float64(a.fftSize)
	span := a.maxDB - a.minDB
	for k := range a.smoothed {
		mag := cmplx.Abs(spectrum[k]) * norm
		s := a.smoothing*a.smoothed[k] + (1-a.smoothing)*mag
		if math.IsNaN(s) || math.IsInf(s, 0) {
			s = 0
		}
		a.smoothed[k] = s
		if k < n {
			dst[k] = toByte(255 / span * (decibels(s) - a.minDB))
		}
	}
	return n
}

// ByteTimeDomainData writes a mono frame into dst, 128 being silence. It
// uses the frame of the preceding ByteFrequencyData call when there is one
// and reads the latest PCM otherwise.
func (a *Analyser) ByteTimeDomainData(dst []uint8) int {
	if a.pending {
		a.pending = false
	} else if !a.loadFrame() {
		return 0
	}
	n := min(len(dst), a.fftSize)
	for i := range n {
		dst[i] = toByte(128 * (1 + a.frame[i]))
	}
	return n
}

func decibels(v float64) float64 {
	if v <= 0 {
		return math.Inf(-1)
	}
	return 20 * math.Log10(v)
}

func toByte(v float64) uint8 {
	switch {
	case math.IsNaN(v), v <= 0:
		return 0
	case v >= 255:
		return 255
	}
	return uint8(v)
}
