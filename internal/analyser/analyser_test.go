package analyser

import (
	"encoding/binary"
	"errors"
	"math"
	"testing"
)

// pcm16 encodes interleaved samples as s16le.
func pcm16(samples ...int16) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(out[i*2:], uint16(s))
	}
	return out
}

// tone returns frames of a mono sine of the given amplitude (0..1).
func tone(frames int, freq, sampleRate, amp float64) []int16 {
	out := make([]int16, frames)
	for i := range out {
		out[i] = int16(amp * 32767 * math.Sin(2*math.Pi*freq*float64(i)/sampleRate))
	}
	return out
}

func newToneTap(t *testing.T, frames int, freq, amp float64) *Tap {
	t.Helper()
	tap := NewTap(DefaultTapSize)
	tap.SetFormat(8000, 1)
	tap.Write(pcm16(tone(frames, freq, 8000, amp)...))
	return tap
}

func TestNewRejectsInvalidOptions(t *testing.T) {
	tap := NewTap(64)
	tests := []struct {
		name   string
		option Option
		want   error
	}{
		{"not power of two", WithFFTSize(1000), ErrInvalidFFTSize},
		{"too small", WithFFTSize(16), ErrInvalidFFTSize},
		{"too large", WithFFTSize(65536), ErrInvalidFFTSize},
		{"smoothing above one", WithSmoothing(1.5), ErrInvalidSmoothing},
		{"smoothing nan", WithSmoothing(math.NaN()), ErrInvalidSmoothing},
		{"inverted decibels", WithDecibels(-30, -100), ErrInvalidDecibels},
	}
	for _, tt := range tests {
		if _, err := New(tap, tt.option); !errors.Is(err, tt.want) {
			t.Fatalf("%s: expected %v, got %v", tt.name, tt.want, err)
		}
	}
}

func TestAnalyserNotReadyUntilFullFrame(t *testing.T) {
	tap := NewTap(DefaultTapSize)
	a, err := New(tap, WithFFTSize(256))
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	dst := make([]uint8, a.FrequencyBinCount())

	if n := a.ByteFrequencyData(dst); n != 0 {
		t.Fatalf("expected no data before a format is set, got %d", n)
	}
	if a.SampleRate() != 0 {
		t.Fatalf("expected unknown sample rate, got %g", a.SampleRate())
	}

	tap.SetFormat(8000, 1)
	tap.Write(pcm16(tone(255, 1000, 8000, 0.5)...))
	if n := a.ByteFrequencyData(dst); n != 0 {
		t.Fatalf("expected no data with a partial frame, got %d", n)
	}

	tap.Write(pcm16(0))
	if n := a.ByteFrequencyData(dst); n != 128 {
		t.Fatalf("expected 128 bins, got %d", n)
	}
	if a.SampleRate() != 8000 {
		t.Fatalf("expected sample rate 8000, got %g", a.SampleRate())
	}
}

func TestByteFrequencyDataPeaksAtToneBin(t *testing.T) {
	// bin 32 of a 256-point FFT at 8 kHz is 1 kHz
	tap := newToneTap(t, 256, 1000, 0.01)
	a, err := New(tap, WithFFTSize(256), WithSmoothing(0))
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	dst := make([]uint8, a.FrequencyBinCount())
	a.ByteFrequencyData(dst)

	peak := 0
	for i, v := range dst {
		if v > dst[peak] {
			peak = i
		}
	}
	if peak != 32 {
		t.Fatalf("expected peak at bin 32, got %d (%v)", peak, dst)
	}
	if dst[100] >= 64 {
		t.Fatalf("expected distant bin to stay low, got %d", dst[100])
	}
}

func TestByteFrequencyDataSilenceIsZero(t *testing.T) {
	tap := NewTap(DefaultTapSize)
	tap.SetFormat(8000, 2)
	// left and right cancel in the mono mix
	frames := make([]int16, 0, 512)
	for _, s := range tone(256, 1000, 8000, 0.5) {
		frames = append(frames, s, -s)
	}
	tap.Write(pcm16(frames...))

	a, err := New(tap, WithFFTSize(256))
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	dst := make([]uint8, a.FrequencyBinCount())
	if n := a.ByteFrequencyData(dst); n != 128 {
		t.Fatalf("expected 128 bins, got %d", n)
	}
	for i, v := range dst {
		if v != 0 {
			t.Fatalf("expected silent spectrum, bin %d = %d", i, v)
		}
	}
}

func TestByteFrequencyDataSmoothsAcrossCalls(t *testing.T) {
	tap := newToneTap(t, 256, 1000, 0.01)
	sharp, err := New(tap, WithFFTSize(256), WithSmoothing(0))
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	smooth, err := New(tap, WithFFTSize(256), WithSmoothing(0.5))
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	want := make([]uint8, 128)
	first := make([]uint8, 128)
	second := make([]uint8, 128)
	sharp.ByteFrequencyData(want)
	smooth.ByteFrequencyData(first)
	smooth.ByteFrequencyData(second)

	if !(first[32] < second[32] && second[32] <= want[32]) {
		t.Fatalf("expected smoothed bin to approach %d, got %d then %d", want[32], first[32], second[32])
	}

	smooth.Reset()
	smooth.ByteFrequencyData(second)
	if second[32] != first[32] {
		t.Fatalf("expected Reset to drop history, got %d want %d", second[32], first[32])
	}
}

func TestByteFrequencyDataShortDestination(t *testing.T) {
	tap := newToneTap(t, 256, 1000, 0.5)
	a, err := New(tap, WithFFTSize(256))
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	if n := a.ByteFrequencyData(make([]uint8, 16)); n != 16 {
		t.Fatalf("expected 16 bins written, got %d", n)
	}
}

func TestByteTimeDomainData(t *testing.T) {
	tap := NewTap(DefaultTapSize)
	tap.SetFormat(8000, 1)
	samples := make([]int16, 32)
	samples[0] = 16384
	samples[1] = -16384
	samples[2] = 32767
	tap.Write(pcm16(samples...))

	a, err := New(tap, WithFFTSize(32))
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	dst := make([]uint8, 64)
	if n := a.ByteTimeDomainData(dst); n != 32 {
		t.Fatalf("expected 32 samples, got %d", n)
	}
	if dst[0] != 192 || dst[1] != 64 || dst[2] != 255 || dst[3] != 128 {
		t.Fatalf("unexpected waveform bytes %v", dst[:4])
	}
}

func TestTimeDomainDataSharesFrameWithSpectrum(t *testing.T) {
	tap := NewTap(DefaultTapSize)
	tap.SetFormat(8000, 1)
	first := make([]int16, 32)
	first[0] = 16384
	tap.Write(pcm16(first...))

	a, err := New(tap, WithFFTSize(32))
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	if n := a.ByteFrequencyData(make([]uint8, 16)); n != 16 {
		t.Fatalf("expected 16 bins, got %d", n)
	}

	// PCM arriving between the two calls belongs to the next tick
	later := make([]int16, 32)
	later[0] = -16384
	tap.Write(pcm16(later...))

	dst := make([]uint8, 32)
	a.ByteTimeDomainData(dst)
	if dst[0] != 192 {
		t.Fatalf("expected waveform from the spectrum's frame, got %d", dst[0])
	}

	a.ByteTimeDomainData(dst)
	if dst[0] != 64 {
		t.Fatalf("expected a standalone call to read the latest frame, got %d", dst[0])
	}
}
