package visualizer

import (
	"strings"
	"testing"

	"github.com/olivier-w/bandmon/internal/monitor"
)

type snapshotSource struct {
	spectrum []uint8
}

func (s *snapshotSource) SampleRate() float64 { return 8000 }

func (s *snapshotSource) ByteFrequencyData(dst []uint8) int { return copy(dst, s.spectrum) }

func TestModesNames(t *testing.T) {
	want := []string{"meters", "spectrum", "waveform"}
	modes := Modes()
	if len(modes) != len(want) {
		t.Fatalf("expected %d modes, got %d", len(want), len(modes))
	}
	for i, m := range modes {
		if m.Name() != want[i] {
			t.Fatalf("mode %d: expected %q, got %q", i, want[i], m.Name())
		}
	}
}

func TestFrameOfCopiesMonitorState(t *testing.T) {
	src := &snapshotSource{spectrum: []uint8{200, 200, 200, 200}}
	m, err := monitor.New(src, 0, 4000, 4)
	if err != nil {
		t.Fatalf("monitor.New returned error: %v", err)
	}
	if _, err := m.CreateRange(0, 2000, 100, 30, 1, monitor.WithName("low")); err != nil {
		t.Fatalf("CreateRange returned error: %v", err)
	}
	if err := m.Refresh(); err != nil {
		t.Fatalf("Refresh returned error: %v", err)
	}

	f := FrameOf(m)
	if f.Global.Name != "global" || len(f.Ranges) != 1 || f.Ranges[0].Name != "low" {
		t.Fatalf("unexpected frame readings: %+v", f)
	}
	if !f.Ranges[0].Over || !f.Ranges[0].Spiking {
		t.Fatalf("expected low range over threshold and spiking, got %+v", f.Ranges[0])
	}
	if f.Nyquist != 4000 {
		t.Fatalf("expected nyquist 4000, got %g", f.Nyquist)
	}

	src.spectrum = []uint8{0, 0, 0, 0}
	if err := m.Refresh(); err != nil {
		t.Fatalf("Refresh returned error: %v", err)
	}
	if f.Spectrum[0] != 200 {
		t.Fatalf("expected frame spectrum to be a copy, got %v", f.Spectrum)
	}
}

func TestRenderMeterBar(t *testing.T) {
	if got := renderMeterBar(0.5, 0.8, 10, false, false); got != "█████───│─" {
		t.Fatalf("unexpected half bar %q", got)
	}
	if got := renderMeterBar(1, 0.5, 4, true, false); got != "██│█" {
		t.Fatalf("unexpected full bar %q", got)
	}
	if got := renderMeterBar(0, 2, 3, false, false); got != "──│" {
		t.Fatalf("expected tick clamped to last cell, got %q", got)
	}
}

func TestMetersShowFlags(t *testing.T) {
	f := Frame{
		Global: Reading{Name: "global", Start: 0, End: 4000, Volume: 10, Threshold: 127},
		Ranges: []Reading{
			{Name: "bass", Start: 0, End: 250, Volume: 90, Delta: 60, Threshold: 127, Spiking: true},
			{Name: "treble", Start: 2000, End: 4000, Volume: 200, Threshold: 127, Over: true},
		},
	}

	m := NewMeters()
	m.Update(f, 40, 10)
	lines := strings.Split(m.View(), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected 3 meter rows, got %d:\n%s", len(lines), m.View())
	}
	if !strings.HasPrefix(lines[0], "global") {
		t.Fatalf("expected global first, got %q", lines[0])
	}
	if !strings.Contains(lines[1], "▲") || strings.Contains(lines[1], "●") {
		t.Fatalf("expected only the spike flag on bass, got %q", lines[1])
	}
	if !strings.Contains(lines[2], "●") || !strings.HasSuffix(lines[2], " 200") {
		t.Fatalf("expected over flag and volume on treble, got %q", lines[2])
	}
}

func TestMetersShowBandEdgesWhenWide(t *testing.T) {
	f := Frame{Global: Reading{Name: "global", Start: 0, End: 1500}}

	m := NewMeters()
	m.Update(f, 100, 10)
	if !strings.Contains(m.View(), "0 Hz–1.5 kHz") {
		t.Fatalf("expected band label, got %q", m.View())
	}

	m.Update(f, 40, 10)
	if strings.Contains(m.View(), "kHz") {
		t.Fatalf("expected no band label on narrow terminals, got %q", m.View())
	}
}

func TestMetersLimitRowsToHeight(t *testing.T) {
	f := Frame{
		Global: Reading{Name: "global"},
		Ranges: []Reading{{Name: "a"}, {Name: "b"}, {Name: "c"}},
	}
	m := NewMeters()
	m.Update(f, 40, 2)
	if got := strings.Count(m.View(), "\n") + 1; got != 2 {
		t.Fatalf("expected 2 rows, got %d", got)
	}
}

func TestRenderSpectrum(t *testing.T) {
	if got := RenderSpectrum([]uint8{0, 255}, 2, 2); got != " █\n █" {
		t.Fatalf("unexpected spectrum %q", got)
	}
	if got := RenderSpectrum([]uint8{255, 255, 0, 0}, 2, 1); got != "█ " {
		t.Fatalf("expected bins averaged per column, got %q", got)
	}
	if got := RenderSpectrum(nil, 10, 10); got != "" {
		t.Fatalf("expected empty output without data, got %q", got)
	}
}

func TestColumnLevelsStretchesFewBins(t *testing.T) {
	levels := columnLevels([]uint8{0, 255}, 4)
	want := []float64{0, 0, 1, 1}
	for i := range want {
		if levels[i] != want[i] {
			t.Fatalf("column %d: expected %g, got %g", i, want[i], levels[i])
		}
	}
}

func TestSpectrumPanelAddsAxis(t *testing.T) {
	s := NewSpectrum()
	s.Update(Frame{Spectrum: []uint8{255, 255}, Nyquist: 4000}, 20, 3)
	lines := strings.Split(s.View(), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected 2 bar rows and an axis, got %d", len(lines))
	}
	if lines[2] != "0 Hz"+strings.Repeat(" ", 11)+"4 kHz" {
		t.Fatalf("unexpected axis %q", lines[2])
	}
}

func TestWaveformFlatSignalTracesMidline(t *testing.T) {
	wave := make([]uint8, 64)
	for i := range wave {
		wave[i] = 128
	}

	w := NewWaveform()
	w.Update(Frame{Waveform: wave}, 12, 5)
	lines := strings.Split(w.View(), "\n")
	if len(lines) != 5 {
		t.Fatalf("expected 5 rows, got %d", len(lines))
	}
	if lines[2] != strings.Repeat("●", 10) {
		t.Fatalf("expected trace on the midline, got %q", lines[2])
	}
	if strings.TrimSpace(lines[0]) != "" {
		t.Fatalf("expected empty top row, got %q", lines[0])
	}
}

func TestAmpToRow(t *testing.T) {
	if ampToRow(1, 5) != 0 || ampToRow(-1, 5) != 4 || ampToRow(0, 5) != 2 {
		t.Fatal("unexpected amplitude mapping")
	}
	if ampToRow(3, 5) != 0 {
		t.Fatal("expected out of range amplitude to clamp")
	}
}
