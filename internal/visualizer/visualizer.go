package visualizer

import "github.com/olivier-w/bandmon/internal/monitor"

// Panel renders one view of a monitor frame as terminal text.
type Panel interface {
	Name() string
	Update(f Frame, width, height int)
	View() string
}

// Modes returns all available panels.
func Modes() []Panel {
	return []Panel{
		NewMeters(),
		NewSpectrum(),
		NewWaveform(),
	}
}

// Reading is a copy of one range's state after a refresh.
type Reading struct {
	Name      string
	Start     float64
	End       float64
	Volume    float64
	Delta     float64
	Threshold float64
	Spiking   bool
	Over      bool
}

// Frame is everything a panel needs from one tick.
type Frame struct {
	Global   Reading
	Ranges   []Reading
	Spectrum []uint8
	Waveform []uint8
	Nyquist  float64
}

func readingOf(r *monitor.Range) Reading {
	return Reading{
		Name:      r.Name(),
		Start:     r.Start(),
		End:       r.End(),
		Volume:    r.Volume(),
		Delta:     r.Delta(),
		Threshold: r.Threshold(),
		Spiking:   r.IsSpiking(),
		Over:      r.IsOverThreshold(),
	}
}

// FrameOf copies the monitor's current state. The spectrum and waveform are
// copied too, since the monitor reuses its buffers.
func FrameOf(m *monitor.Monitor) Frame {
	ranges := m.Ranges()
	f := Frame{
		Global:   readingOf(m.Global()),
		Ranges:   make([]Reading, len(ranges)),
		Spectrum: append([]uint8(nil), m.Spectrum()...),
		Waveform: append([]uint8(nil), m.Waveform()...),
		Nyquist:  m.Nyquist(),
	}
	for i, r := range ranges {
		f.Ranges[i] = readingOf(r)
	}
	return f
}
