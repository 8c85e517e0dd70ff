package visualizer

import (
	"strings"

	"github.com/olivier-w/bandmon/internal/util"
)

var barChars = []rune(" ▁▂▃▄▅▆▇█")

// Spectrum renders the byte spectrum snapshot as vertical bars over a
// linear frequency axis.
type Spectrum struct {
	output string
}

func NewSpectrum() *Spectrum {
	return &Spectrum{}
}

func (s *Spectrum) Name() string { return "spectrum" }

func (s *Spectrum) Update(f Frame, width, height int) {
	if len(f.Spectrum) == 0 || width < 2 || height < 1 {
		s.output = ""
		return
	}

	barRows := height
	if height >= 3 {
		barRows-- // axis
	}
	s.output = RenderSpectrum(f.Spectrum, width, barRows)
	if barRows < height {
		s.output += "\n" + spectrumAxis(f, width)
	}
}

func (s *Spectrum) View() string {
	return s.output
}

// RenderSpectrum draws spectrum into width columns of height rows. Each
// column shows the mean of the bins it covers.
func RenderSpectrum(spectrum []uint8, width, height int) string {
	if len(spectrum) == 0 || width < 1 || height < 1 {
		return ""
	}

	levels := columnLevels(spectrum, width)

	var p painter
	for row := range height {
		if row > 0 {
			p.newline()
		}
		fromBottom := float64(height - 1 - row)
		for _, level := range levels {
			cells := level * float64(height)
			idx := 0
			switch {
			case cells >= fromBottom+1:
				idx = len(barChars) - 1
			case cells > fromBottom:
				idx = int((cells - fromBottom) * float64(len(barChars)-1))
			}
			if idx == 0 {
				p.plain(' ')
				continue
			}
			p.put(heatColor(level), barChars[idx])
		}
	}
	return p.String()
}

// columnLevels averages spectrum into n columns scaled to 0..1.
func columnLevels(spectrum []uint8, n int) []float64 {
	levels := make([]float64, n)
	bins := len(spectrum)
	for c := range n {
		lo := c * bins / n
		hi := max((c+1)*bins/n, lo+1)
		sum := 0
		for _, v := range spectrum[lo:min(hi, bins)] {
			sum += int(v)
		}
		levels[c] = float64(sum) / float64(min(hi, bins)-lo) / 255
	}
	return levels
}

func spectrumAxis(f Frame, width int) string {
	left := util.FormatHz(0)
	right := util.FormatHz(f.Nyquist)
	gap := width - len([]rune(left)) - len([]rune(right))
	if gap < 1 {
		return left
	}
	return left + strings.Repeat(" ", gap) + right
}
