package visualizer

import (
	"math"
)

// Waveform renders the time-domain bytes as a spring-smoothed trace.
type Waveform struct {
	trace  springField
	output string
}

func NewWaveform() *Waveform {
	return &Waveform{trace: newSpringField(20, 14.0, 0.8)}
}

func (w *Waveform) Name() string { return "waveform" }

func (w *Waveform) Update(f Frame, width, height int) {
	if len(f.Waveform) < 2 || width < 4 || height < 1 {
		w.output = ""
		return
	}

	cols := max(width-2, 8)
	w.trace.resize(cols)

	samples := len(f.Waveform)
	for c := range cols {
		lo := c * samples / cols
		hi := max((c+1)*samples/cols, lo+1)
		sum := 0.0
		for _, b := range f.Waveform[lo:min(hi, samples)] {
			sum += (float64(b) - 128) / 128
		}
		w.trace.step(c, sum/float64(min(hi, samples)-lo))
	}

	mask := make([][]bool, height)
	for r := range height {
		mask[r] = make([]bool, cols)
	}
	prev := ampToRow(w.trace.pos[0], height)
	for c := 1; c < cols; c++ {
		y := ampToRow(w.trace.pos[c], height)
		drawLine(mask, c-1, prev, c, y)
		prev = y
	}

	mid := height / 2
	var p painter
	for r := range height {
		if r > 0 {
			p.newline()
		}
		for c := range cols {
			switch {
			case mask[r][c]:
				p.put(heatColor(math.Abs(w.trace.pos[c])*2), '●')
			case r == mid:
				p.put(colorTrack, '·')
			default:
				p.plain(' ')
			}
		}
	}
	w.output = p.String()
}

func (w *Waveform) View() string {
	return w.output
}

// ampToRow maps an amplitude in -1..1 to a row, +1 at the top.
func ampToRow(amp float64, height int) int {
	if height <= 1 {
		return 0
	}
	amp = clamp01((amp + 1) / 2)
	row := int(math.Round((1 - amp) * float64(height-1)))
	return max(0, min(row, height-1))
}

// drawLine plots a Bresenham line into mask, ignoring points outside it.
func drawLine(mask [][]bool, x0, y0, x1, y1 int) {
	if len(mask) == 0 {
		return
	}
	maxY, maxX := len(mask), len(mask[0])

	dx := absInt(x1 - x0)
	sx := -1
	if x0 < x1 {
		sx = 1
	}
	dy := -absInt(y1 - y0)
	sy := -1
	if y0 < y1 {
		sy = 1
	}
	err := dx + dy

	for {
		if y0 >= 0 && y0 < maxY && x0 >= 0 && x0 < maxX {
			mask[y0][x0] = true
		}
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			x0 += sx
		}
		if e2 <= dx {
			err += dx
			y0 += sy
		}
	}
}

func absInt(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
