package visualizer

import (
	"fmt"
	"strings"

	"github.com/olivier-w/bandmon/internal/util"
)

const (
	maxLabelWidth = 14
	bandLabelMin  = 72 // terminal width from which band edges are shown
)

// Meters renders one horizontal bar per range, global first.
type Meters struct {
	springs springField
	output  string
}

func NewMeters() *Meters {
	return &Meters{springs: newSpringField(20, 9.0, 0.9)}
}

func (m *Meters) Name() string { return "meters" }

func (m *Meters) Update(f Frame, width, height int) {
	rows := append([]Reading{f.Global}, f.Ranges...)
	if height > 0 && len(rows) > height {
		rows = rows[:height]
	}
	m.springs.resize(len(rows))

	labelWidth := 0
	for _, r := range rows {
		labelWidth = max(labelWidth, len([]rune(r.Name)))
	}
	labelWidth = min(labelWidth, maxLabelWidth)

	showBand := width >= bandLabelMin
	bandWidth := 0
	if showBand {
		for _, r := range rows {
			bandWidth = max(bandWidth, len([]rune(util.FormatBand(r.Start, r.End))))
		}
	}

	// label, space, bar, space, flags and value
	barWidth := width - labelWidth - 8 - 2
	if showBand {
		barWidth -= bandWidth + 1
	}
	barWidth = max(barWidth, 10)

	var sb strings.Builder
	for i, r := range rows {
		if i > 0 {
			sb.WriteByte('\n')
		}
		level := m.springs.step(i, clamp01(r.Volume/255))

		sb.WriteString(padRight(truncate(r.Name, labelWidth), labelWidth))
		sb.WriteByte(' ')
		if showBand {
			sb.WriteString(padRight(util.FormatBand(r.Start, r.End), bandWidth))
			sb.WriteByte(' ')
		}
		sb.WriteString(renderMeterBar(level, r.Threshold/255, barWidth, r.Over, r.Spiking))
		sb.WriteString(meterFlags(r))
	}
	m.output = sb.String()
}

func (m *Meters) View() string {
	return m.output
}

// renderMeterBar draws a bar filled to level with a tick at threshold, both 0..1.
func renderMeterBar(level, threshold float64, width int, over, spiking bool) string {
	filled := int(clamp01(level) * float64(width))
	tick := min(int(clamp01(threshold)*float64(width)), width-1)

	fill := colorIdle
	if over {
		fill = colorOver
	}
	if spiking {
		fill = colorSpike
	}

	var p painter
	for i := range width {
		switch {
		case i == tick:
			p.put(colorTick, '│')
		case i < filled:
			p.put(fill, '█')
		default:
			p.put(colorTrack, '─')
		}
	}
	return p.String()
}

func meterFlags(r Reading) string {
	spike, over := ' ', ' '
	if r.Spiking {
		spike = '▲'
	}
	if r.Over {
		over = '●'
	}
	return fmt.Sprintf(" %c%c %4.0f", spike, over, r.Volume)
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	if n <= 1 {
		return string(runes[:n])
	}
	return string(runes[:n-1]) + "…"
}

func padRight(s string, n int) string {
	if pad := n - len([]rune(s)); pad > 0 {
		return s + strings.Repeat(" ", pad)
	}
	return s
}
