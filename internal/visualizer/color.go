package visualizer

import (
	"fmt"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
)

type colorRGB struct {
	R uint8
	G uint8
	B uint8
}

var (
	colorIdle  = colorRGB{R: 60, G: 224, B: 116}
	colorOver  = colorRGB{R: 242, G: 96, B: 86}
	colorSpike = colorRGB{R: 255, G: 252, B: 210}
	colorTick  = colorRGB{R: 240, G: 198, B: 72}
	colorTrack = colorRGB{R: 70, G: 74, B: 92}

	styleCache sync.Map
)

func (c colorRGB) style() lipgloss.Style {
	key := uint32(c.R)<<16 | uint32(c.G)<<8 | uint32(c.B)
	if s, ok := styleCache.Load(key); ok {
		return s.(lipgloss.Style)
	}
	s := lipgloss.NewStyle().Foreground(lipgloss.Color(fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)))
	styleCache.Store(key, s)
	return s
}

func clamp01(v float64) float64 {
	return max(0, min(v, 1))
}

func lerpColor(a, b colorRGB, t float64) colorRGB {
	t = clamp01(t)
	return colorRGB{
		R: uint8(float64(a.R) + (float64(b.R)-float64(a.R))*t),
		G: uint8(float64(a.G) + (float64(b.G)-float64(a.G))*t),
		B: uint8(float64(a.B) + (float64(b.B)-float64(a.B))*t),
	}
}

// heatColor maps 0..1 onto a blue, green, yellow, red ramp.
func heatColor(t float64) colorRGB {
	t = clamp01(t)
	switch {
	case t < 0.25:
		return lerpColor(colorRGB{R: 16, G: 25, B: 70}, colorRGB{R: 0, G: 174, B: 255}, t/0.25)
	case t < 0.5:
		return lerpColor(colorRGB{R: 0, G: 174, B: 255}, colorRGB{R: 20, G: 255, B: 161}, (t-0.25)/0.25)
	case t < 0.75:
		return lerpColor(colorRGB{R: 20, G: 255, B: 161}, colorRGB{R: 255, G: 230, B: 92}, (t-0.5)/0.25)
	default:
		return lerpColor(colorRGB{R: 255, G: 230, B: 92}, colorRGB{R: 255, G: 80, B: 60}, (t-0.75)/0.25)
	}
}

// painter batches runs of equally coloured runes into one styled string.
type painter struct {
	out     strings.Builder
	run     strings.Builder
	current colorRGB
	colored bool
}

func (p *painter) put(c colorRGB, r rune) {
	if p.run.Len() > 0 && (!p.colored || c != p.current) {
		p.flush()
	}
	p.current = c
	p.colored = true
	p.run.WriteRune(r)
}

func (p *painter) plain(r rune) {
	if p.colored {
		p.flush()
	}
	p.colored = false
	p.run.WriteRune(r)
}

func (p *painter) newline() {
	p.flush()
	p.out.WriteByte('\n')
}

func (p *painter) flush() {
	if p.run.Len() == 0 {
		return
	}
	if p.colored {
		p.out.WriteString(p.current.style().Render(p.run.String()))
	} else {
		p.out.WriteString(p.run.String())
	}
	p.run.Reset()
}

func (p *painter) String() string {
	p.flush()
	return p.out.String()
}
