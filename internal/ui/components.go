package ui

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/progress"

	"github.com/olivier-w/bandmon/internal/util"
)

const maxEvents = 6

func newProgressBar() progress.Model {
	return progress.New(progress.WithDefaultGradient(), progress.WithoutPercentage())
}

func renderProgressBar(bar progress.Model, elapsed, total time.Duration, width int) string {
	var ratio float64
	if total > 0 {
		ratio = elapsed.Seconds() / total.Seconds()
	}
	bar.Width = max(width, 10)
	return bar.ViewAs(max(0, min(ratio, 1)))
}

func renderVolumePercent(vol float64) string {
	return fmt.Sprintf("vol %d%%", int(vol*100+0.5))
}

type eventKind int

const (
	eventSpike eventKind = iota
	eventThreshold
)

// event is one hook firing, or a run of consecutive ticks of the same one.
type event struct {
	at       time.Duration
	rangeID  string
	kind     eventKind
	amount   float64
	count    int
	lastTick uint64
}

func (e event) String() string {
	icon, verb := "▲", "spike"
	if e.kind == eventThreshold {
		icon, verb = "●", "over"
	}
	s := fmt.Sprintf("%s %s %s %s +%.0f", util.FormatDuration(e.at), icon, e.rangeID, verb, e.amount)
	if e.count > 1 {
		s += fmt.Sprintf(" ×%d", e.count)
	}
	return s
}

// eventLog keeps the most recent hook events. A flag that stays true on
// consecutive ticks extends its entry instead of adding a new one.
type eventLog struct {
	entries []event
}

func (l *eventLog) record(e event, tick uint64) {
	for i := range l.entries {
		prev := &l.entries[i]
		if prev.rangeID == e.rangeID && prev.kind == e.kind && prev.lastTick+1 == tick {
			prev.amount = e.amount
			prev.count++
			prev.lastTick = tick
			return
		}
	}
	e.count = 1
	e.lastTick = tick
	l.entries = append(l.entries, e)
	if over := len(l.entries) - maxEvents; over > 0 {
		l.entries = append(l.entries[:0], l.entries[over:]...)
	}
}

func (l *eventLog) clear() {
	l.entries = l.entries[:0]
}
