package ui

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/olivier-w/bandmon/internal/monitor"
	"github.com/olivier-w/bandmon/internal/player"
	"github.com/olivier-w/bandmon/internal/util"
	"github.com/olivier-w/bandmon/internal/visualizer"
)

// Playback is the part of the player the model drives.
type Playback interface {
	TogglePause()
	Paused() bool
	Seek(delta time.Duration) error
	Restart() error
	Position() time.Duration
	Duration() time.Duration
	Volume() float64
	AdjustVolume(delta float64)
	Done() <-chan struct{}
	Close()
}

// Model is the Bubbletea model for the monitor screen. Every tick refreshes
// the monitor and redraws the active panel.
type Model struct {
	player   Playback
	monitor  *monitor.Monitor
	metadata player.Metadata
	tick     time.Duration
	logger   *slog.Logger

	panels   []visualizer.Panel
	mode     int
	frame    visualizer.Frame
	events   *eventLog
	progress progress.Model

	elapsed    time.Duration
	duration   time.Duration
	volume     float64
	paused     bool
	repeatMode RepeatMode
	status     string
	width      int
	height     int
	quitting   bool
}

// New creates a Model and registers its event hooks on mon.
func New(p Playback, mon *monitor.Monitor, meta player.Metadata, tick time.Duration, logger *slog.Logger) Model {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	events := &eventLog{}
	record := func(kind eventKind) monitor.Hook {
		return func(r *monitor.Range, amount float64) {
			events.record(event{
				at:      p.Position(),
				rangeID: r.Name(),
				kind:    kind,
				amount:  amount,
			}, mon.Ticks())
		}
	}
	mon.OnSpike(record(eventSpike))
	mon.OnThreshold(record(eventThreshold))

	return Model{
		player:   p,
		monitor:  mon,
		metadata: meta,
		tick:     tick,
		logger:   logger.With(slog.String("component", "ui")),
		panels:   visualizer.Modes(),
		events:   events,
		progress: newProgressBar(),
		duration: p.Duration(),
		volume:   p.Volume(),
		status:   "waiting for audio",
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(tickCmd(m.tick), checkDone(m.player), tea.SetWindowTitle(windowTitle(m.metadata.Title, false)))
}

func checkDone(p Playback) tea.Cmd {
	return func() tea.Msg {
		<-p.Done()
		return playbackEndedMsg{}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	return m.handleMsg(msg)
}

func (m Model) handleMsg(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tickMsg:
		m.elapsed = m.player.Position()
		m.volume = m.player.Volume()
		m.paused = m.player.Paused()
		m.refresh()
		return m, tickCmd(m.tick)

	case playbackEndedMsg:
		if m.repeatMode == RepeatOne {
			if err := m.player.Restart(); err != nil {
				m.logger.Warn("restart failed", slog.Any("error", err))
			} else {
				m.elapsed = 0
				return m, checkDone(m.player)
			}
		}
		m.elapsed = m.duration
		return m.quit()

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	if isQuit(msg) {
		return m.quit()
	}

	switch msg.String() {
	case " ":
		m.player.TogglePause()
		m.paused = m.player.Paused()
		return m, tea.SetWindowTitle(windowTitle(m.metadata.Title, m.paused))
	case "left", "h":
		m.seek(-seekStep * time.Second)
	case "right", "l":
		m.seek(seekStep * time.Second)
	case "+", "=", "up", "k":
		m.player.AdjustVolume(volumeStep)
		m.volume = m.player.Volume()
	case "-", "down", "j":
		m.player.AdjustVolume(-volumeStep)
		m.volume = m.player.Volume()
	case "[":
		m.adjustThreshold(-thresholdStep)
	case "]":
		m.adjustThreshold(thresholdStep)
	case "{":
		m.adjustSpikeTolerance(-thresholdStep)
	case "}":
		m.adjustSpikeTolerance(thresholdStep)
	case "v":
		m.mode = (m.mode + 1) % len(m.panels)
		m.panels[m.mode].Update(m.frame, m.panelWidth(), m.panelHeight())
	case "r":
		m.repeatMode = m.repeatMode.Next()
	case "c":
		m.events.clear()
	}
	return m, nil
}

func (m Model) quit() (Model, tea.Cmd) {
	m.quitting = true
	m.player.Close()
	return m, tea.Sequence(tea.SetWindowTitle(""), tea.Quit)
}

func (m *Model) seek(delta time.Duration) {
	if err := m.player.Seek(delta); err != nil {
		m.logger.Warn("seek failed", slog.Any("error", err))
		m.status = err.Error()
		return
	}
	m.elapsed = m.player.Position()
}

// adjustThreshold moves the global threshold within the byte range.
func (m *Model) adjustThreshold(delta float64) {
	g := m.monitor.Global()
	g.SetThreshold(max(0, min(g.Threshold()+delta, 255)))
	m.logger.Debug("threshold changed", slog.Float64("threshold", g.Threshold()))
}

func (m *Model) adjustSpikeTolerance(delta float64) {
	g := m.monitor.Global()
	g.SetSpikeTolerance(max(0, min(g.SpikeTolerance()+delta, 255)))
	m.logger.Debug("spike tolerance changed", slog.Float64("spikeTolerance", g.SpikeTolerance()))
}

func (m *Model) refresh() {
	err := m.monitor.Refresh()
	switch {
	case err == nil:
		m.status = ""
		m.frame = visualizer.FrameOf(m.monitor)
	case errors.Is(err, monitor.ErrSourceNotReady):
		m.status = "waiting for audio"
		return
	default:
		if m.status != err.Error() {
			m.logger.Error("refresh failed", slog.Any("error", err))
		}
		m.status = err.Error()
		return
	}
	m.panels[m.mode].Update(m.frame, m.panelWidth(), m.panelHeight())
}

func (m Model) contentWidth() int {
	if m.width < 30 {
		return 60
	}
	return m.width - 4
}

// fixedLines is everything in View apart from the panel.
const fixedLines = 11 + maxEvents

func (m Model) panelWidth() int { return m.contentWidth() }

func (m Model) panelHeight() int {
	if m.height == 0 {
		return 8
	}
	return max(m.height-fixedLines, 3)
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	w := m.contentWidth()
	var sb strings.Builder
	line := func(s string) {
		if s != "" {
			sb.WriteString("  " + s)
		}
		sb.WriteByte('\n')
	}

	line("")
	line(headerStyle.Render(appName))
	line("")
	line(titleStyle.Render(m.metadata.Title))
	if sub := m.metadata.Subtitle(); sub != "" {
		line(artistStyle.Render(sub))
	}
	line("")

	elapsed := util.FormatDuration(m.elapsed)
	total := util.FormatDuration(m.duration)
	bar := renderProgressBar(m.progress, m.elapsed, m.duration, w-len(elapsed)-len(total)-2)
	line(fmt.Sprintf("%s %s %s", timeStyle.Render(elapsed), bar, timeStyle.Render(total)))
	line(statusStyle.Render(m.statusLine(w)))
	line("")

	if m.status != "" {
		line(errorStyle.Render(m.status))
	} else {
		for _, row := range strings.Split(m.panels[m.mode].View(), "\n") {
			line(row)
		}
	}
	line("")

	for _, e := range m.events.entries {
		style := spikeStyle
		if e.kind == eventThreshold {
			style = overStyle
		}
		line(style.Render(e.String()))
	}
	line("")
	line(helpStyle.Render(helpText()))

	return sb.String()
}

func (m Model) statusLine(width int) string {
	left := "▶  playing"
	if m.paused {
		left = "❚❚ paused"
	}
	if icon := m.repeatMode.Icon(); icon != "" {
		left += "  " + icon
	}
	left += fmt.Sprintf("  %s  thr %.0f  tol %.0f", m.panels[m.mode].Name(), m.monitor.Threshold(), m.monitor.SpikeTolerance())

	right := renderVolumePercent(m.volume)
	gap := max(width-len([]rune(left))-len(right), 2)
	return left + strings.Repeat(" ", gap) + right
}

func windowTitle(title string, paused bool) string {
	if paused {
		return "⏸ " + title + " · " + appName
	}
	return "▶ " + title + " · " + appName
}
