package ui

import tea "github.com/charmbracelet/bubbletea"

const (
	seekStep      = 5 // seconds
	volumeStep    = 0.05
	thresholdStep = 5
)

func isQuit(msg tea.KeyMsg) bool {
	switch msg.String() {
	case "q", "esc", "ctrl+c":
		return true
	}
	return false
}

func helpText() string {
	return "space pause  ←/→ seek  +/- volume  [/] threshold  {/} spike  v view  r repeat  c clear  q quit"
}
