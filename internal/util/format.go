package util

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
)

// FormatDuration formats a duration as m:ss.
func FormatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int(d.Seconds())
	m := total / 60
	s := total % 60
	return fmt.Sprintf("%d:%02d", m, s)
}

// FormatHz formats a frequency with an SI prefix, e.g. "1.5 kHz".
func FormatHz(hz float64) string {
	if hz == 0 {
		return "0 Hz"
	}
	return humanize.SIWithDigits(hz, 1, "Hz")
}

// FormatBand formats a start..end frequency pair.
func FormatBand(start, end float64) string {
	return FormatHz(start) + "–" + FormatHz(end)
}
