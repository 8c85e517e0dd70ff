package monitor

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrInvalidRange matches every *InvalidRangeError via errors.Is.
	ErrInvalidRange = errors.New("invalid frequency range")

	// ErrSourceNotReady is returned when the source has not produced a sample
	// rate or a full spectrum snapshot yet.
	ErrSourceNotReady = errors.New("spectrum source not ready")

	// ErrUnsupportedEnvironment is returned when no spectrum source is available.
	ErrUnsupportedEnvironment = errors.New("spectrum source unavailable")

	// ErrInvalidBinCount is returned by New for snapshots shorter than two bins.
	ErrInvalidBinCount = errors.New("bin count must be at least 2")
)

// InvalidRangeError reports a frequency range outside 0 <= start <= end <= nyquist.
// Nyquist is zero when the range was rejected before a sample rate was known.
type InvalidRangeError struct {
	Start   float64
	End     float64
	Nyquist float64
}

func (e *InvalidRangeError) Error() string {
	if e.Nyquist > 0 {
		return fmt.Sprintf("invalid frequency range %g-%g Hz (nyquist %g Hz)", e.Start, e.End, e.Nyquist)
	}
	return fmt.Sprintf("invalid frequency range %g-%g Hz", e.Start, e.End)
}

func (e *InvalidRangeError) Is(target error) bool {
	return target == ErrInvalidRange
}

func checkRange(start, end, nyquist float64) error {
	if math.IsNaN(start) || math.IsNaN(end) || start < 0 || end < start || end > nyquist {
		return &InvalidRangeError{Start: start, End: end, Nyquist: nyquist}
	}
	return nil
}
