package analyser

import "sync"

const bytesPerSample = 2 // s16le

// DefaultTapSize holds the largest FFT frame of stereo s16le PCM.
const DefaultTapSize = MaxFFTSize * 2 * bytesPerSample

// Tap is a thread-safe circular buffer of interleaved s16le PCM together
// with the format it was produced at. The player writes into it and the
// analyser reads the most recent frames back.
type Tap struct {
	buf   []byte
	size  int
	w     int   // write position
	len   int   // current fill level
	total int64 // bytes written since the last format change

	sampleRate int
	channels   int

	mu sync.Mutex
}

// NewTap creates a tap with the given capacity in bytes.
func NewTap(size int) *Tap {
	return &Tap{
		buf:  make([]byte, size),
		size: size,
	}
}

// SetFormat records the PCM format of subsequent writes. A format change
// drops buffered data.
func (t *Tap) SetFormat(sampleRate, channels int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if sampleRate == t.sampleRate && channels == t.channels {
		return
	}
	t.sampleRate = sampleRate
	t.channels = channels
	t.reset()
}

// Format returns the current sample rate and channel count; zero when unset.
func (t *Tap) Format() (sampleRate, channels int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.sampleRate, t.channels
}

// Write appends data to the tap, overwriting the oldest data if full.
func (t *Tap) Write(p []byte) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.total += int64(len(p))
	if len(p) > t.size {
		p = p[len(p)-t.size:]
	}
	for _, b := range p {
		t.buf[t.w] = b
		t.w = (t.w + 1) % t.size
	}
	t.len += len(p)
	if t.len > t.size {
		t.len = t.size
	}
}

// ReadFrames returns the most recent whole frames, at most n of them.
// A frame is one sample per channel. It returns nil before SetFormat.
func (t *Tap) ReadFrames(n int) []byte {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.channels < 1 {
		return nil
	}
	frameSize := t.channels * bytesPerSample

	// ignore a trailing partial frame
	partial := int(t.total % int64(frameSize))
	avail := (t.len - partial) / frameSize
	if n > avail {
		n = avail
	}
	if n <= 0 {
		return nil
	}

	count := n * frameSize
	end := (t.w - partial + t.size) % t.size
	start := (end - count + t.size) % t.size
	out := make([]byte, count)
	for i := range count {
		out[i] = t.buf[(start+i)%t.size]
	}
	return out
}

// Buffered returns the number of whole frames available.
func (t *Tap) Buffered() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.channels < 1 {
		return 0
	}
	frameSize := t.channels * bytesPerSample
	return (t.len - int(t.total%int64(frameSize))) / frameSize
}

// Clear resets the buffer, keeping the format.
func (t *Tap) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.reset()
}

func (t *Tap) reset() {
	t.w = 0
	t.len = 0
	t.total = 0
}
