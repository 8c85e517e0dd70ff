package player

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

// Tap receives a copy of all PCM handed to the output, along with its format.
type Tap interface {
	Write(p []byte)
	SetFormat(sampleRate, channels int)
}

// source is an opened file with its decoder and derived timing.
type source struct {
	file        *os.File
	decoder     audioDecoder
	bytesPerSec int64
	frameSize   int64
	duration    time.Duration
}

func openSource(path string) (*source, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	dec, err := newDecoder(f)
	if err != nil {
		f.Close()
		return nil, err
	}
	if dec.SampleRate() <= 0 || dec.ChannelCount() < 1 {
		f.Close()
		return nil, fmt.Errorf("unsupported stream format: %d Hz, %d channels", dec.SampleRate(), dec.ChannelCount())
	}

	frameSize := int64(dec.ChannelCount()) * bytesPerSample
	bytesPerSec := int64(dec.SampleRate()) * frameSize
	return &source{
		file:        f,
		decoder:     dec,
		bytesPerSec: bytesPerSec,
		frameSize:   frameSize,
		duration:    bytesToDuration(dec.Length(), bytesPerSec),
	}, nil
}

func bytesToDuration(n, bytesPerSec int64) time.Duration {
	if bytesPerSec <= 0 {
		return 0
	}
	return time.Duration(float64(n) / float64(bytesPerSec) * float64(time.Second))
}

// clampSeekByteOffset converts a target position into a frame-aligned byte
// offset within [0, total].
func clampSeekByteOffset(target time.Duration, bytesPerSec, total, frameSize int64) int64 {
	pos := int64(target.Seconds() * float64(bytesPerSec))
	pos = max(0, min(pos, total))
	if frameSize > 0 {
		pos -= pos % frameSize
	}
	return pos
}

// tapReader wraps the decoder, tracks bytes read and copies them into the tap.
type tapReader struct {
	reader io.Reader
	tap    Tap
	pos    int64
	mu     sync.Mutex
}

func (tr *tapReader) Read(p []byte) (int, error) {
	n, err := tr.reader.Read(p)
	if n > 0 && tr.tap != nil {
		tr.tap.Write(p[:n])
	}
	tr.mu.Lock()
	tr.pos += int64(n)
	tr.mu.Unlock()
	return n, err
}

func (tr *tapReader) Pos() int64 {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	return tr.pos
}

func (tr *tapReader) SetPos(pos int64) {
	tr.mu.Lock()
	tr.pos = pos
	tr.mu.Unlock()
}
