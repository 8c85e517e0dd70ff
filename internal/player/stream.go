package player

import (
	"io"
	"time"
)

// Stream decodes a file into a Tap without an audio device, at whatever
// pace the caller pumps it.
type Stream struct {
	src     *source
	counter *tapReader
	buf     []byte
}

// OpenStream opens path for headless decoding and sets the tap format.
func OpenStream(path string, tap Tap) (*Stream, error) {
	src, err := openSource(path)
	if err != nil {
		return nil, err
	}
	if tap != nil {
		tap.SetFormat(src.decoder.SampleRate(), src.decoder.ChannelCount())
	}
	return &Stream{
		src:     src,
		counter: &tapReader{reader: src.decoder, tap: tap},
	}, nil
}

// Pump decodes d worth of audio into the tap and returns the number of
// bytes written. It returns io.EOF once the stream is exhausted.
func (s *Stream) Pump(d time.Duration) (int, error) {
	want := clampSeekByteOffset(d, s.src.bytesPerSec, 1<<62, s.src.frameSize)
	if want == 0 {
		want = s.src.frameSize
	}
	if int64(cap(s.buf)) < want {
		s.buf = make([]byte, want)
	}

	n, err := io.ReadFull(s.counter, s.buf[:want])
	if err == io.ErrUnexpectedEOF || (err == nil && s.counter.Pos() >= s.src.decoder.Length()) {
		err = io.EOF
	}
	return n, err
}

func (s *Stream) Position() time.Duration {
	return bytesToDuration(s.counter.Pos(), s.src.bytesPerSec)
}

func (s *Stream) Duration() time.Duration { return s.src.duration }
func (s *Stream) SampleRate() int         { return s.src.decoder.SampleRate() }
func (s *Stream) Channels() int           { return s.src.decoder.ChannelCount() }

// Close releases the underlying file.
func (s *Stream) Close() error {
	return s.src.file.Close()
}
