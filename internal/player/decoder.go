package player

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-audio/wav"
	"github.com/hajimehoshi/go-mp3"
	"github.com/jfreymuth/oggvorbis"
	"github.com/mewkiz/flac"
)

const bytesPerSample = 2 // all decoders emit s16le

// audioDecoder is implemented by all format-specific decoders. Read yields
// interleaved s16le PCM at the source's native rate and channel count.
type audioDecoder interface {
	io.ReadSeeker
	Length() int64
	SampleRate() int
	ChannelCount() int
}

// newDecoder detects format by file extension and returns the appropriate decoder.
func newDecoder(f *os.File) (audioDecoder, error) {
	ext := strings.ToLower(filepath.Ext(f.Name()))
	switch ext {
	case ".mp3":
		return newMP3Decoder(f)
	case ".wav":
		return newWAVDecoder(f)
	case ".flac":
		return newFLACDecoder(f)
	case ".ogg":
		return newOGGDecoder(f)
	default:
		return nil, fmt.Errorf("unsupported format: %s", ext)
	}
}

// pcmQueue holds converted PCM that did not fit the caller's buffer.
type pcmQueue struct {
	buf []byte
	pos int64
}

func (q *pcmQueue) drain(p []byte) (int, bool) {
	if len(q.buf) == 0 {
		return 0, false
	}
	n := copy(p, q.buf)
	q.buf = q.buf[n:]
	q.pos += int64(n)
	return n, true
}

func (q *pcmQueue) deliver(p, raw []byte) int {
	n := copy(p, raw)
	if n < len(raw) {
		q.buf = raw[n:]
	}
	q.pos += int64(n)
	return n
}

// seekTarget resolves a Seek request to an absolute byte offset clamped to [0, total].
func seekTarget(offset int64, whence int, pos, total int64) int64 {
	var next int64
	switch whence {
	case io.SeekStart:
		next = offset
	case io.SeekCurrent:
		next = pos + offset
	case io.SeekEnd:
		next = total + offset
	}
	return max(0, min(next, total))
}

func clamp16(sample int) int16 {
	switch {
	case sample > 32767:
		return 32767
	case sample < -32768:
		return -32768
	}
	return int16(sample)
}

// --- MP3 ---

type mp3Decoder struct {
	dec *mp3.Decoder
}

func newMP3Decoder(f *os.File) (*mp3Decoder, error) {
	dec, err := mp3.NewDecoder(f)
	if err != nil {
		return nil, fmt.Errorf("decoding MP3: %w", err)
	}
	return &mp3Decoder{dec: dec}, nil
}

func (d *mp3Decoder) Read(p []byte) (int, error) { return d.dec.Read(p) }
func (d *mp3Decoder) Seek(offset int64, whence int) (int64, error) {
	return d.dec.Seek(offset, whence)
}
func (d *mp3Decoder) Length() int64     { return d.dec.Length() }
func (d *mp3Decoder) SampleRate() int   { return d.dec.SampleRate() }
func (d *mp3Decoder) ChannelCount() int { return 2 }

// --- WAV ---

type wavDecoder struct {
	pcmQueue
	file         *os.File
	totalBytes   int64
	pcmStart     int64
	sampleRate   int
	channels     int
	srcBitDepth  int
	srcFrameSize int64
}

func newWAVDecoder(f *os.File) (*wavDecoder, error) {
	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return nil, fmt.Errorf("invalid WAV file")
	}
	if err := dec.FwdToPCM(); err != nil {
		return nil, fmt.Errorf("reading WAV PCM data: %w", err)
	}

	channels := int(dec.NumChans)
	bitDepth := int(dec.BitDepth)
	switch bitDepth {
	case 8, 16, 24, 32:
	default:
		return nil, fmt.Errorf("unsupported WAV bit depth: %d", bitDepth)
	}
	if channels < 1 {
		return nil, fmt.Errorf("unsupported WAV channel count: %d", channels)
	}
	srcFrameSize := int64(channels) * int64(bitDepth) / 8

	pcmStart, err := f.Seek(0, io.SeekCurrent)
	if err != nil {
		return nil, fmt.Errorf("getting PCM start position: %w", err)
	}

	frames := dec.PCMLen() / srcFrameSize
	return &wavDecoder{
		file:         f,
		sampleRate:   int(dec.SampleRate),
		channels:     channels,
		srcBitDepth:  bitDepth,
		srcFrameSize: srcFrameSize,
		totalBytes:   frames * int64(channels) * bytesPerSample,
		pcmStart:     pcmStart,
	}, nil
}

func (d *wavDecoder) Read(p []byte) (int, error) {
	if n, ok := d.drain(p); ok {
		return n, nil
	}
	if d.pos >= d.totalBytes {
		return 0, io.EOF
	}

	srcBytesPerSample := d.srcBitDepth / 8
	want := max(len(p)/bytesPerSample, 1)
	if remaining := int((d.totalBytes - d.pos) / bytesPerSample); want > remaining {
		want = remaining
	}
	src := make([]byte, want*srcBytesPerSample)
	n, err := io.ReadFull(d.file, src)
	samples := n / srcBytesPerSample
	if samples == 0 {
		if err == nil || err == io.ErrUnexpectedEOF {
			err = io.EOF
		}
		return 0, err
	}

	raw := make([]byte, samples*bytesPerSample)
	for i := range samples {
		binary.LittleEndian.PutUint16(raw[i*bytesPerSample:], uint16(d.convert(src[i*srcBytesPerSample:])))
	}

	if err == io.ErrUnexpectedEOF {
		err = io.EOF
	}
	return d.deliver(p, raw), err
}

// convert reads one source sample and rescales it to 16 bits.
func (d *wavDecoder) convert(b []byte) int16 {
	switch d.srcBitDepth {
	case 8:
		// 8-bit WAV is unsigned
		return clamp16((int(b[0]) - 128) << 8)
	case 24:
		s := int32(b[0]) | int32(b[1])<<8 | int32(b[2])<<16
		if s&0x800000 != 0 {
			s |= ^0xFFFFFF
		}
		return clamp16(int(s >> 8))
	case 32:
		return clamp16(int(int32(binary.LittleEndian.Uint32(b)) >> 16))
	default:
		return int16(binary.LittleEndian.Uint16(b))
	}
}

func (d *wavDecoder) Seek(offset int64, whence int) (int64, error) {
	next := seekTarget(offset, whence, d.pos, d.totalBytes)
	frame := next / (int64(d.channels) * bytesPerSample)
	if _, err := d.file.Seek(d.pcmStart+frame*d.srcFrameSize, io.SeekStart); err != nil {
		return d.pos, err
	}
	d.buf = nil
	d.pos = frame * int64(d.channels) * bytesPerSample
	return d.pos, nil
}

func (d *wavDecoder) Length() int64     { return d.totalBytes }
func (d *wavDecoder) SampleRate() int   { return d.sampleRate }
func (d *wavDecoder) ChannelCount() int { return d.channels }

// --- FLAC ---

type flacDecoder struct {
	pcmQueue
	stream     *flac.Stream
	totalBytes int64
	sampleRate int
	channels   int
	bps        int
}

func newFLACDecoder(f *os.File) (*flacDecoder, error) {
	stream, err := flac.NewSeek(f)
	if err != nil {
		return nil, fmt.Errorf("decoding FLAC: %w", err)
	}

	info := stream.Info
	channels := int(info.NChannels)
	return &flacDecoder{
		stream:     stream,
		sampleRate: int(info.SampleRate),
		channels:   channels,
		bps:        int(info.BitsPerSample),
		totalBytes: int64(info.NSamples) * int64(channels) * bytesPerSample,
	}, nil
}

func (d *flacDecoder) Read(p []byte) (int, error) {
	if n, ok := d.drain(p); ok {
		return n, nil
	}

	frame, err := d.stream.ParseNext()
	if err != nil {
		return 0, err
	}

	nSamples := int(frame.Subframes[0].NSamples)
	raw := make([]byte, nSamples*d.channels*bytesPerSample)
	for i := range nSamples {
		for ch := range d.channels {
			sample := int(frame.Subframes[ch].Samples[i])
			switch {
			case d.bps > 16:
				sample >>= d.bps - 16
			case d.bps < 16:
				sample <<= 16 - d.bps
			}
			binary.LittleEndian.PutUint16(raw[(i*d.channels+ch)*bytesPerSample:], uint16(clamp16(sample)))
		}
	}
	return d.deliver(p, raw), nil
}

func (d *flacDecoder) Seek(offset int64, whence int) (int64, error) {
	next := seekTarget(offset, whence, d.pos, d.totalBytes)
	frameSize := int64(d.channels) * bytesPerSample
	sample, err := d.stream.Seek(uint64(next / frameSize))
	if err != nil {
		return d.pos, err
	}
	d.buf = nil
	d.pos = int64(sample) * frameSize
	return d.pos, nil
}

func (d *flacDecoder) Length() int64     { return d.totalBytes }
func (d *flacDecoder) SampleRate() int   { return d.sampleRate }
func (d *flacDecoder) ChannelCount() int { return d.channels }

// --- OGG Vorbis ---

type oggDecoder struct {
	pcmQueue
	reader     *oggvorbis.Reader
	totalBytes int64
	sampleRate int
	channels   int
}

func newOGGDecoder(f *os.File) (*oggDecoder, error) {
	reader, err := oggvorbis.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("decoding OGG: %w", err)
	}

	channels := reader.Channels()
	return &oggDecoder{
		reader:     reader,
		sampleRate: reader.SampleRate(),
		channels:   channels,
		totalBytes: reader.Length() * int64(channels) * bytesPerSample,
	}, nil
}

func (d *oggDecoder) Read(p []byte) (int, error) {
	if n, ok := d.drain(p); ok {
		return n, nil
	}

	samples := make([]float32, max(len(p)/bytesPerSample, d.channels))
	n, err := d.reader.Read(samples)
	if n == 0 {
		if err == nil {
			err = io.EOF
		}
		return 0, err
	}

	raw := make([]byte, n*bytesPerSample)
	for i, s := range samples[:n] {
		s = max(-1, min(s, 1))
		binary.LittleEndian.PutUint16(raw[i*bytesPerSample:], uint16(int16(s*32767)))
	}
	return d.deliver(p, raw), err
}

func (d *oggDecoder) Seek(offset int64, whence int) (int64, error) {
	next := seekTarget(offset, whence, d.pos, d.totalBytes)
	frameSize := int64(d.channels) * bytesPerSample
	if err := d.reader.SetPosition(next / frameSize); err != nil {
		return d.pos, err
	}
	d.buf = nil
	d.pos = next - next%frameSize
	return d.pos, nil
}

func (d *oggDecoder) Length() int64     { return d.totalBytes }
func (d *oggDecoder) SampleRate() int   { return d.sampleRate }
func (d *oggDecoder) ChannelCount() int { return d.channels }
