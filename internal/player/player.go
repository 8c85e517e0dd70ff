package player

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"
)

// ErrFormatMismatch is returned when a file does not match the format the
// audio device was opened with. The device can only be opened once per process.
var ErrFormatMismatch = errors.New("audio device already opened with a different format")

var (
	globalOtoCtx *oto.Context
	otoFormat    [2]int
	otoOnce      sync.Once
	otoInitErr   error
)

func initOto(sampleRate, channels int) (*oto.Context, error) {
	otoOnce.Do(func() {
		op := &oto.NewContextOptions{
			SampleRate:   sampleRate,
			ChannelCount: channels,
			Format:       oto.FormatSignedInt16LE,
		}
		var ready chan struct{}
		globalOtoCtx, ready, otoInitErr = oto.NewContext(op)
		if otoInitErr == nil {
			<-ready
			otoFormat = [2]int{sampleRate, channels}
		}
	})
	if otoInitErr != nil {
		return nil, otoInitErr
	}
	if otoFormat != [2]int{sampleRate, channels} {
		return nil, fmt.Errorf("%w: %d Hz/%d ch requested, %d Hz/%d ch open",
			ErrFormatMismatch, sampleRate, channels, otoFormat[0], otoFormat[1])
	}
	return globalOtoCtx, nil
}

// Player plays one audio file and mirrors the played PCM into a Tap.
type Player struct {
	src       *source
	decoder   audioDecoder
	counter   *tapReader
	otoCtx    *oto.Context
	otoPlayer *oto.Player
	volume    float64
	paused    bool
	done      chan struct{}
	stopMon   chan struct{}
	mu        sync.Mutex
	closed    bool
}

// New opens path, sets the tap format and starts playback.
func New(path string, tap Tap) (*Player, error) {
	src, err := openSource(path)
	if err != nil {
		return nil, err
	}

	ctx, err := initOto(src.decoder.SampleRate(), src.decoder.ChannelCount())
	if err != nil {
		src.file.Close()
		return nil, err
	}

	if tap != nil {
		tap.SetFormat(src.decoder.SampleRate(), src.decoder.ChannelCount())
	}

	p := &Player{
		src:     src,
		decoder: src.decoder,
		counter: &tapReader{reader: src.decoder, tap: tap},
		otoCtx:  ctx,
		volume:  0.8,
		done:    make(chan struct{}),
		stopMon: make(chan struct{}),
	}

	p.otoPlayer = ctx.NewPlayer(p.counter)
	p.otoPlayer.SetVolume(p.volume)
	p.otoPlayer.Play()

	go p.monitor(p.done)

	return p, nil
}

// monitor polls until the decoder is drained or the player is closed.
func (p *Player) monitor(done chan struct{}) {
	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-p.stopMon:
			return
		case <-ticker.C:
		}

		p.mu.Lock()
		finished := !p.paused && p.done == done && p.counter.Pos() >= p.decoder.Length()
		p.mu.Unlock()

		if finished {
			close(done)
			return
		}
	}
}

// Done returns a channel that closes when playback finishes.
func (p *Player) Done() <-chan struct{} {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.done
}

// SampleRate returns the sample rate of the playing file.
func (p *Player) SampleRate() int { return p.decoder.SampleRate() }

// Channels returns the channel count of the playing file.
func (p *Player) Channels() int { return p.decoder.ChannelCount() }

// Restart seeks to the beginning and resumes playback.
func (p *Player) Restart() error {
	if err := p.SeekTo(0, true); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	select {
	case <-p.done:
		p.done = make(chan struct{})
		go p.monitor(p.done)
	default:
	}
	return nil
}

// TogglePause toggles between play and pause.
func (p *Player) TogglePause() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.paused {
		p.otoPlayer.Play()
		p.paused = false
	} else {
		p.otoPlayer.Pause()
		p.paused = true
	}
}

// Pause pauses playback without toggling.
func (p *Player) Pause() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.otoPlayer != nil {
		p.otoPlayer.Pause()
	}
	p.paused = true
}

// Paused returns whether playback is paused.
func (p *Player) Paused() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.paused
}

// Position returns the current playback position.
func (p *Player) Position() time.Duration {
	return bytesToDuration(p.counter.Pos(), p.src.bytesPerSec)
}

// Duration returns the total duration of the track.
func (p *Player) Duration() time.Duration {
	return p.src.duration
}

// Seek moves playback by delta from the current position.
func (p *Player) Seek(delta time.Duration) error {
	p.mu.Lock()
	paused := p.paused
	p.mu.Unlock()
	return p.SeekTo(p.Position()+delta, !paused)
}

// SeekTo moves playback to target. The device buffer is flushed by
// recreating the oto player; playback resumes only when resume is set.
func (p *Player) SeekTo(target time.Duration, resume bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	pos := clampSeekByteOffset(target, p.src.bytesPerSec, p.decoder.Length(), p.src.frameSize)
	if _, err := p.decoder.Seek(pos, io.SeekStart); err != nil {
		return fmt.Errorf("seeking to %s: %w", target, err)
	}
	p.counter.SetPos(pos)

	if p.otoPlayer != nil {
		p.otoPlayer.Pause()
		p.otoPlayer = p.otoCtx.NewPlayer(p.counter)
		p.otoPlayer.SetVolume(p.volume)
	}
	p.paused = !resume
	if resume && p.otoPlayer != nil {
		p.otoPlayer.Play()
	}
	return nil
}

// Volume returns current volume (0.0 to 1.0).
func (p *Player) Volume() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.volume
}

// SetVolume sets volume (clamped to 0.0 - 1.0).
func (p *Player) SetVolume(v float64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.volume = max(0, min(v, 1))
	if p.otoPlayer != nil {
		p.otoPlayer.SetVolume(p.volume)
	}
}

// AdjustVolume adjusts volume by delta.
func (p *Player) AdjustVolume(delta float64) {
	p.mu.Lock()
	v := p.volume + delta
	p.mu.Unlock()
	p.SetVolume(v)
}

// Close stops playback and releases the file. It is safe to call twice.
func (p *Player) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return
	}
	p.closed = true
	if p.stopMon != nil {
		close(p.stopMon)
	}
	if p.otoPlayer != nil {
		p.otoPlayer.Pause()
	}
	if p.src != nil && p.src.file != nil {
		p.src.file.Close()
	}
}
