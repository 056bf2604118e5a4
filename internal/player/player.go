// Package player wraps beep/v2 speaker output behind the small surface the
// orchestrator drives: play/stop/pause, percent volume, and an end-of-track
// notification.
package player

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/effects"
	"github.com/gopxl/beep/v2/flac"
	"github.com/gopxl/beep/v2/mp3"
	"github.com/gopxl/beep/v2/speaker"
	"github.com/gopxl/beep/v2/vorbis"
	"github.com/gopxl/beep/v2/wav"
)

// sampleRate is the fixed speaker rate; tracks at other rates are resampled.
const sampleRate = beep.SampleRate(44100)

var (
	initOnce sync.Once
	initErr  error
)

// ensureSpeaker initializes the audio device once for the whole process.
func ensureSpeaker() error {
	initOnce.Do(func() {
		initErr = speaker.Init(sampleRate, sampleRate.N(time.Second/10))
	})
	return initErr
}

// volumeFor converts a 0-100 percent level to the effects.Volume fields.
// Base 2 makes each unit of Volume a doubling, so log2 maps percent to gain.
func volumeFor(percent int) (vol float64, silent bool) {
	if percent <= 0 {
		return 0, true
	}
	if percent > 100 {
		percent = 100
	}
	return math.Log2(float64(percent) / 100), false
}

// decodeFile opens path and picks a decoder by extension.
func decodeFile(path string) (*os.File, beep.StreamSeekCloser, beep.Format, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, beep.Format{}, fmt.Errorf("failed to open track: %w", err)
	}

	var (
		streamer beep.StreamSeekCloser
		format   beep.Format
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".mp3":
		streamer, format, err = mp3.Decode(f)
	case ".wav":
		streamer, format, err = wav.Decode(f)
	case ".ogg":
		streamer, format, err = vorbis.Decode(f)
	case ".flac":
		streamer, format, err = flac.Decode(f)
	default:
		_ = f.Close()
		return nil, nil, beep.Format{}, fmt.Errorf("unsupported audio format: %s", path)
	}
	if err != nil {
		_ = f.Close()
		return nil, nil, beep.Format{}, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return f, streamer, format, nil
}

// Player plays one track at a time through the speaker.
type Player struct {
	mu sync.Mutex

	file     *os.File
	streamer beep.StreamSeekCloser
	ctrl     *beep.Ctrl
	volume   *effects.Volume

	percent    int
	playing    bool
	paused     bool
	generation uint64 // bumped on every Play/Stop; stale end callbacks are discarded
	onTrackEnd func()
}

// New creates a player at the configured music volume.
func New(musicVolume int) *Player {
	return &Player{percent: musicVolume}
}

// OnTrackEnd registers the callback run (in its own goroutine) when a track
// finishes naturally. Tracks stopped by Stop or replaced by Play do not fire.
func (p *Player) OnTrackEnd(fn func()) {
	p.mu.Lock()
	p.onTrackEnd = fn
	p.mu.Unlock()
}

// Play stops any current track and starts the file at path.
func (p *Player) Play(path string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.stopLocked()

	file, streamer, format, err := decodeFile(path)
	if err != nil {
		return err
	}

	if err := ensureSpeaker(); err != nil {
		_ = streamer.Close()
		_ = file.Close()
		return fmt.Errorf("failed to init speaker: %w", err)
	}

	var stream beep.Streamer = streamer
	if format.SampleRate != sampleRate {
		stream = beep.Resample(4, format.SampleRate, sampleRate, streamer)
	}

	p.file = file
	p.streamer = streamer
	p.ctrl = &beep.Ctrl{Streamer: stream}
	p.volume = &effects.Volume{Streamer: p.ctrl, Base: 2}
	vol, silent := volumeFor(p.percent)
	p.volume.Volume = vol
	p.volume.Silent = silent

	p.generation++
	gen := p.generation
	speaker.Play(beep.Seq(p.volume, beep.Callback(func() {
		// The speaker goroutine owns this call; hop off it before taking
		// locks or starting the next track.
		go p.trackEnded(gen)
	})))

	p.playing = true
	p.paused = false
	return nil
}

func (p *Player) trackEnded(gen uint64) {
	p.mu.Lock()
	if gen != p.generation || !p.playing {
		p.mu.Unlock()
		return
	}
	p.playing = false
	p.closeTrackLocked()
	fn := p.onTrackEnd
	p.mu.Unlock()

	if fn != nil {
		fn()
	}
}

// Stop halts the current track without firing the end-of-track callback.
func (p *Player) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopLocked()
}

func (p *Player) stopLocked() {
	p.generation++
	if p.ctrl != nil {
		speaker.Lock()
		p.ctrl.Streamer = nil // drains the stream; the stale callback is discarded
		speaker.Unlock()
	}
	p.closeTrackLocked()
	p.playing = false
	p.paused = false
}

func (p *Player) closeTrackLocked() {
	if p.streamer != nil {
		_ = p.streamer.Close()
		p.streamer = nil
	}
	if p.file != nil {
		_ = p.file.Close()
		p.file = nil
	}
	p.ctrl = nil
	p.volume = nil
}

// SetPaused pauses or resumes the current track.
func (p *Player) SetPaused(paused bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ctrl != nil {
		speaker.Lock()
		p.ctrl.Paused = paused
		speaker.Unlock()
	}
	p.paused = paused
}

// SetVolume sets the playback level as a 0-100 percent.
func (p *Player) SetVolume(percent int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.percent = percent
	if p.volume != nil {
		vol, silent := volumeFor(percent)
		speaker.Lock()
		p.volume.Volume = vol
		p.volume.Silent = silent
		speaker.Unlock()
	}
}

// IsPlaying reports whether a track is loaded and not paused.
func (p *Player) IsPlaying() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.playing && !p.paused
}
