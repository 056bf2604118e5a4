package player

import (
	"log"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/speaker"

	"github.com/1mb-dev/homespin/internal/audio"
)

// Effects fires short one-shot clips by name from a directory. Each clip
// plays as its own independent stream mixed over the music, so FX never
// touch the main track's controls.
type Effects struct {
	dir  string
	exts []string
}

// NewEffects creates an FX player over dir. An empty dir disables FX.
func NewEffects(dir string, exts []string) *Effects {
	if len(exts) == 0 {
		exts = audio.DefaultExtensions
	}
	return &Effects{dir: dir, exts: exts}
}

// Play fires the clip named name (extension resolved against the recognized
// set). Fire-and-forget: a missing clip is a silent no-op, decode or device
// trouble is logged and swallowed.
func (e *Effects) Play(name string) {
	path, ok := audio.FindClip(e.dir, name, e.exts)
	if !ok {
		return
	}

	file, streamer, format, err := decodeFile(path)
	if err != nil {
		log.Printf("fx: %v", err)
		return
	}

	if err := ensureSpeaker(); err != nil {
		_ = streamer.Close()
		_ = file.Close()
		log.Printf("fx: failed to init speaker: %v", err)
		return
	}

	var stream beep.Streamer = streamer
	if format.SampleRate != sampleRate {
		stream = beep.Resample(4, format.SampleRate, sampleRate, streamer)
	}

	speaker.Play(beep.Seq(stream, beep.Callback(func() {
		_ = streamer.Close()
		_ = file.Close()
	})))
}
