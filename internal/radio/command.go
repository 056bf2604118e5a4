package radio

import (
	"fmt"
	"strings"
)

// Result reports the outcome of one free-text command.
type Result struct {
	Input  string `json:"input"`
	Action string `json:"action"`
	OK     bool   `json:"ok"`
	Detail string `json:"detail,omitempty"`
}

// Perform parses and executes a free-text control command. Recognized forms
// (case-insensitive, whitespace-trimmed):
//
//	skip | next              advance to the next track
//	prev | previous | back   go back one track
//	pause | stop             pause playback
//	play                     resume playback
//	mood <text>              set the mood hint
//	mood                     clear the mood hint
//	now                      current track snapshot
//	voice <substring>        select a TTS voice
//
// Anything else yields an unrecognized-command result, never a crash.
func (r *Radio) Perform(text string) Result {
	res := Result{Input: text}

	fields := strings.Fields(text)
	if len(fields) == 0 {
		res.Action = "unknown"
		res.Detail = "empty command"
		return res
	}
	verb := strings.ToLower(fields[0])
	arg := strings.Join(fields[1:], " ")

	switch verb {
	case "skip", "next":
		r.Skip()
		res.Action, res.OK = "skip", true
	case "prev", "previous", "back":
		r.Previous()
		res.Action, res.OK = "previous", true
	case "pause", "stop":
		r.Pause()
		res.Action, res.OK = "pause", true
	case "play":
		r.Resume()
		res.Action, res.OK = "play", true
	case "mood":
		r.SetMood(arg)
		res.Action, res.OK = "mood", true
		if arg == "" {
			res.Detail = "mood cleared"
		} else {
			res.Detail = "mood set: " + arg
		}
	case "now":
		info := r.CurrentTrack()
		res.Action, res.OK = "now", true
		res.Detail = fmt.Sprintf("%s / %s", info.Album, info.Track)
	case "voice":
		v, ok := r.SelectVoice(arg)
		res.Action, res.OK = "voice", ok
		if ok {
			res.Detail = "voice selected: " + v.Name
		} else {
			res.Detail = "no voice matched"
		}
	default:
		res.Action = "unknown"
		res.Detail = fmt.Sprintf("unrecognized command %q", verb)
	}
	return res
}
