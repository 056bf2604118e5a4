// Package voice speaks the DJ's lines through a text-to-speech engine.
package voice

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// Voice is one selectable engine voice.
type Voice struct {
	Name string `json:"name"`
	ID   string `json:"id"`
}

// Engine abstracts a speech synthesizer. Speak blocks for the duration of
// the utterance.
type Engine interface {
	Voices() ([]Voice, error)
	Speak(ctx context.Context, voiceID, text string) error
}

// Espeak drives the espeak binary through os/exec.
type Espeak struct {
	binary string
}

// NewEspeak creates an espeak-backed engine. binary defaults to "espeak".
func NewEspeak(binary string) *Espeak {
	if binary == "" {
		binary = "espeak"
	}
	return &Espeak{binary: binary}
}

// Voices enumerates available voices via `espeak --voices`. Order is the
// engine's enumeration order, stable only within one process.
func (e *Espeak) Voices() ([]Voice, error) {
	out, err := exec.Command(e.binary, "--voices").Output()
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate voices: %w", err)
	}
	return parseVoices(string(out)), nil
}

// parseVoices reads `espeak --voices` table output. Columns:
// Pty Language Age/Gender VoiceName File Other-Languages
func parseVoices(out string) []Voice {
	var voices []Voice
	lines := strings.Split(out, "\n")
	for i, line := range lines {
		if i == 0 {
			continue // header
		}
		fields := strings.Fields(line)
		if len(fields) < 5 {
			continue
		}
		voices = append(voices, Voice{Name: fields[3], ID: fields[4]})
	}
	return voices
}

// Speak runs one blocking utterance. Empty voiceID uses the engine default.
func (e *Espeak) Speak(ctx context.Context, voiceID, text string) error {
	args := []string{}
	if voiceID != "" {
		args = append(args, "-v", voiceID)
	}
	args = append(args, text)
	if err := exec.CommandContext(ctx, e.binary, args...).Run(); err != nil {
		return fmt.Errorf("failed to speak: %w", err)
	}
	return nil
}
