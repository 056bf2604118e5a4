package voice

import (
	"context"
	"log"
	"strings"
	"sync"
)

// pendingLimit bounds the utterance queue. A stuck engine drops lines
// instead of blocking the radio.
const pendingLimit = 8

// Speaker serializes utterances through one worker goroutine: callers never
// hear two of its lines overlap, and Say never blocks the caller.
type Speaker struct {
	engine Engine

	mu       sync.Mutex
	voices   []Voice
	selected Voice

	pending chan string
	done    chan struct{}
	once    sync.Once
}

// NewSpeaker enumerates the engine's voices and starts the utterance worker.
// Enumeration failure is degraded to an empty voice list with a log line;
// speaking then uses the engine default voice.
func NewSpeaker(engine Engine) *Speaker {
	voices, err := engine.Voices()
	if err != nil {
		log.Printf("voice: enumeration failed, using engine default: %v", err)
	}
	s := &Speaker{
		engine:  engine,
		voices:  voices,
		pending: make(chan string, pendingLimit),
		done:    make(chan struct{}),
	}
	go s.worker()
	return s
}

func (s *Speaker) worker() {
	defer close(s.done)
	for text := range s.pending {
		s.mu.Lock()
		voiceID := s.selected.ID
		s.mu.Unlock()
		if err := s.engine.Speak(context.Background(), voiceID, text); err != nil {
			log.Printf("voice: %v", err)
		}
	}
}

// List returns the enumerated voices in engine order.
func (s *Speaker) List() []Voice {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Voice, len(s.voices))
	copy(out, s.voices)
	return out
}

// Select picks the first voice whose name contains match, case-insensitively,
// and makes it the active voice. Returns false when nothing matches; the
// active voice is left unchanged in that case.
func (s *Speaker) Select(match string) (Voice, bool) {
	needle := strings.ToLower(strings.TrimSpace(match))
	if needle == "" {
		return Voice{}, false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, v := range s.voices {
		if strings.Contains(strings.ToLower(v.Name), needle) {
			s.selected = v
			return v, true
		}
	}
	return Voice{}, false
}

// Selected returns the active voice, zero when none was selected.
func (s *Speaker) Selected() Voice {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selected
}

// Say queues text for speech and returns immediately. When the queue is
// full the line is dropped with a log entry rather than blocking playback.
func (s *Speaker) Say(text string) {
	if strings.TrimSpace(text) == "" {
		return
	}
	select {
	case s.pending <- text:
	default:
		log.Printf("voice: utterance queue full, dropping line")
	}
}

// Close stops the worker after the queued utterances finish. Idempotent.
func (s *Speaker) Close() {
	s.once.Do(func() {
		close(s.pending)
	})
	<-s.done
}
