// Package radio is the playback/commentary orchestrator: it owns the queue
// cursor, sequences the duck → FX → commentary → speak → restore protocol,
// and serializes track-end events with user commands through one command
// queue consumed by a single supervisory loop.
package radio

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/1mb-dev/homespin/internal/history"
	"github.com/1mb-dev/homespin/internal/library"
	"github.com/1mb-dev/homespin/internal/metrics"
	"github.com/1mb-dev/homespin/internal/playlist"
	"github.com/1mb-dev/homespin/internal/voice"
)

// FallbackCommentary is spoken and logged when the commentary source fails
// or times out. Its presence in history marks a degraded fetch.
const FallbackCommentary = "No commentary this time. Straight into the next one."

var (
	ErrEmptyQueue     = errors.New("playback queue is empty")
	ErrAlreadyStarted = errors.New("radio already started")
)

// Player is the media engine surface the orchestrator drives exclusively.
type Player interface {
	Play(path string) error
	Stop()
	SetPaused(paused bool)
	SetVolume(percent int)
	IsPlaying() bool
	OnTrackEnd(fn func())
}

// Source produces commentary lines and mood-directed track suggestions.
// Both calls may be slow or fail; the orchestrator degrades either.
type Source interface {
	Commentary(ctx context.Context, album, track string) (string, error)
	SuggestTrack(ctx context.Context, mood, album, track string) (string, error)
}

// Speaker voices text asynchronously and owns voice selection.
type Speaker interface {
	List() []voice.Voice
	Select(match string) (voice.Voice, bool)
	Selected() voice.Voice
	Say(text string)
}

// FX fires short one-shot clips, fire-and-forget.
type FX interface {
	Play(name string)
}

// Options tunes the orchestrator's volumes and timeouts.
type Options struct {
	MusicVolume       int
	DuckVolume        int
	HealthInterval    time.Duration
	CommentaryTimeout time.Duration
	MoodTimeout       time.Duration
	Extensions        []string // recognized audio extensions, used by Rebuild
	StartFX           string   // clip fired at each track start
}

// Deps are the orchestrator's collaborators, all injected at construction.
type Deps struct {
	Player  Player
	Source  Source
	Speaker Speaker
	FX      FX
	History *history.Log
	Sinks   []history.Sink
	Metrics *metrics.Metrics
}

// TrackInfo is the now-playing snapshot handed to front-ends.
type TrackInfo struct {
	Album string `json:"album"`
	Track string `json:"track"`
}

type commandKind int

const (
	cmdTrackEnd commandKind = iota
	cmdSkip
	cmdPrevious
	cmdPause
	cmdResume
	cmdRebuild
)

// command is one unit of mutation. Track-end notifications and user commands
// are both producers into the same queue, so at most one mutation runs at a
// time without per-site locking.
type command struct {
	kind  commandKind
	index *library.Index  // rebuild only
	queue *playlist.Queue // rebuild only
	done  chan struct{}   // closed by the loop when handled, nil for fire-and-forget
}

// narration is one queued run of the on-air protocol.
type narration struct {
	album string
	track string
}

// Radio is the orchestrator. All mutating operations flow through its
// command queue; the mutex only protects snapshot reads against torn state.
type Radio struct {
	opts Options

	player  Player
	source  Source
	speaker Speaker
	fx      FX
	hist    *history.Log
	sinks   []history.Sink
	metrics *metrics.Metrics

	mu    sync.Mutex
	state State
	index *library.Index
	queue *playlist.Queue
	mood  string

	commands   chan command
	narrations chan narration
	stop       chan struct{}
	stopOnce   sync.Once
	workerDone chan struct{}
}

// New wires an orchestrator. It owns its collaborators' lifecycle from here
// to Stop; nothing is shared process-wide.
func New(opts Options, index *library.Index, queue *playlist.Queue, deps Deps) *Radio {
	if opts.HealthInterval <= 0 {
		opts.HealthInterval = 2 * time.Second
	}
	if opts.CommentaryTimeout <= 0 {
		opts.CommentaryTimeout = 15 * time.Second
	}
	if opts.MoodTimeout <= 0 {
		opts.MoodTimeout = 6 * time.Second
	}
	if opts.StartFX == "" {
		opts.StartFX = "airhorn"
	}
	m := deps.Metrics
	if m == nil {
		m = metrics.Get()
	}
	return &Radio{
		opts:       opts,
		player:     deps.Player,
		source:     deps.Source,
		speaker:    deps.Speaker,
		fx:         deps.FX,
		hist:       deps.History,
		sinks:      deps.Sinks,
		metrics:    m,
		state:      StateIdle,
		index:      index,
		queue:      queue,
		commands:   make(chan command, 32),
		narrations: make(chan narration, 16),
		stop:       make(chan struct{}),
		workerDone: make(chan struct{}),
	}
}

// Start begins playback at the current cursor and blocks in the supervisory
// loop until Stop or ctx cancellation. An empty queue is a fatal start error.
func (r *Radio) Start(ctx context.Context) error {
	r.mu.Lock()
	if r.state != StateIdle {
		r.mu.Unlock()
		return ErrAlreadyStarted
	}
	if r.queue.Len() == 0 {
		r.mu.Unlock()
		return ErrEmptyQueue
	}
	r.state = StatePlaying
	r.mu.Unlock()

	r.player.OnTrackEnd(func() {
		r.post(command{kind: cmdTrackEnd})
	})

	go r.narrationWorker()
	defer r.teardown()

	r.playCurrent()

	ticker := time.NewTicker(r.opts.HealthInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-r.stop:
			return nil
		case cmd := <-r.commands:
			r.handle(cmd)
		case <-ticker.C:
			r.heal()
		}
	}
}

// Stop requests terminal shutdown. Idempotent; Start returns shortly after.
func (r *Radio) Stop() {
	r.stopOnce.Do(func() {
		close(r.stop)
	})
}

// teardown halts the player, drains the narration worker, and closes sinks.
func (r *Radio) teardown() {
	r.mu.Lock()
	r.state = StateStopped
	r.mu.Unlock()

	r.player.Stop()
	close(r.narrations)
	<-r.workerDone
	for _, s := range r.sinks {
		if err := s.Close(); err != nil {
			log.Printf("history: failed to close sink: %v", err)
		}
	}
	log.Printf("radio: stopped")
}

// post delivers a command unless the radio is shutting down.
func (r *Radio) post(cmd command) {
	select {
	case r.commands <- cmd:
	case <-r.stop:
	}
}

// postWait delivers a command and waits for the loop to handle it, so user
// commands observe their own effects.
func (r *Radio) postWait(kind commandKind) {
	if !r.running() {
		return
	}
	done := make(chan struct{})
	select {
	case r.commands <- command{kind: kind, done: done}:
	case <-r.stop:
		return
	}
	select {
	case <-done:
	case <-r.stop:
	}
}

func (r *Radio) running() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	switch r.state {
	case StatePlaying, StateCommentating, StatePaused:
		return true
	}
	return false
}

func (r *Radio) handle(cmd command) {
	if cmd.done != nil {
		defer close(cmd.done)
	}
	switch cmd.kind {
	case cmdTrackEnd:
		r.advance()
	case cmdSkip:
		r.metrics.RecordSkip()
		r.advance()
	case cmdPrevious:
		r.mu.Lock()
		r.queue.Retreat()
		r.mu.Unlock()
		r.playCurrent()
	case cmdPause:
		r.mu.Lock()
		paused := r.state == StatePaused
		if !paused {
			r.state = StatePaused
		}
		r.mu.Unlock()
		if !paused {
			r.player.SetPaused(true)
		}
	case cmdResume:
		r.mu.Lock()
		paused := r.state == StatePaused
		if paused {
			r.state = StatePlaying
		}
		r.mu.Unlock()
		if paused {
			r.player.SetPaused(false)
		}
	case cmdRebuild:
		r.mu.Lock()
		r.index = cmd.index
		r.queue = cmd.queue
		r.mu.Unlock()
		r.playCurrent()
	}
}

// advance is the track-end transition, also the body of Skip: move the
// cursor, consume any mood hint, then begin playing the resulting entry.
func (r *Radio) advance() {
	r.mu.Lock()
	r.queue.Advance()
	mood := r.mood
	r.mood = "" // one-shot: consumed at the transition it biases
	cur := r.queue.Current()
	index := r.index
	r.mu.Unlock()

	if mood != "" {
		if entry, ok := r.moodLookup(mood, cur, index); ok {
			r.mu.Lock()
			r.queue.InsertFront(entry)
			r.mu.Unlock()
		}
	}
	r.playCurrent()
}

// moodLookup asks the commentary source for a track fitting the mood and
// fuzzy-matches the free-text answer against the library. Best-effort: any
// failure or non-match leaves the queue as advanced.
func (r *Radio) moodLookup(mood string, cur playlist.Entry, ix *library.Index) (playlist.Entry, bool) {
	ctx, cancel := context.WithTimeout(context.Background(), r.opts.MoodTimeout)
	defer cancel()

	answer, err := r.source.SuggestTrack(ctx, mood, cur.Album, cur.Track.DisplayName())
	if err != nil {
		log.Printf("radio: mood suggestion failed: %v", err)
		return playlist.Entry{}, false
	}
	track, ok := ix.Find(answer)
	if !ok {
		log.Printf("radio: no track matched mood answer %q", answer)
		return playlist.Entry{}, false
	}
	log.Printf("radio: mood %q matched %s / %s", mood, track.Album, track.Name)
	return playlist.Entry{Album: track.Album, Track: track}, true
}

// playCurrent is the shared begin-playing sub-protocol used by start,
// track-end, skip, previous, heal, and rebuild.
func (r *Radio) playCurrent() {
	r.mu.Lock()
	cur := r.queue.Current()
	r.state = StatePlaying
	r.mu.Unlock()

	r.player.Stop()
	r.player.SetVolume(r.opts.MusicVolume)
	if err := r.player.Play(cur.Track.Path); err != nil {
		log.Printf("radio: failed to play %s: %v", cur.Track.Path, err)
	}
	r.metrics.RecordTrack()
	log.Printf("radio: now playing %s / %s", cur.Album, cur.Track.DisplayName())

	// FIFO hand-off keeps history append order equal to playback start
	// order while the slow commentary fetch stays off this loop.
	select {
	case r.narrations <- narration{album: cur.Album, track: cur.Track.DisplayName()}:
	case <-r.stop:
	}
}

// heal replays the current entry when the player reports not-playing while
// the orchestrator believes it should be.
func (r *Radio) heal() {
	// A queued track-end command explains the silence; let it play out.
	if len(r.commands) > 0 {
		return
	}
	r.mu.Lock()
	playing := r.state == StatePlaying
	r.mu.Unlock()
	if !playing || r.player.IsPlaying() {
		return
	}
	log.Printf("radio: player stalled, replaying current entry")
	r.metrics.RecordHeal()
	r.playCurrent()
}

// narrationWorker runs the on-air protocol for each started track, one at a
// time in start order.
func (r *Radio) narrationWorker() {
	defer close(r.workerDone)
	for n := range r.narrations {
		r.narrate(n)
	}
}

// narrate ducks the music, fires the FX clip, fetches commentary (fallback
// on failure), dispatches speech, restores volume, and appends history.
// Speech is asynchronous: volume is restored as soon as the line is handed
// to the speaker, so a following track's duck cycle may begin while the
// previous utterance is still finishing. That overlap is inherited behavior.
func (r *Radio) narrate(n narration) {
	r.mu.Lock()
	if r.state == StatePlaying {
		r.state = StateCommentating
	}
	r.mu.Unlock()

	r.player.SetVolume(r.opts.DuckVolume)
	if r.fx != nil {
		r.fx.Play(r.opts.StartFX)
	}

	ctx, cancel := context.WithTimeout(context.Background(), r.opts.CommentaryTimeout)
	text, err := r.source.Commentary(ctx, n.album, n.track)
	cancel()
	if err != nil || strings.TrimSpace(text) == "" {
		if err != nil {
			log.Printf("radio: commentary failed, using fallback: %v", err)
		}
		text = FallbackCommentary
		r.metrics.RecordFallback()
	}

	r.speaker.Say(text)
	r.player.SetVolume(r.opts.MusicVolume)

	r.mu.Lock()
	if r.state == StateCommentating {
		r.state = StatePlaying
	}
	r.mu.Unlock()

	entry := history.NewEntry(n.album, n.track, text)
	r.hist.Append(entry)
	for _, s := range r.sinks {
		if err := s.Append(entry); err != nil {
			log.Printf("history: sink append failed: %v", err)
		}
	}
}

// Skip forces a track-end transition immediately.
func (r *Radio) Skip() {
	r.postWait(cmdSkip)
}

// Previous moves the cursor back one entry (non-wrapping) and plays it.
func (r *Radio) Previous() {
	r.postWait(cmdPrevious)
}

// Pause pauses the player. Cursor, queue, and history are untouched.
func (r *Radio) Pause() {
	r.postWait(cmdPause)
}

// Resume resumes a paused player.
func (r *Radio) Resume() {
	r.postWait(cmdResume)
}

// SetMood sets the hint consulted at the next track-end transition. Empty
// clears it. Hints replace each other; they are never queued.
func (r *Radio) SetMood(text string) {
	r.mu.Lock()
	r.mood = strings.TrimSpace(text)
	r.mu.Unlock()
}

// Mood returns the pending mood hint, empty when none.
func (r *Radio) Mood() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.mood
}

// ListVoices returns the speech engine's voices in enumeration order.
func (r *Radio) ListVoices() []voice.Voice {
	return r.speaker.List()
}

// SelectVoice picks the first voice whose name contains match,
// case-insensitively. Returns false when nothing matches.
func (r *Radio) SelectVoice(match string) (voice.Voice, bool) {
	return r.speaker.Select(match)
}

// Voice returns the active voice, zero when none selected.
func (r *Radio) Voice() voice.Voice {
	return r.speaker.Selected()
}

// CurrentTrack returns a snapshot of the entry at the cursor.
func (r *Radio) CurrentTrack() TrackInfo {
	r.mu.Lock()
	cur := r.queue.Current()
	r.mu.Unlock()
	return TrackInfo{Album: cur.Album, Track: cur.Track.DisplayName()}
}

// History returns up to limit recent entries, oldest first.
func (r *Radio) History(limit int) []history.Entry {
	return r.hist.Recent(limit)
}

// State returns the orchestrator's current state.
func (r *Radio) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Rebuild rescans the library root and replaces index and queue wholesale,
// cursor back to the front. A scan yielding no tracks is rejected and the
// old queue stays.
func (r *Radio) Rebuild() error {
	r.mu.Lock()
	root := r.index.Root()
	r.mu.Unlock()

	ix, err := library.Scan(root, r.opts.Extensions)
	if err != nil {
		return fmt.Errorf("failed to rebuild library: %w", err)
	}
	q := playlist.Build(ix)

	if !r.running() {
		r.mu.Lock()
		r.index = ix
		r.queue = q
		r.mu.Unlock()
		return nil
	}

	done := make(chan struct{})
	select {
	case r.commands <- command{kind: cmdRebuild, index: ix, queue: q, done: done}:
	case <-r.stop:
		return nil
	}
	select {
	case <-done:
	case <-r.stop:
	}
	return nil
}
