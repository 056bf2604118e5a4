package api

import (
	"encoding/json"
	"io"
	"log"
	"net/http"
	"strconv"

	"github.com/samber/lo"

	"github.com/1mb-dev/homespin/internal/history"
	"github.com/1mb-dev/homespin/internal/metrics"
	"github.com/1mb-dev/homespin/internal/radio"
	"github.com/1mb-dev/homespin/internal/voice"
)

// Radio is the orchestrator surface the HTTP layer drives
type Radio interface {
	CurrentTrack() radio.TrackInfo
	History(limit int) []history.Entry
	State() radio.State
	Skip()
	Previous()
	Pause()
	Resume()
	SetMood(text string)
	Mood() string
	ListVoices() []voice.Voice
	SelectVoice(match string) (voice.Voice, bool)
	Voice() voice.Voice
	Perform(text string) radio.Result
	Rebuild() error
}

// defaultHistoryLimit is the entry count returned when the client does not
// ask for one.
const defaultHistoryLimit = 50

// Handler holds dependencies for API handlers
type Handler struct {
	radio        Radio
	metrics      *metrics.Metrics
	historyLimit int
}

// NewHandler creates a new API handler. A nil metrics falls back to the
// process-wide instance; historyLimit caps history responses (non-positive
// means uncapped).
func NewHandler(r Radio, m *metrics.Metrics, historyLimit int) *Handler {
	if m == nil {
		m = metrics.Get()
	}
	return &Handler{radio: r, metrics: m, historyLimit: historyLimit}
}

// RegisterRoutes registers API routes on the given mux
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/now", h.now)
	mux.HandleFunc("/api/history", h.history)
	mux.HandleFunc("/api/state", h.state)
	mux.HandleFunc("/api/voices", h.listVoices)
	mux.HandleFunc("/api/stats", h.stats)
	mux.HandleFunc("/api/mood", h.mood)
	mux.HandleFunc("/api/voice", h.selectVoice)
	mux.HandleFunc("/skip", transport(h.radio.Skip))
	mux.HandleFunc("/previous", transport(h.radio.Previous))
	mux.HandleFunc("/pause", transport(h.radio.Pause))
	mux.HandleFunc("/play", transport(h.radio.Resume))
	mux.HandleFunc("/command", h.command)
	mux.HandleFunc("/rebuild", h.rebuild)
	mux.HandleFunc("/healthz", h.healthz)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("api: error encoding response: %v", err)
	}
}

// NowInfo is the now-playing snapshot
type NowInfo struct {
	Album string `json:"album"`
	Track string `json:"track"`
	State string `json:"state"`
	Mood  string `json:"mood,omitempty"`
}

func (h *Handler) now(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	info := h.radio.CurrentTrack()
	writeJSON(w, http.StatusOK, NowInfo{
		Album: info.Album,
		Track: info.Track,
		State: h.radio.State().String(),
		Mood:  h.radio.Mood(),
	})
}

// HistoryEntry is the wire form of one played track
type HistoryEntry struct {
	ID         string `json:"id"`
	PlayedAt   string `json:"played_at"`
	Album      string `json:"album"`
	Track      string `json:"track"`
	Commentary string `json:"commentary"`
}

func (h *Handler) history(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	limit := defaultHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = n
	}
	if h.historyLimit > 0 && (limit == 0 || limit > h.historyLimit) {
		limit = h.historyLimit
	}

	entries := lo.Map(h.radio.History(limit), func(e history.Entry, _ int) HistoryEntry {
		return HistoryEntry{
			ID:         e.ID,
			PlayedAt:   e.Timestamp.Format(history.TimeFormat),
			Album:      e.Album,
			Track:      e.Track,
			Commentary: e.Commentary,
		}
	})
	if entries == nil {
		entries = []HistoryEntry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

// StateInfo reports the orchestrator position and selections
type StateInfo struct {
	State string `json:"state"`
	Mood  string `json:"mood,omitempty"`
	Voice string `json:"voice,omitempty"`
}

func (h *Handler) state(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, StateInfo{
		State: h.radio.State().String(),
		Mood:  h.radio.Mood(),
		Voice: h.radio.Voice().Name,
	})
}

func (h *Handler) listVoices(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	voices := h.radio.ListVoices()
	if voices == nil {
		voices = []voice.Voice{}
	}
	writeJSON(w, http.StatusOK, voices)
}

func (h *Handler) stats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, h.metrics.Snapshot())
}

// transport wraps the four body-less control verbs
func transport(fn func()) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		fn()
		w.WriteHeader(http.StatusNoContent)
	}
}

func decodeBody(r *http.Request, v any) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, 4096))
	if err != nil {
		return err
	}
	return json.Unmarshal(body, v)
}

func (h *Handler) command(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		Command string `json:"command"`
	}
	if err := decodeBody(r, &req); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, h.radio.Perform(req.Command))
}

func (h *Handler) mood(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		Mood string `json:"mood"`
	}
	if err := decodeBody(r, &req); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	h.radio.SetMood(req.Mood)
	writeJSON(w, http.StatusOK, map[string]string{"mood": h.radio.Mood()})
}

func (h *Handler) selectVoice(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		Match string `json:"match"`
	}
	if err := decodeBody(r, &req); err != nil || req.Match == "" {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	v, ok := h.radio.SelectVoice(req.Match)
	if !ok {
		http.Error(w, "no voice matched", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (h *Handler) rebuild(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if err := h.radio.Rebuild(); err != nil {
		log.Printf("api: rebuild failed: %v", err)
		http.Error(w, "rebuild failed", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("ok")); err != nil {
		log.Printf("api: error writing health response: %v", err)
	}
}
