package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/1mb-dev/homespin/internal/history"
	"github.com/1mb-dev/homespin/internal/metrics"
	"github.com/1mb-dev/homespin/internal/radio"
	"github.com/1mb-dev/homespin/internal/voice"
)

// fakeRadio implements Radio with canned state and call recording
type fakeRadio struct {
	now        radio.TrackInfo
	state      radio.State
	mood       string
	voices     []voice.Voice
	selected   voice.Voice
	entries    []history.Entry
	rebuildErr error

	skips     int
	previous  int
	pauses    int
	resumes   int
	rebuilds  int
	performed []string
}

func (f *fakeRadio) CurrentTrack() radio.TrackInfo { return f.now }

func (f *fakeRadio) History(limit int) []history.Entry {
	if limit > 0 && limit < len(f.entries) {
		return f.entries[len(f.entries)-limit:]
	}
	return f.entries
}

func (f *fakeRadio) State() radio.State        { return f.state }
func (f *fakeRadio) Skip()                     { f.skips++ }
func (f *fakeRadio) Previous()                 { f.previous++ }
func (f *fakeRadio) Pause()                    { f.pauses++ }
func (f *fakeRadio) Resume()                   { f.resumes++ }
func (f *fakeRadio) SetMood(text string)       { f.mood = strings.TrimSpace(text) }
func (f *fakeRadio) Mood() string              { return f.mood }
func (f *fakeRadio) ListVoices() []voice.Voice { return f.voices }

func (f *fakeRadio) SelectVoice(match string) (voice.Voice, bool) {
	for _, v := range f.voices {
		if strings.Contains(strings.ToLower(v.Name), strings.ToLower(match)) {
			f.selected = v
			return v, true
		}
	}
	return voice.Voice{}, false
}

func (f *fakeRadio) Voice() voice.Voice { return f.selected }

func (f *fakeRadio) Perform(text string) radio.Result {
	f.performed = append(f.performed, text)
	return radio.Result{Input: text, Action: "skip", OK: true}
}

func (f *fakeRadio) Rebuild() error {
	f.rebuilds++
	return f.rebuildErr
}

var _ Radio = (*fakeRadio)(nil)

func newTestMux(f *fakeRadio) *http.ServeMux {
	mux := http.NewServeMux()
	NewHandler(f, &metrics.Metrics{}, 500).RegisterRoutes(mux)
	return mux
}

func TestNow(t *testing.T) {
	f := &fakeRadio{
		now:   radio.TrackInfo{Album: "Night Tapes", Track: "Drive"},
		state: radio.StatePlaying,
		mood:  "late night",
	}
	mux := newTestMux(f)

	req := httptest.NewRequest(http.MethodGet, "/api/now", nil)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	var got NowInfo
	if err := json.NewDecoder(w.Body).Decode(&got); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	want := NowInfo{Album: "Night Tapes", Track: "Drive", State: "playing", Mood: "late night"}
	if got != want {
		t.Errorf("now = %+v, want %+v", got, want)
	}
}

func TestNowRejectsPost(t *testing.T) {
	mux := newTestMux(&fakeRadio{})

	req := httptest.NewRequest(http.MethodPost, "/api/now", nil)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want %d", w.Code, http.StatusMethodNotAllowed)
	}
}

func TestHistory(t *testing.T) {
	f := &fakeRadio{}
	for i := 0; i < 3; i++ {
		f.entries = append(f.entries, history.Entry{
			ID:         "id",
			Timestamp:  time.Date(2025, 6, 1, 12, 0, i, 0, time.Local),
			Album:      "A",
			Track:      "t",
			Commentary: "c",
		})
	}
	mux := newTestMux(f)

	tests := []struct {
		name       string
		path       string
		wantStatus int
		wantLen    int
	}{
		{"all entries", "/api/history", http.StatusOK, 3},
		{"limited", "/api/history?limit=2", http.StatusOK, 2},
		{"bad limit", "/api/history?limit=zebra", http.StatusBadRequest, 0},
		{"negative limit", "/api/history?limit=-1", http.StatusBadRequest, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			if tt.wantStatus != http.StatusOK {
				return
			}
			var got []HistoryEntry
			if err := json.NewDecoder(w.Body).Decode(&got); err != nil {
				t.Fatalf("failed to decode response: %v", err)
			}
			if len(got) != tt.wantLen {
				t.Errorf("got %d entries, want %d", len(got), tt.wantLen)
			}
			if len(got) > 0 && got[0].PlayedAt == "" {
				t.Error("entry missing played_at")
			}
		})
	}
}

func TestHistoryEmptyIsArray(t *testing.T) {
	mux := newTestMux(&fakeRadio{})

	req := httptest.NewRequest(http.MethodGet, "/api/history", nil)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	if body := strings.TrimSpace(w.Body.String()); body != "[]" {
		t.Errorf("empty history body = %q, want []", body)
	}
}

func TestTransportVerbs(t *testing.T) {
	f := &fakeRadio{}
	mux := newTestMux(f)

	for _, path := range []string{"/skip", "/previous", "/pause", "/play"} {
		req := httptest.NewRequest(http.MethodPost, path, nil)
		w := httptest.NewRecorder()
		mux.ServeHTTP(w, req)
		if w.Code != http.StatusNoContent {
			t.Errorf("POST %s status = %d, want %d", path, w.Code, http.StatusNoContent)
		}

		req = httptest.NewRequest(http.MethodGet, path, nil)
		w = httptest.NewRecorder()
		mux.ServeHTTP(w, req)
		if w.Code != http.StatusMethodNotAllowed {
			t.Errorf("GET %s status = %d, want %d", path, w.Code, http.StatusMethodNotAllowed)
		}
	}

	if f.skips != 1 || f.previous != 1 || f.pauses != 1 || f.resumes != 1 {
		t.Errorf("verb counts = %d/%d/%d/%d, want 1 each", f.skips, f.previous, f.pauses, f.resumes)
	}
}

func TestCommand(t *testing.T) {
	f := &fakeRadio{}
	mux := newTestMux(f)

	req := httptest.NewRequest(http.MethodPost, "/command", strings.NewReader(`{"command":"skip"}`))
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	var res radio.Result
	if err := json.NewDecoder(w.Body).Decode(&res); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if !res.OK || res.Action != "skip" {
		t.Errorf("result = %+v", res)
	}
	if len(f.performed) != 1 || f.performed[0] != "skip" {
		t.Errorf("performed = %v", f.performed)
	}
}

func TestCommandBadBody(t *testing.T) {
	mux := newTestMux(&fakeRadio{})

	req := httptest.NewRequest(http.MethodPost, "/command", strings.NewReader(`{broken`))
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestMood(t *testing.T) {
	f := &fakeRadio{}
	mux := newTestMux(f)

	req := httptest.NewRequest(http.MethodPost, "/api/mood", strings.NewReader(`{"mood":"rainy sunday"}`))
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if f.mood != "rainy sunday" {
		t.Errorf("mood = %q, want %q", f.mood, "rainy sunday")
	}

	// Empty mood clears the hint.
	req = httptest.NewRequest(http.MethodPost, "/api/mood", strings.NewReader(`{"mood":""}`))
	w = httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	if w.Code != http.StatusOK || f.mood != "" {
		t.Errorf("mood clear: status = %d, mood = %q", w.Code, f.mood)
	}
}

func TestVoices(t *testing.T) {
	f := &fakeRadio{voices: []voice.Voice{{Name: "english", ID: "en"}, {Name: "german", ID: "de"}}}
	mux := newTestMux(f)

	req := httptest.NewRequest(http.MethodGet, "/api/voices", nil)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	var voices []voice.Voice
	if err := json.NewDecoder(w.Body).Decode(&voices); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(voices) != 2 {
		t.Errorf("got %d voices, want 2", len(voices))
	}
}

func TestSelectVoice(t *testing.T) {
	f := &fakeRadio{voices: []voice.Voice{{Name: "english", ID: "en"}}}
	mux := newTestMux(f)

	tests := []struct {
		name       string
		body       string
		wantStatus int
	}{
		{"match", `{"match":"eng"}`, http.StatusOK},
		{"no match", `{"match":"klingon"}`, http.StatusNotFound},
		{"empty match", `{"match":""}`, http.StatusBadRequest},
		{"bad body", `{broken`, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/voice", strings.NewReader(tt.body))
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, req)
			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
		})
	}

	if f.selected.ID != "en" {
		t.Errorf("selected voice = %+v, want en", f.selected)
	}
}

func TestRebuild(t *testing.T) {
	f := &fakeRadio{}
	mux := newTestMux(f)

	req := httptest.NewRequest(http.MethodPost, "/rebuild", nil)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	if w.Code != http.StatusNoContent {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNoContent)
	}
	if f.rebuilds != 1 {
		t.Errorf("rebuild calls = %d, want 1", f.rebuilds)
	}
}

func TestRebuildFailure(t *testing.T) {
	f := &fakeRadio{rebuildErr: errors.New("no tracks")}
	mux := newTestMux(f)

	req := httptest.NewRequest(http.MethodPost, "/rebuild", nil)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want %d", w.Code, http.StatusInternalServerError)
	}
}

func TestStats(t *testing.T) {
	m := &metrics.Metrics{}
	m.RecordTrack()
	m.RecordSkip()

	mux := http.NewServeMux()
	NewHandler(&fakeRadio{}, m, 500).RegisterRoutes(mux)

	req := httptest.NewRequest(http.MethodGet, "/api/stats", nil)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	var snap map[string]any
	if err := json.NewDecoder(w.Body).Decode(&snap); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if got := snap["tracks_played"].(float64); got != 1 {
		t.Errorf("tracks_played = %v, want 1", got)
	}
	if got := snap["skips_total"].(float64); got != 1 {
		t.Errorf("skips_total = %v, want 1", got)
	}
}

func TestHealthz(t *testing.T) {
	mux := newTestMux(&fakeRadio{})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if w.Body.String() != "ok" {
		t.Errorf("body = %q, want ok", w.Body.String())
	}
}
