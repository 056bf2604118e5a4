package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/1mb-dev/homespin/internal/api"
	"github.com/1mb-dev/homespin/internal/cache"
	"github.com/1mb-dev/homespin/internal/commentary"
	"github.com/1mb-dev/homespin/internal/config"
	"github.com/1mb-dev/homespin/internal/history"
	"github.com/1mb-dev/homespin/internal/library"
	"github.com/1mb-dev/homespin/internal/metrics"
	"github.com/1mb-dev/homespin/internal/player"
	"github.com/1mb-dev/homespin/internal/playlist"
	"github.com/1mb-dev/homespin/internal/radio"
	"github.com/1mb-dev/homespin/internal/voice"
)

// version is set at build time via -ldflags "-X main.version=..."
var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		log.Fatal(err)
	}
}

// flagOverrides are the command-line knobs layered over the file config.
type flagOverrides struct {
	configFile string
	root       string
	csvPath    string
	dbPath     string
	fxDir      string
	model      string
	persona    string
	voiceMatch string
	musicVol   int
	duckVol    int
	port       int
	watch      bool
}

func newRootCmd() *cobra.Command {
	var flags flagOverrides

	root := &cobra.Command{
		Use:           "homespin",
		Short:         "A radio DJ for your local album library",
		Long:          "homespin shuffles your album directory into an endless set, with a local language model doing the talking between tracks.",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd, &flags)
			if err != nil {
				return err
			}
			return run(cmd.Context(), cfg)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&flags.configFile, "config", "config.yaml", "config file path")
	pf.StringVar(&flags.root, "root", "", "album library root (overrides config)")

	f := root.Flags()
	f.StringVar(&flags.csvPath, "csv", "", "CSV history file path")
	f.StringVar(&flags.dbPath, "db", "", "SQLite history database path")
	f.StringVar(&flags.fxDir, "fx", "", "sound effects directory")
	f.StringVar(&flags.model, "model", "", "Ollama model name")
	f.StringVar(&flags.persona, "persona", "", "DJ persona used as the system prompt")
	f.StringVar(&flags.voiceMatch, "voice", "", "TTS voice to select by name substring")
	f.IntVar(&flags.musicVol, "vol", 0, "music volume, 0-100")
	f.IntVar(&flags.duckVol, "duck", 0, "ducked volume during commentary, 0-100")
	f.IntVar(&flags.port, "port", 0, "HTTP control port")
	f.BoolVar(&flags.watch, "watch", false, "rescan the library on file changes")

	root.AddCommand(newAlbumsCmd(&flags), newVoicesCmd())
	return root
}

// loadConfig loads the file config and layers explicitly-set flags on top.
func loadConfig(cmd *cobra.Command, flags *flagOverrides) (*config.Config, error) {
	cfg, err := config.Load(flags.configFile, "config.local.yaml")
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	set := cmd.Flags().Changed
	if set("root") && flags.root != "" {
		cfg.Library.Root = flags.root
	}
	if set("csv") {
		cfg.History.CSVPath = flags.csvPath
	}
	if set("db") {
		cfg.History.DBPath = flags.dbPath
	}
	if set("fx") {
		cfg.FX.Dir = flags.fxDir
	}
	if set("model") {
		cfg.Commentary.Model = flags.model
	}
	if set("persona") {
		cfg.Commentary.Persona = flags.persona
	}
	if set("voice") {
		cfg.Voice.Match = flags.voiceMatch
	}
	if set("vol") {
		cfg.Player.MusicVolume = flags.musicVol
	}
	if set("duck") {
		cfg.Player.DuckVolume = flags.duckVol
	}
	if set("port") {
		cfg.Server.Port = flags.port
	}
	if set("watch") {
		cfg.Library.Watch = flags.watch
	}
	return cfg, nil
}

func run(ctx context.Context, cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Library
	ix, err := library.Scan(cfg.Library.Root, cfg.Library.Extensions)
	if err != nil {
		return fmt.Errorf("failed to scan library: %w", err)
	}
	queue := playlist.Build(ix)
	log.Printf("library: %d tracks across %d albums under %s",
		ix.Len(), len(ix.Albums()), cfg.Library.Root)

	// Commentary: Ollama behind a TTL cache
	commentaryTimeout, err := cfg.GetCommentaryTimeout()
	if err != nil {
		return fmt.Errorf("invalid commentary timeout: %w", err)
	}
	client := commentary.NewClient(cfg.Commentary.URL, cfg.Commentary.Model, cfg.Commentary.Persona, commentaryTimeout)

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	if client.Available(pingCtx) {
		log.Printf("commentary: ollama reachable at %s, model %s", cfg.Commentary.URL, client.Model())
	} else {
		log.Printf("commentary: ollama not reachable at %s, every track gets the fallback line", cfg.Commentary.URL)
	}
	cancel()

	cacheTTL, err := cfg.GetCacheTTL()
	if err != nil {
		return fmt.Errorf("invalid cache TTL: %w", err)
	}
	lineCache, err := cache.New(cacheTTL)
	if err != nil {
		return fmt.Errorf("failed to initialize cache: %w", err)
	}
	defer func() {
		if err := lineCache.Close(); err != nil {
			log.Printf("Error closing cache: %v", err)
		}
	}()
	source := commentary.NewCached(client, lineCache)

	// Voice
	speaker := voice.NewSpeaker(voice.NewEspeak(""))
	defer speaker.Close()
	if cfg.Voice.Match != "" {
		if v, ok := speaker.Select(cfg.Voice.Match); ok {
			log.Printf("voice: selected %s", v.Name)
		} else {
			log.Printf("voice: no voice matched %q, using engine default", cfg.Voice.Match)
		}
	}

	// History sinks
	var sinks []history.Sink
	if cfg.History.CSVPath != "" {
		csvSink, err := history.NewCSVSink(cfg.History.CSVPath)
		if err != nil {
			return fmt.Errorf("failed to open CSV history: %w", err)
		}
		sinks = append(sinks, csvSink)
		log.Printf("history: mirroring to CSV %s", cfg.History.CSVPath)
	}
	if cfg.History.DBPath != "" {
		dbSink, err := history.NewSQLiteSink(cfg.History.DBPath)
		if err != nil {
			return fmt.Errorf("failed to open SQLite history: %w", err)
		}
		sinks = append(sinks, dbSink)
		log.Printf("history: mirroring to SQLite %s", cfg.History.DBPath)
	}

	// Orchestrator
	healthInterval, err := cfg.GetHealthInterval()
	if err != nil {
		return fmt.Errorf("invalid health interval: %w", err)
	}
	moodTimeout, err := cfg.GetMoodTimeout()
	if err != nil {
		return fmt.Errorf("invalid mood timeout: %w", err)
	}
	r := radio.New(radio.Options{
		MusicVolume:       cfg.Player.MusicVolume,
		DuckVolume:        cfg.Player.DuckVolume,
		HealthInterval:    healthInterval,
		CommentaryTimeout: commentaryTimeout,
		MoodTimeout:       moodTimeout,
		Extensions:        cfg.Library.Extensions,
	}, ix, queue, radio.Deps{
		Player:  player.New(cfg.Player.MusicVolume),
		Source:  source,
		Speaker: speaker,
		FX:      player.NewEffects(cfg.FX.Dir, cfg.Library.Extensions),
		History: history.NewLog(),
		Sinks:   sinks,
	})

	// Optional library watcher feeding rebuilds
	if cfg.Library.Watch {
		go func() {
			err := library.Watch(ctx, cfg.Library.Root, cfg.Library.Extensions, 0, func() {
				if err := r.Rebuild(); err != nil {
					log.Printf("library: rebuild after change failed: %v", err)
				}
			})
			if err != nil {
				log.Printf("library: watcher stopped: %v", err)
			}
		}()
	}

	// HTTP control surface
	mux := http.NewServeMux()
	api.NewHandler(r, nil, cfg.History.Limit).RegisterRoutes(mux)
	registerMetricsEndpoint(mux, lineCache)

	readTimeout, err := cfg.GetReadTimeout()
	if err != nil {
		return fmt.Errorf("invalid read timeout: %w", err)
	}
	writeTimeout, err := cfg.GetWriteTimeout()
	if err != nil {
		return fmt.Errorf("invalid write timeout: %w", err)
	}
	shutdownTimeout, err := cfg.GetShutdownTimeout()
	if err != nil {
		return fmt.Errorf("invalid shutdown timeout: %w", err)
	}

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           securityHeaders(metrics.Middleware(mux)),
		ReadTimeout:       readTimeout,
		ReadHeaderTimeout: readTimeout / 3,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       writeTimeout * 8,
		MaxHeaderBytes:    1 << 20, // 1 MB
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Printf("homespin %s listening on http://localhost:%d", version, cfg.Server.Port)
		if err := server.ListenAndServe(); err != http.ErrServerClosed {
			serverErr <- fmt.Errorf("server error: %w", err)
		}
		close(serverErr)
	}()

	radioErr := make(chan error, 1)
	go func() {
		radioErr <- r.Start(ctx)
	}()

	var runErr error
	select {
	case <-ctx.Done():
	case err := <-serverErr:
		runErr = err
	case err := <-radioErr:
		runErr = err
		radioErr = nil
	}

	log.Println("Shutting down...")
	r.Stop()
	if radioErr != nil {
		<-radioErr
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	log.Println("Stopped")
	return runErr
}

// registerMetricsEndpoint exposes runtime and app stats, localhost only.
func registerMetricsEndpoint(mux *http.ServeMux, c *cache.Cache) {
	mux.HandleFunc("/metrics", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		host, _, _ := net.SplitHostPort(r.RemoteAddr)
		if host != "127.0.0.1" && host != "::1" {
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}

		var mem runtime.MemStats
		runtime.ReadMemStats(&mem)

		output := map[string]any{
			"version": version,
			"runtime": map[string]any{
				"goroutines":        runtime.NumGoroutine(),
				"memory_alloc_mb":   float64(mem.Alloc) / 1024 / 1024,
				"memory_sys_mb":     float64(mem.Sys) / 1024 / 1024,
				"gc_runs":           mem.NumGC,
				"gc_pause_total_ms": float64(mem.PauseTotalNs) / 1e6,
			},
			"app":   metrics.Get().Snapshot(),
			"cache": c.Stats(),
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(output); err != nil {
			log.Printf("Error encoding metrics: %v", err)
		}
	})
}

// securityHeaders adds standard security headers to all responses.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		next.ServeHTTP(w, r)
	})
}

func newAlbumsCmd(flags *flagOverrides) *cobra.Command {
	var showTracks bool

	cmd := &cobra.Command{
		Use:   "albums",
		Short: "List the albums the library scan would play from",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd.Root(), flags)
			if err != nil {
				return err
			}
			ix, err := library.Scan(cfg.Library.Root, cfg.Library.Extensions)
			if err != nil {
				return fmt.Errorf("failed to scan library: %w", err)
			}

			t := table.NewWriter()
			t.SetOutputMirror(os.Stdout)
			t.SetStyle(table.StyleLight)
			if showTracks {
				t.AppendHeader(table.Row{"Album", "Track"})
				for _, album := range ix.Albums() {
					for _, tr := range ix.Tracks(album) {
						t.AppendRow(table.Row{album, tr.DisplayName()})
					}
					t.AppendSeparator()
				}
			} else {
				t.AppendHeader(table.Row{"Album", "Tracks"})
				for _, album := range ix.Albums() {
					t.AppendRow(table.Row{album, len(ix.Tracks(album))})
				}
				t.AppendFooter(table.Row{"Total", ix.Len()})
			}
			t.Render()
			return nil
		},
	}
	cmd.Flags().BoolVar(&showTracks, "tracks", false, "list every track, not just album counts")
	return cmd
}

func newVoicesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "voices",
		Short: "List the TTS voices the speech engine offers",
		RunE: func(_ *cobra.Command, _ []string) error {
			voices, err := voice.NewEspeak("").Voices()
			if err != nil {
				return fmt.Errorf("failed to enumerate voices: %w", err)
			}

			t := table.NewWriter()
			t.SetOutputMirror(os.Stdout)
			t.SetStyle(table.StyleLight)
			t.AppendHeader(table.Row{"#", "Name", "ID"})
			for i, v := range voices {
				t.AppendRow(table.Row{i + 1, v.Name, v.ID})
			}
			t.Render()
			return nil
		},
	}
}
