package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds application configuration
type Config struct {
	Library    LibraryConfig    `yaml:"library"`
	Player     PlayerConfig     `yaml:"player"`
	Commentary CommentaryConfig `yaml:"commentary"`
	Voice      VoiceConfig      `yaml:"voice"`
	FX         FXConfig         `yaml:"fx"`
	History    HistoryConfig    `yaml:"history"`
	Server     ServerConfig     `yaml:"server"`
}

// LibraryConfig holds music library settings
type LibraryConfig struct {
	Root       string   `yaml:"root"`
	Extensions []string `yaml:"extensions"`
	Watch      bool     `yaml:"watch"`
}

// PlayerConfig holds playback settings
type PlayerConfig struct {
	MusicVolume    int    `yaml:"music_volume"`
	DuckVolume     int    `yaml:"duck_volume"`
	HealthInterval string `yaml:"health_interval"`
}

// CommentaryConfig holds the Ollama commentary service settings
type CommentaryConfig struct {
	URL         string `yaml:"url"`
	Model       string `yaml:"model"`
	Persona     string `yaml:"persona"`
	Timeout     string `yaml:"timeout"`
	MoodTimeout string `yaml:"mood_timeout"`
	CacheTTL    string `yaml:"cache_ttl"`
}

// VoiceConfig holds text-to-speech settings
type VoiceConfig struct {
	Match string `yaml:"match"`
}

// FXConfig holds sound-effect settings
type FXConfig struct {
	Dir string `yaml:"dir"`
}

// HistoryConfig holds play-history sink settings
type HistoryConfig struct {
	CSVPath string `yaml:"csv"`
	DBPath  string `yaml:"db"`
	Limit   int    `yaml:"limit"`
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Port            int    `yaml:"port"`
	ReadTimeout     string `yaml:"read_timeout"`
	WriteTimeout    string `yaml:"write_timeout"`
	ShutdownTimeout string `yaml:"shutdown_timeout"`
}

// defaults returns a Config with sensible defaults
func defaults() *Config {
	return &Config{
		Library: LibraryConfig{
			Root:       "albums",
			Extensions: []string{".mp3", ".wav", ".ogg", ".flac"},
			Watch:      false,
		},
		Player: PlayerConfig{
			MusicVolume:    80,
			DuckVolume:     20,
			HealthInterval: "2s",
		},
		Commentary: CommentaryConfig{
			URL:         "http://localhost:11434",
			Model:       "gemma3:4b",
			Persona:     "a smooth, laidback late-night radio host",
			Timeout:     "15s",
			MoodTimeout: "6s",
			CacheTTL:    "30m",
		},
		Voice: VoiceConfig{
			Match: "",
		},
		FX: FXConfig{
			Dir: "",
		},
		History: HistoryConfig{
			CSVPath: "",
			DBPath:  "",
			Limit:   500,
		},
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     "10s",
			WriteTimeout:    "10s",
			ShutdownTimeout: "10s",
		},
	}
}

// Load reads configuration from YAML files and environment variables.
// Files are loaded in order; later files override earlier ones.
// Environment variables override file values.
func Load(paths ...string) (*Config, error) {
	cfg := defaults()

	// Load each config file in order
	for _, path := range paths {
		if err := loadFile(cfg, path); err != nil {
			// Skip missing files silently (config.local.yaml may not exist)
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("loading %s: %w", path, err)
		}
	}

	// Apply environment variable overrides
	applyEnvOverrides(cfg)

	// Validate
	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

// loadFile reads a YAML file and merges into cfg
func loadFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	// Parse YAML into a temporary struct, then merge non-zero values
	var fileCfg Config
	if err := yaml.Unmarshal(data, &fileCfg); err != nil {
		return fmt.Errorf("parsing YAML: %w", err)
	}

	// Merge: file values override defaults (only non-zero values)
	mergeConfig(cfg, &fileCfg)
	return nil
}

// mergeConfig copies non-zero values from src to dst
func mergeConfig(dst, src *Config) {
	// Library
	if src.Library.Root != "" {
		dst.Library.Root = src.Library.Root
	}
	if len(src.Library.Extensions) > 0 {
		dst.Library.Extensions = src.Library.Extensions
	}
	if src.Library.Watch {
		dst.Library.Watch = true
	}

	// Player
	if src.Player.MusicVolume != 0 {
		dst.Player.MusicVolume = src.Player.MusicVolume
	}
	if src.Player.DuckVolume != 0 {
		dst.Player.DuckVolume = src.Player.DuckVolume
	}
	if src.Player.HealthInterval != "" {
		dst.Player.HealthInterval = src.Player.HealthInterval
	}

	// Commentary
	if src.Commentary.URL != "" {
		dst.Commentary.URL = src.Commentary.URL
	}
	if src.Commentary.Model != "" {
		dst.Commentary.Model = src.Commentary.Model
	}
	if src.Commentary.Persona != "" {
		dst.Commentary.Persona = src.Commentary.Persona
	}
	if src.Commentary.Timeout != "" {
		dst.Commentary.Timeout = src.Commentary.Timeout
	}
	if src.Commentary.MoodTimeout != "" {
		dst.Commentary.MoodTimeout = src.Commentary.MoodTimeout
	}
	if src.Commentary.CacheTTL != "" {
		dst.Commentary.CacheTTL = src.Commentary.CacheTTL
	}

	// Voice
	if src.Voice.Match != "" {
		dst.Voice.Match = src.Voice.Match
	}

	// FX
	if src.FX.Dir != "" {
		dst.FX.Dir = src.FX.Dir
	}

	// History
	if src.History.CSVPath != "" {
		dst.History.CSVPath = src.History.CSVPath
	}
	if src.History.DBPath != "" {
		dst.History.DBPath = src.History.DBPath
	}
	if src.History.Limit != 0 {
		dst.History.Limit = src.History.Limit
	}

	// Server
	if src.Server.Port != 0 {
		dst.Server.Port = src.Server.Port
	}
	if src.Server.ReadTimeout != "" {
		dst.Server.ReadTimeout = src.Server.ReadTimeout
	}
	if src.Server.WriteTimeout != "" {
		dst.Server.WriteTimeout = src.Server.WriteTimeout
	}
	if src.Server.ShutdownTimeout != "" {
		dst.Server.ShutdownTimeout = src.Server.ShutdownTimeout
	}
}

// applyEnvOverrides applies environment variable overrides
func applyEnvOverrides(cfg *Config) {
	// Library
	if v := os.Getenv("LIBRARY_ROOT"); v != "" {
		cfg.Library.Root = v
	}

	// Commentary
	if v := os.Getenv("OLLAMA_URL"); v != "" {
		cfg.Commentary.URL = v
	}
	if v := os.Getenv("OLLAMA_MODEL"); v != "" {
		cfg.Commentary.Model = v
	}

	// History
	if v := os.Getenv("HISTORY_CSV_PATH"); v != "" {
		cfg.History.CSVPath = v
	}
	if v := os.Getenv("HISTORY_DB_PATH"); v != "" {
		cfg.History.DBPath = v
	}

	// Server
	if v := os.Getenv("PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
}

// validate checks required fields and value constraints
func validate(cfg *Config) error {
	if cfg.Library.Root == "" {
		return fmt.Errorf("library.root is required")
	}
	if len(cfg.Library.Extensions) == 0 {
		return fmt.Errorf("library.extensions must not be empty")
	}

	if cfg.Player.MusicVolume < 0 || cfg.Player.MusicVolume > 100 {
		return fmt.Errorf("player.music_volume must be 0-100, got %d", cfg.Player.MusicVolume)
	}
	if cfg.Player.DuckVolume < 0 || cfg.Player.DuckVolume > 100 {
		return fmt.Errorf("player.duck_volume must be 0-100, got %d", cfg.Player.DuckVolume)
	}
	if cfg.Player.DuckVolume > cfg.Player.MusicVolume {
		return fmt.Errorf("player.duck_volume (%d) must not exceed player.music_volume (%d)",
			cfg.Player.DuckVolume, cfg.Player.MusicVolume)
	}

	if cfg.Commentary.URL == "" {
		return fmt.Errorf("commentary.url is required")
	}
	if cfg.Commentary.Model == "" {
		return fmt.Errorf("commentary.model is required")
	}

	if cfg.History.Limit < 1 {
		return fmt.Errorf("history.limit must be positive, got %d", cfg.History.Limit)
	}

	if cfg.Server.Port < 1 || cfg.Server.Port > 65535 {
		return fmt.Errorf("server.port must be 1-65535, got %d", cfg.Server.Port)
	}

	// Validate durations parse correctly
	if _, err := cfg.GetHealthInterval(); err != nil {
		return fmt.Errorf("player.health_interval invalid: %w", err)
	}
	if _, err := cfg.GetCommentaryTimeout(); err != nil {
		return fmt.Errorf("commentary.timeout invalid: %w", err)
	}
	if _, err := cfg.GetMoodTimeout(); err != nil {
		return fmt.Errorf("commentary.mood_timeout invalid: %w", err)
	}
	if _, err := cfg.GetCacheTTL(); err != nil {
		return fmt.Errorf("commentary.cache_ttl invalid: %w", err)
	}
	if _, err := cfg.GetReadTimeout(); err != nil {
		return fmt.Errorf("server.read_timeout invalid: %w", err)
	}
	if _, err := cfg.GetWriteTimeout(); err != nil {
		return fmt.Errorf("server.write_timeout invalid: %w", err)
	}
	if _, err := cfg.GetShutdownTimeout(); err != nil {
		return fmt.Errorf("server.shutdown_timeout invalid: %w", err)
	}

	return nil
}

// Helper methods to get parsed duration values

func (c *Config) GetHealthInterval() (time.Duration, error) {
	return time.ParseDuration(c.Player.HealthInterval)
}

func (c *Config) GetCommentaryTimeout() (time.Duration, error) {
	return time.ParseDuration(c.Commentary.Timeout)
}

func (c *Config) GetMoodTimeout() (time.Duration, error) {
	return time.ParseDuration(c.Commentary.MoodTimeout)
}

func (c *Config) GetCacheTTL() (time.Duration, error) {
	return time.ParseDuration(c.Commentary.CacheTTL)
}

func (c *Config) GetReadTimeout() (time.Duration, error) {
	return time.ParseDuration(c.Server.ReadTimeout)
}

func (c *Config) GetWriteTimeout() (time.Duration, error) {
	return time.ParseDuration(c.Server.WriteTimeout)
}

func (c *Config) GetShutdownTimeout() (time.Duration, error) {
	return time.ParseDuration(c.Server.ShutdownTimeout)
}
