package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/park285/chess-audio-guide/internal/obslog"
)

const (
	EngineBrowser = "browser"
	EngineRelay   = "relay"
	EngineLog     = "log"
)

type AppConfig struct {
	HTTPAddr string

	RedisURL    string
	DatabaseURL string

	StudyDir   string
	MessageDir string

	NarrationEngine string
	NarrationWPM    int
	RelayBaseURL    string
	RelayRoom       string

	StudyDelay      time.Duration
	SimulationDelay time.Duration
	DefaultVolume   float64

	SessionIdleTTL time.Duration
	AllowedOrigins []string
	UploadMaxBytes int64

	Log obslog.Options
}

func Load() (*AppConfig, error) {
	cfg := &AppConfig{
		HTTPAddr:        ":8080",
		NarrationEngine: EngineBrowser,
		NarrationWPM:    160,
		StudyDelay:      time.Second,
		SimulationDelay: 8 * time.Second,
		DefaultVolume:   0.8,
		SessionIdleTTL:  30 * time.Minute,
		UploadMaxBytes:  1 << 20,
		Log: obslog.Options{
			Level:   "info",
			Format:  "legacy",
			Console: true,
			ToFile:  false,
		},
	}

	if v := env("HTTP_ADDR"); v != "" {
		cfg.HTTPAddr = v
	}
	cfg.RedisURL = env("REDIS_URL")
	cfg.DatabaseURL = env("DATABASE_URL")
	cfg.StudyDir = env("STUDY_DIR")
	cfg.MessageDir = env("MESSAGE_DIR")

	if v := env("NARRATION_ENGINE"); v != "" {
		cfg.NarrationEngine = strings.ToLower(v)
	}
	if v := env("NARRATION_WPM"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.NarrationWPM = n
		}
	}
	cfg.RelayBaseURL = env("RELAY_BASE_URL")
	cfg.RelayRoom = env("RELAY_ROOM")

	var err error
	if cfg.StudyDelay, err = durationEnv("PLAYBACK_STUDY_DELAY", cfg.StudyDelay); err != nil {
		return nil, err
	}
	if cfg.SimulationDelay, err = durationEnv("PLAYBACK_SIMULATION_DELAY", cfg.SimulationDelay); err != nil {
		return nil, err
	}
	if cfg.SessionIdleTTL, err = durationEnv("SESSION_IDLE_TTL", cfg.SessionIdleTTL); err != nil {
		return nil, err
	}
	if v := env("DEFAULT_VOLUME"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f < 0 || f > 1 {
			return nil, fmt.Errorf("DEFAULT_VOLUME must be within [0,1], got %q", v)
		}
		cfg.DefaultVolume = f
	}
	if v := env("UPLOAD_MAX_BYTES"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
			cfg.UploadMaxBytes = n
		}
	}
	if v := env("ALLOWED_ORIGINS"); v != "" {
		for _, p := range strings.Split(v, ",") {
			if s := strings.TrimSpace(p); s != "" {
				cfg.AllowedOrigins = append(cfg.AllowedOrigins, s)
			}
		}
	}

	if v := env("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := env("LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
	if v := env("LOG_TO_CONSOLE"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Log.Console = b
		}
	}
	if v := env("LOG_TO_FILE"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Log.ToFile = b
		}
	}
	if v := env("LOG_CALLER"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Log.Caller = b
		}
	}
	cfg.Log.File = env("LOG_FILE")

	switch cfg.NarrationEngine {
	case EngineBrowser, EngineLog:
	case EngineRelay:
		if cfg.RelayBaseURL == "" || cfg.RelayRoom == "" {
			return nil, errors.New("RELAY_BASE_URL and RELAY_ROOM are required for the relay narration engine")
		}
	default:
		return nil, fmt.Errorf("NARRATION_ENGINE must be browser, relay or log, got %q", cfg.NarrationEngine)
	}

	return cfg, nil
}

func env(key string) string { return strings.TrimSpace(os.Getenv(key)) }

// durationEnv accepts Go durations ("8s") or whole seconds ("8").
func durationEnv(key string, def time.Duration) (time.Duration, error) {
	v := env(key)
	if v == "" {
		return def, nil
	}
	if n, err := strconv.Atoi(v); err == nil && n >= 0 {
		return time.Duration(n) * time.Second, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil || d < 0 {
		return 0, fmt.Errorf("%s: invalid duration %q", key, v)
	}
	return d, nil
}
