package guidebuilder

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/park285/chess-audio-guide/internal/config"
	"github.com/park285/chess-audio-guide/internal/speech"
)

func testConfig() *config.AppConfig {
	return &config.AppConfig{
		NarrationEngine: config.EngineBrowser,
		NarrationWPM:    160,
		StudyDelay:      time.Hour,
		SimulationDelay: time.Hour,
		DefaultVolume:   0.5,
		SessionIdleTTL:  time.Minute,
		AllowedOrigins:  []string{"https://guide.example/"},
	}
}

func TestNewWithoutBackends(t *testing.T) {
	deps, err := New(testConfig(), nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer deps.Close()
	if deps.Store != nil || deps.Relay != nil {
		t.Fatalf("unexpected backends: %+v", deps)
	}
	if deps.Router.SessionHandler == nil || deps.Router.NarrationHandler == nil {
		t.Fatalf("router not wired")
	}
	v, err := deps.Service.CreateSession(context.Background())
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	if v.Playback.Volume != 0.5 {
		t.Fatalf("volume=%v", v.Playback.Volume)
	}
}

func TestNewWithRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := testConfig()
	cfg.RedisURL = "redis://" + mr.Addr() + "/0"
	deps, err := New(cfg, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer deps.Close()
	if deps.Store == nil {
		t.Fatalf("store not wired")
	}
	v, err := deps.Service.CreateSession(context.Background())
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	if _, err := deps.Service.LoadStudy(context.Background(), v.SessionID, "kings-gambit"); err != nil {
		t.Fatalf("LoadStudy: %v", err)
	}
	if snap, err := deps.Store.Load(context.Background(), v.SessionID); err != nil || snap == nil {
		t.Fatalf("snapshot=%v err=%v", snap, err)
	}
}

func TestEngineFactorySelection(t *testing.T) {
	cfg := testConfig()
	if _, ok := EngineFactory(cfg, nil, nil)("s1").(*speech.Hub); !ok {
		t.Fatalf("browser engine is not a hub")
	}
	cfg.NarrationEngine = config.EngineLog
	if _, ok := EngineFactory(cfg, nil, nil)("s1").(*speech.Timed); !ok {
		t.Fatalf("log engine is not timed")
	}
}

func TestOriginPatterns(t *testing.T) {
	got := originPatterns([]string{"https://guide.example/", " localhost:5173 ", ""})
	if len(got) != 2 || got[0] != "guide.example" || got[1] != "localhost:5173" {
		t.Fatalf("patterns=%v", got)
	}
}
