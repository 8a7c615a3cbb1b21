package guidebuilder

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/park285/chess-audio-guide/internal/archive"
	"github.com/park285/chess-audio-guide/internal/catalog"
	"github.com/park285/chess-audio-guide/internal/config"
	"github.com/park285/chess-audio-guide/internal/guide"
	"github.com/park285/chess-audio-guide/internal/httpapi"
	"github.com/park285/chess-audio-guide/internal/httpapi/handlers"
	"github.com/park285/chess-audio-guide/internal/msgcat"
	"github.com/park285/chess-audio-guide/internal/narration"
	"github.com/park285/chess-audio-guide/internal/playback"
	"github.com/park285/chess-audio-guide/internal/relay"
	"github.com/park285/chess-audio-guide/internal/render"
	"github.com/park285/chess-audio-guide/internal/speech"
	"github.com/park285/chess-audio-guide/internal/store"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// snapshotTTL keeps reaped sessions restorable for a day.
const snapshotTTL = 24 * time.Hour

type Deps struct {
	Service  *guide.Service
	Messages *msgcat.Catalog
	Store    *store.Store
	Archive  archive.Repository
	Relay    *relay.Client
	Router   httpapi.RouterConfig
}

// Close releases the backing connections. The service is shut down first so
// in-flight snapshots land before redis goes away.
func (d *Deps) Close() {
	if d.Service != nil {
		d.Service.Shutdown()
	}
	if d.Store != nil {
		_ = d.Store.Close()
	}
	if d.Archive != nil {
		_ = d.Archive.Close()
	}
}

func New(cfg *config.AppConfig, logger *zap.Logger) (*Deps, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	messages, err := msgcat.New(cfg.MessageDir)
	if err != nil {
		return nil, fmt.Errorf("init messages: %w", err)
	}
	studies, err := catalog.New(cfg.StudyDir)
	if err != nil {
		return nil, fmt.Errorf("init studies: %w", err)
	}

	deps := &Deps{Messages: messages}

	// Snapshots (Redis optional)
	if strings.TrimSpace(cfg.RedisURL) != "" {
		ropts, perr := redis.ParseURL(cfg.RedisURL)
		if perr != nil {
			return nil, fmt.Errorf("parse redis url: %w", perr)
		}
		rdb := redis.NewClient(ropts)
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err := rdb.Ping(ctx).Err()
		cancel()
		if err != nil {
			_ = rdb.Close()
			return nil, fmt.Errorf("ping redis: %w", err)
		}
		deps.Store = store.NewStore(rdb, snapshotTTL)
	} else {
		logger.Warn("guide_snapshots_disabled", zap.String("reason", "REDIS_URL not set"))
	}

	// Archive (Postgres optional, in-memory otherwise)
	if strings.TrimSpace(cfg.DatabaseURL) != "" {
		repo, err := archive.Open(cfg.DatabaseURL)
		if err != nil {
			deps.Close()
			return nil, fmt.Errorf("init archive: %w", err)
		}
		deps.Archive = repo
	} else {
		deps.Archive = archive.NewMemoryRepository()
	}

	if strings.TrimSpace(cfg.RelayBaseURL) != "" {
		deps.Relay = relay.NewClient(cfg.RelayBaseURL, relay.WithTimeout(10*time.Second), relay.WithRetry(2))
	}

	opts := playback.DefaultOptions()
	opts.Study.Delay = cfg.StudyDelay
	opts.Simulation.Delay = cfg.SimulationDelay
	opts.Volume = cfg.DefaultVolume
	opts.Logger = logger.Named("playback")

	svcDeps := guide.Deps{
		Catalog:  studies,
		Messages: messages,
		Engines:  EngineFactory(cfg, deps.Relay, logger),
		Archive:  deps.Archive,
		Renderer: render.NewPNGRenderer(),
		Logger:   logger,
	}
	// nil pointers must not leak into the interfaces
	if deps.Store != nil {
		svcDeps.Store = deps.Store
	}
	if deps.Relay != nil && strings.TrimSpace(cfg.RelayRoom) != "" {
		svcDeps.Relay = deps.Relay
	}

	svc, err := guide.NewService(guide.Config{
		Playback:       opts,
		IdleTTL:        cfg.SessionIdleTTL,
		UploadMaxBytes: cfg.UploadMaxBytes,
		RelayRoom:      cfg.RelayRoom,
	}, svcDeps)
	if err != nil {
		deps.Close()
		return nil, err
	}
	deps.Service = svc

	pingers := map[string]handlers.Pinger{}
	if deps.Store != nil {
		pingers["redis"] = deps.Store
	}
	if p, ok := deps.Archive.(handlers.Pinger); ok {
		pingers["postgres"] = p
	}

	deps.Router = httpapi.RouterConfig{
		AllowedOrigins:   cfg.AllowedOrigins,
		Logger:           logger,
		HealthHandler:    handlers.NewHealthHandler(pingers),
		StudyHandler:     handlers.NewStudyHandler(svc, messages),
		SessionHandler:   handlers.NewSessionHandler(svc, messages),
		MatchHandler:     handlers.NewMatchHandler(svc, messages),
		NarrationHandler: handlers.NewNarrationHandler(svc, messages, originPatterns(cfg.AllowedOrigins), logger),
	}
	return deps, nil
}

// EngineFactory picks the speech engine each new session narrates through.
func EngineFactory(cfg *config.AppConfig, client *relay.Client, logger *zap.Logger) guide.EngineFactory {
	if logger == nil {
		logger = zap.NewNop()
	}
	wpm := cfg.NarrationWPM
	return func(sessionID string) narration.Engine {
		l := logger.With(zap.String("session_id", sessionID))
		switch cfg.NarrationEngine {
		case config.EngineRelay:
			return speech.NewTimed(
				speech.WithWPM(wpm),
				speech.WithSink(speech.RelaySink{Client: client, Room: cfg.RelayRoom}),
				speech.WithTimedLogger(l),
			)
		case config.EngineLog:
			return speech.NewTimed(
				speech.WithWPM(wpm),
				speech.WithSink(speech.LogSink{Logger: l}),
				speech.WithTimedLogger(l),
			)
		default:
			fallback := speech.NewTimed(
				speech.WithWPM(wpm),
				speech.WithSink(speech.LogSink{Logger: l}),
				speech.WithTimedLogger(l),
			)
			return speech.NewHub(fallback, l)
		}
	}
}

// originPatterns turns configured origins into websocket host patterns.
func originPatterns(origins []string) []string {
	out := make([]string, 0, len(origins))
	for _, o := range origins {
		o = strings.TrimSpace(o)
		if o == "" {
			continue
		}
		if i := strings.Index(o, "://"); i >= 0 {
			o = o[i+3:]
		}
		out = append(out, strings.TrimSuffix(o, "/"))
	}
	return out
}
