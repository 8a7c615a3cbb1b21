// Package store persists listening-session snapshots in Redis.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/park285/chess-audio-guide/internal/domain"
	"github.com/park285/chess-audio-guide/internal/playback"
	"github.com/redis/go-redis/v9"
)

const defaultTTL = 24 * time.Hour

// Snapshot is enough to rebuild a session after a restart. Studies are
// referenced by id; uploaded sequences are stored whole.
type Snapshot struct {
	SessionID string             `json:"session_id"`
	StudyID   string             `json:"study_id,omitempty"`
	Upload    *playback.Sequence `json:"upload,omitempty"`
	Index     int                `json:"index"`
	Volume    float64            `json:"volume"`
	Recorded  *domain.Match      `json:"recorded,omitempty"`
	UpdatedAt time.Time          `json:"updated_at"`
}

type Store struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewStore(rdb *redis.Client, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &Store{rdb: rdb, ttl: ttl}
}

func (s *Store) keySession(id string) string { return "guide:session:" + strings.TrimSpace(id) }
func (s *Store) keyIndex() string            { return "guide:sessions" }

func (s *Store) Save(ctx context.Context, snap *Snapshot) error {
	if snap == nil || strings.TrimSpace(snap.SessionID) == "" {
		return errors.New("snapshot requires a session id")
	}
	if snap.UpdatedAt.IsZero() {
		snap.UpdatedAt = time.Now()
	}
	raw, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	pipe := s.rdb.TxPipeline()
	pipe.Set(ctx, s.keySession(snap.SessionID), raw, s.ttl)
	pipe.SAdd(ctx, s.keyIndex(), snap.SessionID)
	pipe.Expire(ctx, s.keyIndex(), s.ttl)
	_, err = pipe.Exec(ctx)
	return err
}

// Load returns nil, nil when no snapshot exists.
func (s *Store) Load(ctx context.Context, id string) (*Snapshot, error) {
	raw, err := s.rdb.Get(ctx, s.keySession(id)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var snap Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

func (s *Store) Delete(ctx context.Context, id string) error {
	pipe := s.rdb.TxPipeline()
	pipe.Del(ctx, s.keySession(id))
	pipe.SRem(ctx, s.keyIndex(), id)
	_, err := pipe.Exec(ctx)
	return err
}

// SessionIDs lists sessions with a live snapshot, pruning expired index entries.
func (s *Store) SessionIDs(ctx context.Context) ([]string, error) {
	ids, err := s.rdb.SMembers(ctx, s.keyIndex()).Result()
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		n, err := s.rdb.Exists(ctx, s.keySession(id)).Result()
		if err != nil {
			return nil, err
		}
		if n == 0 {
			_ = s.rdb.SRem(ctx, s.keyIndex(), id).Err()
			continue
		}
		out = append(out, id)
	}
	return out, nil
}

func (s *Store) Ping(ctx context.Context) error { return s.rdb.Ping(ctx).Err() }

func (s *Store) Close() error { return s.rdb.Close() }
