// Package archive stores finished matches and renders them as PGN.
package archive

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"
	"github.com/park285/chess-audio-guide/internal/domain"
)

var ErrMatchNotFound = errors.New("match not found")

type Repository interface {
	SaveMatch(ctx context.Context, m *domain.ArchivedMatch) error
	GetMatch(ctx context.Context, id string) (*domain.ArchivedMatch, error)
	RecentMatches(ctx context.Context, sessionID string, limit int) ([]*domain.ArchivedMatch, error)
	Close() error
}

const schema = `
CREATE TABLE IF NOT EXISTS guide_matches (
	match_id    TEXT PRIMARY KEY,
	session_id  TEXT NOT NULL,
	source      TEXT NOT NULL,
	title       TEXT NOT NULL DEFAULT '',
	result      TEXT NOT NULL DEFAULT '',
	moves_uci   JSONB NOT NULL,
	moves_san   JSONB NOT NULL,
	comments    JSONB NOT NULL,
	pgn         TEXT NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL,
	archived_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS guide_matches_session_idx ON guide_matches (session_id, archived_at DESC);`

type pgRepository struct {
	db *sql.DB
}

// Open connects to Postgres and ensures the schema exists.
func Open(databaseURL string) (Repository, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(16)
	db.SetMaxIdleConns(8)
	db.SetConnMaxLifetime(30 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate guide_matches: %w", err)
	}
	return &pgRepository{db: db}, nil
}

func (r *pgRepository) Close() error {
	if r == nil || r.db == nil {
		return nil
	}
	return r.db.Close()
}

func (r *pgRepository) Ping(ctx context.Context) error { return r.db.PingContext(ctx) }

func (r *pgRepository) SaveMatch(ctx context.Context, m *domain.ArchivedMatch) error {
	if m == nil {
		return fmt.Errorf("nil match payload")
	}
	movesUCI, err := json.Marshal(nonNil(m.MovesUCI))
	if err != nil {
		return fmt.Errorf("marshal moves_uci: %w", err)
	}
	movesSAN, err := json.Marshal(nonNil(m.MovesSAN))
	if err != nil {
		return fmt.Errorf("marshal moves_san: %w", err)
	}
	comments, err := json.Marshal(nonNil(m.Comments))
	if err != nil {
		return fmt.Errorf("marshal comments: %w", err)
	}

	const q = `INSERT INTO guide_matches (
		match_id, session_id, source, title, result,
		moves_uci, moves_san, comments, pgn, created_at, archived_at
	) VALUES ($1,$2,$3,$4,$5,$6::jsonb,$7::jsonb,$8::jsonb,$9,$10,$11)
	ON CONFLICT (match_id) DO UPDATE SET
		result=EXCLUDED.result,
		title=EXCLUDED.title,
		moves_uci=EXCLUDED.moves_uci,
		moves_san=EXCLUDED.moves_san,
		comments=EXCLUDED.comments,
		pgn=EXCLUDED.pgn,
		archived_at=EXCLUDED.archived_at`

	_, err = r.db.ExecContext(ctx, q,
		m.ID, m.SessionID, m.Source, m.Title, m.Result,
		movesUCI, movesSAN, comments, m.PGN,
		m.CreatedAt, m.ArchivedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert match: %w", err)
	}
	return nil
}

const selectColumns = `match_id, session_id, source, title, result,
	moves_uci, moves_san, comments, pgn, created_at, archived_at`

func (r *pgRepository) GetMatch(ctx context.Context, id string) (*domain.ArchivedMatch, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+selectColumns+` FROM guide_matches WHERE match_id = $1`, id)
	m, err := scanMatch(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrMatchNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select match: %w", err)
	}
	return m, nil
}

func (r *pgRepository) RecentMatches(ctx context.Context, sessionID string, limit int) ([]*domain.ArchivedMatch, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+selectColumns+` FROM guide_matches WHERE session_id = $1 ORDER BY archived_at DESC LIMIT $2`,
		sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("select matches: %w", err)
	}
	defer rows.Close()

	out := make([]*domain.ArchivedMatch, 0, limit)
	for rows.Next() {
		m, err := scanMatch(rows)
		if err != nil {
			return nil, fmt.Errorf("scan match: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanMatch(s scanner) (*domain.ArchivedMatch, error) {
	var (
		m                        domain.ArchivedMatch
		uciJSON, sanJSON, cmJSON []byte
	)
	if err := s.Scan(&m.ID, &m.SessionID, &m.Source, &m.Title, &m.Result,
		&uciJSON, &sanJSON, &cmJSON, &m.PGN, &m.CreatedAt, &m.ArchivedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(uciJSON, &m.MovesUCI); err != nil {
		return nil, fmt.Errorf("decode moves_uci: %w", err)
	}
	if err := json.Unmarshal(sanJSON, &m.MovesSAN); err != nil {
		return nil, fmt.Errorf("decode moves_san: %w", err)
	}
	if err := json.Unmarshal(cmJSON, &m.Comments); err != nil {
		return nil, fmt.Errorf("decode comments: %w", err)
	}
	return &m, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
