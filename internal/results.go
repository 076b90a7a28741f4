package internal

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/JDRadatti/oldmaid/internal/oldmaid"
)

// GameResult is the archived outcome of one finished game.
type GameResult struct {
	ID       string             `json:"id"`
	RoomCode RoomCode           `json:"roomCode"`
	Winners  []oldmaid.PlayerID `json:"winners"`
	Loser    oldmaid.PlayerID   `json:"loser,omitempty"`
	Reason   oldmaid.EndReason  `json:"reason"`
	Players  []ResultPlayer     `json:"players"`
	EndedAt  time.Time          `json:"endedAt"`
}

// ResultPlayer is a player as they stood when the game ended.
type ResultPlayer struct {
	ID       oldmaid.PlayerID `json:"id"`
	Username string           `json:"username"`
	Pairs    int              `json:"pairs"`
}

// NewGameResult builds the archive record of an ended game.
func NewGameResult(s oldmaid.Snapshot, endedAt time.Time) GameResult {
	players := make([]ResultPlayer, len(s.Players))
	for i, p := range s.Players {
		players[i] = ResultPlayer{ID: p.ID, Username: p.Username, Pairs: p.Pairs}
	}
	return GameResult{
		ID:       uuid.New().String(),
		RoomCode: RoomCode(s.Code),
		Winners:  s.Winners,
		Loser:    s.Loser,
		Reason:   s.EndReason,
		Players:  players,
		EndedAt:  endedAt.UTC(),
	}
}

// ResultStore archives finished games. Implementations must be safe for
// concurrent use.
type ResultStore interface {
	Save(ctx context.Context, r GameResult) error
	// List returns up to limit results, most recent first.
	List(ctx context.Context, limit int) ([]GameResult, error)
	Close()
}

// ---------------------------------------------------------------------
// In memory
// ---------------------------------------------------------------------

// MemoryResults keeps results in process. Used when no database is
// configured and in tests.
type MemoryResults struct {
	mu      sync.RWMutex
	results []GameResult
}

func NewMemoryResults() *MemoryResults {
	return &MemoryResults{}
}

func (m *MemoryResults) Save(_ context.Context, r GameResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.results = append(m.results, r)
	return nil
}

func (m *MemoryResults) List(_ context.Context, limit int) ([]GameResult, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]GameResult, 0, min(limit, len(m.results)))
	for i := len(m.results) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, m.results[i])
	}
	return out, nil
}

func (m *MemoryResults) Close() {}

// ---------------------------------------------------------------------
// PostgreSQL
// ---------------------------------------------------------------------

const createResultsTable = `
CREATE TABLE IF NOT EXISTS game_results (
	id         TEXT PRIMARY KEY,
	room_code  TEXT NOT NULL,
	winners    TEXT[] NOT NULL,
	loser      TEXT NOT NULL DEFAULT '',
	reason     TEXT NOT NULL,
	players    JSONB NOT NULL,
	ended_at   TIMESTAMPTZ NOT NULL
)`

// PostgresResults stores results in the game_results table.
type PostgresResults struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// NewPostgresResults connects to url and makes sure the table exists.
func NewPostgresResults(ctx context.Context, url string, logger *zap.Logger) (*PostgresResults, error) {
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if _, err := pool.Exec(ctx, createResultsTable); err != nil {
		pool.Close()
		return nil, fmt.Errorf("create game_results: %w", err)
	}
	stats := pool.Stat()
	logger.Info("database connection pool initialized",
		zap.Int32("total_conns", stats.TotalConns()),
		zap.Int32("idle_conns", stats.IdleConns()),
	)
	return &PostgresResults{pool: pool, logger: logger}, nil
}

func (p *PostgresResults) Save(ctx context.Context, r GameResult) error {
	players, err := json.Marshal(r.Players)
	if err != nil {
		return fmt.Errorf("marshal players: %w", err)
	}
	winners := make([]string, len(r.Winners))
	for i, w := range r.Winners {
		winners[i] = string(w)
	}
	_, err = p.pool.Exec(ctx,
		`INSERT INTO game_results (id, room_code, winners, loser, reason, players, ended_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		r.ID, string(r.RoomCode), winners, string(r.Loser), string(r.Reason), players, r.EndedAt,
	)
	if err != nil {
		return fmt.Errorf("insert result %s: %w", r.ID, err)
	}
	return nil
}

func (p *PostgresResults) List(ctx context.Context, limit int) ([]GameResult, error) {
	rows, err := p.pool.Query(ctx,
		`SELECT id, room_code, winners, loser, reason, players, ended_at
		 FROM game_results ORDER BY ended_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("query results: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (GameResult, error) {
		var (
			r       GameResult
			code    string
			winners []string
			loser   string
			reason  string
			players []byte
		)
		if err := row.Scan(&r.ID, &code, &winners, &loser, &reason, &players, &r.EndedAt); err != nil {
			return r, err
		}
		r.RoomCode = RoomCode(code)
		r.Loser = oldmaid.PlayerID(loser)
		r.Reason = oldmaid.EndReason(reason)
		r.Winners = make([]oldmaid.PlayerID, len(winners))
		for i, w := range winners {
			r.Winners[i] = oldmaid.PlayerID(w)
		}
		if err := json.Unmarshal(players, &r.Players); err != nil {
			return r, fmt.Errorf("decode players of %s: %w", r.ID, err)
		}
		return r, nil
	})
}

func (p *PostgresResults) Close() {
	p.pool.Close()
}
