package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/smilecare-labs/clinic-push/internal/logging"
	"github.com/smilecare-labs/clinic-push/internal/model"
	"github.com/smilecare-labs/clinic-push/internal/storage"
	"go.uber.org/zap"
)

var _ storage.Store = (*Store)(nil)

const schema = `
CREATE TABLE IF NOT EXISTS push_tokens (
	token      TEXT PRIMARY KEY,
	platform   TEXT NOT NULL DEFAULT '',
	user_agent TEXT NOT NULL DEFAULT '',
	last_seen  TIMESTAMPTZ NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
)`

// Store keeps device tokens in a single Postgres table.
type Store struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
	now    func() time.Time
}

// New connects to dsn and makes sure the token table exists.
func New(ctx context.Context, dsn string, logger *zap.Logger) (*Store, error) {
	logger = logging.OrNop(logger)
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	s := &Store{pool: pool, logger: logger.Named("PostgresTokenStore"), now: time.Now}
	if err := s.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

// EnsureSchema creates the push_tokens table when missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("ensure push_tokens schema: %w", err)
	}
	return nil
}

// Close releases the pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

// UpsertToken inserts a token or refreshes its metadata; created_at is never rewritten.
func (s *Store) UpsertToken(ctx context.Context, token string, meta model.TokenMetadata) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return storage.ErrEmptyToken
	}
	seen := meta.SeenAt
	if seen.IsZero() {
		seen = s.now()
	}
	query := `
		INSERT INTO push_tokens (token, platform, user_agent, last_seen, created_at)
		VALUES ($1, $2, $3, $4, $4)
		ON CONFLICT (token) DO UPDATE SET
			platform = EXCLUDED.platform,
			user_agent = EXCLUDED.user_agent,
			last_seen = EXCLUDED.last_seen`
	if _, err := s.pool.Exec(ctx, query, token, meta.Platform, meta.UserAgent, seen.UTC()); err != nil {
		return fmt.Errorf("upsert token: %w", err)
	}
	return nil
}

// ListTokens returns every row.
func (s *Store) ListTokens(ctx context.Context) ([]*model.DeviceToken, error) {
	rows, err := s.pool.Query(ctx, `SELECT token, platform, user_agent, last_seen, created_at FROM push_tokens`)
	if err != nil {
		return nil, fmt.Errorf("list tokens: %w", err)
	}
	defer rows.Close()

	var tokens []*model.DeviceToken
	for rows.Next() {
		var t model.DeviceToken
		if err := rows.Scan(&t.Token, &t.Platform, &t.UserAgent, &t.LastSeen, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan token row: %w", err)
		}
		tokens = append(tokens, &t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate token rows: %w", err)
	}
	return tokens, nil
}

// DeleteToken removes a row; zero affected rows is only logged.
func (s *Store) DeleteToken(ctx context.Context, token string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM push_tokens WHERE token = $1`, token)
	if err != nil {
		return fmt.Errorf("delete token: %w", err)
	}
	if tag.RowsAffected() == 0 {
		s.logger.Debug("Token to delete was not found", zap.Int("tokenLength", len(token)))
	}
	return nil
}

// Pool exposes the underlying pool for maintenance queries.
func (s *Store) Pool() *pgxpool.Pool {
	return s.pool
}
