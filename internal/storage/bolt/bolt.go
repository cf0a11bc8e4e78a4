package bolt

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/smilecare-labs/clinic-push/internal/model"
	"github.com/smilecare-labs/clinic-push/internal/storage"
	bolt "go.etcd.io/bbolt"
)

var _ storage.Store = (*Store)(nil)

var bucketTokens = []byte("device_tokens")

// Store is a BoltDB-backed Store implementation.
type Store struct {
	db  *bolt.DB
	now func() time.Time
}

// New initialises the Bolt store.
func New(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, err
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketTokens)
		return err
	}); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db, now: time.Now}, nil
}

// Close closes underlying Bolt DB.
func (s *Store) Close() error {
	return s.db.Close()
}

// UpsertToken stores or merges a token record inside one write transaction.
func (s *Store) UpsertToken(ctx context.Context, token string, meta model.TokenMetadata) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return storage.ErrEmptyToken
	}
	seen := meta.SeenAt
	if seen.IsZero() {
		seen = s.now()
	}
	seen = seen.UTC()

	return s.db.Update(func(tx *bolt.Tx) error {
		bkt := tx.Bucket(bucketTokens)
		record := model.DeviceToken{Token: token, CreatedAt: seen}
		if existing := bkt.Get([]byte(token)); existing != nil {
			var prev model.DeviceToken
			if err := json.Unmarshal(existing, &prev); err != nil {
				return err
			}
			if !prev.CreatedAt.IsZero() {
				record.CreatedAt = prev.CreatedAt
			}
		}
		record.Platform = meta.Platform
		record.UserAgent = meta.UserAgent
		record.LastSeen = seen
		payload, err := json.Marshal(record)
		if err != nil {
			return err
		}
		return bkt.Put([]byte(token), payload)
	})
}

// ListTokens returns all tokens.
func (s *Store) ListTokens(ctx context.Context) ([]*model.DeviceToken, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}
	var tokens []*model.DeviceToken
	err := s.db.View(func(tx *bolt.Tx) error {
		bkt := tx.Bucket(bucketTokens)
		return bkt.ForEach(func(_, v []byte) error {
			var record model.DeviceToken
			if err := json.Unmarshal(v, &record); err != nil {
				return err
			}
			copied := record
			tokens = append(tokens, &copied)
			return nil
		})
	})
	return tokens, err
}

// DeleteToken removes a token; deleting a missing key is a no-op.
func (s *Store) DeleteToken(ctx context.Context, token string) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}
	if token == "" {
		return nil
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketTokens).Delete([]byte(token))
	})
}
