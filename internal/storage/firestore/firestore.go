package firestore

import (
	"context"
	"fmt"
	"strings"
	"time"

	gfs "cloud.google.com/go/firestore"
	"github.com/smilecare-labs/clinic-push/internal/model"
	"github.com/smilecare-labs/clinic-push/internal/storage"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

var _ storage.Store = (*Store)(nil)

// DefaultCollection holds one document per token, the document ID being the token.
const DefaultCollection = "fcmTokens"

// tokenDoc is the document layout shared with the web client.
type tokenDoc struct {
	Token     string    `firestore:"token"`
	Platform  string    `firestore:"platform"`
	UserAgent string    `firestore:"userAgent"`
	LastSeen  time.Time `firestore:"lastSeen"`
	CreatedAt time.Time `firestore:"createdAt"`
}

// Store is a Firestore-backed Store.
type Store struct {
	client     *gfs.Client
	collection string
	now        func() time.Time
}

// New wraps an existing Firestore client. An empty collection uses DefaultCollection.
func New(client *gfs.Client, collection string) *Store {
	if strings.TrimSpace(collection) == "" {
		collection = DefaultCollection
	}
	return &Store{client: client, collection: collection, now: time.Now}
}

// Close closes the Firestore client.
func (s *Store) Close() error {
	return s.client.Close()
}

// UpsertToken merges the metadata fields and only sets createdAt when the document is new.
func (s *Store) UpsertToken(ctx context.Context, token string, meta model.TokenMetadata) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return storage.ErrEmptyToken
	}
	seen := meta.SeenAt
	if seen.IsZero() {
		seen = s.now()
	}
	ref := s.client.Collection(s.collection).Doc(token)
	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *gfs.Transaction) error {
		snap, err := tx.Get(ref)
		if err != nil && status.Code(err) != codes.NotFound {
			return err
		}
		fields := map[string]interface{}{
			"token":     token,
			"platform":  meta.Platform,
			"userAgent": meta.UserAgent,
			"lastSeen":  seen.UTC(),
		}
		if snap == nil || !snap.Exists() {
			fields["createdAt"] = seen.UTC()
		}
		return tx.Set(ref, fields, gfs.MergeAll)
	})
	if err != nil {
		return fmt.Errorf("upsert token document: %w", err)
	}
	return nil
}

// ListTokens reads the whole collection.
func (s *Store) ListTokens(ctx context.Context) ([]*model.DeviceToken, error) {
	docs, err := s.client.Collection(s.collection).Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("list token documents: %w", err)
	}
	tokens := make([]*model.DeviceToken, 0, len(docs))
	for _, doc := range docs {
		var d tokenDoc
		if err := doc.DataTo(&d); err != nil {
			return nil, fmt.Errorf("decode token document %s: %w", doc.Ref.ID, err)
		}
		tokens = append(tokens, d.toModel(doc.Ref.ID))
	}
	return tokens, nil
}

// DeleteToken deletes the document. Firestore treats a missing document as success.
func (s *Store) DeleteToken(ctx context.Context, token string) error {
	if strings.TrimSpace(token) == "" {
		return nil
	}
	if _, err := s.client.Collection(s.collection).Doc(token).Delete(ctx); err != nil {
		return fmt.Errorf("delete token document: %w", err)
	}
	return nil
}

func (d tokenDoc) toModel(id string) *model.DeviceToken {
	token := d.Token
	if token == "" {
		token = id
	}
	return &model.DeviceToken{
		Token:     token,
		Platform:  d.Platform,
		UserAgent: d.UserAgent,
		LastSeen:  d.LastSeen,
		CreatedAt: d.CreatedAt,
	}
}
