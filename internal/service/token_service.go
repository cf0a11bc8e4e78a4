package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/smilecare-labs/clinic-push/internal/logging"
	"github.com/smilecare-labs/clinic-push/internal/model"
	"github.com/smilecare-labs/clinic-push/internal/push"
	"github.com/smilecare-labs/clinic-push/internal/storage"
	"go.uber.org/zap"
)

const maxTokenLength = 4096

// ErrTokenTooLong rejects registrations that cannot be a real push token.
var ErrTokenTooLong = errors.New("token too long")

// TokenService is the gateway side of token registration.
type TokenService struct {
	store  storage.Store
	logger *zap.Logger
	now    func() time.Time
}

// RegisterRequest is what a page posts after obtaining a token.
type RegisterRequest struct {
	Token     string `json:"token"`
	Platform  string `json:"platform"`
	UserAgent string `json:"userAgent"`
}

// NewTokenService constructs TokenService.
func NewTokenService(store storage.Store, logger *zap.Logger) *TokenService {
	logger = logging.OrNop(logger)
	return &TokenService{store: store, logger: logger.Named("TokenService"), now: time.Now}
}

// Register upserts the token and returns a redacted view of what was stored.
func (s *TokenService) Register(ctx context.Context, req RegisterRequest) (*model.TokenView, error) {
	token := strings.TrimSpace(req.Token)
	if token == "" {
		return nil, storage.ErrEmptyToken
	}
	if len(token) > maxTokenLength {
		return nil, fmt.Errorf("%w: exceeds %d characters", ErrTokenTooLong, maxTokenLength)
	}
	seen := s.now().UTC()
	meta := model.TokenMetadata{
		Platform:  firstNonEmpty(req.Platform, "unknown"),
		UserAgent: req.UserAgent,
		SeenAt:    seen,
	}
	if err := s.store.UpsertToken(ctx, token, meta); err != nil {
		s.logger.Error("Failed to store token", zap.String("tokenPrefix", push.RedactToken(token)), zap.Error(err))
		return nil, fmt.Errorf("store token: %w", err)
	}
	tokenRegistrationsTotal.Inc()
	s.logger.Info("Token registered",
		zap.String("tokenPrefix", push.RedactToken(token)),
		zap.String("platform", meta.Platform))
	return &model.TokenView{
		Token:     push.RedactToken(token),
		Platform:  meta.Platform,
		UserAgent: meta.UserAgent,
		LastSeen:  seen,
	}, nil
}

// Unregister drops a token, for example after the user turns notifications off.
func (s *TokenService) Unregister(ctx context.Context, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return storage.ErrEmptyToken
	}
	if err := s.store.DeleteToken(ctx, token); err != nil {
		return fmt.Errorf("delete token: %w", err)
	}
	s.logger.Info("Token unregistered", zap.String("tokenPrefix", push.RedactToken(token)))
	return nil
}

// Count returns the number of stored tokens.
func (s *TokenService) Count(ctx context.Context) (int, error) {
	tokens, err := s.store.ListTokens(ctx)
	if err != nil {
		return 0, err
	}
	return len(tokens), nil
}

// Page returns redacted token views, most recently seen first.
func (s *TokenService) Page(ctx context.Context, page, pageSize int) (*model.TokenPage, error) {
	tokens, err := s.store.ListTokens(ctx)
	if err != nil {
		return nil, err
	}
	sort.Slice(tokens, func(i, j int) bool {
		return tokens[i].LastSeen.After(tokens[j].LastSeen)
	})

	total := len(tokens)
	if pageSize <= 0 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100
	}
	if page <= 0 {
		page = 1
	}

	start := (page - 1) * pageSize
	if start > total {
		start = total
	}
	end := start + pageSize
	if end > total {
		end = total
	}

	views := make([]*model.TokenView, 0, end-start)
	for _, tok := range tokens[start:end] {
		views = append(views, toView(tok))
	}
	return &model.TokenPage{
		Data:     views,
		Total:    total,
		Pages:    (total + pageSize - 1) / pageSize,
		PageNum:  page,
		PageSize: pageSize,
	}, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func toView(tok *model.DeviceToken) *model.TokenView {
	if tok == nil {
		return nil
	}
	view := &model.TokenView{
		Token:     push.RedactToken(tok.Token),
		Platform:  tok.Platform,
		UserAgent: tok.UserAgent,
		LastSeen:  tok.LastSeen,
	}
	if !tok.CreatedAt.IsZero() {
		created := tok.CreatedAt
		view.CreatedAt = &created
	}
	return view
}
