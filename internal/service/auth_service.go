package service

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/smilecare-labs/clinic-push/internal/config"
	"golang.org/x/crypto/bcrypt"
)

// Scopes an operator session can carry.
const (
	ScopeTokensRead    = "tokens:read"
	ScopeBroadcastSend = "broadcast:send"
)

var (
	ErrBadCredentials = errors.New("invalid username or password")
	ErrSessionInvalid = errors.New("operator session invalid or expired")
	ErrScopeDenied    = errors.New("operator session lacks the required scope")
)

const (
	sessionIssuer     = "clinic-push"
	sessionAudience   = "clinic-push-admin"
	defaultSessionTTL = 12 * time.Hour

	// AnonymousOperator is reported when auth is disabled.
	AnonymousOperator = "anonymous"
)

var knownScopes = []string{ScopeTokensRead, ScopeBroadcastSend}

// OperatorClaims identify the clinic staff member behind an admin request.
type OperatorClaims struct {
	Operator string   `json:"op"`
	Scopes   []string `json:"scp"`
	jwt.RegisteredClaims
}

// Allows reports whether the session may perform scope.
func (c *OperatorClaims) Allows(scope string) bool {
	return c != nil && slices.Contains(c.Scopes, scope)
}

// Session is handed back on login.
type Session struct {
	Token     string    `json:"token"`
	Operator  string    `json:"operator"`
	Scopes    []string  `json:"scopes"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// AuthService issues and checks operator sessions for the admin token list
// and broadcast endpoints.
type AuthService struct {
	enabled  bool
	operator string
	password string
	secret   []byte
	ttl      time.Duration
	scopes   []string
	now      func() time.Time
}

// NewAuthService builds AuthService from the auth config section. Unknown
// scopes are ignored; an empty list grants every scope.
func NewAuthService(cfg *config.Config) *AuthService {
	a := cfg.Auth
	svc := &AuthService{
		enabled:  a.Enabled,
		operator: firstNonEmpty(strings.TrimSpace(a.Username), "admin"),
		password: firstNonEmpty(strings.TrimSpace(a.Password), "admin123"),
		secret:   []byte(firstNonEmpty(strings.TrimSpace(a.JWTSecret), "clinic-push-default-secret")),
		ttl:      a.SessionTTL,
		now:      time.Now,
	}
	if svc.ttl <= 0 {
		svc.ttl = defaultSessionTTL
	}
	for _, s := range a.Scopes {
		s = strings.TrimSpace(s)
		if slices.Contains(knownScopes, s) && !slices.Contains(svc.scopes, s) {
			svc.scopes = append(svc.scopes, s)
		}
	}
	if len(svc.scopes) == 0 {
		svc.scopes = slices.Clone(knownScopes)
	}
	return svc
}

// Enabled reports whether sessions are enforced.
func (a *AuthService) Enabled() bool {
	return a != nil && a.enabled
}

// Login checks the operator's credentials and signs a session.
func (a *AuthService) Login(username, password string) (*Session, error) {
	if !a.Enabled() {
		return &Session{Operator: AnonymousOperator, Scopes: slices.Clone(knownScopes)}, nil
	}
	if !a.matchOperator(username) || !a.matchPassword(password) {
		return nil, ErrBadCredentials
	}
	now := a.now()
	claims := OperatorClaims{
		Operator: a.operator,
		Scopes:   slices.Clone(a.scopes),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    sessionIssuer,
			Subject:   a.operator,
			Audience:  jwt.ClaimStrings{sessionAudience},
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(a.ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
	if err != nil {
		return nil, fmt.Errorf("sign session: %w", err)
	}
	return &Session{
		Token:     signed,
		Operator:  a.operator,
		Scopes:    claims.Scopes,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

// Verify parses a session token issued by Login.
func (a *AuthService) Verify(token string) (*OperatorClaims, error) {
	if !a.Enabled() {
		return &OperatorClaims{Operator: AnonymousOperator, Scopes: slices.Clone(knownScopes)}, nil
	}
	claims := &OperatorClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return a.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(sessionIssuer),
		jwt.WithAudience(sessionAudience),
		jwt.WithTimeFunc(a.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSessionInvalid, err)
	}
	if claims.Operator == "" {
		return nil, fmt.Errorf("%w: no operator", ErrSessionInvalid)
	}
	return claims, nil
}

// Authorize verifies token and requires scope on it.
func (a *AuthService) Authorize(token, scope string) (*OperatorClaims, error) {
	claims, err := a.Verify(token)
	if err != nil {
		return nil, err
	}
	if !claims.Allows(scope) {
		return claims, fmt.Errorf("%w: %s", ErrScopeDenied, scope)
	}
	return claims, nil
}

func (a *AuthService) matchOperator(input string) bool {
	return subtle.ConstantTimeCompare([]byte(strings.TrimSpace(input)), []byte(a.operator)) == 1
}

func (a *AuthService) matchPassword(input string) bool {
	if strings.HasPrefix(a.password, "$2") {
		return bcrypt.CompareHashAndPassword([]byte(a.password), []byte(input)) == nil
	}
	return subtle.ConstantTimeCompare([]byte(input), []byte(a.password)) == 1
}
