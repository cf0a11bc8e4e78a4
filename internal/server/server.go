package server

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/smilecare-labs/clinic-push/internal/config"
	"github.com/smilecare-labs/clinic-push/internal/logging"
	"github.com/smilecare-labs/clinic-push/internal/model"
	"github.com/smilecare-labs/clinic-push/internal/push"
	"github.com/smilecare-labs/clinic-push/internal/service"
	"github.com/smilecare-labs/clinic-push/internal/storage"
	"github.com/smilecare-labs/clinic-push/internal/webclient"
	"go.uber.org/zap"
)

// Broadcaster sends one payload to every stored token.
type Broadcaster interface {
	Broadcast(ctx context.Context, payload model.NotificationPayload) (*model.BroadcastResult, error)
}

// Server wires HTTP handlers.
type Server struct {
	app         *fiber.App
	tokenSvc    *service.TokenService
	broadcaster Broadcaster
	authSvc     *service.AuthService
	client      webclient.Settings
	cfg         *config.Config
	logger      *zap.Logger
}

const localsOperator = "operator"

// New builds a server instance. broadcaster may be nil when no transport is configured.
func New(cfg *config.Config, tokenSvc *service.TokenService, broadcaster Broadcaster, authSvc *service.AuthService, logger *zap.Logger) *Server {
	logger = logging.OrNop(logger)
	app := fiber.New(fiber.Config{
		IdleTimeout:           cfg.HTTP.ReadTimeout,
		ReadTimeout:           cfg.HTTP.ReadTimeout,
		WriteTimeout:          cfg.HTTP.WriteTimeout,
		AppName:               "clinic-push",
		DisableStartupMessage: true,
	})
	s := &Server{
		app:         app,
		tokenSvc:    tokenSvc,
		broadcaster: broadcaster,
		authSvc:     authSvc,
		client:      webclient.FromConfig(cfg),
		cfg:         cfg,
		logger:      logger.Named("HTTPServer"),
	}
	s.registerRoutes()
	return s
}

// App exposes the fiber app for tests.
func (s *Server) App() *fiber.App {
	return s.app
}

// Start listens and serves HTTP traffic.
func (s *Server) Start() error {
	s.logger.Info("Listening", zap.String("addr", s.cfg.HTTP.Addr))
	return s.app.Listen(s.cfg.HTTP.Addr)
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

func (s *Server) registerRoutes() {
	s.app.Use(recover.New())
	s.app.Use(s.requestLogger)

	s.app.Get("/healthz", s.handleHealth)
	s.app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	s.app.Post("/auth/login", s.handleLogin)
	s.app.Get("/auth/profile", s.handleProfile)

	api := s.app.Group("/api")
	api.Get("/client-config", s.handleClientConfig)
	api.Post("/tokens", s.handleRegisterToken)
	api.Delete("/tokens/:token", s.handleUnregisterToken)

	admin := s.app.Group("/admin")
	admin.Get("/tokens", s.requireScope(service.ScopeTokensRead), s.handleAdminListTokens)
	admin.Post("/broadcast", s.requireScope(service.ScopeBroadcastSend), s.handleAdminBroadcast)

	s.serveFrontend()
}

func (s *Server) requestLogger(c *fiber.Ctx) error {
	start := time.Now()
	err := c.Next()
	s.logger.Info("HTTP request",
		zap.String("method", c.Method()),
		zap.String("path", c.Route().Path),
		zap.Int("status", c.Response().StatusCode()),
		zap.Duration("duration", time.Since(start)),
		zap.String("ip", c.IP()))
	return err
}

func (s *Server) handleHealth(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 3*time.Second)
	defer cancel()
	count, err := s.tokenSvc.Count(ctx)
	if err != nil {
		return c.Status(http.StatusServiceUnavailable).JSON(model.StatusRes{Status: "degraded", Store: err.Error()})
	}
	return c.JSON(model.StatusRes{Status: "ok", Store: "up", TokenCount: count})
}

// sessionView is the login/profile payload. Session is nil when auth is off.
type sessionView struct {
	Enabled bool `json:"enabled"`
	*service.Session
}

func (s *Server) handleLogin(c *fiber.Ctx) error {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(http.StatusBadRequest).JSON(model.Error("malformed request body"))
	}
	session, err := s.authSvc.Login(req.Username, req.Password)
	if err != nil {
		s.logger.Warn("Operator login rejected", zap.String("username", req.Username), zap.String("ip", c.IP()))
		return c.Status(http.StatusUnauthorized).JSON(model.ErrorWithCode(model.AuthCode, err.Error()))
	}
	if !s.authSvc.Enabled() {
		return c.JSON(model.Success("login not required", sessionView{Enabled: false}))
	}
	s.logger.Info("Operator logged in", zap.String("operator", session.Operator), zap.Strings("scopes", session.Scopes))
	return c.JSON(model.Success("ok", sessionView{Enabled: true, Session: session}))
}

func (s *Server) handleProfile(c *fiber.Ctx) error {
	claims, err := s.authSvc.Verify(bearerToken(c.Get(fiber.HeaderAuthorization)))
	if err != nil {
		return c.Status(http.StatusUnauthorized).JSON(model.ErrorWithCode(model.AuthCode, err.Error()))
	}
	view := sessionView{Enabled: s.authSvc.Enabled(), Session: &service.Session{
		Operator: claims.Operator,
		Scopes:   claims.Scopes,
	}}
	if claims.ExpiresAt != nil {
		view.ExpiresAt = claims.ExpiresAt.Time
	}
	return c.JSON(model.Success("ok", view))
}

func (s *Server) handleClientConfig(c *fiber.Ctx) error {
	return c.JSON(model.Success("ok", s.client))
}

func (s *Server) handleRegisterToken(c *fiber.Ctx) error {
	var req service.RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(http.StatusBadRequest).JSON(model.Error("malformed request body"))
	}
	if strings.TrimSpace(req.UserAgent) == "" {
		req.UserAgent = c.Get(fiber.HeaderUserAgent)
	}
	view, err := s.tokenSvc.Register(c.UserContext(), req)
	if err != nil {
		if errors.Is(err, storage.ErrEmptyToken) || errors.Is(err, service.ErrTokenTooLong) {
			return c.Status(http.StatusBadRequest).JSON(model.Error(err.Error()))
		}
		return c.Status(http.StatusInternalServerError).JSON(model.Error(err.Error()))
	}
	return c.JSON(model.Success("registered", view))
}

func (s *Server) handleUnregisterToken(c *fiber.Ctx) error {
	token, err := url.PathUnescape(c.Params("token"))
	if err != nil {
		return c.Status(http.StatusBadRequest).JSON(model.Error("malformed token"))
	}
	if err := s.tokenSvc.Unregister(c.UserContext(), token); err != nil {
		if errors.Is(err, storage.ErrEmptyToken) {
			return c.Status(http.StatusBadRequest).JSON(model.Error(err.Error()))
		}
		return c.Status(http.StatusInternalServerError).JSON(model.Error(err.Error()))
	}
	return c.JSON(model.Success("unregistered", nil))
}

func (s *Server) handleAdminListTokens(c *fiber.Ctx) error {
	page, _ := strconv.Atoi(c.Query("page", "1"))
	pageSize, _ := strconv.Atoi(c.Query("pageSize", "20"))
	result, err := s.tokenSvc.Page(c.UserContext(), page, pageSize)
	if err != nil {
		return c.Status(http.StatusInternalServerError).JSON(model.Error(err.Error()))
	}
	return c.JSON(model.Success("ok", result))
}

func (s *Server) handleAdminBroadcast(c *fiber.Ctx) error {
	if s.broadcaster == nil {
		return c.Status(http.StatusServiceUnavailable).JSON(model.Error("push transport not configured"))
	}
	var req model.BroadcastRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(http.StatusBadRequest).JSON(model.Error("malformed request body"))
	}
	operator := operatorOf(c)
	s.logger.Info("Admin broadcast requested", zap.String("operator", operator), zap.String("title", req.Title))
	ctx := service.WithOperator(c.UserContext(), operator)
	result, err := s.broadcaster.Broadcast(ctx, req.Payload())
	if err != nil {
		if errors.Is(err, service.ErrInvalidPayload) {
			return c.Status(http.StatusBadRequest).JSON(model.Error(err.Error()))
		}
		return c.Status(http.StatusInternalServerError).JSON(model.Error(err.Error()))
	}
	return c.JSON(model.Success("broadcast finished", redactResult(result)))
}

func (s *Server) serveFrontend() {
	dir := strings.TrimSpace(s.cfg.HTTP.StaticDir)
	if dir == "" {
		return
	}
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		s.logger.Warn("Static dir not found, skipping", zap.String("dir", dir))
		return
	}
	s.app.Static("/", dir, fiber.Static{
		Index:    "index.html",
		Compress: true,
	})
}

// requireScope admits requests whose operator session carries scope and
// records the operator for the handler.
func (s *Server) requireScope(scope string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims, err := s.authSvc.Authorize(bearerToken(c.Get(fiber.HeaderAuthorization)), scope)
		switch {
		case errors.Is(err, service.ErrScopeDenied):
			s.logger.Warn("Operator lacks scope",
				zap.String("operator", claims.Operator),
				zap.String("scope", scope),
				zap.String("path", c.Path()))
			return c.Status(http.StatusForbidden).JSON(model.ErrorWithCode(model.ForbiddenCode, err.Error()))
		case err != nil:
			return c.Status(http.StatusUnauthorized).JSON(model.ErrorWithCode(model.AuthCode, "not logged in or session expired"))
		}
		c.Locals(localsOperator, claims.Operator)
		return c.Next()
	}
}

func operatorOf(c *fiber.Ctx) string {
	op, _ := c.Locals(localsOperator).(string)
	return op
}

// redactResult copies the result with every token shortened.
func redactResult(res *model.BroadcastResult) *model.BroadcastResult {
	out := *res
	out.Results = make([]model.RecipientResult, len(res.Results))
	for i, r := range res.Results {
		r.Token = push.RedactToken(r.Token)
		out.Results[i] = r
	}
	return &out
}

func bearerToken(header string) string {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}
