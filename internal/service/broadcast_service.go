package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/smilecare-labs/clinic-push/internal/logging"
	"github.com/smilecare-labs/clinic-push/internal/model"
	"github.com/smilecare-labs/clinic-push/internal/push"
	"github.com/smilecare-labs/clinic-push/internal/storage"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ErrInvalidPayload is returned when a broadcast payload cannot be displayed.
var ErrInvalidPayload = errors.New("invalid notification payload")

type operatorKey struct{}

// WithOperator records who asked for the work done under ctx.
func WithOperator(ctx context.Context, operator string) context.Context {
	return context.WithValue(ctx, operatorKey{}, operator)
}

// OperatorFrom returns the operator stored by WithOperator, or "".
func OperatorFrom(ctx context.Context) string {
	op, _ := ctx.Value(operatorKey{}).(string)
	return op
}

// BroadcastService sends one notification to every stored token and prunes
// tokens the transport reports as not registered.
type BroadcastService struct {
	store          storage.Store
	transport      push.Transport
	logger         *zap.Logger
	maxConcurrency int
	newID          func() string
}

// BroadcastOption customises a BroadcastService.
type BroadcastOption func(*BroadcastService)

// WithMaxConcurrency caps in-flight sends. Zero or less means no cap.
func WithMaxConcurrency(n int) BroadcastOption {
	return func(s *BroadcastService) { s.maxConcurrency = n }
}

// NewBroadcastService builds BroadcastService.
func NewBroadcastService(store storage.Store, transport push.Transport, logger *zap.Logger, opts ...BroadcastOption) *BroadcastService {
	logger = logging.OrNop(logger)
	s := &BroadcastService{
		store:     store,
		transport: transport,
		logger:    logger.Named("BroadcastService"),
		newID:     func() string { return uuid.NewString() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Broadcast waits for every send to settle before tallying. A failure to list
// tokens is the only error that aborts the run.
func (s *BroadcastService) Broadcast(ctx context.Context, payload model.NotificationPayload) (*model.BroadcastResult, error) {
	if err := payload.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	id := s.newID()
	operator := OperatorFrom(ctx)
	log := s.logger.With(
		zap.String("broadcastID", id),
		zap.String("transport", s.transport.Name()),
		zap.String("operator", operator))
	broadcastsTotal.Inc()

	tokens, err := s.store.ListTokens(ctx)
	if err != nil {
		log.Error("Failed to list tokens", zap.Error(err))
		return nil, fmt.Errorf("list tokens: %w", err)
	}

	result := &model.BroadcastResult{
		BroadcastID: id,
		RequestedBy: operator,
		Recipients:  len(tokens),
		Results:     make([]model.RecipientResult, len(tokens)),
	}
	if len(tokens) == 0 {
		log.Info("No tokens registered, nothing to send")
		return result, nil
	}
	log.Info("Broadcasting", zap.Int("recipients", len(tokens)))

	var g errgroup.Group
	if s.maxConcurrency > 0 {
		g.SetLimit(s.maxConcurrency)
	}
	for i, tok := range tokens {
		g.Go(func() error {
			result.Results[i] = s.sendOne(ctx, payload.ForRecipient(tok.Token))
			return nil
		})
	}
	_ = g.Wait()

	for i := range result.Results {
		res := &result.Results[i]
		if res.Status == model.SendStatusSuccess {
			result.SuccessCount++
			continue
		}
		result.FailureCount++
		log.Warn("Send failed",
			zap.String("tokenPrefix", push.RedactToken(res.Token)),
			zap.Bool("notRegistered", res.NotRegistered),
			zap.String("error", res.Error))
		if !res.NotRegistered {
			continue
		}
		if err := s.store.DeleteToken(ctx, res.Token); err != nil {
			log.Error("Failed to delete unregistered token",
				zap.String("tokenPrefix", push.RedactToken(res.Token)),
				zap.Error(err))
			continue
		}
		res.Pruned = true
		result.PrunedCount++
	}

	sendsTotal.WithLabelValues(s.transport.Name(), "success").Add(float64(result.SuccessCount))
	sendsTotal.WithLabelValues(s.transport.Name(), "failure").Add(float64(result.FailureCount))
	prunedTokensTotal.Add(float64(result.PrunedCount))

	log.Info("Broadcast finished",
		zap.Int("successCount", result.SuccessCount),
		zap.Int("failureCount", result.FailureCount),
		zap.Int("prunedCount", result.PrunedCount))
	return result, nil
}

// sendOne never panics out of the fan-out; a panicking transport counts as a failure.
func (s *BroadcastService) sendOne(ctx context.Context, recipient model.Recipient) (res model.RecipientResult) {
	res = model.RecipientResult{Token: recipient.Token}
	defer func() {
		if r := recover(); r != nil {
			res.Status = model.SendStatusFailed
			res.Error = fmt.Sprintf("transport panic: %v", r)
		}
	}()
	id, err := s.transport.Send(ctx, recipient)
	if err != nil {
		res.Status = model.SendStatusFailed
		res.Error = err.Error()
		res.NotRegistered = push.IsNotRegistered(err)
		return res
	}
	res.Status = model.SendStatusSuccess
	res.MessageID = id
	return res
}
