package dispatch

import (
	"context"
	"encoding/json"
	"strings"

	"osprey/internal/constants"
	"osprey/internal/logger"
	pkgerrors "osprey/pkg/errors"
	"osprey/pkg/models"
)

type subscriptionService struct {
	repo     Repository
	logs     DeliveryLogStore
	engine   *Engine
	audit    *AuditLogger
	notifier *LifecycleNotifier
	logger   logger.Logger
}

type ServiceOption func(*subscriptionService)

func WithAudit(audit *AuditLogger) ServiceOption {
	return func(s *subscriptionService) {
		s.audit = audit
	}
}

func WithNotifier(notifier *LifecycleNotifier) ServiceOption {
	return func(s *subscriptionService) {
		s.notifier = notifier
	}
}

func WithEngine(engine *Engine) ServiceOption {
	return func(s *subscriptionService) {
		s.engine = engine
	}
}

func WithServiceLogger(log logger.Logger) ServiceOption {
	return func(s *subscriptionService) {
		s.logger = log
	}
}

func NewService(repo Repository, logs DeliveryLogStore, opts ...ServiceOption) Service {
	s := &subscriptionService{
		repo:   repo,
		logs:   logs,
		logger: logger.NopLogger(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

func (s *subscriptionService) CreateSubscription(ctx context.Context, req CreateSubscriptionRequest) (*WebhookSubscription, error) {
	if err := ValidateCreateSubscription(req); err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.ErrValidation)
	}

	sub := &WebhookSubscription{
		UserID:           req.UserID,
		TriggerType:      req.TriggerType,
		WebhookURL:       req.WebhookURL,
		SecretToken:      req.SecretToken,
		FilterExpression: req.FilterExpression,
		IsActive:         getActiveValue(req.IsActive),
	}

	if err := s.repo.CreateSubscription(ctx, sub); err != nil {
		if pkgerrors.IsConflict(err) {
			return nil, err
		}
		return nil, pkgerrors.Wrap(err, pkgerrors.ErrInternal)
	}

	s.recordAudit(ctx, sub.ID, models.ActionCreate, nil, sub)
	s.publishLifecycleEvent(ctx, models.ActionCreate, sub, "")

	return s.copySubscription(sub), nil
}

func (s *subscriptionService) ListSubscriptions(ctx context.Context, userID string) ([]WebhookSubscription, error) {
	subs, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.ErrInternal)
	}
	return subs, nil
}

func (s *subscriptionService) GetSubscription(ctx context.Context, id string) (*WebhookSubscription, error) {
	sub, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, s.handleNotFoundError(err, id)
	}
	if sub == nil {
		return nil, pkgerrors.ErrNotFound.WithDetail("id", id)
	}
	return s.copySubscription(sub), nil
}

func (s *subscriptionService) UpdateSubscription(ctx context.Context, id string, req UpdateSubscriptionRequest) (*WebhookSubscription, error) {
	if err := ValidateUpdateSubscription(req); err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.ErrValidation)
	}

	sub, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, s.handleNotFoundError(err, id)
	}
	if sub == nil {
		return nil, pkgerrors.ErrNotFound.WithDetail("id", id)
	}

	oldValue, _ := s.subscriptionToMap(sub)
	wasActive := sub.IsActive
	s.updateSubscriptionFields(sub, req)

	if err := s.repo.UpdateSubscription(ctx, sub); err != nil {
		return nil, s.handleNotFoundError(err, id)
	}

	action := models.ActionUpdate
	if wasActive && !sub.IsActive {
		action = models.ActionDisable
	}

	s.recordAudit(ctx, sub.ID, action, oldValue, sub)
	s.publishLifecycleEvent(ctx, action, sub, "")

	return s.copySubscription(sub), nil
}

func (s *subscriptionService) DeleteSubscription(ctx context.Context, id string) error {
	sub, err := s.repo.Get(ctx, id)
	if err != nil {
		return s.handleNotFoundError(err, id)
	}
	if sub == nil {
		return pkgerrors.ErrNotFound.WithDetail("id", id)
	}

	oldValue, _ := s.subscriptionToMap(sub)

	if err := s.repo.DeleteSubscription(ctx, id); err != nil {
		return pkgerrors.Wrap(err, pkgerrors.ErrInternal)
	}

	s.recordAudit(ctx, id, models.ActionDelete, oldValue, nil)
	s.publishLifecycleEvent(ctx, models.ActionDelete, sub, "")

	return nil
}

func (s *subscriptionService) ListDeliveries(ctx context.Context, id string, limit, offset int) ([]DeliveryLogEntry, error) {
	sub, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, s.handleNotFoundError(err, id)
	}
	if sub == nil {
		return nil, pkgerrors.ErrNotFound.WithDetail("id", id)
	}

	if limit <= 0 || limit > constants.MaxLimit {
		limit = constants.DefaultLimit
	}
	if offset < 0 {
		offset = 0
	}

	entries, err := s.logs.ListByWebhook(ctx, id, limit, offset)
	if err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.ErrInternal)
	}
	return entries, nil
}

func (s *subscriptionService) TestDelivery(ctx context.Context, id string) (*TestDeliveryResult, error) {
	if s.engine == nil {
		return nil, pkgerrors.ErrInternal.WithDetail("message", "delivery engine not configured")
	}
	return s.engine.TestDelivery(ctx, id)
}

func (s *subscriptionService) handleNotFoundError(err error, id string) error {
	if err == nil {
		return nil
	}
	if pkgerrors.IsNotFound(err) || strings.Contains(err.Error(), "not found") {
		return pkgerrors.ErrNotFound.WithDetail("id", id)
	}
	return pkgerrors.Wrap(err, pkgerrors.ErrInternal)
}

func (s *subscriptionService) recordAudit(ctx context.Context, subscriptionID, action string, oldValue map[string]interface{}, sub *WebhookSubscription) {
	if s.audit == nil {
		return
	}

	var newValue map[string]interface{}
	if sub != nil {
		newValue, _ = s.subscriptionToMap(sub)
	}

	// Best-effort: audit trouble never fails the mutation.
	if err := s.audit.LogSubscriptionChange(ctx, AuditEntry{
		SubscriptionID: subscriptionID,
		Action:         action,
		OldValue:       oldValue,
		NewValue:       newValue,
		Actor:          getChangedBy(ctx),
	}); err != nil {
		s.logger.WarnwCtx(ctx, "Failed to record subscription audit entry",
			"subscription_id", subscriptionID,
			"action", action,
			"error", err,
		)
	}
}

func (s *subscriptionService) publishLifecycleEvent(ctx context.Context, action string, sub *WebhookSubscription, reason string) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.PublishSubscriptionEvent(ctx, action, sub, reason, getChangedBy(ctx)); err != nil {
		s.logger.WarnwCtx(ctx, "Failed to publish subscription lifecycle event",
			"subscription_id", sub.ID,
			"action", action,
			"error", err,
		)
	}
}

// subscriptionToMap round-trips through JSON, which drops the secret token
// from audit records along with every other json:"-" field.
func (s *subscriptionService) subscriptionToMap(sub *WebhookSubscription) (map[string]interface{}, error) {
	data, err := json.Marshal(sub)
	if err != nil {
		return nil, err
	}
	var result map[string]interface{}
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, err
	}
	return result, nil
}

func (s *subscriptionService) updateSubscriptionFields(sub *WebhookSubscription, req UpdateSubscriptionRequest) {
	if req.TriggerType != nil {
		sub.TriggerType = *req.TriggerType
	}
	if req.WebhookURL != nil {
		sub.WebhookURL = *req.WebhookURL
	}
	if req.SecretToken != nil {
		sub.SecretToken = *req.SecretToken
	}
	if req.FilterExpression != nil {
		sub.FilterExpression = *req.FilterExpression
	}
	if req.IsActive != nil {
		sub.IsActive = *req.IsActive
	}
}

func (s *subscriptionService) copySubscription(sub *WebhookSubscription) *WebhookSubscription {
	c := *sub
	return &c
}

func getActiveValue(reqActive *bool) bool {
	if reqActive == nil {
		return true
	}
	return *reqActive
}

func getChangedBy(ctx context.Context) string {
	if userID := ctx.Value("user_id"); userID != nil {
		if id, ok := userID.(string); ok {
			return id
		}
	}
	return "system"
}
