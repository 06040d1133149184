package dispatch

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"osprey/internal/constants"
	"osprey/internal/logger"
	"osprey/pkg/errors"
	"osprey/pkg/metrics"
)

type BaseHandler struct {
	Logger logger.Logger
}

func (h *BaseHandler) HandleError(c *gin.Context, err error) {
	h.Logger.ErrorwCtx(c.Request.Context(), "Request error", "error", err, "path", c.Request.URL.Path)

	status := errors.ToHTTPStatus(err)
	response := errors.ToErrorResponse(err)

	c.JSON(status, response)
}

type SubscriptionHandler struct {
	BaseHandler
	Service Service
}

func NewSubscriptionHandler(service Service, log logger.Logger) *SubscriptionHandler {
	return &SubscriptionHandler{
		BaseHandler: BaseHandler{Logger: log},
		Service:     service,
	}
}

func (h *SubscriptionHandler) RegisterRoutes(router *gin.Engine) {
	v1 := router.Group("/api/v1")
	{
		subs := v1.Group("/subscriptions")
		{
			subs.GET("", h.ListSubscriptions)
			subs.POST("", h.CreateSubscription)
			subs.GET("/:id", h.GetSubscription)
			subs.PUT("/:id", h.UpdateSubscription)
			subs.DELETE("/:id", h.DeleteSubscription)
			subs.GET("/:id/deliveries", h.ListDeliveries)
			subs.POST("/:id/test", h.TestDelivery)
		}
	}
}

// ListSubscriptions godoc
// @Summary      List webhook subscriptions for a user
// @Description  Get all webhook subscriptions belonging to the given user
// @Tags         subscriptions
// @Accept       json
// @Produce      json
// @Param        user_id  query     string  true  "User ID"
// @Success      200      {array}   WebhookSubscription
// @Failure      400      {object}  errors.ErrorResponse
// @Failure      500      {object}  errors.ErrorResponse
// @Router       /subscriptions [get]
func (h *SubscriptionHandler) ListSubscriptions(c *gin.Context) {
	userID := c.Query("user_id")
	if _, err := uuid.Parse(userID); err != nil {
		c.JSON(http.StatusBadRequest, errors.ToErrorResponse(
			errors.ErrValidation.WithDetail("message", "user_id must be a valid UUID")))
		return
	}

	subs, err := h.Service.ListSubscriptions(c.Request.Context(), userID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, subs)
}

// CreateSubscription godoc
// @Summary      Create a webhook subscription
// @Description  Register a webhook endpoint for a trigger type
// @Tags         subscriptions
// @Accept       json
// @Produce      json
// @Param        subscription  body      CreateSubscriptionRequest  true  "Subscription data"
// @Success      201           {object}  WebhookSubscription
// @Failure      400           {object}  errors.ErrorResponse
// @Failure      409           {object}  errors.ErrorResponse
// @Failure      500           {object}  errors.ErrorResponse
// @Router       /subscriptions [post]
func (h *SubscriptionHandler) CreateSubscription(c *gin.Context) {
	var req CreateSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errors.ToErrorResponse(errors.ErrValidation.WithCause(err)))
		return
	}

	sub, err := h.Service.CreateSubscription(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, sub)
}

// GetSubscription godoc
// @Summary      Get a webhook subscription by ID
// @Description  Get a specific webhook subscription by its ID
// @Tags         subscriptions
// @Accept       json
// @Produce      json
// @Param        id   path      string  true  "Subscription ID"
// @Success      200  {object}  WebhookSubscription
// @Failure      404  {object}  errors.ErrorResponse
// @Failure      500  {object}  errors.ErrorResponse
// @Router       /subscriptions/{id} [get]
func (h *SubscriptionHandler) GetSubscription(c *gin.Context) {
	id := c.Param("id")
	sub, err := h.Service.GetSubscription(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, sub)
}

// UpdateSubscription godoc
// @Summary      Update a webhook subscription
// @Description  Update an existing webhook subscription by ID
// @Tags         subscriptions
// @Accept       json
// @Produce      json
// @Param        id            path      string                     true  "Subscription ID"
// @Param        subscription  body      UpdateSubscriptionRequest  true  "Updated subscription data"
// @Success      200           {object}  WebhookSubscription
// @Failure      400           {object}  errors.ErrorResponse
// @Failure      404           {object}  errors.ErrorResponse
// @Failure      500           {object}  errors.ErrorResponse
// @Router       /subscriptions/{id} [put]
func (h *SubscriptionHandler) UpdateSubscription(c *gin.Context) {
	id := c.Param("id")
	var req UpdateSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errors.ToErrorResponse(errors.ErrValidation.WithCause(err)))
		return
	}

	sub, err := h.Service.UpdateSubscription(c.Request.Context(), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, sub)
}

// DeleteSubscription godoc
// @Summary      Delete a webhook subscription
// @Description  Delete a webhook subscription by ID
// @Tags         subscriptions
// @Accept       json
// @Produce      json
// @Param        id   path  string  true  "Subscription ID"
// @Success      204  "No Content"
// @Failure      404  {object}  errors.ErrorResponse
// @Failure      500  {object}  errors.ErrorResponse
// @Router       /subscriptions/{id} [delete]
func (h *SubscriptionHandler) DeleteSubscription(c *gin.Context) {
	id := c.Param("id")
	if err := h.Service.DeleteSubscription(c.Request.Context(), id); err != nil {
		h.HandleError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// ListDeliveries godoc
// @Summary      List delivery attempts for a subscription
// @Description  Get the delivery log for a webhook subscription, newest first
// @Tags         subscriptions
// @Accept       json
// @Produce      json
// @Param        id      path      string  true   "Subscription ID"
// @Param        limit   query     int     false  "Maximum number of entries to return (1-1000)" default(100)
// @Param        offset  query     int     false  "Number of entries to skip" default(0)
// @Success      200     {array}   DeliveryLogEntry
// @Failure      404     {object}  errors.ErrorResponse
// @Failure      500     {object}  errors.ErrorResponse
// @Router       /subscriptions/{id}/deliveries [get]
func (h *SubscriptionHandler) ListDeliveries(c *gin.Context) {
	id := c.Param("id")
	limit := parseLimit(c.Query("limit"))
	offset := parseOffset(c.Query("offset"))

	entries, err := h.Service.ListDeliveries(c.Request.Context(), id, limit, offset)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, entries)
}

// TestDelivery godoc
// @Summary      Send a test delivery
// @Description  Perform one synchronous delivery with a sample payload, no retries
// @Tags         subscriptions
// @Accept       json
// @Produce      json
// @Param        id   path      string  true  "Subscription ID"
// @Success      200  {object}  TestDeliveryResult
// @Failure      404  {object}  errors.ErrorResponse
// @Failure      500  {object}  errors.ErrorResponse
// @Router       /subscriptions/{id}/test [post]
func (h *SubscriptionHandler) TestDelivery(c *gin.Context) {
	id := c.Param("id")
	result, err := h.Service.TestDelivery(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

type TriggerHandler struct {
	BaseHandler
	engine *Engine
}

func NewTriggerHandler(engine *Engine, log logger.Logger) *TriggerHandler {
	return &TriggerHandler{
		BaseHandler: BaseHandler{Logger: log},
		engine:      engine,
	}
}

// RegisterRoutes mounts the trigger intake endpoint behind the supplied
// auth middleware. The endpoint is service-to-service only.
func (h *TriggerHandler) RegisterRoutes(router *gin.Engine, internalAuth gin.HandlerFunc) {
	v1 := router.Group("/api/v1")
	{
		v1.POST("/triggers", internalAuth, h.IngestTrigger)
	}
}

// IngestTrigger godoc
// @Summary      Ingest a trigger event
// @Description  Validate the event and launch webhook deliveries for matching subscriptions
// @Tags         triggers
// @Accept       json
// @Produce      json
// @Param        event  body      TriggerEvent  true  "Trigger event"
// @Success      202    {object}  TriggerAccepted
// @Failure      400    {object}  errors.ErrorResponse
// @Failure      401    {object}  errors.ErrorResponse
// @Failure      500    {object}  errors.ErrorResponse
// @Router       /triggers [post]
func (h *TriggerHandler) IngestTrigger(c *gin.Context) {
	var event TriggerEvent
	if err := c.ShouldBindJSON(&event); err != nil {
		metrics.TriggerEventsTotal.WithLabelValues("http", "invalid").Inc()
		c.JSON(http.StatusBadRequest, errors.ToErrorResponse(errors.ErrValidation.WithCause(err)))
		return
	}

	launched, err := h.engine.ProcessTriggerEvent(c.Request.Context(), event)
	if err != nil {
		if errors.IsValidation(err) {
			metrics.TriggerEventsTotal.WithLabelValues("http", "invalid").Inc()
		} else {
			metrics.TriggerEventsTotal.WithLabelValues("http", "error").Inc()
		}
		h.HandleError(c, err)
		return
	}

	metrics.TriggerEventsTotal.WithLabelValues("http", "accepted").Inc()
	c.JSON(http.StatusAccepted, TriggerAccepted{
		Status:             "accepted",
		DeliveriesLaunched: launched,
	})
}

func parseLimit(limitStr string) int {
	if limitStr == "" {
		return constants.DefaultLimit
	}
	parsed, err := strconv.Atoi(limitStr)
	if err != nil || parsed <= 0 || parsed > constants.MaxLimit {
		return constants.DefaultLimit
	}
	return parsed
}

func parseOffset(offsetStr string) int {
	if offsetStr == "" {
		return 0
	}
	parsed, err := strconv.Atoi(offsetStr)
	if err != nil || parsed < 0 {
		return 0
	}
	return parsed
}
