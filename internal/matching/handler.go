package matching

import (
	"net/http"

	"github.com/gin-gonic/gin"

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

type MatchHandler struct {
	BaseHandler
	Service Service
}

func NewMatchHandler(service Service, log logger.Logger) *MatchHandler {
	return &MatchHandler{
		BaseHandler: BaseHandler{Logger: log},
		Service:     service,
	}
}

func (h *MatchHandler) RegisterRoutes(router *gin.Engine) {
	v1 := router.Group("/api/v1")
	{
		match := v1.Group("/match")
		{
			match.POST("", h.MatchParticipant)
			match.POST("/batch", h.MatchBatch)
		}

		reviews := v1.Group("/reviews")
		{
			reviews.GET("", h.ListReviews)
			reviews.PATCH("/:id", h.UpdateReview)
		}
	}
}

// MatchParticipant godoc
// @Summary      Match one participant against the contact roster
// @Description  Parse a free-text participant label and suggest matching CRM contacts with confidence scores
// @Tags         match
// @Accept       json
// @Produce      json
// @Param        request  body      MatchRequest  true  "Participant to match"
// @Success      200      {object}  ParticipantMatchResult
// @Failure      400      {object}  errors.ErrorResponse
// @Failure      500      {object}  errors.ErrorResponse
// @Router       /match [post]
func (h *MatchHandler) MatchParticipant(c *gin.Context) {
	var req MatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		metrics.MatchRequestsTotal.WithLabelValues("http", "invalid").Inc()
		c.JSON(http.StatusBadRequest, errors.ToErrorResponse(errors.ErrValidation.WithCause(err)))
		return
	}

	result, err := h.Service.MatchParticipant(c.Request.Context(), req)
	if err != nil {
		if errors.IsValidation(err) {
			metrics.MatchRequestsTotal.WithLabelValues("http", "invalid").Inc()
		} else {
			metrics.MatchRequestsTotal.WithLabelValues("http", "error").Inc()
		}
		h.HandleError(c, err)
		return
	}

	metrics.MatchRequestsTotal.WithLabelValues("http", "success").Inc()
	c.JSON(http.StatusOK, result)
}

// MatchBatch godoc
// @Summary      Match a batch of participants
// @Description  Match several participant labels in one call; individual failures come back as empty review-required results
// @Tags         match
// @Accept       json
// @Produce      json
// @Param        request  body      BatchMatchRequest  true  "Participants to match"
// @Success      200      {array}   ParticipantMatchResult
// @Failure      400      {object}  errors.ErrorResponse
// @Failure      500      {object}  errors.ErrorResponse
// @Router       /match/batch [post]
func (h *MatchHandler) MatchBatch(c *gin.Context) {
	var req BatchMatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		metrics.MatchRequestsTotal.WithLabelValues("http", "invalid").Inc()
		c.JSON(http.StatusBadRequest, errors.ToErrorResponse(errors.ErrValidation.WithCause(err)))
		return
	}

	results, err := h.Service.MatchBatch(c.Request.Context(), req)
	if err != nil {
		if errors.IsValidation(err) {
			metrics.MatchRequestsTotal.WithLabelValues("http", "invalid").Inc()
		} else {
			metrics.MatchRequestsTotal.WithLabelValues("http", "error").Inc()
		}
		h.HandleError(c, err)
		return
	}

	metrics.MatchRequestsTotal.WithLabelValues("http", "success").Inc()
	c.JSON(http.StatusOK, results)
}

// ListReviews godoc
// @Summary      List match reviews for a user
// @Description  Get match reviews, newest first, optionally narrowed to one analysis
// @Tags         reviews
// @Accept       json
// @Produce      json
// @Param        user_id      query     string  true   "User ID"
// @Param        analysis_id  query     string  false  "Analysis ID"
// @Success      200          {array}   MatchReview
// @Failure      400          {object}  errors.ErrorResponse
// @Failure      500          {object}  errors.ErrorResponse
// @Router       /reviews [get]
func (h *MatchHandler) ListReviews(c *gin.Context) {
	reviews, err := h.Service.ListReviews(c.Request.Context(), c.Query("user_id"), c.Query("analysis_id"))
	if err != nil {
		h.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, reviews)
}

// UpdateReview godoc
// @Summary      Confirm or reject a match review
// @Description  Move a review to confirmed or rejected, optionally recording which contact was confirmed
// @Tags         reviews
// @Accept       json
// @Produce      json
// @Param        id      path      string               true  "Review ID"
// @Param        update  body      UpdateReviewRequest  true  "New status"
// @Success      200     {object}  MatchReview
// @Failure      400     {object}  errors.ErrorResponse
// @Failure      404     {object}  errors.ErrorResponse
// @Failure      500     {object}  errors.ErrorResponse
// @Router       /reviews/{id} [patch]
func (h *MatchHandler) UpdateReview(c *gin.Context) {
	var req UpdateReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errors.ToErrorResponse(errors.ErrValidation.WithCause(err)))
		return
	}

	review, err := h.Service.UpdateReview(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, review)
}
