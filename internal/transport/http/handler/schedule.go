package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/Stepanishin/telepublisher-be/internal/domain"
	"github.com/Stepanishin/telepublisher-be/internal/usecase"
	"github.com/gin-gonic/gin"
)

type ScheduleHandler struct {
	uc     *usecase.ScheduleUsecase
	logger *slog.Logger
}

func NewScheduleHandler(uc *usecase.ScheduleUsecase, logger *slog.Logger) *ScheduleHandler {
	return &ScheduleHandler{uc: uc, logger: logger.With("component", "schedule_handler")}
}

type buttonRequest struct {
	Text string `json:"text" binding:"required,max=64"`
	URL  string `json:"url"  binding:"required,url,max=2048"`
}

type createPostRequest struct {
	ChannelID     string          `json:"channel_id"     binding:"required"`
	Text          string          `json:"text"           binding:"required,max=4096"`
	ImageURLs     []string        `json:"image_urls"     binding:"omitempty,max=10,dive,url"`
	Buttons       []buttonRequest `json:"buttons"        binding:"omitempty,max=10,dive"`
	ImagePosition string          `json:"image_position" binding:"omitempty,oneof=top bottom"`
	ScheduledDate time.Time       `json:"scheduled_date" binding:"required"`
}

type postResponse struct {
	ID            string          `json:"id"`
	ChannelID     string          `json:"channel_id"`
	Text          string          `json:"text"`
	ImageURLs     []string        `json:"image_urls,omitempty"`
	Buttons       []domain.Button `json:"buttons,omitempty"`
	ImagePosition string          `json:"image_position"`
	ScheduledDate time.Time       `json:"scheduled_date"`
	CreatedAt     time.Time       `json:"created_at"`
}

func toPostResponse(p *domain.ScheduledPost) postResponse {
	return postResponse{
		ID:            p.ID,
		ChannelID:     p.ChannelID,
		Text:          p.Text,
		ImageURLs:     p.ImageURLs,
		Buttons:       p.Buttons,
		ImagePosition: string(p.ImagePosition),
		ScheduledDate: p.ScheduledDate,
		CreatedAt:     p.CreatedAt,
	}
}

func (h *ScheduleHandler) CreatePost(ctx *gin.Context) {
	var req createPostRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	buttons := make([]domain.Button, len(req.Buttons))
	for i, b := range req.Buttons {
		buttons[i] = domain.Button{Text: b.Text, URL: b.URL}
	}

	p, err := h.uc.CreatePost(ctx.Request.Context(), usecase.CreatePostInput{
		TenantID:      ctx.GetString("tenantID"),
		ChannelID:     req.ChannelID,
		Text:          req.Text,
		ImageURLs:     req.ImageURLs,
		Buttons:       buttons,
		ImagePosition: domain.ImagePosition(req.ImagePosition),
		ScheduledDate: req.ScheduledDate,
	})
	if err != nil {
		switch {
		case errors.Is(err, usecase.ErrScheduledDateInPast):
			ctx.JSON(http.StatusBadRequest, gin.H{"error": errScheduledDateInPast})
		case errors.Is(err, domain.ErrChannelNotFound):
			ctx.JSON(http.StatusNotFound, gin.H{"error": errChannelNotFound})
		default:
			h.logger.Error("create scheduled post", "error", err)
			ctx.JSON(http.StatusInternalServerError, gin.H{"error": errInternalServer})
		}
		return
	}

	ctx.JSON(http.StatusCreated, toPostResponse(p))
}

func (h *ScheduleHandler) ListPosts(ctx *gin.Context) {
	posts, err := h.uc.ListPosts(ctx.Request.Context(), ctx.GetString("tenantID"))
	if err != nil {
		h.logger.Error("list scheduled posts", "error", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": errInternalServer})
		return
	}

	items := make([]postResponse, len(posts))
	for i, p := range posts {
		items[i] = toPostResponse(p)
	}
	ctx.JSON(http.StatusOK, gin.H{"posts": items})
}

func (h *ScheduleHandler) GetPost(ctx *gin.Context) {
	id := ctx.Param("id")

	p, err := h.uc.GetPost(ctx.Request.Context(), id, ctx.GetString("tenantID"))
	if err != nil {
		if errors.Is(err, domain.ErrPostNotFound) {
			ctx.JSON(http.StatusNotFound, gin.H{"error": errPostNotFound})
			return
		}
		h.logger.Error("get scheduled post", "post_id", id, "error", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": errInternalServer})
		return
	}

	ctx.JSON(http.StatusOK, toPostResponse(p))
}

func (h *ScheduleHandler) CancelPost(ctx *gin.Context) {
	id := ctx.Param("id")

	if err := h.uc.CancelPost(ctx.Request.Context(), id, ctx.GetString("tenantID")); err != nil {
		if errors.Is(err, domain.ErrPostNotFound) {
			ctx.JSON(http.StatusNotFound, gin.H{"error": errPostNotFound})
			return
		}
		h.logger.Error("cancel scheduled post", "post_id", id, "error", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": errInternalServer})
		return
	}

	ctx.Status(http.StatusNoContent)
}

// POST /scheduled-posts/:id/publish sends the post immediately. The
// publish failure message comes back verbatim from the gateway.
func (h *ScheduleHandler) PublishPost(ctx *gin.Context) {
	id := ctx.Param("id")

	deliveryID, err := h.uc.PublishPostNow(ctx.Request.Context(), id, ctx.GetString("tenantID"))
	if err != nil {
		var pubErr *usecase.PublishError
		switch {
		case errors.Is(err, domain.ErrPostNotFound):
			ctx.JSON(http.StatusNotFound, gin.H{"error": errPostNotFound})
		case errors.Is(err, domain.ErrAlreadyInFlight):
			ctx.JSON(http.StatusConflict, gin.H{"error": errAlreadyInFlight})
		case errors.As(err, &pubErr):
			ctx.JSON(http.StatusBadGateway, gin.H{"error": pubErr.Message})
		default:
			h.logger.Error("publish scheduled post", "post_id", id, "error", err)
			ctx.JSON(http.StatusInternalServerError, gin.H{"error": errInternalServer})
		}
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"delivery_id": deliveryID})
}

type createPollRequest struct {
	ChannelID     string    `json:"channel_id"     binding:"required"`
	Question      string    `json:"question"       binding:"required,max=300"`
	Options       []string  `json:"options"        binding:"required,min=2,max=10,dive,max=100"`
	IsAnonymous   bool      `json:"is_anonymous"`
	ScheduledDate time.Time `json:"scheduled_date" binding:"required"`
}

type pollResponse struct {
	ID            string    `json:"id"`
	ChannelID     string    `json:"channel_id"`
	Question      string    `json:"question"`
	Options       []string  `json:"options"`
	IsAnonymous   bool      `json:"is_anonymous"`
	ScheduledDate time.Time `json:"scheduled_date"`
	CreatedAt     time.Time `json:"created_at"`
}

func toPollResponse(p *domain.ScheduledPoll) pollResponse {
	return pollResponse{
		ID:            p.ID,
		ChannelID:     p.ChannelID,
		Question:      p.Question,
		Options:       p.Options,
		IsAnonymous:   p.IsAnonymous,
		ScheduledDate: p.ScheduledDate,
		CreatedAt:     p.CreatedAt,
	}
}

func (h *ScheduleHandler) CreatePoll(ctx *gin.Context) {
	var req createPollRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	p, err := h.uc.CreatePoll(ctx.Request.Context(), usecase.CreatePollInput{
		TenantID:      ctx.GetString("tenantID"),
		ChannelID:     req.ChannelID,
		Question:      req.Question,
		Options:       req.Options,
		IsAnonymous:   req.IsAnonymous,
		ScheduledDate: req.ScheduledDate,
	})
	if err != nil {
		switch {
		case errors.Is(err, usecase.ErrScheduledDateInPast):
			ctx.JSON(http.StatusBadRequest, gin.H{"error": errScheduledDateInPast})
		case errors.Is(err, usecase.ErrTooFewPollOptions):
			ctx.JSON(http.StatusBadRequest, gin.H{"error": errTooFewPollOptions})
		case errors.Is(err, domain.ErrChannelNotFound):
			ctx.JSON(http.StatusNotFound, gin.H{"error": errChannelNotFound})
		default:
			h.logger.Error("create scheduled poll", "error", err)
			ctx.JSON(http.StatusInternalServerError, gin.H{"error": errInternalServer})
		}
		return
	}

	ctx.JSON(http.StatusCreated, toPollResponse(p))
}

func (h *ScheduleHandler) ListPolls(ctx *gin.Context) {
	polls, err := h.uc.ListPolls(ctx.Request.Context(), ctx.GetString("tenantID"))
	if err != nil {
		h.logger.Error("list scheduled polls", "error", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": errInternalServer})
		return
	}

	items := make([]pollResponse, len(polls))
	for i, p := range polls {
		items[i] = toPollResponse(p)
	}
	ctx.JSON(http.StatusOK, gin.H{"polls": items})
}

func (h *ScheduleHandler) GetPoll(ctx *gin.Context) {
	id := ctx.Param("id")

	p, err := h.uc.GetPoll(ctx.Request.Context(), id, ctx.GetString("tenantID"))
	if err != nil {
		if errors.Is(err, domain.ErrPollNotFound) {
			ctx.JSON(http.StatusNotFound, gin.H{"error": errPollNotFound})
			return
		}
		h.logger.Error("get scheduled poll", "poll_id", id, "error", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": errInternalServer})
		return
	}

	ctx.JSON(http.StatusOK, toPollResponse(p))
}

func (h *ScheduleHandler) CancelPoll(ctx *gin.Context) {
	id := ctx.Param("id")

	if err := h.uc.CancelPoll(ctx.Request.Context(), id, ctx.GetString("tenantID")); err != nil {
		if errors.Is(err, domain.ErrPollNotFound) {
			ctx.JSON(http.StatusNotFound, gin.H{"error": errPollNotFound})
			return
		}
		h.logger.Error("cancel scheduled poll", "poll_id", id, "error", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": errInternalServer})
		return
	}

	ctx.Status(http.StatusNoContent)
}

func (h *ScheduleHandler) PublishPoll(ctx *gin.Context) {
	id := ctx.Param("id")

	deliveryID, err := h.uc.PublishPollNow(ctx.Request.Context(), id, ctx.GetString("tenantID"))
	if err != nil {
		var pubErr *usecase.PublishError
		switch {
		case errors.Is(err, domain.ErrPollNotFound):
			ctx.JSON(http.StatusNotFound, gin.H{"error": errPollNotFound})
		case errors.Is(err, domain.ErrAlreadyInFlight):
			ctx.JSON(http.StatusConflict, gin.H{"error": errAlreadyInFlight})
		case errors.As(err, &pubErr):
			ctx.JSON(http.StatusBadGateway, gin.H{"error": pubErr.Message})
		default:
			h.logger.Error("publish scheduled poll", "poll_id", id, "error", err)
			ctx.JSON(http.StatusInternalServerError, gin.H{"error": errInternalServer})
		}
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"delivery_id": deliveryID})
}
