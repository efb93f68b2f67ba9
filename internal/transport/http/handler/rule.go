package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/Stepanishin/telepublisher-be/internal/domain"
	"github.com/Stepanishin/telepublisher-be/internal/usecase"
	"github.com/gin-gonic/gin"
)

type RuleHandler struct {
	uc     *usecase.RuleUsecase
	logger *slog.Logger
}

func NewRuleHandler(uc *usecase.RuleUsecase, logger *slog.Logger) *RuleHandler {
	return &RuleHandler{uc: uc, logger: logger.With("component", "rule_handler")}
}

type recurrenceRequest struct {
	Frequency      domain.Frequency `json:"frequency"        binding:"required,oneof=daily weekly custom"`
	CustomInterval int              `json:"custom_interval"  binding:"omitempty,min=1"`
	CustomTimeUnit domain.TimeUnit  `json:"custom_time_unit" binding:"omitempty,oneof=minutes hours days"`
	PreferredTime  string           `json:"preferred_time"   binding:"omitempty,max=5"`
	PreferredDays  []string         `json:"preferred_days"   binding:"omitempty,max=7"`
}

type createRuleRequest struct {
	ChannelID        string            `json:"channel_id"        binding:"required"`
	Topic            string            `json:"topic"             binding:"required,max=512"`
	Keywords         []string          `json:"keywords"          binding:"omitempty,max=20,dive,max=64"`
	SourceURLs       []string          `json:"source_urls"       binding:"omitempty,max=10,dive,url"`
	ImageGeneration  bool              `json:"image_generation"`
	AvoidDuplication bool              `json:"avoid_duplication"`
	CheckDays        int               `json:"check_days"        binding:"omitempty,min=1,max=90"`
	Recurrence       recurrenceRequest `json:"recurrence"        binding:"required"`
}

type recurrenceResponse struct {
	Frequency      domain.Frequency `json:"frequency"`
	CustomInterval int              `json:"custom_interval,omitempty"`
	CustomTimeUnit domain.TimeUnit  `json:"custom_time_unit,omitempty"`
	PreferredTime  string           `json:"preferred_time,omitempty"`
	PreferredDays  []string         `json:"preferred_days,omitempty"`
	NextScheduled  *time.Time       `json:"next_scheduled,omitempty"`
}

type ruleResponse struct {
	ID               string             `json:"id"`
	ChannelID        string             `json:"channel_id"`
	Topic            string             `json:"topic"`
	Keywords         []string           `json:"keywords,omitempty"`
	SourceURLs       []string           `json:"source_urls,omitempty"`
	ImageGeneration  bool               `json:"image_generation"`
	AvoidDuplication bool               `json:"avoid_duplication"`
	CheckDays        int                `json:"check_days"`
	Recurrence       recurrenceResponse `json:"recurrence"`
	Status           domain.RuleStatus  `json:"status"`
	LastPublished    *time.Time         `json:"last_published,omitempty"`
	CreatedAt        time.Time          `json:"created_at"`
}

func toRuleResponse(r *domain.AutopostingRule) ruleResponse {
	return ruleResponse{
		ID:               r.ID,
		ChannelID:        r.ChannelID,
		Topic:            r.Topic,
		Keywords:         r.Keywords,
		SourceURLs:       r.SourceURLs,
		ImageGeneration:  r.ImageGeneration,
		AvoidDuplication: r.AvoidDuplication,
		CheckDays:        r.CheckDays,
		Recurrence: recurrenceResponse{
			Frequency:      r.Recurrence.Frequency,
			CustomInterval: r.Recurrence.CustomInterval,
			CustomTimeUnit: r.Recurrence.CustomTimeUnit,
			PreferredTime:  r.Recurrence.PreferredTime,
			PreferredDays:  r.Recurrence.PreferredDays,
			NextScheduled:  r.Recurrence.NextScheduled,
		},
		Status:        r.Status,
		LastPublished: r.LastPublished,
		CreatedAt:     r.CreatedAt,
	}
}

func toRecurrenceInput(req recurrenceRequest) usecase.RecurrenceInput {
	return usecase.RecurrenceInput{
		Frequency:      req.Frequency,
		CustomInterval: req.CustomInterval,
		CustomTimeUnit: req.CustomTimeUnit,
		PreferredTime:  req.PreferredTime,
		PreferredDays:  req.PreferredDays,
	}
}

func (h *RuleHandler) Create(ctx *gin.Context) {
	var req createRuleRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	r, err := h.uc.CreateRule(ctx.Request.Context(), usecase.CreateRuleInput{
		TenantID:         ctx.GetString("tenantID"),
		ChannelID:        req.ChannelID,
		Topic:            req.Topic,
		Keywords:         req.Keywords,
		SourceURLs:       req.SourceURLs,
		ImageGeneration:  req.ImageGeneration,
		AvoidDuplication: req.AvoidDuplication,
		CheckDays:        req.CheckDays,
		Recurrence:       toRecurrenceInput(req.Recurrence),
	})
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidRecurrence):
			ctx.JSON(http.StatusBadRequest, gin.H{"error": errInvalidRecurrence})
		case errors.Is(err, domain.ErrChannelNotFound):
			ctx.JSON(http.StatusNotFound, gin.H{"error": errChannelNotFound})
		default:
			h.logger.Error("create rule", "error", err)
			ctx.JSON(http.StatusInternalServerError, gin.H{"error": errInternalServer})
		}
		return
	}

	ctx.JSON(http.StatusCreated, toRuleResponse(r))
}

func (h *RuleHandler) List(ctx *gin.Context) {
	rules, err := h.uc.ListRules(ctx.Request.Context(), ctx.GetString("tenantID"))
	if err != nil {
		h.logger.Error("list rules", "error", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": errInternalServer})
		return
	}

	items := make([]ruleResponse, len(rules))
	for i, r := range rules {
		items[i] = toRuleResponse(r)
	}
	ctx.JSON(http.StatusOK, gin.H{"rules": items})
}

func (h *RuleHandler) GetByID(ctx *gin.Context) {
	id := ctx.Param("id")

	r, err := h.uc.GetRule(ctx.Request.Context(), id, ctx.GetString("tenantID"))
	if err != nil {
		if errors.Is(err, domain.ErrRuleNotFound) {
			ctx.JSON(http.StatusNotFound, gin.H{"error": errRuleNotFound})
			return
		}
		h.logger.Error("get rule", "rule_id", id, "error", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": errInternalServer})
		return
	}

	ctx.JSON(http.StatusOK, toRuleResponse(r))
}

func (h *RuleHandler) Update(ctx *gin.Context) {
	id := ctx.Param("id")

	var req createRuleRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	r, err := h.uc.UpdateRule(ctx.Request.Context(), usecase.UpdateRuleInput{
		ID:               id,
		TenantID:         ctx.GetString("tenantID"),
		Topic:            req.Topic,
		Keywords:         req.Keywords,
		SourceURLs:       req.SourceURLs,
		ImageGeneration:  req.ImageGeneration,
		AvoidDuplication: req.AvoidDuplication,
		CheckDays:        req.CheckDays,
		Recurrence:       toRecurrenceInput(req.Recurrence),
	})
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidRecurrence):
			ctx.JSON(http.StatusBadRequest, gin.H{"error": errInvalidRecurrence})
		case errors.Is(err, domain.ErrRuleNotFound):
			ctx.JSON(http.StatusNotFound, gin.H{"error": errRuleNotFound})
		default:
			h.logger.Error("update rule", "rule_id", id, "error", err)
			ctx.JSON(http.StatusInternalServerError, gin.H{"error": errInternalServer})
		}
		return
	}

	ctx.JSON(http.StatusOK, toRuleResponse(r))
}

func (h *RuleHandler) Pause(ctx *gin.Context) {
	id := ctx.Param("id")

	if err := h.uc.PauseRule(ctx.Request.Context(), id, ctx.GetString("tenantID")); err != nil {
		if errors.Is(err, domain.ErrRuleNotFound) {
			ctx.JSON(http.StatusNotFound, gin.H{"error": errRuleNotFound})
			return
		}
		h.logger.Error("pause rule", "rule_id", id, "error", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": errInternalServer})
		return
	}

	ctx.Status(http.StatusNoContent)
}

func (h *RuleHandler) Resume(ctx *gin.Context) {
	id := ctx.Param("id")

	if err := h.uc.ResumeRule(ctx.Request.Context(), id, ctx.GetString("tenantID")); err != nil {
		if errors.Is(err, domain.ErrRuleNotFound) {
			ctx.JSON(http.StatusNotFound, gin.H{"error": errRuleNotFound})
			return
		}
		h.logger.Error("resume rule", "rule_id", id, "error", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": errInternalServer})
		return
	}

	ctx.Status(http.StatusNoContent)
}

func (h *RuleHandler) Delete(ctx *gin.Context) {
	id := ctx.Param("id")

	if err := h.uc.DeleteRule(ctx.Request.Context(), id, ctx.GetString("tenantID")); err != nil {
		if errors.Is(err, domain.ErrRuleNotFound) {
			ctx.JSON(http.StatusNotFound, gin.H{"error": errRuleNotFound})
			return
		}
		h.logger.Error("delete rule", "rule_id", id, "error", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": errInternalServer})
		return
	}

	ctx.Status(http.StatusNoContent)
}

type executeResponse struct {
	Success    bool   `json:"success"`
	DeliveryID string `json:"delivery_id,omitempty"`
	Content    string `json:"content,omitempty"`
	Error      string `json:"error,omitempty"`
}

// POST /autoposting/:id/execute runs the rule synchronously. A failed
// run is still a 200: the failure is part of the execution report, not
// a transport error.
func (h *RuleHandler) Execute(ctx *gin.Context) {
	id := ctx.Param("id")

	outcome, err := h.uc.ExecuteNow(ctx.Request.Context(), id, ctx.GetString("tenantID"))
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrRuleNotFound):
			ctx.JSON(http.StatusNotFound, gin.H{"error": errRuleNotFound})
		case errors.Is(err, domain.ErrRuleInactive):
			ctx.JSON(http.StatusConflict, gin.H{"error": errRuleInactive})
		case errors.Is(err, domain.ErrAlreadyInFlight):
			ctx.JSON(http.StatusConflict, gin.H{"error": errAlreadyInFlight})
		default:
			h.logger.Error("execute rule", "rule_id", id, "error", err)
			ctx.JSON(http.StatusInternalServerError, gin.H{"error": errInternalServer})
		}
		return
	}

	ctx.JSON(http.StatusOK, executeResponse{
		Success:    outcome.Success,
		DeliveryID: outcome.DeliveryID,
		Content:    outcome.Content,
		Error:      outcome.Err,
	})
}

type historyItem struct {
	ID         string               `json:"id"`
	Content    string               `json:"content,omitempty"`
	ImageURL   *string              `json:"image_url,omitempty"`
	Status     domain.HistoryStatus `json:"status"`
	DeliveryID *string              `json:"delivery_id,omitempty"`
	Error      *string              `json:"error,omitempty"`
	CreatedAt  time.Time            `json:"created_at"`
}

func (h *RuleHandler) ListHistory(ctx *gin.Context) {
	id := ctx.Param("id")
	limit, _ := strconv.Atoi(ctx.Query("limit"))

	result, err := h.uc.ListHistory(ctx.Request.Context(), usecase.ListHistoryInput{
		RuleID:   id,
		TenantID: ctx.GetString("tenantID"),
		Cursor:   ctx.Query("cursor"),
		Limit:    limit,
	})
	if err != nil {
		if errors.Is(err, domain.ErrRuleNotFound) {
			ctx.JSON(http.StatusNotFound, gin.H{"error": errRuleNotFound})
			return
		}
		h.logger.Error("list rule history", "rule_id", id, "error", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": errInternalServer})
		return
	}

	items := make([]historyItem, len(result.Entries))
	for i, e := range result.Entries {
		items[i] = historyItem{
			ID:         e.ID,
			Content:    e.Content,
			ImageURL:   e.ImageURL,
			Status:     e.Status,
			DeliveryID: e.DeliveryID,
			Error:      e.Error,
			CreatedAt:  e.CreatedAt,
		}
	}
	ctx.JSON(http.StatusOK, gin.H{
		"history":     items,
		"next_cursor": result.NextCursor,
	})
}
