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

type ChannelHandler struct {
	uc     *usecase.ChannelUsecase
	logger *slog.Logger
}

func NewChannelHandler(uc *usecase.ChannelUsecase, logger *slog.Logger) *ChannelHandler {
	return &ChannelHandler{uc: uc, logger: logger.With("component", "channel_handler")}
}

type createChannelRequest struct {
	ChatID   string `json:"chat_id"   binding:"required,max=128"`
	Title    string `json:"title"     binding:"required,max=256"`
	BotToken string `json:"bot_token" binding:"required,max=256"`
}

type channelResponse struct {
	ID        string    `json:"id"`
	ChatID    string    `json:"chat_id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
}

// The bot token is write-only: it never appears in responses.
func toChannelResponse(ch *domain.Channel) channelResponse {
	return channelResponse{
		ID:        ch.ID,
		ChatID:    ch.ChatID,
		Title:     ch.Title,
		CreatedAt: ch.CreatedAt,
	}
}

func (h *ChannelHandler) Create(ctx *gin.Context) {
	var req createChannelRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ch, err := h.uc.CreateChannel(ctx.Request.Context(), usecase.CreateChannelInput{
		TenantID: ctx.GetString("tenantID"),
		ChatID:   req.ChatID,
		Title:    req.Title,
		BotToken: req.BotToken,
	})
	if err != nil {
		h.logger.Error("create channel", "error", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": errInternalServer})
		return
	}

	ctx.JSON(http.StatusCreated, toChannelResponse(ch))
}

func (h *ChannelHandler) List(ctx *gin.Context) {
	channels, err := h.uc.ListChannels(ctx.Request.Context(), ctx.GetString("tenantID"))
	if err != nil {
		h.logger.Error("list channels", "error", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": errInternalServer})
		return
	}

	items := make([]channelResponse, len(channels))
	for i, ch := range channels {
		items[i] = toChannelResponse(ch)
	}
	ctx.JSON(http.StatusOK, gin.H{"channels": items})
}

func (h *ChannelHandler) GetByID(ctx *gin.Context) {
	id := ctx.Param("id")

	ch, err := h.uc.GetChannel(ctx.Request.Context(), id, ctx.GetString("tenantID"))
	if err != nil {
		if errors.Is(err, domain.ErrChannelNotFound) {
			ctx.JSON(http.StatusNotFound, gin.H{"error": errChannelNotFound})
			return
		}
		h.logger.Error("get channel", "channel_id", id, "error", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": errInternalServer})
		return
	}

	ctx.JSON(http.StatusOK, toChannelResponse(ch))
}

func (h *ChannelHandler) Delete(ctx *gin.Context) {
	id := ctx.Param("id")

	err := h.uc.DeleteChannel(ctx.Request.Context(), id, ctx.GetString("tenantID"))
	if err != nil {
		if errors.Is(err, domain.ErrChannelNotFound) {
			ctx.JSON(http.StatusNotFound, gin.H{"error": errChannelNotFound})
			return
		}
		h.logger.Error("delete channel", "channel_id", id, "error", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": errInternalServer})
		return
	}

	ctx.Status(http.StatusNoContent)
}
