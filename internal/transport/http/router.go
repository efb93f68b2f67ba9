package httptransport

import (
	"log/slog"

	"github.com/Stepanishin/telepublisher-be/internal/transport/http/handler"
	"github.com/Stepanishin/telepublisher-be/internal/transport/http/middleware"
	"github.com/gin-gonic/gin"

	sloggin "github.com/samber/slog-gin"
)

func NewRouter(
	logger *slog.Logger,
	authHandler *handler.AuthHandler,
	channelHandler *handler.ChannelHandler,
	ruleHandler *handler.RuleHandler,
	scheduleHandler *handler.ScheduleHandler,
	jwtKey []byte,
) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Security())
	r.Use(sloggin.New(logger))
	r.Use(middleware.Metrics())

	// Public auth routes
	r.POST("/auth/magic-link", authHandler.RequestMagicLink)
	r.GET("/auth/verify", authHandler.Verify)

	authMW := middleware.Auth(jwtKey)

	channels := r.Group("/channels", authMW)
	channels.POST("", channelHandler.Create)
	channels.GET("", channelHandler.List)
	channels.GET("/:id", channelHandler.GetByID)
	channels.DELETE("/:id", channelHandler.Delete)

	rules := r.Group("/autoposting", authMW)
	rules.POST("", ruleHandler.Create)
	rules.GET("", ruleHandler.List)
	rules.GET("/:id", ruleHandler.GetByID)
	rules.PUT("/:id", ruleHandler.Update)
	rules.POST("/:id/pause", ruleHandler.Pause)
	rules.POST("/:id/resume", ruleHandler.Resume)
	rules.DELETE("/:id", ruleHandler.Delete)
	rules.POST("/:id/execute", ruleHandler.Execute)
	rules.GET("/:id/history", ruleHandler.ListHistory)

	posts := r.Group("/scheduled-posts", authMW)
	posts.POST("", scheduleHandler.CreatePost)
	posts.GET("", scheduleHandler.ListPosts)
	posts.GET("/:id", scheduleHandler.GetPost)
	posts.DELETE("/:id", scheduleHandler.CancelPost)
	posts.POST("/:id/publish", scheduleHandler.PublishPost)

	polls := r.Group("/scheduled-polls", authMW)
	polls.POST("", scheduleHandler.CreatePoll)
	polls.GET("", scheduleHandler.ListPolls)
	polls.GET("/:id", scheduleHandler.GetPoll)
	polls.DELETE("/:id", scheduleHandler.CancelPoll)
	polls.POST("/:id/publish", scheduleHandler.PublishPoll)

	return r
}
