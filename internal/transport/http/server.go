package http

import (
	stdhttp "net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/chatrelay/internal/config"
	"github.com/vovakirdan/chatrelay/internal/core"
)

// NewServer builds the HTTP server: the chat WebSocket endpoint, the REST
// side channel and operational routes.
func NewServer(chat *core.ChatService, cfg *config.Config, logger *zerolog.Logger) *stdhttp.Server {
	router := gin.New()
	router.Use(gin.Recovery(), LoggerMiddleware(logger))

	router.GET("/health", healthHandler)

	api := NewAPIHandlers(chat, logger)
	apiGroup := router.Group("/api")
	{
		apiGroup.POST("/broadcast/message", api.BroadcastMessage)
		apiGroup.GET("/chats/:chatId/messages", api.History)
		apiGroup.GET("/rooms", api.ListRooms)
	}

	// The WebSocket endpoint sits on the mux directly: gin's response writer
	// refuses to be hijacked once the handshake headers are out.
	mux := stdhttp.NewServeMux()
	mux.Handle("GET /chat/{chatId}", NewWSHandler(chat, cfg.MaxMessageBytes, cfg.WSRateLimit, logger))
	mux.Handle("/", router)

	return &stdhttp.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
}

func healthHandler(c *gin.Context) {
	c.String(stdhttp.StatusOK, "ok")
}
