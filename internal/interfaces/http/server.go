package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nexis-chat/nexis/gateway/internal/application/gateway"
	"github.com/nexis-chat/nexis/gateway/internal/infrastructure/auth"
	"github.com/nexis-chat/nexis/gateway/internal/infrastructure/monitoring"
	"github.com/nexis-chat/nexis/gateway/internal/infrastructure/search"
	"github.com/nexis-chat/nexis/gateway/internal/interfaces/http/handlers"
	ws "github.com/nexis-chat/nexis/gateway/internal/interfaces/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Server is the gateway's HTTP front.
type Server struct {
	server *http.Server
	logger *zap.Logger
}

// Config holds listener settings.
type Config struct {
	Host string
	Port int
	Mode string // debug, release
}

// NewServer builds the router and wires every route. tokens is optional;
// when set, /v1 routes require a valid bearer token.
func NewServer(
	cfg Config,
	chat *gateway.ChatService,
	searchSvc *search.Service,
	conns *gateway.ConnectionManager,
	tokens *auth.TokenService,
	logger *zap.Logger,
) *Server {
	if cfg.Mode == "production" || cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(ginLogger(logger))
	router.Use(monitoring.GinMiddleware())

	roomHandler := handlers.NewRoomHandler(chat, logger)
	messageHandler := handlers.NewMessageHandler(chat, logger)
	searchHandler := handlers.NewSearchHandler(searchSvc, logger)
	wsHandler := ws.NewHandler(conns, logger)

	setupRoutes(router, roomHandler, messageHandler, searchHandler, wsHandler, tokens)

	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	return &Server{
		server: &http.Server{Addr: addr, Handler: router},
		logger: logger,
	}
}

// Handler exposes the router, chiefly for tests.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Start begins serving in the background.
func (s *Server) Start(ctx context.Context) error {
	s.logger.Info("Starting HTTP server", zap.String("address", s.server.Addr))

	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("HTTP server error", zap.Error(err))
		}
	}()

	return nil
}

// Stop drains in-flight requests and shuts the listener down.
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Stopping HTTP server")
	return s.server.Shutdown(ctx)
}

func setupRoutes(
	router *gin.Engine,
	roomHandler *handlers.RoomHandler,
	messageHandler *handlers.MessageHandler,
	searchHandler *handlers.SearchHandler,
	wsHandler *ws.Handler,
	tokens *auth.TokenService,
) {
	router.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "OK")
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/ws", gin.WrapF(wsHandler.ServeWS))

	v1 := router.Group("/v1")
	if tokens != nil {
		v1.Use(authMiddleware(tokens, auth.NewTenantStore()))
	}
	{
		v1.POST("/rooms", roomHandler.CreateRoom)
		v1.GET("/rooms/:id", roomHandler.GetRoom)
		v1.POST("/rooms/:id/invite", roomHandler.InviteMember)
		v1.POST("/messages", messageHandler.SendMessage)
		v1.POST("/search", searchHandler.Search)
	}
}

func ginLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		logger.Info("HTTP request",
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.String("query", query),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("ip", c.ClientIP()),
		)
	}
}
