package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/Ugochu266/chatbot-sub001/internal/handler"
	"github.com/Ugochu266/chatbot-sub001/internal/middleware"
	"github.com/Ugochu266/chatbot-sub001/internal/service"
)

type Server struct {
	router *gin.Engine
	logger *zap.Logger
}

func NewServer(
	chatHandler handler.ChatHandler,
	rulesHandler handler.RulesHandler,
	authHandler handler.AuthHandler,
	authService service.AuthService,
	registry *prometheus.Registry,
	logger *zap.Logger,
) *Server {
	router := gin.Default()

	s := &Server{
		router: router,
		logger: logger,
	}

	// Ping route for health check
	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	// Authentication routes
	authGroup := router.Group("/api/auth")
	authGroup.POST("/register", authHandler.RegisterAdmin)
	authGroup.POST("/login", authHandler.Login)

	// Chat surface
	router.POST("/api/chat/message", chatHandler.SendMessage)

	// Administrative surface, JWT-protected
	admin := router.Group("/api/admin")
	admin.Use(middleware.AuthMiddleware(authService.Secret(), logger))
	{
		admin.GET("/rules", rulesHandler.ListRules)
		admin.POST("/rules", rulesHandler.CreateRule)
		admin.PUT("/rules/:id", rulesHandler.UpdateRule)
		admin.DELETE("/rules/:id", rulesHandler.DeleteRule)
		admin.PUT("/thresholds", rulesHandler.UpsertThreshold)
		admin.PUT("/escalation-keywords", rulesHandler.UpsertEscalationKeywords)
	}

	return s
}

func (s *Server) Run(addr string) {
	s.logger.Info("Server starting", zap.String("addr", addr))
	if err := s.router.Run(addr); err != nil {
		s.logger.Fatal("Server failed to start", zap.Error(err))
	}
}
