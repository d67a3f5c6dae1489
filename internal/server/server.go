// Package server exposes the task submission boundary over HTTP: accept a
// task, report its progress, deliver clarification answers, and hand back
// the final artifacts or failure report. It also serves direct questions
// against the retrieval knowledge base.
package server

import (
	"net/http"
	"regexp"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/forgeworks/foreman/internal/agent"
	"github.com/forgeworks/foreman/internal/config"
	"github.com/forgeworks/foreman/internal/retrieval"
)

// Server wires the task manager and the knowledge base behind a gin router.
type Server struct {
	manager   *Manager
	retriever retrieval.Retriever
	answerer  agent.Provider
	cfg       config.ServerConfig
	askK      int
	logger    *zap.Logger
	engine    *gin.Engine
}

// New builds the server. retriever and answerer may be nil, which disables
// the ask endpoint.
func New(manager *Manager, retriever retrieval.Retriever, answerer agent.Provider, cfg config.ServerConfig, askK int, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(requestLogger(logger))
	if cfg.AllowOriginRegex != "" {
		engine.Use(corsMiddleware(cfg.AllowOriginRegex))
	}

	s := &Server{
		manager:   manager,
		retriever: retriever,
		answerer:  answerer,
		cfg:       cfg,
		askK:      askK,
		logger:    logger,
		engine:    engine,
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.engine.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := s.engine.Group("/v1")
	{
		v1.POST("/tasks", s.handleSubmit)
		v1.GET("/tasks", s.handleList)
		v1.GET("/tasks/:id", s.handleStatus)
		v1.POST("/tasks/:id/answer", s.handleAnswer)
		v1.POST("/tasks/:id/cancel", s.handleCancel)
		v1.GET("/tasks/:id/result", s.handleResult)
		v1.GET("/ask", s.handleAsk)
	}
}

// Router returns the underlying engine, mainly for tests.
func (s *Server) Router() *gin.Engine {
	return s.engine
}

// Run serves on the configured address until the listener fails.
func (s *Server) Run() error {
	s.logger.Info("server listening", zap.String("addr", s.cfg.Addr))
	return s.engine.Run(s.cfg.Addr)
}

// requestLogger logs each request with its status and latency.
func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("http request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)))
	}
}

// corsMiddleware allows browser callers whose Origin matches the configured
// pattern. The default pattern admits local loopback pages only.
func corsMiddleware(pattern string) gin.HandlerFunc {
	re := regexp.MustCompile(pattern)
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if origin != "" && re.MatchString(origin) {
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Access-Control-Allow-Credentials", "true")
			c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			c.Header("Access-Control-Allow-Headers", "*")
		}
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
