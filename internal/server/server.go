package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pgoos/clark-app-sub007/internal/worker"
	"go.uber.org/zap"
)

// Config holds the ops server configuration
type Config struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// SweepConfig are the parameters a manually triggered sweep runs with.
type SweepConfig struct {
	Timeout        time.Duration
	BatchSize      int
	ExecutionLimit int
}

// Server exposes the operational HTTP surface: health and manual
// triggers for the background jobs. The customer-facing API lives in a
// different service.
type Server struct {
	http   *http.Server
	logger *zap.Logger
}

// New creates the ops server
func New(cfg Config, sweep *worker.CancellationSweep, sweepCfg SweepConfig, rechecks *worker.AdviceRecheckWorker, responses *ResponseHandlers, logger *zap.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	responses.Register(router)

	router.POST("/ops/cancellation-sweep", func(c *gin.Context) {
		processed, err := sweep.Execute(c.Request.Context(), sweepCfg.Timeout, sweepCfg.BatchSize, sweepCfg.ExecutionLimit)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"processed": processed,
				"error":     err.Error(),
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{"processed": processed})
	})

	router.POST("/ops/advice/dispatch", func(c *gin.Context) {
		dispatched, err := rechecks.RunDue(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"dispatched": dispatched,
				"error":      err.Error(),
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{"dispatched": dispatched})
	})

	return &Server{
		http: &http.Server{
			Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
			Handler:      router,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
		},
		logger: logger,
	}
}

// Start serves until the listener fails or Shutdown is called
func (s *Server) Start() error {
	s.logger.Info("Ops server listening", zap.String("addr", s.http.Addr))
	if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}
