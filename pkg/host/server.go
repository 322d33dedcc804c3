// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package host

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/Thermoquad/sentscope/pkg/sent"
)

// Server is the HTTP readback interface of a Monitor
type Server struct {
	monitor *Monitor
	router  *gin.Engine
	log     zerolog.Logger
}

type formatRequest struct {
	Format string `json:"format" binding:"required"`
}

// NewServer builds the readback routes. Metrics are served from gatherer.
func NewServer(monitor *Monitor, gatherer prometheus.Gatherer, logger zerolog.Logger, corsOrigins []string) *Server {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(requestLogger(logger))
	if len(corsOrigins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins: corsOrigins,
			AllowMethods: []string{"GET", "POST"},
			AllowHeaders: []string{"Origin", "Content-Type"},
			MaxAge:       12 * time.Hour,
		}))
	}

	s := &Server{monitor: monitor, router: r, log: logger}

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/registers", func(c *gin.Context) {
		c.JSON(http.StatusOK, s.monitor.Registers())
	})
	r.GET("/frame", s.handleFrame)
	r.GET("/stats", s.handleStats)
	r.POST("/reset", func(c *gin.Context) {
		s.monitor.Reset()
		s.log.Info().Msg("decoder reset")
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.POST("/stats/reset", func(c *gin.Context) {
		s.monitor.ResetStatistics()
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.POST("/format", s.handleFormat)
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	return s
}

// Handler returns the HTTP handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves on addr until ctx is cancelled
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", addr).Msg("readback server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.log.Info().Msg("readback server shutting down")
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) handleFrame(c *gin.Context) {
	regs := s.monitor.Registers()
	if regs.Frame == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no frame decoded yet"})
		return
	}
	c.JSON(http.StatusOK, regs.Frame)
}

func (s *Server) handleStats(c *gin.Context) {
	stats := s.monitor.Statistics()
	if c.Query("format") == "text" {
		c.String(http.StatusOK, stats.String())
		return
	}
	c.JSON(http.StatusOK, s.monitor.Registers().Counters)
}

func (s *Server) handleFormat(c *gin.Context) {
	var req formatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	format, err := sent.ParseFormat(req.Format)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := s.monitor.SetFormat(format); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	s.log.Info().Str("format", format.String()).Msg("decoder format changed")
	c.JSON(http.StatusOK, gin.H{"status": "ok", "format": format.String()})
}

func requestLogger(logger zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}

		event := logger.Debug()
		if status >= 500 {
			event = logger.Error()
		} else if status >= 400 {
			event = logger.Warn()
		}

		event.
			Str("method", c.Request.Method).
			Str("path", path).
			Int("status", status).
			Dur("duration", time.Since(start)).
			Str("client_ip", c.ClientIP()).
			Msg("http_request")
	}
}
