// Package api serves the timer over HTTP.
package api

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"

	"github.com/benjamonnguyen/pomomo-focus"
	"github.com/benjamonnguyen/pomomo-focus/timer"
)

type EngineProvider interface {
	Engine(context.Context, pomomo.UserID) (*timer.Engine, error)
}

type Subscriber interface {
	Subscribe(pomomo.UserID) (<-chan pomomo.Notification, func())
}

type Config struct {
	Engines EngineProvider
	Stats   pomomo.FocusStats
	// Settings supplies the daily goal. Nil uses the default goal.
	Settings pomomo.SettingsProvider
	Events   Subscriber
	Logger   *log.Logger
	// Debug enables the fast-forward route.
	Debug bool
	Now   func() time.Time
}

// Server is the pomomo HTTP API
type Server struct {
	engines EngineProvider
	stats    pomomo.FocusStats
	settings pomomo.SettingsProvider
	events   Subscriber
	l        *log.Logger
	now      func() time.Time
	router   *gin.Engine
}

func NewServer(cfg Config) *Server {
	if cfg.Logger == nil {
		cfg.Logger = log.Default()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(cfg.Logger))

	s := &Server{
		engines:  cfg.Engines,
		stats:    cfg.Stats,
		settings: cfg.Settings,
		events:   cfg.Events,
		l:        cfg.Logger,
		now:      cfg.Now,
		router:   router,
	}

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"success": true})
	})

	users := router.Group("/users/:user")
	{
		users.GET("/timer", s.handleGetTimer)
		users.POST("/timer/start", s.handleStart)
		users.POST("/timer/pause", s.handlePause)
		users.POST("/timer/resume", s.handleResume)
		users.POST("/timer/reset", s.handleReset)
		users.PUT("/timer/task", s.handleSelectTask)
		if cfg.Debug {
			users.POST("/timer/forward", s.handleForward)
		}
		users.GET("/events", s.handleEvents)
		users.GET("/stats", s.handleStats)
		users.GET("/stats/today", s.handleTodayStats)
	}

	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves on addr until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		// ends open event streams on shutdown
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	errC := make(chan error, 1)
	go func() {
		s.l.Info("serving http", "addr", addr)
		errC <- srv.ListenAndServe()
	}()

	select {
	case err := <-errC:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errC; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func requestLogger(l *log.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		l.Debug("handled request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"took", time.Since(start),
		)
	}
}
