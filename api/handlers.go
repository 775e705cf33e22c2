package api

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/benjamonnguyen/pomomo-focus"
	"github.com/benjamonnguyen/pomomo-focus/timer"
)

type startRequest struct {
	TaskID *pomomo.TaskID `json:"task_id"`
}

type selectTaskRequest struct {
	TaskID *pomomo.TaskID `json:"task_id"`
}

type forwardRequest struct {
	Seconds *int `json:"seconds" binding:"required,min=0"`
}

func (s *Server) engine(c *gin.Context) (*timer.Engine, bool) {
	uid := pomomo.UserID(c.Param("user"))
	e, err := s.engines.Engine(c.Request.Context(), uid)
	if errors.Is(err, timer.ErrShutdown) {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"success": false,
			"error":   err.Error(),
		})
		return nil, false
	}
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   err.Error(),
		})
		return nil, false
	}
	return e, true
}

func (s *Server) respond(c *gin.Context, res timer.Result, err error) {
	if err != nil {
		s.l.Error("failed timer command", "path", c.FullPath(), "user", c.Param("user"), "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    res,
	})
}

func (s *Server) handleGetTimer(c *gin.Context) {
	e, ok := s.engine(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    e.DisplayState(),
	})
}

func (s *Server) handleStart(c *gin.Context) {
	var req startRequest
	// the body is optional
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   err.Error(),
		})
		return
	}
	e, ok := s.engine(c)
	if !ok {
		return
	}
	res, err := e.Start(c.Request.Context(), req.TaskID)
	s.respond(c, res, err)
}

func (s *Server) handlePause(c *gin.Context) {
	e, ok := s.engine(c)
	if !ok {
		return
	}
	res, err := e.Pause(c.Request.Context())
	s.respond(c, res, err)
}

func (s *Server) handleResume(c *gin.Context) {
	e, ok := s.engine(c)
	if !ok {
		return
	}
	res, err := e.Resume(c.Request.Context())
	s.respond(c, res, err)
}

func (s *Server) handleReset(c *gin.Context) {
	e, ok := s.engine(c)
	if !ok {
		return
	}
	res, err := e.Reset(c.Request.Context())
	s.respond(c, res, err)
}

func (s *Server) handleSelectTask(c *gin.Context) {
	var req selectTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   err.Error(),
		})
		return
	}
	e, ok := s.engine(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    e.SelectTask(req.TaskID),
	})
}

func (s *Server) handleForward(c *gin.Context) {
	var req forwardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   err.Error(),
		})
		return
	}
	e, ok := s.engine(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    e.FastForward(*req.Seconds),
	})
}

// handleEvents streams the user's notifications as server-sent events.
func (s *Server) handleEvents(c *gin.Context) {
	if s.events == nil {
		c.JSON(http.StatusNotImplemented, gin.H{
			"success": false,
			"error":   "event stream disabled",
		})
		return
	}
	uid := pomomo.UserID(c.Param("user"))
	ch, cancel := s.events.Subscribe(uid)
	defer cancel()
	s.l.Debug("event stream opened", "user", uid)

	ctx := c.Request.Context()
	c.Header("Cache-Control", "no-cache")
	c.Header("X-Accel-Buffering", "no")
	c.SSEvent("ready", gin.H{"user": uid})
	c.Writer.Flush()
	c.Stream(func(w io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case n, ok := <-ch:
			if !ok {
				return false
			}
			c.SSEvent("notification", n)
			return true
		}
	})
	s.l.Debug("event stream closed", "user", uid)
}

func (s *Server) statsEnabled(c *gin.Context) bool {
	if s.stats != nil {
		return true
	}
	c.JSON(http.StatusNotImplemented, gin.H{
		"success": false,
		"error":   "stats disabled",
	})
	return false
}

func (s *Server) handleTodayStats(c *gin.Context) {
	if !s.statsEnabled(c) {
		return
	}
	uid := pomomo.UserID(c.Param("user"))
	midnight := pomomo.StartOfDay(s.now())

	today, err := s.stats.FocusSince(c.Request.Context(), uid, midnight)
	if err != nil {
		s.l.Error("failed to sum focus sessions", "user", uid, "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"since":    midnight,
			"minutes":  today.Minutes,
			"sessions": today.Sessions,
		},
	})
}

type statsResponse struct {
	Today pomomo.FocusSummary `json:"today"`
	Week  pomomo.FocusSummary `json:"week"`
	Total pomomo.FocusSummary `json:"total"`
	Goal  pomomo.GoalProgress `json:"goal"`
}

// handleStats reports today's, this week's and all-time focus along with
// progress toward the daily goal. Weeks start on Sunday.
func (s *Server) handleStats(c *gin.Context) {
	if !s.statsEnabled(c) {
		return
	}
	ctx := c.Request.Context()
	uid := pomomo.UserID(c.Param("user"))
	now := s.now()

	var resp statsResponse
	windows := []struct {
		since time.Time
		dst   *pomomo.FocusSummary
	}{
		{pomomo.StartOfDay(now), &resp.Today},
		{pomomo.StartOfWeek(now), &resp.Week},
		{time.Time{}, &resp.Total},
	}
	for _, w := range windows {
		summary, err := s.stats.FocusSince(ctx, uid, w.since)
		if err != nil {
			s.l.Error("failed to sum focus sessions", "user", uid, "since", w.since, "err", err)
			c.JSON(http.StatusInternalServerError, gin.H{
				"success": false,
				"error":   err.Error(),
			})
			return
		}
		*w.dst = summary
	}
	resp.Goal = pomomo.NewGoalProgress(s.dailyGoal(c, uid), resp.Today.Minutes)

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    resp,
	})
}

func (s *Server) dailyGoal(c *gin.Context, uid pomomo.UserID) int {
	if s.settings == nil {
		return pomomo.DefaultDailyGoalMinutes
	}
	settings, err := s.settings.GetSettings(c.Request.Context(), uid)
	if err != nil {
		if !errors.Is(err, pomomo.ErrNotFound) {
			s.l.Warn("failed to get settings - using default goal", "user", uid, "err", err)
		}
		return pomomo.DefaultDailyGoalMinutes
	}
	return settings.DailyGoalMinutes
}
