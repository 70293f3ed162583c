// Package server exposes the run controller over HTTP.
package server

import (
	"errors"
	"log"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mohammad-safakhou/sleuth/config"
	"github.com/mohammad-safakhou/sleuth/internal/run"
	"github.com/mohammad-safakhou/sleuth/internal/supervisor"
)

type Server struct {
	cfg    *config.Config
	ctl    *supervisor.Controller
	logger *log.Logger
}

func New(cfg *config.Config, ctl *supervisor.Controller) *Server {
	return &Server{
		cfg:    cfg,
		ctl:    ctl,
		logger: log.New(log.Writer(), "[HTTP] ", log.LstdFlags),
	}
}

// Run blocks serving the API until the listener fails.
func (s *Server) Run() error {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	e.HTTPErrorHandler = errorHandler

	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	api := e.Group("/api")
	if s.cfg.Server.JWTSecret != "" {
		api.Use(bearerAuth(s.cfg.Server.JWTSecret))
	}
	api.POST("/runs", s.startRun)
	api.POST("/runs/:id/resume", s.resumeRun)
	api.GET("/runs/:id", s.inspectRun)

	s.logger.Printf("listening on %s", s.cfg.Server.Address)
	return e.Start(s.cfg.Server.Address)
}

// errorHandler renders every error as one JSON shape.
func errorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	code := http.StatusInternalServerError
	msg := err.Error()
	var he *echo.HTTPError
	switch {
	case errors.As(err, &he):
		code = he.Code
		if m, ok := he.Message.(string); ok {
			msg = m
		}
	case errors.Is(err, run.ErrNotFound):
		code = http.StatusNotFound
	case errors.Is(err, run.ErrNotAwaiting):
		code = http.StatusConflict
	}
	_ = c.JSON(code, map[string]string{"error": msg})
}

func (s *Server) startRun(c echo.Context) error {
	var req supervisor.StartRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Text == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "text is required")
	}
	state, err := s.ctl.Start(c.Request().Context(), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, state)
}

type resumeRequest struct {
	// Selection is the zero-based index into the paused candidate list;
	// omit it (null) to reject the whole slate.
	Selection *int `json:"selection"`
}

func (s *Server) resumeRun(c echo.Context) error {
	var req resumeRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	state, err := s.ctl.Resume(c.Request().Context(), c.Param("id"), req.Selection)
	if err != nil {
		if errors.Is(err, run.ErrNotFound) || errors.Is(err, run.ErrNotAwaiting) {
			return err
		}
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, state)
}

func (s *Server) inspectRun(c echo.Context) error {
	state, err := s.ctl.Inspect(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, state)
}
