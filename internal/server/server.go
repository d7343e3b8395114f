package server

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/thinkbridge/factsheet/internal/budget"
	"github.com/thinkbridge/factsheet/internal/store"
	"github.com/thinkbridge/factsheet/internal/telemetry"
)

// RunStore is the slice of the Postgres store the HTTP handlers read.
type RunStore interface {
	ListRuns(ctx context.Context, limit int) ([]store.Run, error)
	ListCompanyResults(ctx context.Context, runID string) ([]store.CompanyResult, error)
}

// Server exposes batch run history, budget state and metrics over HTTP.
// It is an unauthenticated ops surface meant for internal networks.
type Server struct {
	Store   RunStore
	Guard   *budget.Guard
	Metrics *telemetry.Metrics
	Logger  *log.Logger
}

// Run starts the HTTP server on addr and blocks.
func (s *Server) Run(addr string) error {
	return s.router().Start(addr)
}

func (s *Server) router() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())

	logger := s.Logger
	if logger == nil {
		logger = log.New(log.Writer(), "[HTTP] ", log.LstdFlags)
	}
	e.HTTPErrorHandler = func(err error, c echo.Context) {
		code := http.StatusInternalServerError
		msg := err.Error()
		if he, ok := err.(*echo.HTTPError); ok {
			code = he.Code
			if he.Message != nil {
				msg = fmt.Sprint(he.Message)
			}
		}
		req := c.Request()
		logger.Printf("%d %s %s from %s: %v", code, req.Method, req.URL.Path, c.RealIP(), err)
		if !c.Response().Committed {
			_ = c.JSON(code, map[string]interface{}{"error": msg})
		}
	}

	e.GET("/healthz", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })
	if s.Metrics != nil {
		e.GET("/metrics", echo.WrapHandler(s.Metrics.Handler()))
	}

	api := e.Group("/api")
	api.GET("/budget", s.getBudget)
	api.GET("/runs", s.listRuns)
	api.GET("/runs/:id/companies", s.listCompanies)

	return e
}

func (s *Server) getBudget(c echo.Context) error {
	if s.Guard == nil {
		return echo.NewHTTPError(http.StatusNotFound, "no batch in progress")
	}
	return c.JSON(http.StatusOK, s.Guard.Usage())
}

func (s *Server) listRuns(c echo.Context) error {
	if s.Store == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "run store not configured")
	}
	runs, err := s.Store.ListRuns(c.Request().Context(), 50)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, runs)
}

func (s *Server) listCompanies(c echo.Context) error {
	if s.Store == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "run store not configured")
	}
	results, err := s.Store.ListCompanyResults(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, results)
}
