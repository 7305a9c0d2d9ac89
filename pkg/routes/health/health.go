// Package health exposes the operational endpoints: health checks, a
// funnel stats snapshot, and Prometheus metrics.
package health

import (
	"context"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	commentrepo "github.com/Ramsey-B/fern/internal/repositories/comment"
	profilerepo "github.com/Ramsey-B/fern/internal/repositories/profile"
)

// ProfileCounter reports the funnel breakdown.
type ProfileCounter interface {
	CountByStatus(ctx context.Context) ([]profilerepo.StatusCount, error)
}

// CommentCounter reports the comment status breakdown.
type CommentCounter interface {
	CountByStatus(ctx context.Context) ([]commentrepo.StatusCount, error)
}

// Pinger checks a dependency's reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingFunc adapts a plain function to the Pinger interface.
type PingFunc func(ctx context.Context) error

func (f PingFunc) Ping(ctx context.Context) error { return f(ctx) }

// Checker handles health check endpoints
type Checker struct {
	db        Pinger
	redis     Pinger
	profiles  ProfileCounter
	comments  CommentCounter
	version   string
	startTime time.Time
	ready     atomic.Bool
}

// NewChecker creates a new health checker
func NewChecker(db, redis Pinger, profiles ProfileCounter, comments CommentCounter, version string) *Checker {
	return &Checker{
		db:        db,
		redis:     redis,
		profiles:  profiles,
		comments:  comments,
		version:   version,
		startTime: time.Now(),
	}
}

// SetReady sets the readiness state
func (c *Checker) SetReady(ready bool) {
	c.ready.Store(ready)
}

// RegisterRoutes registers the operational endpoints
func (c *Checker) RegisterRoutes(e *echo.Echo) {
	e.GET("/api/v1/health", c.Health)
	e.GET("/api/v1/health/live", c.Live)
	e.GET("/api/v1/health/ready", c.Ready)
	e.GET("/api/v1/stats", c.Stats)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
}

// HealthStatus represents the health check response
type HealthStatus struct {
	Status     string                  `json:"status"`
	Version    string                  `json:"version"`
	Uptime     string                  `json:"uptime"`
	Checks     map[string]*CheckResult `json:"checks"`
	ReportedAt time.Time               `json:"reported_at"`
}

// CheckResult represents an individual check result
type CheckResult struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Latency string `json:"latency,omitempty"`
}

// Health returns the overall health status
func (c *Checker) Health(ctx echo.Context) error {
	status := &HealthStatus{
		Status:     "healthy",
		Version:    c.version,
		Uptime:     time.Since(c.startTime).Round(time.Second).String(),
		Checks:     make(map[string]*CheckResult),
		ReportedAt: time.Now(),
	}

	c.check(ctx.Request().Context(), status, "database", c.db)
	if c.redis != nil {
		c.check(ctx.Request().Context(), status, "redis", c.redis)
	}

	httpStatus := http.StatusOK
	if status.Status == "unhealthy" {
		httpStatus = http.StatusServiceUnavailable
	}
	return ctx.JSON(httpStatus, status)
}

func (c *Checker) check(ctx context.Context, status *HealthStatus, name string, dep Pinger) {
	if dep == nil {
		status.Status = "unhealthy"
		status.Checks[name] = &CheckResult{Status: "unhealthy", Message: name + " not configured"}
		return
	}

	start := time.Now()
	err := dep.Ping(ctx)
	latency := time.Since(start)
	if err != nil {
		status.Status = "unhealthy"
		status.Checks[name] = &CheckResult{Status: "unhealthy", Message: err.Error()}
		return
	}
	status.Checks[name] = &CheckResult{Status: "healthy", Latency: latency.String()}
}

// Live returns the liveness status (is the service running)
func (c *Checker) Live(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, map[string]string{"status": "alive"})
}

// Ready returns the readiness status (is the service ready to accept traffic)
func (c *Checker) Ready(ctx echo.Context) error {
	if c.ready.Load() {
		return ctx.JSON(http.StatusOK, map[string]string{"status": "ready"})
	}
	return ctx.JSON(http.StatusServiceUnavailable, map[string]string{"status": "not ready"})
}

// StatsResponse is the funnel snapshot.
type StatsResponse struct {
	Profiles   []profilerepo.StatusCount `json:"profiles"`
	Comments   []commentrepo.StatusCount `json:"comments"`
	ReportedAt time.Time                 `json:"reported_at"`
}

// Stats returns the profile funnel and comment status breakdowns.
func (c *Checker) Stats(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()

	profiles, err := c.profiles.CountByStatus(reqCtx)
	if err != nil {
		return err
	}
	comments, err := c.comments.CountByStatus(reqCtx)
	if err != nil {
		return err
	}

	return ctx.JSON(http.StatusOK, &StatsResponse{
		Profiles:   profiles,
		Comments:   comments,
		ReportedAt: time.Now(),
	})
}
