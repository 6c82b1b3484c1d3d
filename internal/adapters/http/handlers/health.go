// Package handlers holds the gin handlers for the quote API and the
// operational endpoints.
package handlers

import (
	"log/slog"
	"net/http"
	"runtime"
	"runtime/debug"
	"sort"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jsamuelsen/daily-quote-service/internal/platform/logging"
	"github.com/jsamuelsen/daily-quote-service/internal/ports"
)

// BuildInfo is served on /-/build and exported as the build info gauge.
type BuildInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"buildTime"`
	GoVersion string `json:"goVersion"`
}

// unknownBuildValue is what main reports when ldflags were not set.
const unknownBuildValue = "unknown"

// NewBuildInfo records the ldflags values. A commit or build time left
// empty or "unknown" is taken from the VCS stamp go build embeds.
func NewBuildInfo(version, commit, buildTime string) BuildInfo {
	bi := BuildInfo{
		Version:   version,
		Commit:    commit,
		BuildTime: buildTime,
		GoVersion: runtime.Version(),
	}

	if !isUnset(bi.Commit) && !isUnset(bi.BuildTime) {
		return bi
	}

	info, ok := debug.ReadBuildInfo()
	if !ok {
		return bi
	}

	for _, setting := range info.Settings {
		switch {
		case setting.Key == "vcs.revision" && isUnset(bi.Commit):
			bi.Commit = setting.Value
		case setting.Key == "vcs.time" && isUnset(bi.BuildTime):
			bi.BuildTime = setting.Value
		}
	}

	return bi
}

func isUnset(v string) bool {
	return v == "" || v == unknownBuildValue
}

// HealthHandler serves the operational endpoints under /-/.
type HealthHandler struct {
	registry  ports.HealthRegistry
	buildInfo BuildInfo
	metrics   http.Handler
}

// NewHealthHandler builds the handler and its Prometheus registry.
func NewHealthHandler(registry ports.HealthRegistry, buildInfo BuildInfo) *HealthHandler {
	return &HealthHandler{
		registry:  registry,
		buildInfo: buildInfo,
		metrics:   MetricsHandler(buildInfo),
	}
}

type livenessResponse struct {
	Status string `json:"status"`
}

// Liveness answers 200 while the process runs. It consults nothing.
func (h *HealthHandler) Liveness(c *gin.Context) {
	c.JSON(http.StatusOK, livenessResponse{Status: "ok"})
}

type readinessResponse struct {
	Status    string                        `json:"status"`
	Checks    map[string]*ports.CheckResult `json:"checks,omitempty"`
	CheckedAt time.Time                     `json:"checkedAt"`
}

// Readiness handles the /-/ready endpoint.
// Returns 200 OK if the quote store answers its health check, 503 otherwise.
// The daily quote itself keeps working without the store, so an unready
// instance still serves uncached quotes.
func (h *HealthHandler) Readiness(c *gin.Context) {
	ctx := c.Request.Context()
	result := h.registry.CheckAll(ctx)

	names := make([]string, 0, len(result.Checks))
	for name := range result.Checks {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if check := result.Checks[name]; check.Status == ports.HealthStatusUnhealthy {
			logging.FromContext(ctx).WarnContext(ctx, "readiness check failed",
				slog.String("check", name),
				slog.String("message", check.Message),
			)
		}
	}

	resp := readinessResponse{
		Status:    string(result.Status),
		Checks:    result.Checks,
		CheckedAt: result.Timestamp,
	}

	status := http.StatusOK
	if result.Status == ports.HealthStatusUnhealthy {
		status = http.StatusServiceUnavailable
	}

	c.JSON(status, resp)
}

// BuildInfoHandler serves /-/build.
func (h *HealthHandler) BuildInfoHandler(c *gin.Context) {
	c.JSON(http.StatusOK, h.buildInfo)
}

// MetricsHandler returns a Prometheus handler over a dedicated registry
// holding the Go runtime and process collectors plus a build info gauge.
func MetricsHandler(buildInfo BuildInfo) http.Handler {
	reg := prometheus.NewRegistry()

	buildGauge := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "daily_quote_build_info",
		Help: "Build information of the running daily quote service.",
	}, []string{"version", "commit", "go_version"})
	buildGauge.WithLabelValues(buildInfo.Version, buildInfo.Commit, buildInfo.GoVersion).Set(1)

	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		buildGauge,
	)

	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})
}

// RegisterHealthRoutes mounts live, ready, build and metrics on rg. None of
// the responses may be cached.
func (h *HealthHandler) RegisterHealthRoutes(rg *gin.RouterGroup) {
	rg.Use(noStore)
	rg.GET("/live", h.Liveness)
	rg.GET("/ready", h.Readiness)
	rg.GET("/build", h.BuildInfoHandler)
	rg.GET("/metrics", gin.WrapH(h.metrics))
}

func noStore(c *gin.Context) {
	c.Header("Cache-Control", "no-store")
	c.Next()
}

// RegisterHealthRoutesOnEngine mounts the routes under /-/.
func (h *HealthHandler) RegisterHealthRoutesOnEngine(engine *gin.Engine) {
	health := engine.Group("/-")
	h.RegisterHealthRoutes(health)
}
