package middleware

import (
	"net/http"
	"sync/atomic"

	"github.com/gin-gonic/gin"

	"github.com/vyrodovalexey/avgwguard/internal/admission"
	"github.com/vyrodovalexey/avgwguard/internal/observability"
)

// TrustedKey is the gin context key marking a trusted client.
const TrustedKey = "admission_trusted"

// Gate decision labels.
const (
	decisionAllow = "allow"
	decisionTrust = "trust"
	decisionBlock = "block"
)

// GateSettings holds the runtime-adjustable part of the admission gate.
type GateSettings struct {
	Enabled   bool
	SkipPaths []string
}

// gateState is the compiled form of GateSettings.
type gateState struct {
	enabled   bool
	skipPaths map[string]bool
}

// Gate admits or rejects requests based on the stored status of the
// client IP. Settings can be swapped at runtime so the config watcher
// can toggle enforcement without rebuilding the middleware chain.
type Gate struct {
	store   admission.Store
	logger  observability.Logger
	metrics *admission.Metrics
	state   atomic.Pointer[gateState]
}

// GateOption configures a Gate.
type GateOption func(*Gate)

// WithGateLogger sets the logger for the gate.
func WithGateLogger(logger observability.Logger) GateOption {
	return func(g *Gate) {
		g.logger = logger
	}
}

// WithGateMetrics sets the metrics for the gate.
func WithGateMetrics(metrics *admission.Metrics) GateOption {
	return func(g *Gate) {
		g.metrics = metrics
	}
}

// NewGate creates an admission gate backed by the given store.
func NewGate(store admission.Store, settings GateSettings, opts ...GateOption) *Gate {
	g := &Gate{
		store:  store,
		logger: observability.NopLogger(),
	}
	for _, opt := range opts {
		opt(g)
	}
	g.UpdateSettings(settings)
	return g
}

// UpdateSettings replaces the gate settings. In-flight requests finish
// under the settings they started with.
func (g *Gate) UpdateSettings(settings GateSettings) {
	g.state.Store(&gateState{
		enabled:   settings.Enabled,
		skipPaths: buildSkipPathsMap(settings.SkipPaths),
	})
}

// Settings returns a copy of the current gate settings.
func (g *Gate) Settings() GateSettings {
	state := g.state.Load()
	settings := GateSettings{Enabled: state.enabled}
	for path := range state.skipPaths {
		settings.SkipPaths = append(settings.SkipPaths, path)
	}
	return settings
}

// Handler returns the gin middleware applying the gate.
func (g *Gate) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		state := g.state.Load()
		if !state.enabled || state.skipPaths[c.Request.URL.Path] {
			c.Next()
			return
		}

		clientIP := c.ClientIP()
		status := g.store.Read(c.Request.Context(), clientIP)

		switch status {
		case admission.StatusBlocked:
			g.recordDecision(decisionBlock)
			g.logger.Info("request blocked by admission list",
				observability.String("clientIP", clientIP),
				observability.String("path", c.Request.URL.Path),
				observability.String("requestID", GetRequestID(c)),
			)
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error":   "forbidden",
				"message": "client address is blocked",
			})
			return
		case admission.StatusTrusted:
			g.recordDecision(decisionTrust)
			c.Set(TrustedKey, true)
		default:
			g.recordDecision(decisionAllow)
		}

		c.Next()
	}
}

func (g *Gate) recordDecision(decision string) {
	if g.metrics != nil {
		g.metrics.RecordGateDecision(decision)
	}
}

// IsTrusted reports whether the admission gate marked the client of
// this request as trusted.
func IsTrusted(c *gin.Context) bool {
	trusted, exists := c.Get(TrustedKey)
	if !exists {
		return false
	}
	value, ok := trusted.(bool)
	return ok && value
}

// buildSkipPathsMap creates a map from a slice of paths for O(1) lookup.
func buildSkipPathsMap(paths []string) map[string]bool {
	skipPaths := make(map[string]bool)
	for _, path := range paths {
		skipPaths[path] = true
	}
	return skipPaths
}
