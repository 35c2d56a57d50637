package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/healthfirst/portal-api/internal/model"
)

// ReadinessProbe reports whether a dependency can serve traffic.
type ReadinessProbe func(ctx context.Context) error

// Handler serves health, metrics and reference data.
type Handler struct {
	metrics http.Handler
	probes  map[string]ReadinessProbe
}

func NewHandler(gatherer prometheus.Gatherer, probes map[string]ReadinessProbe) *Handler {
	return &Handler{
		metrics: promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}),
		probes:  probes,
	}
}

func (h *Handler) LivenessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "alive",
		"time":   time.Now(),
	})
}

func (h *Handler) ReadinessCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	failures := make(map[string]string)
	for name, probe := range h.probes {
		if err := probe(ctx); err != nil {
			failures[name] = err.Error()
		}
	}

	if len(failures) > 0 {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":   "unavailable",
			"failures": failures,
			"time":     time.Now(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"time":   time.Now(),
	})
}

func (h *Handler) MetricsHandler(c *gin.Context) {
	h.metrics.ServeHTTP(c.Writer, c.Request)
}

func (h *Handler) Specializations(c *gin.Context) {
	c.JSON(http.StatusOK, NewSuccessResponse(model.Specializations))
}

func (h *Handler) AvailabilityOptions(c *gin.Context) {
	c.JSON(http.StatusOK, NewSuccessResponse(model.DefaultAvailabilityOptions()))
}

func (h *Handler) RegistrationOptions(c *gin.Context) {
	c.JSON(http.StatusOK, NewSuccessResponse(gin.H{
		"genders":       model.Genders,
		"relationships": model.Relationships,
	}))
}
