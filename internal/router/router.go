package router

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/healthfirst/portal-api/internal/handler"
	"github.com/healthfirst/portal-api/internal/middleware"
	"github.com/healthfirst/portal-api/internal/model"
	"github.com/healthfirst/portal-api/internal/session"
	"github.com/healthfirst/portal-api/pkg/metrics"
)

type Handler interface {
	RegisterRoutes(*gin.RouterGroup)
}

type Router struct {
	engine       *gin.Engine
	h            *handler.Handler
	providerH    Handler
	patientH     Handler
	availability Handler
	sessions     *session.Manager
	metrics      *metrics.Metrics
}

type RouterConfig struct {
	Mode         string
	RateLimit    rate.Limit
	RateBurst    int
	MaxBodyBytes int64
	CORSConfig   middleware.CORSConfig
}

func NewRouter(
	h *handler.Handler,
	providerH Handler,
	patientH Handler,
	availabilityH Handler,
	sessions *session.Manager,
	m *metrics.Metrics,
	config RouterConfig,
) *Router {
	if config.Mode != "" {
		gin.SetMode(config.Mode)
	}

	engine := gin.New()

	r := &Router{
		engine:       engine,
		h:            h,
		providerH:    providerH,
		patientH:     patientH,
		availability: availabilityH,
		sessions:     sessions,
		metrics:      m,
	}

	engine.Use(
		middleware.RequestID(),
		middleware.Recovery(),
		middleware.Logger(),
		r.metricsMiddleware(),
		middleware.CORS(config.CORSConfig),
		middleware.SizeLimit(config.MaxBodyBytes),
	)

	if config.RateLimit > 0 {
		rateLimiter := middleware.NewRateLimiter(middleware.RateLimiterConfig{
			Rate:  config.RateLimit,
			Burst: config.RateBurst,
		})
		engine.Use(rateLimiter.RateLimit())
	}

	return r
}

func (r *Router) Setup() {
	api := r.engine.Group("/api/v1")

	api.Use(func(c *gin.Context) {
		c.Header("X-API-Version", "1.0")
		c.Next()
	})

	r.setupHealthCheck(api)
	r.setupReferenceRoutes(api)

	portal := api.Group("")
	portal.Use(middleware.PortalSession())
	r.providerH.RegisterRoutes(portal)
	r.patientH.RegisterRoutes(portal)

	provider := portal.Group("/provider")
	provider.Use(middleware.RequireSession(r.sessions, model.RoleProvider))
	r.availability.RegisterRoutes(provider)
}

func (r *Router) setupHealthCheck(rg *gin.RouterGroup) {
	health := rg.Group("/health")
	{
		health.GET("/live", r.h.LivenessCheck)
		health.GET("/ready", r.h.ReadinessCheck)
		health.GET("/metrics", r.h.MetricsHandler)
	}
}

func (r *Router) setupReferenceRoutes(rg *gin.RouterGroup) {
	ref := rg.Group("/reference")
	{
		ref.GET("/specializations", r.h.Specializations)
		ref.GET("/availability-options", r.h.AvailabilityOptions)
		ref.GET("/registration-options", r.h.RegistrationOptions)
	}
}

func (r *Router) Engine() *gin.Engine {
	return r.engine
}

func (r *Router) metricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		code := c.Writer.Status()
		r.metrics.ObserveHTTP(c.Request.Method, path, strconv.Itoa(code), time.Since(start), code >= 400)
	}
}
