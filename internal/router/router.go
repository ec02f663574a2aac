package router

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"golang.org/x/time/rate"

	"github.com/carehospital/admin-api/internal/handler/appointment"
	"github.com/carehospital/admin-api/internal/handler/auth"
	"github.com/carehospital/admin-api/internal/handler/chat"
	"github.com/carehospital/admin-api/internal/handler/doctor"
	"github.com/carehospital/admin-api/internal/handler/health"
	"github.com/carehospital/admin-api/internal/handler/healthrecord"
	"github.com/carehospital/admin-api/internal/handler/patient"
	"github.com/carehospital/admin-api/internal/handler/prometheus"
	"github.com/carehospital/admin-api/internal/handler/template"
	"github.com/carehospital/admin-api/internal/middleware"
)

const (
	APIPrefix  = "/api/v1"
	APIVersion = "1.0"

	streamPath = APIPrefix + "/appointments/stream"
)

type Handler interface {
	RegisterRoutes(*gin.RouterGroup)
}

// SplitHandler serves both visitor-facing and admin routes.
type SplitHandler interface {
	RegisterRoutes(public, admin *gin.RouterGroup)
}

type Handlers struct {
	Health       *health.Handler
	Metrics      *prometheus.Handler
	Auth         *auth.Handler
	Appointment  *appointment.Handler
	Doctor       *doctor.Handler
	Patient      *patient.Handler
	Template     *template.Handler
	HealthRecord *healthrecord.Handler
	Chat         *chat.Handler
}

type RouterConfig struct {
	ServiceName    string
	RateLimit      rate.Limit
	RateBurst      int
	RateEnabled    bool
	CORSConfig     middleware.CORSConfig
	RequestTimeout time.Duration
	MaxBodySize    int64
	ReleaseMode    bool
}

type Router struct {
	engine *gin.Engine
	auth   *middleware.AuthMiddleware
	h      Handlers
}

func NewRouter(auth *middleware.AuthMiddleware, h Handlers, config RouterConfig) (*Router, error) {
	if config.ReleaseMode {
		gin.SetMode(gin.ReleaseMode)
	}
	if err := middleware.RegisterValidators(); err != nil {
		return nil, fmt.Errorf("failed to register validators: %w", err)
	}
	if config.RequestTimeout <= 0 {
		config.RequestTimeout = middleware.DefaultTimeoutConfig().Duration
	}
	if config.MaxBodySize <= 0 {
		config.MaxBodySize = middleware.DefaultSizeLimitConfig().MaxBodySize
	}

	engine := gin.New()
	r := &Router{engine: engine, auth: auth, h: h}

	engine.Use(
		middleware.Recovery(),
		middleware.RequestID(),
		otelgin.Middleware(config.ServiceName),
		middleware.Logger(),
	)
	if h.Metrics != nil {
		engine.Use(h.Metrics.Middleware())
	}
	engine.Use(
		middleware.CORS(config.CORSConfig),
		middleware.SecurityHeaders(middleware.DefaultSecurityConfig()),
		middleware.SizeLimit(middleware.SizeLimitConfig{MaxBodySize: config.MaxBodySize}),
		middleware.Timeout(middleware.TimeoutConfig{
			Duration:  config.RequestTimeout,
			SkipPaths: []string{streamPath},
		}),
	)
	if config.RateEnabled {
		rateLimiter := middleware.NewRateLimiter(middleware.RateLimiterConfig{
			Rate:  config.RateLimit,
			Burst: config.RateBurst,
		})
		engine.Use(rateLimiter.RateLimit())
	}

	r.setup()
	return r, nil
}

func (r *Router) setup() {
	api := r.engine.Group(APIPrefix)
	api.Use(func(c *gin.Context) {
		c.Header("X-API-Version", APIVersion)
		c.Next()
	})

	if r.h.Health != nil {
		r.h.Health.RegisterRoutes(api)
	}
	if r.h.Metrics != nil {
		r.h.Metrics.RegisterRoutes(api)
	}

	// Public routes
	public := api.Group("")
	r.h.Auth.RegisterRoutes(public)

	// Admin routes
	admin := api.Group("")
	admin.Use(r.auth.Authenticate())

	for _, sh := range []SplitHandler{r.h.Appointment, r.h.Chat} {
		sh.RegisterRoutes(public, admin)
	}
	for _, hh := range []Handler{r.h.Doctor, r.h.Patient, r.h.Template, r.h.HealthRecord} {
		hh.RegisterRoutes(admin)
	}
}

func (r *Router) Engine() *gin.Engine {
	return r.engine
}
