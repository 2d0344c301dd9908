package api

import (
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"

	// Registers the swagger document served under /swagger.
	_ "github.com/verdantmart/identity-gateway/docs"
	"github.com/verdantmart/identity-gateway/internal/api/handler"
	"github.com/verdantmart/identity-gateway/internal/api/middleware"
	"github.com/verdantmart/identity-gateway/internal/core/domain"
	"github.com/verdantmart/identity-gateway/internal/core/service"
	"github.com/verdantmart/identity-gateway/internal/infrastructure/identity/mock"
)

// Deps carries everything the router wires into handlers.
type Deps struct {
	Registry    *service.SessionRegistry
	Session     middleware.SessionConfig
	RateLimit   middleware.RateLimitConfig
	CORSOrigins []string
	Demo        []mock.Credential
	Checks      []handler.DependencyCheck
	// Metrics receives the HTTP metrics; nil uses the default registry.
	Metrics *prometheus.Registry
	Log     zerolog.Logger
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(deps Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(deps.Log)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(requestLogger(deps.Log))
	var (
		registerer prometheus.Registerer = prometheus.DefaultRegisterer
		gatherer   prometheus.Gatherer   = prometheus.DefaultGatherer
	)
	if deps.Metrics != nil {
		registerer, gatherer = deps.Metrics, deps.Metrics
	}
	e.Use(echoprometheus.NewMiddlewareWithConfig(echoprometheus.MiddlewareConfig{
		Subsystem:  "identity_gateway",
		Registerer: registerer,
		Skipper: func(c echo.Context) bool {
			return c.Path() == "/metrics"
		},
	}))
	if len(deps.CORSOrigins) > 0 {
		e.Use(echomiddleware.CORSWithConfig(echomiddleware.CORSConfig{
			AllowOrigins:     deps.CORSOrigins,
			AllowCredentials: true,
		}))
	}

	caps := deps.Registry.Capabilities()
	cookieName := deps.Session.CookieName
	if cookieName == "" {
		cookieName = middleware.DefaultSessionCookie
	}

	// --- Dependencies ---
	healthHandler := handler.NewHealthHandler(string(caps.Env.Mode), deps.Checks...)
	sessionHandler := handler.NewSessionHandler(deps.Registry, cookieName)
	authHandler := handler.NewAuthHandler(deps.Log.With().Str("component", "auth_handler").Logger())
	loginHandler := handler.NewLoginHandler(caps.Guard, caps.Env.Mock(), deps.Demo, deps.Log.With().Str("component", "login_handler").Logger())
	profileHandler := handler.NewProfileHandler()
	consentHandler := handler.NewConsentHandler(caps.ConsentAcks)
	adminHandler := handler.NewAdminHandler(deps.Registry)

	// --- Operational routes (no session) ---
	e.GET("/health", healthHandler.Liveness)
	e.GET("/health/ready", healthHandler.Readiness)
	e.GET("/metrics", echoprometheus.NewHandlerWithConfig(echoprometheus.HandlerConfig{Gatherer: gatherer}))
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	// --- Session-scoped routes ---
	// The session middleware is attached per route so unmatched paths never
	// mount a session. Cookieless requests are throttled by the session mint
	// limit; credential routes also pass the auth limiter first.
	sessCfg := deps.Session
	sessCfg.Log = deps.Log
	sess := middleware.Session(deps.Registry, sessCfg)
	limited := middleware.RateLimit(deps.RateLimit, deps.Log)

	e.GET("/session", sessionHandler.Get, sess)
	e.DELETE("/session", sessionHandler.Delete, sess)

	authGroup := e.Group("/auth")
	authGroup.POST("/signup", authHandler.SignUp, limited, sess)
	authGroup.POST("/signin", loginHandler.SignIn, limited, sess)
	authGroup.POST("/provider", authHandler.SignInWithProvider, limited, sess)
	authGroup.POST("/password-reset", authHandler.ResetPassword, limited, sess)
	authGroup.POST("/signout", authHandler.SignOut, sess)
	authGroup.GET("/lockout", loginHandler.Lockout, sess)
	authGroup.GET("/demo", loginHandler.DemoCredentials)
	authGroup.POST("/demo/:role", loginHandler.Demo, limited, sess)

	profileGroup := e.Group("/profile")
	profileGroup.PATCH("/preferences", profileHandler.UpdatePreferences, sess)
	profileGroup.PATCH("/consent", profileHandler.UpdateConsent, sess)

	e.GET("/consent/cookies", consentHandler.Get, sess)
	e.PUT("/consent/cookies", consentHandler.Put, sess)

	e.GET("/admin/sessions", adminHandler.Sessions, sess, middleware.RBAC(domain.RoleAdmin))

	return e
}

// requestLogger logs one structured line per request.
func requestLogger(log zerolog.Logger) echo.MiddlewareFunc {
	return echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogRemoteIP:  true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v echomiddleware.RequestLoggerValues) error {
			var evt *zerolog.Event
			switch {
			case v.Status >= 500:
				evt = log.Error().Err(v.Error)
			case v.Error != nil:
				evt = log.Warn().Err(v.Error)
			default:
				evt = log.Info()
			}
			evt.
				Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("request_id", v.RequestID).
				Str("remote_ip", v.RemoteIP).
				Msg("request")
			return nil
		},
	})
}
