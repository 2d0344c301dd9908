package middleware

import (
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"github.com/verdantmart/identity-gateway/internal/core/ports"
	"github.com/verdantmart/identity-gateway/internal/core/service"
)

// Context keys set by the Session middleware.
const (
	ContextSessionID = "session_id"
	ContextSession   = "session"
	ContextAuth      = "auth"
)

const (
	DefaultSessionCookie = "sid"
	defaultSessionMaxAge = 30 * 24 * time.Hour
	sessionIssuer        = "identity-gateway"
)

// SessionConfig controls the signed browser-context cookie.
type SessionConfig struct {
	Secret     string
	CookieName string
	MaxAge     time.Duration
	Secure     bool
	// MintLimit throttles per client IP the requests that arrive without a
	// valid cookie and would mount a new session. Zero disables it.
	MintLimit RateLimitConfig
	Log       zerolog.Logger
}

func (cfg SessionConfig) withDefaults() SessionConfig {
	if cfg.CookieName == "" {
		cfg.CookieName = DefaultSessionCookie
	}
	if cfg.MaxAge <= 0 {
		cfg.MaxAge = defaultSessionMaxAge
	}
	return cfg
}

// Session identifies the browser context from a signed cookie, issuing a new
// one when it is missing or invalid, and mounts its session from reg.
func Session(reg *service.SessionRegistry, cfg SessionConfig) echo.MiddlewareFunc {
	cfg = cfg.withDefaults()
	minters, mintCfg := newIPLimiters(cfg.MintLimit)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id, ok := readSessionCookie(c, cfg)
			if !ok {
				if minters != nil {
					if allowed, err := minters.allow(c, mintCfg, cfg.Log); !allowed {
						return err
					}
				}
				id = service.NewSessionID()
				token, err := SignSessionToken(cfg.Secret, id, time.Now(), cfg.MaxAge)
				if err != nil {
					return fmt.Errorf("issue session cookie: %w", err)
				}
				c.SetCookie(&http.Cookie{
					Name:     cfg.CookieName,
					Value:    token,
					Path:     "/",
					MaxAge:   int(cfg.MaxAge.Seconds()),
					HttpOnly: true,
					Secure:   cfg.Secure,
					SameSite: http.SameSiteLaxMode,
				})
			}

			s := reg.Mount(id)
			c.Set(ContextSessionID, id)
			c.Set(ContextSession, s)
			c.Set(ContextAuth, ports.AuthService(s.Auth))
			return next(c)
		}
	}
}

// SignSessionToken returns the HS256 cookie value naming session id.
func SignSessionToken(secret, id string, now time.Time, ttl time.Duration) (string, error) {
	claims := jwt.RegisteredClaims{
		ID:        id,
		Issuer:    sessionIssuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

func readSessionCookie(c echo.Context, cfg SessionConfig) (string, bool) {
	cookie, err := c.Cookie(cfg.CookieName)
	if err != nil || cookie.Value == "" {
		return "", false
	}

	var claims jwt.RegisteredClaims
	_, err = jwt.ParseWithClaims(cookie.Value, &claims, func(*jwt.Token) (interface{}, error) {
		return []byte(cfg.Secret), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(sessionIssuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return "", false
	}
	if _, err := ulid.ParseStrict(claims.ID); err != nil {
		return "", false
	}
	return claims.ID, true
}
