// Package router wires HTTP routes to their handlers and middleware.
package router

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/norrapat/table-reserve/internal/config"
	"github.com/norrapat/table-reserve/internal/handler"
	"github.com/norrapat/table-reserve/internal/middleware"
)

// RegisterRoutes registers routes that need no authentication: the
// health check and the stored slip images.
func RegisterRoutes(e *echo.Echo, uploadDir string) {
	e.GET("/healthz", handler.Health)
	e.Static("/uploads", uploadDir)
}

// RegisterPublic registers the guest-visible availability view.  The
// zone listing is the hottest read in the system, so it sits behind
// the Redis response cache and the rate limiter when redis is
// configured.
func RegisterPublic(e *echo.Echo, p *handler.CatalogHandler, cacheCfg config.CacheConfig, rlCfg config.RateLimitConfig, rdb *redis.Client) {
	e.GET("/v1/zones", p.Zones,
		middleware.NewTokenBucket(rlCfg, rdb),
		middleware.NewRedisCache(cacheCfg, rdb))
}

// RegisterAuth registers the authentication endpoints.  Register,
// login, refresh and logout live under /v1/auth and need no session;
// /v1/me and logout-all require a valid access token of any role.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string) {
	g := e.Group("/v1/auth")
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	g.POST("/refresh", a.Refresh)
	g.POST("/logout", a.Logout)

	auth := e.Group("/v1")
	auth.Use(middleware.JWTAuth(jwtSecret))
	auth.GET("/me", a.Me)
	auth.POST("/auth/logout-all", a.LogoutAll)
}
