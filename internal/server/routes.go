package server

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"
)

// RegisterRoutes configures all API routes, middleware, and error handlers
func RegisterRoutes(e *echo.Echo, h *Handlers, cfg ServerConfig) {
	e.HTTPErrorHandler = NotFoundJSON()

	e.Use(SetJSONContentType)
	e.Use(SetNoCacheHeaders)

	// Optional API key authentication
	if cfg.APIKey != "" {
		e.Use(middleware.KeyAuthWithConfig(middleware.KeyAuthConfig{
			KeyLookup: "header:X-API-Key",
			Validator: func(key string, c echo.Context) (bool, error) {
				return key == cfg.APIKey, nil
			},
		}))
	}

	v1 := e.Group("/v1")
	v1.GET("/health", h.Health)
	v1.POST("/quote", h.Quote)
	v1.GET("/orders/recent", h.RecentOrders)
	v1.GET("/orders/pool/:pool", h.PoolOrders)
	v1.GET("/positions", h.Positions)

	// Order submission moves funds; rate limited hard so a misbehaving
	// client cannot drain the wallet through sheer volume.
	orders := v1.Group("/orders")
	orders.Use(middleware.RateLimiter(middleware.NewRateLimiterMemoryStoreWithConfig(middleware.RateLimiterMemoryStoreConfig{
		Rate:      rate.Limit(0.2), // 1 request every 5 seconds
		Burst:     2,
		ExpiresIn: 2 * time.Minute,
	})))
	orders.POST("", h.SubmitOrder)

	// Runtime switch CRUD endpoints
	switchGroup := v1.Group("/switches")
	switchGroup.GET("", h.SwitchesList)
	switchGroup.POST("", h.SwitchesUpsert)
	switchGroup.GET("/:key", h.SwitchesGet)
	switchGroup.PUT("/:key", h.SwitchesUpdate)
	switchGroup.DELETE("/:key", h.SwitchesDelete)

	e.RouteNotFound("/*", func(c echo.Context) error {
		return c.JSON(http.StatusNotFound, ErrorResponse{Error: "not found", Code: http.StatusNotFound})
	})
}
