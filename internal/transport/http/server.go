// Package http provides the HTTP server implementation for the assistant.
package http

import (
	stdhttp "net/http"

	"github.com/bytedance/sonic"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/infernodragon456/travel-chat-app/internal/service"
	v1 "github.com/infernodragon456/travel-chat-app/internal/transport/http/v1"
)

// NewServer creates and configures the public HTTP server. A nil ws handler
// leaves GET /ws unmounted. A ws handler that counts its connections has the
// count reported by /health.
func NewServer(svc *service.Service, ws stdhttp.Handler, logger zerolog.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.JSONSerializer = SonicSerializer{}

	// Middleware
	e.Use(middleware.RequestLoggerWithConfig(requestLoggerConfig(logger)))
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	api := v1.NewHandler(svc, logger)
	if counter, ok := ws.(v1.ConnectionCounter); ok {
		api.WithConnections(counter)
	}
	api.RegisterRoutes(e)

	if ws != nil {
		e.GET("/ws", echo.WrapHandler(ws))
	}
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	return e
}

func requestLoggerConfig(logger zerolog.Logger) middleware.RequestLoggerConfig {
	log := logger.With().Str("component", "http").Logger()
	return middleware.RequestLoggerConfig{
		LogMethod:   true,
		LogURI:      true,
		LogStatus:   true,
		LogLatency:  true,
		LogError:    true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			evt := log.Info()
			if v.Error != nil {
				evt = log.Error().Err(v.Error)
			}
			evt.Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Msg("request")
			return nil
		},
	}
}

// SonicSerializer implements echo.JSONSerializer with bytedance/sonic.
type SonicSerializer struct{}

func (SonicSerializer) Serialize(c echo.Context, i any, indent string) error {
	enc := sonic.ConfigStd.NewEncoder(c.Response())
	if indent != "" {
		enc.SetIndent("", indent)
	}
	return enc.Encode(i)
}

func (SonicSerializer) Deserialize(c echo.Context, i any) error {
	if err := sonic.ConfigStd.NewDecoder(c.Request().Body).Decode(i); err != nil {
		return echo.NewHTTPError(stdhttp.StatusBadRequest, "invalid JSON body").SetInternal(err)
	}
	return nil
}
