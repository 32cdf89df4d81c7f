package http

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/tgmarket/order-service/internal/config"
	"github.com/tgmarket/order-service/internal/delivery/http/handlers"
	"github.com/tgmarket/order-service/internal/delivery/http/middleware"
	"github.com/tgmarket/order-service/internal/usecase"
)

type Server struct {
	echo *echo.Echo
	cfg  *config.OrderConfig
}

func NewServer(
	cfg *config.OrderConfig,
	orderUsecase usecase.OrderUsecase,
	pendingUsecase usecase.PendingOrderUsecase,
	cardUsecase usecase.CardUsecase) *Server {

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.RequestID())
	e.Use(requestLogger())

	handlers.NewPaymentHandler(orderUsecase).RegisterRoutes(e)
	handlers.NewOrderHandler(orderUsecase, pendingUsecase).RegisterRoutes(e)
	handlers.NewCardHandler(cardUsecase).RegisterRoutes(e)

	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	return &Server{echo: e, cfg: cfg}
}

func (s *Server) Start() error {
	return s.echo.Start(fmt.Sprintf("%s:%s", s.cfg.HTTPServer.Host, s.cfg.HTTPServer.Port))
}

func requestLogger() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			started := time.Now()
			err := next(c)
			slog.Info("http request",
				"method", c.Request().Method,
				"path", c.Request().URL.Path,
				"status", c.Response().Status,
				"duration_ms", time.Since(started).Milliseconds(),
				"request_id", c.Get("request_id"),
			)
			return err
		}
	}
}
