package api

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Checker-Finance/fuel-reserve/internal/store"
)

// RegisterRoutes wires the reserve API onto the fiber app. nc and st are
// optional; health reports them only when configured.
func RegisterRoutes(app *fiber.App, nc *nats.Conn, st store.Store, handler *ReserveHandler) {
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	// Health check
	app.Get("/health", func(c *fiber.Ctx) error {
		checks := map[string]string{}
		status := "ok"
		code := fiber.StatusOK

		if nc != nil {
			checks["nats"] = "ok"
			if !nc.IsConnected() {
				checks["nats"] = "disconnected"
				status = "degraded"
				code = fiber.StatusServiceUnavailable
			} else if err := nc.FlushTimeout(1 * time.Second); err != nil {
				checks["nats"] = err.Error()
				status = "degraded"
				code = fiber.StatusServiceUnavailable
			}
		}

		if st != nil {
			checks["store"] = "ok"
			healthCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			if err := st.HealthCheck(healthCtx); err != nil {
				checks["store"] = err.Error()
				status = "degraded"
				code = fiber.StatusServiceUnavailable
			}
		}

		return c.Status(code).JSON(fiber.Map{
			"status": status,
			"checks": checks,
		})
	})

	// API routes
	v1 := app.Group("/api/v1")
	v1.Get("/accounts", handler.ListAccountsHandler)
	v1.Post("/accounts", handler.CreateAccountHandler)
	v1.Get("/accounts/:pair/quote", handler.QuoteHandler)
	v1.Post("/accounts/:pair/issue", handler.IssueHandler)
	v1.Post("/accounts/:pair/retire", handler.RetireHandler)
	v1.Post("/accounts/:pair/supply", handler.SupplyHandler)
	v1.Get("/accounts/:pair/ladders", handler.LaddersHandler)
	v1.Get("/accounts/:pair/operations", handler.OperationsHandler)
	v1.Get("/summary", handler.SummaryHandler)
}
