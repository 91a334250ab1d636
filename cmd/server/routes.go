package main

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"drone-fleet/internal/jwt"
	"drone-fleet/internal/middleware"
)

func (a *AppContext) setupRoutes() {
	r := a.Router
	cfg := a.Config

	// ── Global Middleware (outermost → innermost) ──
	r.Use(otelgin.Middleware(cfg.Telemetry.ServiceName,
		otelgin.WithTracerProvider(a.Instruments.TracerProvider)))
	r.Use(middleware.Logger())
	r.Use(middleware.Recovery())
	r.Use(middleware.CircuitBreaker(cfg.Breaker.Threshold, cfg.Breaker.Cooldown))
	r.Use(middleware.Auth(a.JWTService)) // skips /health
	if a.RateLimiter != nil {
		r.Use(middleware.RateLimit(a.RateLimiter)) // after Auth so quotas follow the subject
	}

	// ── Health (no auth, no rate limit) ──
	r.GET("/health", a.healthCheck)

	orders := a.OrderHandler
	drones := a.FleetHandler

	// ── Order reads. Handlers narrow customers and staff to their own orders. ──
	reads := r.Group("")
	reads.Use(middleware.RoleGuard(jwt.RoleCustomer, jwt.RoleStaff, jwt.RoleOperator, jwt.RoleAdmin))
	{
		reads.GET("/orders", orders.ListOrders)
		reads.GET("/orders/track/:tracking", orders.TrackOrder)
		reads.GET("/orders/:id", orders.GetOrder)
	}

	// ── Order intake (customer, operator, admin) ──
	intake := r.Group("")
	intake.Use(middleware.RoleGuard(jwt.RoleCustomer, jwt.RoleOperator, jwt.RoleAdmin))
	a.mutationChain(intake, "intake", cfg.Bulkhead.MutationPool)
	{
		intake.POST("/orders", orders.CreateOrder)
		intake.POST("/orders/:id/cancel", orders.CancelOrder)
	}

	// ── Dispatch and fleet management (operator, admin) ──
	ops := r.Group("")
	ops.Use(middleware.RoleGuard(jwt.RoleOperator, jwt.RoleAdmin))
	{
		ops.GET("/orders/active", orders.ListActive)
		ops.GET("/drones", drones.ListDrones)
		ops.GET("/drones/available", drones.ListAvailable)
		ops.GET("/drones/:id", drones.GetDrone)

		mutations := ops.Group("")
		a.mutationChain(mutations, "dispatch", cfg.Bulkhead.MutationPool)
		{
			mutations.POST("/orders/:id/transition", orders.TransitionOrder)
			mutations.POST("/orders/:id/payment", orders.UpdatePayment)
			mutations.POST("/orders/:id/staff", orders.AssignStaff)
			mutations.POST("/assignments", drones.Assign)
			mutations.POST("/assignments/auto", drones.AutoAssign)
			mutations.POST("/drones", drones.RegisterDrone)
			mutations.PATCH("/drones/:id", drones.UpdateDrone)
			mutations.PATCH("/drones/:id/status", drones.UpdateStatus)
			mutations.PATCH("/drones/:id/active", drones.SetActive)
			mutations.POST("/drones/:id/maintenance", drones.RecordMaintenance)
			mutations.POST("/drones/:id/release", drones.Release)
			mutations.DELETE("/drones/:id", drones.DeleteDrone)
		}
	}

	// ── Telemetry (staff, operator, admin). Own pool so a burst of
	// position reports cannot starve dispatch. ──
	telemetry := r.Group("")
	telemetry.Use(middleware.RoleGuard(jwt.RoleStaff, jwt.RoleOperator, jwt.RoleAdmin))
	telemetry.Use(middleware.Bulkhead("telemetry", cfg.Bulkhead.TelemetryPool))
	{
		telemetry.GET("/drones/:id/location", drones.GetLocation)
		telemetry.POST("/drones/:id/location", drones.UpdateLocation)
		telemetry.POST("/drones/:id/battery", drones.UpdateBattery)
		telemetry.POST("/orders/:id/location", orders.UpdateLocation)
	}

	// ── Admin ──
	admin := r.Group("")
	admin.Use(middleware.RoleGuard(jwt.RoleAdmin))
	admin.Use(middleware.Bulkhead("admin", cfg.Bulkhead.AdminPool))
	{
		admin.GET("/orders/stats", orders.Stats)
	}
}

// mutationChain attaches the bulkhead and, with Redis, idempotent replay.
func (a *AppContext) mutationChain(g *gin.RouterGroup, pool string, size int) {
	g.Use(middleware.Bulkhead(pool, size))
	if a.IdempotencyStore != nil {
		g.Use(middleware.Idempotency(a.IdempotencyStore))
	}
}
