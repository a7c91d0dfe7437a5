package handlers

import (
	portssvc "github.com/SscSPs/wallet_ledger/internal/core/ports/services"
	"github.com/gin-gonic/gin"
)

// RegisterRoutes sets up all application routes, injecting dependencies using interfaces.
// mutating is applied to every route that writes, typically the rate limiter.
func RegisterRoutes(
	r *gin.Engine,
	services *portssvc.ServiceContainer,
	mutating ...gin.HandlerFunc,
) {

	// Add health check route
	r.GET("/health", func(c *gin.Context) {
		c.String(200, "OK")
	})

	setupAPIV1Routes(r, services, mutating...)
}

// setupAPIV1Routes configures the /api/v1 group and delegates to specific entity route registrations
func setupAPIV1Routes(
	r *gin.Engine,
	service *portssvc.ServiceContainer,
	mutating ...gin.HandlerFunc,
) {
	v1 := r.Group("/api/v1")

	registerUserRoutes(v1, service.User, mutating...)
	registerWalletRoutes(v1, service.Wallet, mutating...)
	registerReconciliationRoutes(v1, service.Reconciliation, mutating...)
}
