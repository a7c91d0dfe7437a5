package handlers

import (
	"net/http"

	portssvc "github.com/SscSPs/wallet_ledger/internal/core/ports/services"
	"github.com/SscSPs/wallet_ledger/internal/dto"
	"github.com/SscSPs/wallet_ledger/internal/middleware"
	"github.com/gin-gonic/gin"
)

type reconciliationHandler struct {
	reconciliationService portssvc.ReconciliationSvc
}

func registerReconciliationRoutes(rg *gin.RouterGroup, reconciliationService portssvc.ReconciliationSvc, mutating ...gin.HandlerFunc) {
	h := &reconciliationHandler{reconciliationService: reconciliationService}

	admin := rg.Group("/admin", mutating...)
	admin.POST("/reconcile", h.reconcile)
}

// reconcile runs an on-demand audit of every wallet against its log.
func (h *reconciliationHandler) reconcile(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())

	report, err := h.reconciliationService.Reconcile(c.Request.Context())
	if err != nil {
		respondServiceError(c, logger, err, "reconcile wallets")
		return
	}

	c.JSON(http.StatusOK, dto.ReconciliationResponse{Consistent: report.Consistent(), ReconciliationReport: *report})
}
