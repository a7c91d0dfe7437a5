package handlers

import (
	"log/slog"
	"net/http"

	portssvc "github.com/SscSPs/wallet_ledger/internal/core/ports/services"
	"github.com/SscSPs/wallet_ledger/internal/dto"
	"github.com/SscSPs/wallet_ledger/internal/middleware"
	"github.com/gin-gonic/gin"
)

// walletHandler handles HTTP requests related to wallets.
type walletHandler struct {
	walletService portssvc.WalletSvcFacade
}

// newWalletHandler creates a new walletHandler.
func newWalletHandler(ws portssvc.WalletSvcFacade) *walletHandler {
	return &walletHandler{
		walletService: ws,
	}
}

// registerWalletRoutes registers routes related to wallets. mutating wraps
// every route that changes a balance or opens a wallet.
func registerWalletRoutes(rg *gin.RouterGroup, walletService portssvc.WalletSvcFacade, mutating ...gin.HandlerFunc) {
	h := newWalletHandler(walletService)

	wallets := rg.Group("/wallet")
	{
		wallets.GET("/:walletID/balance", h.getBalance)
		wallets.GET("/:walletID/balance/historical", h.getHistoricalBalance)
		wallets.GET("/:walletID/transactions", h.listTransactions)

		writes := wallets.Group("", mutating...)
		writes.POST("", h.createWallet)
		writes.POST("/deposit", h.deposit)
		writes.POST("/withdraw", h.withdraw)
		writes.POST("/transfer", h.transfer)
	}
}

func (h *walletHandler) createWallet(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	var req dto.CreateWalletRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, logger, err, "create wallet request")
		return
	}

	logger = logger.With(slog.String("user_id", req.UserID))
	logger.Info("Received request to create wallet")

	acc, err := h.walletService.CreateWallet(c.Request.Context(), req.UserID)
	if err != nil {
		respondServiceError(c, logger, err, "create wallet")
		return
	}

	logger.Info("Wallet created successfully", slog.String("wallet_id", acc.AccountID))
	c.JSON(http.StatusCreated, dto.ToWalletResponse(acc))
}

func (h *walletHandler) getBalance(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	walletID := c.Param("walletID")
	logger = logger.With(slog.String("wallet_id", walletID))

	balance, err := h.walletService.GetBalance(c.Request.Context(), walletID)
	if err != nil {
		respondServiceError(c, logger, err, "retrieve balance")
		return
	}

	c.JSON(http.StatusOK, dto.BalanceResponse{WalletID: walletID, Balance: balance})
}

func (h *walletHandler) getHistoricalBalance(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	walletID := c.Param("walletID")
	logger = logger.With(slog.String("wallet_id", walletID))

	var params dto.HistoricalBalanceParams
	if err := c.ShouldBindQuery(&params); err != nil {
		respondBindError(c, logger, err, "query parameters")
		return
	}

	balance, err := h.walletService.GetHistoricalBalance(c.Request.Context(), walletID, params.Timestamp)
	if err != nil {
		respondServiceError(c, logger, err, "retrieve historical balance")
		return
	}

	asOf := params.Timestamp
	c.JSON(http.StatusOK, dto.BalanceResponse{WalletID: walletID, Balance: balance, AsOf: &asOf})
}

func (h *walletHandler) listTransactions(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	walletID := c.Param("walletID")
	logger = logger.With(slog.String("wallet_id", walletID))

	var params dto.ListTransactionsParams
	if err := c.ShouldBindQuery(&params); err != nil {
		respondBindError(c, logger, err, "query parameters")
		return
	}

	resp, err := h.walletService.ListTransactions(c.Request.Context(), walletID, params)
	if err != nil {
		respondServiceError(c, logger, err, "list transactions")
		return
	}

	logger.Info("Transactions listed successfully", slog.Int("count", len(resp.Transactions)))
	c.JSON(http.StatusOK, resp)
}

func (h *walletHandler) deposit(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	var req dto.WalletTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, logger, err, "deposit request")
		return
	}

	logger = logger.With(slog.String("wallet_id", req.WalletID), slog.String("amount", req.Amount.String()))
	summary, err := h.walletService.Deposit(c.Request.Context(), req.WalletID, req.Amount)
	if err != nil {
		respondServiceError(c, logger, err, "deposit funds")
		return
	}

	c.JSON(http.StatusOK, dto.ToWalletTransactionResponse(summary))
}

func (h *walletHandler) withdraw(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	var req dto.WalletTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, logger, err, "withdraw request")
		return
	}

	logger = logger.With(slog.String("wallet_id", req.WalletID), slog.String("amount", req.Amount.String()))
	summary, err := h.walletService.Withdraw(c.Request.Context(), req.WalletID, req.Amount)
	if err != nil {
		respondServiceError(c, logger, err, "withdraw funds")
		return
	}

	c.JSON(http.StatusOK, dto.ToWalletTransactionResponse(summary))
}

func (h *walletHandler) transfer(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	var req dto.WalletTransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, logger, err, "transfer request")
		return
	}

	logger = logger.With(
		slog.String("from_wallet_id", req.FromWalletID),
		slog.String("to_wallet_id", req.ToWalletID),
		slog.String("amount", req.Amount.String()),
	)
	summary, err := h.walletService.Transfer(c.Request.Context(), req.FromWalletID, req.ToWalletID, req.Amount)
	if err != nil {
		respondServiceError(c, logger, err, "transfer funds")
		return
	}

	logger.Info("Transfer completed", slog.String("transfer_id", summary.TransferID))
	c.JSON(http.StatusOK, dto.ToWalletTransactionResponse(summary))
}
