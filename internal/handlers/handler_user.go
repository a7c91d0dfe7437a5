package handlers

import (
	"log/slog"
	"net/http"

	portssvc "github.com/SscSPs/wallet_ledger/internal/core/ports/services"
	"github.com/SscSPs/wallet_ledger/internal/dto"
	"github.com/SscSPs/wallet_ledger/internal/middleware"
	"github.com/gin-gonic/gin"
)

// userHandler handles HTTP requests related to wallet owners.
type userHandler struct {
	userService portssvc.UserSvcFacade
}

func newUserHandler(us portssvc.UserSvcFacade) *userHandler {
	return &userHandler{
		userService: us,
	}
}

func registerUserRoutes(rg *gin.RouterGroup, userService portssvc.UserSvcFacade, mutating ...gin.HandlerFunc) {
	h := newUserHandler(userService)

	users := rg.Group("/users")
	{
		users.GET("/:userID", h.getUser)
		users.Group("", mutating...).POST("", h.createUser)
	}
}

func (h *userHandler) createUser(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	var req dto.CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, logger, err, "create user request")
		return
	}

	user, err := h.userService.CreateUser(c.Request.Context(), req)
	if err != nil {
		respondServiceError(c, logger, err, "create user")
		return
	}

	logger.Info("User created successfully", slog.String("user_id", user.UserID))
	c.JSON(http.StatusCreated, dto.ToUserResponse(user))
}

func (h *userHandler) getUser(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	userID := c.Param("userID")
	logger = logger.With(slog.String("user_id", userID))

	user, err := h.userService.GetUserByID(c.Request.Context(), userID)
	if err != nil {
		respondServiceError(c, logger, err, "retrieve user")
		return
	}

	c.JSON(http.StatusOK, dto.ToUserResponse(user))
}
