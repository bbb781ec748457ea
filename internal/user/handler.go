package user

import (
	"errors"
	"net/http"

	"gymportal/internal/api"
	"gymportal/internal/auth"
	"gymportal/internal/logger"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	repo Repository
}

func NewHandler(repo Repository) *Handler {
	return &Handler{repo: repo}
}

// GetMe godoc
// @Summary      Get current user
// @Description  Returns the profile row of the authenticated user.
// @Tags         user
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Failure      401  {object}  api.ErrorResponse
// @Failure      404  {object}  api.ErrorResponse
// @Router       /me [get]
func (h *Handler) GetMe(c *gin.Context) {
	userID, ok := auth.GetUserID(c)
	if !ok {
		api.Error(c, http.StatusUnauthorized, "Unauthorized")
		return
	}

	u, err := h.repo.FindByID(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			api.Error(c, http.StatusNotFound, "User not found")
			return
		}
		logger.Error("load profile", "user_id", userID, "error", err)
		api.Error(c, http.StatusInternalServerError, "Internal server error")
		return
	}

	api.Success(c, http.StatusOK, gin.H{"user": u})
}
