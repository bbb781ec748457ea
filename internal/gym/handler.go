package gym

import (
	"errors"
	"net/http"

	"gymportal/internal/api"
	"gymportal/internal/auth"
	"gymportal/internal/logger"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{
		service: service,
	}
}

// @Summary      Ensure the caller's gym
// @Description  Returns the caller's gym, creating it (plus owner profile and trial) on first call
// @Tags         gyms
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body gym.EnsureGymRequest false "Optional gym details"
// @Success      200 {object} map[string]interface{}
// @Failure      400 {object} api.ErrorResponse
// @Failure      401 {object} api.ErrorResponse
// @Failure      403 {object} api.ErrorResponse
// @Failure      500 {object} api.ErrorResponse
// @Router       /gym/ensure [post]
func (h *Handler) Ensure(c *gin.Context) {
	p, ok := auth.GetPrincipal(c)
	if !ok {
		api.Error(c, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req EnsureGymRequest
	if c.Request.ContentLength > 0 && !api.BindJSON(c, &req) {
		return
	}

	gym, created, err := h.service.Ensure(c.Request.Context(), p, req)
	if errors.Is(err, ErrStaffAccount) {
		api.Error(c, http.StatusForbidden, "Forbidden")
		return
	}
	if err != nil {
		logger.Error("ensure gym", "user_id", p.UserID, "error", err)
		api.Error(c, http.StatusInternalServerError, "Failed to ensure gym")
		return
	}

	api.Success(c, http.StatusOK, gin.H{"gym": gym, "created": created})
}

// @Summary      Get the caller's gym
// @Tags         gyms
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} map[string]interface{}
// @Failure      401 {object} api.ErrorResponse
// @Failure      404 {object} api.ErrorResponse
// @Failure      500 {object} api.ErrorResponse
// @Router       /gym/ensure [get]
func (h *Handler) Get(c *gin.Context) {
	userID, ok := auth.GetUserID(c)
	if !ok {
		api.Error(c, http.StatusUnauthorized, "Unauthorized")
		return
	}

	gym, err := h.service.GetByOwner(c.Request.Context(), userID)
	switch {
	case errors.Is(err, ErrGymNotFound):
		api.Error(c, http.StatusNotFound, "Gym not found")
	case err != nil:
		logger.Error("get gym", "user_id", userID, "error", err)
		api.Error(c, http.StatusInternalServerError, "Failed to fetch gym")
	default:
		api.Success(c, http.StatusOK, gin.H{"gym": gym})
	}
}
