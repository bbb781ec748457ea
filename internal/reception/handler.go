package reception

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
	return &Handler{service: service}
}

// respondError maps service failures onto the response envelope.
func respondError(c *gin.Context, op string, err error) {
	switch {
	case errors.Is(err, ErrNoGym):
		api.Error(c, http.StatusForbidden, "Forbidden")
	case errors.Is(err, ErrEmailTaken):
		api.Error(c, http.StatusConflict, "Email already registered")
	case errors.Is(err, ErrNotReceptionist):
		api.Error(c, http.StatusNotFound, "Reception user not found")
	default:
		logger.Error(op, "error", err)
		api.Error(c, http.StatusInternalServerError, "Internal server error")
	}
}

// @Summary      Create a reception user
// @Description  Gym owner only: creates a receptionist account with access to the caller's gym
// @Tags         admin,reception
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body reception.CreateRequest true "Receptionist"
// @Success      201 {object} map[string]interface{}
// @Failure      400 {object} api.ErrorResponse
// @Failure      401 {object} api.ErrorResponse
// @Failure      403 {object} api.ErrorResponse
// @Failure      409 {object} api.ErrorResponse
// @Failure      500 {object} api.ErrorResponse
// @Router       /admin/create-reception-user [post]
func (h *Handler) Create(c *gin.Context) {
	ownerID, ok := auth.GetUserID(c)
	if !ok {
		api.Error(c, http.StatusUnauthorized, "Unauthorized")
		return
	}

	if err := h.service.CheckOwner(c.Request.Context(), ownerID); err != nil {
		respondError(c, "create reception user", err)
		return
	}

	var req CreateRequest
	if !api.BindJSON(c, &req) {
		return
	}

	res, err := h.service.Create(c.Request.Context(), ownerID, req)
	if err != nil {
		respondError(c, "create reception user", err)
		return
	}

	api.Success(c, http.StatusCreated, gin.H{
		"user":        res.User,
		"permissions": res.Permissions,
		"credentials": res.Credentials,
	})
}

// @Summary      List reception users
// @Tags         admin,reception
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} map[string]interface{}
// @Failure      401 {object} api.ErrorResponse
// @Failure      403 {object} api.ErrorResponse
// @Failure      500 {object} api.ErrorResponse
// @Router       /admin/reception-users [get]
func (h *Handler) List(c *gin.Context) {
	ownerID, ok := auth.GetUserID(c)
	if !ok {
		api.Error(c, http.StatusUnauthorized, "Unauthorized")
		return
	}

	users, err := h.service.List(c.Request.Context(), ownerID)
	if err != nil {
		respondError(c, "list reception users", err)
		return
	}

	api.Success(c, http.StatusOK, gin.H{"users": users})
}

// @Summary      Remove a reception user
// @Tags         admin,reception
// @Produce      json
// @Security     BearerAuth
// @Param        userID path string true "Receptionist user ID"
// @Success      200 {object} map[string]interface{}
// @Failure      401 {object} api.ErrorResponse
// @Failure      403 {object} api.ErrorResponse
// @Failure      404 {object} api.ErrorResponse
// @Failure      500 {object} api.ErrorResponse
// @Router       /admin/reception-users/{userID} [delete]
func (h *Handler) Remove(c *gin.Context) {
	ownerID, ok := auth.GetUserID(c)
	if !ok {
		api.Error(c, http.StatusUnauthorized, "Unauthorized")
		return
	}

	userID := c.Param("userID")
	if userID == ownerID {
		api.Error(c, http.StatusBadRequest, "cannot remove yourself")
		return
	}

	if err := h.service.Remove(c.Request.Context(), ownerID, userID); err != nil {
		respondError(c, "remove reception user", err)
		return
	}

	api.Success(c, http.StatusOK, nil)
}
