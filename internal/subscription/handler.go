package subscription

import (
	"errors"
	"net/http"

	"gymportal/internal/api"
	"gymportal/internal/auth"
	"gymportal/internal/identity"
	"gymportal/internal/logger"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

// @Summary      Assign a plan
// @Description  Platform admin only: activates a plan for the account with the given email
// @Tags         admin,subscriptions
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body subscription.AssignPlanRequest true "Plan assignment"
// @Success      200 {object} map[string]interface{}
// @Failure      400 {object} api.ErrorResponse
// @Failure      401 {object} api.ErrorResponse
// @Failure      403 {object} api.ErrorResponse
// @Failure      404 {object} api.ErrorResponse
// @Failure      500 {object} api.ErrorResponse
// @Router       /admin/assign-plan [post]
func (h *Handler) AssignPlan(c *gin.Context) {
	var req AssignPlanRequest
	if !api.BindJSON(c, &req) {
		return
	}

	sub, err := h.service.AssignPlan(c.Request.Context(), req)
	switch {
	case errors.Is(err, identity.ErrUserNotFound):
		api.Error(c, http.StatusNotFound, "User not found")
	case errors.Is(err, ErrUnknownPlan):
		api.Error(c, http.StatusBadRequest, "unknown plan type")
	case err != nil:
		logger.Error("assign plan", "email", req.Email, "error", err)
		api.Error(c, http.StatusInternalServerError, "Failed to assign plan")
	default:
		api.Success(c, http.StatusOK, gin.H{"subscription": sub})
	}
}

// @Summary      Subscription status
// @Description  Access evaluation for the caller, inherited from the gym owner for staff
// @Tags         subscriptions
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} map[string]interface{}
// @Failure      401 {object} api.ErrorResponse
// @Failure      500 {object} api.ErrorResponse
// @Router       /subscription/status [get]
func (h *Handler) Status(c *gin.Context) {
	userID, ok := auth.GetUserID(c)
	if !ok {
		api.Error(c, http.StatusUnauthorized, "Unauthorized")
		return
	}

	res, err := h.service.Status(c.Request.Context(), userID)
	if err != nil {
		logger.Error("subscription status", "user_id", userID, "error", err)
		api.Error(c, http.StatusInternalServerError, "Failed to load subscription")
		return
	}

	payload := gin.H{
		"has_access":      res.Access.HasAccess,
		"is_trial_active": res.Access.IsTrialActive,
		"days_remaining":  res.Access.DaysRemaining,
	}
	if res.Subscription != nil {
		payload["status"] = res.Subscription.Status
		payload["subscription"] = res.Subscription
	}
	if res.OwnerID != "" {
		payload["inherited"] = true
	}
	api.Success(c, http.StatusOK, payload)
}

// @Summary      List plans
// @Tags         subscriptions
// @Produce      json
// @Success      200 {object} map[string]interface{}
// @Router       /subscription/plans [get]
func (h *Handler) ListPlans(c *gin.Context) {
	api.Success(c, http.StatusOK, gin.H{"plans": h.service.Plans()})
}
