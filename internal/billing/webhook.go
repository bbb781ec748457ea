// Package billing keeps subscriptions in step with Stripe invoices.
package billing

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"gymportal/internal/api"
	"gymportal/internal/identity"
	"gymportal/internal/logger"
	"gymportal/internal/metrics"
	"gymportal/internal/subscription"

	"github.com/gin-gonic/gin"
	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"
)

const maxPayloadBytes = 65536

var errNoUser = errors.New("event does not identify a user")

// Subscriptions is the part of the subscription service the webhook drives.
type Subscriptions interface {
	ApplyPayment(ctx context.Context, userID string, p subscription.Payment) (*subscription.Subscription, error)
	SetStatus(ctx context.Context, userID string, status subscription.Status) error
}

type UserLookup interface {
	FindUserByEmail(ctx context.Context, email string) (*identity.User, error)
}

type Notifier interface {
	SendPaymentFailed(ctx context.Context, to string) error
}

type WebhookHandler struct {
	secret   string
	subs     Subscriptions
	users    UserLookup
	notifier Notifier
	now      func() time.Time
}

func NewWebhookHandler(secret string, subs Subscriptions, users UserLookup, notifier Notifier) *WebhookHandler {
	return &WebhookHandler{
		secret:   secret,
		subs:     subs,
		users:    users,
		notifier: notifier,
		now:      time.Now,
	}
}

// @Summary      Stripe webhook
// @Description  Receives signed Stripe events and updates subscription status
// @Tags         billing
// @Accept       json
// @Produce      json
// @Success      200 {object} map[string]interface{}
// @Failure      400 {object} api.ErrorResponse
// @Failure      503 {object} api.ErrorResponse
// @Router       /billing/webhook [post]
func (h *WebhookHandler) Handle(c *gin.Context) {
	if h.secret == "" {
		api.Error(c, http.StatusServiceUnavailable, "billing webhooks are disabled")
		return
	}

	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxPayloadBytes))
	if err != nil {
		api.Error(c, http.StatusBadRequest, "read body")
		return
	}

	event, err := webhook.ConstructEventWithOptions(body, c.GetHeader("Stripe-Signature"), h.secret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		metrics.RecordBillingEvent("unknown", "bad_signature")
		api.Error(c, http.StatusBadRequest, "invalid signature")
		return
	}

	ctx := c.Request.Context()
	eventType := string(event.Type)
	if event.Data == nil {
		api.Error(c, http.StatusBadRequest, "event has no data")
		return
	}

	switch event.Type {
	case "invoice.paid":
		err = h.handleInvoicePaid(ctx, event)
	case "invoice.payment_failed":
		err = h.handleInvoicePaymentFailed(ctx, event)
	case "customer.subscription.deleted":
		err = h.handleSubscriptionDeleted(ctx, event)
	default:
		metrics.RecordBillingEvent(eventType, "ignored")
		api.Success(c, http.StatusOK, gin.H{"received": true})
		return
	}

	if err != nil {
		// Failures are still acknowledged with 200.
		metrics.RecordBillingEvent(eventType, "failed")
		logger.Error("billing webhook", "event_id", event.ID, "type", eventType, "error", err)
	} else {
		metrics.RecordBillingEvent(eventType, "processed")
	}
	api.Success(c, http.StatusOK, gin.H{"received": true})
}

func (h *WebhookHandler) handleInvoicePaid(ctx context.Context, event stripe.Event) error {
	var invoice stripe.Invoice
	if err := json.Unmarshal(event.Data.Raw, &invoice); err != nil {
		return err
	}

	userID, err := h.resolveUser(ctx, invoiceMetadata(invoice), invoice.CustomerEmail)
	if err != nil {
		return err
	}

	planType := subscription.PlanType(invoiceMetadata(invoice)["plan_type"])
	plan, err := subscription.FindPlan(planType)
	if err != nil {
		plan, _ = subscription.FindPlan(subscription.PlanMonthly)
	}

	paidAt := h.now().UTC()
	next := plan.Type.NextBilling(paidAt)
	if end := invoicePeriodEnd(invoice); end > paidAt.Unix() {
		next = time.Unix(end, 0).UTC()
	}

	_, err = h.subs.ApplyPayment(ctx, userID, subscription.Payment{
		PlanType:     plan.Type,
		PricePerUser: plan.PricePerUser,
		MaxUsers:     plan.MaxUsers,
		Method:       subscription.PaymentStripe,
		PaidAt:       paidAt,
		NextBilling:  next,
	})
	return err
}

func (h *WebhookHandler) handleInvoicePaymentFailed(ctx context.Context, event stripe.Event) error {
	var invoice stripe.Invoice
	if err := json.Unmarshal(event.Data.Raw, &invoice); err != nil {
		return err
	}

	userID, err := h.resolveUser(ctx, invoiceMetadata(invoice), invoice.CustomerEmail)
	if err != nil {
		return err
	}
	if err := h.subs.SetStatus(ctx, userID, subscription.StatusExpired); err != nil {
		return err
	}

	if h.notifier != nil && invoice.CustomerEmail != "" {
		if err := h.notifier.SendPaymentFailed(ctx, invoice.CustomerEmail); err != nil {
			logger.Warn("queue payment failed email", "user_id", userID, "error", err)
		}
	}
	return nil
}

func (h *WebhookHandler) handleSubscriptionDeleted(ctx context.Context, event stripe.Event) error {
	var stripeSub stripe.Subscription
	if err := json.Unmarshal(event.Data.Raw, &stripeSub); err != nil {
		return err
	}

	email := ""
	if stripeSub.Customer != nil {
		email = stripeSub.Customer.Email
	}
	userID, err := h.resolveUser(ctx, stripeSub.Metadata, email)
	if err != nil {
		return err
	}
	return h.subs.SetStatus(ctx, userID, subscription.StatusCancelled)
}

// resolveUser prefers an explicit user_id in metadata over an email lookup.
func (h *WebhookHandler) resolveUser(ctx context.Context, metadata map[string]string, email string) (string, error) {
	if id := strings.TrimSpace(metadata["user_id"]); id != "" {
		return id, nil
	}
	if email == "" || h.users == nil {
		return "", errNoUser
	}
	u, err := h.users.FindUserByEmail(ctx, email)
	if err != nil {
		return "", err
	}
	return u.ID, nil
}

func invoiceMetadata(invoice stripe.Invoice) map[string]string {
	if invoice.Parent != nil && invoice.Parent.SubscriptionDetails != nil && len(invoice.Parent.SubscriptionDetails.Metadata) > 0 {
		return invoice.Parent.SubscriptionDetails.Metadata
	}
	return invoice.Metadata
}

// invoicePeriodEnd returns the latest service period end billed by the invoice.
func invoicePeriodEnd(invoice stripe.Invoice) int64 {
	var end int64
	if invoice.Lines != nil {
		for _, line := range invoice.Lines.Data {
			if line != nil && line.Period != nil && line.Period.End > end {
				end = line.Period.End
			}
		}
	}
	if end == 0 {
		end = invoice.PeriodEnd
	}
	return end
}
