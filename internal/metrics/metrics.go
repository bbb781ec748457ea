package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gymportal_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gymportal_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	AuthRejectionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gymportal_auth_rejections_total",
			Help: "Total number of rejected authentication attempts",
		},
		[]string{"reason"},
	)

	GymsProvisionedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gymportal_gyms_provisioned_total",
			Help: "ensure-gym outcomes",
		},
		[]string{"outcome"},
	)

	ReceptionUsersTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gymportal_reception_users_total",
			Help: "Reception user lifecycle events",
		},
		[]string{"event"},
	)

	CompensationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gymportal_compensations_total",
			Help: "Compensating deletes run after a failed multi-step write",
		},
		[]string{"step", "status"},
	)

	PlanAssignmentsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gymportal_plan_assignments_total",
			Help: "Subscription plans assigned by administrators",
		},
		[]string{"plan_type"},
	)

	EntitlementChecksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gymportal_entitlement_checks_total",
			Help: "Entitlement evaluations by outcome",
		},
		[]string{"outcome"},
	)

	BillingEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gymportal_billing_events_total",
			Help: "Billing webhook events processed",
		},
		[]string{"type", "status"},
	)

	EmailsSentTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gymportal_emails_sent_total",
			Help: "Total number of emails sent",
		},
		[]string{"type", "status"},
	)

	EmailQueueLength = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "gymportal_email_queue_length",
			Help: "Current length of email queue",
		},
	)

	SubscriptionCacheTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gymportal_subscription_cache_total",
			Help: "Subscription cache lookups",
		},
		[]string{"result"},
	)
)

func RecordHTTPRequest(method, path, status string, duration float64) {
	HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	HTTPRequestDuration.WithLabelValues(method, path).Observe(duration)
}

func RecordAuthRejection(reason string) {
	AuthRejectionsTotal.WithLabelValues(reason).Inc()
}

func RecordGymProvisioned(created bool) {
	outcome := "existing"
	if created {
		outcome = "created"
	}
	GymsProvisionedTotal.WithLabelValues(outcome).Inc()
}

func RecordReceptionUser(event string) {
	ReceptionUsersTotal.WithLabelValues(event).Inc()
}

func RecordCompensation(step string, err error) {
	status := "ok"
	if err != nil {
		status = "failed"
	}
	CompensationsTotal.WithLabelValues(step, status).Inc()
}

func RecordPlanAssignment(planType string) {
	PlanAssignmentsTotal.WithLabelValues(planType).Inc()
}

func RecordEntitlement(outcome string) {
	EntitlementChecksTotal.WithLabelValues(outcome).Inc()
}

func RecordBillingEvent(eventType, status string) {
	BillingEventsTotal.WithLabelValues(eventType, status).Inc()
}

func RecordEmail(emailType, status string) {
	EmailsSentTotal.WithLabelValues(emailType, status).Inc()
}

func RecordCacheLookup(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	SubscriptionCacheTotal.WithLabelValues(result).Inc()
}

func SetEmailQueueLength(n int64) {
	EmailQueueLength.Set(float64(n))
}
