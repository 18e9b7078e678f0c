package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	OrdersPlaced = promauto.NewCounter(prometheus.CounterOpts{
		Name: "storefront_orders_placed_total",
		Help: "Orders created with an assigned order number.",
	})

	OrderNumberConflicts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "storefront_order_number_conflicts_total",
		Help: "Order number candidates rejected by the unique index at insert.",
	})

	OrderStatusChanges = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_order_status_changes_total",
		Help: "Committed order status changes by target status.",
	}, []string{"status"})

	PointsAwarded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "storefront_loyalty_points_awarded_total",
		Help: "Loyalty points credited to customers on delivery.",
	})

	OTPIssued = promauto.NewCounter(prometheus.CounterOpts{
		Name: "storefront_otp_issued_total",
		Help: "One-time codes issued for registration.",
	})

	OTPVerifications = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_otp_verifications_total",
		Help: "Verification attempts by outcome.",
	}, []string{"outcome"})

	MailFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "storefront_mail_failures_total",
		Help: "Mail dispatches that failed.",
	})
)
