package metrics

import (
	"strconv"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	bookingsCreated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "item_rental",
			Name:      "bookings_created_total",
			Help:      "Bookings created in WAITING status.",
		},
	)

	bookingDecisions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "item_rental",
			Name:      "booking_decisions_total",
			Help:      "Owner decisions on bookings by resulting status.",
		},
		[]string{"status"},
	)

	bookingListings = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "item_rental",
			Name:      "booking_list_queries_total",
			Help:      "Booking list queries by scope and view.",
		},
		[]string{"scope", "view"},
	)

	pageFallbacks = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "item_rental",
			Name:      "booking_page_fallbacks_total",
			Help:      "Empty pages redirected to an earlier page.",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "item_rental",
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status code.",
		},
		[]string{"method", "route", "code"},
	)
)

// Register registers Prometheus metrics. Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(bookingsCreated, bookingDecisions, bookingListings, pageFallbacks, httpRequests)
	})
}

func IncBookingCreated() {
	bookingsCreated.Inc()
}

func IncBookingDecision(status string) {
	bookingDecisions.WithLabelValues(status).Inc()
}

func IncBookingList(scope, view string) {
	bookingListings.WithLabelValues(scope, view).Inc()
}

func IncPageFallback() {
	pageFallbacks.Inc()
}

// IncHTTP increments the counter for a route and response code.
func IncHTTP(method, route string, code int) {
	httpRequests.WithLabelValues(method, route, strconv.Itoa(code)).Inc()
}
