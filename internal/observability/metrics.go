package observability

// Metric names shared between registration in main and the call sites.
const (
	MetricCheckoutAttempts    = "checkout_attempts_total"
	MetricCheckoutDuration    = "checkout_duration_seconds"
	MetricReservationFailures = "stock_reservation_failures_total"
	MetricCompensations       = "stock_compensations_total"
	MetricHTTPRequests        = "http_requests_total"
	MetricHTTPRequestDuration = "http_request_duration_seconds"
)
