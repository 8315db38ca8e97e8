package httppresentation

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	appcheckout "github.com/pasar-rakyat/kantin/internal/application/checkout"
	apporder "github.com/pasar-rakyat/kantin/internal/application/order"
	appstats "github.com/pasar-rakyat/kantin/internal/application/stats"
	"github.com/pasar-rakyat/kantin/internal/domain/cart"
	domorder "github.com/pasar-rakyat/kantin/internal/domain/order"
	domstock "github.com/pasar-rakyat/kantin/internal/domain/stock"
	"github.com/pasar-rakyat/kantin/internal/observability"
)

const (
	componentHTTPHandler = "http_server"
	headerRequestID      = "X-Request-ID"

	msgInvalidData  = "Invalid data"
	msgCreated      = "Order created"
	msgServerError  = "Something went wrong"
	msgStockFailure = "reservation failed"
)

type Handler struct {
	checkout *appcheckout.Coordinator
	orders   *apporder.Service
	stock    domstock.Store
	stats    *appstats.Collector
	log      observability.Logger
	tel      observability.Telemetry
}

func NewHandler(
	checkout *appcheckout.Coordinator,
	orders *apporder.Service,
	stock domstock.Store,
	stats *appstats.Collector,
	tel observability.Telemetry,
) *Handler {
	if tel == nil {
		tel = observability.NopTelemetry()
	}
	return &Handler{
		checkout: checkout,
		orders:   orders,
		stock:    stock,
		stats:    stats,
		log:      tel.Logger().With(observability.F("component", componentHTTPHandler)),
		tel:      tel,
	}
}

func (h *Handler) Router() http.Handler {
	mux := http.NewServeMux()

	// Each route is wrapped: Trace → request logger → access log → handler.
	h.handle(mux, "POST /orders", h.handleCreateOrder)
	h.handle(mux, "GET /orders", h.handleListOrders)
	h.handle(mux, "POST /orders/{id}/confirm", h.handleConfirmPayment)
	h.handle(mux, "PUT /counters/{id}/stock", h.handleSetStock)
	h.handle(mux, "GET /counters/{id}/stock", h.handleGetStock)
	h.handle(mux, "GET /stats", h.handleStats)
	h.handle(mux, "GET /health", h.handleHealth)

	return mux
}

func (h *Handler) handle(mux *http.ServeMux, pattern string, handler http.HandlerFunc) {
	mux.Handle(pattern, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Store the stable route template for low-cardinality labels.
		ctx := contextWithRoute(r.Context(), pattern)
		r = r.WithContext(ctx)

		wrapped := h.withTrace(
			ObservabilityMiddleware(h.log, func(r *http.Request) string {
				return r.Header.Get(headerRequestID)
			}, h.tel)(
				h.withAccessLog(handler),
			),
		)
		wrapped.ServeHTTP(w, r)
	}))
}

type cartItemRequest struct {
	ID        string `json:"id"`
	CounterID string `json:"counterId"`
	Name      string `json:"name"`
	Price     int64  `json:"price"`
	Quantity  int    `json:"quantity"`
}

type createOrderRequest struct {
	Cashier       string            `json:"cashier"`
	PaymentMethod string            `json:"paymentMethod"`
	CartItems     []cartItemRequest `json:"cartItems"`
}

type createOrderResponse struct {
	Message     string          `json:"message"`
	OrderID     string          `json:"orderId"`
	Status      domorder.Status `json:"status"`
	TotalAmount int64           `json:"totalAmount"`
}

func (h *Handler) handleCreateOrder(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if err := decodeJSON(r, &req); err != nil {
		writeMessage(w, http.StatusBadRequest, msgInvalidData)
		return
	}
	if req.Cashier == "" || req.PaymentMethod == "" || len(req.CartItems) == 0 {
		writeMessage(w, http.StatusBadRequest, msgInvalidData)
		return
	}

	lines := make([]cart.Line, 0, len(req.CartItems))
	for _, item := range req.CartItems {
		lines = append(lines, cart.Line{
			ItemID:    item.ID,
			CounterID: item.CounterID,
			Name:      item.Name,
			UnitPrice: item.Price,
			Quantity:  item.Quantity,
		})
	}

	result, err := h.checkout.Checkout(r.Context(), appcheckout.Input{
		Cashier:       req.Cashier,
		PaymentMethod: req.PaymentMethod,
		Lines:         lines,
	})
	if err != nil {
		if errors.Is(err, appcheckout.ErrValidation) {
			writeMessage(w, http.StatusBadRequest, msgInvalidData)
			return
		}
		writeMessage(w, http.StatusInternalServerError, msgServerError)
		return
	}
	if result.Rejected() {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"message": msgStockFailure,
			"reasons": result.Reasons,
		})
		return
	}

	writeJSON(w, http.StatusCreated, createOrderResponse{
		Message:     msgCreated,
		OrderID:     result.Order.ID,
		Status:      result.Order.Status,
		TotalAmount: result.Order.TotalAmount,
	})
}

type orderLineResponse struct {
	CounterID string `json:"counterId"`
	Food      string `json:"food"`
	Quantity  int    `json:"quantity"`
	Amount    int64  `json:"amount"`
}

type orderResponse struct {
	ID            string              `json:"id"`
	Cashier       string              `json:"cashier"`
	PaymentMethod string              `json:"paymentMethod"`
	Lines         []orderLineResponse `json:"lines"`
	TotalAmount   int64               `json:"totalAmount"`
	Status        domorder.Status     `json:"status"`
	Time          string              `json:"time"`
}

func (h *Handler) handleListOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.orders.List(r.Context())
	if err != nil {
		writeMessage(w, http.StatusInternalServerError, msgServerError)
		return
	}

	out := make([]orderResponse, 0, len(orders))
	for _, o := range orders {
		out = append(out, toOrderResponse(o))
	}
	writeJSON(w, http.StatusOK, map[string]any{"orders": out})
}

func (h *Handler) handleConfirmPayment(w http.ResponseWriter, r *http.Request) {
	orderID := r.PathValue("id")
	err := h.orders.ConfirmPayment(r.Context(), orderID)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, map[string]any{
			"orderId": orderID,
			"status":  domorder.StatusCompleted,
		})
	case errors.Is(err, domorder.ErrNotFound):
		writeMessage(w, http.StatusNotFound, "order not found")
	case errors.Is(err, domorder.ErrAlreadyCompleted):
		writeMessage(w, http.StatusConflict, "order already completed")
	default:
		writeMessage(w, http.StatusInternalServerError, msgServerError)
	}
}

type setStockRequest struct {
	Stock int `json:"stock"`
}

func (h *Handler) handleSetStock(w http.ResponseWriter, r *http.Request) {
	counterID := r.PathValue("id")
	var req setStockRequest
	if err := decodeJSON(r, &req); err != nil {
		writeMessage(w, http.StatusBadRequest, msgInvalidData)
		return
	}
	if err := h.stock.SetStock(r.Context(), counterID, req.Stock); err != nil {
		if errors.Is(err, domstock.ErrInvalidStock) {
			writeMessage(w, http.StatusBadRequest, msgInvalidData)
			return
		}
		writeMessage(w, http.StatusInternalServerError, msgServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"counterId": counterID,
		"stock":     req.Stock,
	})
}

func (h *Handler) handleGetStock(w http.ResponseWriter, r *http.Request) {
	counterID := r.PathValue("id")
	value, err := h.stock.GetStock(r.Context(), counterID)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, map[string]any{
			"counterId": counterID,
			"stock":     value,
		})
	case errors.Is(err, domstock.ErrCounterMissing):
		writeMessage(w, http.StatusNotFound, "counter not found")
	default:
		writeMessage(w, http.StatusInternalServerError, msgServerError)
	}
}

func (h *Handler) handleStats(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.stats.Snapshot())
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func toOrderResponse(o *domorder.Order) orderResponse {
	lines := make([]orderLineResponse, 0, len(o.Lines))
	for _, l := range o.Lines {
		lines = append(lines, orderLineResponse{
			CounterID: l.CounterID,
			Food:      l.Food,
			Quantity:  l.Quantity,
			Amount:    l.Amount,
		})
	}
	return orderResponse{
		ID:            o.ID,
		Cashier:       o.Cashier,
		PaymentMethod: o.PaymentMethod,
		Lines:         lines,
		TotalAmount:   o.TotalAmount,
		Status:        o.Status,
		Time:          o.Time.Format("2006-01-02T15:04:05Z07:00"),
	}
}

func decodeJSON(r *http.Request, dst any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(dst)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"message": msg})
}

type routeKey struct{}

// contextWithRoute stores the stable route template in the context so downstream
// metrics/logging can rely on low-cardinality values.
func contextWithRoute(ctx context.Context, route string) context.Context {
	if route == "" {
		return ctx
	}
	return context.WithValue(ctx, routeKey{}, route)
}

func routeFromContext(ctx context.Context) string {
	if ctx == nil {
		return "unknown"
	}
	if route, ok := ctx.Value(routeKey{}).(string); ok && route != "" {
		return route
	}
	return "unknown"
}
