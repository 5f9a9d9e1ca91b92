package web

import (
	"net/http"

	"restaurant-backoffice/internal/app"
)

// apiListOrders handles GET /api/orders?status=&customer_id=.
func (h *Handler) apiListOrders(w http.ResponseWriter, r *http.Request) {
	customerID, err := queryInt(r, "customer_id")
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	result, err := h.svc.ListOrders(r.Context(), r.URL.Query().Get("status"), customerID)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, result)
}

// apiListPendingInvoice handles GET /api/orders/pending-invoice.
func (h *Handler) apiListPendingInvoice(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.ListOrdersPendingInvoice(r.Context())
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, result)
}

// apiCreateOrder handles POST /api/orders.
func (h *Handler) apiCreateOrder(w http.ResponseWriter, r *http.Request) {
	var req struct {
		CustomerID     int                  `json:"customer_id"`
		DeliveryTypeID int                  `json:"delivery_type_id"`
		Lines          []app.OrderLineInput `json:"lines"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	result, err := h.svc.CreateOrder(r.Context(), app.CreateOrderRequest{
		Actor:          actorFromContext(r.Context()),
		CustomerID:     req.CustomerID,
		DeliveryTypeID: req.DeliveryTypeID,
		Lines:          req.Lines,
	})
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSONStatus(w, http.StatusCreated, result)
}

// apiGetOrder handles GET /api/orders/{id}.
func (h *Handler) apiGetOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	result, err := h.svc.GetOrder(r.Context(), id)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, result)
}

// apiAddOrderLines handles POST /api/orders/{id}/lines.
func (h *Handler) apiAddOrderLines(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	var req struct {
		Lines []app.OrderLineInput `json:"lines"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	result, err := h.svc.AddOrderLines(r.Context(), app.AddOrderLinesRequest{
		Actor:   actorFromContext(r.Context()),
		OrderID: id,
		Lines:   req.Lines,
	})
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, result)
}

// apiTransitionOrder handles POST /api/orders/{id}/transition.
func (h *Handler) apiTransitionOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	var req struct {
		Status  string `json:"status"`
		Comment string `json:"comment"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	result, err := h.svc.TransitionOrder(r.Context(), app.TransitionOrderRequest{
		Actor:   actorFromContext(r.Context()),
		OrderID: id,
		Status:  req.Status,
		Comment: req.Comment,
	})
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, result)
}

// apiCancelOrder handles POST /api/orders/{id}/cancel.
func (h *Handler) apiCancelOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	var req struct {
		Comment string `json:"comment"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	result, err := h.svc.CancelOrder(r.Context(), app.CancelOrderRequest{
		Actor:   actorFromContext(r.Context()),
		OrderID: id,
		Comment: req.Comment,
	})
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, result)
}
