package web

import (
	"net/http"

	"restaurant-backoffice/internal/app"
)

// apiGenerateInvoice handles POST /api/orders/{id}/invoice. The body is
// optional; customer_id defaults to the order's customer.
func (h *Handler) apiGenerateInvoice(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	var req struct {
		CustomerID int `json:"customer_id"`
	}
	if !decodeOptionalJSON(w, r, &req) {
		return
	}

	result, err := h.svc.GenerateInvoice(r.Context(), app.GenerateInvoiceRequest{
		Actor:      actorFromContext(r.Context()),
		OrderID:    id,
		CustomerID: req.CustomerID,
	})
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSONStatus(w, http.StatusCreated, result)
}

// apiListInvoices handles GET /api/invoices?status=.
func (h *Handler) apiListInvoices(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.ListInvoices(r.Context(), r.URL.Query().Get("status"))
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, result)
}

// apiGetInvoice handles GET /api/invoices/{id}.
func (h *Handler) apiGetInvoice(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	result, err := h.svc.GetInvoice(r.Context(), id)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, result)
}

// apiVoidInvoice handles POST /api/invoices/{id}/void.
func (h *Handler) apiVoidInvoice(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	result, err := h.svc.VoidInvoice(r.Context(), app.VoidInvoiceRequest{
		Actor:     actorFromContext(r.Context()),
		InvoiceID: id,
	})
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, result)
}
