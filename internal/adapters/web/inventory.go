package web

import (
	"net/http"

	"github.com/shopspring/decimal"

	"restaurant-backoffice/internal/app"
)

// apiListInventory handles GET /api/inventory?view=all|critical|low.
func (h *Handler) apiListInventory(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.ListInventory(r.Context(), r.URL.Query().Get("view"))
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, result)
}

// apiCreateInventoryRecord handles POST /api/inventory.
func (h *Handler) apiCreateInventoryRecord(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ArticleID       int             `json:"article_id"`
		Quantity        int             `json:"quantity"`
		QuantityMinimum int             `json:"quantity_minimum"`
		UnitPrice       decimal.Decimal `json:"unit_price"`
		ShelfID         *int            `json:"shelf_id"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	result, err := h.svc.CreateInventoryRecord(r.Context(), app.CreateInventoryRecordRequest{
		Actor:           actorFromContext(r.Context()),
		ArticleID:       req.ArticleID,
		Quantity:        req.Quantity,
		QuantityMinimum: req.QuantityMinimum,
		UnitPrice:       req.UnitPrice,
		ShelfID:         req.ShelfID,
	})
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSONStatus(w, http.StatusCreated, result)
}

// apiGetInventoryRecord handles GET /api/inventory/{id}.
func (h *Handler) apiGetInventoryRecord(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	result, err := h.svc.GetInventoryRecord(r.Context(), id)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, result)
}

// apiAdjustInventory handles POST /api/inventory/{id}/adjust.
// mode is entry, exit or set; for set, quantity is the new absolute value.
func (h *Handler) apiAdjustInventory(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	var req struct {
		Mode     string `json:"mode"`
		Quantity int    `json:"quantity"`
		Reason   string `json:"reason"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	result, err := h.svc.AdjustInventory(r.Context(), app.AdjustInventoryRequest{
		Actor:    actorFromContext(r.Context()),
		RecordID: id,
		Mode:     req.Mode,
		Quantity: req.Quantity,
		Reason:   req.Reason,
	})
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, result)
}

// apiReconcileInventory handles GET /api/inventory/{id}/reconcile.
func (h *Handler) apiReconcileInventory(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	report, err := h.svc.ReconcileInventory(r.Context(), id)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, report)
}
