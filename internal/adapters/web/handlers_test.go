package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap/zaptest"

	"restaurant-backoffice/internal/app"
	"restaurant-backoffice/internal/core"
)

const testSecret = "test-secret"

// fakeService embeds the interface so unstubbed methods panic (and the
// Recoverer turns that into a 500).
type fakeService struct {
	app.ApplicationService

	gotTransition app.TransitionOrderRequest
	gotCreate     app.CreateOrderRequest
	gotInvoice    app.GenerateInvoiceRequest
	gotInventory  app.CreateInventoryRecordRequest
	err           error
}

func (f *fakeService) CreateOrder(_ context.Context, req app.CreateOrderRequest) (*app.OrderResult, error) {
	f.gotCreate = req
	if f.err != nil {
		return nil, f.err
	}
	return &app.OrderResult{Order: &core.Order{ID: 7, Status: core.OrderPending}}, nil
}

func (f *fakeService) TransitionOrder(_ context.Context, req app.TransitionOrderRequest) (*app.OrderResult, error) {
	f.gotTransition = req
	if f.err != nil {
		return nil, f.err
	}
	return &app.OrderResult{Order: &core.Order{ID: req.OrderID, Status: core.OrderInPreparation}}, nil
}

func (f *fakeService) GetOrder(_ context.Context, id int) (*app.OrderResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &app.OrderResult{Order: &core.Order{ID: id}}, nil
}

func (f *fakeService) GenerateInvoice(_ context.Context, req app.GenerateInvoiceRequest) (*app.InvoiceResult, error) {
	f.gotInvoice = req
	if f.err != nil {
		return nil, f.err
	}
	return &app.InvoiceResult{Invoice: &core.Invoice{ID: 1, OrderID: req.OrderID}}, nil
}

func (f *fakeService) CreateInventoryRecord(_ context.Context, req app.CreateInventoryRecordRequest) (*app.InventoryRecordResult, error) {
	f.gotInventory = req
	return &app.InventoryRecordResult{Record: &core.InventoryRecord{ID: 3}}, nil
}

func signToken(t *testing.T, secret string, userID int, expiresIn time.Duration) string {
	t.Helper()
	claims := &jwtClaims{
		UserID: userID,
		Role:   "cashier",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(expiresIn)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func newTestHandler(t *testing.T, svc *fakeService) http.Handler {
	t.Helper()
	return NewHandler(svc, []string{"http://localhost:3000"}, testSecret, zaptest.NewLogger(t))
}

func doRequest(t *testing.T, h http.Handler, method, path, body, token string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorResponse {
	t.Helper()
	var resp errorResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode error body: %v (body=%q)", err, rec.Body.String())
	}
	return resp
}

func TestHealth_IsPublic(t *testing.T) {
	h := newTestHandler(t, &fakeService{})
	rec := doRequest(t, h, http.MethodGet, "/api/health", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("expected X-Request-ID header to be set")
	}
}

func TestRequireActor(t *testing.T) {
	h := newTestHandler(t, &fakeService{})

	tests := []struct {
		name  string
		token string
		want  int
	}{
		{"missing", "", http.StatusUnauthorized},
		{"wrong secret", signToken(t, "other", 5, time.Hour), http.StatusUnauthorized},
		{"expired", signToken(t, testSecret, 5, -time.Minute), http.StatusUnauthorized},
		{"no user", signToken(t, testSecret, 0, time.Hour), http.StatusUnauthorized},
		{"valid", signToken(t, testSecret, 5, time.Hour), http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doRequest(t, h, http.MethodGet, "/api/auth/me", "", tt.token)
			if rec.Code != tt.want {
				t.Errorf("expected %d, got %d (%s)", tt.want, rec.Code, rec.Body.String())
			}
		})
	}
}

func TestRequireActor_AcceptsCookie(t *testing.T) {
	h := newTestHandler(t, &fakeService{})
	req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	req.AddCookie(&http.Cookie{Name: "auth_token", Value: signToken(t, testSecret, 8, time.Hour)})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var me struct {
		UserID int `json:"user_id"`
	}
	_ = json.NewDecoder(rec.Body).Decode(&me)
	if me.UserID != 8 {
		t.Errorf("expected user 8, got %d", me.UserID)
	}
}

func TestTransitionOrder_PassesActorFromToken(t *testing.T) {
	svc := &fakeService{}
	h := newTestHandler(t, svc)

	rec := doRequest(t, h, http.MethodPost, "/api/orders/12/transition",
		`{"status":"in_preparation","comment":"kitchen started"}`, signToken(t, testSecret, 42, time.Hour))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}
	got := svc.gotTransition
	if got.OrderID != 12 || got.Status != "in_preparation" || got.Comment != "kitchen started" || got.Actor.UserID != 42 {
		t.Errorf("unexpected request passed to service: %+v", got)
	}
}

func TestCreateOrder_Returns201(t *testing.T) {
	svc := &fakeService{}
	h := newTestHandler(t, svc)

	body := `{"customer_id":1,"delivery_type_id":2,"lines":[{"menu_item_id":3,"quantity":2}]}`
	rec := doRequest(t, h, http.MethodPost, "/api/orders", body, signToken(t, testSecret, 1, time.Hour))
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d (%s)", rec.Code, rec.Body.String())
	}
	if len(svc.gotCreate.Lines) != 1 || svc.gotCreate.Lines[0].MenuItemID != 3 || svc.gotCreate.Lines[0].Quantity != 2 {
		t.Errorf("lines not decoded: %+v", svc.gotCreate.Lines)
	}
}

func TestGenerateInvoice_EmptyBodyDefaultsCustomer(t *testing.T) {
	svc := &fakeService{}
	h := newTestHandler(t, svc)

	rec := doRequest(t, h, http.MethodPost, "/api/orders/4/invoice", "", signToken(t, testSecret, 1, time.Hour))
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d (%s)", rec.Code, rec.Body.String())
	}
	if svc.gotInvoice.OrderID != 4 || svc.gotInvoice.CustomerID != 0 {
		t.Errorf("unexpected invoice request: %+v", svc.gotInvoice)
	}
}

func TestCreateInventoryRecord_DecodesPrice(t *testing.T) {
	svc := &fakeService{}
	h := newTestHandler(t, svc)

	body := `{"article_id":1,"quantity":10,"quantity_minimum":2,"unit_price":"12.50","shelf_id":1}`
	rec := doRequest(t, h, http.MethodPost, "/api/inventory", body, signToken(t, testSecret, 1, time.Hour))
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d (%s)", rec.Code, rec.Body.String())
	}
	if !svc.gotInventory.UnitPrice.Equal(decimal.RequireFromString("12.50")) {
		t.Errorf("unit price = %s", svc.gotInventory.UnitPrice)
	}
	if svc.gotInventory.ShelfID == nil || *svc.gotInventory.ShelfID != 1 {
		t.Errorf("shelf id not decoded: %v", svc.gotInventory.ShelfID)
	}
}

func TestDomainErrorMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
		code string
	}{
		{"validation", &core.ValidationError{Field: "comment", Reason: "required"}, http.StatusBadRequest, "VALIDATION_FAILED"},
		{"not found", &core.NotFoundError{Entity: "order", ID: 9}, http.StatusNotFound, "NOT_FOUND"},
		{"transition", &core.InvalidTransitionError{Entity: "order", ID: 9, From: "DELIVERED", To: "PENDING"}, http.StatusConflict, "INVALID_TRANSITION"},
		{"stock", &core.InsufficientStockError{RecordID: 1, Available: 2, Requested: 5}, http.StatusUnprocessableEntity, "INSUFFICIENT_STOCK"},
		{"transaction", &core.TransactionError{Op: "order status transition", Err: errors.New("conn reset")}, http.StatusInternalServerError, "INTERNAL_ERROR"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestHandler(t, &fakeService{err: tt.err})
			rec := doRequest(t, h, http.MethodPost, "/api/orders/9/transition",
				`{"status":"ready","comment":"x"}`, signToken(t, testSecret, 1, time.Hour))
			if rec.Code != tt.want {
				t.Fatalf("expected %d, got %d", tt.want, rec.Code)
			}
			resp := decodeError(t, rec)
			if resp.Code != tt.code {
				t.Errorf("expected code %s, got %s", tt.code, resp.Code)
			}
			if resp.RequestID == "" {
				t.Error("expected request_id in error body")
			}
			if tt.want == http.StatusInternalServerError && strings.Contains(resp.Error, "conn reset") {
				t.Errorf("internal detail leaked: %q", resp.Error)
			}
		})
	}
}

func TestBadRequests(t *testing.T) {
	h := newTestHandler(t, &fakeService{})
	token := signToken(t, testSecret, 1, time.Hour)

	rec := doRequest(t, h, http.MethodGet, "/api/orders/abc", "", token)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("non-numeric id: expected 400, got %d", rec.Code)
	}

	rec = doRequest(t, h, http.MethodPost, "/api/orders/1/transition", `{"status":`, token)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("malformed JSON: expected 400, got %d", rec.Code)
	}

	big := `{"comment":"` + strings.Repeat("x", 2<<20) + `"}`
	rec = doRequest(t, h, http.MethodPost, "/api/orders/1/cancel", big, token)
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("oversized body: expected 413, got %d", rec.Code)
	}
}

func TestRecoverer_UnstubbedMethodReturns500(t *testing.T) {
	h := newTestHandler(t, &fakeService{})
	rec := doRequest(t, h, http.MethodGet, "/api/invoices", "", signToken(t, testSecret, 1, time.Hour))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 from recovered panic, got %d", rec.Code)
	}
}

func TestCORS(t *testing.T) {
	h := newTestHandler(t, &fakeService{})

	req := httptest.NewRequest(http.MethodOptions, "/api/orders", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Errorf("preflight: expected 204, got %d", rec.Code)
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "http://localhost:3000" {
		t.Error("expected allowed origin to be echoed")
	}

	req = httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.Header.Set("Origin", "http://evil.example")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Header().Get("Access-Control-Allow-Origin") != "" {
		t.Error("unlisted origin must not get CORS headers")
	}
}
