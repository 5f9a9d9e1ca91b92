package core

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestTxFailure_PassesDomainErrorsThrough(t *testing.T) {
	domain := []error{
		&ValidationError{Field: "comment", Reason: "is required"},
		&NotFoundError{Entity: "order", ID: 4},
		&InvalidTransitionError{Entity: "order", ID: 4, From: "DELIVERED", To: "READY"},
		&InsufficientStockError{RecordID: 1, Available: 2, Requested: 3},
		fmt.Errorf("wrapped: %w", &NotFoundError{Entity: "menu item", ID: 9}),
	}
	for _, err := range domain {
		if got := txFailure("op", err); got != err {
			t.Errorf("txFailure(%v) = %v, want unchanged", err, got)
		}
	}
}

func TestTxFailure_WrapsDriverErrors(t *testing.T) {
	cause := errors.New("connection reset")
	err := txFailure("invoice generation", fmt.Errorf("failed to insert invoice: %w", cause))

	var te *TransactionError
	if !errors.As(err, &te) {
		t.Fatalf("expected TransactionError, got %T", err)
	}
	if te.Op != "invoice generation" {
		t.Errorf("Op = %q", te.Op)
	}
	if !errors.Is(err, cause) {
		t.Error("TransactionError must unwrap to the driver error")
	}
	if txFailure("op", nil) != nil {
		t.Error("txFailure(nil) must be nil")
	}
}

func TestCheckTransition(t *testing.T) {
	if err := checkTransition(1, OrderReady, OrderDelivered); err != nil {
		t.Fatalf("READY → DELIVERED should be legal: %v", err)
	}

	err := checkTransition(1, OrderDelivered, OrderCancelled)
	var it *InvalidTransitionError
	if !errors.As(err, &it) {
		t.Fatalf("expected InvalidTransitionError, got %v", err)
	}
	if it.From != "DELIVERED" || it.To != "CANCELLED" || it.Reason == "" {
		t.Errorf("unexpected error detail: %+v", it)
	}
}

func TestActorRef(t *testing.T) {
	if actorRef(0) != nil {
		t.Error("actor 0 must map to NULL")
	}
	if got := actorRef(12); got == nil || *got != 12 {
		t.Errorf("actorRef(12) = %v", got)
	}
}

func TestRequireText(t *testing.T) {
	tests := []struct {
		name    string
		value   string
		want    string
		wantErr bool
	}{
		{"trimmed", "  late delivery ", "late delivery", false},
		{"empty", "", "", true},
		{"whitespace only", " \t\n", "", true},
		{"at the limit", strings.Repeat("a", MaxCommentLength), strings.Repeat("a", MaxCommentLength), false},
		{"over the limit", strings.Repeat("a", MaxCommentLength+1), "", true},
		{"limit counts characters not bytes", strings.Repeat("é", MaxCommentLength), strings.Repeat("é", MaxCommentLength), false},
		{"multibyte over the limit", strings.Repeat("é", MaxCommentLength+1), "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := requireText("comment", tt.value, MaxCommentLength)
			if tt.wantErr {
				var ve *ValidationError
				if !errors.As(err, &ve) {
					t.Fatalf("expected ValidationError, got %v", err)
				}
				if ve.Field != "comment" {
					t.Errorf("Field = %q", ve.Field)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}
