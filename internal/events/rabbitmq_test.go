package events

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap/zaptest"

	"restaurant-backoffice/internal/core"
)

func TestEncode(t *testing.T) {
	at := time.Date(2026, 3, 1, 12, 30, 0, 0, time.UTC)
	msg, err := encode(core.Event{
		Type:       core.EventOrderStatusChanged,
		OccurredAt: at,
		Payload:    core.OrderStatusChanged{OrderID: 5, From: core.OrderReady, To: core.OrderDelivered, Comment: "handed over"},
	})
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}

	if msg.DeliveryMode != amqp.Persistent {
		t.Errorf("DeliveryMode = %d, want persistent", msg.DeliveryMode)
	}
	if msg.ContentType != "application/json" || msg.Type != core.EventOrderStatusChanged {
		t.Errorf("unexpected headers: content-type=%q type=%q", msg.ContentType, msg.Type)
	}
	if !msg.Timestamp.Equal(at) {
		t.Errorf("Timestamp = %v, want %v", msg.Timestamp, at)
	}

	var decoded struct {
		Type    string `json:"type"`
		Payload struct {
			OrderID int    `json:"order_id"`
			From    string `json:"from"`
			To      string `json:"to"`
		} `json:"payload"`
	}
	if err := json.Unmarshal(msg.Body, &decoded); err != nil {
		t.Fatalf("body is not JSON: %v", err)
	}
	if decoded.Type != "order.status_changed" || decoded.Payload.OrderID != 5 ||
		decoded.Payload.From != "READY" || decoded.Payload.To != "DELIVERED" {
		t.Errorf("unexpected body: %s", msg.Body)
	}
}

func TestEncode_RejectsUnserialisablePayload(t *testing.T) {
	if _, err := encode(core.Event{Type: "x", Payload: make(chan int)}); err == nil {
		t.Fatal("expected an error for a channel payload")
	}
}

func TestEncode_DefaultsTimestamp(t *testing.T) {
	msg, err := encode(core.Event{Type: core.EventInvoiceVoided, Payload: map[string]int{"invoice_id": 1}})
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	if msg.Timestamp.IsZero() {
		t.Error("expected a timestamp when OccurredAt is zero")
	}
}

// silentBroker accepts TCP connections and never answers the AMQP handshake.
func silentBroker(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	var conns []net.Conn
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			c, err := ln.Accept()
			if err != nil {
				return
			}
			conns = append(conns, c)
		}
	}()
	t.Cleanup(func() {
		ln.Close()
		<-done
		for _, c := range conns {
			c.Close()
		}
	})
	return "amqp://guest:guest@" + ln.Addr().String() + "/"
}

func TestPublish_UnresponsiveBrokerIsBounded(t *testing.T) {
	r := newRabbitMQ(silentBroker(t), zaptest.NewLogger(t))
	r.dialTimeout = 200 * time.Millisecond
	r.backoff = time.Minute

	event := core.Event{Type: core.EventOrderCreated, Payload: map[string]int{"order_id": 1}}

	start := time.Now()
	if err := r.Publish(context.Background(), event); err == nil {
		t.Fatal("expected publish to fail against a silent broker")
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("publish took %s, want it bounded by the dial timeout", elapsed)
	}

	// Within the backoff window no dial is attempted.
	start = time.Now()
	err := r.Publish(context.Background(), event)
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable during backoff, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > 50*time.Millisecond {
		t.Errorf("publish during backoff took %s, want immediate failure", elapsed)
	}
}

func TestPublish_ContextDeadlineBoundsDial(t *testing.T) {
	r := newRabbitMQ(silentBroker(t), zaptest.NewLogger(t))
	r.dialTimeout = time.Minute

	ctx, cancel := context.WithTimeout(context.Background(), 150*time.Millisecond)
	defer cancel()

	start := time.Now()
	if err := r.Publish(ctx, core.Event{Type: core.EventOrderCreated}); err == nil {
		t.Fatal("expected publish to fail against a silent broker")
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("publish took %s, want it bounded by the caller's deadline", elapsed)
	}
}
