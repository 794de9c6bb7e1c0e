package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/IBM/sarama/mocks"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap/zaptest"

	"shopledger/internal/domain"
)

type recorder struct {
	events []domain.LedgerEvent
	err    error
}

func (r *recorder) Notify(_ context.Context, event domain.LedgerEvent) error {
	r.events = append(r.events, event)
	return r.err
}

func TestFanoutDeliversToAllAndJoinsErrors(t *testing.T) {
	ok := &recorder{}
	failing := &recorder{err: errors.New("broker down")}
	fan := Fanout{ok, nil, failing}

	err := fan.Notify(context.Background(), domain.LedgerEvent{Type: domain.EventProductAdded})
	if err == nil || !strings.Contains(err.Error(), "broker down") {
		t.Fatalf("expected joined error, got %v", err)
	}
	if len(ok.events) != 1 || len(failing.events) != 1 {
		t.Fatalf("expected every target to receive the event")
	}
}

func TestMetricsCountsEventsAndRevenue(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	ctx := context.Background()

	_ = m.Notify(ctx, domain.LedgerEvent{Type: domain.EventSaleRegistered, Revenue: 40})
	_ = m.Notify(ctx, domain.LedgerEvent{Type: domain.EventSaleRegistered, Revenue: 10})
	_ = m.Notify(ctx, domain.LedgerEvent{Type: domain.EventProductAdded})

	if got := testutil.ToFloat64(m.events.WithLabelValues(domain.EventSaleRegistered)); got != 2 {
		t.Fatalf("expected 2 sale events, got %v", got)
	}
	if got := testutil.ToFloat64(m.revenue); got != 50 {
		t.Fatalf("expected revenue 50, got %v", got)
	}
}

func TestKafkaPublisherSendsJSON(t *testing.T) {
	producer := mocks.NewSyncProducer(t, nil)
	producer.ExpectSendMessageWithCheckerFunctionAndSucceed(func(val []byte) error {
		var event domain.LedgerEvent
		if err := json.Unmarshal(val, &event); err != nil {
			return err
		}
		if event.Type != domain.EventSaleRegistered || event.EntityID != "sale-1" {
			return fmt.Errorf("unexpected event %+v", event)
		}
		return nil
	})
	producer.ExpectSendMessageAndFail(errors.New("leader not available"))

	pub := NewKafkaPublisherWithProducer(producer, "ledger.events")
	ctx := context.Background()
	if err := pub.Notify(ctx, domain.LedgerEvent{Type: domain.EventSaleRegistered, EntityID: "sale-1"}); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if err := pub.Notify(ctx, domain.LedgerEvent{Type: domain.EventSalesCleared}); err == nil {
		t.Fatalf("expected publish failure to surface")
	}
	if err := pub.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
}

func TestHubBroadcastsToClients(t *testing.T) {
	hub := NewHub("*", zaptest.NewLogger(t))
	server := httptest.NewServer(hub)
	t.Cleanup(server.Close)

	url := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })

	deadline := time.Now().Add(2 * time.Second)
	for hub.Clients() == 0 {
		if time.Now().After(deadline) {
			t.Fatalf("client never registered")
		}
		time.Sleep(10 * time.Millisecond)
	}

	if err := hub.Notify(context.Background(), domain.LedgerEvent{Type: domain.EventItemAdded, EntityID: "item-1"}); err != nil {
		t.Fatalf("notify: %v", err)
	}

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var event domain.LedgerEvent
	if err := conn.ReadJSON(&event); err != nil {
		t.Fatalf("read: %v", err)
	}
	if event.Type != domain.EventItemAdded || event.EntityID != "item-1" {
		t.Fatalf("unexpected event %+v", event)
	}

	_ = hub.Close()
	if hub.Clients() != 0 {
		t.Fatalf("expected hub to drop clients on close")
	}
}
