package monitoring

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

func TestMetricsCollectorSnapshot(t *testing.T) {
	mc := NewMetricsCollector()
	mc.RecordPrediction(2*time.Millisecond, false, nil)
	mc.RecordPrediction(4*time.Millisecond, true, nil)
	mc.RecordPrediction(6*time.Millisecond, false, errors.New("boom"))
	mc.RecordReload()

	snap := mc.Snapshot()
	if snap.Counters[MetricPredictions] != 3 {
		t.Fatalf("expected 3 predictions, got %d", snap.Counters[MetricPredictions])
	}
	if snap.Counters[MetricPredictionFailure] != 1 || snap.Counters[MetricCacheHits] != 1 || snap.Counters[MetricArtifactReloads] != 1 {
		t.Fatalf("unexpected counters: %+v", snap.Counters)
	}
	if snap.Latency.MinMS != 2 || snap.Latency.MaxMS != 6 || snap.Latency.AvgMS != 4 {
		t.Fatalf("unexpected latency: %+v", snap.Latency)
	}
}

func TestMetricsCollectorHandler(t *testing.T) {
	mc := NewMetricsCollector()
	mc.RecordPrediction(time.Millisecond, false, nil)

	srv := httptest.NewServer(mc.Handler())
	defer srv.Close()
	resp, err := srv.Client().Get(srv.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), `pricepred_predictions_total{outcome="success"} 1`) {
		t.Fatalf("expected prediction counter in exposition, got:\n%s", body)
	}
}

func TestHubBroadcastsPredictions(t *testing.T) {
	hub := NewHub(zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)
	defer func() {
		cancel()
		<-hub.Done()
	}()

	srv := httptest.NewServer(hub)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for hub.ClientCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if hub.ClientCount() != 1 {
		t.Fatalf("expected 1 client, got %d", hub.ClientCount())
	}

	if err := hub.PublishPrediction(PredictionMessage{City: "Seattle", Price: 123}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, payload, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	var msg Message
	if err := json.Unmarshal(payload, &msg); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if msg.Type != PredictionEvent {
		t.Fatalf("unexpected message type %s", msg.Type)
	}
	var data PredictionMessage
	if err := json.Unmarshal(msg.Data, &data); err != nil {
		t.Fatalf("invalid payload: %v", err)
	}
	if data.City != "Seattle" || data.Price != 123 {
		t.Fatalf("unexpected payload %+v", data)
	}
}

func TestHubDropsSlowClient(t *testing.T) {
	hub := NewHub(zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)
	defer func() {
		cancel()
		<-hub.Done()
	}()

	// nobody drains send, as with a client whose writes stall
	slow := &client{send: make(chan []byte, 64), id: "slow"}
	hub.register <- slow
	deadline := time.Now().Add(2 * time.Second)
	for hub.ClientCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if hub.ClientCount() != 1 {
		t.Fatalf("expected 1 client, got %d", hub.ClientCount())
	}

	deadline = time.Now().Add(5 * time.Second)
	for hub.ClientCount() != 0 && time.Now().Before(deadline) {
		if err := hub.PublishPrediction(PredictionMessage{City: "Seattle", Price: 1}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		time.Sleep(time.Millisecond)
	}
	if hub.ClientCount() != 0 {
		t.Fatal("expected slow client to be dropped")
	}

	drained := 0
	for range slow.send {
		drained++
	}
	if drained != cap(slow.send) {
		t.Fatalf("expected %d buffered messages before the drop, got %d", cap(slow.send), drained)
	}
}
