package hub

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"safe-gateway-lite/internal/model"
	"safe-gateway-lite/internal/txengine"
)

type testWriter struct {
	mu     sync.Mutex
	writes [][]byte
	fail   bool
	closed bool
	block  chan struct{}
}

func (w *testWriter) Write(message []byte) error {
	if w.block != nil {
		<-w.block
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.writes = append(w.writes, message)
	if w.fail {
		return errTest
	}
	return nil
}

func (w *testWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closed = true
	return nil
}

func (w *testWriter) count() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.writes)
}

func (w *testWriter) isClosed() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.closed
}

var errTest = &testErr{}

type testErr struct{}

func (*testErr) Error() string { return "test" }

func eventually(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out: %s", msg)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestHub_RegisterBroadcastUnregister(t *testing.T) {
	h := New(nil)
	w1 := &testWriter{}
	c1 := &Connection{Topic: "t", Writer: w1}

	h.Register(c1)
	h.Broadcast("t", []byte("x"))
	eventually(t, func() bool { return w1.count() == 1 }, "first write")

	h.Unregister(c1)
	h.Unregister(c1)
	h.Broadcast("t", []byte("x"))
	time.Sleep(20 * time.Millisecond)
	if w1.count() != 1 {
		t.Fatalf("expected no more writes, got %d", w1.count())
	}
	if n := h.Subscribers("t"); n != 0 {
		t.Fatalf("expected no subscribers, got %d", n)
	}
}

func TestHub_RemovesFailedConnections(t *testing.T) {
	h := New(nil)
	w1 := &testWriter{fail: true}
	c1 := &Connection{Topic: "t", Writer: w1}
	h.Register(c1)

	h.Broadcast("t", []byte("x"))
	eventually(t, func() bool { return h.Subscribers("t") == 0 }, "failed connection removed")
	if !w1.isClosed() {
		t.Fatalf("expected the writer to be closed")
	}

	h.Broadcast("t", []byte("x"))
	time.Sleep(20 * time.Millisecond)
	if w1.count() != 1 {
		t.Fatalf("expected only 1 write before removal, got %d", w1.count())
	}
}

func TestHub_SlowSubscriberDoesNotBlockBroadcast(t *testing.T) {
	h := New(nil)
	slow := &testWriter{block: make(chan struct{})}
	defer close(slow.block)
	h.Register(&Connection{Topic: "t", Writer: slow})

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < sendBuffer+2; i++ {
			h.Broadcast("t", []byte("x"))
		}
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("Broadcast blocked on a stalled subscriber")
	}

	if !slow.isClosed() {
		t.Fatalf("expected the stalled subscriber to be dropped")
	}
	if n := h.Subscribers("t"); n != 0 {
		t.Fatalf("expected no subscribers left, got %d", n)
	}
}

func TestHub_PublishRoutesBySafe(t *testing.T) {
	h := New(nil)
	mine, other := &testWriter{}, &testWriter{}
	const safe = "0x000000000000000000000000000000000000dEaD"
	h.Register(&Connection{Topic: Topic("1", safe), Writer: mine})
	h.Register(&Connection{Topic: Topic("5", safe), Writer: other})

	h.Publish(txengine.Event{Type: txengine.EventProposed, ChainID: "1", Safe: safe, SafeTxHash: "0xabc", Status: model.TxStatusProposed})

	eventually(t, func() bool { return mine.count() == 1 }, "event delivered on chain 1")
	time.Sleep(20 * time.Millisecond)
	if other.count() != 0 {
		t.Fatalf("expected no event on chain 5, got %d", other.count())
	}
	mine.mu.Lock()
	raw := mine.writes[0]
	mine.mu.Unlock()
	var ev txengine.Event
	if err := json.Unmarshal(raw, &ev); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if ev.Type != txengine.EventProposed || ev.SafeTxHash != "0xabc" {
		t.Fatalf("unexpected event %+v", ev)
	}
}
