package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"safe-gateway-lite/internal/txengine"
)

func TestEvents_PingPongAndProposal(t *testing.T) {
	g := newGateway(t)
	proposer := g.signIn(t, g.owners[0])

	wsURL := "ws" + strings.TrimPrefix(g.srv.URL, "http") +
		"/v1/chains/1/safes/" + g.safe.Hex() + "/events?token=" + proposer.Token()
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	if err := conn.WriteJSON(map[string]any{"type": "ping"}); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}
	var resp map[string]any
	if err := conn.ReadJSON(&resp); err != nil {
		t.Fatalf("ReadJSON: %v", err)
	}
	if resp["type"] != "pong" {
		data, _ := json.Marshal(resp)
		t.Fatalf("expected pong, got %s", string(data))
	}

	in := g.proposal(t, g.owners[0], "0", "ws")
	if _, err := proposer.Propose(context.Background(), g.safe.Hex(), in); err != nil {
		t.Fatalf("Propose: %v", err)
	}

	var ev txengine.Event
	if err := conn.ReadJSON(&ev); err != nil {
		t.Fatalf("ReadJSON: %v", err)
	}
	if ev.Type != txengine.EventProposed || !strings.EqualFold(ev.SafeTxHash, in.SafeTxHash) {
		t.Fatalf("unexpected event %+v", ev)
	}
}

func TestEvents_RequiresSession(t *testing.T) {
	g := newGateway(t)

	wsURL := "ws" + strings.TrimPrefix(g.srv.URL, "http") + "/v1/chains/1/safes/" + g.safe.Hex() + "/events"
	_, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err == nil {
		t.Fatalf("expected dial to fail without a credential")
	}
	if resp == nil || resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %+v", resp)
	}
}
