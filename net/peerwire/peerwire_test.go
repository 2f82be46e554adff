package peerwire

import (
	"context"
	"fmt"
	"net"
	"sync"
	"testing"
	"time"
)

type recordingHandler struct {
	mu           sync.Mutex
	connected    []*Peer
	disconnected []*Peer
	messages     []string
}

func (h *recordingHandler) PeerConnected(p *Peer) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.connected = append(h.connected, p)
}

func (h *recordingHandler) PeerMessage(p *Peer, raw []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.messages = append(h.messages, string(raw))
}

func (h *recordingHandler) PeerDisconnected(p *Peer) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.disconnected = append(h.disconnected, p)
}

func (h *recordingHandler) waitMessages(t *testing.T, n int) []string {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		h.mu.Lock()
		if len(h.messages) >= n {
			out := append([]string(nil), h.messages...)
			h.mu.Unlock()
			return out
		}
		h.mu.Unlock()
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %d messages", n)
	return nil
}

func startServer(t *testing.T, id string, h Handler) (*Server, string) {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	srv := NewServer(l, id, 1<<20, h)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go srv.Serve(ctx)
	return srv, l.Addr().String()
}

func TestHandshakeExchangesIDs(t *testing.T) {
	serverH := &recordingHandler{}
	clientH := &recordingHandler{}

	_, addr := startServer(t, "server-id-000000000000000000000", serverH)

	p, err := Dial(addr, "client-id-000000000000000000000", 1<<20, clientH)
	if err != nil {
		t.Fatal(err)
	}
	defer p.Close()

	if p.ID() != "server-id-000000000000000000000" {
		t.Fatalf("dialer sees peer id %q", p.ID())
	}
	if p.Inbound() {
		t.Fatal("dialed peer reported as inbound")
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		serverH.mu.Lock()
		n := len(serverH.connected)
		serverH.mu.Unlock()
		if n == 1 {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}

	serverH.mu.Lock()
	defer serverH.mu.Unlock()
	if len(serverH.connected) != 1 {
		t.Fatal("server never saw the connection")
	}
	if got := serverH.connected[0].ID(); got != "client-id-000000000000000000000" {
		t.Fatalf("server sees peer id %q", got)
	}
	if !serverH.connected[0].Inbound() {
		t.Fatal("accepted peer not reported as inbound")
	}
}

func TestMessagesArriveInOrder(t *testing.T) {
	serverH := &recordingHandler{}
	clientH := &recordingHandler{}

	_, addr := startServer(t, "srv", serverH)

	p, err := Dial(addr, "cli", 1<<20, clientH)
	if err != nil {
		t.Fatal(err)
	}
	defer p.Close()

	for i := 0; i < 5; i++ {
		if err := p.Send(map[string]any{"type": "catalog", "seq": i}); err != nil {
			t.Fatal(err)
		}
	}

	msgs := serverH.waitMessages(t, 5)
	for i, m := range msgs {
		want := fmt.Sprintf(`{"seq":%d,"type":"catalog"}`, i)
		if m != want {
			t.Fatalf("message %d = %s, want %s", i, m, want)
		}
	}
}

func TestDisconnectDelivered(t *testing.T) {
	serverH := &recordingHandler{}
	clientH := &recordingHandler{}

	_, addr := startServer(t, "srv", serverH)

	p, err := Dial(addr, "cli", 1<<20, clientH)
	if err != nil {
		t.Fatal(err)
	}
	p.Close()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		serverH.mu.Lock()
		n := len(serverH.disconnected)
		serverH.mu.Unlock()
		if n == 1 {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("server never observed the disconnect")
}
