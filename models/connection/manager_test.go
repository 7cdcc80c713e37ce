package connection

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	cerr "github.com/saeidalz13/battleship-session/internal/error"
)

var dialer = websocket.Dialer{
	HandshakeTimeout: 5 * time.Second,
}

// connPair returns the server side and the client side of one websocket.
func connPair(t *testing.T) (*websocket.Conn, *websocket.Conn) {
	t.Helper()

	serverConns := make(chan *websocket.Conn, 1)
	upgrader := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Error(err)
			return
		}
		serverConns <- conn
	}))
	t.Cleanup(srv.Close)

	client, _, err := dialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { client.Close() })

	select {
	case server := <-serverConns:
		t.Cleanup(func() { server.Close() })
		return server, client
	case <-time.After(5 * time.Second):
		t.Fatal("server side of the connection never arrived")
	}
	return nil, nil
}

func readType(t *testing.T, conn *websocket.Conn) string {
	t.Helper()

	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var signal Signal
	if err := conn.ReadJSON(&signal); err != nil {
		t.Fatal(err)
	}
	return signal.Type
}

func TestSendDeliversToLivePeer(t *testing.T) {
	m := NewManager()
	server, client := connPair(t)
	m.Register("s1", "p1", server)

	msg := NewMessage[RespSessionStatus](TypeNewGameStarted)
	msg.AddPayload(NewRespSessionStatus("waiting_for_boat_placements"))
	if err := m.Send(context.Background(), "s1", "p1", msg); err != nil {
		t.Fatal(err)
	}

	_ = client.SetReadDeadline(time.Now().Add(5 * time.Second))
	var got Message[RespSessionStatus]
	if err := client.ReadJSON(&got); err != nil {
		t.Fatal(err)
	}
	if got.Type != TypeNewGameStarted || got.Payload.Session.Status != "waiting_for_boat_placements" {
		t.Fatalf("unexpected message %+v", got)
	}
}

func TestSendWithoutPeerIsNotAnError(t *testing.T) {
	m := NewManager()
	if err := m.Send(context.Background(), "s1", "nobody", NewSignal(TypeGameUpdate)); err != nil {
		t.Fatalf("want nil, got %v", err)
	}
}

func TestSendToClosedPeerIsTransportError(t *testing.T) {
	m := NewManager(WithWriteTimeout(time.Second))
	server, _ := connPair(t)
	peer := m.Register("s1", "p1", server)
	_ = peer.Conn().Close()

	err := m.Send(context.Background(), "s1", "p1", NewSignal(TypeGameUpdate))
	if !cerr.IsKind(err, cerr.KindTransport) {
		t.Fatalf("want transport error, got %v", err)
	}
}

func TestTimedOutPeerIsDropped(t *testing.T) {
	m := NewManager(
		WithWriteTimeout(-time.Second),
		WithGracePeriod(time.Hour, func(string, string) {}),
	)
	server, _ := connPair(t)
	peer := m.Register("s1", "p1", server)

	err := m.Send(context.Background(), "s1", "p1", NewSignal(TypeGameUpdate))
	if !cerr.IsKind(err, cerr.KindTransport) || ActionOf(err) != LoopAbnormalClosure {
		t.Fatalf("want abnormal transport error, got %v", err)
	}
	select {
	case <-peer.Done():
	default:
		t.Fatal("timed out peer still open")
	}
	if _, ok := m.Peer("s1", "p1"); ok {
		t.Fatal("timed out peer still registered")
	}
	if m.pendingGrace() != 1 {
		t.Fatalf("%d grace timers, want 1", m.pendingGrace())
	}

	start := time.Now()
	if err := m.Send(context.Background(), "s1", "p1", NewSignal(TypeGameUpdate)); err != nil {
		t.Fatalf("push after drop: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 100*time.Millisecond {
		t.Fatalf("push after drop took %s", elapsed)
	}
}

func TestRegisterSupersedesPriorPeer(t *testing.T) {
	m := NewManager()
	firstServer, firstClient := connPair(t)
	secondServer, secondClient := connPair(t)

	first := m.Register("s1", "p1", firstServer)
	second := m.Register("s1", "p1", secondServer)

	select {
	case <-first.Done():
	case <-time.After(time.Second):
		t.Fatal("prior peer was not closed")
	}

	_ = firstClient.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, _, err := firstClient.ReadMessage()
	if !websocket.IsCloseError(err, websocket.ClosePolicyViolation) {
		t.Fatalf("want policy violation close, got %v", err)
	}

	// Unregistering the old peer must not drop the new one.
	if m.Unregister(first, nil) {
		t.Fatal("stale peer reported as live")
	}
	if peer, ok := m.Peer("s1", "p1"); !ok || peer != second {
		t.Fatal("live peer was removed")
	}

	if err := m.Send(context.Background(), "s1", "p1", NewSignal(TypeGameUpdate)); err != nil {
		t.Fatal(err)
	}
	if got := readType(t, secondClient); got != TypeGameUpdate {
		t.Fatalf("want %s, got %s", TypeGameUpdate, got)
	}
}

func TestBroadcastAttemptsEveryPush(t *testing.T) {
	m := NewManager(WithWriteTimeout(time.Second))
	deadServer, _ := connPair(t)
	liveServer, liveClient := connPair(t)

	dead := m.Register("s1", "dead", deadServer)
	_ = dead.Conn().Close()
	m.Register("s1", "live", liveServer)

	err := m.Broadcast(context.Background(), "s1",
		NewPush("dead", NewSignal(TypeGameUpdate)),
		NewPush("live", NewSignal(TypeGameUpdate)),
	)
	if !cerr.IsKind(err, cerr.KindTransport) {
		t.Fatalf("want transport error, got %v", err)
	}
	if got := readType(t, liveClient); got != TypeGameUpdate {
		t.Fatalf("live peer got %s", got)
	}
}

var vanished = newConnErr(LoopAbnormalClosure, errors.New("unexpected EOF"))

func TestGracePeriod(t *testing.T) {
	expired := make(chan string, 1)
	m := NewManager(WithGracePeriod(50*time.Millisecond, func(sessionId, playerId string) {
		expired <- sessionId + "/" + playerId
	}))

	t.Run("expires", func(t *testing.T) {
		server, _ := connPair(t)
		peer := m.Register("s1", "p1", server)
		if !m.Unregister(peer, vanished) {
			t.Fatal("live peer not unregistered")
		}

		select {
		case got := <-expired:
			if got != "s1/p1" {
				t.Fatalf("expired %s", got)
			}
		case <-time.After(2 * time.Second):
			t.Fatal("grace callback never ran")
		}
	})

	t.Run("clean close skips grace", func(t *testing.T) {
		server, _ := connPair(t)
		peer := m.Register("s3", "p1", server)
		closed := newConnErr(LoopBreak, &websocket.CloseError{Code: websocket.CloseNormalClosure})
		if !m.Unregister(peer, closed) {
			t.Fatal("live peer not unregistered")
		}
		if m.pendingGrace() != 0 {
			t.Fatalf("%d timers pending after a clean close", m.pendingGrace())
		}
	})

	t.Run("reconnect cancels", func(t *testing.T) {
		server, _ := connPair(t)
		peer := m.Register("s2", "p1", server)
		m.Unregister(peer, vanished)

		again, _ := connPair(t)
		m.Register("s2", "p1", again)

		select {
		case got := <-expired:
			t.Fatalf("grace expired despite reconnect: %s", got)
		case <-time.After(200 * time.Millisecond):
		}
		if m.pendingGrace() != 0 {
			t.Fatalf("%d timers pending", m.pendingGrace())
		}
	})
}

func TestCloseSession(t *testing.T) {
	m := NewManager()
	a, _ := connPair(t)
	b, _ := connPair(t)
	other, _ := connPair(t)

	pa := m.Register("s1", "a", a)
	m.Register("s1", "b", b)
	m.Register("s2", "a", other)

	m.CloseSession("s1", websocket.CloseInternalServerErr, "session aborted")

	if m.Len() != 1 {
		t.Fatalf("%d peers left", m.Len())
	}
	if _, ok := m.Peer("s2", "a"); !ok {
		t.Fatal("other session lost its peer")
	}
	select {
	case <-pa.Done():
	default:
		t.Fatal("peer of closed session still open")
	}
}

func TestPeerRateLimit(t *testing.T) {
	m := NewManager(WithRateLimit(1, 2))
	server, _ := connPair(t)
	peer := m.Register("s1", "p1", server)

	if !peer.Allow() || !peer.Allow() {
		t.Fatal("burst should be allowed")
	}
	if peer.Allow() {
		t.Fatal("third message within the burst window should be limited")
	}
}

func TestNewErrorAck(t *testing.T) {
	ack := NewErrorAck(TypeFireShot, cerr.ErrNotTurnForAttacker("p1"))
	if ack.Type != TypeFireShot {
		t.Fatalf("ack type %s", ack.Type)
	}
	if ack.Error == nil || ack.Error.Kind != "illegal_action" || ack.Error.Reason != cerr.ReasonNotYourTurn {
		t.Fatalf("ack error %+v", ack.Error)
	}
}

func TestDropSkipsGrace(t *testing.T) {
	m := NewManager(WithGracePeriod(time.Hour, func(string, string) {}))
	server, client := connPair(t)
	peer := m.Register("s1", "p1", server)

	m.Drop("s1", "p1", websocket.CloseNormalClosure, "left the session")

	select {
	case <-peer.Done():
	case <-time.After(time.Second):
		t.Fatal("dropped peer still open")
	}
	if m.Len() != 0 || m.pendingGrace() != 0 {
		t.Fatalf("peers %d timers %d", m.Len(), m.pendingGrace())
	}
	_ = client.SetReadDeadline(time.Now().Add(5 * time.Second))
	if _, _, err := client.ReadMessage(); !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
		t.Fatalf("want normal close, got %v", err)
	}
}
