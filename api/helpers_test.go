package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	mb "github.com/saeidalz13/battleship-session/models/battleship"
	mc "github.com/saeidalz13/battleship-session/models/connection"
)

var testSecret = strings.Repeat("s", 32)

// ownerFirst makes the owner take the first turn of every game.
type ownerFirst struct{}

func (ownerFirst) Intn(int) int { return 0 }

func newTestServer(t *testing.T, connOpts ...mc.ManagerOption) (*Server, *httptest.Server) {
	t.Helper()

	sessions := mb.NewManager(mb.NewMemoryStore(), mb.WithPicker(ownerFirst{}))
	conns := mc.NewManager(connOpts...)
	server := NewServer(sessions, conns, WithSessionSecret(testSecret))

	ts := httptest.NewServer(server.Routes())
	t.Cleanup(ts.Close)
	return server, ts
}

func newBrowser(t *testing.T) *http.Client {
	t.Helper()

	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatal(err)
	}
	return &http.Client{Jar: jar, Timeout: 5 * time.Second}
}

func do(t *testing.T, c *http.Client, method, url string, body any) *http.Response {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req, err := http.NewRequest(method, url, &buf)
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()

	var v T
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		t.Fatal(err)
	}
	return v
}

func createSession(t *testing.T, ts *httptest.Server, c *http.Client, username string) mc.RespSession {
	t.Helper()

	resp := do(t, c, http.MethodPost, ts.URL+"/sessions", mc.ReqCreateSession{Username: username})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create session: status %d", resp.StatusCode)
	}
	return decode[mc.RespSession](t, resp)
}

func joinSession(t *testing.T, ts *httptest.Server, c *http.Client, slug, username string) mc.RespSession {
	t.Helper()

	resp := do(t, c, http.MethodPost, ts.URL+"/sessions/join", mc.ReqJoinSession{Slug: slug, Username: username})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("join session: status %d", resp.StatusCode)
	}
	return decode[mc.RespSession](t, resp)
}

func dialWs(t *testing.T, ts *httptest.Server, c *http.Client) (*websocket.Conn, *http.Response, error) {
	t.Helper()

	dialer := websocket.Dialer{HandshakeTimeout: 5 * time.Second, Jar: c.Jar}
	conn, resp, err := dialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/battleship", nil)
	if err == nil {
		t.Cleanup(func() { conn.Close() })
	}
	return conn, resp, err
}

func mustDial(t *testing.T, ts *httptest.Server, c *http.Client) *websocket.Conn {
	t.Helper()

	conn, _, err := dialWs(t, ts, c)
	if err != nil {
		t.Fatal(err)
	}
	return conn
}

// readMsg returns the type of the next message and the raw frame.
func readMsg(t *testing.T, conn *websocket.Conn) (string, []byte) {
	t.Helper()

	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, raw, err := conn.ReadMessage()
	if err != nil {
		t.Fatal(err)
	}
	var signal mc.Signal
	if err := json.Unmarshal(raw, &signal); err != nil {
		t.Fatal(err)
	}
	return signal.Type, raw
}

func expectMsg[T any](t *testing.T, conn *websocket.Conn, wantType string) mc.Message[T] {
	t.Helper()

	got, raw := readMsg(t, conn)
	if got != wantType {
		t.Fatalf("want %s, got %s: %s", wantType, got, raw)
	}
	var msg mc.Message[T]
	if err := json.Unmarshal(raw, &msg); err != nil {
		t.Fatal(err)
	}
	return msg
}

// expectQuiet fails if anything arrives within d. The conn is unusable
// afterwards, so call it last.
func expectQuiet(t *testing.T, conn *websocket.Conn, d time.Duration) {
	t.Helper()

	_ = conn.SetReadDeadline(time.Now().Add(d))
	if _, raw, err := conn.ReadMessage(); err == nil {
		t.Fatalf("unexpected message: %s", raw)
	}
}

func send(t *testing.T, conn *websocket.Conn, msgType string, payload any) {
	t.Helper()

	msg := mc.NewMessage[any](msgType)
	msg.AddPayload(payload)
	if err := conn.WriteJSON(msg); err != nil {
		t.Fatal(err)
	}
}

func rowFleet() []mb.ShipPlacement {
	return []mb.ShipPlacement{
		{ID: "carrier", StartX: 0, StartY: 0, Length: 5, Orientation: mb.OrientationHorizontal},
		{ID: "battleship", StartX: 0, StartY: 1, Length: 4, Orientation: mb.OrientationHorizontal},
		{ID: "cruiser", StartX: 0, StartY: 2, Length: 3, Orientation: mb.OrientationHorizontal},
		{ID: "submarine", StartX: 0, StartY: 3, Length: 3, Orientation: mb.OrientationHorizontal},
		{ID: "destroyer", StartX: 0, StartY: 4, Length: 2, Orientation: mb.OrientationHorizontal},
	}
}
