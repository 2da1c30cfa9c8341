package relay

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

// mockRelayServer creates a test websocket server standing in for the
// relay stream endpoint.
func mockRelayServer(t *testing.T, handler func(*websocket.Conn)) *httptest.Server {
	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool { return true },
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Logf("upgrade error: %v", err)
			return
		}
		defer conn.Close()
		handler(conn)
	}))

	return server
}

func wsURL(server *httptest.Server) string {
	return "ws" + strings.TrimPrefix(server.URL, "http")
}

func testConfig(server *httptest.Server) Config {
	return Config{
		StreamURL:        wsURL(server),
		HandshakeTimeout: 5 * time.Second,
		IdleTimeout:      30 * time.Second,
		WriteTimeout:     5 * time.Second,
		BufferSize:       10,
	}
}

const testToken = "o.abcDEF0123456789xyz"

func TestOpen_YieldsPushEvents(t *testing.T) {
	server := mockRelayServer(t, func(conn *websocket.Conn) {
		conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"nop"}`))
		conn.WriteMessage(websocket.TextMessage, []byte(
			`{"type":"push","push":{"type":"mirror","package_name":"com.kakaobank.channel","title":"10,000원 입금","body":"김철수 (3333-01)"}}`,
		))
		// Keep the connection open.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})
	defer server.Close()

	s, err := Open(context.Background(), testConfig(server), testToken, nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()

	select {
	case ev := <-s.Events():
		if ev.SourceApp != "com.kakaobank.channel" {
			t.Errorf("SourceApp = %q", ev.SourceApp)
		}
		if ev.Title != "10,000원 입금" {
			t.Errorf("Title = %q", ev.Title)
		}
		if ev.Body != "김철수 (3333-01)" {
			t.Errorf("Body = %q", ev.Body)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for push event")
	}

	if !s.IsAlive() {
		t.Error("IsAlive = false, want true")
	}
}

func TestOpen_IgnoresNonPushFrames(t *testing.T) {
	server := mockRelayServer(t, func(conn *websocket.Conn) {
		conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"nop"}`))
		conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"tickle","subtype":"push"}`))
		conn.WriteMessage(websocket.TextMessage, []byte(`not json`))
		conn.WriteMessage(websocket.TextMessage, []byte(
			`{"type":"push","push":{"type":"note","package_name":"x","title":"t","body":"b"}}`,
		))
		conn.WriteMessage(websocket.TextMessage, []byte(
			`{"type":"push","push":{"type":"mirror","package_name":"nh.smart.banking","title":"NH","body":"입금 10,000원 김철수"}}`,
		))
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})
	defer server.Close()

	s, err := Open(context.Background(), testConfig(server), testToken, nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()

	select {
	case ev := <-s.Events():
		// Only the mirror push should come through.
		if ev.SourceApp != "nh.smart.banking" {
			t.Errorf("SourceApp = %q, want the mirror push only", ev.SourceApp)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for push event")
	}
}

func TestOpen_CleanCloseSurfacesAsSessionClosed(t *testing.T) {
	server := mockRelayServer(t, func(conn *websocket.Conn) {
		conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"),
			time.Now().Add(time.Second),
		)
	})
	defer server.Close()

	s, err := Open(context.Background(), testConfig(server), testToken, nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()

	select {
	case err := <-s.Errs():
		if !errors.Is(err, ErrSessionClosed) {
			t.Errorf("error = %v, want ErrSessionClosed", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for session error")
	}

	if s.IsAlive() {
		t.Error("IsAlive = true after close")
	}
}

func TestOpen_AbruptDropSurfacesAsError(t *testing.T) {
	server := mockRelayServer(t, func(conn *websocket.Conn) {
		conn.Close()
	})
	defer server.Close()

	s, err := Open(context.Background(), testConfig(server), testToken, nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()

	select {
	case err := <-s.Errs():
		if errors.Is(err, ErrSessionClosed) {
			t.Errorf("error = %v, want an unclean transport error", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for session error")
	}
}

func TestOpen_StaleSession(t *testing.T) {
	server := mockRelayServer(t, func(conn *websocket.Conn) {
		// Swallow pings without replying so the idle timeout fires.
		conn.SetPingHandler(func(string) error { return nil })
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})
	defer server.Close()

	cfg := testConfig(server)
	cfg.IdleTimeout = 150 * time.Millisecond

	s, err := Open(context.Background(), cfg, testToken, nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()

	select {
	case err := <-s.Errs():
		if !errors.Is(err, ErrStaleSession) {
			t.Errorf("error = %v, want ErrStaleSession", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for stale-session error")
	}
}

func TestOpen_BadStreamURL(t *testing.T) {
	tests := []string{
		"http://stream.example.com",
		"://bad",
		"wss://",
	}

	for _, base := range tests {
		cfg := Config{StreamURL: base, BufferSize: 1}
		_, err := Open(context.Background(), cfg, testToken, nil)
		if !errors.Is(err, ErrBadStreamURL) {
			t.Errorf("Open(%q) error = %v, want ErrBadStreamURL", base, err)
		}
	}
}

func TestValidateToken(t *testing.T) {
	tests := []struct {
		token   string
		wantErr bool
	}{
		{"o.abcDEF0123456789xyz", false},
		{"o.AAAAAAAAAAAAAAAA", false},
		{"", true},
		{"abcDEF0123456789xyz", true},
		{"o.short", true},
		{"o.abcDEF0123456789!@#", true},
		{"o.abc DEF0123456789xy", true},
	}

	for _, tt := range tests {
		err := ValidateToken(tt.token)
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidateToken(%q) error = %v, wantErr %v", tt.token, err, tt.wantErr)
		}
		if err != nil && !errors.Is(err, ErrBadToken) {
			t.Errorf("ValidateToken(%q) error = %v, want ErrBadToken", tt.token, err)
		}
	}
}
