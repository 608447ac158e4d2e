package connection

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

// mockWSServer creates a test WebSocket server.
func mockWSServer(t *testing.T, handler func(*websocket.Conn)) *httptest.Server {
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

func TestSocket_Connect(t *testing.T) {
	server := mockWSServer(t, func(conn *websocket.Conn) {
		for {
			_, _, err := conn.ReadMessage()
			if err != nil {
				return
			}
		}
	})
	defer server.Close()

	s := NewSocket(Config{URL: wsURL(server)}, nil)

	if err := s.Connect(context.Background()); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	if !s.IsConnected() {
		t.Error("expected IsConnected to return true")
	}

	if err := s.Close(); err != nil {
		t.Errorf("Close failed: %v", err)
	}
	if s.IsConnected() {
		t.Error("expected IsConnected to return false after Close")
	}
}

func TestSocket_ConnectFailure(t *testing.T) {
	s := NewSocket(Config{URL: "ws://127.0.0.1:1", HandshakeTimeout: time.Second}, nil)

	if err := s.Connect(context.Background()); err == nil {
		t.Fatal("expected Connect to fail against closed port")
	}
	if s.IsConnected() {
		t.Error("expected IsConnected to return false after failed connect")
	}
}

func TestSocket_SendReceive(t *testing.T) {
	echoed := make(chan []byte, 1)
	server := mockWSServer(t, func(conn *websocket.Conn) {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		echoed <- data
		conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"connection","message":"hi"}`))
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})
	defer server.Close()

	s := NewSocket(Config{URL: wsURL(server)}, nil)
	if err := s.Connect(context.Background()); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	defer s.Close()

	if err := s.Send([]byte(`{"type":"ping"}`)); err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	select {
	case data := <-echoed:
		if string(data) != `{"type":"ping"}` {
			t.Errorf("server received %s", data)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("server never received message")
	}

	select {
	case msg := <-s.Messages():
		if !strings.Contains(string(msg.Data), "connection") {
			t.Errorf("unexpected message: %s", msg.Data)
		}
		if msg.ReceivedAt.IsZero() {
			t.Error("expected ReceivedAt to be set")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no message received")
	}
}

func TestSocket_SendWhenDisconnected(t *testing.T) {
	s := NewSocket(Config{URL: "ws://example.invalid"}, nil)
	if err := s.Send([]byte("x")); err != ErrNotConnected {
		t.Errorf("Send error = %v, want ErrNotConnected", err)
	}
}

func TestSocket_ErrorOnServerClose(t *testing.T) {
	server := mockWSServer(t, func(conn *websocket.Conn) {
		// Close immediately.
	})
	defer server.Close()

	s := NewSocket(Config{URL: wsURL(server)}, nil)
	if err := s.Connect(context.Background()); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	defer s.Close()

	select {
	case <-s.Errors():
	case <-time.After(2 * time.Second):
		t.Fatal("expected a transport error after server close")
	}
}

func TestSocket_ConnectAfterClose(t *testing.T) {
	s := NewSocket(Config{URL: "ws://example.invalid"}, nil)
	s.Close()
	if err := s.Connect(context.Background()); err != ErrAlreadyClosed {
		t.Errorf("Connect error = %v, want ErrAlreadyClosed", err)
	}
}
