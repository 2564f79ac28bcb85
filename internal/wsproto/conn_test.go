package wsproto

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// receive polls TryReceive the way the device loop does until a frame shows up.
func receive(t *testing.T, c *Conn) *Frame {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		f, err := c.TryReceive()
		require.NoError(t, err)
		if f != nil {
			return f
		}
	}
	t.Fatal("no frame received")
	return nil
}

func TestDialInteropWithGorilla(t *testing.T) {
	received := make(chan string, 1)
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer ws.Close()
		_, data, err := ws.ReadMessage()
		if err != nil {
			return
		}
		received <- string(data)
		// writing after the client spoke keeps the frame out of the 101 read
		if err := ws.WriteMessage(websocket.TextMessage, []byte(`{"message":"led_r"}`)); err != nil {
			return
		}
		// hold the connection open until the client goes away
		_, _, _ = ws.ReadMessage()
	}))
	defer srv.Close()

	addr := strings.TrimPrefix(srv.URL, "http://")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	for _, buffered := range []bool{false, true} {
		conn, res, err := Dial(ctx, addr, "localhost", "/ws/ws", Options{
			ReadTimeout:      5 * time.Millisecond,
			HandshakeTimeout: 2 * time.Second,
			BufferPartial:    buffered,
		})
		require.NoError(t, err)
		assert.Contains(t, res.Response, "101 Switching Protocols")

		require.NoError(t, conn.Send([]byte(`{"message":"123"}`)))
		select {
		case got := <-received:
			assert.Equal(t, `{"message":"123"}`, got)
		case <-time.After(2 * time.Second):
			t.Fatal("server did not receive the masked frame")
		}

		f := receive(t, conn)
		assert.Equal(t, OpcodeText, f.Opcode)
		assert.Equal(t, `{"message":"led_r"}`, f.Text())
		require.NoError(t, conn.Close())
	}
}

func TestDialRejectedByPlainHTTP(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusNotFound)
	}))
	defer srv.Close()

	_, _, err := Dial(context.Background(), strings.TrimPrefix(srv.URL, "http://"), "localhost", "/ws/ws", Options{
		ReadTimeout:      time.Millisecond,
		HandshakeTimeout: time.Second,
	})
	require.Error(t, err)
	var he *HandshakeError
	require.True(t, errors.As(err, &he))
	assert.Contains(t, he.Response, "404")
}

func TestSendAfterCloseIsStreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := (&websocket.Upgrader{}).Upgrade(w, r, nil)
		if err == nil {
			_, _, _ = ws.ReadMessage()
			ws.Close()
		}
	}))
	defer srv.Close()

	conn, _, err := Dial(context.Background(), strings.TrimPrefix(srv.URL, "http://"), "localhost", "/", Options{
		ReadTimeout:      time.Millisecond,
		HandshakeTimeout: time.Second,
	})
	require.NoError(t, err)
	require.NoError(t, conn.Close())

	err = conn.Send([]byte("x"))
	var se *StreamError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, "send", se.Op)
}
