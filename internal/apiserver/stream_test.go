// stream_test.go — WebSocket 摄入通道测试。
package apiserver

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func dialStream(t *testing.T, s *Server, sessionID string) (*websocket.Conn, func()) {
	t.Helper()
	srv := httptest.NewServer(s.Engine())
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/stream/" + sessionID
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		srv.Close()
		t.Fatalf("dial %s: %v", url, err)
	}
	return ws, func() {
		_ = ws.Close()
		srv.Close()
	}
}

func readAck(t *testing.T, ws *websocket.Conn) streamAck {
	t.Helper()
	_ = ws.SetReadDeadline(time.Now().Add(3 * time.Second))
	_, data, err := ws.ReadMessage()
	if err != nil {
		t.Fatalf("read ack: %v", err)
	}
	var ack streamAck
	if err := json.Unmarshal(data, &ack); err != nil {
		t.Fatalf("decode ack %s: %v", data, err)
	}
	return ack
}

func TestStream_IngestAndAck(t *testing.T) {
	s := newTestServer()
	createSession(t, s, "conv-1")
	ws, cleanup := dialStream(t, s, "conv-1")
	defer cleanup()

	err := ws.WriteMessage(websocket.TextMessage,
		[]byte(`{"kind":"user","uuid":"1","content":[{"type":"text","text":"hi"}]}`))
	if err != nil {
		t.Fatalf("write: %v", err)
	}

	ack := readAck(t, ws)
	if !ack.OK {
		t.Fatalf("ack = %+v, want ok", ack)
	}

	// 摄入结果对 REST 查询立即可见
	code, env := doJSON(t, s, http.MethodGet, "/api/sessions/conv-1/timeline", nil)
	if code != http.StatusOK {
		t.Fatalf("timeline = %d", code)
	}
	var data struct {
		Entries []json.RawMessage `json:"entries"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		t.Fatal(err)
	}
	if len(data.Entries) != 1 {
		t.Errorf("entries = %d, want 1 after stream ingest", len(data.Entries))
	}
}

func TestStream_BadFrameRejectedConnectionSurvives(t *testing.T) {
	s := newTestServer()
	createSession(t, s, "conv-1")
	ws, cleanup := dialStream(t, s, "conv-1")
	defer cleanup()

	if err := ws.WriteMessage(websocket.TextMessage, []byte(`{not json`)); err != nil {
		t.Fatalf("write: %v", err)
	}
	ack := readAck(t, ws)
	if ack.OK || ack.Error == "" {
		t.Errorf("ack = %+v, want rejection with error", ack)
	}

	// 连接未断, 后续帧正常摄入
	if err := ws.WriteMessage(websocket.TextMessage, []byte(`{"kind":"user","uuid":"1"}`)); err != nil {
		t.Fatalf("write after bad frame: %v", err)
	}
	if ack := readAck(t, ws); !ack.OK {
		t.Errorf("ack after bad frame = %+v, want ok", ack)
	}
}

func TestStream_UnknownSessionRejected(t *testing.T) {
	s := newTestServer()
	srv := httptest.NewServer(s.Engine())
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/stream/none"
	ws, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err == nil {
		_ = ws.Close()
		t.Fatal("dial to unknown session should fail")
	}
	if resp == nil || resp.StatusCode != http.StatusNotFound {
		t.Errorf("handshake response = %+v, want 404", resp)
	}
}

func TestCheckLocalOrigin(t *testing.T) {
	cases := []struct {
		origin string
		want   bool
	}{
		{"", true},
		{"http://localhost:3000", true},
		{"http://127.0.0.1:8080", true},
		{"https://evil.example.com", false},
	}
	for _, tc := range cases {
		r := httptest.NewRequest(http.MethodGet, "/api/stream/x", nil)
		if tc.origin != "" {
			r.Header.Set("Origin", tc.origin)
		}
		if got := checkLocalOrigin(r); got != tc.want {
			t.Errorf("checkLocalOrigin(%q) = %v, want %v", tc.origin, got, tc.want)
		}
	}
}
