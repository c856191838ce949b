package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/nexis-chat/nexis/gateway/internal/application/gateway"
	"github.com/nexis-chat/nexis/gateway/internal/infrastructure/auth"
	"github.com/nexis-chat/nexis/gateway/internal/infrastructure/embedding"
	"github.com/nexis-chat/nexis/gateway/internal/infrastructure/indexing"
	"github.com/nexis-chat/nexis/gateway/internal/infrastructure/persistence"
	"github.com/nexis-chat/nexis/gateway/internal/infrastructure/search"
	"github.com/nexis-chat/nexis/gateway/internal/infrastructure/vectorstore"
	"go.uber.org/zap"
)

type testGateway struct {
	server *Server
	queue  *indexing.Queue
	store  *vectorstore.MemoryStore
}

func newTestGateway(t *testing.T) *testGateway {
	t.Helper()
	logger := zap.NewNop()

	embedder := embedding.NewMockProvider(4)
	store := vectorstore.NewMemoryStore(4)
	indexSvc := indexing.NewService(embedder, store, indexing.RetryPolicy{
		MaxRetries:   0,
		InitialDelay: time.Millisecond,
		MaxDelay:     time.Millisecond,
		Multiplier:   2,
	}, logger)
	queue := indexing.NewQueue(indexSvc, 64, logger)
	t.Cleanup(queue.Close)

	conns := gateway.NewConnectionManager(16, logger)
	chat := gateway.NewChatService(
		persistence.NewMemoryRoomRepository(),
		persistence.NewMemoryMessageRepository(),
		persistence.NewMemoryMemberRepository(),
		gateway.NewSemaphore(8),
		conns,
		queue,
		logger,
	)
	searchSvc := search.NewService(embedder, store, logger)

	server := NewServer(Config{Mode: "release"}, chat, searchSvc, conns, nil, logger)
	return &testGateway{server: server, queue: queue, store: store}
}

func postJSON(t *testing.T, handler http.Handler, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return body
}

func TestHealth(t *testing.T) {
	gw := newTestGateway(t)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	gw.server.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if rec.Body.String() != "OK" {
		t.Fatalf("body = %q, want OK", rec.Body.String())
	}
}

func TestCreateSendFetch(t *testing.T) {
	gw := newTestGateway(t)
	handler := gw.server.Handler()

	rec := postJSON(t, handler, "/v1/rooms", map[string]string{"name": "general"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d body %s", rec.Code, rec.Body.String())
	}
	roomID, _ := decodeBody(t, rec)["id"].(string)
	if !strings.HasPrefix(roomID, "room_") {
		t.Fatalf("room id = %q, want room_ prefix", roomID)
	}

	rec = postJSON(t, handler, "/v1/messages", map[string]string{
		"roomId": roomID,
		"sender": "alice",
		"text":   "hello",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("send status = %d body %s", rec.Code, rec.Body.String())
	}
	msgID, _ := decodeBody(t, rec)["id"].(string)
	if !strings.HasPrefix(msgID, "msg_") {
		t.Fatalf("message id = %q, want msg_ prefix", msgID)
	}

	req := httptest.NewRequest(http.MethodGet, "/v1/rooms/"+roomID, nil)
	getRec := httptest.NewRecorder()
	handler.ServeHTTP(getRec, req)
	if getRec.Code != http.StatusOK {
		t.Fatalf("fetch status = %d", getRec.Code)
	}
	var view struct {
		ID       string `json:"id"`
		Name     string `json:"name"`
		Messages []struct {
			ID     string `json:"id"`
			Sender string `json:"sender"`
			Text   string `json:"text"`
		} `json:"messages"`
	}
	if err := json.Unmarshal(getRec.Body.Bytes(), &view); err != nil {
		t.Fatalf("decode view: %v", err)
	}
	if len(view.Messages) != 1 || view.Messages[0].Text != "hello" {
		t.Fatalf("messages = %+v, want one with text hello", view.Messages)
	}
}

func TestSendToUnknownRoom(t *testing.T) {
	gw := newTestGateway(t)
	rec := postJSON(t, gw.server.Handler(), "/v1/messages", map[string]string{
		"roomId": "room_missing",
		"sender": "alice",
		"text":   "hi",
	})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	if body := decodeBody(t, rec); body["error"] != "room not found" {
		t.Fatalf("error = %v, want room not found", body["error"])
	}
}

func TestInviteIdempotent(t *testing.T) {
	gw := newTestGateway(t)
	handler := gw.server.Handler()

	rec := postJSON(t, handler, "/v1/rooms", map[string]string{"name": "general"})
	roomID, _ := decodeBody(t, rec)["id"].(string)

	for i := 0; i < 2; i++ {
		rec = postJSON(t, handler, "/v1/rooms/"+roomID+"/invite",
			map[string]string{"memberId": "nexis:human:alice"})
		if rec.Code != http.StatusOK {
			t.Fatalf("invite %d status = %d body %s", i, rec.Code, rec.Body.String())
		}
		body := decodeBody(t, rec)
		if body["roomId"] != roomID || body["memberId"] != "nexis:human:alice" {
			t.Fatalf("invite body = %v", body)
		}
	}

	rec = postJSON(t, handler, "/v1/rooms/"+roomID+"/invite",
		map[string]string{"memberId": "bogus"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("bad member status = %d", rec.Code)
	}
}

func TestSearchRoute(t *testing.T) {
	gw := newTestGateway(t)
	handler := gw.server.Handler()

	rec := postJSON(t, handler, "/v1/rooms", map[string]string{"name": "general"})
	roomID, _ := decodeBody(t, rec)["id"].(string)
	rec = postJSON(t, handler, "/v1/messages", map[string]string{
		"roomId": roomID,
		"sender": "alice",
		"text":   "the launch is on friday",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("send status = %d", rec.Code)
	}

	// Indexing is async behind the queue; poll until the store sees it.
	deadline := time.Now().Add(2 * time.Second)
	for {
		if n, _ := gw.store.Count(t.Context()); n > 0 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("message never indexed")
		}
		time.Sleep(5 * time.Millisecond)
	}

	rec = postJSON(t, handler, "/v1/search", map[string]any{"query": "launch"})
	if rec.Code != http.StatusOK {
		t.Fatalf("search status = %d body %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Query   string `json:"query"`
		Results []struct {
			ID      string `json:"id"`
			Content string `json:"content"`
		} `json:"results"`
		Total int `json:"total"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Total != 1 || resp.Results[0].Content != "the launch is on friday" {
		t.Fatalf("resp = %+v", resp)
	}

	rec = postJSON(t, handler, "/v1/search", map[string]any{"query": "   "})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("blank query status = %d", rec.Code)
	}
}

func TestWebSocketEcho(t *testing.T) {
	gw := newTestGateway(t)
	srv := httptest.NewServer(gw.server.Handler())
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	if resp.StatusCode != http.StatusSwitchingProtocols {
		t.Fatalf("handshake status = %d", resp.StatusCode)
	}

	if err := conn.WriteMessage(websocket.TextMessage, []byte("ping")); err != nil {
		t.Fatalf("write: %v", err)
	}
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	msgType, payload, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if msgType != websocket.TextMessage || string(payload) != "ping" {
		t.Fatalf("echo = type %d payload %q", msgType, payload)
	}

	err = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	if err != nil {
		t.Fatalf("close: %v", err)
	}
}

func TestWebSocketPoolSaturation(t *testing.T) {
	logger := zap.NewNop()
	conns := gateway.NewConnectionManager(1, logger)
	chat := gateway.NewChatService(
		persistence.NewMemoryRoomRepository(),
		persistence.NewMemoryMessageRepository(),
		persistence.NewMemoryMemberRepository(),
		gateway.NewSemaphore(8),
		conns,
		nil,
		logger,
	)
	server := NewServer(Config{Mode: "release"}, chat, nil, conns, nil, logger)
	srv := httptest.NewServer(server.Handler())
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	first, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("first dial: %v", err)
	}
	defer first.Close()

	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err == nil {
		t.Fatal("second dial should be refused")
	}
	if resp == nil || resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 handshake response, got %+v", resp)
	}
}

func TestSearchUnconfigured(t *testing.T) {
	logger := zap.NewNop()
	conns := gateway.NewConnectionManager(4, logger)
	chat := gateway.NewChatService(
		persistence.NewMemoryRoomRepository(),
		persistence.NewMemoryMessageRepository(),
		persistence.NewMemoryMemberRepository(),
		gateway.NewSemaphore(8),
		conns,
		nil,
		logger,
	)
	server := NewServer(Config{Mode: "release"}, chat, nil, conns, nil, logger)

	rec := postJSON(t, server.Handler(), "/v1/search", map[string]string{"query": "x"})
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
}

func TestAuthProtectedRoutes(t *testing.T) {
	logger := zap.NewNop()
	conns := gateway.NewConnectionManager(4, logger)
	chat := gateway.NewChatService(
		persistence.NewMemoryRoomRepository(),
		persistence.NewMemoryMessageRepository(),
		persistence.NewMemoryMemberRepository(),
		gateway.NewSemaphore(8),
		conns,
		nil,
		logger,
	)
	tokens := auth.NewTokenService(auth.JWTConfig{
		Secret:   "test-secret",
		Issuer:   "nexis",
		Audience: "nexis-gateway",
	})
	server := NewServer(Config{Mode: "release"}, chat, nil, conns, tokens, logger)
	handler := server.Handler()

	rec := postJSON(t, handler, "/v1/rooms", map[string]string{"name": "general"})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("unauthenticated status = %d, want 401", rec.Code)
	}

	token, err := tokens.GenerateToken("nexis:human:alice", "human", "acme")
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}
	payload, _ := json.Marshal(map[string]string{"name": "general"})
	req := httptest.NewRequest(http.MethodPost, "/v1/rooms", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	authRec := httptest.NewRecorder()
	handler.ServeHTTP(authRec, req)
	if authRec.Code != http.StatusCreated {
		t.Fatalf("authenticated status = %d body %s", authRec.Code, authRec.Body.String())
	}

	// Health stays open.
	healthReq := httptest.NewRequest(http.MethodGet, "/health", nil)
	healthRec := httptest.NewRecorder()
	handler.ServeHTTP(healthRec, healthReq)
	if healthRec.Code != http.StatusOK {
		t.Fatalf("health status = %d", healthRec.Code)
	}
}
