package cli

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestCreateRoom(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/rooms" || r.Method != http.MethodPost {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		var req map[string]string
		json.NewDecoder(r.Body).Decode(&req)
		if req["name"] != "general" || req["topic"] != "team" {
			t.Errorf("payload = %v", req)
		}
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]string{"id": "room_abc", "name": "general"})
	}))
	defer srv.Close()

	resp, err := NewClient(srv.URL).CreateRoom(context.Background(), "general", "team")
	if err != nil {
		t.Fatalf("create room: %v", err)
	}
	if resp.ID != "room_abc" || resp.Name != "general" {
		t.Fatalf("resp = %+v", resp)
	}
}

func TestClientValidatesArguments(t *testing.T) {
	client := NewClient("http://127.0.0.1:1")
	ctx := context.Background()

	cases := []struct {
		name string
		call func() error
	}{
		{"empty room name", func() error {
			_, err := client.CreateRoom(ctx, "  ", "")
			return err
		}},
		{"empty room id", func() error {
			_, err := client.SendMessage(ctx, "", "alice", "hi", "")
			return err
		}},
		{"empty sender", func() error {
			_, err := client.SendMessage(ctx, "room_1", " ", "hi", "")
			return err
		}},
		{"empty text", func() error {
			_, err := client.SendMessage(ctx, "room_1", "alice", "", "")
			return err
		}},
		{"empty query", func() error {
			_, err := client.Search(ctx, " ", 10, "", 0)
			return err
		}},
		{"empty member id", func() error {
			_, err := client.InviteMember(ctx, "room_1", "")
			return err
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var invalid *InvalidArgumentError
			if err := tc.call(); !errors.As(err, &invalid) {
				t.Fatalf("err = %v, want InvalidArgumentError", err)
			}
		})
	}
}

func TestClientReportsStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error":"room not found"}`))
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).GetRoom(context.Background(), "room_missing")
	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("err = %v, want StatusError", err)
	}
	if statusErr.Status != http.StatusNotFound {
		t.Fatalf("status = %d", statusErr.Status)
	}
}

func TestClientReportsDecodeError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not json"))
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).GetRoom(context.Background(), "room_1")
	var decodeErr *DecodeError
	if !errors.As(err, &decodeErr) {
		t.Fatalf("err = %v, want DecodeError", err)
	}
}

func TestClientReportsTransportError(t *testing.T) {
	// Port 1 is never listening.
	_, err := NewClient("http://127.0.0.1:1").GetRoom(context.Background(), "room_1")
	var transportErr *TransportError
	if !errors.As(err, &transportErr) {
		t.Fatalf("err = %v, want TransportError", err)
	}
}

func TestSearchPayload(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&got)
		json.NewEncoder(w).Encode(SearchResponse{Query: "launch", Total: 0, Results: nil})
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).Search(context.Background(), "launch", 5, "room_1", 0.4)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if got["query"] != "launch" || got["limit"] != float64(5) {
		t.Fatalf("payload = %v", got)
	}
	if got["room_id"] != "room_1" || got["min_score"] != 0.4 {
		t.Fatalf("filters = %v", got)
	}
}
