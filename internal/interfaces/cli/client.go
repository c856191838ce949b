package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const httpTimeout = 15 * time.Second

// Client is the typed HTTP client over the gateway API.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a client for the given base URL.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: httpTimeout},
	}
}

// CreateRoomResponse is the POST /v1/rooms reply.
type CreateRoomResponse struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// SendMessageResponse is the POST /v1/messages reply.
type SendMessageResponse struct {
	ID string `json:"id"`
}

// RoomMessage is one message within a room fetch.
type RoomMessage struct {
	ID      string `json:"id"`
	Sender  string `json:"sender"`
	Text    string `json:"text"`
	ReplyTo string `json:"replyTo,omitempty"`
}

// RoomInfoResponse is the GET /v1/rooms/{id} reply.
type RoomInfoResponse struct {
	ID       string        `json:"id"`
	Name     string        `json:"name"`
	Topic    string        `json:"topic,omitempty"`
	Messages []RoomMessage `json:"messages"`
	Members  []string      `json:"members,omitempty"`
}

// InviteMemberResponse is the invite reply.
type InviteMemberResponse struct {
	RoomID   string `json:"roomId"`
	MemberID string `json:"memberId"`
}

// SearchResultItem is one ranked search hit.
type SearchResultItem struct {
	ID      string  `json:"id"`
	Score   float64 `json:"score"`
	Content string  `json:"content"`
	RoomID  string  `json:"room_id,omitempty"`
}

// SearchResponse is the POST /v1/search reply.
type SearchResponse struct {
	Query   string             `json:"query"`
	Results []SearchResultItem `json:"results"`
	Total   int                `json:"total"`
}

// CreateRoom creates a named room.
func (c *Client) CreateRoom(ctx context.Context, name, topic string) (*CreateRoomResponse, error) {
	if strings.TrimSpace(name) == "" {
		return nil, &InvalidArgumentError{Reason: "room name cannot be empty"}
	}
	payload := map[string]string{"name": name}
	if topic != "" {
		payload["topic"] = topic
	}
	var resp CreateRoomResponse
	if err := c.postJSON(ctx, "/v1/rooms", payload, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// SendMessage posts a message; replyTo may be empty.
func (c *Client) SendMessage(ctx context.Context, roomID, sender, text, replyTo string) (*SendMessageResponse, error) {
	if strings.TrimSpace(roomID) == "" {
		return nil, &InvalidArgumentError{Reason: "room id cannot be empty"}
	}
	if strings.TrimSpace(sender) == "" {
		return nil, &InvalidArgumentError{Reason: "sender cannot be empty"}
	}
	if strings.TrimSpace(text) == "" {
		return nil, &InvalidArgumentError{Reason: "message text cannot be empty"}
	}
	payload := map[string]string{
		"roomId": roomID,
		"sender": sender,
		"text":   text,
	}
	if replyTo != "" {
		payload["replyTo"] = replyTo
	}
	var resp SendMessageResponse
	if err := c.postJSON(ctx, "/v1/messages", payload, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetRoom fetches a room with its messages.
func (c *Client) GetRoom(ctx context.Context, roomID string) (*RoomInfoResponse, error) {
	if strings.TrimSpace(roomID) == "" {
		return nil, &InvalidArgumentError{Reason: "room id cannot be empty"}
	}
	var resp RoomInfoResponse
	if err := c.getJSON(ctx, "/v1/rooms/"+roomID, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// InviteMember joins a member to a room.
func (c *Client) InviteMember(ctx context.Context, roomID, memberID string) (*InviteMemberResponse, error) {
	if strings.TrimSpace(roomID) == "" {
		return nil, &InvalidArgumentError{Reason: "room id cannot be empty"}
	}
	if strings.TrimSpace(memberID) == "" {
		return nil, &InvalidArgumentError{Reason: "member id cannot be empty"}
	}
	var resp InviteMemberResponse
	err := c.postJSON(ctx, "/v1/rooms/"+roomID+"/invite", map[string]string{"memberId": memberID}, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// Search runs a semantic query.
func (c *Client) Search(ctx context.Context, query string, limit int, roomID string, minScore float64) (*SearchResponse, error) {
	if strings.TrimSpace(query) == "" {
		return nil, &InvalidArgumentError{Reason: "query cannot be empty"}
	}
	payload := map[string]any{
		"query": query,
		"limit": limit,
	}
	if roomID != "" {
		payload["room_id"] = roomID
	}
	if minScore > 0 {
		payload["min_score"] = minScore
	}
	var resp SearchResponse
	if err := c.postJSON(ctx, "/v1/search", payload, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) postJSON(ctx context.Context, path string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return &DecodeError{Err: err}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return &TransportError{Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return &TransportError{Err: err}
	}
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return &TransportError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		body, readErr := io.ReadAll(resp.Body)
		if readErr != nil {
			body = []byte("<unable to read body>")
		}
		return &StatusError{Status: resp.StatusCode, Body: string(body)}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &DecodeError{Err: fmt.Errorf("decode %s: %w", req.URL.Path, err)}
	}
	return nil
}
