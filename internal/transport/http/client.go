package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/LLIu33/swot/internal/domain"
	"github.com/gorilla/websocket"
)

// APIError is a non-2xx response from the topic resource.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("topic api: status %d", e.Status)
	}
	return fmt.Sprintf("topic api: status %d: %s", e.Status, e.Message)
}

// UserMessage returns the server-provided error text, which may be empty.
func (e *APIError) UserMessage() string {
	return e.Message
}

// Client calls the topic resource over HTTP.
type Client struct {
	baseURL string
	http    *http.Client
	dialer  *websocket.Dialer
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.http = hc }
}

func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{},
		dialer:  &websocket.Dialer{HandshakeTimeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) ListTopics(ctx context.Context) ([]*domain.Topic, error) {
	var forest []*domain.Topic
	if err := c.do(ctx, http.MethodGet, "/topics", nil, &forest); err != nil {
		return nil, err
	}
	return forest, nil
}

func (c *Client) CreateTopic(ctx context.Context, name string) (*domain.Topic, error) {
	return c.CreateSubtopic(ctx, name, "")
}

// CreateSubtopic creates a topic under parentID, or at root level when it is empty.
func (c *Client) CreateSubtopic(ctx context.Context, name, parentID string) (*domain.Topic, error) {
	var topic domain.Topic
	if err := c.do(ctx, http.MethodPost, "/topics", topicRequest{Name: name, Parent: parentID}, &topic); err != nil {
		return nil, err
	}
	return &topic, nil
}

func (c *Client) RenameTopic(ctx context.Context, id, name string) (*domain.Topic, error) {
	var topic domain.Topic
	if err := c.do(ctx, http.MethodPatch, "/topics/"+url.PathEscape(id), topicRequest{Name: name}, &topic); err != nil {
		return nil, err
	}
	return &topic, nil
}

func (c *Client) DeleteTopic(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/topics/"+url.PathEscape(id), nil, nil)
}

// WatchTopics streams topic forests from the change feed to fn until ctx is done or the
// connection drops. It returns nil when ctx ends the stream.
func (c *Client) WatchTopics(ctx context.Context, fn func([]*domain.Topic)) error {
	wsURL := "ws" + strings.TrimPrefix(c.baseURL, "http") + "/topics/feed"
	conn, _, err := c.dialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return fmt.Errorf("dial topic feed: %w", err)
	}
	defer conn.Close()

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-done:
		}
	}()

	for {
		var msg outboundMessage[json.RawMessage]
		if err := conn.ReadJSON(&msg); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("read topic feed: %w", err)
		}
		switch msg.Type {
		case "topics":
			var forest []*domain.Topic
			if err := json.Unmarshal(msg.Payload, &forest); err != nil {
				return fmt.Errorf("decode topic feed: %w", err)
			}
			fn(forest)
		case "error":
			var e errorResponse
			_ = json.Unmarshal(msg.Payload, &e)
			return &APIError{Message: e.Error}
		}
	}
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Status: resp.StatusCode}
		var e errorResponse
		if err := json.NewDecoder(resp.Body).Decode(&e); err == nil {
			apiErr.Message = e.Error
		}
		return apiErr
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
