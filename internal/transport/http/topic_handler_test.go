package http

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/LLIu33/swot/internal/app"
	"github.com/LLIu33/swot/internal/domain"
	"github.com/LLIu33/swot/internal/infra/memory"
	"github.com/gorilla/websocket"
)

func newTestServer(t *testing.T) (*httptest.Server, *app.TopicService) {
	t.Helper()
	service := app.NewTopicService(memory.NewTopicStore())
	server := httptest.NewServer(NewRouter(service, nil, nil))
	t.Cleanup(server.Close)
	return server, service
}

func TestTopicEndpoints(t *testing.T) {
	server, _ := newTestServer(t)

	resp := doJSON(t, http.MethodPost, server.URL+"/topics", `{"name":"Geography"}`)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create: expected 201, got %d", resp.StatusCode)
	}
	var geo domain.Topic
	decode(t, resp, &geo)
	if geo.ID == "" || geo.Name != "Geography" {
		t.Fatalf("unexpected created topic %+v", geo)
	}

	resp = doJSON(t, http.MethodPost, server.URL+"/topics", `{"name":"Rivers","parent":"`+geo.ID+`"}`)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create subtopic: expected 201, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp = doJSON(t, http.MethodPatch, server.URL+"/topics/"+geo.ID, `{"name":"World geography"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("rename: expected 200, got %d", resp.StatusCode)
	}
	var renamed domain.Topic
	decode(t, resp, &renamed)
	if renamed.Name != "World geography" {
		t.Fatalf("expected renamed topic, got %q", renamed.Name)
	}

	resp = doJSON(t, http.MethodGet, server.URL+"/topics", "")
	var forest []*domain.Topic
	decode(t, resp, &forest)
	if len(forest) != 1 || len(forest[0].Subtopics) != 1 || forest[0].Subtopics[0].Name != "Rivers" {
		t.Fatalf("unexpected forest %+v", forest)
	}

	resp = doJSON(t, http.MethodDelete, server.URL+"/topics/"+geo.ID, "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("delete: expected 200, got %d", resp.StatusCode)
	}
	var deleted deleteResponse
	decode(t, resp, &deleted)
	if len(deleted.Deleted) != 2 {
		t.Fatalf("expected topic and subtopic deleted, got %v", deleted.Deleted)
	}
}

func TestTopicEndpointErrors(t *testing.T) {
	server, _ := newTestServer(t)

	cases := []struct {
		name    string
		method  string
		path    string
		body    string
		status  int
		message string
	}{
		{"blank name", http.MethodPost, "/topics", `{"name":"  "}`, http.StatusBadRequest, "Please enter a name."},
		{"missing parent", http.MethodPost, "/topics", `{"name":"x","parent":"nope"}`, http.StatusBadRequest, "Parent topic not found."},
		{"rename missing", http.MethodPatch, "/topics/nope", `{"name":"x"}`, http.StatusNotFound, "Topic not found."},
		{"delete missing", http.MethodDelete, "/topics/nope", "", http.StatusNotFound, "Topic not found."},
		{"bad body", http.MethodPost, "/topics", `{`, http.StatusBadRequest, "Invalid request body."},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp := doJSON(t, tc.method, server.URL+tc.path, tc.body)
			if resp.StatusCode != tc.status {
				t.Fatalf("expected %d, got %d", tc.status, resp.StatusCode)
			}
			var e errorResponse
			decode(t, resp, &e)
			if e.Error != tc.message {
				t.Fatalf("expected %q, got %q", tc.message, e.Error)
			}
		})
	}
}

func TestFeedStreamsChanges(t *testing.T) {
	server, service := newTestServer(t)

	u := "ws" + server.URL[len("http"):] + "/topics/feed"
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	if forest := readForest(t, conn); len(forest) != 0 {
		t.Fatalf("expected empty initial forest, got %d topics", len(forest))
	}

	if _, err := service.Create(context.Background(), "Maths", ""); err != nil {
		t.Fatalf("create: %v", err)
	}
	forest := readForest(t, conn)
	if len(forest) != 1 || forest[0].Name != "Maths" {
		t.Fatalf("expected Maths in feed, got %+v", forest)
	}
}

func TestHealthz(t *testing.T) {
	server, _ := newTestServer(t)
	resp := doJSON(t, http.MethodGet, server.URL+"/healthz", "")
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK || string(body) != "ok" {
		t.Fatalf("unexpected healthz response %d %q", resp.StatusCode, body)
	}
}

func readForest(t *testing.T, conn *websocket.Conn) []*domain.Topic {
	t.Helper()
	var msg outboundMessage[[]*domain.Topic]
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read json: %v", err)
	}
	if msg.Type != "topics" {
		t.Fatalf("expected type topics, got %s", msg.Type)
	}
	return msg.Payload
}

func doJSON(t *testing.T, method, url, body string) *http.Response {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	return resp
}

func decode(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("decode: %v", err)
	}
}
