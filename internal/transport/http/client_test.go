package http

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/LLIu33/swot/internal/domain"
	"github.com/LLIu33/swot/internal/topics"
)

var _ topics.API = (*Client)(nil)

func TestClientRoundTrip(t *testing.T) {
	server, _ := newTestServer(t)
	client := NewClient(server.URL+"/", WithHTTPClient(&http.Client{Timeout: 5 * time.Second}))
	ctx := context.Background()

	geo, err := client.CreateTopic(ctx, "Geography")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := client.CreateSubtopic(ctx, "Rivers", geo.ID); err != nil {
		t.Fatalf("create subtopic: %v", err)
	}
	renamed, err := client.RenameTopic(ctx, geo.ID, "World geography")
	if err != nil {
		t.Fatalf("rename: %v", err)
	}
	if renamed.Name != "World geography" {
		t.Fatalf("expected renamed topic, got %q", renamed.Name)
	}

	forest, err := client.ListTopics(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(forest) != 1 || len(forest[0].Subtopics) != 1 {
		t.Fatalf("unexpected forest %+v", forest)
	}

	if err := client.DeleteTopic(ctx, geo.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	forest, err = client.ListTopics(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(forest) != 0 {
		t.Fatalf("expected empty forest after delete, got %d", len(forest))
	}
}

func TestClientErrorsCarryServerMessage(t *testing.T) {
	server, _ := newTestServer(t)
	client := NewClient(server.URL)

	_, err := client.RenameTopic(context.Background(), "missing", "x")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *APIError, got %T %v", err, err)
	}
	if apiErr.Status != http.StatusNotFound || apiErr.UserMessage() != "Topic not found." {
		t.Fatalf("unexpected api error %+v", apiErr)
	}

	// A failure surfaced through the controller shows the server's text.
	failure := topics.Message(&topics.Failure{Op: topics.OpRename, Message: apiErr.UserMessage(), Err: apiErr})
	if failure != "Topic not found." {
		t.Fatalf("expected server message, got %q", failure)
	}
}

func TestClientWatchTopics(t *testing.T) {
	server, service := newTestServer(t)
	client := NewClient(server.URL)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	updates := make(chan []*domain.Topic, 4)
	done := make(chan error, 1)
	go func() {
		done <- client.WatchTopics(ctx, func(forest []*domain.Topic) { updates <- forest })
	}()

	select {
	case forest := <-updates:
		if len(forest) != 0 {
			t.Fatalf("expected empty initial forest, got %d", len(forest))
		}
	case <-ctx.Done():
		t.Fatalf("timed out waiting for initial forest")
	}

	if _, err := service.Create(context.Background(), "Maths", ""); err != nil {
		t.Fatalf("create: %v", err)
	}
	select {
	case forest := <-updates:
		if len(forest) != 1 || forest[0].Name != "Maths" {
			t.Fatalf("unexpected forest %+v", forest)
		}
	case <-ctx.Done():
		t.Fatalf("timed out waiting for update")
	}

	cancel()
	if err := <-done; err != nil {
		t.Fatalf("expected clean stop, got %v", err)
	}
}
