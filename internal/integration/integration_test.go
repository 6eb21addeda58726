package integration

import (
	"context"
	"fmt"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/LLIu33/swot/internal/app"
	"github.com/LLIu33/swot/internal/cli"
	"github.com/LLIu33/swot/internal/domain"
	"github.com/LLIu33/swot/internal/infra/postgres"
	infraredis "github.com/LLIu33/swot/internal/infra/redis"
	"github.com/LLIu33/swot/internal/topics"
	transport "github.com/LLIu33/swot/internal/transport/http"
	"github.com/jackc/pgx/v4/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func TestTopicLifecycleEndToEnd(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()
	redisURL, redisCleanup := startRedis(t, ctx)
	defer redisCleanup()

	if err := cli.RunMigrations(ctx, pgURL, slog.Default()); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	// a second run finds nothing to do
	if err := cli.RunMigrations(ctx, pgURL, slog.Default()); err != nil {
		t.Fatalf("migrate again: %v", err)
	}

	pool, err := pgxpool.Connect(ctx, pgURL)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	defer pool.Close()
	pgStore := postgres.NewTopicStore(pool)

	redisClient, err := redisClientFromURL(redisURL)
	if err != nil {
		t.Fatalf("redis client: %v", err)
	}
	defer redisClient.Close()

	service := app.NewTopicService(infraredis.NewTopicStore(redisClient, pgStore, 5*time.Minute))
	server := httptest.NewServer(transport.NewRouter(service, nil, nil))
	defer server.Close()

	client := transport.NewClient(server.URL)
	dialogs := &yesDialogs{}
	scheduler := &topics.QueueScheduler{}
	controller := topics.NewController(client, dialogs, scheduler)

	branch, err := controller.Add(ctx, "")
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	geo := branch.Data
	if geo.Name != topics.DefaultTopicName {
		t.Fatalf("expected default name, got %q", geo.Name)
	}
	if err := controller.Rename(ctx, geo, "Geography"); err != nil {
		t.Fatalf("rename: %v", err)
	}
	if branch.Label != "Geography" {
		t.Fatalf("expected relabelled branch, got %q", branch.Label)
	}

	rivers, err := client.CreateSubtopic(ctx, "Rivers", geo.ID)
	if err != nil {
		t.Fatalf("create subtopic: %v", err)
	}
	quizzes := []domain.Quiz{
		{ID: "quiz-geo", TopicID: geo.ID, Name: "Flags", Questions: []domain.Question{{Question: "Red and white?", Answer: "Poland"}}},
		{ID: "quiz-rivers", TopicID: rivers.ID, Name: "Longest", Questions: []domain.Question{{Question: "Longest river?", Answer: "Nile"}}},
	}
	for _, quiz := range quizzes {
		if err := pgStore.PutQuiz(ctx, quiz); err != nil {
			t.Fatalf("put quiz %s: %v", quiz.ID, err)
		}
	}

	// reload through the cached store
	if err := controller.Load(ctx); err != nil {
		t.Fatalf("load: %v", err)
	}
	var outline strings.Builder
	if err := controller.Tree().Render(&outline); err != nil {
		t.Fatalf("render: %v", err)
	}
	want := fmt.Sprintf("- Geography [%s]\n  - Rivers [%s]\n", geo.ID, rivers.ID)
	if outline.String() != want {
		t.Fatalf("unexpected outline:\n%s\nwant:\n%s", outline.String(), want)
	}

	root, ok := controller.Tree().FindTopic(geo.ID)
	if !ok {
		t.Fatalf("geography branch missing after load")
	}
	if err := controller.Delete(ctx, root.Data, root); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if len(controller.Tree().Roots()) != 0 {
		t.Fatalf("expected empty tree after delete")
	}

	forest, err := client.ListTopics(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(forest) != 0 {
		t.Fatalf("expected cascade to remove subtopics, got %+v", forest)
	}
	for _, topicID := range []string{geo.ID, rivers.ID} {
		n, err := pgStore.QuizCount(ctx, topicID)
		if err != nil {
			t.Fatalf("quiz count: %v", err)
		}
		if n != 0 {
			t.Fatalf("expected quizzes of %s deleted, got %d", topicID, n)
		}
	}
	if len(dialogs.alerts) != 1 || dialogs.alerts[0] != "The topic has been successfully deleted." {
		t.Fatalf("unexpected alerts %v", dialogs.alerts)
	}
}

type yesDialogs struct {
	alerts []string
}

func (d *yesDialogs) Confirm(context.Context, string) bool { return true }

func (d *yesDialogs) Alert(_ context.Context, message string) {
	d.alerts = append(d.alerts, message)
}

func startPostgres(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "postgres:15-alpine",
		Env:          map[string]string{"POSTGRES_USER": "swot", "POSTGRES_PASSWORD": "swotpass", "POSTGRES_DB": "swot"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start postgres: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatalf("port: %v", err)
	}
	dsn := fmt.Sprintf("postgres://swot:swotpass@%s:%s/swot?sslmode=disable", host, port.Port())
	return dsn, func() {
		_ = container.Terminate(ctx)
	}
}

func startRedis(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(30 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start redis: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("redis host: %v", err)
	}
	port, err := container.MappedPort(ctx, "6379/tcp")
	if err != nil {
		t.Fatalf("redis port: %v", err)
	}
	url := fmt.Sprintf("redis://%s:%s", host, port.Port())
	return url, func() {
		_ = container.Terminate(ctx)
	}
}

func redisClientFromURL(url string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return goredis.NewClient(opts), nil
}

func requireDocker(t *testing.T) {
	t.Helper()
	if _, err := tc.NewDockerProvider(); err != nil {
		t.Skipf("docker not available: %v", err)
	}
}
