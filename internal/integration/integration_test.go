package integration

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"trivia-service/internal/app"
	"trivia-service/internal/domain"
	"trivia-service/internal/infra/memory"
	"trivia-service/internal/infra/postgres"
	infraredis "trivia-service/internal/infra/redis"
	"trivia-service/internal/logging"
)

func TestRoundEndToEnd(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()
	redisURL, redisCleanup := startRedis(t, ctx)
	defer redisCleanup()

	if _, err := postgres.Migrate(ctx, pgURL); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	pool, err := pgxpool.Connect(ctx, pgURL)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	defer pool.Close()

	store := postgres.NewStore(pool)
	if _, err := store.AddQuestions(ctx, []domain.Question{
		{Category: "CAPITALS", Prompt: "This city on the Seine is the capital of France", Answer: "Paris", Value: 400, ShowNumber: 4680},
	}); err != nil {
		t.Fatalf("add questions: %v", err)
	}

	redisClient, err := redisClientFromURL(redisURL)
	if err != nil {
		t.Fatalf("redis client: %v", err)
	}
	local, err := memory.NewNameDirectory(16)
	if err != nil {
		t.Fatalf("local names: %v", err)
	}
	names := infraredis.NewNameDirectory(redisClient, local, 5*time.Minute)
	if err := names.Remember(ctx, "u2", "Bob"); err != nil {
		t.Fatalf("remember: %v", err)
	}

	var posts []domain.QuestionPost
	engine, err := app.NewEngine(ctx, store, app.Options{Platform: "websocket"}, app.Handlers{
		PostQuestion: func(p domain.QuestionPost) { posts = append(posts, p) },
		DisplayName:  app.DisplayNameFunc(names, logging.DefaultLogger()),
	})
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	if err := engine.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}

	if err := engine.HandleMessage(ctx, "u1", "Berlin", nil, nil); err != nil {
		t.Fatalf("wrong attempt: %v", err)
	}
	if err := engine.HandleMessage(ctx, "u2", "Paris", nil, nil); err != nil {
		t.Fatalf("correct attempt: %v", err)
	}

	if len(posts) != 2 || posts[1].WinningUser == nil {
		t.Fatalf("expected a second question with winner stats, got %+v", posts)
	}
	if w := posts[1].WinningUser; w.Name != "Bob" || w.Score != 400 || w.Correct != 1 {
		t.Fatalf("unexpected winner %+v", w)
	}

	scores, err := store.AggregateScores(ctx, domain.ScoreQuery{Platform: "websocket", Start: time.Unix(0, 0)})
	if err != nil {
		t.Fatalf("aggregate: %v", err)
	}
	if len(scores) != 1 || scores[0].UID != "u2" {
		t.Fatalf("expected bob leading, got %+v", scores)
	}

	// A restarted engine picks up the round left open above.
	restarted, err := app.NewEngine(ctx, store, app.Options{Platform: "websocket"}, app.Handlers{})
	if err != nil {
		t.Fatalf("restart: %v", err)
	}
	if q, ok := restarted.CurrentQuestion(); !ok || q.Answer != "Paris" {
		t.Fatalf("expected restored round, got %+v ok=%v", q, ok)
	}
}

func startPostgres(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "postgres:15-alpine",
		Env:          map[string]string{"POSTGRES_USER": "trivia", "POSTGRES_PASSWORD": "triviapass", "POSTGRES_DB": "triviadb"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor:   wait.ForListeningPort("5432/tcp").WithStartupTimeout(60 * time.Second),
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
	dsn := fmt.Sprintf("postgres://trivia:triviapass@%s:%s/triviadb?sslmode=disable", host, port.Port())
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
