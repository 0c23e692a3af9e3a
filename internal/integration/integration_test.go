package integration

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/migrate"

	"smart-quiz-service/internal/app"
	"smart-quiz-service/internal/domain"
	pgstore "smart-quiz-service/internal/infra/postgres"
	"smart-quiz-service/internal/infra/postgres/migrations"
	infraredis "smart-quiz-service/internal/infra/redis"
)

func TestQuizLifecycleEndToEnd(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()
	redisURL, redisCleanup := startRedis(t, ctx)
	defer redisCleanup()

	migrateSchema(t, ctx, pgURL)

	pool, err := pgxpool.Connect(ctx, pgURL)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	defer pool.Close()
	store := pgstore.NewStore(pool)

	redisClient, err := redisClientFromURL(redisURL)
	if err != nil {
		t.Fatalf("redis client: %v", err)
	}
	registry := infraredis.NewSessionRegistry(redisClient, 5*time.Minute)

	category, err := store.CreateCategory(ctx, domain.Category{Name: "Geography", Description: "capitals"})
	if err != nil {
		t.Fatalf("create category: %v", err)
	}

	importer := app.NewImporter(store, 0)
	outcome, err := importer.Import(ctx, category.ID, []app.RawRow{
		{"question_text": "Capital of France?", "option_a": "Paris", "option_b": "Rome", "option_c": "Berlin", "option_d": "Madrid", "correct_answer": "A", "difficulty": "easy"},
		{"question_text": "Capital of Japan?", "option_a": "Seoul", "option_b": "Tokyo", "option_c": "Beijing", "option_d": "Osaka", "correct_answer": "B"},
		{"question_text": "broken row", "option_a": "", "option_b": "x", "option_c": "y", "option_d": "z", "correct_answer": "A"},
	})
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if outcome.SuccessfulImports != 2 || outcome.FailedImports != 1 {
		t.Fatalf("unexpected outcome %+v", outcome)
	}
	if len(outcome.Errors) != 1 || outcome.Errors[0].Row != 3 {
		t.Fatalf("expected row 3 flagged, got %+v", outcome.Errors)
	}

	engine := app.NewEngine(store, registry)
	session, err := engine.Start(ctx, "Alice", 30, category.ID, 2)
	if err != nil {
		t.Fatalf("start session: %v", err)
	}
	if err := engine.SubmitAnswer(session, "A"); err != nil {
		t.Fatalf("answer 1: %v", err)
	}
	if err := engine.SubmitAnswer(session, "C"); err != nil {
		t.Fatalf("answer 2: %v", err)
	}
	result, err := engine.Complete(ctx, session)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if result.Score != 50 || result.CorrectCount != 1 || result.WrongCount != 1 {
		t.Fatalf("unexpected result %+v", result)
	}

	stored, err := store.ListResults(ctx, domain.ResultFilter{UserName: "Alice"})
	if err != nil {
		t.Fatalf("list results: %v", err)
	}
	if len(stored) != 1 || stored[0].Score != 50 || stored[0].CategoryID != category.ID {
		t.Fatalf("expected persisted result, got %+v", stored)
	}

	analytics := app.NewAnalytics(store)
	stats, err := analytics.CategoryAnalytics(ctx, category.ID)
	if err != nil {
		t.Fatalf("analytics: %v", err)
	}
	if stats.TotalAttempts != 1 || stats.AverageScore != 50 || stats.CategoryName != "Geography" {
		t.Fatalf("unexpected stats %+v", stats)
	}

	// Deleting the category cascades to its questions and results.
	if err := store.DeleteCategory(ctx, category.ID); err != nil {
		t.Fatalf("delete category: %v", err)
	}
	questions, err := store.ListQuestions(ctx, category.ID, 0)
	if err != nil {
		t.Fatalf("list questions: %v", err)
	}
	if len(questions) != 0 {
		t.Fatalf("expected cascade delete, got %d questions", len(questions))
	}
}

func TestRateWindowAgainstRealRedis(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	redisURL, cleanup := startRedis(t, ctx)
	defer cleanup()

	client, err := redisClientFromURL(redisURL)
	if err != nil {
		t.Fatalf("redis client: %v", err)
	}
	window := infraredis.NewRateWindow(client)

	for i := 0; i < 5; i++ {
		allowed, err := window.Allow(ctx, "speech", 5, time.Minute)
		if err != nil {
			t.Fatalf("allow %d: %v", i+1, err)
		}
		if !allowed {
			t.Fatalf("call %d unexpectedly denied", i+1)
		}
	}
	allowed, err := window.Allow(ctx, "speech", 5, time.Minute)
	if err != nil {
		t.Fatalf("allow: %v", err)
	}
	if allowed {
		t.Fatalf("expected 6th call denied")
	}
}

func migrateSchema(t *testing.T, ctx context.Context, dsn string) {
	t.Helper()
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	db := bun.NewDB(sqldb, pgdialect.New())
	defer db.Close()

	migrator := migrate.NewMigrator(db, migrations.Migrations)
	if err := migrator.Init(ctx); err != nil {
		t.Fatalf("migrator init: %v", err)
	}
	if _, err := migrator.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}
}

func startPostgres(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "postgres:15-alpine",
		Env:          map[string]string{"POSTGRES_USER": "quiz", "POSTGRES_PASSWORD": "quizpass", "POSTGRES_DB": "quizdb"},
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
	dsn := fmt.Sprintf("postgres://quiz:quizpass@%s:%s/quizdb?sslmode=disable", host, port.Port())
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
	return goredis.NewClient(&goredis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	}), nil
}

func requireDocker(t *testing.T) {
	t.Helper()
	if _, err := tc.NewDockerProvider(); err != nil {
		t.Skipf("docker not available: %v", err)
	}
}
