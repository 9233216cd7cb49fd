package integration

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	_ "github.com/lib/pq"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	handler "github.com/vncsmyrnk/livepoll/internal/adapters/handler/http"
	"github.com/vncsmyrnk/livepoll/internal/adapters/realtime"
	repo "github.com/vncsmyrnk/livepoll/internal/adapters/repository/postgres"
	"github.com/vncsmyrnk/livepoll/internal/core/ports"
	"github.com/vncsmyrnk/livepoll/internal/core/services"
)

func setupPostgresContainer(ctx context.Context) (testcontainers.Container, string, error) {
	dbName := "testdb"
	user := "user"
	password := "password"

	pgContainer, err := postgres.Run(ctx, "postgres:15-alpine",
		postgres.WithDatabase(dbName),
		postgres.WithUsername(user),
		postgres.WithPassword(password),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		return nil, "", fmt.Errorf("failed to start postgres container: %w", err)
	}

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		return nil, "", err
	}

	return pgContainer, connStr, nil
}

type TestApp struct {
	DB          *sql.DB
	Server      *httptest.Server
	Client      *http.Client
	Hub         *realtime.Hub
	VoteRepo    ports.VoteRepository
	AuditSvc    ports.AuditService
	DBContainer testcontainers.Container
}

func setupTestApp(t *testing.T) *TestApp {
	t.Helper()
	ctx := context.Background()

	dbContainer, dbURL, err := setupPostgresContainer(ctx)
	require.NoError(t, err)

	db, err := sql.Open("postgres", dbURL)
	require.NoError(t, err)

	require.NoError(t, repo.Migrate(ctx, db))
	// running them twice must be harmless
	require.NoError(t, repo.Migrate(ctx, db))

	pollRepo := repo.NewPollRepository(db)
	voteRepo := repo.NewVoteRepository(db)
	tallyRepo := repo.NewTallyRepository(db)

	hub := realtime.NewHub(nil)
	pollSvc := services.NewPollService(pollRepo)
	voteSvc := services.NewVoteService(voteRepo, hub, nil)
	auditSvc := services.NewAuditService(tallyRepo)

	resolver := handler.AddressResolver{TrustForwardedFor: true}
	router := handler.NewHandler(
		handler.NewPollHandler(pollSvc),
		handler.NewVoteHandler(voteSvc, resolver),
		realtime.NewHandler(hub, pollSvc, []string{"*"}, nil),
		handler.RouterConfig{Resolver: resolver},
	)

	server := httptest.NewServer(router)

	return &TestApp{
		DB:          db,
		Server:      server,
		Client:      server.Client(),
		Hub:         hub,
		VoteRepo:    voteRepo,
		AuditSvc:    auditSvc,
		DBContainer: dbContainer,
	}
}

func (app *TestApp) Teardown(t *testing.T) {
	app.Hub.DisconnectAll()
	app.Server.Close()
	app.DB.Close()
	if err := app.DBContainer.Terminate(context.Background()); err != nil {
		t.Logf("failed to terminate container: %v", err)
	}
}
