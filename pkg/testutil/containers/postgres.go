//go:build integration

package containers

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"slices"
	"testing"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"beneficiary/migrations"
	id "beneficiary/pkg/domain"
)

// PostgresContainer wraps a testcontainers Postgres instance.
type PostgresContainer struct {
	Container testcontainers.Container
	DSN       string
	DB        *sql.DB
}

// NewPostgresContainer starts Postgres and applies the profile schema.
func NewPostgresContainer(t *testing.T) *PostgresContainer {
	t.Helper()

	ctx := context.Background()

	container, err := postgres.Run(ctx,
		"postgres:18-alpine",
		postgres.WithDatabase("beneficiary_test"),
		postgres.WithUsername("beneficiary"),
		postgres.WithPassword("beneficiary_test_password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		_ = container.Terminate(ctx)
		t.Fatalf("failed to get postgres connection string: %v", err)
	}

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		_ = container.Terminate(ctx)
		t.Fatalf("failed to connect to postgres: %v", err)
	}

	pc := &PostgresContainer{
		Container: container,
		DSN:       dsn,
		DB:        db,
	}

	if err := pc.runMigrations(ctx); err != nil {
		_ = db.Close()
		_ = container.Terminate(ctx)
		t.Fatalf("failed to run migrations: %v", err)
	}

	return pc
}

// runMigrations applies the embedded *.up.sql files in name order.
func (p *PostgresContainer) runMigrations(ctx context.Context) error {
	files, err := fs.Glob(migrations.FS, "*.up.sql")
	if err != nil {
		return fmt.Errorf("list migrations: %w", err)
	}
	slices.Sort(files)

	for _, file := range files {
		content, err := fs.ReadFile(migrations.FS, file)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", file, err)
		}
		if _, err := p.DB.ExecContext(ctx, string(content)); err != nil {
			return fmt.Errorf("execute migration %s: %w", file, err)
		}
	}
	return nil
}

// TruncateAll empties the profile tables, children first.
func (p *PostgresContainer) TruncateAll(ctx context.Context) error {
	_, err := p.DB.ExecContext(ctx, "TRUNCATE TABLE user_docs, user_info, users CASCADE")
	return err
}

// QueryRow reads back a single row for assertions.
func (p *PostgresContainer) QueryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return p.DB.QueryRowContext(ctx, query, args...)
}

// CreateTestUser inserts a users row with the given names and returns its ID.
func (p *PostgresContainer) CreateTestUser(ctx context.Context, t testing.TB, firstName, lastName string) id.UserID {
	t.Helper()
	userID := id.NewUserID()
	_, err := p.DB.ExecContext(ctx, `
		INSERT INTO users (user_id, first_name, last_name, email, created_at, updated_at)
		VALUES ($1, NULLIF($2, ''), NULLIF($3, ''), $4, NOW(), NOW())
	`, uuid.UUID(userID), firstName, lastName, "test-"+uuid.NewString()+"@example.com")
	if err != nil {
		t.Fatalf("CreateTestUser: %v", err)
	}
	return userID
}

// CreateTestDocument inserts a user_docs row holding data as-is and returns its ID.
func (p *PostgresContainer) CreateTestDocument(ctx context.Context, t testing.TB, userID id.UserID, subtype, data string, verified bool, uploadedAt time.Time) id.DocumentID {
	t.Helper()
	docID := id.NewDocumentID()
	_, err := p.DB.ExecContext(ctx, `
		INSERT INTO user_docs (doc_id, user_id, doc_type, doc_subtype, doc_name, imported_from,
			doc_data, doc_datatype, verification_result, uploaded_at)
		VALUES ($1, $2, $3, $4, $4, 'Digilocker', $5, 'Application/JSON', $6, $7)
	`, uuid.UUID(docID), uuid.UUID(userID), "document", subtype, data, verified, uploadedAt)
	if err != nil {
		t.Fatalf("CreateTestDocument: %v", err)
	}
	return docID
}
