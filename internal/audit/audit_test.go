package audit

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// setupTestDB starts a postgres container, applies the migrations and returns a pool
func setupTestDB(t *testing.T) *pgxpool.Pool {
	t.Helper()
	ctx := context.Background()

	postgresContainer, err := postgres.Run(ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("raredx_test"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := postgresContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %s", err)
		}
	})

	connString, err := postgresContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	require.NoError(t, Migrate(connString, zap.NewNop()))
	// a second run is a no-op
	require.NoError(t, Migrate(connString, zap.NewNop()))

	pool, err := pgxpool.New(ctx, connString)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	return pool
}

func TestLogger_Record_WithoutDatabase(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	l := NewLogger(nil, zap.New(core))

	err := l.Record(context.Background(), Entry{
		OperationType: OperationSubmit,
		ResourceType:  ResourceDiagnosis,
		ResourceID:    "Ada_20240101_120000",
	})
	require.NoError(t, err)

	entries := logs.FilterMessage("audit log entry").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "SUBMIT", fields["operation"])
	assert.Equal(t, "diagnosis", fields["resource_type"])
	assert.Equal(t, "success", fields["outcome"])
	assert.NotEmpty(t, fields["audit_id"])

	_, err = l.Recent(context.Background(), ResourceDiagnosis, 10)
	assert.Error(t, err)
}

func TestMigrationURL(t *testing.T) {
	assert.Equal(t, "pgx5://u:p@db:5432/x?sslmode=disable", migrationURL("postgres://u:p@db:5432/x?sslmode=disable"))
	assert.Equal(t, "pgx5://u@db/x", migrationURL("postgresql://u@db/x"))
	assert.Equal(t, "pgx5://already", migrationURL("pgx5://already"))
}

func TestLogger_Postgres(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	pool := setupTestDB(t)
	l := NewLogger(pool, zap.NewNop())
	ctx := context.Background()

	base := time.Now().UTC().Truncate(time.Millisecond)
	require.NoError(t, l.Record(ctx, Entry{
		OperationType:  OperationSubmit,
		ResourceType:   ResourceDiagnosis,
		ResourceID:     "first",
		Timestamp:      base.Add(-time.Minute),
		IPAddress:      "10.0.0.1",
		UserAgent:      "test",
		AdditionalData: map[string]any{"candidates": 3},
	}))
	require.NoError(t, l.Record(ctx, Entry{
		OperationType: OperationSubmit,
		ResourceType:  ResourceDiagnosis,
		ResourceID:    "second",
		Outcome:       OutcomeFailure,
		Timestamp:     base,
	}))
	require.NoError(t, l.Record(ctx, Entry{
		OperationType: OperationCreate,
		ResourceType:  ResourceIntakeSession,
		ResourceID:    "session",
	}))

	entries, err := l.Recent(ctx, ResourceDiagnosis, 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, "second", entries[0].ResourceID)
	assert.Equal(t, OutcomeFailure, entries[0].Outcome)
	assert.Equal(t, "first", entries[1].ResourceID)
	assert.Equal(t, OutcomeSuccess, entries[1].Outcome)
	assert.Equal(t, "10.0.0.1", entries[1].IPAddress)
	assert.EqualValues(t, 3, entries[1].AdditionalData["candidates"])

	limited, err := l.Recent(ctx, ResourceDiagnosis, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}
