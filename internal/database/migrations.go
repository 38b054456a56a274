package database

import (
	"context"
	"os"
	"strings"

	"social-automator-api/db/migrations"

	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
)

// Querier is the subset of the pool used by the migration runner.
type Querier interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

// RunMigrations applies the embedded schema migrations when
// RUN_MIGRATIONS=true. Statements are idempotent (IF NOT EXISTS) so the
// runner is safe to execute on every boot.
func RunMigrations(ctx context.Context, db Querier, log *zap.Logger) error {
	run := os.Getenv("RUN_MIGRATIONS")
	if !strings.EqualFold(run, "true") {
		log.Info("skipping migrations (RUN_MIGRATIONS is not 'true')", zap.String("component", "migrations"))
		return nil
	}

	log.Info("running database migrations", zap.String("component", "migrations"))

	migrationSteps := []struct {
		name  string
		query string
	}{
		{"initial schema", migrations.InitialSchemaUp},
		{"dispatch indexes", migrations.DispatchIndexesUp},
	}

	for _, step := range migrationSteps {
		if _, err := db.Exec(ctx, step.query); err != nil {
			log.Error(step.name+" migration failed", zap.Error(err))
			return err
		}
		log.Info(step.name+" migration applied", zap.String("component", "migrations"))
	}

	return nil
}
