package migrate

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func TestDialectFor(t *testing.T) {
	require.Equal(t, DialectSQLite, DialectFor("sqlite"))
	require.Equal(t, DialectSQLite, DialectFor("sqlite3"))
	require.Equal(t, DialectPostgres, DialectFor("postgres"))
	require.Equal(t, DialectPostgres, DialectFor(""))
}

func TestRunRequiresDB(t *testing.T) {
	require.Error(t, Run(t.Context(), nil, DialectPostgres, DefaultDir, "up"))
}

func TestValidateDirAcceptsShippedMigrations(t *testing.T) {
	require.NoError(t, ValidateDir("migrations"))
}

func TestCreateSQLMigrationSanitizesName(t *testing.T) {
	dir := t.TempDir()
	path, err := CreateSQLMigration(dir, "Add Draft Index!")
	require.NoError(t, err)
	require.True(t, strings.HasSuffix(path, "_add_draft_index.sql"))
	require.NoError(t, ValidateDir(dir))

	_, err = CreateSQLMigration(dir, "!!!")
	require.Error(t, err)
}

func TestValidateDirRejectsBadFilename(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.sql"), []byte("-- +goose Up\n-- +goose Down\n"), 0o644))
	require.Error(t, ValidateDir(dir))
}

func TestCreateSQLMigrationBumpsCollidingVersion(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	first, err := createSQLMigration(dir, "first", now)
	require.NoError(t, err)
	second, err := createSQLMigration(dir, "second", now)
	require.NoError(t, err)

	require.Equal(t, "20260301090000_first.sql", filepath.Base(first))
	require.Equal(t, "20260301090001_second.sql", filepath.Base(second))
	require.NoError(t, ValidateDir(dir))
}

func TestValidateRejectsPostgresOnlySQL(t *testing.T) {
	cases := map[string]string{
		"extension": "CREATE EXTENSION IF NOT EXISTS pgcrypto;",
		"uuid fn":   "CREATE TABLE t (id uuid DEFAULT gen_random_uuid());",
		"cast":      "UPDATE drafts SET platforms = '[]'::jsonb;",
		"gin":       "CREATE INDEX idx ON drafts USING gin (platforms);",
	}
	for name, stmt := range cases {
		t.Run(name, func(t *testing.T) {
			fsys := fstest.MapFS{
				"20260301090000_bad.sql": {Data: []byte("-- +goose Up\n" + stmt + "\n-- +goose Down\nSELECT 1;\n")},
			}
			err := ValidateFS(fsys, ".")
			require.Error(t, err)
			require.Contains(t, err.Error(), "sqlite cannot run")
		})
	}
}

func TestValidateRejectsUnbalancedStatements(t *testing.T) {
	fsys := fstest.MapFS{
		"20260301090000_bad.sql": {Data: []byte("-- +goose Up\n-- +goose StatementBegin\nSELECT 1;\n-- +goose Down\nSELECT 1;\n")},
	}
	require.ErrorContains(t, ValidateFS(fsys, "."), "StatementEnd")
}

func TestEmbeddedMigrationsApplyOnSQLite(t *testing.T) {
	require.NoError(t, ValidateFS(Embedded(), EmbeddedDir))

	gdb, err := gorm.Open(sqlite.Open("file:"+uuid.NewString()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, Run(t.Context(), sqlDB, DialectFor(gdb.Dialector.Name()), EmbeddedDir, "up"))
	for _, table := range []string{"drafts", "pipeline_jobs", "pipeline_job_slots", "social_accounts", "published_posts"} {
		require.True(t, gdb.Migrator().HasTable(table), table)
	}

	require.NoError(t, MigrateToVersion(t.Context(), sqlDB, DialectSQLite, EmbeddedDir, "20260301090100"))
	require.True(t, gdb.Migrator().HasTable("pipeline_jobs"))
	require.False(t, gdb.Migrator().HasTable("published_posts"))
	require.False(t, gdb.Migrator().HasTable("social_accounts"))
}
