package migrate_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func readMigration(t *testing.T, pattern string) string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join("migrations", pattern))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) == 0 {
		t.Fatalf("no migration file matches %s", pattern)
	}
	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	return string(data)
}

func TestPipelineMigrationBoundsRetries(t *testing.T) {
	content := readMigration(t, "*_create_pipeline_jobs.sql")

	checks := []string{
		"CREATE TABLE IF NOT EXISTS pipeline_jobs",
		"CREATE TABLE IF NOT EXISTS pipeline_job_slots",
		"CHECK (retry_count >= 0 AND retry_count <= max_retries)",
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_pipeline_job_slot ON pipeline_job_slots (job_id, generator_type)",
		"DROP TABLE IF EXISTS pipeline_job_slots",
	}
	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestPublishedPostsMigrationUniquePlatformID(t *testing.T) {
	content := readMigration(t, "*_create_published_posts.sql")

	checks := []string{
		"CREATE TABLE IF NOT EXISTS published_posts",
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_published_posts_platform_post_id",
		"deleted_at timestamptz NULL",
		"DROP TABLE IF EXISTS published_posts",
	}
	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestDraftsMigrationStatusCheck(t *testing.T) {
	content := readMigration(t, "*_create_drafts.sql")
	if !strings.Contains(content, "CHECK (status IN ('draft', 'processing', 'ready', 'scheduled', 'published', 'failed'))") {
		t.Error("drafts migration missing status check")
	}
	if !strings.Contains(content, "idx_drafts_status_scheduled_at") {
		t.Error("drafts migration missing due-selection index")
	}
}
