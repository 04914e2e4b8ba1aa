package testsupport

import (
	"testing"

	"slowjams/internal/config"
	"slowjams/internal/queue"
)

// MustOpenJournal opens a queue journal in the config's state directory
// and registers cleanup.
func MustOpenJournal(t testing.TB, cfg *config.Config) *queue.Journal {
	t.Helper()

	journal, err := queue.OpenJournal(cfg.Paths.StateDir)
	if err != nil {
		t.Fatalf("queue.OpenJournal: %v", err)
	}
	t.Cleanup(func() {
		_ = journal.Close()
	})
	return journal
}
