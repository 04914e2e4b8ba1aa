package queue_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"slowjams/internal/media"
	"slowjams/internal/queue"
)

func openJournal(t *testing.T) *queue.Journal {
	t.Helper()
	journal, err := queue.OpenJournal(t.TempDir())
	if err != nil {
		t.Fatalf("OpenJournal: %v", err)
	}
	t.Cleanup(func() {
		_ = journal.Close()
	})
	return journal
}

func TestOpenJournalCreatesDatabaseFile(t *testing.T) {
	stateDir := filepath.Join(t.TempDir(), "nested", "state")
	journal, err := queue.OpenJournal(stateDir)
	if err != nil {
		t.Fatalf("OpenJournal: %v", err)
	}
	defer journal.Close()

	if journal.Path() != filepath.Join(stateDir, queue.JournalFileName) {
		t.Fatalf("unexpected path: %s", journal.Path())
	}
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	journal := openJournal(t)
	ctx := context.Background()

	store := queue.NewStore()
	base := time.Now().Add(-time.Minute).UTC()

	convertOpts := media.DefaultConvertOptions()
	processOpts := media.SlowJamPreset()
	store.Put(&queue.Task{
		ID:             "pending-1",
		Kind:           queue.KindComposite,
		CreatedAt:      base,
		Priority:       5,
		URL:            "https://example.com/watch?v=1",
		DownloadFormat: "bestaudio",
		ConvertOptions: &convertOpts,
		ProcessOptions: &processOpts,
		Status:         queue.StatusPending,
	})
	store.Put(&queue.Task{
		ID:        "done-1",
		Kind:      queue.KindDownload,
		CreatedAt: base.Add(time.Second),
		URL:       "https://example.com/watch?v=2",
		Status:    queue.StatusPending,
	})
	store.MarkRunning("done-1")
	store.StoreResult("done-1", queue.ResultDownload, "/tmp/v2.mp4")
	store.Complete("done-1")

	if err := journal.Save(ctx, store.SnapshotAll()); err != nil {
		t.Fatalf("Save: %v", err)
	}

	tasks, err := journal.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(tasks) != 2 {
		t.Fatalf("expected 2 tasks, got %d", len(tasks))
	}

	first := tasks[0]
	if first.ID != "pending-1" {
		t.Fatalf("unexpected order, got %s first", first.ID)
	}
	if first.Status != queue.StatusPending || first.Priority != 5 {
		t.Fatalf("pending task state lost: %+v", first)
	}
	if first.ConvertOptions == nil || first.ConvertOptions.Format != media.FormatMP3 {
		t.Fatalf("convert options lost: %+v", first.ConvertOptions)
	}
	if first.ProcessOptions == nil || first.ProcessOptions.SlowFactor != 0.8 {
		t.Fatalf("process options lost: %+v", first.ProcessOptions)
	}
	if !first.CreatedAt.Equal(base) {
		t.Fatalf("creation time drifted: %s vs %s", first.CreatedAt, base)
	}

	second := tasks[1]
	if second.Status != queue.StatusCompleted {
		t.Fatalf("unexpected status: %s", second.Status)
	}
	if second.Results[queue.ResultDownload] != "/tmp/v2.mp4" {
		t.Fatalf("results lost: %+v", second.Results)
	}
	if second.OutputPath != "/tmp/v2.mp4" {
		t.Fatalf("output path lost: %q", second.OutputPath)
	}
	if second.StartedAt == nil || second.FinishedAt == nil {
		t.Fatal("timestamps lost")
	}
}

func TestSaveReplacesPreviousContents(t *testing.T) {
	journal := openJournal(t)
	ctx := context.Background()

	store := queue.NewStore()
	store.Put(&queue.Task{ID: "a", Kind: queue.KindDownload, CreatedAt: time.Now(), Status: queue.StatusPending})
	if err := journal.Save(ctx, store.SnapshotAll()); err != nil {
		t.Fatalf("first save: %v", err)
	}

	store.Remove("a")
	store.Put(&queue.Task{ID: "b", Kind: queue.KindDownload, CreatedAt: time.Now(), Status: queue.StatusPending})
	if err := journal.Save(ctx, store.SnapshotAll()); err != nil {
		t.Fatalf("second save: %v", err)
	}

	tasks, err := journal.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(tasks) != 1 || tasks[0].ID != "b" {
		t.Fatalf("save did not replace contents: %+v", tasks)
	}
}

func TestSaveEmptySnapshotClearsJournal(t *testing.T) {
	journal := openJournal(t)
	ctx := context.Background()

	store := queue.NewStore()
	store.Put(&queue.Task{ID: "a", Kind: queue.KindDownload, CreatedAt: time.Now(), Status: queue.StatusPending})
	if err := journal.Save(ctx, store.SnapshotAll()); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := journal.Save(ctx, nil); err != nil {
		t.Fatalf("clear: %v", err)
	}

	tasks, err := journal.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(tasks) != 0 {
		t.Fatalf("expected empty journal, got %d tasks", len(tasks))
	}
}

func TestJournalSurvivesReopen(t *testing.T) {
	stateDir := t.TempDir()
	ctx := context.Background()

	journal, err := queue.OpenJournal(stateDir)
	if err != nil {
		t.Fatalf("OpenJournal: %v", err)
	}
	store := queue.NewStore()
	store.Put(&queue.Task{ID: "persisted", Kind: queue.KindProcess, CreatedAt: time.Now(), InputPath: "/tmp/in.mp3", Status: queue.StatusPending})
	if err := journal.Save(ctx, store.SnapshotAll()); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := journal.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	reopened, err := queue.OpenJournal(stateDir)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()

	tasks, err := reopened.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(tasks) != 1 || tasks[0].ID != "persisted" || tasks[0].InputPath != "/tmp/in.mp3" {
		t.Fatalf("journal contents lost across reopen: %+v", tasks)
	}
}
