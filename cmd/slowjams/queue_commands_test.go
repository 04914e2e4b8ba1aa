package main

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestAddAndQueueList(t *testing.T) {
	env := setupCLITestEnv(t)

	out, err := runCLI(t, []string{"add", "https://example.com/watch?v=abc"}, env.configPath)
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	requireContains(t, out, "Queued composite task")

	out, err = runCLI(t, []string{"queue", "list"}, env.configPath)
	if err != nil {
		t.Fatalf("queue list: %v", err)
	}
	requireContains(t, out, "https://example.com/watch?v=abc")
	requireContains(t, out, "pending")

	out, err = runCLI(t, []string{"queue", "status"}, env.configPath)
	if err != nil {
		t.Fatalf("queue status: %v", err)
	}
	requireContains(t, out, "pending")
	requireContains(t, out, "1")
}

func TestAddRejectsMissingInputFile(t *testing.T) {
	env := setupCLITestEnv(t)

	if _, err := runCLI(t, []string{"add", "/no/such/file.mp3"}, env.configPath); err == nil {
		t.Fatal("expected add of missing file to fail")
	}

	out, err := runCLI(t, []string{"queue", "list"}, env.configPath)
	if err != nil {
		t.Fatalf("queue list: %v", err)
	}
	requireContains(t, out, "Queue is empty")
}

func TestQueueListJSON(t *testing.T) {
	env := setupCLITestEnv(t)

	if _, err := runCLI(t, []string{"add", "--priority", "7", "https://example.com/a"}, env.configPath); err != nil {
		t.Fatalf("add: %v", err)
	}

	out, err := runCLI(t, []string{"queue", "list", "--json"}, env.configPath)
	if err != nil {
		t.Fatalf("queue list --json: %v", err)
	}

	var items []map[string]any
	if err := json.Unmarshal([]byte(out), &items); err != nil {
		t.Fatalf("parse JSON output: %v\n%s", err, out)
	}
	if len(items) != 1 {
		t.Fatalf("expected one item, got %d", len(items))
	}
	if items[0]["kind"] != "composite" || items[0]["status"] != "pending" {
		t.Fatalf("unexpected item: %+v", items[0])
	}
	if items[0]["priority"] != float64(7) {
		t.Fatalf("priority not recorded: %+v", items[0])
	}
}

func TestQueueCancelAndRetry(t *testing.T) {
	env := setupCLITestEnv(t)

	if _, err := runCLI(t, []string{"add", "https://example.com/a"}, env.configPath); err != nil {
		t.Fatalf("add: %v", err)
	}
	id := firstTaskID(t, env)

	out, err := runCLI(t, []string{"queue", "cancel", id}, env.configPath)
	if err != nil {
		t.Fatalf("queue cancel: %v", err)
	}
	requireContains(t, out, "cancelled")

	// Cancelling again must fail; the task is already terminal.
	if _, err := runCLI(t, []string{"queue", "cancel", id}, env.configPath); err == nil {
		t.Fatal("expected second cancel to fail")
	}

	out, err = runCLI(t, []string{"queue", "retry", id}, env.configPath)
	if err != nil {
		t.Fatalf("queue retry: %v", err)
	}
	requireContains(t, out, "resubmitted as")

	// The cancelled record stays terminal; the retry is a new pending task.
	out, err = runCLI(t, []string{"queue", "show", id}, env.configPath)
	if err != nil {
		t.Fatalf("queue show: %v", err)
	}
	requireContains(t, out, "cancelled")

	out, err = runCLI(t, []string{"queue", "list", "--status", "pending", "--json"}, env.configPath)
	if err != nil {
		t.Fatalf("queue list: %v", err)
	}
	var pending []struct {
		ID  string `json:"id"`
		URL string `json:"url"`
	}
	if err := json.Unmarshal([]byte(out), &pending); err != nil {
		t.Fatalf("parse JSON output: %v\n%s", err, out)
	}
	if len(pending) != 1 {
		t.Fatalf("expected one pending task, got %d", len(pending))
	}
	if pending[0].ID == id {
		t.Fatal("retry reused the cancelled task's id")
	}
	if pending[0].URL != "https://example.com/a" {
		t.Fatalf("retry did not carry the source URL: %q", pending[0].URL)
	}
}

func TestQueuePriorityAndIDPrefix(t *testing.T) {
	env := setupCLITestEnv(t)

	if _, err := runCLI(t, []string{"add", "https://example.com/a"}, env.configPath); err != nil {
		t.Fatalf("add: %v", err)
	}
	id := firstTaskID(t, env)

	// Commands accept an unambiguous ID prefix.
	out, err := runCLI(t, []string{"queue", "priority", id[:8], "5"}, env.configPath)
	if err != nil {
		t.Fatalf("queue priority: %v", err)
	}
	requireContains(t, out, "priority set to 5")

	out, err = runCLI(t, []string{"queue", "show", id}, env.configPath)
	if err != nil {
		t.Fatalf("queue show: %v", err)
	}
	requireContains(t, out, "Priority: 5")

	if _, err := runCLI(t, []string{"queue", "priority", id, "x"}, env.configPath); err == nil {
		t.Fatal("expected non-numeric priority to fail")
	}
}

func TestQueueRemoveAndClear(t *testing.T) {
	env := setupCLITestEnv(t)

	if _, err := runCLI(t, []string{"add", "https://example.com/a", "https://example.com/b"}, env.configPath); err != nil {
		t.Fatalf("add: %v", err)
	}
	id := firstTaskID(t, env)

	out, err := runCLI(t, []string{"queue", "remove", id}, env.configPath)
	if err != nil {
		t.Fatalf("queue remove: %v", err)
	}
	requireContains(t, out, "removed")

	// Clear only touches terminal tasks; the remaining one is pending.
	out, err = runCLI(t, []string{"queue", "clear"}, env.configPath)
	if err != nil {
		t.Fatalf("queue clear: %v", err)
	}
	requireContains(t, out, "Nothing to clear")

	remaining := firstTaskID(t, env)
	if _, err := runCLI(t, []string{"queue", "cancel", remaining}, env.configPath); err != nil {
		t.Fatalf("queue cancel: %v", err)
	}
	out, err = runCLI(t, []string{"queue", "clear"}, env.configPath)
	if err != nil {
		t.Fatalf("queue clear: %v", err)
	}
	requireContains(t, out, "Cleared 1 tasks")
}

func TestQueueShowUnknownTask(t *testing.T) {
	env := setupCLITestEnv(t)

	if _, err := runCLI(t, []string{"queue", "show", "nope"}, env.configPath); err == nil {
		t.Fatal("expected show of unknown task to fail")
	}
}

func firstTaskID(t *testing.T, env *cliTestEnv) string {
	t.Helper()
	out, err := runCLI(t, []string{"queue", "list", "--json"}, env.configPath)
	if err != nil {
		t.Fatalf("queue list --json: %v", err)
	}
	var items []struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal([]byte(out), &items); err != nil {
		t.Fatalf("parse JSON output: %v\n%s", err, out)
	}
	if len(items) == 0 {
		t.Fatal("queue is empty")
	}
	id := strings.TrimSpace(items[0].ID)
	if id == "" {
		t.Fatal("missing task id")
	}
	return id
}
