package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"slowjams/internal/queue"
)

func newQueueCommand(ctx *commandContext) *cobra.Command {
	queueCmd := &cobra.Command{
		Use:   "queue",
		Short: "Inspect and manage the task queue",
	}

	queueCmd.AddCommand(newQueueStatusCommand(ctx))
	queueCmd.AddCommand(newQueueListCommand(ctx))
	queueCmd.AddCommand(newQueueShowCommand(ctx))
	queueCmd.AddCommand(newQueueCancelCommand(ctx))
	queueCmd.AddCommand(newQueueRetryCommand(ctx))
	queueCmd.AddCommand(newQueuePriorityCommand(ctx))
	queueCmd.AddCommand(newQueueRemoveCommand(ctx))
	queueCmd.AddCommand(newQueueClearCommand(ctx))

	return queueCmd
}

func newQueueStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show queue status summary",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withJournal(cmd, func(_ *queue.Journal, store *queue.Store) error {
				rows := buildStatusRows(store.Counts())
				if len(rows) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "Queue is empty")
					return nil
				}
				fmt.Fprint(cmd.OutOrStdout(), renderTable([]string{"Status", "Count"}, rows, 2))
				return nil
			})
		},
	}
}

func newQueueListCommand(ctx *commandContext) *cobra.Command {
	var listStatuses []string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List queued tasks",
		RunE: func(cmd *cobra.Command, args []string) error {
			statuses, err := parseStatuses(listStatuses)
			if err != nil {
				return err
			}
			return ctx.withJournal(cmd, func(_ *queue.Journal, store *queue.Store) error {
				var items []queue.Snapshot
				if len(statuses) > 0 {
					items = store.ListByStatus(statuses...)
				} else {
					items = store.List()
				}
				if asJSON {
					return writeJSON(cmd, buildTaskModels(items))
				}
				if len(items) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "Queue is empty")
					return nil
				}
				fmt.Fprint(cmd.OutOrStdout(), renderTable(
					[]string{"ID", "Kind", "Source", "Status", "Progress", "Priority", "Created"},
					buildListRows(items),
					5, 6,
				))
				return nil
			})
		},
	}

	cmd.Flags().StringSliceVar(&listStatuses, "status", nil, "Filter by status (pending, running, completed, failed, cancelled)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit JSON instead of a table")
	return cmd
}

func newQueueShowCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "show <task-id>",
		Short: "Show one task in detail",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withJournal(cmd, func(_ *queue.Journal, store *queue.Store) error {
				snap, ok := findTask(store, args[0])
				if !ok {
					return fmt.Errorf("no task with id %s", args[0])
				}
				if asJSON {
					return writeJSON(cmd, buildTaskModel(snap))
				}
				writeTaskDetail(cmd.OutOrStdout(), snap)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit JSON instead of text")
	return cmd
}

func newQueueCancelCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "cancel <task-id>",
		Short: "Cancel a pending task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return mutateTask(cmd, ctx, args[0], "cancelled", func(store *queue.Store, id string) bool {
				_, ok := store.Cancel(id)
				return ok
			})
		},
	}
}

func newQueueRetryCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "retry <task-id>",
		Short: "Resubmit a failed or cancelled task as a new task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withJournal(cmd, func(journal *queue.Journal, store *queue.Store) error {
				snap, ok := findTask(store, args[0])
				if !ok {
					return fmt.Errorf("no task with id %s", args[0])
				}
				resubmitted, ok := store.Retry(snap.ID)
				if !ok {
					return fmt.Errorf("task %s cannot be retried in state %s", shortID(snap.ID), snap.Status)
				}
				if err := journal.Save(cmd.Context(), store.SnapshotAll()); err != nil {
					return fmt.Errorf("save journal: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Task %s resubmitted as %s\n", shortID(snap.ID), shortID(resubmitted.ID))
				return nil
			})
		},
	}
}

func newQueuePriorityCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "priority <task-id> <value>",
		Short: "Change the priority of a pending task",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			priority, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("priority must be an integer, got %q", args[1])
			}
			return mutateTask(cmd, ctx, args[0], fmt.Sprintf("priority set to %d", priority), func(store *queue.Store, id string) bool {
				return store.SetPriority(id, priority)
			})
		},
	}
}

func newQueueRemoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <task-id>",
		Short: "Remove a task from the queue",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return mutateTask(cmd, ctx, args[0], "removed", func(store *queue.Store, id string) bool {
				return store.Remove(id)
			})
		},
	}
}

func newQueueClearCommand(ctx *commandContext) *cobra.Command {
	var failedOnly bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove finished tasks from the queue",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withJournal(cmd, func(journal *queue.Journal, store *queue.Store) error {
				var removed int
				if failedOnly {
					for _, snap := range store.ListByStatus(queue.StatusFailed) {
						if store.Remove(snap.ID) {
							removed++
						}
					}
				} else {
					removed = store.ClearTerminal()
				}
				if removed == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "Nothing to clear")
					return nil
				}
				if err := journal.Save(cmd.Context(), store.SnapshotAll()); err != nil {
					return fmt.Errorf("save journal: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Cleared %d tasks\n", removed)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&failedOnly, "failed", false, "Only clear failed tasks")
	return cmd
}

// mutateTask applies change to one task and persists the journal. The task
// may be addressed by a unique ID prefix.
func mutateTask(cmd *cobra.Command, ctx *commandContext, ref, verb string, change func(*queue.Store, string) bool) error {
	return ctx.withJournal(cmd, func(journal *queue.Journal, store *queue.Store) error {
		snap, ok := findTask(store, ref)
		if !ok {
			return fmt.Errorf("no task with id %s", ref)
		}
		if !change(store, snap.ID) {
			return fmt.Errorf("task %s cannot be %s in state %s", shortID(snap.ID), verb, snap.Status)
		}
		if err := journal.Save(cmd.Context(), store.SnapshotAll()); err != nil {
			return fmt.Errorf("save journal: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Task %s %s\n", shortID(snap.ID), verb)
		return nil
	})
}

// findTask resolves a full task ID or an unambiguous prefix.
func findTask(store *queue.Store, ref string) (queue.Snapshot, bool) {
	if snap, ok := store.Get(ref); ok {
		return snap, true
	}
	var match queue.Snapshot
	var found bool
	for _, snap := range store.List() {
		if len(ref) >= 4 && len(ref) < len(snap.ID) && snap.ID[:len(ref)] == ref {
			if found {
				return queue.Snapshot{}, false
			}
			match = snap
			found = true
		}
	}
	return match, found
}

func parseStatuses(values []string) ([]queue.Status, error) {
	statuses := make([]queue.Status, 0, len(values))
	for _, value := range values {
		status, ok := queue.ParseStatus(value)
		if !ok {
			return nil, fmt.Errorf("unknown status %q", value)
		}
		statuses = append(statuses, status)
	}
	return statuses, nil
}
