package main

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"slowjams/internal/queue"
)

func newAddCommand(ctx *commandContext) *cobra.Command {
	var priority int
	var formatHint string
	var kindFlag string

	cmd := &cobra.Command{
		Use:   "add <url|file ...>",
		Short: "Queue tasks without starting the engine",
		Long: "Add records tasks in the journal so a later `slowjams run` picks " +
			"them up. URLs become full download-convert-process tasks; local " +
			"audio files are queued for effect processing and other local " +
			"files for audio extraction.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := runOptions{priority: priority, formatHint: formatHint, kind: kindFlag}
			return ctx.withJournal(cmd, func(journal *queue.Journal, store *queue.Store) error {
				for _, input := range args {
					req, err := buildTaskRequest(input, opts)
					if err != nil {
						return err
					}
					task := &queue.Task{
						ID:             uuid.NewString(),
						Kind:           req.Kind,
						CreatedAt:      time.Now(),
						Priority:       req.Priority,
						URL:            req.URL,
						InputPath:      req.InputPath,
						DownloadFormat: req.DownloadFormat,
						Status:         queue.StatusPending,
					}
					store.Put(task)
					fmt.Fprintf(cmd.OutOrStdout(), "Queued %s task %s\n", task.Kind, shortID(task.ID))
				}
				if err := journal.Save(cmd.Context(), store.SnapshotAll()); err != nil {
					return fmt.Errorf("save journal: %w", err)
				}
				return nil
			})
		},
	}

	cmd.Flags().IntVarP(&priority, "priority", "p", 0, "Priority for submitted tasks (higher runs first)")
	cmd.Flags().StringVar(&formatHint, "format", "", "yt-dlp format selector for downloads")
	cmd.Flags().StringVar(&kindFlag, "kind", "", "Force task kind (download, convert, process, composite)")
	return cmd
}
