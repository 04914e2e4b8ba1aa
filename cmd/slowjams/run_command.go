package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"slowjams/internal/config"
	"slowjams/internal/deps"
	"slowjams/internal/engine"
	"slowjams/internal/logging"
	"slowjams/internal/media/ffmpegx"
	"slowjams/internal/media/ytdl"
	"slowjams/internal/notify"
	"slowjams/internal/queue"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	var priority int
	var formatHint string
	var kindFlag string
	var watch bool

	cmd := &cobra.Command{
		Use:   "run [url|file ...]",
		Short: "Process queued and newly submitted tasks",
		Long: "Run starts the worker engine, restores any tasks left in the journal, " +
			"enqueues the given URLs and files, and processes everything until the " +
			"queue drains. With --watch the engine keeps running and waits for " +
			"more work until interrupted.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEngine(cmd, ctx, runOptions{
				inputs:     args,
				priority:   priority,
				formatHint: formatHint,
				kind:       kindFlag,
				watch:      watch,
			})
		},
	}

	cmd.Flags().IntVarP(&priority, "priority", "p", 0, "Priority for submitted tasks (higher runs first)")
	cmd.Flags().StringVar(&formatHint, "format", "", "yt-dlp format selector for downloads")
	cmd.Flags().StringVar(&kindFlag, "kind", "", "Force task kind (download, convert, process, composite)")
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "Keep running after the queue drains")
	return cmd
}

type runOptions struct {
	inputs     []string
	priority   int
	formatHint string
	kind       string
	watch      bool
}

func runEngine(cmd *cobra.Command, ctx *commandContext, opts runOptions) error {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return err
	}
	if err := deps.Check(cfg); err != nil {
		return err
	}

	lockPath, err := ctx.lockPath()
	if err != nil {
		return err
	}
	lock := flock.New(lockPath)
	locked, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire queue lock: %w", err)
	}
	if !locked {
		return fmt.Errorf("another slowjams process holds the queue lock at %s; stop it first", lockPath)
	}
	defer func() { _ = lock.Unlock() }()

	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	journal, err := queue.OpenJournal(cfg.Paths.StateDir)
	if err != nil {
		return fmt.Errorf("open journal: %w", err)
	}
	defer journal.Close()

	collab, err := buildCollaborators(cfg)
	if err != nil {
		return err
	}

	eng := engine.New(cfg, journal, collab, logger)

	service := notify.NewService(cfg)
	unsubscribeNotify := eng.Subscribe(notify.NewObserver(cfg, service, eng, logger))
	defer unsubscribeNotify()

	display := newProgressDisplay(cmd.OutOrStdout())
	unsubscribeDisplay := eng.Subscribe(display)
	defer unsubscribeDisplay()

	signalCtx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := eng.Start(signalCtx); err != nil {
		return fmt.Errorf("start engine: %w", err)
	}

	for _, input := range opts.inputs {
		req, err := buildTaskRequest(input, opts)
		if err != nil {
			_ = eng.Stop()
			return err
		}
		snap, err := eng.Submit(req)
		if err != nil {
			_ = eng.Stop()
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Queued %s task %s\n", snap.Kind, shortID(snap.ID))
	}

	waitForWork(signalCtx, eng, opts.watch)

	if err := eng.Stop(); err != nil {
		return err
	}
	display.Finish()
	printRunSummary(cmd, eng)
	return nil
}

// waitForWork blocks until the queue drains or the context is cancelled.
// In watch mode only cancellation ends the wait.
func waitForWork(ctx context.Context, eng *engine.Engine, watch bool) {
	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !watch && eng.Idle() {
				return
			}
		}
	}
}

func buildCollaborators(cfg *config.Config) (engine.Collaborators, error) {
	downloader, err := ytdl.New(cfg.Tools.YtDlp)
	if err != nil {
		return engine.Collaborators{}, fmt.Errorf("init yt-dlp client: %w", err)
	}

	var ffOpts []ffmpegx.Option
	if strings.TrimSpace(cfg.Tools.FFmpegExtraArgs) != "" {
		opt, err := ffmpegx.WithExtraArgs(cfg.Tools.FFmpegExtraArgs)
		if err != nil {
			return engine.Collaborators{}, fmt.Errorf("parse ffmpeg_extra_args: %w", err)
		}
		ffOpts = append(ffOpts, opt)
	}
	ffmpeg, err := ffmpegx.New(cfg.Tools.FFmpeg, cfg.Tools.FFprobe, ffOpts...)
	if err != nil {
		return engine.Collaborators{}, fmt.Errorf("init ffmpeg client: %w", err)
	}

	return engine.Collaborators{
		Downloader: downloader,
		Converter:  ffmpeg,
		Processor:  ffmpeg,
	}, nil
}

// buildTaskRequest turns a CLI argument into a task submission. URLs become
// composite tasks; local audio files go straight to effect processing and
// anything else on disk is treated as media to convert.
func buildTaskRequest(input string, opts runOptions) (engine.TaskRequest, error) {
	req := engine.TaskRequest{
		Priority:       opts.priority,
		DownloadFormat: strings.TrimSpace(opts.formatHint),
	}

	kind, err := inferKind(input, opts.kind)
	if err != nil {
		return engine.TaskRequest{}, err
	}
	req.Kind = kind

	switch kind {
	case queue.KindDownload, queue.KindComposite:
		req.URL = input
	default:
		absolute, err := filepath.Abs(input)
		if err != nil {
			return engine.TaskRequest{}, fmt.Errorf("resolve path %q: %w", input, err)
		}
		if _, err := os.Stat(absolute); err != nil {
			return engine.TaskRequest{}, fmt.Errorf("input file %s: %w", absolute, err)
		}
		req.InputPath = absolute
	}
	return req, nil
}

var audioExtensions = map[string]struct{}{
	".mp3":  {},
	".aac":  {},
	".m4a":  {},
	".ogg":  {},
	".opus": {},
	".flac": {},
	".wav":  {},
}

func inferKind(input, override string) (queue.Kind, error) {
	if trimmed := strings.TrimSpace(override); trimmed != "" {
		kind, ok := queue.ParseKind(trimmed)
		if !ok {
			return "", fmt.Errorf("unknown task kind %q", override)
		}
		return kind, nil
	}
	if isURL(input) {
		return queue.KindComposite, nil
	}
	ext := strings.ToLower(filepath.Ext(input))
	if _, ok := audioExtensions[ext]; ok {
		return queue.KindProcess, nil
	}
	return queue.KindConvert, nil
}

func isURL(input string) bool {
	return strings.Contains(input, "://")
}

func printRunSummary(cmd *cobra.Command, eng *engine.Engine) {
	counts := eng.Counts()
	completed := counts[queue.StatusCompleted]
	failed := counts[queue.StatusFailed]
	cancelled := counts[queue.StatusCancelled]
	pending := counts[queue.StatusPending]

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Done: %d completed, %d failed, %d cancelled", completed, failed, cancelled)
	if pending > 0 {
		fmt.Fprintf(out, ", %d still pending", pending)
	}
	fmt.Fprintln(out)

	for _, snap := range eng.ListByStatus(queue.StatusFailed) {
		fmt.Fprintf(out, "  failed %s: %s\n", shortID(snap.ID), snap.ErrorMessage)
	}
	for _, snap := range eng.ListByStatus(queue.StatusCompleted) {
		if snap.OutputPath != "" {
			fmt.Fprintf(out, "  wrote %s\n", snap.OutputPath)
		}
	}
}
