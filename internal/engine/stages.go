package engine

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"slowjams/internal/fileutil"
	"slowjams/internal/media"
	"slowjams/internal/queue"
)

// errTaskCancelled aborts a pipeline whose task was cancelled from the
// outside. The status transition already happened; the pipeline just stops.
var errTaskCancelled = errors.New("task cancelled")

// stageWindow maps a stage's local 0-100 progress onto a slice of the
// task's overall progress bar.
type stageWindow struct {
	base float64
	span float64
}

func (w stageWindow) at(percent float64) float64 {
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	return w.base + percent*w.span/100
}

var fullWindow = stageWindow{base: 0, span: 100}

// Composite tasks split the progress bar across their stages: download
// covers 0-40, conversion 40-70, effect processing 70-100.
var (
	compositeDownload = stageWindow{base: 0, span: 40}
	compositeConvert  = stageWindow{base: 40, span: 30}
	compositeProcess  = stageWindow{base: 70, span: 30}
)

func (e *Engine) runPipeline(ctx context.Context, task queue.Snapshot) error {
	switch task.Kind {
	case queue.KindDownload:
		_, err := e.runDownload(ctx, task, fullWindow)
		return err
	case queue.KindConvert:
		_, err := e.runConvert(ctx, task, fullWindow, e.convertInput(task), e.cfg.Paths.OutputDir)
		return err
	case queue.KindProcess:
		_, err := e.runProcess(ctx, task, fullWindow, e.processInput(task))
		return err
	case queue.KindComposite:
		return e.runComposite(ctx, task)
	default:
		return fmt.Errorf("unknown task kind %q", task.Kind)
	}
}

func (e *Engine) runComposite(ctx context.Context, task queue.Snapshot) error {
	downloaded, err := e.runDownload(ctx, task, compositeDownload)
	if err != nil {
		return err
	}
	if err := e.checkCancelled(task.ID); err != nil {
		return err
	}

	converted, err := e.runConvert(ctx, task, compositeConvert, downloaded, e.cfg.Paths.TempDir)
	if err != nil {
		return err
	}
	if err := e.checkCancelled(task.ID); err != nil {
		return err
	}

	if _, err := e.runProcess(ctx, task, compositeProcess, converted); err != nil {
		return err
	}
	return e.checkCancelled(task.ID)
}

func (e *Engine) runDownload(ctx context.Context, task queue.Snapshot, window stageWindow) (string, error) {
	if e.collab.Downloader == nil {
		return "", media.Wrap(media.ErrDownload, "download", "no downloader configured", nil)
	}
	stageCtx, cancel := e.stageContext(ctx, e.cfg.Tools.DownloadTimeout)
	defer cancel()

	step := "Downloading"
	if meta, err := e.collab.Downloader.Metadata(stageCtx, task.URL); err == nil && meta.Title != "" {
		step = "Downloading " + meta.Title
	}

	e.progress(task.ID, window.at(0), step)
	path, err := e.collab.Downloader.Fetch(stageCtx, task.URL, e.cfg.Paths.DownloadDir, task.DownloadFormat, func(percent float64) {
		e.progress(task.ID, window.at(percent), step)
	})
	if err != nil {
		return "", err
	}
	e.store.StoreResult(task.ID, queue.ResultDownload, path)
	e.progress(task.ID, window.at(100), "Download complete")
	return path, nil
}

func (e *Engine) runConvert(ctx context.Context, task queue.Snapshot, window stageWindow, inputPath, outputDir string) (string, error) {
	if e.collab.Converter == nil {
		return "", media.Wrap(media.ErrMedia, "convert", "no converter configured", nil)
	}
	if inputPath == "" {
		return "", media.Wrap(media.ErrValidation, "convert", "no input file available", nil)
	}
	stageCtx, cancel := e.stageContext(ctx, e.cfg.Tools.ConvertTimeout)
	defer cancel()

	opts := media.DefaultConvertOptions()
	if task.ConvertOptions != nil {
		opts = *task.ConvertOptions
	}
	outputPath := e.derivedOutput(outputDir, inputPath, opts.Format.Ext())

	e.progress(task.ID, window.at(0), "Converting audio")
	path, err := e.collab.Converter.ExtractAudio(stageCtx, inputPath, outputPath, opts, func(percent float64) {
		e.progress(task.ID, window.at(percent), "Converting audio")
	})
	if err != nil {
		return "", err
	}
	e.store.StoreResult(task.ID, queue.ResultConvert, path)
	e.progress(task.ID, window.at(100), "Conversion complete")
	return path, nil
}

func (e *Engine) runProcess(ctx context.Context, task queue.Snapshot, window stageWindow, inputPath string) (string, error) {
	if e.collab.Processor == nil {
		return "", media.Wrap(media.ErrMedia, "process", "no processor configured", nil)
	}
	if inputPath == "" {
		return "", media.Wrap(media.ErrValidation, "process", "no input file available", nil)
	}
	stageCtx, cancel := e.stageContext(ctx, e.cfg.Tools.ProcessTimeout)
	defer cancel()

	opts := e.cfg.ProcessOptions()
	if task.ProcessOptions != nil {
		opts = *task.ProcessOptions
	}
	outputPath := e.derivedOutput(e.cfg.Paths.OutputDir, inputPath, opts.OutputFormat.Ext())

	e.progress(task.ID, window.at(0), "Applying effects")
	path, err := e.collab.Processor.ApplyEffects(stageCtx, inputPath, outputPath, opts, func(percent float64) {
		e.progress(task.ID, window.at(percent), "Applying effects")
	})
	if err != nil {
		return "", err
	}
	e.store.StoreResult(task.ID, queue.ResultProcess, path)
	e.progress(task.ID, window.at(100), "Effects complete")
	return path, nil
}

// convertInput prefers the output of an earlier download stage over the
// submitted input path.
func (e *Engine) convertInput(task queue.Snapshot) string {
	if path := task.Results[queue.ResultDownload]; path != "" {
		return path
	}
	return task.InputPath
}

// processInput prefers the most processed upstream artifact available.
func (e *Engine) processInput(task queue.Snapshot) string {
	if path := task.Results[queue.ResultConvert]; path != "" {
		return path
	}
	if path := task.Results[queue.ResultDownload]; path != "" {
		return path
	}
	return task.InputPath
}

func (e *Engine) derivedOutput(dir, inputPath, ext string) string {
	base := filepath.Base(inputPath)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	return fileutil.UniquePath(filepath.Join(dir, base+ext))
}

func (e *Engine) stageContext(ctx context.Context, timeoutSeconds int) (context.Context, context.CancelFunc) {
	if timeoutSeconds <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, time.Duration(timeoutSeconds)*time.Second)
}

func (e *Engine) checkCancelled(id string) error {
	if e.store.IsCancelled(id) {
		return errTaskCancelled
	}
	return nil
}

func (e *Engine) progress(id string, percent float64, step string) {
	if snap, ok := e.store.SetProgress(id, percent, step); ok {
		e.emit(snap)
	}
}
