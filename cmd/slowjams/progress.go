package main

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"

	"slowjams/internal/queue"
)

// progressDisplay renders task progress on the terminal. On a TTY it draws
// a live progress bar for the task currently holding the display; elsewhere
// it prints one line per status transition so logs stay readable.
type progressDisplay struct {
	mu     sync.Mutex
	writer io.Writer
	tty    bool

	currentTask string
	bar         *progressbar.ProgressBar
	lastStatus  map[string]queue.Status
}

func newProgressDisplay(writer io.Writer) *progressDisplay {
	return &progressDisplay{
		writer:     writer,
		tty:        isTerminal(writer),
		lastStatus: make(map[string]queue.Status),
	}
}

func isTerminal(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func (d *progressDisplay) OnTaskUpdate(snap queue.Snapshot) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.tty {
		d.renderBar(snap)
	} else {
		d.renderLine(snap)
	}
	d.lastStatus[snap.ID] = snap.Status
}

func (d *progressDisplay) renderBar(snap queue.Snapshot) {
	switch {
	case snap.Status == queue.StatusRunning:
		if d.currentTask == "" {
			d.currentTask = snap.ID
			d.bar = progressbar.NewOptions(100,
				progressbar.OptionSetWriter(d.writer),
				progressbar.OptionSetDescription(barLabel(snap)),
				progressbar.OptionSetPredictTime(false),
				progressbar.OptionClearOnFinish(),
			)
		}
		if snap.ID != d.currentTask {
			return
		}
		d.bar.Describe(barLabel(snap))
		_ = d.bar.Set(int(snap.ProgressPercent))
	case snap.Terminal():
		if snap.ID == d.currentTask && d.bar != nil {
			_ = d.bar.Finish()
			_ = d.bar.Close()
			d.bar = nil
			d.currentTask = ""
		}
		d.renderLine(snap)
	}
}

func (d *progressDisplay) renderLine(snap queue.Snapshot) {
	if d.lastStatus[snap.ID] == snap.Status {
		return
	}
	switch snap.Status {
	case queue.StatusRunning:
		fmt.Fprintf(d.writer, "[%s] %s started\n", shortID(snap.ID), snap.Kind)
	case queue.StatusCompleted:
		fmt.Fprintf(d.writer, "[%s] completed: %s\n", shortID(snap.ID), snap.OutputPath)
	case queue.StatusFailed:
		fmt.Fprintf(d.writer, "[%s] failed: %s\n", shortID(snap.ID), snap.ErrorMessage)
	case queue.StatusCancelled:
		fmt.Fprintf(d.writer, "[%s] cancelled\n", shortID(snap.ID))
	}
}

// Finish clears any live bar so summary output starts on a fresh line.
func (d *progressDisplay) Finish() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.bar != nil {
		_ = d.bar.Close()
		d.bar = nil
		d.currentTask = ""
	}
}

func barLabel(snap queue.Snapshot) string {
	step := snap.CurrentStep
	if step == "" {
		step = string(snap.Kind)
	}
	return fmt.Sprintf("[%s] %s", shortID(snap.ID), step)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
