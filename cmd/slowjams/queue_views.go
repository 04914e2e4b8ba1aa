package main

import (
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"

	"slowjams/internal/queue"
)

func buildStatusRows(counts map[queue.Status]int) [][]string {
	rows := make([][]string, 0, len(counts))
	for _, status := range queue.AllStatuses() {
		count, ok := counts[status]
		if !ok || count == 0 {
			continue
		}
		rows = append(rows, []string{string(status), fmt.Sprintf("%d", count)})
	}
	return rows
}

func buildListRows(items []queue.Snapshot) [][]string {
	rows := make([][]string, 0, len(items))
	for _, snap := range items {
		rows = append(rows, []string{
			shortID(snap.ID),
			string(snap.Kind),
			taskSource(snap),
			string(snap.Status),
			fmt.Sprintf("%.0f%%", snap.ProgressPercent),
			fmt.Sprintf("%d", snap.Priority),
			humanize.Time(snap.CreatedAt),
		})
	}
	return rows
}

func taskSource(snap queue.Snapshot) string {
	if snap.URL != "" {
		return snap.URL
	}
	if snap.InputPath != "" {
		return filepath.Base(snap.InputPath)
	}
	return ""
}

func writeTaskDetail(w io.Writer, snap queue.Snapshot) {
	fmt.Fprintf(w, "Task:     %s\n", snap.ID)
	fmt.Fprintf(w, "Kind:     %s\n", snap.Kind)
	fmt.Fprintf(w, "Status:   %s\n", snap.Status)
	fmt.Fprintf(w, "Priority: %d\n", snap.Priority)
	fmt.Fprintf(w, "Created:  %s\n", humanize.Time(snap.CreatedAt))
	if snap.URL != "" {
		fmt.Fprintf(w, "URL:      %s\n", snap.URL)
	}
	if snap.InputPath != "" {
		fmt.Fprintf(w, "Input:    %s\n", snap.InputPath)
	}
	if snap.Status == queue.StatusRunning {
		fmt.Fprintf(w, "Progress: %.0f%% (%s)\n", snap.ProgressPercent, snap.CurrentStep)
	}
	if elapsed := snap.Elapsed(); elapsed > 0 {
		fmt.Fprintf(w, "Elapsed:  %s\n", elapsed.Round(time.Second))
	}
	if snap.ErrorMessage != "" {
		fmt.Fprintf(w, "Error:    %s\n", snap.ErrorMessage)
	}
	if snap.OutputPath != "" {
		fmt.Fprintf(w, "Output:   %s\n", snap.OutputPath)
	}
	for _, stage := range []string{queue.ResultDownload, queue.ResultConvert, queue.ResultProcess} {
		if path := snap.Results[stage]; path != "" {
			fmt.Fprintf(w, "  %-8s %s\n", stage+":", path)
		}
	}
}

// taskModel is the JSON shape of a task as emitted by --json flags.
type taskModel struct {
	ID              string            `json:"id"`
	Kind            string            `json:"kind"`
	Status          string            `json:"status"`
	Priority        int               `json:"priority"`
	URL             string            `json:"url,omitempty"`
	InputPath       string            `json:"input_path,omitempty"`
	OutputPath      string            `json:"output_path,omitempty"`
	ProgressPercent float64           `json:"progress_percent"`
	CurrentStep     string            `json:"current_step,omitempty"`
	ErrorMessage    string            `json:"error_message,omitempty"`
	CreatedAt       time.Time         `json:"created_at"`
	StartedAt       *time.Time        `json:"started_at,omitempty"`
	FinishedAt      *time.Time        `json:"finished_at,omitempty"`
	Results         map[string]string `json:"results,omitempty"`
}

func buildTaskModel(snap queue.Snapshot) taskModel {
	return taskModel{
		ID:              snap.ID,
		Kind:            string(snap.Kind),
		Status:          string(snap.Status),
		Priority:        snap.Priority,
		URL:             snap.URL,
		InputPath:       snap.InputPath,
		OutputPath:      snap.OutputPath,
		ProgressPercent: snap.ProgressPercent,
		CurrentStep:     snap.CurrentStep,
		ErrorMessage:    snap.ErrorMessage,
		CreatedAt:       snap.CreatedAt,
		StartedAt:       snap.StartedAt,
		FinishedAt:      snap.FinishedAt,
		Results:         snap.Results,
	}
}

func buildTaskModels(items []queue.Snapshot) []taskModel {
	models := make([]taskModel, 0, len(items))
	for _, snap := range items {
		models = append(models, buildTaskModel(snap))
	}
	return models
}
