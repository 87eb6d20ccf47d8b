package models

import (
	"testing"
	"time"
)

var t0 = time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)

func TestNewJob(t *testing.T) {
	job := NewJob("id-1", "/path/to/video.mp4", "es", "gtts", "", t0)

	if job.ID != "id-1" {
		t.Errorf("ID = %q, want id-1", job.ID)
	}
	if job.FileName != "video.mp4" {
		t.Errorf("FileName = %q, want video.mp4", job.FileName)
	}
	if job.Status != StatusProcessing {
		t.Errorf("Status = %s, want processing", job.Status)
	}
	if job.Progress != 0 {
		t.Errorf("Progress = %d, want 0", job.Progress)
	}
	if !job.StartTime.Equal(t0) {
		t.Errorf("StartTime = %v, want %v", job.StartTime, t0)
	}
	if job.EndTime != nil {
		t.Error("EndTime should be unset for a new job")
	}
}

func TestSetProgress_Monotonic(t *testing.T) {
	job := NewJob("id", "/v.mp4", "es", "gtts", "", t0)

	job.SetProgress(2, 40, "Transcribing...")
	job.SetProgress(1, 20, "late report")

	if job.Progress != 40 {
		t.Errorf("Progress = %d, want 40 (must not decrease)", job.Progress)
	}
	if job.CurrentStep != 1 {
		t.Errorf("CurrentStep = %d, want 1", job.CurrentStep)
	}
	if job.Message != "late report" {
		t.Errorf("Message = %q, want 'late report'", job.Message)
	}

	job.SetProgress(3, 150, "")
	if job.Progress != 100 {
		t.Errorf("Progress = %d, want clamp to 100", job.Progress)
	}
}

func TestComplete(t *testing.T) {
	job := NewJob("id", "/v.mp4", "es", "gtts", "", t0)
	job.SetProgress(5, 90, "Creating video...")

	end := t0.Add(90 * time.Second)
	if !job.Complete("/out/v_dubbed.mp4", "hello", "hola", end) {
		t.Fatal("Complete returned false on a processing job")
	}

	if job.Status != StatusCompleted {
		t.Errorf("Status = %s, want completed", job.Status)
	}
	if job.Progress != 100 {
		t.Errorf("Progress = %d, want 100", job.Progress)
	}
	if job.ResultPath != "/out/v_dubbed.mp4" {
		t.Errorf("ResultPath = %q", job.ResultPath)
	}
	if job.OriginalText != "hello" || job.TranslatedText != "hola" {
		t.Errorf("texts = %q/%q, want hello/hola", job.OriginalText, job.TranslatedText)
	}
	if job.Duration() != 90*time.Second {
		t.Errorf("Duration = %v, want 90s", job.Duration())
	}
}

func TestFail_FreezesProgress(t *testing.T) {
	job := NewJob("id", "/v.mp4", "es", "gtts", "", t0)
	job.SetProgress(3, 60, "Translating...")

	if !job.Fail("boom") {
		t.Fatal("Fail returned false on a processing job")
	}
	if job.Status != StatusError {
		t.Errorf("Status = %s, want error", job.Status)
	}
	if job.Error != "boom" {
		t.Errorf("Error = %q, want boom", job.Error)
	}
	if job.Progress != 60 {
		t.Errorf("Progress = %d, want 60", job.Progress)
	}
	if job.EndTime != nil {
		t.Error("EndTime must only be set on completion")
	}
	if job.ResultPath != "" {
		t.Error("ResultPath must be empty on failure")
	}
}

func TestTerminalJobsIgnoreUpdates(t *testing.T) {
	job := NewJob("id", "/v.mp4", "es", "gtts", "", t0)
	job.Fail("timeout")

	if job.SetProgress(4, 80, "x") {
		t.Error("SetProgress on failed job should return false")
	}
	if job.Complete("/out.mp4", "", "", t0) {
		t.Error("Complete on failed job should return false")
	}
	if job.Status != StatusError || job.Progress != 0 {
		t.Errorf("failed job changed: status=%s progress=%d", job.Status, job.Progress)
	}
}

func TestSetChunks(t *testing.T) {
	job := NewJob("id", "/v.mp4", "es", "gtts", "", t0)
	job.SetChunks(0, 3)
	job.SetChunks(2, 3)
	job.SetChunks(1, 3)

	if !job.IsLongVideo {
		t.Error("IsLongVideo should be set")
	}
	if job.CurrentChunk != 2 {
		t.Errorf("CurrentChunk = %d, want 2", job.CurrentChunk)
	}

	job.Complete("/out.mp4", "", "", t0)
	if job.CurrentChunk != 3 {
		t.Errorf("CurrentChunk after completion = %d, want 3", job.CurrentChunk)
	}
}

func TestClone_Independent(t *testing.T) {
	job := NewJob("id", "/v.mp4", "es", "gtts", "", t0)
	job.Complete("/out.mp4", "", "", t0.Add(time.Minute))

	c := job.Clone()
	*c.EndTime = t0
	c.Progress = 5

	if job.EndTime.Equal(t0) {
		t.Error("Clone shares EndTime with the original")
	}
	if job.Progress != 100 {
		t.Error("Clone shares Progress with the original")
	}
}

func TestStatusText(t *testing.T) {
	tests := []struct {
		status   JobStatus
		errMsg   string
		message  string
		expected string
	}{
		{StatusProcessing, "", "Transcribing...", "Transcribing..."},
		{StatusProcessing, "", "", "Processing..."},
		{StatusCompleted, "", "", "Completed!"},
		{StatusError, "disk full", "", "Failed: disk full"},
		{StatusError, "", "", "Failed"},
	}

	for _, tt := range tests {
		job := &Job{Status: tt.status, Error: tt.errMsg, Message: tt.message}
		if got := job.StatusText(); got != tt.expected {
			t.Errorf("StatusText(%s) = %q, want %q", tt.status, got, tt.expected)
		}
	}
}
