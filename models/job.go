package models

import (
	"path/filepath"
	"time"
)

type JobStatus string

const (
	StatusProcessing JobStatus = "processing"
	StatusCompleted  JobStatus = "completed"
	StatusError      JobStatus = "error"
)

// Job is the tracked state of one dubbing request.
type Job struct {
	ID             string     `json:"id"`
	SourcePath     string     `json:"sourcePath"`
	FileName       string     `json:"fileName"`
	TargetLanguage string     `json:"targetLanguage"`
	Provider       string     `json:"provider"`
	Voice          string     `json:"voice,omitempty"`
	Status         JobStatus  `json:"status"`
	Progress       int        `json:"progress"` // 0-100
	CurrentStep    int        `json:"currentStep"`
	Message        string     `json:"message,omitempty"`
	StartTime      time.Time  `json:"startTime"`
	EndTime        *time.Time `json:"endTime,omitempty"`
	Error          string     `json:"error,omitempty"`
	ResultPath     string     `json:"resultPath,omitempty"`

	OriginalText   string `json:"originalText,omitempty"`
	TranslatedText string `json:"translatedText,omitempty"`

	// Chunked processing. CurrentChunk is the zero-based index of the chunk in progress.
	IsLongVideo  bool `json:"isLongVideo"`
	TotalChunks  int  `json:"totalChunks,omitempty"`
	CurrentChunk int  `json:"currentChunk"`
}

// NewJob creates a job in the processing state.
func NewJob(id, sourcePath, targetLanguage, provider, voice string, now time.Time) *Job {
	return &Job{
		ID:             id,
		SourcePath:     sourcePath,
		FileName:       filepath.Base(sourcePath),
		TargetLanguage: targetLanguage,
		Provider:       provider,
		Voice:          voice,
		Status:         StatusProcessing,
		CurrentStep:    1,
		Message:        "Starting...",
		StartTime:      now,
	}
}

// Clone returns a copy that shares no mutable state with j.
func (j *Job) Clone() *Job {
	if j == nil {
		return nil
	}
	c := *j
	if j.EndTime != nil {
		end := *j.EndTime
		c.EndTime = &end
	}
	return &c
}

// IsTerminal reports whether the job reached completed or error.
func (j *Job) IsTerminal() bool {
	return j.Status == StatusCompleted || j.Status == StatusError
}

// SetProgress records step progress. Lower percentages are ignored so progress
// never goes backwards; step and message are still updated. Returns false for
// terminal jobs, which are left untouched.
func (j *Job) SetProgress(step, progress int, message string) bool {
	if j.IsTerminal() {
		return false
	}
	if step > 0 {
		j.CurrentStep = step
	}
	if progress > 100 {
		progress = 100
	}
	if progress > j.Progress {
		j.Progress = progress
	}
	if message != "" {
		j.Message = message
	}
	return true
}

// SetChunks marks the job as chunked and records the chunk in progress.
func (j *Job) SetChunks(current, total int) bool {
	if j.IsTerminal() {
		return false
	}
	j.IsLongVideo = true
	j.TotalChunks = total
	if current > j.CurrentChunk {
		j.CurrentChunk = current
	}
	return true
}

// Complete marks the job as successfully finished.
func (j *Job) Complete(resultPath, originalText, translatedText string, now time.Time) bool {
	if j.IsTerminal() {
		return false
	}
	j.Status = StatusCompleted
	j.Progress = 100
	j.Message = "Completed!"
	j.ResultPath = resultPath
	j.OriginalText = originalText
	j.TranslatedText = translatedText
	if j.IsLongVideo {
		j.CurrentChunk = j.TotalChunks
	}
	end := now
	j.EndTime = &end
	return true
}

// Fail marks the job as failed. Progress is frozen at its last value.
func (j *Job) Fail(message string) bool {
	if j.IsTerminal() {
		return false
	}
	j.Status = StatusError
	j.Error = message
	j.Message = "Failed: " + message
	return true
}

// Duration returns end-start for completed jobs and zero otherwise.
func (j *Job) Duration() time.Duration {
	if j.EndTime == nil {
		return 0
	}
	return j.EndTime.Sub(j.StartTime)
}

func (j *Job) StatusText() string {
	switch j.Status {
	case StatusProcessing:
		if j.Message != "" {
			return j.Message
		}
		return "Processing..."
	case StatusCompleted:
		return "Completed!"
	case StatusError:
		if j.Error != "" {
			return "Failed: " + j.Error
		}
		return "Failed"
	default:
		return string(j.Status)
	}
}
