// Package progress derives human-readable time estimates from a job snapshot.
package progress

import (
	"fmt"
	"time"

	"video-dubber/internal/config"
	"video-dubber/models"
)

// Table holds the fixed durations used before real timings exist.
type Table struct {
	Stages   [models.StageCount]time.Duration
	PerChunk time.Duration
}

// DefaultTable returns the built-in stage estimates.
func DefaultTable() Table {
	return Table{
		Stages: [models.StageCount]time.Duration{
			config.EstimateExtract,
			config.EstimateTranscribe,
			config.EstimateTranslate,
			config.EstimateSynthesize,
			config.EstimateMux,
		},
		PerChunk: config.EstimatePerChunk,
	}
}

// TableFromConfig builds a Table from the estimates section of cfg.
func TableFromConfig(cfg *models.Config) Table {
	return Table{Stages: cfg.StageEstimates(), PerChunk: cfg.Estimates.PerChunk}
}

func (t Table) total() time.Duration {
	var sum time.Duration
	for _, d := range t.Stages {
		sum += d
	}
	return sum
}

// Times is the result of Estimate.
type Times struct {
	Elapsed        time.Duration
	Remaining      time.Duration
	TotalEstimated time.Duration
	Completion     time.Time
}

// Formatted is the wire form returned by the progress endpoint.
type Formatted struct {
	Elapsed        string `json:"elapsed"`
	Estimated      string `json:"estimated"`
	Remaining      string `json:"remaining"`
	TotalEstimated string `json:"totalEstimated"`
	CompletionTime string `json:"completionTime"`
}

// Format renders durations as "1h 2m 3s" and the completion as a local clock time.
func (t Times) Format() Formatted {
	return Formatted{
		Elapsed:        FormatDuration(t.Elapsed),
		Estimated:      FormatDuration(t.Remaining),
		Remaining:      FormatDuration(t.Remaining),
		TotalEstimated: FormatDuration(t.TotalEstimated),
		CompletionTime: t.Completion.Local().Format("15:04:05"),
	}
}

// Estimate computes elapsed and remaining time for job at now.
//
// Chunked jobs extrapolate from the flat per-chunk estimate and the number of
// chunks left. Short jobs use the stage table until a stage has finished, then
// the observed average stage duration. Terminal jobs have nothing remaining.
// A nil job yields false.
func Estimate(job *models.Job, now time.Time, t Table) (Times, bool) {
	if job == nil {
		return Times{}, false
	}

	elapsed := now.Sub(job.StartTime)
	if job.EndTime != nil {
		elapsed = job.EndTime.Sub(job.StartTime)
	}
	if elapsed < 0 {
		elapsed = 0
	}

	var remaining time.Duration
	switch {
	case job.IsTerminal():
		remaining = 0

	case job.IsLongVideo && job.TotalChunks > 0:
		left := job.TotalChunks - job.CurrentChunk
		if left < 0 {
			left = 0
		}
		// totalChunks * perChunk * (1 - current/total)
		remaining = time.Duration(left) * t.PerChunk

	default:
		completed := job.CurrentStep - 1
		if completed < 0 {
			completed = 0
		}
		if completed > models.StageCount {
			completed = models.StageCount
		}
		if completed == 0 {
			remaining = t.total() - elapsed
		} else {
			remaining = time.Duration(models.StageCount-completed) * (elapsed / time.Duration(completed))
		}
	}
	if remaining < 0 {
		remaining = 0
	}

	return Times{
		Elapsed:        elapsed,
		Remaining:      remaining,
		TotalEstimated: elapsed + remaining,
		Completion:     now.Add(remaining),
	}, true
}

// FormatDuration renders d truncated to whole seconds.
func FormatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	seconds := int64(d / time.Second)
	minutes := seconds / 60
	hours := minutes / 60

	switch {
	case hours > 0:
		return fmt.Sprintf("%dh %dm %ds", hours, minutes%60, seconds%60)
	case minutes > 0:
		return fmt.Sprintf("%dm %ds", minutes, seconds%60)
	default:
		return fmt.Sprintf("%ds", seconds)
	}
}
