package models

import (
	"fmt"
	"math"
	"sort"
)

// Chunk is one contiguous time range of a long source video.
type Chunk struct {
	Index     int     `json:"index"` // zero-based
	Path      string  `json:"path"`
	StartTime float64 `json:"startTime"` // seconds
	EndTime   float64 `json:"endTime"`
	Duration  float64 `json:"duration"`
}

// ProcessedChunk is a chunk after a successful pipeline run.
type ProcessedChunk struct {
	Index          int     `json:"index"`
	OriginalPath   string  `json:"originalPath"`
	FinalPath      string  `json:"finalPath"`
	OriginalText   string  `json:"originalText"`
	TranslatedText string  `json:"translatedText"`
	StartTime      float64 `json:"startTime"`
	EndTime        float64 `json:"endTime"`
}

const chunkEpsilon = 1e-6

// ValidateChunks checks that chunks partition [0, total] without gaps or overlaps.
func ValidateChunks(chunks []Chunk, total float64) error {
	if len(chunks) == 0 {
		return fmt.Errorf("no chunks")
	}
	sorted := make([]Chunk, len(chunks))
	copy(sorted, chunks)
	sort.Slice(sorted, func(a, b int) bool { return sorted[a].Index < sorted[b].Index })

	expectedStart := 0.0
	for i, c := range sorted {
		if c.Index != i {
			return fmt.Errorf("chunk index %d out of sequence, want %d", c.Index, i)
		}
		if c.Duration <= 0 {
			return fmt.Errorf("chunk %d has non-positive duration %.3f", c.Index, c.Duration)
		}
		if math.Abs(c.StartTime-expectedStart) > chunkEpsilon {
			if c.StartTime > expectedStart {
				return fmt.Errorf("gap before chunk %d: expected start %.3f, got %.3f", c.Index, expectedStart, c.StartTime)
			}
			return fmt.Errorf("overlap at chunk %d: expected start %.3f, got %.3f", c.Index, expectedStart, c.StartTime)
		}
		expectedStart = c.EndTime
	}
	if math.Abs(expectedStart-total) > chunkEpsilon {
		return fmt.Errorf("chunks end at %.3f, want %.3f", expectedStart, total)
	}
	return nil
}

// SortProcessed orders processed chunks by Index in place.
func SortProcessed(chunks []ProcessedChunk) {
	sort.Slice(chunks, func(a, b int) bool { return chunks[a].Index < chunks[b].Index })
}
