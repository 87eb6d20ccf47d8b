package models

import (
	"errors"
	"fmt"
)

// Error kinds. Components wrap one of these so callers can classify failures with errors.Is.
var (
	ErrProbe           = errors.New("media probe failed")
	ErrSplit           = errors.New("chunk split failed")
	ErrMedia           = errors.New("audio extraction failed")
	ErrTranscription   = errors.New("transcription failed")
	ErrTranslation     = errors.New("translation failed")
	ErrSynthesis       = errors.New("speech synthesis failed")
	ErrMux             = errors.New("muxing failed")
	ErrReassembly      = errors.New("reassembly failed")
	ErrChunkProcessing = errors.New("chunk processing failed")
	ErrTimeout         = errors.New("job timed out")

	ErrJobNotFound     = errors.New("job not found")
	ErrJobNotCompleted = errors.New("job not completed")
	ErrInvalidRequest  = errors.New("invalid request")
)

// StageError reports which pipeline stage failed and why.
type StageError struct {
	Stage Stage
	Kind  error // one of the Err* sentinels
	Err   error
}

func (e *StageError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("stage %d (%s): %v", int(e.Stage), e.Stage, e.Kind)
	}
	return fmt.Sprintf("stage %d (%s): %v: %v", int(e.Stage), e.Stage, e.Kind, e.Err)
}

func (e *StageError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// NewStageError wraps err as a failure of stage s.
func NewStageError(s Stage, kind, err error) *StageError {
	return &StageError{Stage: s, Kind: kind, Err: err}
}

// ChunkProcessingError identifies the chunk whose pipeline run failed.
type ChunkProcessingError struct {
	Index int // zero-based
	Total int
	Err   error
}

func (e *ChunkProcessingError) Error() string {
	return fmt.Sprintf("chunk %d (%d of %d) failed: %v", e.Index, e.Index+1, e.Total, e.Err)
}

func (e *ChunkProcessingError) Unwrap() []error {
	return []error{ErrChunkProcessing, e.Err}
}
