package models

// Stage is one step of the dubbing pipeline, numbered from 1.
type Stage int

const (
	StageExtract Stage = iota + 1
	StageTranscribe
	StageTranslate
	StageSynthesize
	StageMux
)

// StageCount is the number of pipeline stages.
const StageCount = 5

func (s Stage) String() string {
	switch s {
	case StageExtract:
		return "extract"
	case StageTranscribe:
		return "transcribe"
	case StageTranslate:
		return "translate"
	case StageSynthesize:
		return "synthesize"
	case StageMux:
		return "mux"
	default:
		return "unknown"
	}
}

// StatusText returns the user-facing message shown while the stage runs.
func (s Stage) StatusText() string {
	switch s {
	case StageExtract:
		return "Extracting audio..."
	case StageTranscribe:
		return "Transcribing..."
	case StageTranslate:
		return "Translating..."
	case StageSynthesize:
		return "Generating speech..."
	case StageMux:
		return "Creating video..."
	default:
		return ""
	}
}

// ProgressSink receives stage progress from a pipeline run.
type ProgressSink interface {
	Report(stage Stage, percent int, message string)
}

// ChunkSink additionally receives chunk-level progress from the orchestrator.
type ChunkSink interface {
	ProgressSink
	ReportChunk(current, total, percent int, message string)
}

// ProgressFunc adapts a function to ProgressSink.
type ProgressFunc func(stage Stage, percent int, message string)

func (f ProgressFunc) Report(stage Stage, percent int, message string) {
	if f != nil {
		f(stage, percent, message)
	}
}

// DiscardProgress drops every report.
var DiscardProgress ProgressSink = ProgressFunc(nil)
