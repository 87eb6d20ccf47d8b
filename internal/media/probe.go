package media

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"strconv"
	"time"

	"video-dubber/internal/logger"
	"video-dubber/models"
)

// ProbeResult is the subset of ffprobe metadata the pipeline needs.
type ProbeResult struct {
	DurationSeconds float64 `json:"duration"`
	SizeBytes       int64   `json:"size"`
	Bitrate         int64   `json:"bitrate"`
	FormatName      string  `json:"format"`
	HasVideo        bool    `json:"hasVideo"`
	HasAudio        bool    `json:"hasAudio"`
}

type probeFormat struct {
	FormatName string `json:"format_name"`
	Duration   string `json:"duration"`
	Size       string `json:"size"`
	BitRate    string `json:"bit_rate"`
}

type probeStream struct {
	CodecType string `json:"codec_type"`
}

type probeOutput struct {
	Streams []probeStream `json:"streams"`
	Format  probeFormat   `json:"format"`
}

// Probe reads container metadata. Failures wrap models.ErrProbe.
func (s *FFmpegService) Probe(ctx context.Context, path string) (ProbeResult, error) {
	info, err := os.Stat(path)
	if err != nil {
		return ProbeResult{}, fmt.Errorf("%w: %v", models.ErrProbe, err)
	}
	if r, ok := s.cache.Get(path, info); ok {
		return r, nil
	}

	output, err := s.run(ctx, s.ffprobePath,
		"-v", "error",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		path,
	)
	if err != nil {
		return ProbeResult{}, fmt.Errorf("%w: ffprobe %s: %v: %s", models.ErrProbe, path, err, tail(output, 512))
	}

	r, err := parseProbeOutput(output)
	if err != nil {
		return ProbeResult{}, fmt.Errorf("%w: %s: %v", models.ErrProbe, path, err)
	}

	s.cache.Set(path, info, r)
	s.log.Debug().
		Str(logger.FieldPath, path).
		Float64("duration", r.DurationSeconds).
		Str("format", r.FormatName).
		Msg("probed media")
	return r, nil
}

func parseProbeOutput(data []byte) (ProbeResult, error) {
	var out probeOutput
	if err := json.Unmarshal(data, &out); err != nil {
		return ProbeResult{}, fmt.Errorf("invalid ffprobe output: %w", err)
	}
	if out.Format.Duration == "" {
		return ProbeResult{}, fmt.Errorf("duration not available in format metadata")
	}
	duration, err := strconv.ParseFloat(out.Format.Duration, 64)
	if err != nil {
		return ProbeResult{}, fmt.Errorf("failed to parse duration %q: %w", out.Format.Duration, err)
	}
	if duration <= 0 || math.IsNaN(duration) || math.IsInf(duration, 0) {
		return ProbeResult{}, fmt.Errorf("invalid duration %v", duration)
	}

	r := ProbeResult{
		DurationSeconds: duration,
		FormatName:      out.Format.FormatName,
	}
	// size and bit_rate are informational; some containers omit them.
	if v, err := strconv.ParseInt(out.Format.Size, 10, 64); err == nil {
		r.SizeBytes = v
	}
	if v, err := strconv.ParseInt(out.Format.BitRate, 10, 64); err == nil {
		r.Bitrate = v
	}
	for _, st := range out.Streams {
		switch st.CodecType {
		case "video":
			r.HasVideo = true
		case "audio":
			r.HasAudio = true
		}
	}
	return r, nil
}

// IsLong reports whether a video of the given duration must be chunked.
func IsLong(durationSeconds, thresholdSeconds float64) bool {
	return durationSeconds > thresholdSeconds
}

// EstimatedChunks returns how many chunks a video of this duration splits into.
func EstimatedChunks(durationSeconds, chunkSeconds float64) int {
	if durationSeconds <= 0 || chunkSeconds <= 0 {
		return 0
	}
	return int(math.Ceil(durationSeconds / chunkSeconds))
}

// EstimatedProcessingTime is the rough wall-clock cost of dubbing: about five
// minutes per started minute of video.
func EstimatedProcessingTime(durationSeconds float64) time.Duration {
	if durationSeconds <= 0 {
		return 0
	}
	minutes := math.Ceil(durationSeconds / 60)
	return time.Duration(minutes*5) * time.Minute
}
