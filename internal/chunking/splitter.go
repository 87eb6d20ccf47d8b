// Package chunking splits long videos into fixed-duration chunks and joins the
// dubbed chunks back into one file.
package chunking

import (
	"context"
	"fmt"
	"math"
	"path/filepath"

	"github.com/rs/zerolog"

	"video-dubber/internal/janitor"
	"video-dubber/internal/logger"
	"video-dubber/internal/media"
	"video-dubber/models"
)

// Prober reads media duration.
type Prober interface {
	Probe(ctx context.Context, path string) (media.ProbeResult, error)
}

// Cutter extracts a time range of a media file.
type Cutter interface {
	CutTimeRange(ctx context.Context, src, dst string, start, duration float64, reencode bool) error
}

// Plan computes the chunk layout for a video of total seconds split every
// chunkDuration seconds: N = ceil(total/chunkDuration), chunk i covers
// [i*chunkDuration, min((i+1)*chunkDuration, total)]. Paths are left empty.
func Plan(total, chunkDuration float64) ([]models.Chunk, error) {
	if total <= 0 || math.IsNaN(total) || math.IsInf(total, 0) {
		return nil, fmt.Errorf("invalid total duration %v", total)
	}
	if chunkDuration <= 0 || math.IsNaN(chunkDuration) || math.IsInf(chunkDuration, 0) {
		return nil, fmt.Errorf("invalid chunk duration %v", chunkDuration)
	}

	n := int(math.Ceil(total / chunkDuration))
	chunks := make([]models.Chunk, 0, n)
	for i := 0; i < n; i++ {
		start := float64(i) * chunkDuration
		end := math.Min(float64(i+1)*chunkDuration, total)
		if end <= start {
			// float rounding on an exact multiple
			break
		}
		chunks = append(chunks, models.Chunk{
			Index:     i,
			StartTime: start,
			EndTime:   end,
			Duration:  end - start,
		})
	}
	return chunks, nil
}

// ChunkPath names chunk i inside dir, keeping the source container extension.
func ChunkPath(dir, sourcePath string, index int) string {
	ext := filepath.Ext(sourcePath)
	if ext == "" {
		ext = ".mp4"
	}
	return filepath.Join(dir, fmt.Sprintf("chunk_%04d%s", index, ext))
}

// Splitter materializes chunk files for a source video.
type Splitter struct {
	prober   Prober
	cutter   Cutter
	janitor  *janitor.Janitor
	reencode bool
	log      zerolog.Logger
}

func NewSplitter(prober Prober, cutter Cutter, j *janitor.Janitor, reencode bool) *Splitter {
	return &Splitter{
		prober:   prober,
		cutter:   cutter,
		janitor:  j,
		reencode: reencode,
		log:      logger.WithComponent("splitter"),
	}
}

// Split probes path, plans chunks of chunkDuration seconds and writes each chunk
// into outDir. On any failure the chunk files created so far are removed and the
// error wraps models.ErrSplit.
func (s *Splitter) Split(ctx context.Context, path string, chunkDuration float64, outDir string) ([]models.Chunk, error) {
	info, err := s.prober.Probe(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", models.ErrSplit, err)
	}

	chunks, err := Plan(info.DurationSeconds, chunkDuration)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrSplit, err)
	}
	if err := models.ValidateChunks(chunks, info.DurationSeconds); err != nil {
		return nil, fmt.Errorf("%w: bad chunk plan: %v", models.ErrSplit, err)
	}

	log := logger.WithContext(ctx, s.log)
	log.Info().
		Str(logger.FieldPath, path).
		Float64("duration", info.DurationSeconds).
		Int("chunks", len(chunks)).
		Msg("splitting video")

	created := make([]string, 0, len(chunks))
	for i := range chunks {
		if err := ctx.Err(); err != nil {
			s.janitor.DeleteAll(ctx, created...)
			return nil, fmt.Errorf("%w: %w", models.ErrSplit, err)
		}

		c := &chunks[i]
		c.Path = ChunkPath(outDir, path, c.Index)
		if err := s.cutter.CutTimeRange(ctx, path, c.Path, c.StartTime, c.Duration, s.reencode); err != nil {
			created = append(created, c.Path)
			s.janitor.DeleteAll(context.WithoutCancel(ctx), created...)
			return nil, fmt.Errorf("%w: chunk %d: %w", models.ErrSplit, c.Index, err)
		}
		created = append(created, c.Path)
		log.Debug().Int(logger.FieldChunk, c.Index).Str(logger.FieldPath, c.Path).Msg("chunk created")
	}

	return chunks, nil
}
