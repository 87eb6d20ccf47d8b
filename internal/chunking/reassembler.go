package chunking

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"video-dubber/internal/janitor"
	"video-dubber/internal/logger"
	"video-dubber/internal/media"
	"video-dubber/models"
)

// Concatenator joins the files named in a concat-demuxer list.
type Concatenator interface {
	ConcatStreamCopy(ctx context.Context, listPath, outputPath string) error
}

// Reassembler joins dubbed chunks in index order.
type Reassembler struct {
	concat  Concatenator
	janitor *janitor.Janitor
	log     zerolog.Logger
}

func NewReassembler(c Concatenator, j *janitor.Janitor) *Reassembler {
	return &Reassembler{
		concat:  c,
		janitor: j,
		log:     logger.WithComponent("reassembler"),
	}
}

// Combine writes the chunks, sorted by Index, into outPath. Every index from 0 to
// len(chunks)-1 must be present and its file must exist. Failures wrap
// models.ErrReassembly and leave no file at outPath.
func (r *Reassembler) Combine(ctx context.Context, chunks []models.ProcessedChunk, outPath string) (string, error) {
	if len(chunks) == 0 {
		return "", fmt.Errorf("%w: no chunks to combine", models.ErrReassembly)
	}

	sorted := make([]models.ProcessedChunk, len(chunks))
	copy(sorted, chunks)
	models.SortProcessed(sorted)

	for i, c := range sorted {
		if c.Index != i {
			return "", fmt.Errorf("%w: missing chunk %d", models.ErrReassembly, i)
		}
		if _, err := os.Stat(c.FinalPath); err != nil {
			return "", fmt.Errorf("%w: chunk %d: %v", models.ErrReassembly, c.Index, err)
		}
	}

	listPath := strings.TrimSuffix(outPath, filepath.Ext(outPath)) + "_concat.txt"
	if err := os.MkdirAll(filepath.Dir(outPath), 0755); err != nil {
		return "", fmt.Errorf("%w: %v", models.ErrReassembly, err)
	}
	paths := make([]string, len(sorted))
	for i, c := range sorted {
		paths[i] = c.FinalPath
	}
	if err := media.WriteConcatList(listPath, paths); err != nil {
		return "", fmt.Errorf("%w: %v", models.ErrReassembly, err)
	}
	defer r.janitor.DeleteIfExists(ctx, listPath)

	log := logger.WithContext(ctx, r.log)
	log.Info().Int("chunks", len(sorted)).Str(logger.FieldPath, outPath).Msg("combining chunks")

	if err := r.concat.ConcatStreamCopy(ctx, listPath, outPath); err != nil {
		r.janitor.DeleteIfExists(context.WithoutCancel(ctx), outPath)
		return "", fmt.Errorf("%w: %w", models.ErrReassembly, err)
	}
	if _, err := os.Stat(outPath); err != nil {
		return "", fmt.Errorf("%w: output not created: %v", models.ErrReassembly, err)
	}
	return outPath, nil
}
