package tts

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"video-dubber/internal/media"
	"video-dubber/internal/worker"
)

// Concatenator joins the files named in a concat-demuxer list.
type Concatenator interface {
	ConcatStreamCopy(ctx context.Context, listPath, outputPath string) error
}

// segmentFunc speaks one piece of text into path.
type segmentFunc func(ctx context.Context, text, path string) error

// synthesizeSegments speaks each segment into its own file, at most workers at
// a time, and joins them in order into outPath. A single segment is written to
// outPath directly. The segment files are removed afterwards.
func synthesizeSegments(ctx context.Context, segments []string, outPath string, concat Concatenator, workers int, synthesize segmentFunc) error {
	switch len(segments) {
	case 0:
		return errors.New("no text to synthesize")
	case 1:
		return synthesize(ctx, segments[0], outPath)
	}
	if concat == nil {
		return fmt.Errorf("%d segments but no concatenator configured", len(segments))
	}

	segmentDir, err := os.MkdirTemp(filepath.Dir(outPath), "tts_segments_*")
	if err != nil {
		return fmt.Errorf("failed to create segment dir: %w", err)
	}
	defer os.RemoveAll(segmentDir)

	ext := filepath.Ext(outPath)
	paths, err := worker.Process(ctx, segments, workers, func(ctx context.Context, job worker.Job[string]) (string, error) {
		path := segmentPath(segmentDir, job.Index, ext)
		if err := synthesize(ctx, job.Data, path); err != nil {
			return "", fmt.Errorf("segment %d of %d: %w", job.Index+1, len(segments), err)
		}
		return path, nil
	}, nil)
	if err != nil {
		return err
	}

	listPath := filepath.Join(segmentDir, "segments.txt")
	if err := media.WriteConcatList(listPath, paths); err != nil {
		return err
	}
	if err := concat.ConcatStreamCopy(ctx, listPath, outPath); err != nil {
		return fmt.Errorf("failed to join segments: %w", err)
	}
	return requireAudio(outPath)
}

// segmentPath returns the path for a speech segment.
func segmentPath(segmentDir string, index int, ext string) string {
	return filepath.Join(segmentDir, fmt.Sprintf("speech_%04d%s", index, ext))
}
