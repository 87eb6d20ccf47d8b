package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"video-dubber/internal/media"
	"video-dubber/internal/progress"
)

type videoInfo struct {
	media.ProbeResult
	IsLong                  bool   `json:"isLongVideo"`
	EstimatedChunks         int    `json:"estimatedChunks"`
	EstimatedProcessingTime string `json:"estimatedProcessingTime"`
}

func newProbeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "probe <video>",
		Short: "Show duration, chunk plan and processing estimate for a video",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			ffm := media.NewFFmpegService(cfg.Tools.FFmpegPath, cfg.Tools.FFprobePath)
			res, err := ffm.Probe(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			info := describeVideo(res, cfg.Chunking.LongVideoThreshold, cfg.Chunking.ChunkDuration)
			asJSON, _ := cmd.Flags().GetBool("json")
			return printVideoInfo(cmd.OutOrStdout(), info, asJSON)
		},
	}
	cmd.Flags().Bool("json", false, "Print JSON")
	return cmd
}

func describeVideo(res media.ProbeResult, threshold, chunkSeconds float64) videoInfo {
	info := videoInfo{
		ProbeResult:             res,
		IsLong:                  media.IsLong(res.DurationSeconds, threshold),
		EstimatedChunks:         1,
		EstimatedProcessingTime: progress.FormatDuration(media.EstimatedProcessingTime(res.DurationSeconds)),
	}
	if info.IsLong {
		info.EstimatedChunks = media.EstimatedChunks(res.DurationSeconds, chunkSeconds)
	}
	return info
}

func printVideoInfo(w io.Writer, info videoInfo, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(info)
	}
	fmt.Fprintf(w, "Duration:   %.1fs\n", info.DurationSeconds)
	fmt.Fprintf(w, "Format:     %s\n", info.FormatName)
	fmt.Fprintf(w, "Size:       %.1f MB\n", float64(info.SizeBytes)/(1<<20))
	fmt.Fprintf(w, "Streams:    video=%t audio=%t\n", info.HasVideo, info.HasAudio)
	fmt.Fprintf(w, "Long video: %t (%d chunks)\n", info.IsLong, info.EstimatedChunks)
	fmt.Fprintf(w, "Estimate:   %s\n", info.EstimatedProcessingTime)
	return nil
}
