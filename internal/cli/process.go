package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"video-dubber/internal/config"
	"video-dubber/models"
	"video-dubber/services"
)

func newProcessCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "process <video>",
		Short: "Dub one video in the foreground",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProcess(cmd, args[0])
		},
	}
	cmd.Flags().String("lang", config.DefaultTargetLang, "Target language code")
	cmd.Flags().String("provider", "", "TTS provider (gtts, edge-tts, openai)")
	cmd.Flags().String("voice", "", "TTS voice")
	cmd.Flags().String("out", "", "Output directory (overrides paths.output_dir)")
	cmd.Flags().Duration("poll", time.Second, "Progress poll interval")
	_ = cmd.Flags().MarkHidden("poll")
	return cmd
}

func runProcess(cmd *cobra.Command, input string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if out, _ := cmd.Flags().GetString("out"); out != "" {
		cfg.Paths.OutputDir = out
	}
	lang, _ := cmd.Flags().GetString("lang")
	provider, _ := cmd.Flags().GetString("provider")
	voice, _ := cmd.Flags().GetString("voice")
	poll, _ := cmd.Flags().GetDuration("poll")

	absIn, err := filepath.Abs(input)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, appOptions{})
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		_ = a.Close(closeCtx)
	}()

	id, err := a.dubber.Submit(ctx, services.SubmitRequest{
		SourcePath:     absIn,
		TargetLanguage: lang,
		Provider:       provider,
		Voice:          voice,
	})
	if err != nil {
		return err
	}

	job, err := waitForJob(ctx, a.dubber, id, poll, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	if job.Status == models.StatusError {
		return errors.New(job.Error)
	}
	fmt.Fprintln(cmd.OutOrStdout(), job.ResultPath)
	return nil
}

type progressSource interface {
	Progress(ctx context.Context, id string) (*services.Status, error)
}

// waitForJob polls until the job is terminal, printing a status line on each change.
func waitForJob(ctx context.Context, src progressSource, id string, every time.Duration, w io.Writer) (*models.Job, error) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	var last string
	for {
		st, err := src.Progress(ctx, id)
		if err != nil {
			return nil, err
		}
		line := statusLine(st)
		if line != last {
			fmt.Fprintln(w, line)
			last = line
		}
		if st.Job.IsTerminal() {
			return st.Job, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

func statusLine(st *services.Status) string {
	job := st.Job
	est := st.Estimate.Format()
	if job.IsLongVideo && job.TotalChunks > 0 && !job.IsTerminal() {
		return fmt.Sprintf("[%3d%%] chunk %d/%d  %s  (elapsed %s, remaining ~%s)",
			job.Progress, job.CurrentChunk+1, job.TotalChunks, job.Message, est.Elapsed, est.Remaining)
	}
	return fmt.Sprintf("[%3d%%] step %d/%d  %s  (elapsed %s, remaining ~%s)",
		job.Progress, job.CurrentStep, models.StageCount, job.StatusText(), est.Elapsed, est.Remaining)
}
