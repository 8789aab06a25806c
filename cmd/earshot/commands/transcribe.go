package commands

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/earshot-ai/earshot/pkg/audio/pcm"
	"github.com/earshot-ai/earshot/pkg/pipeline"
	"github.com/earshot-ai/earshot/pkg/vad"
)

var transcribeCmd = &cobra.Command{
	Use:   "transcribe <file>",
	Short: "Transcribe an audio file with speaker attribution",
	Long: `Transcribe a single audio file through one realtime session.

The file is normalized to 16 kHz mono PCM, streamed to the
transcription service at realtime pace, and the result is attributed
against the registered voiceprint catalog. Unmatched speakers with
enough speech are registered automatically; use --no-enroll to match
against existing voiceprints only.

WAV input is decoded and resampled as needed. Any other file is
treated as raw 16 kHz mono 16-bit PCM.

Examples:
  earshot -c myctx transcribe meeting.wav
  earshot -c myctx transcribe meeting.wav --json | jq '.utterances'
  earshot -c myctx transcribe call.pcm --no-enroll -o transcript.yaml`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]

		noEnroll, err := cmd.Flags().GetBool("no-enroll")
		if err != nil {
			return fmt.Errorf("failed to read 'no-enroll' flag: %w", err)
		}
		audit, err := cmd.Flags().GetBool("audit")
		if err != nil {
			return fmt.Errorf("failed to read 'audit' flag: %w", err)
		}

		ctx, err := getContext()
		if err != nil {
			return err
		}

		logger := verboseLogger()

		audio, err := loadAudio(path)
		if err != nil {
			return err
		}

		printVerbose("Using context: %s", ctx.Name)
		printVerbose("Audio: %s (%v)", path, pcm.L16Mono16K.Duration(int64(len(audio))))

		var extra []pipeline.Option
		if noEnroll {
			extra = append(extra, pipeline.WithoutEnrollment())
		}
		p, err := createPipeline(ctx, logger, audit, extra...)
		if err != nil {
			return err
		}

		now := time.Now()
		segment := &vad.Segment{
			PCM:    audio,
			Format: pcm.L16Mono16K,
			Start:  now,
			End:    now.Add(pcm.L16Mono16K.Duration(int64(len(audio)))),
		}

		transcript, err := p.Process(cmd.Context(), segment)
		if err != nil {
			return err
		}

		if isJSONOutput() || getOutputFile() != "" {
			return outputResult(transcript, getOutputFile(), isJSONOutput())
		}
		fmt.Println(transcript.String())
		return nil
	},
}

func init() {
	transcribeCmd.Flags().Bool("no-enroll", false, "do not register unknown speakers")
	transcribeCmd.Flags().Bool("audit", false, "keep a WAV copy of processed audio")
}

// logLevel maps the --verbose flag onto slog levels.
func logLevel() slog.Level {
	if verbose {
		return slog.LevelDebug
	}
	return slog.LevelWarn
}
