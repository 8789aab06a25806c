package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"github.com/earshot-ai/earshot/pkg/audio/frame"
	"github.com/earshot-ai/earshot/pkg/audio/pcm"
	"github.com/earshot-ai/earshot/pkg/audio/portaudio"
	"github.com/earshot-ai/earshot/pkg/cli"
	"github.com/earshot-ai/earshot/pkg/pipeline"
	"github.com/earshot-ai/earshot/pkg/vad"
)

var listenCmd = &cobra.Command{
	Use:   "listen [file]",
	Short: "Stream audio through segmentation and transcription",
	Long: `Continuously segment an audio stream on silence and transcribe
each speech segment with speaker attribution.

Without arguments, raw 16 kHz mono 16-bit PCM is read from stdin. With
a file argument the file is normalized to that format first; pass
--realtime to replay it at capture speed.

Transcripts are printed as segments complete. Log output is buffered
while listening and shown on exit with -v so it does not interleave
with the live transcript.

With --mic the default microphone is captured directly; this needs a
binary built with -tags portaudio.

Examples:
  arecord -f S16_LE -r 16000 -c 1 -t raw | earshot -c myctx listen
  earshot -c myctx listen --mic
  earshot -c myctx listen meeting.wav --realtime
  earshot -c myctx listen meeting.wav --silence 2s --min-speech 300ms
  earshot -c myctx listen --json | jq -c '.utterances[]'`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		silence, err := cmd.Flags().GetDuration("silence")
		if err != nil {
			return fmt.Errorf("failed to read 'silence' flag: %w", err)
		}
		minSpeech, err := cmd.Flags().GetDuration("min-speech")
		if err != nil {
			return fmt.Errorf("failed to read 'min-speech' flag: %w", err)
		}
		frameDuration, err := cmd.Flags().GetDuration("frame")
		if err != nil {
			return fmt.Errorf("failed to read 'frame' flag: %w", err)
		}
		aggressiveness, err := cmd.Flags().GetInt("aggressiveness")
		if err != nil {
			return fmt.Errorf("failed to read 'aggressiveness' flag: %w", err)
		}
		realtime, err := cmd.Flags().GetBool("realtime")
		if err != nil {
			return fmt.Errorf("failed to read 'realtime' flag: %w", err)
		}
		noEnroll, err := cmd.Flags().GetBool("no-enroll")
		if err != nil {
			return fmt.Errorf("failed to read 'no-enroll' flag: %w", err)
		}
		audit, err := cmd.Flags().GetBool("audit")
		if err != nil {
			return fmt.Errorf("failed to read 'audit' flag: %w", err)
		}
		tuningFile, err := cmd.Flags().GetString("tuning")
		if err != nil {
			return fmt.Errorf("failed to read 'tuning' flag: %w", err)
		}
		if tuningFile != "" {
			var tuning segmenterTuning
			if err := cli.LoadRequest(tuningFile, &tuning); err != nil {
				return err
			}
			if err := tuning.apply(&silence, &minSpeech, &frameDuration, &aggressiveness); err != nil {
				return fmt.Errorf("invalid tuning file %s: %w", tuningFile, err)
			}
		}

		mic, err := cmd.Flags().GetBool("mic")
		if err != nil {
			return fmt.Errorf("failed to read 'mic' flag: %w", err)
		}
		listDevices, err := cmd.Flags().GetBool("devices")
		if err != nil {
			return fmt.Errorf("failed to read 'devices' flag: %w", err)
		}
		if listDevices {
			return portaudio.PrintDevices()
		}
		if mic && len(args) > 0 {
			return fmt.Errorf("--mic and a file argument are mutually exclusive")
		}

		cliCtx, err := getContext()
		if err != nil {
			return err
		}

		// Logs go to a ring buffer so they never interleave with the
		// live transcript; -v dumps them once the stream ends.
		logs := cli.NewLogWriter(500)
		logger := slog.New(slog.NewTextHandler(logs, &slog.HandlerOptions{
			Level: logLevel(),
		}))

		var src frame.Source
		if mic {
			src, err = portaudio.NewInputStream(pcm.L16Mono16K, frameDuration)
			if err != nil {
				return err
			}
		} else {
			var input io.Reader
			if len(args) == 1 {
				audio, err := loadAudio(args[0])
				if err != nil {
					return err
				}
				input = bytes.NewReader(audio)
				printVerbose("Audio: %s (%v)", args[0], pcm.L16Mono16K.Duration(int64(len(audio))))
			} else {
				input = os.Stdin
			}
			src, err = frame.NewReader(input, frame.Options{
				Format:        pcm.L16Mono16K,
				FrameDuration: frameDuration,
				Realtime:      realtime,
			})
			if err != nil {
				return err
			}
		}
		defer src.Close()

		seg := vad.NewSegmenter(src, vad.Config{
			SilenceThreshold:  silence,
			MinSpeechDuration: minSpeech,
			Classifier:        vad.NewEnergy(aggressiveness),
			Logger:            logger,
		})

		var extra []pipeline.Option
		if noEnroll {
			extra = append(extra, pipeline.WithoutEnrollment())
		}
		p, err := createPipeline(cliCtx, logger, audit, extra...)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		styles := cli.NewStyles(cli.DefaultTheme)
		enc := json.NewEncoder(os.Stdout)

		err = p.Run(ctx, seg, func(t *pipeline.Transcript) {
			if isJSONOutput() {
				enc.Encode(t)
				return
			}
			printTranscript(t, styles)
		})

		if verbose {
			for _, line := range logs.Lines() {
				fmt.Fprintln(os.Stderr, line)
			}
		}

		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	},
}

// segmenterTuning is the shape of the --tuning YAML/JSON file.
// Durations are strings like "2s" or "300ms".
type segmenterTuning struct {
	Silence        string `yaml:"silence" json:"silence"`
	MinSpeech      string `yaml:"min_speech" json:"min_speech"`
	Frame          string `yaml:"frame" json:"frame"`
	Aggressiveness *int   `yaml:"aggressiveness" json:"aggressiveness"`
}

func (t *segmenterTuning) apply(silence, minSpeech, frame *time.Duration, aggressiveness *int) error {
	set := func(dst *time.Duration, s string) error {
		if s == "" {
			return nil
		}
		d, err := time.ParseDuration(s)
		if err != nil {
			return err
		}
		*dst = d
		return nil
	}
	if err := set(silence, t.Silence); err != nil {
		return err
	}
	if err := set(minSpeech, t.MinSpeech); err != nil {
		return err
	}
	if err := set(frame, t.Frame); err != nil {
		return err
	}
	if t.Aggressiveness != nil {
		*aggressiveness = *t.Aggressiveness
	}
	return nil
}

// printTranscript renders one transcript with colorized speaker labels,
// a new line whenever the speaker changes.
func printTranscript(t *pipeline.Transcript, styles cli.Styles) {
	header := t.Start.Time().Format(time.TimeOnly) + " (" + cli.FormatDuration(int(t.Duration.Milliseconds())) + ")"
	fmt.Println(styles.Help.Render(header))
	if len(t.Utterances) == 0 {
		fmt.Println(t.Text)
		return
	}
	speaker := -1
	for _, u := range t.Utterances {
		if u.Speaker != speaker {
			if speaker != -1 {
				fmt.Println()
			}
			fmt.Print(styles.Label.Render("["+u.Label+"]") + ": ")
			speaker = u.Speaker
		}
		fmt.Print(u.Text)
	}
	fmt.Println()
}

func init() {
	listenCmd.Flags().Duration("silence", vad.DefaultSilenceThreshold, "consecutive silence that ends a segment")
	listenCmd.Flags().Duration("min-speech", vad.DefaultMinSpeechDuration, "discard segments with less speech than this")
	listenCmd.Flags().Duration("frame", 30*time.Millisecond, "analysis frame duration (10ms, 20ms or 30ms)")
	listenCmd.Flags().Int("aggressiveness", 0, "voice activity aggressiveness (0-3)")
	listenCmd.Flags().Bool("realtime", false, "replay file input at capture speed")
	listenCmd.Flags().Bool("no-enroll", false, "do not register unknown speakers")
	listenCmd.Flags().Bool("audit", false, "keep a WAV copy of processed audio")
	listenCmd.Flags().String("tuning", "", "YAML/JSON file with segmenter settings")
	listenCmd.Flags().Bool("mic", false, "capture from the default microphone (requires -tags portaudio)")
	listenCmd.Flags().Bool("devices", false, "list capture devices and exit")
}
