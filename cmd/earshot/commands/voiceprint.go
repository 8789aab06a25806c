package commands

import (
	"fmt"
	"log/slog"
	"os"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/earshot-ai/earshot/pkg/audio/pcm"
)

var voiceprintCmd = &cobra.Command{
	Use:     "voiceprint",
	Aliases: []string{"vp"},
	Short:   "Manage registered speaker voiceprints",
	Long: `Manage the local voiceprint catalog and the remote registry.

Every operation updates both: register and update upload audio to the
registry, delete removes the features there, and the catalog JSON file
tracks what is registered so transcription can match against it.

Audio must contain at least 10 seconds of speech for register and
update. WAV input is decoded and resampled as needed; any other file
is treated as raw 16 kHz mono 16-bit PCM.`,
}

var voiceprintListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered voiceprints",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, err := getContext()
		if err != nil {
			return err
		}

		manager, err := createManager(ctx, discardLogger())
		if err != nil {
			return err
		}

		registered := manager.Registered()
		if isJSONOutput() || getOutputFile() != "" {
			return outputResult(registered, getOutputFile(), isJSONOutput())
		}

		if len(registered) == 0 {
			fmt.Println("No voiceprints registered")
			return nil
		}

		ids := make([]string, 0, len(registered))
		for id := range registered {
			ids = append(ids, id)
		}
		sort.Strings(ids)

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "FEATURE_ID\tNAME\tCREATED")
		for _, id := range ids {
			rec := registered[id]
			fmt.Fprintf(w, "%s\t%s\t%s\n", id, rec.Name, rec.CreatedAt.Format(time.DateTime))
		}
		w.Flush()
		return nil
	},
}

var voiceprintRegisterCmd = &cobra.Command{
	Use:   "register <file>",
	Short: "Register a new voiceprint from an audio file",
	Long: `Upload an audio file to the voiceprint registry and record the
returned feature id in the local catalog.

Examples:
  earshot -c myctx voiceprint register alice.wav --name alice
  earshot -c myctx voiceprint register alice.wav`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name, err := cmd.Flags().GetString("name")
		if err != nil {
			return fmt.Errorf("failed to read 'name' flag: %w", err)
		}

		ctx, err := getContext()
		if err != nil {
			return err
		}

		audio, err := loadAudio(args[0])
		if err != nil {
			return err
		}
		printVerbose("Audio: %s (%v)", args[0], pcm.L16Mono16K.Duration(int64(len(audio))))

		manager, err := createManager(ctx, verboseLogger())
		if err != nil {
			return err
		}

		featureID, err := manager.Register(cmd.Context(), audio, name)
		if err != nil {
			return err
		}

		printSuccess("Voiceprint registered: %s", featureID)
		return nil
	},
}

var voiceprintUpdateCmd = &cobra.Command{
	Use:   "update <feature-id> <file>",
	Short: "Replace the audio of a registered voiceprint",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, err := getContext()
		if err != nil {
			return err
		}

		audio, err := loadAudio(args[1])
		if err != nil {
			return err
		}

		manager, err := createManager(ctx, verboseLogger())
		if err != nil {
			return err
		}

		if err := manager.Update(cmd.Context(), args[0], audio); err != nil {
			return err
		}

		printSuccess("Voiceprint %s updated", args[0])
		return nil
	},
}

var voiceprintDeleteCmd = &cobra.Command{
	Use:   "delete <feature-id>...",
	Short: "Delete registered voiceprints",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, err := getContext()
		if err != nil {
			return err
		}

		manager, err := createManager(ctx, verboseLogger())
		if err != nil {
			return err
		}

		if err := manager.Delete(cmd.Context(), args); err != nil {
			return err
		}

		printSuccess("Deleted %d voiceprint(s)", len(args))
		return nil
	},
}

// verboseLogger logs to stderr at the level selected by --verbose.
func verboseLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel(),
	}))
}

// discardLogger silences diagnostics for read-only commands.
func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func init() {
	voiceprintRegisterCmd.Flags().String("name", "", "display name for the catalog (default speaker_<timestamp>)")

	voiceprintCmd.AddCommand(voiceprintListCmd)
	voiceprintCmd.AddCommand(voiceprintRegisterCmd)
	voiceprintCmd.AddCommand(voiceprintUpdateCmd)
	voiceprintCmd.AddCommand(voiceprintDeleteCmd)
}
