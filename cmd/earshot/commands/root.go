package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/earshot-ai/earshot/pkg/cli"
)

const appName = "earshot"

var (
	// Global flags
	cfgFile     string
	contextName string
	outputFile  string
	outputJSON  bool
	verbose     bool

	// Global configuration
	globalConfig *cli.Config
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "earshot",
	Short: "Streaming transcription with speaker diarization",
	Long: `earshot - transcribe speech with automatic speaker attribution.

Audio is segmented on silence, each speech segment is transcribed over
a realtime websocket session, and speakers are matched against a local
catalog of registered voiceprints. Speakers the service cannot match
accumulate audio until enough is collected to register them
automatically.

Configuration is stored in ~/.earshot/earshot/ and supports multiple
contexts, similar to kubectl's context management.

Examples:
  # Set up a new context
  earshot config add-context myctx --app-id APP_ID --access-key-id AK --access-key-secret SK

  # Transcribe a recording
  earshot -c myctx transcribe meeting.wav

  # Live transcription from a microphone capture pipe
  arecord -f S16_LE -r 16000 -c 1 -t raw | earshot -c myctx listen

  # Inspect the voiceprint catalog
  earshot -c myctx voiceprint list --json | jq 'keys'
`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global persistent flags
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "", "", "config file (default is ~/.earshot/earshot/config.yaml)")
	rootCmd.PersistentFlags().StringVarP(&contextName, "context", "c", "", "context name to use")
	rootCmd.PersistentFlags().StringVarP(&outputFile, "output", "o", "", "output file (default: stdout)")
	rootCmd.PersistentFlags().BoolVar(&outputJSON, "json", false, "output as JSON (for piping)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	// Add subcommands
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(listenCmd)
	rootCmd.AddCommand(transcribeCmd)
	rootCmd.AddCommand(voiceprintCmd)
}

func initConfig() {
	var err error
	globalConfig, err = cli.LoadConfigWithPath(appName, cfgFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing config: %v\n", err)
		os.Exit(1)
	}
}

// getConfig returns the global configuration
func getConfig() *cli.Config {
	return globalConfig
}

// getContext returns the context configuration to use
func getContext() (*cli.Context, error) {
	cfg := getConfig()
	if cfg == nil {
		return nil, fmt.Errorf("configuration not initialized")
	}

	ctx, err := cfg.ResolveContext(contextName)
	if err != nil {
		if contextName == "" {
			return nil, fmt.Errorf("no context specified. Use -c flag or set a default context with 'earshot config use-context'")
		}
		return nil, err
	}

	return ctx, nil
}

// getOutputFile returns the output file path
func getOutputFile() string {
	return outputFile
}

// isJSONOutput returns whether output should be JSON
func isJSONOutput() bool {
	return outputJSON
}

// outputResult outputs the result using cli package
func outputResult(result any, outputPath string, asJSON bool) error {
	format := cli.FormatYAML
	if asJSON {
		format = cli.FormatJSON
	}
	return cli.Output(result, cli.OutputOptions{
		Format: format,
		File:   outputPath,
	})
}

// printVerbose prints verbose output if enabled
func printVerbose(format string, args ...any) {
	cli.PrintVerbose(verbose, format, args...)
}
