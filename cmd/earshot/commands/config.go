package commands

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/earshot-ai/earshot/pkg/cli"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage CLI configuration",
	Long: `Manage CLI configuration and contexts.

Contexts allow you to manage multiple API configurations,
similar to kubectl's context management.

Configuration is stored in ~/.earshot/earshot/config.yaml`,
}

var configAddContextCmd = &cobra.Command{
	Use:   "add-context <name>",
	Short: "Add a new context",
	Long: `Add a new context with the specified name.

The speech APIs share one signing identity:
  - App ID: Your application ID
  - Access Key ID / Secret: HMAC signing key pair

Example:
  # Minimal context
  earshot config add-context myctx \
    --app-id YOUR_APP_ID --access-key-id YOUR_AK --access-key-secret YOUR_SK

  # Custom endpoints and storage paths
  earshot config add-context prod \
    --app-id YOUR_APP_ID --access-key-id YOUR_AK --access-key-secret YOUR_SK \
    --asr-url wss://asr.internal.example.com/ast/communicate/v1 \
    --store /var/lib/earshot/voiceprints.json --audio-dir /var/lib/earshot/audio`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]

		appID, err := cmd.Flags().GetString("app-id")
		if err != nil {
			return fmt.Errorf("failed to read 'app-id' flag: %w", err)
		}
		if appID == "" {
			return fmt.Errorf("--app-id is required")
		}

		accessKeyID, err := cmd.Flags().GetString("access-key-id")
		if err != nil {
			return fmt.Errorf("failed to read 'access-key-id' flag: %w", err)
		}
		if accessKeyID == "" {
			return fmt.Errorf("--access-key-id is required")
		}

		accessKeySecret, err := cmd.Flags().GetString("access-key-secret")
		if err != nil {
			return fmt.Errorf("failed to read 'access-key-secret' flag: %w", err)
		}
		if accessKeySecret == "" {
			return fmt.Errorf("--access-key-secret is required")
		}

		asrURL, err := cmd.Flags().GetString("asr-url")
		if err != nil {
			return fmt.Errorf("failed to read 'asr-url' flag: %w", err)
		}

		voiceprintURL, err := cmd.Flags().GetString("voiceprint-url")
		if err != nil {
			return fmt.Errorf("failed to read 'voiceprint-url' flag: %w", err)
		}

		storePath, err := cmd.Flags().GetString("store")
		if err != nil {
			return fmt.Errorf("failed to read 'store' flag: %w", err)
		}

		audioDir, err := cmd.Flags().GetString("audio-dir")
		if err != nil {
			return fmt.Errorf("failed to read 'audio-dir' flag: %w", err)
		}

		language, err := cmd.Flags().GetString("language")
		if err != nil {
			return fmt.Errorf("failed to read 'language' flag: %w", err)
		}

		timeout, err := cmd.Flags().GetInt("timeout")
		if err != nil {
			return fmt.Errorf("failed to read 'timeout' flag: %w", err)
		}

		ctx := &cli.Context{
			Credentials: &cli.Credentials{
				AppID:           appID,
				AccessKeyID:     accessKeyID,
				AccessKeySecret: accessKeySecret,
			},
			ASRBaseURL:        asrURL,
			VoiceprintBaseURL: voiceprintURL,
			StorePath:         storePath,
			AudioDir:          audioDir,
			Language:          language,
			Timeout:           timeout,
		}

		cfg := getConfig()
		if err := cfg.AddContext(name, ctx); err != nil {
			return err
		}

		cli.PrintSuccess("Context %q added successfully", name)
		return nil
	},
}

var configDeleteContextCmd = &cobra.Command{
	Use:   "delete-context <name>",
	Short: "Delete a context",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]

		cfg := getConfig()
		if err := cfg.DeleteContext(name); err != nil {
			return err
		}

		cli.PrintSuccess("Context %q deleted", name)
		return nil
	},
}

var configUseContextCmd = &cobra.Command{
	Use:   "use-context <name>",
	Short: "Set the current context",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]

		cfg := getConfig()
		if err := cfg.UseContext(name); err != nil {
			return err
		}

		cli.PrintSuccess("Switched to context %q", name)
		return nil
	},
}

var configGetContextCmd = &cobra.Command{
	Use:   "get-context",
	Short: "Display the current context",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := getConfig()

		if cfg.CurrentContext == "" {
			fmt.Println("No current context set")
			return nil
		}

		fmt.Println(cfg.CurrentContext)
		return nil
	},
}

var configListContextsCmd = &cobra.Command{
	Use:     "list-contexts",
	Aliases: []string{"get-contexts"},
	Short:   "List all contexts",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := getConfig()

		if len(cfg.Contexts) == 0 {
			fmt.Println("No contexts configured")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "CURRENT\tNAME\tCREDENTIALS\tLANGUAGE")

		for name, ctx := range cfg.Contexts {
			current := ""
			if name == cfg.CurrentContext {
				current = "*"
			}
			credStatus := "✗"
			if ctx.Credentials != nil && ctx.Credentials.AppID != "" && ctx.Credentials.AccessKeySecret != "" {
				credStatus = "✓"
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", current, name, credStatus, ctx.Language)
		}

		w.Flush()
		return nil
	},
}

var configViewCmd = &cobra.Command{
	Use:   "view",
	Short: "View the current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := getConfig()

		fmt.Printf("Config file: %s\n", cfg.Path())
		fmt.Printf("Current context: %s\n", cfg.CurrentContext)
		fmt.Printf("Contexts: %d\n", len(cfg.Contexts))

		if len(cfg.Contexts) > 0 {
			fmt.Println("\nContext details:")
			for name, ctx := range cfg.Contexts {
				fmt.Printf("\n  %s:\n", name)

				if ctx.Credentials != nil {
					fmt.Println("    Credentials:")
					fmt.Printf("      App ID: %s\n", ctx.Credentials.AppID)
					fmt.Printf("      Access Key ID: %s\n", ctx.Credentials.AccessKeyID)
					fmt.Printf("      Access Key Secret: %s\n", cli.MaskAPIKey(ctx.Credentials.AccessKeySecret))
				}

				if ctx.ASRBaseURL != "" {
					fmt.Printf("    ASR URL: %s\n", ctx.ASRBaseURL)
				}
				if ctx.VoiceprintBaseURL != "" {
					fmt.Printf("    Voiceprint URL: %s\n", ctx.VoiceprintBaseURL)
				}
				if ctx.StorePath != "" {
					fmt.Printf("    Store: %s\n", ctx.StorePath)
				}
				if ctx.AudioDir != "" {
					fmt.Printf("    Audio dir: %s\n", ctx.AudioDir)
				}
				if ctx.Language != "" {
					fmt.Printf("    Language: %s\n", ctx.Language)
				}
				if ctx.Timeout > 0 {
					fmt.Printf("    Timeout: %ds\n", ctx.Timeout)
				}
			}
		}

		return nil
	},
}

func init() {
	// add-context flags - credentials (required)
	configAddContextCmd.Flags().String("app-id", "", "Application ID (required)")
	configAddContextCmd.Flags().String("access-key-id", "", "Access key ID (required)")
	configAddContextCmd.Flags().String("access-key-secret", "", "Access key secret (required)")

	// add-context flags - optional settings
	configAddContextCmd.Flags().String("asr-url", "", "Transcription websocket URL")
	configAddContextCmd.Flags().String("voiceprint-url", "", "Voiceprint registry URL")
	configAddContextCmd.Flags().String("store", "", "Voiceprint catalog JSON file")
	configAddContextCmd.Flags().String("audio-dir", "", "Directory for pending and audit audio")
	configAddContextCmd.Flags().String("language", "", "Recognition language hint")
	configAddContextCmd.Flags().Int("timeout", 0, "Request timeout in seconds")

	// Add subcommands
	configCmd.AddCommand(configAddContextCmd)
	configCmd.AddCommand(configDeleteContextCmd)
	configCmd.AddCommand(configUseContextCmd)
	configCmd.AddCommand(configGetContextCmd)
	configCmd.AddCommand(configListContextsCmd)
	configCmd.AddCommand(configViewCmd)
}
