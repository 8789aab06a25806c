// Package main provides the earshot CLI tool.
//
// Usage:
//
//	earshot [flags] <command> [args]
//
// Commands:
//
//	listen     - Stream audio through segmentation, transcription and diarization
//	transcribe - Transcribe a single audio file with speaker attribution
//	voiceprint - Manage registered speaker voiceprints
//	config     - Configuration management
//
// Configuration:
//
//	The CLI stores configuration in ~/.earshot/earshot/
//	Use 'earshot config' commands to manage contexts.
package main

import (
	"fmt"
	"os"

	"github.com/earshot-ai/earshot/cmd/earshot/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
