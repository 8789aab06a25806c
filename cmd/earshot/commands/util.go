package commands

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/earshot-ai/earshot/pkg/audio/pcm"
	"github.com/earshot-ai/earshot/pkg/audio/resampler"
	"github.com/earshot-ai/earshot/pkg/audio/wav"
	"github.com/earshot-ai/earshot/pkg/cli"
	"github.com/earshot-ai/earshot/pkg/pipeline"
	"github.com/earshot-ai/earshot/pkg/rtasr"
	"github.com/earshot-ai/earshot/pkg/storage"
	"github.com/earshot-ai/earshot/pkg/voiceprint"
)

// createTranscriber creates a realtime transcription client from context configuration
func createTranscriber(ctx *cli.Context, logger *slog.Logger) (*rtasr.Client, error) {
	if ctx.Credentials == nil {
		return nil, fmt.Errorf("credentials not configured, run: earshot config add-context")
	}

	opts := []rtasr.Option{
		rtasr.WithAccessKey(ctx.Credentials.AccessKeyID, ctx.Credentials.AccessKeySecret),
		rtasr.WithLogger(logger),
	}
	if ctx.ASRBaseURL != "" {
		opts = append(opts, rtasr.WithWebSocketURL(ctx.ASRBaseURL))
	}
	if ctx.Language != "" {
		opts = append(opts, rtasr.WithLanguage(ctx.Language))
	}
	if ctx.Timeout > 0 {
		opts = append(opts, rtasr.WithTimeout(time.Duration(ctx.Timeout)*time.Second))
	}

	return rtasr.NewClient(ctx.Credentials.AppID, opts...), nil
}

// createRegistrar creates a voiceprint registry client from context configuration
func createRegistrar(ctx *cli.Context, logger *slog.Logger) (*voiceprint.Client, error) {
	if ctx.Credentials == nil {
		return nil, fmt.Errorf("credentials not configured, run: earshot config add-context")
	}

	opts := []voiceprint.Option{
		voiceprint.WithAccessKey(ctx.Credentials.AccessKeyID, ctx.Credentials.AccessKeySecret),
		voiceprint.WithLogger(logger),
	}
	if ctx.VoiceprintBaseURL != "" {
		opts = append(opts, voiceprint.WithBaseURL(ctx.VoiceprintBaseURL))
	}

	return voiceprint.NewClient(ctx.Credentials.AppID, opts...), nil
}

// createManager opens the voiceprint catalog and wraps it with the
// enrollment manager. Store and audio paths default under the app
// data directory.
func createManager(ctx *cli.Context, logger *slog.Logger) (*voiceprint.Manager, error) {
	registrar, err := createRegistrar(ctx, logger)
	if err != nil {
		return nil, err
	}

	storePath := ctx.StorePath
	audioDir := ctx.AudioDir
	if storePath == "" || audioDir == "" {
		paths, err := cli.NewPaths(appName)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve data directory: %w", err)
		}
		if err := paths.EnsureDataDir(); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
		if storePath == "" {
			storePath = paths.DataPath("voiceprints.json")
		}
		if audioDir == "" {
			audioDir = paths.DataPath("audio")
		}
	}

	store, err := voiceprint.OpenStore(storePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open voiceprint catalog: %w", err)
	}

	files, err := storage.NewLocal(audioDir)
	if err != nil {
		return nil, fmt.Errorf("failed to open audio directory: %w", err)
	}

	return voiceprint.NewManager(store, registrar, files,
		voiceprint.WithManagerLogger(logger)), nil
}

// createPipeline wires the transcriber and enrollment manager together
func createPipeline(ctx *cli.Context, logger *slog.Logger, audit bool, extra ...pipeline.Option) (*pipeline.Pipeline, error) {
	transcriber, err := createTranscriber(ctx, logger)
	if err != nil {
		return nil, err
	}
	manager, err := createManager(ctx, logger)
	if err != nil {
		return nil, err
	}

	opts := []pipeline.Option{pipeline.WithLogger(logger)}
	if audit {
		audioDir := ctx.AudioDir
		if audioDir == "" {
			paths, err := cli.NewPaths(appName)
			if err != nil {
				return nil, fmt.Errorf("failed to resolve data directory: %w", err)
			}
			audioDir = paths.DataPath("audio")
		}
		files, err := storage.NewLocal(audioDir)
		if err != nil {
			return nil, fmt.Errorf("failed to open audio directory: %w", err)
		}
		opts = append(opts, pipeline.WithAuditStore(files))
	}
	opts = append(opts, extra...)

	return pipeline.New(transcriber, manager, opts...), nil
}

// loadAudio reads an audio file and normalizes it to 16 kHz mono 16-bit
// PCM. WAV files are decoded and resampled as needed; anything without
// a RIFF header is assumed to already be raw 16 kHz mono PCM.
func loadAudio(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read audio file: %w", err)
	}

	info, payload, err := wav.Decode(bytes.NewReader(data))
	if errors.Is(err, wav.ErrNotWAV) {
		return data, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}

	if info.Depth != 16 {
		return nil, fmt.Errorf("unsupported sample depth %d in %s (want 16-bit PCM)", info.Depth, path)
	}
	if info.Channels > 2 {
		return nil, fmt.Errorf("unsupported channel count %d in %s", info.Channels, path)
	}

	target := pcm.L16Mono16K
	if info.SampleRate == target.SampleRate() && info.Channels == target.Channels() {
		return payload, nil
	}

	r, err := resampler.New(bytes.NewReader(payload),
		resampler.Format{SampleRate: info.SampleRate, Stereo: info.Channels == 2},
		resampler.Format{SampleRate: target.SampleRate()})
	if err != nil {
		return nil, fmt.Errorf("failed to resample %s: %w", path, err)
	}
	defer r.Close()

	out, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to resample %s: %w", path, err)
	}
	return out, nil
}

// printSuccess prints a success message
func printSuccess(format string, args ...any) {
	cli.PrintSuccess(format, args...)
}
