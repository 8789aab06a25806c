//go:build portaudio

// Package portaudio provides microphone capture via the PortAudio C library.
//
// The package is gated behind the "portaudio" build tag because it needs
// the system library at build time (pkg-config portaudio-2.0, e.g.
// brew install portaudio or apt install portaudio19-dev). Builds without
// the tag fall back to stubs that report capture as unavailable.
package portaudio

/*
#cgo pkg-config: portaudio-2.0

#include <portaudio.h>
#include <stdlib.h>
#include <string.h>

// Wrapper functions using void* to avoid CGO type issues with PaStream
static PaError pa_open_stream(void **stream,
                              const PaStreamParameters *inputParams,
                              double sampleRate,
                              unsigned long framesPerBuffer,
                              PaStreamFlags streamFlags) {
    return Pa_OpenStream((PaStream**)stream, inputParams, NULL, sampleRate,
                         framesPerBuffer, streamFlags, NULL, NULL);
}

static PaError pa_start_stream(void *stream) {
    return Pa_StartStream((PaStream*)stream);
}

static PaError pa_stop_stream(void *stream) {
    return Pa_StopStream((PaStream*)stream);
}

static PaError pa_close_stream(void *stream) {
    return Pa_CloseStream((PaStream*)stream);
}

static PaError pa_read_stream(void *stream, void *buffer, unsigned long frames) {
    return Pa_ReadStream((PaStream*)stream, buffer, frames);
}
*/
import "C"

import (
	"errors"
	"fmt"
	"sync"
	"unsafe"
)

var (
	initOnce sync.Once
	initErr  error
)

// paError converts a PortAudio error code to a Go error.
func paError(code C.PaError) error {
	if code == C.paNoError {
		return nil
	}
	return errors.New(C.GoString(C.Pa_GetErrorText(code)))
}

// Initialize initializes the PortAudio library.
// It is safe to call multiple times.
func Initialize() error {
	initOnce.Do(func() {
		initErr = paError(C.Pa_Initialize())
	})
	return initErr
}

// Terminate terminates the PortAudio library.
func Terminate() error {
	return paError(C.Pa_Terminate())
}

// DeviceInfo contains information about an audio capture device.
type DeviceInfo struct {
	Index                   int
	Name                    string
	MaxInputChannels        int
	DefaultLowInputLatency  float64
	DefaultHighInputLatency float64
	DefaultSampleRate       float64
	IsDefaultInput          bool
}

// Devices returns a list of available audio devices.
func Devices() ([]DeviceInfo, error) {
	if err := Initialize(); err != nil {
		return nil, err
	}

	count := int(C.Pa_GetDeviceCount())
	if count < 0 {
		return nil, paError(C.PaError(count))
	}

	defaultInput := int(C.Pa_GetDefaultInputDevice())

	devices := make([]DeviceInfo, count)
	for i := 0; i < count; i++ {
		info := C.Pa_GetDeviceInfo(C.PaDeviceIndex(i))
		if info == nil {
			continue
		}
		devices[i] = DeviceInfo{
			Index:                   i,
			Name:                    C.GoString(info.name),
			MaxInputChannels:        int(info.maxInputChannels),
			DefaultLowInputLatency:  float64(info.defaultLowInputLatency),
			DefaultHighInputLatency: float64(info.defaultHighInputLatency),
			DefaultSampleRate:       float64(info.defaultSampleRate),
			IsDefaultInput:          i == defaultInput,
		}
	}
	return devices, nil
}

// DefaultInputDevice returns the default input device.
func DefaultInputDevice() (*DeviceInfo, error) {
	if err := Initialize(); err != nil {
		return nil, err
	}

	idx := C.Pa_GetDefaultInputDevice()
	if idx == C.paNoDevice {
		return nil, errors.New("no default input device")
	}

	info := C.Pa_GetDeviceInfo(idx)
	if info == nil {
		return nil, errors.New("failed to get device info")
	}

	return &DeviceInfo{
		Index:                   int(idx),
		Name:                    C.GoString(info.name),
		MaxInputChannels:        int(info.maxInputChannels),
		DefaultLowInputLatency:  float64(info.defaultLowInputLatency),
		DefaultHighInputLatency: float64(info.defaultHighInputLatency),
		DefaultSampleRate:       float64(info.defaultSampleRate),
		IsDefaultInput:          true,
	}, nil
}

// PrintDevices prints all available capture devices to stdout.
func PrintDevices() error {
	devices, err := Devices()
	if err != nil {
		return err
	}
	for _, d := range devices {
		if d.MaxInputChannels == 0 {
			continue
		}
		marker := ""
		if d.IsDefaultInput {
			marker = " [DEFAULT]"
		}
		fmt.Printf("%d: %s%s\n", d.Index, d.Name, marker)
		fmt.Printf("   Input channels: %d, default sample rate: %.0f Hz\n", d.MaxInputChannels, d.DefaultSampleRate)
	}
	return nil
}

// Stream represents an open capture stream.
type Stream struct {
	stream     unsafe.Pointer
	buffer     unsafe.Pointer
	bufferSize int
	closed     bool
	mu         sync.Mutex
}

// openStream opens a PortAudio capture stream on the default input device.
func openStream(channels int, sampleRate float64, framesPerBuffer int) (*Stream, error) {
	if err := Initialize(); err != nil {
		return nil, err
	}

	inputDevice := C.Pa_GetDefaultInputDevice()
	if inputDevice == C.paNoDevice {
		return nil, errors.New("no default input device")
	}
	inputInfo := C.Pa_GetDeviceInfo(inputDevice)
	inputParams := &C.PaStreamParameters{
		device:                    inputDevice,
		channelCount:              C.int(channels),
		sampleFormat:              C.paInt16,
		suggestedLatency:          inputInfo.defaultLowInputLatency,
		hostApiSpecificStreamInfo: nil,
	}

	var paStream unsafe.Pointer
	err := paError(C.pa_open_stream(
		&paStream,
		inputParams,
		C.double(sampleRate),
		C.ulong(framesPerBuffer),
		C.paClipOff,
	))
	if err != nil {
		return nil, err
	}

	bufferSize := framesPerBuffer * channels * 2 // int16 = 2 bytes

	return &Stream{
		stream:     paStream,
		buffer:     C.malloc(C.size_t(bufferSize)),
		bufferSize: bufferSize,
	}, nil
}

// Start starts the audio stream.
func (s *Stream) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return errors.New("stream closed")
	}
	return paError(C.pa_start_stream(s.stream))
}

// Stop stops the audio stream.
func (s *Stream) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	return paError(C.pa_stop_stream(s.stream))
}

// Close closes the audio stream.
func (s *Stream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	C.pa_stop_stream(s.stream)
	err := paError(C.pa_close_stream(s.stream))
	C.free(s.buffer)
	return err
}

// Read reads audio samples from the stream.
func (s *Stream) Read(framesPerBuffer int) ([]int16, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, errors.New("stream closed")
	}

	err := paError(C.pa_read_stream(s.stream, s.buffer, C.ulong(framesPerBuffer)))
	if err != nil {
		return nil, err
	}

	// Copy from C buffer to Go slice
	samples := make([]int16, framesPerBuffer)
	C.memcpy(unsafe.Pointer(&samples[0]), s.buffer, C.size_t(framesPerBuffer*2))
	return samples, nil
}
