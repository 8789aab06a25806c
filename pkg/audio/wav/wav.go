// Package wav reads and writes RIFF/WAVE containers around 16-bit PCM.
//
// Only the plain PCM (format tag 1) layout is supported; that is the
// only container the capture path and the voiceprint registrar deal in.
package wav

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// header is 44 bytes: RIFF chunk + fmt chunk + data chunk header.
const headerSize = 44

const formatPCM = 1

var (
	// ErrNotWAV is returned when the input does not start with a RIFF header.
	ErrNotWAV = errors.New("wav: not a RIFF/WAVE stream")
)

// Info describes the sample format of a decoded WAV stream.
type Info struct {
	SampleRate int
	Channels   int
	Depth      int
}

// Encode writes a complete WAV file containing the given PCM data.
func Encode(w io.Writer, sampleRate, channels, depth int, data []byte) error {
	var hdr [headerSize]byte

	byteRate := sampleRate * channels * depth / 8
	blockAlign := channels * depth / 8

	copy(hdr[0:4], "RIFF")
	binary.LittleEndian.PutUint32(hdr[4:8], uint32(36+len(data)))
	copy(hdr[8:12], "WAVE")

	copy(hdr[12:16], "fmt ")
	binary.LittleEndian.PutUint32(hdr[16:20], 16)
	binary.LittleEndian.PutUint16(hdr[20:22], formatPCM)
	binary.LittleEndian.PutUint16(hdr[22:24], uint16(channels))
	binary.LittleEndian.PutUint32(hdr[24:28], uint32(sampleRate))
	binary.LittleEndian.PutUint32(hdr[28:32], uint32(byteRate))
	binary.LittleEndian.PutUint16(hdr[32:34], uint16(blockAlign))
	binary.LittleEndian.PutUint16(hdr[34:36], uint16(depth))

	copy(hdr[36:40], "data")
	binary.LittleEndian.PutUint32(hdr[40:44], uint32(len(data)))

	if _, err := w.Write(hdr[:]); err != nil {
		return err
	}
	_, err := w.Write(data)
	return err
}

// Decode reads a WAV stream and returns its sample format and raw PCM
// payload. Chunks other than fmt and data are skipped.
func Decode(r io.Reader) (Info, []byte, error) {
	var riff [12]byte
	if _, err := io.ReadFull(r, riff[:]); err != nil {
		return Info{}, nil, err
	}
	if string(riff[0:4]) != "RIFF" || string(riff[8:12]) != "WAVE" {
		return Info{}, nil, ErrNotWAV
	}

	var info Info
	var haveFmt bool
	for {
		var ch [8]byte
		if _, err := io.ReadFull(r, ch[:]); err != nil {
			if err == io.EOF || err == io.ErrUnexpectedEOF {
				return Info{}, nil, fmt.Errorf("wav: missing data chunk")
			}
			return Info{}, nil, err
		}
		id := string(ch[0:4])
		size := binary.LittleEndian.Uint32(ch[4:8])

		switch id {
		case "fmt ":
			body := make([]byte, size)
			if _, err := io.ReadFull(r, body); err != nil {
				return Info{}, nil, err
			}
			if len(body) < 16 {
				return Info{}, nil, fmt.Errorf("wav: short fmt chunk (%d bytes)", len(body))
			}
			if tag := binary.LittleEndian.Uint16(body[0:2]); tag != formatPCM {
				return Info{}, nil, fmt.Errorf("wav: unsupported format tag %d", tag)
			}
			info.Channels = int(binary.LittleEndian.Uint16(body[2:4]))
			info.SampleRate = int(binary.LittleEndian.Uint32(body[4:8]))
			info.Depth = int(binary.LittleEndian.Uint16(body[14:16]))
			haveFmt = true
		case "data":
			if !haveFmt {
				return Info{}, nil, fmt.Errorf("wav: data chunk before fmt chunk")
			}
			data := make([]byte, size)
			if _, err := io.ReadFull(r, data); err != nil {
				// Tolerate a truncated final chunk; keep what is there.
				if err != io.ErrUnexpectedEOF {
					return Info{}, nil, err
				}
			}
			return info, data, nil
		default:
			if _, err := io.CopyN(io.Discard, r, int64(size)); err != nil {
				return Info{}, nil, err
			}
		}
	}
}

// StripHeader removes a leading RIFF header from b, if present, and
// returns the raw PCM payload. Audio handed to the realtime recognizer
// is always raw PCM, so callers strip before streaming.
func StripHeader(b []byte) []byte {
	if len(b) >= headerSize && string(b[0:4]) == "RIFF" {
		return b[headerSize:]
	}
	return b
}
