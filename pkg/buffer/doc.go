// Package buffer provides a thread-safe ring buffer for streaming data.
//
// RingBuffer is a fixed-size buffer that overwrites the oldest data when
// full, which makes it suitable for maintaining sliding windows of recent
// data such as the last N log lines shown in a terminal UI.
//
// RingBuffer implements io.Reader and io.Writer for its element type and
// supports concurrent access from multiple goroutines. Graceful shutdown is
// available through CloseWrite() (reads continue until drained) or
// CloseWithError() (immediate closure).
//
// Example usage:
//
//	buf := buffer.RingN[string](100)
//	buf.Add("line 1")
//	buf.Add("line 2")
//	lines := buf.Bytes()
package buffer
