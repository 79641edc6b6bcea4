// Package nativemsg encodes and decodes browser native-messaging frames.
//
// A frame is a 4-byte length header in host byte order followed by that many
// bytes of UTF-8 JSON.
package nativemsg

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// HeaderLen is the number of bytes in a frame length header.
const HeaderLen = 4

const (
	// MaxRequestBytes caps payloads read from the browser (browser -> host limit).
	MaxRequestBytes = 64 << 20
	// MaxResponseBytes caps payloads written to the browser (host -> browser limit).
	MaxResponseBytes = 1 << 20
)

// ErrProtocol marks a malformed or truncated frame. The stream is unusable after it.
var ErrProtocol = errors.New("native messaging protocol error")

// Frame is one encoded message ready for the wire.
type Frame struct {
	Header  [HeaderLen]byte
	Content []byte
}

// Len reports the on-wire size of the frame.
func (f Frame) Len() int {
	return HeaderLen + len(f.Content)
}

// Bytes returns header and content as one contiguous buffer.
func (f Frame) Bytes() []byte {
	buf := make([]byte, 0, f.Len())
	buf = append(buf, f.Header[:]...)
	return append(buf, f.Content...)
}

// ContentLen decodes the header back into the declared content length.
func (f Frame) ContentLen() uint32 {
	return binary.NativeEndian.Uint32(f.Header[:])
}

// ReadMessage reads the next frame and returns its JSON content.
//
// It returns io.EOF when the stream ends cleanly before a header byte is read.
// Every other failure wraps ErrProtocol.
func ReadMessage(r io.Reader) (json.RawMessage, error) {
	var header [HeaderLen]byte
	switch n, err := io.ReadFull(r, header[:]); {
	case err == io.EOF:
		return nil, io.EOF
	case errors.Is(err, io.ErrUnexpectedEOF):
		return nil, fmt.Errorf("%w: truncated header: wanted %d bytes, read %d", ErrProtocol, HeaderLen, n)
	case err != nil:
		return nil, fmt.Errorf("%w: read header: %v", ErrProtocol, err)
	}

	payloadLen := binary.NativeEndian.Uint32(header[:])
	if payloadLen > MaxRequestBytes {
		return nil, fmt.Errorf("%w: payload of %d bytes exceeds limit %d", ErrProtocol, payloadLen, MaxRequestBytes)
	}

	payload := make([]byte, payloadLen)
	if n, err := io.ReadFull(r, payload); err != nil {
		return nil, fmt.Errorf("%w: truncated payload: wanted %d bytes, read %d", ErrProtocol, payloadLen, n)
	}

	if !json.Valid(payload) {
		return nil, fmt.Errorf("%w: invalid JSON payload", ErrProtocol)
	}
	return json.RawMessage(payload), nil
}

// Decode reads the next frame and unmarshals it into v.
func Decode(r io.Reader, v any) error {
	raw, err := ReadMessage(r)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("%w: decode payload: %v", ErrProtocol, err)
	}
	return nil
}

// Encode serializes v into a frame.
func Encode(v any) (Frame, error) {
	content, err := json.Marshal(v)
	if err != nil {
		return Frame{}, fmt.Errorf("encode message: %w", err)
	}
	if len(content) > MaxResponseBytes {
		return Frame{}, fmt.Errorf("encode message: %d bytes exceeds limit %d", len(content), MaxResponseBytes)
	}

	f := Frame{Content: content}
	binary.NativeEndian.PutUint32(f.Header[:], uint32(len(content)))
	return f, nil
}

type flusher interface {
	Flush() error
}

// WriteFrame writes the header then the content, and flushes buffered writers
// so the peer sees the message immediately.
func WriteFrame(w io.Writer, f Frame) error {
	for _, part := range [][]byte{f.Header[:], f.Content} {
		if err := writeAll(w, part); err != nil {
			return err
		}
	}

	if fl, ok := w.(flusher); ok {
		if err := fl.Flush(); err != nil {
			return fmt.Errorf("flush frame: %w", err)
		}
	}
	return nil
}

// WriteMessage encodes v and writes it as one frame.
func WriteMessage(w io.Writer, v any) error {
	f, err := Encode(v)
	if err != nil {
		return err
	}
	return WriteFrame(w, f)
}

func writeAll(w io.Writer, buf []byte) error {
	for len(buf) > 0 {
		switch n, err := w.Write(buf); {
		case err != nil:
			return fmt.Errorf("write frame: %w", err)
		case n == 0:
			return fmt.Errorf("write frame: %w", io.ErrShortWrite)
		default:
			buf = buf[n:]
		}
	}
	return nil
}
