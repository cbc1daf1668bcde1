package wire

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"strings"

	"github.com/shrey715/network-file-system-sub002/internal/nserrors"
)

// putFixedString writes s into a zero-padded slot of exactly width bytes.
// It truncates silently at encode time; callers validate lengths before
// ever reaching the codec (internal/wire is not where INVALID_FILENAME is
// decided, nm/ss validation is).
func putFixedString(buf *bytes.Buffer, s string, width int) error {
	slot := make([]byte, width)
	copy(slot, s)
	_, err := buf.Write(slot)
	return err
}

// getFixedString reads a width-byte slot and trims the trailing zero padding.
func getFixedString(r io.Reader, width int) (string, error) {
	slot := make([]byte, width)
	if _, err := io.ReadFull(r, slot); err != nil {
		return "", err
	}
	end := bytes.IndexByte(slot, 0)
	if end < 0 {
		end = width
	}
	return string(slot[:end]), nil
}

// EncodeHeader serializes h into the fixed HeaderSize-byte layout.
func EncodeHeader(h Header) ([]byte, error) {
	buf := new(bytes.Buffer)
	buf.Grow(HeaderSize)

	fields := []any{uint8(h.Type), uint8(h.Op), h.ErrorCode, uint8(0) /* reserved */}
	for _, f := range fields {
		if err := binary.Write(buf, binary.BigEndian, f); err != nil {
			return nil, fmt.Errorf("encode header scalars: %w", err)
		}
	}
	if err := binary.Write(buf, binary.BigEndian, h.SentenceIndex); err != nil {
		return nil, fmt.Errorf("encode sentence index: %w", err)
	}
	if err := binary.Write(buf, binary.BigEndian, h.WordIndex); err != nil {
		return nil, fmt.Errorf("encode word index: %w", err)
	}
	if err := binary.Write(buf, binary.BigEndian, h.Flags); err != nil {
		return nil, fmt.Errorf("encode flags: %w", err)
	}
	if err := binary.Write(buf, binary.BigEndian, h.DataLength); err != nil {
		return nil, fmt.Errorf("encode data length: %w", err)
	}

	for _, pair := range []struct {
		s     string
		width int
	}{
		{h.Username, MaxUsername},
		{h.Filename, MaxFilename},
		{h.Foldername, MaxPath},
		{h.CheckpointTag, MaxTag},
	} {
		if err := putFixedString(buf, pair.s, pair.width); err != nil {
			return nil, fmt.Errorf("encode string field: %w", err)
		}
	}

	if buf.Len() != HeaderSize {
		return nil, fmt.Errorf("internal error: encoded header is %d bytes, want %d", buf.Len(), HeaderSize)
	}
	return buf.Bytes(), nil
}

// DecodeHeader parses exactly HeaderSize bytes read from r into a Header.
func DecodeHeader(r io.Reader) (Header, error) {
	var h Header
	raw := make([]byte, 4)
	if _, err := io.ReadFull(r, raw); err != nil {
		return h, fmt.Errorf("read header scalars: %w", err)
	}
	h.Type = MsgType(raw[0])
	h.Op = OpCode(raw[1])
	h.ErrorCode = raw[2]
	// raw[3] reserved

	if err := binary.Read(r, binary.BigEndian, &h.SentenceIndex); err != nil {
		return h, fmt.Errorf("read sentence index: %w", err)
	}
	if err := binary.Read(r, binary.BigEndian, &h.WordIndex); err != nil {
		return h, fmt.Errorf("read word index: %w", err)
	}
	if err := binary.Read(r, binary.BigEndian, &h.Flags); err != nil {
		return h, fmt.Errorf("read flags: %w", err)
	}
	if err := binary.Read(r, binary.BigEndian, &h.DataLength); err != nil {
		return h, fmt.Errorf("read data length: %w", err)
	}

	var err error
	if h.Username, err = getFixedString(r, MaxUsername); err != nil {
		return h, fmt.Errorf("read username: %w", err)
	}
	if h.Filename, err = getFixedString(r, MaxFilename); err != nil {
		return h, fmt.Errorf("read filename: %w", err)
	}
	if h.Foldername, err = getFixedString(r, MaxPath); err != nil {
		return h, fmt.Errorf("read foldername: %w", err)
	}
	if h.CheckpointTag, err = getFixedString(r, MaxTag); err != nil {
		return h, fmt.Errorf("read checkpoint tag: %w", err)
	}
	return h, nil
}

// WriteMessage writes a full header+payload frame to w. It rejects
// oversize payloads with a coded error instead of ever encoding them,
// as a back-pressure requirement.
func WriteMessage(w io.Writer, m *Message) error {
	if len(m.Payload) > MaxPayload {
		return nserrors.New(nserrors.PayloadTooLarge, "payload of %d bytes exceeds %d byte limit", len(m.Payload), MaxPayload)
	}
	m.Header.DataLength = uint32(len(m.Payload))

	hdr, err := EncodeHeader(m.Header)
	if err != nil {
		return err
	}
	if _, err := w.Write(hdr); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	if len(m.Payload) > 0 {
		if _, err := w.Write(m.Payload); err != nil {
			return fmt.Errorf("write payload: %w", err)
		}
	}
	return nil
}

// ReadMessage reads one full header+payload frame from r.
func ReadMessage(r io.Reader) (*Message, error) {
	h, err := DecodeHeader(r)
	if err != nil {
		return nil, err
	}
	if h.DataLength > MaxPayload {
		return nil, nserrors.New(nserrors.PayloadTooLarge, "declared payload of %d bytes exceeds %d byte limit", h.DataLength, MaxPayload)
	}
	payload := make([]byte, h.DataLength)
	if h.DataLength > 0 {
		if _, err := io.ReadFull(r, payload); err != nil {
			return nil, fmt.Errorf("read payload: %w", err)
		}
	}
	return &Message{Header: h, Payload: payload}, nil
}

// EscapeNewlines replaces literal newlines with the wire's <NL> token. Word
// and sentence write payloads carry their index in the header's WordIndex/
// SentenceIndex fields, not re-encoded into the payload text, so the
// payload is just the (possibly multi-line) content being written.
func EscapeNewlines(s string) string {
	return strings.ReplaceAll(s, "\n", "<NL>")
}

// UnescapeNewlines reverses EscapeNewlines.
func UnescapeNewlines(s string) string {
	return strings.ReplaceAll(s, "<NL>", "\n")
}
