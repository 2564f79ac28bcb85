// internal/wsproto/codec.go
package wsproto

import (
	"encoding/binary"
	"errors"
	"io"
	"math"
	"net"
	"os"
	"time"
	"unicode/utf8"
)

// Encode builds a single masked TEXT frame carrying payload.
func Encode(payload []byte) []byte {
	return encodeMasked(payload, newMaskKey())
}

func encodeMasked(payload []byte, key [4]byte) []byte {
	n := len(payload)
	size := 2 + 4 + n
	switch {
	case n >= 65536:
		size += 8
	case n >= len16Marker:
		size += 2
	}

	buf := make([]byte, 0, size)
	buf = append(buf, finBit|byte(OpcodeText))
	switch {
	case n < len16Marker:
		buf = append(buf, maskBit|byte(n))
	case n < 65536:
		buf = append(buf, maskBit|len16Marker)
		buf = binary.BigEndian.AppendUint16(buf, uint16(n))
	default:
		buf = append(buf, maskBit|len64Marker)
		buf = binary.BigEndian.AppendUint64(buf, uint64(n))
	}
	buf = append(buf, key[:]...)
	for i, b := range payload {
		buf = append(buf, b^key[i%4])
	}
	return buf
}

// Stream is the part of a net.Conn the decoder needs.
type Stream interface {
	io.Reader
	SetReadDeadline(t time.Time) error
}

// Decoder pulls inbound frames off a stream without ever blocking longer
// than Timeout per call.
//
// By default a frame that has not fully arrived when the deadline hits is
// discarded together with whatever was read of it. With Buffered set the
// bytes are kept and the frame completes on a later call.
type Decoder struct {
	Timeout    time.Duration
	Buffered   bool
	MaxPayload uint64

	buf     []byte
	chunk   []byte
	dropped uint64
}

// NewDecoder returns a decoder with the given per-call read timeout.
func NewDecoder(timeout time.Duration, buffered bool) *Decoder {
	return &Decoder{
		Timeout:    timeout,
		Buffered:   buffered,
		MaxPayload: DefaultMaxPayload,
	}
}

// Seed queues bytes that were already read off the stream, e.g. data that
// arrived in the same segment as the handshake response. Ignored unless
// the decoder is buffered.
func (d *Decoder) Seed(b []byte) {
	if d.Buffered && len(b) > 0 {
		d.buf = append(d.buf, b...)
	}
}

// Dropped counts frames discarded for invalid UTF-8 or oversized lengths.
func (d *Decoder) Dropped() uint64 {
	return d.dropped
}

// TryDecode returns the next complete TEXT-decodable frame, or nil when none
// is available yet. The error is non-nil only for stream failures other
// than the read deadline, which the caller must treat as fatal.
func (d *Decoder) TryDecode(s Stream) (*Frame, error) {
	if d.Buffered {
		return d.tryBuffered(s)
	}
	return d.tryDirect(s)
}

func (d *Decoder) tryDirect(s Stream) (*Frame, error) {
	if err := s.SetReadDeadline(time.Now().Add(d.Timeout)); err != nil {
		return nil, &StreamError{Op: "receive", Err: err}
	}

	var header [2]byte
	if _, err := io.ReadFull(s, header[:]); err != nil {
		return nil, noFrameOr(err)
	}

	length := uint64(header[1] & 0x7F)
	switch length {
	case len16Marker:
		var ext [2]byte
		if _, err := io.ReadFull(s, ext[:]); err != nil {
			return nil, noFrameOr(err)
		}
		length = uint64(binary.BigEndian.Uint16(ext[:]))
	case len64Marker:
		var ext [8]byte
		if _, err := io.ReadFull(s, ext[:]); err != nil {
			return nil, noFrameOr(err)
		}
		length = binary.BigEndian.Uint64(ext[:])
	}
	if length > d.maxPayload() {
		// skip the payload so it is not read as the next header
		d.dropped++
		if _, err := io.CopyN(io.Discard, s, int64(min(length, uint64(math.MaxInt64)))); err != nil {
			return nil, noFrameOr(err)
		}
		return nil, nil
	}

	payload := make([]byte, length)
	if _, err := io.ReadFull(s, payload); err != nil {
		return nil, noFrameOr(err)
	}
	return d.finish(Opcode(header[0]&0x0F), payload), nil
}

func (d *Decoder) tryBuffered(s Stream) (*Frame, error) {
	if f := d.next(); f != nil {
		return f, nil
	}
	if err := s.SetReadDeadline(time.Now().Add(d.Timeout)); err != nil {
		return nil, &StreamError{Op: "receive", Err: err}
	}
	if d.chunk == nil {
		d.chunk = make([]byte, 4096)
	}
	for {
		n, err := s.Read(d.chunk)
		d.buf = append(d.buf, d.chunk[:n]...)
		if f := d.next(); f != nil {
			return f, nil
		}
		if err != nil {
			return nil, noFrameOr(err)
		}
	}
}

// next parses complete frames out of the buffer until one is usable.
func (d *Decoder) next() *Frame {
	for {
		hdr, length, ok := parseLength(d.buf)
		if !ok {
			return nil
		}
		if length > d.maxPayload() {
			// alignment is unrecoverable once a bogus length is seen
			d.dropped++
			d.buf = d.buf[:0]
			return nil
		}
		total := uint64(hdr) + length
		if uint64(len(d.buf)) < total {
			return nil
		}
		payload := make([]byte, length)
		copy(payload, d.buf[hdr:total])
		op := Opcode(d.buf[0] & 0x0F)
		d.buf = append(d.buf[:0], d.buf[total:]...)
		if f := d.finish(op, payload); f != nil {
			return f
		}
	}
}

// parseLength returns the header size and declared payload length once
// enough header bytes are buffered.
func parseLength(b []byte) (hdr int, length uint64, ok bool) {
	if len(b) < 2 {
		return 0, 0, false
	}
	length = uint64(b[1] & 0x7F)
	switch length {
	case len16Marker:
		if len(b) < 4 {
			return 0, 0, false
		}
		return 4, uint64(binary.BigEndian.Uint16(b[2:4])), true
	case len64Marker:
		if len(b) < 10 {
			return 0, 0, false
		}
		return 10, binary.BigEndian.Uint64(b[2:10]), true
	}
	return 2, length, true
}

func (d *Decoder) finish(op Opcode, payload []byte) *Frame {
	if !utf8.Valid(payload) {
		d.dropped++
		return nil
	}
	return &Frame{Opcode: op, Payload: payload}
}

func (d *Decoder) maxPayload() uint64 {
	if d.MaxPayload == 0 {
		return DefaultMaxPayload
	}
	return d.MaxPayload
}

// noFrameOr maps a deadline expiry to "no frame" and anything else to a
// StreamError.
func noFrameOr(err error) error {
	if isTimeout(err) {
		return nil
	}
	return &StreamError{Op: "receive", Err: err}
}

func isTimeout(err error) bool {
	if errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
