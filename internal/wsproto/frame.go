// internal/wsproto/frame.go
// Minimal RFC 6455 client used by the device: masked TEXT frames out,
// unmasked TEXT frames in, one unfragmented frame per message.
package wsproto

import (
	"errors"
	"fmt"
)

// Opcode is the low nibble of the first header byte.
type Opcode uint8

const (
	OpcodeContinuation Opcode = 0x0
	OpcodeText         Opcode = 0x1
	OpcodeBinary       Opcode = 0x2
	OpcodeClose        Opcode = 0x8
	OpcodePing         Opcode = 0x9
	OpcodePong         Opcode = 0xA
)

func (o Opcode) String() string {
	switch o {
	case OpcodeContinuation:
		return "CONTINUATION"
	case OpcodeText:
		return "TEXT"
	case OpcodeBinary:
		return "BINARY"
	case OpcodeClose:
		return "CLOSE"
	case OpcodePing:
		return "PING"
	case OpcodePong:
		return "PONG"
	default:
		return fmt.Sprintf("OPCODE(0x%x)", uint8(o))
	}
}

// Frame is one decoded, always-final message.
type Frame struct {
	Opcode  Opcode
	Payload []byte
}

// Text returns the payload as a string.
func (f *Frame) Text() string {
	return string(f.Payload)
}

const (
	finBit  = 0x80
	maskBit = 0x80

	len16Marker = 126
	len64Marker = 127

	// DefaultMaxPayload bounds what the decoder is willing to allocate for a
	// single inbound frame. Commands are a few dozen bytes.
	DefaultMaxPayload = 1 << 20
)

var (
	ErrHandshakeRejected = errors.New("websocket handshake rejected")
)

// StreamError is a socket-level failure on the framed connection. It is
// fatal for the connection.
type StreamError struct {
	Op  string
	Err error
}

func (e *StreamError) Error() string {
	return fmt.Sprintf("websocket %s: %v", e.Op, e.Err)
}

func (e *StreamError) Unwrap() error {
	return e.Err
}
