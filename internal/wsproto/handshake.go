// internal/wsproto/handshake.go
package wsproto

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"io"
	"strings"
)

const (
	handshakeReadSize  = 1024
	switchingProtocols = "101 Switching Protocols"
)

// HandshakeResult is what the server answered to a successful upgrade.
type HandshakeResult struct {
	Response string
	// Leftover holds bytes received after the header terminator in the same read.
	Leftover []byte
}

// HandshakeError reports a rejected upgrade. Response is whatever the server
// sent, possibly empty.
type HandshakeError struct {
	Response string
	Cause    error
}

func (e *HandshakeError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%v: %v", ErrHandshakeRejected, e.Cause)
	}
	return fmt.Sprintf("%v: %q", ErrHandshakeRejected, e.Response)
}

func (e *HandshakeError) Unwrap() error {
	return ErrHandshakeRejected
}

// NewKey returns a base64-encoded 16 byte Sec-WebSocket-Key.
func NewKey() string {
	var nonce [16]byte
	randomBytes(nonce[:])
	return base64.StdEncoding.EncodeToString(nonce[:])
}

// UpgradeRequest renders the fixed upgrade request.
func UpgradeRequest(host, path, key string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "GET %s HTTP/1.1\r\n", path)
	fmt.Fprintf(&sb, "Host: %s\r\n", host)
	sb.WriteString("Upgrade: websocket\r\n")
	sb.WriteString("Connection: Upgrade\r\n")
	fmt.Fprintf(&sb, "Sec-WebSocket-Key: %s\r\n", key)
	sb.WriteString("Sec-WebSocket-Version: 13\r\n")
	sb.WriteString("\r\n")
	return sb.String()
}

// Handshake sends the upgrade request and performs a single read of the
// answer. Any answer without "101 Switching Protocols" is a HandshakeError;
// a failed write is a StreamError. There is no retry.
func Handshake(rw io.ReadWriter, host, path string) (*HandshakeResult, error) {
	req := UpgradeRequest(host, path, NewKey())
	if _, err := io.WriteString(rw, req); err != nil {
		return nil, &StreamError{Op: "handshake", Err: err}
	}

	buf := make([]byte, handshakeReadSize)
	n, err := rw.Read(buf)
	response := string(buf[:n])
	if !strings.Contains(response, switchingProtocols) {
		if n > 0 {
			err = nil
		}
		return nil, &HandshakeError{Response: response, Cause: err}
	}

	res := &HandshakeResult{Response: response}
	if i := bytes.Index(buf[:n], []byte("\r\n\r\n")); i >= 0 && i+4 < n {
		res.Leftover = append([]byte(nil), buf[i+4:n]...)
	}
	return res, nil
}
