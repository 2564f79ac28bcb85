// internal/wsproto/conn.go
package wsproto

import (
	"context"
	"net"
	"time"
)

// Options tune the device-side connection.
type Options struct {
	// ReadTimeout bounds every TryReceive call.
	ReadTimeout time.Duration
	// HandshakeTimeout bounds the single blocking handshake read.
	HandshakeTimeout time.Duration
	// BufferPartial keeps incomplete frames across TryReceive calls.
	BufferPartial bool
}

// Conn is an upgraded connection owned by a single goroutine.
type Conn struct {
	nc  net.Conn
	dec *Decoder
}

// NewConn wraps an already upgraded stream.
func NewConn(nc net.Conn, dec *Decoder) *Conn {
	return &Conn{nc: nc, dec: dec}
}

// Dial opens a TCP connection to addr and upgrades it, sending host and path
// in the request line and Host header.
func Dial(ctx context.Context, addr, host, path string, opts Options) (*Conn, *HandshakeResult, error) {
	d := &net.Dialer{Timeout: opts.HandshakeTimeout}
	nc, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, nil, err
	}
	conn, res, err := Upgrade(nc, host, path, opts)
	if err != nil {
		_ = nc.Close()
		return nil, nil, err
	}
	return conn, res, nil
}

// Upgrade performs the handshake on an existing stream.
func Upgrade(nc net.Conn, host, path string, opts Options) (*Conn, *HandshakeResult, error) {
	if opts.HandshakeTimeout > 0 {
		if err := nc.SetDeadline(time.Now().Add(opts.HandshakeTimeout)); err != nil {
			return nil, nil, &StreamError{Op: "handshake", Err: err}
		}
	}
	res, err := Handshake(nc, host, path)
	if err != nil {
		return nil, nil, err
	}
	if err := nc.SetDeadline(time.Time{}); err != nil {
		return nil, nil, &StreamError{Op: "handshake", Err: err}
	}

	dec := NewDecoder(opts.ReadTimeout, opts.BufferPartial)
	dec.Seed(res.Leftover)
	return NewConn(nc, dec), res, nil
}

// TryReceive returns the next frame if one is ready within the read timeout.
func (c *Conn) TryReceive() (*Frame, error) {
	return c.dec.TryDecode(c.nc)
}

// Send writes payload as one masked TEXT frame. Sends carry no deadline.
func (c *Conn) Send(payload []byte) error {
	if _, err := c.nc.Write(Encode(payload)); err != nil {
		return &StreamError{Op: "send", Err: err}
	}
	return nil
}

// Dropped reports how many inbound frames were discarded as undecodable.
func (c *Conn) Dropped() uint64 {
	return c.dec.Dropped()
}

func (c *Conn) RemoteAddr() net.Addr {
	return c.nc.RemoteAddr()
}

func (c *Conn) Close() error {
	return c.nc.Close()
}
