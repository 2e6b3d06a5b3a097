/*
  picodox
  Copyright (c) 2026 robot-rover.  All right reserved.

  This library is free software; you can redistribute it and/or
  modify it under the terms of the GNU Lesser General Public
  License as published by the Free Software Foundation; either
  version 2.1 of the License, or (at your option) any later version.

  This library is distributed in the hope that it will be useful,
  but WITHOUT ANY WARRANTY; without even the implied warranty of
  MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the GNU
  Lesser General Public License for more details.

  You should have received a copy of the GNU Lesser General Public
  License along with this library; if not, write to the Free Software
  Foundation, Inc., 51 Franklin St, Fifth Floor, Boston, MA  02110-1301  USA
*/

// Package client is the host side of the keyboard's control protocol: it
// frames requests onto the serial channel and matches responses back to
// them by correlation token, with timeout-driven retry. The protocol is
// half-duplex and single-client; one request is in flight at a time.
package client

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/sirupsen/logrus"
	"go.bug.st/serial"

	"github.com/robot-rover/picodox/proto"
)

const (
	// DefaultBaudRate matches the CDC-ACM channel the keyboard exposes.
	DefaultBaudRate = 115200

	DefaultTimeout = 2 * time.Second
	DefaultRetries = 3

	// serial reads poll at this granularity so the request deadline is
	// honored even on a silent port.
	readPoll = 100 * time.Millisecond
)

// ErrTimeout means the device never answered within the retry budget. For
// reset-flavored commands this is an expected outcome, see the helpers.
var ErrTimeout = errors.New("timed out waiting for a device response")

// Client talks to one keyboard over a byte stream.
type Client struct {
	rw      io.ReadWriter
	timeout time.Duration
	retries int
	token   byte

	acc  []byte
	read [64]byte
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout sets the per-attempt response deadline.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithRetries sets how many times a timed-out request is reissued.
func WithRetries(n int) Option {
	return func(c *Client) {
		if n >= 0 {
			c.retries = n
		}
	}
}

// New wraps an existing byte stream. The stream's reads must not block
// indefinitely (a serial port with a read timeout, or a net.Conn with a
// deadline), or the client's own deadline cannot fire.
func New(rw io.ReadWriter, opts ...Option) *Client {
	c := &Client{
		rw:      rw,
		timeout: DefaultTimeout,
		retries: DefaultRetries,
		acc:     make([]byte, 0, 2*proto.MaxFrameSize),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Dial opens the serial port the keyboard is attached to.
func Dial(portName string, baudRate int, opts ...Option) (*Client, error) {
	if baudRate == 0 {
		baudRate = DefaultBaudRate
	}
	port, err := serial.Open(portName, &serial.Mode{BaudRate: baudRate})
	if err != nil {
		return nil, fmt.Errorf("opening serial port %s: %w", portName, err)
	}
	logrus.Infof("Opened port %s at %d", portName, baudRate)
	if err := port.SetReadTimeout(readPoll); err != nil {
		port.Close()
		return nil, fmt.Errorf("could not set timeout on serial port: %w", err)
	}
	return New(port, opts...), nil
}

// Close closes the underlying stream when it supports closing.
func (c *Client) Close() error {
	if closer, ok := c.rw.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

// Do sends one command and returns its matching response. The token is
// assigned here; a retry reuses it so a late answer to an earlier attempt
// still matches. Responses carrying any other token are stale echoes of
// abandoned requests and are skipped.
func (c *Client) Do(cmd proto.Command) (proto.Response, error) {
	c.token++
	cmd.Token = c.token

	frame, err := proto.AppendMessageFrame(nil, cmd)
	if err != nil {
		return proto.Response{}, err
	}

	for attempt := 0; attempt <= c.retries; attempt++ {
		if attempt > 0 {
			logrus.Debugf("Retrying %s (attempt %d of %d)", cmd.Op, attempt+1, c.retries+1)
		}
		if _, err := c.rw.Write(frame); err != nil {
			return proto.Response{}, fmt.Errorf("writing %s request: %w", cmd.Op, err)
		}
		resp, err := c.await(cmd.Token, time.Now().Add(c.timeout))
		if errors.Is(err, ErrTimeout) {
			continue
		}
		return resp, err
	}
	return proto.Response{}, fmt.Errorf("%s: %w", cmd.Op, ErrTimeout)
}

func (c *Client) await(token byte, deadline time.Time) (proto.Response, error) {
	c.acc = c.acc[:0]
	for {
		if time.Now().After(deadline) {
			return proto.Response{}, ErrTimeout
		}
		n, err := c.rw.Read(c.read[:])
		if err != nil {
			return proto.Response{}, fmt.Errorf("reading from device: %w", err)
		}
		for _, b := range c.read[:n] {
			resp, ok := c.accept(b, token)
			if ok {
				return resp, nil
			}
		}
	}
}

// accept feeds one byte into frame reassembly and reports whether it
// completed the awaited response.
func (c *Client) accept(b byte, token byte) (proto.Response, bool) {
	if b != proto.FrameDelim {
		if len(c.acc) == cap(c.acc) {
			// Hopeless frame; drop it and resync at the next delimiter.
			c.acc = c.acc[:0]
		}
		c.acc = append(c.acc, b)
		return proto.Response{}, false
	}

	frame := c.acc
	c.acc = c.acc[:0]
	if len(frame) == 0 {
		return proto.Response{}, false
	}
	msg, err := proto.DecodeMessageFrame(frame)
	if err != nil {
		logrus.Warnf("Discarding frame from device: %s", err)
		return proto.Response{}, false
	}
	resp, ok := msg.(proto.Response)
	if !ok {
		logrus.Warnf("Device sent a command message, ignoring")
		return proto.Response{}, false
	}
	if resp.Token != token {
		logrus.Debugf("Skipping stale response (token %d, awaiting %d)", resp.Token, token)
		return proto.Response{}, false
	}
	return resp, true
}

// statusErr converts a non-OK response into an error.
func statusErr(r proto.Response) error {
	if r.Status == proto.StatusOK {
		return nil
	}
	return fmt.Errorf("device answered %s: %s", r.Op, r.Status)
}
