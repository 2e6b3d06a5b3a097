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

package client

import (
	"errors"
	"net"
	"time"
)

// NewConn wraps a net.Conn so its reads poll the way a serial port with a
// read timeout does, then hands it to New. This is how the client talks
// to a simulated device over TCP or a net.Pipe in tests.
func NewConn(conn net.Conn, opts ...Option) *Client {
	return New(&pollConn{conn: conn}, opts...)
}

type pollConn struct {
	conn net.Conn
}

func (p *pollConn) Read(b []byte) (int, error) {
	p.conn.SetReadDeadline(time.Now().Add(readPoll))
	n, err := p.conn.Read(b)
	if err != nil {
		var nerr net.Error
		if errors.As(err, &nerr) && nerr.Timeout() {
			return n, nil
		}
	}
	return n, err
}

func (p *pollConn) Write(b []byte) (int, error) {
	return p.conn.Write(b)
}

func (p *pollConn) Close() error {
	return p.conn.Close()
}
