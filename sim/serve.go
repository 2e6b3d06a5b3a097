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

package sim

import (
	"context"
	"net"

	"github.com/sirupsen/logrus"

	"github.com/robot-rover/picodox/firmware/dispatch"
)

// Serve exposes the device over a listener, one connection at a time the
// way a single USB cable would. A new connection replaces the previous
// one; a device in recovery mode refuses to talk. Serve returns when the
// listener is closed.
func (d *Device) Serve(ln net.Listener) error {
	for {
		conn, err := ln.Accept()
		if err != nil {
			return err
		}
		if d.InRecovery() {
			logrus.Warn("Connection refused, device is in recovery mode")
			conn.Close()
			continue
		}
		logrus.Infof("Host connected from %s", conn.RemoteAddr())
		d.closeConn()

		d.mu.Lock()
		d.conn = conn
		d.done = make(chan struct{})
		done := d.done
		d.mu.Unlock()

		go func(c net.Conn) {
			defer close(done)
			if err := dispatch.New(c, d).Run(context.Background()); err != nil {
				logrus.Debugf("Dispatcher stopped: %s", err)
			}
			c.Close()
		}(conn)
	}
}
