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
	"fmt"

	"github.com/robot-rover/picodox/proto"
)

// Ping checks device liveness.
func (c *Client) Ping() error {
	resp, err := c.Do(proto.Command{Op: proto.OpPing})
	if err != nil {
		return err
	}
	return statusErr(resp)
}

// Info queries the firmware version and build identifier.
func (c *Client) Info() (proto.DeviceInfo, error) {
	resp, err := c.Do(proto.Command{Op: proto.OpGetInfo})
	if err != nil {
		return proto.DeviceInfo{}, err
	}
	if err := statusErr(resp); err != nil {
		return proto.DeviceInfo{}, err
	}
	info, err := proto.DecodeInfo(resp.Payload)
	if err != nil {
		return proto.DeviceInfo{}, fmt.Errorf("decoding device info: %w", err)
	}
	return info, nil
}

// EnterUpdateMode asks the device to reboot into the staging bootloader.
// The device may reset before its acknowledgement reaches the wire, so a
// timeout here is not a failure: acked reports whether the response was
// actually seen.
func (c *Client) EnterUpdateMode() (acked bool, err error) {
	return c.resetCommand(proto.OpEnterUpdateMode)
}

// Reboot restarts the device firmware.
func (c *Client) Reboot() (acked bool, err error) {
	return c.resetCommand(proto.OpReboot)
}

// EnterRecovery drops the device into its mask-ROM loader for recovery
// flashing.
func (c *Client) EnterRecovery() (acked bool, err error) {
	return c.resetCommand(proto.OpEnterRecovery)
}

func (c *Client) resetCommand(op proto.Op) (bool, error) {
	resp, err := c.Do(proto.Command{Op: op})
	if errors.Is(err, ErrTimeout) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, statusErr(resp)
}

// ReadPanicBuffer retrieves the device's panic record region, reading it
// in payload-sized chunks until the device reports no more data.
func (c *Client) ReadPanicBuffer() ([]byte, error) {
	return c.readBuffer(proto.OpReadPanicBuffer)
}

// ReadTraceBuffer retrieves the device's trace ring, oldest entry first.
func (c *Client) ReadTraceBuffer() ([]byte, error) {
	return c.readBuffer(proto.OpReadTraceBuffer)
}

func (c *Client) readBuffer(op proto.Op) ([]byte, error) {
	var buf []byte
	for {
		if len(buf) > 0xFFFF {
			return nil, fmt.Errorf("%s: device keeps sending data past the offset range", op)
		}
		resp, err := c.Do(proto.Command{Op: op, Offset: uint16(len(buf))})
		if err != nil {
			return nil, err
		}
		if err := statusErr(resp); err != nil {
			return nil, err
		}
		if len(resp.Payload) == 0 {
			return buf, nil
		}
		buf = append(buf, resp.Payload...)
	}
}

// ClearPanicBuffer erases the panic record so the next fault is captured.
func (c *Client) ClearPanicBuffer() error {
	resp, err := c.Do(proto.Command{Op: proto.OpClearPanicBuffer})
	if err != nil {
		return err
	}
	return statusErr(resp)
}

// ClearTraceBuffer empties the trace ring.
func (c *Client) ClearTraceBuffer() error {
	resp, err := c.Do(proto.Command{Op: proto.OpClearTraceBuffer})
	if err != nil {
		return err
	}
	return statusErr(resp)
}
