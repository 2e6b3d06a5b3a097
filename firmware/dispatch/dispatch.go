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

// Package dispatch is the firmware's command task: it reassembles frames
// from the raw serial byte stream, decodes commands, executes them against
// the board and the diagnostic buffers, and writes back responses.
//
// The dispatcher is strictly single-command-at-a-time: frames are handled
// in arrival order and each response is written before the next frame is
// considered, so responses can never be reordered.
package dispatch

import (
	"context"
	"errors"
	"io"

	"github.com/sirupsen/logrus"

	"github.com/robot-rover/picodox/firmware/diag"
	"github.com/robot-rover/picodox/proto"
)

// Board is the hardware surface the dispatcher drives. The reset-flavored
// calls do not return on real hardware; implementations for tests simply
// record the request.
type Board interface {
	// Info reports the firmware version and build identifier.
	Info() (version, build string)
	// Reset restarts the MCU.
	Reset()
	// EnterUpdateMode persists the update-request marker and resets into
	// the bootloader so a new image can be staged.
	EnterUpdateMode()
	// EnterRecovery resets into the MCU's native mask-ROM loader.
	EnterRecovery()
}

// accCap bounds frame accumulation. Two full frames of headroom, matching
// the device's USB packet buffer arrangement.
const accCap = 2 * proto.MaxFrameSize

// Dispatcher owns one half-duplex control channel.
type Dispatcher struct {
	rw    io.ReadWriter
	board Board

	acc      []byte
	overflow bool
	read     [64]byte
	out      []byte
}

// New returns a dispatcher reading commands from rw and writing responses
// back to it.
func New(rw io.ReadWriter, board Board) *Dispatcher {
	return &Dispatcher{
		rw:    rw,
		board: board,
		acc:   make([]byte, 0, accCap),
		out:   make([]byte, 0, proto.MaxFrameSize),
	}
}

// Run consumes the byte stream until the transport fails or ctx is
// canceled. A clean EOF (host closed the channel) returns nil.
func (d *Dispatcher) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		n, err := d.rw.Read(d.read[:])
		for _, b := range d.read[:n] {
			d.feed(b)
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
	}
}

// feed advances the reassembly state machine by one raw byte. Whatever the
// decode outcome, the accumulator resets at every delimiter, so one bad
// frame can never poison the next.
func (d *Dispatcher) feed(b byte) {
	if b == proto.FrameDelim {
		frame := d.acc
		dropped := d.overflow
		d.acc = d.acc[:0]
		d.overflow = false
		switch {
		case dropped:
			// Already logged when the overflow started.
		case len(frame) == 0:
			// Delimiter run between frames; nothing to do.
		default:
			d.handleFrame(frame)
		}
		return
	}
	if d.overflow {
		return
	}
	if len(d.acc) == accCap {
		logrus.Errorf("Command frame exceeds %d bytes, dropping until next delimiter", accCap)
		d.overflow = true
		return
	}
	d.acc = append(d.acc, b)
}

func (d *Dispatcher) handleFrame(frame []byte) {
	msg, err := proto.DecodeMessageFrame(frame)

	var unknown *proto.UnknownTagError
	switch {
	case errors.As(err, &unknown):
		// Well-framed but from a protocol revision this firmware does not
		// speak. The token survives at its fixed offset, so the host gets
		// an answer instead of a desynchronized stream.
		logrus.Warnf("Rejecting message: %s", unknown)
		d.respond(proto.Response{Op: proto.OpNone, Token: unknown.Token, Status: proto.StatusUnknownCommand})
		return
	case err != nil:
		// Transport noise. Discard the frame whole; the host's timeout
		// covers the missing answer.
		logrus.Debugf("Discarding frame: %s", err)
		return
	}

	switch m := msg.(type) {
	case proto.Command:
		// Diagnostic reads are not traced; draining the trace ring must
		// not refill it as fast as the host empties it.
		if m.Op != proto.OpReadPanicBuffer && m.Op != proto.OpReadTraceBuffer {
			diag.Trace(diag.TraceTagCommand, []byte{byte(m.Op), m.Token})
		}
		d.execute(m)
	case proto.Response:
		// Only the host sends responses; one arriving here means the two
		// ends disagree about who is who.
		logrus.Warnf("Host sent a response message (token %d)", m.Token)
		d.respond(proto.Response{Op: proto.OpNone, Token: m.Token, Status: proto.StatusBadRequest})
	}
}

func (d *Dispatcher) execute(cmd proto.Command) {
	ok := proto.Response{Op: cmd.Op, Token: cmd.Token, Status: proto.StatusOK}

	switch cmd.Op {
	case proto.OpPing:
		d.respond(ok)

	case proto.OpGetInfo:
		version, build := d.board.Info()
		payload, err := proto.AppendInfo(nil, proto.DeviceInfo{Version: version, Build: build})
		if err != nil {
			logrus.Errorf("Device info does not encode: %s", err)
			d.respond(proto.Response{Op: cmd.Op, Token: cmd.Token, Status: proto.StatusBadRequest})
			return
		}
		ok.Payload = payload
		d.respond(ok)

	case proto.OpEnterUpdateMode:
		// Best effort: the host may see the reset before this response.
		d.respond(ok)
		diag.Trace(diag.TraceTagUpdate, nil)
		d.board.EnterUpdateMode()

	case proto.OpEnterRecovery:
		d.respond(ok)
		d.board.EnterRecovery()

	case proto.OpReboot:
		d.respond(ok)
		diag.Trace(diag.TraceTagReset, nil)
		d.board.Reset()

	case proto.OpReadPanicBuffer:
		var chunk [proto.MaxPayload]byte
		n := diag.ReadPanic(int(cmd.Offset), chunk[:])
		ok.Payload = chunk[:n]
		d.respond(ok)

	case proto.OpReadTraceBuffer:
		var chunk [proto.MaxPayload]byte
		n := diag.ReadTrace(int(cmd.Offset), chunk[:])
		ok.Payload = chunk[:n]
		d.respond(ok)

	case proto.OpClearTraceBuffer:
		diag.ClearTrace()
		d.respond(ok)

	case proto.OpClearPanicBuffer:
		diag.ClearPanic()
		d.respond(ok)

	default:
		// Unreachable while DecodeMessage and this switch agree on the op
		// set, but a silent miss would strand the host.
		d.respond(proto.Response{Op: proto.OpNone, Token: cmd.Token, Status: proto.StatusUnknownCommand})
	}
}

func (d *Dispatcher) respond(r proto.Response) {
	frame, err := proto.AppendMessageFrame(d.out[:0], r)
	if err != nil {
		logrus.Errorf("Response does not encode: %s", err)
		return
	}
	d.out = frame[:0]
	if _, err := d.rw.Write(frame); err != nil {
		// Transport gone, typically mid-reset or unplugged. The command
		// already took effect; nothing to unwind.
		logrus.Warnf("Writing response: %s", err)
	}
}
