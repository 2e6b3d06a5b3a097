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

package proto

import "fmt"

// Op identifies one protocol operation. Command tags carry the Op directly;
// the matching response tag is the Op with the high bit set.
type Op byte

const (
	// OpNone tags a response to a message the device could not interpret at
	// all. Valid only on responses, and only with a non-OK status.
	OpNone Op = 0

	// OpPing answers immediately; the host uses it for liveness and latency
	// probing.
	OpPing Op = iota
	// OpGetInfo reports the firmware version and build identifier.
	OpGetInfo
	// OpEnterUpdateMode persists the update request marker and resets into
	// the bootloader to stage a transfer.
	OpEnterUpdateMode
	// OpEnterRecovery resets into the MCU's native mask-ROM loader, the
	// fallback update path that works even with a broken bootloader.
	OpEnterRecovery
	// OpReboot resets the MCU unconditionally.
	OpReboot
	// OpReadPanicBuffer reads a chunk of the captured panic record.
	OpReadPanicBuffer
	// OpReadTraceBuffer reads a chunk of the trace ring.
	OpReadTraceBuffer
	// OpClearTraceBuffer resets the trace ring's cursor and fill marker.
	OpClearTraceBuffer
	// OpClearPanicBuffer invalidates the captured panic record. This is the
	// only way a record is ever cleared; a successful boot keeps it.
	OpClearPanicBuffer

	opLimit
)

const responseFlag byte = 0x80

func (op Op) valid() bool {
	return op > OpNone && op < opLimit
}

// hasOffset reports whether the command encoding carries a 16-bit read
// offset after the token.
func (op Op) hasOffset() bool {
	return op == OpReadPanicBuffer || op == OpReadTraceBuffer
}

func (op Op) String() string {
	switch op {
	case OpNone:
		return "none"
	case OpPing:
		return "ping"
	case OpGetInfo:
		return "get-info"
	case OpEnterUpdateMode:
		return "enter-update-mode"
	case OpEnterRecovery:
		return "enter-recovery"
	case OpReboot:
		return "reboot"
	case OpReadPanicBuffer:
		return "read-panic-buffer"
	case OpReadTraceBuffer:
		return "read-trace-buffer"
	case OpClearTraceBuffer:
		return "clear-trace-buffer"
	case OpClearPanicBuffer:
		return "clear-panic-buffer"
	}
	return fmt.Sprintf("op(%#02x)", byte(op))
}

// Status is the result code a Response carries.
type Status byte

const (
	StatusOK Status = iota
	// StatusUnknownCommand answers a well-framed command whose tag this
	// firmware does not implement.
	StatusUnknownCommand
	// StatusBadRequest answers a message that decoded but made no sense in
	// context (for example a Response arriving at the device).
	StatusBadRequest
	// StatusBusy is reserved for commands the firmware cannot start while
	// an earlier long-running operation holds the flash.
	StatusBusy
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusUnknownCommand:
		return "unknown command"
	case StatusBadRequest:
		return "bad request"
	case StatusBusy:
		return "busy"
	}
	return fmt.Sprintf("status(%#02x)", byte(s))
}

// Message is one decoded protocol message, either a Command or a Response.
type Message interface {
	message()
}

// Command travels host to device. Token is chosen by the host and echoed
// verbatim in the matching Response so retried or stale responses can be
// told apart. Offset is meaningful only for the buffer read operations.
type Command struct {
	Op     Op
	Token  byte
	Offset uint16
}

// Response travels device to host and mirrors exactly one Command.
type Response struct {
	Op      Op
	Token   byte
	Status  Status
	Payload []byte
}

func (Command) message()  {}
func (Response) message() {}

// AppendCommand appends the body encoding of c to dst.
// Layout: [tag][token] with a little-endian offset appended for the buffer
// read operations.
func AppendCommand(dst []byte, c Command) ([]byte, error) {
	if !c.Op.valid() {
		return nil, fmt.Errorf("cannot encode command with %s tag", c.Op)
	}
	dst = append(dst, byte(c.Op), c.Token)
	if c.Op.hasOffset() {
		dst = append(dst, byte(c.Offset), byte(c.Offset>>8))
	}
	return dst, nil
}

// AppendResponse appends the body encoding of r to dst.
// Layout: [tag|0x80][token][status][payload length][payload].
func AppendResponse(dst []byte, r Response) ([]byte, error) {
	if !r.Op.valid() && !(r.Op == OpNone && r.Status != StatusOK) {
		return nil, fmt.Errorf("cannot encode response with %s tag and %s status", r.Op, r.Status)
	}
	if len(r.Payload) > MaxPayload {
		return nil, fmt.Errorf("response payload is %d bytes, limit is %d", len(r.Payload), MaxPayload)
	}
	dst = append(dst, byte(r.Op)|responseFlag, r.Token, byte(r.Status), byte(len(r.Payload)))
	return append(dst, r.Payload...), nil
}

// DecodeMessage decodes one message body (a frame body after DecodeFrame).
// The returned Response payload is copied, never aliased, because callers
// reuse their frame buffers.
func DecodeMessage(body []byte) (Message, error) {
	if len(body) < 2 {
		return nil, ErrTruncated
	}
	tag, token := body[0], body[1]

	if tag&responseFlag != 0 {
		op := Op(tag &^ responseFlag)
		if op != OpNone && !op.valid() {
			return nil, &UnknownTagError{Tag: tag, Token: token}
		}
		if len(body) < 4 {
			return nil, ErrTruncated
		}
		status := Status(body[2])
		if op == OpNone && status == StatusOK {
			// The none tag only ever carries a failure; see AppendResponse.
			return nil, fmt.Errorf("response with none tag claims %s status", status)
		}
		plen := int(body[3])
		if len(body) != 4+plen {
			return nil, ErrTruncated
		}
		r := Response{Op: op, Token: token, Status: status}
		if plen > 0 {
			r.Payload = append([]byte(nil), body[4:]...)
		}
		return r, nil
	}

	op := Op(tag)
	if !op.valid() {
		return nil, &UnknownTagError{Tag: tag, Token: token}
	}
	c := Command{Op: op, Token: token}
	want := 2
	if op.hasOffset() {
		want = 4
	}
	if len(body) != want {
		return nil, ErrTruncated
	}
	if op.hasOffset() {
		c.Offset = uint16(body[2]) | uint16(body[3])<<8
	}
	return c, nil
}

// AppendMessageFrame encodes m and appends its complete frame to dst.
func AppendMessageFrame(dst []byte, m Message) ([]byte, error) {
	var body [maxBody]byte
	var enc []byte
	var err error
	switch m := m.(type) {
	case Command:
		enc, err = AppendCommand(body[:0], m)
	case Response:
		enc, err = AppendResponse(body[:0], m)
	default:
		err = fmt.Errorf("unsupported message type %T", m)
	}
	if err != nil {
		return nil, err
	}
	return AppendFrame(dst, enc)
}

// DecodeMessageFrame unframes and decodes one complete frame. The frame
// buffer is scribbled on during decoding, as with DecodeFrame.
func DecodeMessageFrame(frame []byte) (Message, error) {
	body, err := DecodeFrame(frame)
	if err != nil {
		return nil, err
	}
	return DecodeMessage(body)
}
