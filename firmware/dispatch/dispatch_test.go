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

package dispatch

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/robot-rover/picodox/firmware/diag"
	"github.com/robot-rover/picodox/proto"
)

type rwPair struct {
	io.Reader
	io.Writer
}

type fakeBoard struct {
	resets     int
	updates    int
	recoveries int
}

func (b *fakeBoard) Info() (string, string) { return "1.4.0", "a1b2c3d" }
func (b *fakeBoard) Reset()                 { b.resets++ }
func (b *fakeBoard) EnterUpdateMode()       { b.updates++ }
func (b *fakeBoard) EnterRecovery()         { b.recoveries++ }

// harness drives the dispatcher synchronously: bytes in, frames out.
type harness struct {
	t     *testing.T
	d     *Dispatcher
	board *fakeBoard
	out   *bytes.Buffer
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	diag.ClearPanic()
	diag.ClearTrace()
	diag.RearmPanicCapture()
	board := &fakeBoard{}
	out := &bytes.Buffer{}
	// Run reads through rw; for these tests we feed bytes directly.
	d := New(rwPair{bytes.NewReader(nil), out}, board)
	return &harness{t: t, d: d, board: board, out: out}
}

func (h *harness) send(raw []byte) {
	for _, b := range raw {
		h.d.feed(b)
	}
}

func (h *harness) sendCommand(c proto.Command) {
	frame, err := proto.AppendMessageFrame(nil, c)
	require.NoError(h.t, err)
	h.send(frame)
}

// responses drains and decodes everything the dispatcher wrote.
func (h *harness) responses() []proto.Response {
	var out []proto.Response
	for _, frame := range bytes.Split(h.out.Bytes(), []byte{proto.FrameDelim}) {
		if len(frame) == 0 {
			continue
		}
		msg, err := proto.DecodeMessageFrame(append([]byte(nil), frame...))
		require.NoError(h.t, err)
		out = append(out, msg.(proto.Response))
	}
	h.out.Reset()
	return out
}

func TestPingPong(t *testing.T) {
	h := newHarness(t)
	h.sendCommand(proto.Command{Op: proto.OpPing, Token: 7})

	resp := h.responses()
	require.Len(t, resp, 1)
	require.Equal(t, proto.Response{Op: proto.OpPing, Token: 7, Status: proto.StatusOK}, resp[0])
}

func TestGetInfo(t *testing.T) {
	h := newHarness(t)
	h.sendCommand(proto.Command{Op: proto.OpGetInfo, Token: 9})

	resp := h.responses()
	require.Len(t, resp, 1)
	require.Equal(t, proto.StatusOK, resp[0].Status)
	info, err := proto.DecodeInfo(resp[0].Payload)
	require.NoError(t, err)
	require.Equal(t, proto.DeviceInfo{Version: "1.4.0", Build: "a1b2c3d"}, info)
}

// Commands with tokens 1,2,3 answer as 1,2,3; never reordered.
func TestResponseOrdering(t *testing.T) {
	h := newHarness(t)
	h.sendCommand(proto.Command{Op: proto.OpPing, Token: 1})
	h.sendCommand(proto.Command{Op: proto.OpGetInfo, Token: 2})
	h.sendCommand(proto.Command{Op: proto.OpPing, Token: 3})

	resp := h.responses()
	require.Len(t, resp, 3)
	for i, want := range []byte{1, 2, 3} {
		require.Equal(t, want, resp[i].Token)
	}
}

// A checksum-corrupted frame is discarded silently and the stream
// self-synchronizes on the next delimiter.
func TestCorruptFrameThenValid(t *testing.T) {
	h := newHarness(t)

	bad, err := proto.AppendMessageFrame(nil, proto.Command{Op: proto.OpPing, Token: 1})
	require.NoError(t, err)
	bad[1] ^= 0x40
	h.send(bad)
	h.sendCommand(proto.Command{Op: proto.OpPing, Token: 2})

	resp := h.responses()
	require.Len(t, resp, 1)
	require.Equal(t, byte(2), resp[0].Token)
}

func TestGarbageResync(t *testing.T) {
	h := newHarness(t)

	h.send([]byte{0xDE, 0xAD, 0xBE, 0xEF, proto.FrameDelim})
	h.sendCommand(proto.Command{Op: proto.OpPing, Token: 5})

	resp := h.responses()
	require.Len(t, resp, 1)
	require.Equal(t, byte(5), resp[0].Token)
	require.Equal(t, proto.StatusOK, resp[0].Status)
}

// A well-framed message with a future tag gets an explicit error answer
// carrying its token, never silence.
func TestUnknownTagAnswered(t *testing.T) {
	h := newHarness(t)

	body := []byte{0x6E, 77}
	frame, err := proto.AppendFrame(nil, body)
	require.NoError(t, err)
	h.send(frame)

	resp := h.responses()
	require.Len(t, resp, 1)
	require.Equal(t, proto.OpNone, resp[0].Op)
	require.Equal(t, byte(77), resp[0].Token)
	require.Equal(t, proto.StatusUnknownCommand, resp[0].Status)
}

func TestResponseFromHostRejected(t *testing.T) {
	h := newHarness(t)

	frame, err := proto.AppendMessageFrame(nil, proto.Response{Op: proto.OpPing, Token: 21, Status: proto.StatusOK})
	require.NoError(t, err)
	h.send(frame)

	resp := h.responses()
	require.Len(t, resp, 1)
	require.Equal(t, proto.StatusBadRequest, resp[0].Status)
	require.Equal(t, byte(21), resp[0].Token)
}

// An endless unterminated byte run must not wedge the dispatcher: it drops
// the oversized frame and picks up cleanly after the next delimiter.
func TestOversizedFrameDropped(t *testing.T) {
	h := newHarness(t)

	h.send(bytes.Repeat([]byte{0x55}, accCap+100))
	h.send([]byte{proto.FrameDelim})
	h.sendCommand(proto.Command{Op: proto.OpPing, Token: 6})

	resp := h.responses()
	require.Len(t, resp, 1)
	require.Equal(t, byte(6), resp[0].Token)
}

func TestResetCommands(t *testing.T) {
	h := newHarness(t)

	h.sendCommand(proto.Command{Op: proto.OpReboot, Token: 1})
	h.sendCommand(proto.Command{Op: proto.OpEnterUpdateMode, Token: 2})
	h.sendCommand(proto.Command{Op: proto.OpEnterRecovery, Token: 3})

	// Each response is written before the reset is triggered.
	resp := h.responses()
	require.Len(t, resp, 3)
	for _, r := range resp {
		require.Equal(t, proto.StatusOK, r.Status)
	}
	require.Equal(t, 1, h.board.resets)
	require.Equal(t, 1, h.board.updates)
	require.Equal(t, 1, h.board.recoveries)
}

func TestReadPanicBufferChunked(t *testing.T) {
	h := newHarness(t)
	require.True(t, diag.CapturePanic("keyboard task: nil map write at key_hid.go:42 with a long enough tail to span chunks"))

	var dump []byte
	offset := 0
	for {
		h.sendCommand(proto.Command{Op: proto.OpReadPanicBuffer, Token: 11, Offset: uint16(offset)})
		resp := h.responses()
		require.Len(t, resp, 1)
		require.Equal(t, proto.StatusOK, resp[0].Status)
		dump = append(dump, resp[0].Payload...)
		offset += len(resp[0].Payload)
		if len(resp[0].Payload) < proto.MaxPayload {
			break
		}
	}

	rec, err := diag.ParsePanicRecord(dump)
	require.NoError(t, err)
	require.Contains(t, rec.Message, "key_hid.go:42")
}

func TestReadPanicBufferEmpty(t *testing.T) {
	h := newHarness(t)

	h.sendCommand(proto.Command{Op: proto.OpReadPanicBuffer, Token: 12, Offset: 0})
	resp := h.responses()
	require.Len(t, resp, 1)
	require.Equal(t, proto.StatusOK, resp[0].Status)
	require.Empty(t, resp[0].Payload)
}

func TestClearTraceBuffer(t *testing.T) {
	h := newHarness(t)

	h.sendCommand(proto.Command{Op: proto.OpPing, Token: 1}) // leaves a trace entry
	require.NotEmpty(t, diag.TraceSnapshot())
	h.sendCommand(proto.Command{Op: proto.OpClearTraceBuffer, Token: 2})
	require.Empty(t, diag.TraceSnapshot())
}

func TestClearPanicBuffer(t *testing.T) {
	h := newHarness(t)
	require.True(t, diag.CapturePanic("stale"))

	h.sendCommand(proto.Command{Op: proto.OpClearPanicBuffer, Token: 3})
	resp := h.responses()
	require.Equal(t, proto.StatusOK, resp[len(resp)-1].Status)
	require.Zero(t, diag.ReadPanic(0, make([]byte, 16)))
}
