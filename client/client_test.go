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
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/robot-rover/picodox/proto"
)

// scriptedDevice behaves like a serial port with a read timeout: Read
// drains whatever the fake device has queued and returns (0, nil) when
// there is nothing, letting the client's own deadline fire. Each Write is
// decoded as a command and handed to the handler, which queues responses.
type scriptedDevice struct {
	t       *testing.T
	out     bytes.Buffer
	raw     [][]byte
	handler func(cmd proto.Command)
}

func (s *scriptedDevice) Write(p []byte) (int, error) {
	s.raw = append(s.raw, append([]byte(nil), p...))
	// Decode from a copy: the decoder works in place and a Writer must not
	// scribble on its argument, which the client reuses for retries.
	msg, err := proto.DecodeMessageFrame(append([]byte(nil), p...))
	require.NoError(s.t, err)
	cmd, ok := msg.(proto.Command)
	require.True(s.t, ok, "host should only send commands")
	s.handler(cmd)
	return len(p), nil
}

func (s *scriptedDevice) Read(p []byte) (int, error) {
	if s.out.Len() == 0 {
		time.Sleep(time.Millisecond)
		return 0, nil
	}
	return s.out.Read(p)
}

func (s *scriptedDevice) reply(r proto.Response) {
	frame, err := proto.AppendMessageFrame(nil, r)
	require.NoError(s.t, err)
	s.out.Write(frame)
}

func newTestClient(t *testing.T, handler func(dev *scriptedDevice, cmd proto.Command)) (*Client, *scriptedDevice) {
	dev := &scriptedDevice{t: t}
	dev.handler = func(cmd proto.Command) { handler(dev, cmd) }
	c := New(dev, WithTimeout(50*time.Millisecond), WithRetries(2))
	return c, dev
}

func TestPing(t *testing.T) {
	c, _ := newTestClient(t, func(dev *scriptedDevice, cmd proto.Command) {
		require.Equal(t, proto.OpPing, cmd.Op)
		dev.reply(proto.Response{Op: cmd.Op, Token: cmd.Token, Status: proto.StatusOK})
	})
	require.NoError(t, c.Ping())
}

func TestInfo(t *testing.T) {
	c, _ := newTestClient(t, func(dev *scriptedDevice, cmd proto.Command) {
		payload, err := proto.AppendInfo(nil, proto.DeviceInfo{Version: "1.4.0", Build: "a1b2c3d"})
		require.NoError(t, err)
		dev.reply(proto.Response{Op: cmd.Op, Token: cmd.Token, Status: proto.StatusOK, Payload: payload})
	})
	info, err := c.Info()
	require.NoError(t, err)
	require.Equal(t, "1.4.0", info.Version)
	require.Equal(t, "a1b2c3d", info.Build)
}

func TestRetryAfterDroppedRequest(t *testing.T) {
	writes := 0
	c, _ := newTestClient(t, func(dev *scriptedDevice, cmd proto.Command) {
		writes++
		if writes == 1 {
			return // first request lost in transit
		}
		dev.reply(proto.Response{Op: cmd.Op, Token: cmd.Token, Status: proto.StatusOK})
	})
	require.NoError(t, c.Ping())
	require.Equal(t, 2, writes)
}

func TestRetryReusesToken(t *testing.T) {
	var tokens []byte
	c, _ := newTestClient(t, func(dev *scriptedDevice, cmd proto.Command) {
		tokens = append(tokens, cmd.Token)
		if len(tokens) < 2 {
			return
		}
		dev.reply(proto.Response{Op: cmd.Op, Token: cmd.Token, Status: proto.StatusOK})
	})
	require.NoError(t, c.Ping())
	require.Len(t, tokens, 2)
	require.Equal(t, tokens[0], tokens[1])
}

// A retry must put the exact same bytes on the wire as the first attempt;
// the request frame may not decay between writes.
func TestRetryWritesIdenticalFrames(t *testing.T) {
	c, dev := newTestClient(t, func(dev *scriptedDevice, cmd proto.Command) {
		if len(dev.raw) < 2 {
			return
		}
		dev.reply(proto.Response{Op: cmd.Op, Token: cmd.Token, Status: proto.StatusOK})
	})
	require.NoError(t, c.Ping())
	require.Len(t, dev.raw, 2)
	require.Equal(t, dev.raw[0], dev.raw[1])
}

func TestStaleResponseSkipped(t *testing.T) {
	c, _ := newTestClient(t, func(dev *scriptedDevice, cmd proto.Command) {
		// A late answer to an abandoned request arrives first.
		dev.reply(proto.Response{Op: cmd.Op, Token: cmd.Token + 100, Status: proto.StatusOK})
		dev.reply(proto.Response{Op: cmd.Op, Token: cmd.Token, Status: proto.StatusOK})
	})
	require.NoError(t, c.Ping())
}

func TestTimeoutAfterRetryBudget(t *testing.T) {
	writes := 0
	c, _ := newTestClient(t, func(dev *scriptedDevice, cmd proto.Command) {
		writes++
	})
	err := c.Ping()
	require.ErrorIs(t, err, ErrTimeout)
	require.Equal(t, 3, writes)
}

func TestResetCommandToleratesSilence(t *testing.T) {
	c, _ := newTestClient(t, func(dev *scriptedDevice, cmd proto.Command) {
		// Device reset before the acknowledgement made it out.
	})
	acked, err := c.Reboot()
	require.NoError(t, err)
	require.False(t, acked)
}

func TestResetCommandAcked(t *testing.T) {
	c, _ := newTestClient(t, func(dev *scriptedDevice, cmd proto.Command) {
		require.Equal(t, proto.OpEnterUpdateMode, cmd.Op)
		dev.reply(proto.Response{Op: cmd.Op, Token: cmd.Token, Status: proto.StatusOK})
	})
	acked, err := c.EnterUpdateMode()
	require.NoError(t, err)
	require.True(t, acked)
}

func TestReadBufferChunks(t *testing.T) {
	// 100 bytes served in MaxPayload-sized chunks.
	data := make([]byte, 100)
	for i := range data {
		data[i] = byte(i)
	}
	c, _ := newTestClient(t, func(dev *scriptedDevice, cmd proto.Command) {
		require.Equal(t, proto.OpReadPanicBuffer, cmd.Op)
		chunk := data[min(int(cmd.Offset), len(data)):]
		if len(chunk) > proto.MaxPayload {
			chunk = chunk[:proto.MaxPayload]
		}
		dev.reply(proto.Response{Op: cmd.Op, Token: cmd.Token, Status: proto.StatusOK, Payload: chunk})
	})
	got, err := c.ReadPanicBuffer()
	require.NoError(t, err)
	require.Equal(t, data, got)
}

func TestReadBufferEmpty(t *testing.T) {
	c, _ := newTestClient(t, func(dev *scriptedDevice, cmd proto.Command) {
		dev.reply(proto.Response{Op: cmd.Op, Token: cmd.Token, Status: proto.StatusOK})
	})
	got, err := c.ReadTraceBuffer()
	require.NoError(t, err)
	require.Empty(t, got)
}

func TestErrorStatusSurfaced(t *testing.T) {
	c, _ := newTestClient(t, func(dev *scriptedDevice, cmd proto.Command) {
		dev.reply(proto.Response{Op: cmd.Op, Token: cmd.Token, Status: proto.StatusBadRequest})
	})
	err := c.ClearPanicBuffer()
	require.Error(t, err)
	require.Contains(t, err.Error(), "bad request")
}

func TestGarbageBetweenFramesIgnored(t *testing.T) {
	c, _ := newTestClient(t, func(dev *scriptedDevice, cmd proto.Command) {
		dev.out.Write([]byte{0x13, 0x37, 0x00})
		dev.reply(proto.Response{Op: cmd.Op, Token: cmd.Token, Status: proto.StatusOK})
	})
	require.NoError(t, c.Ping())
}
