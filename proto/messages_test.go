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

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMessageRoundTrip(t *testing.T) {
	messages := []Message{
		Command{Op: OpPing, Token: 7},
		Command{Op: OpGetInfo, Token: 255},
		Command{Op: OpEnterUpdateMode, Token: 1},
		Command{Op: OpEnterRecovery, Token: 2},
		Command{Op: OpReboot, Token: 3},
		Command{Op: OpReadPanicBuffer, Token: 4, Offset: 0},
		Command{Op: OpReadPanicBuffer, Token: 5, Offset: 0xBEEF},
		Command{Op: OpReadTraceBuffer, Token: 6, Offset: 48},
		Command{Op: OpClearTraceBuffer, Token: 8},
		Command{Op: OpClearPanicBuffer, Token: 9},
		Response{Op: OpPing, Token: 7, Status: StatusOK},
		Response{Op: OpGetInfo, Token: 12, Status: StatusOK, Payload: []byte{5, '1', '.', '2', '.', '3', 0}},
		Response{Op: OpReadTraceBuffer, Token: 13, Status: StatusOK, Payload: bytes.Repeat([]byte{0xA5}, MaxPayload)},
		Response{Op: OpReboot, Token: 14, Status: StatusUnknownCommand},
		Response{Op: OpNone, Token: 15, Status: StatusBadRequest},
	}
	for _, m := range messages {
		frame, err := AppendMessageFrame(nil, m)
		require.NoError(t, err, "encoding %+v", m)

		decoded, err := DecodeMessageFrame(frame)
		require.NoError(t, err, "decoding %+v", m)
		require.Equal(t, m, decoded)
	}
}

func TestUnknownTagKeepsToken(t *testing.T) {
	// A tag from some future protocol revision.
	frame, err := AppendFrame(nil, []byte{0x6E, 42})
	require.NoError(t, err)

	_, err = DecodeMessageFrame(frame)
	var unknown *UnknownTagError
	require.ErrorAs(t, err, &unknown)
	require.Equal(t, byte(0x6E), unknown.Tag)
	require.Equal(t, byte(42), unknown.Token)
}

func TestCommandLengthEnforced(t *testing.T) {
	// read-panic-buffer without its offset field
	frame, err := AppendFrame(nil, []byte{byte(OpReadPanicBuffer), 1})
	require.NoError(t, err)
	_, err = DecodeMessageFrame(frame)
	require.ErrorIs(t, err, ErrTruncated)

	// ping with trailing garbage
	frame, err = AppendFrame(nil, []byte{byte(OpPing), 1, 0xCC})
	require.NoError(t, err)
	_, err = DecodeMessageFrame(frame)
	require.ErrorIs(t, err, ErrTruncated)
}

func TestResponseEncodingLimits(t *testing.T) {
	_, err := AppendResponse(nil, Response{Op: OpPing, Payload: bytes.Repeat([]byte{1}, MaxPayload+1)})
	require.Error(t, err)

	// The none tag is reserved for failures.
	_, err = AppendResponse(nil, Response{Op: OpNone, Status: StatusOK})
	require.Error(t, err)

	_, err = AppendCommand(nil, Command{Op: OpNone})
	require.Error(t, err)
}

// The none-tag-is-failure rule holds on decode too: a hand-built response
// claiming ok status under the none tag is refused, not surfaced.
func TestDecodeRejectsOkOnNoneTag(t *testing.T) {
	body := []byte{byte(OpNone) | responseFlag, 15, byte(StatusOK), 0}
	_, err := DecodeMessage(body)
	require.Error(t, err)

	body[2] = byte(StatusUnknownCommand)
	msg, err := DecodeMessage(body)
	require.NoError(t, err)
	resp, ok := msg.(Response)
	require.True(t, ok)
	require.Equal(t, OpNone, resp.Op)
	require.Equal(t, StatusUnknownCommand, resp.Status)
}

func TestResponsePayloadIsCopied(t *testing.T) {
	frame, err := AppendMessageFrame(nil, Response{Op: OpReadTraceBuffer, Token: 1, Payload: []byte{1, 2, 3}})
	require.NoError(t, err)

	decoded, err := DecodeMessageFrame(frame)
	require.NoError(t, err)

	// Scribbling over the frame buffer must not reach the decoded payload.
	for i := range frame {
		frame[i] = 0xEE
	}
	require.Equal(t, []byte{1, 2, 3}, decoded.(Response).Payload)
}

func TestInfoRoundTrip(t *testing.T) {
	payload, err := AppendInfo(nil, DeviceInfo{Version: "1.4.0", Build: "a1b2c3d"})
	require.NoError(t, err)

	info, err := DecodeInfo(payload)
	require.NoError(t, err)
	require.Equal(t, DeviceInfo{Version: "1.4.0", Build: "a1b2c3d"}, info)

	_, err = AppendInfo(nil, DeviceInfo{Version: string(bytes.Repeat([]byte{'9'}, MaxPayload))})
	require.Error(t, err)

	_, err = DecodeInfo([]byte{10, 'x'})
	require.ErrorIs(t, err, ErrTruncated)
}
