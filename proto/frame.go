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

// Package proto is the wire protocol shared by the keyboard firmware and the
// host tool: a small command/response message set carried in COBS-stuffed,
// CRC-8 protected frames over a raw byte stream.
//
// A frame on the wire is the message body followed by one CRC byte, the two
// stuffed together with COBS so that the 0x00 delimiter can never appear
// inside, and finally the 0x00 delimiter itself. The delimiter alone
// re-synchronizes the stream after any amount of corruption.
package proto

import (
	"fmt"
)

const (
	// FrameDelim terminates every frame. COBS stuffing guarantees the value
	// never occurs inside an encoded frame.
	FrameDelim byte = 0x00

	// MaxPayload is the largest payload a single Response can carry. Buffer
	// dumps longer than this are read in successive chunks.
	MaxPayload = 48

	// maxBody is the largest message body: tag, token, status, payload
	// length and a full payload.
	maxBody = 4 + MaxPayload

	// minBody is the smallest decodable body: tag, token and the CRC byte.
	minBody = 3

	// MaxFrameSize is the worst-case on-wire size of a single frame: body
	// plus CRC, COBS overhead (one byte per started 254-byte run) and the
	// trailing delimiter.
	MaxFrameSize = (maxBody + 1) + (maxBody+1+253)/254 + 1
)

// AppendFrame appends the framed encoding of body to dst and returns the
// extended slice. The codec does not allocate when dst has MaxFrameSize
// spare capacity.
func AppendFrame(dst []byte, body []byte) ([]byte, error) {
	if len(body) < minBody-1 { // decode requires at least tag and token
		return nil, fmt.Errorf("message body is %d bytes, minimum is %d", len(body), minBody-1)
	}
	if len(body) > maxBody {
		return nil, fmt.Errorf("message body is %d bytes, limit is %d", len(body), maxBody)
	}

	var raw [maxBody + 1]byte
	n := copy(raw[:], body)
	raw[n] = crc8(body)

	dst = appendCOBS(dst, raw[:n+1])
	return append(dst, FrameDelim), nil
}

// DecodeFrame unstuffs and checks one frame and returns the message body.
// The input is the frame without its trailing delimiter (a single trailing
// delimiter is tolerated). Decoding happens in place: frame is overwritten
// and the returned slice aliases it.
//
// A frame that fails the checksum is rejected as a unit; no part of it is
// ever interpreted.
func DecodeFrame(frame []byte) ([]byte, error) {
	if n := len(frame); n > 0 && frame[n-1] == FrameDelim {
		frame = frame[:n-1]
	}
	if len(frame) < minBody+1 { // +1 for the shortest possible COBS overhead
		return nil, ErrTruncated
	}

	n, err := cobsDecode(frame)
	if err != nil {
		return nil, err
	}
	if n < minBody {
		return nil, ErrTruncated
	}

	body, got := frame[:n-1], frame[n-1]
	if want := crc8(body); want != got {
		return nil, fmt.Errorf("%w: calculated %#02x, frame carries %#02x", ErrChecksum, want, got)
	}
	return body, nil
}

// appendCOBS appends the COBS encoding of src to dst. Each zero in src (and
// each full 254-byte run) costs one overhead byte; no zero ever appears in
// the output.
func appendCOBS(dst []byte, src []byte) []byte {
	code := byte(1)
	codeAt := len(dst)
	dst = append(dst, 0)
	for _, b := range src {
		if b == 0 {
			dst[codeAt] = code
			codeAt = len(dst)
			dst = append(dst, 0)
			code = 1
			continue
		}
		dst = append(dst, b)
		code++
		if code == 0xFF {
			dst[codeAt] = code
			codeAt = len(dst)
			dst = append(dst, 0)
			code = 1
		}
	}
	dst[codeAt] = code
	return dst
}

// cobsDecode unstuffs buf in place and returns the decoded length. The
// output is always shorter than the input, so no extra buffer is needed.
func cobsDecode(buf []byte) (int, error) {
	n := 0
	for i := 0; i < len(buf); {
		code := buf[i]
		if code == 0 {
			return 0, ErrEncoding
		}
		i++
		if i+int(code)-1 > len(buf) {
			return 0, ErrEncoding
		}
		for j := byte(1); j < code; j++ {
			buf[n] = buf[i]
			n++
			i++
		}
		if code != 0xFF && i < len(buf) {
			buf[n] = 0
			n++
		}
	}
	return n, nil
}
