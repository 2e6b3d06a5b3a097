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
	"errors"
	"fmt"
)

var (
	// ErrChecksum means the frame CRC did not match its body. The whole
	// frame is discarded; nothing in it can be trusted.
	ErrChecksum = errors.New("frame checksum mismatch")

	// ErrTruncated means the delimiter arrived before a minimum viable
	// message body.
	ErrTruncated = errors.New("frame shorter than a viable message")

	// ErrEncoding means the COBS stuffing was malformed.
	ErrEncoding = errors.New("invalid frame byte stuffing")
)

// UnknownTagError reports a well-framed message whose leading tag does not
// map to any known variant, as happens when one end of the link runs newer
// firmware than the other. The correlation token sits at a fixed offset, so
// it survives the failure and the receiver can still answer the sender.
type UnknownTagError struct {
	Tag   byte
	Token byte
}

func (e *UnknownTagError) Error() string {
	return fmt.Sprintf("unknown message tag %#02x (token %d)", e.Tag, e.Token)
}
