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

// DeviceInfo is the payload of a successful get-info response.
type DeviceInfo struct {
	Version string
	Build   string
}

// AppendInfo appends the payload encoding of info to dst.
// Layout: [version length][version][build length][build].
func AppendInfo(dst []byte, info DeviceInfo) ([]byte, error) {
	if len(info.Version)+len(info.Build)+2 > MaxPayload {
		return nil, fmt.Errorf("device info does not fit a single payload (%d+%d bytes)",
			len(info.Version), len(info.Build))
	}
	dst = append(dst, byte(len(info.Version)))
	dst = append(dst, info.Version...)
	dst = append(dst, byte(len(info.Build)))
	return append(dst, info.Build...), nil
}

// DecodeInfo decodes a get-info response payload.
func DecodeInfo(payload []byte) (DeviceInfo, error) {
	if len(payload) < 2 {
		return DeviceInfo{}, ErrTruncated
	}
	vlen := int(payload[0])
	if len(payload) < 1+vlen+1 {
		return DeviceInfo{}, ErrTruncated
	}
	version := string(payload[1 : 1+vlen])
	blen := int(payload[1+vlen])
	if len(payload) != 2+vlen+blen {
		return DeviceInfo{}, ErrTruncated
	}
	build := string(payload[2+vlen:])
	return DeviceInfo{Version: version, Build: build}, nil
}
