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

// CRC-8/BLUETOOTH: poly 0xA7 reflected, init 0x00, no final xor.
// One byte of CRC is enough for frames this short and keeps the wire
// overhead at a single stuffed byte.
const crc8Poly = 0xE5 // 0xA7 bit-reversed

var crc8Table [256]byte

func init() {
	for i := range crc8Table {
		crc := byte(i)
		for bit := 0; bit < 8; bit++ {
			if crc&1 != 0 {
				crc = crc>>1 ^ crc8Poly
			} else {
				crc >>= 1
			}
		}
		crc8Table[i] = crc
	}
}

func crc8(data []byte) byte {
	var crc byte
	for _, b := range data {
		crc = crc8Table[crc^b]
	}
	return crc
}
