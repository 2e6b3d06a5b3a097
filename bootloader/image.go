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

package bootloader

import (
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
)

func crc32IEEE(b []byte) uint32 {
	return crc32.ChecksumIEEE(b)
}

// Image header layout, little-endian:
//
//	0:4    magic "PDFW"
//	4      header format version
//	5      target bank
//	6      version string length
//	7:11   payload size
//	11:15  CRC-32 (IEEE) of the payload
//	15:    version string, then payload
const (
	// ImageMagic identifies a picodox firmware image.
	ImageMagic = 0x57464450 // "PDFW"

	imageHeaderVersion = 1
	imageFixedLen      = 15

	// ImageVersionMax bounds the embedded version string.
	ImageVersionMax = 32
)

var (
	// ErrNotAnImage means the magic is missing; whatever is in the bank,
	// it is not a firmware image.
	ErrNotAnImage = errors.New("missing firmware image magic")

	// ErrImageFormat means the header declares an unknown layout version.
	ErrImageFormat = errors.New("unsupported firmware image header version")

	// ErrImageTruncated means the bank holds fewer bytes than the header
	// declares.
	ErrImageTruncated = errors.New("firmware image truncated")

	// ErrImageChecksum means the payload does not match its declared
	// checksum. The image must never be allowed to run.
	ErrImageChecksum = errors.New("firmware image checksum mismatch")
)

// ImageHeader describes one firmware image.
type ImageHeader struct {
	TargetBank  Bank
	Version     string
	PayloadSize uint32
	PayloadCRC  uint32
}

// ParseImage splits a raw bank into header and payload without verifying
// the payload checksum.
func ParseImage(img []byte) (ImageHeader, []byte, error) {
	if len(img) < imageFixedLen || binary.LittleEndian.Uint32(img[0:4]) != ImageMagic {
		return ImageHeader{}, nil, ErrNotAnImage
	}
	if img[4] != imageHeaderVersion {
		return ImageHeader{}, nil, fmt.Errorf("%w: %d", ErrImageFormat, img[4])
	}
	vlen := int(img[6])
	if vlen > ImageVersionMax {
		return ImageHeader{}, nil, fmt.Errorf("version string length %d exceeds %d", vlen, ImageVersionMax)
	}
	hdr := ImageHeader{
		TargetBank:  Bank(img[5] & 1),
		PayloadSize: binary.LittleEndian.Uint32(img[7:11]),
		PayloadCRC:  binary.LittleEndian.Uint32(img[11:15]),
	}
	if len(img) < imageFixedLen+vlen {
		return ImageHeader{}, nil, ErrImageTruncated
	}
	hdr.Version = string(img[imageFixedLen : imageFixedLen+vlen])

	payload := img[imageFixedLen+vlen:]
	if uint32(len(payload)) < hdr.PayloadSize {
		return ImageHeader{}, nil, fmt.Errorf("%w: header declares %d payload bytes, %d present",
			ErrImageTruncated, hdr.PayloadSize, len(payload))
	}
	return hdr, payload[:hdr.PayloadSize], nil
}

// VerifyImage parses img and recomputes the payload checksum over the full
// declared size.
func VerifyImage(img []byte) (ImageHeader, error) {
	hdr, payload, err := ParseImage(img)
	if err != nil {
		return ImageHeader{}, err
	}
	if got := crc32IEEE(payload); got != hdr.PayloadCRC {
		return ImageHeader{}, fmt.Errorf("%w: calculated %#08x, header carries %#08x",
			ErrImageChecksum, got, hdr.PayloadCRC)
	}
	return hdr, nil
}

// AppendImage builds a complete image for hdr and payload, computing size
// and checksum fields. Used by the host tool to prepare staged images.
func AppendImage(dst []byte, hdr ImageHeader, payload []byte) ([]byte, error) {
	if len(hdr.Version) > ImageVersionMax {
		return nil, fmt.Errorf("version string %q exceeds %d bytes", hdr.Version, ImageVersionMax)
	}
	var fixed [imageFixedLen]byte
	binary.LittleEndian.PutUint32(fixed[0:4], ImageMagic)
	fixed[4] = imageHeaderVersion
	fixed[5] = byte(hdr.TargetBank)
	fixed[6] = byte(len(hdr.Version))
	binary.LittleEndian.PutUint32(fixed[7:11], uint32(len(payload)))
	binary.LittleEndian.PutUint32(fixed[11:15], crc32IEEE(payload))
	dst = append(dst, fixed[:]...)
	dst = append(dst, hdr.Version...)
	return append(dst, payload...), nil
}
