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

// Package diag holds the crash-survivable diagnostic state of the firmware:
// a panic record and a trace ring. Both live in fixed-size package-level
// arrays with a documented byte layout, so an external debug probe can find
// and dump them by symbol address with no cooperation from the (possibly
// dead) program. On the keyboard itself the arrays are pinned by the linker
// script; nothing in here depends on the allocator, and the panic path
// takes no locks.
package diag

import (
	"encoding/binary"
	"fmt"
	"sync/atomic"
)

// Panic region layout, all fields little-endian:
//
//	0:4   validity magic "PAN1"; absent means no record
//	4:8   capture sequence number
//	8:10  message length
//	10:   message bytes (truncated to fit)
const (
	PanicRegionSize = 512
	panicMagic      = 0x314E4150 // "PAN1"
	panicHeaderLen  = 10

	// PanicMessageMax is the longest message a record can hold.
	PanicMessageMax = PanicRegionSize - panicHeaderLen
)

// PanicRegion is located by external probes via its symbol address.
var PanicRegion [PanicRegionSize]byte

// panicArmed is 1 while no fault has been captured this boot. The first
// fault wins; a second fault while the first is being written (or after)
// must not corrupt the record, because the record may only be extractable
// once the processor has already halted.
var panicArmed uint32 = 1

// CapturePanic writes a panic record for msg, once per boot. The first call
// after RearmPanicCapture captures and returns true; later calls in the
// same boot are dropped and return false. Uses only plain stores into the
// fixed region, nothing that could itself fault.
func CapturePanic(msg string) bool {
	if !atomic.CompareAndSwapUint32(&panicArmed, 1, 0) {
		return false
	}

	// A stale record from a prior boot seeds the sequence number, keeping
	// successive captures ordered even across resets.
	var seq uint32
	if binary.LittleEndian.Uint32(PanicRegion[0:4]) == panicMagic {
		seq = binary.LittleEndian.Uint32(PanicRegion[4:8])
	}

	if len(msg) > PanicMessageMax {
		msg = msg[:PanicMessageMax]
	}
	binary.LittleEndian.PutUint32(PanicRegion[4:8], seq+1)
	binary.LittleEndian.PutUint16(PanicRegion[8:10], uint16(len(msg)))
	copy(PanicRegion[panicHeaderLen:], msg)
	// Magic goes last: a record is either absent or complete.
	binary.LittleEndian.PutUint32(PanicRegion[0:4], panicMagic)
	return true
}

// RearmPanicCapture re-arms the one-shot capture guard. Called exactly once
// per boot, before any task runs; the captured record itself survives.
func RearmPanicCapture() {
	atomic.StoreUint32(&panicArmed, 1)
}

// panicRecordLen returns the serialized record length, or 0 when no record
// is present.
func panicRecordLen() int {
	if binary.LittleEndian.Uint32(PanicRegion[0:4]) != panicMagic {
		return 0
	}
	n := int(binary.LittleEndian.Uint16(PanicRegion[8:10]))
	if n > PanicMessageMax {
		n = PanicMessageMax
	}
	return panicHeaderLen + n
}

// ReadPanic copies record bytes starting at offset into dst and returns the
// number copied. A return of 0 means the offset is past the end or no
// record has been captured.
func ReadPanic(offset int, dst []byte) int {
	n := panicRecordLen()
	if offset < 0 || offset >= n {
		return 0
	}
	return copy(dst, PanicRegion[offset:n])
}

// ClearPanic invalidates the record. This is the only clearing path; a
// successful boot deliberately leaves the record in place so a crash can
// still be diagnosed after the reset that follows it.
func ClearPanic() {
	binary.LittleEndian.PutUint32(PanicRegion[0:4], 0)
	binary.LittleEndian.PutUint16(PanicRegion[8:10], 0)
	for i := panicHeaderLen; i < PanicRegionSize; i++ {
		PanicRegion[i] = 0
	}
}

// PanicRecord is the host-side view of a dumped panic region.
type PanicRecord struct {
	Seq     uint32
	Message string
}

// ParsePanicRecord decodes bytes dumped via ReadPanic. A nil record with a
// nil error means the buffer was never written.
func ParsePanicRecord(b []byte) (*PanicRecord, error) {
	if len(b) == 0 {
		return nil, nil
	}
	if len(b) < panicHeaderLen {
		return nil, fmt.Errorf("panic record is %d bytes, header alone is %d", len(b), panicHeaderLen)
	}
	if binary.LittleEndian.Uint32(b[0:4]) != panicMagic {
		return nil, fmt.Errorf("panic record has no validity marker")
	}
	n := int(binary.LittleEndian.Uint16(b[8:10]))
	if len(b) < panicHeaderLen+n {
		return nil, fmt.Errorf("panic record truncated: header claims %d message bytes, %d present",
			n, len(b)-panicHeaderLen)
	}
	return &PanicRecord{
		Seq:     binary.LittleEndian.Uint32(b[4:8]),
		Message: string(b[panicHeaderLen : panicHeaderLen+n]),
	}, nil
}
