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

package diag

import (
	"encoding/binary"
	"fmt"
	"sync"
	"time"
)

// Trace region layout, little-endian:
//
//	0:2  write cursor (next entry slot)
//	2:4  fill count, saturating at TraceCapacity
//	4:   TraceCapacity fixed-size entry slots
//
// Each entry slot:
//
//	0:4   timestamp ticks
//	4     event tag
//	5     payload length
//	6:14  payload bytes
//	14:16 reserved padding
const (
	TraceEntrySize  = 16
	TraceCapacity   = 64
	TraceDataMax    = 8
	traceHeaderLen  = 4
	TraceRegionSize = traceHeaderLen + TraceCapacity*TraceEntrySize
)

// Event tags written by the firmware tasks.
const (
	TraceTagBoot    byte = 0x01
	TraceTagCommand byte = 0x02
	TraceTagReset   byte = 0x03
	TraceTagUpdate  byte = 0x04
	TraceTagKeyScan byte = 0x05
	TraceTagLink    byte = 0x06
)

// TraceRegion is located by external probes via its symbol address.
var TraceRegion [TraceRegionSize]byte

// traceMu bounds every writer and reader to a short critical section. On
// the MCU this maps to a brief interrupt disable; writers may be called
// from any context.
var traceMu sync.Mutex

var traceEpoch = time.Now()

// traceTicks is replaceable so the target can supply its hardware timer
// and tests can pin time.
var traceTicks = func() uint32 {
	return uint32(time.Since(traceEpoch) / time.Microsecond)
}

// SetTraceClock replaces the timestamp source for subsequent entries.
func SetTraceClock(fn func() uint32) {
	traceMu.Lock()
	traceTicks = fn
	traceMu.Unlock()
}

// TraceEntry is one decoded trace event.
type TraceEntry struct {
	Ticks uint32
	Tag   byte
	Data  []byte
}

// Trace appends one event to the ring, overwriting the oldest entry once
// full. Data beyond TraceDataMax bytes is truncated.
func Trace(tag byte, data []byte) {
	if len(data) > TraceDataMax {
		data = data[:TraceDataMax]
	}
	now := traceTicks()

	traceMu.Lock()
	wr := binary.LittleEndian.Uint16(TraceRegion[0:2])
	count := binary.LittleEndian.Uint16(TraceRegion[2:4])

	slot := TraceRegion[traceHeaderLen+int(wr)*TraceEntrySize:]
	binary.LittleEndian.PutUint32(slot[0:4], now)
	slot[4] = tag
	slot[5] = byte(len(data))
	copy(slot[6:6+TraceDataMax], data)
	for i := 6 + len(data); i < TraceEntrySize; i++ {
		slot[i] = 0
	}

	wr = (wr + 1) % TraceCapacity
	if count < TraceCapacity {
		count++
	}
	binary.LittleEndian.PutUint16(TraceRegion[0:2], wr)
	binary.LittleEndian.PutUint16(TraceRegion[2:4], count)
	traceMu.Unlock()
}

// traceExtent returns the oldest entry index and the fill count.
// Caller holds traceMu.
func traceExtent() (start, count int) {
	wr := int(binary.LittleEndian.Uint16(TraceRegion[0:2]))
	count = int(binary.LittleEndian.Uint16(TraceRegion[2:4]))
	if count > TraceCapacity {
		count = TraceCapacity
	}
	start = (wr - count + TraceCapacity) % TraceCapacity
	return start, count
}

// ReadTrace copies bytes of the oldest-first serialized view of the ring,
// starting at offset, into dst. Returns the number copied; 0 marks the end.
// Each call is consistent under the ring lock, but the ring may advance
// between successive chunked reads.
func ReadTrace(offset int, dst []byte) int {
	traceMu.Lock()
	defer traceMu.Unlock()

	start, count := traceExtent()
	total := count * TraceEntrySize
	if offset < 0 || offset >= total {
		return 0
	}

	n := 0
	for n < len(dst) && offset+n < total {
		linear := offset + n
		entry := (start + linear/TraceEntrySize) % TraceCapacity
		within := linear % TraceEntrySize
		src := TraceRegion[traceHeaderLen+entry*TraceEntrySize+within : traceHeaderLen+(entry+1)*TraceEntrySize]
		n += copy(dst[n:], src)
	}
	return n
}

// TraceSnapshot decodes the current ring contents oldest-first.
func TraceSnapshot() []TraceEntry {
	traceMu.Lock()
	defer traceMu.Unlock()

	start, count := traceExtent()
	entries := make([]TraceEntry, 0, count)
	for i := 0; i < count; i++ {
		slot := TraceRegion[traceHeaderLen+((start+i)%TraceCapacity)*TraceEntrySize:]
		entries = append(entries, decodeEntry(slot))
	}
	return entries
}

// ClearTrace resets the cursor and fill marker and zeroes the entries.
func ClearTrace() {
	traceMu.Lock()
	for i := range TraceRegion {
		TraceRegion[i] = 0
	}
	traceMu.Unlock()
}

func decodeEntry(slot []byte) TraceEntry {
	n := int(slot[5])
	if n > TraceDataMax {
		n = TraceDataMax
	}
	return TraceEntry{
		Ticks: binary.LittleEndian.Uint32(slot[0:4]),
		Tag:   slot[4],
		Data:  append([]byte(nil), slot[6:6+n]...),
	}
}

// ParseTraceEntries decodes bytes dumped via ReadTrace on the host side.
func ParseTraceEntries(b []byte) ([]TraceEntry, error) {
	if len(b)%TraceEntrySize != 0 {
		return nil, fmt.Errorf("trace dump is %d bytes, not a multiple of the %d byte entry size",
			len(b), TraceEntrySize)
	}
	entries := make([]TraceEntry, 0, len(b)/TraceEntrySize)
	for off := 0; off < len(b); off += TraceEntrySize {
		entries = append(entries, decodeEntry(b[off:off+TraceEntrySize]))
	}
	return entries, nil
}
