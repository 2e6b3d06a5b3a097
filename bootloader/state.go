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

	"github.com/sirupsen/logrus"
)

// Bank is one of the two firmware slots in non-volatile storage.
type Bank uint8

const (
	BankA Bank = 0
	BankB Bank = 1
)

// Other returns the opposite bank.
func (b Bank) Other() Bank {
	return b ^ 1
}

func (b Bank) String() string {
	switch b {
	case BankA:
		return "A"
	case BankB:
		return "B"
	}
	return fmt.Sprintf("bank(%d)", uint8(b))
}

// The update-state record lives in a small reserved region outside both
// banks. It is the only state shared between the bootloader and the
// application, and it is only ever touched at reset boundaries.
//
// Record layout, little-endian:
//
//	0    format version
//	1    active bank
//	2    flags
//	3    boot attempt counter
//	4:8  CRC-32 (IEEE) of bytes 0:4
const (
	// StateFormatVersion tags the record layout. A bootloader reading a
	// version it does not know must refuse the record rather than guess.
	StateFormatVersion = 1

	// StateRecordSize is the reserved region size.
	StateRecordSize = 8
)

const (
	flagStagedPending byte = 1 << iota
	flagUpdateRequested
	flagTrial
)

var (
	// ErrStateFormat means the persisted record declares an unknown layout
	// version.
	ErrStateFormat = errors.New("update state record has an unsupported format version")

	// ErrStateChecksum means the persisted record is corrupt.
	ErrStateChecksum = errors.New("update state record checksum mismatch")

	// ErrStateTruncated means the region holds fewer bytes than a record.
	ErrStateTruncated = errors.New("update state record truncated")
)

// UpdateState is the decoded persisted record.
type UpdateState struct {
	// ActiveBank holds the image control jumps to.
	ActiveBank Bank
	// StagedPending is set while the inactive bank holds an image awaiting
	// verification.
	StagedPending bool
	// UpdateRequested is the marker the dispatcher persists on
	// enter-update-mode, telling the bootloader to stage a transfer.
	UpdateRequested bool
	// Trial is set while a freshly swapped image runs without having
	// reached its boot-OK checkpoint yet.
	Trial bool
	// BootAttempts counts boots of the trial image.
	BootAttempts uint8
}

// MarshalRecord serializes s into a fresh StateRecordSize byte record.
func (s UpdateState) MarshalRecord() []byte {
	rec := make([]byte, StateRecordSize)
	rec[0] = StateFormatVersion
	rec[1] = byte(s.ActiveBank)
	var flags byte
	if s.StagedPending {
		flags |= flagStagedPending
	}
	if s.UpdateRequested {
		flags |= flagUpdateRequested
	}
	if s.Trial {
		flags |= flagTrial
	}
	rec[2] = flags
	rec[3] = s.BootAttempts
	binary.LittleEndian.PutUint32(rec[4:8], crc32IEEE(rec[:4]))
	return rec
}

// UnmarshalRecord decodes and validates a persisted record.
func UnmarshalRecord(rec []byte) (UpdateState, error) {
	if len(rec) < StateRecordSize {
		return UpdateState{}, ErrStateTruncated
	}
	if got := binary.LittleEndian.Uint32(rec[4:8]); got != crc32IEEE(rec[:4]) {
		return UpdateState{}, ErrStateChecksum
	}
	if rec[0] != StateFormatVersion {
		return UpdateState{}, fmt.Errorf("%w: %d", ErrStateFormat, rec[0])
	}
	flags := rec[2]
	return UpdateState{
		ActiveBank:      Bank(rec[1] & 1),
		StagedPending:   flags&flagStagedPending != 0,
		UpdateRequested: flags&flagUpdateRequested != 0,
		Trial:           flags&flagTrial != 0,
		BootAttempts:    rec[3],
	}, nil
}

// StateStore reads and writes the raw reserved record region.
type StateStore interface {
	Load() ([]byte, error)
	Store([]byte) error
}

// LoadState reads the persisted state, falling back to a factory-default
// record when the region is blank, corrupt, or from an incompatible layout.
// The default is safe: run bank A, nothing pending.
func LoadState(store StateStore) UpdateState {
	rec, err := store.Load()
	if err == nil {
		s, uerr := UnmarshalRecord(rec)
		if uerr == nil {
			return s
		}
		err = uerr
	}
	logrus.Warnf("Rebuilding update state record: %s", err)
	return UpdateState{ActiveBank: BankA}
}

// StoreState persists s.
func StoreState(store StateStore, s UpdateState) error {
	return store.Store(s.MarshalRecord())
}
