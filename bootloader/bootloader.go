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

// Package bootloader implements the second-stage boot decision: on every
// reset it either runs the active firmware bank or verifies, swaps in and
// (after the application checks in) commits a staged update. The policy is
// pure state-transition logic over two small storage capabilities, so the
// whole machine is testable without flash hardware.
//
// Safety properties:
//   - a staged image that fails verification never runs; the update is
//     treated as if it never happened.
//   - a verified image that keeps crashing before its boot-OK checkpoint
//     is rolled back after a bounded number of attempts, so a bad update
//     can never brick the keyboard.
package bootloader

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// DefaultMaxBootAttempts is how many boots a trial image gets to reach its
// checkpoint before the previous bank is restored.
const DefaultMaxBootAttempts = 3

// BankStore reads raw bank contents. The bootloader only ever reads; bank
// writes happen during the staging transfer, before reset.
type BankStore interface {
	ReadImage(b Bank) ([]byte, error)
}

// Bootloader is the per-reset decision machine.
type Bootloader struct {
	banks       BankStore
	state       StateStore
	maxAttempts uint8
}

// Option configures a Bootloader.
type Option func(*Bootloader)

// WithMaxBootAttempts overrides the trial boot budget.
func WithMaxBootAttempts(n uint8) Option {
	return func(b *Bootloader) {
		if n > 0 {
			b.maxAttempts = n
		}
	}
}

// New creates a Bootloader over the given stores.
func New(banks BankStore, state StateStore, opts ...Option) *Bootloader {
	b := &Bootloader{
		banks:       banks,
		state:       state,
		maxAttempts: DefaultMaxBootAttempts,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Outcome reports what one boot cycle decided.
type Outcome struct {
	// Run is the bank control jumps to; the terminal state of every cycle.
	Run Bank
	// Applied is set when a staged image verified and became active.
	Applied bool
	// Discarded is set when a staged image failed verification and was
	// dropped without running.
	Discarded bool
	// RolledBack is set when a trial image exhausted its boot attempts and
	// the previous bank was restored.
	RolledBack bool
}

// Boot runs one reset cycle: load state, handle any trial image, verify
// any staged image, persist the new state and pick the bank to run.
func (b *Bootloader) Boot() (Outcome, error) {
	s := LoadState(b.state)
	var out Outcome

	// A trial image that never reached its checkpoint gets evicted before
	// anything else is considered.
	if s.Trial {
		if s.BootAttempts >= b.maxAttempts {
			prev := s.ActiveBank.Other()
			logrus.Warnf("Bank %s failed %d boots, rolling back to bank %s",
				s.ActiveBank, s.BootAttempts, prev)
			s.ActiveBank = prev
			s.Trial = false
			s.BootAttempts = 0
			s.StagedPending = false
			out.RolledBack = true
		} else {
			s.BootAttempts++
			logrus.Infof("Bank %s trial boot %d of %d", s.ActiveBank, s.BootAttempts, b.maxAttempts)
		}
	}

	if s.UpdateRequested {
		// The dispatcher set this marker before resetting. By now the
		// transfer either staged an image or it did not; either way the
		// request is consumed.
		s.UpdateRequested = false
	}

	if s.StagedPending && !out.RolledBack {
		s.StagedPending = false
		staged := s.ActiveBank.Other()
		if err := b.verifyStaged(staged); err != nil {
			// The attempted update is treated as if it never happened.
			logrus.Warnf("Discarding staged image in bank %s: %s", staged, err)
			out.Discarded = true
		} else {
			logrus.Infof("Staged image in bank %s verified, swapping", staged)
			s.ActiveBank = staged
			s.Trial = true
			s.BootAttempts = 1
			out.Applied = true
		}
	}

	if err := StoreState(b.state, s); err != nil {
		return out, fmt.Errorf("persisting update state: %w", err)
	}
	out.Run = s.ActiveBank
	return out, nil
}

func (b *Bootloader) verifyStaged(staged Bank) error {
	img, err := b.banks.ReadImage(staged)
	if err != nil {
		return fmt.Errorf("reading bank: %w", err)
	}
	hdr, err := VerifyImage(img)
	if err != nil {
		return err
	}
	if hdr.TargetBank != staged {
		return fmt.Errorf("image built for bank %s staged in bank %s", hdr.TargetBank, staged)
	}
	return nil
}

// MarkBootOK is the application's "successfully running" checkpoint,
// emitted once its tasks are up. It commits a trial image and zeroes the
// attempt counter.
func MarkBootOK(store StateStore) error {
	s := LoadState(store)
	if !s.Trial && s.BootAttempts == 0 {
		return nil
	}
	s.Trial = false
	s.BootAttempts = 0
	return StoreState(store, s)
}

// RequestUpdate persists the enter-update-mode marker. The dispatcher
// calls this immediately before triggering the reset.
func RequestUpdate(store StateStore) error {
	s := LoadState(store)
	s.UpdateRequested = true
	return StoreState(store, s)
}

// StagePending records that the inactive bank now holds a transferred
// image awaiting verification on the next reset.
func StagePending(store StateStore) error {
	s := LoadState(store)
	s.StagedPending = true
	return StoreState(store, s)
}
