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

// Package sim runs the keyboard firmware's control plane as an ordinary
// process: the real command dispatcher, bootloader and diagnostic code
// wired to in-memory flash banks instead of hardware. It backs the test
// suite and the picodox-sim command, which lets the CLI be exercised
// without a keyboard on the desk.
package sim

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/robot-rover/picodox/bootloader"
	"github.com/robot-rover/picodox/firmware/diag"
	"github.com/robot-rover/picodox/firmware/dispatch"
)

// simBuild is reported as the firmware build identifier so a host can
// tell a simulated device from a real one.
const simBuild = "simulated"

// MemBanks is flash bank storage held in memory.
type MemBanks struct {
	mu     sync.Mutex
	images map[bootloader.Bank][]byte
}

func NewMemBanks() *MemBanks {
	return &MemBanks{images: make(map[bootloader.Bank][]byte)}
}

func (m *MemBanks) ReadImage(b bootloader.Bank) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	img, ok := m.images[b]
	if !ok {
		return nil, fmt.Errorf("bank %s is blank", b)
	}
	return append([]byte(nil), img...), nil
}

func (m *MemBanks) WriteImage(b bootloader.Bank, img []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.images[b] = append([]byte(nil), img...)
}

// MemState is an in-memory update state record.
type MemState struct {
	mu  sync.Mutex
	rec []byte
}

func (m *MemState) Load() ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.rec == nil {
		return nil, errors.New("state record never written")
	}
	return append([]byte(nil), m.rec...), nil
}

func (m *MemState) Store(rec []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rec = append([]byte(nil), rec...)
	return nil
}

// Device models one keyboard half. Its dispatcher, bootloader and
// diagnostic buffers are the firmware packages themselves; only flash
// and the USB transport are stand-ins.
type Device struct {
	Banks *MemBanks
	State *MemState

	// FailCheckpoint suppresses the post-boot checkpoint, so a trial
	// image never gets committed and burns a boot attempt instead.
	FailCheckpoint bool

	mu         sync.Mutex
	version    string
	outcome    bootloader.Outcome
	bootCount  int
	updateMode bool
	recovery   bool
	conn       net.Conn
	done       chan struct{}
}

// NewDevice builds a device whose active bank holds a firmware image at
// the given version, then powers it on.
func NewDevice(version string) (*Device, error) {
	img, err := bootloader.AppendImage(nil, bootloader.ImageHeader{
		TargetBank: bootloader.BankA,
		Version:    version,
	}, []byte("factory firmware payload"))
	if err != nil {
		return nil, err
	}
	d := &Device{Banks: NewMemBanks(), State: &MemState{}}
	d.Banks.WriteImage(bootloader.BankA, img)
	if err := d.PowerOn(); err != nil {
		return nil, err
	}
	return d, nil
}

// PowerOn runs one boot of the device: the bootloader decides which bank
// runs, the application re-arms panic capture and, unless FailCheckpoint
// is set, reaches its checkpoint and commits a trial image.
func (d *Device) PowerOn() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.updateMode = false
	outcome, err := bootloader.New(d.Banks, d.State).Boot()
	if err != nil {
		return fmt.Errorf("boot failed: %w", err)
	}
	d.outcome = outcome
	d.bootCount++

	img, err := d.Banks.ReadImage(outcome.Run)
	if err != nil {
		return fmt.Errorf("active bank unreadable: %w", err)
	}
	hdr, _, err := bootloader.ParseImage(img)
	if err != nil {
		return fmt.Errorf("active bank holds no valid image: %w", err)
	}
	d.version = hdr.Version

	// Application startup.
	diag.RearmPanicCapture()
	diag.Trace(diag.TraceTagBoot, []byte{byte(outcome.Run)})
	if d.FailCheckpoint {
		logrus.Warn("Simulated checkpoint failure, trial image stays uncommitted")
		return nil
	}
	return bootloader.MarkBootOK(d.State)
}

// BootCount reports how many times the device has booted.
func (d *Device) BootCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.bootCount
}

// LastBoot reports what the bootloader decided on the most recent power-on.
func (d *Device) LastBoot() bootloader.Outcome {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.outcome
}

// Version reports the running firmware version.
func (d *Device) Version() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.version
}

// InUpdateMode reports whether the device rebooted into its staging
// bootloader and is waiting for an image.
func (d *Device) InUpdateMode() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.updateMode
}

// InRecovery reports whether the device dropped into its mask-ROM loader.
// A device in recovery no longer speaks the control protocol.
func (d *Device) InRecovery() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.recovery
}

// StageImage writes an update image into the inactive bank and marks it
// pending, the way the staging bootloader would after receiving it from
// the host.
func (d *Device) StageImage(img []byte) error {
	d.mu.Lock()
	target := d.outcome.Run.Other()
	d.mu.Unlock()
	d.Banks.WriteImage(target, img)
	return bootloader.StagePending(d.State)
}

// Crash records a panic as the firmware's fault handler would and drops
// the transport mid-conversation.
func (d *Device) Crash(msg string) {
	diag.CapturePanic(msg)
	d.closeConn()
}

// Open plugs the device in: it returns the host end of a fresh transport,
// usable through client.NewConn. Any previous transport is dropped first.
func (d *Device) Open() (net.Conn, error) {
	d.mu.Lock()
	if d.recovery {
		d.mu.Unlock()
		return nil, errors.New("device is in recovery mode and not enumerating")
	}
	d.mu.Unlock()
	d.closeConn()

	host, dev := net.Pipe()
	d.mu.Lock()
	d.conn = dev
	d.done = make(chan struct{})
	done := d.done
	d.mu.Unlock()

	go func() {
		defer close(done)
		err := dispatch.New(dev, d).Run(context.Background())
		if err != nil && !errors.Is(err, io.ErrClosedPipe) {
			logrus.Debugf("Dispatcher stopped: %s", err)
		}
	}()
	return host, nil
}

// Unplug drops the current transport without resetting the device.
func (d *Device) Unplug() {
	d.closeConn()
}

func (d *Device) closeConn() {
	d.mu.Lock()
	conn, done := d.conn, d.done
	d.conn, d.done = nil, nil
	d.mu.Unlock()
	if conn == nil {
		return
	}
	conn.Close()
	<-done
}

// Info implements dispatch.Board.
func (d *Device) Info() (version, build string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.version, simBuild
}

// Reset implements dispatch.Board: the transport disappears and the
// device goes through a full boot.
func (d *Device) Reset() {
	go func() {
		d.closeConn()
		if err := d.PowerOn(); err != nil {
			logrus.Errorf("Simulated device failed to boot: %s", err)
		}
	}()
}

// EnterUpdateMode implements dispatch.Board.
func (d *Device) EnterUpdateMode() {
	go func() {
		d.closeConn()
		if err := bootloader.RequestUpdate(d.State); err != nil {
			logrus.Errorf("Could not record update request: %s", err)
			return
		}
		d.mu.Lock()
		d.updateMode = true
		d.mu.Unlock()
	}()
}

// EnterRecovery implements dispatch.Board. There is no way back short of
// reflashing, which the simulator does not model.
func (d *Device) EnterRecovery() {
	go func() {
		d.closeConn()
		d.mu.Lock()
		d.recovery = true
		d.mu.Unlock()
	}()
}
