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

// Package device implements the commands that talk to a live keyboard:
// ping, info, reboot, dfu, recovery and list.
package device

import (
	"fmt"

	"github.com/robot-rover/picodox/cli/arguments"
	"github.com/robot-rover/picodox/cli/feedback"
)

// commonFlags contains the connection flags shared by all the commands in
// this group.
var commonFlags arguments.Flags

// reportReset prints the outcome of a command that makes the device
// reset. A missing acknowledgement is expected when the reset wins the
// race against the response, so both outcomes exit 0.
func reportReset(acked bool, err error, doing string) {
	if err != nil {
		feedback.Fatal(fmt.Sprintf("Error %s: %s", doing, err), feedback.ErrDevice)
	}
	if acked {
		feedback.Print(fmt.Sprintf("Device acknowledged and is %s.", doing))
	} else {
		feedback.Print(fmt.Sprintf("No acknowledgement, device reset while %s.", doing))
	}
}
