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

package device

import (
	"os"

	"github.com/spf13/cobra"
)

// NewRebootCommand creates a new `reboot` command
func NewRebootCommand() *cobra.Command {
	command := &cobra.Command{
		Use:     "reboot",
		Short:   "Reboots the keyboard.",
		Long:    "Resets the keyboard's microcontroller; the firmware in the active bank boots again.",
		Example: "  " + os.Args[0] + " reboot --port /dev/ttyACM0\n",
		Args:    cobra.NoArgs,
		Run:     runReboot,
	}
	commonFlags.AddToCommand(command)
	return command
}

func runReboot(cmd *cobra.Command, args []string) {
	dev := commonFlags.Connect(cmd)
	defer dev.Close()
	acked, err := dev.Reboot()
	reportReset(acked, err, "rebooting")
}

// NewDfuCommand creates a new `dfu` command
func NewDfuCommand() *cobra.Command {
	command := &cobra.Command{
		Use:     "dfu",
		Short:   "Reboots the keyboard into firmware update mode.",
		Long:    "Records an update request and resets into the staging bootloader, which waits for a new firmware image.",
		Example: "  " + os.Args[0] + " dfu --port /dev/ttyACM0\n",
		Args:    cobra.NoArgs,
		Run:     runDfu,
	}
	commonFlags.AddToCommand(command)
	return command
}

func runDfu(cmd *cobra.Command, args []string) {
	dev := commonFlags.Connect(cmd)
	defer dev.Close()
	acked, err := dev.EnterUpdateMode()
	reportReset(acked, err, "entering update mode")
}

// NewRecoveryCommand creates a new `recovery` command
func NewRecoveryCommand() *cobra.Command {
	command := &cobra.Command{
		Use:     "recovery",
		Short:   "Drops the keyboard into its ROM recovery loader.",
		Long:    "Resets into the MCU's mask-ROM loader. Use this to reflash a device whose own bootloader is broken; the control channel disappears until it is reflashed.",
		Example: "  " + os.Args[0] + " recovery --port /dev/ttyACM0\n",
		Args:    cobra.NoArgs,
		Run:     runRecovery,
	}
	commonFlags.AddToCommand(command)
	return command
}

func runRecovery(cmd *cobra.Command, args []string) {
	dev := commonFlags.Connect(cmd)
	defer dev.Close()
	acked, err := dev.EnterRecovery()
	reportReset(acked, err, "entering recovery")
}
