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
	"fmt"
	"os"

	semver "go.bug.st/relaxed-semver"

	"github.com/spf13/cobra"

	"github.com/robot-rover/picodox/cli/feedback"
	"github.com/robot-rover/picodox/cli/globals"
)

// NewInfoCommand creates a new `info` command
func NewInfoCommand() *cobra.Command {
	command := &cobra.Command{
		Use:     "info",
		Short:   "Gets the version of the firmware the keyboard is running.",
		Long:    "Queries the running firmware for its version and build identifier.",
		Example: "  " + os.Args[0] + " info --port /dev/ttyACM0\n",
		Args:    cobra.NoArgs,
		Run:     runInfo,
	}
	commonFlags.AddToCommand(command)
	return command
}

type infoResult struct {
	Version string `json:"version"`
	Build   string `json:"build"`
}

func (r *infoResult) Data() interface{} { return r }
func (r *infoResult) String() string {
	return fmt.Sprintf("Firmware version: %s (build %s)", r.Version, r.Build)
}

func runInfo(cmd *cobra.Command, args []string) {
	dev := commonFlags.Connect(cmd)
	defer dev.Close()

	info, err := dev.Info()
	if err != nil {
		feedback.Fatal(fmt.Sprintf("Error getting device info: %s", err), feedback.ErrDevice)
	}

	running := semver.ParseRelaxed(info.Version)
	oldest := semver.ParseRelaxed(globals.OldestSupportedFirmware)
	if running.LessThan(oldest) {
		feedback.Errorf("Firmware %s is older than the oldest supported release (%s), consider updating", info.Version, globals.OldestSupportedFirmware)
	}

	feedback.PrintResult(&infoResult{Version: info.Version, Build: info.Build})
}
