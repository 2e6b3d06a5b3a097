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
	"time"

	"github.com/spf13/cobra"

	"github.com/robot-rover/picodox/cli/feedback"
)

// NewPingCommand creates a new `ping` command
func NewPingCommand() *cobra.Command {
	command := &cobra.Command{
		Use:   "ping",
		Short: "Checks that the keyboard is alive.",
		Long:  "Sends a ping over the control channel and reports the round-trip time.",
		Example: "" +
			"  " + os.Args[0] + " ping --port /dev/ttyACM0\n" +
			"  " + os.Args[0] + " ping -p COM10\n",
		Args: cobra.NoArgs,
		Run:  runPing,
	}
	commonFlags.AddToCommand(command)
	return command
}

type pingResult struct {
	RTT string `json:"rtt"`
}

func (r *pingResult) Data() interface{} { return r }
func (r *pingResult) String() string {
	return fmt.Sprintf("Device answered in %s", r.RTT)
}

func runPing(cmd *cobra.Command, args []string) {
	dev := commonFlags.Connect(cmd)
	defer dev.Close()

	start := time.Now()
	if err := dev.Ping(); err != nil {
		feedback.Fatal(fmt.Sprintf("Error pinging device: %s", err), feedback.ErrDevice)
	}
	feedback.PrintResult(&pingResult{RTT: time.Since(start).Round(10 * time.Microsecond).String()})
}
