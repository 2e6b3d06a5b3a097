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
	"strings"

	"github.com/spf13/cobra"
	"go.bug.st/serial"

	"github.com/robot-rover/picodox/cli/feedback"
)

// NewListCommand creates a new `list` command
func NewListCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Short:   "Lists the serial ports on this machine.",
		Long:    "Enumerates the serial ports the keyboard could be attached to.",
		Example: "  " + os.Args[0] + " list\n",
		Args:    cobra.NoArgs,
		Run:     runList,
	}
}

type listResult struct {
	Ports []string `json:"ports"`
}

func (r *listResult) Data() interface{} { return r }
func (r *listResult) String() string {
	if len(r.Ports) == 0 {
		return "No serial ports found."
	}
	return strings.Join(r.Ports, "\n")
}

func runList(cmd *cobra.Command, args []string) {
	ports, err := serial.GetPortsList()
	if err != nil {
		feedback.Fatal(fmt.Sprintf("Error listing serial ports: %s", err), feedback.ErrGeneric)
	}
	feedback.PrintResult(&listResult{Ports: ports})
}
