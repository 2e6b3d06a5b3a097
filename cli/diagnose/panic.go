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

package diagnose

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/robot-rover/picodox/cli/feedback"
	"github.com/robot-rover/picodox/firmware/diag"
)

// NewPanicCommand creates a new `panic` command
func NewPanicCommand() *cobra.Command {
	var clear bool
	var raw bool
	var output string
	command := &cobra.Command{
		Use:   "panic",
		Short: "Reads the keyboard's panic record.",
		Long:  "Retrieves the crash record the firmware wrote on its last fault. The record survives reboots until cleared with --clear.",
		Example: "" +
			"  " + os.Args[0] + " panic --port /dev/ttyACM0\n" +
			"  " + os.Args[0] + " panic --port /dev/ttyACM0 --clear\n",
		Args: cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			runPanic(cmd, clear, raw, output)
		},
	}
	commonFlags.AddToCommand(command)
	command.Flags().BoolVar(&clear, "clear", false, "Clear the record after reading it, re-arming capture for the next fault")
	command.Flags().BoolVar(&raw, "raw", false, "Dump the raw record bytes instead of decoding them")
	command.Flags().StringVarP(&output, "output", "o", "", "Save the raw record to this file")
	return command
}

type panicResult struct {
	Seq     uint32 `json:"seq"`
	Message string `json:"message"`
}

func (r *panicResult) Data() interface{} { return r }
func (r *panicResult) String() string {
	return fmt.Sprintf("Panic #%d: %s", r.Seq, r.Message)
}

func runPanic(cmd *cobra.Command, clear, raw bool, output string) {
	dev := commonFlags.Connect(cmd)
	defer dev.Close()

	buf, err := dev.ReadPanicBuffer()
	if err != nil {
		feedback.Fatal(fmt.Sprintf("Error reading panic record: %s", err), feedback.ErrDevice)
	}

	switch {
	case saveRaw(output, buf):
	case raw:
		feedback.Print(hexDump(buf))
	default:
		rec, err := diag.ParsePanicRecord(buf)
		if err != nil {
			feedback.Fatal(fmt.Sprintf("Device sent a malformed panic record: %s", err), feedback.ErrDevice)
		}
		if rec == nil {
			feedback.Print("No panic recorded.")
			return
		}
		feedback.PrintResult(&panicResult{Seq: rec.Seq, Message: rec.Message})
	}

	if clear {
		if err := dev.ClearPanicBuffer(); err != nil {
			feedback.Fatal(fmt.Sprintf("Error clearing panic record: %s", err), feedback.ErrDevice)
		}
		feedback.Print("Panic record cleared.")
	}
}
