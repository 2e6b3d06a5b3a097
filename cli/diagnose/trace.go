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
	"encoding/hex"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/robot-rover/picodox/cli/feedback"
	"github.com/robot-rover/picodox/firmware/diag"
)

// NewTraceCommand creates a new `trace` command
func NewTraceCommand() *cobra.Command {
	var clear bool
	var raw bool
	var output string
	command := &cobra.Command{
		Use:   "trace",
		Short: "Reads the keyboard's trace ring.",
		Long:  "Retrieves the firmware's trace event ring, oldest entry first, and decodes it.",
		Example: "" +
			"  " + os.Args[0] + " trace --port /dev/ttyACM0\n" +
			"  " + os.Args[0] + " trace --port /dev/ttyACM0 --clear\n",
		Args: cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			runTrace(cmd, clear, raw, output)
		},
	}
	commonFlags.AddToCommand(command)
	command.Flags().BoolVar(&clear, "clear", false, "Empty the ring after reading it")
	command.Flags().BoolVar(&raw, "raw", false, "Dump the raw ring bytes instead of decoding them")
	command.Flags().StringVarP(&output, "output", "o", "", "Save the raw ring to this file")
	return command
}

type traceEntry struct {
	Ticks uint32 `json:"ticks"`
	Tag   string `json:"tag"`
	Data  string `json:"data,omitempty"`
}

type traceResult struct {
	Entries []traceEntry `json:"entries"`
}

func (r *traceResult) Data() interface{} { return r }
func (r *traceResult) String() string {
	if len(r.Entries) == 0 {
		return "Trace ring is empty."
	}
	var sb strings.Builder
	for _, e := range r.Entries {
		fmt.Fprintf(&sb, "%10d  %-8s", e.Ticks, e.Tag)
		if e.Data != "" {
			fmt.Fprintf(&sb, "  %s", e.Data)
		}
		sb.WriteByte('\n')
	}
	return strings.TrimRight(sb.String(), "\n")
}

func tagName(tag byte) string {
	switch tag {
	case diag.TraceTagBoot:
		return "boot"
	case diag.TraceTagCommand:
		return "command"
	case diag.TraceTagReset:
		return "reset"
	case diag.TraceTagUpdate:
		return "update"
	case diag.TraceTagKeyScan:
		return "keyscan"
	case diag.TraceTagLink:
		return "link"
	}
	return fmt.Sprintf("tag(%#02x)", tag)
}

func runTrace(cmd *cobra.Command, clear, raw bool, output string) {
	dev := commonFlags.Connect(cmd)
	defer dev.Close()

	buf, err := dev.ReadTraceBuffer()
	if err != nil {
		feedback.Fatal(fmt.Sprintf("Error reading trace ring: %s", err), feedback.ErrDevice)
	}

	switch {
	case saveRaw(output, buf):
	case raw:
		feedback.Print(hexDump(buf))
	default:
		entries, err := diag.ParseTraceEntries(buf)
		if err != nil {
			feedback.Fatal(fmt.Sprintf("Device sent a malformed trace ring: %s", err), feedback.ErrDevice)
		}
		result := &traceResult{Entries: make([]traceEntry, 0, len(entries))}
		for _, e := range entries {
			result.Entries = append(result.Entries, traceEntry{
				Ticks: e.Ticks,
				Tag:   tagName(e.Tag),
				Data:  hex.EncodeToString(e.Data),
			})
		}
		feedback.PrintResult(result)
	}

	if clear {
		if err := dev.ClearTraceBuffer(); err != nil {
			feedback.Fatal(fmt.Sprintf("Error clearing trace ring: %s", err), feedback.ErrDevice)
		}
		feedback.Print("Trace ring cleared.")
	}
}
