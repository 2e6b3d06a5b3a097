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

// Package diagnose implements the commands that pull the crash-survivable
// diagnostic buffers out of the keyboard: panic and trace.
package diagnose

import (
	"encoding/hex"
	"fmt"

	"github.com/arduino/go-paths-helper"

	"github.com/robot-rover/picodox/cli/arguments"
	"github.com/robot-rover/picodox/cli/feedback"
)

var commonFlags arguments.Flags

// saveRaw writes a buffer dump to a file when --output was given and
// reports whether it did.
func saveRaw(output string, buf []byte) bool {
	if output == "" {
		return false
	}
	if err := paths.New(output).WriteFile(buf); err != nil {
		feedback.Fatal(fmt.Sprintf("Error writing %s: %s", output, err), feedback.ErrGeneric)
	}
	feedback.Print(fmt.Sprintf("Wrote %d bytes to %s", len(buf), output))
	return true
}

func hexDump(buf []byte) string {
	return hex.Dump(buf)
}
