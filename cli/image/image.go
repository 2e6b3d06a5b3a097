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

// Package image implements the commands that build and inspect firmware
// update images in the format the bootloader verifies before a bank swap.
package image

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/robot-rover/picodox/bootloader"
)

// NewCommand created a new `image` command
func NewCommand() *cobra.Command {
	command := &cobra.Command{
		Use:   "image",
		Short: "Builds and inspects firmware update images.",
		Long:  "Wraps a compiled firmware payload in the header the bootloader verifies, or checks an existing image.",
	}
	command.AddCommand(newBuildCommand())
	command.AddCommand(newVerifyCommand())
	return command
}

func parseBank(s string) (bootloader.Bank, error) {
	switch strings.ToUpper(s) {
	case "A":
		return bootloader.BankA, nil
	case "B":
		return bootloader.BankB, nil
	}
	return 0, fmt.Errorf("unknown bank %q, must be A or B", s)
}
