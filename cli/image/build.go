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

package image

import (
	"fmt"
	"os"
	"strings"

	"github.com/arduino/go-paths-helper"
	semver "go.bug.st/relaxed-semver"

	"github.com/spf13/cobra"

	"github.com/robot-rover/picodox/bootloader"
	"github.com/robot-rover/picodox/cli/feedback"
)

func newBuildCommand() *cobra.Command {
	var bank string
	var version string
	var output string
	command := &cobra.Command{
		Use:   "build payload.bin",
		Short: "Wraps a firmware payload in an update image header.",
		Long:  "Builds an update image from a compiled firmware payload: target bank, version string and a payload checksum the bootloader verifies before swapping banks.",
		Example: "" +
			"  " + os.Args[0] + " image build firmware.bin --target-bank B --image-version 1.2.0 -o firmware.pdfw\n",
		Args: cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			runBuild(args[0], bank, version, output)
		},
	}
	command.Flags().StringVar(&bank, "target-bank", "", "Bank the image is linked for, A or B")
	command.Flags().StringVar(&version, "image-version", "", "Version string recorded in the image header, e.g. 1.2.0")
	command.Flags().StringVarP(&output, "output", "o", "", "Where to write the image (default: payload name with .pdfw)")
	command.MarkFlagRequired("target-bank")
	command.MarkFlagRequired("image-version")
	return command
}

func runBuild(payloadPath, bank, version, output string) {
	target, err := parseBank(bank)
	if err != nil {
		feedback.Fatal(err.Error(), feedback.ErrBadArgument)
	}
	if _, err := semver.Parse(version); err != nil {
		feedback.Fatal(fmt.Sprintf("Bad --image-version: %s", err), feedback.ErrBadArgument)
	}

	payload, err := paths.New(payloadPath).ReadFile()
	if err != nil {
		feedback.Fatal(fmt.Sprintf("Error reading payload: %s", err), feedback.ErrGeneric)
	}
	if len(payload) == 0 {
		feedback.Fatal("Payload is empty", feedback.ErrBadArgument)
	}

	img, err := bootloader.AppendImage(nil, bootloader.ImageHeader{
		TargetBank: target,
		Version:    version,
	}, payload)
	if err != nil {
		feedback.Fatal(fmt.Sprintf("Error building image: %s", err), feedback.ErrGeneric)
	}

	out := paths.New(output)
	if output == "" {
		out = paths.New(payloadPath)
		out = out.Parent().Join(strings.TrimSuffix(out.Base(), out.Ext()) + ".pdfw")
	}
	if err := out.WriteFile(img); err != nil {
		feedback.Fatal(fmt.Sprintf("Error writing image: %s", err), feedback.ErrGeneric)
	}
	feedback.Print(fmt.Sprintf("Wrote %s (%d bytes, version %s, bank %s)", out, len(img), version, target))
}
