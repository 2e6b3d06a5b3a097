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

	"github.com/arduino/go-paths-helper"

	"github.com/spf13/cobra"

	"github.com/robot-rover/picodox/bootloader"
	"github.com/robot-rover/picodox/cli/feedback"
)

func newVerifyCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "verify image.pdfw",
		Short:   "Checks an update image the way the bootloader does.",
		Long:    "Parses an update image's header and recomputes the payload checksum, reporting what the bootloader would decide.",
		Example: "  " + os.Args[0] + " image verify firmware.pdfw\n",
		Args:    cobra.ExactArgs(1),
		Run:     runVerify,
	}
}

type verifyResult struct {
	Version     string `json:"version"`
	TargetBank  string `json:"target_bank"`
	PayloadSize uint32 `json:"payload_size"`
	PayloadCRC  uint32 `json:"payload_crc"`
}

func (r *verifyResult) Data() interface{} { return r }
func (r *verifyResult) String() string {
	return fmt.Sprintf("Valid image: version %s, bank %s, payload %d bytes (crc %08x)",
		r.Version, r.TargetBank, r.PayloadSize, r.PayloadCRC)
}

func runVerify(cmd *cobra.Command, args []string) {
	img, err := paths.New(args[0]).ReadFile()
	if err != nil {
		feedback.Fatal(fmt.Sprintf("Error reading image: %s", err), feedback.ErrGeneric)
	}
	hdr, err := bootloader.VerifyImage(img)
	if err != nil {
		feedback.Fatal(fmt.Sprintf("Image rejected: %s", err), feedback.ErrGeneric)
	}
	feedback.PrintResult(&verifyResult{
		Version:     hdr.Version,
		TargetBank:  hdr.TargetBank.String(),
		PayloadSize: hdr.PayloadSize,
		PayloadCRC:  hdr.PayloadCRC,
	})
}
