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

// picodox-sim runs a simulated keyboard on a TCP port, so picodox-cli can
// be exercised without hardware:
//
//	picodox-sim --listen localhost:4815
//	picodox-cli ping --port tcp:localhost:4815
package main

import (
	"net"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/robot-rover/picodox/sim"
)

var (
	listenAddr      string
	firmwareVersion string
	failCheckpoint  bool
)

func main() {
	cmd := &cobra.Command{
		Use:   "picodox-sim",
		Short: "Runs a simulated picodox keyboard over TCP.",
		Args:  cobra.NoArgs,
		Run:   run,
	}
	cmd.Flags().StringVar(&listenAddr, "listen", "localhost:4815", "Address to serve the control protocol on")
	cmd.Flags().StringVar(&firmwareVersion, "firmware-version", "1.0.0", "Version of the firmware image in the active bank")
	cmd.Flags().BoolVar(&failCheckpoint, "fail-checkpoint", false, "Simulate firmware that never reaches its boot checkpoint, so staged updates roll back")

	if cmd.Execute() != nil {
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) {
	logrus.SetLevel(logrus.DebugLevel)

	dev, err := sim.NewDevice(firmwareVersion)
	if err != nil {
		logrus.Fatalf("Could not build device: %s", err)
	}
	dev.FailCheckpoint = failCheckpoint

	ln, err := net.Listen("tcp", listenAddr)
	if err != nil {
		logrus.Fatalf("Could not listen on %s: %s", listenAddr, err)
	}
	logrus.Infof("Simulated keyboard (firmware %s) on %s", firmwareVersion, listenAddr)
	if err := dev.Serve(ln); err != nil {
		logrus.Fatalf("Serving: %s", err)
	}
}
