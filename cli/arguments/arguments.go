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

package arguments

import (
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/robot-rover/picodox/cli/configuration"
	"github.com/robot-rover/picodox/cli/feedback"
	"github.com/robot-rover/picodox/client"
)

// Flags contains the connection flags shared by every command that talks
// to a device, so they stay consistent with each other.
type Flags struct {
	Port     string
	BaudRate int
	Timeout  time.Duration
	Retries  int
}

// AddToCommand adds the connection flags to the specified Command.
func (f *Flags) AddToCommand(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.Port, "port", "p", "", "Serial port the keyboard is attached to, e.g.: COM10, /dev/ttyACM0. Prefix with tcp: to reach a simulated device.")
	cmd.Flags().IntVarP(&f.BaudRate, "baudrate", "b", client.DefaultBaudRate, "Baud rate for the serial port")
	cmd.Flags().DurationVar(&f.Timeout, "timeout", client.DefaultTimeout, "How long to wait for each response")
	cmd.Flags().IntVar(&f.Retries, "retries", client.DefaultRetries, "Number of retries in case of a missed response")
}

// Resolve fills in values from the config file for every flag the user
// did not set on the command line.
func (f *Flags) Resolve(cmd *cobra.Command, cfg *configuration.Config) error {
	if !cmd.Flags().Changed("port") && cfg.Port != "" {
		f.Port = cfg.Port
	}
	if !cmd.Flags().Changed("baudrate") && cfg.BaudRate != 0 {
		f.BaudRate = cfg.BaudRate
	}
	if !cmd.Flags().Changed("timeout") && cfg.ParsedTimeout() != 0 {
		f.Timeout = cfg.ParsedTimeout()
	}
	if !cmd.Flags().Changed("retries") && cfg.Retries != nil {
		f.Retries = *cfg.Retries
	}
	if f.Port == "" {
		return errors.New("no serial port given, use --port or set one in the config file")
	}
	return nil
}

// Connect resolves the flags against the loaded configuration and opens
// the device. It exits through feedback on any failure, so commands can
// use the returned client unconditionally.
func (f *Flags) Connect(cmd *cobra.Command) *client.Client {
	if err := f.Resolve(cmd, configuration.Settings); err != nil {
		feedback.FatalError(err, feedback.ErrBadArgument)
	}

	opts := []client.Option{
		client.WithTimeout(f.Timeout),
		client.WithRetries(f.Retries),
	}

	if addr, ok := strings.CutPrefix(f.Port, "tcp:"); ok {
		conn, err := net.Dial("tcp", addr)
		if err != nil {
			feedback.Fatal(fmt.Sprintf("Error connecting to simulated device: %s", err), feedback.ErrGeneric)
		}
		return client.NewConn(conn, opts...)
	}

	c, err := client.Dial(f.Port, f.BaudRate, opts...)
	if err != nil {
		feedback.Fatal(fmt.Sprintf("Error opening port: %s", err), feedback.ErrGeneric)
	}
	return c
}
