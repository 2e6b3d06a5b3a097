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
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"

	"github.com/robot-rover/picodox/cli/configuration"
	"github.com/robot-rover/picodox/client"
)

func parse(t *testing.T, args ...string) (*Flags, *cobra.Command) {
	t.Helper()
	f := &Flags{}
	cmd := &cobra.Command{Use: "test", Run: func(*cobra.Command, []string) {}}
	f.AddToCommand(cmd)
	cmd.SetArgs(args)
	require.NoError(t, cmd.Execute())
	return f, cmd
}

func TestFlagsBeatConfig(t *testing.T) {
	f, cmd := parse(t, "--port", "/dev/ttyACM9", "--baudrate", "9600", "--timeout", "1s", "--retries", "5")
	retries := 0
	cfg := &configuration.Config{Port: "/dev/ttyACM0", BaudRate: 57600, Timeout: "9s", Retries: &retries}
	require.NoError(t, f.Resolve(cmd, cfg))
	require.Equal(t, "/dev/ttyACM9", f.Port)
	require.Equal(t, 9600, f.BaudRate)
	require.Equal(t, time.Second, f.Timeout)
	require.Equal(t, 5, f.Retries)
}

func TestConfigFillsUnsetFlags(t *testing.T) {
	f, cmd := parse(t)
	retries := 0
	cfg := &configuration.Config{Port: "/dev/ttyACM0", BaudRate: 57600, Timeout: "9s", Retries: &retries}
	require.NoError(t, f.Resolve(cmd, cfg))
	require.Equal(t, "/dev/ttyACM0", f.Port)
	require.Equal(t, 57600, f.BaudRate)
	require.Equal(t, 9*time.Second, f.Timeout)
	require.Equal(t, 0, f.Retries)
}

func TestEmptyConfigLeavesDefaults(t *testing.T) {
	f, cmd := parse(t, "--port", "/dev/ttyACM0")
	require.NoError(t, f.Resolve(cmd, &configuration.Config{}))
	require.Equal(t, client.DefaultBaudRate, f.BaudRate)
	require.Equal(t, client.DefaultTimeout, f.Timeout)
	require.Equal(t, client.DefaultRetries, f.Retries)
}

func TestPortRequired(t *testing.T) {
	f, cmd := parse(t)
	err := f.Resolve(cmd, &configuration.Config{})
	require.Error(t, err)
	require.Contains(t, err.Error(), "no serial port")
}
