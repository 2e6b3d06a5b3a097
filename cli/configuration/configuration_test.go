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

package configuration

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "picodox-cli.yaml")
	require.NoError(t, os.WriteFile(p, []byte(content), 0644))
	return p
}

func TestLoadConfigFile(t *testing.T) {
	Settings = &Config{}
	p := writeConfig(t, "port: /dev/ttyACM1\nbaudrate: 57600\ntimeout: 5s\nretries: 0\n")
	require.NoError(t, Init(p))
	require.Equal(t, "/dev/ttyACM1", Settings.Port)
	require.Equal(t, 57600, Settings.BaudRate)
	require.Equal(t, 5*time.Second, Settings.ParsedTimeout())
	require.NotNil(t, Settings.Retries)
	require.Equal(t, 0, *Settings.Retries)
}

func TestPartialConfigLeavesRestUnset(t *testing.T) {
	Settings = &Config{}
	p := writeConfig(t, "port: /dev/ttyACM0\n")
	require.NoError(t, Init(p))
	require.Equal(t, "/dev/ttyACM0", Settings.Port)
	require.Zero(t, Settings.BaudRate)
	require.Zero(t, Settings.ParsedTimeout())
	require.Nil(t, Settings.Retries)
}

func TestMissingExplicitConfigFails(t *testing.T) {
	Settings = &Config{}
	err := Init(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	require.Contains(t, err.Error(), "not found")
}

func TestBadTimeoutRejected(t *testing.T) {
	Settings = &Config{}
	p := writeConfig(t, "timeout: sometime\n")
	require.Error(t, Init(p))
}

func TestBadYamlRejected(t *testing.T) {
	Settings = &Config{}
	p := writeConfig(t, "port: [\n")
	require.Error(t, Init(p))
}
