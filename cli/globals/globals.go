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

package globals

var (
	// ConfigFileName is looked up in the user's home directory unless
	// --config points elsewhere.
	ConfigFileName = ".picodox-cli.yaml"

	// OldestSupportedFirmware is the oldest firmware release this tool
	// knows how to talk to; `info` warns below it.
	OldestSupportedFirmware = "1.0.0"

	// LogLevel and Verbose mirror the root flags for subcommands that
	// spawn their own output.
	LogLevel string
	Verbose  bool
)
