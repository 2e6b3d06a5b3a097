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

// Package version carries the build metadata the release process injects
// with -ldflags; a plain `go build` reports the 0.0.0-git placeholder.
package version

import "fmt"

// Overridden at link time by the release build.
var (
	versionString = ""
	commit        = ""
	date          = ""
)

// VersionInfo describes this build of the host tool.
var VersionInfo *info

type info struct {
	Application   string `json:"Application"`
	VersionString string `json:"VersionString"`
	Commit        string `json:"Commit"`
	Date          string `json:"Date"`
}

func (i *info) String() string {
	return fmt.Sprintf("%s Version: %s Commit: %s Date: %s", i.Application, i.VersionString, i.Commit, i.Date)
}

// Data satisfies feedback.Result, so the version command can print this
// as JSON.
func (i *info) Data() interface{} {
	return i
}

func init() {
	if versionString == "" {
		versionString = "0.0.0-git"
	}
	VersionInfo = &info{
		Application:   "picodox-cli",
		VersionString: versionString,
		Commit:        commit,
		Date:          date,
	}
}
