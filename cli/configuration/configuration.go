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

// Package configuration loads the tool's optional YAML config file, which
// supplies defaults for the connection flags so a pinned-down setup does
// not need --port on every invocation.
package configuration

import (
	"fmt"
	"os"
	"time"

	"github.com/arduino/go-paths-helper"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/robot-rover/picodox/cli/globals"
)

// Config holds the file-provided connection defaults. Zero values mean
// "not set"; flags always win over the file.
type Config struct {
	Port     string `yaml:"port"`
	BaudRate int    `yaml:"baudrate"`
	Timeout  string `yaml:"timeout"`
	Retries  *int   `yaml:"retries"`
}

// Settings is the loaded configuration, populated by Init before any
// subcommand runs.
var Settings = &Config{}

// Init loads the config file. An empty path means the default location in
// the user's home directory; a missing default file is not an error, a
// missing explicit one is.
func Init(configPath string) error {
	p, explicit, err := resolvePath(configPath)
	if err != nil {
		return err
	}
	exists, err := p.ExistCheck()
	if err != nil {
		return fmt.Errorf("checking config file %s: %w", p, err)
	}
	if !exists {
		if explicit {
			return fmt.Errorf("config file %s not found", p)
		}
		logrus.Debugf("No config file at %s, using defaults", p)
		return nil
	}

	data, err := p.ReadFile()
	if err != nil {
		return fmt.Errorf("reading config file %s: %w", p, err)
	}
	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parsing config file %s: %w", p, err)
	}
	if cfg.Timeout != "" {
		if _, err := time.ParseDuration(cfg.Timeout); err != nil {
			return fmt.Errorf("config file %s: bad timeout: %w", p, err)
		}
	}
	logrus.Infof("Loaded config from %s", p)
	Settings = cfg
	return nil
}

// ParsedTimeout returns the file's timeout, or zero when unset. Init
// already validated the syntax.
func (c *Config) ParsedTimeout() time.Duration {
	if c.Timeout == "" {
		return 0
	}
	d, _ := time.ParseDuration(c.Timeout)
	return d
}

func resolvePath(configPath string) (p *paths.Path, explicit bool, err error) {
	if configPath != "" {
		return paths.New(configPath), true, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, false, fmt.Errorf("locating home directory: %w", err)
	}
	return paths.New(home).Join(globals.ConfigFileName), false, nil
}
