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

package cli

import (
	"io"
	"os"
	"strings"

	"github.com/mattn/go-colorable"
	"github.com/rifflock/lfshook"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/robot-rover/picodox/cli/configuration"
	"github.com/robot-rover/picodox/cli/device"
	"github.com/robot-rover/picodox/cli/diagnose"
	"github.com/robot-rover/picodox/cli/feedback"
	"github.com/robot-rover/picodox/cli/globals"
	"github.com/robot-rover/picodox/cli/image"
	"github.com/robot-rover/picodox/cli/version"
	v "github.com/robot-rover/picodox/version"
)

var (
	outputFormat string
	configFile   string
	verbose      bool
	logFile      string
	logFormat    string
	logLevel     string
)

func NewCommand() *cobra.Command {
	// picodoxCli is the root command
	picodoxCli := &cobra.Command{
		Use:              "picodox-cli",
		Short:            "picodox keyboard control tool.",
		Long:             "Talks to a picodox keyboard over its serial control channel: liveness, firmware info, update staging, crash diagnostics.",
		Example:          "  " + os.Args[0] + " <command> [flags...]",
		Args:             cobra.NoArgs,
		Run:              run,
		PersistentPreRun: preRun,
	}

	picodoxCli.AddCommand(device.NewPingCommand())
	picodoxCli.AddCommand(device.NewInfoCommand())
	picodoxCli.AddCommand(device.NewRebootCommand())
	picodoxCli.AddCommand(device.NewDfuCommand())
	picodoxCli.AddCommand(device.NewRecoveryCommand())
	picodoxCli.AddCommand(device.NewListCommand())
	picodoxCli.AddCommand(diagnose.NewPanicCommand())
	picodoxCli.AddCommand(diagnose.NewTraceCommand())
	picodoxCli.AddCommand(image.NewCommand())
	picodoxCli.AddCommand(version.NewCommand())

	picodoxCli.PersistentFlags().StringVar(&outputFormat, "format", "text", "The output format, can be {text|json}.")
	picodoxCli.PersistentFlags().StringVar(&configFile, "config", "", "Path to the config file (default: $HOME/"+globals.ConfigFileName+")")

	picodoxCli.PersistentFlags().StringVar(&logFile, "log-file", "", "Path to the file where logs will be written")
	picodoxCli.PersistentFlags().StringVar(&logFormat, "log-format", "", "The output format for the logs, can be {text|json}.")
	picodoxCli.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Messages with this level and above will be logged. Valid levels are: trace, debug, info, warn, error, fatal, panic")
	picodoxCli.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Print the logs on the standard output.")

	return picodoxCli
}

func run(cmd *cobra.Command, args []string) {
	cmd.Help()
	os.Exit(int(feedback.ErrBadArgument))
}

// Convert the string passed to the `--log-level` option to the corresponding
// logrus formal level.
func toLogLevel(s string) (t logrus.Level, found bool) {
	t, found = map[string]logrus.Level{
		"trace": logrus.TraceLevel,
		"debug": logrus.DebugLevel,
		"info":  logrus.InfoLevel,
		"warn":  logrus.WarnLevel,
		"error": logrus.ErrorLevel,
		"fatal": logrus.FatalLevel,
		"panic": logrus.PanicLevel,
	}[s]

	return
}

func preRun(cmd *cobra.Command, args []string) {
	// Prepare logging
	if verbose {
		// if we print on stdout, do it in full colors
		logrus.SetOutput(colorable.NewColorableStdout())
		logrus.SetFormatter(&logrus.TextFormatter{
			ForceColors: true,
		})
	} else {
		logrus.SetOutput(io.Discard)
	}

	// Normalize the format strings
	logFormat = strings.ToLower(logFormat)
	if logFormat == "json" {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	}

	if logFile != "" {
		file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
		if err != nil {
			feedback.Errorf("Unable to open file for logging: %s", logFile)
			os.Exit(int(feedback.ErrGeneric))
		}

		// Use a hook so we don't get color codes in the log file
		if logFormat == "json" {
			logrus.AddHook(lfshook.NewHook(file, &logrus.JSONFormatter{}))
		} else {
			logrus.AddHook(lfshook.NewHook(file, &logrus.TextFormatter{}))
		}
	}

	// Configure logging filter
	if lvl, found := toLogLevel(logLevel); !found {
		feedback.Errorf("Invalid option for --log-level: %s", logLevel)
		os.Exit(int(feedback.ErrBadArgument))
	} else {
		logrus.SetLevel(lvl)
	}
	globals.LogLevel = logLevel
	globals.Verbose = verbose

	//
	// Prepare the Feedback system
	//

	// normalize the format strings
	outputFormat = strings.ToLower(outputFormat)
	// check the right output format was passed
	format, found := feedback.ParseOutputFormat(outputFormat)
	if !found {
		feedback.Errorf("Invalid output format: %s", outputFormat)
		os.Exit(int(feedback.ErrBadArgument))
	}

	// use the output format to configure the Feedback
	feedback.SetFormat(format)

	if err := configuration.Init(configFile); err != nil {
		feedback.FatalError(err, feedback.ErrNoConfigFile)
	}

	logrus.Info(v.VersionInfo)

	if outputFormat != "text" {
		cmd.SetHelpFunc(func(cmd *cobra.Command, args []string) {
			logrus.Warn("Calling help on JSON format")
			feedback.Error("Invalid Call : should show Help, but it is available only in TEXT mode.")
			os.Exit(int(feedback.ErrBadArgument))
		})
	}
}
