// Copyright 2025 Sonic Labs
// This file is part of Figaro Contract Coverage Infrastructure for Sonic
//
// Figaro is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// Figaro is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with Figaro. If not, see <http://www.gnu.org/licenses/>.

package logger

import (
	"os"
	"strings"
	"time"

	"github.com/op/go-logging"
	"github.com/urfave/cli/v2"
)

//go:generate mockgen -source logger.go -destination logger_mock.go -package logger

var LogLevelFlag = cli.StringFlag{
	Name:    "log",
	Aliases: []string{"l"},
	Usage:   "Level of the logging of the app action (\"critical\", \"error\", \"warning\", \"notice\", \"info\", \"debug\"; default: INFO)",
	Value:   "info",
}

const defaultLogFormat = "%{color}%{time:15:04:05.000} %{module} %{level:.4s}%{color:reset}: %{message}"

// Logger is responsible for logging any message of the app to the user.
type Logger interface {
	// Critical logs a message using CRITICAL as log level.
	Critical(args ...interface{})

	// Criticalf formats a message using CRITICAL as log level.
	Criticalf(format string, args ...interface{})

	// Error logs a message using ERROR as log level.
	Error(args ...interface{})

	// Errorf formats a message using ERROR as log level.
	Errorf(format string, args ...interface{})

	// Warning logs a message using WARNING as log level.
	Warning(args ...interface{})

	// Warningf formats a message using WARNING as log level.
	Warningf(format string, args ...interface{})

	// Notice logs a message using NOTICE as log level.
	Notice(args ...interface{})

	// Noticef formats a message using NOTICE as log level.
	Noticef(format string, args ...interface{})

	// Info logs a message using INFO as log level.
	Info(args ...interface{})

	// Infof formats a message using INFO as log level.
	Infof(format string, args ...interface{})

	// Debug logs a message using DEBUG as log level.
	Debug(args ...interface{})

	// Debugf formats a message using DEBUG as log level.
	Debugf(format string, args ...interface{})

	// Fatal is equivalent to l.Critical followed by a call to os.Exit(1).
	Fatal(args ...interface{})

	// Fatalf is equivalent to l.Criticalf followed by a call to os.Exit(1).
	Fatalf(format string, args ...interface{})

	// IsEnabledFor returns true if the logger is enabled for the given level.
	IsEnabledFor(level logging.Level) bool
}

// NewLogger provides a new instance of the Logger based on given module name and log level.
// Invalid levels fall back to INFO.
func NewLogger(level string, module string) Logger {
	lvl, err := logging.LogLevel(strings.ToUpper(level))
	if err != nil {
		lvl = logging.INFO
	}

	backend := logging.NewLogBackend(os.Stdout, "", 0)

	fm := logging.MustStringFormatter(defaultLogFormat)
	fmtBackend := logging.NewBackendFormatter(backend, fm)

	lvlBackend := logging.AddModuleLevel(fmtBackend)
	lvlBackend.SetLevel(lvl, "")

	logging.SetBackend(lvlBackend)
	return logging.MustGetLogger(module)
}

// ParseTime decomposes an elapsed duration into whole hours, minutes and seconds.
func ParseTime(elapsed time.Duration) (uint32, uint32, uint32) {
	hours := uint32(elapsed.Seconds()) / 3600
	minutes := (uint32(elapsed.Seconds()) / 60) % 60
	seconds := uint32(elapsed.Seconds()) % 60

	return hours, minutes, seconds
}
