// Copyright 2026 Sonic Labs
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

package utils

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/0xsoniclabs/figaro/logger"
	"github.com/urfave/cli/v2"
)

// ArgumentMode determines the arguments a figaro command requires.
type ArgumentMode int

// An enums of argument modes used by figaro commands
const (
	NoArgs ArgumentMode = iota // requires no arguments
	CheckpointArg              // accepts an optional block number to resume polling from
	ContractArgs               // accepts zero or more fully qualified contract names
)

// Config represents execution configuration for figaro commands.
type Config struct {
	AppName     string
	CommandName string

	Artifacts      string // path to the solc build-info directory
	ChartFile      string // file receiving the coverage bar chart
	Contracts      []string
	DbFile         string // path to the sqlite3 coverage database
	First          uint64 // block the trace poller starts at
	IncludeZeroHit bool
	JsonFile       string // file receiving the JSON coverage report
	LogLevel       string
	Output         string // file receiving the coverage summary table
	PollInterval   uint64 // seconds between poll rounds
	Polls          int    // number of poll rounds; 0 means poll until interrupted
	RpcUrl         string
	Workers        int
}

// NewConfig creates and initializes Config with commandline arguments.
func NewConfig(ctx *cli.Context, mode ArgumentMode) (*Config, error) {
	log := logger.NewLogger(ctx.String(logger.LogLevelFlag.Name), "Config")

	cfg := createConfigFromFlags(ctx)
	err := updateConfigFromArgs(ctx, cfg, mode)
	if err != nil {
		return nil, fmt.Errorf("cannot parse command line arguments; %v", err)
	}

	log.Debugf("artifacts: %v, rpc: %v, workers: %v", cfg.Artifacts, cfg.RpcUrl, cfg.Workers)
	return cfg, nil
}

// createConfigFromFlags returns Config instance with user specified values or the default ones
func createConfigFromFlags(ctx *cli.Context) *Config {
	cfg := &Config{
		AppName:     ctx.App.HelpName,
		CommandName: ctx.Command.Name,

		Artifacts:      getFlagValue(ctx, ArtifactsFlag).(string),
		ChartFile:      getFlagValue(ctx, ChartFlag).(string),
		DbFile:         getFlagValue(ctx, DbFlag).(string),
		IncludeZeroHit: getFlagValue(ctx, IncludeZeroHitFlag).(bool),
		JsonFile:       getFlagValue(ctx, JsonFlag).(string),
		LogLevel:       getFlagValue(ctx, logger.LogLevelFlag).(string),
		Output:         getFlagValue(ctx, OutputFlag).(string),
		PollInterval:   getFlagValue(ctx, PollIntervalFlag).(uint64),
		Polls:          getFlagValue(ctx, PollsFlag).(int),
		RpcUrl:         getFlagValue(ctx, RpcUrlFlag).(string),
		Workers:        getFlagValue(ctx, WorkersFlag).(int),
	}

	return cfg
}

// getFlagValue returns value specified by user if flag is present in cli context, otherwise return default flag value
func getFlagValue(ctx *cli.Context, flag interface{}) interface{} {
	cmdFlags := ctx.Command.Flags
	for _, cmdFlag := range cmdFlags {
		switch f := flag.(type) {
		case cli.IntFlag:
			if cmdFlag.Names()[0] == f.Name {
				return ctx.Int(f.Name)
			}

		case cli.Uint64Flag:
			if cmdFlag.Names()[0] == f.Name {
				return ctx.Uint64(f.Name)
			}

		case cli.StringFlag:
			if cmdFlag.Names()[0] == f.Name {
				return ctx.String(f.Name)
			}

		case cli.PathFlag:
			if cmdFlag.Names()[0] == f.Name {
				return ctx.Path(f.Name)
			}

		case cli.BoolFlag:
			if cmdFlag.Names()[0] == f.Name {
				return ctx.Bool(f.Name)
			}
		}
	}

	// If flag not found, return the default value of the flag
	switch f := flag.(type) {
	case cli.IntFlag:
		return f.Value
	case cli.Uint64Flag:
		return f.Value
	case cli.StringFlag:
		return f.Value
	case cli.PathFlag:
		return f.Value
	case cli.BoolFlag:
		return f.Value
	}

	return nil
}

// updateConfigFromArgs fills the positional members of cfg according to mode.
func updateConfigFromArgs(ctx *cli.Context, cfg *Config, mode ArgumentMode) error {
	switch mode {
	case NoArgs:
		if ctx.Args().Len() > 0 {
			return fmt.Errorf("command %v expects no arguments", cfg.CommandName)
		}
	case CheckpointArg:
		if ctx.Args().Len() > 1 {
			return fmt.Errorf("command %v expects at most one block number", cfg.CommandName)
		}
		if ctx.Args().Len() == 1 {
			first, err := ParseBlockNumber(ctx.Args().Get(0))
			if err != nil {
				return err
			}
			cfg.First = first
		}
	case ContractArgs:
		cfg.Contracts = ctx.Args().Slice()
	default:
		return fmt.Errorf("unknown argument mode: %v", mode)
	}
	return nil
}

// ParseBlockNumber interprets arg as a decimal block number.
// The keywords "genesis" and "first" name block zero.
func ParseBlockNumber(arg string) (uint64, error) {
	switch strings.ToLower(arg) {
	case "genesis", "first":
		return 0, nil
	}

	n, err := strconv.ParseUint(arg, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("cannot parse block number %v; %v", arg, err)
	}
	return n, nil
}
