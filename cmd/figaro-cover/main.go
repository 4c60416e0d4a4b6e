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

package main

import (
	"fmt"
	"os"

	"github.com/0xsoniclabs/figaro/logger"
	"github.com/0xsoniclabs/figaro/utils"
	"github.com/urfave/cli/v2"
)

var runCoverApp = &cli.App{
	Action:    RunCover,
	Name:      "Contract coverage collector",
	HelpName:  "figaro-cover",
	Copyright: "(c) 2026 Sonic Labs",
	ArgsUsage: "<startBlock>",
	Flags: []cli.Flag{
		&utils.ArtifactsFlag,
		&utils.RpcUrlFlag,
		&utils.WorkersFlag,
		&utils.PollsFlag,
		&utils.PollIntervalFlag,
		&utils.OutputFlag,
		&utils.JsonFlag,
		&utils.ChartFlag,
		&utils.DbFlag,
		&utils.IncludeZeroHitFlag,
		&logger.LogLevelFlag,
	},
}

func main() {
	if err := runCoverApp.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
