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
	"log"
	"os"

	"github.com/urfave/cli/v2"
)

var UpdateHeaderApp = cli.App{
	Name:      "Update Headers",
	HelpName:  "update-header",
	Usage:     "Commands to update license headers in the workspace.",
	Copyright: "(c) 2026 Sonic Labs",
	Commands: []*cli.Command{
		&updateYearCommand,
	},
}

// main implements license header maintenance functions
func main() {
	if err := UpdateHeaderApp.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
