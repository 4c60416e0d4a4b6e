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

import "github.com/urfave/cli/v2"

var (
	// ArtifactsFlag points at the solc standard-JSON build output to cover.
	ArtifactsFlag = cli.PathFlag{
		Name:    "artifacts",
		Aliases: []string{"a"},
		Usage:   "path to the solc standard-JSON build output",
	}
	// RpcUrlFlag selects the node whose transactions are scanned.
	RpcUrlFlag = cli.StringFlag{
		Name:    "rpc-url",
		Aliases: []string{"r"},
		Usage:   "JSON-RPC endpoint of the node to poll (needs debug_traceTransaction)",
		Value:   "http://localhost:8545",
	}
	// WorkersFlag bounds the parallelism of the registry build.
	WorkersFlag = cli.IntFlag{
		Name:    "workers",
		Aliases: []string{"w"},
		Usage:   "number of worker threads that build coverage ledgers",
		Value:   4,
	}
	// OutputFlag mirrors the console summary into a file.
	OutputFlag = cli.StringFlag{
		Name:    "output",
		Aliases: []string{"o"},
		Usage:   "write the coverage summary to the given path as well",
	}
	// JsonFlag exports the rollup for editor coverage overlays.
	JsonFlag = cli.StringFlag{
		Name:  "json",
		Usage: "write the per-file coverage records to the given path as JSON",
	}
	// ChartFlag renders the rollup as an HTML chart.
	ChartFlag = cli.StringFlag{
		Name:  "chart",
		Usage: "write a per-file coverage bar chart to the given path as HTML",
	}
	// DbFlag persists coverage runs into a sqlite3 database.
	DbFlag = cli.PathFlag{
		Name:  "coverage-db",
		Usage: "sqlite3 file storing coverage runs",
	}
	// IncludeZeroHitFlag keeps untouched declarations in the outputs.
	IncludeZeroHitFlag = cli.BoolFlag{
		Name:  "include-zero-hit",
		Usage: "report declarations that were never executed",
	}
	// PollIntervalFlag is the pause between poll rounds.
	PollIntervalFlag = cli.Uint64Flag{
		Name:  "poll-interval",
		Usage: "seconds to wait between poll rounds",
		Value: 5,
	}
	// PollsFlag limits the number of poll rounds.
	PollsFlag = cli.IntFlag{
		Name:  "polls",
		Usage: "number of poll rounds; 0 polls until interrupted",
		Value: 1,
	}
)
