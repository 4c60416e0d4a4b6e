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
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/0xsoniclabs/figaro/contract"
	"github.com/0xsoniclabs/figaro/covdb"
	"github.com/0xsoniclabs/figaro/cover"
	"github.com/0xsoniclabs/figaro/logger"
	"github.com/0xsoniclabs/figaro/poller"
	"github.com/0xsoniclabs/figaro/report"
	"github.com/0xsoniclabs/figaro/utils"
	"github.com/urfave/cli/v2"
)

// RunCover builds a coverage registry from compiled artifacts, polls an
// execution node for transaction traces and reports the collected coverage.
func RunCover(ctx *cli.Context) error {
	cfg, err := utils.NewConfig(ctx, utils.CheckpointArg)
	if err != nil {
		return err
	}

	artifacts, err := contract.LoadBuild(cfg.Artifacts)
	if err != nil {
		return err
	}

	registry, err := cover.BuildRegistry(artifacts, cfg.Workers)
	if err != nil {
		return err
	}

	client, err := poller.Dial(ctx.Context, cfg.RpcUrl)
	if err != nil {
		return fmt.Errorf("cannot connect to node %v; %v", cfg.RpcUrl, err)
	}
	defer client.Close()

	return run(ctx.Context, cfg, client, registry)
}

// run executes the actual poll-and-report cycle for RunCover above.
// It is factored out to facilitate testing without the need to create
// a cli.Context or to connect an actual execution node.
func run(ctx context.Context, cfg *utils.Config, client poller.NodeClient, registry *cover.Registry) error {
	log := logger.NewLogger(cfg.LogLevel, "Figaro Cover")

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	p := poller.New(client, registry, log)
	p.SetCheckpoint(poller.Checkpoint{LastScannedBlock: cfg.First})

	interval := time.Duration(cfg.PollInterval) * time.Second
	for round := 0; cfg.Polls == 0 || round < cfg.Polls; round++ {
		if round > 0 {
			select {
			case <-ctx.Done():
			case <-time.After(interval):
			}
		}
		if ctx.Err() != nil {
			log.Noticef("interrupted, reporting the coverage collected so far")
			break
		}
		if err := p.Poll(ctx); err != nil {
			if errors.Is(err, context.Canceled) {
				log.Noticef("interrupted, reporting the coverage collected so far")
				break
			}
			return err
		}
	}

	return writeReports(cfg, registry, p.Checkpoint(), log)
}

// writeReports fans the final rollup out to every configured destination.
func writeReports(cfg *utils.Config, registry *cover.Registry, checkpoint poller.Checkpoint, log logger.Logger) error {
	rollup := registry.RollupByFile(true)

	summary := func() string {
		return report.Summary(rollup, cfg.IncludeZeroHit)
	}
	printers := utils.NewPrinters().
		AddPrinterToConsole(false, summary).
		AddPrinterToFile(cfg.Output, summary)
	defer printers.Close()
	if err := printers.Print(); err != nil {
		return err
	}

	if cfg.JsonFile != "" {
		if err := report.WriteJSON(cfg.JsonFile, rollup); err != nil {
			return err
		}
		log.Infof("coverage records written to %v", cfg.JsonFile)
	}

	if cfg.ChartFile != "" {
		if err := report.WriteChart(cfg.ChartFile, rollup); err != nil {
			return err
		}
		log.Infof("coverage chart written to %v", cfg.ChartFile)
	}

	if cfg.DbFile == "" {
		return nil
	}

	db, err := covdb.NewCoverageDB(cfg.DbFile, covdb.RunInfo{
		Artifacts: cfg.Artifacts,
		Contracts: len(registry.FQNs()),
	})
	if err != nil {
		return err
	}
	err = db.AddRollup(rollup)
	if err == nil {
		err = db.SetCheckpoint(checkpoint.LastScannedBlock)
	}
	if err == nil {
		log.Infof("coverage run %v stored in %v", db.Run(), cfg.DbFile)
	}
	return errors.Join(err, db.Close())
}
