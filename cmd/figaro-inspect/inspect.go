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
	"sort"
	"strings"

	"github.com/0xsoniclabs/figaro/contract"
	"github.com/0xsoniclabs/figaro/cover"
	"github.com/0xsoniclabs/figaro/utils"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/status-im/keycard-go/hexutils"
	"github.com/urfave/cli/v2"
)

// RunInspect prints the coverage structure of compiled artifacts without
// touching a node: which pcs exist, how they map back to source declarations
// and which coverage categories each one counts towards.
func RunInspect(ctx *cli.Context) error {
	cfg, err := utils.NewConfig(ctx, utils.ContractArgs)
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

	return inspect(cfg, artifacts, registry)
}

// inspect renders the ledgers of the selected contracts, or of the whole
// build when no contracts are named. Naming contracts switches the detailed
// per-pc tables on. It is factored out to facilitate testing without the
// need to create a cli.Context.
func inspect(cfg *utils.Config, artifacts []*contract.Artifact, registry *cover.Registry) error {
	fqns := cfg.Contracts
	showPcs := len(fqns) > 0
	if !showPcs {
		fqns = registry.FQNs()
	}

	byFQN := make(map[string]*contract.Artifact, len(artifacts))
	for _, a := range artifacts {
		byFQN[a.FQN()] = a
	}

	var sb strings.Builder
	for _, fqn := range fqns {
		artifact, ok := byFQN[fqn]
		if !ok {
			return fmt.Errorf("%v: %w", fqn, cover.ErrUnknownContract)
		}
		describeArtifact(&sb, artifact)

		deployed, _ := registry.DeployedLedger(fqn)
		creation, _ := registry.CreationLedger(fqn)
		for _, l := range []*cover.Ledger{deployed, creation} {
			describeLedger(&sb, l, showPcs)
		}
		sb.WriteByte('\n')
	}

	printers := utils.NewPrinters().
		AddPrinterToConsole(false, sb.String).
		AddPrinterToFile(cfg.Output, sb.String)
	defer printers.Close()
	return printers.Print()
}

func describeArtifact(sb *strings.Builder, a *contract.Artifact) {
	fmt.Fprintf(sb, "=== %s ===\n", a.FQN())
	if tail, ok := a.Metadata(); ok {
		fmt.Fprintf(sb, "metadata tail: %s\n", hexutils.BytesToHex(tail[:]))
	}
	fmt.Fprintf(sb, "fingerprint: %d segments\n", len(a.Fingerprint().Segments))
}

// declStat aggregates one declaration's records within a single ledger.
type declStat struct {
	decl              *contract.Declaration
	pcs, branch, mods int
}

// describeLedger prints the per-declaration structure of one ledger and,
// on request, the raw pc table behind it.
func describeLedger(sb *strings.Builder, l *cover.Ledger, showPcs bool) {
	stats := make(map[string]*declStat)

	records := l.Records()
	inFile, mapped := 0, 0
	for i := range records {
		record := &records[i]
		if record.Categories.Has(cover.CatInstruction) {
			inFile++
		}
		if record.Decl == nil {
			continue
		}
		mapped++
		s, ok := stats[record.Decl.Ident()]
		if !ok {
			s = &declStat{decl: record.Decl}
			stats[record.Decl.Ident()] = s
		}
		s.pcs++
		if record.Categories.Has(cover.CatBranch) {
			s.branch++
		}
		if record.Categories.Has(cover.CatModifier) {
			s.mods++
		}
	}

	fmt.Fprintf(sb, "%v bytecode: %d instructions, %d in this file, %d mapped to declarations\n",
		l.Kind(), len(records), inFile, mapped)
	if len(stats) > 0 {
		sb.WriteString(declarationTable(stats))
		sb.WriteByte('\n')
	}
	if showPcs {
		sb.WriteString(pcTable(records))
		sb.WriteByte('\n')
	}
}

func declarationTable(stats map[string]*declStat) string {
	ordered := make([]*declStat, 0, len(stats))
	for _, s := range stats {
		ordered = append(ordered, s)
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].decl.Start < ordered[j].decl.Start })

	t := table.NewWriter()
	t.AppendHeader(table.Row{"Declaration", "Kind", "Source", "Pcs", "Branch", "Modifier"})
	for _, s := range ordered {
		t.AppendRow(table.Row{
			declName(s.decl),
			s.decl.Kind.String(),
			fmt.Sprintf("%d:%d", s.decl.Start, s.decl.End),
			s.pcs,
			s.branch,
			s.mods,
		})
	}
	return t.Render()
}

func pcTable(records []cover.PcRecord) string {
	t := table.NewWriter()
	t.AppendHeader(table.Row{"PC", "Op", "Source", "Jump", "Cat", "Declaration"})
	for i := range records {
		record := &records[i]
		src := "-"
		if record.Start >= 0 {
			src = fmt.Sprintf("%d:%d", record.Start, record.End)
		}
		decl := "-"
		if record.Decl != nil {
			decl = declName(record.Decl)
		}
		t.AppendRow(table.Row{
			record.PC,
			record.Name,
			src,
			string(record.Jump),
			record.Categories.String(),
			decl,
		})
	}
	return t.Render()
}

// declName renders "Contract.name"; free-standing functions have no contract
// and render by name alone.
func declName(decl *contract.Declaration) string {
	if decl.Contract == "" {
		return decl.Name
	}
	return decl.Contract + "." + decl.Name
}
