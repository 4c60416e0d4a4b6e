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

// Package cover builds per-contract coverage ledgers out of compiled
// artifacts and accumulates execution-trace hits into them. The registry is
// the run-time entry point: traces are dispatched to ledgers by contract
// identity, counters accumulate per pc, and rollups aggregate them back to
// source declarations.
package cover

import (
	"github.com/0xsoniclabs/figaro/contract"
	"github.com/0xsoniclabs/figaro/srcmap"
	"github.com/ethereum/go-ethereum/core/vm"
)

// Category is the bitset of coverage tables a pc belongs to. Membership is
// fixed at build time; only counters mutate afterwards.
type Category uint8

const (
	CatInstruction Category = 1 << iota
	CatBranch
	CatModifier
)

// Has reports whether every category of other is set.
func (c Category) Has(other Category) bool {
	return c&other == other
}

func (c Category) String() string {
	s := ""
	if c.Has(CatInstruction) {
		s += "i"
	}
	if c.Has(CatBranch) {
		s += "b"
	}
	if c.Has(CatModifier) {
		s += "m"
	}
	if s == "" {
		return "-"
	}
	return s
}

// PcRecord ties one instruction to its source attribution, its resolved
// declaration and its category membership. Built once per contract and
// bytecode kind, never mutated.
type PcRecord struct {
	PC         uint64
	Op         vm.OpCode
	Name       string
	Start, End int32
	Jump       srcmap.JumpType
	Decl       *contract.Declaration
	Categories Category
}

// branchOps are the decision points of contract control flow: conditional
// jumps, jump targets, external calls and reverts.
var branchOps = map[vm.OpCode]bool{
	vm.JUMPI:        true,
	vm.JUMPDEST:     true,
	vm.CALL:         true,
	vm.CALLCODE:     true,
	vm.DELEGATECALL: true,
	vm.STATICCALL:   true,
	vm.REVERT:       true,
}

// callOps feed the per-declaration call counter.
var callOps = map[vm.OpCode]bool{
	vm.CALL:         true,
	vm.CALLCODE:     true,
	vm.DELEGATECALL: true,
	vm.STATICCALL:   true,
}

// PositionHits is a hit counter pinned to a source byte range.
type PositionHits struct {
	Start, End int32
	Hits       uint64
}

// DeclarationCoverage is the per-declaration rollup view. Branch and modifier
// records are keyed by source byte offset, not pc: sibling compilations of the
// same declaration place the same source offsets at different pcs, and the
// offset keys are what lets their records merge.
type DeclarationCoverage struct {
	Decl            *contract.Declaration
	CoverageHits    uint64
	BranchRecords   map[int32]*PositionHits
	ModifierRecords map[int32]*PositionHits
	CallCount       uint64
}

// Covered reports whether anything under the declaration was ever hit.
func (d *DeclarationCoverage) Covered() bool {
	if d.CoverageHits > 0 || d.CallCount > 0 {
		return true
	}
	for _, r := range d.BranchRecords {
		if r.Hits > 0 {
			return true
		}
	}
	for _, r := range d.ModifierRecords {
		if r.Hits > 0 {
			return true
		}
	}
	return false
}

// merge folds other into d, summing counters position by position. Both
// sides must describe the same declaration.
func (d *DeclarationCoverage) merge(other *DeclarationCoverage) {
	d.CoverageHits += other.CoverageHits
	d.CallCount += other.CallCount
	mergePositions(d.BranchRecords, other.BranchRecords)
	mergePositions(d.ModifierRecords, other.ModifierRecords)
}

func mergePositions(into, from map[int32]*PositionHits) {
	for offset, r := range from {
		if have, ok := into[offset]; ok {
			have.Hits += r.Hits
		} else {
			into[offset] = &PositionHits{Start: r.Start, End: r.End, Hits: r.Hits}
		}
	}
}
