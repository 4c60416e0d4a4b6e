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

package cover

import (
	"fmt"
	"sort"
	"sync"

	"github.com/0xsoniclabs/figaro/contract"
)

// Kind tells the two pc spaces of a contract apart. Deployed and creation
// bytecode each get their own ledger; their pcs never mix.
type Kind byte

const (
	KindDeployed Kind = iota
	KindCreation
)

func (k Kind) String() string {
	if k == KindCreation {
		return "creation"
	}
	return "deployed"
}

// Ledger owns the hit counters of exactly one contract and one bytecode
// kind. The record table and declaration index are immutable after build;
// the counter map is guarded by the ledger's own mutex, so independent
// contracts never contend.
type Ledger struct {
	fqn        string
	sourceFile string
	kind       Kind

	records []PcRecord
	byPC    map[uint64]*PcRecord
	decls   map[string]*contract.Declaration
	declPcs map[string][]int
	entry   map[string]uint64

	mu   sync.Mutex
	hits map[uint64]uint64
}

// newLedger runs the one-time build for one artifact and bytecode kind.
func newLedger(a *contract.Artifact, kind Kind, index contract.DeclarationIndex) (*Ledger, error) {
	code := a.Deployed
	if kind == KindCreation {
		code = a.Deployment
	}

	records, err := classify(code, a.SourceIndex, index)
	if err != nil {
		return nil, fmt.Errorf("cover: cannot build %v ledger of %v: %w", kind, a.FQN(), err)
	}

	l := &Ledger{
		fqn:        a.FQN(),
		sourceFile: a.SourceFile,
		kind:       kind,
		records:    records,
		byPC:       make(map[uint64]*PcRecord, len(records)),
		decls:      make(map[string]*contract.Declaration),
		declPcs:    make(map[string][]int),
		entry:      make(map[string]uint64),
		hits:       make(map[uint64]uint64),
	}

	for i := range l.records {
		record := &l.records[i]
		l.byPC[record.PC] = record
		if record.Decl != nil {
			ident := record.Decl.Ident()
			l.decls[ident] = record.Decl
			l.declPcs[ident] = append(l.declPcs[ident], i)
		}
	}

	for ident, indices := range l.declPcs {
		best := indices[0]
		for _, i := range indices[1:] {
			if l.records[i].Start < l.records[best].Start {
				best = i
			}
		}
		l.entry[ident] = l.records[best].PC
	}

	return l, nil
}

// FQN returns the fully-qualified name of the covered contract.
func (l *Ledger) FQN() string {
	return l.fqn
}

// Kind returns the bytecode kind the ledger's pcs belong to.
func (l *Ledger) Kind() Kind {
	return l.kind
}

// Records returns a copy of the immutable pc-record table.
func (l *Ledger) Records() []PcRecord {
	out := make([]PcRecord, len(l.records))
	copy(out, l.records)
	return out
}

// RecordHit counts one observed execution of the instruction at pc. A pc
// outside every category table (foreign-file code, plain arithmetic between
// mapped regions) is silently ignored.
func (l *Ledger) RecordHit(pc uint64) {
	record, ok := l.byPC[pc]
	if !ok || record.Categories == 0 {
		return
	}
	l.mu.Lock()
	l.hits[pc]++
	l.mu.Unlock()
}

// Hits returns the accumulated hit count of one pc.
func (l *Ledger) Hits(pc uint64) uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.hits[pc]
}

// CategoryHits snapshots the counter table of one category.
func (l *Ledger) CategoryHits(cat Category) map[uint64]uint64 {
	counts := l.snapshotHits()
	out := make(map[uint64]uint64)
	for i := range l.records {
		record := &l.records[i]
		if record.Categories.Has(cat) {
			out[record.PC] = counts[record.PC]
		}
	}
	return out
}

// Rollup derives the per-declaration coverage view from the current
// counters. CoverageHits is the count of the declaration's entry pc; branch
// and modifier records aggregate by source offset; CallCount sums the hits
// of the declaration's call-family pcs.
func (l *Ledger) Rollup() []*DeclarationCoverage {
	counts := l.snapshotHits()

	out := make([]*DeclarationCoverage, 0, len(l.declPcs))
	for ident, indices := range l.declPcs {
		cov := &DeclarationCoverage{
			Decl:            l.decls[ident],
			CoverageHits:    counts[l.entry[ident]],
			BranchRecords:   make(map[int32]*PositionHits),
			ModifierRecords: make(map[int32]*PositionHits),
		}
		for _, i := range indices {
			record := &l.records[i]
			hits := counts[record.PC]
			if record.Categories.Has(CatBranch) {
				addPosition(cov.BranchRecords, record, hits)
			}
			if record.Categories.Has(CatModifier) {
				addPosition(cov.ModifierRecords, record, hits)
			}
			if callOps[record.Op] {
				cov.CallCount += hits
			}
		}
		out = append(out, cov)
	}

	sortCoverage(out)
	return out
}

func addPosition(m map[int32]*PositionHits, record *PcRecord, hits uint64) {
	if have, ok := m[record.Start]; ok {
		have.Hits += hits
	} else {
		m[record.Start] = &PositionHits{Start: record.Start, End: record.End, Hits: hits}
	}
}

func sortCoverage(list []*DeclarationCoverage) {
	sort.Slice(list, func(i, j int) bool {
		if list[i].Decl.Start != list[j].Decl.Start {
			return list[i].Decl.Start < list[j].Decl.Start
		}
		return list[i].Decl.Ident() < list[j].Decl.Ident()
	})
}

func (l *Ledger) snapshotHits() map[uint64]uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make(map[uint64]uint64, len(l.hits))
	for pc, n := range l.hits {
		out[pc] = n
	}
	return out
}

func (l *Ledger) restoreHits(counts map[uint64]uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.hits = make(map[uint64]uint64, len(counts))
	for pc, n := range counts {
		l.hits[pc] = n
	}
}
