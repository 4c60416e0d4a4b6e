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
	"github.com/cockroachdb/errors"
	"golang.org/x/exp/maps"
	"golang.org/x/sync/errgroup"
)

// ErrUnknownContract means a trace was dispatched for a fqn no artifact was
// registered under. Silently dropping it would corrupt every percentage
// derived from the counters, so dispatch fails loudly instead.
var ErrUnknownContract = errors.New("unknown contract")

// Registry owns one deployed-bytecode and one creation-bytecode ledger per
// registered contract plus the identity index resolving on-chain bytecode to
// fqns. The ledger maps are immutable after build; all run-time mutation goes
// through the per-ledger counters.
type Registry struct {
	deployed map[string]*Ledger
	creation map[string]*Ledger
	identity *IdentityIndex
}

// BuildRegistry builds the ledger pair of every artifact. Per-artifact builds
// share no state and run in parallel, bounded by workers when positive; the
// first failing artifact aborts the whole build, so a partially usable
// registry never escapes.
func BuildRegistry(artifacts []*contract.Artifact, workers int) (*Registry, error) {
	identity, err := newIdentityIndex(artifacts)
	if err != nil {
		return nil, err
	}

	r := &Registry{
		deployed: make(map[string]*Ledger, len(artifacts)),
		creation: make(map[string]*Ledger, len(artifacts)),
		identity: identity,
	}

	var mu sync.Mutex
	var g errgroup.Group
	if workers > 0 {
		g.SetLimit(workers)
	}
	for _, a := range artifacts {
		g.Go(func() error {
			index := contract.NewDeclarationIndex(a.Declarations)
			deployed, err := newLedger(a, KindDeployed, index)
			if err != nil {
				return err
			}
			creation, err := newLedger(a, KindCreation, index)
			if err != nil {
				return err
			}

			mu.Lock()
			defer mu.Unlock()
			if _, dup := r.deployed[a.FQN()]; dup {
				return fmt.Errorf("cover: artifact %v registered twice", a.FQN())
			}
			r.deployed[a.FQN()] = deployed
			r.creation[a.FQN()] = creation
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return r, nil
}

// Identity returns the registry's identity index.
func (r *Registry) Identity() *IdentityIndex {
	return r.identity
}

// FQNs lists the registered contracts in stable order.
func (r *Registry) FQNs() []string {
	fqns := maps.Keys(r.deployed)
	sort.Strings(fqns)
	return fqns
}

// DeployedLedger returns the runtime-bytecode ledger of a contract.
func (r *Registry) DeployedLedger(fqn string) (*Ledger, bool) {
	l, ok := r.deployed[fqn]
	return l, ok
}

// CreationLedger returns the creation-bytecode ledger of a contract.
func (r *Registry) CreationLedger(fqn string) (*Ledger, bool) {
	l, ok := r.creation[fqn]
	return l, ok
}

func (r *Registry) ledger(fqn string, kind Kind) (*Ledger, bool) {
	if kind == KindCreation {
		return r.CreationLedger(fqn)
	}
	return r.DeployedLedger(fqn)
}

// DispatchTrace feeds the pcs of one executed trace segment into the ledger
// of the named contract and bytecode kind.
func (r *Registry) DispatchTrace(fqn string, kind Kind, pcs []uint64) error {
	ledger, ok := r.ledger(fqn, kind)
	if !ok {
		return fmt.Errorf("cover: %v (%v): %w", fqn, kind, ErrUnknownContract)
	}
	for _, pc := range pcs {
		ledger.RecordHit(pc)
	}
	return nil
}

// RollupByFile merges the rollups of every ledger whose contracts share a
// source file. A declaration compiled into several sibling contracts (an
// inherited, not overridden function) is listed once with its hits summed
// across them; creation-ledger rollups contribute constructor coverage.
// With includeZeroHit false, declarations nothing ever touched are dropped.
func (r *Registry) RollupByFile(includeZeroHit bool) map[string][]*DeclarationCoverage {
	merged := make(map[string]map[string]*DeclarationCoverage)

	mergeLedger := func(l *Ledger) {
		byIdent := merged[l.sourceFile]
		if byIdent == nil {
			byIdent = make(map[string]*DeclarationCoverage)
			merged[l.sourceFile] = byIdent
		}
		for _, cov := range l.Rollup() {
			if have, ok := byIdent[cov.Decl.Ident()]; ok {
				have.merge(cov)
			} else {
				byIdent[cov.Decl.Ident()] = cov
			}
		}
	}
	for _, fqn := range r.FQNs() {
		mergeLedger(r.deployed[fqn])
		mergeLedger(r.creation[fqn])
	}

	out := make(map[string][]*DeclarationCoverage, len(merged))
	for file, byIdent := range merged {
		list := make([]*DeclarationCoverage, 0, len(byIdent))
		for _, cov := range byIdent {
			if !includeZeroHit && !cov.Covered() {
				continue
			}
			list = append(list, cov)
		}
		if len(list) == 0 {
			continue
		}
		sortCoverage(list)
		out[file] = list
	}
	return out
}

// Snapshot is a point-in-time copy of every counter of a registry.
type Snapshot struct {
	deployed map[string]map[uint64]uint64
	creation map[string]map[uint64]uint64
}

// SnapshotCounters copies the current counters of every ledger. Callers that
// need exactly-once accounting across poll retries snapshot before the poll
// and restore on partial failure.
func (r *Registry) SnapshotCounters() *Snapshot {
	s := &Snapshot{
		deployed: make(map[string]map[uint64]uint64, len(r.deployed)),
		creation: make(map[string]map[uint64]uint64, len(r.creation)),
	}
	for fqn, l := range r.deployed {
		s.deployed[fqn] = l.snapshotHits()
	}
	for fqn, l := range r.creation {
		s.creation[fqn] = l.snapshotHits()
	}
	return s
}

// RestoreCounters resets every ledger's counters to a snapshot taken from
// the same registry.
func (r *Registry) RestoreCounters(s *Snapshot) {
	for fqn, l := range r.deployed {
		l.restoreHits(s.deployed[fqn])
	}
	for fqn, l := range r.creation {
		l.restoreHits(s.creation[fqn])
	}
}
