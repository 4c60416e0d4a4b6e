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

package contract

import (
	"sort"

	lru "github.com/hashicorp/golang-lru"
)

// resolverCacheSize bounds the per-index memo of resolved intervals. A
// contract rarely maps more than a few hundred distinct source intervals.
const resolverCacheSize = 4096

// DeclarationIndex resolves a source byte interval to the declaration whose
// range contains it.
type DeclarationIndex interface {
	// Resolve returns the innermost declaration containing [start,end), or
	// false when the interval belongs to no declaration (dispatch code).
	Resolve(start, end int32) (*Declaration, bool)
}

type declarationIndex struct {
	decls []Declaration
	memo  *lru.Cache
}

type interval struct {
	start, end int32
}

// NewDeclarationIndex builds an index over the given declarations. The
// declarations are copied and start-sorted; the index is safe for concurrent
// readers once built.
func NewDeclarationIndex(decls []Declaration) DeclarationIndex {
	sorted := make([]Declaration, len(decls))
	copy(sorted, decls)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Start < sorted[j].Start
	})
	memo, _ := lru.New(resolverCacheSize)
	return &declarationIndex{decls: sorted, memo: memo}
}

func (x *declarationIndex) Resolve(start, end int32) (*Declaration, bool) {
	if cached, ok := x.memo.Get(interval{start, end}); ok {
		decl := cached.(*Declaration)
		return decl, decl != nil
	}

	decl := x.lookup(start, end)
	x.memo.Add(interval{start, end}, decl)
	return decl, decl != nil
}

// lookup scans the containing declarations and picks the one maximizing the
// overlap ratio overlap/length, which favors the innermost range when a
// modifier body is nested inside a function's range. Ties keep the first
// candidate in start order.
func (x *declarationIndex) lookup(start, end int32) *Declaration {
	var (
		best      *Declaration
		bestRatio float64
	)
	for i := range x.decls {
		d := &x.decls[i]
		if d.Start > start {
			break // start-sorted, nothing further can contain the interval
		}
		if end > d.End || d.Length() <= 0 {
			continue
		}
		ratio := float64(end-start) / float64(d.Length())
		if best == nil || ratio > bestRatio {
			best, bestRatio = d, ratio
		}
	}
	return best
}
