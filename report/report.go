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

// Package report renders registry rollups for people and tools: a console
// summary table, a JSON export consumable by editor coverage overlays, and
// an HTML chart of per-file coverage.
package report

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"

	"github.com/0xsoniclabs/figaro/cover"
	"golang.org/x/exp/maps"
)

// PositionJSON is one branch or modifier counter pinned to a source range.
type PositionJSON struct {
	Start int32  `json:"start"`
	End   int32  `json:"end"`
	Hits  uint64 `json:"hits"`
}

// DeclarationJSON is the export form of one declaration's rollup.
type DeclarationJSON struct {
	Name            string         `json:"name"`
	Contract        string         `json:"contract"`
	Kind            string         `json:"kind"`
	Start           int32          `json:"start"`
	End             int32          `json:"end"`
	CoverageHits    uint64         `json:"coverageHits"`
	BranchRecords   []PositionJSON `json:"branchRecords"`
	ModifierRecords []PositionJSON `json:"modifierRecords"`
	CallCount       uint64         `json:"callCount"`
}

// sortedFiles returns a rollup's file names in lexical order.
func sortedFiles(rollup map[string][]*cover.DeclarationCoverage) []string {
	files := maps.Keys(rollup)
	sort.Strings(files)
	return files
}

// RollupJSON converts a registry rollup into its serializable form. Position
// records become offset-sorted lists so repeated exports diff cleanly.
func RollupJSON(rollup map[string][]*cover.DeclarationCoverage) map[string][]DeclarationJSON {
	out := make(map[string][]DeclarationJSON, len(rollup))
	for file, list := range rollup {
		decls := make([]DeclarationJSON, 0, len(list))
		for _, cov := range list {
			decls = append(decls, newDeclarationJSON(cov))
		}
		out[file] = decls
	}
	return out
}

func newDeclarationJSON(cov *cover.DeclarationCoverage) DeclarationJSON {
	return DeclarationJSON{
		Name:            cov.Decl.Name,
		Contract:        cov.Decl.Contract,
		Kind:            cov.Decl.Kind.String(),
		Start:           cov.Decl.Start,
		End:             cov.Decl.End,
		CoverageHits:    cov.CoverageHits,
		BranchRecords:   positionList(cov.BranchRecords),
		ModifierRecords: positionList(cov.ModifierRecords),
		CallCount:       cov.CallCount,
	}
}

func positionList(records map[int32]*cover.PositionHits) []PositionJSON {
	offsets := maps.Keys(records)
	sort.Slice(offsets, func(i, j int) bool { return offsets[i] < offsets[j] })
	out := make([]PositionJSON, 0, len(records))
	for _, offset := range offsets {
		r := records[offset]
		out = append(out, PositionJSON{Start: r.Start, End: r.End, Hits: r.Hits})
	}
	return out
}

// WriteJSON writes a rollup in JSON format.
func WriteJSON(filename string, rollup map[string][]*cover.DeclarationCoverage) (err error) {
	f, fErr := os.Create(filename)
	if fErr != nil {
		return fmt.Errorf("cannot open for writing JSON file; %v", fErr)
	}
	defer func(f *os.File) {
		err = errors.Join(err, f.Close())
	}(f)
	jOut, err := json.MarshalIndent(RollupJSON(rollup), "", "    ")
	if err != nil {
		return fmt.Errorf("failed to convert JSON; %v", err)
	}
	_, err = fmt.Fprintln(f, string(jOut))
	if err != nil {
		return fmt.Errorf("failed to write file; %v", err)
	}
	return nil
}
