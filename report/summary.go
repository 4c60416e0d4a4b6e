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

package report

import (
	"fmt"

	"github.com/0xsoniclabs/figaro/contract"
	"github.com/0xsoniclabs/figaro/cover"
	"github.com/jedib0t/go-pretty/v6/table"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Summary renders a rollup as a console table, one row per declaration and
// a footer with the covered-declaration totals. With includeZeroHit false,
// untouched declarations are dropped from the rows but still counted in the
// footer, so pass a rollup that includes them either way.
func Summary(rollup map[string][]*cover.DeclarationCoverage, includeZeroHit bool) string {
	p := message.NewPrinter(language.English)
	t := table.NewWriter()
	t.AppendHeader(table.Row{"File", "Declaration", "Kind", "Hits", "Branch %", "Modifier %", "Calls"})

	total, covered := 0, 0
	for _, file := range sortedFiles(rollup) {
		rows := 0
		for _, cov := range rollup[file] {
			total++
			if cov.Covered() {
				covered++
			} else if !includeZeroHit {
				continue
			}
			rows++
			t.AppendRow(table.Row{
				file,
				displayName(cov.Decl),
				cov.Decl.Kind.String(),
				p.Sprintf("%d", cov.CoverageHits),
				percent(cov.BranchRecords),
				percent(cov.ModifierRecords),
				p.Sprintf("%d", cov.CallCount),
			})
		}
		if rows > 0 {
			t.AppendSeparator()
		}
	}
	t.AppendFooter(table.Row{"Total", p.Sprintf("%d of %d covered", covered, total), "", "", "", "", ""})
	return t.Render()
}

// displayName renders "Contract.name"; free-standing functions have no
// contract and render by name alone.
func displayName(decl *contract.Declaration) string {
	if decl.Contract == "" {
		return decl.Name
	}
	return decl.Contract + "." + decl.Name
}

// percent is the share of positions with at least one hit, or "-" for
// declarations without positions of that category.
func percent(records map[int32]*cover.PositionHits) string {
	if len(records) == 0 {
		return "-"
	}
	hit := 0
	for _, r := range records {
		if r.Hits > 0 {
			hit++
		}
	}
	return fmt.Sprintf("%.1f", 100*float64(hit)/float64(len(records)))
}
