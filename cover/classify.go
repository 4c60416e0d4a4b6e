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
	"github.com/0xsoniclabs/figaro/bytecode"
	"github.com/0xsoniclabs/figaro/contract"
	"github.com/0xsoniclabs/figaro/srcmap"
)

// classify composes disassembly, source-map decoding and declaration
// resolution into the pc-record table of one bytecode. Category rules:
//
//   - instruction: the entry's file index is the artifact's own source.
//   - branch: a branching opcode whose jump tag is not "o" (a jump out of a
//     function returns, it does not decide anything); additionally each
//     declaration's lowest-source-offset pc (ties: lowest pc), so entering a
//     declaration at all is observable even when its first instruction is not
//     a branching opcode.
//   - modifier: the resolved declaration is a modifier.
//
// Foreign-file pcs keep their record but belong to no category and carry no
// declaration.
func classify(code contract.Code, sourceIndex int32, index contract.DeclarationIndex) ([]PcRecord, error) {
	instructions, err := bytecode.ParseOpcodes(code.Opcodes)
	if err != nil {
		return nil, err
	}
	entries, err := srcmap.Decode(code.SourceMap, len(instructions))
	if err != nil {
		return nil, err
	}

	type entryMark struct {
		start  int32
		record int
	}
	marks := make(map[string]entryMark)

	records := make([]PcRecord, len(instructions))
	for i, instruction := range instructions {
		entry := entries[i]
		record := PcRecord{
			PC:    instruction.PC,
			Op:    instruction.Op(),
			Name:  instruction.Name,
			Start: entry.Start,
			End:   entry.End(),
			Jump:  entry.Jump,
		}

		if entry.FileIndex == sourceIndex {
			record.Categories |= CatInstruction

			if decl, ok := index.Resolve(entry.Start, entry.End()); ok {
				record.Decl = decl
				if decl.Kind == contract.DeclModifier {
					record.Categories |= CatModifier
				}
				ident := decl.Ident()
				if mark, seen := marks[ident]; !seen || entry.Start < mark.start {
					marks[ident] = entryMark{start: entry.Start, record: i}
				}
			}

			if branchOps[record.Op] && entry.Jump != srcmap.JumpOut {
				record.Categories |= CatBranch
			}
		}

		records[i] = record
	}

	for _, mark := range marks {
		records[mark.record].Categories |= CatBranch
	}

	return records, nil
}
