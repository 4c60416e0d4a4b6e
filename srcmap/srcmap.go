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

// Package srcmap decodes the delta-compressed source maps solc emits
// alongside a contract's bytecode.
package srcmap

import (
	"fmt"
	"strconv"
	"strings"
)

// JumpType tags an instruction's role in the control flow as recorded by the
// compiler: a jump into a function, a jump out of one, or neither.
type JumpType string

const (
	JumpNone JumpType = ""
	JumpIn   JumpType = "i"
	JumpOut  JumpType = "o"
	JumpSame JumpType = "-"
)

// Entry is the decoded source attribution of a single instruction: the byte
// range of the source text it was compiled from, the index of the source file
// within the compilation unit, and the jump classification.
type Entry struct {
	Start     int32
	Length    int32
	FileIndex int32
	Jump      JumpType
}

// End returns the exclusive end offset of the attributed source range.
func (e Entry) End() int32 {
	return e.Start + e.Length
}

// state is the running field buffer of one decode pass. Fields omitted from
// an encoded entry inherit their value from the previous entry, so the buffer
// carries the last seen value of each slot across the loop.
type state struct {
	start     int32
	length    int32
	fileIndex int32
	jump      JumpType
}

// Decode expands a source-map string into exactly n entries, one per
// instruction of the bytecode the map belongs to. Missing trailing entries
// repeat the last decoded state; surplus non-empty entries mean the map does
// not belong to the given bytecode and fail the decode.
func Decode(sourceMap string, n int) ([]Entry, error) {
	parts := strings.Split(sourceMap, ";")
	for i := n; i < len(parts); i++ {
		if parts[i] != "" {
			return nil, fmt.Errorf("srcmap: map has %d entries for %d instructions", len(parts), n)
		}
	}

	cur := state{start: -1, length: -1, fileIndex: -1, jump: JumpNone}
	entries := make([]Entry, 0, n)
	for i := 0; i < n; i++ {
		if i < len(parts) {
			if err := cur.apply(parts[i]); err != nil {
				return nil, fmt.Errorf("srcmap: cannot decode entry %d: %w", i, err)
			}
		}
		entries = append(entries, Entry{
			Start:     cur.start,
			Length:    cur.length,
			FileIndex: cur.fileIndex,
			Jump:      cur.jump,
		})
	}

	return entries, nil
}

// apply overwrites the buffer slots named by one encoded entry. An empty
// field keeps the inherited value. The fifth field (modifier depth, emitted
// by newer compilers) is discarded.
func (s *state) apply(encoded string) error {
	if encoded == "" {
		return nil
	}

	for i, field := range strings.Split(encoded, ":") {
		if field == "" {
			continue
		}
		switch i {
		case 0, 1, 2:
			v, err := strconv.ParseInt(field, 10, 32)
			if err != nil {
				return fmt.Errorf("field %d is not an integer: %v", i, err)
			}
			switch i {
			case 0:
				s.start = int32(v)
			case 1:
				s.length = int32(v)
			case 2:
				s.fileIndex = int32(v)
			}
		case 3:
			s.jump = JumpType(field)
		case 4:
			// modifier depth
		default:
			return fmt.Errorf("entry has %d fields", i+1)
		}
	}

	return nil
}
