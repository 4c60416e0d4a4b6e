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

// Package bytecode decodes the opcode streams emitted by solc into
// pc-addressed instruction sequences.
package bytecode

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/core/vm"
)

// Instruction is a single decoded machine word of a contract's bytecode.
// Size covers the opcode byte plus any push immediate, so the instruction
// at PC is followed by the instruction at PC+Size.
type Instruction struct {
	PC   uint64
	Name string
	Size uint64
}

// Op resolves the instruction mnemonic to its EVM opcode value. Tokens that
// are not known mnemonics (data bytes of the metadata tail) resolve to STOP,
// which is never a branching opcode, so they classify as plain instructions.
func (i Instruction) Op() vm.OpCode {
	return vm.StringToOp(i.Name)
}

// IsPush reports whether the instruction carries a push immediate.
func (i Instruction) IsPush() bool {
	return i.Size > 1
}

// ParseOpcodes decodes the space-separated mnemonic stream solc emits for a
// contract (`"PUSH1 0x80 PUSH1 0x40 MSTORE ..."`) into an ordered instruction
// list with sequential pc assignment starting at 0.
//
// PUSH1..PUSH32 consume the following token as their immediate value; PUSH0
// stands alone. Every other token, including the hex literals solc prints for
// unassigned opcode bytes, becomes a size-1 instruction carrying its literal
// token as name.
func ParseOpcodes(stream string) ([]Instruction, error) {
	tokens := strings.Fields(stream)
	instructions := make([]Instruction, 0, len(tokens))

	var pc uint64
	for i := 0; i < len(tokens); i++ {
		token := tokens[i]

		size, hasImmediate, err := pushSize(token)
		if err != nil {
			return nil, err
		}
		if hasImmediate {
			if i+1 >= len(tokens) {
				return nil, fmt.Errorf("bytecode: %v at pc %d is missing its immediate value", token, pc)
			}
			i++ // the next token is the push immediate, not an instruction
		}

		instructions = append(instructions, Instruction{PC: pc, Name: token, Size: size})
		pc += size
	}

	return instructions, nil
}

// pushSize returns the byte width of the instruction a token denotes and
// whether the token consumes a trailing immediate.
func pushSize(token string) (uint64, bool, error) {
	if !strings.HasPrefix(token, "PUSH") || token == "PUSH0" {
		return 1, false, nil
	}

	n, err := strconv.ParseUint(token[len("PUSH"):], 10, 8)
	if err != nil || n < 1 || n > 32 {
		return 0, false, fmt.Errorf("bytecode: cannot decode push width of %q: %v", token, err)
	}

	return n + 1, true, nil
}
