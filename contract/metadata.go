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

// MetadataSize is the byte width of the CBOR metadata tail solc appends to
// runtime bytecode. With the default ipfs hash the tail is 51 payload bytes
// plus the 2-byte length suffix.
const MetadataSize = 53

// MetadataTail slices the trailing metadata bytes off a runtime bytecode.
// ok is false when the code is too short to carry a tail.
func MetadataTail(code []byte) ([MetadataSize]byte, bool) {
	var tail [MetadataSize]byte
	if len(code) < MetadataSize {
		return tail, false
	}
	copy(tail[:], code[len(code)-MetadataSize:])
	return tail, true
}
