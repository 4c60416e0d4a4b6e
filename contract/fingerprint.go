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
	"encoding/hex"
	"fmt"
	"sort"

	"golang.org/x/crypto/blake2b"
)

// PlaceholderSize is the byte width of a library-address slot in unlinked
// creation code. In the hex text a slot shows as a 40-character placeholder
// (`__$<hash>$__` or the pre-0.5 `__LibName...__` form).
const PlaceholderSize = 20

// Segment is one hashed run of creation code between two library slots.
type Segment struct {
	Length int
	Digest [32]byte
}

// Fingerprint identifies a contract's creation code independent of the
// library addresses linked into it: the ordered digests of the code runs
// between the fixed-width address slots.
type Fingerprint struct {
	Segments []Segment
}

// NewFingerprint hashes the creation-code hex around the given placeholder
// byte offsets. Slots must not overlap; the segment after the last slot may
// be empty and is kept so matching still skips the trailing slot.
func NewFingerprint(hexCode string, slots []int) (Fingerprint, error) {
	sorted := make([]int, len(slots))
	copy(sorted, slots)
	sort.Ints(sorted)

	var segments []Segment
	prev := 0
	for _, slot := range sorted {
		if slot < prev {
			return Fingerprint{}, fmt.Errorf("library slot at byte %d overlaps the previous one", slot)
		}
		if 2*(slot+PlaceholderSize) > len(hexCode) {
			return Fingerprint{}, fmt.Errorf("library slot at byte %d runs past the creation code", slot)
		}
		segment, err := hashSegment(hexCode[2*prev : 2*slot])
		if err != nil {
			return Fingerprint{}, err
		}
		segments = append(segments, segment)
		prev = slot + PlaceholderSize
	}

	segment, err := hashSegment(hexCode[2*prev:])
	if err != nil {
		return Fingerprint{}, err
	}
	segments = append(segments, segment)

	return Fingerprint{Segments: segments}, nil
}

func hashSegment(hexSegment string) (Segment, error) {
	raw, err := hex.DecodeString(hexSegment)
	if err != nil {
		return Segment{}, fmt.Errorf("creation code segment is not hex: %w", err)
	}
	return Segment{Length: len(raw), Digest: blake2b.Sum256(raw)}, nil
}

// MatchesCreationCode reports whether the supplied init code was produced
// from this fingerprint's contract. Trailing bytes beyond the last segment
// are constructor arguments and do not participate in the match.
func (f Fingerprint) MatchesCreationCode(code []byte) bool {
	if len(f.Segments) == 0 {
		return false
	}
	offset := 0
	for i, segment := range f.Segments {
		if offset+segment.Length > len(code) {
			return false
		}
		if blake2b.Sum256(code[offset:offset+segment.Length]) != segment.Digest {
			return false
		}
		offset += segment.Length
		if i < len(f.Segments)-1 {
			offset += PlaceholderSize
			if offset > len(code) {
				return false
			}
		}
	}
	return true
}

// scanPlaceholders finds the 40-character library placeholders of an unlinked
// creation-code hex by their `__` marker. Byte offsets are returned. Used
// when the compiler did not emit link references.
func scanPlaceholders(hexCode string) []int {
	var slots []int
	for i := 0; i+2*PlaceholderSize <= len(hexCode); {
		if hexCode[i] == '_' && hexCode[i+1] == '_' {
			slots = append(slots, i/2)
			i += 2 * PlaceholderSize
			continue
		}
		i += 2
	}
	return slots
}
