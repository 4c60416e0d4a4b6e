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
	"strings"

	"github.com/0xsoniclabs/figaro/contract"
	"github.com/cockroachdb/errors"
)

var (
	// ErrNoCreationMatch means an observed init code fingerprints to none of
	// the registered artifacts.
	ErrNoCreationMatch = errors.New("no artifact matches the creation code")

	// ErrAmbiguousCreationMatch means an observed init code fingerprints to
	// more than one registered artifact; coverage will not guess.
	ErrAmbiguousCreationMatch = errors.New("creation code matches multiple artifacts")
)

// IdentityIndex resolves on-chain bytecode back to a registered contract,
// either by the metadata tail of runtime code or by the creation-code
// fingerprint of init code. Immutable after build.
type IdentityIndex struct {
	byMetadata   map[[contract.MetadataSize]byte]string
	fingerprints []fingerprintEntry
}

type fingerprintEntry struct {
	fqn         string
	fingerprint contract.Fingerprint
}

func newIdentityIndex(artifacts []*contract.Artifact) (*IdentityIndex, error) {
	x := &IdentityIndex{
		byMetadata: make(map[[contract.MetadataSize]byte]string, len(artifacts)),
	}
	for _, a := range artifacts {
		if tail, ok := a.Metadata(); ok {
			if prev, dup := x.byMetadata[tail]; dup {
				return nil, fmt.Errorf("cover: %v and %v share a metadata tail", prev, a.FQN())
			}
			x.byMetadata[tail] = a.FQN()
		}
		if a.Deployment.Object != "" {
			x.fingerprints = append(x.fingerprints, fingerprintEntry{
				fqn:         a.FQN(),
				fingerprint: a.Fingerprint(),
			})
		}
	}
	return x, nil
}

// FindByDeployedCode resolves runtime bytecode fetched from the chain via its
// metadata tail.
func (x *IdentityIndex) FindByDeployedCode(code []byte) (string, bool) {
	tail, ok := contract.MetadataTail(code)
	if !ok {
		return "", false
	}
	fqn, ok := x.byMetadata[tail]
	return fqn, ok
}

// FindByCreationCode resolves the init code of a contract-creation via the
// fingerprint index. Exactly one registered artifact must match.
func (x *IdentityIndex) FindByCreationCode(code []byte) (string, error) {
	var matches []string
	for _, entry := range x.fingerprints {
		if entry.fingerprint.MatchesCreationCode(code) {
			matches = append(matches, entry.fqn)
		}
	}
	switch len(matches) {
	case 1:
		return matches[0], nil
	case 0:
		return "", ErrNoCreationMatch
	default:
		return "", fmt.Errorf("%v: %w", strings.Join(matches, ", "), ErrAmbiguousCreationMatch)
	}
}
