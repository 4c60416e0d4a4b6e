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

// Package contract models the compiled artifacts the coverage engine is built
// from: the per-contract output of a solc standard-JSON compilation, the
// function and modifier declarations of its sources, and the two identity
// schemes (metadata tail, creation-code fingerprint) that tie on-chain
// bytecode back to a compiled contract.
package contract

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
)

// Code is one of the two bytecode views solc emits for a contract. Object is
// the hex text as emitted, with library placeholders left in place.
type Code struct {
	Object    string
	Opcodes   string
	SourceMap string
}

// Artifact is one compiled contract of a build. Deployment holds the creation
// code view, Deployed the runtime code view. Declarations are shared between
// all artifacts compiled from the same source file.
type Artifact struct {
	SourceFile  string
	Name        string
	SourceIndex int32

	Deployed   Code
	Deployment Code

	Declarations []Declaration

	metadata    [MetadataSize]byte
	hasMetadata bool
	fingerprint Fingerprint
}

// FQN returns the fully-qualified contract name, `file:Name`.
func (a *Artifact) FQN() string {
	return a.SourceFile + ":" + a.Name
}

// Metadata returns the trailing metadata bytes of the compiled runtime
// bytecode. ok is false when the bytecode is too short to carry a tail.
func (a *Artifact) Metadata() ([MetadataSize]byte, bool) {
	return a.metadata, a.hasMetadata
}

// Fingerprint returns the creation-code fingerprint computed at load time.
func (a *Artifact) Fingerprint() Fingerprint {
	return a.fingerprint
}

// The wire model of a solc standard-JSON output document, reduced to the
// fields the engine consumes.
type buildOutput struct {
	Contracts map[string]map[string]buildContract `json:"contracts"`
	Sources   map[string]buildSource              `json:"sources"`
}

type buildSource struct {
	ID  int32           `json:"id"`
	AST json.RawMessage `json:"ast"`
}

type buildContract struct {
	EVM struct {
		Bytecode         buildBytecode `json:"bytecode"`
		DeployedBytecode buildBytecode `json:"deployedBytecode"`
	} `json:"evm"`
}

type buildBytecode struct {
	Object         string                           `json:"object"`
	Opcodes        string                           `json:"opcodes"`
	SourceMap      string                           `json:"sourceMap"`
	LinkReferences map[string]map[string][]linkSlot `json:"linkReferences"`
}

type linkSlot struct {
	Start  int `json:"start"`
	Length int `json:"length"`
}

// LoadBuild reads a solc standard-JSON output file and parses it into the
// artifacts of the build.
func LoadBuild(path string) ([]*Artifact, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("contract: cannot read build output %v: %w", path, err)
	}
	artifacts, err := ParseBuild(data)
	if err != nil {
		return nil, fmt.Errorf("contract: %v: %w", path, err)
	}
	return artifacts, nil
}

// ParseBuild parses a solc standard-JSON output document. Contracts without
// runtime bytecode (interfaces, abstract contracts) are skipped; everything
// else becomes one Artifact with its declarations, metadata tail and
// creation-code fingerprint resolved.
func ParseBuild(data []byte) ([]*Artifact, error) {
	var out buildOutput
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("cannot decode build output: %w", err)
	}

	declarations := make(map[string][]Declaration, len(out.Sources))
	for file, source := range out.Sources {
		if len(source.AST) == 0 {
			continue
		}
		decls, err := ParseSourceAST(source.AST)
		if err != nil {
			return nil, fmt.Errorf("cannot parse AST of %v: %w", file, err)
		}
		declarations[file] = decls
	}

	var artifacts []*Artifact
	for file, contracts := range out.Contracts {
		source, ok := out.Sources[file]
		if !ok {
			return nil, fmt.Errorf("build output has contracts of %v but no source entry", file)
		}
		for name, c := range contracts {
			deployed := strings.TrimPrefix(c.EVM.DeployedBytecode.Object, "0x")
			if deployed == "" {
				continue // interface or abstract contract, nothing executes
			}
			creation := strings.TrimPrefix(c.EVM.Bytecode.Object, "0x")

			a := &Artifact{
				SourceFile:  file,
				Name:        name,
				SourceIndex: source.ID,
				Deployed: Code{
					Object:    deployed,
					Opcodes:   c.EVM.DeployedBytecode.Opcodes,
					SourceMap: c.EVM.DeployedBytecode.SourceMap,
				},
				Deployment: Code{
					Object:    creation,
					Opcodes:   c.EVM.Bytecode.Opcodes,
					SourceMap: c.EVM.Bytecode.SourceMap,
				},
				Declarations: declarations[file],
			}

			if err := a.resolveIdentity(c.EVM.Bytecode.LinkReferences); err != nil {
				return nil, fmt.Errorf("cannot resolve identity of %v: %w", a.FQN(), err)
			}
			artifacts = append(artifacts, a)
		}
	}

	sort.Slice(artifacts, func(i, j int) bool {
		return artifacts[i].FQN() < artifacts[j].FQN()
	})
	return artifacts, nil
}

// resolveIdentity decodes the metadata tail of the runtime bytecode and
// computes the creation-code fingerprint. The tail never overlaps a library
// placeholder, so it decodes even for unlinked bytecode.
func (a *Artifact) resolveIdentity(links map[string]map[string][]linkSlot) error {
	object := a.Deployed.Object
	if len(object) >= 2*MetadataSize {
		tail, err := hex.DecodeString(object[len(object)-2*MetadataSize:])
		if err != nil {
			return fmt.Errorf("metadata tail is not hex: %w", err)
		}
		copy(a.metadata[:], tail)
		a.hasMetadata = true
	}

	var slots []int
	for _, byName := range links {
		for _, refs := range byName {
			for _, ref := range refs {
				if ref.Length != PlaceholderSize {
					return fmt.Errorf("link reference at %d has width %d", ref.Start, ref.Length)
				}
				slots = append(slots, ref.Start)
			}
		}
	}
	if len(slots) == 0 {
		slots = scanPlaceholders(a.Deployment.Object)
	}

	fingerprint, err := NewFingerprint(a.Deployment.Object, slots)
	if err != nil {
		return fmt.Errorf("cannot fingerprint creation code: %w", err)
	}
	a.fingerprint = fingerprint
	return nil
}
