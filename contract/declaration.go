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
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// DeclKind distinguishes the two declaration shapes coverage is reported on.
type DeclKind byte

const (
	DeclFunction DeclKind = iota
	DeclModifier
)

func (k DeclKind) String() string {
	if k == DeclModifier {
		return "modifier"
	}
	return "function"
}

// Declaration is a function or modifier definition of a source file, located
// by its byte range. The range of a base-contract declaration is identical no
// matter which derived contract's bytecode it was compiled into, which is what
// makes declarations mergeable across sibling artifacts.
type Declaration struct {
	AstID    int64
	Name     string
	Contract string
	Kind     DeclKind
	Start    int32
	End      int32
}

// Ident returns the stable textual identifier of the declaration. The start
// offset disambiguates overloaded names.
func (d *Declaration) Ident() string {
	return fmt.Sprintf("%s.%s@%d", d.Contract, d.Name, d.Start)
}

// Length returns the byte length of the declaration's source range.
func (d *Declaration) Length() int32 {
	return d.End - d.Start
}

// astNode is the recursive shape of a compact-AST node, reduced to the fields
// the declaration walk reads.
type astNode struct {
	ID       int64     `json:"id"`
	NodeType string    `json:"nodeType"`
	Src      string    `json:"src"`
	Name     string    `json:"name"`
	Kind     string    `json:"kind"`
	Nodes    []astNode `json:"nodes"`
}

// ParseSourceAST collects the function and modifier declarations of one
// source file's compact AST. Contract members carry their contract's name;
// free-standing functions carry an empty one.
func ParseSourceAST(ast json.RawMessage) ([]Declaration, error) {
	var unit astNode
	if err := json.Unmarshal(ast, &unit); err != nil {
		return nil, fmt.Errorf("cannot decode source unit: %w", err)
	}

	var decls []Declaration
	for _, node := range unit.Nodes {
		switch node.NodeType {
		case "ContractDefinition":
			for _, member := range node.Nodes {
				decl, ok, err := parseDeclaration(member, node.Name)
				if err != nil {
					return nil, err
				}
				if ok {
					decls = append(decls, decl)
				}
			}
		case "FunctionDefinition":
			decl, ok, err := parseDeclaration(node, "")
			if err != nil {
				return nil, err
			}
			if ok {
				decls = append(decls, decl)
			}
		}
	}
	return decls, nil
}

func parseDeclaration(node astNode, contractName string) (Declaration, bool, error) {
	var kind DeclKind
	switch node.NodeType {
	case "FunctionDefinition":
		kind = DeclFunction
	case "ModifierDefinition":
		kind = DeclModifier
	default:
		return Declaration{}, false, nil
	}

	start, length, err := parseSrc(node.Src)
	if err != nil {
		return Declaration{}, false, fmt.Errorf("declaration %v of %v: %w", node.Name, contractName, err)
	}

	name := node.Name
	if name == "" {
		// constructor, fallback and receive definitions are anonymous; their
		// kind is the only printable name they have
		name = node.Kind
	}

	return Declaration{
		AstID:    node.ID,
		Name:     name,
		Contract: contractName,
		Kind:     kind,
		Start:    start,
		End:      start + length,
	}, true, nil
}

// parseSrc splits a compact-AST source location (`"start:length:file"`).
func parseSrc(src string) (int32, int32, error) {
	fields := strings.Split(src, ":")
	if len(fields) != 3 {
		return 0, 0, fmt.Errorf("source location %q does not have 3 fields", src)
	}
	start, err := strconv.ParseInt(fields[0], 10, 32)
	if err != nil {
		return 0, 0, fmt.Errorf("source location %q: %w", src, err)
	}
	length, err := strconv.ParseInt(fields[1], 10, 32)
	if err != nil {
		return 0, 0, fmt.Errorf("source location %q: %w", src, err)
	}
	return int32(start), int32(length), nil
}
