package contract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const vaultAST = `{
	"nodeType": "SourceUnit",
	"id": 100,
	"src": "0:400:0",
	"nodes": [
		{"nodeType": "PragmaDirective", "id": 1, "src": "0:23:0"},
		{
			"nodeType": "ContractDefinition",
			"id": 90,
			"name": "Vault",
			"src": "25:300:0",
			"nodes": [
				{"nodeType": "VariableDeclaration", "id": 10, "name": "owner", "src": "50:19:0"},
				{"nodeType": "ModifierDefinition", "id": 20, "name": "locked", "src": "75:60:0"},
				{"nodeType": "FunctionDefinition", "id": 30, "kind": "constructor", "name": "", "src": "140:40:0"},
				{"nodeType": "FunctionDefinition", "id": 40, "kind": "function", "name": "deposit", "src": "185:90:0"},
				{"nodeType": "FunctionDefinition", "id": 50, "kind": "receive", "name": "", "src": "280:40:0"}
			]
		},
		{"nodeType": "FunctionDefinition", "id": 60, "kind": "freeFunction", "name": "clamp", "src": "330:65:0"}
	]
}`

func TestParseSourceAST_CollectsFunctionsAndModifiers(t *testing.T) {
	decls, err := ParseSourceAST([]byte(vaultAST))
	require.NoError(t, err)
	require.Len(t, decls, 5)

	locked := decls[0]
	assert.Equal(t, "locked", locked.Name)
	assert.Equal(t, "Vault", locked.Contract)
	assert.Equal(t, DeclModifier, locked.Kind)
	assert.Equal(t, int32(75), locked.Start)
	assert.Equal(t, int32(135), locked.End)

	constructor := decls[1]
	assert.Equal(t, "constructor", constructor.Name)
	assert.Equal(t, DeclFunction, constructor.Kind)

	deposit := decls[2]
	assert.Equal(t, "deposit", deposit.Name)
	assert.Equal(t, int64(40), deposit.AstID)
	assert.Equal(t, "Vault.deposit@185", deposit.Ident())

	receive := decls[3]
	assert.Equal(t, "receive", receive.Name)

	free := decls[4]
	assert.Equal(t, "clamp", free.Name)
	assert.Equal(t, "", free.Contract)
	assert.Equal(t, ".clamp@330", free.Ident())
}

func TestParseSourceAST_BadSourceLocation(t *testing.T) {
	_, err := ParseSourceAST([]byte(`{
		"nodeType": "SourceUnit",
		"nodes": [{"nodeType": "FunctionDefinition", "name": "f", "src": "oops"}]
	}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not have 3 fields")
}

func TestParseSourceAST_BadJSON(t *testing.T) {
	_, err := ParseSourceAST([]byte(`[`))
	assert.Error(t, err)
}

func TestDeclKind_String(t *testing.T) {
	assert.Equal(t, "function", DeclFunction.String())
	assert.Equal(t, "modifier", DeclModifier.String())
}
