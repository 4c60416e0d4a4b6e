package cover

import (
	"fmt"
	"strings"
	"testing"

	"github.com/0xsoniclabs/figaro/contract"
	"github.com/status-im/keycard-go/hexutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIdentityIndex_FindByDeployedCode(t *testing.T) {
	identity := counterRegistry(t).Identity()

	code := hexutils.HexToBytes("60806040" + strings.Repeat("a1", contract.MetadataSize))
	fqn, ok := identity.FindByDeployedCode(code)
	require.True(t, ok)
	assert.Equal(t, "contracts/Counter.sol:A", fqn)

	// an on-chain body differing from the build still resolves, the tail decides
	patched := append([]byte{0xff, 0xff}, code...)
	fqn, ok = identity.FindByDeployedCode(patched)
	require.True(t, ok)
	assert.Equal(t, "contracts/Counter.sol:A", fqn)
}

func TestIdentityIndex_FindByDeployedCodeMisses(t *testing.T) {
	identity := counterRegistry(t).Identity()

	_, ok := identity.FindByDeployedCode(hexutils.HexToBytes(strings.Repeat("ee", contract.MetadataSize+4)))
	assert.False(t, ok, "unknown tail")

	_, ok = identity.FindByDeployedCode([]byte{0x60, 0x80})
	assert.False(t, ok, "code shorter than a tail")
}

func TestIdentityIndex_FindByCreationCode(t *testing.T) {
	identity := counterRegistry(t).Identity()

	fqn, err := identity.FindByCreationCode(hexutils.HexToBytes("6080604052aa00"))
	require.NoError(t, err)
	assert.Equal(t, "contracts/Counter.sol:A", fqn)

	// constructor arguments trail the init code on chain
	fqn, err = identity.FindByCreationCode(hexutils.HexToBytes("6080604052bb00" + "000000000000000000000000000000000000000000000000000000000000002a"))
	require.NoError(t, err)
	assert.Equal(t, "contracts/Counter.sol:B", fqn)
}

func TestIdentityIndex_FindByCreationCodeNoMatch(t *testing.T) {
	identity := counterRegistry(t).Identity()

	_, err := identity.FindByCreationCode(hexutils.HexToBytes("deadbeef"))
	assert.ErrorIs(t, err, ErrNoCreationMatch)
}

// twinBuildJSON compiles the same contract under two paths, the way a
// repository with a vendored copy of one of its own sources does. The
// deployed bytecodes differ in their metadata tails, the creation bytecodes
// are byte-identical.
func twinBuildJSON(tailA, tailB string) string {
	return fmt.Sprintf(`{
	"contracts": {
		"contracts/Token.sol": {
			"Token": {"evm": {
				"bytecode": {"object": "6080604052ff"},
				"deployedBytecode": {"object": %q}
			}}
		},
		"contracts/legacy/Token.sol": {
			"Token": {"evm": {
				"bytecode": {"object": "6080604052ff"},
				"deployedBytecode": {"object": %q}
			}}
		}
	},
	"sources": {
		"contracts/Token.sol": {"id": 0},
		"contracts/legacy/Token.sol": {"id": 1}
	}
}`, "6080"+strings.Repeat(tailA, contract.MetadataSize), "6080"+strings.Repeat(tailB, contract.MetadataSize))
}

func TestIdentityIndex_AmbiguousCreationCode(t *testing.T) {
	artifacts, err := contract.ParseBuild([]byte(twinBuildJSON("c3", "d4")))
	require.NoError(t, err)
	registry, err := BuildRegistry(artifacts, 0)
	require.NoError(t, err)

	_, err = registry.Identity().FindByCreationCode(hexutils.HexToBytes("6080604052ff"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAmbiguousCreationMatch)
	assert.Contains(t, err.Error(), "contracts/Token.sol:Token")
	assert.Contains(t, err.Error(), "contracts/legacy/Token.sol:Token")
}

func TestIdentityIndex_MetadataCollisionFailsTheBuild(t *testing.T) {
	artifacts, err := contract.ParseBuild([]byte(twinBuildJSON("c3", "c3")))
	require.NoError(t, err)

	_, err = BuildRegistry(artifacts, 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "share a metadata tail")
}
