package poller

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/0xsoniclabs/figaro/contract"
	"github.com/0xsoniclabs/figaro/cover"
	"github.com/0xsoniclabs/figaro/logger"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/status-im/keycard-go/hexutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

const buildAST = `{
	"nodeType": "SourceUnit", "id": 1, "src": "0:400:0",
	"nodes": [
		{"nodeType": "ContractDefinition", "id": 2, "name": "Base", "src": "30:165:0", "nodes": [
			{"nodeType": "FunctionDefinition", "id": 3, "kind": "function", "name": "bump", "src": "40:80:0"},
			{"nodeType": "ModifierDefinition", "id": 4, "name": "guarded", "src": "130:60:0"}
		]},
		{"nodeType": "ContractDefinition", "id": 5, "name": "A", "src": "200:60:0", "nodes": []},
		{"nodeType": "ContractDefinition", "id": 6, "name": "B", "src": "270:60:0", "nodes": []}
	]
}`

const (
	fqnA = "contracts/Counter.sol:A"
	fqnB = "contracts/Counter.sol:B"

	creationHexA = "6080604052aa00"
	creationHexB = "6080604052bb00"
)

func deployedHexA() string { return "60806040" + strings.Repeat("a1", contract.MetadataSize) }
func deployedHexB() string { return "60806040" + strings.Repeat("b2", contract.MetadataSize) }

func testRegistry(t *testing.T) *cover.Registry {
	t.Helper()
	build := fmt.Sprintf(`{
	"contracts": {
		"contracts/Counter.sol": {
			"A": {"evm": {
				"bytecode": {
					"object": %q,
					"opcodes": "PUSH1 0x80 PUSH1 0x40 MSTORE STOP",
					"sourceMap": "200:60:0:-;;;"
				},
				"deployedBytecode": {
					"object": %q,
					"opcodes": "PUSH1 0x80 PUSH1 0x40 MSTORE JUMPDEST PUSH1 0x2a JUMPI JUMPDEST ADD CALL STOP",
					"sourceMap": "-1:-1:-1;0:10:0:-;;45:20:0;50:10:0;60:10:0:i;140:10:0:-;145:5:0;80:10:0:-;70:5:0:o"
				}
			}},
			"B": {"evm": {
				"bytecode": {
					"object": %q,
					"opcodes": "PUSH1 0x80 PUSH1 0x40 MSTORE STOP",
					"sourceMap": "270:60:0:-;;;"
				},
				"deployedBytecode": {
					"object": %q,
					"opcodes": "PUSH1 0x80 JUMPDEST PUSH1 0x2a JUMPI STOP",
					"sourceMap": "-1:-1:-1;45:20:0:-;50:10:0;60:10:0:i;70:5:0:o"
				}
			}}
		}
	},
	"sources": {
		"contracts/Counter.sol": {"id": 0, "ast": %s}
	}
}`, creationHexA, deployedHexA(), creationHexB, deployedHexB(), buildAST)

	artifacts, err := contract.ParseBuild([]byte(build))
	require.NoError(t, err)
	registry, err := cover.BuildRegistry(artifacts, 0)
	require.NoError(t, err)
	return registry
}

func testPoller(t *testing.T) (*Poller, *MockNodeClient, *cover.Registry) {
	t.Helper()
	ctrl := gomock.NewController(t)
	client := NewMockNodeClient(ctrl)
	registry := testRegistry(t)
	log := logger.NewLogger("critical", "PollerTest")
	return New(client, registry, log), client, registry
}

func word(hex string) uint256.Int {
	return *uint256.MustFromHex(hex)
}

func TestPoller_ChainResetRescansFromGenesis(t *testing.T) {
	poller, client, _ := testPoller(t)
	poller.SetCheckpoint(Checkpoint{LastScannedBlock: 100})

	client.EXPECT().BlockNumber(gomock.Any()).Return(uint64(9), nil)
	for number := uint64(0); number < 10; number++ {
		client.EXPECT().BlockByNumber(gomock.Any(), number).Return(&Block{}, nil)
	}

	require.NoError(t, poller.Poll(context.Background()))
	assert.Equal(t, uint64(10), poller.Checkpoint().LastScannedBlock)
}

func TestPoller_AttributesCrossContractCall(t *testing.T) {
	poller, client, registry := testPoller(t)

	addrA := common.HexToAddress("0x00000000000000000000000000000000000000aa")
	addrB := common.HexToAddress("0x00000000000000000000000000000000000000bb")
	txHash := common.HexToHash("0x01")
	tx := Transaction{Hash: txHash, To: &addrA}

	// A runs until its CALL at pc 11, B runs to completion, A finishes
	trace := &Trace{Steps: []TraceStep{
		{PC: 5, Op: "JUMPDEST", Depth: 1},
		{PC: 8, Op: "JUMPI", Depth: 1},
		{PC: 11, Op: "CALL", Depth: 1, Stack: []uint256.Int{
			word("0xbb"), // callee address, second from the top
			word("0x2710"),
		}},
		{PC: 2, Op: "JUMPDEST", Depth: 2},
		{PC: 5, Op: "JUMPI", Depth: 2},
		{PC: 6, Op: "STOP", Depth: 2},
		{PC: 12, Op: "STOP", Depth: 1},
	}}

	client.EXPECT().BlockNumber(gomock.Any()).Return(uint64(0), nil)
	client.EXPECT().BlockByNumber(gomock.Any(), uint64(0)).Return(&Block{Transactions: []Transaction{tx}}, nil)
	client.EXPECT().Code(gomock.Any(), addrA).Return(hexutils.HexToBytes(deployedHexA()), nil)
	client.EXPECT().Code(gomock.Any(), addrB).Return(hexutils.HexToBytes(deployedHexB()), nil)
	client.EXPECT().TraceTransaction(gomock.Any(), txHash, lightTrace).Return(trace, nil)

	require.NoError(t, poller.Poll(context.Background()))

	ledgerA, _ := registry.DeployedLedger(fqnA)
	ledgerB, _ := registry.DeployedLedger(fqnB)

	for _, pc := range []uint64{5, 8, 11, 12} {
		assert.Equal(t, uint64(1), ledgerA.Hits(pc), "A pc %d", pc)
	}
	for _, pc := range []uint64{2, 5, 6} {
		assert.Equal(t, uint64(1), ledgerB.Hits(pc), "B pc %d", pc)
	}
	// B's pcs must not leak into A's ledger: pc 2 is valid in both
	assert.Equal(t, uint64(1), ledgerA.Hits(5), "A's own pc 5")
	assert.Zero(t, ledgerA.Hits(2), "B's pc 2 attributed to A")

	bump := ledgerA.Rollup()[0]
	assert.Equal(t, uint64(1), bump.CallCount, "the CALL fired exactly once")
	assert.Equal(t, uint64(1), poller.Checkpoint().LastScannedBlock)
}

func TestPoller_CoversCreationTransaction(t *testing.T) {
	poller, client, registry := testPoller(t)

	txHash := common.HexToHash("0x02")
	tx := Transaction{Hash: txHash, Input: hexutils.HexToBytes(creationHexA)}

	trace := &Trace{Steps: []TraceStep{
		{PC: 0, Op: "PUSH1", Depth: 1},
		{PC: 2, Op: "PUSH1", Depth: 1},
		{PC: 4, Op: "MSTORE", Depth: 1},
		{PC: 5, Op: "STOP", Depth: 1},
	}}

	client.EXPECT().BlockNumber(gomock.Any()).Return(uint64(0), nil)
	client.EXPECT().BlockByNumber(gomock.Any(), uint64(0)).Return(&Block{Transactions: []Transaction{tx}}, nil)
	client.EXPECT().TraceTransaction(gomock.Any(), txHash, lightTrace).Return(trace, nil)

	require.NoError(t, poller.Poll(context.Background()))

	creation, _ := registry.CreationLedger(fqnA)
	for _, pc := range []uint64{0, 2, 4, 5} {
		assert.Equal(t, uint64(1), creation.Hits(pc), "pc %d", pc)
	}
	deployed, _ := registry.DeployedLedger(fqnA)
	assert.Zero(t, deployed.Hits(0), "creation pcs must not reach the deployed ledger")
}

func TestPoller_RefetchesMemoryForNestedCreation(t *testing.T) {
	poller, client, registry := testPoller(t)

	addrA := common.HexToAddress("0x00000000000000000000000000000000000000aa")
	txHash := common.HexToHash("0x03")
	tx := Transaction{Hash: txHash, To: &addrA}

	// memory word holding B's init code at offset 0
	memory := []string{creationHexB + strings.Repeat("0", 64-len(creationHexB))}
	steps := func(memory []string) []TraceStep {
		return []TraceStep{
			{PC: 5, Op: "JUMPDEST", Depth: 1},
			{PC: 11, Op: "CREATE", Depth: 1, Memory: memory, Stack: []uint256.Int{
				word("0x7"), // size
				word("0x0"), // offset
				word("0x0"), // value
			}},
			{PC: 0, Op: "PUSH1", Depth: 2},
			{PC: 2, Op: "PUSH1", Depth: 2},
			{PC: 4, Op: "MSTORE", Depth: 2},
			{PC: 5, Op: "STOP", Depth: 2},
			{PC: 12, Op: "STOP", Depth: 1},
		}
	}

	client.EXPECT().BlockNumber(gomock.Any()).Return(uint64(0), nil)
	client.EXPECT().BlockByNumber(gomock.Any(), uint64(0)).Return(&Block{Transactions: []Transaction{tx}}, nil)
	client.EXPECT().Code(gomock.Any(), addrA).Return(hexutils.HexToBytes(deployedHexA()), nil)
	gomock.InOrder(
		client.EXPECT().TraceTransaction(gomock.Any(), txHash, lightTrace).Return(&Trace{Steps: steps(nil)}, nil),
		client.EXPECT().TraceTransaction(gomock.Any(), txHash, memoryTrace).Return(&Trace{Steps: steps(memory)}, nil),
	)

	require.NoError(t, poller.Poll(context.Background()))

	creationB, _ := registry.CreationLedger(fqnB)
	for _, pc := range []uint64{0, 2, 4, 5} {
		assert.Equal(t, uint64(1), creationB.Hits(pc), "B creation pc %d", pc)
	}
	ledgerA, _ := registry.DeployedLedger(fqnA)
	assert.Equal(t, uint64(1), ledgerA.Hits(11))
	assert.Equal(t, uint64(1), ledgerA.Hits(12))
}

func TestPoller_UnknownRecipientFailsWithoutAdvancing(t *testing.T) {
	poller, client, _ := testPoller(t)

	addr := common.HexToAddress("0x00000000000000000000000000000000000000ee")
	tx := Transaction{Hash: common.HexToHash("0x04"), To: &addr}

	client.EXPECT().BlockNumber(gomock.Any()).Return(uint64(0), nil)
	client.EXPECT().BlockByNumber(gomock.Any(), uint64(0)).Return(&Block{Transactions: []Transaction{tx}}, nil)
	client.EXPECT().Code(gomock.Any(), addr).Return(hexutils.HexToBytes("6080"+strings.Repeat("ee", contract.MetadataSize)), nil)

	err := poller.Poll(context.Background())
	require.Error(t, err)

	var identityErr *IdentityError
	require.ErrorAs(t, err, &identityErr)
	require.NotNil(t, identityErr.Address)
	assert.Equal(t, addr, *identityErr.Address)
	assert.ErrorIs(t, err, ErrUnknownDeployedCode)
	assert.Zero(t, poller.Checkpoint().LastScannedBlock, "failed polls leave the checkpoint alone")
}

func TestPoller_SkipsAccountsWithoutCode(t *testing.T) {
	poller, client, _ := testPoller(t)

	addr := common.HexToAddress("0x00000000000000000000000000000000000000cc")
	tx := Transaction{Hash: common.HexToHash("0x05"), To: &addr}

	client.EXPECT().BlockNumber(gomock.Any()).Return(uint64(0), nil)
	client.EXPECT().BlockByNumber(gomock.Any(), uint64(0)).Return(&Block{Transactions: []Transaction{tx}}, nil)
	client.EXPECT().Code(gomock.Any(), addr).Return(nil, nil)

	require.NoError(t, poller.Poll(context.Background()))
	assert.Equal(t, uint64(1), poller.Checkpoint().LastScannedBlock)
}

func TestPoller_UnknownCreationCodeFails(t *testing.T) {
	poller, client, _ := testPoller(t)

	tx := Transaction{Hash: common.HexToHash("0x06"), Input: hexutils.HexToBytes("deadbeef")}

	client.EXPECT().BlockNumber(gomock.Any()).Return(uint64(0), nil)
	client.EXPECT().BlockByNumber(gomock.Any(), uint64(0)).Return(&Block{Transactions: []Transaction{tx}}, nil)

	err := poller.Poll(context.Background())
	require.Error(t, err)

	var identityErr *IdentityError
	require.ErrorAs(t, err, &identityErr)
	assert.Nil(t, identityErr.Address)
	assert.ErrorIs(t, err, cover.ErrNoCreationMatch)
}
