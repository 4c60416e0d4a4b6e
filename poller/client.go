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

package poller

//go:generate mockgen -source client.go -destination client_mock.go -package poller

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/holiman/uint256"
)

// Block is the slice of a block the poller consumes: its number and the full
// transaction objects.
type Block struct {
	Number       hexutil.Uint64 `json:"number"`
	Transactions []Transaction  `json:"transactions"`
}

// Transaction carries the transaction fields contract identification needs.
// To is nil for contract-creation transactions; Input then holds the init
// code.
type Transaction struct {
	Hash  common.Hash     `json:"hash"`
	To    *common.Address `json:"to"`
	Input hexutil.Bytes   `json:"input"`
}

// TraceStep is one executed instruction of a transaction trace. Stack is
// ordered bottom to top, so the top word is the last element. Memory is the
// hex word list of the struct logger and stays empty unless the trace was
// fetched with memory enabled.
type TraceStep struct {
	PC     uint64        `json:"pc"`
	Op     string        `json:"op"`
	Depth  int           `json:"depth"`
	Stack  []uint256.Int `json:"stack"`
	Memory []string      `json:"memory"`
}

// Trace is the struct-logger output of one replayed transaction.
type Trace struct {
	Failed bool        `json:"failed"`
	Steps  []TraceStep `json:"structLogs"`
}

// TraceConfig selects the detail level of a trace. Older nodes understand
// the disable flags, newer ones the enable flag; setting both keeps the
// request meaningful for either family.
type TraceConfig struct {
	DisableStorage bool `json:"disableStorage"`
	DisableStack   bool `json:"disableStack"`
	DisableMemory  bool `json:"disableMemory"`
	EnableMemory   bool `json:"enableMemory"`
}

// NodeClient is the poller's view of an execution node.
type NodeClient interface {
	// BlockNumber returns the number of the latest block.
	BlockNumber(ctx context.Context) (uint64, error)

	// BlockByNumber returns one block with its full transaction objects.
	BlockByNumber(ctx context.Context, number uint64) (*Block, error)

	// Code returns the deployed bytecode at an address.
	Code(ctx context.Context, address common.Address) ([]byte, error)

	// TraceTransaction replays one transaction and returns its struct log.
	TraceTransaction(ctx context.Context, hash common.Hash, config TraceConfig) (*Trace, error)

	// Close releases the underlying connection.
	Close()
}

// Client implements NodeClient over a JSON-RPC connection.
type Client struct {
	c *rpc.Client
}

// Dial connects to an execution node. The URL may name an HTTP, WebSocket or
// IPC endpoint.
func Dial(ctx context.Context, url string) (*Client, error) {
	c, err := rpc.DialContext(ctx, url)
	if err != nil {
		return nil, err
	}
	return NewClient(c), nil
}

// NewClient wraps an established RPC connection.
func NewClient(c *rpc.Client) *Client {
	return &Client{c}
}

func (c *Client) BlockNumber(ctx context.Context) (uint64, error) {
	var number hexutil.Uint64
	err := c.c.CallContext(ctx, &number, "eth_blockNumber")
	return uint64(number), err
}

func (c *Client) BlockByNumber(ctx context.Context, number uint64) (*Block, error) {
	var block *Block
	err := c.c.CallContext(ctx, &block, "eth_getBlockByNumber", hexutil.Uint64(number), true)
	if err != nil {
		return nil, err
	}
	if block == nil {
		return nil, fmt.Errorf("poller: node has no block %d", number)
	}
	return block, nil
}

func (c *Client) Code(ctx context.Context, address common.Address) ([]byte, error) {
	var code hexutil.Bytes
	err := c.c.CallContext(ctx, &code, "eth_getCode", address, "latest")
	return code, err
}

func (c *Client) TraceTransaction(ctx context.Context, hash common.Hash, config TraceConfig) (*Trace, error) {
	var trace Trace
	if err := c.c.CallContext(ctx, &trace, "debug_traceTransaction", hash, config); err != nil {
		return nil, err
	}
	return &trace, nil
}

func (c *Client) Close() {
	c.c.Close()
}
