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

// Package poller feeds a coverage registry from a live execution node. Each
// poll scans the blocks gained since the last checkpoint, identifies the
// contract behind every transaction and dispatches the execution traces into
// the registry's ledgers.
package poller

import (
	"context"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/0xsoniclabs/figaro/cover"
	"github.com/0xsoniclabs/figaro/logger"
	"github.com/cockroachdb/errors"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/vm"
)

// ErrUnknownDeployedCode means the runtime code behind a transaction carries
// a metadata tail no registered artifact has.
var ErrUnknownDeployedCode = errors.New("no artifact matches the deployed code")

// errNeedsMemory aborts a walk that ran into a nested contract creation in a
// trace fetched without memory; the poller re-fetches with memory enabled.
var errNeedsMemory = errors.New("trace carries no memory detail")

// lightTrace keeps traces small: coverage needs pcs, opcodes, depth and the
// stack, nothing else.
var lightTrace = TraceConfig{DisableStorage: true, DisableMemory: true}

// memoryTrace additionally carries memory, needed to read the init code of
// nested creations.
var memoryTrace = TraceConfig{DisableStorage: true, EnableMemory: true}

// IdentityError reports a transaction whose executing contract could not be
// identified. Address is nil for contract-creation transactions.
type IdentityError struct {
	Address *common.Address
	TxHash  common.Hash
	Reason  error
}

func (e *IdentityError) Error() string {
	if e.Address != nil {
		return fmt.Sprintf("cannot identify contract %v of tx %v: %v", e.Address, e.TxHash, e.Reason)
	}
	return fmt.Sprintf("cannot identify contract created by tx %v: %v", e.TxHash, e.Reason)
}

func (e *IdentityError) Unwrap() error {
	return e.Reason
}

// Checkpoint marks the first block the next poll scans.
type Checkpoint struct {
	LastScannedBlock uint64
}

// Poller incrementally drives a coverage registry from an execution node.
// Not safe for concurrent polls; the registry's per-ledger locking covers
// concurrent ad-hoc dispatches next to a running poll.
type Poller struct {
	client     NodeClient
	registry   *cover.Registry
	log        logger.Logger
	checkpoint Checkpoint
}

// New creates a poller starting at the genesis block.
func New(client NodeClient, registry *cover.Registry, log logger.Logger) *Poller {
	return &Poller{client: client, registry: registry, log: log}
}

// Checkpoint returns the current scan position.
func (p *Poller) Checkpoint() Checkpoint {
	return p.checkpoint
}

// SetCheckpoint moves the scan position, e.g. to resume a stored session.
func (p *Poller) SetCheckpoint(c Checkpoint) {
	p.checkpoint = c
}

// Poll scans all blocks the node gained since the last poll and folds their
// traces into the registry. The checkpoint advances only when the whole scan
// succeeds; a failed poll leaves it unchanged so the next poll retries the
// same range. A chain height below the checkpoint means the chain was reset,
// and the scan restarts at the genesis block.
func (p *Poller) Poll(ctx context.Context) error {
	start := time.Now()

	latest, err := p.client.BlockNumber(ctx)
	if err != nil {
		return err
	}
	height := latest + 1

	if height < p.checkpoint.LastScannedBlock {
		p.log.Warningf("chain height %v fell below checkpoint %v; chain was reset, rescanning from genesis", height, p.checkpoint.LastScannedBlock)
		p.checkpoint.LastScannedBlock = 0
	}

	txs := 0
	lastSec := 0.0
	for number := p.checkpoint.LastScannedBlock; number < height; number++ {
		block, err := p.client.BlockByNumber(ctx, number)
		if err != nil {
			return err
		}
		for i := range block.Transactions {
			if err := p.coverTransaction(ctx, &block.Transactions[i]); err != nil {
				return err
			}
		}
		txs += len(block.Transactions)

		// report progress
		sec := time.Since(start).Seconds()
		if sec-lastSec >= 15 {
			p.log.Debugf("Elapsed time: %.0f s, at block %v", sec, number)
			lastSec = sec
		}
	}

	scanned := height - p.checkpoint.LastScannedBlock
	p.checkpoint.LastScannedBlock = height

	hours, minutes, seconds := logger.ParseTime(time.Since(start))
	p.log.Infof("scanned %v blocks, %v transactions in %vh %vm %vs; checkpoint at %v", scanned, txs, hours, minutes, seconds, height)
	return nil
}

// coverTransaction traces one transaction and dispatches its pcs. The walk
// buffers all attributions first; counters stay untouched when any part of
// the transaction fails to resolve.
func (p *Poller) coverTransaction(ctx context.Context, tx *Transaction) error {
	fqn, kind, ok, err := p.resolveTarget(ctx, tx)
	if err != nil {
		return err
	}
	if !ok {
		p.log.Debugf("tx %v targets an account without code, skipping", tx.Hash)
		return nil
	}

	trace, err := p.client.TraceTransaction(ctx, tx.Hash, lightTrace)
	if err != nil {
		return err
	}

	frames, err := p.walkTrace(ctx, tx, fqn, kind, trace)
	if errors.Is(err, errNeedsMemory) {
		p.log.Debugf("tx %v creates a contract mid-trace, refetching with memory", tx.Hash)
		trace, err = p.client.TraceTransaction(ctx, tx.Hash, memoryTrace)
		if err != nil {
			return err
		}
		frames, err = p.walkTrace(ctx, tx, fqn, kind, trace)
		if errors.Is(err, errNeedsMemory) {
			err = fmt.Errorf("poller: node returned no memory for tx %v", tx.Hash)
		}
	}
	if err != nil {
		return err
	}

	for _, f := range frames {
		if err := p.registry.DispatchTrace(f.fqn, f.kind, f.pcs); err != nil {
			return err
		}
	}
	return nil
}

// resolveTarget identifies the contract a transaction executes. ok is false
// for plain value transfers, where nothing executes.
func (p *Poller) resolveTarget(ctx context.Context, tx *Transaction) (string, cover.Kind, bool, error) {
	if tx.To == nil {
		fqn, err := p.registry.Identity().FindByCreationCode(tx.Input)
		if err != nil {
			return "", 0, false, &IdentityError{TxHash: tx.Hash, Reason: err}
		}
		return fqn, cover.KindCreation, true, nil
	}

	code, err := p.client.Code(ctx, *tx.To)
	if err != nil {
		return "", 0, false, err
	}
	if len(code) == 0 {
		return "", 0, false, nil
	}
	fqn, ok := p.registry.Identity().FindByDeployedCode(code)
	if !ok {
		return "", 0, false, &IdentityError{Address: tx.To, TxHash: tx.Hash, Reason: ErrUnknownDeployedCode}
	}
	return fqn, cover.KindDeployed, true, nil
}

// frame buffers the pcs attributed to one contract while its code is the
// innermost executing code of a trace.
type frame struct {
	fqn  string
	kind cover.Kind
	pcs  []uint64
}

// walkTrace attributes every trace step to the contract executing it. A
// call-family or creation opcode opens a sub-frame only when the next step's
// depth actually increases (calls to accounts without code and failed calls
// never enter a callee); a depth decrease pops one frame per level, which
// covers all the ways a frame can end, including out-of-gas.
func (p *Poller) walkTrace(ctx context.Context, tx *Transaction, fqn string, kind cover.Kind, trace *Trace) ([]*frame, error) {
	root := &frame{fqn: fqn, kind: kind}
	stack := []*frame{root}
	frames := []*frame{root}

	for i := range trace.Steps {
		step := &trace.Steps[i]
		top := stack[len(stack)-1]
		top.pcs = append(top.pcs, step.PC)

		if i+1 == len(trace.Steps) {
			break
		}
		next := &trace.Steps[i+1]
		switch {
		case next.Depth > step.Depth:
			callee, err := p.resolveFrame(ctx, tx, step)
			if err != nil {
				return nil, err
			}
			stack = append(stack, callee)
			frames = append(frames, callee)
		case next.Depth < step.Depth:
			for d := step.Depth - next.Depth; d > 0 && len(stack) > 1; d-- {
				stack = stack[:len(stack)-1]
			}
		}
	}

	return frames, nil
}

// resolveFrame identifies the contract a call or creation step enters.
func (p *Poller) resolveFrame(ctx context.Context, tx *Transaction, step *TraceStep) (*frame, error) {
	switch op := vm.StringToOp(step.Op); op {
	case vm.CALL, vm.CALLCODE, vm.DELEGATECALL, vm.STATICCALL:
		address, err := stackAddress(step)
		if err != nil {
			return nil, err
		}
		code, err := p.client.Code(ctx, address)
		if err != nil {
			return nil, err
		}
		fqn, ok := p.registry.Identity().FindByDeployedCode(code)
		if !ok {
			return nil, &IdentityError{Address: &address, TxHash: tx.Hash, Reason: ErrUnknownDeployedCode}
		}
		return &frame{fqn: fqn, kind: cover.KindDeployed}, nil

	case vm.CREATE, vm.CREATE2:
		init, err := initCode(step)
		if err != nil {
			return nil, err
		}
		fqn, err := p.registry.Identity().FindByCreationCode(init)
		if err != nil {
			return nil, &IdentityError{TxHash: tx.Hash, Reason: err}
		}
		return &frame{fqn: fqn, kind: cover.KindCreation}, nil

	default:
		return nil, fmt.Errorf("poller: depth grows after %v at pc %d of tx %v", step.Op, step.PC, tx.Hash)
	}
}

// stackAddress reads the callee address of a call-family opcode, the second
// stack word from the top.
func stackAddress(step *TraceStep) (common.Address, error) {
	if len(step.Stack) < 2 {
		return common.Address{}, fmt.Errorf("poller: %v at pc %d left a stack of %d words", step.Op, step.PC, len(step.Stack))
	}
	word := step.Stack[len(step.Stack)-2]
	return common.Address(word.Bytes20()), nil
}

// initCode reads the init code a CREATE/CREATE2 step passes via memory,
// addressed by the offset and size words below the stack top.
func initCode(step *TraceStep) ([]byte, error) {
	if len(step.Stack) < 3 {
		return nil, fmt.Errorf("poller: %v at pc %d left a stack of %d words", step.Op, step.PC, len(step.Stack))
	}
	if len(step.Memory) == 0 {
		return nil, errNeedsMemory
	}

	offsetWord := step.Stack[len(step.Stack)-2]
	sizeWord := step.Stack[len(step.Stack)-3]
	if !offsetWord.IsUint64() || !sizeWord.IsUint64() {
		return nil, fmt.Errorf("poller: %v at pc %d addresses memory out of range", step.Op, step.PC)
	}

	memory, err := hex.DecodeString(strings.Join(step.Memory, ""))
	if err != nil {
		return nil, fmt.Errorf("poller: cannot decode memory at pc %d: %w", step.PC, err)
	}
	offset, size := offsetWord.Uint64(), sizeWord.Uint64()
	if offset+size > uint64(len(memory)) {
		return nil, fmt.Errorf("poller: %v at pc %d reads %d bytes at %d beyond the %d-byte memory", step.Op, step.PC, size, offset, len(memory))
	}
	return memory[offset : offset+size], nil
}
