package script

import (
	"github.com/bsv-blockchain/verdict/chaincfg"
	"github.com/bsv-blockchain/verdict/model"
	"github.com/bsv-blockchain/verdict/signature"
)

// Context is the environment of one input evaluation.  It is created for a
// single (transaction, input) pair, mutated while the scripts run and then
// discarded; it is never shared between goroutines.
type Context struct {
	Params      *chaincfg.Params
	BlockHeight uint32
	Transaction *model.Transaction
	InputIndex  int
	Input       *model.Input
	Output      *model.Output

	hasher *signature.Hasher

	currentScript          *Script
	scriptIndex            int
	lastCodeSeparatorIndex int
}

// NewContext returns the context for evaluating input inputIndex of tx, which
// spends output.  hasher may be shared by the contexts of all inputs of tx; nil
// creates a new one.
func NewContext(params *chaincfg.Params, blockHeight uint32, tx *model.Transaction, inputIndex int, output *model.Output, hasher *signature.Hasher) *Context {
	if hasher == nil {
		hasher = signature.NewHasher(tx)
	}

	var input *model.Input
	if inputIndex >= 0 && inputIndex < len(tx.Inputs) {
		input = tx.Inputs[inputIndex]
	}

	return &Context{
		Params:      params,
		BlockHeight: blockHeight,
		Transaction: tx,
		InputIndex:  inputIndex,
		Input:       input,
		Output:      output,
		hasher:      hasher,
	}
}

// CurrentScript is the script being executed.
func (c *Context) CurrentScript() *Script {
	return c.currentScript
}

// ScriptIndex is the index of the next operation to execute.
func (c *Context) ScriptIndex() int {
	return c.scriptIndex
}

// LastCodeSeparatorIndex is the operation index just after the last executed
// OP_CODESEPARATOR of the current script, or zero.
func (c *Context) LastCodeSeparatorIndex() int {
	return c.lastCodeSeparatorIndex
}

func (c *Context) setCurrentScript(s *Script) {
	c.currentScript = s
	c.scriptIndex = 0
	c.lastCodeSeparatorIndex = 0
}

// amount is the value of the output being spent, committed to by FORKID
// signature digests.
func (c *Context) amount() int64 {
	if c.Output == nil {
		return 0
	}

	return c.Output.Amount
}

func (c *Context) requireMinimal() bool {
	return c.Params.IsHF20191115Enabled(c.BlockHeight)
}

func (c *Context) schnorrEnabled() bool {
	return c.Params.IsHF20190515Enabled(c.BlockHeight)
}

func (c *Context) forkIDEnabled() bool {
	return c.Params.IsBuip55Enabled(c.BlockHeight)
}

func (c *Context) strictEncoding() bool {
	return c.Params.IsBuip55Enabled(c.BlockHeight)
}

func (c *Context) derSignatures() bool {
	return c.Params.IsBIP66Enabled(c.BlockHeight)
}

// lowS is part of the strict signature encoding rules activated with the fork.
func (c *Context) lowS() bool {
	return c.Params.IsBuip55Enabled(c.BlockHeight)
}

func (c *Context) nullFail() bool {
	return c.Params.IsHF20171113Enabled(c.BlockHeight)
}
