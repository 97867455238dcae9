/*
 * Copyright 2026 CloudWeGo Authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package jit

import (
	"fmt"
	"sync/atomic"

	"github.com/cloudwego/stackjit/internal/il"
	"github.com/cloudwego/stackjit/internal/opts"
)

var (
	MethodCount uint32
	ErrorCount  uint32
	BlockCount  uint32
	TreeCount   uint32
	TempCount   uint32
	SpillCount  uint32
)

// Func is the compilation state of one method. It is owned by a single
// compilation and never shared.
type Func struct {
	Name     string
	Method   *il.Method
	Vars     *VarTable
	Trees    *Forest
	Blocks   []*BasicBlock
	Layout   []*BasicBlock
	Live     *Liveness
	Regs     Assignment
	Target   *Target
	Pool     int
	Loops    int
	Marks    int
	Resolver Resolver
}

// NewFunc creates an empty compilation state for m.
func NewFunc(m *il.Method, target *Target, pool int) *Func {
	return &Func{
		Name:     m.Name,
		Method:   m,
		Vars:     NewVarTable(m),
		Trees:    NewForest(),
		Target:   target,
		Pool:     target.PoolSize(pool),
		Resolver: MethodResolver{m},
	}
}

type Pass interface {
	Apply(*Func) error
}

type PassDescriptor struct {
	Pass Pass
	Name string
}

var Passes = [...]PassDescriptor{
	{Name: "Block Partitioning", Pass: new(BlockPartition)},
	{Name: "Stack Tree Building", Pass: new(StackTrees)},
	{Name: "Block Layout", Pass: new(BlockLayout)},
	{Name: "Liveness Analysis", Pass: new(LivenessAnalysis)},
	{Name: "Loop Analysis", Pass: new(LoopAnalysis)},
	{Name: "Register Allocation", Pass: new(RegAlloc)},
}

// BlockPartition splits the method body into basic blocks.
type BlockPartition struct{}

func (BlockPartition) Apply(fn *Func) (err error) {
	fn.Blocks, err = Partition(fn.Method)
	return
}

// StackTrees replaces the evaluation stack with expression trees.
type StackTrees struct{}

func (StackTrees) Apply(fn *Func) error {
	return BuildTrees(fn)
}

// BlockLayout orders the reached blocks by address and numbers them.
type BlockLayout struct{}

func (BlockLayout) Apply(fn *Func) error {
	fn.Layout = fn.Layout[:0]
	for _, bb := range fn.Blocks {
		if bb.Index = -1; bb.Reached {
			bb.Index = len(fn.Layout)
			fn.Layout = append(fn.Layout, bb)
		}
	}
	return nil
}

// LivenessAnalysis computes live ranges of the register candidates.
type LivenessAnalysis struct{}

func (LivenessAnalysis) Apply(fn *Func) (err error) {
	fn.Live, err = AnalyzeLiveness(fn)
	return
}

// LoopAnalysis marks loop headers and nesting depths.
type LoopAnalysis struct{}

func (LoopAnalysis) Apply(fn *Func) error {
	fn.Loops = FindLoops(fn)
	return nil
}

// RegAlloc assigns registers and writes them back onto the trees.
type RegAlloc struct{}

func (RegAlloc) Apply(fn *Func) error {
	fn.Regs = LinearScan(fn.Live.Ranges, fn.Pool)
	Annotate(fn, fn.Regs)
	return nil
}

// Compile runs every pass over m. Errors abort the compilation, and no
// partial result is returned.
func Compile(m *il.Method, o opts.Options) (*Func, error) {
	return CompileWith(m, o, nil)
}

// CompileWith is Compile with a custom call resolver.
func CompileWith(m *il.Method, o opts.Options, res Resolver) (*Func, error) {
	target, ok := LookupTarget(o.Target)
	if !ok {
		return nil, fmt.Errorf("stackjit: unknown target %q", o.Target)
	}

	/* create the function */
	fn := NewFunc(m, target, o.PoolSize())
	if res != nil {
		fn.Resolver = res
	}

	/* run all the passes */
	for _, p := range Passes {
		if err := p.Pass.Apply(fn); err != nil {
			atomic.AddUint32(&ErrorCount, 1)
			return nil, err
		}
		if o.Trace {
			stackLog.Infof("%s: after %s\n%s", fn.Name, p.Name, fn)
		}
	}

	/* record statistics */
	atomic.AddUint32(&MethodCount, 1)
	atomic.AddUint32(&BlockCount, uint32(len(fn.Layout)))
	atomic.AddUint32(&TreeCount, uint32(fn.Trees.Len()))
	atomic.AddUint32(&TempCount, uint32(fn.Vars.Temps()))
	atomic.AddUint32(&SpillCount, uint32(len(fn.Regs.Spilled())))
	return fn, nil
}
