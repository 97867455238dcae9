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
	"github.com/cloudwego/stackjit/internal/il"
	"github.com/oleiade/lane"
	"github.com/tliron/commonlog"
)

var stackLog = commonlog.GetLogger("stackjit.stack")

// Resolver maps call tokens to callee signatures.
type Resolver interface {
	Resolve(token int) (il.Signature, bool)
}

// MethodResolver resolves call tokens through the signature table of the method.
type MethodResolver struct {
	Method *il.Method
}

func (self MethodResolver) Resolve(token int) (il.Signature, bool) {
	if token < 0 || token >= len(self.Method.Calls) {
		return il.Signature{}, false
	} else {
		return self.Method.Calls[token], true
	}
}

type _StackBuilder struct {
	fn    *Func
	bb    *BasicBlock
	index map[int]int
	queue *lane.Queue
	stack []Ref
	steps int
}

// BuildTrees replays the evaluation stack of every reachable block and turns
// the bytecode into expression trees. Blocks are processed from a worklist;
// every block is translated at most once.
func BuildTrees(fn *Func) error {
	self := &_StackBuilder{
		fn:    fn,
		index: blockIndex(fn.Blocks),
		queue: lane.NewQueue(),
		stack: make([]Ref, 0, 16),
	}

	/* address-taken variables must be known before any tree is built */
	if err := self.addressTaken(); err != nil {
		return err
	}

	/* seed with the entry and the handler entries */
	if err := self.seed(); err != nil {
		return err
	}

	/* process until the worklist drains */
	for !self.queue.Empty() {
		bb := fn.Blocks[self.queue.Dequeue().(int)]

		/* each block is enqueued at most once */
		if bb.Finished {
			continue
		}

		/* guard against a broken reachability state */
		if self.steps++; self.steps > len(fn.Blocks) {
			return eflow(fn.Name, bb.Start, "reachability did not converge")
		}

		/* translate the block */
		if err := self.block(bb); err != nil {
			return err
		}

		/* mark as finished */
		bb.Finished = true
		stackLog.Debugf("%s: %s, %d roots", fn.Name, bb, len(bb.Roots))
	}

	/* unreached blocks are dead code */
	for _, bb := range fn.Blocks {
		if !bb.Reached {
			stackLog.Debugf("%s: bb_%d at IL_%04x is unreachable", fn.Name, bb.Id, bb.Start)
		}
	}
	return nil
}

func (self *_StackBuilder) method() *il.Method {
	return self.fn.Method
}

func (self *_StackBuilder) addressTaken() error {
	m := self.method()
	for pc := 0; pc < len(m.Code); {
		ins, err := il.Decode(m.Code, pc)
		if err != nil {
			return eunsupp(m.Name, pc, "%v", err)
		}

		/* only the address-of opcodes escape a slot */
		if ins.Op == il.OP_ldarga || ins.Op == il.OP_ldloca {
			if v, err := self.slot(&ins); err != nil {
				return err
			} else {
				self.fn.Vars.At(v).AddrTaken = true
			}
		}

		/* move to the next instruction */
		pc = ins.Next()
	}
	return nil
}

func (self *_StackBuilder) seed() error {
	entry := self.fn.Blocks[0]
	entry.setShape(nil)
	self.queue.Enqueue(entry.Id)

	/* handler entries start with the exception object, or with nothing */
	for _, r := range self.method().Regions {
		if r.Kind == il.Filter {
			if err := self.seedHandler(r.FilterStart, true); err != nil {
				return err
			}
		}
		if err := self.seedHandler(r.HandlerStart, r.HasExceptionObject()); err != nil {
			return err
		}
	}
	return nil
}

func (self *_StackBuilder) seedHandler(pc int, exc bool) error {
	var shape []VarID
	bb := self.fn.Blocks[self.index[pc]]

	/* exception object slot */
	if exc {
		shape = []VarID{self.fn.Vars.NewTemp(il.Obj)}
	}

	/* handlers shared between regions must agree on the shape */
	if bb.HasShape() {
		if len(bb.Entry) != len(shape) {
			return estack(self.fn.Name, pc, "handler entry reached with depth %d and %d", len(bb.Entry), len(shape))
		} else {
			return nil
		}
	}

	/* fix the shape and enqueue */
	bb.setShape(shape)
	self.queue.Enqueue(bb.Id)
	return nil
}

func (self *_StackBuilder) slot(ins *il.Instr) (VarID, error) {
	i := int(ins.Iv)
	m := self.method()

	/* select the slot space */
	switch ins.Op {
	case il.OP_ldarg, il.OP_starg, il.OP_ldarga:
		if i < 0 || i >= len(m.Args) {
			return NoVar, eunsupp(m.Name, ins.Pc, "argument %d out of range", i)
		} else {
			return self.fn.Vars.Arg(i), nil
		}
	case il.OP_ldloc, il.OP_stloc, il.OP_ldloca:
		if i < 0 || i >= len(m.Locals) {
			return NoVar, eunsupp(m.Name, ins.Pc, "local %d out of range", i)
		} else {
			return self.fn.Vars.Local(i), nil
		}
	default:
		panic("slot: not a variable instruction: " + ins.Op.String())
	}
}

func (self *_StackBuilder) block(bb *BasicBlock) error {
	m := self.method()
	self.bb = bb
	self.stack = self.stack[:0]

	/* materialize the entry shape as fresh loads */
	for _, v := range bb.Entry {
		self.push(self.fn.Trees.LoadVar(bb.Start, self.fn.Vars.At(v).Type, v))
	}

	/* translate every instruction */
	for pc := bb.Start; pc < bb.End(); {
		ins, err := il.Decode(m.Code, pc)
		if err != nil {
			return eunsupp(m.Name, pc, "%v", err)
		}

		/* the block ends at a control transfer */
		if done, err := self.translate(&ins); err != nil {
			return err
		} else if done {
			return nil
		}

		/* move to the next instruction */
		pc = ins.Next()
	}

	/* fall through into the next block */
	return self.edges(bb.End(), Nil, []int{self.index[bb.End()]})
}

func (self *_StackBuilder) push(r Ref) {
	self.stack = append(self.stack, r)
}

func (self *_StackBuilder) pop(pc int) (Ref, error) {
	n := len(self.stack)
	if n == 0 {
		return Nil, estack(self.fn.Name, pc, "evaluation stack underflow")
	}
	ret := self.stack[n-1]
	self.stack = self.stack[:n-1]
	return ret, nil
}

func (self *_StackBuilder) popn(pc int, n int) ([]Ref, error) {
	if len(self.stack) < n {
		return nil, estack(self.fn.Name, pc, "evaluation stack underflow, need %d, have %d", n, len(self.stack))
	}
	p := len(self.stack) - n
	ret := append([]Ref(nil), self.stack[p:]...)
	self.stack = self.stack[:p]
	return ret, nil
}

func (self *_StackBuilder) typeOf(r Ref) il.ValueType {
	return self.fn.Trees.At(r).Type
}

func (self *_StackBuilder) target(pc int) int {
	return self.index[pc]
}

func (self *_StackBuilder) root(r Ref) {
	self.bb.Roots = append(self.bb.Roots, r)
}

// emit appends a statement root after forcing every pending stack entry that
// the statement could observe or disturb into a temporary.
func (self *_StackBuilder) emit(r Ref) {
	self.commit(r)
	self.root(r)
}

func (self *_StackBuilder) commit(r Ref) {
	kill := NoVar
	trees := self.fn.Trees

	/* direct variable stores only clobber that variable */
	if p := trees.At(r); p.Op == OpStore && trees.At(p.Left).Op == OpAddr {
		kill = trees.At(p.Left).Var
	}

	/* everything else may write memory through a pointer */
	for i, e := range self.stack {
		if self.clobbered(e, kill) {
			self.stack[i] = self.detach(trees.At(r).Pc, e)
		}
	}
}

func (self *_StackBuilder) clobbered(e Ref, kill VarID) bool {
	trees := self.fn.Trees
	vars := self.fn.Vars

	/* side effects must happen before the statement */
	if trees.HasSideEffects(e) {
		return true
	}

	/* the statement overwrites a variable the entry reads */
	if kill != NoVar {
		return trees.Reads(e, func(v VarID) bool { return v == kill })
	}

	/* indirect writes may reach any address-taken variable */
	return trees.Reads(e, func(v VarID) bool { return vars.At(v).AddrTaken })
}

// detach evaluates e into a fresh temporary and returns a load of it.
func (self *_StackBuilder) detach(pc int, e Ref) Ref {
	vt := self.typeOf(e)
	tmp := self.fn.Vars.NewTemp(vt)
	self.root(self.fn.Trees.StoreVar(pc, tmp, e))
	return self.fn.Trees.LoadVar(pc, vt, tmp)
}

// spill is detach with the ordering constraints of emit applied first.
func (self *_StackBuilder) spill(pc int, e Ref) Ref {
	vt := self.typeOf(e)
	tmp := self.fn.Vars.NewTemp(vt)
	self.emit(self.fn.Trees.StoreVar(pc, tmp, e))
	return self.fn.Trees.LoadVar(pc, vt, tmp)
}
