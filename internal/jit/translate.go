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
)

var _BinaryOps = map[il.OpCode]Op{
	il.OP_add: OpAdd,
	il.OP_sub: OpSub,
	il.OP_mul: OpMul,
	il.OP_div: OpDiv,
	il.OP_rem: OpRem,
	il.OP_and: OpAnd,
	il.OP_or:  OpOr,
	il.OP_xor: OpXor,
	il.OP_shl: OpShl,
	il.OP_shr: OpShr,
	il.OP_ceq: OpCeq,
	il.OP_clt: OpClt,
	il.OP_cgt: OpCgt,
}

var _ConvTypes = map[il.OpCode]il.ValueType{
	il.OP_conv_i4: il.I4,
	il.OP_conv_i8: il.I8,
	il.OP_conv_r8: il.R8,
}

var _IndirectTypes = map[il.OpCode]il.ValueType{
	il.OP_ldind_i4:  il.I4,
	il.OP_ldind_i8:  il.I8,
	il.OP_ldind_ref: il.Obj,
	il.OP_stind_i4:  il.I4,
	il.OP_stind_i8:  il.I8,
	il.OP_stind_ref: il.Obj,
}

type _CondBranch struct {
	cmp  Op
	when bool
}

var _CondBranches = map[il.OpCode]_CondBranch{
	il.OP_beq: {OpCeq, true},
	il.OP_bne: {OpCeq, false},
	il.OP_blt: {OpClt, true},
	il.OP_bge: {OpClt, false},
}

func arithType(a il.ValueType, b il.ValueType) il.ValueType {
	switch {
	case a == il.Ptr || b == il.Ptr:
		return il.Ptr
	case a == il.R8 || b == il.R8:
		return il.R8
	case a == il.I8 || b == il.I8:
		return il.I8
	default:
		return a
	}
}

func boolFlag(v bool) int64 {
	if v {
		return 1
	} else {
		return 0
	}
}

// translate folds one instruction into the evaluation stack of the current
// block. It reports true once the block terminator has been handled.
func (self *_StackBuilder) translate(ins *il.Instr) (bool, error) {
	pc := ins.Pc
	trees := self.fn.Trees

	/* binary operators */
	if op, ok := _BinaryOps[ins.Op]; ok {
		args, err := self.popn(pc, 2)
		if err != nil {
			return false, err
		}

		/* comparisons produce a boolean int32 */
		vt := il.I4
		switch op {
		case OpCeq, OpClt, OpCgt:
			break
		case OpShl, OpShr:
			vt = self.typeOf(args[0])
		default:
			vt = arithType(self.typeOf(args[0]), self.typeOf(args[1]))
		}

		/* push the result */
		self.push(trees.Binary(pc, op, vt, args[0], args[1]))
		return false, nil
	}

	/* conditional compare-and-branch */
	if cb, ok := _CondBranches[ins.Op]; ok {
		args, err := self.popn(pc, 2)
		if err != nil {
			return true, err
		}
		cmp := trees.Binary(pc, cb.cmp, il.I4, args[0], args[1])
		return true, self.cond(ins, cmp, cb.when)
	}

	/* all other instructions */
	switch ins.Op {
	case il.OP_nop:
		return false, nil

	case il.OP_break:
		return false, eunsupp(self.fn.Name, pc, "no translation rule for %s", ins.Op)

	case il.OP_ldarg, il.OP_ldloc:
		v, err := self.slot(ins)
		if err != nil {
			return false, err
		}
		self.push(trees.LoadVar(pc, self.fn.Vars.At(v).Type, v))
		return false, nil

	case il.OP_ldarga, il.OP_ldloca:
		v, err := self.slot(ins)
		if err != nil {
			return false, err
		}
		self.push(trees.Addr(pc, v))
		return false, nil

	case il.OP_starg, il.OP_stloc:
		v, err := self.slot(ins)
		if err != nil {
			return false, err
		}
		x, err := self.pop(pc)
		if err != nil {
			return false, err
		}
		self.emit(trees.StoreVar(pc, v, x))
		return false, nil

	case il.OP_ldc_i4:
		self.push(trees.Const(pc, il.I4, ins.Iv))
		return false, nil

	case il.OP_ldc_i8:
		self.push(trees.Const(pc, il.I8, ins.Iv))
		return false, nil

	case il.OP_ldc_r8:
		self.push(trees.ConstF(pc, ins.Fv))
		return false, nil

	case il.OP_ldnull:
		self.push(trees.Null(pc))
		return false, nil

	case il.OP_dup:
		return false, self.dup(pc)

	case il.OP_pop:
		x, err := self.pop(pc)
		if err != nil {
			return false, err
		}
		if trees.HasSideEffects(x) {
			self.emit(trees.Unary(pc, OpDiscard, il.Void, x))
		}
		return false, nil

	case il.OP_neg, il.OP_not:
		x, err := self.pop(pc)
		if err != nil {
			return false, err
		}
		op := OpNeg
		if ins.Op == il.OP_not {
			op = OpNot
		}
		self.push(trees.Unary(pc, op, self.typeOf(x), x))
		return false, nil

	case il.OP_conv_i4, il.OP_conv_i8, il.OP_conv_r8:
		x, err := self.pop(pc)
		if err != nil {
			return false, err
		}
		self.push(trees.Unary(pc, OpConv, _ConvTypes[ins.Op], x))
		return false, nil

	case il.OP_ldind_i4, il.OP_ldind_i8, il.OP_ldind_ref:
		x, err := self.pop(pc)
		if err != nil {
			return false, err
		}
		self.push(trees.Unary(pc, OpLoad, _IndirectTypes[ins.Op], x))
		return false, nil

	case il.OP_stind_i4, il.OP_stind_i8, il.OP_stind_ref:
		args, err := self.popn(pc, 2)
		if err != nil {
			return false, err
		}
		self.emit(trees.Binary(pc, OpStore, il.Void, args[0], args[1]))
		return false, nil

	case il.OP_call:
		return false, self.call(ins)

	case il.OP_br, il.OP_br_s:
		t := self.target(ins.Br[0])
		return true, self.edges(pc, trees.Jump(pc, OpBr, Nil, []int{t}), []int{t})

	case il.OP_brtrue, il.OP_brtrue_s, il.OP_brfalse, il.OP_brfalse_s:
		x, err := self.pop(pc)
		if err != nil {
			return true, err
		}
		return true, self.cond(ins, x, ins.Op == il.OP_brtrue || ins.Op == il.OP_brtrue_s)

	case il.OP_switch:
		x, err := self.pop(pc)
		if err != nil {
			return true, err
		}
		tab := make([]int, 0, len(ins.Br)+1)
		for _, to := range ins.Br {
			tab = append(tab, self.target(to))
		}
		tab = append(tab, self.target(ins.Next()))
		return true, self.edges(pc, trees.Jump(pc, OpSwitch, x, tab), tab)

	case il.OP_leave, il.OP_leave_s:
		self.flush(pc)
		t := self.target(ins.Br[0])
		return true, self.edges(pc, trees.Jump(pc, OpLeave, Nil, []int{t}), []int{t})

	case il.OP_ret:
		return true, self.ret(pc)

	case il.OP_throw:
		x, err := self.pop(pc)
		if err != nil {
			return true, err
		}
		self.emit(trees.Jump(pc, OpThrow, x, nil))
		self.stack = self.stack[:0]
		return true, nil

	case il.OP_rethrow:
		self.emit(trees.Jump(pc, OpRethrow, Nil, nil))
		self.stack = self.stack[:0]
		return true, nil

	case il.OP_endfinally:
		if len(self.stack) != 0 {
			return true, estack(self.fn.Name, pc, "%d values left on the stack at endfinally", len(self.stack))
		}
		self.root(trees.Jump(pc, OpEndFinally, Nil, nil))
		return true, nil

	case il.OP_endfilter:
		x, err := self.pop(pc)
		if err != nil {
			return true, err
		}
		if len(self.stack) != 0 {
			return true, estack(self.fn.Name, pc, "%d values left on the stack at endfilter", len(self.stack))
		}
		self.root(trees.Jump(pc, OpEndFilter, x, nil))
		return true, nil

	default:
		return false, eunsupp(self.fn.Name, pc, "no translation rule for %s", ins.Op)
	}
}

func (self *_StackBuilder) cond(ins *il.Instr, x Ref, when bool) error {
	tab := []int{self.target(ins.Br[0]), self.target(ins.Next())}
	jmp := self.fn.Trees.Jump(ins.Pc, OpBrCond, x, tab)
	self.fn.Trees.At(jmp).Iv = boolFlag(when)
	return self.edges(ins.Pc, jmp, tab)
}

func (self *_StackBuilder) dup(pc int) error {
	x, err := self.pop(pc)
	if err != nil {
		return err
	}

	/* stable values are simply re-read */
	if self.fn.Trees.IsStable(x) {
		self.push(x)
		self.push(self.fn.Trees.Clone(pc, x))
		return nil
	}

	/* otherwise evaluate once into a temporary */
	v := self.spill(pc, x)
	self.push(v)
	self.push(self.fn.Trees.Clone(pc, v))
	return nil
}

func (self *_StackBuilder) call(ins *il.Instr) error {
	sig, ok := self.fn.Resolver.Resolve(int(ins.Iv))
	if !ok {
		return eunsupp(self.fn.Name, ins.Pc, "unresolved call token %d", ins.Iv)
	}

	/* arguments are pushed left to right */
	args, err := self.popn(ins.Pc, len(sig.Args))
	if err != nil {
		return err
	}

	/* void calls are statements, others produce a value */
	if r := self.fn.Trees.Call(ins.Pc, int(ins.Iv), sig.Ret, args); sig.Ret == il.Void {
		self.emit(r)
	} else {
		self.push(r)
	}
	return nil
}

func (self *_StackBuilder) ret(pc int) error {
	x := Nil
	trees := self.fn.Trees

	/* pop the return value */
	if self.method().Ret != il.Void {
		if r, err := self.pop(pc); err != nil {
			return err
		} else {
			x = r
		}
	}

	/* nothing else may be left behind */
	if len(self.stack) != 0 {
		return estack(self.fn.Name, pc, "%d values left on the stack at ret", len(self.stack))
	}

	/* add the return statement */
	self.emit(trees.Jump(pc, OpRet, x, nil))
	return nil
}

// flush empties the stack, keeping the side effects of discarded values.
func (self *_StackBuilder) flush(pc int) {
	stack := self.stack
	self.stack = nil

	/* discard in evaluation order */
	for _, e := range stack {
		if self.fn.Trees.HasSideEffects(e) {
			self.root(self.fn.Trees.Unary(pc, OpDiscard, il.Void, e))
		}
	}

	/* keep the buffer */
	self.stack = stack[:0]
}
