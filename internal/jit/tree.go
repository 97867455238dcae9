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
	"strings"

	"github.com/cloudwego/stackjit/internal/il"
)

type Op uint8

const (
	OpConst   Op = iota // integer constant: Iv
	OpConstF            // float constant: Fv
	OpNull              // null reference
	OpAddr              // address of a variable: Var
	OpLoad              // *Left
	OpAdd               // Left + Right
	OpSub               // Left - Right
	OpMul               // Left * Right
	OpDiv               // Left / Right
	OpRem               // Left % Right
	OpAnd               // Left & Right
	OpOr                // Left | Right
	OpXor               // Left ^ Right
	OpShl               // Left << Right
	OpShr               // Left >> Right
	OpNeg               // -Left
	OpNot               // ^Left
	OpCeq               // Left == Right
	OpClt               // Left < Right
	OpCgt               // Left > Right
	OpConv              // Type(Left)
	OpCall              // call Iv(Args...)
	OpStore             // *Left = Right
	OpDiscard           // evaluate Left for its side effects
	OpBr                // goto Targets[0]
	OpBrCond            // if bool(Left) == bool(Iv) goto Targets[0] else Targets[1]
	OpSwitch            // goto Targets[Left], otherwise the last target
	OpLeave             // goto Targets[0], leaving protected regions
	OpRet               // return Left (if any)
	OpThrow             // throw Left
	OpRethrow           // rethrow the current exception
	OpEndFinally        // end of a finally or fault handler
	OpEndFilter         // end of a filter, Left is the verdict
)

type _OpClass uint8

const (
	_C_leaf _OpClass = iota
	_C_unary
	_C_binary
	_C_call
	_C_stmt
)

type _OpInfo struct {
	name  string
	class _OpClass
	stmt  bool
}

var _OpTab = [...]_OpInfo{
	OpConst:      {"const", _C_leaf, false},
	OpConstF:     {"constf", _C_leaf, false},
	OpNull:       {"null", _C_leaf, false},
	OpAddr:       {"addr", _C_leaf, false},
	OpLoad:       {"load", _C_unary, false},
	OpAdd:        {"add", _C_binary, false},
	OpSub:        {"sub", _C_binary, false},
	OpMul:        {"mul", _C_binary, false},
	OpDiv:        {"div", _C_binary, false},
	OpRem:        {"rem", _C_binary, false},
	OpAnd:        {"and", _C_binary, false},
	OpOr:         {"or", _C_binary, false},
	OpXor:        {"xor", _C_binary, false},
	OpShl:        {"shl", _C_binary, false},
	OpShr:        {"shr", _C_binary, false},
	OpNeg:        {"neg", _C_unary, false},
	OpNot:        {"not", _C_unary, false},
	OpCeq:        {"ceq", _C_binary, false},
	OpClt:        {"clt", _C_binary, false},
	OpCgt:        {"cgt", _C_binary, false},
	OpConv:       {"conv", _C_unary, false},
	OpCall:       {"call", _C_call, false},
	OpStore:      {"store", _C_binary, true},
	OpDiscard:    {"discard", _C_unary, true},
	OpBr:         {"br", _C_leaf, true},
	OpBrCond:     {"brcond", _C_unary, true},
	OpSwitch:     {"switch", _C_unary, true},
	OpLeave:      {"leave", _C_leaf, true},
	OpRet:        {"ret", _C_unary, true},
	OpThrow:      {"throw", _C_unary, true},
	OpRethrow:    {"rethrow", _C_leaf, true},
	OpEndFinally: {"endfinally", _C_leaf, true},
	OpEndFilter:  {"endfilter", _C_unary, true},
}

func (self Op) String() string {
	if int(self) < len(_OpTab) {
		return _OpTab[self].name
	} else {
		return fmt.Sprintf("op(%d)", self)
	}
}

// IsStatement reports whether nodes of this operator only appear as forest roots.
func (self Op) IsStatement() bool {
	return _OpTab[self].stmt
}

// IsBranch reports whether the operator transfers control.
func (self Op) IsBranch() bool {
	return self >= OpBr && self <= OpLeave
}

// Ref is the index of a node in the Forest arena.
type Ref int32

const Nil Ref = -1

// Node is one expression tree node. The operator selects which payload fields
// are meaningful, see the comments on the Op constants.
type Node struct {
	Op      Op
	Type    il.ValueType
	Pc      int
	Left    Ref
	Right   Ref
	Args    []Ref
	Var     VarID
	Iv      int64
	Fv      float64
	Targets []int
	Reg     Register
}

// Forest is the node arena of one compilation. Nodes are never freed, and
// every node is owned by exactly one parent or root.
type Forest struct {
	nodes []Node
}

func NewForest() *Forest {
	return &Forest{nodes: make([]Node, 0, 256)}
}

func (self *Forest) alloc(n Node) Ref {
	self.nodes = append(self.nodes, n)
	return Ref(len(self.nodes) - 1)
}

// At returns the node for ref. The pointer is invalidated by further allocations.
func (self *Forest) At(r Ref) *Node {
	return &self.nodes[r]
}

func (self *Forest) Len() int {
	return len(self.nodes)
}

func (self *Forest) Const(pc int, vt il.ValueType, v int64) Ref {
	return self.alloc(Node{Op: OpConst, Type: vt, Pc: pc, Left: Nil, Right: Nil, Var: NoVar, Iv: v, Reg: RegNone})
}

func (self *Forest) ConstF(pc int, v float64) Ref {
	return self.alloc(Node{Op: OpConstF, Type: il.R8, Pc: pc, Left: Nil, Right: Nil, Var: NoVar, Fv: v, Reg: RegNone})
}

func (self *Forest) Null(pc int) Ref {
	return self.alloc(Node{Op: OpNull, Type: il.Obj, Pc: pc, Left: Nil, Right: Nil, Var: NoVar, Reg: RegNone})
}

func (self *Forest) Addr(pc int, v VarID) Ref {
	return self.alloc(Node{Op: OpAddr, Type: il.Ptr, Pc: pc, Left: Nil, Right: Nil, Var: v, Reg: RegNone})
}

func (self *Forest) Unary(pc int, op Op, vt il.ValueType, x Ref) Ref {
	return self.alloc(Node{Op: op, Type: vt, Pc: pc, Left: x, Right: Nil, Var: NoVar, Reg: RegNone})
}

func (self *Forest) Binary(pc int, op Op, vt il.ValueType, x Ref, y Ref) Ref {
	return self.alloc(Node{Op: op, Type: vt, Pc: pc, Left: x, Right: y, Var: NoVar, Reg: RegNone})
}

func (self *Forest) Call(pc int, token int, vt il.ValueType, args []Ref) Ref {
	return self.alloc(Node{Op: OpCall, Type: vt, Pc: pc, Left: Nil, Right: Nil, Args: args, Var: NoVar, Iv: int64(token), Reg: RegNone})
}

func (self *Forest) Jump(pc int, op Op, x Ref, targets []int) Ref {
	return self.alloc(Node{Op: op, Type: il.Void, Pc: pc, Left: x, Right: Nil, Var: NoVar, Targets: targets, Reg: RegNone})
}

// LoadVar builds a load from the address of v.
func (self *Forest) LoadVar(pc int, vt il.ValueType, v VarID) Ref {
	return self.Unary(pc, OpLoad, vt, self.Addr(pc, v))
}

// StoreVar builds a store of x into v.
func (self *Forest) StoreVar(pc int, v VarID, x Ref) Ref {
	return self.Binary(pc, OpStore, il.Void, self.Addr(pc, v), x)
}

// LoadedVar returns the variable r reads if r is a plain load of a variable.
func (self *Forest) LoadedVar(r Ref) VarID {
	if p := self.At(r); p.Op != OpLoad {
		return NoVar
	} else if q := self.At(p.Left); q.Op != OpAddr {
		return NoVar
	} else {
		return q.Var
	}
}

// IsStable reports whether r can be evaluated twice with the same result and no
// side effects: a constant or a load from a variable address.
func (self *Forest) IsStable(r Ref) bool {
	switch self.At(r).Op {
	case OpConst, OpConstF, OpNull:
		return true
	default:
		return self.LoadedVar(r) != NoVar
	}
}

// Clone duplicates a stable tree into fresh nodes.
func (self *Forest) Clone(pc int, r Ref) Ref {
	p := *self.At(r)
	p.Pc = pc

	/* leaves are copied as is */
	if p.Op != OpLoad {
		return self.alloc(p)
	}

	/* loads are re-read from the same address */
	p.Left = self.Clone(pc, p.Left)
	return self.alloc(p)
}

// Children returns the operands of r in evaluation order.
func (self *Forest) Children(r Ref) []Ref {
	p := self.At(r)
	switch _OpTab[p.Op].class {
	case _C_unary:
		if p.Left != Nil {
			return []Ref{p.Left}
		}
	case _C_binary:
		return []Ref{p.Left, p.Right}
	case _C_call:
		return p.Args
	}
	return nil
}

// Walk visits r in evaluation order, operands before their parent. Returning
// false from fn skips the operands of that node.
func (self *Forest) Walk(r Ref, pre func(Ref) bool, post func(Ref)) {
	if pre == nil || pre(r) {
		for _, c := range self.Children(r) {
			self.Walk(c, pre, post)
		}
	}
	if post != nil {
		post(r)
	}
}

// HasSideEffects reports whether evaluating r may trap, call out, or read
// memory through a computed address.
func (self *Forest) HasSideEffects(r Ref) bool {
	ret := false
	self.Walk(r, nil, func(x Ref) {
		switch p := self.At(x); p.Op {
		case OpCall, OpDiv, OpRem:
			ret = true
		case OpLoad:
			ret = ret || self.At(p.Left).Op != OpAddr
		}
	})
	return ret
}

// Reads reports whether r loads from any variable accepted by fn.
func (self *Forest) Reads(r Ref, fn func(VarID) bool) bool {
	ret := false
	self.Walk(r, nil, func(x Ref) {
		if p := self.At(x); p.Op == OpAddr && fn(p.Var) {
			ret = true
		}
	})
	return ret
}

// Format renders r as an s-expression, variables are named through vars.
func (self *Forest) Format(r Ref, vars *VarTable) string {
	p := self.At(r)
	args := make([]string, 0, 4)

	/* node payload */
	switch p.Op {
	case OpConst:
		args = append(args, fmt.Sprintf("%s %d", p.Type, p.Iv))
	case OpConstF:
		args = append(args, fmt.Sprintf("%g", p.Fv))
	case OpAddr:
		if p.Reg != RegNone {
			args = append(args, fmt.Sprintf("%s @%s", vars.Name(p.Var), p.Reg))
		} else {
			args = append(args, vars.Name(p.Var))
		}
	case OpCall:
		args = append(args, fmt.Sprintf("#%d", p.Iv))
	case OpConv, OpLoad:
		args = append(args, p.Type.String())
	case OpBrCond:
		args = append(args, fmt.Sprintf("%t", p.Iv != 0))
	}

	/* operands */
	for _, c := range self.Children(r) {
		args = append(args, self.Format(c, vars))
	}

	/* branch targets */
	for _, t := range p.Targets {
		args = append(args, fmt.Sprintf("bb_%d", t))
	}

	/* compose the result */
	if len(args) == 0 {
		return "(" + p.Op.String() + ")"
	} else {
		return "(" + p.Op.String() + " " + strings.Join(args, " ") + ")"
	}
}
