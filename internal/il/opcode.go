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

package il

import (
	"fmt"
)

type OpCode byte

const (
	OP_nop        OpCode = iota // no operation
	OP_ldarg                    // arg[u8] -> push
	OP_starg                    // pop -> arg[u8]
	OP_ldarga                   // &arg[u8] -> push
	OP_ldloc                    // loc[u8] -> push
	OP_stloc                    // pop -> loc[u8]
	OP_ldloca                   // &loc[u8] -> push
	OP_ldc_i4                   // i32 -> push
	OP_ldc_i8                   // i64 -> push
	OP_ldc_r8                   // f64 -> push
	OP_ldnull                   // nil -> push
	OP_dup                      // top -> push
	OP_pop                      // pop
	OP_add                      // a + b
	OP_sub                      // a - b
	OP_mul                      // a * b
	OP_div                      // a / b
	OP_rem                      // a % b
	OP_and                      // a & b
	OP_or                       // a | b
	OP_xor                      // a ^ b
	OP_shl                      // a << b
	OP_shr                      // a >> b
	OP_neg                      // -a
	OP_not                      // ^a
	OP_ceq                      // a == b
	OP_clt                      // a < b
	OP_cgt                      // a > b
	OP_conv_i4                  // i4(a)
	OP_conv_i8                  // i8(a)
	OP_conv_r8                  // r8(a)
	OP_ldind_i4                 // *(*i4)(a)
	OP_ldind_i8                 // *(*i8)(a)
	OP_ldind_ref                // *(*obj)(a)
	OP_stind_i4                 // *(*i4)(a) = b
	OP_stind_i8                 // *(*i8)(a) = b
	OP_stind_ref                // *(*obj)(a) = b
	OP_call                     // call Calls[u16]
	OP_br                       // goto rel32
	OP_br_s                     // goto rel8
	OP_brtrue                   // if pop != 0 goto rel32
	OP_brtrue_s                 // if pop != 0 goto rel8
	OP_brfalse                  // if pop == 0 goto rel32
	OP_brfalse_s                // if pop == 0 goto rel8
	OP_beq                      // if a == b goto rel32
	OP_bne                      // if a != b goto rel32
	OP_blt                      // if a <  b goto rel32
	OP_bge                      // if a >= b goto rel32
	OP_switch                   // goto tab[pop] (u32 n, n * rel32), otherwise next
	OP_ret                      // return
	OP_throw                    // throw pop
	OP_rethrow                  // rethrow the current exception
	OP_leave                    // empty the stack, goto rel32
	OP_leave_s                  // empty the stack, goto rel8
	OP_endfinally               // end of finally / fault handler
	OP_endfilter                // end of filter, pop -> verdict
	OP_break                    // debugger breakpoint
)

// ImmKind describes the immediate operand layout following an opcode byte.
type ImmKind uint8

const (
	ImmNone ImmKind = iota
	ImmU8
	ImmU16
	ImmI32
	ImmI64
	ImmF64
	ImmRel8
	ImmRel32
	ImmSwitch
)

var _ImmSizes = [...]int{
	ImmNone:   0,
	ImmU8:     1,
	ImmU16:    2,
	ImmI32:    4,
	ImmI64:    8,
	ImmF64:    8,
	ImmRel8:   1,
	ImmRel32:  4,
	ImmSwitch: 4,
}

// Flow classifies how control leaves an instruction.
type Flow uint8

const (
	FlowNext   Flow = iota // falls through
	FlowCall               // falls through after a call
	FlowJump               // unconditional jump
	FlowCond               // conditional branch, falls through otherwise
	FlowSwitch             // multi-way dispatch, falls through otherwise
	FlowTerm               // return, throw or end of handler
)

// Variable marks a stack effect that depends on a signature.
const Variable = -1

// OpInfo holds the static decode metadata of an opcode.
type OpInfo struct {
	Name string
	Imm  ImmKind
	Flow Flow
	Pop  int
	Push int
}

var _OpInfo = [...]OpInfo{
	OP_nop:        {"nop", ImmNone, FlowNext, 0, 0},
	OP_ldarg:      {"ldarg", ImmU8, FlowNext, 0, 1},
	OP_starg:      {"starg", ImmU8, FlowNext, 1, 0},
	OP_ldarga:     {"ldarga", ImmU8, FlowNext, 0, 1},
	OP_ldloc:      {"ldloc", ImmU8, FlowNext, 0, 1},
	OP_stloc:      {"stloc", ImmU8, FlowNext, 1, 0},
	OP_ldloca:     {"ldloca", ImmU8, FlowNext, 0, 1},
	OP_ldc_i4:     {"ldc.i4", ImmI32, FlowNext, 0, 1},
	OP_ldc_i8:     {"ldc.i8", ImmI64, FlowNext, 0, 1},
	OP_ldc_r8:     {"ldc.r8", ImmF64, FlowNext, 0, 1},
	OP_ldnull:     {"ldnull", ImmNone, FlowNext, 0, 1},
	OP_dup:        {"dup", ImmNone, FlowNext, 1, 2},
	OP_pop:        {"pop", ImmNone, FlowNext, 1, 0},
	OP_add:        {"add", ImmNone, FlowNext, 2, 1},
	OP_sub:        {"sub", ImmNone, FlowNext, 2, 1},
	OP_mul:        {"mul", ImmNone, FlowNext, 2, 1},
	OP_div:        {"div", ImmNone, FlowNext, 2, 1},
	OP_rem:        {"rem", ImmNone, FlowNext, 2, 1},
	OP_and:        {"and", ImmNone, FlowNext, 2, 1},
	OP_or:         {"or", ImmNone, FlowNext, 2, 1},
	OP_xor:        {"xor", ImmNone, FlowNext, 2, 1},
	OP_shl:        {"shl", ImmNone, FlowNext, 2, 1},
	OP_shr:        {"shr", ImmNone, FlowNext, 2, 1},
	OP_neg:        {"neg", ImmNone, FlowNext, 1, 1},
	OP_not:        {"not", ImmNone, FlowNext, 1, 1},
	OP_ceq:        {"ceq", ImmNone, FlowNext, 2, 1},
	OP_clt:        {"clt", ImmNone, FlowNext, 2, 1},
	OP_cgt:        {"cgt", ImmNone, FlowNext, 2, 1},
	OP_conv_i4:    {"conv.i4", ImmNone, FlowNext, 1, 1},
	OP_conv_i8:    {"conv.i8", ImmNone, FlowNext, 1, 1},
	OP_conv_r8:    {"conv.r8", ImmNone, FlowNext, 1, 1},
	OP_ldind_i4:   {"ldind.i4", ImmNone, FlowNext, 1, 1},
	OP_ldind_i8:   {"ldind.i8", ImmNone, FlowNext, 1, 1},
	OP_ldind_ref:  {"ldind.ref", ImmNone, FlowNext, 1, 1},
	OP_stind_i4:   {"stind.i4", ImmNone, FlowNext, 2, 0},
	OP_stind_i8:   {"stind.i8", ImmNone, FlowNext, 2, 0},
	OP_stind_ref:  {"stind.ref", ImmNone, FlowNext, 2, 0},
	OP_call:       {"call", ImmU16, FlowCall, Variable, Variable},
	OP_br:         {"br", ImmRel32, FlowJump, 0, 0},
	OP_br_s:       {"br.s", ImmRel8, FlowJump, 0, 0},
	OP_brtrue:     {"brtrue", ImmRel32, FlowCond, 1, 0},
	OP_brtrue_s:   {"brtrue.s", ImmRel8, FlowCond, 1, 0},
	OP_brfalse:    {"brfalse", ImmRel32, FlowCond, 1, 0},
	OP_brfalse_s:  {"brfalse.s", ImmRel8, FlowCond, 1, 0},
	OP_beq:        {"beq", ImmRel32, FlowCond, 2, 0},
	OP_bne:        {"bne", ImmRel32, FlowCond, 2, 0},
	OP_blt:        {"blt", ImmRel32, FlowCond, 2, 0},
	OP_bge:        {"bge", ImmRel32, FlowCond, 2, 0},
	OP_switch:     {"switch", ImmSwitch, FlowSwitch, 1, 0},
	OP_ret:        {"ret", ImmNone, FlowTerm, Variable, 0},
	OP_throw:      {"throw", ImmNone, FlowTerm, 1, 0},
	OP_rethrow:    {"rethrow", ImmNone, FlowTerm, 0, 0},
	OP_leave:      {"leave", ImmRel32, FlowJump, 0, 0},
	OP_leave_s:    {"leave.s", ImmRel8, FlowJump, 0, 0},
	OP_endfinally: {"endfinally", ImmNone, FlowTerm, 0, 0},
	OP_endfilter:  {"endfilter", ImmNone, FlowTerm, 1, 0},
	OP_break:      {"break", ImmNone, FlowNext, 0, 0},
}

// LookupOp returns the decode metadata of an opcode, ok is false for unknown opcodes.
func LookupOp(op OpCode) (OpInfo, bool) {
	if int(op) < len(_OpInfo) {
		return _OpInfo[op], true
	} else {
		return OpInfo{}, false
	}
}

// ParseOp finds an opcode by its mnemonic.
func ParseOp(name string) (OpCode, bool) {
	for i, v := range _OpInfo {
		if v.Name == name {
			return OpCode(i), true
		}
	}
	return 0, false
}

func (self OpCode) Info() OpInfo {
	if v, ok := LookupOp(self); !ok {
		panic(fmt.Sprintf("il: invalid OpCode: 0x%02x", byte(self)))
	} else {
		return v
	}
}

func (self OpCode) String() string {
	if v, ok := LookupOp(self); ok {
		return v.Name
	} else {
		return fmt.Sprintf("op(0x%02x)", byte(self))
	}
}

// IsLeave reports whether the opcode empties the operand stack before jumping.
func (self OpCode) IsLeave() bool {
	return self == OP_leave || self == OP_leave_s
}
