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
	"encoding/binary"
	"fmt"
	"math"
	"sort"
)

type _Fixup struct {
	pos  int
	size int
	base int
}

// Builder emits bytecode and patches branch labels, both backward and forward.
type Builder struct {
	buf   []byte
	refs  map[string]int
	pends map[string][]_Fixup
}

func NewBuilder() *Builder {
	return &Builder{
		buf:   make([]byte, 0, 64),
		refs:  make(map[string]int),
		pends: make(map[string][]_Fixup),
	}
}

// Pc returns the offset of the next instruction.
func (self *Builder) Pc() int {
	return len(self.buf)
}

func (self *Builder) op(op OpCode, imm ImmKind) {
	if info, ok := LookupOp(op); !ok {
		panic(fmt.Sprintf("il: invalid OpCode: 0x%02x", byte(op)))
	} else if info.Imm != imm {
		panic(fmt.Sprintf("il: %s does not take this kind of operand", op))
	} else {
		self.buf = append(self.buf, byte(op))
	}
}

func (self *Builder) patch(fx _Fixup, to int) {
	rel := to - fx.base
	switch fx.size {
	case 1:
		if rel < math.MinInt8 || rel > math.MaxInt8 {
			panic(fmt.Sprintf("il: short branch at IL_%04x out of range", fx.pos-1))
		}
		self.buf[fx.pos] = byte(int8(rel))
	case 4:
		binary.LittleEndian.PutUint32(self.buf[fx.pos:], uint32(int32(rel)))
	}
}

func (self *Builder) ref(to string, fx _Fixup) {
	if pc, ok := self.refs[to]; ok {
		self.patch(fx, pc)
	} else {
		self.pends[to] = append(self.pends[to], fx)
	}
}

// Label binds a name to the current offset and patches pending references.
func (self *Builder) Label(to string) {
	if _, ok := self.refs[to]; ok {
		panic("label " + to + " has already been linked")
	}

	/* patch all the pending jumps */
	pc := self.Pc()
	for _, fx := range self.pends[to] {
		self.patch(fx, pc)
	}

	/* mark the label as resolved */
	self.refs[to] = pc
	delete(self.pends, to)
}

// Labels returns the resolved label offsets.
func (self *Builder) Labels() map[string]int {
	ret := make(map[string]int, len(self.refs))
	for k, v := range self.refs {
		ret[k] = v
	}
	return ret
}

// Pending returns the names of referenced but not yet bound labels.
func (self *Builder) Pending() []string {
	ret := make([]string, 0, len(self.pends))
	for k := range self.pends {
		ret = append(ret, k)
	}
	sort.Strings(ret)
	return ret
}

// Build returns the emitted code. All labels must be resolved.
func (self *Builder) Build() []byte {
	for _, key := range self.Pending() {
		panic("labels are not fully resolved: " + key)
	}
	return self.buf
}

// Op emits an instruction without immediates.
func (self *Builder) Op(op OpCode) *Builder {
	self.op(op, ImmNone)
	return self
}

// Slot emits an instruction that takes an argument or local index.
func (self *Builder) Slot(op OpCode, i int) *Builder {
	if i < 0 || i > math.MaxUint8 {
		panic(fmt.Sprintf("il: slot index out of range: %d", i))
	}
	self.op(op, ImmU8)
	self.buf = append(self.buf, byte(i))
	return self
}

// Call emits a call through a signature token.
func (self *Builder) Call(token int) *Builder {
	if token < 0 || token > math.MaxUint16 {
		panic(fmt.Sprintf("il: call token out of range: %d", token))
	}
	self.op(OP_call, ImmU16)
	self.buf = binary.LittleEndian.AppendUint16(self.buf, uint16(token))
	return self
}

func (self *Builder) I4(v int32) *Builder {
	self.op(OP_ldc_i4, ImmI32)
	self.buf = binary.LittleEndian.AppendUint32(self.buf, uint32(v))
	return self
}

func (self *Builder) I8(v int64) *Builder {
	self.op(OP_ldc_i8, ImmI64)
	self.buf = binary.LittleEndian.AppendUint64(self.buf, uint64(v))
	return self
}

func (self *Builder) R8(v float64) *Builder {
	self.op(OP_ldc_r8, ImmF64)
	self.buf = binary.LittleEndian.AppendUint64(self.buf, math.Float64bits(v))
	return self
}

// Jmp emits a branch to a label, short or long depending on the opcode.
func (self *Builder) Jmp(op OpCode, to string) *Builder {
	switch info, _ := LookupOp(op); info.Imm {
	case ImmRel8:
		self.op(op, ImmRel8)
		self.buf = append(self.buf, 0)
		self.ref(to, _Fixup{pos: len(self.buf) - 1, size: 1, base: len(self.buf)})
	case ImmRel32:
		self.op(op, ImmRel32)
		self.buf = append(self.buf, 0, 0, 0, 0)
		self.ref(to, _Fixup{pos: len(self.buf) - 4, size: 4, base: len(self.buf)})
	default:
		panic(fmt.Sprintf("il: %s is not a branch", op))
	}
	return self
}

// Switch emits a jump table, falling through when the index is out of range.
func (self *Builder) Switch(to ...string) *Builder {
	self.op(OP_switch, ImmSwitch)
	self.buf = binary.LittleEndian.AppendUint32(self.buf, uint32(len(to)))

	/* reserve the table, offsets are relative to its end */
	pos := len(self.buf)
	end := pos + len(to)*4
	self.buf = append(self.buf, make([]byte, len(to)*4)...)

	/* link every case */
	for i, lb := range to {
		self.ref(lb, _Fixup{pos: pos + i*4, size: 4, base: end})
	}
	return self
}

/** Shorthands **/

func (self *Builder) Ldarg(i int) *Builder { return self.Slot(OP_ldarg, i) }
func (self *Builder) Starg(i int) *Builder { return self.Slot(OP_starg, i) }
func (self *Builder) Ldloc(i int) *Builder { return self.Slot(OP_ldloc, i) }
func (self *Builder) Stloc(i int) *Builder { return self.Slot(OP_stloc, i) }
func (self *Builder) Ret() *Builder        { return self.Op(OP_ret) }
