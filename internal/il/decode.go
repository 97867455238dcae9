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
	"strings"
)

// Instr is one decoded instruction.
type Instr struct {
	Op  OpCode
	Pc  int
	Len int
	Iv  int64
	Fv  float64
	Br  []int
}

// Next returns the offset of the instruction that follows.
func (self *Instr) Next() int {
	return self.Pc + self.Len
}

func (self *Instr) Flow() Flow {
	return self.Op.Info().Flow
}

func (self *Instr) String() string {
	imm := self.Op.Info().Imm
	name := self.Op.String()

	/* format the immediate operand */
	switch imm {
	case ImmNone:
		return name
	case ImmF64:
		return fmt.Sprintf("%-10s %g", name, self.Fv)
	case ImmRel8, ImmRel32:
		return fmt.Sprintf("%-10s IL_%04x", name, self.Br[0])
	}

	/* switch tables */
	if imm == ImmSwitch {
		tab := make([]string, len(self.Br))
		for i, v := range self.Br {
			tab[i] = fmt.Sprintf("IL_%04x", v)
		}
		return fmt.Sprintf("%-10s (%s)", name, strings.Join(tab, ", "))
	}

	/* all other integers */
	return fmt.Sprintf("%-10s %d", name, self.Iv)
}

// DecodeError reports an instruction that cannot be decoded.
type DecodeError struct {
	Pc        int
	Op        OpCode
	Truncated bool
}

func (self *DecodeError) Error() string {
	if self.Truncated {
		return fmt.Sprintf("truncated instruction %s at IL_%04x", self.Op, self.Pc)
	} else {
		return fmt.Sprintf("invalid opcode 0x%02x at IL_%04x", byte(self.Op), self.Pc)
	}
}

// Decode reads the instruction at pc. Branch targets are resolved to absolute
// offsets, but are not checked against the code length.
func Decode(code []byte, pc int) (ins Instr, err error) {
	var ok bool
	var info OpInfo

	/* check for opcode */
	op := OpCode(code[pc])
	if info, ok = LookupOp(op); !ok {
		return ins, &DecodeError{Pc: pc, Op: op}
	}

	/* immediate size */
	nb := _ImmSizes[info.Imm]
	ins = Instr{Op: op, Pc: pc, Len: nb + 1}
	if pc+ins.Len > len(code) {
		return ins, &DecodeError{Pc: pc, Op: op, Truncated: true}
	}

	/* decode the immediate */
	buf := code[pc+1 : pc+ins.Len]
	switch info.Imm {
	case ImmU8:
		ins.Iv = int64(buf[0])
	case ImmU16:
		ins.Iv = int64(binary.LittleEndian.Uint16(buf))
	case ImmI32:
		ins.Iv = int64(int32(binary.LittleEndian.Uint32(buf)))
	case ImmI64:
		ins.Iv = int64(binary.LittleEndian.Uint64(buf))
	case ImmF64:
		ins.Fv = math.Float64frombits(binary.LittleEndian.Uint64(buf))
	case ImmRel8:
		ins.Br = []int{ins.Next() + int(int8(buf[0]))}
	case ImmRel32:
		ins.Br = []int{ins.Next() + int(int32(binary.LittleEndian.Uint32(buf)))}
	case ImmSwitch:
		return decodeSwitch(code, ins, int(binary.LittleEndian.Uint32(buf)))
	}
	return ins, nil
}

func decodeSwitch(code []byte, ins Instr, n int) (Instr, error) {
	if n < 0 || ins.Next()+n*4 > len(code) {
		return ins, &DecodeError{Pc: ins.Pc, Op: ins.Op, Truncated: true}
	}

	/* the table is relative to the end of the whole instruction */
	p := ins.Next()
	ins.Iv = int64(n)
	ins.Len += n * 4
	ins.Br = make([]int, n)

	/* decode every case */
	for i := 0; i < n; i++ {
		ins.Br[i] = ins.Next() + int(int32(binary.LittleEndian.Uint32(code[p+i*4:])))
	}
	return ins, nil
}

// Disassemble formats the whole code stream, one instruction per line. Decoding
// stops at the first malformed instruction.
func Disassemble(code []byte) string {
	var buf []string
	for pc := 0; pc < len(code); {
		ins, err := Decode(code, pc)
		if err != nil {
			buf = append(buf, fmt.Sprintf("IL_%04x: <%s>", pc, err))
			break
		}
		buf = append(buf, fmt.Sprintf("IL_%04x: %s", pc, ins.String()))
		pc = ins.Next()
	}
	return strings.Join(buf, "\n")
}
