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

	"github.com/cloudwego/stackjit/internal/il"
)

// VarID is the stable identity of a variable slot. Ids are never reused.
type VarID int32

const NoVar VarID = -1

type VarKind uint8

const (
	Argument VarKind = iota
	Local
	Temporary
)

var _VarPrefix = [...]string{
	Argument:  "a",
	Local:     "l",
	Temporary: "t",
}

// VarSlot is a storage location a value can be stored to or loaded from.
type VarSlot struct {
	Id        VarID
	Kind      VarKind
	Index     int
	Type      il.ValueType
	Offset    int
	Size      int
	Align     int
	AddrTaken bool
	Volatile  bool
}

// IsRegCandidate reports whether the slot may be kept in a register.
func (self *VarSlot) IsRegCandidate() bool {
	return self.Type.IsScalar() && !self.AddrTaken && !self.Volatile
}

func (self *VarSlot) String() string {
	return fmt.Sprintf("%s%d", _VarPrefix[self.Kind], self.Index)
}

// VarTable tracks every slot a method references. Slots are append-only, and
// every slot receives its frame offset at creation time.
type VarTable struct {
	vars  []VarSlot
	args  int
	temps int
	frame int
}

// NewVarTable creates the argument and local slots of a method, in that order.
func NewVarTable(m *il.Method) *VarTable {
	ret := &VarTable{
		args: len(m.Args),
		vars: make([]VarSlot, 0, len(m.Args)+len(m.Locals)+16),
	}

	/* arguments */
	for i, vt := range m.Args {
		ret.add(Argument, i, vt)
	}

	/* locals */
	for i, vt := range m.Locals {
		ret.add(Local, i, vt).Volatile = m.IsVolatile(i)
	}
	return ret
}

func (self *VarTable) add(kind VarKind, index int, vt il.ValueType) *VarSlot {
	size := vt.Size()
	align := size

	/* align the frame */
	if align > 1 {
		self.frame = (self.frame + align - 1) &^ (align - 1)
	}

	/* allocate the slot */
	self.vars = append(self.vars, VarSlot{
		Id:     VarID(len(self.vars)),
		Kind:   kind,
		Index:  index,
		Type:   vt,
		Offset: self.frame,
		Size:   size,
		Align:  align,
	})

	/* grow the frame */
	self.frame += size
	return &self.vars[len(self.vars)-1]
}

// NewTemp creates a compiler temporary of the given type.
func (self *VarTable) NewTemp(vt il.ValueType) VarID {
	self.temps++
	return self.add(Temporary, self.temps-1, vt).Id
}

func (self *VarTable) Arg(i int) VarID {
	return VarID(i)
}

func (self *VarTable) Local(i int) VarID {
	return VarID(self.args + i)
}

// At returns the slot with the given id. The pointer is invalidated by NewTemp.
func (self *VarTable) At(id VarID) *VarSlot {
	return &self.vars[id]
}

func (self *VarTable) Len() int {
	return len(self.vars)
}

func (self *VarTable) Temps() int {
	return self.temps
}

// FrameSize returns the number of bytes needed to hold every slot in memory.
func (self *VarTable) FrameSize() int {
	return self.frame
}

func (self *VarTable) Name(id VarID) string {
	return self.vars[id].String()
}
