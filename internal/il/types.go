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

// ValueType is the kind of value a stack slot or variable holds.
type ValueType uint8

const (
	Void ValueType = iota
	I4
	I8
	Ptr
	R8
	Obj
)

var _TypeNames = [...]string{
	Void: "void",
	I4:   "i4",
	I8:   "i8",
	Ptr:  "ptr",
	R8:   "r8",
	Obj:  "obj",
}

var _TypeSizes = [...]int{
	Void: 0,
	I4:   4,
	I8:   8,
	Ptr:  8,
	R8:   8,
	Obj:  8,
}

// ParseType converts a type name (as printed by String) back into a ValueType.
func ParseType(name string) (ValueType, error) {
	for i, v := range _TypeNames {
		if v == name {
			return ValueType(i), nil
		}
	}
	return Void, fmt.Errorf("il: unknown value type %q", name)
}

// Size returns the storage size in bytes, which is also the alignment.
func (self ValueType) Size() int {
	if int(self) < len(_TypeSizes) {
		return _TypeSizes[self]
	} else {
		panic(fmt.Sprintf("il: invalid value type: %d", self))
	}
}

// IsScalar reports whether values of this type live in the integer register file.
func (self ValueType) IsScalar() bool {
	return self == I4 || self == I8 || self == Ptr
}

func (self ValueType) String() string {
	if int(self) < len(_TypeNames) {
		return _TypeNames[self]
	} else {
		return fmt.Sprintf("type(%d)", self)
	}
}
