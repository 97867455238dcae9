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

type RegionKind uint8

const (
	Catch RegionKind = iota
	Filter
	Finally
	Fault
)

var _RegionNames = [...]string{
	Catch:   "catch",
	Filter:  "filter",
	Finally: "finally",
	Fault:   "fault",
}

func ParseRegionKind(name string) (RegionKind, error) {
	for i, v := range _RegionNames {
		if v == name {
			return RegionKind(i), nil
		}
	}
	return 0, fmt.Errorf("il: unknown region kind %q", name)
}

func (self RegionKind) String() string {
	if int(self) < len(_RegionNames) {
		return _RegionNames[self]
	} else {
		return fmt.Sprintf("region(%d)", self)
	}
}

// Region is one entry of the exception-region table. Ranges are half-open byte
// ranges; FilterStart is only meaningful for Filter regions.
type Region struct {
	Kind         RegionKind
	TryStart     int
	TryEnd       int
	HandlerStart int
	HandlerEnd   int
	FilterStart  int
}

// HasExceptionObject reports whether the handler is entered with the exception
// object on the operand stack.
func (self *Region) HasExceptionObject() bool {
	return self.Kind == Catch || self.Kind == Filter
}

// Covers reports whether pc lies in the protected range.
func (self *Region) Covers(pc int) bool {
	return pc >= self.TryStart && pc < self.TryEnd
}

// Signature describes a callee, referenced from the bytecode by its token.
type Signature struct {
	Args []ValueType
	Ret  ValueType
}

// Method is the descriptor of one method body.
type Method struct {
	Name     string
	Code     []byte
	Args     []ValueType
	Locals   []ValueType
	Volatile []int
	Ret      ValueType
	Regions  []Region
	Calls    []Signature
}

// IsVolatile reports whether the local with the given index is volatile.
func (self *Method) IsVolatile(i int) bool {
	for _, v := range self.Volatile {
		if v == i {
			return true
		}
	}
	return false
}
