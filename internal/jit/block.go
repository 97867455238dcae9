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
)

type BlockState uint8

const (
	Unvisited BlockState = iota
	Reached
	Finished
)

func (self BlockState) String() string {
	switch self {
	case Unvisited:
		return "unvisited"
	case Reached:
		return "reached"
	case Finished:
		return "finished"
	default:
		return fmt.Sprintf("state(%d)", self)
	}
}

// BasicBlock is a maximal straight-line byte range of the method body.
type BasicBlock struct {
	Id         int
	Index      int
	Start      int
	Len        int
	Handler    bool
	Reached    bool
	Finished   bool
	Entry      []VarID
	Exit       []VarID
	Roots      []Ref
	Succs      []int
	Exc        []int
	LoopHeader bool
	LoopDepth  int
	shaped     bool
}

// End returns the offset just past the last instruction of the block.
func (self *BasicBlock) End() int {
	return self.Start + self.Len
}

func (self *BasicBlock) State() BlockState {
	if self.Finished {
		return Finished
	} else if self.Reached {
		return Reached
	} else {
		return Unvisited
	}
}

// HasShape reports whether the entry stack shape has been fixed.
func (self *BasicBlock) HasShape() bool {
	return self.shaped
}

func (self *BasicBlock) setShape(shape []VarID) {
	self.Entry = shape
	self.shaped = true
}

func (self *BasicBlock) addSucc(id int) {
	for _, v := range self.Succs {
		if v == id {
			return
		}
	}
	self.Succs = append(self.Succs, id)
}

func (self *BasicBlock) String() string {
	succ := make([]string, len(self.Succs))
	for i, v := range self.Succs {
		succ[i] = fmt.Sprintf("bb_%d", v)
	}
	return fmt.Sprintf(
		"bb_%d [IL_%04x, IL_%04x) %s succ={%s}",
		self.Id,
		self.Start,
		self.End(),
		self.State(),
		strings.Join(succ, ", "),
	)
}
