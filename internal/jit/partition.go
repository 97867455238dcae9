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
	"sort"

	"github.com/cloudwego/stackjit/internal/il"
	"github.com/tliron/commonlog"
)

var partitionLog = commonlog.GetLogger("stackjit.partition")

type _Partitioner struct {
	m      *il.Method
	starts map[int]bool
	insns  map[int]bool
}

// Partition splits the method body into basic blocks in address order. The
// entry block and every exception handler entry are marked as reached.
func Partition(m *il.Method) ([]*BasicBlock, error) {
	if len(m.Code) == 0 {
		return nil, eflow(m.Name, -1, "empty method body")
	}

	/* create the partitioner */
	p := &_Partitioner{
		m:      m,
		starts: map[int]bool{0: true},
		insns:  make(map[int]bool, len(m.Code)),
	}

	/* region boundaries first, then the instruction scan */
	if err := p.regions(); err != nil {
		return nil, err
	}
	if err := p.scan(); err != nil {
		return nil, err
	}

	/* every block start must be an instruction boundary */
	pcs := p.sorted()
	for _, pc := range pcs {
		if !p.insns[pc] {
			return nil, eflow(m.Name, pc, "block start IL_%04x is not on an instruction boundary", pc)
		}
	}

	/* materialize the blocks */
	bbs := p.materialize(pcs)
	partitionLog.Debugf("%s: %d blocks from %d bytes", m.Name, len(bbs), len(m.Code))
	return bbs, nil
}

func (self *_Partitioner) mark(pc int) {
	if pc < len(self.m.Code) {
		self.starts[pc] = true
	}
}

func (self *_Partitioner) regions() error {
	n := len(self.m.Code)
	for i := range self.m.Regions {
		r := &self.m.Regions[i]

		/* protected and handler ranges */
		if r.TryStart < 0 || r.TryStart >= r.TryEnd || r.TryEnd > n {
			return eflow(self.m.Name, r.TryStart, "invalid protected range in region %d", i)
		}
		if r.HandlerStart < 0 || r.HandlerStart >= r.HandlerEnd || r.HandlerEnd > n {
			return eflow(self.m.Name, r.HandlerStart, "invalid handler range in region %d", i)
		}

		/* handlers never start at the method entry */
		if r.HandlerStart == 0 || (r.Kind == il.Filter && r.FilterStart == 0) {
			return eflow(self.m.Name, 0, "handler of region %d starts at the method entry", i)
		}

		/* filter entry */
		if r.Kind == il.Filter {
			if r.FilterStart < 0 || r.FilterStart >= n {
				return eflow(self.m.Name, r.FilterStart, "invalid filter entry in region %d", i)
			}
			self.mark(r.FilterStart)
		}

		/* every boundary starts a block */
		self.mark(r.TryStart)
		self.mark(r.TryEnd)
		self.mark(r.HandlerStart)
		self.mark(r.HandlerEnd)
	}
	return nil
}

func (self *_Partitioner) scan() error {
	code := self.m.Code
	for pc := 0; pc < len(code); {
		ins, err := il.Decode(code, pc)
		if err != nil {
			return self.decodeError(err.(*il.DecodeError))
		}

		/* record the instruction boundary */
		next := ins.Next()
		self.insns[pc] = true

		/* classify the instruction */
		switch ins.Flow() {
		case il.FlowJump, il.FlowCond, il.FlowSwitch:
			for _, to := range ins.Br {
				if to < 0 || to >= len(code) {
					return eflow(self.m.Name, pc, "branch target IL_%04x is outside of the method body", to)
				}
				self.starts[to] = true
			}
			self.mark(next)
		case il.FlowTerm:
			self.mark(next)
		}

		/* the last instruction must not fall off the end */
		if next == len(code) {
			if f := ins.Flow(); f != il.FlowJump && f != il.FlowTerm {
				return eflow(self.m.Name, pc, "control falls through past the end of the method body")
			}
		}
		pc = next
	}
	return nil
}

func (self *_Partitioner) decodeError(err *il.DecodeError) error {
	if err.Truncated {
		return eflow(self.m.Name, err.Pc, "%s runs past the end of the method body", err.Op)
	} else {
		return eunsupp(self.m.Name, err.Pc, "invalid opcode 0x%02x", byte(err.Op))
	}
}

func (self *_Partitioner) sorted() []int {
	ret := make([]int, 0, len(self.starts))
	for pc := range self.starts {
		ret = append(ret, pc)
	}
	sort.Ints(ret)
	return ret
}

func (self *_Partitioner) materialize(pcs []int) []*BasicBlock {
	var end int
	ret := make([]*BasicBlock, len(pcs))

	/* contiguous byte ranges */
	for i, pc := range pcs {
		if i != len(pcs)-1 {
			end = pcs[i+1]
		} else {
			end = len(self.m.Code)
		}
		ret[i] = &BasicBlock{Id: i, Index: -1, Start: pc, Len: end - pc}
	}

	/* index by start offset */
	idx := make(map[int]*BasicBlock, len(ret))
	for _, bb := range ret {
		idx[bb.Start] = bb
	}

	/* the entry block is reached by definition */
	ret[0].Reached = true

	/* handler entries have no bytecode predecessor */
	for i := range self.m.Regions {
		r := &self.m.Regions[i]
		hb := idx[r.HandlerStart]
		hb.Reached, hb.Handler = true, true

		/* filter entries too */
		var fb *BasicBlock
		if r.Kind == il.Filter {
			fb = idx[r.FilterStart]
			fb.Reached, fb.Handler = true, true
		}

		/* exceptional edges out of the protected blocks */
		for _, bb := range ret {
			if r.Covers(bb.Start) {
				if fb != nil {
					bb.Exc = appendUnique(bb.Exc, fb.Id)
				}
				bb.Exc = appendUnique(bb.Exc, hb.Id)
			}
		}
	}
	return ret
}

func appendUnique(s []int, v int) []int {
	for _, x := range s {
		if x == v {
			return s
		}
	}
	return append(s, v)
}

// blockIndex maps start offsets to block ids.
func blockIndex(bbs []*BasicBlock) map[int]int {
	ret := make(map[int]int, len(bbs))
	for _, bb := range bbs {
		ret[bb.Start] = bb.Id
	}
	return ret
}
