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
	"sort"

	"github.com/tliron/commonlog"
)

var livenessLog = commonlog.GetLogger("stackjit.liveness")

const (
	_PosBits = 20
	_PosMask = 1<<_PosBits - 1
)

// Pos is a program point: the layout index of a block in the upper 44 bits,
// and a position inside that block in the lower 20 bits. Position 0 is the
// block entry, position i is the i-th root, and len(roots) is the block exit.
type Pos uint64

func MakePos(block int, index int) Pos {
	return Pos(uint64(block)<<_PosBits | uint64(index))
}

func (self Pos) Block() int {
	return int(self >> _PosBits)
}

func (self Pos) Index() int {
	return int(self & _PosMask)
}

func (self Pos) String() string {
	return fmt.Sprintf("%d:%d", self.Block(), self.Index())
}

// LiveRange is the closed interval of program points a variable is live in.
type LiveRange struct {
	Var   VarID
	First Pos
	Last  Pos
	Reg   Register
}

func (self *LiveRange) Contains(p Pos) bool {
	return p >= self.First && p <= self.Last
}

func (self *LiveRange) Overlaps(other *LiveRange) bool {
	return self.First <= other.Last && other.First <= self.Last
}

func (self *LiveRange) String() string {
	return fmt.Sprintf("v%d [%s, %s] %s", self.Var, self.First, self.Last, self.Reg)
}

// Liveness holds the per-block dataflow sets, indexed by block id, and the
// live range of every register candidate that is used at all.
type Liveness struct {
	In     []Bitset
	Out    []Bitset
	Gen    []Bitset
	Kill   []Bitset
	Ranges []*LiveRange
}

// IsLiveIn reports whether v is live on entry to the block.
func (self *Liveness) IsLiveIn(bb *BasicBlock, v VarID) bool {
	return self.In[bb.Id].Has(int(v))
}

// IsLiveOut reports whether v is live on exit from the block.
func (self *Liveness) IsLiveOut(bb *BasicBlock, v VarID) bool {
	return self.Out[bb.Id].Has(int(v))
}

type _LivenessBuilder struct {
	fn *Func
	lv *Liveness
	nv int
}

// AnalyzeLiveness computes the live variables of every block in the layout of
// fn, then collapses them into one live range per variable.
func AnalyzeLiveness(fn *Func) (*Liveness, error) {
	nb := len(fn.Blocks)
	nv := fn.Vars.Len()

	/* blocks are addressed by layout index */
	for _, bb := range fn.Layout {
		if len(bb.Roots) >= _PosMask {
			return nil, eunsupp(fn.Name, bb.Start, "bb_%d has too many statements (%d)", bb.Id, len(bb.Roots))
		}
	}

	/* create the builder */
	self := &_LivenessBuilder{
		fn: fn,
		nv: nv,
		lv: &Liveness{
			In:   make([]Bitset, nb),
			Out:  make([]Bitset, nb),
			Gen:  make([]Bitset, nb),
			Kill: make([]Bitset, nb),
		},
	}

	/* every block gets its sets, including the unreached ones */
	for i := range fn.Blocks {
		self.lv.In[i] = NewBitset(nv)
		self.lv.Out[i] = NewBitset(nv)
		self.lv.Gen[i] = NewBitset(nv)
		self.lv.Kill[i] = NewBitset(nv)
	}

	/* local sets, then the global fixpoint */
	self.local()
	self.solve()
	self.ranges()
	return self.lv, nil
}

func (self *_LivenessBuilder) candidate(v VarID) bool {
	return v != NoVar && self.fn.Vars.At(v).IsRegCandidate()
}

func (self *_LivenessBuilder) local() {
	for _, bb := range self.fn.Layout {
		gen := self.lv.Gen[bb.Id]
		kill := self.lv.Kill[bb.Id]

		/* scan statements in evaluation order */
		for _, r := range bb.Roots {
			p := self.fn.Trees.At(r)

			/* direct stores evaluate the value first, then define the variable */
			if p.Op == OpStore && self.fn.Trees.At(p.Left).Op == OpAddr {
				self.uses(p.Right, gen, kill)
				if v := self.fn.Trees.At(p.Left).Var; self.candidate(v) {
					kill.Set(int(v))
				}
				continue
			}

			/* everything else is a use */
			self.uses(r, gen, kill)
		}
	}
}

func (self *_LivenessBuilder) uses(r Ref, gen Bitset, kill Bitset) {
	self.fn.Trees.Walk(r, nil, func(x Ref) {
		if p := self.fn.Trees.At(x); p.Op == OpAddr && self.candidate(p.Var) && !kill.Has(int(p.Var)) {
			gen.Set(int(p.Var))
		}
	})
}

func (self *_LivenessBuilder) solve() {
	rounds := 0
	layout := self.fn.Layout

	/* iterate backwards until nothing changes */
	for changed := true; changed; rounds++ {
		changed = false
		for i := len(layout) - 1; i >= 0; i-- {
			bb := layout[i]
			out := NewBitset(self.nv)
			exc := NewBitset(self.nv)

			/* normal successors */
			for _, s := range bb.Succs {
				out.Union(self.lv.In[s])
			}

			/* handlers covering the block */
			for _, h := range bb.Exc {
				exc.Union(self.lv.In[h])
			}

			/* out = succ(in) + exc(in); in = out - kill + gen + exc(in) */
			out.Union(exc)
			in := out.Copy()
			in.Subtract(self.lv.Kill[bb.Id])
			in.Union(self.lv.Gen[bb.Id])
			in.Union(exc)

			/* check for updates */
			if !in.Equal(self.lv.In[bb.Id]) || !out.Equal(self.lv.Out[bb.Id]) {
				changed = true
				self.lv.In[bb.Id] = in
				self.lv.Out[bb.Id] = out
			}
		}
	}

	/* converged */
	livenessLog.Debugf("%s: liveness converged after %d rounds", self.fn.Name, rounds)
}

func (self *_LivenessBuilder) ranges() {
	rm := make(map[VarID]*LiveRange)

	/* extend the range of v to include p */
	extend := func(v VarID, p Pos) {
		if lr, ok := rm[v]; !ok {
			rm[v] = &LiveRange{Var: v, First: p, Last: p, Reg: RegNone}
		} else if p < lr.First {
			lr.First = p
		} else if p > lr.Last {
			lr.Last = p
		}
	}

	/* collect every point a variable is live or referenced */
	for li, bb := range self.fn.Layout {
		self.lv.In[bb.Id].ForEach(func(v int) { extend(VarID(v), MakePos(li, 0)) })
		self.lv.Out[bb.Id].ForEach(func(v int) { extend(VarID(v), MakePos(li, len(bb.Roots))) })

		/* references inside the statements */
		for i, r := range bb.Roots {
			self.fn.Trees.Walk(r, nil, func(x Ref) {
				if p := self.fn.Trees.At(x); p.Op == OpAddr && self.candidate(p.Var) {
					extend(p.Var, MakePos(li, i))
				}
			})
		}
	}

	/* order by variable */
	self.lv.Ranges = make([]*LiveRange, 0, len(rm))
	for _, lr := range rm {
		self.lv.Ranges = append(self.lv.Ranges, lr)
	}
	sort.Slice(self.lv.Ranges, func(i, j int) bool {
		return self.lv.Ranges[i].Var < self.lv.Ranges[j].Var
	})
}
