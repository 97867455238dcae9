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

// edges closes the current block: whatever is left on the evaluation stack is
// moved into the merge temporaries shared by all successors, then the
// terminator is appended and every distinct successor is marked as reached.
func (self *_StackBuilder) edges(pc int, term Ref, succs []int) error {
	var exit []VarID
	var err error

	/* each successor is reached once, no matter how many edges lead there */
	succs = distinct(succs)

	/* move the stack into the merge slots */
	if exit, err = self.outstack(pc, term, succs); err != nil {
		return err
	}

	/* the terminator is always the last root */
	if term != Nil {
		self.root(term)
	}

	/* propagate the shape to the successors */
	self.bb.Exit = exit
	for _, s := range succs {
		self.bb.addSucc(s)
		if err = self.reach(pc, s, exit); err != nil {
			return err
		}
	}
	return nil
}

func (self *_StackBuilder) outstack(pc int, term Ref, succs []int) ([]VarID, error) {
	var out []VarID
	var err error

	/* nothing to carry over */
	n := len(self.stack)
	if n == 0 {
		return nil, nil
	}

	/* converge on the shape of the first successor that already has one */
	for _, s := range succs {
		if bb := self.fn.Blocks[s]; bb.HasShape() {
			out = bb.Entry
			break
		}
	}

	/* otherwise allocate fresh merge slots */
	if out == nil {
		out = make([]VarID, n)
		for i, e := range self.stack {
			out[i] = self.fn.Vars.NewTemp(self.typeOf(e))
		}
	}

	/* every successor with a shape must be compatible */
	targets := make(map[VarID]bool, n)
	for _, s := range succs {
		if bb := self.fn.Blocks[s]; bb.HasShape() {
			if err = self.compatible(pc, bb); err != nil {
				return nil, err
			}
			for _, v := range bb.Entry {
				targets[v] = true
			}
		}
	}

	/* the slots we are about to write */
	for _, v := range out {
		targets[v] = true
	}

	/* evaluate side effects in order, and break read-after-write hazards */
	reads := func(v VarID) bool { return targets[v] }
	for i, e := range self.stack {
		if self.fn.Trees.LoadedVar(e) != out[i] {
			if self.fn.Trees.HasSideEffects(e) || self.fn.Trees.Reads(e, reads) {
				self.stack[i] = self.detach(pc, e)
			}
		}
	}

	/* the branch operand is evaluated after the stack, but before the moves */
	if term != Nil {
		if x := self.fn.Trees.At(term).Left; x != Nil && self.fn.Trees.Reads(x, reads) {
			v := self.detach(pc, x)
			self.fn.Trees.At(term).Left = v
		}
	}

	/* the remaining entries are pure, the order no longer matters */
	for i, e := range self.stack {
		if self.fn.Trees.LoadedVar(e) != out[i] {
			self.root(self.fn.Trees.StoreVar(pc, out[i], e))
		}
	}

	/* copy into successors that settled on other slots */
	for _, s := range succs {
		if bb := self.fn.Blocks[s]; bb.HasShape() && !sameSlots(bb.Entry, out) {
			for i, v := range bb.Entry {
				self.root(self.fn.Trees.StoreVar(pc, v, self.fn.Trees.LoadVar(pc, self.fn.Vars.At(out[i]).Type, out[i])))
			}
		}
	}

	/* the stack is now empty */
	self.stack = self.stack[:0]
	return out, nil
}

func (self *_StackBuilder) compatible(pc int, bb *BasicBlock) error {
	if len(bb.Entry) != len(self.stack) {
		return estack(self.fn.Name, pc, "bb_%d is entered with depth %d and %d", bb.Id, len(bb.Entry), len(self.stack))
	}

	/* slot types must agree */
	for i, v := range bb.Entry {
		if vt := self.fn.Vars.At(v).Type; vt != self.typeOf(self.stack[i]) {
			return estack(self.fn.Name, pc, "bb_%d stack slot %d is %s, got %s", bb.Id, i, vt, self.typeOf(self.stack[i]))
		}
	}
	return nil
}

func (self *_StackBuilder) reach(pc int, id int, exit []VarID) error {
	bb := self.fn.Blocks[id]
	self.fn.Marks++

	/* the first predecessor fixes the shape */
	if !bb.HasShape() {
		bb.setShape(exit)
	} else if len(bb.Entry) != len(exit) {
		return estack(self.fn.Name, pc, "bb_%d is entered with depth %d and %d", bb.Id, len(bb.Entry), len(exit))
	}

	/* schedule the block */
	if !bb.Reached {
		bb.Reached = true
		self.queue.Enqueue(bb.Id)
	}
	return nil
}

func distinct(s []int) []int {
	ret := make([]int, 0, len(s))
	for _, v := range s {
		ret = appendUnique(ret, v)
	}
	return ret
}

func sameSlots(a []VarID, b []VarID) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
