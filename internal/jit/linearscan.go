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
	"strings"

	"github.com/tliron/commonlog"
)

var regallocLog = commonlog.GetLogger("stackjit.regalloc")

// Assignment maps every allocated variable to a register, or to RegNone if
// it was spilled to its frame slot.
type Assignment map[VarID]Register

// Spilled returns the spilled variables in ascending order.
func (self Assignment) Spilled() []VarID {
	ret := make([]VarID, 0, len(self))
	for v, r := range self {
		if r == RegNone {
			ret = append(ret, v)
		}
	}
	sort.Slice(ret, func(i, j int) bool { return ret[i] < ret[j] })
	return ret
}

func (self Assignment) String() string {
	keys := make([]VarID, 0, len(self))
	for v := range self {
		keys = append(keys, v)
	}

	/* sort by variable */
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	buf := make([]string, 0, len(keys))

	/* dump every assignment */
	for _, v := range keys {
		buf = append(buf, fmt.Sprintf("v%d: %s", v, self[v]))
	}
	return "{" + strings.Join(buf, ", ") + "}"
}

// LinearScan assigns registers [0, pool) to live ranges. Ranges are visited by
// their first point. When no register is free, the active range that ends last
// is evicted if it outlives the current one, otherwise the current range is
// spilled. The Reg field of each range is updated as well.
func LinearScan(ranges []*LiveRange, pool int) Assignment {
	ret := make(Assignment, len(ranges))
	order := append([]*LiveRange(nil), ranges...)

	/* sort by start point, then by variable for stability */
	sort.Slice(order, func(i, j int) bool {
		if order[i].First != order[j].First {
			return order[i].First < order[j].First
		} else {
			return order[i].Var < order[j].Var
		}
	})

	/* all registers are available at the start */
	free := make([]int, 0, pool)
	for i := 0; i < pool; i++ {
		free = append(free, i)
	}

	/* active ranges, ordered by end point */
	active := make([]*LiveRange, 0, pool)
	for _, lr := range order {
		active, free = expire(active, free, lr.First)

		/* take the lowest free register */
		if len(free) != 0 {
			lr.Reg, free = Register(free[0]), free[1:]
			active = activate(active, lr)
			continue
		}

		/* nothing to evict */
		if len(active) == 0 {
			lr.Reg = RegNone
			continue
		}

		/* evict the range that ends farthest, if it outlives the current one */
		if last := active[len(active)-1]; last.Last > lr.Last {
			lr.Reg, last.Reg = last.Reg, RegNone
			active = activate(active[:len(active)-1], lr)
			regallocLog.Debugf("evict v%d for v%d at %s", last.Var, lr.Var, lr.First)
		} else {
			lr.Reg = RegNone
			regallocLog.Debugf("spill v%d at %s", lr.Var, lr.First)
		}
	}

	/* collect the result */
	for _, lr := range ranges {
		ret[lr.Var] = lr.Reg
	}
	return ret
}

func expire(active []*LiveRange, free []int, at Pos) ([]*LiveRange, []int) {
	n := 0
	for _, lr := range active {
		if lr.Last < at {
			free = release(free, int(lr.Reg))
		} else {
			active[n] = lr
			n++
		}
	}
	return active[:n], free
}

func release(free []int, r int) []int {
	i := sort.SearchInts(free, r)
	free = append(free, 0)
	copy(free[i+1:], free[i:])
	free[i] = r
	return free
}

func activate(active []*LiveRange, lr *LiveRange) []*LiveRange {
	i := sort.Search(len(active), func(i int) bool {
		return active[i].Last > lr.Last || (active[i].Last == lr.Last && active[i].Var > lr.Var)
	})
	active = append(active, nil)
	copy(active[i+1:], active[i:])
	active[i] = lr
	return active
}

// Annotate writes the register of every variable onto its address leaves.
func Annotate(fn *Func, regs Assignment) {
	for _, bb := range fn.Layout {
		for _, r := range bb.Roots {
			fn.Trees.Walk(r, nil, func(x Ref) {
				if p := fn.Trees.At(x); p.Op == OpAddr {
					if reg, ok := regs[p.Var]; ok {
						p.Reg = reg
					} else {
						p.Reg = RegNone
					}
				}
			})
		}
	}
}
