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
	"github.com/oleiade/lane"
	"gonum.org/v1/gonum/graph/flow"
	"gonum.org/v1/gonum/graph/simple"
)

// FindLoops marks loop headers and computes the loop nesting depth of every
// block in the layout. A header is the target of an edge from a block it
// dominates. Dominance is taken from a virtual root that enters both the
// method and every handler.
func FindLoops(fn *Func) int {
	g := simple.NewDirectedGraph()
	preds := predecessors(fn)
	body := make(map[int]map[int]bool)

	/* build the normal control flow graph */
	for _, bb := range fn.Layout {
		if g.Node(int64(bb.Id)) == nil {
			g.AddNode(simple.Node(bb.Id))
		}
		for _, s := range bb.Succs {
			if s != bb.Id {
				g.SetEdge(g.NewEdge(simple.Node(bb.Id), simple.Node(s)))
			}
		}
	}

	/* self loops never show up in the graph */
	for _, bb := range fn.Layout {
		for _, s := range bb.Succs {
			if s == bb.Id {
				body[s] = map[int]bool{s: true}
			}
		}
	}

	/* one virtual root enters the method and every handler */
	root := simple.Node(len(fn.Blocks))
	g.AddNode(root)
	for _, bb := range fn.Layout {
		if bb.Index == 0 || bb.Handler {
			g.SetEdge(g.NewEdge(root, simple.Node(bb.Id)))
		}
	}

	/* an edge into a block that dominates its source is a back edge */
	dt := flow.Dominators(root, g)
	for _, bb := range fn.Layout {
		for _, h := range bb.Succs {
			if h != bb.Id && dominates(dt, int64(h), int64(bb.Id)) {
				naturalLoop(preds, body, h, bb.Id)
			}
		}
	}

	/* publish the result */
	for _, bb := range fn.Layout {
		bb.LoopDepth = 0
		_, bb.LoopHeader = body[bb.Id]
	}

	/* every loop adds one level to its body */
	for _, blocks := range body {
		for id := range blocks {
			fn.Blocks[id].LoopDepth++
		}
	}
	return len(body)
}

func dominates(dt flow.DominatorTree, a int64, b int64) bool {
	for n := b; ; {
		if n == a {
			return true
		}
		if p := dt.DominatorOf(n); p == nil || p.ID() == n {
			return false
		} else {
			n = p.ID()
		}
	}
}

func naturalLoop(preds map[int][]int, body map[int]map[int]bool, head int, tail int) {
	st := lane.NewStack()
	set := body[head]

	/* first back edge into this header */
	if set == nil {
		set = map[int]bool{head: true}
		body[head] = set
	}

	/* walk predecessors backwards until the header */
	for st.Push(tail); !st.Empty(); {
		id := st.Pop().(int)
		if !set[id] {
			set[id] = true
			for _, p := range preds[id] {
				st.Push(p)
			}
		}
	}
}

func predecessors(fn *Func) map[int][]int {
	ret := make(map[int][]int, len(fn.Layout))
	for _, bb := range fn.Layout {
		for _, s := range bb.Succs {
			ret[s] = append(ret[s], bb.Id)
		}
	}
	return ret
}
