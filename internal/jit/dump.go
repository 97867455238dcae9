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

func (self *Func) slots(ids []VarID) string {
	buf := make([]string, len(ids))
	for i, v := range ids {
		buf[i] = self.Vars.Name(v)
	}
	return "[" + strings.Join(buf, ", ") + "]"
}

func (self *Func) variables() []string {
	ret := make([]string, 0, self.Vars.Len())
	for i := 0; i < self.Vars.Len(); i++ {
		v := self.Vars.At(VarID(i))
		loc := fmt.Sprintf("[fp+%d]", v.Offset)

		/* register if allocated */
		if r, ok := self.Regs[v.Id]; ok && r != RegNone {
			loc = self.Target.RegName(r)
		}

		/* attributes */
		attr := ""
		if v.AddrTaken {
			attr += " addr-taken"
		}
		if v.Volatile {
			attr += " volatile"
		}

		/* dump the slot */
		ret = append(ret, fmt.Sprintf("    %s: %s %s%s", v, v.Type, loc, attr))
	}
	return ret
}

// String renders the blocks, statements and register assignment of the
// function as a textual listing.
func (self *Func) String() string {
	buf := []string{fmt.Sprintf(
		"func %s, frame %d bytes, %d registers (%s)",
		self.Name,
		self.Vars.FrameSize(),
		self.Pool,
		self.Target.Name,
	)}

	/* variable table */
	buf = append(buf, "  vars:")
	buf = append(buf, self.variables()...)

	/* blocks, in address order */
	for _, bb := range self.Blocks {
		if !bb.Reached {
			continue
		}

		/* block header */
		hdr := "  " + bb.String()
		if bb.LoopHeader {
			hdr += " loop"
		}
		if bb.LoopDepth != 0 {
			hdr += fmt.Sprintf(" depth=%d", bb.LoopDepth)
		}

		/* entry shape */
		buf = append(buf, hdr)
		if len(bb.Entry) != 0 {
			buf = append(buf, "    entry "+self.slots(bb.Entry))
		}

		/* statements */
		for i, r := range bb.Roots {
			buf = append(buf, fmt.Sprintf("    %3d: %s", i, self.Trees.Format(r, self.Vars)))
		}

		/* exit shape */
		if len(bb.Exit) != 0 {
			buf = append(buf, "    exit "+self.slots(bb.Exit))
		}
	}
	return strings.Join(buf, "\n")
}
