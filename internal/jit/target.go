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

	"github.com/chenzhuoyu/iasm/x86_64"
)

// Register is an index into the register file of a Target.
type Register int8

// RegNone marks a variable that lives in its frame slot.
const RegNone Register = -1

func (self Register) String() string {
	if self == RegNone {
		return "mem"
	} else {
		return fmt.Sprintf("r%d", int(self))
	}
}

// Target describes the allocatable scalar register file of a machine.
type Target struct {
	Name string
	Regs []string
}

// RegName returns the machine name of r.
func (self *Target) RegName(r Register) string {
	if r == RegNone {
		return "mem"
	} else if int(r) < len(self.Regs) {
		return self.Regs[r]
	} else {
		return r.String()
	}
}

// PoolSize clamps the requested number of registers to the register file.
func (self *Target) PoolSize(n int) int {
	if n < 0 {
		return 0
	} else if n > len(self.Regs) {
		return len(self.Regs)
	} else {
		return n
	}
}

/* RAX, RCX and RDX are left to the emitter as scratch registers, RSP and RBP hold the frame */
var _AMD64Regs = [...]x86_64.Register64{
	x86_64.RBX,
	x86_64.R12,
	x86_64.R13,
	x86_64.R14,
	x86_64.R15,
	x86_64.RSI,
	x86_64.RDI,
	x86_64.R8,
	x86_64.R9,
	x86_64.R10,
	x86_64.R11,
}

func amd64Target() *Target {
	ret := &Target{Name: "amd64"}
	for _, r := range _AMD64Regs {
		ret.Regs = append(ret.Regs, r.String())
	}
	return ret
}

func arm64Target() *Target {
	ret := &Target{Name: "arm64"}
	for i := 19; i <= 28; i++ {
		ret.Regs = append(ret.Regs, fmt.Sprintf("x%d", i))
	}
	return ret
}

func abstractTarget() *Target {
	ret := &Target{Name: "abstract"}
	for i := 0; i < 32; i++ {
		ret.Regs = append(ret.Regs, fmt.Sprintf("r%d", i))
	}
	return ret
}

var _Targets = map[string]*Target{
	"amd64":    amd64Target(),
	"arm64":    arm64Target(),
	"abstract": abstractTarget(),
}

// LookupTarget finds a target by name.
func LookupTarget(name string) (*Target, bool) {
	ret, ok := _Targets[name]
	return ret, ok
}
