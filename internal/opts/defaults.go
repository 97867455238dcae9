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

package opts

import (
	"os"
	"strconv"

	"github.com/klauspost/cpuid/v2"
	"github.com/xyproto/env/v2"
)

const (
	_DefaultRegisters = 8       // allocatable scalar registers
	_DefaultTarget    = "amd64" // register file used for naming
)

var (
	Registers = parseOrDefault("STACKJIT_REGISTERS", _DefaultRegisters, 0)
	Workers   = parseOrDefault("STACKJIT_WORKERS", defaultWorkers(), 1)
	Target    = env.Str("STACKJIT_TARGET", _DefaultTarget)
	Trace     = env.Bool("STACKJIT_TRACE")
)

func defaultWorkers() int {
	if n := cpuid.CPU.LogicalCores; n > 0 {
		return n
	} else {
		return 1
	}
}

func parseOrDefault(key string, def int, min int) int {
	if str := os.Getenv(key); str == "" {
		return def
	} else if val, err := strconv.ParseUint(str, 0, 64); err != nil {
		panic("stackjit: invalid value for " + key)
	} else if ret := int(val); ret < min {
		panic("stackjit: value too small for " + key)
	} else {
		return ret
	}
}
