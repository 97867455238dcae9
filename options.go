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

package stackjit

import (
	"fmt"

	"github.com/cloudwego/stackjit/internal/jit"
	"github.com/cloudwego/stackjit/internal/opts"
)

// Option is the property setter function for opts.Options.
type Option func(*opts.Options)

// WithRegisters sets the number of registers the allocator may use.
//
// Setting this option to "0" spills every variable to its frame slot. Values
// larger than the register file of the target are clamped.
//
// The default value of this option is "8".
func WithRegisters(n int) Option {
	if n < 0 {
		panic(fmt.Sprintf("stackjit: invalid register count: %d", n))
	} else {
		return func(o *opts.Options) { o.Registers = n }
	}
}

// WithTarget selects the register file used to name registers. Available
// targets are "amd64", "arm64" and "abstract".
//
// The default value of this option is "amd64".
func WithTarget(name string) Option {
	if _, ok := jit.LookupTarget(name); !ok {
		panic(fmt.Sprintf("stackjit: unknown target: %s", name))
	} else {
		return func(o *opts.Options) { o.Target = name }
	}
}

// WithWorkers sets the number of methods CompileAll compiles concurrently.
//
// The default value of this option is the number of logical CPU cores.
func WithWorkers(n int) Option {
	if n < 1 {
		panic(fmt.Sprintf("stackjit: invalid worker count: %d", n))
	} else {
		return func(o *opts.Options) { o.Workers = n }
	}
}

// WithTrace dumps the function after every compiler pass.
func WithTrace(v bool) Option {
	return func(o *opts.Options) { o.Trace = v }
}

// SetRegisters sets the default register count for all compilations from now
// on.
//
// This value can also be configured with the `STACKJIT_REGISTERS` environment
// variable.
//
// Returns the old opts.Registers value.
func SetRegisters(n int) int {
	n, opts.Registers = opts.Registers, n
	return n
}

// SetWorkers sets the default worker count of CompileAll from now on.
//
// This value can also be configured with the `STACKJIT_WORKERS` environment
// variable.
//
// Returns the old opts.Workers value.
func SetWorkers(n int) int {
	n, opts.Workers = opts.Workers, n
	return n
}
