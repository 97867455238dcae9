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
	"context"
	"fmt"
	"sync"

	"github.com/bytedance/gopkg/util/gopool"
	"github.com/cloudwego/stackjit/internal/il"
	"github.com/cloudwego/stackjit/internal/jit"
	"github.com/cloudwego/stackjit/internal/opts"
	"github.com/tliron/commonlog"
)

var log = commonlog.GetLogger("stackjit")

type (
	Method     = il.Method
	Region     = il.Region
	RegionKind = il.RegionKind
	Signature  = il.Signature
	ValueType  = il.ValueType
)

const (
	Void = il.Void
	I4   = il.I4
	I8   = il.I8
	Ptr  = il.Ptr
	R8   = il.R8
	Obj  = il.Obj
)

const (
	Catch   = il.Catch
	Filter  = il.Filter
	Finally = il.Finally
	Fault   = il.Fault
)

// Assemble translates the textual form of a method body into bytecode. It
// also returns the offset of every label.
func Assemble(src string) ([]byte, map[string]int, error) {
	return il.Assemble(src)
}

// Disassemble formats bytecode, one instruction per line.
func Disassemble(code []byte) string {
	return il.Disassemble(code)
}

// Result is a compiled method: its blocks, expression trees, and the register
// assignment of every variable.
type Result struct {
	fn *jit.Func
}

func (self *Result) Name() string {
	return self.fn.Name
}

// Blocks returns the number of reachable basic blocks.
func (self *Result) Blocks() int {
	return len(self.fn.Layout)
}

// Trees returns the number of expression tree nodes.
func (self *Result) Trees() int {
	return self.fn.Trees.Len()
}

// Temps returns the number of temporaries introduced by the compiler.
func (self *Result) Temps() int {
	return self.fn.Vars.Temps()
}

// FrameSize returns the size of the stack frame in bytes.
func (self *Result) FrameSize() int {
	return self.fn.Vars.FrameSize()
}

// Registers maps the name of every allocated variable to the register it
// lives in, or "mem" if it was spilled.
func (self *Result) Registers() map[string]string {
	ret := make(map[string]string, len(self.fn.Regs))
	for v, r := range self.fn.Regs {
		ret[self.fn.Vars.Name(v)] = self.fn.Target.RegName(r)
	}
	return ret
}

func (self *Result) String() string {
	return self.fn.String()
}

// Compile translates the body of m into expression trees and assigns
// registers to its variables.
func Compile(m *Method, options ...Option) (*Result, error) {
	o := opts.GetDefaultOptions()
	for _, fn := range options {
		fn(&o)
	}

	/* compile the method */
	fn, err := jit.Compile(m, o)
	if err != nil {
		return nil, err
	}
	return &Result{fn}, nil
}

// CompileAll compiles every method concurrently. Methods are independent, so
// each error is reported at the index of its method, and a failing method
// does not affect the others.
func CompileAll(ctx context.Context, methods []*Method, options ...Option) ([]*Result, []error) {
	o := opts.GetDefaultOptions()
	for _, fn := range options {
		fn(&o)
	}

	/* create the worker pool */
	wg := sync.WaitGroup{}
	ret := make([]*Result, len(methods))
	errs := make([]error, len(methods))
	pool := gopool.NewPool("stackjit", int32(o.Workers), gopool.NewConfig())

	/* report worker panics */
	pool.SetPanicHandler(func(_ context.Context, v interface{}) {
		log.Errorf("compiler panic: %v", v)
	})

	/* compile every method */
	for i, m := range methods {
		i, m := i, m
		wg.Add(1)

		/* start the worker */
		pool.CtxGo(ctx, func() {
			defer wg.Done()

			/* replaced unless the compiler panics */
			errs[i] = fmt.Errorf("stackjit: %s: compiler panic", m.Name)

			/* check for cancellation */
			if err := ctx.Err(); err != nil {
				errs[i] = err
				return
			}

			/* compile the method */
			if fn, err := jit.Compile(m, o); err != nil {
				errs[i] = err
			} else {
				ret[i], errs[i] = &Result{fn}, nil
			}
		})
	}

	/* wait for all the workers */
	wg.Wait()
	return ret, errs
}
