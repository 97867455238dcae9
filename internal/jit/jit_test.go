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
	"testing"

	"github.com/cloudwego/stackjit/internal/il"
	"github.com/cloudwego/stackjit/internal/opts"
	"github.com/davecgh/go-spew/spew"
	"github.com/stretchr/testify/require"
)

type testMethod struct {
	il.Method
	labels map[string]int
}

func assemble(t *testing.T, src string, ret il.ValueType, args []il.ValueType, locals []il.ValueType) *testMethod {
	code, labels, err := il.Assemble(src)
	require.NoError(t, err)
	return &testMethod{
		labels: labels,
		Method: il.Method{
			Name:   t.Name(),
			Code:   code,
			Args:   args,
			Locals: locals,
			Ret:    ret,
		},
	}
}

func compile(t *testing.T, m *il.Method, pool int) (*Func, error) {
	return Compile(m, opts.Options{Registers: pool, Target: "abstract", Workers: 1})
}

func mustCompile(t *testing.T, m *il.Method, pool int) *Func {
	fn, err := compile(t, m, pool)
	require.NoError(t, err)
	t.Log("\n" + fn.String())
	return fn
}

func blockAt(t *testing.T, fn *Func, pc int) *BasicBlock {
	for _, bb := range fn.Blocks {
		if bb.Start == pc {
			return bb
		}
	}
	require.Failf(t, "no block", "no block starts at IL_%04x", pc)
	return nil
}

func countOps(fn *Func, op Op) int {
	n := 0
	for _, bb := range fn.Layout {
		for _, r := range bb.Roots {
			fn.Trees.Walk(r, nil, func(x Ref) {
				if fn.Trees.At(x).Op == op {
					n++
				}
			})
		}
	}
	return n
}

func formatRoots(fn *Func, bb *BasicBlock) []string {
	ret := make([]string, 0, len(bb.Roots))
	for _, r := range bb.Roots {
		ret = append(ret, fn.Trees.Format(r, fn.Vars))
	}
	return ret
}

var i4x2 = []il.ValueType{il.I4, il.I4}

func TestCompile_StraightLine(t *testing.T) {
	m := assemble(t, `
        ldarg 0
        ldarg 1
        add
        stloc 0
        ldloc 0
        ret
    `, il.I4, i4x2, []il.ValueType{il.I4})
	fn := mustCompile(t, &m.Method, 0)
	require.Len(t, fn.Layout, 1)
	require.Equal(t, 0, fn.Vars.Temps())
	require.Equal(t, []string{
		"(store (addr l0) (add (load i4 (addr a0)) (load i4 (addr a1))))",
		"(ret (load i4 (addr l0)))",
	}, formatRoots(fn, fn.Layout[0]))
}

func TestCompile_Registers(t *testing.T) {
	m := assemble(t, `
        ldarg 0
        ldarg 1
        add
        stloc 0
        ldloc 0
        ret
    `, il.I4, i4x2, []il.ValueType{il.I4})

	/* enough registers for everyone */
	fn := mustCompile(t, &m.Method, 3)
	require.Equal(t, Assignment{0: 0, 1: 1, 2: 2}, fn.Regs)
	require.Equal(t, "(ret (load i4 (addr l0 @r2)))", fn.Trees.Format(fn.Layout[0].Roots[1], fn.Vars))

	/* the longest living variable is spilled */
	fn = mustCompile(t, &m.Method, 2)
	require.Equal(t, Assignment{0: 0, 1: 1, 2: RegNone}, fn.Regs)
	require.Equal(t, []VarID{2}, fn.Regs.Spilled())
}

func TestCompile_IfElseMerge(t *testing.T) {
	m := assemble(t, `
        ldarg 0
        brfalse.s else
        ldc.i4 1
        br.s done
    else:
        ldc.i4 2
    done:
        ret
    `, il.I4, []il.ValueType{il.I4}, nil)
	fn := mustCompile(t, &m.Method, 0)
	require.Len(t, fn.Layout, 4)
	require.Equal(t, 1, fn.Vars.Temps())

	/* both arms store into the same merge temporary */
	then := fn.Blocks[1]
	els := blockAt(t, fn, m.labels["else"])
	done := blockAt(t, fn, m.labels["done"])
	require.Equal(t, done.Entry, then.Exit)
	require.Equal(t, done.Entry, els.Exit)
	require.Equal(t, []string{"(store (addr t0) (const i4 1))", "(br bb_3)"}, formatRoots(fn, then))
	require.Equal(t, []string{"(store (addr t0) (const i4 2))"}, formatRoots(fn, els))
	require.Equal(t, []string{"(ret (load i4 (addr t0)))"}, formatRoots(fn, done))
	require.Equal(t, []string{"(brcond false (load i4 (addr a0)) bb_2 bb_1)"}, formatRoots(fn, fn.Blocks[0]))
}

func TestCompile_SwitchRepeatedTarget(t *testing.T) {
	m := assemble(t, `
        ldc.i4 7
        ldarg 0
        switch (a, b, a)
        pop
        ldc.i4 0
        ret
    a:  ret
    b:  pop
        ldc.i4 2
        ret
    `, il.I4, []il.ValueType{il.I4}, nil)
	fn := mustCompile(t, &m.Method, 0)
	entry := fn.Blocks[0]

	/* one mark per distinct successor, the shape is stored once */
	require.Equal(t, 3, fn.Marks)
	require.Len(t, entry.Succs, 3)
	require.Len(t, entry.Roots, 2)
	require.Equal(t, 1, fn.Vars.Temps())
	require.Equal(t, "(store (addr t0) (const i4 7))", fn.Trees.Format(entry.Roots[0], fn.Vars))

	/* the switch keeps every case */
	sw := fn.Trees.At(entry.Roots[1])
	require.Equal(t, OpSwitch, sw.Op)
	require.Len(t, sw.Targets, 4)
	require.Equal(t, sw.Targets[0], sw.Targets[2])

	/* every successor shares the shape */
	for _, s := range entry.Succs {
		require.Equal(t, entry.Exit, fn.Blocks[s].Entry)
	}
	require.Equal(t, []string{"(ret (load i4 (addr t0)))"}, formatRoots(fn, blockAt(t, fn, m.labels["a"])))
}

func TestCompile_JoinDepthMismatch(t *testing.T) {
	m := assemble(t, `
        ldarg 0
        brfalse.s else
        ldc.i4 1
        br.s done
    else:
        br.s done
    done:
        ret
    `, il.Void, []il.ValueType{il.I4}, nil)
	_, err := compile(t, &m.Method, 0)
	require.Error(t, err)
	require.IsType(t, new(InvalidStackStateError), err)
	t.Log(err)
}

func TestCompile_StackErrors(t *testing.T) {
	for _, src := range []string{
		"pop\nret",
		"ldc.i4 1\nldc.i4 2\nret",
		"add\nret",
		"ldc.i4 1\nendfinally",
	} {
		m := assemble(t, src, il.I4, nil, nil)
		_, err := compile(t, &m.Method, 0)
		require.Error(t, err, src)
		require.IsType(t, new(InvalidStackStateError), err, src)
	}
}

func TestCompile_Unsupported(t *testing.T) {
	for _, src := range []string{
		"break\nret",
		"ldarg 3\nret",
		"ldloca 0\nret",
		"call 9\nret",
	} {
		m := assemble(t, src, il.Void, nil, nil)
		_, err := compile(t, &m.Method, 0)
		require.Error(t, err, src)
		require.IsType(t, new(UnsupportedBytecodeError), err, src)
	}
}

func TestCompile_DupStable(t *testing.T) {
	m := assemble(t, `
        ldarg 0
        dup
        add
        ret
    `, il.I4, []il.ValueType{il.I4}, nil)
	fn := mustCompile(t, &m.Method, 0)
	require.Equal(t, 0, fn.Vars.Temps())
	require.Equal(t, []string{
		"(ret (add (load i4 (addr a0)) (load i4 (addr a0))))",
	}, formatRoots(fn, fn.Layout[0]))
}

func TestCompile_DupEvaluatesOnce(t *testing.T) {
	m := assemble(t, `
        call 0
        dup
        mul
        ret
    `, il.I4, nil, nil)
	m.Calls = []il.Signature{{Ret: il.I4}}
	fn := mustCompile(t, &m.Method, 0)
	require.Equal(t, 1, fn.Vars.Temps())
	require.Equal(t, 1, countOps(fn, OpCall))
	require.Equal(t, []string{
		"(store (addr t0) (call #0))",
		"(ret (mul (load i4 (addr t0)) (load i4 (addr t0))))",
	}, formatRoots(fn, fn.Layout[0]))
}

func TestCompile_StoreOrdering(t *testing.T) {
	m := assemble(t, `
        ldloc 0
        ldc.i4 5
        stloc 0
        ret
    `, il.I4, nil, []il.ValueType{il.I4})
	fn := mustCompile(t, &m.Method, 0)
	require.Equal(t, []string{
		"(store (addr t0) (load i4 (addr l0)))",
		"(store (addr l0) (const i4 5))",
		"(ret (load i4 (addr t0)))",
	}, formatRoots(fn, fn.Layout[0]))
}

func TestCompile_SideEffectOrdering(t *testing.T) {
	m := assemble(t, `
        call 0
        ldc.i4 1
        call 1
        ldc.i4 2
        add
        ret
    `, il.I4, nil, nil)
	m.Calls = []il.Signature{{Ret: il.I4}, {Args: []il.ValueType{il.I4}}}
	fn := mustCompile(t, &m.Method, 0)
	require.Equal(t, []string{
		"(store (addr t0) (call #0))",
		"(call #1 (const i4 1))",
		"(ret (add (load i4 (addr t0)) (const i4 2)))",
	}, formatRoots(fn, fn.Layout[0]))
}

func TestCompile_DiscardKeepsSideEffects(t *testing.T) {
	m := assemble(t, `
        ldarg 0
        pop
        call 0
        pop
        ret
    `, il.Void, []il.ValueType{il.I4}, nil)
	m.Calls = []il.Signature{{Ret: il.I8}}
	fn := mustCompile(t, &m.Method, 0)
	require.Equal(t, []string{
		"(discard (call #0))",
		"(ret)",
	}, formatRoots(fn, fn.Layout[0]))
}

func TestCompile_CatchHandler(t *testing.T) {
	m := assemble(t, `
    try:
        ldarg 0
        call 0
        leave.s out
    h:  pop
        ldloc 0
        call 0
        leave.s out
    out:
        ret
    `, il.Void, []il.ValueType{il.I4}, []il.ValueType{il.I4})
	m.Calls = []il.Signature{{Args: []il.ValueType{il.I4}}}
	m.Regions = []il.Region{{
		Kind:         il.Catch,
		TryStart:     m.labels["try"],
		TryEnd:       m.labels["h"],
		HandlerStart: m.labels["h"],
		HandlerEnd:   m.labels["out"],
	}}
	fn := mustCompile(t, &m.Method, 4)
	try := fn.Blocks[0]
	h := blockAt(t, fn, m.labels["h"])
	out := blockAt(t, fn, m.labels["out"])

	/* the handler receives the exception object */
	require.True(t, h.Handler)
	require.Len(t, h.Entry, 1)
	require.Equal(t, il.Obj, fn.Vars.At(h.Entry[0]).Type)
	require.Equal(t, []int{h.Id}, try.Exc)
	require.Equal(t, Finished, out.State())

	/* l0 is read by the handler, so it is live throughout the protected block */
	l0 := fn.Vars.Local(0)
	require.True(t, fn.Live.IsLiveIn(h, l0))
	require.True(t, fn.Live.IsLiveOut(try, l0))
	require.True(t, fn.Live.IsLiveIn(try, l0))
}

func TestCompile_Filter(t *testing.T) {
	m := assemble(t, `
    try:
        ldarg 0
        call 0
        leave.s out
    f:  pop
        ldc.i4 1
        endfilter
    h:  pop
        leave.s out
    out:
        ret
    `, il.Void, []il.ValueType{il.I4}, nil)
	m.Calls = []il.Signature{{Args: []il.ValueType{il.I4}}}
	m.Regions = []il.Region{{
		Kind:         il.Filter,
		TryStart:     m.labels["try"],
		TryEnd:       m.labels["f"],
		FilterStart:  m.labels["f"],
		HandlerStart: m.labels["h"],
		HandlerEnd:   m.labels["out"],
	}}
	fn := mustCompile(t, &m.Method, 4)
	f := blockAt(t, fn, m.labels["f"])
	h := blockAt(t, fn, m.labels["h"])
	require.Equal(t, []int{f.Id, h.Id}, fn.Blocks[0].Exc)
	require.Len(t, f.Entry, 1)
	require.Len(t, h.Entry, 1)
	require.Equal(t, []string{"(endfilter (const i4 1))"}, formatRoots(fn, f))
}

func TestCompile_Finally(t *testing.T) {
	m := assemble(t, `
    try:
        ldc.i4 3
        stloc 0
        leave.s out
    fin:
        ldloc 0
        call 0
        endfinally
    out:
        ldloc 0
        ret
    `, il.I4, nil, []il.ValueType{il.I4})
	m.Calls = []il.Signature{{Args: []il.ValueType{il.I4}}}
	m.Regions = []il.Region{{
		Kind:         il.Finally,
		TryStart:     m.labels["try"],
		TryEnd:       m.labels["fin"],
		HandlerStart: m.labels["fin"],
		HandlerEnd:   m.labels["out"],
	}}
	fn := mustCompile(t, &m.Method, 4)
	fin := blockAt(t, fn, m.labels["fin"])
	require.Empty(t, fin.Entry)
	require.True(t, fin.Handler)
	require.Equal(t, "(endfinally)", fn.Trees.Format(fin.Roots[len(fin.Roots)-1], fn.Vars))
}

func TestCompile_UnreachableBlock(t *testing.T) {
	m := assemble(t, `
        ldc.i4 1
        ret
        ldc.i4 2
        ret
    `, il.I4, nil, nil)
	fn := mustCompile(t, &m.Method, 0)
	require.Len(t, fn.Blocks, 2)
	require.Len(t, fn.Layout, 1)
	require.Equal(t, Unvisited, fn.Blocks[1].State())
	require.Equal(t, -1, fn.Blocks[1].Index)
	require.NotContains(t, fn.String(), "bb_1")
}

func TestCompile_AddressTaken(t *testing.T) {
	m := assemble(t, `
        ldloc 0
        ldloca 0
        ldc.i4 9
        stind.i4
        ret
    `, il.I4, nil, []il.ValueType{il.I4})
	fn := mustCompile(t, &m.Method, 4)
	l0 := fn.Vars.At(fn.Vars.Local(0))
	require.True(t, l0.AddrTaken)
	require.False(t, l0.IsRegCandidate())

	/* the pending read happens before the indirect store */
	require.Equal(t, []string{
		"(store (addr t0 @r0) (load i4 (addr l0)))",
		"(store (addr l0) (const i4 9))",
		"(ret (load i4 (addr t0 @r0)))",
	}, formatRoots(fn, fn.Layout[0]))
	spew.Config.SortKeys = true
	t.Log(spew.Sdump(fn.Regs))
}
