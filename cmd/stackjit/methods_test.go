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

package main

import (
	"context"
	"testing"

	"github.com/cloudwego/stackjit"
	"github.com/cloudwego/stackjit/internal/il"
	"github.com/stretchr/testify/require"
)

const methodFile = `
[[method]]
name = "max"
args = ["i4", "i4"]
ret = "i4"
code = """
    ldarg 0
    ldarg 1
    bge first
    ldarg 1
    ret
first:
    ldarg 0
    ret
"""

[[method]]
name = "guarded"
args = ["i4"]
locals = ["i4"]
volatile = [0]
code = """
try:
    ldarg 0
    call 0
    leave.s out
handler:
    pop
    leave.s out
out:
    ret
"""

[[method.region]]
kind = "catch"
try-start = "try"
try-end = "handler"
handler-start = "handler"
handler-end = "out"

[[method.call]]
args = ["i4"]
`

func TestParse(t *testing.T) {
	methods, err := Parse(methodFile)
	require.NoError(t, err)
	require.Len(t, methods, 2)

	/* signatures */
	mx := methods[0]
	require.Equal(t, "max", mx.Name)
	require.Equal(t, []il.ValueType{il.I4, il.I4}, mx.Args)
	require.Equal(t, il.I4, mx.Ret)
	require.Empty(t, mx.Regions)

	/* regions are resolved through labels */
	g := methods[1]
	require.Equal(t, il.Void, g.Ret)
	require.True(t, g.IsVolatile(0))
	require.Len(t, g.Regions, 1)
	require.Equal(t, il.Catch, g.Regions[0].Kind)
	require.Equal(t, 0, g.Regions[0].TryStart)
	require.Equal(t, g.Regions[0].TryEnd, g.Regions[0].HandlerStart)
	require.Equal(t, []il.Signature{{Args: []il.ValueType{il.I4}, Ret: il.Void}}, g.Calls)

	/* and both compile */
	results, errs := stackjit.CompileAll(context.Background(), methods, stackjit.WithTarget("arm64"))
	for i := range methods {
		require.NoError(t, errs[i])
		t.Log("\n" + results[i].String())
	}
}

func TestParse_Errors(t *testing.T) {
	for _, src := range []string{
		"[[method]]\nname = 1",
		"[[method]]\nname = \"x\"\ncode = \"frob\"",
		"[[method]]\nname = \"x\"\nargs = [\"u2\"]\ncode = \"ret\"",
		"[[method]]\nname = \"x\"\ncode = \"ret\"\n[[method.region]]\nkind = \"catch\"\ntry-start = \"nowhere\"",
		"[[method]]\nname = \"x\"\ncode = \"ret\"\n[[method.region]]\nkind = \"finalize\"",
	} {
		_, err := Parse(src)
		require.Error(t, err, src)
	}
}
