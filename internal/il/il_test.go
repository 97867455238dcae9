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

package il

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBuilder_Labels(t *testing.T) {
	p := NewBuilder()
	p.Label("top")
	p.Ldarg(0)
	p.Jmp(OP_brfalse_s, "out")
	p.Switch("top", "out", "top")
	p.Jmp(OP_br, "top")
	p.Label("out")
	p.Ret()
	code := p.Build()
	labels := p.Labels()
	require.Equal(t, 0, labels["top"])

	/* walk the instructions */
	ins, err := Decode(code, 0)
	require.NoError(t, err)
	require.Equal(t, OP_ldarg, ins.Op)
	require.Equal(t, int64(0), ins.Iv)

	br, err := Decode(code, ins.Next())
	require.NoError(t, err)
	require.Equal(t, OP_brfalse_s, br.Op)
	require.Equal(t, []int{labels["out"]}, br.Br)

	sw, err := Decode(code, br.Next())
	require.NoError(t, err)
	require.Equal(t, OP_switch, sw.Op)
	require.Equal(t, 1+4+3*4, sw.Len)
	require.Equal(t, []int{0, labels["out"], 0}, sw.Br)

	jmp, err := Decode(code, sw.Next())
	require.NoError(t, err)
	require.Equal(t, []int{0}, jmp.Br)
	require.Equal(t, labels["out"], jmp.Next())
}

func TestBuilder_Unresolved(t *testing.T) {
	p := NewBuilder()
	p.Jmp(OP_br, "nowhere")
	require.Equal(t, []string{"nowhere"}, p.Pending())
	require.Panics(t, func() { p.Build() })
	require.Panics(t, func() { p.Label("x"); p.Label("x") })
	require.Panics(t, func() { p.Slot(OP_ldc_i4, 1) })
}

func TestDecode_Errors(t *testing.T) {
	_, err := Decode([]byte{0xff}, 0)
	require.IsType(t, new(DecodeError), err)
	require.False(t, err.(*DecodeError).Truncated)

	_, err = Decode([]byte{byte(OP_ldc_i4), 1, 2}, 0)
	require.IsType(t, new(DecodeError), err)
	require.True(t, err.(*DecodeError).Truncated)

	_, err = Decode([]byte{byte(OP_switch), 9, 0, 0, 0, 0, 0, 0, 0}, 0)
	require.True(t, err.(*DecodeError).Truncated)
}

func TestAssemble(t *testing.T) {
	src := `
        ldarg 0          ; x
        ldc.i4 0x10
        blt small
        ldc.r8 1.5
        pop
        switch (a, b, a)
    a:  ldc.i8 -7
        ret
    b:
    small: ldnull
        ret
    `
	code, labels, err := Assemble(src)
	require.NoError(t, err)
	require.Equal(t, labels["b"], labels["small"])
	dis := Disassemble(code)
	require.Contains(t, dis, "ldc.i4     16")
	require.Contains(t, dis, "ldc.r8     1.5")
	require.Contains(t, dis, "ldc.i8     -7")
	require.Contains(t, dis, "switch")
	t.Log("\n" + dis)
}

func TestAssemble_Errors(t *testing.T) {
	for _, src := range []string{
		"frob",
		"ldarg",
		"ret 1",
		"ldarg 300",
		"br missing",
		"x: nop\nx: nop",
	} {
		_, _, err := Assemble(src)
		require.Error(t, err, src)
		require.IsType(t, new(SyntaxError), err, src)
	}
}

func TestTypes(t *testing.T) {
	for _, vt := range []ValueType{Void, I4, I8, Ptr, R8, Obj} {
		v, err := ParseType(vt.String())
		require.NoError(t, err)
		require.Equal(t, vt, v)
	}
	require.True(t, Ptr.IsScalar())
	require.False(t, R8.IsScalar())
	require.False(t, Obj.IsScalar())
	require.Equal(t, 4, I4.Size())
}
