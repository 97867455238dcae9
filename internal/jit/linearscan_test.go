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

	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/require"
)

func newRange(v VarID, first Pos, last Pos) *LiveRange {
	return &LiveRange{Var: v, First: first, Last: last, Reg: RegNone}
}

func TestLinearScan_SpillCurrent(t *testing.T) {
	for _, order := range [][]int{{0, 1}, {1, 0}} {
		rs := []*LiveRange{newRange(0, 0, 10), newRange(1, 5, 20)}
		in := []*LiveRange{rs[order[0]], rs[order[1]]}
		asg := LinearScan(in, 1)
		require.Equal(t, Assignment{0: 0, 1: RegNone}, asg, "order %v", order)
	}
}

func TestLinearScan_EvictFarthest(t *testing.T) {
	for _, order := range [][]int{{0, 1}, {1, 0}} {
		rs := []*LiveRange{newRange(0, 0, 20), newRange(1, 5, 10)}
		in := []*LiveRange{rs[order[0]], rs[order[1]]}
		asg := LinearScan(in, 1)
		require.Equal(t, Assignment{0: RegNone, 1: 0}, asg, "order %v", order)
		require.Equal(t, RegNone, rs[0].Reg)
		require.Equal(t, Register(0), rs[1].Reg)
	}
}

func TestLinearScan_Reuse(t *testing.T) {
	asg := LinearScan([]*LiveRange{newRange(0, 0, 4), newRange(1, 5, 9), newRange(2, 3, 6)}, 2)
	require.Equal(t, Assignment{0: 0, 1: 0, 2: 1}, asg)
}

func TestLinearScan_NoRegisters(t *testing.T) {
	asg := LinearScan([]*LiveRange{newRange(0, 0, 4), newRange(1, 1, 2), newRange(2, 3, 6)}, 0)
	require.Len(t, asg, 3)
	require.Equal(t, []VarID{0, 1, 2}, asg.Spilled())
}

func TestLinearScan_Random(t *testing.T) {
	fk := gofakeit.New(1234)
	for round := 0; round < 200; round++ {
		pool := fk.Number(0, 6)
		ranges := make([]*LiveRange, fk.Number(1, 40))

		/* random intervals over a few blocks */
		for i := range ranges {
			a := MakePos(fk.Number(0, 4), fk.Number(0, 8))
			b := MakePos(fk.Number(0, 4), fk.Number(0, 8))
			if a > b {
				a, b = b, a
			}
			ranges[i] = newRange(VarID(i), a, b)
		}

		/* every range gets a decision */
		asg := LinearScan(ranges, pool)
		require.Len(t, asg, len(ranges))

		/* registers come from the pool and never overlap */
		for i, x := range ranges {
			r := asg[x.Var]
			require.Equal(t, r, x.Reg)
			require.True(t, r == RegNone || (r >= 0 && int(r) < pool), "register %s out of pool %d", r, pool)
			for _, y := range ranges[i+1:] {
				if r != RegNone && asg[y.Var] == r {
					require.False(t, x.Overlaps(y), "%s and %s share %s", x, y, r)
				}
			}
		}
	}
}
