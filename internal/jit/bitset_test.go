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

	"github.com/stretchr/testify/require"
)

func TestBitset(t *testing.T) {
	s := NewBitset(200)
	for i := 0; i < 200; i++ {
		if i%2 == 0 {
			s.Set(i)
		}
		if i%4 == 0 {
			s.Clear(i)
		}
	}
	for i := 0; i < 200; i++ {
		if i%4 == 0 {
			require.False(t, s.Has(i))
		} else if i%2 == 0 {
			require.True(t, s.Has(i))
		} else {
			require.False(t, s.Has(i))
		}
	}
	require.Equal(t, 50, s.Count())
	require.False(t, s.Has(1000))
}

func TestBitset_SetOps(t *testing.T) {
	a := NewBitset(130)
	b := NewBitset(130)
	a.Set(1)
	a.Set(129)
	b.Set(64)
	b.Set(129)

	/* union reports changes */
	c := a.Copy()
	require.True(t, c.Union(b))
	require.False(t, c.Union(b))
	require.False(t, a.Has(64))

	/* iteration is ascending */
	var got []int
	c.ForEach(func(i int) { got = append(got, i) })
	require.Equal(t, []int{1, 64, 129}, got)

	/* subtract */
	c.Subtract(a)
	require.True(t, c.Equal(func() Bitset { x := NewBitset(130); x.Set(64); return x }()))
	require.False(t, c.Equal(a))
}
