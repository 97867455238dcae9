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
	"math/bits"
)

// Bitset is a fixed-size set of small non-negative integers.
type Bitset struct {
	data []uint64
}

func NewBitset(n int) Bitset {
	return Bitset{data: make([]uint64, (n+63)>>6)}
}

func (s Bitset) Set(i int) {
	x, y := i>>6, i&63 // i/64, i%64
	s.data[x] |= 1 << y
}

func (s Bitset) Clear(i int) {
	x, y := i>>6, i&63 // i/64, i%64
	s.data[x] &^= 1 << y
}

func (s Bitset) Has(i int) bool {
	x, y := i>>6, i&63 // i/64, i%64
	return x < len(s.data) && s.data[x]&(1<<y) != 0
}

// Union adds every element of other to s, and reports whether s changed.
func (s Bitset) Union(other Bitset) bool {
	changed := false
	for i, v := range other.data {
		if n := s.data[i] | v; n != s.data[i] {
			s.data[i] = n
			changed = true
		}
	}
	return changed
}

// Subtract removes every element of other from s.
func (s Bitset) Subtract(other Bitset) {
	for i, v := range other.data {
		s.data[i] &^= v
	}
}

func (s Bitset) Equal(other Bitset) bool {
	if len(s.data) != len(other.data) {
		return false
	}
	for i, v := range s.data {
		if other.data[i] != v {
			return false
		}
	}
	return true
}

func (s Bitset) Copy() Bitset {
	return Bitset{data: append([]uint64(nil), s.data...)}
}

// ForEach calls fn for every element in ascending order.
func (s Bitset) ForEach(fn func(i int)) {
	for x, v := range s.data {
		for v != 0 {
			y := bits.TrailingZeros64(v)
			fn(x<<6 | y)
			v &= v - 1
		}
	}
}

func (s Bitset) Count() int {
	ret := 0
	for _, v := range s.data {
		ret += bits.OnesCount64(v)
	}
	return ret
}
