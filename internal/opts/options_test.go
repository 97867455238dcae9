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
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseOrDefault(t *testing.T) {
	t.Setenv("STACKJIT_TEST_VALUE", "")
	require.Equal(t, 7, parseOrDefault("STACKJIT_TEST_VALUE", 7, 0))

	t.Setenv("STACKJIT_TEST_VALUE", "0x10")
	require.Equal(t, 16, parseOrDefault("STACKJIT_TEST_VALUE", 7, 0))

	t.Setenv("STACKJIT_TEST_VALUE", "0")
	require.Panics(t, func() { parseOrDefault("STACKJIT_TEST_VALUE", 7, 1) })

	t.Setenv("STACKJIT_TEST_VALUE", "many")
	require.Panics(t, func() { parseOrDefault("STACKJIT_TEST_VALUE", 7, 0) })
}

func TestDefaultOptions(t *testing.T) {
	o := GetDefaultOptions()
	require.Equal(t, Registers, o.Registers)
	require.Equal(t, Target, o.Target)
	require.GreaterOrEqual(t, o.Workers, 1)

	o.Registers = -3
	require.Equal(t, 0, o.PoolSize())
}
