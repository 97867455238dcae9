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

package debug

import (
	"sync/atomic"

	"github.com/cloudwego/stackjit/internal/jit"
)

// A Stats records statistics about the JIT compiler.
type Stats struct {
	Methods  int
	Failures int
	Code     CodeStats
}

// A CodeStats records statistics about the compiled methods.
type CodeStats struct {
	Blocks int
	Trees  int
	Temps  int
	Spills int
}

// GetStats returns statistics of the JIT compiler.
func GetStats() Stats {
	return Stats{
		Methods:  int(atomic.LoadUint32(&jit.MethodCount)),
		Failures: int(atomic.LoadUint32(&jit.ErrorCount)),
		Code: CodeStats{
			Blocks: int(atomic.LoadUint32(&jit.BlockCount)),
			Trees:  int(atomic.LoadUint32(&jit.TreeCount)),
			Temps:  int(atomic.LoadUint32(&jit.TempCount)),
			Spills: int(atomic.LoadUint32(&jit.SpillCount)),
		},
	}
}
