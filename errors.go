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
	"github.com/cloudwego/stackjit/internal/il"
	"github.com/cloudwego/stackjit/internal/jit"
)

type (
	// InvalidControlFlowError occures when a branch leaves the method body,
	// lands inside an instruction, or execution falls off the end.
	InvalidControlFlowError = jit.InvalidControlFlowError

	// InvalidStackStateError occures when the evaluation stack underflows, or
	// a block is entered with different stack depths.
	InvalidStackStateError = jit.InvalidStackStateError

	// UnsupportedBytecodeError occures when an opcode has no translation rule,
	// or an operand refers to something that does not exist.
	UnsupportedBytecodeError = jit.UnsupportedBytecodeError

	// SyntaxError occures when failed to assemble the textual form of a method.
	SyntaxError = il.SyntaxError
)
