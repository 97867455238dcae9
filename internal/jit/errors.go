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
	"fmt"
)

func location(method string, pc int) string {
	if pc < 0 {
		return method
	} else {
		return fmt.Sprintf("%s@IL_%04x", method, pc)
	}
}

// InvalidControlFlowError occurs when a branch target does not land on a valid
// block start, or the control-flow graph is malformed.
type InvalidControlFlowError struct {
	Method string
	Pc     int
	Reason string
}

func (self *InvalidControlFlowError) Error() string {
	return fmt.Sprintf("InvalidControlFlow(%s): %s", location(self.Method, self.Pc), self.Reason)
}

// InvalidStackStateError occurs when the operand stack depth is inconsistent at a
// control-flow join, underflows, or is not what a terminal instruction requires.
type InvalidStackStateError struct {
	Method string
	Pc     int
	Reason string
}

func (self *InvalidStackStateError) Error() string {
	return fmt.Sprintf("InvalidStackState(%s): %s", location(self.Method, self.Pc), self.Reason)
}

// UnsupportedBytecodeError occurs when an instruction has no translation rule.
type UnsupportedBytecodeError struct {
	Method string
	Pc     int
	Reason string
}

func (self *UnsupportedBytecodeError) Error() string {
	return fmt.Sprintf("UnsupportedBytecode(%s): %s", location(self.Method, self.Pc), self.Reason)
}

func eflow(method string, pc int, format string, args ...interface{}) error {
	return &InvalidControlFlowError{Method: method, Pc: pc, Reason: fmt.Sprintf(format, args...)}
}

func estack(method string, pc int, format string, args ...interface{}) error {
	return &InvalidStackStateError{Method: method, Pc: pc, Reason: fmt.Sprintf(format, args...)}
}

func eunsupp(method string, pc int, format string, args ...interface{}) error {
	return &UnsupportedBytecodeError{Method: method, Pc: pc, Reason: fmt.Sprintf(format, args...)}
}
