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

type Options struct {
	Registers int
	Target    string
	Workers   int
	Trace     bool
}

// PoolSize returns the number of registers the allocator may hand out.
func (self *Options) PoolSize() int {
	if self.Registers < 0 {
		return 0
	} else {
		return self.Registers
	}
}

func GetDefaultOptions() Options {
	return Options{
		Registers: Registers,
		Target:    Target,
		Workers:   Workers,
		Trace:     Trace,
	}
}
