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
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/cloudwego/stackjit"
	"github.com/cloudwego/stackjit/internal/il"
)

// File is a collection of methods in their textual form.
type File struct {
	Methods []MethodDef `toml:"method"`
}

// MethodDef describes one method. Code is assembled, region boundaries refer
// to labels in the code.
type MethodDef struct {
	Name     string      `toml:"name"`
	Args     []string    `toml:"args"`
	Locals   []string    `toml:"locals"`
	Volatile []int       `toml:"volatile"`
	Ret      string      `toml:"ret"`
	Code     string      `toml:"code"`
	Regions  []RegionDef `toml:"region"`
	Calls    []CallDef   `toml:"call"`
}

type RegionDef struct {
	Kind         string `toml:"kind"`
	TryStart     string `toml:"try-start"`
	TryEnd       string `toml:"try-end"`
	HandlerStart string `toml:"handler-start"`
	HandlerEnd   string `toml:"handler-end"`
	FilterStart  string `toml:"filter-start"`
}

type CallDef struct {
	Args []string `toml:"args"`
	Ret  string   `toml:"ret"`
}

// LoadFile parses a method file.
func LoadFile(path string) ([]*stackjit.Method, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}
	return Parse(string(data))
}

// Parse decodes the methods of a method file.
func Parse(src string) ([]*stackjit.Method, error) {
	var f File
	if _, err := toml.Decode(src, &f); err != nil {
		return nil, fmt.Errorf("parse error: %w", err)
	}

	/* build every method */
	ret := make([]*stackjit.Method, 0, len(f.Methods))
	for i := range f.Methods {
		if m, err := f.Methods[i].build(); err != nil {
			return nil, fmt.Errorf("method %q: %w", f.Methods[i].Name, err)
		} else {
			ret = append(ret, m)
		}
	}
	return ret, nil
}

func (self *MethodDef) build() (*stackjit.Method, error) {
	var err error
	var labels map[string]int

	/* assemble the body */
	m := &stackjit.Method{Name: self.Name, Volatile: self.Volatile}
	if m.Code, labels, err = il.Assemble(self.Code); err != nil {
		return nil, err
	}

	/* signature */
	if m.Args, err = parseTypes(self.Args); err != nil {
		return nil, err
	}
	if m.Locals, err = parseTypes(self.Locals); err != nil {
		return nil, err
	}
	if m.Ret, err = parseRet(self.Ret); err != nil {
		return nil, err
	}

	/* protected regions */
	for _, r := range self.Regions {
		if rr, err := r.build(labels); err != nil {
			return nil, err
		} else {
			m.Regions = append(m.Regions, rr)
		}
	}

	/* call signatures */
	for _, c := range self.Calls {
		var sig il.Signature
		if sig.Args, err = parseTypes(c.Args); err != nil {
			return nil, err
		}
		if sig.Ret, err = parseRet(c.Ret); err != nil {
			return nil, err
		}
		m.Calls = append(m.Calls, sig)
	}
	return m, nil
}

func (self *RegionDef) build(labels map[string]int) (il.Region, error) {
	var err error
	var ret il.Region

	/* region kind */
	if ret.Kind, err = il.ParseRegionKind(self.Kind); err != nil {
		return ret, err
	}

	/* resolve all the boundaries */
	for _, v := range []struct {
		pc   *int
		name string
	}{
		{&ret.TryStart, self.TryStart},
		{&ret.TryEnd, self.TryEnd},
		{&ret.HandlerStart, self.HandlerStart},
		{&ret.HandlerEnd, self.HandlerEnd},
	} {
		if *v.pc, err = resolve(labels, v.name); err != nil {
			return ret, err
		}
	}

	/* filter entry */
	if ret.Kind == il.Filter {
		if ret.FilterStart, err = resolve(labels, self.FilterStart); err != nil {
			return ret, err
		}
	}
	return ret, nil
}

func resolve(labels map[string]int, name string) (int, error) {
	if pc, ok := labels[name]; !ok {
		return 0, fmt.Errorf("undefined label %q", name)
	} else {
		return pc, nil
	}
}

func parseTypes(names []string) ([]il.ValueType, error) {
	ret := make([]il.ValueType, 0, len(names))
	for _, s := range names {
		if vt, err := il.ParseType(s); err != nil {
			return nil, err
		} else {
			ret = append(ret, vt)
		}
	}
	return ret, nil
}

func parseRet(name string) (il.ValueType, error) {
	if name == "" {
		return il.Void, nil
	} else {
		return il.ParseType(name)
	}
}
