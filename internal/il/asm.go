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
	"fmt"
	"strconv"
	"strings"
)

// SyntaxError occurs when failed to assemble a textual method body.
type SyntaxError struct {
	Line   int
	Src    string
	Reason string
}

func (self *SyntaxError) Error() string {
	return fmt.Sprintf("syntax error at line %d: %s", self.Line, self.Reason)
}

// Assemble translates the textual form of a method body into bytecode. Every
// line holds an optional "label:" prefix and an optional instruction; ';' starts
// a comment. Switch tables are written as comma separated labels.
func Assemble(src string) (code []byte, labels map[string]int, err error) {
	p := NewBuilder()
	lines := strings.Split(src, "\n")

	/* short branches may overflow while patching */
	defer func() {
		if v := recover(); v != nil {
			code, labels, err = nil, nil, &SyntaxError{Src: src, Reason: fmt.Sprint(v)}
		}
	}()

	/* assemble line by line */
	for i, line := range lines {
		if err = assembleLine(p, line); err != nil {
			err.(*SyntaxError).Line = i + 1
			err.(*SyntaxError).Src = line
			return nil, nil, err
		}
	}

	/* check for unresolved labels */
	if pend := p.Pending(); len(pend) != 0 {
		return nil, nil, &SyntaxError{Src: src, Reason: "undefined labels: " + strings.Join(pend, ", ")}
	}

	/* everything resolved */
	code = p.Build()
	labels = p.Labels()
	return
}

func assembleLine(p *Builder, line string) error {
	if i := strings.IndexByte(line, ';'); i >= 0 {
		line = line[:i]
	}

	/* labels */
	line = strings.TrimSpace(line)
	if i := strings.IndexByte(line, ':'); i >= 0 {
		lb := strings.TrimSpace(line[:i])
		if lb == "" || strings.ContainsAny(lb, " \t") {
			return &SyntaxError{Reason: "invalid label"}
		}
		if _, ok := p.refs[lb]; ok {
			return &SyntaxError{Reason: "duplicated label " + lb}
		}
		p.Label(lb)
		line = strings.TrimSpace(line[i+1:])
	}

	/* empty lines */
	if line == "" {
		return nil
	}

	/* split the mnemonic and the operand */
	arg := ""
	name := line
	if i := strings.IndexAny(line, " \t"); i >= 0 {
		name, arg = line[:i], strings.TrimSpace(line[i+1:])
	}

	/* lookup the opcode */
	op, ok := ParseOp(strings.ToLower(name))
	if !ok {
		return &SyntaxError{Reason: "unknown instruction " + name}
	}

	/* operand checking */
	imm := op.Info().Imm
	if (imm == ImmNone) != (arg == "") {
		return &SyntaxError{Reason: "wrong operand count for " + op.String()}
	}

	/* encode the operand */
	switch imm {
	case ImmNone:
		p.Op(op)
	case ImmU8:
		v, err := strconv.ParseUint(arg, 0, 8)
		if err != nil {
			return &SyntaxError{Reason: "invalid slot index " + arg}
		}
		p.Slot(op, int(v))
	case ImmU16:
		v, err := strconv.ParseUint(arg, 0, 16)
		if err != nil {
			return &SyntaxError{Reason: "invalid call token " + arg}
		}
		p.Call(int(v))
	case ImmI32:
		v, err := strconv.ParseInt(arg, 0, 32)
		if err != nil {
			return &SyntaxError{Reason: "invalid i4 constant " + arg}
		}
		p.I4(int32(v))
	case ImmI64:
		v, err := strconv.ParseInt(arg, 0, 64)
		if err != nil {
			return &SyntaxError{Reason: "invalid i8 constant " + arg}
		}
		p.I8(v)
	case ImmF64:
		v, err := strconv.ParseFloat(arg, 64)
		if err != nil {
			return &SyntaxError{Reason: "invalid r8 constant " + arg}
		}
		p.R8(v)
	case ImmRel8, ImmRel32:
		p.Jmp(op, arg)
	case ImmSwitch:
		p.Switch(splitTable(arg)...)
	}
	return nil
}

func splitTable(arg string) []string {
	arg = strings.TrimSuffix(strings.TrimPrefix(arg, "("), ")")
	tab := strings.Split(arg, ",")

	/* trim every label */
	for i, v := range tab {
		tab[i] = strings.TrimSpace(v)
	}
	return tab
}
