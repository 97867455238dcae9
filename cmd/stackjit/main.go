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
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/cloudwego/stackjit"
	"github.com/cloudwego/stackjit/debug"
	"github.com/davecgh/go-spew/spew"
	"github.com/tliron/commonlog"

	_ "github.com/tliron/commonlog/simple"
)

func main() {
	regs := flag.Int("r", -1, "Number of allocatable registers (default from STACKJIT_REGISTERS)")
	target := flag.String("t", "", "Register file: amd64, arm64 or abstract")
	only := flag.String("m", "", "Only compile the method with this name")
	verbose := flag.Int("v", 0, "Log verbosity")
	trace := flag.Bool("trace", false, "Dump the function after every pass")
	dump := flag.Bool("dump", false, "Dump the register assignment and statistics")
	disasm := flag.Bool("d", false, "Print the disassembled bytecode")
	flag.Parse()

	/* exactly one method file */
	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: stackjit [flags] <methods.toml>")
		flag.PrintDefaults()
		os.Exit(2)
	}

	/* configure logging */
	commonlog.Configure(*verbose, nil)

	/* load the methods */
	methods, err := LoadFile(flag.Arg(0))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	/* select the methods */
	if *only != "" {
		methods = filter(methods, *only)
		if len(methods) == 0 {
			fmt.Fprintf(os.Stderr, "no method named %q\n", *only)
			os.Exit(1)
		}
	}

	/* compiler options */
	options := []stackjit.Option{stackjit.WithTrace(*trace)}
	if *regs >= 0 {
		options = append(options, stackjit.WithRegisters(*regs))
	}
	if *target != "" {
		options = append(options, stackjit.WithTarget(*target))
	}

	/* compile everything */
	failed := false
	results, errs := stackjit.CompileAll(context.Background(), methods, options...)

	/* print the results in input order */
	for i, m := range methods {
		if *disasm {
			fmt.Printf("; %s\n%s\n", m.Name, stackjit.Disassemble(m.Code))
		}
		if errs[i] != nil {
			failed = true
			fmt.Fprintf(os.Stderr, "%s: %v\n", m.Name, errs[i])
			continue
		}
		fmt.Println(results[i])
		if *dump {
			spew.Config.SortKeys = true
			spew.Dump(results[i].Registers())
		}
		fmt.Println()
	}

	/* compiler statistics */
	if *dump {
		spew.Dump(debug.GetStats())
	}
	if failed {
		os.Exit(1)
	}
}

func filter(methods []*stackjit.Method, name string) []*stackjit.Method {
	ret := methods[:0]
	for _, m := range methods {
		if m.Name == name {
			ret = append(ret, m)
		}
	}
	return ret
}
