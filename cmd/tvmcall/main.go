package main

import (
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/wippyai/tvm-go"
	"github.com/wippyai/tvm-go/native"
)

func main() {
	var (
		libFile     = flag.String("lib", "", "Module file to load (optional)")
		funcName    = flag.String("func", "", "Function to call (module entry or global)")
		argList     = flag.String("args", "", "Comma-separated arguments: 1, 2u, 1.5, true, \"text\", float32, cpu(0)")
		list        = flag.Bool("list", false, "List global functions and exit")
		interactive = flag.Bool("i", false, "Interactive mode with TUI")
		verbose     = flag.Bool("v", false, "Debug logging")
	)
	flag.Parse()

	if *verbose {
		log, err := zap.NewDevelopment()
		if err == nil {
			tvm.SetLogger(log)
			native.SetLogger(log)
			defer func() { _ = log.Sync() }()
		}
	}

	if !*list && !*interactive && *funcName == "" && *libFile == "" {
		fmt.Fprintln(os.Stderr, "Usage: tvmcall -func name [-args 1,2,3]")
		fmt.Fprintln(os.Stderr, "       tvmcall -lib <module> [-func name] [-args ...]")
		fmt.Fprintln(os.Stderr, "       tvmcall -list")
		fmt.Fprintln(os.Stderr, "       tvmcall [-lib <module>] -i  (interactive mode)")
		os.Exit(1)
	}

	if *interactive {
		if !term.IsTerminal(int(os.Stdout.Fd())) {
			fmt.Fprintln(os.Stderr, "Error: -i needs a terminal")
			os.Exit(1)
		}
		if err := runInteractive(*libFile); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if err := run(*libFile, *funcName, *argList, *list); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(libFile, funcName, argList string, listOnly bool) error {
	s, err := openSession(libFile)
	if err != nil {
		return err
	}
	defer s.Close()

	if v, err := s.client.Version(); err == nil {
		fmt.Printf("Runtime: %s\n", v)
	}

	if listOnly {
		names, err := s.client.ListGlobalFuncNames()
		if err != nil {
			return fmt.Errorf("list: %w", err)
		}
		fmt.Printf("\nGlobal functions:\n")
		for _, n := range names {
			fmt.Printf("  %s\n", n)
		}
		return nil
	}

	args, err := parseArgs(argList)
	if err != nil {
		return err
	}
	fn, err := s.resolve(funcName)
	if err != nil {
		return err
	}
	defer fn.Release()

	fmt.Printf("\nCalling %s(%s)...\n", fn.Name(), formatArgs(args))
	ret, err := fn.Invoke(args...)
	if err != nil {
		return fmt.Errorf("call %s: %w", fn.Name(), err)
	}
	defer ret.Release()
	fmt.Printf("Result: %s (%s)\n", ret, ret.Code())
	return nil
}
