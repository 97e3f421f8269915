package main

import (
	"fmt"

	"github.com/wippyai/tvm-go"
)

// session is a client plus the module loaded with -lib, if any.
type session struct {
	client *tvm.Client
	mod    *tvm.Module
	close  func()
}

func openSession(libFile string) (*session, error) {
	rt, closeRT := newRuntime()
	s := &session{client: tvm.New(rt), close: closeRT}
	if libFile != "" {
		mod, err := s.client.LoadModule(libFile)
		if err != nil {
			closeRT()
			return nil, fmt.Errorf("load %s: %w", libFile, err)
		}
		s.mod = mod
	}
	return s, nil
}

// resolve finds name in the loaded module (and its imports), then among
// the global functions. An empty name selects the module entry.
func (s *session) resolve(name string) (*tvm.Function, error) {
	if s.mod != nil {
		if name == "" {
			name = tvm.EntryFuncName
		}
		fn, err := s.mod.GetFunction(name, true)
		if err == nil {
			return fn, nil
		}
	}
	if name == "" {
		return nil, fmt.Errorf("no function given")
	}
	return s.client.GetGlobalFunc(name, false)
}

func (s *session) Close() {
	if s.mod != nil {
		s.mod.Release()
	}
	s.close()
}
