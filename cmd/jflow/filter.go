package main

import (
	"fmt"

	"github.com/hashicorp/go-bexpr"

	"github.com/jvmflow/jflow/core/bytecode"
)

// methodInfo is what a --filter expression can select on, e.g.
//
//	static == true and "J" in descriptor
//	name matches "^count"
type methodInfo struct {
	File         string `bexpr:"file"`
	Name         string `bexpr:"name"`
	Descriptor   string `bexpr:"descriptor"`
	Static       bool   `bexpr:"static"`
	Declared     bool   `bexpr:"declared"`
	Instructions int    `bexpr:"instructions"`
	Handlers     int    `bexpr:"handlers"`
}

func newMethodInfo(file string, m *bytecode.Method) *methodInfo {
	return &methodInfo{
		File:         file,
		Name:         m.Name,
		Descriptor:   m.Descriptor,
		Static:       m.Static,
		Declared:     m.Declared != nil,
		Instructions: m.Instructions(),
		Handlers:     len(m.Handlers),
	}
}

// filterListings drops the methods of every listing that expr rejects. An
// empty expression keeps everything.
func filterListings(listings []*listing, expr string) error {
	if expr == "" {
		return nil
	}
	eval, err := bexpr.CreateEvaluator(expr)
	if err != nil {
		return fmt.Errorf("invalid filter: %w", err)
	}
	for _, l := range listings {
		kept := l.methods[:0]
		for _, m := range l.methods {
			ok, err := eval.Evaluate(newMethodInfo(l.path, m))
			if err != nil {
				return fmt.Errorf("filter on %s %s%s: %w", l.path, m.Name, m.Descriptor, err)
			}
			if ok {
				kept = append(kept, m)
			}
		}
		l.methods = kept
	}
	return nil
}
