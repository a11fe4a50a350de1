package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"runtime"

	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/jvmflow/jflow/core/bytecode"
)

// listingFile is the YAML form of a program:
//
//	methods:
//	  - name: loop
//	    descriptor: (I)V
//	    static: true
//	    code:
//	      - label start
//	      - iload 0
//	      ...
type listingFile struct {
	Methods []methodListing `yaml:"methods"`
}

type methodListing struct {
	Name       string           `yaml:"name"`
	Descriptor string           `yaml:"descriptor"`
	Static     bool             `yaml:"static"`
	Maxs       *maxsListing     `yaml:"maxs,omitempty"`
	Code       []string         `yaml:"code"`
	Handlers   []handlerListing `yaml:"handlers,omitempty"`
}

type maxsListing struct {
	Stack  int `yaml:"stack"`
	Locals int `yaml:"locals"`
}

type handlerListing struct {
	Start   string `yaml:"start"`
	End     string `yaml:"end"`
	Handler string `yaml:"handler"`
	Type    string `yaml:"type,omitempty"`
}

// listing is a decoded listing file.
type listing struct {
	path    string
	methods []*bytecode.Method
}

// find returns the method called name, or name followed by its descriptor
// when the name alone is ambiguous.
func (l *listing) find(name string) (*bytecode.Method, error) {
	var found []*bytecode.Method
	for _, m := range l.methods {
		if m.Name == name || m.Name+m.Descriptor == name {
			found = append(found, m)
		}
	}
	switch len(found) {
	case 0:
		return nil, fmt.Errorf("%s: no method %q", l.path, name)
	case 1:
		return found[0], nil
	}
	return nil, fmt.Errorf("%s: %d methods named %q, add the descriptor", l.path, len(found), name)
}

// loadListings reads every listing file concurrently. The listings come back
// in argument order.
func loadListings(ctx context.Context, paths []string) ([]*listing, error) {
	listings := make([]*listing, len(paths))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())
	for i, path := range paths {
		i, path := i, path
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			f, err := os.Open(path)
			if err != nil {
				return err
			}
			defer f.Close()
			l, err := decodeListing(path, f)
			if err != nil {
				return err
			}
			listings[i] = l
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return listings, nil
}

func decodeListing(path string, r io.Reader) (*listing, error) {
	var file listingFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	l := &listing{path: path, methods: make([]*bytecode.Method, 0, len(file.Methods))}
	for i, ml := range file.Methods {
		m, err := ml.method()
		if err != nil {
			return nil, fmt.Errorf("%s: method %d (%s): %w", path, i, ml.Name, err)
		}
		l.methods = append(l.methods, m)
	}
	return l, nil
}

// method assembles the listing into a method with its own label arena.
func (ml *methodListing) method() (*bytecode.Method, error) {
	if ml.Name == "" {
		return nil, errors.New("missing name")
	}
	if ml.Descriptor == "" {
		return nil, errors.New("missing descriptor")
	}
	labels := bytecode.NewLabels()
	m := &bytecode.Method{
		Name:       ml.Name,
		Descriptor: ml.Descriptor,
		Static:     ml.Static,
		Entries:    make([]bytecode.Entry, 0, len(ml.Code)),
	}
	for i, line := range ml.Code {
		e, err := bytecode.ParseEntry(line, labels)
		if err != nil {
			return nil, fmt.Errorf("code line %d: %w", i+1, err)
		}
		m.Entries = append(m.Entries, e)
	}
	for i, h := range ml.Handlers {
		if h.Start == "" || h.End == "" || h.Handler == "" {
			return nil, fmt.Errorf("handler %d: missing label", i)
		}
		m.Handlers = append(m.Handlers, bytecode.ExceptionRange{
			Start:   labels.Get(h.Start),
			End:     labels.Get(h.End),
			Handler: labels.Get(h.Handler),
			Type:    h.Type,
		})
	}
	if ml.Maxs != nil {
		m.Declared = &bytecode.Maxs{Stack: ml.Maxs.Stack, Locals: ml.Maxs.Locals}
	}
	return m, nil
}
