// SPDX-License-Identifier: MPL-2.0

package interpolate

import "os"

type (
	// Layer is one source of named values.
	Layer interface {
		Lookup(name string) (string, bool)
	}

	// MapLayer serves values from a map.
	MapLayer map[string]string

	// LookupFunc adapts a function such as os.LookupEnv to Layer.
	LookupFunc func(name string) (string, bool)

	// Context holds the layers searched for names, highest precedence
	// first, and the positional arguments bound to ${1}, ${2}, ...
	// A Context is not modified by Expand.
	Context struct {
		Layers []Layer
		Args   []string
	}
)

// Lookup implements Layer.
func (m MapLayer) Lookup(name string) (string, bool) {
	v, ok := m[name]
	return v, ok
}

// Lookup implements Layer.
func (f LookupFunc) Lookup(name string) (string, bool) { return f(name) }

// SystemEnv is the process environment as a Layer.
func SystemEnv() Layer { return LookupFunc(os.LookupEnv) }

// NewContext returns a Context with the given positional args and layers.
func NewContext(args []string, layers ...Layer) *Context {
	return &Context{Layers: layers, Args: args}
}

// Lookup returns the value from the first layer that defines name. An
// empty value still counts as defined.
func (c *Context) Lookup(name string) (string, bool) {
	if c == nil {
		return "", false
	}
	for _, l := range c.Layers {
		if l == nil {
			continue
		}
		if v, ok := l.Lookup(name); ok {
			return v, true
		}
	}
	return "", false
}

// Arg returns the n-th positional argument, 1-indexed.
func (c *Context) Arg(n int) (string, bool) {
	if c == nil || n < 1 || n > len(c.Args) {
		return "", false
	}
	return c.Args[n-1], true
}
