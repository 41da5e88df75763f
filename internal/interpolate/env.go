// SPDX-License-Identifier: MPL-2.0

package interpolate

import (
	"fmt"

	"github.com/cmdrun/cmdrun/pkg/cmdfile"
)

// ExpandEnv expands vars in declaration order. Each value is expanded
// against the values already expanded from vars, then ctx. The result maps
// every name to its expanded value.
func ExpandEnv(vars []cmdfile.EnvVar, ctx *Context, strict bool) (MapLayer, error) {
	out := make(MapLayer, len(vars))
	scoped := &Context{Layers: []Layer{out}}
	if ctx != nil {
		scoped.Layers = append(scoped.Layers, ctx.Layers...)
		scoped.Args = ctx.Args
	}

	for _, v := range vars {
		value, err := Expand(v.Value, scoped, strict)
		if err != nil {
			return nil, fmt.Errorf("env %s: %w", v.Name, err)
		}
		out[v.Name] = value
	}
	return out, nil
}
