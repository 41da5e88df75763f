// SPDX-License-Identifier: MPL-2.0

package execute

import (
	"maps"
	"slices"

	"github.com/cmdrun/cmdrun/internal/interpolate"
	"github.com/cmdrun/cmdrun/internal/runtime"
	"github.com/cmdrun/cmdrun/pkg/cmdfile"
)

// GlobalEnv returns the global env of a commands file: the variables of
// each env file in file order, then [config].env, so inline values win.
// Variables from one env file are ordered by name.
func GlobalEnv(settings cmdfile.Settings, baseDir string) ([]cmdfile.EnvVar, error) {
	var vars []cmdfile.EnvVar
	for _, path := range settings.EnvFiles {
		values := make(map[string]string)
		if err := runtime.LoadEnvFile(values, path, baseDir); err != nil {
			return nil, err
		}
		for _, name := range slices.Sorted(maps.Keys(values)) {
			vars = append(vars, cmdfile.EnvVar{Name: name, Value: values[name]})
		}
	}
	return append(vars, settings.Env...), nil
}

// mergeEnv flattens layers, later layers winning.
func mergeEnv(layers ...map[string]string) map[string]string {
	out := make(map[string]string)
	for _, l := range layers {
		maps.Copy(out, l)
	}
	return out
}

// UnboundReferences lists the ${NAME} references in cmd's lines and env
// values that must resolve but that neither layers nor cmd's own env
// define. Positional references depend on the arguments and are skipped.
// Names are sorted.
func UnboundReferences(cmd *cmdfile.Command, layers ...interpolate.Layer) []string {
	ctx := interpolate.NewContext(nil, append([]interpolate.Layer{interpolate.MapLayer(cmdfile.EnvMap(cmd.Env))}, layers...)...)

	templates := cmd.Spec.Lines()
	for _, v := range cmd.Env {
		templates = append(templates, v.Value)
	}

	var unbound []string
	for _, tmpl := range templates {
		for _, ref := range interpolate.References(tmpl) {
			if ref.Positional || !ref.Required || slices.Contains(unbound, ref.Name) {
				continue
			}
			if _, ok := ctx.Lookup(ref.Name); !ok {
				unbound = append(unbound, ref.Name)
			}
		}
	}
	slices.Sort(unbound)
	return unbound
}
