// SPDX-License-Identifier: MPL-2.0

package cmdfile

import (
	"slices"

	"github.com/pelletier/go-toml/v2/unstable"
)

// keyOrder walks the TOML syntax tree and returns the full key path of every
// leaf value in document order. Inline tables are descended into; arrays are
// leaves.
func keyOrder(data []byte) ([][]string, error) {
	var (
		p      unstable.Parser
		table  []string
		leaves [][]string
	)
	p.Reset(data)
	for p.NextExpression() {
		expr := p.Expression()
		switch expr.Kind {
		case unstable.Table, unstable.ArrayTable:
			table = keyParts(expr.Key())
		case unstable.KeyValue:
			leaves = appendLeaves(leaves, table, expr)
		}
	}
	return leaves, p.Error()
}

func appendLeaves(out [][]string, prefix []string, kv *unstable.Node) [][]string {
	path := append(slices.Clone(prefix), keyParts(kv.Key())...)
	value := kv.Value()
	if value.Kind != unstable.InlineTable {
		return append(out, path)
	}
	it := value.Children()
	for it.Next() {
		out = appendLeaves(out, path, it.Node())
	}
	return out
}

func keyParts(it unstable.Iterator) []string {
	var parts []string
	for it.Next() {
		parts = append(parts, string(it.Node().Data))
	}
	return parts
}

// childKeys returns the distinct keys directly below prefix, in the order
// they first appear.
func childKeys(leaves [][]string, prefix ...string) []string {
	var keys []string
	for _, leaf := range leaves {
		if len(leaf) <= len(prefix) || !slices.Equal(leaf[:len(prefix)], prefix) {
			continue
		}
		if k := leaf[len(prefix)]; !slices.Contains(keys, k) {
			keys = append(keys, k)
		}
	}
	return keys
}
