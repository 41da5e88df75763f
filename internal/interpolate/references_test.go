// SPDX-License-Identifier: MPL-2.0

package interpolate

import (
	"slices"
	"testing"
)

func TestReferences(t *testing.T) {
	t.Parallel()

	refs := References("deploy ${ENV:?set ENV} ${1} ${REGION:-${DEFAULT_REGION}} ${ENV} ${bad name} ${FLAG:+--flag}")
	want := []Reference{
		{Name: "ENV", Required: true},
		{Name: "1", Positional: true, Required: true},
		{Name: "REGION"},
		{Name: "DEFAULT_REGION", Required: true},
		{Name: "FLAG"},
	}
	if !slices.Equal(refs, want) {
		t.Errorf("got %+v\nwant %+v", refs, want)
	}

	if refs := References("plain"); refs != nil {
		t.Errorf("expected no references, got %v", refs)
	}
}
