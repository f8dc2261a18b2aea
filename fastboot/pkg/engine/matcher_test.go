package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMatch(t *testing.T) {
	cases := []struct {
		name   string
		resp   string
		values []string
		want   bool
	}{
		{name: "exact", resp: "xyz", values: []string{"xyz"}, want: true},
		{name: "exact longer response", resp: "xyza", values: []string{"xyz"}, want: false},
		{name: "exact shorter response", resp: "xy", values: []string{"xyz"}, want: false},
		{name: "wildcard prefix", resp: "xyz-14", values: []string{"xyz-*"}, want: true},
		{name: "wildcard needs full prefix", resp: "xyz", values: []string{"xyz-*"}, want: false},
		{name: "wildcard prefix only", resp: "xyz-", values: []string{"xyz-*"}, want: true},
		{name: "any entry suffices", resp: "bullhead", values: []string{"angler", "bullhead"}, want: true},
		{name: "no entry", resp: "foo", values: []string{"angler", "bullhead"}, want: false},
		{name: "case sensitive", resp: "Angler", values: []string{"angler"}, want: false},
		{name: "empty values", resp: "xyz", values: nil, want: false},
		{name: "lone star is exact", resp: "*", values: []string{"*"}, want: true},
		{name: "lone star no wildcard", resp: "anything", values: []string{"*"}, want: false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, match(tc.resp, tc.values))
		})
	}
}
