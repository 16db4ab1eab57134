package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseTags(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want []string
	}{
		{name: "empty", raw: "", want: nil},
		{name: "semicolon separated", raw: "10.10.10.50;media", want: []string{"10.10.10.50", "media"}},
		{name: "comma and spaces", raw: "web, prod  db", want: []string{"web", "prod", "db"}},
		{name: "drops empty segments", raw: ";;a;;b;", want: []string{"a", "b"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseTags(tt.raw))
		})
	}
}

func TestWorkloadKind(t *testing.T) {
	assert.True(t, WorkloadKindContainer.Valid())
	assert.True(t, WorkloadKindVM.Valid())
	assert.False(t, WorkloadKind("docker").Valid())

	w := Workload{ID: 100, Kind: WorkloadKindContainer}
	assert.True(t, w.IsContainer())
	assert.False(t, w.IsVM())
}
