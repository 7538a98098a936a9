package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeName(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "case folds", in: "Forbidden City", want: "forbidden city"},
		{name: "trims and collapses spaces", in: "  Forbidden   City ", want: "forbidden city"},
		{name: "full width latin", in: "Ｆｏｒｂｉｄｄｅｎ City", want: "forbidden city"},
		{name: "ideographic space", in: "Forbidden　City", want: "forbidden city"},
		{name: "cjk untouched", in: "故宫", want: "故宫"},
		{name: "empty", in: "", want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeName(tt.in))
		})
	}
}

func TestSameName(t *testing.T) {
	assert.True(t, SameName("Beijing South Station", "beijing  south station"))
	assert.False(t, SameName("Beijing South Station", "Beijing West Station"))
}
