package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeQuery(t *testing.T) {
	tests := []struct {
		name     string
		data     string
		wantHard []string
		wantErr  bool
	}{
		{
			name:     "program list",
			data:     `{"uid":"q1","hard_logic_py":["result = True", "result = False"]}`,
			wantHard: []string{"result = True", "result = False"},
		},
		{
			name:     "list encoded as string",
			data:     `{"uid":"q1","hard_logic_py":"[\"result = 1\"]"}`,
			wantHard: []string{"result = 1"},
		},
		{
			name:     "single program string",
			data:     `{"uid":"q1","hard_logic_py":"result = day_count(plan) == 3"}`,
			wantHard: []string{"result = day_count(plan) == 3"},
		},
		{
			name: "no constraints",
			data: `{"uid":"q1","days":3}`,
		},
		{
			name:    "missing uid",
			data:    `{"days":3}`,
			wantErr: true,
		},
		{
			name:    "programs of wrong type",
			data:    `{"uid":"q1","hard_logic_py":42}`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := DecodeQuery([]byte(tt.data))
			if tt.wantErr {
				assert.True(t, errors.Is(err, ErrMalformedInput))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantHard, []string(q.HardLogicPy))
		})
	}
}

func TestQueryWithoutOracle(t *testing.T) {
	q := Query{
		UID:          "q1",
		HardLogic:    []string{"days==2"},
		HardLogicPy:  Programs{"result = True"},
		HardLogicNL:  []string{"two days"},
		PreferencePy: Programs{"result = 1"},
	}

	stripped := q.WithoutOracle()

	assert.Empty(t, stripped.HardLogic)
	assert.Empty(t, stripped.HardLogicPy)
	assert.Empty(t, stripped.HardLogicNL)
	assert.Equal(t, q.PreferencePy, stripped.PreferencePy)
	assert.Len(t, q.HardLogicPy, 1, "original must be untouched")
}
