// internal/nodeid/parser_test.go
package nodeid

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	testCases := []struct {
		name         string
		rawID        string
		expectErr    bool
		expectedAddr *Address
	}{
		{
			name:         "simple address",
			rawID:        "Source.Get",
			expectedAddr: &Address{Stage: "Source", Action: "Get"},
		},
		{
			name:         "hyphens and underscores",
			rawID:        "build-1.compile_go",
			expectedAddr: &Address{Stage: "build-1", Action: "compile_go"},
		},
		{
			name:      "error - empty string",
			rawID:     "",
			expectErr: true,
		},
		{
			name:      "error - missing action",
			rawID:     "Source",
			expectErr: true,
		},
		{
			name:      "error - too many segments",
			rawID:     "a.b.c",
			expectErr: true,
		},
		{
			name:      "error - empty segment",
			rawID:     "Source.",
			expectErr: true,
		},
		{
			name:      "error - invalid characters",
			rawID:     "Source.get source",
			expectErr: true,
		},
		{
			name:      "error - just hyphen",
			rawID:     "-.Get",
			expectErr: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			addr, err := Parse(tc.rawID)
			if tc.expectErr {
				require.Error(t, err)
				assert.Nil(t, addr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.expectedAddr, addr)
		})
	}
}

func TestValidName(t *testing.T) {
	assert.True(t, ValidName("Get_Source"))
	assert.True(t, ValidName("stage-2"))
	assert.False(t, ValidName(""))
	assert.False(t, ValidName("a.b"))
	assert.False(t, ValidName("with space"))
	assert.False(t, ValidName("_"))
}

func TestMustParse_Panics(t *testing.T) {
	assert.Panics(t, func() { MustParse("nope") })
}
