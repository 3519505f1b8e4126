// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
package pipeline

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseKind(t *testing.T) {
	testCases := []struct {
		in      string
		want    Kind
		wantErr bool
	}{
		{in: "source", want: KindSource},
		{in: "Build", want: KindBuild},
		{in: " DEPLOY ", want: KindDeploy},
		{in: "approve", wantErr: true},
		{in: "", wantErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.in, func(t *testing.T) {
			got, err := ParseKind(tc.in)
			if tc.wantErr {
				require.Error(t, err)
				assert.Equal(t, KindUnknown, got)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestKind_JSON(t *testing.T) {
	out, err := json.Marshal(struct {
		Kind Kind `json:"kind"`
	}{KindBuild})
	require.NoError(t, err)
	assert.JSONEq(t, `{"kind":"build"}`, string(out))

	var decoded struct {
		Kind Kind `json:"kind"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"kind":"deploy"}`), &decoded))
	assert.Equal(t, KindDeploy, decoded.Kind)

	assert.Error(t, json.Unmarshal([]byte(`{"kind":"nope"}`), &decoded))
	_, err = json.Marshal(struct{ K Kind }{KindUnknown})
	assert.Error(t, err)
}
